package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlipSight/internal/domain/models"
	"FlipSight/internal/usecase"
	"FlipSight/pkg/cache"
	xlogger "FlipSight/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordRefresh(string)          {}
func (nopMetrics) RecordSnapshots(int)           {}
func (nopMetrics) RecordLedgerOp(string)         {}
func (nopMetrics) RecordError(string)            {}
func (nopMetrics) RecordLatency(string, float64) {}

type stubCatalog struct{}

func (stubCatalog) Item(int) (*models.ItemMeta, bool) { return nil, false }

func newTestLedgerHandler(t *testing.T) (*LedgerHandler, *usecase.Ledger, *echo.Echo) {
	t.Helper()
	log, err := xlogger.New(&xlogger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)

	store := cache.NewMemoryCache()
	t.Cleanup(func() { _ = store.Close() })

	ledger := usecase.NewLedger(store, log, nopMetrics{})
	limits := usecase.NewBuyLimitTracker(stubCatalog{}, store, log, nopMetrics{})
	h := NewLedgerHandler(log, ledger, limits)

	e := echo.New()
	h.RegisterRoutes(e)
	return h, ledger, e
}

func TestImportEndpointAcceptsCSVBody(t *testing.T) {
	_, ledger, e := newTestLedgerHandler(t)

	body := "itemName,quantity,buyPrice\nNature rune,100,95\n"
	req := httptest.NewRequest(http.MethodPost, "/api/flips/import", strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, "text/csv")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var resp struct {
		Status int `json:"status"`
		Data   struct {
			Imported int  `json:"imported"`
			Replaced bool `json:"replaced"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, http.StatusOK, resp.Status)
	assert.Equal(t, 1, resp.Data.Imported)
	assert.False(t, resp.Data.Replaced)

	records := ledger.Records()
	require.Len(t, records, 1)
	assert.Equal(t, "Nature rune", records[0].ItemName)
	assert.Equal(t, int64(100), records[0].Qty)
	assert.Equal(t, int64(95), records[0].BuyPrice)
}

func TestImportEndpointReplaceFlag(t *testing.T) {
	_, ledger, e := newTestLedgerHandler(t)

	post := func(path, body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, "text/csv")
		rec := httptest.NewRecorder()
		e.ServeHTTP(rec, req)
		return rec
	}

	first := post("/api/flips/import", "itemName,quantity,buyPrice\nCoal,50,150\n")
	require.Equal(t, http.StatusOK, first.Code, first.Body.String())
	require.Len(t, ledger.Records(), 1)

	second := post("/api/flips/import?replace=true", "itemName,quantity,buyPrice\nIron ore,25,90\n")
	require.Equal(t, http.StatusOK, second.Code, second.Body.String())

	records := ledger.Records()
	require.Len(t, records, 1, "replace=true drops prior records")
	assert.Equal(t, "Iron ore", records[0].ItemName)
}

func TestImportEndpointRejectsMalformedCSV(t *testing.T) {
	_, ledger, e := newTestLedgerHandler(t)

	req := httptest.NewRequest(http.MethodPost, "/api/flips/import", strings.NewReader("not,a\nvalid\"csv"))
	req.Header.Set(echo.HeaderContentType, "text/csv")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Empty(t, ledger.Records())
}
