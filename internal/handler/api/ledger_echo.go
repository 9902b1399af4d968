package api

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	models "FlipSight/internal/domain/models"
	"FlipSight/internal/usecase"
	xhttp "FlipSight/pkg/http"
	xlogger "FlipSight/pkg/logger"
)

// LedgerHandler serves the write side: flip CRUD, stats, buy limits and
// CSV import/export.
type LedgerHandler struct {
	logger *xlogger.Logger
	ledger *usecase.Ledger
	limits *usecase.BuyLimitTracker
}

func NewLedgerHandler(logger *xlogger.Logger, ledger *usecase.Ledger, limits *usecase.BuyLimitTracker) *LedgerHandler {
	return &LedgerHandler{logger: logger, ledger: ledger, limits: limits}
}

func (h *LedgerHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.GET("/flips", h.List)
	g.POST("/flips", h.Open)
	g.GET("/flips/stats", h.Stats)
	g.GET("/flips/analytics", h.Analytics)
	g.GET("/flips/export", h.Export)
	g.POST("/flips/import", h.Import)
	g.GET("/flips/:id", h.Get)
	g.POST("/flips/:id/sell", h.Sell)
	g.PATCH("/flips/:id", h.Edit)
	g.DELETE("/flips/:id", h.Delete)

	g.GET("/limits", h.Limits)
	g.GET("/limits/export", h.ExportLimits)
	g.GET("/limits/:id", h.Limit)
	g.POST("/limits/:id/adjust", h.Adjust)
}

func (h *LedgerHandler) List(c echo.Context) error {
	records := h.ledger.Records()
	return xhttp.ListResponse(c, records, int64(len(records)))
}

func (h *LedgerHandler) Get(c echo.Context) error {
	id, err := flipID(c)
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}
	rec, err := h.ledger.Get(id)
	if err != nil {
		return xhttp.NotFoundResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, rec)
}

func (h *LedgerHandler) Open(c echo.Context) error {
	req := &models.OpenFlipRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rec, err := h.ledger.Open(c.Request().Context(), usecase.OpenFlip{
		ItemID:     req.ItemID,
		ItemName:   req.ItemName,
		BuyPrice:   req.BuyPrice,
		Qty:        req.Qty,
		TargetBuy:  req.TargetBuy,
		TargetSell: req.TargetSell,
		SellPrice:  req.SellPrice,
		SellIsNet:  req.SellIsNet,
	})
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}
	return xhttp.CreatedResponse(c, rec)
}

func (h *LedgerHandler) Sell(c echo.Context) error {
	id, err := flipID(c)
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}
	req := &models.SellFlipRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rec, err := h.ledger.Sell(c.Request().Context(), id, req.SellPrice, req.Qty, req.IsNet)
	if err != nil {
		if errors.Is(err, usecase.ErrFlipNotFound) {
			return xhttp.NotFoundResponse(c, err.Error())
		}
		return xhttp.BadRequestResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, rec)
}

func (h *LedgerHandler) Edit(c echo.Context) error {
	id, err := flipID(c)
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}
	req := &models.EditFlipRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	rec, err := h.ledger.Edit(c.Request().Context(), id, usecase.EditFlip{
		ItemName:   req.ItemName,
		BuyPrice:   req.BuyPrice,
		SellPrice:  req.SellPrice,
		Qty:        req.Qty,
		TargetSell: req.TargetSell,
		SellIsNet:  req.SellIsNet,
	})
	if err != nil {
		if errors.Is(err, usecase.ErrFlipNotFound) {
			return xhttp.NotFoundResponse(c, err.Error())
		}
		return xhttp.BadRequestResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, rec)
}

func (h *LedgerHandler) Delete(c echo.Context) error {
	id, err := flipID(c)
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}
	if err := h.ledger.Delete(c.Request().Context(), id); err != nil {
		if errors.Is(err, usecase.ErrFlipNotFound) {
			return xhttp.NotFoundResponse(c, err.Error())
		}
		return xhttp.BadRequestResponse(c, err.Error())
	}
	return xhttp.NoContentResponse(c)
}

func (h *LedgerHandler) Stats(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.ledger.Stats())
}

func (h *LedgerHandler) Analytics(c echo.Context) error {
	rows := h.ledger.ItemAnalytics()
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *LedgerHandler) Export(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="flips.csv"`)
	c.Response().WriteHeader(http.StatusOK)
	if err := usecase.ExportFlips(c.Response(), h.ledger.Records()); err != nil {
		h.logger.Error("flip export error", xlogger.Error(err))
		return err
	}
	return nil
}

func (h *LedgerHandler) Import(c echo.Context) error {
	// The body is raw CSV, not a bindable payload; only the replace flag
	// comes from the query string.
	replace := c.QueryParam("replace") == "true"

	records, err := usecase.ImportFlips(c.Request().Body, time.Now())
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}
	added := h.ledger.Import(c.Request().Context(), records, replace)
	h.logger.Info("flips imported",
		xlogger.Int("records", added), xlogger.Bool("replace", replace))
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"imported": added,
		"replaced": replace,
	})
}

func (h *LedgerHandler) Limits(c echo.Context) error {
	rows := h.limits.All()
	return xhttp.ListResponse(c, rows, int64(len(rows)))
}

func (h *LedgerHandler) Limit(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return xhttp.BadRequestResponse(c, "invalid item id")
	}
	status, ok := h.limits.Status(id)
	if !ok {
		return xhttp.NotFoundResponse(c, "unknown item")
	}
	return xhttp.SuccessResponse(c, status)
}

func (h *LedgerHandler) Adjust(c echo.Context) error {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil || id <= 0 {
		return xhttp.BadRequestResponse(c, "invalid item id")
	}
	req := &models.AdjustLimitRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	status, err := h.limits.Adjust(c.Request().Context(), id, req.Qty)
	if err != nil {
		return xhttp.BadRequestResponse(c, err.Error())
	}
	return xhttp.SuccessResponse(c, status)
}

func (h *LedgerHandler) ExportLimits(c echo.Context) error {
	c.Response().Header().Set(echo.HeaderContentType, "text/csv; charset=utf-8")
	c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="buy-limits.csv"`)
	c.Response().WriteHeader(http.StatusOK)
	if err := usecase.ExportLimits(c.Response(), h.limits.Records(), time.Now()); err != nil {
		h.logger.Error("limit export error", xlogger.Error(err))
		return err
	}
	return nil
}

func flipID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid flip id")
	}
	return id, nil
}
