package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlipSight/internal/domain/models"
	"FlipSight/internal/services/tax"
	"FlipSight/pkg/cache"
	"FlipSight/pkg/logger"
)

type nopMetrics struct{}

func (nopMetrics) RecordRefresh(string)          {}
func (nopMetrics) RecordSnapshots(int)           {}
func (nopMetrics) RecordLedgerOp(string)         {}
func (nopMetrics) RecordError(string)            {}
func (nopMetrics) RecordLatency(string, float64) {}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	require.NoError(t, err)
	return log
}

func newTestLedger(t *testing.T) (*Ledger, cache.Service) {
	t.Helper()
	store := cache.NewMemoryCache()
	t.Cleanup(func() { _ = store.Close() })
	return NewLedger(store, testLogger(t), nopMetrics{}), store
}

func TestLedgerOpenValidation(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	_, err := l.Open(ctx, OpenFlip{ItemName: "Nature rune", BuyPrice: 0, Qty: 10})
	assert.Error(t, err)
	_, err = l.Open(ctx, OpenFlip{ItemName: "Nature rune", BuyPrice: 100, Qty: 0})
	assert.Error(t, err)
	_, err = l.Open(ctx, OpenFlip{BuyPrice: 100, Qty: 10})
	assert.Error(t, err)
	assert.Empty(t, l.Records(), "no partial mutation on rejected open")
}

func TestLedgerOpenPending(t *testing.T) {
	l, _ := newTestLedger(t)
	rec, err := l.Open(context.Background(), OpenFlip{
		ItemID: 561, ItemName: "Nature rune", BuyPrice: 100, Qty: 1000, TargetSell: 120,
	})
	require.NoError(t, err)

	assert.Equal(t, models.FlipPending, rec.Status)
	assert.Nil(t, rec.SellGross)
	assert.Nil(t, rec.ActualProfit)
	assert.Zero(t, rec.Tax)
	// Target 120 taxes 2 per item, so expected is (118 - 100) * 1000.
	assert.Equal(t, int64((118-100)*1000), rec.ExpectedProfit)
}

func TestLedgerSellFullNet(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	rec, err := l.Open(ctx, OpenFlip{ItemID: 561, ItemName: "Nature rune", BuyPrice: 100, Qty: 1000})
	require.NoError(t, err)

	sold, err := l.Sell(ctx, rec.ID, 120, 0, true)
	require.NoError(t, err)

	gross := tax.NetToGross(120)
	assert.Equal(t, models.FlipComplete, sold.Status)
	require.NotNil(t, sold.SellNet)
	assert.Equal(t, int64(120*1000), *sold.SellNet)
	assert.Equal(t, gross*1000, *sold.SellGross)
	assert.Equal(t, (gross-120)*1000, sold.Tax)
	assert.Equal(t, int64((120-100)*1000), *sold.ActualProfit)
}

func TestLedgerSellGross(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	rec, err := l.Open(ctx, OpenFlip{ItemName: "Rune scimitar", BuyPrice: 15_000, Qty: 5})
	require.NoError(t, err)

	sold, err := l.Sell(ctx, rec.ID, 16_000, 0, false)
	require.NoError(t, err)

	perTax := tax.Tax(16_000)
	assert.Equal(t, perTax*5, sold.Tax)
	assert.Equal(t, (16_000-perTax-15_000)*5, *sold.ActualProfit)
}

func TestLedgerSellValidation(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	rec, err := l.Open(ctx, OpenFlip{ItemName: "Coal", BuyPrice: 150, Qty: 100})
	require.NoError(t, err)

	_, err = l.Sell(ctx, rec.ID, 0, 0, true)
	assert.Error(t, err)
	_, err = l.Sell(ctx, rec.ID, 200, 101, true)
	assert.Error(t, err)
	_, err = l.Sell(ctx, 424242, 200, 0, true)
	assert.ErrorIs(t, err, ErrFlipNotFound)

	got, err := l.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, models.FlipPending, got.Status, "rejected sells must not mutate")
}

func TestLedgerSplitInvariant(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	parent, err := l.Open(ctx, OpenFlip{ItemName: "Lobster", BuyPrice: 50, Qty: 100, TargetSell: 70})
	require.NoError(t, err)

	child, err := l.Sell(ctx, parent.ID, 60, 40, true)
	require.NoError(t, err)

	assert.Equal(t, int64(40), child.Qty)
	assert.Equal(t, models.FlipComplete, child.Status)
	assert.Equal(t, parent.ID, child.SplitFrom)

	up, err := l.Get(parent.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(60), up.Qty)
	assert.Equal(t, models.FlipPending, up.Status)
	assert.Equal(t, child.Qty+up.Qty, parent.Qty, "split preserves total quantity")

	// Expected profit rescaled to the remaining quantity.
	perNet := tax.Net(70)
	assert.Equal(t, (perNet-50)*60, up.ExpectedProfit)
	assert.Equal(t, (perNet-50)*40, child.ExpectedProfit)

	// Child sold at net 60: profit (60-50)*40.
	assert.Equal(t, int64(10*40), *child.ActualProfit)

	// Deleting the child restores the parent in full.
	require.NoError(t, l.Delete(ctx, child.ID))
	up, err = l.Get(parent.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(100), up.Qty)
	assert.Equal(t, (perNet-50)*100, up.ExpectedProfit)
}

func TestLedgerDeleteParentClearsChildReference(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	parent, err := l.Open(ctx, OpenFlip{ItemName: "Lobster", BuyPrice: 50, Qty: 100})
	require.NoError(t, err)
	child, err := l.Sell(ctx, parent.ID, 60, 40, true)
	require.NoError(t, err)

	require.NoError(t, l.Delete(ctx, parent.ID))

	got, err := l.Get(child.ID)
	require.NoError(t, err)
	assert.Zero(t, got.SplitFrom, "orphaned split reference must be cleared")

	// Deleting the former child is now side-effect free.
	require.NoError(t, l.Delete(ctx, child.ID))
	assert.Empty(t, l.Records())
}

func TestLedgerEditRecomputesDerivedFields(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	rec, err := l.Open(ctx, OpenFlip{ItemName: "Dragon bones", BuyPrice: 2000, Qty: 100, TargetSell: 2500})
	require.NoError(t, err)
	_, err = l.Sell(ctx, rec.ID, 2400, 0, true)
	require.NoError(t, err)

	// Change only the quantity: per-item sell prices are preserved and
	// rescaled.
	qty := int64(50)
	got, err := l.Edit(ctx, rec.ID, EditFlip{Qty: &qty})
	require.NoError(t, err)
	assert.Equal(t, int64(50), got.Qty)
	assert.Equal(t, int64(2400*50), *got.SellNet)
	assert.Equal(t, int64((2400-2000)*50), *got.ActualProfit)
	assert.Equal(t, models.FlipComplete, got.Status)

	// Clearing the sell price reverts to pending.
	zero := int64(0)
	got, err = l.Edit(ctx, rec.ID, EditFlip{SellPrice: &zero})
	require.NoError(t, err)
	assert.Equal(t, models.FlipPending, got.Status)
	assert.Nil(t, got.SellGross)
	assert.Nil(t, got.ActualProfit)
	assert.Zero(t, got.Tax)
	// Target still present, so expected profit survives the revert.
	assert.Equal(t, (tax.Net(2500)-2000)*50, got.ExpectedProfit)
}

func TestLedgerEditValidation(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	rec, err := l.Open(ctx, OpenFlip{ItemName: "Dragon bones", BuyPrice: 2000, Qty: 100})
	require.NoError(t, err)

	bad := int64(-5)
	_, err = l.Edit(ctx, rec.ID, EditFlip{BuyPrice: &bad})
	assert.Error(t, err)
	_, err = l.Edit(ctx, rec.ID, EditFlip{Qty: &bad})
	assert.Error(t, err)
	_, err = l.Edit(ctx, 999, EditFlip{})
	assert.ErrorIs(t, err, ErrFlipNotFound)
}

func TestLedgerStats(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	a, err := l.Open(ctx, OpenFlip{ItemName: "Coal", BuyPrice: 100, Qty: 10, TargetSell: 150})
	require.NoError(t, err)
	_, err = l.Sell(ctx, a.ID, 140, 0, true)
	require.NoError(t, err)

	b, err := l.Open(ctx, OpenFlip{ItemName: "Coal", BuyPrice: 100, Qty: 10})
	require.NoError(t, err)
	_, err = l.Sell(ctx, b.ID, 90, 0, true)
	require.NoError(t, err)

	_, err = l.Open(ctx, OpenFlip{ItemName: "Iron ore", BuyPrice: 50, Qty: 5})
	require.NoError(t, err)

	st := l.Stats()
	assert.Equal(t, 2, st.Completed)
	assert.Equal(t, 1, st.Pending)
	assert.Equal(t, int64((140-100)*10+(90-100)*10), st.TotalActual)
	// Manual entry contributes its actual profit to the expected total.
	assert.Equal(t, (tax.Net(150)-100)*10+int64((90-100)*10), st.TotalExpected)
	assert.InDelta(t, 50.0, st.WinRate, 1e-9)
}

func TestLedgerItemAnalytics(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()

	for _, net := range []int64{120, 130} {
		rec, err := l.Open(ctx, OpenFlip{ItemID: 561, ItemName: "Nature rune", BuyPrice: 100, Qty: 100})
		require.NoError(t, err)
		_, err = l.Sell(ctx, rec.ID, net, 0, true)
		require.NoError(t, err)
	}
	rec, err := l.Open(ctx, OpenFlip{ItemName: "Coal", BuyPrice: 200, Qty: 10})
	require.NoError(t, err)
	_, err = l.Sell(ctx, rec.ID, 150, 0, true)
	require.NoError(t, err)

	perf := l.ItemAnalytics()
	require.Len(t, perf, 2)
	assert.Equal(t, "Nature rune", perf[0].ItemName, "ordered by total profit")
	nr := perf[0]
	assert.Equal(t, 2, nr.Flips)
	assert.Equal(t, int64(20*100+30*100), nr.TotalProfit)
	assert.InDelta(t, 100.0, nr.WinRate, 1e-9)
	assert.InDelta(t, 125.0, nr.AvgSellPrice, 1e-9)
	assert.InDelta(t, 2500.0, nr.AvgProfit, 1e-9)
	assert.True(t, nr.ProfitStdDev > 0)

	coal := perf[1]
	assert.Equal(t, 1, coal.Losses)
	assert.Equal(t, int64((150-200)*10), coal.TotalProfit)
}

func TestLedgerPersistenceRoundTrip(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()
	rec, err := l.Open(ctx, OpenFlip{ItemName: "Coal", BuyPrice: 100, Qty: 10})
	require.NoError(t, err)
	_, err = l.Sell(ctx, rec.ID, 120, 4, true)
	require.NoError(t, err)

	fresh := NewLedger(store, testLogger(t), nopMetrics{})
	require.NoError(t, fresh.Load(ctx))
	assert.Len(t, fresh.Records(), 2)

	got, err := fresh.Get(rec.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(6), got.Qty)
	assert.Equal(t, models.FlipPending, got.Status)
}

func TestLedgerLoadMergePrefersMoreRecords(t *testing.T) {
	l, store := newTestLedger(t)
	ctx := context.Background()
	_, err := l.Open(ctx, OpenFlip{ItemName: "Coal", BuyPrice: 100, Qty: 10})
	require.NoError(t, err)
	_, err = l.Open(ctx, OpenFlip{ItemName: "Iron ore", BuyPrice: 50, Qty: 10})
	require.NoError(t, err)

	// An empty persisted blob must never clobber in-memory state.
	require.NoError(t, store.Set(ctx, LedgerKey, []*models.FlipRecord{}, 0))
	require.NoError(t, l.Load(ctx))
	assert.Len(t, l.Records(), 2)

	// A longer blob wins.
	longer := []*models.FlipRecord{
		{ID: 1, ItemName: "A", BuyPrice: 1, Qty: 1, Status: models.FlipPending, Date: time.Now()},
		{ID: 2, ItemName: "B", BuyPrice: 1, Qty: 1, Status: models.FlipPending, Date: time.Now()},
		{ID: 3, ItemName: "C", BuyPrice: 1, Qty: 1, Status: models.FlipPending, Date: time.Now()},
	}
	require.NoError(t, store.Set(ctx, LedgerKey, longer, 0))
	require.NoError(t, l.Load(ctx))
	assert.Len(t, l.Records(), 3)
}

func TestLedgerNotifiesSubscribers(t *testing.T) {
	l, _ := newTestLedger(t)
	var calls int
	var lastLen int
	l.Subscribe(func(records []*models.FlipRecord) {
		calls++
		lastLen = len(records)
	})

	rec, err := l.Open(context.Background(), OpenFlip{ItemName: "Coal", BuyPrice: 100, Qty: 10})
	require.NoError(t, err)
	_, err = l.Sell(context.Background(), rec.ID, 120, 0, true)
	require.NoError(t, err)

	assert.Equal(t, 2, calls)
	assert.Equal(t, 1, lastLen)
}

func TestLedgerIDsAreMonotonic(t *testing.T) {
	l, _ := newTestLedger(t)
	ctx := context.Background()
	var prev int64
	for i := 0; i < 10; i++ {
		rec, err := l.Open(ctx, OpenFlip{ItemName: "Coal", BuyPrice: 100, Qty: 1})
		require.NoError(t, err)
		assert.Greater(t, rec.ID, prev)
		prev = rec.ID
	}
}
