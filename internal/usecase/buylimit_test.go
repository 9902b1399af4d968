package usecase

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlipSight/internal/domain/models"
	"FlipSight/pkg/cache"
)

type mapCatalog map[int]*models.ItemMeta

func (m mapCatalog) Item(itemID int) (*models.ItemMeta, bool) {
	meta, ok := m[itemID]
	return meta, ok
}

func newTestTracker(t *testing.T) (*BuyLimitTracker, cache.Service) {
	t.Helper()
	store := cache.NewMemoryCache()
	t.Cleanup(func() { _ = store.Close() })
	catalog := mapCatalog{
		561: {ID: 561, Name: "Nature rune", BuyLimit: 12_000},
		2:   {ID: 2, Name: "Cannonball", BuyLimit: 9_000},
	}
	return NewBuyLimitTracker(catalog, store, testLogger(t), nopMetrics{}), store
}

func TestTrackerStatusOnDemand(t *testing.T) {
	tr, _ := newTestTracker(t)

	st, ok := tr.Status(561)
	require.True(t, ok)
	assert.Equal(t, int64(12_000), st.Limit)
	assert.Zero(t, st.Used)
	assert.Equal(t, int64(12_000), st.Remaining)
	assert.True(t, st.ResetAt.IsZero())

	_, ok = tr.Status(999999)
	assert.False(t, ok, "unknown item has no record")
}

func TestTrackerRollingWindow(t *testing.T) {
	tr, _ := newTestTracker(t)
	now := time.Now()
	tr.now = func() time.Time { return now }

	_, err := tr.Adjust(context.Background(), 561, 5_000)
	require.NoError(t, err)

	st, _ := tr.Status(561)
	assert.Equal(t, int64(5_000), st.Used)
	assert.Equal(t, int64(7_000), st.Remaining)
	assert.Equal(t, now.Add(models.LimitWindow), st.ResetAt)

	// Window rolls: the purchase expires exactly 4h later.
	tr.now = func() time.Time { return now.Add(models.LimitWindow) }
	st, _ = tr.Status(561)
	assert.Zero(t, st.Used)
	assert.Equal(t, int64(12_000), st.Remaining)
}

func TestTrackerRemainingNeverNegative(t *testing.T) {
	tr, _ := newTestTracker(t)
	st, err := tr.Adjust(context.Background(), 561, 20_000)
	require.NoError(t, err)
	assert.Equal(t, int64(20_000), st.Used)
	assert.Zero(t, st.Remaining)
}

func TestTrackerAdjustValidation(t *testing.T) {
	tr, _ := newTestTracker(t)
	_, err := tr.Adjust(context.Background(), 561, 0)
	assert.Error(t, err)
}

func TestTrackerNegativeAdjustment(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()
	_, err := tr.Adjust(ctx, 561, 5_000)
	require.NoError(t, err)
	st, err := tr.Adjust(ctx, 561, -2_000)
	require.NoError(t, err)
	assert.Equal(t, int64(3_000), st.Used)
	assert.Equal(t, int64(9_000), st.Remaining)
}

func TestTrackerSyncFromLedger(t *testing.T) {
	tr, _ := newTestTracker(t)
	now := time.Now()
	tr.now = func() time.Time { return now }

	flips := []*models.FlipRecord{
		// Pending purchases consume quota at buy time.
		{ID: 1, ItemID: 561, ItemName: "Nature rune", BuyPrice: 100, Qty: 4_000,
			Status: models.FlipPending, Date: now.Add(-time.Hour)},
		{ID: 2, ItemID: 561, ItemName: "Nature rune", BuyPrice: 100, Qty: 2_000,
			Status: models.FlipComplete, Date: now.Add(-2 * time.Hour)},
		// Outside the window.
		{ID: 3, ItemID: 561, ItemName: "Nature rune", BuyPrice: 100, Qty: 9_000,
			Status: models.FlipComplete, Date: now.Add(-5 * time.Hour)},
		// Unknown to the catalog: ignored.
		{ID: 4, ItemID: 999999, ItemName: "Mystery", BuyPrice: 100, Qty: 1,
			Status: models.FlipPending, Date: now},
	}
	tr.SyncFromLedger(context.Background(), flips)

	st, _ := tr.Status(561)
	assert.Equal(t, int64(6_000), st.Used)
	assert.Equal(t, int64(6_000), st.Remaining)
}

func TestTrackerInsertionOrderIndependent(t *testing.T) {
	tr, _ := newTestTracker(t)
	now := time.Now()
	tr.now = func() time.Time { return now }

	a := &models.FlipRecord{ID: 1, ItemID: 2, ItemName: "Cannonball", BuyPrice: 180, Qty: 3_000,
		Status: models.FlipPending, Date: now.Add(-3 * time.Hour)}
	b := &models.FlipRecord{ID: 2, ItemID: 2, ItemName: "Cannonball", BuyPrice: 180, Qty: 1_000,
		Status: models.FlipComplete, Date: now.Add(-time.Minute)}

	tr.SyncFromLedger(context.Background(), []*models.FlipRecord{a, b})
	st1, _ := tr.Status(2)

	tr2, _ := newTestTracker(t)
	tr2.now = func() time.Time { return now }
	tr2.SyncFromLedger(context.Background(), []*models.FlipRecord{b, a})
	st2, _ := tr2.Status(2)

	assert.Equal(t, st1.Used, st2.Used)
	assert.Equal(t, st1.Remaining, st2.Remaining)
}

func TestTrackerPersistenceRoundTrip(t *testing.T) {
	tr, store := newTestTracker(t)
	ctx := context.Background()
	_, err := tr.Adjust(ctx, 561, 1_500)
	require.NoError(t, err)

	fresh := NewBuyLimitTracker(mapCatalog{}, store, testLogger(t), nopMetrics{})
	require.NoError(t, fresh.Load(ctx))

	st, ok := fresh.Status(561)
	require.True(t, ok, "persisted record must survive a restart")
	assert.Equal(t, int64(1_500), st.Used)
	assert.Equal(t, int64(10_500), st.Remaining)
}

func TestTrackerAllSortsByHeadroom(t *testing.T) {
	tr, _ := newTestTracker(t)
	ctx := context.Background()
	_, err := tr.Adjust(ctx, 561, 11_000) // 1,000 left
	require.NoError(t, err)
	_, err = tr.Adjust(ctx, 2, 1_000) // 8,000 left
	require.NoError(t, err)

	all := tr.All()
	require.Len(t, all, 2)
	assert.Equal(t, 2, all[0].ItemID)
	assert.Equal(t, 561, all[1].ItemID)
}
