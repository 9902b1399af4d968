package usecase

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"FlipSight/internal/domain/models"
)

func newTestMarket(t *testing.T) *Market {
	t.Helper()
	m := NewMarket(testLogger(t))
	m.SetCatalog([]*models.ItemMeta{
		{ID: 561, Name: "Nature rune", BuyLimit: 12000},
		{ID: 2, Name: "Cannonball", BuyLimit: 11000},
	})
	return m
}

func testQuote(id int, bid, ask int64, now time.Time) *models.Quote {
	return &models.Quote{
		ItemID:     id,
		BidInstant: bid,
		AskInstant: ask,
		BidTime:    now.Unix(),
		AskTime:    now.Unix(),
	}
}

func TestMarketRebuildSkipsUncataloged(t *testing.T) {
	m := newTestMarket(t)
	now := time.Now()

	m.MergeQuotes(map[int]*models.Quote{
		561: testQuote(561, 100, 110, now),
		2:   testQuote(2, 180, 190, now),
		999: testQuote(999, 50, 60, now), // not in the catalog
	}, nil, nil)

	n := m.Rebuild(now, 0)
	assert.Equal(t, 2, n)

	_, ok := m.Snapshot(999)
	assert.False(t, ok)
	assert.Equal(t, now, m.UpdatedAt())
}

func TestMarketMergePrefersAverages(t *testing.T) {
	m := newTestMarket(t)
	now := time.Now()

	latest := testQuote(561, 100, 110, now)
	fiveMin := map[int]*models.Quote{
		561: {BidAvg5m: 101, AskAvg5m: 108, BuyVolume5m: 600, SellVolume5m: 500},
	}
	hourly := map[int]*models.Quote{
		561: {BidAvg5m: 99, AskAvg5m: 105},
	}
	m.MergeQuotes(map[int]*models.Quote{561: latest}, fiveMin, hourly)
	require.Equal(t, 1, m.Rebuild(now, 0))

	snap, ok := m.Snapshot(561)
	require.True(t, ok)
	assert.Equal(t, int64(101), snap.BidAvg, "5m average wins over instant")
	assert.Equal(t, int64(108), snap.AskAvg)
	assert.Equal(t, int64(100), snap.BidInstant)
	assert.Equal(t, int64(1100), snap.FiveMinVolume)
	assert.InDelta(t, float64(108-105)/105*100, snap.MicroTrendPct, 1e-9)
}

func TestMarketVolumeFallback(t *testing.T) {
	m := newTestMarket(t)
	now := time.Now()

	q := testQuote(561, 100, 110, now)
	fiveMin := map[int]*models.Quote{561: {BuyVolume5m: 600, SellVolume5m: 500}}
	m.MergeQuotes(map[int]*models.Quote{561: q}, fiveMin, nil)

	// No volumes feed loaded: the 5m window is extrapolated to a day.
	require.Equal(t, 1, m.Rebuild(now, 0))
	snap, ok := m.Snapshot(561)
	require.True(t, ok)
	assert.Equal(t, int64(1100*288), snap.Volume)

	// With a real volumes table the feed value wins.
	m.SetVolumes(map[int]int64{561: 4_000_000})
	require.Equal(t, 1, m.Rebuild(now, 0))
	snap, _ = m.Snapshot(561)
	assert.Equal(t, int64(4_000_000), snap.Volume)
}

func TestMarketSnapshotsFiltering(t *testing.T) {
	m := newTestMarket(t)
	now := time.Now()

	m.MergeQuotes(map[int]*models.Quote{
		561: testQuote(561, 100, 110, now),
		2:   testQuote(2, 180, 190, now),
	}, nil, nil)
	m.SetVolumes(map[int]int64{561: 4_000_000, 2: 2_000_000})
	require.Equal(t, 2, m.Rebuild(now, 0))

	byQuery := m.Snapshots(SnapshotFilter{Query: "nature"})
	require.Len(t, byQuery, 1)
	assert.Equal(t, 561, byQuery[0].ItemID)

	byPrice := m.Snapshots(SnapshotFilter{MaxBuy: 150})
	require.Len(t, byPrice, 1)
	assert.Equal(t, 561, byPrice[0].ItemID)

	byVolume := m.Snapshots(SnapshotFilter{MinVolume: 3_000_000})
	require.Len(t, byVolume, 1)
	assert.Equal(t, 561, byVolume[0].ItemID)

	byName := m.Snapshots(SnapshotFilter{SortBy: "name", Asc: true})
	require.Len(t, byName, 2)
	assert.Equal(t, "Cannonball", byName[0].Name)

	limited := m.Snapshots(SnapshotFilter{SortBy: "name", Asc: true, Limit: 1})
	require.Len(t, limited, 1)
	assert.Equal(t, "Cannonball", limited[0].Name)
}

func TestMarketCatalogLookup(t *testing.T) {
	m := newTestMarket(t)

	meta, ok := m.Item(561)
	require.True(t, ok)
	assert.Equal(t, "Nature rune", meta.Name)

	_, ok = m.Item(4151)
	assert.False(t, ok)
}
