package usecase

import (
	"sort"
	"strings"
	"sync"
	"time"

	"FlipSight/internal/domain/models"
	"FlipSight/internal/services/pricing"
	"FlipSight/pkg/logger"
)

// Market is the in-memory view of the exchange: the item catalog, the most
// recent merged quotes, daily volumes, and the snapshots derived from them.
// Refreshes replace whole sections at once; snapshots are immutable after a
// rebuild, so readers get shared pointers.
type Market struct {
	mu        sync.RWMutex
	items     map[int]*models.ItemMeta
	quotes    map[int]*models.Quote
	volumes   map[int]int64
	snapshots map[int]*models.ItemSnapshot
	updatedAt time.Time

	log *logger.Logger
}

func NewMarket(log *logger.Logger) *Market {
	return &Market{
		items:     make(map[int]*models.ItemMeta),
		quotes:    make(map[int]*models.Quote),
		volumes:   make(map[int]int64),
		snapshots: make(map[int]*models.ItemSnapshot),
		log:       log,
	}
}

// Item implements the buy-limit tracker's Catalog.
func (m *Market) Item(itemID int) (*models.ItemMeta, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	meta, ok := m.items[itemID]
	return meta, ok
}

// SetCatalog replaces the item catalog.
func (m *Market) SetCatalog(items []*models.ItemMeta) {
	next := make(map[int]*models.ItemMeta, len(items))
	for _, it := range items {
		if it != nil && it.ID > 0 {
			next[it.ID] = it
		}
	}
	m.mu.Lock()
	m.items = next
	m.mu.Unlock()
	m.log.Debug("catalog updated", logger.Int("items", len(next)))
}

// SetVolumes replaces the daily volume table.
func (m *Market) SetVolumes(volumes map[int]int64) {
	m.mu.Lock()
	m.volumes = volumes
	m.mu.Unlock()
}

// MergeQuotes combines the instant and averaged feeds into one quote per
// item. The latest feed is authoritative for prices and timestamps; the 5m
// and 1h feeds contribute averages and short-window volumes.
func (m *Market) MergeQuotes(latest, fiveMin, hourly map[int]*models.Quote) {
	merged := make(map[int]*models.Quote, len(latest))
	for id, q := range latest {
		if q == nil {
			continue
		}
		c := *q
		c.ItemID = id
		if avg, ok := fiveMin[id]; ok && avg != nil {
			c.BidAvg5m = avg.BidAvg5m
			c.AskAvg5m = avg.AskAvg5m
			c.BuyVolume5m = avg.BuyVolume5m
			c.SellVolume5m = avg.SellVolume5m
		}
		if avg, ok := hourly[id]; ok && avg != nil {
			c.BidAvg1h = avg.BidAvg5m
			c.AskAvg1h = avg.AskAvg5m
			if c.BidAvg1h == 0 {
				c.BidAvg1h = avg.BidAvg1h
			}
			if c.AskAvg1h == 0 {
				c.AskAvg1h = avg.AskAvg1h
			}
		}
		merged[id] = &c
	}
	m.mu.Lock()
	m.quotes = merged
	m.mu.Unlock()
}

// Rebuild recomputes every snapshot from the current quotes. Items without
// a catalog entry or with an unusable quote are skipped. Returns the number
// of snapshots produced.
func (m *Market) Rebuild(now time.Time, budget int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()

	next := make(map[int]*models.ItemSnapshot, len(m.quotes))
	opts := pricing.Options{Budget: budget, Now: now}
	for id, q := range m.quotes {
		meta, ok := m.items[id]
		if !ok {
			continue
		}
		volume := m.volumes[id]
		if volume == 0 && q != nil {
			// No volumes feed yet: extrapolate the 5m window to a day.
			volume = (q.BuyVolume5m + q.SellVolume5m) * 288
		}
		if snap, ok := pricing.Build(q, meta, volume, opts); ok {
			next[id] = snap
		}
	}
	m.snapshots = next
	m.updatedAt = now
	return len(next)
}

// Snapshot returns the current snapshot for one item.
func (m *Market) Snapshot(itemID int) (*models.ItemSnapshot, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.snapshots[itemID]
	return s, ok
}

// UpdatedAt is the time of the last snapshot rebuild.
func (m *Market) UpdatedAt() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.updatedAt
}

// SnapshotFilter narrows and orders a snapshot listing.
type SnapshotFilter struct {
	Tier       models.LiquidityTier
	SafeOnly   bool
	ActiveOnly bool
	MinVolume  int64
	MaxBuy     int64  // 0 means no price cap
	Query      string // case-insensitive substring on the item name
	SortBy     string // roi | profit | profitPerHour | volume | spread | name
	Asc        bool
	Limit      int // 0 means all
}

// Snapshots lists current snapshots matching the filter.
func (m *Market) Snapshots(f SnapshotFilter) []*models.ItemSnapshot {
	m.mu.RLock()
	query := strings.ToLower(strings.TrimSpace(f.Query))
	out := make([]*models.ItemSnapshot, 0, len(m.snapshots))
	for _, s := range m.snapshots {
		if f.Tier != "" && s.LiquidityTier != f.Tier {
			continue
		}
		if f.SafeOnly && !s.SafeFlip {
			continue
		}
		if f.ActiveOnly && !s.MarketActive {
			continue
		}
		if f.MinVolume > 0 && s.Volume < f.MinVolume {
			continue
		}
		if f.MaxBuy > 0 && s.SuggestedBuy > f.MaxBuy {
			continue
		}
		if query != "" && !strings.Contains(strings.ToLower(s.Name), query) {
			continue
		}
		out = append(out, s)
	}
	m.mu.RUnlock()

	sortSnapshots(out, f.SortBy, f.Asc)
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out
}

func sortSnapshots(snaps []*models.ItemSnapshot, by string, asc bool) {
	var less func(a, b *models.ItemSnapshot) bool
	switch by {
	case "roi":
		less = func(a, b *models.ItemSnapshot) bool { return a.SuggestedROI < b.SuggestedROI }
	case "profit":
		less = func(a, b *models.ItemSnapshot) bool { return a.SuggestedProfit < b.SuggestedProfit }
	case "volume":
		less = func(a, b *models.ItemSnapshot) bool { return a.Volume < b.Volume }
	case "spread":
		less = func(a, b *models.ItemSnapshot) bool { return a.SpreadPercent < b.SpreadPercent }
	case "name":
		less = func(a, b *models.ItemSnapshot) bool { return a.Name < b.Name }
	default: // profitPerHour
		less = func(a, b *models.ItemSnapshot) bool { return a.EstimatedProfitPerHr < b.EstimatedProfitPerHr }
	}
	sort.SliceStable(snaps, func(i, j int) bool {
		if asc {
			return less(snaps[i], snaps[j])
		}
		return less(snaps[j], snaps[i])
	})
}
