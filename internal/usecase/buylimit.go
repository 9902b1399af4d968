package usecase

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"FlipSight/internal/domain/models"
	drepo "FlipSight/internal/domain/repository"
	"FlipSight/pkg/cache"
	"FlipSight/pkg/logger"
)

// BuyLimitsKey is the persistence collection for buy-limit records.
const BuyLimitsKey = "buy-limits"

// Catalog resolves item metadata for on-demand record creation.
type Catalog interface {
	Item(itemID int) (*models.ItemMeta, bool)
}

// BuyLimitTracker keeps per-item purchase events over the rolling 4-hour
// window. Ledger syncing counts both pending and complete flips: quota is
// consumed when the buy happens, not when the flip closes. Expired events
// are filtered at read time and pruned on write.
type BuyLimitTracker struct {
	mu      sync.Mutex
	records map[int]*models.BuyLimitRecord

	catalog Catalog
	store   cache.Service
	log     *logger.Logger
	metrics drepo.Metrics
	now     func() time.Time
}

// NewBuyLimitTracker creates an empty tracker.
func NewBuyLimitTracker(catalog Catalog, store cache.Service, log *logger.Logger, metrics drepo.Metrics) *BuyLimitTracker {
	return &BuyLimitTracker{
		records: make(map[int]*models.BuyLimitRecord),
		catalog: catalog,
		store:   store,
		log:     log,
		metrics: metrics,
		now:     time.Now,
	}
}

// Load restores persisted records, dropping events that expired while the
// service was down.
func (t *BuyLimitTracker) Load(ctx context.Context) error {
	var persisted map[int]*models.BuyLimitRecord
	if err := t.store.Get(ctx, BuyLimitsKey, &persisted); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil
		}
		return fmt.Errorf("load buy limits: %w", err)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	now := t.now()
	for id, rec := range persisted {
		if rec == nil {
			continue
		}
		rec.Purchases = pruneExpired(rec.Purchases, now)
		t.records[id] = rec
	}
	return nil
}

// SyncFromLedger rebuilds purchase events from the flip log. Every pending
// or complete flip opened inside the window counts its full quantity.
func (t *BuyLimitTracker) SyncFromLedger(ctx context.Context, flips []*models.FlipRecord) {
	t.mu.Lock()
	now := t.now()

	byItem := make(map[int][]models.LimitPurchase)
	for _, f := range flips {
		if f.ItemID == 0 || f.BuyPrice <= 0 {
			continue
		}
		if f.Status != models.FlipPending && f.Status != models.FlipComplete {
			continue
		}
		p := models.LimitPurchase{At: f.Date, Qty: f.Qty}
		if p.Expired(now) {
			continue
		}
		byItem[f.ItemID] = append(byItem[f.ItemID], p)
	}

	for itemID, purchases := range byItem {
		rec := t.records[itemID]
		if rec == nil {
			meta, ok := t.lookup(itemID)
			if !ok {
				continue
			}
			rec = &models.BuyLimitRecord{ItemID: itemID, ItemName: meta.Name, BuyLimit: meta.BuyLimit}
			t.records[itemID] = rec
		}
		rec.Purchases = purchases
	}
	// Items with no flips in the window still get their stale events pruned.
	for itemID, rec := range t.records {
		if _, ok := byItem[itemID]; !ok {
			rec.Purchases = pruneExpired(rec.Purchases, now)
		}
	}

	t.persistLocked(ctx)
	t.mu.Unlock()
}

// Adjust appends a manual correction at now. Negative quantities free up
// quota the same way a purchase consumes it.
func (t *BuyLimitTracker) Adjust(ctx context.Context, itemID int, qty int64) (*models.LimitStatus, error) {
	if qty == 0 {
		return nil, fmt.Errorf("adjust limit %d: quantity must be non-zero", itemID)
	}

	t.mu.Lock()
	now := t.now()
	rec := t.ensureLocked(itemID)
	rec.Purchases = pruneExpired(rec.Purchases, now)
	rec.Purchases = append(rec.Purchases, models.LimitPurchase{At: now, Qty: qty})
	st := statusOf(rec, now)
	t.persistLocked(ctx)
	t.mu.Unlock()

	t.metrics.RecordLedgerOp("limit_adjust")
	return st, nil
}

// Status reports the remaining quota for one item, creating the record on
// demand from the catalog.
func (t *BuyLimitTracker) Status(itemID int) (*models.LimitStatus, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	rec := t.records[itemID]
	if rec == nil {
		meta, ok := t.lookup(itemID)
		if !ok {
			return nil, false
		}
		rec = &models.BuyLimitRecord{ItemID: itemID, ItemName: meta.Name, BuyLimit: meta.BuyLimit}
		t.records[itemID] = rec
	}
	return statusOf(rec, t.now()), true
}

// All lists every tracked item with quota remaining, most headroom first.
func (t *BuyLimitTracker) All() []*models.LimitStatus {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now()
	out := make([]*models.LimitStatus, 0, len(t.records))
	for _, rec := range t.records {
		st := statusOf(rec, now)
		if st.Remaining > 0 {
			out = append(out, st)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Remaining > out[j].Remaining })
	return out
}

// Records returns a copy of the raw tracked records.
func (t *BuyLimitTracker) Records() []*models.BuyLimitRecord {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]*models.BuyLimitRecord, 0, len(t.records))
	for _, rec := range t.records {
		cp := *rec
		cp.Purchases = append([]models.LimitPurchase(nil), rec.Purchases...)
		out = append(out, &cp)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ItemID < out[j].ItemID })
	return out
}

func (t *BuyLimitTracker) ensureLocked(itemID int) *models.BuyLimitRecord {
	if rec := t.records[itemID]; rec != nil {
		return rec
	}
	rec := &models.BuyLimitRecord{ItemID: itemID}
	if meta, ok := t.lookup(itemID); ok {
		rec.ItemName = meta.Name
		rec.BuyLimit = meta.BuyLimit
	}
	t.records[itemID] = rec
	return rec
}

func (t *BuyLimitTracker) lookup(itemID int) (*models.ItemMeta, bool) {
	if t.catalog == nil {
		return nil, false
	}
	return t.catalog.Item(itemID)
}

func (t *BuyLimitTracker) persistLocked(ctx context.Context) {
	if err := t.store.Set(ctx, BuyLimitsKey, t.records, 0); err != nil {
		t.metrics.RecordError("buylimit_persist")
		t.log.Error("persist buy limits", logger.Error(err))
	}
}

func statusOf(rec *models.BuyLimitRecord, now time.Time) *models.LimitStatus {
	return &models.LimitStatus{
		ItemID:    rec.ItemID,
		Limit:     rec.BuyLimit,
		Used:      rec.Used(now),
		Remaining: rec.Remaining(now),
		ResetAt:   rec.ResetAt(now),
	}
}

func pruneExpired(purchases []models.LimitPurchase, now time.Time) []models.LimitPurchase {
	kept := purchases[:0:0]
	for _, p := range purchases {
		if !p.Expired(now) {
			kept = append(kept, p)
		}
	}
	return kept
}
