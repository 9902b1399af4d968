package usecase

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"FlipSight/internal/domain/models"
	drepo "FlipSight/internal/domain/repository"
	"FlipSight/internal/services/tax"
	"FlipSight/pkg/cache"
	"FlipSight/pkg/logger"
)

// LedgerKey is the persistence collection for flip records.
const LedgerKey = "flips"

var ErrFlipNotFound = errors.New("flip not found")

// Ledger is the single-writer store of flip records. All mutations are
// serialized, written through to the KV store, and announced to
// subscribers after commit. Persistence failures are logged and ignored:
// memory stays the source of truth for the session.
type Ledger struct {
	mu      sync.Mutex
	records []*models.FlipRecord // newest first
	lastID  int64

	store   cache.Service
	log     *logger.Logger
	metrics drepo.Metrics
	now     func() time.Time

	subMu sync.Mutex
	subs  []func([]*models.FlipRecord)
}

// NewLedger creates an empty ledger backed by the given KV store.
func NewLedger(store cache.Service, log *logger.Logger, metrics drepo.Metrics) *Ledger {
	return &Ledger{
		store:   store,
		log:     log,
		metrics: metrics,
		now:     time.Now,
	}
}

// Load reconciles the persisted ledger into memory. The persisted version
// wins only when it has more records, or the same count but a newer record
// id; an empty blob never replaces non-empty state.
func (l *Ledger) Load(ctx context.Context) error {
	var persisted []*models.FlipRecord
	if err := l.store.Get(ctx, LedgerKey, &persisted); err != nil {
		if errors.Is(err, cache.ErrCacheMiss) {
			return nil
		}
		return fmt.Errorf("load ledger: %w", err)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if len(persisted) == 0 && len(l.records) > 0 {
		return nil
	}
	if len(persisted) > len(l.records) ||
		(len(persisted) == len(l.records) && maxRecordID(persisted) > maxRecordID(l.records)) {
		l.records = persisted
		if id := maxRecordID(persisted); id > l.lastID {
			l.lastID = id
		}
	}
	return nil
}

// OpenFlip describes a new position. SellPrice closes it immediately when
// set (manual entry of an already-finished flip).
type OpenFlip struct {
	ItemID     int
	ItemName   string
	BuyPrice   int64
	Qty        int64
	TargetBuy  int64
	TargetSell int64
	SellPrice  int64 // per item, 0 means still open
	SellIsNet  bool
}

// Open appends a new flip record.
func (l *Ledger) Open(ctx context.Context, in OpenFlip) (*models.FlipRecord, error) {
	if in.ItemName == "" {
		return nil, fmt.Errorf("open flip: item name is required")
	}
	if in.BuyPrice <= 0 {
		return nil, fmt.Errorf("open flip: buy price must be positive, got %d", in.BuyPrice)
	}
	if in.Qty <= 0 {
		return nil, fmt.Errorf("open flip: quantity must be positive, got %d", in.Qty)
	}

	l.mu.Lock()
	now := l.now()
	rec := &models.FlipRecord{
		ID:         l.nextID(now),
		ItemID:     in.ItemID,
		ItemName:   in.ItemName,
		Qty:        in.Qty,
		BuyPrice:   in.BuyPrice,
		TargetBuy:  in.TargetBuy,
		TargetSell: in.TargetSell,
		Status:     models.FlipPending,
		Date:       now,
	}

	if in.SellPrice > 0 {
		applySale(rec, in.SellPrice, in.Qty, in.SellIsNet)
	}
	if in.TargetSell > 0 {
		rec.ExpectedProfit = expectedProfit(in.TargetSell, in.BuyPrice, in.Qty)
	} else if rec.ActualProfit != nil {
		rec.ExpectedProfit = *rec.ActualProfit
	}

	l.records = append([]*models.FlipRecord{rec}, l.records...)
	out := rec.Clone()
	l.persistLocked(ctx)
	l.mu.Unlock()

	l.metrics.RecordLedgerOp("open")
	l.notify()
	return out, nil
}

// Sell closes a flip, fully or partially. qty 0 means the whole position.
// A partial sale splits the record: the sold quantity becomes a new
// complete record referencing the parent, and the parent stays pending
// with the remainder.
func (l *Ledger) Sell(ctx context.Context, id int64, sellPrice int64, qty int64, isNet bool) (*models.FlipRecord, error) {
	if sellPrice <= 0 {
		return nil, fmt.Errorf("sell flip %d: sell price must be positive, got %d", id, sellPrice)
	}

	l.mu.Lock()
	idx := l.indexOf(id)
	if idx < 0 {
		l.mu.Unlock()
		return nil, fmt.Errorf("sell flip %d: %w", id, ErrFlipNotFound)
	}
	rec := l.records[idx]

	if qty == 0 {
		qty = rec.Qty
	}
	if qty < 0 || qty > rec.Qty {
		l.mu.Unlock()
		return nil, fmt.Errorf("sell flip %d: quantity %d exceeds held %d", id, qty, rec.Qty)
	}

	var out *models.FlipRecord
	if qty == rec.Qty {
		applySale(rec, sellPrice, qty, isNet)
		if rec.TargetSell > 0 {
			rec.ExpectedProfit = expectedProfit(rec.TargetSell, rec.BuyPrice, qty)
		}
		out = rec.Clone()
	} else {
		out = l.splitLocked(idx, qty, sellPrice, isNet)
	}

	l.persistLocked(ctx)
	l.mu.Unlock()

	l.metrics.RecordLedgerOp("sell")
	l.notify()
	return out, nil
}

// splitLocked carves qty out of records[idx] as a completed child record.
// Caller holds the lock and has validated 0 < qty < parent.Qty.
func (l *Ledger) splitLocked(idx int, qty, sellPrice int64, isNet bool) *models.FlipRecord {
	parent := l.records[idx]
	now := l.now()

	child := parent.Clone()
	child.ID = l.nextID(now)
	child.Qty = qty
	child.SplitFrom = parent.ID
	child.Date = now
	applySale(child, sellPrice, qty, isNet)

	// Expected profit of the sold part comes from the parent's target, or
	// the realized gross when the flip had no target.
	target := parent.TargetSell
	if target <= 0 && child.SellGross != nil {
		target = *child.SellGross / qty
	}
	child.ExpectedProfit = expectedProfit(target, parent.BuyPrice, qty)

	parent.Qty -= qty
	parent.SellGross = nil
	parent.SellNet = nil
	parent.ActualProfit = nil
	parent.Tax = 0
	parent.Status = models.FlipPending
	parent.ExpectedProfit = expectedProfit(parent.TargetSell, parent.BuyPrice, parent.Qty)

	// Child sits just above its parent so the pair reads together.
	l.records = append(l.records, nil)
	copy(l.records[idx+1:], l.records[idx:])
	l.records[idx] = child

	return child.Clone()
}

// EditFlip mutates fields of an existing record. Nil pointers leave the
// field alone. Setting SellPrice to a non-positive value clears the sale
// and reverts the record to pending.
type EditFlip struct {
	ItemName   *string
	BuyPrice   *int64
	SellPrice  *int64 // per item
	Qty        *int64
	TargetSell *int64
	SellIsNet  bool
}

// Edit applies updates and recomputes every derived field.
func (l *Ledger) Edit(ctx context.Context, id int64, in EditFlip) (*models.FlipRecord, error) {
	if in.BuyPrice != nil && *in.BuyPrice <= 0 {
		return nil, fmt.Errorf("edit flip %d: buy price must be positive, got %d", id, *in.BuyPrice)
	}
	if in.Qty != nil && *in.Qty <= 0 {
		return nil, fmt.Errorf("edit flip %d: quantity must be positive, got %d", id, *in.Qty)
	}

	l.mu.Lock()
	idx := l.indexOf(id)
	if idx < 0 {
		l.mu.Unlock()
		return nil, fmt.Errorf("edit flip %d: %w", id, ErrFlipNotFound)
	}
	rec := l.records[idx]

	if in.ItemName != nil && *in.ItemName != "" {
		rec.ItemName = *in.ItemName
	}
	if in.BuyPrice != nil {
		rec.BuyPrice = *in.BuyPrice
	}
	oldQty := rec.Qty
	if in.Qty != nil {
		rec.Qty = *in.Qty
	}
	if in.TargetSell != nil {
		rec.TargetSell = *in.TargetSell
	}

	recalc := in.BuyPrice != nil || in.Qty != nil || in.SellPrice != nil || in.TargetSell != nil
	if recalc {
		if rec.TargetSell > 0 {
			rec.ExpectedProfit = expectedProfit(rec.TargetSell, rec.BuyPrice, rec.Qty)
		} else {
			rec.ExpectedProfit = 0
		}

		switch {
		case in.SellPrice != nil && *in.SellPrice > 0:
			applySale(rec, *in.SellPrice, rec.Qty, in.SellIsNet)
			if rec.TargetSell <= 0 {
				rec.ExpectedProfit = *rec.ActualProfit
			}
		case in.SellPrice != nil:
			// Explicitly cleared: back to pending.
			clearSale(rec)
		case rec.SellNet != nil && oldQty > 0:
			// Sale untouched: rescale the stored totals to the new
			// quantity from the preserved per-item prices.
			netPer := *rec.SellNet / oldQty
			grossPer := *rec.SellGross / oldQty
			applyNormalizedSale(rec, grossPer, netPer, rec.Qty)
			if rec.TargetSell <= 0 {
				rec.ExpectedProfit = *rec.ActualProfit
			}
		}
	}

	out := rec.Clone()
	l.persistLocked(ctx)
	l.mu.Unlock()

	l.metrics.RecordLedgerOp("edit")
	l.notify()
	return out, nil
}

// Delete removes a record. Deleting a split child restores its parent's
// quantity and expected profit; a child whose parent is gone is removed
// with no side effects, and deleting a parent clears the dangling
// references of its children.
func (l *Ledger) Delete(ctx context.Context, id int64) error {
	l.mu.Lock()
	idx := l.indexOf(id)
	if idx < 0 {
		l.mu.Unlock()
		return fmt.Errorf("delete flip %d: %w", id, ErrFlipNotFound)
	}
	rec := l.records[idx]

	if rec.SplitFrom != 0 {
		if pidx := l.indexOf(rec.SplitFrom); pidx >= 0 {
			parent := l.records[pidx]
			parent.Qty += rec.Qty
			parent.ExpectedProfit = expectedProfit(parent.TargetSell, parent.BuyPrice, parent.Qty)
		}
	} else {
		for _, r := range l.records {
			if r.SplitFrom == id {
				r.SplitFrom = 0
			}
		}
	}

	l.records = append(l.records[:idx], l.records[idx+1:]...)
	l.persistLocked(ctx)
	l.mu.Unlock()

	l.metrics.RecordLedgerOp("delete")
	l.notify()
	return nil
}

// Records returns a copy of the ledger, newest first.
func (l *Ledger) Records() []*models.FlipRecord {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.cloneLocked()
}

// Get returns one record by id.
func (l *Ledger) Get(id int64) (*models.FlipRecord, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	idx := l.indexOf(id)
	if idx < 0 {
		return nil, fmt.Errorf("flip %d: %w", id, ErrFlipNotFound)
	}
	return l.records[idx].Clone(), nil
}

// Stats aggregates the whole ledger. Manual entries (no target sell)
// contribute their actual profit to the expected total so they do not skew
// the comparison.
func (l *Ledger) Stats() models.FlipStats {
	l.mu.Lock()
	defer l.mu.Unlock()

	var st models.FlipStats
	var wins int
	for _, r := range l.records {
		if r.Status != models.FlipComplete {
			st.Pending++
			continue
		}
		st.Completed++
		st.TotalActual += r.ProfitOrZero()
		st.TotalTax += r.Tax
		if r.Manual() {
			st.TotalExpected += r.ProfitOrZero()
		} else {
			st.TotalExpected += r.ExpectedProfit
		}
		if r.ProfitOrZero() > 0 {
			wins++
		}
	}
	if st.Completed > 0 {
		st.WinRate = float64(wins) / float64(st.Completed) * 100
	}
	return st
}

// ItemAnalytics rolls completed flips up per item, ordered by total profit.
func (l *Ledger) ItemAnalytics() []*models.ItemPerformance {
	l.mu.Lock()
	defer l.mu.Unlock()

	byName := make(map[string]*models.ItemPerformance)
	profits := make(map[string][]float64)
	buys := make(map[string][]float64)
	sells := make(map[string][]float64)

	for _, r := range l.records {
		if r.Status != models.FlipComplete {
			continue
		}
		p := byName[r.ItemName]
		if p == nil {
			p = &models.ItemPerformance{ItemName: r.ItemName, ItemID: r.ItemID}
			byName[r.ItemName] = p
		}
		profit := r.ProfitOrZero()
		p.Flips++
		p.TotalProfit += profit
		if r.Manual() {
			p.TotalExpected += profit
		} else {
			p.TotalExpected += r.ExpectedProfit
		}
		p.TotalInvested += r.CostBasis()
		p.TotalQuantity += r.Qty
		if profit > 0 {
			p.Wins++
		} else {
			p.Losses++
		}
		if p.Flips == 1 || profit > p.BestProfit {
			p.BestProfit = profit
		}
		if p.Flips == 1 || profit < p.WorstProfit {
			p.WorstProfit = profit
		}

		profits[r.ItemName] = append(profits[r.ItemName], float64(profit))
		buys[r.ItemName] = append(buys[r.ItemName], float64(r.BuyPrice))
		var sellPer float64
		if r.SellNet != nil && r.Qty > 0 {
			sellPer = float64(*r.SellNet) / float64(r.Qty)
		}
		sells[r.ItemName] = append(sells[r.ItemName], sellPer)
	}

	out := make([]*models.ItemPerformance, 0, len(byName))
	for name, p := range byName {
		p.WinRate = float64(p.Wins) / float64(p.Flips) * 100
		p.AvgProfit = float64(p.TotalProfit) / float64(p.Flips)
		if p.TotalInvested > 0 {
			p.ROI = float64(p.TotalProfit) / float64(p.TotalInvested) * 100
		}
		p.AvgBuyPrice = mean(buys[name])
		p.AvgSellPrice = mean(sells[name])
		p.ProfitStdDev = popStdDev(profits[name], p.AvgProfit)
		switch {
		case p.ProfitStdDev > 0:
			p.Consistency = p.AvgProfit / p.ProfitStdDev
		case p.AvgProfit > 0:
			p.Consistency = 100
		}
		if p.TotalExpected > 0 {
			p.PerformanceVsExpected = float64(p.TotalProfit-p.TotalExpected) / float64(p.TotalExpected) * 100
		}
		out = append(out, p)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].TotalProfit > out[j].TotalProfit })
	return out
}

// Subscribe registers a callback invoked with a snapshot of the ledger
// after every committed mutation.
func (l *Ledger) Subscribe(fn func([]*models.FlipRecord)) {
	l.subMu.Lock()
	l.subs = append(l.subs, fn)
	l.subMu.Unlock()
}

func (l *Ledger) notify() {
	l.subMu.Lock()
	subs := make([]func([]*models.FlipRecord), len(l.subs))
	copy(subs, l.subs)
	l.subMu.Unlock()
	if len(subs) == 0 {
		return
	}

	l.mu.Lock()
	snap := l.cloneLocked()
	l.mu.Unlock()
	for _, fn := range subs {
		fn(snap)
	}
}

func (l *Ledger) cloneLocked() []*models.FlipRecord {
	out := make([]*models.FlipRecord, len(l.records))
	for i, r := range l.records {
		out[i] = r.Clone()
	}
	return out
}

func (l *Ledger) indexOf(id int64) int {
	for i, r := range l.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

// nextID hands out Unix-millisecond ids, monotonicized when two mutations
// land in the same millisecond.
func (l *Ledger) nextID(now time.Time) int64 {
	id := now.UnixMilli()
	if id <= l.lastID {
		id = l.lastID + 1
	}
	l.lastID = id
	return id
}

func (l *Ledger) persistLocked(ctx context.Context) {
	if err := l.store.Set(ctx, LedgerKey, l.records, 0); err != nil {
		l.metrics.RecordError("ledger_persist")
		l.log.Error("persist ledger", logger.Error(err))
	}
}

func maxRecordID(records []*models.FlipRecord) int64 {
	var max int64
	for _, r := range records {
		if r.ID > max {
			max = r.ID
		}
	}
	return max
}

// applySale normalizes a per-item sell price to gross and net via the tax
// tables and completes the record.
func applySale(rec *models.FlipRecord, sellPrice, qty int64, isNet bool) {
	var grossPer, netPer int64
	if isNet {
		netPer = sellPrice
		grossPer = tax.NetToGross(sellPrice)
	} else {
		grossPer = sellPrice
		netPer = tax.Net(sellPrice)
	}
	applyNormalizedSale(rec, grossPer, netPer, qty)
}

func applyNormalizedSale(rec *models.FlipRecord, grossPer, netPer, qty int64) {
	gross := grossPer * qty
	net := netPer * qty
	profit := (netPer - rec.BuyPrice) * qty

	rec.Qty = qty
	rec.SellGross = &gross
	rec.SellNet = &net
	rec.Tax = (grossPer - netPer) * qty
	rec.ActualProfit = &profit
	rec.Status = models.FlipComplete
}

func clearSale(rec *models.FlipRecord) {
	rec.SellGross = nil
	rec.SellNet = nil
	rec.ActualProfit = nil
	rec.Tax = 0
	rec.Status = models.FlipPending
}

// expectedProfit is the tax-adjusted profit of selling qty at target.
// Zero when there is no target.
func expectedProfit(target, buy, qty int64) int64 {
	if target <= 0 {
		return 0
	}
	return (tax.Net(target) - buy) * qty
}

func mean(xs []float64) float64 {
	if len(xs) == 0 {
		return 0
	}
	var sum float64
	for _, x := range xs {
		sum += x
	}
	return sum / float64(len(xs))
}

func popStdDev(xs []float64, mean float64) float64 {
	if len(xs) < 2 {
		return 0
	}
	var ss float64
	for _, x := range xs {
		d := x - mean
		ss += d * d
	}
	return math.Sqrt(ss / float64(len(xs)))
}
