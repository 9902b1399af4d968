package models

import "time"

// LimitWindow is the marketplace's rolling buy-limit window.
const LimitWindow = 4 * time.Hour

// LimitPurchase is one recorded buy counting against an item's limit.
type LimitPurchase struct {
	At  time.Time `json:"timestamp"`
	Qty int64     `json:"quantity"`
}

// Expired reports whether the purchase has rolled out of the window.
func (p LimitPurchase) Expired(now time.Time) bool {
	return now.Sub(p.At) >= LimitWindow
}

// BuyLimitRecord tracks purchases of one item. Purchases older than the
// window are excluded from Used and pruned opportunistically on write.
type BuyLimitRecord struct {
	ItemID    int             `json:"itemId"`
	ItemName  string          `json:"itemName"`
	BuyLimit  int64           `json:"buyLimit"`
	Purchases []LimitPurchase `json:"purchases"`
}

// LimitStatus answers "how much more of this can I buy right now".
type LimitStatus struct {
	ItemID int   `json:"itemId"`
	Limit  int64 `json:"limit"`
	Used   int64 `json:"used"`
	// Remaining is max(0, Limit - Used).
	Remaining int64 `json:"remaining"`
	// ResetAt is when the oldest counted purchase expires; zero when
	// nothing counts against the limit.
	ResetAt time.Time `json:"resetAt,omitzero"`
}

// Used sums the quantities of purchases still inside the window.
func (r *BuyLimitRecord) Used(now time.Time) int64 {
	var used int64
	for _, p := range r.Purchases {
		if !p.Expired(now) {
			used += p.Qty
		}
	}
	return used
}

// Remaining is the quota left right now, never negative.
func (r *BuyLimitRecord) Remaining(now time.Time) int64 {
	rem := r.BuyLimit - r.Used(now)
	if rem < 0 {
		return 0
	}
	return rem
}

// ResetAt is when the oldest in-window purchase expires. Zero when nothing
// counts against the limit.
func (r *BuyLimitRecord) ResetAt(now time.Time) time.Time {
	var oldest time.Time
	for _, p := range r.Purchases {
		if p.Expired(now) {
			continue
		}
		if oldest.IsZero() || p.At.Before(oldest) {
			oldest = p.At
		}
	}
	if oldest.IsZero() {
		return time.Time{}
	}
	return oldest.Add(LimitWindow)
}
