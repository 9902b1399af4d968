package models

import "time"

type FlipStatus string

const (
	FlipPending  FlipStatus = "pending"
	FlipComplete FlipStatus = "complete"
)

// FlipRecord is one ledger entry. BuyPrice, TargetBuy and TargetSell are per
// item; SellGross, SellNet, Tax, ExpectedProfit and ActualProfit are totals
// for the whole quantity. While the record is pending the sell-side fields
// (SellGross, SellNet, ActualProfit) are nil and Tax is 0.
type FlipRecord struct {
	ID       int64  `json:"id"`
	ItemID   int    `json:"itemId,omitempty"`
	ItemName string `json:"itemName"`
	Qty      int64  `json:"quantity"`
	BuyPrice int64  `json:"buyPrice"`

	SellGross *int64 `json:"sellPriceGross,omitempty"`
	SellNet   *int64 `json:"sellPriceNet,omitempty"`

	// Target prices captured from the snapshot that prompted the flip.
	// Zero means the flip was entered manually without a target.
	TargetBuy  int64 `json:"suggestedBuy,omitempty"`
	TargetSell int64 `json:"suggestedSell,omitempty"`

	ExpectedProfit int64  `json:"expectedProfit"`
	ActualProfit   *int64 `json:"actualProfit,omitempty"`
	Tax            int64  `json:"tax"`

	Status FlipStatus `json:"status"`
	Date   time.Time  `json:"date"`

	// SplitFrom links a partial sale back to its parent record.
	SplitFrom int64 `json:"splitFrom,omitempty"`
}

// CostBasis is the total gp committed to the flip.
func (r *FlipRecord) CostBasis() int64 {
	return r.BuyPrice * r.Qty
}

// Manual reports whether the flip was entered without a target sell price.
// Aggregate views substitute actual profit for expected on manual entries so
// they do not skew the expected totals.
func (r *FlipRecord) Manual() bool {
	return r.TargetSell <= 0
}

// ProfitOrZero returns the actual profit, 0 while pending.
func (r *FlipRecord) ProfitOrZero() int64 {
	if r.ActualProfit == nil {
		return 0
	}
	return *r.ActualProfit
}

// Clone returns a deep copy safe to hand to callers and subscribers.
func (r *FlipRecord) Clone() *FlipRecord {
	cp := *r
	if r.SellGross != nil {
		v := *r.SellGross
		cp.SellGross = &v
	}
	if r.SellNet != nil {
		v := *r.SellNet
		cp.SellNet = &v
	}
	if r.ActualProfit != nil {
		v := *r.ActualProfit
		cp.ActualProfit = &v
	}
	return &cp
}

// FlipStats is the ledger-wide rollup.
type FlipStats struct {
	Completed     int     `json:"completed"`
	Pending       int     `json:"pending"`
	TotalExpected int64   `json:"totalExpected"`
	TotalActual   int64   `json:"totalActual"`
	TotalTax      int64   `json:"totalTax"`
	WinRate       float64 `json:"winRate"`
}

// ItemPerformance is the per-item rollup of completed flips.
type ItemPerformance struct {
	ItemName      string  `json:"name"`
	ItemID        int     `json:"itemId"`
	Flips         int     `json:"flips"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	TotalProfit   int64   `json:"totalProfit"`
	TotalExpected int64   `json:"totalExpected"`
	TotalInvested int64   `json:"totalInvested"`
	TotalQuantity int64   `json:"totalQuantity"`
	WinRate       float64 `json:"winRate"`
	AvgProfit     float64 `json:"avgProfit"`
	ROI           float64 `json:"roi"`
	AvgBuyPrice   float64 `json:"avgBuyPrice"`
	AvgSellPrice  float64 `json:"avgSellPrice"`
	ProfitStdDev  float64 `json:"profitStdDev"`
	// Consistency is avg profit normalized by its stddev; 100 when every
	// flip returned the same positive profit.
	Consistency float64 `json:"consistency"`
	// PerformanceVsExpected is (actual - expected) / expected, in percent.
	PerformanceVsExpected float64 `json:"performanceVsExpected"`
	BestProfit            int64   `json:"bestProfit"`
	WorstProfit           int64   `json:"worstProfit"`
}
