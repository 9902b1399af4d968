package models

import "time"

// DailyBar is one day of aggregated quote history for an item. AvgHigh and
// AvgLow are the day's mean averaged ask/bid; Count is the number of ticks
// the aggregate was built from.
type DailyBar struct {
	ItemID  int       `json:"itemId"`
	Date    time.Time `json:"date"`
	High    int64     `json:"high"`
	Low     int64     `json:"low"`
	AvgHigh float64   `json:"avgHigh"`
	AvgLow  float64   `json:"avgLow"`
	Count   int64     `json:"count"`
}

// SpreadPct is the day's high/low spread relative to the low, in percent.
// Returns 0 when either side is missing.
func (b DailyBar) SpreadPct() float64 {
	if b.AvgHigh <= 0 || b.AvgLow <= 0 {
		return 0
	}
	return (b.AvgHigh - b.AvgLow) / b.AvgLow * 100
}

type VolatilityStatus string

const (
	VolLow     VolatilityStatus = "low"
	VolMedium  VolatilityStatus = "medium"
	VolHigh    VolatilityStatus = "high"
	VolExtreme VolatilityStatus = "extreme"
	VolUnknown VolatilityStatus = "unknown"
)

type SpreadStability string

const (
	SpreadStable   SpreadStability = "stable"
	SpreadVariable SpreadStability = "variable"
	SpreadUnstable SpreadStability = "unstable"
	SpreadUnknown  SpreadStability = "unknown"
)

type Trend string

const (
	TrendUp     Trend = "up"
	TrendDown   Trend = "down"
	TrendStable Trend = "stable"
)

// VolatilityProfile summarizes a rolling window of daily bars for one item.
// VolatilityPercent is the max coefficient of variation of daily averaged
// highs and lows after outlier removal.
type VolatilityProfile struct {
	ItemID            int              `json:"itemId"`
	VolatilityPercent float64          `json:"volatilityPercent"`
	VolatilityStatus  VolatilityStatus `json:"volatilityStatus"`
	SpreadStability   SpreadStability  `json:"spreadStability"`
	Trend             Trend            `json:"trend"`
	DataPoints        int              `json:"dataPoints"`
	OutlierCount      int              `json:"outlierCount"`
	// RecommendedInterval is the refresh cadence suited to this volatility.
	RecommendedInterval time.Duration `json:"recommendedInterval"`
}

// Known reports whether the profile carries a usable volatility estimate.
func (p *VolatilityProfile) Known() bool {
	return p != nil && p.VolatilityStatus != VolUnknown && p.VolatilityStatus != ""
}
