package volatility

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"FlipSight/internal/domain/models"
)

// Classification thresholds, in coefficient-of-variation percent.
const (
	lowBelow    = 2
	mediumBelow = 5
	highBelow   = 10

	spreadStableBelow   = 25
	spreadVariableBelow = 50
)

// Refresh cadences suited to each volatility class.
var recommendedInterval = map[models.VolatilityStatus]time.Duration{
	models.VolExtreme: 30 * time.Second,
	models.VolHigh:    time.Minute,
	models.VolMedium:  2 * time.Minute,
	models.VolLow:     5 * time.Minute,
	models.VolUnknown: 5 * time.Minute,
}

// Analyze profiles one item's daily bars. Fewer than 2 usable days yields an
// unknown profile; callers treat unknown as "no history" when scoring.
func Analyze(itemID int, bars []models.DailyBar) *models.VolatilityProfile {
	p := &models.VolatilityProfile{
		ItemID:              itemID,
		VolatilityStatus:    models.VolUnknown,
		SpreadStability:     models.SpreadUnknown,
		Trend:               Trend(bars),
		DataPoints:          len(bars),
		RecommendedInterval: recommendedInterval[models.VolUnknown],
	}
	if len(bars) < 2 {
		p.DataPoints = 0
		return p
	}

	highs := make([]float64, 0, len(bars))
	lows := make([]float64, 0, len(bars))
	for _, b := range bars {
		if b.AvgHigh > 0 {
			highs = append(highs, b.AvgHigh)
		}
		if b.AvgLow > 0 {
			lows = append(lows, b.AvgLow)
		}
	}
	if len(highs) < 2 || len(lows) < 2 {
		return p
	}

	highCV, highOutliers := cvWithOutliers(highs)
	lowCV, lowOutliers := cvWithOutliers(lows)
	p.VolatilityPercent = math.Max(highCV, lowCV)
	p.OutlierCount = highOutliers + lowOutliers

	switch {
	case p.VolatilityPercent < lowBelow:
		p.VolatilityStatus = models.VolLow
	case p.VolatilityPercent < mediumBelow:
		p.VolatilityStatus = models.VolMedium
	case p.VolatilityPercent < highBelow:
		p.VolatilityStatus = models.VolHigh
	default:
		p.VolatilityStatus = models.VolExtreme
	}
	p.RecommendedInterval = recommendedInterval[p.VolatilityStatus]

	p.SpreadStability = spreadStability(bars)
	return p
}

// spreadStability classifies the consistency of the daily high/low spread.
func spreadStability(bars []models.DailyBar) models.SpreadStability {
	spreads := make([]float64, 0, len(bars))
	for _, b := range bars {
		if s := b.SpreadPct(); s > 0 {
			spreads = append(spreads, s)
		}
	}
	if len(spreads) < 2 {
		return models.SpreadStable
	}
	cv, _ := cvWithOutliers(spreads)
	switch {
	case cv > spreadVariableBelow:
		return models.SpreadUnstable
	case cv > spreadStableBelow:
		return models.SpreadVariable
	default:
		return models.SpreadStable
	}
}

// Trend compares the mean averaged high of the last 3 days against the mean
// of all earlier days: over +2% is up, under -2% is down. Fewer than 2 days
// on either side reads as stable.
func Trend(bars []models.DailyBar) models.Trend {
	if len(bars) < 2 {
		return models.TrendStable
	}
	split := len(bars) - 3
	if split < 0 {
		split = 0
	}
	older, recent := bars[:split], bars[split:]
	if len(recent) < 2 || len(older) < 2 {
		return models.TrendStable
	}

	recentAvg := stat.Mean(avgHighs(recent), nil)
	olderAvg := stat.Mean(avgHighs(older), nil)
	if olderAvg <= 0 {
		return models.TrendStable
	}

	change := (recentAvg - olderAvg) / olderAvg * 100
	switch {
	case change > 2:
		return models.TrendUp
	case change < -2:
		return models.TrendDown
	default:
		return models.TrendStable
	}
}

func avgHighs(bars []models.DailyBar) []float64 {
	out := make([]float64, len(bars))
	for i, b := range bars {
		out[i] = b.AvgHigh
	}
	return out
}

// cvWithOutliers computes the coefficient of variation in percent after
// dropping points outside the 1.5xIQR fences. Returns the number of points
// dropped; cv is 0 when fewer than 2 points survive.
func cvWithOutliers(values []float64) (cv float64, outliers int) {
	if len(values) < 2 {
		return 0, 0
	}

	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	q1 := sorted[len(sorted)/4]
	q3 := sorted[len(sorted)*3/4]
	iqr := q3 - q1
	lo, hi := q1-1.5*iqr, q3+1.5*iqr

	filtered := values[:0:0]
	for _, v := range values {
		if v >= lo && v <= hi {
			filtered = append(filtered, v)
		}
	}
	outliers = len(values) - len(filtered)
	if len(filtered) < 2 {
		return 0, outliers
	}

	mean := stat.Mean(filtered, nil)
	if mean <= 0 {
		return 0, outliers
	}
	// Population stddev: the window is the whole universe of days under
	// consideration, not a sample from it.
	var ss float64
	for _, v := range filtered {
		d := v - mean
		ss += d * d
	}
	sigma := math.Sqrt(ss / float64(len(filtered)))
	return sigma / mean * 100, outliers
}
