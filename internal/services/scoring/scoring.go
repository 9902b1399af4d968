package scoring

import (
	"math"
	"sort"
	"strings"

	"FlipSight/internal/domain/models"
)

// Weights distributes the six sub-scores. Zero fields fall back to the
// defaults field by field so callers can override just one.
type Weights struct {
	Profitability float64
	ROI           float64
	Liquidity     float64
	Freshness     float64
	Volatility    float64
	MarginHealth  float64
}

var defaultWeights = Weights{
	Profitability: 0.32,
	ROI:           0.15,
	Liquidity:     0.22,
	Freshness:     0.11,
	Volatility:    0.10,
	MarginHealth:  0.10,
}

// Options tunes scoring and ranking. The zero value gives the defaults.
type Options struct {
	Weights Weights
	// ProfitPerHourCeiling is the gp/hr mapped to a 100 profitability
	// sub-score. Default 500k.
	ProfitPerHourCeiling float64
	// ProfitCeiling is the per-item fallback when no throughput estimate
	// exists. Default 10k.
	ProfitCeiling float64
	// ROICeiling is the ROI percent mapped to a 100 ROI sub-score.
	// Default 10.
	ROICeiling float64

	// Ranking filters.
	MinScore          int  // default 30
	MaxResults        int  // default 10
	IncludeStale      bool // default: stale snapshots are dropped
	IncludeExtremeVol bool // default: extreme-volatility items are dropped
}

func (o Options) withDefaults() Options {
	w := &o.Weights
	if w.Profitability == 0 {
		w.Profitability = defaultWeights.Profitability
	}
	if w.ROI == 0 {
		w.ROI = defaultWeights.ROI
	}
	if w.Liquidity == 0 {
		w.Liquidity = defaultWeights.Liquidity
	}
	if w.Freshness == 0 {
		w.Freshness = defaultWeights.Freshness
	}
	if w.Volatility == 0 {
		w.Volatility = defaultWeights.Volatility
	}
	if w.MarginHealth == 0 {
		w.MarginHealth = defaultWeights.MarginHealth
	}
	if o.ProfitPerHourCeiling == 0 {
		o.ProfitPerHourCeiling = 500_000
	}
	if o.ProfitCeiling == 0 {
		o.ProfitCeiling = 10_000
	}
	if o.ROICeiling == 0 {
		o.ROICeiling = 10
	}
	if o.MinScore == 0 {
		o.MinScore = 30
	}
	if o.MaxResults == 0 {
		o.MaxResults = 10
	}
	return o
}

// Score rates one snapshot against its volatility profile (nil or unknown
// profiles read as "no history"). The result is always in [0, 100].
func Score(s *models.ItemSnapshot, vol *models.VolatilityProfile, opts Options) models.SuggestionScore {
	opts = opts.withDefaults()
	w := opts.Weights

	var b models.ScoreBreakdown

	// Profitability: prefer the throughput-aware estimate when we have one.
	if s.EstimatedProfitPerHr > 0 {
		b.Profitability = math.Min(100, s.EstimatedProfitPerHr/opts.ProfitPerHourCeiling*100)
	} else {
		b.Profitability = math.Min(100, float64(s.SuggestedProfit)/opts.ProfitCeiling*100)
	}
	if b.Profitability < 0 {
		b.Profitability = 0
	}

	b.ROI = clamp(s.SuggestedROI/opts.ROICeiling*100, 0, 100)

	// Liquidity: log-scaled volume and buy limit, so low-limit high-value
	// items are not crushed by the tiering.
	volScore := clamp(math.Log10(float64(s.Volume)+1)/5*100, 0, 100)
	limitScore := clamp(math.Log10(float64(s.BuyLimit)+1)/3*100, 0, 100)
	b.Liquidity = volScore*0.7 + limitScore*0.3
	if m := s.RoundTripMinutes; m > 0 {
		switch {
		case m <= 60:
		case m <= 240:
			b.Liquidity *= 0.7
		case m <= 720:
			b.Liquidity *= 0.4
		default:
			b.Liquidity *= 0.2
		}
	}

	switch s.Freshness {
	case models.Fresh:
		b.Freshness = 100
	case models.Stale:
		b.Freshness = 20
	default:
		b.Freshness = 60
	}

	if vol.Known() {
		switch vol.VolatilityStatus {
		case models.VolLow:
			b.Volatility = 100
		case models.VolMedium:
			b.Volatility = 70
		case models.VolHigh:
			b.Volatility = 30
		case models.VolExtreme:
			b.Volatility = 0
		default:
			b.Volatility = 55
		}
		switch vol.SpreadStability {
		case models.SpreadUnstable:
			b.Volatility = math.Max(0, b.Volatility-20)
		case models.SpreadVariable:
			b.Volatility = math.Max(0, b.Volatility-10)
		}
	} else {
		// No history: order-flow pressure is a weak stability proxy.
		switch s.PressureStatus {
		case models.PressureBalanced:
			b.Volatility = 60
		case models.PressureTilted:
			b.Volatility = 45
		default:
			b.Volatility = 35
		}
	}

	switch s.MarginHealth {
	case models.MarginHealthy:
		b.MarginHealth = 100
	case models.MarginThin:
		b.MarginHealth = 55
	case models.MarginRisky:
		b.MarginHealth = 25
	default:
		b.MarginHealth = 50
	}

	total := b.Profitability*w.Profitability +
		b.ROI*w.ROI +
		b.Liquidity*w.Liquidity +
		b.Freshness*w.Freshness +
		b.Volatility*w.Volatility +
		b.MarginHealth*w.MarginHealth

	switch s.PressureStatus {
	case models.PressureOneSided:
		total -= 10
	case models.PressureTilted:
		total -= 5
	}
	if s.Manipulated {
		total -= 20
	}
	total = clamp(total, 0, 100)

	conf := models.ConfidenceLow
	switch {
	case total >= 75:
		conf = models.ConfidenceHigh
	case total >= 50:
		conf = models.ConfidenceMedium
	}
	if s.Freshness == models.Stale || s.Manipulated ||
		(vol != nil && vol.VolatilityStatus == models.VolExtreme) {
		conf = models.ConfidenceLow
	}

	return models.SuggestionScore{
		Score:      int(math.Round(total)),
		Breakdown:  b,
		Confidence: conf,
	}
}

// Eligible is the hard gate applied before an item may be suggested at all.
func Eligible(s *models.ItemSnapshot, vol *models.VolatilityProfile) bool {
	if !s.SafeFlip || s.SuggestedProfit <= 0 {
		return false
	}
	if s.Freshness == models.Stale {
		return false
	}
	if vol != nil && vol.VolatilityStatus == models.VolExtreme {
		return false
	}
	return true
}

// VolatilityFor resolves history for Rank; nil is a valid return.
type VolatilityFor func(itemID int) *models.VolatilityProfile

// Rank scores the snapshots, filters by the option gates and returns the
// top results ordered by descending score.
func Rank(snaps []*models.ItemSnapshot, volFor VolatilityFor, opts Options) []*models.Suggestion {
	opts = opts.withDefaults()

	out := make([]*models.Suggestion, 0, len(snaps))
	for _, s := range snaps {
		var vol *models.VolatilityProfile
		if volFor != nil {
			vol = volFor(s.ItemID)
		}
		sc := Score(s, vol, opts)

		if sc.Score < opts.MinScore {
			continue
		}
		if !opts.IncludeStale && s.Freshness == models.Stale {
			continue
		}
		if !opts.IncludeExtremeVol && vol != nil && vol.VolatilityStatus == models.VolExtreme {
			continue
		}

		out = append(out, &models.Suggestion{
			Snapshot:   s,
			Score:      sc.Score,
			Breakdown:  sc.Breakdown,
			Confidence: sc.Confidence,
			Volatility: vol,
			Reason:     Reason(sc.Breakdown),
		})
	}

	sort.SliceStable(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	if len(out) > opts.MaxResults {
		out = out[:opts.MaxResults]
	}
	return out
}

// Reason renders the top contributing factors as a short human-readable
// phrase for the suggestion list.
func Reason(b models.ScoreBreakdown) string {
	type factor struct {
		score float64
		text  string
	}
	factors := []factor{
		{b.Profitability, "high expected profit"},
		{b.ROI, "excellent ROI"},
		{b.Liquidity, "good liquidity"},
		{b.Freshness, "fresh prices"},
		{b.Volatility, "stable prices"},
	}
	sort.SliceStable(factors, func(i, j int) bool { return factors[i].score > factors[j].score })

	var top []factor
	for _, f := range factors[:2] {
		if f.score >= 70 {
			top = append(top, f)
		}
	}
	switch len(top) {
	case 2:
		return capitalize(top[0].text) + " with " + top[1].text
	case 1:
		return capitalize(top[0].text)
	default:
		return "Good flip opportunity"
	}
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
