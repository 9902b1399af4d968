package pricing

import (
	"math"
	"time"

	"FlipSight/internal/domain/models"
	"FlipSight/internal/services/tax"
)

// Options tunes the capacity estimates of a build. The zero value is valid.
type Options struct {
	// Budget caps recommended quantity by affordability and a 30%
	// diversification share. 0 means no budget constraint.
	Budget int64
	// Now anchors staleness; zero means time.Now().
	Now time.Time
}

// tier thresholds, inward step bases and safety floors per liquidity tier.
var (
	baseInwardPct = map[models.LiquidityTier]float64{
		models.TierFast:      0.08,
		models.TierLiquid:    0.12,
		models.TierMedium:    0.18,
		models.TierHighValue: 0.20,
		models.TierSlow:      0.25,
	}
	stalenessThresholdMin = map[models.LiquidityTier]float64{
		models.TierFast:      15,
		models.TierLiquid:    20,
		models.TierMedium:    30,
		models.TierHighValue: 45,
		models.TierSlow:      45,
	}
	minROIRequired = map[models.LiquidityTier]float64{
		models.TierFast:      2.6,
		models.TierLiquid:    3.2,
		models.TierHighValue: 2.8,
		models.TierMedium:    4.0,
		models.TierSlow:      5.0,
	}
)

// Build derives a trading snapshot from one quote, its catalog metadata and
// the item's daily volume. Quotes with a missing or crossed bid/ask produce
// no snapshot; that is exclusion, not an error.
func Build(q *models.Quote, meta *models.ItemMeta, dailyVolume int64, opts Options) (*models.ItemSnapshot, bool) {
	if !q.Valid() || meta == nil {
		return nil, false
	}

	bidInstant := q.BidInstant
	askInstant := q.AskInstant

	// Prefer the 5m averages when present; they are less outlier-prone
	// than the last instant trades.
	bid := bidInstant
	if q.BidAvg5m > 0 {
		bid = q.BidAvg5m
	}
	ask := askInstant
	if q.AskAvg5m > 0 {
		ask = q.AskAvg5m
	}
	if ask <= bid {
		return nil, false
	}

	volume := dailyVolume
	buyLimit := meta.BuyLimit

	spread := askInstant - bidInstant
	spreadPct := float64(spread) / float64(bidInstant) * 100
	avgSpread := ask - bid
	avgSpreadPct := float64(avgSpread) / float64(bid) * 100

	fiveMinVolume := q.BuyVolume5m + q.SellVolume5m
	var pressure float64
	if fiveMinVolume > 0 {
		pressure = float64(q.BuyVolume5m-q.SellVolume5m) / float64(fiveMinVolume)
	}
	pressureAbs := math.Abs(pressure)

	var microTrendPct float64
	if q.AskAvg1h > 0 {
		microTrendPct = float64(ask-q.AskAvg1h) / float64(q.AskAvg1h) * 100
	}

	// Baseline economics at the instant prices.
	instTax := tax.Tax(askInstant)
	netProfit := askInstant - instTax - bidInstant
	roi := float64(netProfit) / float64(bidInstant) * 100

	tier := classifyTier(volume, buyLimit, bid)

	inwardPct := baseInwardPct[tier]
	switch {
	case pressureAbs >= 0.50:
		inwardPct += 0.05
	case pressureAbs >= 0.25:
		inwardPct += 0.03
	}
	switch {
	case fiveMinVolume > 0 && fiveMinVolume < 10:
		inwardPct += 0.04
	case fiveMinVolume == 0 && volume < 1_000:
		inwardPct += 0.05
	}
	inwardPct = clamp(inwardPct, 0.05, 0.35)

	suggestedBuy, suggestedSell := bid, ask
	if avgSpread >= 3 {
		step := int64(math.Round(float64(avgSpread) * inwardPct))
		suggestedBuy = bid + step
		suggestedSell = ask - step
		if suggestedBuy >= suggestedSell {
			suggestedBuy = bid + 1
			suggestedSell = ask - 1
		}
		if suggestedBuy >= suggestedSell {
			suggestedBuy = bid
			suggestedSell = ask
		}
	}
	// Never let the suggestion cross the averaged book.
	suggestedBuy = min64(suggestedBuy, ask-1)
	suggestedSell = max64(suggestedSell, suggestedBuy+1)

	sTax := tax.Tax(suggestedSell)
	suggestedProfit := suggestedSell - sTax - suggestedBuy
	suggestedROI := float64(suggestedProfit) / float64(suggestedBuy) * 100

	slippageBuffer := max64(10, int64(float64(suggestedBuy)*0.001))
	edgeProfit := suggestedProfit - slippageBuffer

	now := opts.Now
	if now.IsZero() {
		now = time.Now()
	}
	staleness := stalenessMinutes(q, now)

	marketActive := fiveMinVolume >= 10
	if !marketActive {
		if bid < 100_000 {
			marketActive = volume > 5_000
		} else {
			marketActive = volume > 30
		}
	}

	var avgHighDevPct, avgLowDevPct float64
	if q.AskAvg5m > 0 {
		avgHighDevPct = math.Abs(float64(askInstant-q.AskAvg5m)) / float64(q.AskAvg5m) * 100
	}
	if q.BidAvg5m > 0 {
		avgLowDevPct = math.Abs(float64(bidInstant-q.BidAvg5m)) / float64(q.BidAvg5m) * 100
	}
	avgDeviationPct := math.Max(avgHighDevPct, avgLowDevPct)

	manipulated := spreadPct > 50 ||
		(spreadPct > 25 && volume < 1_000) ||
		(pressureAbs >= 0.80 && fiveMinVolume < 50) ||
		(avgDeviationPct > 6 && volume < 2_000 && fiveMinVolume < 50) ||
		(volume < 10 && spread > 25) ||
		(volume == 0 && spread > 10)

	freshness := models.Stale
	if staleness >= 0 && staleness <= stalenessThresholdMin[tier] {
		freshness = models.Fresh
	}

	spreadCap := 15.0
	if tier == models.TierSlow {
		spreadCap = 25.0
	}
	safeFlip := marketActive &&
		!manipulated &&
		freshness == models.Fresh &&
		suggestedProfit > 0 &&
		edgeProfit > 0 &&
		suggestedROI >= minROIRequired[tier] &&
		avgSpreadPct < spreadCap

	marginHealth := models.MarginRisky
	switch {
	case suggestedROI >= 5:
		marginHealth = models.MarginHealthy
	case suggestedROI >= 3:
		marginHealth = models.MarginThin
	}

	pressureStatus := models.PressureBalanced
	switch {
	case pressureAbs >= 0.50:
		pressureStatus = models.PressureOneSided
	case pressureAbs >= 0.25:
		pressureStatus = models.PressureTilted
	}

	recommendedQty := recommendQty(volume, buyLimit, suggestedBuy, opts.Budget)
	estTotalCost := recommendedQty * suggestedBuy
	estTotalProfit := recommendedQty * suggestedProfit

	var roundTripMin, profitPerHour float64
	if volume > 0 {
		roundTripMin = math.Max(5, float64(recommendedQty*5760)/float64(volume))
		profitPerHour = float64(estTotalProfit) / (roundTripMin / 60)
	}

	return &models.ItemSnapshot{
		ItemID:   meta.ID,
		Name:     meta.Name,
		Icon:     meta.Icon,
		BuyLimit: buyLimit,

		BidInstant: bidInstant,
		AskInstant: askInstant,
		BidAvg:     bid,
		AskAvg:     ask,

		Spread:           spread,
		SpreadPercent:    spreadPct,
		AvgSpread:        avgSpread,
		AvgSpreadPercent: avgSpreadPct,

		Volume:        volume,
		HighVolume:    volume >= 20_000,
		VeryHighVol:   volume >= 100_000,
		FiveMinVolume: fiveMinVolume,

		Tax:       instTax,
		NetProfit: netProfit,
		ROI:       roi,

		SuggestedBuy:    suggestedBuy,
		SuggestedSell:   suggestedSell,
		SuggestedTax:    sTax,
		SuggestedProfit: suggestedProfit,
		SuggestedROI:    suggestedROI,
		SlippageBuffer:  slippageBuffer,
		EdgeProfit:      edgeProfit,

		Pressure:       pressure,
		PressureStatus: pressureStatus,
		MicroTrendPct:  microTrendPct,

		LiquidityTier:    tier,
		SafeFlip:         safeFlip,
		Manipulated:      manipulated,
		MarketActive:     marketActive,
		Freshness:        freshness,
		StalenessMinutes: staleness,
		MarginHealth:     marginHealth,

		RecommendedQty:       recommendedQty,
		EstimatedTotalCost:   estTotalCost,
		EstimatedTotalProfit: estTotalProfit,
		RoundTripMinutes:     roundTripMin,
		EstimatedProfitPerHr: profitPerHour,
	}, true
}

func classifyTier(volume, buyLimit, bid int64) models.LiquidityTier {
	switch {
	case buyLimit > 0 && buyLimit < 100 && bid >= 1_000_000 && volume >= 20:
		return models.TierHighValue
	case volume >= 50_000 && buyLimit >= 1_000:
		return models.TierFast
	case volume >= 10_000 && buyLimit >= 100:
		return models.TierLiquid
	case volume >= 2_000:
		return models.TierMedium
	default:
		return models.TierSlow
	}
}

// stalenessMinutes is the age of the older side of the book, -1 when the
// quote carries no timestamps (treated as stale).
func stalenessMinutes(q *models.Quote, now time.Time) float64 {
	var oldest int64
	switch {
	case q.AskTime > 0 && q.BidTime > 0:
		oldest = min64(q.AskTime, q.BidTime)
	case q.AskTime > 0:
		oldest = q.AskTime
	case q.BidTime > 0:
		oldest = q.BidTime
	default:
		return -1
	}
	return now.Sub(time.Unix(oldest, 0)).Minutes()
}

// recommendQty bounds quantity by the buy limit, ~1% of daily volume, and
// optionally a budget with a 30% diversification share. At least 1.
func recommendQty(volume, buyLimit, suggestedBuy, budget int64) int64 {
	var marketCap int64
	if volume > 0 {
		marketCap = max64(1, volume/100)
	} else if buyLimit > 0 {
		marketCap = buyLimit
	} else {
		marketCap = 1
	}

	qty := marketCap
	if buyLimit > 0 {
		qty = min64(buyLimit, marketCap)
	}
	if budget > 0 && suggestedBuy > 0 {
		affordable := budget / suggestedBuy
		diversify := int64(float64(budget) * 0.3 / float64(suggestedBuy))
		qty = min64(qty, min64(affordable, diversify))
	}
	return max64(1, qty)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func min64(a, b int64) int64 {
	if a < b {
		return a
	}
	return b
}

func max64(a, b int64) int64 {
	if a > b {
		return a
	}
	return b
}
