package models

// LiquidityTier is a coarse classification driving thresholds throughout the
// engine (inward step, freshness, minimum ROI, spread caps).
type LiquidityTier string

const (
	TierFast      LiquidityTier = "fast"
	TierLiquid    LiquidityTier = "liquid"
	TierMedium    LiquidityTier = "medium"
	TierHighValue LiquidityTier = "highValue"
	TierSlow      LiquidityTier = "slow"
)

type Freshness string

const (
	Fresh Freshness = "fresh"
	Stale Freshness = "stale"
)

type MarginHealth string

const (
	MarginHealthy MarginHealth = "healthy"
	MarginThin    MarginHealth = "thin"
	MarginRisky   MarginHealth = "risky"
)

// PressureStatus classifies 5-minute order flow imbalance.
type PressureStatus string

const (
	PressureBalanced PressureStatus = "balanced"
	PressureTilted   PressureStatus = "tilted"
	PressureOneSided PressureStatus = "one-sided"
)

// ItemSnapshot is the per-item trading view derived from one quote plus item
// metadata. It is recomputed on every refresh and has no identity beyond the
// item id and the quote it came from; it is never persisted.
type ItemSnapshot struct {
	ItemID   int    `json:"id"`
	Name     string `json:"name"`
	Icon     string `json:"icon,omitempty"`
	BuyLimit int64  `json:"buyLimit"`

	// Instant bid/ask, and the averaged (5m-preferred) pair the suggestion
	// model works from.
	BidInstant int64 `json:"buyPrice"`
	AskInstant int64 `json:"sellPrice"`
	BidAvg     int64 `json:"avgBuyPrice"`
	AskAvg     int64 `json:"avgSellPrice"`

	Spread           int64   `json:"spread"`
	SpreadPercent    float64 `json:"spreadPercent"`
	AvgSpread        int64   `json:"avgSpread"`
	AvgSpreadPercent float64 `json:"avgSpreadPercent"`

	Volume        int64 `json:"volume"` // daily
	HighVolume    bool  `json:"isHighVolume"`
	VeryHighVol   bool  `json:"isVeryHighVolume"`
	FiveMinVolume int64 `json:"fiveMinVolume"`

	// Baseline (instant) economics, kept for display.
	Tax       int64   `json:"tax"`
	NetProfit int64   `json:"netProfit"`
	ROI       float64 `json:"roi"`

	// Suggested offer model.
	SuggestedBuy    int64   `json:"suggestedBuy"`
	SuggestedSell   int64   `json:"suggestedSell"`
	SuggestedTax    int64   `json:"suggestedTax"`
	SuggestedProfit int64   `json:"suggestedProfit"`
	SuggestedROI    float64 `json:"suggestedROI"`
	SlippageBuffer  int64   `json:"slippageBuffer"`
	EdgeProfit      int64   `json:"edgeProfit"`

	// Signals.
	Pressure       float64        `json:"pressure"` // [-1, 1]
	PressureStatus PressureStatus `json:"pressureStatus"`
	MicroTrendPct  float64        `json:"microTrendPct"` // 5m avg vs 1h avg; 0 when unknown

	// Risk / tags.
	LiquidityTier    LiquidityTier `json:"liquidityTier"`
	SafeFlip         bool          `json:"isSafeFlip"`
	Manipulated      bool          `json:"isManipulated"`
	MarketActive     bool          `json:"marketIsActive"`
	Freshness        Freshness     `json:"freshnessStatus"`
	StalenessMinutes float64       `json:"stalenessMinutes"`
	MarginHealth     MarginHealth  `json:"marginHealth"`

	// Capacity estimates.
	RecommendedQty        int64   `json:"recommendedQty"`
	EstimatedTotalCost    int64   `json:"estimatedTotalCost"`
	EstimatedTotalProfit  int64   `json:"estimatedTotalProfit"`
	RoundTripMinutes      float64 `json:"estimatedRoundTripMinutes"` // 0 when unknown
	EstimatedProfitPerHr  float64 `json:"estimatedProfitPerHour"`   // 0 when unknown
}
