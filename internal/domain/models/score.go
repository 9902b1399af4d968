package models

type Confidence string

const (
	ConfidenceLow    Confidence = "low"
	ConfidenceMedium Confidence = "medium"
	ConfidenceHigh   Confidence = "high"
)

// ScoreBreakdown holds the six weighted sub-scores, each in [0, 100].
type ScoreBreakdown struct {
	Profitability float64 `json:"profitability"`
	ROI           float64 `json:"roi"`
	Liquidity     float64 `json:"liquidity"`
	Freshness     float64 `json:"freshness"`
	Volatility    float64 `json:"volatility"`
	MarginHealth  float64 `json:"marginHealth"`
}

// SuggestionScore is the scored view of one snapshot.
type SuggestionScore struct {
	Score      int            `json:"score"`
	Breakdown  ScoreBreakdown `json:"breakdown"`
	Confidence Confidence     `json:"confidence"`
}

// Suggestion is one entry of the ranked suggestion list.
type Suggestion struct {
	Snapshot   *ItemSnapshot      `json:"item"`
	Score      int                `json:"score"`
	Breakdown  ScoreBreakdown     `json:"breakdown"`
	Confidence Confidence         `json:"confidence"`
	Volatility *VolatilityProfile `json:"volatility,omitempty"`
	Reason     string             `json:"reason"`
}
