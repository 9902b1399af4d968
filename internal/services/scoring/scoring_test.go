package scoring

import (
	"testing"

	"FlipSight/internal/domain/models"
)

func goodSnapshot() *models.ItemSnapshot {
	return &models.ItemSnapshot{
		ItemID:               2,
		Name:                 "Cannonball",
		BuyLimit:             9000,
		Volume:               150_000,
		SuggestedBuy:         180,
		SuggestedSell:        195,
		SuggestedProfit:      12,
		SuggestedROI:         6.6,
		EstimatedProfitPerHr: 400_000,
		RoundTripMinutes:     30,
		Freshness:            models.Fresh,
		PressureStatus:       models.PressureBalanced,
		MarginHealth:         models.MarginHealthy,
		LiquidityTier:        models.TierFast,
		SafeFlip:             true,
	}
}

func lowVol() *models.VolatilityProfile {
	return &models.VolatilityProfile{
		ItemID:           2,
		VolatilityStatus: models.VolLow,
		SpreadStability:  models.SpreadStable,
	}
}

func TestScoreBounds(t *testing.T) {
	snaps := []*models.ItemSnapshot{
		goodSnapshot(),
		{}, // zero values everywhere
		{SuggestedProfit: -500, SuggestedROI: -10, Freshness: models.Stale, Manipulated: true},
	}
	for i, s := range snaps {
		sc := Score(s, nil, Options{})
		if sc.Score < 0 || sc.Score > 100 {
			t.Fatalf("snapshot %d: score %d out of range", i, sc.Score)
		}
	}
}

func TestScoreHighConfidence(t *testing.T) {
	sc := Score(goodSnapshot(), lowVol(), Options{})
	if sc.Score < 75 {
		t.Fatalf("score = %d, want >= 75", sc.Score)
	}
	if sc.Confidence != models.ConfidenceHigh {
		t.Fatalf("confidence = %s, want high", sc.Confidence)
	}
}

func TestScoreStaleForcesLowConfidence(t *testing.T) {
	s := goodSnapshot()
	s.Freshness = models.Stale
	sc := Score(s, lowVol(), Options{})
	if sc.Confidence != models.ConfidenceLow {
		t.Fatalf("confidence = %s, want low on stale data", sc.Confidence)
	}
}

func TestScoreExtremeVolatilityForcesLowConfidence(t *testing.T) {
	vol := lowVol()
	vol.VolatilityStatus = models.VolExtreme
	sc := Score(goodSnapshot(), vol, Options{})
	if sc.Confidence != models.ConfidenceLow {
		t.Fatalf("confidence = %s, want low on extreme volatility", sc.Confidence)
	}
}

func TestScoreManipulationPenalty(t *testing.T) {
	clean := Score(goodSnapshot(), lowVol(), Options{})
	s := goodSnapshot()
	s.Manipulated = true
	flagged := Score(s, lowVol(), Options{})
	if flagged.Score != clean.Score-20 {
		t.Fatalf("manipulated score = %d, want %d", flagged.Score, clean.Score-20)
	}
	if flagged.Confidence != models.ConfidenceLow {
		t.Fatalf("confidence = %s, want low when manipulated", flagged.Confidence)
	}
}

func TestScorePressurePenalty(t *testing.T) {
	base := Score(goodSnapshot(), lowVol(), Options{})

	s := goodSnapshot()
	s.PressureStatus = models.PressureTilted
	tilted := Score(s, lowVol(), Options{})

	s = goodSnapshot()
	s.PressureStatus = models.PressureOneSided
	oneSided := Score(s, lowVol(), Options{})

	if tilted.Score >= base.Score || oneSided.Score >= tilted.Score {
		t.Fatalf("scores %d/%d/%d, want strictly decreasing with pressure",
			base.Score, tilted.Score, oneSided.Score)
	}
}

func TestScoreNoHistoryUsesPressureProxy(t *testing.T) {
	sc := Score(goodSnapshot(), nil, Options{})
	if sc.Breakdown.Volatility != 60 {
		t.Fatalf("volatility sub-score = %v, want pressure proxy 60", sc.Breakdown.Volatility)
	}

	unknown := &models.VolatilityProfile{VolatilityStatus: models.VolUnknown}
	sc = Score(goodSnapshot(), unknown, Options{})
	if sc.Breakdown.Volatility != 60 {
		t.Fatalf("unknown profile must read as no history, got %v", sc.Breakdown.Volatility)
	}
}

func TestEligible(t *testing.T) {
	if !Eligible(goodSnapshot(), lowVol()) {
		t.Fatalf("good snapshot should be eligible")
	}

	s := goodSnapshot()
	s.SafeFlip = false
	if Eligible(s, nil) {
		t.Fatalf("unsafe snapshot must not be eligible")
	}

	s = goodSnapshot()
	s.SuggestedProfit = 0
	if Eligible(s, nil) {
		t.Fatalf("zero profit must not be eligible")
	}

	vol := lowVol()
	vol.VolatilityStatus = models.VolExtreme
	if Eligible(goodSnapshot(), vol) {
		t.Fatalf("extreme volatility must not be eligible")
	}
}

func TestRankOrdersAndFilters(t *testing.T) {
	better := goodSnapshot()
	worse := goodSnapshot()
	worse.ItemID = 3
	worse.EstimatedProfitPerHr = 20_000
	worse.SuggestedROI = 1
	worse.MarginHealth = models.MarginRisky
	stale := goodSnapshot()
	stale.ItemID = 4
	stale.Freshness = models.Stale

	got := Rank([]*models.ItemSnapshot{worse, stale, better}, nil, Options{MinScore: 1})
	if len(got) != 2 {
		t.Fatalf("len = %d, want 2 (stale dropped)", len(got))
	}
	if got[0].Snapshot.ItemID != better.ItemID {
		t.Fatalf("first = %d, want the higher scorer", got[0].Snapshot.ItemID)
	}
	if got[0].Score < got[1].Score {
		t.Fatalf("ranking not descending")
	}
	if got[0].Reason == "" {
		t.Fatalf("expected a reason string")
	}
}

func TestRankMaxResults(t *testing.T) {
	var snaps []*models.ItemSnapshot
	for i := 0; i < 25; i++ {
		s := goodSnapshot()
		s.ItemID = i + 1
		snaps = append(snaps, s)
	}
	got := Rank(snaps, nil, Options{MinScore: 1, MaxResults: 5})
	if len(got) != 5 {
		t.Fatalf("len = %d, want 5", len(got))
	}
}

func TestReason(t *testing.T) {
	r := Reason(models.ScoreBreakdown{Profitability: 90, Liquidity: 80})
	if r != "High expected profit with good liquidity" {
		t.Fatalf("reason = %q", r)
	}
	r = Reason(models.ScoreBreakdown{ROI: 75})
	if r != "Excellent ROI" {
		t.Fatalf("reason = %q", r)
	}
	r = Reason(models.ScoreBreakdown{})
	if r != "Good flip opportunity" {
		t.Fatalf("reason = %q", r)
	}
}
