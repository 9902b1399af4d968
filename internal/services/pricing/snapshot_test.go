package pricing

import (
	"testing"
	"time"

	"FlipSight/internal/domain/models"
)

func testQuote(bid, ask int64, now time.Time) *models.Quote {
	return &models.Quote{
		ItemID:     4151,
		BidInstant: bid,
		AskInstant: ask,
		BidTime:    now.Add(-2 * time.Minute).Unix(),
		AskTime:    now.Add(-2 * time.Minute).Unix(),
	}
}

func testMeta() *models.ItemMeta {
	return &models.ItemMeta{ID: 4151, Name: "Abyssal whip", BuyLimit: 8000}
}

func TestBuildRejectsInvalidQuotes(t *testing.T) {
	now := time.Now()
	cases := []struct {
		name     string
		bid, ask int64
	}{
		{"zero bid", 0, 100},
		{"zero ask", 100, 0},
		{"crossed", 102, 98},
		{"equal", 100, 100},
	}
	for _, c := range cases {
		q := testQuote(c.bid, c.ask, now)
		if _, ok := Build(q, testMeta(), 50_000, Options{Now: now}); ok {
			t.Fatalf("%s: expected no snapshot", c.name)
		}
	}
}

func TestBuildTightSpreadFallsBackToUnadjusted(t *testing.T) {
	// Liquid tier, spread of 4 with a 12% inward step rounds to 0, so the
	// suggested prices stay at the averaged bid/ask.
	now := time.Now()
	q := testQuote(98, 102, now)
	meta := testMeta()
	meta.BuyLimit = 500

	s, ok := Build(q, meta, 10_000, Options{Now: now})
	if !ok {
		t.Fatalf("expected snapshot")
	}
	if s.LiquidityTier != models.TierLiquid {
		t.Fatalf("tier = %s, want liquid", s.LiquidityTier)
	}
	if s.SuggestedBuy != 98 || s.SuggestedSell != 102 {
		t.Fatalf("suggested = %d/%d, want 98/102", s.SuggestedBuy, s.SuggestedSell)
	}
}

func TestBuildNeverCrosses(t *testing.T) {
	now := time.Now()
	for bid := int64(10); bid <= 5_000; bid += 37 {
		for _, spread := range []int64{1, 2, 3, 4, 5, 10, 50, 500} {
			q := testQuote(bid, bid+spread, now)
			s, ok := Build(q, testMeta(), 60_000, Options{Now: now})
			if !ok {
				t.Fatalf("bid=%d spread=%d: expected snapshot", bid, spread)
			}
			if s.SuggestedBuy >= s.SuggestedSell {
				t.Fatalf("bid=%d spread=%d: crossed suggestion %d/%d",
					bid, spread, s.SuggestedBuy, s.SuggestedSell)
			}
		}
	}
}

func TestBuildPrefersFiveMinuteAverages(t *testing.T) {
	now := time.Now()
	q := testQuote(1000, 1200, now)
	q.BidAvg5m = 1050
	q.AskAvg5m = 1150

	s, ok := Build(q, testMeta(), 60_000, Options{Now: now})
	if !ok {
		t.Fatalf("expected snapshot")
	}
	if s.BidAvg != 1050 || s.AskAvg != 1150 {
		t.Fatalf("avg = %d/%d, want 1050/1150", s.BidAvg, s.AskAvg)
	}
	if s.BidInstant != 1000 || s.AskInstant != 1200 {
		t.Fatalf("instant prices must be kept alongside")
	}
	if s.AvgSpread != 100 {
		t.Fatalf("avgSpread = %d, want 100", s.AvgSpread)
	}
}

func TestClassifyTier(t *testing.T) {
	cases := []struct {
		volume, limit, bid int64
		want               models.LiquidityTier
	}{
		{60_000, 8000, 100, models.TierFast},
		{15_000, 500, 100, models.TierLiquid},
		{50, 70, 2_000_000, models.TierHighValue},
		{3_000, 10, 100, models.TierMedium},
		{100, 8000, 100, models.TierSlow},
		{60_000, 50, 100, models.TierMedium}, // high volume but tiny limit, not high value
	}
	for _, c := range cases {
		if got := classifyTier(c.volume, c.limit, c.bid); got != c.want {
			t.Fatalf("classifyTier(%d, %d, %d) = %s, want %s",
				c.volume, c.limit, c.bid, got, c.want)
		}
	}
}

func TestBuildStaleQuoteNeverSafe(t *testing.T) {
	now := time.Now()
	q := testQuote(10_000, 11_000, now)
	q.BidTime = now.Add(-3 * time.Hour).Unix()
	q.AskTime = now.Add(-3 * time.Hour).Unix()

	s, ok := Build(q, testMeta(), 60_000, Options{Now: now})
	if !ok {
		t.Fatalf("expected snapshot")
	}
	if s.Freshness != models.Stale {
		t.Fatalf("freshness = %s, want stale", s.Freshness)
	}
	if s.SafeFlip {
		t.Fatalf("stale snapshot must not be a safe flip")
	}
}

func TestBuildManipulationFlags(t *testing.T) {
	now := time.Now()

	// Spread over 50% is flagged regardless of volume.
	q := testQuote(100, 200, now)
	s, ok := Build(q, testMeta(), 100_000, Options{Now: now})
	if !ok || !s.Manipulated {
		t.Fatalf("100%% spread should be flagged")
	}

	// Zero volume with absolute spread over 10.
	q = testQuote(1000, 1020, now)
	s, ok = Build(q, testMeta(), 0, Options{Now: now})
	if !ok || !s.Manipulated {
		t.Fatalf("zero volume wide spread should be flagged")
	}

	// One-sided 5m flow on a quiet book.
	q = testQuote(1000, 1100, now)
	q.BuyVolume5m = 20
	q.SellVolume5m = 1
	s, ok = Build(q, testMeta(), 100_000, Options{Now: now})
	if !ok || !s.Manipulated {
		t.Fatalf("one-sided thin pressure should be flagged")
	}
}

func TestBuildBudgetCapsQuantity(t *testing.T) {
	now := time.Now()
	q := testQuote(10_000, 11_000, now)

	s, ok := Build(q, testMeta(), 500_000, Options{Now: now, Budget: 1_000_000})
	if !ok {
		t.Fatalf("expected snapshot")
	}
	// 30% diversification share of 1M at ~10k/item allows about 30.
	if s.RecommendedQty < 1 || s.RecommendedQty > 30 {
		t.Fatalf("recommendedQty = %d, want within diversification cap", s.RecommendedQty)
	}
	if s.EstimatedTotalCost != s.RecommendedQty*s.SuggestedBuy {
		t.Fatalf("estimated cost inconsistent")
	}
}

func TestBuildPressure(t *testing.T) {
	now := time.Now()
	q := testQuote(1000, 1100, now)
	q.BuyVolume5m = 300
	q.SellVolume5m = 100

	s, ok := Build(q, testMeta(), 100_000, Options{Now: now})
	if !ok {
		t.Fatalf("expected snapshot")
	}
	if s.Pressure != 0.5 {
		t.Fatalf("pressure = %v, want 0.5", s.Pressure)
	}
	if s.PressureStatus != models.PressureOneSided {
		t.Fatalf("pressureStatus = %s, want one-sided", s.PressureStatus)
	}
}
