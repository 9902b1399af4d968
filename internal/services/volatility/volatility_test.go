package volatility

import (
	"math"
	"testing"
	"time"

	"FlipSight/internal/domain/models"
)

func bars(highs ...float64) []models.DailyBar {
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.DailyBar, len(highs))
	for i, h := range highs {
		out[i] = models.DailyBar{
			ItemID:  1,
			Date:    day.AddDate(0, 0, i),
			AvgHigh: h,
			AvgLow:  h * 0.97,
			Count:   10,
		}
	}
	return out
}

func TestAnalyzeTooFewPoints(t *testing.T) {
	for _, bs := range [][]models.DailyBar{nil, bars(100)} {
		p := Analyze(1, bs)
		if p.VolatilityStatus != models.VolUnknown {
			t.Fatalf("status = %s, want unknown", p.VolatilityStatus)
		}
		if p.DataPoints != 0 {
			t.Fatalf("dataPoints = %d, want 0", p.DataPoints)
		}
	}
}

func TestAnalyzeFlatSeriesIsLow(t *testing.T) {
	p := Analyze(1, bars(1000, 1000, 1000, 1000, 1000, 1000, 1000))
	if p.VolatilityStatus != models.VolLow {
		t.Fatalf("status = %s, want low", p.VolatilityStatus)
	}
	if p.VolatilityPercent != 0 {
		t.Fatalf("volatility = %v, want 0", p.VolatilityPercent)
	}
	if p.SpreadStability != models.SpreadStable {
		t.Fatalf("spreadStability = %s, want stable", p.SpreadStability)
	}
	if p.RecommendedInterval != 5*time.Minute {
		t.Fatalf("interval = %v, want 5m", p.RecommendedInterval)
	}
}

func TestAnalyzeClassification(t *testing.T) {
	cases := []struct {
		name  string
		highs []float64
		want  models.VolatilityStatus
	}{
		// Population CV of {990, 1010} around 1000 is 1%.
		{"low", []float64{990, 1010, 990, 1010}, models.VolLow},
		// {960, 1040} is 4%.
		{"medium", []float64{960, 1040, 960, 1040}, models.VolMedium},
		// {920, 1080} is 8%.
		{"high", []float64{920, 1080, 920, 1080}, models.VolHigh},
		// {800, 1200} is 20%.
		{"extreme", []float64{800, 1200, 800, 1200}, models.VolExtreme},
	}
	for _, c := range cases {
		p := Analyze(1, bars(c.highs...))
		if p.VolatilityStatus != c.want {
			t.Fatalf("%s: status = %s (cv=%v), want %s",
				c.name, p.VolatilityStatus, p.VolatilityPercent, c.want)
		}
	}
}

func TestAnalyzeDropsOutliers(t *testing.T) {
	// A single spike day in an otherwise flat series should be fenced out,
	// leaving low volatility and a nonzero outlier count.
	p := Analyze(1, bars(1000, 1000, 1000, 1000, 1000, 1000, 5000))
	if p.VolatilityStatus != models.VolLow {
		t.Fatalf("status = %s, want low after outlier removal", p.VolatilityStatus)
	}
	if p.OutlierCount == 0 {
		t.Fatalf("expected outliers to be counted")
	}
}

func TestCVWithOutliers(t *testing.T) {
	cv, outliers := cvWithOutliers([]float64{100, 100, 100, 100})
	if cv != 0 || outliers != 0 {
		t.Fatalf("flat series: cv=%v outliers=%d", cv, outliers)
	}

	cv, _ = cvWithOutliers([]float64{90, 110, 90, 110})
	if math.Abs(cv-10) > 1e-9 {
		t.Fatalf("cv = %v, want 10", cv)
	}
}

func TestTrend(t *testing.T) {
	cases := []struct {
		name  string
		highs []float64
		want  models.Trend
	}{
		{"too short", []float64{100}, models.TrendStable},
		{"one older point", []float64{100, 100, 100, 100}, models.TrendStable},
		{"up", []float64{100, 100, 110, 110, 110}, models.TrendUp},
		{"down", []float64{100, 100, 90, 90, 90}, models.TrendDown},
		{"flat", []float64{100, 100, 101, 101, 101}, models.TrendStable},
	}
	for _, c := range cases {
		if got := Trend(bars(c.highs...)); got != c.want {
			t.Fatalf("%s: trend = %s, want %s", c.name, got, c.want)
		}
	}
}

func TestAnalyzeUnstableSpread(t *testing.T) {
	day := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	var bs []models.DailyBar
	// Alternate tight and very wide spreads so the spread CV blows past 50%.
	for i := 0; i < 8; i++ {
		low := 1000.0
		high := 1010.0
		if i%2 == 0 {
			high = 1200.0
		}
		bs = append(bs, models.DailyBar{
			ItemID: 1, Date: day.AddDate(0, 0, i),
			AvgHigh: high, AvgLow: low, Count: 5,
		})
	}
	p := Analyze(1, bs)
	if p.SpreadStability != models.SpreadUnstable {
		t.Fatalf("spreadStability = %s, want unstable", p.SpreadStability)
	}
}
