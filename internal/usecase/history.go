package usecase

import (
	"context"
	"fmt"
	"time"

	"FlipSight/internal/domain/models"
	drepo "FlipSight/internal/domain/repository"
	"FlipSight/internal/services/volatility"
)

// HistoryUseCase serves daily price bars and derived volatility profiles
// from the configured history backend.
type HistoryUseCase struct {
	store drepo.HistoryStore
	now   func() time.Time
}

func NewHistoryUseCase(store drepo.HistoryStore) *HistoryUseCase {
	return &HistoryUseCase{store: store, now: time.Now}
}

type GetBarsParams struct {
	ItemID     int
	From       time.Time
	To         time.Time
	WindowDays int // used when From/To are zero
}

type GetBarsResult struct {
	ItemID int              `json:"itemId"`
	From   time.Time        `json:"from"`
	To     time.Time        `json:"to"`
	Count  int              `json:"count"`
	Bars   []models.DailyBar `json:"bars"`
}

// GetDailyBars validates the window and fetches aggregated bars. An explicit
// From/To pair wins over WindowDays; both empty means the default window.
func (uc *HistoryUseCase) GetDailyBars(ctx context.Context, p GetBarsParams) (*GetBarsResult, error) {
	if p.ItemID <= 0 {
		return nil, fmt.Errorf("item id required")
	}
	from, to := p.From, p.To
	if from.IsZero() && to.IsZero() {
		days := drepo.NormalizeWindowDays(p.WindowDays)
		to = uc.now()
		from = to.AddDate(0, 0, -days)
	}
	if from.After(to) {
		return nil, fmt.Errorf("from must be <= to")
	}

	bars, err := uc.store.DailyBars(ctx, p.ItemID, from, to)
	if err != nil {
		return nil, fmt.Errorf("get daily bars: %w", err)
	}
	return &GetBarsResult{ItemID: p.ItemID, From: from, To: to, Count: len(bars), Bars: bars}, nil
}

// Volatility analyzes the item's recent bars. Items without enough history
// come back as an unknown profile, never an error.
func (uc *HistoryUseCase) Volatility(ctx context.Context, itemID, windowDays int) (*models.VolatilityProfile, error) {
	res, err := uc.GetDailyBars(ctx, GetBarsParams{ItemID: itemID, WindowDays: windowDays})
	if err != nil {
		return nil, err
	}
	return volatility.Analyze(itemID, res.Bars), nil
}

// Trend reports the short-term direction of the item's average high price.
func (uc *HistoryUseCase) Trend(ctx context.Context, itemID, windowDays int) (models.Trend, error) {
	res, err := uc.GetDailyBars(ctx, GetBarsParams{ItemID: itemID, WindowDays: windowDays})
	if err != nil {
		return models.TrendStable, err
	}
	return volatility.Trend(res.Bars), nil
}
