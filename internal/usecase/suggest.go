package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FlipSight/internal/domain/models"
	drepo "FlipSight/internal/domain/repository"
	icache "FlipSight/internal/service/cache"
	"FlipSight/internal/services/scoring"
	"FlipSight/pkg/logger"
)

// volFetchers bounds the concurrent history queries behind one ranking.
const volFetchers = 8

// volCacheTTL keeps volatility profiles warm between rankings; daily bars
// only move once per refresh so a few minutes is safe.
const volCacheTTL = 5 * time.Minute

// SuggestUseCase ranks the current snapshots into flip suggestions,
// enriching candidates with volatility profiles from the history backend.
type SuggestUseCase struct {
	market   *Market
	history  *HistoryUseCase
	metrics  drepo.Metrics
	log      *logger.Logger
	timeout  time.Duration
	volCache *icache.TTLCache
}

func NewSuggestUseCase(market *Market, history *HistoryUseCase, metrics drepo.Metrics, log *logger.Logger) *SuggestUseCase {
	return &SuggestUseCase{
		market:   market,
		history:  history,
		metrics:  metrics,
		log:      log,
		timeout:  10 * time.Second,
		volCache: icache.NewTTLCache(),
	}
}

type GetSuggestionsParams struct {
	Budget            int64
	MinScore          int
	MaxResults        int
	IncludeStale      bool
	IncludeExtremeVol bool
	WindowDays        int
}

// GetSuggestions returns the ranked suggestion list. History failures
// degrade single items to score-proxy volatility instead of failing the
// whole ranking.
func (uc *SuggestUseCase) GetSuggestions(ctx context.Context, p GetSuggestionsParams) ([]*models.Suggestion, error) {
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()
	start := time.Now()

	snaps := uc.market.Snapshots(SnapshotFilter{ActiveOnly: !p.IncludeStale})
	profiles := uc.fetchProfiles(ctx, snaps, p.WindowDays)

	opts := scoring.Options{
		MinScore:          p.MinScore,
		MaxResults:        p.MaxResults,
		IncludeStale:      p.IncludeStale,
		IncludeExtremeVol: p.IncludeExtremeVol,
	}
	ranked := scoring.Rank(snaps, func(itemID int) *models.VolatilityProfile {
		return profiles[itemID]
	}, opts)

	uc.metrics.RecordLatency("suggest", time.Since(start).Seconds())
	return ranked, nil
}

// fetchProfiles pulls volatility profiles for the candidates with a small
// worker pool. Missing profiles are simply absent from the map.
func (uc *SuggestUseCase) fetchProfiles(ctx context.Context, snaps []*models.ItemSnapshot, windowDays int) map[int]*models.VolatilityProfile {
	profiles := make(map[int]*models.VolatilityProfile, len(snaps))
	if uc.history == nil || len(snaps) == 0 {
		return profiles
	}

	var mu sync.Mutex
	var wg sync.WaitGroup
	sem := make(chan struct{}, volFetchers)

	for _, s := range snaps {
		select {
		case <-ctx.Done():
			wg.Wait()
			return profiles
		case sem <- struct{}{}:
		}
		wg.Add(1)
		go func(itemID int) {
			defer wg.Done()
			defer func() { <-sem }()
			prof, err := uc.volatility(ctx, itemID, windowDays)
			if err != nil {
				uc.metrics.RecordError("volatility_fetch")
				uc.log.Debug("volatility fetch failed",
					logger.Int("item_id", itemID), logger.Error(err))
				return
			}
			mu.Lock()
			profiles[itemID] = prof
			mu.Unlock()
		}(s.ItemID)
	}
	wg.Wait()
	return profiles
}

// volatility serves a profile from the TTL cache, falling through to the
// history backend on miss.
func (uc *SuggestUseCase) volatility(ctx context.Context, itemID, windowDays int) (*models.VolatilityProfile, error) {
	key := fmt.Sprintf("vol:%d:%d", itemID, windowDays)
	if v, ok := uc.volCache.Get(key); ok {
		if prof, ok := v.(*models.VolatilityProfile); ok {
			return prof, nil
		}
	}
	prof, err := uc.history.Volatility(ctx, itemID, windowDays)
	if err != nil {
		return nil, err
	}
	uc.volCache.Set(key, prof, volCacheTTL)
	return prof, nil
}

// ItemSignals is the aggregated single-item view: the live snapshot plus
// everything derived from it. Partial failures land in Errors.
type ItemSignals struct {
	ItemID     int                       `json:"itemId"`
	Timestamp  time.Time                 `json:"timestamp"`
	Snapshot   *models.ItemSnapshot      `json:"snapshot,omitempty"`
	Volatility *models.VolatilityProfile `json:"volatility,omitempty"`
	Trend      models.Trend              `json:"trend,omitempty"`
	Score      *models.SuggestionScore   `json:"score,omitempty"`
	Errors     map[string]string         `json:"errors,omitempty"`
}

// GetItemSignals aggregates the snapshot, volatility profile, trend and
// score for one item, fetching the independent parts concurrently.
func (uc *SuggestUseCase) GetItemSignals(ctx context.Context, itemID, windowDays int) (*ItemSignals, error) {
	if itemID <= 0 {
		return nil, fmt.Errorf("item id required")
	}
	ctx, cancel := context.WithTimeout(ctx, uc.timeout)
	defer cancel()

	res := &ItemSignals{
		ItemID:    itemID,
		Timestamp: time.Now(),
		Errors:    map[string]string{},
	}
	if snap, ok := uc.market.Snapshot(itemID); ok {
		res.Snapshot = snap
	} else {
		res.Errors["snapshot"] = "no current snapshot"
	}

	type part struct {
		name string
		vol  *models.VolatilityProfile
		tr   models.Trend
		err  error
	}
	ch := make(chan part, 2)
	var wg sync.WaitGroup

	wg.Add(1)
	go func() {
		defer wg.Done()
		v, err := uc.history.Volatility(ctx, itemID, windowDays)
		ch <- part{name: "volatility", vol: v, err: err}
	}()
	wg.Add(1)
	go func() {
		defer wg.Done()
		t, err := uc.history.Trend(ctx, itemID, windowDays)
		ch <- part{name: "trend", tr: t, err: err}
	}()
	go func() { wg.Wait(); close(ch) }()

	for p := range ch {
		if p.err != nil {
			res.Errors[p.name] = p.err.Error()
			continue
		}
		switch p.name {
		case "volatility":
			res.Volatility = p.vol
		case "trend":
			res.Trend = p.tr
		}
	}

	if res.Snapshot != nil {
		score := scoring.Score(res.Snapshot, res.Volatility, scoring.Options{})
		res.Score = &score
	}
	if len(res.Errors) == 0 {
		res.Errors = nil
	}
	return res, nil
}
