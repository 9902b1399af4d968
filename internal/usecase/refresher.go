package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"FlipSight/internal/domain/models"
	drepo "FlipSight/internal/domain/repository"
	mid "FlipSight/internal/middleware"
	"FlipSight/pkg/logger"
)

// RefreshSchedule holds the cron specs for the three feed cadences.
type RefreshSchedule struct {
	Quotes  string // default every minute
	Volumes string // default hourly
	Catalog string // default daily
}

func (s RefreshSchedule) withDefaults() RefreshSchedule {
	if s.Quotes == "" {
		s.Quotes = "* * * * *"
	}
	if s.Volumes == "" {
		s.Volumes = "@hourly"
	}
	if s.Catalog == "" {
		s.Catalog = "@daily"
	}
	return s
}

// RefreshSummary is what stream subscribers receive after each rebuild.
type RefreshSummary struct {
	At        time.Time `json:"at"`
	Kind      string    `json:"kind"`
	Quoted    int       `json:"quotedItems"`
	Snapshots int       `json:"snapshots"`
}

// Refresher drives the pull loop: fetch quotes on schedule, rebuild
// snapshots, ship history ticks through the pipeline, and tell stream
// subscribers. Refreshes are idempotent; a failed fetch leaves the previous
// market state in place.
type Refresher struct {
	feed     drepo.QuoteFeed
	market   *Market
	pipe     *mid.TickPipeline
	metrics  drepo.Metrics
	log      *logger.Logger
	budget   int64
	schedule RefreshSchedule

	cron *cron.Cron

	subMu sync.Mutex
	subs  []func(RefreshSummary)
}

func NewRefresher(feed drepo.QuoteFeed, market *Market, pipe *mid.TickPipeline, metrics drepo.Metrics, log *logger.Logger, budget int64, schedule RefreshSchedule) *Refresher {
	return &Refresher{
		feed:     feed,
		market:   market,
		pipe:     pipe,
		metrics:  metrics,
		log:      log,
		budget:   budget,
		schedule: schedule.withDefaults(),
	}
}

// Start bootstraps the market state and begins the scheduled refreshes.
// The catalog must load for the service to be useful, so a failure there is
// fatal; everything after that degrades gracefully.
func (r *Refresher) Start(ctx context.Context) error {
	if err := r.RefreshCatalog(ctx); err != nil {
		return fmt.Errorf("initial catalog load: %w", err)
	}
	if err := r.RefreshVolumes(ctx); err != nil {
		r.log.Warn("initial volumes load failed, using 5m estimates", logger.Error(err))
	}
	if err := r.RefreshQuotes(ctx); err != nil {
		r.log.Warn("initial quote refresh failed", logger.Error(err))
	}
	if r.pipe != nil {
		r.pipe.Start(ctx)
	}

	r.cron = cron.New()
	if _, err := r.cron.AddFunc(r.schedule.Quotes, func() { r.logged(ctx, "quotes", r.RefreshQuotes) }); err != nil {
		return fmt.Errorf("schedule quotes: %w", err)
	}
	if _, err := r.cron.AddFunc(r.schedule.Volumes, func() { r.logged(ctx, "volumes", r.RefreshVolumes) }); err != nil {
		return fmt.Errorf("schedule volumes: %w", err)
	}
	if _, err := r.cron.AddFunc(r.schedule.Catalog, func() { r.logged(ctx, "catalog", r.RefreshCatalog) }); err != nil {
		return fmt.Errorf("schedule catalog: %w", err)
	}
	r.cron.Start()
	r.log.Info("refresher started",
		logger.String("quotes", r.schedule.Quotes),
		logger.String("volumes", r.schedule.Volumes),
		logger.String("catalog", r.schedule.Catalog))
	return nil
}

// Shutdown stops the scheduler and the tick pipeline.
func (r *Refresher) Shutdown(ctx context.Context) error {
	if r.cron != nil {
		stopped := r.cron.Stop()
		select {
		case <-stopped.Done():
		case <-ctx.Done():
		}
	}
	if r.pipe != nil {
		r.pipe.Stop()
	}
	return nil
}

// RefreshQuotes pulls the latest, 5m and 1h feeds, rebuilds snapshots, and
// forwards one tick per usable quote to the history backend.
func (r *Refresher) RefreshQuotes(ctx context.Context) error {
	start := time.Now()

	latest, err := r.feed.Latest(ctx)
	if err != nil {
		r.metrics.RecordError("feed_latest")
		return fmt.Errorf("fetch latest: %w", err)
	}
	fiveMin, err := r.feed.FiveMinute(ctx)
	if err != nil {
		r.metrics.RecordError("feed_5m")
		r.log.Warn("5m feed unavailable", logger.Error(err))
		fiveMin = map[int]*models.Quote{}
	}
	hourly, err := r.feed.Hourly(ctx)
	if err != nil {
		r.metrics.RecordError("feed_1h")
		hourly = map[int]*models.Quote{}
	}

	r.market.MergeQuotes(latest, fiveMin, hourly)
	now := time.Now()
	count := r.market.Rebuild(now, r.budget)

	if r.pipe != nil {
		ticks := ticksFrom(latest, now)
		if err := r.pipe.Process(ctx, ticks); err != nil {
			// buffered for retry inside the pipeline
			r.log.Warn("history write deferred", logger.Error(err))
		}
	}

	r.metrics.RecordRefresh("quotes")
	r.metrics.RecordSnapshots(count)
	r.metrics.RecordLatency("refresh_quotes", time.Since(start).Seconds())
	r.notify(RefreshSummary{At: now, Kind: "quotes", Quoted: len(latest), Snapshots: count})
	return nil
}

// RefreshVolumes pulls the daily volume table.
func (r *Refresher) RefreshVolumes(ctx context.Context) error {
	volumes, err := r.feed.Volumes(ctx)
	if err != nil {
		r.metrics.RecordError("feed_volumes")
		return fmt.Errorf("fetch volumes: %w", err)
	}
	r.market.SetVolumes(volumes)
	r.metrics.RecordRefresh("volumes")
	return nil
}

// RefreshCatalog pulls the item mapping.
func (r *Refresher) RefreshCatalog(ctx context.Context) error {
	items, err := r.feed.Mapping(ctx)
	if err != nil {
		r.metrics.RecordError("feed_mapping")
		return fmt.Errorf("fetch mapping: %w", err)
	}
	r.market.SetCatalog(items)
	r.metrics.RecordRefresh("catalog")
	return nil
}

// Subscribe registers a callback invoked after every refresh.
func (r *Refresher) Subscribe(fn func(RefreshSummary)) {
	r.subMu.Lock()
	r.subs = append(r.subs, fn)
	r.subMu.Unlock()
}

func (r *Refresher) notify(s RefreshSummary) {
	r.subMu.Lock()
	subs := make([]func(RefreshSummary), len(r.subs))
	copy(subs, r.subs)
	r.subMu.Unlock()
	for _, fn := range subs {
		fn(s)
	}
}

func (r *Refresher) logged(ctx context.Context, kind string, fn func(context.Context) error) {
	if err := fn(ctx); err != nil {
		r.log.Error("scheduled refresh failed", logger.String("kind", kind), logger.Error(err))
	}
}

func ticksFrom(quotes map[int]*models.Quote, now time.Time) []*models.QuoteTick {
	ticks := make([]*models.QuoteTick, 0, len(quotes))
	for id, q := range quotes {
		if !q.Valid() {
			continue
		}
		ticks = append(ticks, &models.QuoteTick{ItemID: id, TS: now, Bid: q.BidInstant, Ask: q.AskInstant})
	}
	return ticks
}
