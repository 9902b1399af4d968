package repository

import (
	"context"
	"time"

	"FlipSight/internal/domain/models"
)

// QuoteFeed is the upstream price service: instant quotes, 5m/1h averages,
// the item catalog and daily volumes.
type QuoteFeed interface {
	Latest(ctx context.Context) (map[int]*models.Quote, error)
	FiveMinute(ctx context.Context) (map[int]*models.Quote, error)
	Hourly(ctx context.Context) (map[int]*models.Quote, error)
	Mapping(ctx context.Context) ([]*models.ItemMeta, error)
	Volumes(ctx context.Context) (map[int]int64, error)
}

// TickPublisher forwards normalized quote ticks to a message broker for the
// out-of-process history writer.
type TickPublisher interface {
	Publish(ctx context.Context, t *models.QuoteTick) error
	PublishBatch(ctx context.Context, ticks []*models.QuoteTick) error
	Close() error
}

// HistoryStore persists quote ticks and serves the daily-aggregated windows
// the volatility analyzer consumes.
type HistoryStore interface {
	Init(ctx context.Context) error // ensure tables, health checks
	StoreBatch(ctx context.Context, ticks []*models.QuoteTick) error
	DailyBars(ctx context.Context, itemID int, from, to time.Time) ([]models.DailyBar, error)
	Health(ctx context.Context) error
	Close() error
}

// Metrics abstracts the operational counters so usecases never import the
// metrics implementation directly.
type Metrics interface {
	RecordRefresh(kind string)
	RecordSnapshots(count int)
	RecordLedgerOp(op string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
}
