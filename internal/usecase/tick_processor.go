package usecase

import (
	"context"
	"fmt"
	"time"

	"FlipSight/internal/domain/models"
	drepo "FlipSight/internal/domain/repository"
)

// TickProcessor routes normalized quote ticks to the configured history
// backend: direct ClickHouse inserts, or Kafka for the out-of-process
// writer.
type TickProcessor struct {
	pub     drepo.TickPublisher
	store   drepo.HistoryStore
	metrics drepo.Metrics
	backend string
}

func NewTickProcessor(pub drepo.TickPublisher, store drepo.HistoryStore, metrics drepo.Metrics, backend string) *TickProcessor {
	return &TickProcessor{pub: pub, store: store, metrics: metrics, backend: backend}
}

// Process stores or publishes a single tick.
func (p *TickProcessor) Process(ctx context.Context, t *models.QuoteTick) error {
	if t == nil {
		return fmt.Errorf("tick is nil")
	}
	return p.ProcessBatch(ctx, []*models.QuoteTick{t})
}

// ProcessBatch routes one refresh worth of ticks.
func (p *TickProcessor) ProcessBatch(ctx context.Context, ticks []*models.QuoteTick) error {
	if len(ticks) == 0 {
		return nil
	}

	start := time.Now()
	var err error
	switch p.backend {
	case "kafka":
		err = p.pub.PublishBatch(ctx, ticks)
	case "clickhouse":
		err = p.store.StoreBatch(ctx, ticks)
	default:
		err = fmt.Errorf("unknown backend: %s", p.backend)
	}
	if err != nil {
		p.metrics.RecordError("tick_batch")
		return fmt.Errorf("process ticks: %w", err)
	}

	p.metrics.RecordLatency("tick_batch", time.Since(start).Seconds())
	return nil
}

// Close closes underlying resources if available.
func (p *TickProcessor) Close() {
	if p.pub != nil {
		_ = p.pub.Close()
	}
	if p.store != nil {
		_ = p.store.Close()
	}
}
