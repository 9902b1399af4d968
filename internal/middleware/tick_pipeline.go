package middleware

import (
	"context"
	"fmt"
	"sync"
	"time"

	"FlipSight/internal/domain/models"
	domrepo "FlipSight/internal/domain/repository"
)

// Proc is the minimal downstream interface the pipeline needs.
type Proc interface {
	ProcessBatch(ctx context.Context, ticks []*models.QuoteTick) error
}

// TickPipeline sits between the refresher and the history backend. It
// validates and de-duplicates ticks, and buffers batches when the backend
// is unavailable so a ClickHouse or broker outage never blocks snapshot
// rebuilds.
type TickPipeline struct {
	proc        Proc
	metrics     domrepo.Metrics
	minInterval time.Duration // per-item dedupe window
	bufSize     int
	bufCh       chan []*models.QuoteTick
	stopCh      chan struct{}
	started     bool
	mu          sync.Mutex
	lastSeen    map[int]time.Time
}

type PipelineOption func(*TickPipeline)

// WithMinInterval sets the per-item dedupe window. Ticks for an item seen
// more recently than this are dropped.
func WithMinInterval(d time.Duration) PipelineOption {
	return func(p *TickPipeline) {
		if d > 0 {
			p.minInterval = d
		}
	}
}

// WithBufferSize sets how many batches queue while the backend is down.
func WithBufferSize(n int) PipelineOption {
	return func(p *TickPipeline) {
		if n > 0 {
			p.bufSize = n
		}
	}
}

func NewTickPipeline(proc Proc, metrics domrepo.Metrics, opts ...PipelineOption) *TickPipeline {
	p := &TickPipeline{
		proc:        proc,
		metrics:     metrics,
		minInterval: 30 * time.Second,
		bufSize:     120, // two hours of minutely refreshes
		stopCh:      make(chan struct{}),
		lastSeen:    make(map[int]time.Time),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.bufCh = make(chan []*models.QuoteTick, p.bufSize)
	return p
}

// Start launches background flushing of buffered batches.
func (p *TickPipeline) Start(ctx context.Context) {
	p.mu.Lock()
	if p.started {
		p.mu.Unlock()
		return
	}
	p.started = true
	p.mu.Unlock()

	go func() {
		backoff := 50 * time.Millisecond
		for {
			select {
			case <-p.stopCh:
				return
			case batch := <-p.bufCh:
				if len(batch) == 0 {
					continue
				}
				if err := p.proc.ProcessBatch(ctx, batch); err != nil {
					if backoff < 2*time.Second {
						backoff *= 2
					}
					p.metrics.RecordError("pipeline_flush")
					time.Sleep(backoff)
					// requeue if space; drop otherwise
					select {
					case p.bufCh <- batch:
					default:
						p.metrics.RecordError("pipeline_buffer_drop")
					}
				} else {
					backoff = 50 * time.Millisecond
				}
			}
		}
	}()
}

// Stop stops the background flushing.
func (p *TickPipeline) Stop() {
	p.mu.Lock()
	if !p.started {
		p.mu.Unlock()
		return
	}
	p.started = false
	p.mu.Unlock()
	close(p.stopCh)
}

// Process validates and forwards a batch, buffering it when the backend
// rejects the write.
func (p *TickPipeline) Process(ctx context.Context, ticks []*models.QuoteTick) error {
	start := time.Now()
	accepted := make([]*models.QuoteTick, 0, len(ticks))
	for _, t := range ticks {
		if err := validateTick(t); err != nil {
			p.metrics.RecordError("pipeline_validate")
			continue
		}
		if !p.allow(t.ItemID, t.TS) {
			continue
		}
		accepted = append(accepted, t)
	}
	if len(accepted) == 0 {
		return nil
	}

	if err := p.proc.ProcessBatch(ctx, accepted); err != nil {
		p.metrics.RecordError("pipeline_process")
		// buffer non-blocking
		select {
		case p.bufCh <- accepted:
			p.metrics.RecordLatency("pipeline_buffer_depth", float64(len(p.bufCh)))
		default:
			p.metrics.RecordError("pipeline_buffer_full")
		}
		return fmt.Errorf("pipeline downstream: %w", err)
	}
	p.metrics.RecordLatency("pipeline_process", time.Since(start).Seconds())
	return nil
}

func validateTick(t *models.QuoteTick) error {
	if t == nil {
		return fmt.Errorf("tick nil")
	}
	if t.ItemID <= 0 {
		return fmt.Errorf("item id invalid")
	}
	if t.TS.IsZero() {
		return fmt.Errorf("timestamp invalid")
	}
	if t.Bid <= 0 || t.Ask <= 0 {
		return fmt.Errorf("non-positive bid/ask")
	}
	return nil
}

// allow drops ticks for items already recorded inside the dedupe window.
func (p *TickPipeline) allow(itemID int, ts time.Time) bool {
	if p.minInterval <= 0 {
		return true
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	last := p.lastSeen[itemID]
	if !last.IsZero() && ts.Sub(last) < p.minInterval {
		return false
	}
	p.lastSeen[itemID] = ts
	return true
}
