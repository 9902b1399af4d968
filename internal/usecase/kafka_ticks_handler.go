package usecase

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"FlipSight/internal/domain/models"
	drepo "FlipSight/internal/domain/repository"
	pkgkafka "FlipSight/pkg/kafka"
)

// KafkaTicksHandler consumes published quote ticks and writes them to the
// history store. Runs only when the backend is "kafka".
type KafkaTicksHandler struct {
	topic   string
	store   drepo.HistoryStore
	metrics drepo.Metrics
}

func NewKafkaTicksHandler(topic string, store drepo.HistoryStore, metrics drepo.Metrics) *KafkaTicksHandler {
	return &KafkaTicksHandler{topic: topic, store: store, metrics: metrics}
}

func (h *KafkaTicksHandler) Topic() string { return h.topic }

// incoming message schema: {itemId, ts, bid, ask}, ts in epoch seconds or ms
func (h *KafkaTicksHandler) Handle(ctx context.Context, b []byte) error {
	var m struct {
		ItemID int   `json:"itemId"`
		TS     int64 `json:"ts"`
		Bid    int64 `json:"bid"`
		Ask    int64 `json:"ask"`
	}
	if err := json.Unmarshal(b, &m); err != nil {
		h.metrics.RecordError("consumer_unmarshal")
		return err
	}
	if m.ItemID <= 0 || m.TS <= 0 {
		h.metrics.RecordError("consumer_invalid")
		return fmt.Errorf("invalid tick: item %d ts %d", m.ItemID, m.TS)
	}
	if m.TS > 1e11 { // ms
		m.TS = m.TS / 1000
	}
	h.metrics.RecordLatency("ingest_e2e_seconds", time.Since(time.Unix(m.TS, 0)).Seconds())

	start := time.Now()
	err := h.store.StoreBatch(ctx, []*models.QuoteTick{{
		ItemID: m.ItemID,
		TS:     time.Unix(m.TS, 0),
		Bid:    m.Bid,
		Ask:    m.Ask,
	}})
	h.metrics.RecordLatency("history_insert_seconds", time.Since(start).Seconds())
	if err != nil {
		h.metrics.RecordError("consumer_store")
		return err
	}
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaTicksHandler)(nil)
