package repository

import (
	"context"
	"strconv"

	"FlipSight/internal/domain/models"
	domrepo "FlipSight/internal/domain/repository"
	pkgkafka "FlipSight/pkg/kafka"
)

// KafkaTickPublisher implements TickPublisher for the kafka backend.
// Messages key on the item id so one item's ticks stay ordered within a
// partition.
type KafkaTickPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaTickPublisher(producer *pkgkafka.Producer, topic string) domrepo.TickPublisher {
	return &KafkaTickPublisher{producer: producer, topic: topic}
}

func (p *KafkaTickPublisher) Publish(ctx context.Context, t *models.QuoteTick) error {
	return p.producer.Publish(ctx, p.topic, tickKey(t), tickValue(t))
}

func (p *KafkaTickPublisher) PublishBatch(ctx context.Context, ticks []*models.QuoteTick) error {
	if len(ticks) == 0 {
		return nil
	}
	msgs := make([]pkgkafka.Message, len(ticks))
	for i, t := range ticks {
		msgs[i] = pkgkafka.Message{Key: tickKey(t), Value: tickValue(t)}
	}
	return p.producer.PublishBatch(ctx, p.topic, msgs)
}

func (p *KafkaTickPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

func tickKey(t *models.QuoteTick) []byte {
	return []byte(strconv.Itoa(t.ItemID))
}

// tickValue matches the consumer-side schema: ts in epoch seconds.
func tickValue(t *models.QuoteTick) map[string]interface{} {
	return map[string]interface{}{
		"itemId": t.ItemID,
		"ts":     t.TS.Unix(),
		"bid":    t.Bid,
		"ask":    t.Ask,
	}
}
