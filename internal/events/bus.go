// Package events implements the EventBus of spec §4.8: append-only
// publication, at-least-once delivery, consumers dedup on event_id.
// Grounded on the teacher's internal/kafka/producer.go (kafka.Writer,
// JSON payloads, retry helper).
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/altis-air/altis-retail-engine/internal/domain"
	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Bus struct {
	writer *kafka.Writer
	topic  string
	log    *zap.SugaredLogger
}

func NewBus(brokers []string, topic string, log *zap.SugaredLogger) *Bus {
	return &Bus{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Balancer:     &kafka.LeastBytes{},
			BatchTimeout: 50 * time.Millisecond,
			RequiredAcks: kafka.RequireOne,
		},
		topic: topic,
		log:   log,
	}
}

func (b *Bus) Close() error {
	if b.writer == nil {
		return nil
	}
	return b.writer.Close()
}

// Publish appends one domain event. The caller's aggregateID becomes the
// Kafka message key so a consumer partitioning by aggregate sees
// ordered delivery for that aggregate (spec §5's ordering guarantee).
func (b *Bus) Publish(ctx context.Context, eventType domain.EventType, aggregateID string, payload map[string]any) error {
	evt := domain.Event{
		EventID:     uuid.NewString(),
		Type:        eventType,
		OccurredAt:  time.Now().UTC(),
		AggregateID: aggregateID,
		Payload:     payload,
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return b.writer.WriteMessages(ctx, kafka.Message{
		Topic: b.topic,
		Key:   []byte(aggregateID),
		Value: data,
		Time:  evt.OccurredAt,
	})
}

// PublishWithRetry calls Publish up to maxRetries times, sleeping
// (attempt+1)*100ms after each failed attempt, and returns the last error
// if every attempt fails. It retries on any error, not only Transient ones.
func (b *Bus) PublishWithRetry(ctx context.Context, eventType domain.EventType, aggregateID string, payload map[string]any, maxRetries int) error {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if err := b.Publish(ctx, eventType, aggregateID, payload); err == nil {
			return nil
		} else {
			lastErr = err
			b.log.Warnw("event publish failed, retrying", "type", eventType, "attempt", attempt+1, "err", err)
		}
		time.Sleep(time.Duration(attempt+1) * 100 * time.Millisecond)
	}
	return lastErr
}
