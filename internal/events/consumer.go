package events

import (
	"context"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type Consumer struct {
	reader *kafka.Reader
	log    *zap.SugaredLogger
}

func NewConsumer(brokers []string, groupID, topic string, log *zap.SugaredLogger) *Consumer {
	return &Consumer{
		reader: kafka.NewReader(kafka.ReaderConfig{
			Brokers:           brokers,
			GroupID:           groupID,
			Topic:             topic,
			HeartbeatInterval: 3 * time.Second,
			SessionTimeout:    30 * time.Second,
		}),
		log: log,
	}
}

func (c *Consumer) Close() error {
	if c == nil || c.reader == nil {
		return nil
	}
	return c.reader.Close()
}

// Consume dispatches each message to handler, stopping on the first
// handler error or context cancellation. Handlers are expected to dedup
// on event_id themselves (at-least-once delivery, spec §4.8).
func (c *Consumer) Consume(ctx context.Context, handler func(context.Context, kafka.Message) error) error {
	for {
		msg, err := c.reader.ReadMessage(ctx)
		if err != nil {
			return err
		}
		if err := handler(ctx, msg); err != nil {
			c.log.Errorw("event handler failed", "err", err)
			return err
		}
	}
}

// Deduper marks event ids as seen so at-least-once delivery can be
// treated as exactly-once by consumers (spec §4.8).
type Deduper interface {
	MarkSeen(ctx context.Context, eventID string) (alreadySeen bool, err error)
}
