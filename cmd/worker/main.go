package main

import (
	"context"
	"encoding/json"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/altis-air/altis-retail-engine/internal/cache"
	"github.com/altis-air/altis-retail-engine/internal/config"
	"github.com/altis-air/altis-retail-engine/internal/domain"
	"github.com/altis-air/altis-retail-engine/internal/events"
	"github.com/altis-air/altis-retail-engine/internal/expiry"
	"github.com/altis-air/altis-retail-engine/internal/hold"
	"github.com/altis-air/altis-retail-engine/internal/inventory"
	"github.com/altis-air/altis-retail-engine/internal/logging"
	"github.com/altis-air/altis-retail-engine/internal/notify"
	"github.com/altis-air/altis-retail-engine/internal/offer"
	"github.com/altis-air/altis-retail-engine/internal/store"
	kafkaGo "github.com/segmentio/kafka-go"
)

// main wires the ExpiryWorker and a notification consumer, grounded on
// the teacher's cmd/worker/main.go (ticker-driven expiry sweep +
// Kafka consumer feeding an email.Sender), generalized from one sweep
// kind to two (orders, offers) and from a booking-specific event to
// domain.Event.
func main() {
	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	zapLogger, err := logging.New(cfg.LogEnv)
	if err != nil {
		log.Fatalf("build logger: %v", err)
	}
	defer zapLogger.Sync()
	sugar := logging.Sugar(zapLogger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := store.NewPool(ctx, cfg.Database.DSN())
	if err != nil {
		log.Fatalf("connect postgres: %v", err)
	}
	defer pool.Close()

	redisClient := cache.New(cfg.Redis)
	defer redisClient.Close()

	eventBus := events.NewBus(cfg.Kafka.Brokers, cfg.Kafka.EventsTopic, sugar)
	defer eventBus.Close()

	flightRepo := store.NewFlightRepository(pool)
	orderRepo := store.NewOrderRepository(pool)
	offerMirror := store.NewOfferMirror(pool, sugar)

	inventoryIndex := inventory.New(redisClient, flightRepo, sugar)
	offerStore := offer.NewStore(redisClient, offerMirror, cfg.Hold.OfferTTL(), sugar)
	holdManager := hold.New(inventoryIndex, offerStore, orderRepo, eventBus, cfg.Hold.OrderHoldTTL(), cfg.Hold.SeatSubHoldTTL(), sugar)

	worker := expiry.New(orderRepo, holdManager, offerStore, eventBus,
		time.Duration(cfg.Worker.SweepIntervalSeconds)*time.Second, cfg.Worker.SweepBatchSize, sugar)

	consumer := events.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic, sugar)
	defer consumer.Close()
	deduper := events.NewRedisDeduper(redisClient, 24*time.Hour)
	notifier := notify.NewSender(sugar)

	go func() {
		if err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event domain.Event
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				sugar.Errorw("decode event failed", "err", err)
				return nil
			}
			seen, err := deduper.MarkSeen(ctx, event.EventID)
			if err != nil {
				sugar.Warnw("dedup check failed, processing anyway", "event_id", event.EventID, "err", err)
			} else if seen {
				return nil
			}
			return notifier.Send(ctx, event)
		}); err != nil {
			sugar.Errorw("consumer stopped", "err", err)
		}
	}()

	worker.Run(ctx)
}
