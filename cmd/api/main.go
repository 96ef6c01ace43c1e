package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/altis-air/altis-retail-engine/internal/cache"
	"github.com/altis-air/altis-retail-engine/internal/config"
	"github.com/altis-air/altis-retail-engine/internal/events"
	"github.com/altis-air/altis-retail-engine/internal/hold"
	"github.com/altis-air/altis-retail-engine/internal/inventory"
	"github.com/altis-air/altis-retail-engine/internal/logging"
	"github.com/altis-air/altis-retail-engine/internal/offer"
	"github.com/altis-air/altis-retail-engine/internal/order"
	"github.com/altis-air/altis-retail-engine/internal/payment"
	"github.com/altis-air/altis-retail-engine/internal/pricing"
	"github.com/altis-air/altis-retail-engine/internal/rules"
	"github.com/altis-air/altis-retail-engine/internal/store"
	transporthttp "github.com/altis-air/altis-retail-engine/internal/transport/http"
)

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
	productRepo := store.NewProductRepository(pool)
	ruleRepo := store.NewRuleRepository(pool)
	orderRepo := store.NewOrderRepository(pool)
	ledgerRepo := store.NewLedgerRepository(pool)
	offerMirror := store.NewOfferMirror(pool, sugar)

	inventoryIndex := inventory.New(redisClient, flightRepo, sugar)
	pricingEngine := pricing.New(pricing.Config{
		DemandMinMultiplier: cfg.Pricing.DemandMinMultiplier,
		DemandMaxMultiplier: cfg.Pricing.DemandMaxMultiplier,
		BundleDiscount:      cfg.Pricing.BundleDiscount,
	})
	ruleStore := rules.New(ruleRepo, time.Duration(cfg.Rules.RefreshSeconds)*time.Second, sugar)

	offerStore := offer.NewStore(redisClient, offerMirror, cfg.Hold.OfferTTL(), sugar)
	offerGenerator := offer.NewGenerator(flightRepo, productRepo, inventoryIndex, ruleStore, pricingEngine, sugar)

	holdManager := hold.New(inventoryIndex, offerStore, orderRepo, eventBus, cfg.Hold.OrderHoldTTL(), cfg.Hold.SeatSubHoldTTL(), sugar)
	paymentAdapter := payment.NewFake()
	orderEngine := order.New(orderRepo, holdManager, ledgerRepo, eventBus, paymentAdapter, sugar)

	searchService := offer.NewSearchService(offerGenerator, offerStore, eventBus, sugar)

	handler := transporthttp.NewHandler(searchService, holdManager, orderEngine, orderRepo)
	router := transporthttp.NewRouter(handler)

	httpServer := &http.Server{
		Addr:    cfg.HTTP.Address,
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() { errCh <- httpServer.ListenAndServe() }()

	select {
	case err := <-errCh:
		log.Fatalf("server error: %v", err)
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			log.Fatalf("shutdown http server: %v", err)
		}
	}
}

