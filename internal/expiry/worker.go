// Package expiry implements the ExpiryWorker of spec §4.7: a
// ticker-driven sweep over lapsed order holds and offer quotes.
// Grounded on the teacher's cmd/worker/main.go expiration ticker,
// generalized from a single ExpirePendingBookings sweep to the two
// kinds spec §4.7 names (orders, offers) plus the PAYMENT_PENDING
// exclusion that is this worker's one load-bearing invariant.
package expiry

import (
	"context"
	"time"

	"github.com/altis-air/altis-retail-engine/internal/domain"
	"go.uber.org/zap"
)

// OrderSweeper is the slice of store.OrderRepository the worker drives.
type OrderSweeper interface {
	ExpirePendingBefore(ctx context.Context, deadline time.Time, limit int) ([]string, error)
	GetByID(ctx context.Context, orderID string) (*domain.Order, error)
}

// HoldReleaser is the slice of hold.Manager the worker drives.
type HoldReleaser interface {
	Release(ctx context.Context, order domain.Order)
}

// OfferSweeper is the slice of offer.Store the worker drives for the
// informational offer-expiry pass (spec §4.7 step 4). The cache TTL
// already evicts an offer's primary residence by the time this can
// observe it; this only keeps the audit mirror's status honest.
type OfferSweeper interface {
	ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]string, error)
	MarkExpired(ctx context.Context, offerIDs []string)
}

type EventPublisher interface {
	Publish(ctx context.Context, eventType domain.EventType, aggregateID string, payload map[string]any) error
}

type Worker struct {
	orders   OrderSweeper
	holds    HoldReleaser
	offers   OfferSweeper
	events   EventPublisher
	interval time.Duration
	batch    int
	log      *zap.SugaredLogger
}

func New(orders OrderSweeper, holds HoldReleaser, offers OfferSweeper, events EventPublisher, interval time.Duration, batch int, log *zap.SugaredLogger) *Worker {
	return &Worker{orders: orders, holds: holds, offers: offers, events: events, interval: interval, batch: batch, log: log}
}

// Run blocks, sweeping every interval until ctx is cancelled. The
// worker never selects PAYMENT_PENDING orders — ExpirePendingBefore
// only ever matches PROPOSED — so a payment in flight at 29:59 can
// never be raced by this loop.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			w.sweep(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (w *Worker) sweep(ctx context.Context) {
	now := time.Now().UTC()

	expiredIDs, err := w.orders.ExpirePendingBefore(ctx, now, w.batch)
	if err != nil {
		w.log.Errorw("order expiry sweep failed", "err", err)
	}
	for _, orderID := range expiredIDs {
		order, err := w.orders.GetByID(ctx, orderID)
		if err != nil {
			w.log.Errorw("failed to reload expired order for release", "order_id", orderID, "err", err)
			continue
		}
		w.holds.Release(ctx, *order)
		if pubErr := w.events.Publish(ctx, domain.EventOrderExpired, orderID, nil); pubErr != nil {
			w.log.Warnw("failed to publish order.expired", "order_id", orderID, "err", pubErr)
		}
	}
	if len(expiredIDs) > 0 {
		w.log.Infow("expired orders", "count", len(expiredIDs))
	}

	expiredOfferIDs, err := w.offers.ListExpiredActive(ctx, now, w.batch)
	if err != nil {
		w.log.Errorw("offer expiry sweep failed", "err", err)
		return
	}
	if len(expiredOfferIDs) > 0 {
		w.offers.MarkExpired(ctx, expiredOfferIDs)
		w.log.Infow("marked offers expired", "count", len(expiredOfferIDs))
	}
}
