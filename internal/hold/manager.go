// Package hold implements the HoldManager of spec §4.5: the two-stage
// hold model bridging the transient offer quote and the durable,
// TTL-bounded order inventory hold. Grounded on the teacher's
// booking_service.go Reserve/Release pair (SetNX seat lock + single
// compensation on failure), generalized to N flights/seats via the
// compensations stack in compensate.go.
package hold

import (
	"context"
	"time"

	"github.com/altis-air/altis-retail-engine/internal/apperr"
	"github.com/altis-air/altis-retail-engine/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// InventoryReserver is the slice of InventoryIndex HoldManager drives.
type InventoryReserver interface {
	TryReserve(ctx context.Context, flightID string, n int) (domain.ReservationTicket, error)
	Release(ctx context.Context, ticket domain.ReservationTicket) error
	HoldSeat(ctx context.Context, flightID, seat, orderID string, ttl time.Duration) error
	ReleaseSeat(ctx context.Context, flightID, seat, orderID string) error
}

// OfferAccepter is the slice of offer.Store HoldManager drives.
type OfferAccepter interface {
	Get(ctx context.Context, offerID string) (*domain.Offer, error)
	AcceptCAS(ctx context.Context, offerID string, now time.Time) (*domain.Offer, error)
}

// OrderCreator is the slice of store.OrderRepository HoldManager drives.
type OrderCreator interface {
	Create(ctx context.Context, order *domain.Order) error
	Delete(ctx context.Context, orderID string) error
}

// EventPublisher is the slice of events.Bus HoldManager drives.
type EventPublisher interface {
	Publish(ctx context.Context, eventType domain.EventType, aggregateID string, payload map[string]any) error
}

type Manager struct {
	inventory   InventoryReserver
	offers      OfferAccepter
	orders      OrderCreator
	events      EventPublisher
	orderHoldTTL   time.Duration
	seatSubHoldTTL time.Duration
	log         *zap.SugaredLogger
}

func New(inventory InventoryReserver, offers OfferAccepter, orders OrderCreator, events EventPublisher, orderHoldTTL, seatSubHoldTTL time.Duration, log *zap.SugaredLogger) *Manager {
	return &Manager{
		inventory:      inventory,
		offers:         offers,
		orders:         orders,
		events:         events,
		orderHoldTTL:   orderHoldTTL,
		seatSubHoldTTL: seatSubHoldTTL,
		log:            log,
	}
}

// AcceptOffer implements spec §4.5 stage 2, all-or-nothing: reserve
// every flight item, hold every pre-selected seat, write the order as
// PROPOSED, then mark the offer ACCEPTED. Any failure along the way
// unwinds everything acquired so far via the compensations stack.
func (m *Manager) AcceptOffer(ctx context.Context, offerID string, contact domain.Contact, travelers []domain.Traveler, now time.Time) (*domain.Order, error) {
	offer, err := m.offers.Get(ctx, offerID)
	if err != nil {
		return nil, err
	}
	if offer.IsExpired(now) {
		return nil, apperr.Wrap(apperr.KindExpired, "offer expired", apperr.ErrOfferExpired)
	}
	if offer.Status != domain.OfferStatusActive {
		return nil, apperr.Wrap(apperr.KindInvalidTransition, "offer already accepted or terminal", apperr.ErrOfferAlreadyAccepted)
	}

	orderID := uuid.NewString()
	seatTTL := m.seatSubHoldTTL
	if seatTTL > m.orderHoldTTL {
		seatTTL = m.orderHoldTTL
	}

	comp := &compensations{}
	defer func() {
		if err != nil {
			comp.runAll()
		}
	}()

	items := make([]domain.OrderItem, len(offer.Items))
	for i, oi := range offer.Items {
		item := domain.OrderItem{
			ItemID:      uuid.NewString(),
			OrderID:     orderID,
			ProductID:   oi.ProductID,
			ProductType: oi.ProductType,
			UnitPrice:   oi.UnitPrice,
			Quantity:    oi.Quantity,
			Status:      domain.OrderItemStatusActive,
			FlightID:    oi.FlightID,
			SeatNumber:  oi.SeatNumber,
			Metadata:    oi.Metadata,
		}

		if oi.FlightID != "" {
			var ticket domain.ReservationTicket
			ticket, err = m.inventory.TryReserve(ctx, oi.FlightID, oi.Quantity)
			if err != nil {
				return nil, err
			}
			item.ReservationTickets = append(item.ReservationTickets, ticket.Ticket)
			comp.add(func() { _ = m.inventory.Release(context.WithoutCancel(ctx), ticket) })
		}

		if oi.FlightID != "" && oi.SeatNumber != "" {
			if err = m.inventory.HoldSeat(ctx, oi.FlightID, oi.SeatNumber, orderID, seatTTL); err != nil {
				return nil, err
			}
			flightID, seat := oi.FlightID, oi.SeatNumber
			comp.add(func() { _ = m.inventory.ReleaseSeat(context.WithoutCancel(ctx), flightID, seat, orderID) })
		}

		items[i] = item
	}

	expiresAt := now.Add(m.orderHoldTTL)
	order := &domain.Order{
		OrderID:       orderID,
		PrincipalID:   offer.PrincipalID,
		AirlineID:     offer.AirlineID,
		OriginOfferID: offer.OfferID,
		Status:        domain.OrderStatusProposed,
		Items:         items,
		Travelers:     travelers,
		Contact:       contact,
		ExpiresAt:     &expiresAt,
	}
	order.Total = order.ActiveTotal()

	if err = m.orders.Create(ctx, order); err != nil {
		return nil, err
	}
	comp.add(func() { _ = m.orders.Delete(context.WithoutCancel(ctx), orderID) })

	if _, err = m.offers.AcceptCAS(ctx, offerID, now); err != nil {
		return nil, err
	}

	if pubErr := m.events.Publish(ctx, domain.EventOrderCreated, orderID, map[string]any{"offer_id": offerID, "status": string(order.Status)}); pubErr != nil {
		m.log.Warnw("failed to publish order.created", "order_id", orderID, "err", pubErr)
	}

	return order, nil
}

// Release is the compensating counterpart for every item on an order,
// invoked by OrderEngine on EXPIRED/CANCELLED and by ExpiryWorker.
// Idempotent: InventoryIndex.Release and ReleaseSeat tolerate repeated
// calls with the same ticket/owner.
func (m *Manager) Release(ctx context.Context, order domain.Order) {
	for _, item := range order.Items {
		for _, ticketID := range item.ReservationTickets {
			ticket := domain.ReservationTicket{Ticket: ticketID, FlightID: item.FlightID, Quantity: item.Quantity}
			if err := m.inventory.Release(ctx, ticket); err != nil {
				m.log.Warnw("failed to release inventory reservation", "order_id", order.OrderID, "item_id", item.ItemID, "err", err)
			}
		}
		if item.FlightID != "" && item.SeatNumber != "" {
			if err := m.inventory.ReleaseSeat(ctx, item.FlightID, item.SeatNumber, order.OrderID); err != nil {
				m.log.Warnw("failed to release seat hold", "order_id", order.OrderID, "item_id", item.ItemID, "err", err)
			}
		}
	}
}

// ChangeSeat implements the customization path: it releases the old seat
// hold (when oldSeat is set) and holds newSeat for
// min(seatSubHoldTTL, orderHoldTTL). It does not extend the order's
// expires_at or its flight reservations, and the seat TTL is not derived
// from the order's remaining hold time. If the new hold fails, the old
// seat has already been released.
func (m *Manager) ChangeSeat(ctx context.Context, orderID, flightID, oldSeat, newSeat string) error {
	if oldSeat != "" {
		if err := m.inventory.ReleaseSeat(ctx, flightID, oldSeat, orderID); err != nil {
			return err
		}
	}
	seatTTL := m.seatSubHoldTTL
	if seatTTL > m.orderHoldTTL {
		seatTTL = m.orderHoldTTL
	}
	return m.inventory.HoldSeat(ctx, flightID, newSeat, orderID, seatTTL)
}
