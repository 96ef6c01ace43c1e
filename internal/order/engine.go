// Package order implements the OrderEngine state machine of spec §4.6,
// grounded on the teacher's booking_service.go (optimistic-lock status
// transitions, compensating release on failure) generalized from a
// single PENDING->CONFIRMED/CANCELLED booking to the full
// PROPOSED/PAYMENT_PENDING/PAID/FULFILLED/ARCHIVED/CANCELLED/EXPIRED
// machine.
package order

import (
	"context"
	"time"

	"github.com/altis-air/altis-retail-engine/internal/apperr"
	"github.com/altis-air/altis-retail-engine/internal/domain"
	"github.com/altis-air/altis-retail-engine/internal/hold"
	"github.com/altis-air/altis-retail-engine/internal/payment"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Repository is the slice of store.OrderRepository OrderEngine drives.
type Repository interface {
	GetByID(ctx context.Context, orderID string) (*domain.Order, error)
	CASUpdateStatus(ctx context.Context, orderID string, expectedVersion int64, newStatus domain.OrderStatus, expiresAt *time.Time, paymentRef string) (*domain.Order, error)
	AppendItem(ctx context.Context, orderID string, item domain.OrderItem) error
	RefundItem(ctx context.Context, orderID, itemID string) error
	SetTotal(ctx context.Context, orderID string, total domain.Money) error
	InsertFulfillments(ctx context.Context, fulfillments []domain.Fulfillment) error
	MarkConsumed(ctx context.Context, fulfillmentID string, at time.Time) error
}

// LedgerWriter is the slice of store.LedgerRepository OrderEngine drives.
type LedgerWriter interface {
	Append(ctx context.Context, entry domain.LedgerEntry) error
}

type EventPublisher interface {
	Publish(ctx context.Context, eventType domain.EventType, aggregateID string, payload map[string]any) error
}

type Engine struct {
	repo    Repository
	holds   *hold.Manager
	ledger  LedgerWriter
	events  EventPublisher
	payment payment.Adapter
	log     *zap.SugaredLogger
}

func New(repo Repository, holds *hold.Manager, ledger LedgerWriter, events EventPublisher, paymentAdapter payment.Adapter, log *zap.SugaredLogger) *Engine {
	return &Engine{repo: repo, holds: holds, ledger: ledger, events: events, payment: paymentAdapter, log: log}
}

func (e *Engine) requireOwner(order *domain.Order, principalID string) error {
	if order.PrincipalID != principalID {
		return apperr.Wrap(apperr.KindNotOwner, "principal does not own this order", apperr.ErrNotOwner)
	}
	return nil
}

// StartPayment implements PROPOSED -> PAYMENT_PENDING: only valid from
// PROPOSED with time remaining (spec §4.6's lock-in). expires_at is
// frozen as-is so a failed payment can restore the original deadline.
func (e *Engine) StartPayment(ctx context.Context, orderID, principalID string, now time.Time) (*domain.Order, error) {
	order, err := e.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := e.requireOwner(order, principalID); err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusProposed {
		return nil, apperr.Wrap(apperr.KindInvalidTransition, "order is not awaiting acceptance", apperr.ErrInvalidTransition)
	}
	if order.ExpiresAt == nil || !now.Before(*order.ExpiresAt) {
		return nil, apperr.Wrap(apperr.KindExpired, "order hold expired", apperr.ErrOrderExpired)
	}

	updated, err := e.repo.CASUpdateStatus(ctx, orderID, order.Version, domain.OrderStatusPaymentPending, order.ExpiresAt, "")
	if err != nil {
		return nil, err
	}
	if pubErr := e.events.Publish(ctx, domain.EventOrderPaymentPending, orderID, nil); pubErr != nil {
		e.log.Warnw("failed to publish order.payment_pending", "order_id", orderID, "err", pubErr)
	}
	return updated, nil
}

// ConfirmPayment implements PAYMENT_PENDING -> PAID: calls the
// PaymentAdapter, and on success persists payment_ref, nulls
// expires_at, generates fulfillment records, and writes
// REVENUE_RECOGNIZED ledger entries per active item. Any error from
// Charge is handed to DeclinePayment, whose result is returned.
func (e *Engine) ConfirmPayment(ctx context.Context, orderID, principalID, paymentToken string, now time.Time) (*domain.Order, error) {
	order, err := e.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := e.requireOwner(order, principalID); err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusPaymentPending {
		return nil, apperr.Wrap(apperr.KindInvalidTransition, "order is not awaiting payment", apperr.ErrInvalidTransition)
	}

	ref, chargeErr := e.payment.Charge(ctx, orderID, order.ActiveTotal(), paymentToken)
	if chargeErr != nil {
		return e.DeclinePayment(ctx, orderID, principalID, now)
	}

	updated, err := e.repo.CASUpdateStatus(ctx, orderID, order.Version, domain.OrderStatusPaid, nil, ref)
	if err != nil {
		return nil, err
	}

	fulfillments := make([]domain.Fulfillment, 0, len(updated.Items))
	for _, item := range updated.Items {
		if item.Status != domain.OrderItemStatusActive {
			continue
		}
		fulfillments = append(fulfillments, domain.Fulfillment{
			FulfillmentID: uuid.NewString(),
			OrderID:       orderID,
			ItemID:        item.ItemID,
			Type:          domain.FulfillmentTypeBarcode,
			Barcode:       uuid.NewString(),
		})
		if ledgerErr := e.ledger.Append(ctx, domain.LedgerEntry{
			EntryID: uuid.NewString(), OrderID: orderID, ItemID: item.ItemID,
			Kind: domain.LedgerEntryKindRevenueRecognized, Amount: item.UnitPrice.Mul(item.Quantity), CreatedAt: now,
		}); ledgerErr != nil {
			e.log.Warnw("failed to append revenue ledger entry", "order_id", orderID, "item_id", item.ItemID, "err", ledgerErr)
		}
	}
	if err := e.repo.InsertFulfillments(ctx, fulfillments); err != nil {
		return nil, err
	}
	updated.Fulfillment = fulfillments

	if pubErr := e.events.Publish(ctx, domain.EventOrderPaid, orderID, map[string]any{"payment_ref": ref}); pubErr != nil {
		e.log.Warnw("failed to publish order.paid", "order_id", orderID, "err", pubErr)
	}
	for _, f := range fulfillments {
		if pubErr := e.events.Publish(ctx, domain.EventFulfillmentIssued, f.FulfillmentID, map[string]any{"order_id": orderID, "item_id": f.ItemID}); pubErr != nil {
			e.log.Warnw("failed to publish fulfillment.issued", "fulfillment_id", f.FulfillmentID, "err", pubErr)
		}
	}
	return updated, nil
}

// DeclinePayment implements the decline branch: PAYMENT_PENDING ->
// PROPOSED if the original hold window hasn't lapsed, else -> EXPIRED
// with inventory release (spec §4.6).
func (e *Engine) DeclinePayment(ctx context.Context, orderID, principalID string, now time.Time) (*domain.Order, error) {
	order, err := e.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := e.requireOwner(order, principalID); err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusPaymentPending {
		return nil, apperr.Wrap(apperr.KindInvalidTransition, "order is not awaiting payment", apperr.ErrInvalidTransition)
	}

	if order.ExpiresAt != nil && now.Before(*order.ExpiresAt) {
		updated, err := e.repo.CASUpdateStatus(ctx, orderID, order.Version, domain.OrderStatusProposed, order.ExpiresAt, "")
		if err != nil {
			return nil, err
		}
		return updated, apperr.Wrap(apperr.KindPaymentDeclined, "payment declined", nil)
	}

	updated, err := e.repo.CASUpdateStatus(ctx, orderID, order.Version, domain.OrderStatusExpired, nil, "")
	if err != nil {
		return nil, err
	}
	e.holds.Release(ctx, *updated)
	if pubErr := e.events.Publish(ctx, domain.EventOrderExpired, orderID, nil); pubErr != nil {
		e.log.Warnw("failed to publish order.expired", "order_id", orderID, "err", pubErr)
	}
	return updated, apperr.Wrap(apperr.KindExpired, "order hold expired during payment", apperr.ErrOrderExpired)
}

// CancelOrder implements the user_cancel branch from PROPOSED,
// releasing inventory the same way expiry does.
func (e *Engine) CancelOrder(ctx context.Context, orderID, principalID string) (*domain.Order, error) {
	order, err := e.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := e.requireOwner(order, principalID); err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusProposed {
		return nil, apperr.Wrap(apperr.KindInvalidTransition, "order cannot be cancelled from this state", apperr.ErrInvalidTransition)
	}
	updated, err := e.repo.CASUpdateStatus(ctx, orderID, order.Version, domain.OrderStatusCancelled, nil, "")
	if err != nil {
		return nil, err
	}
	e.holds.Release(ctx, *updated)
	if pubErr := e.events.Publish(ctx, domain.EventOrderCancelled, orderID, nil); pubErr != nil {
		e.log.Warnw("failed to publish order.cancelled", "order_id", orderID, "err", pubErr)
	}
	return updated, nil
}

// Fulfill transitions PAID -> FULFILLED once every active item has
// been materially delivered (I4/P7: consumed fulfillment count never
// exceeds active item quantity).
func (e *Engine) Fulfill(ctx context.Context, orderID, principalID string) (*domain.Order, error) {
	order, err := e.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := e.requireOwner(order, principalID); err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusPaid {
		return nil, apperr.Wrap(apperr.KindInvalidTransition, "order is not paid", apperr.ErrInvalidTransition)
	}
	if order.ConsumedFulfillmentCount() < order.ActiveItemQuantity() {
		return nil, apperr.New(apperr.KindInvalidTransition, "not all items have been delivered")
	}
	return e.repo.CASUpdateStatus(ctx, orderID, order.Version, domain.OrderStatusFulfilled, nil, "")
}

// ConsumeFulfillment records a barcode scan, gated against double
// consumption by the repository's conditional update.
func (e *Engine) ConsumeFulfillment(ctx context.Context, fulfillmentID string, at time.Time) error {
	if err := e.repo.MarkConsumed(ctx, fulfillmentID, at); err != nil {
		return err
	}
	if pubErr := e.events.Publish(ctx, domain.EventFulfillmentConsumed, fulfillmentID, nil); pubErr != nil {
		e.log.Warnw("failed to publish fulfillment.consumed", "fulfillment_id", fulfillmentID, "err", pubErr)
	}
	return nil
}

// AddItem implements the additive half of spec §4.6's modification
// path: append a freshly-priced item to an order still open for
// modification (PROPOSED, or PAID under policy).
func (e *Engine) AddItem(ctx context.Context, orderID, principalID string, item domain.OrderItem) (*domain.Order, error) {
	order, err := e.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := e.requireOwner(order, principalID); err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusProposed && order.Status != domain.OrderStatusPaid {
		return nil, apperr.Wrap(apperr.KindInvalidTransition, "order is not open for modification", apperr.ErrInvalidTransition)
	}
	item.ItemID = uuid.NewString()
	item.OrderID = orderID
	item.Status = domain.OrderItemStatusActive
	if err := e.repo.AppendItem(ctx, orderID, item); err != nil {
		return nil, err
	}
	updated, err := e.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := e.repo.SetTotal(ctx, orderID, updated.ActiveTotal()); err != nil {
		return nil, err
	}
	updated.Total = updated.ActiveTotal()
	return updated, nil
}

// RefundItem implements the subtractive half: mark an active item
// REFUNDED and record a ledger REFUND entry. Structurally zero-cost —
// the order is mutated in place, no re-ticketing.
func (e *Engine) RefundItem(ctx context.Context, orderID, principalID, itemID string, now time.Time) (*domain.Order, error) {
	order, err := e.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := e.requireOwner(order, principalID); err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusProposed && order.Status != domain.OrderStatusPaid {
		return nil, apperr.Wrap(apperr.KindInvalidTransition, "order is not open for modification", apperr.ErrInvalidTransition)
	}
	var refunded *domain.OrderItem
	for i := range order.Items {
		if order.Items[i].ItemID == itemID {
			refunded = &order.Items[i]
			break
		}
	}
	if refunded == nil {
		return nil, apperr.New(apperr.KindNotFound, "item not found on order")
	}
	if err := e.repo.RefundItem(ctx, orderID, itemID); err != nil {
		return nil, err
	}
	if ledgerErr := e.ledger.Append(ctx, domain.LedgerEntry{
		EntryID: uuid.NewString(), OrderID: orderID, ItemID: itemID,
		Kind: domain.LedgerEntryKindRefund, Amount: refunded.UnitPrice.Mul(refunded.Quantity), CreatedAt: now,
	}); ledgerErr != nil {
		e.log.Warnw("failed to append refund ledger entry", "order_id", orderID, "item_id", itemID, "err", ledgerErr)
	}
	updated, err := e.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if err := e.repo.SetTotal(ctx, orderID, updated.ActiveTotal()); err != nil {
		return nil, err
	}
	updated.Total = updated.ActiveTotal()
	if pubErr := e.events.Publish(ctx, domain.EventOrderItemRefunded, orderID, map[string]any{"item_id": itemID}); pubErr != nil {
		e.log.Warnw("failed to publish order.item_refunded", "order_id", orderID, "err", pubErr)
	}
	return updated, nil
}
