package order

import (
	"context"
	"time"

	"github.com/altis-air/altis-retail-engine/internal/apperr"
	"github.com/altis-air/altis-retail-engine/internal/domain"
	"github.com/google/uuid"
)

// Disrupt implements the airline-initiated counterpart to
// modifyOrder's customer-initiated change: affected items are
// refunded with a disruption_reason ledger entry and, when a
// replacement item is supplied, the replacement is appended at zero
// cost (involuntary re-accommodation is not charged to the traveler).
// Grounded on original_source/altis-order/src/disruption.rs's
// DisruptionManager, reusing AddItem/RefundItem's machinery instead of
// a parallel status (Protected/Reaccommodated in the original) since
// that machinery already does "remove one item, add another, ledger
// the delta".
func (e *Engine) Disrupt(ctx context.Context, orderID string, affectedItemIDs []string, replacement *domain.OrderItem, reason string, now time.Time) (*domain.Order, error) {
	order, err := e.repo.GetByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusProposed && order.Status != domain.OrderStatusPaid {
		return nil, apperr.Wrap(apperr.KindInvalidTransition, "order is not open for disruption handling", apperr.ErrInvalidTransition)
	}

	for _, itemID := range affectedItemIDs {
		var affected *domain.OrderItem
		for i := range order.Items {
			if order.Items[i].ItemID == itemID {
				affected = &order.Items[i]
				break
			}
		}
		if affected == nil {
			continue
		}
		if err := e.repo.RefundItem(ctx, orderID, itemID); err != nil {
			return nil, err
		}
		if ledgerErr := e.ledger.Append(ctx, domain.LedgerEntry{
			EntryID: uuid.NewString(), OrderID: orderID, ItemID: itemID,
			Kind: domain.LedgerEntryKindAdjustment, Amount: affected.UnitPrice.Mul(affected.Quantity),
			Reason: "disruption_reason:" + reason, CreatedAt: now,
		}); ledgerErr != nil {
			e.log.Warnw("failed to append disruption ledger entry", "order_id", orderID, "item_id", itemID, "err", ledgerErr)
		}
	}

	if replacement != nil {
		replacement.UnitPrice = 0
		replacement.ItemID = uuid.NewString()
		replacement.OrderID = orderID
		replacement.Status = domain.OrderItemStatusActive
		if err := e.repo.AppendItem(ctx, orderID, *replacement); err != nil {
			return nil, err
		}
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
