package domain

import "time"

type EventType string

const (
	EventOfferGenerated       EventType = "offer.generated"
	EventOfferAccepted        EventType = "offer.accepted"
	EventOfferExpired         EventType = "offer.expired"
	EventOrderCreated         EventType = "order.created"
	EventOrderPaymentPending  EventType = "order.payment_pending"
	EventOrderPaid            EventType = "order.paid"
	EventOrderExpired         EventType = "order.expired"
	EventOrderCancelled       EventType = "order.cancelled"
	EventOrderItemRefunded    EventType = "order.item_refunded"
	EventFulfillmentIssued    EventType = "fulfillment.issued"
	EventFulfillmentConsumed  EventType = "fulfillment.consumed"
	EventRulesInvalidated     EventType = "rules.invalidated"
)

// Event is the append-only publication schema. Delivery is at-least-once;
// consumers must dedup on EventID.
type Event struct {
	EventID     string
	Type        EventType
	OccurredAt  time.Time
	AggregateID string
	Payload     map[string]any
}
