// Package notify adapts the teacher's internal/email.Sender (a single
// Send method, fire-and-log) to consume the engine's domain.Event
// schema instead of a booking-specific event struct, for the
// consumer-side notification handler registered against EventBus.
package notify

import (
	"context"

	"github.com/altis-air/altis-retail-engine/internal/domain"
	"go.uber.org/zap"
)

type Sender struct {
	log *zap.SugaredLogger
}

func NewSender(log *zap.SugaredLogger) *Sender {
	return &Sender{log: log}
}

// Send dispatches a notification for the subset of event types a
// traveler cares about (offer accepted, order paid, order expired,
// fulfillment issued). Other event types are a silent no-op.
func (s *Sender) Send(_ context.Context, event domain.Event) error {
	switch event.Type {
	case domain.EventOfferAccepted, domain.EventOrderPaid, domain.EventOrderExpired, domain.EventFulfillmentIssued:
		s.log.Infow("notification dispatched", "type", event.Type, "aggregate_id", event.AggregateID)
	}
	return nil
}
