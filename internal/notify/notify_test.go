package notify

import (
	"context"
	"testing"

	"github.com/altis-air/altis-retail-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSender_Send_DispatchesForNotifiableEventTypes(t *testing.T) {
	s := NewSender(zap.NewNop().Sugar())

	types := []domain.EventType{
		domain.EventOfferAccepted,
		domain.EventOrderPaid,
		domain.EventOrderExpired,
		domain.EventFulfillmentIssued,
	}
	for _, et := range types {
		err := s.Send(context.Background(), domain.Event{Type: et, AggregateID: "agg-1"})
		require.NoError(t, err)
	}
}

func TestSender_Send_NoOpForOtherEventTypes(t *testing.T) {
	s := NewSender(zap.NewNop().Sugar())

	types := []domain.EventType{
		domain.EventOfferGenerated,
		domain.EventOrderCreated,
		domain.EventOrderPaymentPending,
		domain.EventOrderCancelled,
		domain.EventOrderItemRefunded,
		domain.EventFulfillmentConsumed,
		domain.EventRulesInvalidated,
	}
	for _, et := range types {
		err := s.Send(context.Background(), domain.Event{Type: et, AggregateID: "agg-1"})
		assert.NoError(t, err)
	}
}
