package order

import (
	"context"
	"testing"
	"time"

	"github.com/altis-air/altis-retail-engine/internal/apperr"
	"github.com/altis-air/altis-retail-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func disruptableOrder() *domain.Order {
	return &domain.Order{
		OrderID: "order-1",
		Status:  domain.OrderStatusPaid,
		Items: []domain.OrderItem{
			{ItemID: "item-1", ProductType: domain.ProductTypeFlight, Status: domain.OrderItemStatusActive, UnitPrice: 10000, Quantity: 1},
			{ItemID: "item-2", ProductType: domain.ProductTypeMeal, Status: domain.OrderItemStatusActive, UnitPrice: 500, Quantity: 1},
		},
	}
}

func TestEngine_Disrupt_RefundsAffectedItemsWithLedgerReason(t *testing.T) {
	repo := &MockRepository{}
	ledger := &MockLedgerWriter{}
	order := disruptableOrder()
	now := time.Now()

	repo.On("GetByID", mock.Anything, "order-1").Return(order, nil).Once()
	repo.On("RefundItem", mock.Anything, "order-1", "item-1").Return(nil).Once()
	ledger.On("Append", mock.Anything, mock.MatchedBy(func(e domain.LedgerEntry) bool {
		return e.Kind == domain.LedgerEntryKindAdjustment && e.ItemID == "item-1" && e.Reason == "disruption_reason:flight_cancelled"
	})).Return(nil).Once()

	after := &domain.Order{
		OrderID: "order-1",
		Items: []domain.OrderItem{
			{ItemID: "item-1", Status: domain.OrderItemStatusRefunded, UnitPrice: 10000, Quantity: 1},
			{ItemID: "item-2", Status: domain.OrderItemStatusActive, UnitPrice: 500, Quantity: 1},
		},
	}
	repo.On("GetByID", mock.Anything, "order-1").Return(after, nil).Once()
	repo.On("SetTotal", mock.Anything, "order-1", domain.Money(500)).Return(nil).Once()

	e := newTestEngine(repo, ledger, &MockEventPublisher{}, &MockPaymentAdapter{}, &MockInventoryReserver{})
	updated, err := e.Disrupt(context.Background(), "order-1", []string{"item-1"}, nil, "flight_cancelled", now)

	require.NoError(t, err)
	assert.Equal(t, domain.Money(500), updated.Total)
	ledger.AssertExpectations(t)
}

func TestEngine_Disrupt_AppendsZeroCostReplacement(t *testing.T) {
	repo := &MockRepository{}
	ledger := &MockLedgerWriter{}
	order := disruptableOrder()
	now := time.Now()

	repo.On("GetByID", mock.Anything, "order-1").Return(order, nil).Once()
	repo.On("RefundItem", mock.Anything, "order-1", "item-1").Return(nil).Once()
	ledger.On("Append", mock.Anything, mock.Anything).Return(nil).Once()
	repo.On("AppendItem", mock.Anything, "order-1", mock.MatchedBy(func(it domain.OrderItem) bool {
		return it.UnitPrice == 0 && it.Status == domain.OrderItemStatusActive
	})).Return(nil).Once()

	after := &domain.Order{
		OrderID: "order-1",
		Items: []domain.OrderItem{
			{ItemID: "item-1", Status: domain.OrderItemStatusRefunded, UnitPrice: 10000, Quantity: 1},
			{ItemID: "item-2", Status: domain.OrderItemStatusActive, UnitPrice: 500, Quantity: 1},
			{ItemID: "item-3", Status: domain.OrderItemStatusActive, UnitPrice: 0, Quantity: 1},
		},
	}
	repo.On("GetByID", mock.Anything, "order-1").Return(after, nil).Once()
	repo.On("SetTotal", mock.Anything, "order-1", domain.Money(500)).Return(nil).Once()

	replacement := &domain.OrderItem{ProductID: "replacement-flight", ProductType: domain.ProductTypeFlight, UnitPrice: 9000, Quantity: 1}

	e := newTestEngine(repo, ledger, &MockEventPublisher{}, &MockPaymentAdapter{}, &MockInventoryReserver{})
	updated, err := e.Disrupt(context.Background(), "order-1", []string{"item-1"}, replacement, "flight_cancelled", now)

	require.NoError(t, err)
	assert.Equal(t, domain.Money(500), updated.Total)
	repo.AssertExpectations(t)
}

func TestEngine_Disrupt_UnknownAffectedItemIDIsIgnored(t *testing.T) {
	repo := &MockRepository{}
	ledger := &MockLedgerWriter{}
	order := disruptableOrder()

	repo.On("GetByID", mock.Anything, "order-1").Return(order, nil).Once()
	repo.On("GetByID", mock.Anything, "order-1").Return(order, nil).Once()
	repo.On("SetTotal", mock.Anything, "order-1", domain.Money(10500)).Return(nil).Once()

	e := newTestEngine(repo, ledger, &MockEventPublisher{}, &MockPaymentAdapter{}, &MockInventoryReserver{})
	_, err := e.Disrupt(context.Background(), "order-1", []string{"does-not-exist"}, nil, "reason", time.Now())

	require.NoError(t, err)
	repo.AssertNotCalled(t, "RefundItem", mock.Anything, mock.Anything, mock.Anything)
	ledger.AssertNotCalled(t, "Append", mock.Anything, mock.Anything)
}

func TestEngine_Disrupt_InvalidFromCancelledOrder(t *testing.T) {
	repo := &MockRepository{}
	order := disruptableOrder()
	order.Status = domain.OrderStatusCancelled
	repo.On("GetByID", mock.Anything, "order-1").Return(order, nil).Once()

	e := newTestEngine(repo, &MockLedgerWriter{}, &MockEventPublisher{}, &MockPaymentAdapter{}, &MockInventoryReserver{})
	_, err := e.Disrupt(context.Background(), "order-1", []string{"item-1"}, nil, "reason", time.Now())

	assert.True(t, apperr.Is(err, apperr.KindInvalidTransition))
}
