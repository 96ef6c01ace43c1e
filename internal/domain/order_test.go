package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOrder_ActiveTotal_IgnoresRefundedAndCancelledItems(t *testing.T) {
	o := Order{Items: []OrderItem{
		{UnitPrice: 10000, Quantity: 1, Status: OrderItemStatusActive},
		{UnitPrice: 500, Quantity: 2, Status: OrderItemStatusRefunded},
		{UnitPrice: 200, Quantity: 1, Status: OrderItemStatusCancelled},
	}}
	assert.Equal(t, Money(10000), o.ActiveTotal())
}

func TestOrder_ConsumedFulfillmentCount(t *testing.T) {
	now := time.Now()
	o := Order{Fulfillment: []Fulfillment{
		{FulfillmentID: "f1", ConsumedAt: &now},
		{FulfillmentID: "f2"},
		{FulfillmentID: "f3", ConsumedAt: &now},
	}}
	assert.Equal(t, 2, o.ConsumedFulfillmentCount())
}

func TestOrder_ActiveItemQuantity(t *testing.T) {
	o := Order{Items: []OrderItem{
		{Quantity: 2, Status: OrderItemStatusActive},
		{Quantity: 3, Status: OrderItemStatusRefunded},
		{Quantity: 1, Status: OrderItemStatusActive},
	}}
	assert.Equal(t, 3, o.ActiveItemQuantity())
}
