package domain

import "time"

// OrderStatus is the state machine's set of states. See spec §4.6 for
// the full transition diagram.
type OrderStatus string

const (
	OrderStatusProposed        OrderStatus = "PROPOSED"
	OrderStatusPaymentPending  OrderStatus = "PAYMENT_PENDING"
	OrderStatusPaid            OrderStatus = "PAID"
	OrderStatusFulfilled       OrderStatus = "FULFILLED"
	OrderStatusArchived        OrderStatus = "ARCHIVED"
	OrderStatusCancelled       OrderStatus = "CANCELLED"
	OrderStatusExpired         OrderStatus = "EXPIRED"
)

type OrderItemStatus string

const (
	OrderItemStatusActive    OrderItemStatus = "ACTIVE"
	OrderItemStatusRefunded  OrderItemStatus = "REFUNDED"
	OrderItemStatusCancelled OrderItemStatus = "CANCELLED"
)

type PTC string

const (
	PTCAdult PTC = "ADT"
	PTCChild PTC = "CHD"
	PTCInfant PTC = "INF"
)

// OrderItem invariant: order.Total = sum(items where Status=ACTIVE).UnitPrice*Quantity.
type OrderItem struct {
	ItemID      string
	OrderID     string
	ProductID   string
	ProductType ProductType
	UnitPrice   Money
	Quantity    int
	Status      OrderItemStatus
	FlightID    string
	SeatNumber  string
	Metadata    map[string]any
	// ReservationTickets records what InventoryIndex.TryReserve returned
	// for this item, so releases can be replayed idempotently.
	ReservationTickets []string
}

// Traveler is unique per (OrderID, Index).
type Traveler struct {
	TravelerID string
	OrderID    string
	Index      int
	PTC        PTC
	FirstName  string
	LastName   string
	DOB        *time.Time
	Gender     *string
	DID        *string
}

type FulfillmentType string

const (
	FulfillmentTypeBarcode FulfillmentType = "BARCODE"
	FulfillmentTypeQR      FulfillmentType = "QR"
)

// Fulfillment is generated atomically on the PAID transition.
type Fulfillment struct {
	FulfillmentID string
	OrderID       string
	ItemID        string
	Type          FulfillmentType
	Barcode       string
	ConsumedAt    *time.Time
}

type Contact struct {
	Email string
	Phone string
}

// Order is the sole durable source of truth for a purchase.
type Order struct {
	OrderID       string
	PrincipalID   string
	AirlineID     string
	OriginOfferID string
	Status        OrderStatus
	Total         Money
	Items         []OrderItem
	Travelers     []Traveler
	Contact       Contact
	Fulfillment   []Fulfillment
	ExpiresAt     *time.Time
	PaymentRef    string
	Version       int64
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// ActiveTotal recomputes P5's conservation invariant from item state.
func (o *Order) ActiveTotal() Money {
	var total Money
	for _, it := range o.Items {
		if it.Status == OrderItemStatus(OrderItemStatusActive) {
			total += it.UnitPrice.Mul(it.Quantity)
		}
	}
	return total
}

func (o *Order) ConsumedFulfillmentCount() int {
	n := 0
	for _, f := range o.Fulfillment {
		if f.ConsumedAt != nil {
			n++
		}
	}
	return n
}

func (o *Order) ActiveItemQuantity() int {
	n := 0
	for _, it := range o.Items {
		if it.Status == OrderItemStatusActive {
			n += it.Quantity
		}
	}
	return n
}
