package domain

import "time"

// TripHold is the durable-with-TTL order-level inventory hold (stage 2
// of the two-stage hold model). Keyed as trip:{order_id} in the cache.
type TripHold struct {
	OrderID     string
	PrincipalID string
	FlightIDs   []string
	SeatRefs    []string
	ExpiresAt   time.Time
}

// SeatHold is keyed seat:{flight_id}:{seat_number} -> order_id in the
// cache, with its own TTL independent of (but bounded by) the trip hold.
type SeatHold struct {
	FlightID   string
	SeatNumber string
	OrderID    string
	ExpiresAt  time.Time
}

// ReservationTicket is the opaque correlation id InventoryIndex.TryReserve
// returns; it is the unit of idempotent release.
type ReservationTicket struct {
	Ticket   string
	FlightID string
	Quantity int
}
