package domain

import "time"

type OfferStatus string

const (
	OfferStatusActive    OfferStatus = "ACTIVE"
	OfferStatusAccepted  OfferStatus = "ACCEPTED"
	OfferStatusExpired   OfferStatus = "EXPIRED"
	OfferStatusCancelled OfferStatus = "CANCELLED"
)

// SearchContext captures the shopping request an offer was generated for.
type SearchContext struct {
	Origin       string
	Destination  string
	DepartureDay string
	ReturnDay    string
	Passengers   int
	Cabin        string
}

// OfferItem is a priced product reference inside an offer.
type OfferItem struct {
	ProductID   string
	ProductType ProductType
	UnitPrice   Money
	Quantity    int
	FlightID    string // set when ProductType == FLIGHT
	SeatNumber  string // set when a seat has been pre-selected
	Metadata    map[string]any
}

// Offer is a transient, priced bundle quote. Primary residence is the
// cache with a 15-minute TTL; the store mirror is best-effort audit only.
type Offer struct {
	OfferID       string
	AirlineID     string
	PrincipalID   string
	TemplateID    string
	SearchContext SearchContext
	Items         []OfferItem
	Total         Money
	Status        OfferStatus
	CreatedAt     time.Time
	ExpiresAt     time.Time
	RankScore     float64
}

func (o *Offer) IsExpired(now time.Time) bool {
	return !o.ExpiresAt.After(now)
}

func (o *Offer) Recompute() {
	var total Money
	for _, it := range o.Items {
		total += it.UnitPrice.Mul(it.Quantity)
	}
	o.Total = total
}
