package domain

// ProductType is the tagged variant discriminator for catalog products.
// Adding a product type is a single enum extension plus a metadata
// decoder in the relevant component (pricing, offer generation).
type ProductType string

const (
	ProductTypeFlight       ProductType = "FLIGHT"
	ProductTypeSeat         ProductType = "SEAT"
	ProductTypeMeal         ProductType = "MEAL"
	ProductTypeBag          ProductType = "BAG"
	ProductTypeLounge       ProductType = "LOUNGE"
	ProductTypeFastTrack    ProductType = "FAST_TRACK"
	ProductTypeInsurance    ProductType = "INSURANCE"
	ProductTypeCarbonOffset ProductType = "CARBON_OFFSET"
)

// Product is a catalog entry owned by an airline. Immutable after
// creation except via admin re-publication; the engine only ever reads
// a snapshot.
type Product struct {
	ProductID  string
	AirlineID  string
	Type       ProductType
	Code       string
	BasePrice  Money
	Metadata   map[string]any
}

// Flight is a specific scheduled instance. Capacity is authoritative;
// availability is derived by InventoryIndex.
type Flight struct {
	FlightID            string
	AirlineID           string
	Origin              string
	Destination         string
	ScheduledDeparture  int64 // unix seconds, UTC
	ScheduledArrival    int64
	Capacity            int
	BasePrice           Money
}
