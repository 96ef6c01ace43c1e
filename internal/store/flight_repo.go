package store

import (
	"context"

	"github.com/altis-air/altis-retail-engine/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type FlightRepository struct {
	db *pgxpool.Pool
}

func NewFlightRepository(db *pgxpool.Pool) *FlightRepository {
	return &FlightRepository{db: db}
}

func (r *FlightRepository) GetByID(ctx context.Context, id string) (*domain.Flight, error) {
	row := r.db.QueryRow(ctx, `SELECT flight_id, airline_id, origin, destination, scheduled_departure, scheduled_arrival, capacity, base_price FROM flights WHERE flight_id=$1`, id)
	var f domain.Flight
	if err := row.Scan(&f.FlightID, &f.AirlineID, &f.Origin, &f.Destination, &f.ScheduledDeparture, &f.ScheduledArrival, &f.Capacity, &f.BasePrice); err != nil {
		return nil, err
	}
	return &f, nil
}

// SearchCandidates resolves the "external flight search interface" spec
// §4.4 step 1 treats as a collaborator; here it is a direct, simple
// query over the flights table since no richer search system is in
// scope for this engine.
func (r *FlightRepository) SearchCandidates(ctx context.Context, airlineID, origin, destination string, departureDayStart, departureDayEnd int64) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, `
		SELECT flight_id, airline_id, origin, destination, scheduled_departure, scheduled_arrival, capacity, base_price
		FROM flights
		WHERE airline_id=$1 AND origin=$2 AND destination=$3
		  AND scheduled_departure BETWEEN $4 AND $5
		ORDER BY scheduled_departure`, airlineID, origin, destination, departureDayStart, departureDayEnd)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var flights []domain.Flight
	for rows.Next() {
		var f domain.Flight
		if err := rows.Scan(&f.FlightID, &f.AirlineID, &f.Origin, &f.Destination, &f.ScheduledDeparture, &f.ScheduledArrival, &f.Capacity, &f.BasePrice); err != nil {
			return nil, err
		}
		flights = append(flights, f)
	}
	return flights, rows.Err()
}

// Lookup implements inventory.CapacityLookup, consulted only on
// InventoryIndex cache miss.
func (r *FlightRepository) Lookup(ctx context.Context, flightID string) (int, float64, error) {
	flight, err := r.GetByID(ctx, flightID)
	if err != nil {
		return 0, 0, err
	}
	row := r.db.QueryRow(ctx, `SELECT overbooking_percent FROM inventory_rules WHERE airline_id=$1`, flight.AirlineID)
	var overbooking float64
	if err := row.Scan(&overbooking); err != nil {
		overbooking = 0
	}
	return flight.Capacity, overbooking, nil
}
