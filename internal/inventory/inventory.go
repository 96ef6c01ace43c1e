// Package inventory implements the InventoryIndex of spec §4.1: constant
// time availability reads and atomic mutations against Redis, grounded
// on the teacher's internal/cache/redis.go SetNX-based seat lock,
// generalized to counters, per-ticket dedup, and compare-and-delete.
package inventory

import (
	"context"
	"math"
	"strconv"
	"time"

	"github.com/altis-air/altis-retail-engine/internal/apperr"
	"github.com/altis-air/altis-retail-engine/internal/cache"
	"github.com/altis-air/altis-retail-engine/internal/domain"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CapacityLookup resolves the authoritative capacity and overbooking
// policy for a flight, consulted only on cache miss (lazy
// materialization).
type CapacityLookup interface {
	Lookup(ctx context.Context, flightID string) (capacity int, overbookingPercent float64, err error)
}

const maxRetries = 3

// indexCache is the narrow slice of cache.Client the Index drives,
// carved out so the atomic-primitive branches (TryReserve's retry loop,
// Release's idempotent GetAndDelete) are testable against a hand-rolled
// mock instead of needing a live Redis.
type indexCache interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
	DecrementIfNonNegative(ctx context.Context, key string, by int, initial int) (int, error)
	GetAndDelete(ctx context.Context, key string) (value string, existed bool, err error)
	IncrBy(ctx context.Context, key string, by int) error
	SetIfAbsentOrOwner(ctx context.Context, key, owner string, ttl time.Duration) (bool, error)
	CompareAndDelete(ctx context.Context, key, expected string) (bool, error)
}

type Index struct {
	cache      indexCache
	capacity   CapacityLookup
	log        *zap.SugaredLogger
}

func New(c *cache.Client, capacity CapacityLookup, log *zap.SugaredLogger) *Index {
	return &Index{cache: c, capacity: capacity, log: log}
}

func effectiveCapacity(capacity int, overbookingPercent float64) int {
	return capacity + int(math.Floor(float64(capacity)*overbookingPercent))
}

// Available returns the current counter value, lazily materializing it
// from the authoritative capacity (inflated by overbooking_percent) on
// first read.
func (idx *Index) Available(ctx context.Context, flightID string) (int, error) {
	val, ok, err := idx.retryGet(ctx, cache.AvailKey(flightID))
	if err != nil {
		return 0, apperr.Wrap(apperr.KindTransient, "read availability", err)
	}
	if ok {
		return val, nil
	}
	capacity, overbookingPct, err := idx.capacity.Lookup(ctx, flightID)
	if err != nil {
		return 0, err
	}
	eff := effectiveCapacity(capacity, overbookingPct)
	if err := idx.cache.Set(ctx, cache.AvailKey(flightID), strconv.Itoa(eff), 0); err != nil {
		return 0, apperr.Wrap(apperr.KindTransient, "materialize availability", err)
	}
	return eff, nil
}

// TryReserve atomically decrements the counter by n only if the
// post-value is >= 0, seeding the counter from capacity on first use.
// Returns a ReservationTicket for compensating release.
func (idx *Index) TryReserve(ctx context.Context, flightID string, n int) (domain.ReservationTicket, error) {
	capacity, overbookingPct, err := idx.capacity.Lookup(ctx, flightID)
	if err != nil {
		return domain.ReservationTicket{}, err
	}
	eff := effectiveCapacity(capacity, overbookingPct)

	var result int
	for attempt := 0; attempt < maxRetries; attempt++ {
		result, err = idx.cache.DecrementIfNonNegative(ctx, cache.AvailKey(flightID), n, eff)
		if err == nil {
			break
		}
		idx.backoff(ctx, attempt)
	}
	if err != nil {
		return domain.ReservationTicket{}, apperr.Wrap(apperr.KindTransient, "reserve inventory", err)
	}
	if result < 0 {
		return domain.ReservationTicket{}, apperr.Wrap(apperr.KindUnavailable, "insufficient inventory", apperr.ErrUnavailable)
	}

	ticket := domain.ReservationTicket{Ticket: uuid.NewString(), FlightID: flightID, Quantity: n}
	if err := idx.cache.Set(ctx, reservationKey(flightID, ticket.Ticket), strconv.Itoa(n), 24*time.Hour); err != nil {
		idx.log.Warnw("failed to record reservation ticket, release will not be idempotent", "flight_id", flightID, "err", err)
	}
	return ticket, nil
}

// Release is the compensating increment for a ReservationTicket. It is
// idempotent: a repeated call with the same ticket is a no-op (P4). The
// presence check and the delete of the ticket key happen in a single
// atomic GetAndDelete so two concurrent Release calls for the same
// ticket can't both observe it present and double-increment
// availability.
func (idx *Index) Release(ctx context.Context, ticket domain.ReservationTicket) error {
	key := reservationKey(ticket.FlightID, ticket.Ticket)
	_, existed, err := idx.cache.GetAndDelete(ctx, key)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "check reservation ticket", err)
	}
	if !existed {
		return nil // already released
	}
	if err := idx.cache.IncrBy(ctx, cache.AvailKey(ticket.FlightID), ticket.Quantity); err != nil {
		return apperr.Wrap(apperr.KindTransient, "release inventory", err)
	}
	return nil
}

// HoldSeat sets seat:{flight}:{seat} -> order_id if absent, or extends
// the TTL if order_id already owns it (owner-idempotent extend).
func (idx *Index) HoldSeat(ctx context.Context, flightID, seat, orderID string, ttl time.Duration) error {
	ok, err := idx.cache.SetIfAbsentOrOwner(ctx, cache.SeatHoldKey(flightID, seat), orderID, ttl)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "hold seat", err)
	}
	if !ok {
		return apperr.Wrap(apperr.KindUnavailable, "seat already held", apperr.ErrSeatTaken)
	}
	return nil
}

// ReleaseSeat deletes the seat hold only if orderID is the current
// holder (compare-and-delete).
func (idx *Index) ReleaseSeat(ctx context.Context, flightID, seat, orderID string) error {
	_, err := idx.cache.CompareAndDelete(ctx, cache.SeatHoldKey(flightID, seat), orderID)
	if err != nil {
		return apperr.Wrap(apperr.KindTransient, "release seat", err)
	}
	return nil
}

func (idx *Index) retryGet(ctx context.Context, key string) (int, bool, error) {
	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		val, ok, err := idx.cache.Get(ctx, key)
		if err == nil {
			if !ok {
				return 0, false, nil
			}
			n, convErr := strconv.Atoi(val)
			if convErr != nil {
				return 0, false, convErr
			}
			return n, true, nil
		}
		lastErr = err
		idx.backoff(ctx, attempt)
	}
	return 0, false, lastErr
}

func (idx *Index) backoff(ctx context.Context, attempt int) {
	delay := time.Duration(1<<attempt) * 20 * time.Millisecond
	select {
	case <-time.After(delay):
	case <-ctx.Done():
	}
}

func reservationKey(flightID, ticket string) string {
	return cache.ReservationSetKey(flightID) + ":" + ticket
}
