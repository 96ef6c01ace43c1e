package inventory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/altis-air/altis-retail-engine/internal/apperr"
	"github.com/altis-air/altis-retail-engine/internal/cache"
	"github.com/altis-air/altis-retail-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestNew(t *testing.T) {
	idx := New(nil, nil, zap.NewNop().Sugar())
	assert.NotNil(t, idx)
}

func TestEffectiveCapacity(t *testing.T) {
	assert.Equal(t, 100, effectiveCapacity(100, 0))
	assert.Equal(t, 110, effectiveCapacity(100, 0.1))
	assert.Equal(t, 109, effectiveCapacity(100, 0.099))
}

func TestReservationKey(t *testing.T) {
	assert.Equal(t, "resv:fl-1:tick-1", reservationKey("fl-1", "tick-1"))
}

type MockIndexCache struct {
	mock.Mock
}

func (m *MockIndexCache) Get(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockIndexCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	args := m.Called(ctx, key, value, ttl)
	return args.Error(0)
}

func (m *MockIndexCache) DecrementIfNonNegative(ctx context.Context, key string, by int, initial int) (int, error) {
	args := m.Called(ctx, key, by, initial)
	return args.Int(0), args.Error(1)
}

func (m *MockIndexCache) GetAndDelete(ctx context.Context, key string) (string, bool, error) {
	args := m.Called(ctx, key)
	return args.String(0), args.Bool(1), args.Error(2)
}

func (m *MockIndexCache) IncrBy(ctx context.Context, key string, by int) error {
	args := m.Called(ctx, key, by)
	return args.Error(0)
}

func (m *MockIndexCache) SetIfAbsentOrOwner(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	args := m.Called(ctx, key, owner, ttl)
	return args.Bool(0), args.Error(1)
}

func (m *MockIndexCache) CompareAndDelete(ctx context.Context, key, expected string) (bool, error) {
	args := m.Called(ctx, key, expected)
	return args.Bool(0), args.Error(1)
}

type MockCapacityLookup struct {
	mock.Mock
}

func (m *MockCapacityLookup) Lookup(ctx context.Context, flightID string) (int, float64, error) {
	args := m.Called(ctx, flightID)
	return args.Int(0), args.Get(1).(float64), args.Error(2)
}

func newTestIndex(c indexCache, capacity CapacityLookup) *Index {
	return &Index{cache: c, capacity: capacity, log: zap.NewNop().Sugar()}
}

func TestIndex_Release_IncrementsAvailabilityOnFirstCall(t *testing.T) {
	c := &MockIndexCache{}
	ticket := domain.ReservationTicket{Ticket: "tick-1", FlightID: "fl-1", Quantity: 3}

	c.On("GetAndDelete", mock.Anything, "resv:fl-1:tick-1").Return("3", true, nil).Once()
	c.On("IncrBy", mock.Anything, "avail:fl-1", 3).Return(nil).Once()

	idx := newTestIndex(c, nil)
	err := idx.Release(context.Background(), ticket)

	require.NoError(t, err)
	c.AssertExpectations(t)
}

func TestIndex_Release_SecondCallIsNoOp(t *testing.T) {
	c := &MockIndexCache{}
	ticket := domain.ReservationTicket{Ticket: "tick-1", FlightID: "fl-1", Quantity: 3}

	c.On("GetAndDelete", mock.Anything, "resv:fl-1:tick-1").Return("", false, nil).Once()

	idx := newTestIndex(c, nil)
	err := idx.Release(context.Background(), ticket)

	require.NoError(t, err)
	c.AssertNotCalled(t, "IncrBy", mock.Anything, mock.Anything, mock.Anything)
}

func TestIndex_Release_PropagatesCacheError(t *testing.T) {
	c := &MockIndexCache{}
	ticket := domain.ReservationTicket{Ticket: "tick-1", FlightID: "fl-1", Quantity: 1}

	c.On("GetAndDelete", mock.Anything, "resv:fl-1:tick-1").Return("", false, errors.New("redis down")).Once()

	idx := newTestIndex(c, nil)
	err := idx.Release(context.Background(), ticket)

	require.Error(t, err)
	var appErr *apperr.Error
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, apperr.KindTransient, appErr.Kind)
}

func TestIndex_TryReserve_Success(t *testing.T) {
	c := &MockIndexCache{}
	capacity := &MockCapacityLookup{}

	capacity.On("Lookup", mock.Anything, "fl-1").Return(100, 0.1, nil).Once()
	c.On("DecrementIfNonNegative", mock.Anything, "avail:fl-1", 2, 110).Return(108, nil).Once()
	c.On("Set", mock.Anything, mock.MatchedBy(func(k string) bool { return k[:9] == "resv:fl-1" }), "2", 24*time.Hour).Return(nil).Once()

	idx := newTestIndex(c, capacity)
	ticket, err := idx.TryReserve(context.Background(), "fl-1", 2)

	require.NoError(t, err)
	assert.Equal(t, "fl-1", ticket.FlightID)
	assert.Equal(t, 2, ticket.Quantity)
	assert.NotEmpty(t, ticket.Ticket)
}

func TestIndex_TryReserve_InsufficientInventory(t *testing.T) {
	c := &MockIndexCache{}
	capacity := &MockCapacityLookup{}

	capacity.On("Lookup", mock.Anything, "fl-1").Return(100, 0.0, nil).Once()
	c.On("DecrementIfNonNegative", mock.Anything, "avail:fl-1", 5, 100).Return(-1, nil).Once()

	idx := newTestIndex(c, capacity)
	_, err := idx.TryReserve(context.Background(), "fl-1", 5)

	assert.True(t, apperr.Is(err, apperr.KindUnavailable))
}

func TestIndex_HoldSeat_FailsWhenAlreadyHeld(t *testing.T) {
	c := &MockIndexCache{}
	c.On("SetIfAbsentOrOwner", mock.Anything, cache.SeatHoldKey("fl-1", "12A"), "order-1", 15*time.Minute).
		Return(false, nil).Once()

	idx := newTestIndex(c, nil)
	err := idx.HoldSeat(context.Background(), "fl-1", "12A", "order-1", 15*time.Minute)

	assert.True(t, apperr.Is(err, apperr.KindUnavailable))
}

func TestIndex_ReleaseSeat_DelegatesToCompareAndDelete(t *testing.T) {
	c := &MockIndexCache{}
	c.On("CompareAndDelete", mock.Anything, cache.SeatHoldKey("fl-1", "12A"), "order-1").Return(true, nil).Once()

	idx := newTestIndex(c, nil)
	err := idx.ReleaseSeat(context.Background(), "fl-1", "12A", "order-1")

	require.NoError(t, err)
	c.AssertExpectations(t)
}

func TestIndex_Available_ReturnsCachedValue(t *testing.T) {
	c := &MockIndexCache{}
	c.On("Get", mock.Anything, "avail:fl-1").Return("42", true, nil).Once()

	idx := newTestIndex(c, nil)
	n, err := idx.Available(context.Background(), "fl-1")

	require.NoError(t, err)
	assert.Equal(t, 42, n)
}

func TestIndex_Available_MaterializesFromCapacityOnMiss(t *testing.T) {
	c := &MockIndexCache{}
	capacity := &MockCapacityLookup{}

	c.On("Get", mock.Anything, "avail:fl-1").Return("", false, nil).Once()
	capacity.On("Lookup", mock.Anything, "fl-1").Return(100, 0.1, nil).Once()
	c.On("Set", mock.Anything, "avail:fl-1", "110", time.Duration(0)).Return(nil).Once()

	idx := newTestIndex(c, capacity)
	n, err := idx.Available(context.Background(), "fl-1")

	require.NoError(t, err)
	assert.Equal(t, 110, n)
}
