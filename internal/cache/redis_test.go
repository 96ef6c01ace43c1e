package cache

import (
	"testing"

	"github.com/altis-air/altis-retail-engine/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestNew(t *testing.T) {
	c := New(config.RedisConfig{Addr: "localhost:6379"})
	assert.NotNil(t, c)
	assert.NotNil(t, c.Raw)
}

func TestKeyHelpers(t *testing.T) {
	assert.Equal(t, "avail:fl-1", AvailKey("fl-1"))
	assert.Equal(t, "resv:fl-1", ReservationSetKey("fl-1"))
	assert.Equal(t, "trip:order-1", TripHoldKey("order-1"))
	assert.Equal(t, "seat:fl-1:12A", SeatHoldKey("fl-1", "12A"))
	assert.Equal(t, "offer:offer-1", OfferKey("offer-1"))
}
