package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOffer_IsExpired(t *testing.T) {
	now := time.Now()
	future := Offer{ExpiresAt: now.Add(time.Minute)}
	past := Offer{ExpiresAt: now.Add(-time.Minute)}
	exact := Offer{ExpiresAt: now}

	assert.False(t, future.IsExpired(now))
	assert.True(t, past.IsExpired(now))
	assert.True(t, exact.IsExpired(now))
}

func TestOffer_Recompute(t *testing.T) {
	o := Offer{Items: []OfferItem{
		{UnitPrice: 10000, Quantity: 1},
		{UnitPrice: 500, Quantity: 2},
	}}
	o.Recompute()
	assert.Equal(t, Money(11000), o.Total)
}
