package payment

import (
	"context"
	"testing"

	"github.com/altis-air/altis-retail-engine/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFake_Charge_Succeeds(t *testing.T) {
	f := NewFake()
	ref, err := f.Charge(context.Background(), "order-1", domain.Money(1000), "tok_valid")
	require.NoError(t, err)
	assert.Contains(t, ref, "pay_")
}

func TestFake_Charge_DeclinesMatchingToken(t *testing.T) {
	f := NewFake()

	cases := []string{"decline", "DECLINE", "tok_decline_me", "Tok_Decline"}
	for _, token := range cases {
		t.Run(token, func(t *testing.T) {
			ref, err := f.Charge(context.Background(), "order-1", domain.Money(1000), token)
			assert.Equal(t, ErrDeclined, err)
			assert.Empty(t, ref)
		})
	}
}

func TestFake_Charge_ReturnsDistinctReferences(t *testing.T) {
	f := NewFake()
	ref1, err := f.Charge(context.Background(), "order-1", domain.Money(1000), "tok_a")
	require.NoError(t, err)
	ref2, err := f.Charge(context.Background(), "order-1", domain.Money(1000), "tok_b")
	require.NoError(t, err)
	assert.NotEqual(t, ref1, ref2)
}

func TestErrDeclined_Error(t *testing.T) {
	assert.Equal(t, "payment declined", ErrDeclined.Error())
}
