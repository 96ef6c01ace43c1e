// Package payment defines the PaymentAdapter collaborator OrderEngine
// calls on the PROPOSED -> PAYMENT_PENDING -> PAID path. No real
// gateway is in scope; Fake is a deterministic in-memory stand-in for
// tests and local runs, grounded on the teacher's internal/email.Sender
// shape (a single narrow interface plus one trivial implementation).
package payment

import (
	"context"
	"strings"

	"github.com/altis-air/altis-retail-engine/internal/domain"
	"github.com/google/uuid"
)

// Adapter charges a payment token for an order total and returns an
// opaque reference on success.
type Adapter interface {
	Charge(ctx context.Context, orderID string, amount domain.Money, token string) (reference string, err error)
}

// Fake declines tokens containing "decline" and otherwise succeeds
// deterministically, so tests can drive both branches of OrderEngine's
// confirm/decline payment path without a real gateway.
type Fake struct{}

func NewFake() *Fake { return &Fake{} }

func (f *Fake) Charge(_ context.Context, _ string, _ domain.Money, token string) (string, error) {
	if strings.Contains(strings.ToLower(token), "decline") {
		return "", ErrDeclined
	}
	return "pay_" + uuid.NewString(), nil
}

var ErrDeclined = declinedError{}

type declinedError struct{}

func (declinedError) Error() string { return "payment declined" }
