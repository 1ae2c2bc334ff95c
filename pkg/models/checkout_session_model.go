package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/cartfuse/checkout-core/pkg"
	"github.com/cartfuse/checkout-core/pkg/money"
)

// CheckoutSession maps to table `checkout_sessions`. Exactly one session
// exists per order; the table enforces that with a unique order_id.
type CheckoutSession struct {
	ID              string
	OrderID         string
	UserID          uuid.UUID
	Provider        string
	PaymentIntentID string
	// ClientSecret is returned once to the buyer so their browser can finish
	// the payment. It is never exposed on order reads.
	ClientSecret string
	Amount       money.Money
	Status       pkg.SessionStatus
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// NewSessionID mints an opaque checkout session identifier.
func NewSessionID() string {
	return pkg.SessionIdPrefix + uuid.NewString()
}
