package views

import (
	"time"

	"github.com/cartfuse/checkout-core/pkg/money"
)

// CheckoutView is the response of a successful checkout: the created order
// preview plus the payment handle the buyer completes payment against.
type CheckoutView struct {
	SessionID   string          `json:"sessionId"`
	OrderID     string          `json:"orderId"`
	Status      string          `json:"status"`
	Items       []OrderItemView `json:"items"`
	ItemsTotal  money.Money     `json:"itemsTotal"`
	ShippingFee money.Money     `json:"shippingFee"`
	Total       money.Money     `json:"total"`
	Payment     PaymentView     `json:"payment"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// PaymentView is handed to the buyer's browser to finish the payment flow.
type PaymentView struct {
	Provider     string `json:"provider"`
	IntentID     string `json:"intentId"`
	ClientSecret string `json:"clientSecret"`
}
