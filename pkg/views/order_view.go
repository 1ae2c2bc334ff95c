package views

import (
	"time"

	"github.com/cartfuse/checkout-core/pkg/money"
)

type OrderView struct {
	ID              string          `json:"id"`
	UserID          string          `json:"userId"`
	Status          string          `json:"status"`
	Items           []OrderItemView `json:"items"`
	ShippingAddress AddressView     `json:"shippingAddress"`
	ItemsTotal      money.Money     `json:"itemsTotal"`
	ShippingFee     money.Money     `json:"shippingFee"`
	Total           money.Money     `json:"total"`
	PaymentProvider string          `json:"paymentProvider,omitempty"`
	PaymentID       string          `json:"paymentId,omitempty"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

type OrderItemView struct {
	Sku       string      `json:"sku"`
	Name      string      `json:"name,omitempty"`
	UnitPrice money.Money `json:"unitPrice"`
	Quantity  int64       `json:"quantity"`
	LineTotal money.Money `json:"lineTotal"`
}

type AddressView struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// OrderSummaryView is the compact row returned by order listings.
type OrderSummaryView struct {
	ID        string      `json:"id"`
	Status    string      `json:"status"`
	Total     money.Money `json:"total"`
	CreatedAt time.Time   `json:"createdAt"`
}
