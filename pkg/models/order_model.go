package models

import (
	"time"

	"github.com/google/uuid"

	"github.com/cartfuse/checkout-core/pkg"
	"github.com/cartfuse/checkout-core/pkg/money"
	"github.com/cartfuse/checkout-core/pkg/orderstate"
	"github.com/cartfuse/checkout-core/pkg/views"
)

// Order maps to table `orders`. Items and ShippingAddress are stored as
// versioned JSON snapshots so later catalog or profile edits never rewrite
// what the buyer agreed to.
type Order struct {
	ID              string
	UserID          uuid.UUID
	Status          orderstate.Status
	Items           []OrderItem
	ShippingAddress Address
	ItemsTotal      money.Money
	ShippingFee     money.Money
	Total           money.Money
	// PaymentProvider and PaymentID stay empty until the order is paid.
	PaymentProvider string
	PaymentID       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// OrderItem is one priced cart line captured at checkout time.
type OrderItem struct {
	Sku       string      `json:"sku"`
	Name      string      `json:"name,omitempty"`
	UnitPrice money.Money `json:"unitPrice"`
	Quantity  int64       `json:"quantity"`
}

// LineTotal is the unit price scaled by quantity.
func (i OrderItem) LineTotal() money.Money {
	return i.UnitPrice.MulInt(i.Quantity)
}

// Address is the shipping destination captured at checkout time.
type Address struct {
	Name       string `json:"name"`
	Line1      string `json:"line1"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city"`
	PostalCode string `json:"postalCode"`
	Country    string `json:"country"`
}

// NewOrderID mints an opaque order identifier.
func NewOrderID() string {
	return pkg.OrderIdPrefix + uuid.NewString()
}

func (o Order) ToOrderView() views.OrderView {
	items := make([]views.OrderItemView, 0, len(o.Items))
	for _, item := range o.Items {
		items = append(items, views.OrderItemView{
			Sku:       item.Sku,
			Name:      item.Name,
			UnitPrice: item.UnitPrice,
			Quantity:  item.Quantity,
			LineTotal: item.LineTotal(),
		})
	}
	return views.OrderView{
		ID:     o.ID,
		UserID: o.UserID.String(),
		Status: string(o.Status),
		Items:  items,
		ShippingAddress: views.AddressView{
			Name:       o.ShippingAddress.Name,
			Line1:      o.ShippingAddress.Line1,
			Line2:      o.ShippingAddress.Line2,
			City:       o.ShippingAddress.City,
			PostalCode: o.ShippingAddress.PostalCode,
			Country:    o.ShippingAddress.Country,
		},
		ItemsTotal:      o.ItemsTotal,
		ShippingFee:     o.ShippingFee,
		Total:           o.Total,
		PaymentProvider: o.PaymentProvider,
		PaymentID:       o.PaymentID,
		CreatedAt:       o.CreatedAt,
		UpdatedAt:       o.UpdatedAt,
	}
}

func (o Order) ToSummaryView() views.OrderSummaryView {
	return views.OrderSummaryView{
		ID:        o.ID,
		Status:    string(o.Status),
		Total:     o.Total,
		CreatedAt: o.CreatedAt,
	}
}
