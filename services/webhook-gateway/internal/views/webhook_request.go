package views

import "time"

// PaymentEvent is the provider's webhook envelope. Required fields are
// checked in the service so rejections come back as one list of issues.
type PaymentEvent struct {
	ID        string           `json:"id"`
	Type      string           `json:"type"`
	CreatedAt time.Time        `json:"createdAt"`
	Data      PaymentEventData `json:"data"`
}

type PaymentEventData struct {
	Provider  string      `json:"provider"`
	PaymentID string      `json:"paymentId"`
	OrderID   string      `json:"orderId"`
	Amount    EventAmount `json:"amount"`
}

type EventAmount struct {
	Amount   string `json:"amount"`
	Currency string `json:"currency"`
}
