package dtos

import "time"

// Kafka topics fed from the transactional outbox.
const (
	TopicOrderCreated = "orders.created"
	TopicOrderPaid    = "orders.paid"
)

// OrderCreatedDto is published after a checkout commits.
type OrderCreatedDto struct {
	OrderID   string    `json:"orderId"`
	UserID    string    `json:"userId"`
	SessionID string    `json:"sessionId"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	CreatedAt time.Time `json:"createdAt"`
}

// OrderPaidDto is published after a payment confirmation commits.
type OrderPaidDto struct {
	OrderID   string    `json:"orderId"`
	UserID    string    `json:"userId"`
	EventID   string    `json:"eventId"`
	Provider  string    `json:"provider,omitempty"`
	PaymentID string    `json:"paymentId"`
	Amount    string    `json:"amount"`
	Currency  string    `json:"currency"`
	PaidAt    time.Time `json:"paidAt"`
}
