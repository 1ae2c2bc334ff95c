package views

// WebhookAckView acknowledges a processed or safely ignored delivery.
type WebhookAckView struct {
	EventID string `json:"eventId"`
	Status  string `json:"status"`
}

const (
	WebhookStatusProcessed = "processed"
	WebhookStatusDuplicate = "duplicate"
	WebhookStatusIgnored   = "ignored"
)
