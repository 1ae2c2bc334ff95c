package models

import "time"

// WebhookEvent maps to table `webhook_events`. One row per provider event id;
// the primary key is what makes redeliveries harmless.
type WebhookEvent struct {
	EventID     string
	OrderID     string
	EventType   string
	ProcessedAt time.Time
}
