package models

import (
	"encoding/json"
	"time"
)

// OutboxEvent maps to table `outbox_events`. Rows are written in the same
// transaction as the state change they describe and deleted once published.
type OutboxEvent struct {
	ID        int64
	Topic     string
	Key       string
	Payload   json.RawMessage
	CreatedAt time.Time
}
