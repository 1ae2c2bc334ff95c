package dtos

// TopicReleaseDLQ receives release jobs that exhausted their retry budget.
const TopicReleaseDLQ = "inventory.release.dlq"

// ReleaseTicketDto is a reservation release job. It rides the Redis
// reconciliation queue and, once retries are exhausted, the Kafka DLQ.
type ReleaseTicketDto struct {
	Ticket    string `json:"ticket"`
	Sku       string `json:"sku"`
	Quantity  int64  `json:"quantity"`
	Attempts  int    `json:"attempts"`
	LastError string `json:"lastError,omitempty"`
}
