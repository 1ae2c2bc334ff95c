package pkg

const (
	HeaderTraceId          string = "X-Trace-Id"
	HeaderWebhookSignature string = "X-Webhook-Signature"
)

// Context keys and structured log field names shared across services.
const (
	TraceId   string = "trace_id"
	UserId    string = "user_id"
	OrderId   string = "order_id"
	SessionId string = "session_id"
	EventId   string = "event_id"
	Sku       string = "sku"
	Ticket    string = "ticket"
)

// ID prefixes for entities owned by this core.
const (
	OrderIdPrefix   string = "ord_"
	SessionIdPrefix string = "chk_"
)

// SessionStatus tracks a checkout session. Sessions flip to confirmed or
// failed exactly once and are immutable afterwards.
type SessionStatus string

const (
	SessionStatusCreated   SessionStatus = "created"
	SessionStatusConfirmed SessionStatus = "confirmed"
	SessionStatusFailed    SessionStatus = "failed"
)
