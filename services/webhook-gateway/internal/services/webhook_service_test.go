package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cartfuse/checkout-core/pkg"
	"github.com/cartfuse/checkout-core/pkg/models"
	"github.com/cartfuse/checkout-core/pkg/money"
	"github.com/cartfuse/checkout-core/pkg/orderstate"
	"github.com/cartfuse/checkout-core/pkg/repositories"
	"github.com/cartfuse/checkout-core/pkg/views"
	gwviews "github.com/cartfuse/checkout-core/services/webhook-gateway/internal/views"
)

// paidStore mirrors the transactional semantics of the real store: the event
// id is recorded only when the whole confirmation succeeds, and a second
// insert of the same id fails the way a unique constraint does.
type paidStore struct {
	mu        sync.Mutex
	order     models.Order
	missing   bool
	processed map[string]bool
	paidCalls int
}

func newPaidStore(order models.Order) *paidStore {
	return &paidStore{order: order, processed: map[string]bool{}}
}

func (s *paidStore) CreateOrderWithSession(_ context.Context, _ models.Order, _ models.CheckoutSession) error {
	return nil
}

func (s *paidStore) GetOrder(_ context.Context, _ string, _ uuid.UUID) (models.Order, error) {
	return models.Order{}, pkg.ErrOrderNotFound
}

func (s *paidStore) ListOrdersByUser(_ context.Context, _ uuid.UUID, _ int, _ int) ([]models.Order, error) {
	return nil, nil
}

func (s *paidStore) HasWebhookEvent(_ context.Context, eventID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.processed[eventID], nil
}

func (s *paidStore) MarkOrderPaid(_ context.Context, job repositories.PaidJob) (repositories.PaidResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.paidCalls++

	if s.missing {
		return repositories.PaidResult{}, pkg.ErrOrderNotFound
	}
	if !s.order.Total.Equal(job.Amount) {
		return repositories.PaidResult{}, pkg.ErrAmountMismatch
	}
	changed, err := orderstate.ApplyPaid(s.order.Status)
	if err != nil {
		return repositories.PaidResult{}, err
	}
	if s.processed[job.EventID] {
		return repositories.PaidResult{}, pkg.ErrEventAlreadyProcessed
	}
	if changed {
		s.order.Status = orderstate.StatusPaid
		s.order.PaymentProvider = job.Provider
		s.order.PaymentID = job.PaymentID
	}
	s.processed[job.EventID] = true
	return repositories.PaidResult{Changed: changed, Order: s.order}, nil
}

func eur(t *testing.T, amount string) money.Money {
	t.Helper()
	m, err := money.New(amount, "EUR")
	require.NoError(t, err)
	return m
}

func pendingOrder(t *testing.T, total string) models.Order {
	t.Helper()
	return models.Order{
		ID:     "ord_1",
		UserID: uuid.New(),
		Status: orderstate.StatusPending,
		Total:  eur(t, total),
	}
}

func confirmedEvent(id string, amount string) gwviews.PaymentEvent {
	return gwviews.PaymentEvent{
		ID:        id,
		Type:      EventTypePaymentConfirmed,
		CreatedAt: time.Now().UTC(),
		Data: gwviews.PaymentEventData{
			Provider:  "stripe",
			PaymentID: "pay_9",
			OrderID:   "ord_1",
			Amount:    gwviews.EventAmount{Amount: amount, Currency: "EUR"},
		},
	}
}

func TestProcessPaymentEvent_MarksOrderPaid(t *testing.T) {
	store := newPaidStore(pendingOrder(t, "26.00"))
	svc := NewWebhookService(zap.NewNop(), store)

	ack, err := svc.ProcessPaymentEvent(context.Background(), "trace-1", confirmedEvent("evt_1", "26.00"))

	require.NoError(t, err)
	assert.Equal(t, views.WebhookAckView{EventID: "evt_1", Status: views.WebhookStatusProcessed}, ack)
	assert.Equal(t, orderstate.StatusPaid, store.order.Status)
	assert.Equal(t, "stripe", store.order.PaymentProvider)
	assert.Equal(t, "pay_9", store.order.PaymentID)
}

func TestProcessPaymentEvent_RedeliveryIsDuplicate(t *testing.T) {
	store := newPaidStore(pendingOrder(t, "26.00"))
	svc := NewWebhookService(zap.NewNop(), store)
	event := confirmedEvent("evt_1", "26.00")

	first, err := svc.ProcessPaymentEvent(context.Background(), "trace-1", event)
	require.NoError(t, err)
	assert.Equal(t, views.WebhookStatusProcessed, first.Status)

	second, err := svc.ProcessPaymentEvent(context.Background(), "trace-2", event)
	require.NoError(t, err)
	assert.Equal(t, views.WebhookStatusDuplicate, second.Status)

	// The advisory check short-circuited before the store transaction.
	assert.Equal(t, 1, store.paidCalls)
}

func TestProcessPaymentEvent_ConcurrentDeliveriesAgree(t *testing.T) {
	store := newPaidStore(pendingOrder(t, "26.00"))
	svc := NewWebhookService(zap.NewNop(), store)
	event := confirmedEvent("evt_1", "26.00")

	const deliveries = 8
	acks := make([]views.WebhookAckView, deliveries)
	errs := make([]error, deliveries)
	var wg sync.WaitGroup
	for i := 0; i < deliveries; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			acks[i], errs[i] = svc.ProcessPaymentEvent(context.Background(), "trace-1", event)
		}(i)
	}
	wg.Wait()

	processed := 0
	for i := 0; i < deliveries; i++ {
		require.NoError(t, errs[i])
		switch acks[i].Status {
		case views.WebhookStatusProcessed:
			processed++
		case views.WebhookStatusDuplicate:
		default:
			t.Fatalf("unexpected ack status %q", acks[i].Status)
		}
	}
	// Exactly one delivery won the insert race.
	assert.Equal(t, 1, processed)
	assert.Equal(t, orderstate.StatusPaid, store.order.Status)
}

func TestProcessPaymentEvent_AmountMismatchLeavesNoRecord(t *testing.T) {
	store := newPaidStore(pendingOrder(t, "26.00"))
	svc := NewWebhookService(zap.NewNop(), store)

	_, err := svc.ProcessPaymentEvent(context.Background(), "trace-1", confirmedEvent("evt_1", "20.00"))

	var appErr pkg.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkg.ErrAmountMismatchCode.Code, appErr.Code.Code)
	assert.Equal(t, orderstate.StatusPending, store.order.Status)
	assert.Empty(t, store.processed)

	// The rejection recorded nothing, so a corrected redelivery of the same
	// event id goes through.
	ack, err := svc.ProcessPaymentEvent(context.Background(), "trace-2", confirmedEvent("evt_1", "26.00"))
	require.NoError(t, err)
	assert.Equal(t, views.WebhookStatusProcessed, ack.Status)
}

func TestProcessPaymentEvent_OrderNotFound(t *testing.T) {
	store := newPaidStore(models.Order{})
	store.missing = true
	svc := NewWebhookService(zap.NewNop(), store)

	_, err := svc.ProcessPaymentEvent(context.Background(), "trace-1", confirmedEvent("evt_1", "26.00"))

	var appErr pkg.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkg.ErrOrderNotFoundCode.Code, appErr.Code.Code)
	assert.Empty(t, store.processed)
}

func TestProcessPaymentEvent_AlreadyPaidOrderRecordsEvent(t *testing.T) {
	order := pendingOrder(t, "26.00")
	order.Status = orderstate.StatusPaid
	order.PaymentProvider = "adyen"
	order.PaymentID = "pay_original"
	store := newPaidStore(order)
	svc := NewWebhookService(zap.NewNop(), store)

	ack, err := svc.ProcessPaymentEvent(context.Background(), "trace-1", confirmedEvent("evt_2", "26.00"))

	require.NoError(t, err)
	assert.Equal(t, views.WebhookStatusProcessed, ack.Status)
	// The no-op still records the event id but never rewrites payment fields.
	assert.True(t, store.processed["evt_2"])
	assert.Equal(t, "adyen", store.order.PaymentProvider)
	assert.Equal(t, "pay_original", store.order.PaymentID)
}

func TestProcessPaymentEvent_CancelledOrderRejected(t *testing.T) {
	order := pendingOrder(t, "26.00")
	order.Status = orderstate.StatusCancelled
	store := newPaidStore(order)
	svc := NewWebhookService(zap.NewNop(), store)

	_, err := svc.ProcessPaymentEvent(context.Background(), "trace-1", confirmedEvent("evt_1", "26.00"))

	var appErr pkg.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkg.ErrInvalidTransitionCode.Code, appErr.Code.Code)
	assert.Equal(t, orderstate.StatusCancelled, store.order.Status)
	assert.Empty(t, store.processed)
}

func TestProcessPaymentEvent_UnknownTypeIgnored(t *testing.T) {
	store := newPaidStore(pendingOrder(t, "26.00"))
	svc := NewWebhookService(zap.NewNop(), store)
	event := confirmedEvent("evt_1", "26.00")
	event.Type = "payment.refund_initiated"

	ack, err := svc.ProcessPaymentEvent(context.Background(), "trace-1", event)

	require.NoError(t, err)
	assert.Equal(t, views.WebhookStatusIgnored, ack.Status)
	assert.Zero(t, store.paidCalls)
}

func TestProcessPaymentEvent_MissingFields(t *testing.T) {
	store := newPaidStore(pendingOrder(t, "26.00"))
	svc := NewWebhookService(zap.NewNop(), store)

	_, err := svc.ProcessPaymentEvent(context.Background(), "trace-1", gwviews.PaymentEvent{})

	var appErr pkg.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkg.ErrInvalidInputCode.Code, appErr.Code.Code)

	fields := make([]string, 0, len(appErr.Fields))
	for _, issue := range appErr.Fields {
		fields = append(fields, issue.Field)
	}
	assert.Contains(t, fields, "id")
	assert.Contains(t, fields, "type")
	assert.Contains(t, fields, "data.orderId")
	assert.Contains(t, fields, "data.amount.amount")
	assert.Contains(t, fields, "data.amount.currency")
	assert.Zero(t, store.paidCalls)
}

func TestProcessPaymentEvent_MalformedAmount(t *testing.T) {
	store := newPaidStore(pendingOrder(t, "26.00"))
	svc := NewWebhookService(zap.NewNop(), store)
	event := confirmedEvent("evt_1", "26.00")
	event.Data.Amount.Amount = "twenty-six"

	_, err := svc.ProcessPaymentEvent(context.Background(), "trace-1", event)

	var appErr pkg.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, pkg.ErrInvalidInputCode.Code, appErr.Code.Code)
	require.Len(t, appErr.Fields, 1)
	assert.Equal(t, "data.amount", appErr.Fields[0].Field)
	assert.Zero(t, store.paidCalls)
}
