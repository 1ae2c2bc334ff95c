package services

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/cartfuse/checkout-core/pkg"
	"github.com/cartfuse/checkout-core/pkg/money"
	"github.com/cartfuse/checkout-core/pkg/orderstate"
	"github.com/cartfuse/checkout-core/pkg/repositories"
	"github.com/cartfuse/checkout-core/pkg/utils"
	"github.com/cartfuse/checkout-core/pkg/views"
	gwviews "github.com/cartfuse/checkout-core/services/webhook-gateway/internal/views"
)

// EventTypePaymentConfirmed is the only event type this gateway acts on.
// Everything else is acknowledged untouched so the provider stops retrying.
const EventTypePaymentConfirmed = "payment.confirmed"

type WebhookService interface {
	// ProcessPaymentEvent applies one delivery of a provider event. Redelivery
	// of an already recorded event id returns a duplicate ack, never an error.
	ProcessPaymentEvent(ctx context.Context, traceID string, event gwviews.PaymentEvent) (views.WebhookAckView, error)
}

type WebhookServiceImpl struct {
	logger *zap.Logger
	store  repositories.Store
}

func NewWebhookService(logger *zap.Logger, store repositories.Store) WebhookService {
	return &WebhookServiceImpl{logger: logger, store: store}
}

func (s *WebhookServiceImpl) ProcessPaymentEvent(ctx context.Context, traceID string, event gwviews.PaymentEvent) (views.WebhookAckView, error) {
	if issues := validateEvent(event); len(issues) > 0 {
		return views.WebhookAckView{}, pkg.AppError{
			Code:    pkg.ErrInvalidInputCode,
			Message: "invalid webhook payload",
			Fields:  issues,
		}
	}

	if event.Type != EventTypePaymentConfirmed {
		s.logger.Info("ignoring unhandled event type",
			zap.String(pkg.TraceId, traceID),
			zap.String(pkg.EventId, event.ID),
			zap.String("event_type", event.Type),
		)
		return views.WebhookAckView{EventID: event.ID, Status: views.WebhookStatusIgnored}, nil
	}

	// Advisory replay check. The transactional insert inside MarkOrderPaid
	// stays the authority for concurrent duplicates.
	seen, err := s.store.HasWebhookEvent(ctx, event.ID)
	if err != nil {
		return views.WebhookAckView{}, pkg.HandleSQLError(traceID, s.logger, err)
	}
	if seen {
		s.logger.Info("duplicate delivery skipped",
			zap.String(pkg.TraceId, traceID),
			zap.String(pkg.EventId, event.ID),
		)
		return views.WebhookAckView{EventID: event.ID, Status: views.WebhookStatusDuplicate}, nil
	}

	amount, err := money.New(event.Data.Amount.Amount, event.Data.Amount.Currency)
	if err != nil {
		return views.WebhookAckView{}, pkg.AppError{
			Code:    pkg.ErrInvalidInputCode,
			Message: "invalid webhook payload",
			Fields:  []pkg.FieldIssue{{Field: "data.amount", Issue: err.Error()}},
		}
	}

	paidAt := event.CreatedAt
	if paidAt.IsZero() {
		paidAt = time.Now().UTC()
	}

	result, err := s.store.MarkOrderPaid(ctx, repositories.PaidJob{
		EventID:   event.ID,
		EventType: event.Type,
		OrderID:   event.Data.OrderID,
		Provider:  event.Data.Provider,
		PaymentID: event.Data.PaymentID,
		Amount:    amount,
		PaidAt:    paidAt,
	})
	if errors.Is(err, pkg.ErrEventAlreadyProcessed) {
		// A concurrent delivery committed first; its result stands.
		s.logger.Info("lost duplicate race, acknowledging",
			zap.String(pkg.TraceId, traceID),
			zap.String(pkg.EventId, event.ID),
		)
		return views.WebhookAckView{EventID: event.ID, Status: views.WebhookStatusDuplicate}, nil
	}
	if err != nil {
		return views.WebhookAckView{}, s.mapPaidError(traceID, event, err)
	}

	if result.Changed {
		s.logger.Info("order marked paid",
			zap.String(pkg.TraceId, traceID),
			zap.String(pkg.EventId, event.ID),
			zap.String(pkg.OrderId, result.Order.ID),
			zap.String("amount", result.Order.Total.String()),
		)
	} else {
		s.logger.Info("order already paid, event recorded",
			zap.String(pkg.TraceId, traceID),
			zap.String(pkg.EventId, event.ID),
			zap.String(pkg.OrderId, result.Order.ID),
		)
	}
	return views.WebhookAckView{EventID: event.ID, Status: views.WebhookStatusProcessed}, nil
}

// mapPaidError translates store failures into the gateway's response
// vocabulary. Rejections deliberately leave no event record behind, so a
// corrected redelivery of the same event id can still succeed.
func (s *WebhookServiceImpl) mapPaidError(traceID string, event gwviews.PaymentEvent, err error) error {
	switch {
	case errors.Is(err, pkg.ErrOrderNotFound):
		return pkg.NewAppError(pkg.ErrOrderNotFoundCode, pkg.ErrOrderNotFoundCode.Message, err)
	case errors.Is(err, pkg.ErrAmountMismatch):
		return pkg.NewAppError(pkg.ErrAmountMismatchCode, pkg.ErrAmountMismatchCode.Message, err)
	}

	var transition *orderstate.TransitionError
	if errors.As(err, &transition) {
		s.logger.Error("confirmation for order outside the payable states",
			zap.String(pkg.TraceId, traceID),
			zap.String(pkg.EventId, event.ID),
			zap.String(pkg.OrderId, event.Data.OrderID),
			zap.String("from", string(transition.From)),
		)
		return pkg.NewAppError(pkg.ErrInvalidTransitionCode, transition.Error(), err)
	}
	return pkg.HandleSQLError(traceID, s.logger, err)
}

func validateEvent(event gwviews.PaymentEvent) []pkg.FieldIssue {
	var issues []pkg.FieldIssue
	required := []struct {
		field string
		value string
	}{
		{"id", event.ID},
		{"type", event.Type},
		{"data.orderId", event.Data.OrderID},
		{"data.amount.amount", event.Data.Amount.Amount},
		{"data.amount.currency", event.Data.Amount.Currency},
	}
	for _, r := range required {
		if utils.IsEmpty(r.value) {
			issues = append(issues, pkg.FieldIssue{Field: r.field, Issue: "is required"})
		}
	}
	return issues
}
