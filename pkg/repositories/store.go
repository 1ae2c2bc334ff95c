package repositories

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/cartfuse/checkout-core/pkg"
	"github.com/cartfuse/checkout-core/pkg/database"
	"github.com/cartfuse/checkout-core/pkg/dtos"
	"github.com/cartfuse/checkout-core/pkg/models"
	"github.com/cartfuse/checkout-core/pkg/money"
	"github.com/cartfuse/checkout-core/pkg/orderstate"
)

// PaidJob is one payment confirmation to apply to an order.
type PaidJob struct {
	EventID   string
	EventType string
	OrderID   string
	Provider  string
	PaymentID string
	Amount    money.Money
	PaidAt    time.Time
}

// PaidResult reports what applying a confirmation changed. Changed is false
// when the order was already paid and the delivery only recorded its event id.
type PaidResult struct {
	Changed bool
	Order   models.Order
	Session models.CheckoutSession
}

// Store is the persistence surface the services depend on. Every method that
// mutates state runs as a single transaction: either all of its writes commit
// or none do.
type Store interface {
	// CreateOrderWithSession persists a pending order, its checkout session
	// and the created event in one transaction.
	CreateOrderWithSession(ctx context.Context, order models.Order, session models.CheckoutSession) error
	// GetOrder loads an order scoped to its owner. A missing order and a
	// foreign order are indistinguishable: both return pkg.ErrOrderNotFound.
	GetOrder(ctx context.Context, orderID string, userID uuid.UUID) (models.Order, error)
	ListOrdersByUser(ctx context.Context, userID uuid.UUID, pageNumber int, size int) ([]models.Order, error)
	// HasWebhookEvent is the advisory duplicate pre-check. The transactional
	// insert inside MarkOrderPaid remains the authority.
	HasWebhookEvent(ctx context.Context, eventID string) (bool, error)
	// MarkOrderPaid applies a confirmation under a row lock: verifies the
	// amount, moves the order to paid when legal, confirms the session,
	// records the event id and stages the paid event. A duplicate event id
	// aborts the whole transaction with pkg.ErrEventAlreadyProcessed.
	MarkOrderPaid(ctx context.Context, job PaidJob) (PaidResult, error)
}

type StoreImpl struct {
	db       *database.DB
	logger   *zap.Logger
	orders   OrderRepository
	sessions SessionRepository
	events   WebhookEventRepository
	outbox   OutboxRepository
}

func NewStore(db *database.DB, logger *zap.Logger, orders OrderRepository, sessions SessionRepository, events WebhookEventRepository, outbox OutboxRepository) Store {
	return &StoreImpl{
		db:       db,
		logger:   logger,
		orders:   orders,
		sessions: sessions,
		events:   events,
		outbox:   outbox,
	}
}

func (s *StoreImpl) CreateOrderWithSession(ctx context.Context, order models.Order, session models.CheckoutSession) error {
	return s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		if err := s.orders.Create(ctx, tx, order); err != nil {
			return err
		}
		if err := s.sessions.Create(ctx, tx, session); err != nil {
			return err
		}
		created := dtos.OrderCreatedDto{
			OrderID:   order.ID,
			UserID:    order.UserID.String(),
			SessionID: session.ID,
			Amount:    order.Total.StringAmount(),
			Currency:  order.Total.Currency,
			CreatedAt: order.CreatedAt,
		}
		return s.outbox.Insert(ctx, tx, dtos.TopicOrderCreated, order.ID, created)
	})
}

func (s *StoreImpl) GetOrder(ctx context.Context, orderID string, userID uuid.UUID) (models.Order, error) {
	order, err := s.orders.FindByUser(ctx, s.db, orderID, userID)
	if errors.Is(err, pgx.ErrNoRows) {
		return models.Order{}, pkg.ErrOrderNotFound
	}
	return order, err
}

func (s *StoreImpl) ListOrdersByUser(ctx context.Context, userID uuid.UUID, pageNumber int, size int) ([]models.Order, error) {
	return s.orders.ListByUser(ctx, s.db, userID, pageNumber, size)
}

func (s *StoreImpl) HasWebhookEvent(ctx context.Context, eventID string) (bool, error) {
	return s.events.Exists(ctx, s.db, eventID)
}

func (s *StoreImpl) MarkOrderPaid(ctx context.Context, job PaidJob) (PaidResult, error) {
	var result PaidResult
	err := s.db.WithTransaction(ctx, func(ctx context.Context, tx pgx.Tx) error {
		order, err := s.orders.FindForUpdate(ctx, tx, job.OrderID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return pkg.ErrOrderNotFound
			}
			return err
		}

		if !order.Total.Equal(job.Amount) {
			s.logger.Warn("payment amount mismatch",
				zap.String(pkg.OrderId, order.ID),
				zap.String(pkg.EventId, job.EventID),
				zap.String("expected", order.Total.String()),
				zap.String("received", job.Amount.String()),
			)
			return pkg.ErrAmountMismatch
		}

		changed, err := orderstate.ApplyPaid(order.Status)
		if err != nil {
			return err
		}

		session, err := s.sessions.FindByOrderID(ctx, tx, order.ID)
		if err != nil {
			return err
		}

		if changed {
			// The event's payment id is authoritative; fall back to the intent
			// the session was opened with.
			paymentID := job.PaymentID
			if paymentID == "" {
				paymentID = session.PaymentIntentID
			}
			if err = s.orders.MarkPaid(ctx, tx, order.ID, job.Provider, paymentID); err != nil {
				return err
			}
			order.Status = orderstate.StatusPaid
			order.PaymentProvider = job.Provider
			order.PaymentID = paymentID

			if err = s.sessions.UpdateStatusByOrderID(ctx, tx, order.ID, pkg.SessionStatusConfirmed); err != nil {
				return err
			}
			session.Status = pkg.SessionStatusConfirmed

			paid := dtos.OrderPaidDto{
				OrderID:   order.ID,
				UserID:    order.UserID.String(),
				EventID:   job.EventID,
				Provider:  job.Provider,
				PaymentID: paymentID,
				Amount:    order.Total.StringAmount(),
				Currency:  order.Total.Currency,
				PaidAt:    job.PaidAt,
			}
			if err = s.outbox.Insert(ctx, tx, dtos.TopicOrderPaid, order.ID, paid); err != nil {
				return err
			}
		}

		err = s.events.Create(ctx, tx, models.WebhookEvent{
			EventID:     job.EventID,
			OrderID:     order.ID,
			EventType:   job.EventType,
			ProcessedAt: time.Now().UTC(),
		})
		if err != nil {
			// A concurrent delivery of the same event id won the insert race.
			// Rolling back discards every write above, so the winner's result
			// stands alone.
			if pkg.IsUniqueViolation(err) {
				return pkg.ErrEventAlreadyProcessed
			}
			return err
		}

		result = PaidResult{Changed: changed, Order: order, Session: session}
		return nil
	})
	if err != nil {
		return PaidResult{}, err
	}
	return result, nil
}
