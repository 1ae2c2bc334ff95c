package repositories

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/cartfuse/checkout-core/pkg"
	"github.com/cartfuse/checkout-core/pkg/models"
	"github.com/cartfuse/checkout-core/pkg/money"
)

type SessionRepository interface {
	// Create inserts a checkout session. The unique order_id column makes a
	// second session for the same order fail loudly.
	Create(ctx context.Context, tx pgx.Tx, session models.CheckoutSession) error
	FindByOrderID(ctx context.Context, tx pgx.Tx, orderID string) (models.CheckoutSession, error)
	UpdateStatusByOrderID(ctx context.Context, tx pgx.Tx, orderID string, status pkg.SessionStatus) error
}

type SessionRepositoryImpl struct {
}

func NewSessionRepository() SessionRepository {
	return &SessionRepositoryImpl{}
}

func (s SessionRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, session models.CheckoutSession) error {
	_, err := tx.Exec(ctx, `
						INSERT INTO checkout_sessions (id, order_id, user_id, provider, payment_intent_id, client_secret, amount, currency, status, created_at, updated_at)
						VALUES ($1, $2, $3, $4, $5, $6, $7::numeric, $8, $9, $10, $11)`,
		session.ID,
		session.OrderID,
		session.UserID,
		session.Provider,
		session.PaymentIntentID,
		session.ClientSecret,
		session.Amount.StringAmount(),
		session.Amount.Currency,
		session.Status,
		session.CreatedAt,
		session.UpdatedAt,
	)
	return err
}

func (s SessionRepositoryImpl) FindByOrderID(ctx context.Context, tx pgx.Tx, orderID string) (models.CheckoutSession, error) {
	var (
		session  models.CheckoutSession
		amount   string
		currency string
		status   string
	)
	err := tx.QueryRow(ctx, `
							SELECT id, order_id, user_id, provider, payment_intent_id, client_secret, amount::text, currency, status, created_at, updated_at
							FROM checkout_sessions WHERE order_id = $1`,
		orderID,
	).Scan(
		&session.ID,
		&session.OrderID,
		&session.UserID,
		&session.Provider,
		&session.PaymentIntentID,
		&session.ClientSecret,
		&amount,
		&currency,
		&status,
		&session.CreatedAt,
		&session.UpdatedAt,
	)
	if err != nil {
		return models.CheckoutSession{}, err
	}
	session.Status = pkg.SessionStatus(status)
	if session.Amount, err = money.New(amount, currency); err != nil {
		return models.CheckoutSession{}, err
	}
	return session, nil
}

func (s SessionRepositoryImpl) UpdateStatusByOrderID(ctx context.Context, tx pgx.Tx, orderID string, status pkg.SessionStatus) error {
	_, err := tx.Exec(ctx, `UPDATE checkout_sessions SET status = $1, updated_at = $2 WHERE order_id = $3`,
		status, time.Now().UTC(), orderID)
	return err
}
