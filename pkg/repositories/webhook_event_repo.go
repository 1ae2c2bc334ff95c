package repositories

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/cartfuse/checkout-core/pkg/database"
	"github.com/cartfuse/checkout-core/pkg/models"
)

type WebhookEventRepository interface {
	// Create inserts the processed-event row. A duplicate event id surfaces
	// as a unique violation; callers decide what that means.
	Create(ctx context.Context, tx pgx.Tx, event models.WebhookEvent) error
	// Exists is the cheap pre-check used before opening a transaction. It may
	// read a replica, so a false answer is advisory only.
	Exists(ctx context.Context, db *database.DB, eventID string) (bool, error)
}

type WebhookEventRepositoryImpl struct {
}

func NewWebhookEventRepository() WebhookEventRepository {
	return &WebhookEventRepositoryImpl{}
}

func (w WebhookEventRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, event models.WebhookEvent) error {
	_, err := tx.Exec(ctx, `
						INSERT INTO webhook_events (event_id, order_id, event_type, processed_at)
						VALUES ($1, $2, $3, $4)`,
		event.EventID,
		event.OrderID,
		event.EventType,
		event.ProcessedAt,
	)
	return err
}

func (w WebhookEventRepositoryImpl) Exists(ctx context.Context, db *database.DB, eventID string) (bool, error) {
	var exists bool
	err := db.QueryRow(ctx, `
							SELECT EXISTS(SELECT 1 FROM webhook_events WHERE event_id = $1)`,
		eventID,
	).Scan(&exists)
	return exists, err
}
