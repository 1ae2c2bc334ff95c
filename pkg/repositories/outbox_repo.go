package repositories

import (
	"context"
	"encoding/json"

	"github.com/jackc/pgx/v5"

	"github.com/cartfuse/checkout-core/pkg/models"
)

type OutboxRepository interface {
	// Insert stages an event in the same transaction as the state change it
	// announces.
	Insert(ctx context.Context, tx pgx.Tx, topic, key string, payload any) error
	// FetchPending claims up to limit rows, skipping rows another publisher
	// already holds.
	FetchPending(ctx context.Context, tx pgx.Tx, limit int) ([]models.OutboxEvent, error)
	Delete(ctx context.Context, tx pgx.Tx, ids []int64) error
}

type OutboxRepositoryImpl struct {
}

func NewOutboxRepository() OutboxRepository {
	return &OutboxRepositoryImpl{}
}

func (o OutboxRepositoryImpl) Insert(ctx context.Context, tx pgx.Tx, topic, key string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
						INSERT INTO outbox_events (topic, key, payload)
						VALUES ($1, $2, $3)`,
		topic, key, raw,
	)
	return err
}

func (o OutboxRepositoryImpl) FetchPending(ctx context.Context, tx pgx.Tx, limit int) ([]models.OutboxEvent, error) {
	rows, err := tx.Query(ctx, `
							SELECT id, topic, key, payload, created_at
							FROM outbox_events
							ORDER BY id
							LIMIT $1
							FOR UPDATE SKIP LOCKED`,
		limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.OutboxEvent
	for rows.Next() {
		var ev models.OutboxEvent
		if err = rows.Scan(&ev.ID, &ev.Topic, &ev.Key, &ev.Payload, &ev.CreatedAt); err != nil {
			return nil, err
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (o OutboxRepositoryImpl) Delete(ctx context.Context, tx pgx.Tx, ids []int64) error {
	if len(ids) == 0 {
		return nil
	}
	_, err := tx.Exec(ctx, `DELETE FROM outbox_events WHERE id = ANY($1)`, ids)
	return err
}
