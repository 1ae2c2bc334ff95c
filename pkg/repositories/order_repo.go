package repositories

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/cartfuse/checkout-core/pkg/codec"
	"github.com/cartfuse/checkout-core/pkg/database"
	"github.com/cartfuse/checkout-core/pkg/models"
	"github.com/cartfuse/checkout-core/pkg/money"
	"github.com/cartfuse/checkout-core/pkg/orderstate"
)

const orderColumns = `id, user_id, status, items, shipping_address,
						items_total::text, shipping_fee::text, total::text, currency,
						COALESCE(payment_provider, ''), COALESCE(payment_id, ''), created_at, updated_at`

type OrderRepository interface {
	// Create inserts a new order with its item and address snapshots.
	Create(ctx context.Context, tx pgx.Tx, order models.Order) error
	// FindByUser loads an order only when it belongs to userID.
	FindByUser(ctx context.Context, db *database.DB, orderID string, userID uuid.UUID) (models.Order, error)
	// FindForUpdate loads an order on the writer and locks its row for the
	// remainder of the transaction.
	FindForUpdate(ctx context.Context, tx pgx.Tx, orderID string) (models.Order, error)
	ListByUser(ctx context.Context, db *database.DB, userID uuid.UUID, pageNumber int, size int) ([]models.Order, error)
	// MarkPaid moves the order to paid and records which provider payment
	// settled it.
	MarkPaid(ctx context.Context, tx pgx.Tx, orderID string, provider string, paymentID string) error
}

type OrderRepositoryImpl struct {
}

func NewOrderRepository() OrderRepository {
	return &OrderRepositoryImpl{}
}

func (o OrderRepositoryImpl) Create(ctx context.Context, tx pgx.Tx, order models.Order) error {
	items, err := codec.Encode(order.Items)
	if err != nil {
		return err
	}
	address, err := codec.Encode(order.ShippingAddress)
	if err != nil {
		return err
	}
	_, err = tx.Exec(ctx, `
						INSERT INTO orders (id, user_id, status, items, shipping_address, items_total, shipping_fee, total, currency, created_at, updated_at)
						VALUES ($1, $2, $3, $4, $5, $6::numeric, $7::numeric, $8::numeric, $9, $10, $11)`,
		order.ID,
		order.UserID,
		order.Status,
		items,
		address,
		order.ItemsTotal.StringAmount(),
		order.ShippingFee.StringAmount(),
		order.Total.StringAmount(),
		order.Total.Currency,
		order.CreatedAt,
		order.UpdatedAt,
	)
	return err
}

func (o OrderRepositoryImpl) FindByUser(ctx context.Context, db *database.DB, orderID string, userID uuid.UUID) (models.Order, error) {
	row := db.QueryRow(ctx, `
							SELECT `+orderColumns+`
							FROM orders WHERE id = $1 AND user_id = $2`,
		orderID, userID,
	)
	return scanOrder(row)
}

func (o OrderRepositoryImpl) FindForUpdate(ctx context.Context, tx pgx.Tx, orderID string) (models.Order, error) {
	row := tx.QueryRow(ctx, `
							SELECT `+orderColumns+`
							FROM orders WHERE id = $1 FOR UPDATE`,
		orderID,
	)
	return scanOrder(row)
}

func (o OrderRepositoryImpl) ListByUser(ctx context.Context, db *database.DB, userID uuid.UUID, pageNumber int, size int) ([]models.Order, error) {
	offset := (pageNumber - 1) * size
	rows, err := db.Query(ctx, `
							SELECT `+orderColumns+`
							FROM orders WHERE user_id = $1
							ORDER BY created_at DESC
							LIMIT $2 OFFSET $3`,
		userID, size, offset,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var orders []models.Order
	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, order)
	}
	return orders, rows.Err()
}

func (o OrderRepositoryImpl) MarkPaid(ctx context.Context, tx pgx.Tx, orderID string, provider string, paymentID string) error {
	_, err := tx.Exec(ctx, `
						UPDATE orders
						SET status = $1, payment_provider = $2, payment_id = $3, updated_at = $4
						WHERE id = $5`,
		orderstate.StatusPaid, provider, paymentID, time.Now().UTC(), orderID)
	return err
}

func scanOrder(row pgx.Row) (models.Order, error) {
	var (
		order       models.Order
		status      string
		items       []byte
		address     []byte
		itemsTotal  string
		shippingFee string
		total       string
		currency    string
	)
	if err := row.Scan(
		&order.ID,
		&order.UserID,
		&status,
		&items,
		&address,
		&itemsTotal,
		&shippingFee,
		&total,
		&currency,
		&order.PaymentProvider,
		&order.PaymentID,
		&order.CreatedAt,
		&order.UpdatedAt,
	); err != nil {
		return models.Order{}, err
	}

	parsed, err := orderstate.Parse(status)
	if err != nil {
		return models.Order{}, err
	}
	order.Status = parsed

	if err = codec.Decode(items, &order.Items); err != nil {
		return models.Order{}, err
	}
	if err = codec.Decode(address, &order.ShippingAddress); err != nil {
		return models.Order{}, err
	}

	if order.ItemsTotal, err = money.New(itemsTotal, currency); err != nil {
		return models.Order{}, err
	}
	if order.ShippingFee, err = money.New(shippingFee, currency); err != nil {
		return models.Order{}, err
	}
	if order.Total, err = money.New(total, currency); err != nil {
		return models.Order{}, err
	}
	return order, nil
}
