package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cartfuse/checkout-core/pkg"
	"github.com/cartfuse/checkout-core/pkg/repositories"
	"github.com/cartfuse/checkout-core/pkg/views"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

type OrderService interface {
	// GetOrder returns the order only to its owner. Someone else's order id
	// answers exactly like a missing one.
	GetOrder(ctx context.Context, traceID string, userID uuid.UUID, orderID string) (views.OrderView, error)
	ListOrders(ctx context.Context, traceID string, userID uuid.UUID, pageNumber int, size int) ([]views.OrderSummaryView, error)
}

type OrderServiceImpl struct {
	logger *zap.Logger
	store  repositories.Store
}

func NewOrderService(logger *zap.Logger, store repositories.Store) OrderService {
	return &OrderServiceImpl{logger: logger, store: store}
}

func (s *OrderServiceImpl) GetOrder(ctx context.Context, traceID string, userID uuid.UUID, orderID string) (views.OrderView, error) {
	order, err := s.store.GetOrder(ctx, orderID, userID)
	if err != nil {
		if errors.Is(err, pkg.ErrOrderNotFound) {
			return views.OrderView{}, pkg.NewAppError(pkg.ErrOrderNotFoundCode, pkg.ErrOrderNotFoundCode.Message, err)
		}
		return views.OrderView{}, pkg.HandleSQLError(traceID, s.logger, err)
	}
	return order.ToOrderView(), nil
}

func (s *OrderServiceImpl) ListOrders(ctx context.Context, traceID string, userID uuid.UUID, pageNumber int, size int) ([]views.OrderSummaryView, error) {
	if pageNumber < 1 {
		pageNumber = 1
	}
	if size < 1 {
		size = defaultPageSize
	}
	if size > maxPageSize {
		size = maxPageSize
	}

	orders, err := s.store.ListOrdersByUser(ctx, userID, pageNumber, size)
	if err != nil {
		return nil, pkg.HandleSQLError(traceID, s.logger, err)
	}

	summaries := make([]views.OrderSummaryView, 0, len(orders))
	for _, order := range orders {
		summaries = append(summaries, order.ToSummaryView())
	}
	return summaries, nil
}
