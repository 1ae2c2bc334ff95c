package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cartfuse/checkout-core/pkg"
	"github.com/cartfuse/checkout-core/pkg/clients"
	"github.com/cartfuse/checkout-core/pkg/dtos"
	"github.com/cartfuse/checkout-core/pkg/models"
	"github.com/cartfuse/checkout-core/pkg/money"
	"github.com/cartfuse/checkout-core/pkg/orderstate"
	"github.com/cartfuse/checkout-core/pkg/reconcile"
	"github.com/cartfuse/checkout-core/pkg/repositories"
	"github.com/cartfuse/checkout-core/pkg/utils"
	"github.com/cartfuse/checkout-core/pkg/views"
	"github.com/cartfuse/checkout-core/services/checkout-api/configs"
	apiviews "github.com/cartfuse/checkout-core/services/checkout-api/internal/views"
)

// releaseTimeout bounds the detached compensation pass after a failed
// checkout.
const releaseTimeout = 10 * time.Second

type CheckoutService interface {
	// CreateCheckout runs the full pipeline: validate, price the cart,
	// reserve stock, open a payment intent and persist the pending order
	// with its session. Any failure after reservations were granted releases
	// them before the error is returned.
	CreateCheckout(ctx context.Context, traceID string, userID uuid.UUID, req apiviews.CheckoutRequest) (views.CheckoutView, error)
}

type CheckoutServiceConfig struct {
	Logger    *zap.Logger
	Config    *configs.Config
	Carts     clients.CartClient
	Inventory clients.InventoryClient
	Payments  clients.PaymentClient
	Store     repositories.Store
	Shipping  ShippingService
	Releases  reconcile.Queue
}

type CheckoutServiceImpl struct {
	logger    *zap.Logger
	cfg       *configs.Config
	carts     clients.CartClient
	inventory clients.InventoryClient
	payments  clients.PaymentClient
	store     repositories.Store
	shipping  ShippingService
	releases  reconcile.Queue
}

func NewCheckoutService(cnf CheckoutServiceConfig) CheckoutService {
	return &CheckoutServiceImpl{
		logger:    cnf.Logger,
		cfg:       cnf.Config,
		carts:     cnf.Carts,
		inventory: cnf.Inventory,
		payments:  cnf.Payments,
		store:     cnf.Store,
		shipping:  cnf.Shipping,
		releases:  cnf.Releases,
	}
}

func (s *CheckoutServiceImpl) CreateCheckout(ctx context.Context, traceID string, userID uuid.UUID, req apiviews.CheckoutRequest) (views.CheckoutView, error) {
	// Reject bad input before touching any upstream service.
	if issues := validateRequest(req); len(issues) > 0 {
		return views.CheckoutView{}, pkg.NewValidationError(issues...)
	}

	cart, err := s.carts.FetchCart(ctx, traceID, userID)
	if err != nil {
		if errors.Is(err, clients.ErrCartUnavailable) {
			return views.CheckoutView{}, pkg.NewAppError(pkg.ErrCartUnavailableCode, pkg.ErrCartUnavailableCode.Message, err)
		}
		return views.CheckoutView{}, pkg.NewAppError(pkg.ErrServerCode, "failed to fetch cart", err)
	}
	if len(cart.Items) == 0 {
		return views.CheckoutView{}, pkg.NewAppError(pkg.ErrEmptyCartCode, pkg.ErrEmptyCartCode.Message, nil)
	}
	if issues := s.validateCartLines(cart); len(issues) > 0 {
		return views.CheckoutView{}, pkg.NewValidationError(issues...)
	}

	itemsTotal, err := sumItems(cart)
	if err != nil {
		return views.CheckoutView{}, pkg.NewAppError(pkg.ErrServerCode, "cart pricing is inconsistent", err)
	}
	shippingFee, err := s.shipping.Quote(itemsTotal)
	if err != nil {
		return views.CheckoutView{}, pkg.NewAppError(pkg.ErrServerCode, "failed to quote shipping", err)
	}
	total, err := itemsTotal.Add(shippingFee)
	if err != nil {
		return views.CheckoutView{}, pkg.NewAppError(pkg.ErrServerCode, "failed to total order", err)
	}

	orderID := models.NewOrderID()

	acquired, err := s.reserveItems(ctx, traceID, cart.Items)
	if err != nil {
		s.compensate(ctx, traceID, acquired)
		var conflict *clients.StockConflictError
		if errors.As(err, &conflict) {
			return views.CheckoutView{}, pkg.NewAppError(pkg.ErrStockConflictCode,
				fmt.Sprintf("insufficient stock for sku %s", conflict.Sku), err)
		}
		return views.CheckoutView{}, pkg.NewAppError(pkg.ErrServerCode, "stock reservation failed", err)
	}

	intent, err := s.payments.CreateIntent(ctx, traceID, orderID, total, req.PaymentMethod)
	if err != nil {
		s.compensate(ctx, traceID, acquired)
		return views.CheckoutView{}, pkg.NewAppError(pkg.ErrPaymentIntentFailedCode, pkg.ErrPaymentIntentFailedCode.Message, err)
	}

	now := time.Now().UTC()
	order := models.Order{
		ID:              orderID,
		UserID:          userID,
		Status:          orderstate.StatusPending,
		Items:           cart.Items,
		ShippingAddress: toAddress(req.ShippingAddress),
		ItemsTotal:      itemsTotal,
		ShippingFee:     shippingFee,
		Total:           total,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	session := models.CheckoutSession{
		ID:              models.NewSessionID(),
		OrderID:         orderID,
		UserID:          userID,
		Provider:        intent.Provider,
		PaymentIntentID: intent.IntentID,
		ClientSecret:    intent.ClientSecret,
		Amount:          total,
		Status:          pkg.SessionStatusCreated,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if err = s.store.CreateOrderWithSession(ctx, order, session); err != nil {
		s.compensate(ctx, traceID, acquired)
		s.cancelIntent(ctx, traceID, intent.IntentID)
		return views.CheckoutView{}, pkg.HandleSQLError(traceID, s.logger, err)
	}

	s.logger.Info("checkout completed",
		zap.String(pkg.TraceId, traceID),
		zap.String(pkg.OrderId, orderID),
		zap.String(pkg.SessionId, session.ID),
		zap.String("total", total.String()),
	)
	return toCheckoutView(order, session), nil
}

// reserveItems places one hold per cart line, in cart order. On failure it
// returns the holds granted so far so the caller can release them.
func (s *CheckoutServiceImpl) reserveItems(ctx context.Context, traceID string, items []models.OrderItem) ([]clients.Reservation, error) {
	acquired := make([]clients.Reservation, 0, len(items))
	for _, item := range items {
		r, err := s.inventory.Reserve(ctx, traceID, item.Sku, item.Quantity)
		if err != nil {
			return acquired, err
		}
		acquired = append(acquired, r)
	}
	return acquired, nil
}

// compensate releases granted holds in reverse order. The request context
// may already be cancelled, so releases run detached; one that still fails
// is parked on the reconciliation queue instead of being dropped.
func (s *CheckoutServiceImpl) compensate(ctx context.Context, traceID string, acquired []clients.Reservation) {
	if len(acquired) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()

	for i := len(acquired) - 1; i >= 0; i-- {
		r := acquired[i]
		err := s.inventory.Release(ctx, traceID, r.Ticket)
		if err == nil {
			continue
		}
		s.logger.Error("inline release failed",
			zap.String(pkg.TraceId, traceID),
			zap.String(pkg.Ticket, r.Ticket),
			zap.String(pkg.Sku, r.Sku),
			zap.Error(err),
		)
		job := dtos.ReleaseTicketDto{
			Ticket:    r.Ticket,
			Sku:       r.Sku,
			Quantity:  r.Quantity,
			Attempts:  1,
			LastError: err.Error(),
		}
		if qErr := s.releases.Enqueue(ctx, job); qErr != nil {
			s.logger.Error("failed to park release job",
				zap.String(pkg.TraceId, traceID),
				zap.String(pkg.Ticket, r.Ticket),
				zap.Error(qErr),
			)
		}
	}
}

func (s *CheckoutServiceImpl) cancelIntent(ctx context.Context, traceID string, intentID string) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), releaseTimeout)
	defer cancel()
	if err := s.payments.CancelIntent(ctx, traceID, intentID); err != nil {
		s.logger.Warn("failed to cancel payment intent",
			zap.String(pkg.TraceId, traceID),
			zap.String("payment_intent_id", intentID),
			zap.Error(err),
		)
	}
}

func (s *CheckoutServiceImpl) validateCartLines(cart clients.Cart) []pkg.FieldIssue {
	var issues []pkg.FieldIssue
	if len(cart.Items) > s.cfg.MaxItemsPerOrder {
		issues = append(issues, pkg.FieldIssue{
			Field: "items",
			Issue: fmt.Sprintf("order cannot exceed %d items", s.cfg.MaxItemsPerOrder),
		})
	}
	for i, item := range cart.Items {
		if utils.IsEmpty(item.Sku) {
			issues = append(issues, pkg.FieldIssue{
				Field: fmt.Sprintf("items[%d].sku", i),
				Issue: "is required",
			})
		}
		if item.Quantity < 1 || item.Quantity > s.cfg.MaxQuantityPerItem {
			issues = append(issues, pkg.FieldIssue{
				Field: fmt.Sprintf("items[%d].quantity", i),
				Issue: fmt.Sprintf("must be between 1 and %d", s.cfg.MaxQuantityPerItem),
			})
		}
	}
	return issues
}

func validateRequest(req apiviews.CheckoutRequest) []pkg.FieldIssue {
	var issues []pkg.FieldIssue
	addr := req.ShippingAddress
	required := []struct {
		field string
		value string
	}{
		{"shippingAddress.name", addr.Name},
		{"shippingAddress.line1", addr.Line1},
		{"shippingAddress.city", addr.City},
		{"shippingAddress.postalCode", addr.PostalCode},
		{"paymentMethod", req.PaymentMethod},
	}
	for _, r := range required {
		if utils.IsEmpty(r.value) {
			issues = append(issues, pkg.FieldIssue{Field: r.field, Issue: "is required"})
		}
	}
	if !validCountry(addr.Country) {
		issues = append(issues, pkg.FieldIssue{
			Field: "shippingAddress.country",
			Issue: "must be a two-letter uppercase ISO code",
		})
	}
	return issues
}

func validCountry(code string) bool {
	if len(code) != 2 {
		return false
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return false
		}
	}
	return true
}

func sumItems(cart clients.Cart) (money.Money, error) {
	currency := cart.Currency
	if utils.IsEmpty(currency) {
		currency = cart.Items[0].UnitPrice.Currency
	}
	total := money.Zero(currency)
	for _, item := range cart.Items {
		if !item.UnitPrice.IsPositive() {
			return money.Money{}, fmt.Errorf("sku %s has a non-positive unit price", item.Sku)
		}
		var err error
		total, err = total.Add(item.LineTotal())
		if err != nil {
			return money.Money{}, err
		}
	}
	return total, nil
}

func toAddress(addr apiviews.AddressPayload) models.Address {
	return models.Address{
		Name:       addr.Name,
		Line1:      addr.Line1,
		Line2:      addr.Line2,
		City:       addr.City,
		PostalCode: addr.PostalCode,
		Country:    addr.Country,
	}
}

func toCheckoutView(order models.Order, session models.CheckoutSession) views.CheckoutView {
	ov := order.ToOrderView()
	return views.CheckoutView{
		SessionID:   session.ID,
		OrderID:     order.ID,
		Status:      string(session.Status),
		Items:       ov.Items,
		ItemsTotal:  order.ItemsTotal,
		ShippingFee: order.ShippingFee,
		Total:       order.Total,
		Payment: views.PaymentView{
			Provider:     session.Provider,
			IntentID:     session.PaymentIntentID,
			ClientSecret: session.ClientSecret,
		},
		CreatedAt: order.CreatedAt,
	}
}
