package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/cartfuse/checkout-core/pkg"
	"github.com/cartfuse/checkout-core/pkg/utils"
)

var ErrInventoryUnavailable = errors.New("inventory service unavailable")

// StockConflictError reports a reservation rejected for lack of stock.
type StockConflictError struct {
	Sku string
}

func (e *StockConflictError) Error() string {
	return fmt.Sprintf("insufficient stock for sku %s", e.Sku)
}

// Reservation is one granted stock hold. The ticket is the handle used to
// release it.
type Reservation struct {
	Ticket   string
	Sku      string
	Quantity int64
}

type InventoryClient interface {
	// Reserve places a hold on quantity units of sku. A stock shortage comes
	// back as *StockConflictError.
	Reserve(ctx context.Context, traceID string, sku string, quantity int64) (Reservation, error)
	// Release frees a previously granted hold. Releasing an unknown or
	// already released ticket succeeds.
	Release(ctx context.Context, traceID string, ticket string) error
}

type InventoryClientImpl struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewInventoryClient(logger *zap.Logger, baseURL string, timeout time.Duration) InventoryClient {
	return &InventoryClientImpl{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  utils.NewHTTPClient(utils.WithClientTimeout(timeout)),
		logger:  logger,
	}
}

type reserveRequest struct {
	Sku      string `json:"sku"`
	Quantity int64  `json:"quantity"`
}

type reserveResponse struct {
	Ticket string `json:"ticket"`
}

func (c *InventoryClientImpl) Reserve(ctx context.Context, traceID string, sku string, quantity int64) (Reservation, error) {
	body, err := json.Marshal(reserveRequest{Sku: sku, Quantity: quantity})
	if err != nil {
		return Reservation{}, err
	}
	url := c.baseURL + "/api/v1/reservations"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return Reservation{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(pkg.HeaderTraceId, traceID)

	resp, err := c.client.Do(req)
	if err != nil {
		return Reservation{}, fmt.Errorf("%w: %v", ErrInventoryUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusCreated || resp.StatusCode == http.StatusOK:
		var out reserveResponse
		if err = json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return Reservation{}, fmt.Errorf("%w: decoding response: %v", ErrInventoryUnavailable, err)
		}
		if utils.IsEmpty(out.Ticket) {
			return Reservation{}, fmt.Errorf("%w: empty ticket", ErrInventoryUnavailable)
		}
		return Reservation{Ticket: out.Ticket, Sku: sku, Quantity: quantity}, nil
	case resp.StatusCode == http.StatusConflict:
		return Reservation{}, &StockConflictError{Sku: sku}
	default:
		return Reservation{}, fmt.Errorf("%w: status %d", ErrInventoryUnavailable, resp.StatusCode)
	}
}

func (c *InventoryClientImpl) Release(ctx context.Context, traceID string, ticket string) error {
	url := fmt.Sprintf("%s/api/v1/reservations/%s", c.baseURL, ticket)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set(pkg.HeaderTraceId, traceID)

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInventoryUnavailable, err)
	}
	defer resp.Body.Close()

	// 404 means the hold is already gone, which is the state we wanted.
	if resp.StatusCode == http.StatusNoContent || resp.StatusCode == http.StatusOK || resp.StatusCode == http.StatusNotFound {
		return nil
	}
	return fmt.Errorf("%w: status %d", ErrInventoryUnavailable, resp.StatusCode)
}
