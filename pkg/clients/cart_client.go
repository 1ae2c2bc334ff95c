// Package clients holds the HTTP clients for the upstream cart, inventory
// and payment services.
package clients

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cartfuse/checkout-core/pkg"
	"github.com/cartfuse/checkout-core/pkg/models"
	"github.com/cartfuse/checkout-core/pkg/utils"
)

// ErrCartUnavailable covers timeouts, transport failures and 5xx answers
// from the cart service.
var ErrCartUnavailable = errors.New("cart service unavailable")

// Cart is the priced cart returned by the cart service.
type Cart struct {
	Items    []models.OrderItem `json:"items"`
	Currency string             `json:"currency"`
}

type CartClient interface {
	// FetchCart returns the user's current cart with catalog prices attached.
	// A user without a cart gets an empty cart, not an error.
	FetchCart(ctx context.Context, traceID string, userID uuid.UUID) (Cart, error)
}

type CartClientImpl struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewCartClient(logger *zap.Logger, baseURL string, timeout time.Duration) CartClient {
	return &CartClientImpl{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  utils.NewHTTPClient(utils.WithClientTimeout(timeout)),
		logger:  logger,
	}
}

func (c *CartClientImpl) FetchCart(ctx context.Context, traceID string, userID uuid.UUID) (Cart, error) {
	url := fmt.Sprintf("%s/api/v1/carts/%s", c.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Cart{}, err
	}
	req.Header.Set(pkg.HeaderTraceId, traceID)

	resp, err := c.client.Do(req)
	if err != nil {
		return Cart{}, fmt.Errorf("%w: %v", ErrCartUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var cart Cart
		if err = json.NewDecoder(resp.Body).Decode(&cart); err != nil {
			return Cart{}, fmt.Errorf("%w: decoding response: %v", ErrCartUnavailable, err)
		}
		return cart, nil
	case resp.StatusCode == http.StatusNotFound:
		// No cart for this user yet.
		return Cart{}, nil
	case resp.StatusCode >= http.StatusInternalServerError:
		return Cart{}, fmt.Errorf("%w: status %d", ErrCartUnavailable, resp.StatusCode)
	default:
		return Cart{}, fmt.Errorf("cart service returned status %d", resp.StatusCode)
	}
}
