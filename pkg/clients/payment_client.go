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
	"github.com/cartfuse/checkout-core/pkg/money"
	"github.com/cartfuse/checkout-core/pkg/utils"
)

// ErrIntentFailed covers every way the provider can refuse or fail to create
// a payment intent.
var ErrIntentFailed = errors.New("payment intent creation failed")

// PaymentIntent is the provider's handle for collecting an order total. The
// client secret is handed to the buyer's browser to complete payment.
type PaymentIntent struct {
	IntentID     string
	ClientSecret string
	Provider     string
}

type PaymentClient interface {
	// CreateIntent registers the order total with the payment provider.
	CreateIntent(ctx context.Context, traceID string, orderID string, amount money.Money, method string) (PaymentIntent, error)
	// CancelIntent voids an intent. Best effort: callers log failures and
	// move on, an uncancelled intent expires on the provider side.
	CancelIntent(ctx context.Context, traceID string, intentID string) error
}

type PaymentClientImpl struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func NewPaymentClient(logger *zap.Logger, baseURL string, timeout time.Duration) PaymentClient {
	return &PaymentClientImpl{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  utils.NewHTTPClient(utils.WithClientTimeout(timeout)),
		logger:  logger,
	}
}

type intentRequest struct {
	OrderID string      `json:"orderId"`
	Amount  money.Money `json:"amount"`
	Method  string      `json:"method,omitempty"`
}

type intentResponse struct {
	IntentID     string `json:"intentId"`
	ClientSecret string `json:"clientSecret"`
	Provider     string `json:"provider"`
}

func (c *PaymentClientImpl) CreateIntent(ctx context.Context, traceID string, orderID string, amount money.Money, method string) (PaymentIntent, error) {
	body, err := json.Marshal(intentRequest{OrderID: orderID, Amount: amount, Method: method})
	if err != nil {
		return PaymentIntent{}, err
	}
	url := c.baseURL + "/v1/intents"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return PaymentIntent{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(pkg.HeaderTraceId, traceID)

	resp, err := c.client.Do(req)
	if err != nil {
		return PaymentIntent{}, fmt.Errorf("%w: %v", ErrIntentFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return PaymentIntent{}, fmt.Errorf("%w: status %d", ErrIntentFailed, resp.StatusCode)
	}
	var out intentResponse
	if err = json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return PaymentIntent{}, fmt.Errorf("%w: decoding response: %v", ErrIntentFailed, err)
	}
	if utils.IsEmpty(out.IntentID) {
		return PaymentIntent{}, fmt.Errorf("%w: empty intent id", ErrIntentFailed)
	}
	return PaymentIntent{
		IntentID:     out.IntentID,
		ClientSecret: out.ClientSecret,
		Provider:     out.Provider,
	}, nil
}

func (c *PaymentClientImpl) CancelIntent(ctx context.Context, traceID string, intentID string) error {
	url := fmt.Sprintf("%s/v1/intents/%s/cancel", c.baseURL, intentID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set(pkg.HeaderTraceId, traceID)

	resp, err := c.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest && resp.StatusCode != http.StatusNotFound {
		return fmt.Errorf("cancel intent returned status %d", resp.StatusCode)
	}
	return nil
}
