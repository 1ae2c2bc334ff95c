package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cartfuse/checkout-core/pkg"
	middleware "github.com/cartfuse/checkout-core/pkg/middlewares"
	"github.com/cartfuse/checkout-core/pkg/utils"
	"github.com/cartfuse/checkout-core/pkg/views"
	gwviews "github.com/cartfuse/checkout-core/services/webhook-gateway/internal/views"
)

var testSecret = []byte("whsec_test")

const eventBody = `{
	"id": "evt_1",
	"type": "payment.confirmed",
	"createdAt": "2026-08-01T10:00:00Z",
	"data": {
		"provider": "stripe",
		"paymentId": "pay_9",
		"orderId": "ord_1",
		"amount": {"amount": "26.00", "currency": "EUR"}
	}
}`

type stubWebhookService struct {
	ack   views.WebhookAckView
	err   error
	event *gwviews.PaymentEvent
}

func (s *stubWebhookService) ProcessPaymentEvent(_ context.Context, _ string, event gwviews.PaymentEvent) (views.WebhookAckView, error) {
	s.event = &event
	if s.err != nil {
		return views.WebhookAckView{}, s.err
	}
	return s.ack, nil
}

func unlimitedLimiter() *pkg.DistributedLimiter {
	return pkg.NewDistributedLimiter(nil, "test:rate", 0, 0, time.Minute, zap.NewNop())
}

// exhaustedLimiter rejects every request at the local check, before Redis.
func exhaustedLimiter() *pkg.DistributedLimiter {
	return pkg.NewDistributedLimiter(nil, "test:rate", 1, 0, time.Minute, zap.NewNop())
}

func newWebhookRouter(svc *stubWebhookService, limiter *pkg.DistributedLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	api := r.Group("/api/v1")
	api.Use(middleware.TraceID())
	NewWebhookHandler(zap.NewNop(), svc, limiter, testSecret, utils.SignatureAlgSHA256).RegisterRoutes(api)
	return r
}

func postWebhook(t *testing.T, r *gin.Engine, body []byte, signature string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/webhooks/payment", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if signature != "" {
		req.Header.Set(pkg.HeaderWebhookSignature, signature)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func signBody(t *testing.T, body []byte) string {
	t.Helper()
	signature, err := utils.ComputeSignature(utils.SignatureAlgSHA256, testSecret, body)
	require.NoError(t, err)
	return signature
}

func decodeErrorBody(t *testing.T, w *httptest.ResponseRecorder) pkg.ErrorResponse {
	t.Helper()
	var out pkg.ErrorResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestHandlePaymentWebhook_ValidSignature(t *testing.T) {
	svc := &stubWebhookService{ack: views.WebhookAckView{EventID: "evt_1", Status: views.WebhookStatusProcessed}}
	r := newWebhookRouter(svc, unlimitedLimiter())
	body := []byte(eventBody)

	w := postWebhook(t, r, body, signBody(t, body))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.NotEmpty(t, w.Header().Get(pkg.HeaderTraceId))

	var ack views.WebhookAckView
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &ack))
	assert.Equal(t, "evt_1", ack.EventID)
	assert.Equal(t, views.WebhookStatusProcessed, ack.Status)

	// The wire shape reached the service intact.
	require.NotNil(t, svc.event)
	assert.Equal(t, "evt_1", svc.event.ID)
	assert.Equal(t, "payment.confirmed", svc.event.Type)
	assert.Equal(t, "stripe", svc.event.Data.Provider)
	assert.Equal(t, "pay_9", svc.event.Data.PaymentID)
	assert.Equal(t, "ord_1", svc.event.Data.OrderID)
	assert.Equal(t, "26.00", svc.event.Data.Amount.Amount)
	assert.Equal(t, "EUR", svc.event.Data.Amount.Currency)
}

func TestHandlePaymentWebhook_TamperedBody(t *testing.T) {
	svc := &stubWebhookService{}
	r := newWebhookRouter(svc, unlimitedLimiter())
	signature := signBody(t, []byte(eventBody))

	tampered := bytes.Replace([]byte(eventBody), []byte("26.00"), []byte("1.00"), 1)
	w := postWebhook(t, r, tampered, signature)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, pkg.ErrInvalidSignatureCode.Code, decodeErrorBody(t, w).Code)
	assert.Nil(t, svc.event)
}

func TestHandlePaymentWebhook_MissingSignature(t *testing.T) {
	svc := &stubWebhookService{}
	r := newWebhookRouter(svc, unlimitedLimiter())

	w := postWebhook(t, r, []byte(eventBody), "")

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, pkg.ErrInvalidSignatureCode.Code, decodeErrorBody(t, w).Code)
	assert.Nil(t, svc.event)
}

func TestHandlePaymentWebhook_RateLimited(t *testing.T) {
	svc := &stubWebhookService{}
	r := newWebhookRouter(svc, exhaustedLimiter())
	body := []byte(eventBody)

	w := postWebhook(t, r, body, signBody(t, body))

	assert.Equal(t, http.StatusTooManyRequests, w.Code)
	assert.Equal(t, pkg.ErrRateLimitedCode.Code, decodeErrorBody(t, w).Code)
	assert.Nil(t, svc.event)
}

func TestHandlePaymentWebhook_EmptyBody(t *testing.T) {
	svc := &stubWebhookService{}
	r := newWebhookRouter(svc, unlimitedLimiter())

	w := postWebhook(t, r, nil, signBody(t, nil))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, pkg.ErrInvalidInputCode.Code, decodeErrorBody(t, w).Code)
	assert.Nil(t, svc.event)
}

func TestHandlePaymentWebhook_MalformedJSON(t *testing.T) {
	svc := &stubWebhookService{}
	r := newWebhookRouter(svc, unlimitedLimiter())
	body := []byte("not json")

	// Signed correctly, still rejected at the parse step.
	w := postWebhook(t, r, body, signBody(t, body))

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, pkg.ErrInvalidInputCode.Code, decodeErrorBody(t, w).Code)
	assert.Nil(t, svc.event)
}

func TestHandlePaymentWebhook_ServiceErrorMapped(t *testing.T) {
	svc := &stubWebhookService{err: pkg.NewAppError(pkg.ErrAmountMismatchCode, pkg.ErrAmountMismatchCode.Message, pkg.ErrAmountMismatch)}
	r := newWebhookRouter(svc, unlimitedLimiter())
	body := []byte(eventBody)

	w := postWebhook(t, r, body, signBody(t, body))

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	out := decodeErrorBody(t, w)
	assert.Equal(t, pkg.ErrAmountMismatchCode.Code, out.Code)
	assert.NotEmpty(t, out.Message)
}
