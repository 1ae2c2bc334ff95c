package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cartfuse/checkout-core/pkg"
	"github.com/cartfuse/checkout-core/pkg/utils"
	"github.com/cartfuse/checkout-core/services/webhook-gateway/internal/services"
	gwviews "github.com/cartfuse/checkout-core/services/webhook-gateway/internal/views"
)

type WebhookHandler struct {
	logger  *zap.Logger
	service services.WebhookService
	limiter *pkg.DistributedLimiter
	secret  []byte
	alg     string
}

func NewWebhookHandler(logger *zap.Logger, svc services.WebhookService, limiter *pkg.DistributedLimiter, secret []byte, alg string) *WebhookHandler {
	return &WebhookHandler{
		logger:  logger,
		service: svc,
		limiter: limiter,
		secret:  secret,
		alg:     alg,
	}
}

// RegisterRoutes registers webhook routes on the provided route group.
func (h *WebhookHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/webhooks/payment", h.HandlePaymentWebhook)
}

func (h *WebhookHandler) HandlePaymentWebhook(c *gin.Context) {
	traceID, err := utils.GetTraceID(c)
	if err != nil {
		resp := pkg.ToErrorResponse(h.logger, traceID, err)
		c.JSON(resp.Status, resp)
		return
	}

	if !h.limiter.Allow(c.Request.Context()) {
		resp := pkg.ToErrorResponse(h.logger, traceID,
			pkg.NewAppError(pkg.ErrRateLimitedCode, pkg.ErrRateLimitedCode.Message, pkg.ErrRateLimitExceeded))
		c.JSON(resp.Status, resp)
		return
	}

	// The signature covers the exact raw bytes, so the body is read before
	// any parsing can reshape it.
	raw, err := c.GetRawData()
	if err != nil || len(raw) == 0 {
		resp := pkg.ToErrorResponse(h.logger, traceID,
			pkg.NewAppError(pkg.ErrInvalidInputCode, "unreadable request body", err))
		c.JSON(resp.Status, resp)
		return
	}

	signature := c.GetHeader(pkg.HeaderWebhookSignature)
	if !utils.VerifySignature(h.alg, h.secret, raw, signature) {
		resp := pkg.ToErrorResponse(h.logger, traceID,
			pkg.NewAppError(pkg.ErrInvalidSignatureCode, pkg.ErrInvalidSignatureCode.Message, nil))
		c.JSON(resp.Status, resp)
		return
	}

	var event gwviews.PaymentEvent
	if err = json.Unmarshal(raw, &event); err != nil {
		resp := pkg.ToErrorResponse(h.logger, traceID,
			pkg.NewAppError(pkg.ErrInvalidInputCode, "invalid event payload", err))
		c.JSON(resp.Status, resp)
		return
	}

	ack, err := h.service.ProcessPaymentEvent(c.Request.Context(), traceID, event)
	if err != nil {
		resp := pkg.ToErrorResponse(h.logger, traceID, err)
		c.JSON(resp.Status, resp)
		return
	}

	c.JSON(http.StatusOK, ack)
}
