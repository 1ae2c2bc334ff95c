package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/cartfuse/checkout-core/pkg"
	"github.com/cartfuse/checkout-core/pkg/utils"
	"github.com/cartfuse/checkout-core/services/checkout-api/internal/services"
	"github.com/cartfuse/checkout-core/services/checkout-api/internal/views"
)

type CheckoutHandler struct {
	logger  *zap.Logger
	service services.CheckoutService
}

func NewCheckoutHandler(logger *zap.Logger, svc services.CheckoutService) *CheckoutHandler {
	return &CheckoutHandler{logger: logger, service: svc}
}

// RegisterRoutes registers checkout routes on the provided route group.
func (h *CheckoutHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/checkout", h.CreateCheckout)
}

func (h *CheckoutHandler) CreateCheckout(c *gin.Context) {
	traceID, err := utils.GetTraceID(c)
	if err != nil {
		resp := pkg.ToErrorResponse(h.logger, traceID, err)
		c.JSON(resp.Status, resp)
		return
	}
	userID, err := utils.GetUserID(c)
	if err != nil {
		resp := pkg.ToErrorResponse(h.logger, traceID, pkg.NewAppError(pkg.ErrUnauthorizedCode, pkg.ErrUnauthorizedCode.Message, err))
		c.JSON(resp.Status, resp)
		return
	}

	var req views.CheckoutRequest
	if err = c.ShouldBindJSON(&req); err != nil {
		resp := pkg.ToErrorResponse(h.logger, traceID, pkg.NewAppError(pkg.ErrInvalidInputCode, "invalid request body", err))
		c.JSON(resp.Status, resp)
		return
	}

	view, err := h.service.CreateCheckout(c.Request.Context(), traceID, userID, req)
	if err != nil {
		resp := pkg.ToErrorResponse(h.logger, traceID, err)
		c.JSON(resp.Status, resp)
		return
	}

	c.JSON(http.StatusCreated, view)
}
