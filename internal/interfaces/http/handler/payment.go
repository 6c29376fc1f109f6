package handler

import (
	"github.com/gin-gonic/gin"

	paymentapp "github.com/recordshop/backend/internal/application/payment"
)

// PaymentHandler handles payment API endpoints
type PaymentHandler struct {
	BaseHandler
	paymentService *paymentapp.Service
}

// NewPaymentHandler creates a new PaymentHandler
func NewPaymentHandler(paymentService *paymentapp.Service) *PaymentHandler {
	return &PaymentHandler{paymentService: paymentService}
}

// CreateIntent creates a gateway payment intent for a pending order.
// Calling it again for the same order returns the existing intent.
func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	orderID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	intent, p, err := h.paymentService.CreateIntent(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, gin.H{
		"intent_id":     intent.ID,
		"client_secret": intent.ClientSecret,
		"payment":       p,
	})
}

// Refund refunds the order's succeeded payment through the gateway
func (h *PaymentHandler) Refund(c *gin.Context) {
	orderID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	if err := h.paymentService.Refund(c.Request.Context(), orderID); err != nil {
		h.HandleError(c, err)
		return
	}

	h.NoContent(c)
}

// ListByOrder returns all payment attempts recorded for an order
func (h *PaymentHandler) ListByOrder(c *gin.Context) {
	orderID, err := parseIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, "Invalid order ID format")
		return
	}

	payments, err := h.paymentService.GetByOrder(c.Request.Context(), orderID)
	if err != nil {
		h.HandleError(c, err)
		return
	}

	h.Success(c, payments)
}

// RegisterRoutes registers all payment routes
func (h *PaymentHandler) RegisterRoutes(rg *gin.RouterGroup) {
	orders := rg.Group("/orders")
	{
		orders.POST("/:id/payment-intent", h.CreateIntent)
		orders.POST("/:id/refund", h.Refund)
		orders.GET("/:id/payments", h.ListByOrder)
	}
}
