package handler

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	paymentapp "github.com/recordshop/backend/internal/application/payment"
	"github.com/recordshop/backend/internal/domain/shared"
	"github.com/recordshop/backend/internal/interfaces/http/dto"
)

// WebhookHandler receives gateway webhook deliveries. The body must be
// read raw: signature verification covers the exact bytes Stripe sent.
type WebhookHandler struct {
	BaseHandler
	webhookService *paymentapp.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler
func NewWebhookHandler(webhookService *paymentapp.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookService: webhookService}
}

// HandleStripe processes a Stripe webhook delivery. A 2xx acknowledges
// the event; any 5xx makes Stripe redeliver it later.
func (h *WebhookHandler) HandleStripe(c *gin.Context) {
	payload, err := io.ReadAll(c.Request.Body)
	if err != nil {
		h.BadRequest(c, "Failed to read request body")
		return
	}

	err = h.webhookService.ProcessEvent(c.Request.Context(), payload, c.GetHeader("Stripe-Signature"))
	if err != nil {
		if errors.Is(err, shared.ErrSignatureInvalid) {
			h.Error(c, http.StatusBadRequest, dto.ErrCodeSignatureInvalid, "Webhook signature verification failed")
			return
		}
		// Transient failure: a non-2xx tells the gateway to retry.
		h.InternalError(c, "Failed to process webhook event")
		return
	}

	c.JSON(http.StatusOK, gin.H{"received": true})
}

// RegisterRoutes registers the webhook routes
func (h *WebhookHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/webhooks/stripe", h.HandleStripe)
}
