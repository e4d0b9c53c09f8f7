package handlers

import (
	"context"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/services"
)

const maxWebhookBody = 1 << 20

// WebhookProcessor authenticates and applies a provider notification
type WebhookProcessor interface {
	Handle(ctx context.Context, body []byte, signature string, meta services.RequestMeta) (*services.WebhookResult, error)
}

// WebhookHandler receives provider notifications
type WebhookHandler struct {
	processor WebhookProcessor
	logger    *logrus.Logger
}

// NewWebhookHandler creates a new webhook handler
func NewWebhookHandler(processor WebhookProcessor, logger *logrus.Logger) *WebhookHandler {
	return &WebhookHandler{processor: processor, logger: logger}
}

// Receive handles POST /api/v1/webhooks/payment. The raw body is passed
// through untouched since the signature covers its exact bytes.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		badRequest(c, "Failed to read request body")
		return
	}

	result, err := h.processor.Handle(c.Request.Context(), body, c.GetHeader(services.SignatureHeader), requestMeta(c))
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"received": true, "result": result})
}
