package http

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vopenia-io/meet/internal/core/ports"
	apperrors "github.com/vopenia-io/meet/pkg/errors"
)

const maxWebhookBody = 1 << 20

type WebhookHandler struct {
	webhooks ports.WebhookService
}

func NewWebhookHandler(webhooks ports.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

// Receive hands the raw body to the router; the signature covers exact bytes.
func (h *WebhookHandler) Receive(c *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBody))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			_ = c.Error(apperrors.NewPayloadTooLargeError(tooLarge.Limit, err))
			return
		}
		_ = c.Error(apperrors.NewInvalidPayloadError("Invalid webhook payload", err))
		return
	}

	if err := h.webhooks.Receive(c.Request.Context(), c.GetHeader("Authorization"), body); err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "success"})
}
