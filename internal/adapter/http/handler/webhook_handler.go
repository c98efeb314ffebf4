package handler

import (
	"io"

	"wallet-ledger/internal/core/ports"
	"wallet-ledger/pkg/apperror"
	"wallet-ledger/pkg/response"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// HeaderWebhookSignature carries the provider's HMAC over the raw body.
const HeaderWebhookSignature = "X-Signature"

// WebhookHandler receives provider callbacks. Callbacks are a latency
// optimization over polling: reconciliation reaches the same decision either
// way, so a lost callback costs nothing but time.
type WebhookHandler struct {
	gateways ports.GatewayRegistry
	reconSvc ports.ReconciliationService
	log      zerolog.Logger
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(gateways ports.GatewayRegistry, reconSvc ports.ReconciliationService, log zerolog.Logger) *WebhookHandler {
	return &WebhookHandler{gateways: gateways, reconSvc: reconSvc, log: log}
}

// Receive handles POST /api/v1/webhooks/:provider.
func (h *WebhookHandler) Receive(c *gin.Context) {
	provider := c.Param("provider")
	gw, ok := h.gateways.Get(provider)
	if !ok {
		response.Error(c, apperror.ErrUnknownProvider(provider))
		return
	}

	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		response.Error(c, apperror.Validation("cannot read request body"))
		return
	}

	signature := c.GetHeader(HeaderWebhookSignature)
	if signature == "" || !gw.VerifyWebhook(body, signature) {
		h.log.Warn().Str("provider", provider).Msg("webhook signature verification failed")
		response.Error(c, apperror.ErrInvalidWebhookSignature(provider))
		return
	}

	event, err := gw.ParseWebhook(body)
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.reconSvc.HandleCallback(c.Request.Context(), *event); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, gin.H{"received": true})
}
