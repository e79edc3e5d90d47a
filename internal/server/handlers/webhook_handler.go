package handlers

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/smileclinic/whatsbot/internal/domain/models"
	"github.com/smileclinic/whatsbot/internal/observability/metrics"
	service "github.com/smileclinic/whatsbot/internal/service/whatsapp"
)

const maxWebhookBody = 1 << 20

// WebhookHandler handles inbound and outbound WhatsApp HTTP events.
type WebhookHandler struct {
	svc     service.MessagingService
	metrics *metrics.BotMetrics
	logger  *zap.Logger
}

// NewWebhookHandler constructs the HTTP handler adapter. m may be nil.
func NewWebhookHandler(svc service.MessagingService, m *metrics.BotMetrics, logger *zap.Logger) *WebhookHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &WebhookHandler{svc: svc, metrics: m, logger: logger}
}

// Verify responds to Meta's webhook verification challenge.
func (h *WebhookHandler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")

	resp, err := h.svc.VerifyWebhookToken(mode, token, challenge)
	if err != nil {
		h.logger.Warn("webhook verification failed", zap.Error(err))
		c.String(http.StatusForbidden, "verification failed")
		return
	}

	h.logger.Info("webhook verified")
	c.String(http.StatusOK, resp)
}

// Receive ingests webhook POST callbacks from Meta. It always acknowledges
// with 200 so Meta does not redeliver; failures are only logged.
func (h *WebhookHandler) Receive(c *gin.Context) {
	start := time.Now()
	defer func() {
		h.metrics.ObserveWebhookLatency(c.FullPath(), time.Since(start).Seconds())
	}()

	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
	if err != nil {
		h.logger.Warn("failed reading webhook body", zap.Error(err))
		c.Status(http.StatusOK)
		return
	}

	var payload models.WebhookPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.logger.Warn("invalid webhook payload", zap.Error(err))
		c.Status(http.StatusOK)
		return
	}

	// Processing outlives a dropped connection.
	ctx := context.WithoutCancel(c.Request.Context())
	if err := h.svc.HandleWebhook(ctx, payload); err != nil {
		h.logger.Error("failed processing webhook", zap.Error(err))
	}

	c.Status(http.StatusOK)
}

// SendMessage allows sending outbound automation or manual responses.
func (h *WebhookHandler) SendMessage(c *gin.Context) {
	var req models.OutboundMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.logger.Warn("invalid outbound payload", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	if err := h.svc.SendOutbound(c.Request.Context(), req); err != nil {
		h.logger.Error("failed sending outbound", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": "unable to send message"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}

// WebsiteBooking forwards a booking made on the clinic website to the clinic's
// WhatsApp notification number.
func (h *WebhookHandler) WebsiteBooking(c *gin.Context) {
	var payload models.WebsiteBooking
	if err := c.ShouldBindJSON(&payload); err != nil {
		h.logger.Warn("invalid website booking payload", zap.Error(err))
	}

	booking := payload.Resolve()
	if !booking.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Missing required fields"})
		return
	}

	result, err := h.svc.NotifyWebsiteBooking(c.Request.Context(), booking)
	if err != nil {
		h.logger.Error("failed forwarding website booking", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "whatsappResult": result})
}
