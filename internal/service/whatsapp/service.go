package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/smileclinic/whatsbot/internal/config"
	"github.com/smileclinic/whatsbot/internal/domain/models"
	"github.com/smileclinic/whatsbot/internal/observability/metrics"
	"github.com/smileclinic/whatsbot/internal/service/guard"
	client "github.com/smileclinic/whatsbot/pkg/clients/whatsapp"
)

const sendTimeout = 10 * time.Second

// ErrNotifyPhoneMissing is returned when a website booking arrives but no
// notification recipient is configured.
var ErrNotifyPhoneMissing = errors.New("notification phone is not configured")

// MessagingService describes the operations the HTTP layer can perform.
type MessagingService interface {
	VerifyWebhookToken(mode, verifyToken, challenge string) (string, error)
	HandleWebhook(ctx context.Context, payload models.WebhookPayload) error
	SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error
	NotifyWebsiteBooking(ctx context.Context, booking models.WebsiteBooking) (*client.SendMessageResponse, error)
}

// MessageHandler runs the conversation for one admitted message.
type MessageHandler interface {
	Handle(ctx context.Context, in models.Inbound) error
}

// Gate decides whether an inbound message is processed.
type Gate interface {
	Admit(userID, messageID, text string, now time.Time) guard.Decision
	Release(userID, messageID string)
}

// Option customises a MetaWhatsAppService.
type Option func(*MetaWhatsAppService)

// WithMetrics records inbound and guard counters.
func WithMetrics(m *metrics.BotMetrics) Option {
	return func(s *MetaWhatsAppService) { s.metrics = m }
}

// WithNotifyPhone sets the recipient of website booking notifications.
func WithNotifyPhone(phone string) Option {
	return func(s *MetaWhatsAppService) { s.notifyPhone = phone }
}

// MetaWhatsAppService is the production implementation backed by WhatsApp Cloud API.
type MetaWhatsAppService struct {
	cfg         config.WhatsAppConfig
	client      client.Client
	handler     MessageHandler
	gate        Gate
	metrics     *metrics.BotMetrics
	notifyPhone string
	logger      *zap.Logger
	now         func() time.Time
}

// NewMetaWhatsAppService wires a new service instance.
func NewMetaWhatsAppService(cfg config.WhatsAppConfig, client client.Client, handler MessageHandler, gate Gate, logger *zap.Logger, opts ...Option) *MetaWhatsAppService {
	svc := &MetaWhatsAppService{
		cfg:     cfg,
		client:  client,
		handler: handler,
		gate:    gate,
		logger:  logger,
		now:     time.Now,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	for _, opt := range opts {
		opt(svc)
	}
	return svc
}

// VerifyWebhookToken validates the callback verification token.
func (s *MetaWhatsAppService) VerifyWebhookToken(mode, verifyToken, challenge string) (string, error) {
	if mode == "" || verifyToken == "" {
		return "", errors.New("missing mode or verify token")
	}

	if !strings.EqualFold(mode, "subscribe") {
		return "", fmt.Errorf("unsupported hub.mode %s", mode)
	}

	if verifyToken != s.cfg.VerifyToken {
		return "", errors.New("invalid verify token")
	}

	return challenge, nil
}

// HandleWebhook processes inbound webhook payloads. Messages rejected by the
// gate are dropped without a reply. Notifications addressed to another
// business number are skipped.
func (s *MetaWhatsAppService) HandleWebhook(ctx context.Context, payload models.WebhookPayload) error {
	var firstErr error

	for _, entry := range payload.Entry {
		for _, change := range entry.Changes {
			if err := s.handleValue(ctx, change.Value); err != nil && firstErr == nil {
				firstErr = err
			}
		}
	}

	return firstErr
}

func (s *MetaWhatsAppService) handleValue(ctx context.Context, value models.WebhookValue) error {
	if id := value.Metadata.PhoneNumberID; id != "" && s.cfg.PhoneNumberID != "" && id != s.cfg.PhoneNumberID {
		s.logger.Warn("skipping notification for another phone number", zap.String("phone_number_id", id))
		return nil
	}

	for _, werr := range value.Errors {
		s.logger.Warn("webhook error reported by meta", zap.Int("code", werr.Code), zap.String("title", werr.Title))
	}
	for _, status := range value.Statuses {
		s.observeStatus(status)
	}

	var firstErr error
	for _, msg := range value.Messages {
		if err := s.handleInboundMessage(ctx, msg, value.ProfileName(msg.From)); err != nil {
			s.logger.Error("failed to handle inbound message", zap.Error(err), zap.String("message_id", msg.ID))
			if firstErr == nil {
				firstErr = err
			}
		}
	}
	return firstErr
}

func (s *MetaWhatsAppService) observeStatus(status models.MessageStatus) {
	s.metrics.ObserveDeliveryStatus(status.Status)
	if status.Status != "failed" {
		return
	}
	fields := []zap.Field{zap.String("message_id", status.ID), zap.String("to", status.RecipientID)}
	if len(status.Errors) > 0 {
		fields = append(fields, zap.Int("code", status.Errors[0].Code), zap.String("title", status.Errors[0].Title))
	}
	s.logger.Warn("outbound message delivery failed", fields...)
}

func (s *MetaWhatsAppService) handleInboundMessage(ctx context.Context, msg models.InboundMessage, profile string) error {
	in := models.ParseInbound(msg)
	in.ProfileName = profile
	if in.Type == models.MessageUnrecognized {
		s.metrics.ObserveInbound(string(in.Type), "ignored")
		s.logger.Debug("ignoring unsupported message", zap.String("from", msg.From), zap.String("type", msg.Type))
		return nil
	}

	if s.gate != nil {
		decision := s.gate.Admit(in.From, in.ID, in.Fingerprint(), s.now())
		if !decision.Allowed {
			s.metrics.ObserveGuardRejection(string(decision.Reason))
			s.metrics.ObserveInbound(string(in.Type), "dropped")
			s.logger.Info("inbound message dropped",
				zap.String("from", in.From),
				zap.String("message_id", in.ID),
				zap.String("reason", string(decision.Reason)))
			return nil
		}
		defer s.gate.Release(in.From, in.ID)
	}

	s.logger.Info("inbound message admitted",
		zap.String("from", in.From),
		zap.String("message_id", in.ID),
		zap.String("profile", in.ProfileName),
		zap.String("type", string(in.Type)))

	if err := s.handler.Handle(ctx, in); err != nil {
		s.metrics.ObserveInbound(string(in.Type), "error")
		return err
	}
	s.metrics.ObserveInbound(string(in.Type), "handled")
	return nil
}

// SendOutbound lets internal operators push quick notifications via HTTP.
func (s *MetaWhatsAppService) SendOutbound(ctx context.Context, req models.OutboundMessageRequest) error {
	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	_, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:         req.To,
		Body:       req.Message,
		PreviewURL: req.PreviewURL,
	})
	s.metrics.ObserveOutbound("text", err)
	return err
}

// NotifyWebsiteBooking forwards a website booking to the clinic notification phone.
func (s *MetaWhatsAppService) NotifyWebsiteBooking(ctx context.Context, booking models.WebsiteBooking) (*client.SendMessageResponse, error) {
	if s.notifyPhone == "" {
		return nil, ErrNotifyPhoneMissing
	}

	ctxWithTimeout, cancel := context.WithTimeout(ctx, sendTimeout)
	defer cancel()

	resp, err := s.client.SendTextMessage(ctxWithTimeout, client.SendTextMessageRequest{
		To:   s.notifyPhone,
		Body: websiteBookingText(booking),
	})
	s.metrics.ObserveOutbound("text", err)
	if err != nil {
		return nil, fmt.Errorf("notify website booking: %w", err)
	}

	s.logger.Info("website booking forwarded", zap.String("phone", booking.Phone), zap.String("service", booking.Service))
	return resp, nil
}

func websiteBookingText(b models.WebsiteBooking) string {
	text := fmt.Sprintf("📢 عميل جديد من الموقع:\n👤 الاسم: %s\n📞 الهاتف: %s\n💊 الخدمة: %s", b.Name, b.Phone, b.Service)
	if b.Appointment != "" {
		text += "\n📅 الموعد: " + b.Appointment
	}
	return text
}
