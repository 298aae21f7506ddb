package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/spec-kit/creator-service/internal/config"
	"github.com/spec-kit/creator-service/internal/events"
)

// NotificationService handles emitting notifications for domain events.
// Actual delivery is owned by the platform's messaging pipeline; these are
// logging stubs behind the same subscription points.
type NotificationService struct {
	dispatcher events.Dispatcher
	logger     *zap.Logger
	cfg        config.NotificationConfig
}

// NewNotificationService creates the service.
func NewNotificationService(dispatcher events.Dispatcher, logger *zap.Logger, cfg config.NotificationConfig) *NotificationService {
	return &NotificationService{
		dispatcher: dispatcher,
		logger:     logger,
		cfg:        cfg,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventInviteRedeemed, n.handleInviteRedeemed)
	n.dispatcher.Subscribe(events.EventOnboardingCompleted, n.handleOnboardingCompleted)
	n.dispatcher.Subscribe(events.EventActivationStatusChanged, n.handleActivationStatusChanged)
}

func (n *NotificationService) handleInviteRedeemed(ctx context.Context, event events.Event) error {
	n.logger.Info("InviteRedeemed", zap.String("identity_id", event.IdentityID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleOnboardingCompleted(ctx context.Context, event events.Event) error {
	n.logger.Info("OnboardingCompleted", zap.String("identity_id", event.IdentityID), zap.Any("payload", event.Payload))
	n.sendEmailNotificationStub(ctx, event)
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) handleActivationStatusChanged(ctx context.Context, event events.Event) error {
	n.logger.Info("ActivationStatusChanged", zap.String("identity_id", event.IdentityID), zap.Any("payload", event.Payload))
	n.sendWebhookNotificationStub(ctx, event)
	return nil
}

func (n *NotificationService) sendEmailNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.EmailFrom) == "" {
		return
	}
	n.logger.Debug("sendEmailNotificationStub",
		zap.String("from", n.cfg.EmailFrom),
		zap.String("identity_id", event.IdentityID),
		zap.String("event_type", string(event.Type)))
}

func (n *NotificationService) sendWebhookNotificationStub(ctx context.Context, event events.Event) {
	if strings.TrimSpace(n.cfg.WebhookURL) == "" {
		return
	}
	n.logger.Debug("sendWebhookNotificationStub",
		zap.String("url", n.cfg.WebhookURL),
		zap.String("identity_id", event.IdentityID),
		zap.String("event_type", string(event.Type)))
}
