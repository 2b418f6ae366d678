package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/pinilDissanayaka/Sharing-Backend/internal/core/port"
)

// StubPublisher logs events instead of sending them to Kafka. Useful for development environments.
type StubPublisher struct {
	logger *zap.Logger
}

// NewStubPublisher constructs a development-friendly event publisher.
func NewStubPublisher(logger *zap.Logger) *StubPublisher {
	return &StubPublisher{logger: logger}
}

func (p *StubPublisher) logEvent(eventType string, event port.AuthEvent) error {
	at := event.At
	if at.IsZero() {
		at = time.Now().UTC()
	}

	p.logger.Info("stub event published",
		zap.String("event_type", eventType),
		zap.String("user_id", event.UserID),
		zap.Time("timestamp", at.UTC()),
		zap.String("reason", event.Reason),
		zap.Int("count", event.Count),
	)
	return nil
}

func (p *StubPublisher) PublishUserRegistered(_ context.Context, event port.AuthEvent) error {
	return p.logEvent("auth.user.registered", event)
}

func (p *StubPublisher) PublishLoginSucceeded(_ context.Context, event port.AuthEvent) error {
	return p.logEvent("auth.login.succeeded", event)
}

func (p *StubPublisher) PublishLoginFailed(_ context.Context, event port.AuthEvent) error {
	return p.logEvent("auth.login.failed", event)
}

func (p *StubPublisher) PublishAccountLocked(_ context.Context, event port.AuthEvent) error {
	return p.logEvent("auth.account.locked", event)
}

func (p *StubPublisher) PublishTokenRotated(_ context.Context, event port.AuthEvent) error {
	return p.logEvent("auth.token.rotated", event)
}

func (p *StubPublisher) PublishSessionsRevoked(_ context.Context, event port.AuthEvent) error {
	return p.logEvent("auth.sessions.revoked", event)
}

func (p *StubPublisher) PublishPasswordChanged(_ context.Context, event port.AuthEvent) error {
	return p.logEvent("auth.password.changed", event)
}

var _ port.EventPublisher = (*StubPublisher)(nil)
