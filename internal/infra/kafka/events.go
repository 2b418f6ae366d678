package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pinilDissanayaka/Sharing-Backend/internal/core/port"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/infra/config"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/infra/logger"
)

const schemaVersion = "1.0"

// EventPublisher implements port.EventPublisher using Kafka.
type EventPublisher struct {
	producer *Producer
	logger   *zap.Logger
	appCfg   config.AppSettings
}

// NewEventPublisher constructs a Kafka-backed event publisher.
func NewEventPublisher(producer *Producer, appCfg config.AppSettings, log *zap.Logger) *EventPublisher {
	return &EventPublisher{producer: producer, appCfg: appCfg, logger: log}
}

type envelopeMetadata map[string]string

type eventEnvelope struct {
	EventID   string           `json:"event_id"`
	EventType string           `json:"event_type"`
	UserID    string           `json:"user_id,omitempty"`
	Timestamp time.Time        `json:"timestamp"`
	Version   string           `json:"version"`
	Payload   any              `json:"payload"`
	Metadata  envelopeMetadata `json:"metadata,omitempty"`
}

type authEventPayload struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email,omitempty"`
	At        time.Time `json:"at"`
	Reason    string    `json:"reason,omitempty"`
	Count     int       `json:"count,omitempty"`
	IPAddress string    `json:"ip_address,omitempty"`
	UserAgent string    `json:"user_agent,omitempty"`
}

func newAuthEventPayload(event port.AuthEvent) authEventPayload {
	at := event.At
	if at.IsZero() {
		at = time.Now().UTC()
	}
	return authEventPayload{
		UserID:    event.UserID,
		Email:     logger.MaskEmail(event.Email),
		At:        at.UTC(),
		Reason:    event.Reason,
		Count:     event.Count,
		IPAddress: logger.MaskIP(event.Metadata.IPAddress),
		UserAgent: event.Metadata.UserAgent,
	}
}

func (p *EventPublisher) publish(ctx context.Context, eventID, eventType, userID string, ts time.Time, payload any) error {
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	id := eventID
	if id == "" {
		id = uuid.NewString()
	}

	metadata := envelopeMetadata{
		"service":     p.appCfg.Name,
		"environment": p.appCfg.Env,
	}

	if span := trace.SpanFromContext(ctx); span != nil {
		if sc := span.SpanContext(); sc.IsValid() {
			metadata["trace_id"] = sc.TraceID().String()
		}
	}

	envelope := eventEnvelope{
		EventID:   id,
		EventType: eventType,
		UserID:    userID,
		Timestamp: ts.UTC(),
		Version:   schemaVersion,
		Payload:   payload,
		Metadata:  metadata,
	}

	bytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event envelope: %w", err)
	}

	message := &sarama.ProducerMessage{
		Topic: p.producer.TopicName(eventType),
		Value: sarama.ByteEncoder(bytes),
	}

	select {
	case p.producer.Producer().Input() <- message:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (p *EventPublisher) publishAuthEvent(ctx context.Context, eventType string, event port.AuthEvent) error {
	payload := newAuthEventPayload(event)
	return p.publish(ctx, event.EventID, eventType, event.UserID, event.At, payload)
}

// PublishUserRegistered publishes auth.user.registered events.
func (p *EventPublisher) PublishUserRegistered(ctx context.Context, event port.AuthEvent) error {
	return p.publishAuthEvent(ctx, "auth.user.registered", event)
}

// PublishLoginSucceeded publishes auth.login.succeeded events.
func (p *EventPublisher) PublishLoginSucceeded(ctx context.Context, event port.AuthEvent) error {
	return p.publishAuthEvent(ctx, "auth.login.succeeded", event)
}

// PublishLoginFailed publishes auth.login.failed events.
func (p *EventPublisher) PublishLoginFailed(ctx context.Context, event port.AuthEvent) error {
	return p.publishAuthEvent(ctx, "auth.login.failed", event)
}

// PublishAccountLocked publishes auth.account.locked events.
func (p *EventPublisher) PublishAccountLocked(ctx context.Context, event port.AuthEvent) error {
	return p.publishAuthEvent(ctx, "auth.account.locked", event)
}

// PublishTokenRotated publishes auth.token.rotated events.
func (p *EventPublisher) PublishTokenRotated(ctx context.Context, event port.AuthEvent) error {
	return p.publishAuthEvent(ctx, "auth.token.rotated", event)
}

// PublishSessionsRevoked publishes auth.sessions.revoked events.
func (p *EventPublisher) PublishSessionsRevoked(ctx context.Context, event port.AuthEvent) error {
	return p.publishAuthEvent(ctx, "auth.sessions.revoked", event)
}

// PublishPasswordChanged publishes auth.password.changed events.
func (p *EventPublisher) PublishPasswordChanged(ctx context.Context, event port.AuthEvent) error {
	return p.publishAuthEvent(ctx, "auth.password.changed", event)
}

var _ port.EventPublisher = (*EventPublisher)(nil)
