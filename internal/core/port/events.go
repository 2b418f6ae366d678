package port

import (
	"context"
	"time"

	"github.com/pinilDissanayaka/Sharing-Backend/internal/core/domain"
)

// AuthEvent is the payload shape shared by all published auth lifecycle events.
type AuthEvent struct {
	EventID  string
	UserID   string
	Email    string
	At       time.Time
	Reason   string
	Count    int
	Metadata domain.ClientMetadata
}

// EventPublisher emits auth lifecycle events for downstream consumers.
// Publishing is best-effort from the orchestrator's point of view; failures
// are logged, never folded into the caller-visible result.
type EventPublisher interface {
	PublishUserRegistered(ctx context.Context, event AuthEvent) error
	PublishLoginSucceeded(ctx context.Context, event AuthEvent) error
	PublishLoginFailed(ctx context.Context, event AuthEvent) error
	PublishAccountLocked(ctx context.Context, event AuthEvent) error
	PublishTokenRotated(ctx context.Context, event AuthEvent) error
	PublishSessionsRevoked(ctx context.Context, event AuthEvent) error
	PublishPasswordChanged(ctx context.Context, event AuthEvent) error
}
