package port

import (
	"context"
	"time"

	"github.com/pinilDissanayaka/Sharing-Backend/internal/core/domain"
)

// CredentialRepository exposes persistence behavior for credential records.
type CredentialRepository interface {
	Create(ctx context.Context, credential domain.Credential) error
	GetByID(ctx context.Context, id string) (*domain.Credential, error)
	GetByEmail(ctx context.Context, email string) (*domain.Credential, error)
	// UpdatePassword re-hashes in a single statement that also bumps the token
	// version and resets lockout state, so no reader observes a half-applied
	// change. Returns the new token version.
	UpdatePassword(ctx context.Context, id string, passwordHash string, changedAt time.Time) (int64, error)
	// UpdateLockout persists the failed-attempt counter and optional lock window.
	UpdateLockout(ctx context.Context, id string, failedAttempts int, lockedUntil *time.Time) error
	// RecordLogin clears lockout state and stamps last_login.
	RecordLogin(ctx context.Context, id string, at time.Time) error
	SetBlocked(ctx context.Context, id string, blocked bool) error
}
