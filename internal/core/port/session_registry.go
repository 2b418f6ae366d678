package port

import (
	"context"
	"time"

	"github.com/pinilDissanayaka/Sharing-Backend/internal/core/domain"
)

// SessionRegistry deals with per-device session storage.
//
// Touch and Invalidate both guard on is_active in the store itself, so a
// racing touch can never overwrite an invalidation: the inactive flag is
// sticky and either call reports repository.ErrNotFound once the session
// is no longer active.
type SessionRegistry interface {
	Create(ctx context.Context, session domain.Session) error
	GetByID(ctx context.Context, sessionID string) (*domain.Session, error)
	FindActiveByAccessToken(ctx context.Context, tokenHash string, userID string) (*domain.Session, error)
	FindActiveByRefreshToken(ctx context.Context, tokenHash string, userID string) (*domain.Session, error)
	Touch(ctx context.Context, sessionID string, at time.Time) error
	Invalidate(ctx context.Context, sessionID string, reason domain.RevocationReason) error
	ListActiveByUser(ctx context.Context, userID string) ([]domain.Session, error)
	// ListStaleActive returns sessions still marked active whose last activity
	// predates the supplied cutoff or whose expiry has passed.
	ListStaleActive(ctx context.Context, activityCutoff time.Time, now time.Time) ([]domain.Session, error)
	DeleteExpired(ctx context.Context, now time.Time) (int, error)
}
