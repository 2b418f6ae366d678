package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/pinilDissanayaka/Sharing-Backend/internal/core/domain"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/core/port"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/infra/config"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/infra/security"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/infra/telemetry"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/repository"
)

// ErrSessionNotFound indicates no live session matches the presented token.
var ErrSessionNotFound = errors.New("session not found")

// SessionService tracks the per-device sessions behind issued token pairs
// and owns the handoff between the registry and the revocation ledger.
type SessionService struct {
	sessions port.SessionRegistry
	ledger   port.RevocationLedger
	cfg      config.SessionSettings
	metrics  *telemetry.Metrics
	logger   *zap.Logger
	now      func() time.Time
}

// NewSessionService constructs a SessionService instance.
func NewSessionService(
	cfg config.SessionSettings,
	sessions port.SessionRegistry,
	ledger port.RevocationLedger,
	metrics *telemetry.Metrics,
	logger *zap.Logger,
) *SessionService {
	if logger == nil {
		logger = zap.NewNop()
	}

	service := &SessionService{
		sessions: sessions,
		ledger:   ledger,
		cfg:      cfg,
		metrics:  metrics,
		logger:   logger,
	}
	service.now = func() time.Time { return time.Now().UTC() }
	return service
}

// WithClock overrides the service clock for deterministic tests.
func (s *SessionService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// Open records a new device session for a freshly issued token pair. The
// session's absolute expiry tracks the refresh token, the longest-lived
// credential bound to it.
func (s *SessionService) Open(ctx context.Context, userID string, access, refresh *IssuedToken, meta domain.ClientMetadata) (*domain.Session, error) {
	now := s.now()

	session := domain.Session{
		ID:               uuid.NewString(),
		UserID:           userID,
		AccessTokenHash:  security.HashToken(access.Value),
		RefreshTokenHash: security.HashToken(refresh.Value),
		LastActivity:     now,
		ExpiresAt:        refresh.ExpiresAt,
		IsActive:         true,
		CreatedAt:        now,
	}
	if meta.IPAddress != "" {
		ip := meta.IPAddress
		session.IPAddress = &ip
	}
	if meta.UserAgent != "" {
		ua := meta.UserAgent
		session.UserAgent = &ua
	}

	if err := s.sessions.Create(ctx, session); err != nil {
		return nil, fmt.Errorf("create session: %w", err)
	}

	if s.metrics != nil {
		s.metrics.SessionsOpened.Inc()
	}

	return &session, nil
}

// FindActiveByAccessToken resolves the live session carrying the token hash.
func (s *SessionService) FindActiveByAccessToken(ctx context.Context, tokenHash, userID string) (*domain.Session, error) {
	session, err := s.sessions.FindActiveByAccessToken(ctx, tokenHash, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("find session by access token: %w", err)
	}
	return session, nil
}

// FindActiveByRefreshToken resolves the live session carrying the token hash.
func (s *SessionService) FindActiveByRefreshToken(ctx context.Context, tokenHash, userID string) (*domain.Session, error) {
	session, err := s.sessions.FindActiveByRefreshToken(ctx, tokenHash, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrSessionNotFound
		}
		return nil, fmt.Errorf("find session by refresh token: %w", err)
	}
	return session, nil
}

// Touch bumps last-activity on the session. A session invalidated between
// lookup and touch stays invalidated; the store refuses the write and the
// caller sees ErrSessionNotFound.
func (s *SessionService) Touch(ctx context.Context, session *domain.Session) error {
	now := s.now()
	if err := s.sessions.Touch(ctx, session.ID, now); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("touch session: %w", err)
	}
	session.LastActivity = now
	return nil
}

// Invalidate retires the session and writes both of its token hashes to the
// revocation ledger. Ledger writes land first, so no window exists where the
// session is dead but its tokens still verify.
func (s *SessionService) Invalidate(ctx context.Context, session *domain.Session, reason domain.RevocationReason) error {
	s.revokeSessionTokens(ctx, session, reason)

	if err := s.sessions.Invalidate(ctx, session.ID, reason); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrSessionNotFound
		}
		return fmt.Errorf("invalidate session: %w", err)
	}

	session.Invalidate(reason)
	return nil
}

// InvalidateAllForUser retires every live session the user holds and returns
// how many were closed.
func (s *SessionService) InvalidateAllForUser(ctx context.Context, userID string, reason domain.RevocationReason) (int, error) {
	sessions, err := s.sessions.ListActiveByUser(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list sessions: %w", err)
	}

	closed := 0
	for i := range sessions {
		session := sessions[i]
		if err := s.Invalidate(ctx, &session, reason); err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				continue
			}
			return closed, err
		}
		closed++
	}

	return closed, nil
}

// ListForUser returns the user's live sessions for device overview pages.
func (s *SessionService) ListForUser(ctx context.Context, userID string) ([]domain.Session, error) {
	sessions, err := s.sessions.ListActiveByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

// CleanupStale is the background sweep. Sessions idle past the inactivity
// window or past their absolute expiry are invalidated with their tokens
// revoked; long-dead rows are then deleted outright.
func (s *SessionService) CleanupStale(ctx context.Context) (int, error) {
	now := s.now()
	cutoff := now.Add(-s.maxInactivity())

	stale, err := s.sessions.ListStaleActive(ctx, cutoff, now)
	if err != nil {
		return 0, fmt.Errorf("list stale sessions: %w", err)
	}

	cleaned := 0
	for i := range stale {
		session := stale[i]

		reason := domain.RevocationReasonInactivityTimeout
		if !session.ExpiresAt.After(now) {
			reason = domain.RevocationReasonExpired
		}

		if err := s.Invalidate(ctx, &session, reason); err != nil {
			if errors.Is(err, ErrSessionNotFound) {
				continue
			}
			return cleaned, err
		}
		cleaned++
	}

	deleted, err := s.sessions.DeleteExpired(ctx, now)
	if err != nil {
		return cleaned, fmt.Errorf("delete expired sessions: %w", err)
	}

	if s.metrics != nil && cleaned+deleted > 0 {
		s.metrics.SessionsCleaned.Add(float64(cleaned + deleted))
	}
	if cleaned > 0 || deleted > 0 {
		s.logger.Info("session sweep finished",
			zap.Int("invalidated", cleaned),
			zap.Int("deleted", deleted))
	}

	return cleaned + deleted, nil
}

// SweepRevocations removes revocation entries whose tokens can no longer be
// presented. Backs up the ledger's own TTL-based eviction.
func (s *SessionService) SweepRevocations(ctx context.Context) (int, error) {
	swept, err := s.ledger.SweepExpired(ctx, s.now())
	if err != nil {
		return 0, fmt.Errorf("sweep revocations: %w", err)
	}
	if s.metrics != nil && swept > 0 {
		s.metrics.RevocationsSwept.Add(float64(swept))
	}
	return swept, nil
}

// IsStale reports whether the session exceeded the configured idle window.
func (s *SessionService) IsStale(session *domain.Session) bool {
	return session.IsStale(s.now(), s.maxInactivity())
}

func (s *SessionService) maxInactivity() time.Duration {
	if s.cfg.MaxInactivity > 0 {
		return s.cfg.MaxInactivity
	}
	return 30 * time.Minute
}

// revokeSessionTokens writes both hashes to the ledger. Losing the
// first-revoker race is fine here: the token is already dead, which is the
// outcome this call wanted.
func (s *SessionService) revokeSessionTokens(ctx context.Context, session *domain.Session, reason domain.RevocationReason) {
	now := s.now()
	meta := domain.ClientMetadata{}
	if session.IPAddress != nil {
		meta.IPAddress = *session.IPAddress
	}
	if session.UserAgent != nil {
		meta.UserAgent = *session.UserAgent
	}

	for _, hash := range []string{session.AccessTokenHash, session.RefreshTokenHash} {
		if hash == "" {
			continue
		}
		entry := domain.RevocationEntry{
			TokenHash: hash,
			UserID:    session.UserID,
			Reason:    reason,
			ExpiresAt: session.ExpiresAt,
			CreatedAt: now,
			Metadata:  meta,
		}
		if err := s.ledger.Revoke(ctx, entry); err != nil {
			if errors.Is(err, repository.ErrAlreadyRevoked) {
				continue
			}
			s.logger.Warn("revoke session token failed",
				zap.String("session_id", session.ID),
				zap.Error(err))
			continue
		}
		if s.metrics != nil {
			s.metrics.TokensRevoked.WithLabelValues(string(reason)).Inc()
		}
	}
}
