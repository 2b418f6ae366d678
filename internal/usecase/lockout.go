package usecase

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pinilDissanayaka/Sharing-Backend/internal/core/domain"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/core/port"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/infra/config"
)

// AccountLockedError reports a credential inside its lockout window.
type AccountLockedError struct {
	Until     time.Time
	Remaining time.Duration
}

func (e *AccountLockedError) Error() string {
	return fmt.Sprintf("account locked for another %s", e.Remaining.Round(time.Second))
}

// LockoutPolicy implements the failed-attempt counter and lock window.
//
// The counter only moves on wrong-password outcomes. Attempts against a
// locked account are rejected before password verification, so they neither
// extend the lock nor count as failures; the window runs out on schedule.
type LockoutPolicy struct {
	credentials port.CredentialRepository
	maxFailed   int
	duration    time.Duration
	logger      *zap.Logger
	now         func() time.Time
}

// NewLockoutPolicy constructs a LockoutPolicy from configuration.
func NewLockoutPolicy(cfg config.LockoutSettings, credentials port.CredentialRepository, logger *zap.Logger) *LockoutPolicy {
	if logger == nil {
		logger = zap.NewNop()
	}

	maxFailed := cfg.MaxFailedAttempts
	if maxFailed <= 0 {
		maxFailed = 5
	}
	duration := cfg.LockDuration
	if duration <= 0 {
		duration = 2 * time.Hour
	}

	policy := &LockoutPolicy{
		credentials: credentials,
		maxFailed:   maxFailed,
		duration:    duration,
		logger:      logger,
	}
	policy.now = func() time.Time { return time.Now().UTC() }
	return policy
}

// WithClock overrides the policy clock for deterministic tests.
func (p *LockoutPolicy) WithClock(clock func() time.Time) {
	if clock != nil {
		p.now = clock
	}
}

// Check rejects a credential that is currently locked or blocked. It is the
// gate every login runs through before the password is even looked at. The
// lock window is reported first; an account that is both locked and blocked
// surfaces as locked.
func (p *LockoutPolicy) Check(credential *domain.Credential) error {
	now := p.now()
	if credential.IsLocked(now) {
		return &AccountLockedError{
			Until:     *credential.LockedUntil,
			Remaining: credential.LockRemaining(now),
		}
	}
	if credential.IsBlocked {
		return ErrAccountBlocked
	}
	return nil
}

// OnFailure records a wrong-password outcome. Reaching the attempt budget
// opens the lock window; the returned flag tells the caller whether this
// particular failure was the one that locked the account.
func (p *LockoutPolicy) OnFailure(ctx context.Context, credential *domain.Credential) (bool, error) {
	now := p.now()

	attempts := credential.FailedAttempts + 1
	if credential.LockedUntil != nil && !credential.LockedUntil.After(now) {
		// An expired lock wipes the slate; this failure starts a new count.
		attempts = 1
	}

	var lockedUntil *time.Time
	locked := attempts >= p.maxFailed
	if locked {
		until := now.Add(p.duration)
		lockedUntil = &until
	}

	if err := p.credentials.UpdateLockout(ctx, credential.ID, attempts, lockedUntil); err != nil {
		return false, fmt.Errorf("update lockout: %w", err)
	}

	credential.FailedAttempts = attempts
	credential.LockedUntil = lockedUntil

	if locked {
		p.logger.Warn("account locked after repeated failures",
			zap.String("user_id", credential.ID),
			zap.Int("failed_attempts", attempts),
			zap.Time("locked_until", *lockedUntil))
	}

	return locked, nil
}

// OnSuccess clears the counter and lock window after a correct password.
func (p *LockoutPolicy) OnSuccess(ctx context.Context, credential *domain.Credential) error {
	now := p.now()
	if err := p.credentials.RecordLogin(ctx, credential.ID, now); err != nil {
		return fmt.Errorf("record login: %w", err)
	}

	credential.FailedAttempts = 0
	credential.LockedUntil = nil
	credential.LastLogin = &now
	return nil
}
