package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/pinilDissanayaka/Sharing-Backend/internal/core/domain"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/core/port"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/infra/config"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/infra/security"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/repository"
)

// memoryCredentials is an in-memory CredentialRepository for unit tests.
type memoryCredentials struct {
	mu      sync.Mutex
	byID    map[string]*domain.Credential
	byEmail map[string]string
}

func newMemoryCredentials() *memoryCredentials {
	return &memoryCredentials{
		byID:    make(map[string]*domain.Credential),
		byEmail: make(map[string]string),
	}
}

func (m *memoryCredentials) Create(_ context.Context, credential domain.Credential) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byEmail[credential.Email]; exists {
		return repository.ErrDuplicate
	}
	copied := credential
	m.byID[credential.ID] = &copied
	m.byEmail[credential.Email] = credential.ID
	return nil
}

func (m *memoryCredentials) GetByID(_ context.Context, id string) (*domain.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	credential, ok := m.byID[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *credential
	return &copied, nil
}

func (m *memoryCredentials) GetByEmail(_ context.Context, email string) (*domain.Credential, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	id, ok := m.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *m.byID[id]
	return &copied, nil
}

func (m *memoryCredentials) UpdatePassword(_ context.Context, id string, passwordHash string, changedAt time.Time) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	credential, ok := m.byID[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	credential.PasswordHash = passwordHash
	credential.TokenVersion++
	credential.FailedAttempts = 0
	credential.LockedUntil = nil
	credential.LastPasswordChange = changedAt
	return credential.TokenVersion, nil
}

func (m *memoryCredentials) UpdateLockout(_ context.Context, id string, failedAttempts int, lockedUntil *time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	credential, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	credential.FailedAttempts = failedAttempts
	credential.LockedUntil = lockedUntil
	return nil
}

func (m *memoryCredentials) RecordLogin(_ context.Context, id string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	credential, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	credential.FailedAttempts = 0
	credential.LockedUntil = nil
	loginAt := at
	credential.LastLogin = &loginAt
	return nil
}

func (m *memoryCredentials) SetBlocked(_ context.Context, id string, blocked bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	credential, ok := m.byID[id]
	if !ok {
		return repository.ErrNotFound
	}
	credential.IsBlocked = blocked
	return nil
}

// memoryLedger is an in-memory RevocationLedger. Revoke keeps first-revoker
// semantics, which is what the rotation tests exercise.
type memoryLedger struct {
	mu      sync.Mutex
	entries map[string]domain.RevocationEntry
}

func newMemoryLedger() *memoryLedger {
	return &memoryLedger{entries: make(map[string]domain.RevocationEntry)}
}

func (m *memoryLedger) Revoke(_ context.Context, entry domain.RevocationEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[entry.TokenHash]; exists {
		return repository.ErrAlreadyRevoked
	}
	m.entries[entry.TokenHash] = entry
	return nil
}

func (m *memoryLedger) IsRevoked(_ context.Context, tokenHash string) (bool, domain.RevocationReason, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[tokenHash]
	if !ok {
		return false, "", nil
	}
	return true, entry.Reason, nil
}

func (m *memoryLedger) SweepExpired(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for hash, entry := range m.entries {
		if entry.IsExpired(now) {
			delete(m.entries, hash)
			removed++
		}
	}
	return removed, nil
}

// memorySessions is an in-memory SessionRegistry mirroring the conditional
// update semantics of the real store: touch and invalidate refuse to act on
// an inactive session.
type memorySessions struct {
	mu       sync.Mutex
	sessions map[string]*domain.Session
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: make(map[string]*domain.Session)}
}

func (m *memorySessions) Create(_ context.Context, session domain.Session) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	copied := session
	m.sessions[session.ID] = &copied
	return nil
}

func (m *memorySessions) GetByID(_ context.Context, sessionID string) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copied := *session
	return &copied, nil
}

func (m *memorySessions) FindActiveByAccessToken(_ context.Context, tokenHash string, userID string) (*domain.Session, error) {
	return m.findActive(func(s *domain.Session) bool {
		return s.AccessTokenHash == tokenHash && s.UserID == userID
	})
}

func (m *memorySessions) FindActiveByRefreshToken(_ context.Context, tokenHash string, userID string) (*domain.Session, error) {
	return m.findActive(func(s *domain.Session) bool {
		return s.RefreshTokenHash == tokenHash && s.UserID == userID
	})
}

func (m *memorySessions) findActive(match func(*domain.Session) bool) (*domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, session := range m.sessions {
		if session.IsActive && match(session) {
			copied := *session
			return &copied, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memorySessions) Touch(_ context.Context, sessionID string, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok || !session.IsActive {
		return repository.ErrNotFound
	}
	session.LastActivity = at
	return nil
}

func (m *memorySessions) Invalidate(_ context.Context, sessionID string, reason domain.RevocationReason) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	session, ok := m.sessions[sessionID]
	if !ok || !session.IsActive {
		return repository.ErrNotFound
	}
	session.Invalidate(reason)
	return nil
}

func (m *memorySessions) ListActiveByUser(_ context.Context, userID string) ([]domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sessions []domain.Session
	for _, session := range m.sessions {
		if session.IsActive && session.UserID == userID {
			sessions = append(sessions, *session)
		}
	}
	return sessions, nil
}

func (m *memorySessions) ListStaleActive(_ context.Context, activityCutoff time.Time, now time.Time) ([]domain.Session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sessions []domain.Session
	for _, session := range m.sessions {
		if !session.IsActive {
			continue
		}
		if session.LastActivity.Before(activityCutoff) || !session.ExpiresAt.After(now) {
			sessions = append(sessions, *session)
		}
	}
	return sessions, nil
}

func (m *memorySessions) DeleteExpired(_ context.Context, now time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	removed := 0
	for id, session := range m.sessions {
		if !session.IsActive && !session.ExpiresAt.After(now) {
			delete(m.sessions, id)
			removed++
		}
	}
	return removed, nil
}

// stubEvents counts published events without delivering them anywhere.
type stubEvents struct {
	mu     sync.Mutex
	counts map[string]int
}

func newStubEvents() *stubEvents {
	return &stubEvents{counts: make(map[string]int)}
}

func (s *stubEvents) record(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.counts[name]++
	return nil
}

func (s *stubEvents) count(name string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counts[name]
}

func (s *stubEvents) PublishUserRegistered(context.Context, port.AuthEvent) error {
	return s.record("user_registered")
}

func (s *stubEvents) PublishLoginSucceeded(context.Context, port.AuthEvent) error {
	return s.record("login_succeeded")
}

func (s *stubEvents) PublishLoginFailed(context.Context, port.AuthEvent) error {
	return s.record("login_failed")
}

func (s *stubEvents) PublishAccountLocked(context.Context, port.AuthEvent) error {
	return s.record("account_locked")
}

func (s *stubEvents) PublishTokenRotated(context.Context, port.AuthEvent) error {
	return s.record("token_rotated")
}

func (s *stubEvents) PublishSessionsRevoked(context.Context, port.AuthEvent) error {
	return s.record("sessions_revoked")
}

func (s *stubEvents) PublishPasswordChanged(context.Context, port.AuthEvent) error {
	return s.record("password_changed")
}

type authFixture struct {
	service     *AuthService
	credentials *memoryCredentials
	ledger      *memoryLedger
	sessions    *memorySessions
	events      *stubEvents
	clock       *testClock
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func newTestClock(at time.Time) *testClock {
	return &testClock{now: at}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func testConfig() *config.AppConfig {
	return &config.AppConfig{
		App: config.AppSettings{Name: "sharing-backend", Env: "test"},
		JWT: config.JWTSettings{
			Secret:          "unit-test-secret-key",
			Issuer:          "sharing-backend",
			AccessTokenTTL:  2 * time.Hour,
			RefreshTokenTTL: 7 * 24 * time.Hour,
		},
		Lockout: config.LockoutSettings{
			MaxFailedAttempts: 5,
			LockDuration:      2 * time.Hour,
		},
		Session: config.SessionSettings{
			MaxInactivity:   30 * time.Minute,
			CleanupInterval: 10 * time.Minute,
		},
	}
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()

	cfg := testConfig()
	logger := zaptest.NewLogger(t)
	clock := newTestClock(time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC))

	credentials := newMemoryCredentials()
	ledger := newMemoryLedger()
	sessions := newMemorySessions()
	events := newStubEvents()

	tokens, err := NewTokenService(cfg)
	if err != nil {
		t.Fatalf("NewTokenService returned error: %v", err)
	}

	sessionService := NewSessionService(cfg.Session, sessions, ledger, nil, logger)
	lockout := NewLockoutPolicy(cfg.Lockout, credentials, logger)

	hasher, err := security.NewArgon2Hasher(security.Argon2Config{
		Memory:      8 * 1024,
		Iterations:  1,
		Parallelism: 1,
		SaltLength:  8,
		KeyLength:   16,
	})
	if err != nil {
		t.Fatalf("NewArgon2Hasher returned error: %v", err)
	}

	service := NewAuthService(
		cfg,
		credentials,
		ledger,
		tokens,
		sessionService,
		lockout,
		hasher,
		security.DefaultPasswordValidator(),
		events,
		nil,
		logger,
	)
	service.WithClock(clock.Now)

	return &authFixture{
		service:     service,
		credentials: credentials,
		ledger:      ledger,
		sessions:    sessions,
		events:      events,
		clock:       clock,
	}
}
