package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap/zaptest"

	"github.com/pinilDissanayaka/Sharing-Backend/internal/core/domain"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/core/port"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/infra/config"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/infra/security"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/repository"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/usecase"
)

// stubCredentials is a minimal in-memory CredentialRepository for handler tests.
type stubCredentials struct {
	byEmail map[string]domain.Credential
}

func newStubCredentials() *stubCredentials {
	return &stubCredentials{byEmail: make(map[string]domain.Credential)}
}

func (s *stubCredentials) Create(_ context.Context, credential domain.Credential) error {
	if _, exists := s.byEmail[credential.Email]; exists {
		return repository.ErrDuplicate
	}
	s.byEmail[credential.Email] = credential
	return nil
}

func (s *stubCredentials) GetByID(context.Context, string) (*domain.Credential, error) {
	return nil, repository.ErrNotFound
}

func (s *stubCredentials) GetByEmail(_ context.Context, email string) (*domain.Credential, error) {
	credential, ok := s.byEmail[email]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &credential, nil
}

func (s *stubCredentials) UpdatePassword(context.Context, string, string, time.Time) (int64, error) {
	return 0, repository.ErrNotFound
}

func (s *stubCredentials) UpdateLockout(context.Context, string, int, *time.Time) error {
	return nil
}

func (s *stubCredentials) RecordLogin(context.Context, string, time.Time) error { return nil }

func (s *stubCredentials) SetBlocked(context.Context, string, bool) error { return nil }

type stubSessions struct{}

func (stubSessions) Create(context.Context, domain.Session) error { return nil }

func (stubSessions) GetByID(context.Context, string) (*domain.Session, error) {
	return nil, repository.ErrNotFound
}

func (stubSessions) FindActiveByAccessToken(context.Context, string, string) (*domain.Session, error) {
	return nil, repository.ErrNotFound
}

func (stubSessions) FindActiveByRefreshToken(context.Context, string, string) (*domain.Session, error) {
	return nil, repository.ErrNotFound
}

func (stubSessions) Touch(context.Context, string, time.Time) error { return nil }

func (stubSessions) Invalidate(context.Context, string, domain.RevocationReason) error {
	return nil
}

func (stubSessions) ListActiveByUser(context.Context, string) ([]domain.Session, error) {
	return nil, nil
}

func (stubSessions) ListStaleActive(context.Context, time.Time, time.Time) ([]domain.Session, error) {
	return nil, nil
}

func (stubSessions) DeleteExpired(context.Context, time.Time) (int, error) { return 0, nil }

type stubLedger struct{}

func (stubLedger) Revoke(context.Context, domain.RevocationEntry) error { return nil }

func (stubLedger) IsRevoked(context.Context, string) (bool, domain.RevocationReason, error) {
	return false, "", nil
}

func (stubLedger) SweepExpired(context.Context, time.Time) (int, error) { return 0, nil }

type stubEvents struct{}

func (stubEvents) PublishUserRegistered(context.Context, port.AuthEvent) error  { return nil }
func (stubEvents) PublishLoginSucceeded(context.Context, port.AuthEvent) error  { return nil }
func (stubEvents) PublishLoginFailed(context.Context, port.AuthEvent) error     { return nil }
func (stubEvents) PublishAccountLocked(context.Context, port.AuthEvent) error   { return nil }
func (stubEvents) PublishTokenRotated(context.Context, port.AuthEvent) error    { return nil }
func (stubEvents) PublishSessionsRevoked(context.Context, port.AuthEvent) error { return nil }
func (stubEvents) PublishPasswordChanged(context.Context, port.AuthEvent) error { return nil }

func newTestAuthEngine(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.AppConfig{
		JWT: config.JWTSettings{
			Secret:          "handler-test-secret",
			Issuer:          "handler-test",
			AccessTokenTTL:  2 * time.Hour,
			RefreshTokenTTL: 168 * time.Hour,
		},
	}

	tokens, err := usecase.NewTokenService(cfg)
	if err != nil {
		t.Fatalf("NewTokenService returned error: %v", err)
	}

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

	logger := zaptest.NewLogger(t)
	credentials := newStubCredentials()
	sessions := usecase.NewSessionService(config.SessionSettings{}, stubSessions{}, stubLedger{}, nil, logger)
	lockout := usecase.NewLockoutPolicy(config.LockoutSettings{}, credentials, logger)

	auth := usecase.NewAuthService(
		cfg,
		credentials,
		stubLedger{},
		tokens,
		sessions,
		lockout,
		hasher,
		security.DefaultPasswordValidator(),
		stubEvents{},
		nil,
		logger,
	)

	r := gin.New()
	NewAuthHandler(auth, false).RegisterRoutes(r.Group("/api/v1/auth"))
	return r
}

func signupBody(t *testing.T) *bytes.Reader {
	t.Helper()
	payload, err := json.Marshal(SignupRequest{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "ada@example.com",
		Password:  "Str0ng!Pass99",
	})
	if err != nil {
		t.Fatalf("marshal signup payload: %v", err)
	}
	return bytes.NewReader(payload)
}

func TestAuthHandler_SignupDuplicateEmailIsBadRequest(t *testing.T) {
	r := newTestAuthEngine(t)

	w := httptest.NewRecorder()
	req, _ := http.NewRequest(http.MethodPost, "/api/v1/auth/signup", signupBody(t))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusCreated {
		t.Fatalf("expected first signup to return 201, got %d: %s", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	req, _ = http.NewRequest(http.MethodPost, "/api/v1/auth/signup", signupBody(t))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	if w.Code != http.StatusBadRequest {
		t.Fatalf("expected duplicate signup to return 400, got %d: %s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "email already registered") {
		t.Fatalf("expected duplicate email message, got %s", w.Body.String())
	}
}
