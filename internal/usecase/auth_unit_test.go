package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/pinilDissanayaka/Sharing-Backend/internal/core/domain"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/infra/security"
)

var testMeta = domain.ClientMetadata{IPAddress: "203.0.113.9", UserAgent: "go-test"}

func signupInput() SignupInput {
	return SignupInput{
		FirstName: "Ada",
		LastName:  "Lovelace",
		Email:     "str0ng@x.com",
		Password:  "Str0ng!Pass99",
	}
}

func TestAuthService_SignupSucceeds(t *testing.T) {
	fx := newAuthFixture(t)

	result, err := fx.service.Signup(context.Background(), signupInput(), testMeta)
	if err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}

	if result.Credential.PasswordHash != "" {
		t.Fatalf("expected sanitized credential without password hash")
	}
	if result.Credential.TokenVersion != 0 {
		t.Fatalf("expected token version 0 on signup, got %d", result.Credential.TokenVersion)
	}
	if result.Credential.Role != domain.RoleUser {
		t.Fatalf("expected new accounts to start unprivileged, got %s", result.Credential.Role)
	}
	if result.Tokens.AccessToken == "" || result.Tokens.RefreshToken == "" {
		t.Fatalf("expected a full token pair")
	}
	if result.Session == nil || !result.Session.IsActive {
		t.Fatalf("expected an active session to be opened")
	}
	if fx.events.count("user_registered") != 1 {
		t.Fatalf("expected a registration event")
	}
}

func TestAuthService_SignupWeakPassword(t *testing.T) {
	fx := newAuthFixture(t)

	input := signupInput()
	input.Password = "abc123"

	_, err := fx.service.Signup(context.Background(), input, testMeta)

	var violations *security.PasswordViolations
	if !errors.As(err, &violations) {
		t.Fatalf("expected password violations, got %v", err)
	}

	codes := make(map[string]bool)
	for _, violation := range violations.Violations {
		codes[violation.Code] = true
	}
	for _, want := range []string{"min_length", "uppercase", "symbol"} {
		if !codes[want] {
			t.Fatalf("expected violation %q in %v", want, violations.Messages())
		}
	}
}

func TestAuthService_SignupDuplicateEmail(t *testing.T) {
	fx := newAuthFixture(t)

	ctx := context.Background()
	if _, err := fx.service.Signup(ctx, signupInput(), testMeta); err != nil {
		t.Fatalf("first Signup returned error: %v", err)
	}

	if _, err := fx.service.Signup(ctx, signupInput(), testMeta); !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}
}

func TestAuthService_LoginUnknownEmail(t *testing.T) {
	fx := newAuthFixture(t)

	_, err := fx.service.Login(context.Background(), "nobody@example.com", "whatever", testMeta)
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthService_LoginLockoutFlow(t *testing.T) {
	fx := newAuthFixture(t)

	ctx := context.Background()
	if _, err := fx.service.Signup(ctx, signupInput(), testMeta); err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}

	for i := 1; i <= 5; i++ {
		_, err := fx.service.Login(ctx, "str0ng@x.com", "wrong-password", testMeta)
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}
	if fx.events.count("account_locked") != 1 {
		t.Fatalf("expected exactly one lock event")
	}

	// Correct password during the lock window still fails.
	_, err := fx.service.Login(ctx, "str0ng@x.com", "Str0ng!Pass99", testMeta)
	var lockedErr *AccountLockedError
	if !errors.As(err, &lockedErr) {
		t.Fatalf("expected AccountLockedError, got %v", err)
	}

	fx.clock.Advance(2*time.Hour + time.Minute)

	result, err := fx.service.Login(ctx, "str0ng@x.com", "Str0ng!Pass99", testMeta)
	if err != nil {
		t.Fatalf("expected login after lock expiry, got %v", err)
	}
	if result.Credential.FailedAttempts != 0 {
		t.Fatalf("expected counter reset after success, got %d", result.Credential.FailedAttempts)
	}
}

func TestAuthService_LoginBlockedAccount(t *testing.T) {
	fx := newAuthFixture(t)

	ctx := context.Background()
	result, err := fx.service.Signup(ctx, signupInput(), testMeta)
	if err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}

	if err := fx.credentials.SetBlocked(ctx, result.Credential.ID, true); err != nil {
		t.Fatalf("SetBlocked returned error: %v", err)
	}

	if _, err := fx.service.Login(ctx, "str0ng@x.com", "Str0ng!Pass99", testMeta); !errors.Is(err, ErrAccountBlocked) {
		t.Fatalf("expected ErrAccountBlocked, got %v", err)
	}
}

func TestAuthService_AdminLoginRequiresRole(t *testing.T) {
	fx := newAuthFixture(t)

	ctx := context.Background()
	if _, err := fx.service.Signup(ctx, signupInput(), testMeta); err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}

	if _, err := fx.service.AdminLogin(ctx, "str0ng@x.com", "Str0ng!Pass99", testMeta); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden for non-admin, got %v", err)
	}

	// Promote and retry.
	stored, err := fx.credentials.GetByEmail(ctx, "str0ng@x.com")
	if err != nil {
		t.Fatalf("GetByEmail returned error: %v", err)
	}
	fx.credentials.mu.Lock()
	fx.credentials.byID[stored.ID].Role = domain.RoleAdmin
	fx.credentials.mu.Unlock()

	if _, err := fx.service.AdminLogin(ctx, "str0ng@x.com", "Str0ng!Pass99", testMeta); err != nil {
		t.Fatalf("expected admin login to succeed, got %v", err)
	}
}

func TestAuthService_ChangePasswordInvalidatesTokens(t *testing.T) {
	fx := newAuthFixture(t)

	ctx := context.Background()
	result, err := fx.service.Signup(ctx, signupInput(), testMeta)
	if err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}

	access := result.Tokens.AccessToken
	if _, _, err := fx.service.AuthenticateRequest(ctx, access, testMeta); err != nil {
		t.Fatalf("expected pre-change authentication to pass, got %v", err)
	}

	err = fx.service.ChangePassword(ctx, result.Credential.ID, "Str0ng!Pass99", "Qv7!xRk2#Wm9z", "Qv7!xRk2#Wm9z")
	if err != nil {
		t.Fatalf("ChangePassword returned error: %v", err)
	}

	// The old access token is within its TTL but its version is now stale.
	_, _, err = fx.service.AuthenticateRequest(ctx, access, testMeta)
	if !errors.Is(err, ErrStaleToken) && !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected ErrStaleToken or ErrTokenRevoked, got %v", err)
	}

	// And every subsequent attempt keeps failing.
	_, _, err = fx.service.AuthenticateRequest(ctx, access, testMeta)
	if !errors.Is(err, ErrStaleToken) && !errors.Is(err, ErrTokenRevoked) {
		t.Fatalf("expected repeat failure, got %v", err)
	}

	if _, err := fx.service.Login(ctx, "str0ng@x.com", "Qv7!xRk2#Wm9z", testMeta); err != nil {
		t.Fatalf("expected login with new password, got %v", err)
	}
	if _, err := fx.service.Login(ctx, "str0ng@x.com", "Str0ng!Pass99", testMeta); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected old password to be rejected, got %v", err)
	}
}

func TestAuthService_ChangePasswordChecks(t *testing.T) {
	fx := newAuthFixture(t)

	ctx := context.Background()
	result, err := fx.service.Signup(ctx, signupInput(), testMeta)
	if err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}
	userID := result.Credential.ID

	if err := fx.service.ChangePassword(ctx, userID, "Str0ng!Pass99", "Qv7!xRk2#Wm9z", "different"); !errors.Is(err, ErrPasswordMismatch) {
		t.Fatalf("expected ErrPasswordMismatch, got %v", err)
	}
	if err := fx.service.ChangePassword(ctx, userID, "wrong-current", "Qv7!xRk2#Wm9z", "Qv7!xRk2#Wm9z"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	var violations *security.PasswordViolations
	if err := fx.service.ChangePassword(ctx, userID, "Str0ng!Pass99", "abc123", "abc123"); !errors.As(err, &violations) {
		t.Fatalf("expected password violations, got %v", err)
	}
}

func TestAuthService_LogoutAll(t *testing.T) {
	fx := newAuthFixture(t)

	ctx := context.Background()
	if _, err := fx.service.Signup(ctx, signupInput(), testMeta); err != nil {
		t.Fatalf("Signup returned error: %v", err)
	}
	first, err := fx.service.Login(ctx, "str0ng@x.com", "Str0ng!Pass99", testMeta)
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}
	second, err := fx.service.Login(ctx, "str0ng@x.com", "Str0ng!Pass99", testMeta)
	if err != nil {
		t.Fatalf("Login returned error: %v", err)
	}

	closed, err := fx.service.LogoutAll(ctx, first.Credential.ID)
	if err != nil {
		t.Fatalf("LogoutAll returned error: %v", err)
	}
	if closed != 3 {
		t.Fatalf("expected 3 closed sessions, got %d", closed)
	}

	for _, token := range []string{first.Tokens.AccessToken, second.Tokens.AccessToken} {
		if _, _, err := fx.service.AuthenticateRequest(ctx, token, testMeta); !errors.Is(err, ErrTokenRevoked) {
			t.Fatalf("expected ErrTokenRevoked after logout-all, got %v", err)
		}
	}
	if fx.events.count("sessions_revoked") != 1 {
		t.Fatalf("expected one sessions-revoked event")
	}
}
