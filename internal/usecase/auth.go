package usecase

import (
	"context"
	"errors"
	"fmt"
	"strings"
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

var (
	// ErrInvalidCredentials indicates the email or password is incorrect. The
	// same error covers unknown emails so responses never reveal whether an
	// account exists.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrDuplicateEmail indicates the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrAccountBlocked indicates an administratively blocked account.
	ErrAccountBlocked = errors.New("account blocked")
	// ErrForbidden indicates the caller lacks the required role.
	ErrForbidden = errors.New("forbidden")
	// ErrMissingToken indicates no token accompanied the request.
	ErrMissingToken = errors.New("missing token")
	// ErrTokenRevoked indicates the token sits in the revocation ledger.
	ErrTokenRevoked = errors.New("token revoked")
	// ErrIdentityNotFound indicates the token's subject no longer exists.
	ErrIdentityNotFound = errors.New("identity not found")
	// ErrStaleToken indicates the token predates a password change.
	ErrStaleToken = errors.New("stale token")
	// ErrSessionTimedOut indicates the session idled past its window.
	ErrSessionTimedOut = errors.New("session timed out")
	// ErrPasswordMismatch indicates the confirmation does not match.
	ErrPasswordMismatch = errors.New("password confirmation mismatch")
)

// TokenPair bundles the two tokens handed out on login, signup, and refresh.
type TokenPair struct {
	AccessToken      string
	AccessExpiresAt  time.Time
	RefreshToken     string
	RefreshExpiresAt time.Time
}

// SignupInput carries the fields accepted at registration. Role is absent on
// purpose: accounts always start unprivileged and promotion goes through a
// separate administrative path.
type SignupInput struct {
	FirstName string
	LastName  string
	Email     string
	Phone     string
	Password  string
}

// AuthResult pairs the sanitized identity with its freshly issued tokens.
type AuthResult struct {
	Credential domain.Credential
	Tokens     TokenPair
	Session    *domain.Session
}

// AuthService composes the token, session, and lockout services into the
// public authentication operations. It is the only caller of the other
// services; nothing else touches the ledger or the registry directly.
type AuthService struct {
	cfg         *config.AppConfig
	credentials port.CredentialRepository
	ledger      port.RevocationLedger
	tokens      *TokenService
	sessions    *SessionService
	lockout     *LockoutPolicy
	hasher      port.PasswordHasher
	policy      port.PasswordPolicyValidator
	events      port.EventPublisher
	metrics     *telemetry.Metrics
	logger      *zap.Logger
	now         func() time.Time
}

// NewAuthService constructs an AuthService instance.
func NewAuthService(
	cfg *config.AppConfig,
	credentials port.CredentialRepository,
	ledger port.RevocationLedger,
	tokens *TokenService,
	sessions *SessionService,
	lockout *LockoutPolicy,
	hasher port.PasswordHasher,
	policy port.PasswordPolicyValidator,
	events port.EventPublisher,
	metrics *telemetry.Metrics,
	logger *zap.Logger,
) *AuthService {
	if logger == nil {
		logger = zap.NewNop()
	}

	service := &AuthService{
		cfg:         cfg,
		credentials: credentials,
		ledger:      ledger,
		tokens:      tokens,
		sessions:    sessions,
		lockout:     lockout,
		hasher:      hasher,
		policy:      policy,
		events:      events,
		metrics:     metrics,
		logger:      logger,
	}
	service.now = func() time.Time { return time.Now().UTC() }
	return service
}

// WithClock overrides the service clock for deterministic tests and pushes
// the same clock into the composed services.
func (s *AuthService) WithClock(clock func() time.Time) {
	if clock == nil {
		return
	}
	s.now = clock
	if s.tokens != nil {
		s.tokens.WithClock(clock)
	}
	if s.sessions != nil {
		s.sessions.WithClock(clock)
	}
	if s.lockout != nil {
		s.lockout.WithClock(clock)
	}
}

// Signup registers a new identity and logs it straight in.
func (s *AuthService) Signup(ctx context.Context, input SignupInput, meta domain.ClientMetadata) (*AuthResult, error) {
	input.FirstName = strings.TrimSpace(input.FirstName)
	input.LastName = strings.TrimSpace(input.LastName)
	input.Email = strings.ToLower(strings.TrimSpace(input.Email))
	input.Phone = strings.TrimSpace(input.Phone)

	if input.FirstName == "" {
		return nil, fmt.Errorf("first name is required")
	}
	if input.LastName == "" {
		return nil, fmt.Errorf("last name is required")
	}
	if input.Email == "" || !strings.Contains(input.Email, "@") {
		return nil, fmt.Errorf("a valid email is required")
	}

	localPart := input.Email[:strings.Index(input.Email, "@")]
	if err := s.policy.Validate(input.Password, localPart, input.FirstName, input.LastName); err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.now()
	credential := domain.Credential{
		ID:                 uuid.NewString(),
		FirstName:          input.FirstName,
		LastName:           input.LastName,
		Email:              input.Email,
		PasswordHash:       hash,
		Role:               domain.RoleUser,
		TokenVersion:       0,
		CreatedAt:          now,
		LastPasswordChange: now,
	}
	if input.Phone != "" {
		phone := input.Phone
		credential.Phone = &phone
	}

	if err := s.credentials.Create(ctx, credential); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrDuplicateEmail
		}
		return nil, fmt.Errorf("create credential: %w", err)
	}

	result, err := s.openSession(ctx, &credential, meta)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, s.events.PublishUserRegistered, port.AuthEvent{
		EventID:  uuid.NewString(),
		UserID:   credential.ID,
		Email:    credential.Email,
		At:       now,
		Metadata: meta,
	})

	return result, nil
}

// Login authenticates by email and password and opens a device session.
func (s *AuthService) Login(ctx context.Context, email, password string, meta domain.ClientMetadata) (*AuthResult, error) {
	return s.login(ctx, email, password, meta, false)
}

// AdminLogin is Login restricted to administrator accounts. The role check
// runs right after lookup, before lockout and block state is consulted, so
// the error surface never confirms a non-admin account exists.
func (s *AuthService) AdminLogin(ctx context.Context, email, password string, meta domain.ClientMetadata) (*AuthResult, error) {
	return s.login(ctx, email, password, meta, true)
}

func (s *AuthService) login(ctx context.Context, email, password string, meta domain.ClientMetadata, adminOnly bool) (*AuthResult, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return nil, ErrInvalidCredentials
	}

	credential, err := s.credentials.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			s.countLogin("unknown_email")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("lookup credential: %w", err)
	}

	if adminOnly && credential.Role != domain.RoleAdmin {
		s.countLogin("forbidden")
		return nil, ErrForbidden
	}

	if err := s.lockout.Check(credential); err != nil {
		s.countLogin("locked")
		return nil, err
	}

	ok, err := s.hasher.Verify(password, credential.PasswordHash)
	if err != nil {
		return nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		s.countLogin("bad_password")
		locked, lockErr := s.lockout.OnFailure(ctx, credential)
		if lockErr != nil {
			return nil, lockErr
		}

		s.publish(ctx, s.events.PublishLoginFailed, port.AuthEvent{
			EventID:  uuid.NewString(),
			UserID:   credential.ID,
			Email:    credential.Email,
			At:       s.now(),
			Count:    credential.FailedAttempts,
			Metadata: meta,
		})
		if locked {
			if s.metrics != nil {
				s.metrics.AccountLockouts.Inc()
			}
			s.publish(ctx, s.events.PublishAccountLocked, port.AuthEvent{
				EventID:  uuid.NewString(),
				UserID:   credential.ID,
				Email:    credential.Email,
				At:       s.now(),
				Reason:   "failed_attempts",
				Metadata: meta,
			})
		}
		return nil, ErrInvalidCredentials
	}

	if err := s.lockout.OnSuccess(ctx, credential); err != nil {
		return nil, err
	}

	result, err := s.openSession(ctx, credential, meta)
	if err != nil {
		return nil, err
	}

	s.countLogin("success")
	s.publish(ctx, s.events.PublishLoginSucceeded, port.AuthEvent{
		EventID:  uuid.NewString(),
		UserID:   credential.ID,
		Email:    credential.Email,
		At:       s.now(),
		Metadata: meta,
	})

	return result, nil
}

// AuthenticateRequest gates protected operations. It validates the access
// token end to end and bumps session activity, short-circuiting on the
// first defect.
func (s *AuthService) AuthenticateRequest(ctx context.Context, accessToken string, meta domain.ClientMetadata) (*domain.Credential, *domain.Session, error) {
	accessToken = strings.TrimSpace(accessToken)
	if accessToken == "" {
		return nil, nil, ErrMissingToken
	}

	tokenHash := security.HashToken(accessToken)
	revoked, _, err := s.ledger.IsRevoked(ctx, tokenHash)
	if err != nil {
		return nil, nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		return nil, nil, ErrTokenRevoked
	}

	claims, err := s.tokens.Verify(accessToken, domain.TokenTypeAccess)
	if err != nil {
		return nil, nil, err
	}

	credential, err := s.credentials.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, ErrIdentityNotFound
		}
		return nil, nil, fmt.Errorf("lookup credential: %w", err)
	}

	if claims.TokenVersion != credential.TokenVersion {
		s.revokeToken(ctx, tokenHash, credential.ID, domain.RevocationReasonPasswordChange, claims.ExpiresAt.Time, meta)
		return nil, nil, ErrStaleToken
	}

	if credential.IsBlocked {
		return nil, nil, ErrAccountBlocked
	}
	if credential.IsLocked(s.now()) {
		return nil, nil, &AccountLockedError{
			Until:     *credential.LockedUntil,
			Remaining: credential.LockRemaining(s.now()),
		}
	}

	session, err := s.sessions.FindActiveByAccessToken(ctx, tokenHash, credential.ID)
	if err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, err
	}

	if s.sessions.IsStale(session) {
		if err := s.sessions.Invalidate(ctx, session, domain.RevocationReasonInactivityTimeout); err != nil && !errors.Is(err, ErrSessionNotFound) {
			return nil, nil, err
		}
		return nil, nil, ErrSessionTimedOut
	}

	if err := s.sessions.Touch(ctx, session); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			// Lost a race against an invalidation. The session is dead; treat
			// the request as unauthenticated.
			return nil, nil, ErrSessionNotFound
		}
		return nil, nil, err
	}

	sanitized := credential.Sanitized()
	return &sanitized, session, nil
}

// OptionalAuthenticate is AuthenticateRequest with every authentication
// failure degraded to an anonymous result. Infrastructure failures still
// propagate.
func (s *AuthService) OptionalAuthenticate(ctx context.Context, accessToken string, meta domain.ClientMetadata) (*domain.Credential, *domain.Session, error) {
	credential, session, err := s.AuthenticateRequest(ctx, accessToken, meta)
	if err != nil {
		if isAuthFailure(err) {
			return nil, nil, nil
		}
		return nil, nil, err
	}
	return credential, session, nil
}

// Refresh rotates a refresh token: the old token is revoked, its session
// retired, and a brand-new pair issued against a fresh session. Presenting
// the same refresh token twice yields exactly one winner; the loser fails
// with ErrTokenRevoked.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string, meta domain.ClientMetadata) (*AuthResult, error) {
	refreshToken = strings.TrimSpace(refreshToken)
	if refreshToken == "" {
		return nil, ErrMissingToken
	}

	tokenHash := security.HashToken(refreshToken)
	revoked, _, err := s.ledger.IsRevoked(ctx, tokenHash)
	if err != nil {
		return nil, fmt.Errorf("check revocation: %w", err)
	}
	if revoked {
		s.countRotation("revoked")
		return nil, ErrTokenRevoked
	}

	claims, err := s.tokens.Verify(refreshToken, domain.TokenTypeRefresh)
	if err != nil {
		s.countRotation("invalid")
		return nil, err
	}

	credential, err := s.credentials.GetByID(ctx, claims.UserID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, fmt.Errorf("lookup credential: %w", err)
	}

	if credential.IsBlocked {
		return nil, ErrAccountBlocked
	}
	if credential.IsLocked(s.now()) {
		return nil, &AccountLockedError{
			Until:     *credential.LockedUntil,
			Remaining: credential.LockRemaining(s.now()),
		}
	}
	if claims.TokenVersion != credential.TokenVersion {
		s.revokeToken(ctx, tokenHash, credential.ID, domain.RevocationReasonPasswordChange, claims.ExpiresAt.Time, meta)
		return nil, ErrStaleToken
	}

	// The rotation gate. SETNX semantics in the ledger mean exactly one
	// concurrent caller gets past this line per token.
	entry := domain.RevocationEntry{
		TokenHash: tokenHash,
		UserID:    credential.ID,
		Reason:    domain.RevocationReasonTokenRotation,
		ExpiresAt: claims.ExpiresAt.Time,
		CreatedAt: s.now(),
		Metadata:  meta,
	}
	if err := s.ledger.Revoke(ctx, entry); err != nil {
		if errors.Is(err, repository.ErrAlreadyRevoked) {
			s.countRotation("lost_race")
			return nil, ErrTokenRevoked
		}
		return nil, fmt.Errorf("revoke rotated token: %w", err)
	}

	if session, err := s.sessions.FindActiveByRefreshToken(ctx, tokenHash, credential.ID); err == nil {
		if err := s.sessions.Invalidate(ctx, session, domain.RevocationReasonTokenRotation); err != nil && !errors.Is(err, ErrSessionNotFound) {
			return nil, err
		}
	} else if !errors.Is(err, ErrSessionNotFound) {
		return nil, err
	}

	result, err := s.openSession(ctx, credential, meta)
	if err != nil {
		return nil, err
	}

	s.countRotation("success")
	s.publish(ctx, s.events.PublishTokenRotated, port.AuthEvent{
		EventID:  uuid.NewString(),
		UserID:   credential.ID,
		Email:    credential.Email,
		At:       s.now(),
		Metadata: meta,
	})

	return result, nil
}

// Logout retires the authenticated session and revokes its token pair.
func (s *AuthService) Logout(ctx context.Context, session *domain.Session) error {
	if err := s.sessions.Invalidate(ctx, session, domain.RevocationReasonLogout); err != nil {
		if errors.Is(err, ErrSessionNotFound) {
			return nil
		}
		return err
	}
	return nil
}

// LogoutAll retires every live session the user holds across all devices.
func (s *AuthService) LogoutAll(ctx context.Context, userID string) (int, error) {
	closed, err := s.sessions.InvalidateAllForUser(ctx, userID, domain.RevocationReasonLogoutAll)
	if err != nil {
		return closed, err
	}

	if closed > 0 {
		s.publish(ctx, s.events.PublishSessionsRevoked, port.AuthEvent{
			EventID: uuid.NewString(),
			UserID:  userID,
			At:      s.now(),
			Reason:  string(domain.RevocationReasonLogoutAll),
			Count:   closed,
		})
	}

	return closed, nil
}

// ChangePassword swaps the credential's password and invalidates every
// previously issued token in one version bump. All sessions close; the
// caller must log in again.
func (s *AuthService) ChangePassword(ctx context.Context, userID, current, newPassword, confirm string) error {
	if newPassword != confirm {
		return ErrPasswordMismatch
	}

	credential, err := s.credentials.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrIdentityNotFound
		}
		return fmt.Errorf("lookup credential: %w", err)
	}

	ok, err := s.hasher.Verify(current, credential.PasswordHash)
	if err != nil {
		return fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return ErrInvalidCredentials
	}

	localPart := credential.Email
	if at := strings.Index(credential.Email, "@"); at > 0 {
		localPart = credential.Email[:at]
	}
	if err := s.policy.Validate(newPassword, localPart, credential.FirstName, credential.LastName, current); err != nil {
		return err
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}

	newVersion, err := s.credentials.UpdatePassword(ctx, userID, hash, s.now())
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}

	if _, err := s.sessions.InvalidateAllForUser(ctx, userID, domain.RevocationReasonPasswordChange); err != nil {
		s.logger.Warn("invalidate sessions after password change failed",
			zap.String("user_id", userID),
			zap.Error(err))
	}

	s.publish(ctx, s.events.PublishPasswordChanged, port.AuthEvent{
		EventID: uuid.NewString(),
		UserID:  userID,
		Email:   credential.Email,
		At:      s.now(),
		Count:   int(newVersion),
	})

	return nil
}

// ListSessions exposes the user's live device sessions.
func (s *AuthService) ListSessions(ctx context.Context, userID string) ([]domain.Session, error) {
	return s.sessions.ListForUser(ctx, userID)
}

func (s *AuthService) openSession(ctx context.Context, credential *domain.Credential, meta domain.ClientMetadata) (*AuthResult, error) {
	access, err := s.tokens.IssueAccessToken(credential, meta)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refresh, err := s.tokens.IssueRefreshToken(credential, meta)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}

	session, err := s.sessions.Open(ctx, credential.ID, access, refresh, meta)
	if err != nil {
		return nil, err
	}

	if s.metrics != nil {
		s.metrics.TokensIssued.WithLabelValues(string(domain.TokenTypeAccess)).Inc()
		s.metrics.TokensIssued.WithLabelValues(string(domain.TokenTypeRefresh)).Inc()
	}

	return &AuthResult{
		Credential: credential.Sanitized(),
		Tokens: TokenPair{
			AccessToken:      access.Value,
			AccessExpiresAt:  access.ExpiresAt,
			RefreshToken:     refresh.Value,
			RefreshExpiresAt: refresh.ExpiresAt,
		},
		Session: session,
	}, nil
}

func (s *AuthService) revokeToken(ctx context.Context, tokenHash, userID string, reason domain.RevocationReason, expiresAt time.Time, meta domain.ClientMetadata) {
	entry := domain.RevocationEntry{
		TokenHash: tokenHash,
		UserID:    userID,
		Reason:    reason,
		ExpiresAt: expiresAt,
		CreatedAt: s.now(),
		Metadata:  meta,
	}
	if err := s.ledger.Revoke(ctx, entry); err != nil && !errors.Is(err, repository.ErrAlreadyRevoked) {
		s.logger.Warn("revoke token failed", zap.Error(err))
		return
	}
	if s.metrics != nil {
		s.metrics.TokensRevoked.WithLabelValues(string(reason)).Inc()
	}
}

func (s *AuthService) publish(ctx context.Context, fn func(context.Context, port.AuthEvent) error, event port.AuthEvent) {
	if s.events == nil || fn == nil {
		return
	}
	if err := fn(ctx, event); err != nil {
		s.logger.Warn("publish auth event failed", zap.Error(err))
	}
}

func (s *AuthService) countLogin(outcome string) {
	if s.metrics != nil {
		s.metrics.LoginAttempts.WithLabelValues(outcome).Inc()
	}
}

func (s *AuthService) countRotation(outcome string) {
	if s.metrics != nil {
		s.metrics.RefreshRotations.WithLabelValues(outcome).Inc()
	}
}

func isAuthFailure(err error) bool {
	var lockedErr *AccountLockedError
	var weakErr *security.PasswordViolations
	switch {
	case errors.Is(err, ErrMissingToken),
		errors.Is(err, ErrTokenRevoked),
		errors.Is(err, ErrInvalidToken),
		errors.Is(err, ErrExpiredToken),
		errors.Is(err, ErrTokenTypeMismatch),
		errors.Is(err, ErrIdentityNotFound),
		errors.Is(err, ErrStaleToken),
		errors.Is(err, ErrAccountBlocked),
		errors.Is(err, ErrSessionNotFound),
		errors.Is(err, ErrSessionTimedOut),
		errors.As(err, &lockedErr),
		errors.As(err, &weakErr):
		return true
	}
	return false
}
