package usecase

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/pinilDissanayaka/Sharing-Backend/internal/core/domain"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/infra/config"
)

var (
	// ErrInvalidToken indicates the token is malformed or its signature does not verify.
	ErrInvalidToken = errors.New("invalid token")
	// ErrExpiredToken indicates the token's validity window has elapsed.
	ErrExpiredToken = errors.New("token expired")
	// ErrTokenTypeMismatch indicates an access token was presented where a
	// refresh token was expected, or the other way around.
	ErrTokenTypeMismatch = errors.New("token type mismatch")
)

// TokenClaims is the claim set carried by every issued token. The token
// version pins the token to the credential state at issuance time; a version
// bump on the credential makes all older tokens stale at once.
type TokenClaims struct {
	UserID       string           `json:"uid"`
	TokenType    domain.TokenType `json:"typ"`
	TokenVersion int64            `json:"ver"`
	IPAddress    string           `json:"ip,omitempty"`
	UserAgent    string           `json:"ua,omitempty"`
	jwt.RegisteredClaims
}

// IssuedToken pairs a signed token string with its decoded claims.
type IssuedToken struct {
	Value     string
	Claims    *TokenClaims
	ExpiresAt time.Time
}

// TokenService issues and verifies the signed tokens the service hands out.
// Signing is symmetric HMAC with a shared secret from configuration.
type TokenService struct {
	cfg    *config.AppConfig
	secret []byte
	now    func() time.Time
}

// NewTokenService constructs a TokenService instance.
func NewTokenService(cfg *config.AppConfig) (*TokenService, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	secret := strings.TrimSpace(cfg.JWT.Secret)
	if secret == "" {
		return nil, fmt.Errorf("jwt secret is required")
	}

	service := &TokenService{
		cfg:    cfg,
		secret: []byte(secret),
	}
	service.now = func() time.Time { return time.Now().UTC() }
	return service, nil
}

// WithClock overrides the service clock for deterministic tests.
func (s *TokenService) WithClock(clock func() time.Time) {
	if clock != nil {
		s.now = clock
	}
}

// IssueAccessToken signs a short-lived access token for the credential.
func (s *TokenService) IssueAccessToken(credential *domain.Credential, meta domain.ClientMetadata) (*IssuedToken, error) {
	return s.issue(credential, domain.TokenTypeAccess, s.accessTokenTTL(), meta)
}

// IssueRefreshToken signs a long-lived refresh token for the credential.
func (s *TokenService) IssueRefreshToken(credential *domain.Credential, meta domain.ClientMetadata) (*IssuedToken, error) {
	return s.issue(credential, domain.TokenTypeRefresh, s.refreshTokenTTL(), meta)
}

func (s *TokenService) issue(credential *domain.Credential, tokenType domain.TokenType, ttl time.Duration, meta domain.ClientMetadata) (*IssuedToken, error) {
	if credential == nil {
		return nil, fmt.Errorf("credential is required")
	}
	if credential.ID == "" {
		return nil, fmt.Errorf("credential id is required")
	}

	now := s.now()
	expiresAt := now.Add(ttl)

	claims := &TokenClaims{
		UserID:       credential.ID,
		TokenType:    tokenType,
		TokenVersion: credential.TokenVersion,
		IPAddress:    meta.IPAddress,
		UserAgent:    meta.UserAgent,
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.resolveIssuer(),
			Subject:   credential.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("sign token: %w", err)
	}

	return &IssuedToken{Value: signed, Claims: claims, ExpiresAt: expiresAt}, nil
}

// Verify parses and validates a token of the expected type. Expiry is
// reported ahead of any other defect; a well-signed token of the wrong type
// fails with ErrTokenTypeMismatch.
func (s *TokenService) Verify(token string, expectedType domain.TokenType) (*TokenClaims, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, ErrInvalidToken
	}

	claims := &TokenClaims{}

	parserOptions := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
	}
	if s.now != nil {
		parserOptions = append(parserOptions, jwt.WithTimeFunc(s.now))
	}
	if issuer := s.resolveIssuer(); issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(issuer))
	}

	parsed, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return s.secret, nil
	}, parserOptions...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrExpiredToken
		}
		return nil, ErrInvalidToken
	}

	if parsed == nil || !parsed.Valid {
		return nil, ErrInvalidToken
	}
	if strings.TrimSpace(claims.UserID) == "" {
		return nil, ErrInvalidToken
	}
	if claims.TokenType != expectedType {
		return nil, ErrTokenTypeMismatch
	}

	return claims, nil
}

func (s *TokenService) resolveIssuer() string {
	if issuer := strings.TrimSpace(s.cfg.JWT.Issuer); issuer != "" {
		return issuer
	}
	return strings.TrimSpace(s.cfg.App.Name)
}

func (s *TokenService) accessTokenTTL() time.Duration {
	if s.cfg.JWT.AccessTokenTTL > 0 {
		return s.cfg.JWT.AccessTokenTTL
	}
	return 2 * time.Hour
}

func (s *TokenService) refreshTokenTTL() time.Duration {
	if s.cfg.JWT.RefreshTokenTTL > 0 {
		return s.cfg.JWT.RefreshTokenTTL
	}
	return 7 * 24 * time.Hour
}
