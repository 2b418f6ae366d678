package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pinilDissanayaka/Sharing-Backend/internal/core/domain"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/transport/http/middleware"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/usecase"
)

const (
	accessTokenCookie  = middleware.AccessTokenCookie
	refreshTokenCookie = "refresh_token"

	// The refresh cookie is scoped to the one route that consumes it, so
	// it never rides along on ordinary API calls.
	refreshCookiePath = "/api/v1/auth/refresh"
)

// AuthHandler exposes the authentication endpoints.
type AuthHandler struct {
	auth         *usecase.AuthService
	secureCookie bool
}

// NewAuthHandler constructs AuthHandler. secureCookie should be true outside
// development so cookies only travel over TLS.
func NewAuthHandler(auth *usecase.AuthService, secureCookie bool) *AuthHandler {
	return &AuthHandler{auth: auth, secureCookie: secureCookie}
}

// RegisterRoutes binds the authentication routes.
func (h *AuthHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/signup", h.signup)
	r.POST("/login", h.login)
	r.POST("/admin/login", h.adminLogin)
	r.POST("/refresh", h.refresh)
	r.POST("/logout", middleware.RequireAuth(h.auth), h.logout)
	r.POST("/logout-all", middleware.RequireAuth(h.auth), h.logoutAll)
}

func (h *AuthHandler) signup(c *gin.Context) {
	var req SignupRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid signup payload"))
		return
	}

	result, err := h.auth.Signup(c.Request.Context(), usecase.SignupInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Phone:     req.Phone,
		Password:  req.Password,
	}, middleware.ClientMetadata(c))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrDuplicateEmail, Status: http.StatusBadRequest, Message: "email already registered"},
		}, http.StatusBadRequest, "signup failed")
		return
	}

	h.setAuthCookies(c, result.Tokens)
	c.JSON(http.StatusCreated, AuthResponse{
		User:   NewCredentialSummary(result.Credential),
		Tokens: newTokenPairResponse(result.Tokens),
	})
}

func (h *AuthHandler) login(c *gin.Context) {
	h.handleLogin(c, h.auth.Login)
}

func (h *AuthHandler) adminLogin(c *gin.Context) {
	h.handleLogin(c, h.auth.AdminLogin)
}

func (h *AuthHandler) handleLogin(c *gin.Context, authenticate func(ctx context.Context, email, password string, meta domain.ClientMetadata) (*usecase.AuthResult, error)) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid login payload"))
		return
	}

	result, err := authenticate(c.Request.Context(), req.Email, req.Password, middleware.ClientMetadata(c))
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "invalid email or password"},
			{Err: usecase.ErrAccountBlocked, Status: http.StatusForbidden, Message: "account blocked"},
			{Err: usecase.ErrForbidden, Status: http.StatusForbidden, Message: "administrator access required"},
		}, http.StatusInternalServerError, "login failed")
		return
	}

	h.setAuthCookies(c, result.Tokens)
	c.JSON(http.StatusOK, AuthResponse{
		User:   NewCredentialSummary(result.Credential),
		Tokens: newTokenPairResponse(result.Tokens),
	})
}

func (h *AuthHandler) refresh(c *gin.Context) {
	token := h.extractRefreshToken(c)
	if token == "" {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "refresh token is required"))
		return
	}

	result, err := h.auth.Refresh(c.Request.Context(), token, middleware.ClientMetadata(c))
	if err != nil {
		h.clearAuthCookies(c)
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrTokenRevoked, Status: http.StatusUnauthorized, Message: "refresh token already used"},
			{Err: usecase.ErrExpiredToken, Status: http.StatusUnauthorized, Message: "refresh token expired"},
			{Err: usecase.ErrInvalidToken, Status: http.StatusUnauthorized, Message: "invalid refresh token"},
			{Err: usecase.ErrTokenTypeMismatch, Status: http.StatusUnauthorized, Message: "invalid refresh token"},
			{Err: usecase.ErrStaleToken, Status: http.StatusUnauthorized, Message: "refresh token superseded by a password change"},
			{Err: usecase.ErrIdentityNotFound, Status: http.StatusNotFound, Message: "account no longer exists"},
			{Err: usecase.ErrAccountBlocked, Status: http.StatusForbidden, Message: "account blocked"},
		}, http.StatusInternalServerError, "token refresh failed")
		return
	}

	h.setAuthCookies(c, result.Tokens)
	c.JSON(http.StatusOK, AuthResponse{
		User:   NewCredentialSummary(result.Credential),
		Tokens: newTokenPairResponse(result.Tokens),
	})
}

func (h *AuthHandler) logout(c *gin.Context) {
	session := middleware.AuthenticatedSession(c)
	if session == nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	if err := h.auth.Logout(c.Request.Context(), session); err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "logout failed"))
		return
	}

	h.clearAuthCookies(c)
	c.JSON(http.StatusOK, MessageResponse{Message: "logged out"})
}

func (h *AuthHandler) logoutAll(c *gin.Context) {
	credential := middleware.AuthenticatedCredential(c)
	if credential == nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	closed, err := h.auth.LogoutAll(c.Request.Context(), credential.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "logout failed"))
		return
	}

	h.clearAuthCookies(c)
	c.JSON(http.StatusOK, LogoutAllResponse{
		Message:        "logged out everywhere",
		SessionsClosed: closed,
	})
}

func (h *AuthHandler) extractRefreshToken(c *gin.Context) string {
	if cookie, err := c.Cookie(refreshTokenCookie); err == nil && strings.TrimSpace(cookie) != "" {
		return strings.TrimSpace(cookie)
	}

	var req RefreshRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		return ""
	}
	return strings.TrimSpace(req.RefreshToken)
}

func (h *AuthHandler) setAuthCookies(c *gin.Context, tokens usecase.TokenPair) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(accessTokenCookie, tokens.AccessToken,
		int(time.Until(tokens.AccessExpiresAt).Seconds()), "/", "", h.secureCookie, true)
	c.SetCookie(refreshTokenCookie, tokens.RefreshToken,
		int(time.Until(tokens.RefreshExpiresAt).Seconds()), refreshCookiePath, "", h.secureCookie, true)
}

func (h *AuthHandler) clearAuthCookies(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(accessTokenCookie, "", -1, "/", "", h.secureCookie, true)
	c.SetCookie(refreshTokenCookie, "", -1, refreshCookiePath, "", h.secureCookie, true)
}

func newTokenPairResponse(tokens usecase.TokenPair) TokenPairResponse {
	return TokenPairResponse{
		AccessToken:      tokens.AccessToken,
		AccessExpiresAt:  tokens.AccessExpiresAt,
		RefreshToken:     tokens.RefreshToken,
		RefreshExpiresAt: tokens.RefreshExpiresAt,
	}
}
