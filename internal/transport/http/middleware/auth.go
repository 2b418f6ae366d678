package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/pinilDissanayaka/Sharing-Backend/internal/core/domain"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/usecase"
)

// AccessTokenCookie is the cookie carrying the access token for browser
// clients. It takes precedence over the Authorization header.
const AccessTokenCookie = "access_token"

// ErrorResponse matches the handlers.ErrorResponse structure
type ErrorResponse struct {
	Error   string `json:"error"`
	TraceID string `json:"trace_id,omitempty"`
}

// newErrorResponse creates an error response with trace ID
func newErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	return ErrorResponse{
		Error:   errorMsg,
		TraceID: GetTraceID(c),
	}
}

// ExtractAccessToken pulls the access token from the cookie or, failing
// that, a Bearer authorization header.
func ExtractAccessToken(c *gin.Context) string {
	if cookie, err := c.Cookie(AccessTokenCookie); err == nil && strings.TrimSpace(cookie) != "" {
		return strings.TrimSpace(cookie)
	}

	header := c.GetHeader("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return strings.TrimSpace(parts[1])
}

// RequireAuth gates a route behind full request authentication: token
// verification, revocation and version checks, and a session activity bump.
func RequireAuth(auth *usecase.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractAccessToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "missing access token"))
			return
		}

		credential, session, err := auth.AuthenticateRequest(c.Request.Context(), token, ClientMetadata(c))
		if err != nil {
			abortWithAuthError(c, err)
			return
		}

		c.Set(CredentialKey, credential)
		c.Set(SessionKey, session)

		if reqCtx := GetRequestContext(c); reqCtx != nil {
			reqCtx.UserID = credential.ID
		}

		c.Next()
	}
}

// OptionalAuth resolves the credential when a valid token is present and
// lets the request through as anonymous otherwise.
func OptionalAuth(auth *usecase.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := ExtractAccessToken(c)

		credential, session, err := auth.OptionalAuthenticate(c.Request.Context(), token, ClientMetadata(c))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusInternalServerError,
				newErrorResponse(c, "authentication failed"))
			return
		}

		if credential != nil {
			c.Set(CredentialKey, credential)
			c.Set(SessionKey, session)
			if reqCtx := GetRequestContext(c); reqCtx != nil {
				reqCtx.UserID = credential.ID
			}
		}

		c.Next()
	}
}

// RequireAdmin rejects authenticated non-admin callers. It must run after
// RequireAuth.
func RequireAdmin() gin.HandlerFunc {
	return func(c *gin.Context) {
		credential := AuthenticatedCredential(c)
		if credential == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized,
				newErrorResponse(c, "authentication required"))
			return
		}
		if credential.Role != domain.RoleAdmin {
			c.AbortWithStatusJSON(http.StatusForbidden,
				newErrorResponse(c, "insufficient permissions"))
			return
		}
		c.Next()
	}
}

func abortWithAuthError(c *gin.Context, err error) {
	var lockedErr *usecase.AccountLockedError

	switch {
	case errors.Is(err, usecase.ErrMissingToken):
		c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "missing access token"))
	case errors.Is(err, usecase.ErrExpiredToken):
		c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "access token expired"))
	case errors.Is(err, usecase.ErrTokenRevoked):
		c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "access token revoked"))
	case errors.Is(err, usecase.ErrStaleToken):
		c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "access token superseded by a password change"))
	case errors.Is(err, usecase.ErrInvalidToken), errors.Is(err, usecase.ErrTokenTypeMismatch):
		c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "invalid access token"))
	case errors.Is(err, usecase.ErrIdentityNotFound):
		c.AbortWithStatusJSON(http.StatusNotFound, newErrorResponse(c, "account no longer exists"))
	case errors.Is(err, usecase.ErrSessionNotFound), errors.Is(err, usecase.ErrSessionTimedOut):
		c.AbortWithStatusJSON(http.StatusUnauthorized, newErrorResponse(c, "session expired, log in again"))
	case errors.Is(err, usecase.ErrAccountBlocked):
		c.AbortWithStatusJSON(http.StatusForbidden, newErrorResponse(c, "account blocked"))
	case errors.As(err, &lockedErr):
		c.AbortWithStatusJSON(http.StatusForbidden, newErrorResponse(c, lockedErr.Error()))
	default:
		c.AbortWithStatusJSON(http.StatusInternalServerError, newErrorResponse(c, "authentication failed"))
	}
}
