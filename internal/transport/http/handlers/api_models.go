package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/pinilDissanayaka/Sharing-Backend/internal/core/domain"
)

// ErrorResponse represents a generic error payload with trace ID for debugging.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
	TraceID string   `json:"trace_id,omitempty"`
}

// NewErrorResponse creates an error response with trace ID from context
func NewErrorResponse(c *gin.Context, errorMsg string) ErrorResponse {
	traceID, _ := c.Get("trace_id")
	traceIDStr, _ := traceID.(string)

	return ErrorResponse{
		Error:   errorMsg,
		TraceID: traceIDStr,
	}
}

// MessageResponse represents a simple message payload.
type MessageResponse struct {
	Message string `json:"message"`
}

// CredentialSummary is the public view of an account. The password hash is
// stripped at the usecase layer and never reaches this type.
type CredentialSummary struct {
	ID        string      `json:"id"`
	FirstName string      `json:"first_name"`
	LastName  string      `json:"last_name"`
	Email     string      `json:"email"`
	Phone     *string     `json:"phone,omitempty"`
	Role      domain.Role `json:"role"`
	CreatedAt time.Time   `json:"created_at"`
	LastLogin *time.Time  `json:"last_login,omitempty"`
}

// NewCredentialSummary maps a sanitized credential into its API shape.
func NewCredentialSummary(credential domain.Credential) CredentialSummary {
	return CredentialSummary{
		ID:        credential.ID,
		FirstName: credential.FirstName,
		LastName:  credential.LastName,
		Email:     credential.Email,
		Phone:     credential.Phone,
		Role:      credential.Role,
		CreatedAt: credential.CreatedAt,
		LastLogin: credential.LastLogin,
	}
}

// SessionSummary provides a compact view of a device session.
type SessionSummary struct {
	ID           string    `json:"id"`
	IPAddress    *string   `json:"ip_address,omitempty"`
	UserAgent    *string   `json:"user_agent,omitempty"`
	DeviceInfo   *string   `json:"device_info,omitempty"`
	LastActivity time.Time `json:"last_activity"`
	ExpiresAt    time.Time `json:"expires_at"`
	CreatedAt    time.Time `json:"created_at"`
	Current      bool      `json:"current"`
}

// NewSessionSummary maps a session into its API shape.
func NewSessionSummary(session domain.Session, currentID string) SessionSummary {
	return SessionSummary{
		ID:           session.ID,
		IPAddress:    session.IPAddress,
		UserAgent:    session.UserAgent,
		DeviceInfo:   session.DeviceInfo,
		LastActivity: session.LastActivity,
		ExpiresAt:    session.ExpiresAt,
		CreatedAt:    session.CreatedAt,
		Current:      session.ID == currentID,
	}
}

// TokenPairResponse carries both issued tokens with their expiries.
type TokenPairResponse struct {
	AccessToken      string    `json:"access_token"`
	AccessExpiresAt  time.Time `json:"access_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

// AuthResponse is returned by signup, login, and refresh.
type AuthResponse struct {
	User   CredentialSummary `json:"user"`
	Tokens TokenPairResponse `json:"tokens"`
}

// SignupRequest defines the payload for the signup endpoint.
type SignupRequest struct {
	FirstName string `json:"first_name" binding:"required"`
	LastName  string `json:"last_name" binding:"required"`
	Email     string `json:"email" binding:"required"`
	Phone     string `json:"phone"`
	Password  string `json:"password" binding:"required"`
}

// LoginRequest defines the payload for the login endpoints.
type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// RefreshRequest defines the payload for the refresh endpoint. The token may
// also arrive via the refresh cookie, in which case the body is optional.
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

// ChangePasswordRequest defines the payload for the password change endpoint.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" binding:"required"`
	NewPassword     string `json:"new_password" binding:"required"`
	ConfirmPassword string `json:"confirm_password" binding:"required"`
}

// LogoutAllResponse reports how many sessions were closed.
type LogoutAllResponse struct {
	Message        string `json:"message"`
	SessionsClosed int    `json:"sessions_closed"`
}

// SessionListResponse wraps the device session list.
type SessionListResponse struct {
	Sessions []SessionSummary `json:"sessions"`
}

// HealthResponse reports liveness state.
type HealthResponse struct {
	Status    string    `json:"status"`
	StartedAt time.Time `json:"started_at"`
}

// ReadinessResponse reports per-dependency readiness.
type ReadinessResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks"`
}
