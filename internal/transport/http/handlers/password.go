package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pinilDissanayaka/Sharing-Backend/internal/transport/http/middleware"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/usecase"
)

// PasswordHandler exposes the password change endpoint.
type PasswordHandler struct {
	auth *usecase.AuthService
}

// NewPasswordHandler constructs PasswordHandler.
func NewPasswordHandler(auth *usecase.AuthService) *PasswordHandler {
	return &PasswordHandler{auth: auth}
}

// RegisterRoutes binds the password routes behind authentication.
func (h *PasswordHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.POST("/change", middleware.RequireAuth(h.auth), h.change)
}

func (h *PasswordHandler) change(c *gin.Context) {
	credential := middleware.AuthenticatedCredential(c)
	if credential == nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, NewErrorResponse(c, "invalid password change payload"))
		return
	}

	err := h.auth.ChangePassword(c.Request.Context(), credential.ID,
		req.CurrentPassword, req.NewPassword, req.ConfirmPassword)
	if err != nil {
		RespondWithMappedError(c, err, []ErrorCase{
			{Err: usecase.ErrPasswordMismatch, Status: http.StatusBadRequest, Message: "password confirmation does not match"},
			{Err: usecase.ErrInvalidCredentials, Status: http.StatusUnauthorized, Message: "current password is incorrect"},
		}, http.StatusInternalServerError, "password change failed")
		return
	}

	// Every session, this one included, is now closed.
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(accessTokenCookie, "", -1, "/", "", false, true)
	c.SetCookie(refreshTokenCookie, "", -1, refreshCookiePath, "", false, true)

	c.JSON(http.StatusOK, MessageResponse{Message: "password changed, log in again"})
}
