package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pinilDissanayaka/Sharing-Backend/internal/transport/http/middleware"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/usecase"
)

// SessionHandler exposes the device session overview.
type SessionHandler struct {
	auth *usecase.AuthService
}

// NewSessionHandler constructs SessionHandler.
func NewSessionHandler(auth *usecase.AuthService) *SessionHandler {
	return &SessionHandler{auth: auth}
}

// RegisterRoutes binds the session routes behind authentication.
func (h *SessionHandler) RegisterRoutes(r *gin.RouterGroup) {
	r.GET("", middleware.RequireAuth(h.auth), h.list)
}

func (h *SessionHandler) list(c *gin.Context) {
	credential := middleware.AuthenticatedCredential(c)
	if credential == nil {
		c.JSON(http.StatusUnauthorized, NewErrorResponse(c, "authentication required"))
		return
	}

	currentID := ""
	if session := middleware.AuthenticatedSession(c); session != nil {
		currentID = session.ID
	}

	sessions, err := h.auth.ListSessions(c.Request.Context(), credential.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, NewErrorResponse(c, "list sessions failed"))
		return
	}

	summaries := make([]SessionSummary, 0, len(sessions))
	for _, session := range sessions {
		summaries = append(summaries, NewSessionSummary(session, currentID))
	}

	c.JSON(http.StatusOK, SessionListResponse{Sessions: summaries})
}
