package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/pinilDissanayaka/Sharing-Backend/internal/infra/security"
	"github.com/pinilDissanayaka/Sharing-Backend/internal/usecase"
)

// ErrorCase maps a sentinel error to an HTTP status code and response message.
type ErrorCase struct {
	Err     error
	Status  int
	Message string
}

// RespondWithMappedError resolves the provided error against known cases or
// falls back to a generic response. Lockout and password-policy errors carry
// structured detail and are handled ahead of the sentinel cases.
func RespondWithMappedError(c *gin.Context, err error, cases []ErrorCase, fallbackStatus int, fallbackMessage string) {
	if err == nil {
		c.Status(http.StatusOK)
		return
	}

	var lockedErr *usecase.AccountLockedError
	if errors.As(err, &lockedErr) {
		c.JSON(http.StatusForbidden, NewErrorResponse(c, lockedErr.Error()))
		return
	}

	var violations *security.PasswordViolations
	if errors.As(err, &violations) {
		response := NewErrorResponse(c, "password does not meet requirements")
		response.Details = violations.Messages()
		c.JSON(http.StatusBadRequest, response)
		return
	}

	for _, cs := range cases {
		if cs.Err == nil {
			continue
		}
		if errors.Is(err, cs.Err) {
			c.JSON(cs.Status, NewErrorResponse(c, cs.Message))
			return
		}
	}

	c.JSON(fallbackStatus, NewErrorResponse(c, fallbackMessage))
}
