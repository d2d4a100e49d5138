package http

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/keygate/keygate/internal/auth"
)

// Every response uses the same envelope so clients can switch on `success`
// before looking at payloads.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func respondOK(c *gin.Context, status int, message string, data any) {
	c.JSON(status, envelope{Success: true, Message: message, Data: data})
}

func respondErr(c *gin.Context, status int, message string) {
	c.AbortWithStatusJSON(status, envelope{Success: false, Message: message})
}

// respondEngineErr maps the engine taxonomy onto HTTP statuses. Anything
// unrecognized is treated as an internal failure and kept opaque.
func respondEngineErr(c *gin.Context, err error) {
	switch {
	case errors.Is(err, auth.ErrValidation):
		respondErr(c, http.StatusBadRequest, err.Error())
	case errors.Is(err, auth.ErrEmailTaken):
		respondErr(c, http.StatusConflict, "user with this email already exists")
	case errors.Is(err, auth.ErrInvalidCredentials):
		respondErr(c, http.StatusUnauthorized, "invalid credentials")
	case errors.Is(err, auth.ErrUserNotFound):
		respondErr(c, http.StatusUnauthorized, "user not found")
	case errors.Is(err, auth.ErrTokenInvalid):
		respondErr(c, http.StatusForbidden, "invalid or expired token")
	case errors.Is(err, auth.ErrInvalidTokenType):
		respondErr(c, http.StatusForbidden, "invalid token type")
	case errors.Is(err, auth.ErrRefreshTokenInvalid):
		respondErr(c, http.StatusForbidden, "invalid refresh token")
	default:
		respondErr(c, http.StatusInternalServerError, "internal server error")
	}
}
