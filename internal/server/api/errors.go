package api

import (
	"errors"
	"net/http"

	"github.com/dmitrijs2005/captainslog/internal/common"
	"github.com/dmitrijs2005/captainslog/internal/server/services"
	"github.com/gin-gonic/gin"
)

// writeError maps a service error onto a status code. Internal details of
// unexpected errors are logged, not returned.
func writeError(c *gin.Context, err error) {
	status, msg := statusOf(err)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.JSON(status, gin.H{"error": msg})
}

func statusOf(err error) (int, string) {
	switch {
	case errors.Is(err, common.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrDuplicateKey):
		return http.StatusConflict, err.Error()
	case errors.Is(err, common.ErrNotFound):
		return http.StatusNotFound, "Not found"
	case errors.Is(err, common.ErrInvalidCredentials):
		return http.StatusUnauthorized, "Invalid credentials"
	case errors.Is(err, common.ErrInvalidToken), errors.Is(err, common.ErrTokenExpired):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, common.ErrUnauthorized):
		return http.StatusUnauthorized, "Authentication required"
	case errors.Is(err, services.ErrNotSupported):
		return http.StatusNotImplemented, err.Error()
	case errors.Is(err, common.ErrStorageFailure):
		return http.StatusBadGateway, "Storage unavailable"
	default:
		return http.StatusInternalServerError, "Internal server error"
	}
}

// writeAuthError reports a failed bearer authentication. Token problems are
// 401 here, unlike on the password reset routes.
func writeAuthError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, common.ErrInvalidToken),
		errors.Is(err, common.ErrTokenExpired),
		errors.Is(err, common.ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Authentication required"})
	default:
		writeError(c, err)
	}
}
