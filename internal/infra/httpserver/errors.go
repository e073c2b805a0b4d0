package httpserver

import (
	"errors"
	"net/http"
	"strings"

	"activity_tracker/internal/domain/apperr"

	"github.com/gin-gonic/gin"
)

func statusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrAccessDenied):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrDependency):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// publicMessage strips the kind prefix added by apperr, so
// "not found: user not found" is shown as "user not found".
func publicMessage(err error) string {
	msg := err.Error()
	for _, kind := range []error{
		apperr.ErrValidation, apperr.ErrUnauthenticated, apperr.ErrAccessDenied,
		apperr.ErrNotFound, apperr.ErrConflict,
	} {
		if errors.Is(err, kind) {
			return strings.TrimPrefix(msg, kind.Error()+": ")
		}
	}
	return msg
}

func abortWithError(c *gin.Context, err error) {
	status := statusOf(err)
	body := gin.H{"error": publicMessage(err)}
	if status >= http.StatusInternalServerError {
		body["error"] = http.StatusText(status)
		body["details"] = err.Error()
		_ = c.Error(err)
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": msg})
}
