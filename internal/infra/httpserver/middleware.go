package httpserver

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"activity_tracker/internal/app"
	"activity_tracker/internal/domain/user"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

const (
	currentUserKey = "currentUser"
	requestIDKey   = "requestID"
)

func requestLogger(logger *logrus.Entry) gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader("X-Request-ID")
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set(requestIDKey, requestID)
		c.Header("X-Request-ID", requestID)

		start := time.Now()
		c.Next()

		entry := logger.WithFields(logrus.Fields{
			"request_id": requestID,
			"method":     c.Request.Method,
			"path":       c.FullPath(),
			"status":     c.Writer.Status(),
			"latency":    time.Since(start).String(),
		})
		switch {
		case c.Writer.Status() >= http.StatusInternalServerError:
			entry.Error("Request failed")
		case c.Writer.Status() >= http.StatusBadRequest:
			entry.Warn("Request rejected")
		default:
			entry.Info("Request handled")
		}
	}
}

// authenticate resolves the Bearer token to an active user.
func authenticate(auth *app.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		if len(header) <= len("Bearer ") || !strings.EqualFold(header[:len("Bearer ")], "Bearer ") {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Access denied. No token provided or invalid format."})
			return
		}
		u, err := auth.Authenticate(c.Request.Context(), header[len("Bearer "):])
		if err != nil {
			abortWithError(c, err)
			return
		}
		c.Set(currentUserKey, u)
		c.Next()
	}
}

func authorize(roles ...user.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		u := currentUser(c)
		if u == nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Access denied. Authentication required."})
			return
		}
		if !slices.Contains(roles, u.Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "Access denied. Insufficient permissions."})
			return
		}
		c.Next()
	}
}

func currentUser(c *gin.Context) *user.User {
	v, ok := c.Get(currentUserKey)
	if !ok {
		return nil
	}
	u, _ := v.(*user.User)
	return u
}

func callerOf(c *gin.Context) user.Caller {
	u := currentUser(c)
	return user.Caller{ID: u.ID, Role: u.Role}
}
