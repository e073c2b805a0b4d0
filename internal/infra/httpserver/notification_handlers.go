package httpserver

import (
	"net/http"
	"time"

	"activity_tracker/internal/app"

	"github.com/gin-gonic/gin"
)

type notificationHandler struct {
	notifications *app.NotificationService
}

func (h *notificationHandler) List(c *gin.Context) {
	items, err := h.notifications.ListInstant(c.Request.Context(), currentUser(c).ID, c.Query("type"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items, "count": len(items)})
}

func (h *notificationHandler) MarkRead(c *gin.Context) {
	var req struct {
		NotificationIDs []string `json:"notificationIds"`
	}
	if err := c.ShouldBindJSON(&req); err != nil || req.NotificationIDs == nil {
		badRequest(c, "notificationIds must be an array")
		return
	}
	if err := h.notifications.MarkRead(c.Request.Context(), currentUser(c).ID, req.NotificationIDs); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notifications marked as read successfully"})
}

func (h *notificationHandler) Send(c *gin.Context) {
	var req struct {
		Type string         `json:"type"`
		Data map[string]any `json:"data"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	n, err := h.notifications.SendInstant(c.Request.Context(), req.Type, req.Data)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification sent successfully", "notification": n})
}

func (h *notificationHandler) ScheduleReminders(c *gin.Context) {
	var req struct {
		WeekNumber int       `json:"weekNumber"`
		Deadline   time.Time `json:"deadline"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "weekNumber and deadline are required")
		return
	}
	n, err := h.notifications.ScheduleReminders(c.Request.Context(), req.WeekNumber, req.Deadline)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Deadline reminders scheduled successfully", "scheduled": n})
}

func (h *notificationHandler) QueueStats(c *gin.Context) {
	stats, err := h.notifications.Stats(c.Request.Context())
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"queueStats": stats})
}
