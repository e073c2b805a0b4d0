// Package httpserver exposes the tracker over a JSON HTTP API.
package httpserver

import (
	"context"
	"net/http"
	"time"

	"activity_tracker/internal/app"
	"activity_tracker/internal/domain/user"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// HealthCheck pings one backing service.
type HealthCheck func(ctx context.Context) error

type RouterConfig struct {
	Auth          *app.AuthService
	Admin         *app.AdminService
	Activities    *app.ActivityService
	Notifications *app.NotificationService
	HealthChecks  map[string]HealthCheck
	CORSOrigins   []string
	Logger        *logrus.Entry
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), requestLogger(cfg.Logger))

	corsCfg := cors.Config{
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Authorization", "Content-Type", "X-Requested-With"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(cfg.CORSOrigins) == 0 {
		corsCfg.AllowAllOrigins = true
		corsCfg.AllowCredentials = false
	} else {
		corsCfg.AllowOrigins = cfg.CORSOrigins
	}
	router.Use(cors.New(corsCfg))

	auth := &authHandler{auth: cfg.Auth, admin: cfg.Admin}
	activities := &activityHandler{activities: cfg.Activities}
	notifications := &notificationHandler{notifications: cfg.Notifications}
	requireAuth := authenticate(cfg.Auth)

	router.GET("/health", healthHandler(cfg.HealthChecks))

	api := router.Group("/api")

	// Auth
	api.POST("/auth/register", auth.Register)
	api.POST("/auth/login", auth.Login)
	authGroup := api.Group("/auth", requireAuth)
	authGroup.GET("/profile", auth.Profile)
	authGroup.PUT("/profile", auth.UpdateProfile)
	authGroup.PUT("/change-password", auth.ChangePassword)
	authGroup.GET("/users", authorize(user.RoleManager, user.RoleAdmin), auth.ListUsers)
	authGroup.PUT("/users/:id", authorize(user.RoleAdmin), auth.UpdateUser)

	// Activities
	act := api.Group("/activities", requireAuth, authorize(user.RoleFacilitator, user.RoleManager, user.RoleAdmin))
	act.POST("", activities.Upsert)
	act.GET("", activities.List)
	act.GET("/summary", activities.Summary)
	act.GET("/:id", activities.Get)
	act.PUT("/:id", activities.Update)
	act.DELETE("/:id", activities.Delete)

	// Notifications
	notif := api.Group("/notifications", requireAuth)
	notif.GET("", notifications.List)
	notif.POST("/mark-read", notifications.MarkRead)
	notif.POST("/send", authorize(user.RoleManager, user.RoleAdmin), notifications.Send)
	notif.POST("/schedule-reminders", authorize(user.RoleManager, user.RoleAdmin), notifications.ScheduleReminders)
	notif.GET("/queue-stats", authorize(user.RoleAdmin), notifications.QueueStats)

	router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})
	return router
}

func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		services := gin.H{}
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				services[name] = "down"
				continue
			}
			services[name] = "up"
		}
		state := "OK"
		if status != http.StatusOK {
			state = "DEGRADED"
		}
		c.JSON(status, gin.H{
			"status":    state,
			"services":  services,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	}
}
