package httpserver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"activity_tracker/internal/app"
	"activity_tracker/internal/domain/course"
	"activity_tracker/internal/domain/notification"
	"activity_tracker/internal/domain/user"
	"activity_tracker/internal/infra/cache"
	"activity_tracker/internal/infra/memory"
	"activity_tracker/internal/infra/queue"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

type nopSender struct{}

func (nopSender) Send(context.Context, notification.Message) error { return nil }

type testServer struct {
	router  *gin.Engine
	auth    *app.AuthService
	users   *memory.UserRepository
	courses *memory.CourseRepository
	healthy error
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	l := logrus.New()
	l.SetOutput(io.Discard)
	logger := logrus.NewEntry(l)

	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	db := memory.Open()
	s := &testServer{
		users:   memory.NewUserRepository(db),
		courses: memory.NewCourseRepository(db),
	}
	broker := queue.NewMemoryBroker()
	emailQueue := queue.New(notification.EmailQueueName, broker, logger)
	reminderQueue := queue.New(notification.ReminderQueueName, broker, logger)

	notifications := app.NewNotificationService(s.users, emailQueue, reminderQueue, cache.NewRedisNotificationStore(rdb), nopSender{}, logger)
	s.auth = app.NewAuthService(s.users, "test-secret", time.Hour, logger)
	s.router = NewRouter(RouterConfig{
		Auth:          s.auth,
		Admin:         app.NewAdminService(s.users, logger),
		Activities:    app.NewActivityService(memory.NewActivityRepository(db), s.courses, notifications, logger),
		Notifications: notifications,
		HealthChecks: map[string]HealthCheck{
			"database": func(context.Context) error { return s.healthy },
		},
		Logger: logger,
	})
	return s
}

func (s *testServer) addUser(t *testing.T, name string, role user.Role) (*user.User, string) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.MinCost)
	require.NoError(t, err)
	u := &user.User{Name: name, Email: name + "@example.com", PasswordHash: string(hash), Role: role, IsActive: true}
	require.NoError(t, s.users.Create(context.Background(), u))
	token, err := s.auth.IssueToken(u)
	require.NoError(t, err)
	return u, token
}

func (s *testServer) addOffering(t *testing.T, facilitatorID int64) *course.Offering {
	t.Helper()
	o := &course.Offering{
		CourseName:    "Algorithms",
		CourseCode:    "CS301",
		FacilitatorID: facilitatorID,
		Semester:      "Spring",
		Year:          2025,
		TotalWeeks:    16,
		IsActive:      true,
	}
	require.NoError(t, s.courses.Create(context.Background(), o))
	return o
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	out := map[string]any{}
	if rec.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	}
	return rec, out
}

func allDone() map[string]any {
	return map[string]any{
		"formativeOneGrading": "Done",
		"formativeTwoGrading": "Done",
		"summativeGrading":    "Done",
		"courseModeration":    "Done",
		"intranetSync":        "Done",
		"gradeBookStatus":     "Done",
	}
}

func TestHealthReportsDegradedDependency(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", body["status"])

	s.healthy = errors.New("connection refused")
	rec, body = s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Equal(t, "DEGRADED", body["status"])
	assert.Equal(t, "down", body["services"].(map[string]any)["database"])
}

func TestRegisterLoginAndProfile(t *testing.T) {
	s := newTestServer(t)

	rec, body := s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Ada", "email": "Ada@Example.com", "password": "pw123456",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	registered := body["user"].(map[string]any)
	assert.Equal(t, "ada@example.com", registered["email"])
	assert.Equal(t, "facilitator", registered["role"])
	assert.NotContains(t, registered, "password")

	rec, _ = s.do(t, http.MethodPost, "/api/auth/register", "", map[string]any{
		"name": "Ada", "email": "ada@example.com", "password": "pw123456",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": "ada@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body = s.do(t, http.MethodPost, "/api/auth/login", "", map[string]any{"email": "ada@example.com", "password": "pw123456"})
	require.Equal(t, http.StatusOK, rec.Code)
	token := body["token"].(string)

	rec, body = s.do(t, http.MethodGet, "/api/auth/profile", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "Ada", body["user"].(map[string]any)["name"])
}

func TestProtectedRoutesRequireToken(t *testing.T) {
	s := newTestServer(t)

	rec, _ := s.do(t, http.MethodGet, "/api/activities", "", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec, body := s.do(t, http.MethodGet, "/api/activities", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "invalid token", body["error"])
}

func TestRoleChecks(t *testing.T) {
	s := newTestServer(t)
	_, facilitator := s.addUser(t, "fay", user.RoleFacilitator)
	_, manager := s.addUser(t, "max", user.RoleManager)
	_, admin := s.addUser(t, "ann", user.RoleAdmin)

	rec, _ := s.do(t, http.MethodGet, "/api/auth/users", facilitator, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := s.do(t, http.MethodGet, "/api/auth/users", manager, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["users"], 3)

	rec, _ = s.do(t, http.MethodGet, "/api/notifications/queue-stats", manager, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body = s.do(t, http.MethodGet, "/api/notifications/queue-stats", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body["queueStats"], "emailQueue")
}

func TestAdminDeactivationRevokesAccess(t *testing.T) {
	s := newTestServer(t)
	fay, facilitator := s.addUser(t, "fay", user.RoleFacilitator)
	_, admin := s.addUser(t, "ann", user.RoleAdmin)

	rec, _ := s.do(t, http.MethodPut, "/api/auth/users/"+strconv.FormatInt(fay.ID, 10), admin, map[string]any{"isActive": false})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec, body := s.do(t, http.MethodGet, "/api/auth/profile", facilitator, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "user not found or inactive", body["error"])
}

func TestActivityLifecycle(t *testing.T) {
	s := newTestServer(t)
	fay, facilitator := s.addUser(t, "fay", user.RoleFacilitator)
	bob, _ := s.addUser(t, "bob", user.RoleFacilitator)
	_, admin := s.addUser(t, "ann", user.RoleAdmin)
	s.addUser(t, "max", user.RoleManager)
	own := s.addOffering(t, fay.ID)
	foreign := s.addOffering(t, bob.ID)

	req := allDone()
	req["allocationId"] = own.ID
	req["weekNumber"] = 3
	req["attendance"] = []bool{true, false}
	rec, body := s.do(t, http.MethodPost, "/api/activities", facilitator, req)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	created := body["data"].(map[string]any)
	assert.Equal(t, float64(fay.ID), created["facilitatorId"])
	id := int64(created["id"].(float64))

	rec, body = s.do(t, http.MethodGet, "/api/notifications/queue-stats", admin, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	email := body["queueStats"].(map[string]any)["emailQueue"].(map[string]any)
	assert.Equal(t, float64(1), email["waiting"])

	rec, _ = s.do(t, http.MethodPost, "/api/activities", facilitator, map[string]any{
		"allocationId": foreign.ID, "weekNumber": 3,
	})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/activities", facilitator, map[string]any{
		"allocationId": own.ID, "weekNumber": 17,
	})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, body = s.do(t, http.MethodPut, "/api/activities/"+strconv.FormatInt(id, 10), facilitator, map[string]any{"notes": "late"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "late", body["data"].(map[string]any)["notes"])
	assert.Equal(t, "Done", body["data"].(map[string]any)["gradeBookStatus"])

	rec, body = s.do(t, http.MethodGet, "/api/activities/summary", facilitator, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	summary := body["data"].(map[string]any)
	assert.Equal(t, float64(1), summary["completedActivities"])
	assert.Len(t, summary["weeklyProgress"], 16)

	rec, _ = s.do(t, http.MethodDelete, "/api/activities/"+strconv.FormatInt(id, 10), facilitator, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(t, http.MethodGet, "/api/activities/"+strconv.FormatInt(id, 10), facilitator, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestActivityListPagination(t *testing.T) {
	s := newTestServer(t)
	fay, facilitator := s.addUser(t, "fay", user.RoleFacilitator)
	o := s.addOffering(t, fay.ID)
	for week := 1; week <= 3; week++ {
		rec, _ := s.do(t, http.MethodPost, "/api/activities", facilitator, map[string]any{"allocationId": o.ID, "weekNumber": week})
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec, body := s.do(t, http.MethodGet, "/api/activities?page=2&limit=2", facilitator, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, body["data"], 1)
	assert.Equal(t, map[string]any{
		"current_page": float64(2),
		"per_page":     float64(2),
		"total_items":  float64(3),
		"total_pages":  float64(2),
	}, body["pagination"])

	rec, _ = s.do(t, http.MethodGet, "/api/activities?status=Finished", facilitator, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodGet, "/api/activities?weekNumber=abc", facilitator, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestInstantNotificationFlow(t *testing.T) {
	s := newTestServer(t)
	fay, facilitator := s.addUser(t, "fay", user.RoleFacilitator)
	_, manager := s.addUser(t, "max", user.RoleManager)

	rec, _ := s.do(t, http.MethodPost, "/api/notifications/send", facilitator, map[string]any{"type": "alert", "data": map[string]any{}})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, body := s.do(t, http.MethodPost, "/api/notifications/send", manager, map[string]any{
		"type": "alert",
		"data": map[string]any{"userId": fay.ID, "message": "grade week 3"},
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	id := body["notification"].(map[string]any)["id"].(string)

	rec, body = s.do(t, http.MethodGet, "/api/notifications?type=alert", facilitator, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, float64(1), body["count"])

	rec, _ = s.do(t, http.MethodPost, "/api/notifications/mark-read", facilitator, map[string]any{"notificationIds": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(t, http.MethodPost, "/api/notifications/mark-read", facilitator, map[string]any{"notificationIds": []string{id}})
	require.Equal(t, http.StatusOK, rec.Code)

	_, body = s.do(t, http.MethodGet, "/api/notifications", facilitator, nil)
	assert.Equal(t, float64(0), body["count"])
}

func TestScheduleRemindersEndpoint(t *testing.T) {
	s := newTestServer(t)
	s.addUser(t, "fay", user.RoleFacilitator)
	_, manager := s.addUser(t, "max", user.RoleManager)

	rec, body := s.do(t, http.MethodPost, "/api/notifications/schedule-reminders", manager, map[string]any{
		"weekNumber": 4,
		"deadline":   time.Now().Add(72 * time.Hour).Format(time.RFC3339),
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, float64(2), body["scheduled"])

	rec, _ = s.do(t, http.MethodPost, "/api/notifications/schedule-reminders", manager, map[string]any{"weekNumber": 4})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUnknownRoute(t *testing.T) {
	s := newTestServer(t)
	rec, body := s.do(t, http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "Route not found", body["error"])
}
