package httpserver

import (
	"net/http"
	"strconv"

	"activity_tracker/internal/app"
	"activity_tracker/internal/domain/activity"
	"activity_tracker/internal/domain/user"

	"github.com/gin-gonic/gin"
)

type authHandler struct {
	auth  *app.AuthService
	admin *app.AdminService
}

func (h *authHandler) Register(c *gin.Context) {
	var req struct {
		Name     string    `json:"name"`
		Email    string    `json:"email"`
		Password string    `json:"password"`
		Role     user.Role `json:"role"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	u, err := h.auth.Register(c.Request.Context(), req.Name, req.Email, req.Password, req.Role)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "User registered successfully", "user": viewOf(u)})
}

func (h *authHandler) Login(c *gin.Context) {
	var req struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	token, u, err := h.auth.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Login successful", "token": token, "user": viewOf(u)})
}

func (h *authHandler) Profile(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"user": viewOf(currentUser(c))})
}

func (h *authHandler) UpdateProfile(c *gin.Context) {
	var req struct {
		Name  string `json:"name"`
		Email string `json:"email"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	u, err := h.auth.UpdateProfile(c.Request.Context(), currentUser(c).ID, req.Name, req.Email)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": viewOf(u)})
}

func (h *authHandler) ChangePassword(c *gin.Context) {
	var req struct {
		CurrentPassword string `json:"currentPassword"`
		NewPassword     string `json:"newPassword"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	if err := h.auth.ChangePassword(c.Request.Context(), currentUser(c).ID, req.CurrentPassword, req.NewPassword); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

func (h *authHandler) ListUsers(c *gin.Context) {
	page, ok := pageFromQuery(c)
	if !ok {
		return
	}
	filter := app.UserFilter{Role: user.Role(c.Query("role"))}
	if v, present := c.GetQuery("isActive"); present {
		active := v == "true"
		filter.IsActive = &active
	}

	list, err := h.admin.ListUsers(c.Request.Context(), callerOf(c), filter, page)
	if err != nil {
		abortWithError(c, err)
		return
	}
	users := make([]userView, 0, len(list.Items))
	for _, u := range list.Items {
		users = append(users, viewOf(u))
	}
	c.JSON(http.StatusOK, gin.H{
		"users": users,
		"pagination": pagination{
			CurrentPage: list.Page,
			PerPage:     list.Limit,
			TotalItems:  list.Total,
			TotalPages:  list.TotalPages,
		},
	})
}

func (h *authHandler) UpdateUser(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var req struct {
		Role       *user.Role `json:"role"`
		IsActive   *bool      `json:"isActive"`
		TelegramID *int64     `json:"telegramId"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	u, err := h.admin.UpdateUser(c.Request.Context(), callerOf(c), id, app.UserChanges{
		Role:       req.Role,
		IsActive:   req.IsActive,
		TelegramID: req.TelegramID,
	})
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User updated successfully", "user": viewOf(u)})
}

func idParam(c *gin.Context) (int64, bool) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		badRequest(c, "id must be a positive integer")
		return 0, false
	}
	return id, true
}

func intQuery(c *gin.Context, name string) (int, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		badRequest(c, name+" must be an integer")
		return 0, false
	}
	return v, true
}

func pageFromQuery(c *gin.Context) (activity.Page, bool) {
	p, ok := intQuery(c, "page")
	if !ok {
		return activity.Page{}, false
	}
	l, ok := intQuery(c, "limit")
	if !ok {
		return activity.Page{}, false
	}
	return activity.Page{Page: p, Limit: l}.Normalize(), true
}
