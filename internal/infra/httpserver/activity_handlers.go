package httpserver

import (
	"net/http"
	"strconv"

	"activity_tracker/internal/app"
	"activity_tracker/internal/domain/activity"

	"github.com/gin-gonic/gin"
)

type activityHandler struct {
	activities *app.ActivityService
}

type upsertRequest struct {
	AllocationID int64 `json:"allocationId"`
	WeekNumber   int   `json:"weekNumber"`
	activity.Fields
}

func (h *activityHandler) Upsert(c *gin.Context) {
	var req upsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	rec, err := h.activities.Upsert(c.Request.Context(), callerOf(c), req.AllocationID, req.WeekNumber, req.Fields)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Activity tracker saved successfully", "data": rec})
}

func (h *activityHandler) Update(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	var fields activity.Fields
	if err := c.ShouldBindJSON(&fields); err != nil {
		badRequest(c, "invalid request body")
		return
	}
	rec, err := h.activities.Update(c.Request.Context(), callerOf(c), id, fields)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Activity tracker updated successfully", "data": rec})
}

func (h *activityHandler) Get(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	rec, err := h.activities.Get(c.Request.Context(), callerOf(c), id)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": rec})
}

func (h *activityHandler) Delete(c *gin.Context) {
	id, ok := idParam(c)
	if !ok {
		return
	}
	if err := h.activities.Delete(c.Request.Context(), callerOf(c), id); err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Activity tracker deleted successfully"})
}

func (h *activityHandler) List(c *gin.Context) {
	filter, ok := filterFromQuery(c)
	if !ok {
		return
	}
	page, ok := pageFromQuery(c)
	if !ok {
		return
	}
	res, err := h.activities.List(c.Request.Context(), callerOf(c), filter, page)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"data": res.Items,
		"pagination": pagination{
			CurrentPage: res.Page,
			PerPage:     res.Limit,
			TotalItems:  res.Total,
			TotalPages:  res.TotalPages,
		},
	})
}

func (h *activityHandler) Summary(c *gin.Context) {
	filter, ok := filterFromQuery(c)
	if !ok {
		return
	}
	summary, err := h.activities.Summary(c.Request.Context(), callerOf(c), filter)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": summary})
}

func filterFromQuery(c *gin.Context) (activity.Filter, bool) {
	f := activity.Filter{
		Status:   activity.TaskStatus(c.Query("status")),
		Semester: c.Query("semester"),
	}
	if raw := c.Query("facilitatorId"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			badRequest(c, "facilitatorId must be an integer")
			return f, false
		}
		f.FacilitatorID = id
	}
	var ok bool
	if f.WeekNumber, ok = intQuery(c, "weekNumber"); !ok {
		return f, false
	}
	if f.Year, ok = intQuery(c, "year"); !ok {
		return f, false
	}
	return f, true
}
