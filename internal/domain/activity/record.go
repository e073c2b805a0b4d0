package activity

import (
	"time"

	"activity_tracker/internal/domain/apperr"
	"activity_tracker/internal/domain/course"
)

const (
	MinWeek = 1
	MaxWeek = 16
)

// TaskStatus is the progress of one grading or administrative task.
type TaskStatus string

const (
	StatusNotStarted TaskStatus = "Not Started"
	StatusPending    TaskStatus = "Pending"
	StatusDone       TaskStatus = "Done"
)

func (s TaskStatus) Valid() bool {
	switch s {
	case StatusNotStarted, StatusPending, StatusDone:
		return true
	}
	return false
}

// Record is the weekly activity log of one course offering.
// (AllocationID, WeekNumber) is unique.
type Record struct {
	ID                  int64            `json:"id"`
	AllocationID        int64            `json:"allocationId"`
	FacilitatorID       int64            `json:"facilitatorId"`
	WeekNumber          int              `json:"weekNumber"`
	Attendance          []bool           `json:"attendance"`
	FormativeOneGrading TaskStatus       `json:"formativeOneGrading"`
	FormativeTwoGrading TaskStatus       `json:"formativeTwoGrading"`
	SummativeGrading    TaskStatus       `json:"summativeGrading"`
	CourseModeration    TaskStatus       `json:"courseModeration"`
	IntranetSync        TaskStatus       `json:"intranetSync"`
	GradeBookStatus     TaskStatus       `json:"gradeBookStatus"`
	SubmissionDate      *time.Time       `json:"submissionDate"`
	LastUpdated         *time.Time       `json:"lastUpdated"`
	Notes               *string          `json:"notes"`
	CreatedAt           time.Time        `json:"createdAt"`
	UpdatedAt           time.Time        `json:"updatedAt"`
	CourseOffering      *course.Offering `json:"courseOffering,omitempty"`
}

// NewRecord returns a record for the key with every task Not Started.
func NewRecord(allocationID int64, week int) *Record {
	return &Record{
		AllocationID:        allocationID,
		WeekNumber:          week,
		Attendance:          []bool{},
		FormativeOneGrading: StatusNotStarted,
		FormativeTwoGrading: StatusNotStarted,
		SummativeGrading:    StatusNotStarted,
		CourseModeration:    StatusNotStarted,
		IntranetSync:        StatusNotStarted,
		GradeBookStatus:     StatusNotStarted,
	}
}

// Tasks lists the six task statuses in column order.
func (r *Record) Tasks() [6]TaskStatus {
	return [6]TaskStatus{
		r.FormativeOneGrading,
		r.FormativeTwoGrading,
		r.SummativeGrading,
		r.CourseModeration,
		r.IntranetSync,
		r.GradeBookStatus,
	}
}

// Fields is a partial update. Nil members keep the stored value.
type Fields struct {
	Attendance          []bool      `json:"attendance"`
	FormativeOneGrading *TaskStatus `json:"formativeOneGrading"`
	FormativeTwoGrading *TaskStatus `json:"formativeTwoGrading"`
	SummativeGrading    *TaskStatus `json:"summativeGrading"`
	CourseModeration    *TaskStatus `json:"courseModeration"`
	IntranetSync        *TaskStatus `json:"intranetSync"`
	GradeBookStatus     *TaskStatus `json:"gradeBookStatus"`
	SubmissionDate      *time.Time  `json:"submissionDate"`
	Notes               *string     `json:"notes"`
}

func (f Fields) statuses() map[string]*TaskStatus {
	return map[string]*TaskStatus{
		"formativeOneGrading": f.FormativeOneGrading,
		"formativeTwoGrading": f.FormativeTwoGrading,
		"summativeGrading":    f.SummativeGrading,
		"courseModeration":    f.CourseModeration,
		"intranetSync":        f.IntranetSync,
		"gradeBookStatus":     f.GradeBookStatus,
	}
}

// Validate rejects unknown task statuses.
func (f Fields) Validate() error {
	for name, s := range f.statuses() {
		if s != nil && !s.Valid() {
			return apperr.Validation("%s must be one of Done, Pending, Not Started", name)
		}
	}
	return nil
}

// Apply merges f over r.
func (f Fields) Apply(r *Record) {
	if f.Attendance != nil {
		r.Attendance = append([]bool{}, f.Attendance...)
	}
	setStatus(&r.FormativeOneGrading, f.FormativeOneGrading)
	setStatus(&r.FormativeTwoGrading, f.FormativeTwoGrading)
	setStatus(&r.SummativeGrading, f.SummativeGrading)
	setStatus(&r.CourseModeration, f.CourseModeration)
	setStatus(&r.IntranetSync, f.IntranetSync)
	setStatus(&r.GradeBookStatus, f.GradeBookStatus)
	if f.SubmissionDate != nil {
		t := *f.SubmissionDate
		r.SubmissionDate = &t
	}
	if f.Notes != nil {
		n := *f.Notes
		r.Notes = &n
	}
}

func setStatus(dst *TaskStatus, src *TaskStatus) {
	if src != nil {
		*dst = *src
	}
}

// ValidateWeek checks the 1..16 bound of a week number.
func ValidateWeek(week int) error {
	if week < MinWeek || week > MaxWeek {
		return apperr.Validation("weekNumber must be between %d and %d", MinWeek, MaxWeek)
	}
	return nil
}
