package course

import (
	"context"
	"time"
)

// Offering is one scheduled instance of a course assigned to a facilitator.
// Activity records refer to it as their allocation.
type Offering struct {
	ID            int64     `json:"id"`
	CourseName    string    `json:"courseName"`
	CourseCode    string    `json:"courseCode"`
	FacilitatorID int64     `json:"facilitatorId"`
	Semester      string    `json:"semester"`
	Year          int       `json:"year"`
	TotalWeeks    int       `json:"totalWeeks"`
	StartDate     time.Time `json:"startDate"`
	EndDate       time.Time `json:"endDate"`
	IsActive      bool      `json:"isActive"`
}

// Repository is the read side of course offerings needed by the tracker.
type Repository interface {
	GetByID(ctx context.Context, id int64) (*Offering, error)
}
