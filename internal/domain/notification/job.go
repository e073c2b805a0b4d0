// internal/domain/notification/job.go
package notification

import (
	"encoding/json"
	"time"

	"activity_tracker/internal/domain/activity"
	"activity_tracker/internal/domain/course"
	"activity_tracker/internal/domain/user"
)

// Job is one unit of work on a queue.
type Job struct {
	ID           string          `json:"id"`
	Queue        string          `json:"queue"`
	Name         JobName         `json:"name"`
	Data         json.RawMessage `json:"data"`
	Opts         JobOptions      `json:"opts"`
	State        JobState        `json:"state"`
	AttemptsMade int             `json:"attemptsMade"`
	FailedReason string          `json:"failedReason,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	ProcessAt    time.Time       `json:"processAt"` // Earliest time of the next attempt
	FinishedAt   time.Time       `json:"finishedAt,omitempty"`
}

// Counts is a snapshot of the jobs of one queue per state.
type Counts struct {
	Waiting   int64 `json:"waiting"`
	Active    int64 `json:"active"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Delayed   int64 `json:"delayed"`
}

// Stats is the snapshot of both tracker queues.
type Stats struct {
	EmailQueue    Counts `json:"emailQueue"`
	ReminderQueue Counts `json:"reminderQueue"`
}

// CompletionPayload is the data of a completion-notification job.
type CompletionPayload struct {
	ActivityTracker *activity.Record `json:"activityTracker"`
	CourseOffering  *course.Offering `json:"courseOffering"`
	Facilitator     *user.Recipient  `json:"facilitator,omitempty"`
	Managers        []user.Recipient `json:"managers"`
}

// ReminderPayload is the data of a deadline-reminder job.
type ReminderPayload struct {
	Facilitators []user.Recipient `json:"facilitators"`
	WeekNumber   int              `json:"weekNumber"`
	Deadline     time.Time        `json:"deadline"`
}
