// internal/domain/notification/shared_types.go
package notification

import "time"

// Queue names. Each kind of job gets its own queue.
const (
	EmailQueueName    = "email notifications"
	ReminderQueueName = "activity reminders"
)

// JobName identifies the handler a job is dispatched to.
type JobName string

const (
	JobCompletionNotification JobName = "completion-notification"
	JobDeadlineReminder       JobName = "deadline-reminder"
)

// JobState is the lifecycle position of a queued job.
type JobState string

const (
	StateDelayed   JobState = "delayed"
	StateWaiting   JobState = "waiting"
	StateActive    JobState = "active"
	StateCompleted JobState = "completed"
	StateFailed    JobState = "failed"
)

// BackoffType selects how the retry delay grows between attempts.
type BackoffType string

const (
	BackoffFixed       BackoffType = "fixed"
	BackoffExponential BackoffType = "exponential"
)

// Backoff is the retry delay policy of a job.
type Backoff struct {
	Type  BackoffType   `json:"type"`
	Delay time.Duration `json:"delay"`
}

// After returns the wait before the next attempt once attemptsMade attempts
// have failed. Exponential backoff doubles from Delay: 1x, 2x, 4x, ...
func (b Backoff) After(attemptsMade int) time.Duration {
	if attemptsMade < 1 {
		attemptsMade = 1
	}
	switch b.Type {
	case BackoffExponential:
		return b.Delay * time.Duration(1<<uint(attemptsMade-1))
	default:
		return b.Delay
	}
}

// JobOptions is the delivery policy attached to a job at enqueue time.
type JobOptions struct {
	Attempts int           `json:"attempts"`
	Backoff  Backoff       `json:"backoff"`
	Delay    time.Duration `json:"delay"` // Wait before the first attempt
}

// Policies used by the tracker.
var (
	CompletionJobOptions = JobOptions{
		Attempts: 3,
		Backoff:  Backoff{Type: BackoffExponential, Delay: 2000 * time.Millisecond},
	}
	ReminderJobOptions = JobOptions{
		Attempts: 2,
		Backoff:  Backoff{Type: BackoffFixed, Delay: 30000 * time.Millisecond},
	}
)

// Reminder offsets before a deadline.
var ReminderOffsets = []time.Duration{24 * time.Hour, 2 * time.Hour}
