package activity

// CompletionStatus is the derived three-way state of a weekly record.
type CompletionStatus string

const (
	Complete   CompletionStatus = "complete"
	HasPending CompletionStatus = "pending"
	NotStarted CompletionStatus = "not_started"
)

// Classify computes the completion status of r: Complete when every task is
// Done, HasPending when any task is Pending, NotStarted otherwise.
func Classify(r *Record) CompletionStatus {
	return ClassifyTasks(r.Tasks())
}

func ClassifyTasks(tasks [6]TaskStatus) CompletionStatus {
	done := 0
	pending := false
	for _, s := range tasks {
		switch s {
		case StatusDone:
			done++
		case StatusPending:
			pending = true
		}
	}
	if done == len(tasks) {
		return Complete
	}
	if pending {
		return HasPending
	}
	return NotStarted
}
