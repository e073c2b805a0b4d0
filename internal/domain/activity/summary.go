package activity

import "math"

// WeekProgress breaks the completion counts out for one week.
type WeekProgress struct {
	Week       int `json:"week"`
	Total      int `json:"total"`
	Completed  int `json:"completed"`
	Pending    int `json:"pending"`
	NotStarted int `json:"notStarted"`
}

// Summary is the dashboard aggregate over a set of records.
type Summary struct {
	TotalActivities      int            `json:"totalActivities"`
	CompletedActivities  int            `json:"completedActivities"`
	PendingActivities    int            `json:"pendingActivities"`
	NotStartedActivities int            `json:"notStartedActivities"`
	CompletionRate       float64        `json:"completionRate"`
	WeeklyProgress       []WeekProgress `json:"weeklyProgress"`
}

// Summarize aggregates records by completion status. WeeklyProgress always
// holds weeks 1 through 16, in order.
func Summarize(records []*Record) Summary {
	s := Summary{WeeklyProgress: make([]WeekProgress, MaxWeek)}
	for i := range s.WeeklyProgress {
		s.WeeklyProgress[i].Week = i + MinWeek
	}

	for _, r := range records {
		status := Classify(r)
		s.TotalActivities++
		var wp *WeekProgress
		if r.WeekNumber >= MinWeek && r.WeekNumber <= MaxWeek {
			wp = &s.WeeklyProgress[r.WeekNumber-MinWeek]
			wp.Total++
		}
		switch status {
		case Complete:
			s.CompletedActivities++
			if wp != nil {
				wp.Completed++
			}
		case HasPending:
			s.PendingActivities++
			if wp != nil {
				wp.Pending++
			}
		default:
			if wp != nil {
				wp.NotStarted++
			}
		}
	}
	s.NotStartedActivities = s.TotalActivities - s.CompletedActivities - s.PendingActivities

	if s.TotalActivities > 0 {
		rate := float64(s.CompletedActivities) / float64(s.TotalActivities) * 100
		s.CompletionRate = math.Round(rate*100) / 100
	}
	return s
}
