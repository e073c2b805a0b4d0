package scheduler

import (
	"context"
	"fmt"
	"time"

	"activity_tracker/internal/domain/activity"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// ReminderScheduler queues the deadline reminders of one week.
type ReminderScheduler interface {
	ScheduleReminders(ctx context.Context, weekNumber int, deadline time.Time) (int, error)
}

// Pruner drops finished jobs older than a cut-off.
type Pruner interface {
	Name() string
	Prune(ctx context.Context, before time.Time) (int, error)
}

// Calendar places the weekly deadline inside the semester.
type Calendar struct {
	SemesterStart   time.Time
	DeadlineWeekday time.Weekday
	DeadlineHour    int
}

// WeekOf returns the semester week containing t and that week's deadline.
// ok is false when the semester start is unset or t falls outside weeks
// 1 to 16.
func (c Calendar) WeekOf(t time.Time) (week int, deadline time.Time, ok bool) {
	if c.SemesterStart.IsZero() {
		return 0, time.Time{}, false
	}
	start := time.Date(c.SemesterStart.Year(), c.SemesterStart.Month(), c.SemesterStart.Day(), 0, 0, 0, 0, t.Location())
	if t.Before(start) {
		return 0, time.Time{}, false
	}
	days := daysBetween(start, t)
	week = days/7 + activity.MinWeek
	if week > activity.MaxWeek {
		return 0, time.Time{}, false
	}

	weekStart := start.AddDate(0, 0, (week-activity.MinWeek)*7)
	offset := (int(c.DeadlineWeekday) - int(weekStart.Weekday()) + 7) % 7
	day := weekStart.AddDate(0, 0, offset)
	deadline = time.Date(day.Year(), day.Month(), day.Day(), c.DeadlineHour, 0, 0, 0, t.Location())
	return week, deadline, true
}

// daysBetween counts calendar days from a to b, ignoring DST shifts.
func daysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da) / (24 * time.Hour))
}

type NotificationScheduler struct {
	cronEngine      *cron.Cron
	reminders       ReminderScheduler
	pruners         []Pruner
	calendar        Calendar
	retention       time.Duration
	logger          *logrus.Entry
	now             func() time.Time
	cronSpecWeekly  string
	cronSpecPruning string
}

func NewNotificationScheduler(
	reminders ReminderScheduler,
	pruners []Pruner,
	calendar Calendar,
	retention time.Duration,
	logger *logrus.Entry,
	cronSpecWeekly string, // e.g., "0 8 * * MON" (08:00 every Monday)
	cronSpecPruning string, // e.g., "0 3 * * *" (03:00 daily)
) *NotificationScheduler {
	return &NotificationScheduler{
		cronEngine:      cron.New(cron.WithLocation(time.Local)),
		reminders:       reminders,
		pruners:         pruners,
		calendar:        calendar,
		retention:       retention,
		logger:          logger,
		now:             time.Now,
		cronSpecWeekly:  cronSpecWeekly,
		cronSpecPruning: cronSpecPruning,
	}
}

func (s *NotificationScheduler) Start() error {
	s.logger.Info("Starting notification scheduler")

	if _, err := s.cronEngine.AddFunc(s.cronSpecWeekly, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()
		s.RunWeeklyReminders(ctx)
	}); err != nil {
		return fmt.Errorf("could not add weekly reminder cron job: %w", err)
	}

	if _, err := s.cronEngine.AddFunc(s.cronSpecPruning, func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		s.PruneQueues(ctx)
	}); err != nil {
		return fmt.Errorf("could not add queue pruning cron job: %w", err)
	}

	s.cronEngine.Start()
	s.logger.WithFields(logrus.Fields{
		"weekly_spec": s.cronSpecWeekly,
		"prune_spec":  s.cronSpecPruning,
	}).Info("Notification scheduler started")
	return nil
}

// RunWeeklyReminders schedules the reminders of the current semester week.
func (s *NotificationScheduler) RunWeeklyReminders(ctx context.Context) {
	now := s.now()
	week, deadline, ok := s.calendar.WeekOf(now)
	if !ok {
		s.logger.WithField("date", now.Format("2006-01-02")).Info("Outside the semester, skipping weekly reminders")
		return
	}
	logCtx := s.logger.WithFields(logrus.Fields{"week": week, "deadline": deadline.Format(time.RFC3339)})

	n, err := s.reminders.ScheduleReminders(ctx, week, deadline)
	if err != nil {
		logCtx.WithError(err).Error("Failed to schedule weekly reminders")
		return
	}
	logCtx.WithField("scheduled", n).Info("Weekly reminders scheduled")
}

// PruneQueues removes finished jobs older than the retention window.
func (s *NotificationScheduler) PruneQueues(ctx context.Context) {
	before := s.now().Add(-s.retention)
	for _, p := range s.pruners {
		n, err := p.Prune(ctx, before)
		if err != nil {
			s.logger.WithError(err).WithField("queue", p.Name()).Error("Failed to prune queue")
			continue
		}
		if n > 0 {
			s.logger.WithFields(logrus.Fields{"queue": p.Name(), "removed": n}).Info("Pruned finished jobs")
		}
	}
}

func (s *NotificationScheduler) Stop() {
	s.logger.Info("Stopping notification scheduler")
	ctx := s.cronEngine.Stop() // Waits for running jobs.
	<-ctx.Done()
	s.logger.Info("Notification scheduler stopped")
}
