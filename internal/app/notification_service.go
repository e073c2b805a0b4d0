// internal/app/notification_service.go
package app

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"activity_tracker/internal/domain/activity"
	"activity_tracker/internal/domain/apperr"
	"activity_tracker/internal/domain/course"
	"activity_tracker/internal/domain/notification"
	"activity_tracker/internal/domain/user"

	"github.com/sirupsen/logrus"
)

// NotificationService enqueues completion notices and deadline reminders,
// delivers them from the queue workers and fronts the instant notification
// store.
type NotificationService struct {
	userRepo      user.Repository
	emailQueue    notification.Queue
	reminderQueue notification.Queue
	store         notification.InstantStore
	sender        notification.Sender
	logger        *logrus.Entry
	now           func() time.Time
}

func NewNotificationService(
	ur user.Repository,
	emailQueue notification.Queue,
	reminderQueue notification.Queue,
	store notification.InstantStore,
	sender notification.Sender,
	logger *logrus.Entry,
) *NotificationService {
	return &NotificationService{
		userRepo:      ur,
		emailQueue:    emailQueue,
		reminderQueue: reminderQueue,
		store:         store,
		sender:        sender,
		logger:        logger.WithField("service", "NotificationService"),
		now:           time.Now,
	}
}

func recipients(users []*user.User) []user.Recipient {
	out := make([]user.Recipient, 0, len(users))
	for _, u := range users {
		out = append(out, u.Recipient())
	}
	return out
}

// EnqueueCompletion queues one completion notice for every active manager.
// No managers is not an error. The call returns once the job is stored.
func (s *NotificationService) EnqueueCompletion(ctx context.Context, rec *activity.Record, offering *course.Offering) error {
	logCtx := s.logger.WithFields(logrus.Fields{"activity_id": rec.ID, "week": rec.WeekNumber})

	managers, err := s.userRepo.ListActiveByRole(ctx, user.RoleManager)
	if err != nil {
		return fmt.Errorf("failed to list active managers: %w", err)
	}
	if len(managers) == 0 {
		logCtx.Info("No active managers found for notification")
		return nil
	}

	payload := notification.CompletionPayload{
		ActivityTracker: rec,
		CourseOffering:  offering,
		Managers:        recipients(managers),
	}
	facilitator, err := s.userRepo.GetByID(ctx, rec.FacilitatorID)
	if err == nil {
		r := facilitator.Recipient()
		payload.Facilitator = &r
	} else {
		logCtx.WithError(err).Warn("Could not resolve facilitator for completion notice")
	}

	job, err := s.emailQueue.Add(ctx, notification.JobCompletionNotification, payload, notification.CompletionJobOptions)
	if err != nil {
		return err
	}
	logCtx.WithFields(logrus.Fields{"job_id": job.ID, "managers": len(managers)}).Info("Completion notification queued")
	return nil
}

// ScheduleReminders queues one delayed reminder per offset before the
// deadline whose fire time is still ahead. It returns the number queued.
func (s *NotificationService) ScheduleReminders(ctx context.Context, weekNumber int, deadline time.Time) (int, error) {
	if err := activity.ValidateWeek(weekNumber); err != nil {
		return 0, err
	}
	if deadline.IsZero() {
		return 0, apperr.Validation("deadline is required")
	}
	logCtx := s.logger.WithFields(logrus.Fields{"week": weekNumber, "deadline": deadline.Format(time.RFC3339)})

	facilitators, err := s.userRepo.ListActiveByRole(ctx, user.RoleFacilitator)
	if err != nil {
		return 0, fmt.Errorf("failed to list active facilitators: %w", err)
	}
	if len(facilitators) == 0 {
		logCtx.Info("No active facilitators found for reminders")
		return 0, nil
	}

	payload := notification.ReminderPayload{
		Facilitators: recipients(facilitators),
		WeekNumber:   weekNumber,
		Deadline:     deadline,
	}
	scheduled := 0
	now := s.now()
	for _, offset := range notification.ReminderOffsets {
		fireAt := deadline.Add(-offset)
		if !fireAt.After(now) {
			logCtx.WithField("offset", offset.String()).Debug("Reminder time already passed, skipping")
			continue
		}
		opts := notification.ReminderJobOptions
		opts.Delay = fireAt.Sub(now)
		job, err := s.reminderQueue.Add(ctx, notification.JobDeadlineReminder, payload, opts)
		if err != nil {
			return scheduled, err
		}
		scheduled++
		logCtx.WithFields(logrus.Fields{"job_id": job.ID, "fire_at": fireAt.Format(time.RFC3339)}).Info("Deadline reminder scheduled")
	}
	return scheduled, nil
}

// Stats is a snapshot of both queues.
func (s *NotificationService) Stats(ctx context.Context) (*notification.Stats, error) {
	email, err := s.emailQueue.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s counts: %w", s.emailQueue.Name(), err)
	}
	reminder, err := s.reminderQueue.Counts(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s counts: %w", s.reminderQueue.Name(), err)
	}
	return &notification.Stats{EmailQueue: email, ReminderQueue: reminder}, nil
}

// HandleCompletion is the worker side of the completion-notification job.
func (s *NotificationService) HandleCompletion(ctx context.Context, job *notification.Job) error {
	var p notification.CompletionPayload
	if err := json.Unmarshal(job.Data, &p); err != nil {
		return fmt.Errorf("decode completion payload: %w", err)
	}
	if p.ActivityTracker == nil || p.CourseOffering == nil {
		return apperr.Validation("completion payload is missing the activity or the course offering")
	}

	facilitatorName := "Unknown"
	if p.Facilitator != nil {
		facilitatorName = p.Facilitator.Name
	}
	msg := notification.Message{
		To:      p.Managers,
		Subject: fmt.Sprintf("Activity Completed - %s Week %d", p.CourseOffering.CourseName, p.ActivityTracker.WeekNumber),
		Body: fmt.Sprintf("Facilitator %s has completed all activities for Week %d of %s (%s).",
			facilitatorName, p.ActivityTracker.WeekNumber, p.CourseOffering.CourseName, p.CourseOffering.CourseCode),
	}
	s.logger.WithFields(logrus.Fields{
		"activity_id": p.ActivityTracker.ID,
		"managers":    len(p.Managers),
	}).Info("Sending completion notification")
	return s.sender.Send(ctx, msg)
}

// HandleReminder is the worker side of the deadline-reminder job.
func (s *NotificationService) HandleReminder(ctx context.Context, job *notification.Job) error {
	var p notification.ReminderPayload
	if err := json.Unmarshal(job.Data, &p); err != nil {
		return fmt.Errorf("decode reminder payload: %w", err)
	}
	msg := notification.Message{
		To:      p.Facilitators,
		Subject: fmt.Sprintf("Activity Deadline Reminder - Week %d", p.WeekNumber),
		Body: fmt.Sprintf("This is a reminder that Week %d activities are due on %s.",
			p.WeekNumber, p.Deadline.Format("Mon Jan 02 2006 15:04 MST")),
	}
	s.logger.WithFields(logrus.Fields{
		"week":         p.WeekNumber,
		"facilitators": len(p.Facilitators),
	}).Info("Sending deadline reminders")
	return s.sender.Send(ctx, msg)
}

// SendInstant stores an instant notification for data["userId"] or for
// everyone.
func (s *NotificationService) SendInstant(ctx context.Context, notifType string, data map[string]any) (*notification.Instant, error) {
	if notifType == "" || data == nil {
		return nil, apperr.Validation("type and data are required")
	}
	n, err := s.store.Send(ctx, notifType, data)
	if err != nil {
		return nil, err
	}
	s.logger.WithFields(logrus.Fields{"notification_id": n.ID, "type": notifType}).Info("Instant notification sent")
	return n, nil
}

func (s *NotificationService) ListInstant(ctx context.Context, userID int64, notifType string) ([]*notification.Instant, error) {
	return s.store.List(ctx, strconv.FormatInt(userID, 10), notifType)
}

func (s *NotificationService) MarkRead(ctx context.Context, userID int64, ids []string) error {
	if err := s.store.MarkRead(ctx, strconv.FormatInt(userID, 10), ids); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"user_id": userID, "count": len(ids)}).Info("Marked notifications as read")
	return nil
}
