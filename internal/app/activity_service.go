package app

import (
	"context"
	"fmt"
	"time"

	"activity_tracker/internal/domain/activity"
	"activity_tracker/internal/domain/apperr"
	"activity_tracker/internal/domain/course"
	"activity_tracker/internal/domain/user"

	"github.com/sirupsen/logrus"
)

// CompletionNotifier is told about every write that leaves a record
// complete.
type CompletionNotifier interface {
	EnqueueCompletion(ctx context.Context, rec *activity.Record, offering *course.Offering) error
}

// ActivityService applies the ownership rules around the activity store.
type ActivityService struct {
	activityRepo activity.Repository
	courseRepo   course.Repository
	notifier     CompletionNotifier
	logger       *logrus.Entry
	now          func() time.Time
}

func NewActivityService(ar activity.Repository, cr course.Repository, notifier CompletionNotifier, logger *logrus.Entry) *ActivityService {
	return &ActivityService{
		activityRepo: ar,
		courseRepo:   cr,
		notifier:     notifier,
		logger:       logger.WithField("service", "ActivityService"),
		now:          time.Now,
	}
}

// Upsert creates or merges the record of (allocationID, week). The owner is
// always taken from the course offering. When the stored record ends up
// complete the managers are notified; a failed enqueue is logged and does
// not fail the write.
func (s *ActivityService) Upsert(ctx context.Context, caller user.Caller, allocationID int64, week int, fields activity.Fields) (*activity.Record, error) {
	if allocationID <= 0 {
		return nil, apperr.Validation("allocationId is required")
	}
	if err := activity.ValidateWeek(week); err != nil {
		return nil, err
	}
	if err := fields.Validate(); err != nil {
		return nil, err
	}

	offering, err := s.courseRepo.GetByID(ctx, allocationID)
	if err != nil {
		return nil, err
	}
	if !caller.Privileged() && offering.FacilitatorID != caller.ID {
		return nil, apperr.AccessDenied("course offering %d is not assigned to you", allocationID)
	}

	rec, err := s.activityRepo.Upsert(ctx, allocationID, week, offering.FacilitatorID, fields, s.now())
	if err != nil {
		return nil, err
	}

	if activity.Classify(rec) == activity.Complete {
		if err := s.notifier.EnqueueCompletion(ctx, rec, offering); err != nil {
			s.logger.WithError(err).WithField("activity_id", rec.ID).Error("Failed to queue completion notification")
		}
	}
	return rec, nil
}

// Update merges fields into an existing record, addressed by id.
func (s *ActivityService) Update(ctx context.Context, caller user.Caller, id int64, fields activity.Fields) (*activity.Record, error) {
	rec, err := s.Get(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	return s.Upsert(ctx, caller, rec.AllocationID, rec.WeekNumber, fields)
}

func (s *ActivityService) Get(ctx context.Context, caller user.Caller, id int64) (*activity.Record, error) {
	rec, err := s.activityRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !activity.ScopeFor(caller).Allows(rec) {
		return nil, apperr.AccessDenied("activity tracker %d belongs to another facilitator", id)
	}
	return rec, nil
}

func (s *ActivityService) Delete(ctx context.Context, caller user.Caller, id int64) error {
	if _, err := s.Get(ctx, caller, id); err != nil {
		return err
	}
	if err := s.activityRepo.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.WithFields(logrus.Fields{"activity_id": id, "user_id": caller.ID}).Info("Activity tracker deleted")
	return nil
}

func validateFilter(filter activity.Filter) error {
	if filter.Status != "" && !filter.Status.Valid() {
		return apperr.Validation("status must be one of Done, Pending, Not Started")
	}
	if filter.WeekNumber != 0 {
		return activity.ValidateWeek(filter.WeekNumber)
	}
	return nil
}

func (s *ActivityService) List(ctx context.Context, caller user.Caller, filter activity.Filter, page activity.Page) (*activity.ListResult, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	return s.activityRepo.List(ctx, activity.ScopeFor(caller).Restrict(filter), page.Normalize())
}

func (s *ActivityService) Summary(ctx context.Context, caller user.Caller, filter activity.Filter) (*activity.Summary, error) {
	if err := validateFilter(filter); err != nil {
		return nil, err
	}
	records, err := s.activityRepo.ListAll(ctx, activity.ScopeFor(caller).Restrict(filter))
	if err != nil {
		return nil, fmt.Errorf("failed to load activities for summary: %w", err)
	}
	summary := activity.Summarize(records)
	return &summary, nil
}
