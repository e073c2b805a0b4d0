package memory

import (
	"context"
	"sort"
	"time"

	"activity_tracker/internal/domain/activity"
	"activity_tracker/internal/domain/apperr"
)

var ErrActivityNotFound = apperr.NotFound("activity tracker not found")

type ActivityRepository struct {
	db      *activityTable
	courses *courseTable
}

var _ activity.Repository = (*ActivityRepository)(nil)

func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db.activity, courses: db.courses}
}

// Upsert holds the table lock for the whole read-merge-write.
func (repo *ActivityRepository) Upsert(_ context.Context, allocationID int64, week int, facilitatorID int64, fields activity.Fields, now time.Time) (*activity.Record, error) {
	repo.db.Lock()
	defer repo.db.Unlock()

	var rec *activity.Record
	for _, r := range repo.db.table {
		if r.AllocationID == allocationID && r.WeekNumber == week {
			rec = r
			break
		}
	}
	if rec == nil {
		repo.db.seq++
		rec = activity.NewRecord(allocationID, week)
		rec.ID = repo.db.seq
		rec.CreatedAt = now
		repo.db.table[rec.ID] = rec
	}

	fields.Apply(rec)
	rec.FacilitatorID = facilitatorID
	stamp := now
	rec.LastUpdated = &stamp
	rec.UpdatedAt = now
	return repo.withOffering(rec), nil
}

func (repo *ActivityRepository) GetByID(_ context.Context, id int64) (*activity.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if r, ok := repo.db.table[id]; ok {
		return repo.withOffering(r), nil
	}
	return nil, ErrActivityNotFound
}

func (repo *ActivityRepository) Delete(_ context.Context, id int64) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	if _, ok := repo.db.table[id]; !ok {
		return ErrActivityNotFound
	}
	delete(repo.db.table, id)
	return nil
}

func (repo *ActivityRepository) List(ctx context.Context, filter activity.Filter, page activity.Page) (*activity.ListResult, error) {
	page = page.Normalize()
	all, err := repo.ListAll(ctx, filter)
	if err != nil {
		return nil, err
	}

	start := page.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + page.Limit
	if end > len(all) {
		end = len(all)
	}
	return activity.NewListResult(all[start:end], page, len(all)), nil
}

func (repo *ActivityRepository) ListAll(_ context.Context, filter activity.Filter) ([]*activity.Record, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	out := make([]*activity.Record, 0)
	for _, r := range repo.db.table {
		rec := repo.withOffering(r)
		if filter.Matches(rec) {
			out = append(out, rec)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WeekNumber != out[j].WeekNumber {
			return out[i].WeekNumber < out[j].WeekNumber
		}
		if !out[i].UpdatedAt.Equal(out[j].UpdatedAt) {
			return out[i].UpdatedAt.After(out[j].UpdatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// withOffering returns a detached copy of r joined with its offering.
func (repo *ActivityRepository) withOffering(r *activity.Record) *activity.Record {
	cp := *r
	cp.Attendance = append([]bool{}, r.Attendance...)
	if r.SubmissionDate != nil {
		t := *r.SubmissionDate
		cp.SubmissionDate = &t
	}
	if r.LastUpdated != nil {
		t := *r.LastUpdated
		cp.LastUpdated = &t
	}
	if r.Notes != nil {
		n := *r.Notes
		cp.Notes = &n
	}

	repo.courses.RLock()
	defer repo.courses.RUnlock()
	if o, ok := repo.courses.table[r.AllocationID]; ok {
		oc := *o
		cp.CourseOffering = &oc
	} else {
		cp.CourseOffering = nil
	}
	return &cp
}
