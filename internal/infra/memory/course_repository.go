package memory

import (
	"context"

	"activity_tracker/internal/domain/apperr"
	"activity_tracker/internal/domain/course"
)

var ErrCourseOfferingNotFound = apperr.NotFound("course offering not found")

type CourseRepository struct {
	db *courseTable
}

var _ course.Repository = (*CourseRepository)(nil)

func NewCourseRepository(db *DB) *CourseRepository {
	return &CourseRepository{db: db.courses}
}

// Create stores o and assigns its id. Offerings are managed outside the
// tracker, so this exists for seeding.
func (repo *CourseRepository) Create(_ context.Context, o *course.Offering) error {
	repo.db.Lock()
	defer repo.db.Unlock()

	repo.db.seq++
	o.ID = repo.db.seq
	stored := *o
	repo.db.table[o.ID] = &stored
	return nil
}

func (repo *CourseRepository) GetByID(_ context.Context, id int64) (*course.Offering, error) {
	repo.db.RLock()
	defer repo.db.RUnlock()

	if o, ok := repo.db.table[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, ErrCourseOfferingNotFound
}
