package database

import (
	"context"
	"database/sql"
	"errors"

	"activity_tracker/internal/domain/apperr"
	"activity_tracker/internal/domain/course"
)

var ErrCourseOfferingNotFound = apperr.NotFound("course offering not found")

type PostgresCourseRepository struct {
	db *sql.DB
}

func NewPostgresCourseRepository(db *sql.DB) *PostgresCourseRepository {
	return &PostgresCourseRepository{db: db}
}

func (r *PostgresCourseRepository) GetByID(ctx context.Context, id int64) (*course.Offering, error) {
	query := `SELECT id, course_name, course_code, facilitator_id, semester, year,
                      total_weeks, start_date, end_date, is_active
               FROM course_offerings WHERE id = $1`
	c := &course.Offering{}
	err := r.db.QueryRowContext(ctx, query, id).Scan(&c.ID, &c.CourseName, &c.CourseCode, &c.FacilitatorID,
		&c.Semester, &c.Year, &c.TotalWeeks, &c.StartDate, &c.EndDate, &c.IsActive)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrCourseOfferingNotFound
		}
		return nil, apperr.Dependency("error getting course offering by ID", err)
	}
	return c, nil
}
