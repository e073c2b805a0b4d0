package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"activity_tracker/internal/domain/activity"
	"activity_tracker/internal/domain/apperr"
	"activity_tracker/internal/domain/course"

	"github.com/lib/pq" // For pq.BoolArray
)

var ErrActivityNotFound = apperr.NotFound("activity tracker not found")

const activitySelect = `SELECT t.id, t.allocation_id, t.facilitator_id, t.week_number, t.attendance,
               t.formative_one_grading, t.formative_two_grading, t.summative_grading,
               t.course_moderation, t.intranet_sync, t.grade_book_status,
               t.submission_date, t.last_updated, t.notes, t.created_at, t.updated_at,
               c.id, c.course_name, c.course_code, c.facilitator_id, c.semester, c.year,
               c.total_weeks, c.start_date, c.end_date, c.is_active
               FROM activity_trackers t
               JOIN course_offerings c ON c.id = t.allocation_id`

type PostgresActivityRepository struct {
	db *sql.DB
}

func NewPostgresActivityRepository(db *sql.DB) *PostgresActivityRepository {
	return &PostgresActivityRepository{db: db}
}

func scanActivity(s rowScanner) (*activity.Record, error) {
	r := &activity.Record{}
	c := &course.Offering{}
	var (
		attendance     pq.BoolArray
		submissionDate sql.NullTime
		lastUpdated    sql.NullTime
		notes          sql.NullString
	)
	err := s.Scan(
		&r.ID, &r.AllocationID, &r.FacilitatorID, &r.WeekNumber, &attendance,
		&r.FormativeOneGrading, &r.FormativeTwoGrading, &r.SummativeGrading,
		&r.CourseModeration, &r.IntranetSync, &r.GradeBookStatus,
		&submissionDate, &lastUpdated, &notes, &r.CreatedAt, &r.UpdatedAt,
		&c.ID, &c.CourseName, &c.CourseCode, &c.FacilitatorID, &c.Semester, &c.Year,
		&c.TotalWeeks, &c.StartDate, &c.EndDate, &c.IsActive,
	)
	if err != nil {
		return nil, err
	}
	r.Attendance = []bool(attendance)
	if r.Attendance == nil {
		r.Attendance = []bool{}
	}
	if submissionDate.Valid {
		r.SubmissionDate = &submissionDate.Time
	}
	if lastUpdated.Valid {
		r.LastUpdated = &lastUpdated.Time
	}
	if notes.Valid {
		r.Notes = &notes.String
	}
	r.CourseOffering = c
	return r, nil
}

func nullStatus(s *activity.TaskStatus) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*s), Valid: true}
}

// Upsert inserts or merges in one statement, so concurrent writers to the
// same week resolve to last-write-wins on the row.
func (r *PostgresActivityRepository) Upsert(ctx context.Context, allocationID int64, week int, facilitatorID int64, fields activity.Fields, now time.Time) (*activity.Record, error) {
	query := `INSERT INTO activity_trackers (allocation_id, week_number, facilitator_id, attendance,
                   formative_one_grading, formative_two_grading, summative_grading,
                   course_moderation, intranet_sync, grade_book_status,
                   submission_date, notes, last_updated)
               VALUES ($1, $2, $3, COALESCE($4::boolean[], '{}'),
                   COALESCE($5::varchar, 'Not Started'), COALESCE($6::varchar, 'Not Started'),
                   COALESCE($7::varchar, 'Not Started'), COALESCE($8::varchar, 'Not Started'),
                   COALESCE($9::varchar, 'Not Started'), COALESCE($10::varchar, 'Not Started'),
                   $11::timestamptz, $12::text, $13)
               ON CONFLICT (allocation_id, week_number) DO UPDATE SET
                   facilitator_id = EXCLUDED.facilitator_id,
                   attendance = COALESCE($4::boolean[], activity_trackers.attendance),
                   formative_one_grading = COALESCE($5::varchar, activity_trackers.formative_one_grading),
                   formative_two_grading = COALESCE($6::varchar, activity_trackers.formative_two_grading),
                   summative_grading = COALESCE($7::varchar, activity_trackers.summative_grading),
                   course_moderation = COALESCE($8::varchar, activity_trackers.course_moderation),
                   intranet_sync = COALESCE($9::varchar, activity_trackers.intranet_sync),
                   grade_book_status = COALESCE($10::varchar, activity_trackers.grade_book_status),
                   submission_date = COALESCE($11::timestamptz, activity_trackers.submission_date),
                   notes = COALESCE($12::text, activity_trackers.notes),
                   last_updated = EXCLUDED.last_updated,
                   updated_at = NOW()
               RETURNING id`

	var submission sql.NullTime
	if fields.SubmissionDate != nil {
		submission = sql.NullTime{Time: *fields.SubmissionDate, Valid: true}
	}
	var notes sql.NullString
	if fields.Notes != nil {
		notes = sql.NullString{String: *fields.Notes, Valid: true}
	}

	var id int64
	err := r.db.QueryRowContext(ctx, query,
		allocationID, week, facilitatorID, pq.BoolArray(fields.Attendance),
		nullStatus(fields.FormativeOneGrading), nullStatus(fields.FormativeTwoGrading),
		nullStatus(fields.SummativeGrading), nullStatus(fields.CourseModeration),
		nullStatus(fields.IntranetSync), nullStatus(fields.GradeBookStatus),
		submission, notes, now,
	).Scan(&id)
	if err != nil {
		return nil, apperr.Dependency("error upserting activity tracker", err)
	}
	return r.GetByID(ctx, id)
}

func (r *PostgresActivityRepository) GetByID(ctx context.Context, id int64) (*activity.Record, error) {
	rec, err := scanActivity(r.db.QueryRowContext(ctx, activitySelect+` WHERE t.id = $1`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrActivityNotFound
		}
		return nil, apperr.Dependency("error getting activity tracker by ID", err)
	}
	return rec, nil
}

func (r *PostgresActivityRepository) Delete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM activity_trackers WHERE id = $1`, id)
	if err != nil {
		return apperr.Dependency("error deleting activity tracker", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Dependency("error deleting activity tracker", err)
	}
	if n == 0 {
		return ErrActivityNotFound
	}
	return nil
}

func (r *PostgresActivityRepository) List(ctx context.Context, filter activity.Filter, page activity.Page) (*activity.ListResult, error) {
	page = page.Normalize()
	where, args := buildActivityWhere(filter)

	var total int
	countQuery := `SELECT COUNT(*) FROM activity_trackers t
               JOIN course_offerings c ON c.id = t.allocation_id` + where
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, apperr.Dependency("error counting activity trackers", err)
	}

	query := activitySelect + where + fmt.Sprintf(` ORDER BY t.week_number ASC, t.updated_at DESC LIMIT $%d OFFSET $%d`, len(args)+1, len(args)+2)
	items, err := r.query(ctx, query, append(args, page.Limit, page.Offset())...)
	if err != nil {
		return nil, err
	}
	return activity.NewListResult(items, page, total), nil
}

func (r *PostgresActivityRepository) ListAll(ctx context.Context, filter activity.Filter) ([]*activity.Record, error) {
	where, args := buildActivityWhere(filter)
	return r.query(ctx, activitySelect+where+` ORDER BY t.week_number ASC, t.updated_at DESC`, args...)
}

func (r *PostgresActivityRepository) query(ctx context.Context, query string, args ...any) ([]*activity.Record, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, apperr.Dependency("error listing activity trackers", err)
	}
	defer rows.Close()

	records := make([]*activity.Record, 0)
	for rows.Next() {
		rec, err := scanActivity(rows)
		if err != nil {
			return nil, apperr.Dependency("error scanning activity tracker", err)
		}
		records = append(records, rec)
	}
	if err = rows.Err(); err != nil {
		return nil, apperr.Dependency("error iterating activity trackers", err)
	}
	return records, nil
}

// buildActivityWhere renders the filter as a WHERE clause with positional
// arguments. The status predicate is an OR over the six task columns.
func buildActivityWhere(f activity.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	next := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if f.FacilitatorID != 0 {
		conds = append(conds, "t.facilitator_id = "+next(f.FacilitatorID))
	}
	if f.WeekNumber != 0 {
		conds = append(conds, "t.week_number = "+next(f.WeekNumber))
	}
	if f.Status != "" {
		p := next(string(f.Status))
		conds = append(conds, fmt.Sprintf(`(t.formative_one_grading = %[1]s OR t.formative_two_grading = %[1]s
                   OR t.summative_grading = %[1]s OR t.course_moderation = %[1]s
                   OR t.intranet_sync = %[1]s OR t.grade_book_status = %[1]s)`, p))
	}
	if f.Semester != "" {
		conds = append(conds, "c.semester = "+next(f.Semester))
	}
	if f.Year != 0 {
		conds = append(conds, "c.year = "+next(f.Year))
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
