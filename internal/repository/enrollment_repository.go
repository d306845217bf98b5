package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/edupulse/schoolops-backend/internal/clock"
	"github.com/edupulse/schoolops-backend/internal/model"
	"github.com/jackc/pgx/v5"
)

// EnrollmentRepository handles enrollment data access. active_from and
// active_until are TIMESTAMP columns holding school-local wall-clock time;
// they are converted through loc on the way in and out.
type EnrollmentRepository struct {
	db  DBTX
	loc *time.Location
}

const enrollmentColumns = `e.id, e.student_id, e.course_id, e.status, e.active_from, e.active_until,
	e.created_at, e.updated_at`

func (r *EnrollmentRepository) scanEnrollment(row pgx.Row, withStudent bool) (*model.Enrollment, error) {
	e := &model.Enrollment{}
	dest := []any{&e.ID, &e.StudentID, &e.CourseID, &e.Status, &e.ActiveFrom, &e.ActiveUntil,
		&e.CreatedAt, &e.UpdatedAt}
	if withStudent {
		e.Student = &model.Student{}
		dest = append(dest, &e.Student.ID, &e.Student.FirstName, &e.Student.LastName,
			&e.Student.ContactEmail, &e.Student.CreatedAt)
	}
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	e.ActiveFrom = r.fromWall(e.ActiveFrom)
	e.ActiveUntil = r.fromWall(e.ActiveUntil)
	return e, nil
}

func (r *EnrollmentRepository) fromWall(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := clock.FromWall(*t, r.loc)
	return &v
}

func (r *EnrollmentRepository) toWall(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := clock.ToWall(*t, r.loc)
	return &v
}

func statusStrings[S ~string](statuses []S) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

// GetEnrollment retrieves an enrollment by ID.
func (r *EnrollmentRepository) GetEnrollment(ctx context.Context, id int64) (*model.Enrollment, error) {
	e, err := r.scanEnrollment(r.db.QueryRow(ctx,
		`SELECT `+enrollmentColumns+` FROM enrollments e WHERE e.id = $1`, id), false)
	if err != nil {
		return nil, mapErr(err)
	}
	return e, nil
}

// ListEnrollmentsByCourse lists a course's enrollments with their students,
// optionally restricted to the given statuses.
func (r *EnrollmentRepository) ListEnrollmentsByCourse(ctx context.Context, courseID int64, statuses ...model.EnrollmentStatus) ([]model.Enrollment, error) {
	query := `SELECT ` + enrollmentColumns + `, s.id, s.first_name, s.last_name, s.contact_email, s.created_at
		FROM enrollments e
		JOIN students s ON s.id = e.student_id
		WHERE e.course_id = $1`
	args := []any{courseID}
	if len(statuses) > 0 {
		args = append(args, statusStrings(statuses))
		query += fmt.Sprintf(" AND e.status = ANY($%d)", len(args))
	}
	query += ` ORDER BY e.id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var enrollments []model.Enrollment
	for rows.Next() {
		e, err := r.scanEnrollment(rows, true)
		if err != nil {
			return nil, err
		}
		enrollments = append(enrollments, *e)
	}
	return enrollments, rows.Err()
}

// HasEnrollment reports whether the student holds an enrollment in the
// course with one of the statuses (any status when none are given).
func (r *EnrollmentRepository) HasEnrollment(ctx context.Context, studentID, courseID int64, statuses ...model.EnrollmentStatus) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM enrollments WHERE student_id = $1 AND course_id = $2`
	args := []any{studentID, courseID}
	if len(statuses) > 0 {
		args = append(args, statusStrings(statuses))
		query += fmt.Sprintf(" AND status = ANY($%d)", len(args))
	}
	query += `)`

	var exists bool
	if err := r.db.QueryRow(ctx, query, args...).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

// CreateEnrollment inserts an enrollment. A second enrollment for the same
// (student, course) yields ErrConflict.
func (r *EnrollmentRepository) CreateEnrollment(ctx context.Context, e *model.Enrollment) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO enrollments (student_id, course_id, status, active_from, active_until)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, created_at, updated_at`,
		e.StudentID, e.CourseID, e.Status, r.toWall(e.ActiveFrom), r.toWall(e.ActiveUntil),
	).Scan(&e.ID, &e.CreatedAt, &e.UpdatedAt)
	return mapErr(err)
}

// UpdateEnrollment persists status and window.
func (r *EnrollmentRepository) UpdateEnrollment(ctx context.Context, e *model.Enrollment) error {
	err := r.db.QueryRow(ctx,
		`UPDATE enrollments
		 SET status = $1, active_from = $2, active_until = $3, updated_at = NOW()
		 WHERE id = $4
		 RETURNING updated_at`,
		e.Status, r.toWall(e.ActiveFrom), r.toWall(e.ActiveUntil), e.ID,
	).Scan(&e.UpdatedAt)
	return mapErr(err)
}
