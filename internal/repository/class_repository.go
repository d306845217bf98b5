package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/edupulse/schoolops-backend/internal/model"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
)

// ClassRepository handles class data access. Every read joins the course so
// callers can label classes without a second query.
type ClassRepository struct {
	db DBTX
}

const classSelect = `SELECT c.id, c.course_id, c.date, c.start_time, c.duration_minutes,
	c.teacher_id, c.facility_id, c.classroom_id, c.is_active, c.created_at, c.updated_at,
	` + courseColumns + `
	FROM classes c
	JOIN courses co ON co.id = c.course_id`

const classOrder = ` ORDER BY c.date, c.start_time, co.name, c.id`

func scanClass(row pgx.Row) (*model.Class, error) {
	c := &model.Class{Course: &model.Course{}}
	var start pgtype.Time
	dest := append([]any{
		&c.ID, &c.CourseID, &c.Date, &start, &c.DurationMinutes,
		&c.TeacherID, &c.FacilityID, &c.ClassroomID, &c.IsActive, &c.CreatedAt, &c.UpdatedAt,
	}, courseDest(c.Course)...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	c.StartTime = model.TimeOfDay(time.Duration(start.Microseconds) * time.Microsecond)
	return c, nil
}

func (r *ClassRepository) queryClasses(ctx context.Context, sql string, args ...any) ([]model.Class, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var classes []model.Class
	for rows.Next() {
		c, err := scanClass(rows)
		if err != nil {
			return nil, err
		}
		classes = append(classes, *c)
	}
	return classes, rows.Err()
}

// GetClass retrieves a class with its course.
func (r *ClassRepository) GetClass(ctx context.Context, id int64) (*model.Class, error) {
	c, err := scanClass(r.db.QueryRow(ctx, classSelect+` WHERE c.id = $1`, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return c, nil
}

// ListClassesByCourse lists the classes of a course in calendar order.
func (r *ClassRepository) ListClassesByCourse(ctx context.Context, courseID int64, activeOnly bool) ([]model.Class, error) {
	query := classSelect + ` WHERE c.course_id = $1`
	if activeOnly {
		query += ` AND c.is_active`
	}
	return r.queryClasses(ctx, query+classOrder, courseID)
}

// ListUpcomingClasses lists active classes dated after f.From's day, or on
// that day at or after its time.
func (r *ClassRepository) ListUpcomingClasses(ctx context.Context, f UpcomingClassFilter) ([]model.Class, error) {
	args := []any{f.From.Format("2006-01-02"), f.From.Format("15:04:05")}
	query := classSelect + `
		WHERE c.is_active
		  AND (c.date > $1::date OR (c.date = $1::date AND c.start_time >= $2::time))`
	if f.TeacherID != nil {
		args = append(args, *f.TeacherID)
		query += fmt.Sprintf(" AND co.teacher_id = $%d", len(args))
	}
	return r.queryClasses(ctx, query+classOrder, args...)
}

// ListClassesForStudent lists every class linked to the student through a
// pending or confirmed enrollment, an attendance row or a makeup session.
// Past classes are included.
func (r *ClassRepository) ListClassesForStudent(ctx context.Context, studentID int64) ([]model.Class, error) {
	return r.queryClasses(ctx, classSelect+`
		WHERE c.id IN (
			SELECT cl.id FROM classes cl
			JOIN enrollments e ON e.course_id = cl.course_id
			WHERE e.student_id = $1 AND e.status IN ('pending', 'confirmed')
			UNION
			SELECT a.class_id FROM attendances a WHERE a.student_id = $1
			UNION
			SELECT m.source_class_id FROM makeup_sessions m WHERE m.student_id = $1
			UNION
			SELECT m.target_class_id FROM makeup_sessions m WHERE m.student_id = $1
		)`+classOrder, studentID)
}

// CreateClass inserts a class and fills its ID and timestamps.
func (r *ClassRepository) CreateClass(ctx context.Context, c *model.Class) error {
	err := r.db.QueryRow(ctx,
		`INSERT INTO classes (course_id, date, start_time, duration_minutes, teacher_id, facility_id, classroom_id, is_active)
		 VALUES ($1, $2::date, $3::time, $4, $5, $6, $7, $8)
		 RETURNING id, created_at, updated_at`,
		c.CourseID, c.Date.Format("2006-01-02"), c.StartTime.String(), c.DurationMinutes,
		c.TeacherID, c.FacilityID, c.ClassroomID, c.IsActive,
	).Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return mapErr(err)
}

// SetClassActive toggles is_active.
func (r *ClassRepository) SetClassActive(ctx context.Context, id int64, active bool) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE classes SET is_active = $1, updated_at = NOW() WHERE id = $2`, active, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}
