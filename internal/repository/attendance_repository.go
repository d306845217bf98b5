package repository

import (
	"context"
	"errors"

	"github.com/edupulse/schoolops-backend/internal/model"
	"github.com/jackc/pgx/v5"
)

// AttendanceRepository handles attendance data access. The
// (student_id, class_id) unique constraint is what makes every sync replayable.
type AttendanceRepository struct {
	db DBTX
}

const attendanceColumns = `a.id, a.student_id, a.class_id, a.status, a.attendance_time, a.created_at, a.updated_at`

func scanAttendance(row pgx.Row) (*model.Attendance, error) {
	a := &model.Attendance{}
	if err := row.Scan(&a.ID, &a.StudentID, &a.ClassID, &a.Status, &a.AttendanceTime, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return a, nil
}

func (r *AttendanceRepository) queryAttendance(ctx context.Context, sql string, args ...any) ([]model.Attendance, error) {
	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var list []model.Attendance
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, *a)
	}
	return list, rows.Err()
}

// GetAttendance retrieves the row for a (student, class) pair.
func (r *AttendanceRepository) GetAttendance(ctx context.Context, studentID, classID int64) (*model.Attendance, error) {
	a, err := scanAttendance(r.db.QueryRow(ctx,
		`SELECT `+attendanceColumns+` FROM attendances a WHERE a.student_id = $1 AND a.class_id = $2`,
		studentID, classID))
	if err != nil {
		return nil, mapErr(err)
	}
	return a, nil
}

// InsertAttendance inserts a unless the pair already exists. On a fresh
// insert a's ID and timestamps are filled and true is returned.
func (r *AttendanceRepository) InsertAttendance(ctx context.Context, a *model.Attendance) (bool, error) {
	err := r.db.QueryRow(ctx,
		`INSERT INTO attendances (student_id, class_id, status, attendance_time)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (student_id, class_id) DO NOTHING
		 RETURNING id, created_at, updated_at`,
		a.StudentID, a.ClassID, a.Status, a.AttendanceTime,
	).Scan(&a.ID, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, mapErr(err)
	}
	return true, nil
}

// ListAttendanceByClass lists every row for a class.
func (r *AttendanceRepository) ListAttendanceByClass(ctx context.Context, classID int64) ([]model.Attendance, error) {
	return r.queryAttendance(ctx,
		`SELECT `+attendanceColumns+` FROM attendances a WHERE a.class_id = $1 ORDER BY a.id`, classID)
}

// ListAttendanceByStudentCourse lists a student's rows across one course's classes.
func (r *AttendanceRepository) ListAttendanceByStudentCourse(ctx context.Context, studentID, courseID int64) ([]model.Attendance, error) {
	return r.queryAttendance(ctx,
		`SELECT `+attendanceColumns+`
		 FROM attendances a
		 JOIN classes c ON c.id = a.class_id
		 WHERE a.student_id = $1 AND c.course_id = $2
		 ORDER BY a.id`, studentID, courseID)
}

// UpdateAttendanceStatus sets the status of one row.
func (r *AttendanceRepository) UpdateAttendanceStatus(ctx context.Context, id int64, status model.AttendanceStatus) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE attendances SET status = $1, updated_at = NOW() WHERE id = $2`, status, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteAttendance removes rows by ID and returns how many went.
func (r *AttendanceRepository) DeleteAttendance(ctx context.Context, ids []int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	tag, err := r.db.Exec(ctx, `DELETE FROM attendances WHERE id = ANY($1)`, ids)
	if err != nil {
		return 0, err
	}
	return int(tag.RowsAffected()), nil
}
