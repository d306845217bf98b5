package repository

import (
	"context"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/edupulse/schoolops-backend/internal/model"
	"github.com/jackc/pgx/v5"
)

// MakeupSessionRepository handles makeup session data access. The snapshot
// column is JSONB written once at creation.
type MakeupSessionRepository struct {
	db DBTX
}

const makeupSelect = `SELECT m.id, m.student_id, m.source_class_id, m.target_class_id, m.course_id,
	m.status, m.initiated_from, m.reason_type, m.snapshot, m.notes, m.created_by, m.updated_by,
	m.created_at, m.updated_at,
	s.id, s.first_name, s.last_name, s.contact_email, s.created_at
	FROM makeup_sessions m
	JOIN students s ON s.id = m.student_id`

func scanMakeupSession(row pgx.Row) (*model.MakeupSession, error) {
	ms := &model.MakeupSession{Student: &model.Student{}}
	var snapshot []byte
	err := row.Scan(
		&ms.ID, &ms.StudentID, &ms.SourceClassID, &ms.TargetClassID, &ms.CourseID,
		&ms.Status, &ms.InitiatedFrom, &ms.ReasonType, &snapshot, &ms.Notes, &ms.CreatedBy, &ms.UpdatedBy,
		&ms.CreatedAt, &ms.UpdatedAt,
		&ms.Student.ID, &ms.Student.FirstName, &ms.Student.LastName, &ms.Student.ContactEmail, &ms.Student.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(snapshot) > 0 {
		if err := sonic.Unmarshal(snapshot, &ms.Snapshot); err != nil {
			return nil, fmt.Errorf("decode makeup snapshot %d: %w", ms.ID, err)
		}
	}
	return ms, nil
}

// CreateMakeupSession inserts a session. A second scheduled session for the
// same (student, source, target) yields ErrConflict.
func (r *MakeupSessionRepository) CreateMakeupSession(ctx context.Context, ms *model.MakeupSession) error {
	snapshot, err := sonic.Marshal(ms.Snapshot)
	if err != nil {
		return fmt.Errorf("encode makeup snapshot: %w", err)
	}
	err = r.db.QueryRow(ctx,
		`INSERT INTO makeup_sessions
		   (student_id, source_class_id, target_class_id, course_id, status, initiated_from, reason_type,
		    snapshot, notes, created_by, updated_by)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $10)
		 RETURNING id, created_at, updated_at`,
		ms.StudentID, ms.SourceClassID, ms.TargetClassID, ms.CourseID, ms.Status, ms.InitiatedFrom,
		ms.ReasonType, snapshot, ms.Notes, ms.CreatedBy,
	).Scan(&ms.ID, &ms.CreatedAt, &ms.UpdatedAt)
	if err != nil {
		return mapErr(err)
	}
	ms.UpdatedBy = ms.CreatedBy
	return nil
}

// GetMakeupSession retrieves a session with its student.
func (r *MakeupSessionRepository) GetMakeupSession(ctx context.Context, id int64) (*model.MakeupSession, error) {
	ms, err := scanMakeupSession(r.db.QueryRow(ctx, makeupSelect+` WHERE m.id = $1`, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return ms, nil
}

// LockMakeupSession is GetMakeupSession with SELECT ... FOR UPDATE.
func (r *MakeupSessionRepository) LockMakeupSession(ctx context.Context, id int64) (*model.MakeupSession, error) {
	ms, err := scanMakeupSession(r.db.QueryRow(ctx, makeupSelect+` WHERE m.id = $1 FOR UPDATE OF m`, id))
	if err != nil {
		return nil, mapErr(err)
	}
	return ms, nil
}

// ListMakeupSessions lists sessions matching f, oldest first.
func (r *MakeupSessionRepository) ListMakeupSessions(ctx context.Context, f MakeupFilter) ([]model.MakeupSession, error) {
	query := makeupSelect + ` WHERE TRUE`
	var args []any

	if f.StudentID != 0 {
		args = append(args, f.StudentID)
		query += fmt.Sprintf(" AND m.student_id = $%d", len(args))
	}
	if f.SourceClassID != 0 {
		args = append(args, f.SourceClassID)
		query += fmt.Sprintf(" AND m.source_class_id = $%d", len(args))
	}
	if f.TargetClassID != 0 {
		args = append(args, f.TargetClassID)
		query += fmt.Sprintf(" AND m.target_class_id = $%d", len(args))
	}
	if len(f.Statuses) > 0 {
		args = append(args, statusStrings(f.Statuses))
		query += fmt.Sprintf(" AND m.status = ANY($%d)", len(args))
	}
	query += ` ORDER BY m.created_at, m.id`

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sessions []model.MakeupSession
	for rows.Next() {
		ms, err := scanMakeupSession(rows)
		if err != nil {
			return nil, err
		}
		sessions = append(sessions, *ms)
	}
	return sessions, rows.Err()
}

// UpdateMakeupSession persists the mutable fields: status, notes and
// updated_by.
func (r *MakeupSessionRepository) UpdateMakeupSession(ctx context.Context, ms *model.MakeupSession) error {
	err := r.db.QueryRow(ctx,
		`UPDATE makeup_sessions
		 SET status = $1, notes = $2, updated_by = $3, updated_at = NOW()
		 WHERE id = $4
		 RETURNING updated_at`,
		ms.Status, ms.Notes, ms.UpdatedBy, ms.ID,
	).Scan(&ms.UpdatedAt)
	return mapErr(err)
}
