package service

import (
	"context"
	"fmt"

	"github.com/edupulse/schoolops-backend/internal/model"
	"github.com/edupulse/schoolops-backend/internal/repository"
	"github.com/rs/zerolog"
)

// MarkResult reports a recorded attendance and its makeup side effects.
type MarkResult struct {
	Attendance            *model.Attendance `json:"attendance"`
	MakeupSessionsUpdated int               `json:"makeup_sessions_updated"`
}

// MarkNotifier is told about every recorded outcome after it commits.
type MarkNotifier interface {
	AttendanceMarked(a *model.Attendance, makeupSessionsUpdated int)
}

// AttendanceService records outcomes on existing attendance rows. It never
// creates or deletes rows.
type AttendanceService struct {
	store    repository.Store
	makeup   *MakeupService
	notifier MarkNotifier
	log      zerolog.Logger
}

// NewAttendanceService creates a new AttendanceService.
func NewAttendanceService(store repository.Store, makeup *MakeupService, log zerolog.Logger) *AttendanceService {
	return &AttendanceService{
		store:  store,
		makeup: makeup,
		log:    log.With().Str("component", "attendance").Logger(),
	}
}

// SetNotifier registers the live feed. Call before serving requests.
func (s *AttendanceService) SetNotifier(n MarkNotifier) {
	s.notifier = n
}

// ListForClass lists the attendance rows of a class.
func (s *AttendanceService) ListForClass(ctx context.Context, classID int64) ([]model.Attendance, error) {
	if _, err := s.store.GetClass(ctx, classID); err != nil {
		return nil, fmt.Errorf("get class: %w", err)
	}
	return s.store.ListAttendanceByClass(ctx, classID)
}

// Mark sets the status of the (student, class) row and closes any
// scheduled makeup sessions into that class accordingly, in one
// transaction.
func (s *AttendanceService) Mark(ctx context.Context, studentID, classID int64, status model.AttendanceStatus, actor *model.Actor) (*MarkResult, error) {
	if !status.IsValid() {
		return nil, ruleErr(CodeInvalidStatus, "Unknown attendance status %q.", status)
	}

	var result MarkResult
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		a, err := tx.GetAttendance(ctx, studentID, classID)
		if err != nil {
			return fmt.Errorf("get attendance: %w", err)
		}
		if a.Status != status {
			if err := tx.UpdateAttendanceStatus(ctx, a.ID, status); err != nil {
				return fmt.Errorf("update attendance: %w", err)
			}
			a.Status = status
		}
		n, err := s.makeup.syncFromTarget(ctx, tx, studentID, classID, status, actor)
		if err != nil {
			return err
		}
		result = MarkResult{Attendance: a, MakeupSessionsUpdated: n}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if result.MakeupSessionsUpdated > 0 {
		s.makeup.roster.InvalidateClasses(ctx, classID)
	}
	s.log.Info().
		Int64("student_id", studentID).
		Int64("class_id", classID).
		Str("status", string(status)).
		Str("actor", actor.DisplayName()).
		Int("makeups_updated", result.MakeupSessionsUpdated).
		Msg("Attendance marked")

	if s.notifier != nil {
		s.notifier.AttendanceMarked(result.Attendance, result.MakeupSessionsUpdated)
	}
	return &result, nil
}
