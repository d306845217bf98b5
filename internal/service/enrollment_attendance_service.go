package service

import (
	"context"
	"fmt"

	"github.com/edupulse/schoolops-backend/internal/clock"
	"github.com/edupulse/schoolops-backend/internal/model"
	"github.com/edupulse/schoolops-backend/internal/repository"
	"github.com/rs/zerolog"
)

// EnrollmentAttendanceService reconciles one enrollment's attendance rows
// across the classes of its course.
type EnrollmentAttendanceService struct {
	store repository.Store
	clock *clock.Clock
	log   zerolog.Logger
}

// NewEnrollmentAttendanceService creates a new EnrollmentAttendanceService.
func NewEnrollmentAttendanceService(store repository.Store, clk *clock.Clock, log zerolog.Logger) *EnrollmentAttendanceService {
	return &EnrollmentAttendanceService{
		store: store,
		clock: clk,
		log:   log.With().Str("component", "enrollment_attendance").Logger(),
	}
}

// IsWithinWindow reports whether class c counts for enrollment e.
func (s *EnrollmentAttendanceService) IsWithinWindow(e *model.Enrollment, c *model.Class) bool {
	return IsWithinWindow(e, c, s.clock.Location())
}

// CreateForEnrollment creates the missing attendance rows for every active
// class of a confirmed enrollment's course that falls inside its window.
// A class whose row cannot be created is reported in Errors and skipped.
func (s *EnrollmentAttendanceService) CreateForEnrollment(ctx context.Context, e *model.Enrollment) SyncResult {
	if e.Status != model.EnrollmentStatusConfirmed {
		return skipped("Enrollment %d is %s, not confirmed", e.ID, e.Status)
	}

	loc := s.clock.Location()
	result := SyncResult{Status: SyncSuccess}
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		classes, err := tx.ListClassesByCourse(ctx, e.CourseID, true)
		if err != nil {
			return fmt.Errorf("list classes: %w", err)
		}
		for i := range classes {
			c := &classes[i]
			if !IsWithinWindow(e, c, loc) {
				continue
			}
			created, err := ensureAttendance(ctx, tx, e.StudentID, c, loc)
			if err != nil {
				s.log.Warn().Err(err).
					Int64("enrollment_id", e.ID).
					Int64("class_id", c.ID).
					Msg("Attendance create failed")
				result.Errors = append(result.Errors, fmt.Sprintf("class %d: %v", c.ID, err))
				continue
			}
			if created {
				result.CreatedCount++
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Int64("enrollment_id", e.ID).Msg("Enrollment attendance create failed")
		return failed(err, "Create attendance for enrollment %d failed", e.ID)
	}

	result.Message = fmt.Sprintf("Created %d attendance records for enrollment %d", result.CreatedCount, e.ID)
	if result.CreatedCount > 0 {
		s.log.Info().Int64("enrollment_id", e.ID).Int("created", result.CreatedCount).Msg("Attendance created")
	}
	return result
}

type enrollmentPlan struct {
	create []model.Class
	remove []int64
}

// plan works out which of the student's rows in this course are missing
// and which no longer have a reason to exist. Rows on classes referenced
// by one of the student's live makeup sessions are kept.
func (s *EnrollmentAttendanceService) plan(ctx context.Context, st repository.Store, e *model.Enrollment) (*enrollmentPlan, error) {
	loc := s.clock.Location()

	classes, err := st.ListClassesByCourse(ctx, e.CourseID, true)
	if err != nil {
		return nil, fmt.Errorf("list classes: %w", err)
	}
	existing, err := st.ListAttendanceByStudentCourse(ctx, e.StudentID, e.CourseID)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}
	makeups, err := st.ListMakeupSessions(ctx, repository.MakeupFilter{
		StudentID: e.StudentID,
		Statuses:  model.AttendanceMakeupStatuses,
	})
	if err != nil {
		return nil, fmt.Errorf("list makeup sessions: %w", err)
	}

	have := make(map[int64]bool, len(existing))
	for _, a := range existing {
		have[a.ClassID] = true
	}

	p := &enrollmentPlan{}
	keep := make(map[int64]bool, len(classes)+2*len(makeups))
	for i := range classes {
		c := classes[i]
		if !IsWithinWindow(e, &c, loc) {
			continue
		}
		keep[c.ID] = true
		if !have[c.ID] {
			p.create = append(p.create, c)
		}
	}
	for _, ms := range makeups {
		keep[ms.SourceClassID] = true
		keep[ms.TargetClassID] = true
	}
	for _, a := range existing {
		if !keep[a.ClassID] {
			p.remove = append(p.remove, a.ID)
		}
	}
	return p, nil
}

// SyncForEnrollment makes the student's rows in this course match the
// enrollment: missing rows for eligible classes are created and rows on
// classes that are inactive or outside the window are removed. Replaying
// it without intervening changes creates and removes nothing.
func (s *EnrollmentAttendanceService) SyncForEnrollment(ctx context.Context, e *model.Enrollment) SyncResult {
	if e.Status != model.EnrollmentStatusConfirmed {
		return skipped("Enrollment %d is %s, not confirmed", e.ID, e.Status)
	}

	loc := s.clock.Location()
	result := SyncResult{Status: SyncSuccess}
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		p, err := s.plan(ctx, tx, e)
		if err != nil {
			return err
		}
		for i := range p.create {
			c := &p.create[i]
			created, err := ensureAttendance(ctx, tx, e.StudentID, c, loc)
			if err != nil {
				s.log.Warn().Err(err).
					Int64("enrollment_id", e.ID).
					Int64("class_id", c.ID).
					Msg("Attendance create failed")
				result.Errors = append(result.Errors, fmt.Sprintf("class %d: %v", c.ID, err))
				continue
			}
			if created {
				result.CreatedCount++
				s.log.Debug().Int64("enrollment_id", e.ID).Int64("class_id", c.ID).Msg("Attendance row created")
			}
		}
		if len(p.remove) > 0 {
			s.log.Debug().Int64("enrollment_id", e.ID).Ints64("attendance_ids", p.remove).Msg("Removing attendance rows")
		}
		removed, err := tx.DeleteAttendance(ctx, p.remove)
		if err != nil {
			return fmt.Errorf("remove attendance: %w", err)
		}
		result.RemovedCount = removed
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Int64("enrollment_id", e.ID).Msg("Enrollment attendance sync failed")
		return failed(err, "Sync attendance for enrollment %d failed", e.ID)
	}

	result.Message = fmt.Sprintf("Synced enrollment %d: %d created, %d removed",
		e.ID, result.CreatedCount, result.RemovedCount)
	if result.CreatedCount > 0 || result.RemovedCount > 0 {
		s.log.Info().
			Int64("enrollment_id", e.ID).
			Int("created", result.CreatedCount).
			Int("removed", result.RemovedCount).
			Msg("Enrollment attendance synced")
	}
	return result
}

// preview reports what SyncForEnrollment would change without writing.
func (s *EnrollmentAttendanceService) preview(ctx context.Context, e *model.Enrollment) (missing []pair, extra []int64, err error) {
	if e.Status != model.EnrollmentStatusConfirmed {
		return nil, nil, nil
	}
	p, err := s.plan(ctx, s.store, e)
	if err != nil {
		return nil, nil, err
	}
	for _, c := range p.create {
		missing = append(missing, pair{studentID: e.StudentID, classID: c.ID})
	}
	return missing, p.remove, nil
}
