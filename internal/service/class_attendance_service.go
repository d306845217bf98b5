package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/edupulse/schoolops-backend/internal/clock"
	"github.com/edupulse/schoolops-backend/internal/model"
	"github.com/edupulse/schoolops-backend/internal/repository"
	"github.com/rs/zerolog"
)

// ClassAttendanceService reconciles one class's attendance rows against the
// enrollments of its course and the makeup sessions that reference it.
type ClassAttendanceService struct {
	store repository.Store
	clock *clock.Clock
	log   zerolog.Logger
}

// NewClassAttendanceService creates a new ClassAttendanceService.
func NewClassAttendanceService(store repository.Store, clk *clock.Clock, log zerolog.Logger) *ClassAttendanceService {
	return &ClassAttendanceService{
		store: store,
		clock: clk,
		log:   log.With().Str("component", "class_attendance").Logger(),
	}
}

// CreateForClass creates rows for every confirmed enrollment of the course
// whose window covers the class.
func (s *ClassAttendanceService) CreateForClass(ctx context.Context, c *model.Class) SyncResult {
	if !c.IsActive {
		return skipped("Class %d is inactive", c.ID)
	}

	loc := s.clock.Location()
	result := SyncResult{Status: SyncSuccess}
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		enrollments, err := tx.ListEnrollmentsByCourse(ctx, c.CourseID, model.EnrollmentStatusConfirmed)
		if err != nil {
			return fmt.Errorf("list enrollments: %w", err)
		}
		for i := range enrollments {
			e := &enrollments[i]
			if !IsWithinWindow(e, c, loc) {
				continue
			}
			created, err := ensureAttendance(ctx, tx, e.StudentID, c, loc)
			if err != nil {
				s.log.Warn().Err(err).
					Int64("class_id", c.ID).
					Int64("student_id", e.StudentID).
					Msg("Attendance create failed")
				result.Errors = append(result.Errors, fmt.Sprintf("student %d: %v", e.StudentID, err))
				continue
			}
			if created {
				result.CreatedCount++
			}
		}
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Int64("class_id", c.ID).Msg("Class attendance create failed")
		return failed(err, "Create attendance for class %d failed", c.ID)
	}

	result.Message = fmt.Sprintf("Created %d attendance records for class %d", result.CreatedCount, c.ID)
	if result.CreatedCount > 0 {
		s.log.Info().Int64("class_id", c.ID).Int("created", result.CreatedCount).Msg("Attendance created")
	}
	return result
}

type classPlan struct {
	create []int64
	remove []int64
}

// plan computes the eligible student set before deciding deletions. Makeup
// attendees must be in that set or they would be purged as strangers.
func (s *ClassAttendanceService) plan(ctx context.Context, st repository.Store, c *model.Class) (*classPlan, error) {
	loc := s.clock.Location()

	enrollments, err := st.ListEnrollmentsByCourse(ctx, c.CourseID, model.EnrollmentStatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	targeting, err := st.ListMakeupSessions(ctx, repository.MakeupFilter{
		TargetClassID: c.ID,
		Statuses:      model.AttendanceMakeupStatuses,
	})
	if err != nil {
		return nil, fmt.Errorf("list makeup sessions: %w", err)
	}
	leaving, err := st.ListMakeupSessions(ctx, repository.MakeupFilter{
		SourceClassID: c.ID,
		Statuses:      model.AttendanceMakeupStatuses,
	})
	if err != nil {
		return nil, fmt.Errorf("list makeup sessions: %w", err)
	}
	existing, err := st.ListAttendanceByClass(ctx, c.ID)
	if err != nil {
		return nil, fmt.Errorf("list attendance: %w", err)
	}

	eligible := map[int64]bool{}
	for i := range enrollments {
		if IsWithinWindow(&enrollments[i], c, loc) {
			eligible[enrollments[i].StudentID] = true
		}
	}
	for _, ms := range targeting {
		eligible[ms.StudentID] = true
	}

	// A source row only needs keeping; the makeup engine created it.
	keep := make(map[int64]bool, len(eligible)+len(leaving))
	for id := range eligible {
		keep[id] = true
	}
	for _, ms := range leaving {
		keep[ms.StudentID] = true
	}

	have := make(map[int64]bool, len(existing))
	p := &classPlan{}
	for _, a := range existing {
		have[a.StudentID] = true
		if !keep[a.StudentID] {
			p.remove = append(p.remove, a.ID)
		}
	}
	for id := range eligible {
		if !have[id] {
			p.create = append(p.create, id)
		}
	}
	sort.Slice(p.create, func(i, j int) bool { return p.create[i] < p.create[j] })
	return p, nil
}

// SyncForClass creates rows for every eligible student (window-passing
// confirmed enrollments plus makeup attendees, no-shows included) and
// removes rows for everyone else.
func (s *ClassAttendanceService) SyncForClass(ctx context.Context, c *model.Class) SyncResult {
	if !c.IsActive {
		return skipped("Class %d is inactive", c.ID)
	}

	loc := s.clock.Location()
	result := SyncResult{Status: SyncSuccess}
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		p, err := s.plan(ctx, tx, c)
		if err != nil {
			return err
		}
		for _, studentID := range p.create {
			created, err := ensureAttendance(ctx, tx, studentID, c, loc)
			if err != nil {
				s.log.Warn().Err(err).
					Int64("class_id", c.ID).
					Int64("student_id", studentID).
					Msg("Attendance create failed")
				result.Errors = append(result.Errors, fmt.Sprintf("student %d: %v", studentID, err))
				continue
			}
			if created {
				result.CreatedCount++
				s.log.Debug().Int64("class_id", c.ID).Int64("student_id", studentID).Msg("Attendance row created")
			}
		}
		if len(p.remove) > 0 {
			s.log.Debug().Int64("class_id", c.ID).Ints64("attendance_ids", p.remove).Msg("Removing attendance rows")
		}
		removed, err := tx.DeleteAttendance(ctx, p.remove)
		if err != nil {
			return fmt.Errorf("remove attendance: %w", err)
		}
		result.RemovedCount = removed
		return nil
	})
	if err != nil {
		s.log.Error().Err(err).Int64("class_id", c.ID).Msg("Class attendance sync failed")
		return failed(err, "Sync attendance for class %d failed", c.ID)
	}

	result.Message = fmt.Sprintf("Synced class %d: %d created, %d removed", c.ID, result.CreatedCount, result.RemovedCount)
	if result.CreatedCount > 0 || result.RemovedCount > 0 {
		s.log.Info().
			Int64("class_id", c.ID).
			Int("created", result.CreatedCount).
			Int("removed", result.RemovedCount).
			Msg("Class attendance synced")
	}
	return result
}

// preview reports what SyncForClass would change without writing.
func (s *ClassAttendanceService) preview(ctx context.Context, c *model.Class) (missing []pair, extra []int64, err error) {
	if !c.IsActive {
		return nil, nil, nil
	}
	p, err := s.plan(ctx, s.store, c)
	if err != nil {
		return nil, nil, err
	}
	for _, studentID := range p.create {
		missing = append(missing, pair{studentID: studentID, classID: c.ID})
	}
	return missing, p.remove, nil
}
