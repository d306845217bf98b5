package service

import (
	"context"
	"fmt"

	"github.com/edupulse/schoolops-backend/internal/model"
	"github.com/edupulse/schoolops-backend/internal/repository"
	"github.com/rs/zerolog"
)

// AttendanceSyncService sweeps the per-enrollment and per-class
// synchronizers across a course or the whole system. One failing item
// never stops the sweep; its error is recorded and the next item runs.
type AttendanceSyncService struct {
	store       repository.Store
	enrollments *EnrollmentAttendanceService
	classes     *ClassAttendanceService
	log         zerolog.Logger
}

// NewAttendanceSyncService creates a new AttendanceSyncService.
func NewAttendanceSyncService(
	store repository.Store,
	enrollments *EnrollmentAttendanceService,
	classes *ClassAttendanceService,
	log zerolog.Logger,
) *AttendanceSyncService {
	return &AttendanceSyncService{
		store:       store,
		enrollments: enrollments,
		classes:     classes,
		log:         log.With().Str("component", "attendance_sync").Logger(),
	}
}

// GetCourse retrieves a course to sweep.
func (s *AttendanceSyncService) GetCourse(ctx context.Context, id int64) (*model.Course, error) {
	course, err := s.store.GetCourse(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get course: %w", err)
	}
	return course, nil
}

// SyncCourse syncs every confirmed enrollment, then every active class, of
// the course.
func (s *AttendanceSyncService) SyncCourse(ctx context.Context, course *model.Course) BulkSyncResult {
	result := BulkSyncResult{Status: SyncSuccess, ProcessedCourses: 1}
	s.syncCourse(ctx, course, &result)
	s.log.Info().
		Int64("course_id", course.ID).
		Int("created", result.TotalCreated).
		Int("removed", result.TotalRemoved).
		Int("errors", len(result.Errors)).
		Msg("Course attendance synced")
	return result
}

func (s *AttendanceSyncService) syncCourse(ctx context.Context, course *model.Course, result *BulkSyncResult) {
	label := fmt.Sprintf("course %d", course.ID)

	enrollments, err := s.store.ListEnrollmentsByCourse(ctx, course.ID, model.EnrollmentStatusConfirmed)
	if err != nil {
		s.log.Warn().Err(err).Int64("course_id", course.ID).Msg("List enrollments failed")
		result.Errors = append(result.Errors, fmt.Sprintf("%s: list enrollments: %v", label, err))
	}
	for i := range enrollments {
		e := &enrollments[i]
		result.add(fmt.Sprintf("%s enrollment %d", label, e.ID), s.enrollments.SyncForEnrollment(ctx, e))
	}

	classes, err := s.store.ListClassesByCourse(ctx, course.ID, true)
	if err != nil {
		s.log.Warn().Err(err).Int64("course_id", course.ID).Msg("List classes failed")
		result.Errors = append(result.Errors, fmt.Sprintf("%s: list classes: %v", label, err))
	}
	for i := range classes {
		c := &classes[i]
		result.add(fmt.Sprintf("%s class %d", label, c.ID), s.classes.SyncForClass(ctx, c))
	}
}

// SyncAll runs SyncCourse over every course with any enrollment or class.
func (s *AttendanceSyncService) SyncAll(ctx context.Context) BulkSyncResult {
	result := BulkSyncResult{Status: SyncSuccess}

	courses, err := s.store.ListActiveCourses(ctx)
	if err != nil {
		s.log.Error().Err(err).Msg("List courses failed")
		result.Status = SyncError
		result.Errors = append(result.Errors, fmt.Sprintf("list courses: %v", err))
		return result
	}

	for i := range courses {
		if ctx.Err() != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("sweep stopped: %v", ctx.Err()))
			break
		}
		s.syncCourse(ctx, &courses[i], &result)
		result.ProcessedCourses++
	}

	s.log.Info().
		Int("courses", result.ProcessedCourses).
		Int("created", result.TotalCreated).
		Int("removed", result.TotalRemoved).
		Int("errors", len(result.Errors)).
		Msg("System attendance sync finished")
	return result
}

// DryRunCourse reports how many rows SyncCourse would create and remove.
// Pairs reached from both the enrollment and the class side count once.
func (s *AttendanceSyncService) DryRunCourse(ctx context.Context, course *model.Course) BulkSyncResult {
	result := BulkSyncResult{Status: SyncSuccess, DryRun: true, ProcessedCourses: 1}
	s.dryRunCourse(ctx, course, &result)
	return result
}

func (s *AttendanceSyncService) dryRunCourse(ctx context.Context, course *model.Course, result *BulkSyncResult) {
	missing := map[pair]bool{}
	extra := map[int64]bool{}
	collect := func(label string, m []pair, x []int64, err error) {
		if err != nil {
			result.Errors = append(result.Errors, fmt.Sprintf("%s: %v", label, err))
			return
		}
		for _, p := range m {
			missing[p] = true
		}
		for _, id := range x {
			extra[id] = true
		}
	}

	enrollments, err := s.store.ListEnrollmentsByCourse(ctx, course.ID, model.EnrollmentStatusConfirmed)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("course %d: list enrollments: %v", course.ID, err))
	}
	for i := range enrollments {
		m, x, err := s.enrollments.preview(ctx, &enrollments[i])
		collect(fmt.Sprintf("course %d enrollment %d", course.ID, enrollments[i].ID), m, x, err)
	}

	classes, err := s.store.ListClassesByCourse(ctx, course.ID, true)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("course %d: list classes: %v", course.ID, err))
	}
	for i := range classes {
		m, x, err := s.classes.preview(ctx, &classes[i])
		collect(fmt.Sprintf("course %d class %d", course.ID, classes[i].ID), m, x, err)
	}

	result.TotalCreated += len(missing)
	result.TotalRemoved += len(extra)
}

// DryRunAll is DryRunCourse over every course SyncAll would visit.
func (s *AttendanceSyncService) DryRunAll(ctx context.Context) BulkSyncResult {
	result := BulkSyncResult{Status: SyncSuccess, DryRun: true}

	courses, err := s.store.ListActiveCourses(ctx)
	if err != nil {
		result.Status = SyncError
		result.Errors = append(result.Errors, fmt.Sprintf("list courses: %v", err))
		return result
	}
	for i := range courses {
		s.dryRunCourse(ctx, &courses[i], &result)
		result.ProcessedCourses++
	}
	return result
}
