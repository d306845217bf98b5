package service

import (
	"context"
	"fmt"
	"time"

	"github.com/edupulse/schoolops-backend/internal/model"
	"github.com/edupulse/schoolops-backend/internal/repository"
	"github.com/rs/zerolog"
)

// Lifecycle holds the hooks the application calls right after it writes an
// enrollment or a class. Nothing here subscribes to storage events; the
// caller decides when a hook runs.
type Lifecycle struct {
	store       repository.Store
	enrollments *EnrollmentAttendanceService
	classes     *ClassAttendanceService
	roster      *RosterService
	log         zerolog.Logger
}

// NewLifecycle creates a new Lifecycle.
func NewLifecycle(
	store repository.Store,
	enrollments *EnrollmentAttendanceService,
	classes *ClassAttendanceService,
	roster *RosterService,
	log zerolog.Logger,
) *Lifecycle {
	return &Lifecycle{
		store:       store,
		enrollments: enrollments,
		classes:     classes,
		roster:      roster,
		log:         log.With().Str("component", "lifecycle").Logger(),
	}
}

func timePtrEqual(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

// EnrollmentSaved reacts to a persisted enrollment. previous is the row as
// it was before the write, nil for a new enrollment.
//
//   - becoming confirmed creates the missing attendance rows;
//   - a window change on a confirmed enrollment re-syncs it;
//   - leaving confirmed re-syncs the course's active classes, which drops
//     the rows the enrollment no longer justifies.
func (l *Lifecycle) EnrollmentSaved(ctx context.Context, e *model.Enrollment, previous *model.Enrollment) SyncResult {
	l.roster.InvalidateCourse(ctx, e.CourseID)

	wasConfirmed := previous != nil && previous.Status == model.EnrollmentStatusConfirmed
	isConfirmed := e.Status == model.EnrollmentStatusConfirmed

	switch {
	case isConfirmed && !wasConfirmed:
		return l.enrollments.CreateForEnrollment(ctx, e)
	case isConfirmed && wasConfirmed:
		if timePtrEqual(previous.ActiveFrom, e.ActiveFrom) && timePtrEqual(previous.ActiveUntil, e.ActiveUntil) {
			return skipped("Enrollment %d unchanged", e.ID)
		}
		return l.enrollments.SyncForEnrollment(ctx, e)
	case wasConfirmed:
		return l.syncCourseClasses(ctx, e.CourseID)
	}
	return skipped("Enrollment %d is %s, not confirmed", e.ID, e.Status)
}

func (l *Lifecycle) syncCourseClasses(ctx context.Context, courseID int64) SyncResult {
	classes, err := l.store.ListClassesByCourse(ctx, courseID, true)
	if err != nil {
		return failed(err, "List classes of course %d failed", courseID)
	}
	result := SyncResult{Status: SyncSuccess}
	for i := range classes {
		result.add(fmt.Sprintf("class %d", classes[i].ID), l.classes.SyncForClass(ctx, &classes[i]))
	}
	result.Message = fmt.Sprintf("Re-synced %d classes of course %d: %d created, %d removed",
		len(classes), courseID, result.CreatedCount, result.RemovedCount)
	return result
}

// ClassCreated creates attendance for a newly persisted active class.
func (l *Lifecycle) ClassCreated(ctx context.Context, c *model.Class) SyncResult {
	l.roster.InvalidateClasses(ctx, c.ID)
	return l.classes.CreateForClass(ctx, c)
}

// ClassUpdated reacts to an is_active flip. Reactivation syncs the class;
// deactivation re-syncs the course's confirmed enrollments so the rows on
// this class go away.
func (l *Lifecycle) ClassUpdated(ctx context.Context, c *model.Class, wasActive bool) SyncResult {
	l.roster.InvalidateClasses(ctx, c.ID)

	switch {
	case c.IsActive && !wasActive:
		return l.classes.SyncForClass(ctx, c)
	case !c.IsActive && wasActive:
		enrollments, err := l.store.ListEnrollmentsByCourse(ctx, c.CourseID, model.EnrollmentStatusConfirmed)
		if err != nil {
			return failed(err, "List enrollments of course %d failed", c.CourseID)
		}
		result := SyncResult{Status: SyncSuccess}
		for i := range enrollments {
			result.add(fmt.Sprintf("enrollment %d", enrollments[i].ID), l.enrollments.SyncForEnrollment(ctx, &enrollments[i]))
		}
		result.Message = fmt.Sprintf("Class %d deactivated: %d attendance records removed", c.ID, result.RemovedCount)
		l.log.Info().Int64("class_id", c.ID).Int("removed", result.RemovedCount).Msg("Class deactivated")
		return result
	}
	return skipped("Class %d active flag unchanged", c.ID)
}
