package service

import (
	"context"
	"fmt"
	"time"

	"github.com/edupulse/schoolops-backend/internal/model"
	"github.com/edupulse/schoolops-backend/internal/repository"
)

// SyncStatus reports how a synchronization call ended.
type SyncStatus string

const (
	SyncSuccess SyncStatus = "success"
	SyncSkipped SyncStatus = "skipped"
	SyncError   SyncStatus = "error"
)

// SyncResult is returned by the per-enrollment and per-class synchronizers.
// A success may still carry per-item Errors; callers must check both.
type SyncResult struct {
	Status       SyncStatus `json:"status"`
	CreatedCount int        `json:"created_count"`
	RemovedCount int        `json:"removed_count"`
	Message      string     `json:"message"`
	Errors       []string   `json:"errors,omitempty"`
}

func skipped(format string, args ...any) SyncResult {
	return SyncResult{Status: SyncSkipped, Message: fmt.Sprintf(format, args...)}
}

func failed(err error, format string, args ...any) SyncResult {
	msg := fmt.Sprintf(format, args...)
	return SyncResult{Status: SyncError, Message: msg, Errors: []string{fmt.Sprintf("%s: %v", msg, err)}}
}

// add folds r into the receiver, prefixing r's errors with label.
func (s *SyncResult) add(label string, r SyncResult) {
	s.CreatedCount += r.CreatedCount
	s.RemovedCount += r.RemovedCount
	if r.Status == SyncError && len(r.Errors) == 0 {
		s.Errors = append(s.Errors, fmt.Sprintf("%s: %s", label, r.Message))
	}
	for _, e := range r.Errors {
		s.Errors = append(s.Errors, fmt.Sprintf("%s: %s", label, e))
	}
}

// BulkSyncResult is returned by the course and system-wide sweeps.
type BulkSyncResult struct {
	Status           SyncStatus `json:"status"`
	DryRun           bool       `json:"dry_run,omitempty"`
	ProcessedCourses int        `json:"processed_courses"`
	TotalCreated     int        `json:"total_created"`
	TotalRemoved     int        `json:"total_removed"`
	Errors           []string   `json:"errors,omitempty"`
}

func (b *BulkSyncResult) add(label string, r SyncResult) {
	b.TotalCreated += r.CreatedCount
	b.TotalRemoved += r.RemovedCount
	if r.Status == SyncError && len(r.Errors) == 0 {
		b.Errors = append(b.Errors, fmt.Sprintf("%s: %s", label, r.Message))
	}
	for _, e := range r.Errors {
		b.Errors = append(b.Errors, fmt.Sprintf("%s: %s", label, e))
	}
}

// IsWithinWindow reports whether class c falls inside enrollment e's
// eligibility window [ActiveFrom, ActiveUntil). Unset bounds are open.
func IsWithinWindow(e *model.Enrollment, c *model.Class, loc *time.Location) bool {
	at := c.DateTime(loc)
	if e.ActiveFrom != nil && at.Before(*e.ActiveFrom) {
		return false
	}
	if e.ActiveUntil != nil && !at.Before(*e.ActiveUntil) {
		return false
	}
	return true
}

func newAttendance(studentID int64, c *model.Class, loc *time.Location) *model.Attendance {
	return &model.Attendance{
		StudentID:      studentID,
		ClassID:        c.ID,
		Status:         model.DefaultAttendanceStatus,
		AttendanceTime: c.DateTime(loc),
	}
}

// ensureAttendance get-or-creates one row inside its own nested unit of
// work, so a failure leaves the caller's transaction usable.
func ensureAttendance(ctx context.Context, st repository.Store, studentID int64, c *model.Class, loc *time.Location) (bool, error) {
	var created bool
	err := st.WithTx(ctx, func(sp repository.Store) error {
		_, ok, err := repository.GetOrCreateAttendance(ctx, sp, newAttendance(studentID, c, loc))
		created = ok
		return err
	})
	return created, err
}

type pair struct {
	studentID int64
	classID   int64
}
