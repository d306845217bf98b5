package model

import "time"

// MakeupStatus is the state of a makeup session. Scheduled is the only
// non-terminal state.
type MakeupStatus string

const (
	MakeupStatusScheduled MakeupStatus = "scheduled"
	MakeupStatusCompleted MakeupStatus = "completed"
	MakeupStatusCancelled MakeupStatus = "cancelled"
	MakeupStatusNoShow    MakeupStatus = "no_show"
)

// IsValid reports whether s is a known status.
func (s MakeupStatus) IsValid() bool {
	switch s {
	case MakeupStatusScheduled, MakeupStatusCompleted, MakeupStatusCancelled, MakeupStatusNoShow:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is possible.
func (s MakeupStatus) IsTerminal() bool {
	switch s {
	case MakeupStatusCompleted, MakeupStatusCancelled, MakeupStatusNoShow:
		return true
	}
	return false
}

// RosterMakeupStatuses put a student on the expected-attendee roster of
// the target class.
var RosterMakeupStatuses = []MakeupStatus{MakeupStatusScheduled, MakeupStatusCompleted}

// AttendanceMakeupStatuses keep a student's attendance row on the target
// class. NoShow is included: the absence stays on record even though the
// student is no longer expected.
var AttendanceMakeupStatuses = []MakeupStatus{MakeupStatusScheduled, MakeupStatusCompleted, MakeupStatusNoShow}

// InitiatedFrom records which side of the pair the user started from.
type InitiatedFrom string

const (
	InitiatedFromSource InitiatedFrom = "source"
	InitiatedFromTarget InitiatedFrom = "target"
)

// IsValid reports whether i is a known side.
func (i InitiatedFrom) IsValid() bool {
	return i == InitiatedFromSource || i == InitiatedFromTarget
}

// ReasonType categorises why a makeup was arranged.
type ReasonType string

const (
	ReasonStudentRequest   ReasonType = "student_request"
	ReasonIllness          ReasonType = "illness"
	ReasonScheduleConflict ReasonType = "schedule_conflict"
	ReasonAdminAdjustment  ReasonType = "admin_adjustment"
	ReasonOther            ReasonType = "other"
)

// IsValid reports whether r is a known reason.
func (r ReasonType) IsValid() bool {
	switch r {
	case ReasonStudentRequest, ReasonIllness, ReasonScheduleConflict, ReasonAdminAdjustment, ReasonOther:
		return true
	}
	return false
}

// ClassDescriptor freezes what a class looked like when a makeup was booked.
type ClassDescriptor struct {
	ID              int64  `json:"id"`
	CourseID        int64  `json:"course_id"`
	CourseName      string `json:"course_name"`
	Date            string `json:"date"`
	StartTime       string `json:"start_time"`
	DurationMinutes int    `json:"duration_minutes"`
	TeacherID       *int64 `json:"teacher_id,omitempty"`
	FacilityID      *int64 `json:"facility_id,omitempty"`
	ClassroomID     *int64 `json:"classroom_id,omitempty"`
	Label           string `json:"label"`
}

// MakeupSnapshot is stored as JSONB and never rewritten.
type MakeupSnapshot struct {
	SourceClass ClassDescriptor `json:"source_class"`
	TargetClass ClassDescriptor `json:"target_class"`
	CapturedAt  time.Time       `json:"captured_at"`
}

// MakeupSession lets a student attend TargetClass in place of SourceClass.
// CourseID is copied from the source class.
type MakeupSession struct {
	ID            int64          `json:"id"`
	StudentID     int64          `json:"student_id"`
	SourceClassID int64          `json:"source_class_id"`
	TargetClassID int64          `json:"target_class_id"`
	CourseID      int64          `json:"course_id"`
	Status        MakeupStatus   `json:"status"`
	InitiatedFrom InitiatedFrom  `json:"initiated_from"`
	ReasonType    ReasonType     `json:"reason_type"`
	Snapshot      MakeupSnapshot `json:"snapshot"`
	Notes         string         `json:"notes"`
	CreatedBy     *int64         `json:"created_by,omitempty"`
	UpdatedBy     *int64         `json:"updated_by,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	UpdatedAt     time.Time      `json:"updated_at"`

	Student *Student `json:"student,omitempty"`
}

// ScheduleMakeupRequest is the payload for booking a makeup session.
type ScheduleMakeupRequest struct {
	StudentID     int64  `json:"student_id" binding:"required,min=1"`
	SourceClassID int64  `json:"source_class_id" binding:"required,min=1"`
	TargetClassID int64  `json:"target_class_id" binding:"required,min=1"`
	InitiatedFrom string `json:"initiated_from" binding:"required,initiated_from"`
	ReasonType    string `json:"reason_type" binding:"required,reason_type"`
	Notes         string `json:"notes" binding:"max=2000"`
}

// CandidateQuery selects the classes offered when pairing a makeup.
// InitiatedFrom defaults to source.
type CandidateQuery struct {
	StudentID     int64  `form:"student_id" binding:"required,min=1"`
	ClassID       int64  `form:"class_id" binding:"required,min=1"`
	InitiatedFrom string `form:"initiated_from" binding:"omitempty,initiated_from"`
}

// UpdateMakeupStatusRequest is the payload for a status transition.
type UpdateMakeupStatusRequest struct {
	Status string `json:"status" binding:"required"`
	Note   string `json:"note" binding:"max=2000"`
}
