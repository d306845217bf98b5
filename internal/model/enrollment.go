package model

import "time"

// EnrollmentStatus is the lifecycle state of an enrollment.
type EnrollmentStatus string

const (
	EnrollmentStatusPending   EnrollmentStatus = "pending"
	EnrollmentStatusConfirmed EnrollmentStatus = "confirmed"
	EnrollmentStatusCancelled EnrollmentStatus = "cancelled"
)

// IsValid reports whether s is a known status.
func (s EnrollmentStatus) IsValid() bool {
	switch s {
	case EnrollmentStatusPending, EnrollmentStatusConfirmed, EnrollmentStatusCancelled:
		return true
	}
	return false
}

// Enrollment is a student's membership in a course. ActiveFrom and
// ActiveUntil bound the classes it counts for: [from, until).
type Enrollment struct {
	ID          int64            `json:"id"`
	StudentID   int64            `json:"student_id"`
	CourseID    int64            `json:"course_id"`
	Status      EnrollmentStatus `json:"status"`
	ActiveFrom  *time.Time       `json:"active_from,omitempty"`
	ActiveUntil *time.Time       `json:"active_until,omitempty"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`

	Student *Student `json:"student,omitempty"`
	Course  *Course  `json:"course,omitempty"`
}

// CreateEnrollmentRequest is the payload for persisting an enrollment.
type CreateEnrollmentRequest struct {
	StudentID   int64      `json:"student_id" binding:"required,min=1"`
	CourseID    int64      `json:"course_id" binding:"required,min=1"`
	Status      string     `json:"status" binding:"omitempty,enrollment_status"`
	ActiveFrom  *time.Time `json:"active_from"`
	ActiveUntil *time.Time `json:"active_until"`
}

// UpdateEnrollmentRequest changes the status and/or eligibility window.
// ClearWindow drops both bounds.
type UpdateEnrollmentRequest struct {
	Status      string     `json:"status" binding:"omitempty,enrollment_status"`
	ActiveFrom  *time.Time `json:"active_from"`
	ActiveUntil *time.Time `json:"active_until"`
	ClearWindow bool       `json:"clear_window"`
}
