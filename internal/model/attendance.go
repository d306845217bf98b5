package model

import "time"

// AttendanceStatus is the outcome recorded for one student at one class.
type AttendanceStatus string

const (
	AttendanceUnmarked   AttendanceStatus = "unmarked"
	AttendancePresent    AttendanceStatus = "present"
	AttendanceAbsent     AttendanceStatus = "absent"
	AttendanceLate       AttendanceStatus = "late"
	AttendanceEarlyLeave AttendanceStatus = "early_leave"
)

// DefaultAttendanceStatus is assigned to every row created by the
// synchronizers and the makeup engine.
const DefaultAttendanceStatus = AttendanceUnmarked

// IsValid reports whether s is a known status.
func (s AttendanceStatus) IsValid() bool {
	switch s {
	case AttendanceUnmarked, AttendancePresent, AttendanceAbsent, AttendanceLate, AttendanceEarlyLeave:
		return true
	}
	return false
}

// Attended is true for statuses that count as showing up.
func (s AttendanceStatus) Attended() bool {
	return s == AttendancePresent || s == AttendanceLate || s == AttendanceEarlyLeave
}

// Attendance is unique per (student, class).
type Attendance struct {
	ID             int64            `json:"id"`
	StudentID      int64            `json:"student_id"`
	ClassID        int64            `json:"class_id"`
	Status         AttendanceStatus `json:"status"`
	AttendanceTime time.Time        `json:"attendance_time"`
	CreatedAt      time.Time        `json:"created_at"`
	UpdatedAt      time.Time        `json:"updated_at"`
}

// MarkAttendanceRequest is the payload for recording an outcome.
type MarkAttendanceRequest struct {
	Status string `json:"status" binding:"required,attendance_status"`
}
