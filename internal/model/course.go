package model

import "time"

// CourseStatus is the publication state of a course.
type CourseStatus string

const (
	CourseStatusDraft     CourseStatus = "draft"
	CourseStatusPublished CourseStatus = "published"
	CourseStatusExpired   CourseStatus = "expired"
)

// Course is a recurring offering. Classes are generated from it upstream;
// this backend only reads it.
type Course struct {
	ID          int64        `json:"id"`
	Name        string       `json:"name"`
	Status      CourseStatus `json:"status"`
	TeacherID   *int64       `json:"teacher_id,omitempty"`
	FacilityID  *int64       `json:"facility_id,omitempty"`
	ClassroomID *int64       `json:"classroom_id,omitempty"`
	IsActive    bool         `json:"is_active"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
