package model

import (
	"fmt"
	"strings"
	"time"
)

// TimeOfDay is a wall-clock time stored as the offset from midnight.
type TimeOfDay time.Duration

// NewTimeOfDay builds a TimeOfDay from clock components.
func NewTimeOfDay(hour, minute int) TimeOfDay {
	return TimeOfDay(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)
}

// ParseTimeOfDay accepts "15:04" or "15:04:05".
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	for _, layout := range []string{"15:04:05", "15:04"} {
		if t, err := time.Parse(layout, s); err == nil {
			return TimeOfDay(time.Duration(t.Hour())*time.Hour +
				time.Duration(t.Minute())*time.Minute +
				time.Duration(t.Second())*time.Second), nil
		}
	}
	return 0, fmt.Errorf("invalid time of day %q", s)
}

// Clock returns the hour, minute and second components.
func (t TimeOfDay) Clock() (hour, minute, second int) {
	d := time.Duration(t)
	hour = int(d / time.Hour)
	d -= time.Duration(hour) * time.Hour
	minute = int(d / time.Minute)
	d -= time.Duration(minute) * time.Minute
	second = int(d / time.Second)
	return hour, minute, second
}

// Microseconds is the representation PostgreSQL uses for TIME values.
func (t TimeOfDay) Microseconds() int64 {
	return time.Duration(t).Microseconds()
}

func (t TimeOfDay) String() string {
	h, m, s := t.Clock()
	if s != 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", h, m)
}

func (t TimeOfDay) MarshalJSON() ([]byte, error) {
	return []byte(`"` + t.String() + `"`), nil
}

func (t *TimeOfDay) UnmarshalJSON(b []byte) error {
	parsed, err := ParseTimeOfDay(strings.Trim(string(b), `"`))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// Class is one dated session of a course.
type Class struct {
	ID              int64     `json:"id"`
	CourseID        int64     `json:"course_id"`
	Date            time.Time `json:"date"`
	StartTime       TimeOfDay `json:"start_time"`
	DurationMinutes int       `json:"duration_minutes"`
	TeacherID       *int64    `json:"teacher_id,omitempty"`
	FacilityID      *int64    `json:"facility_id,omitempty"`
	ClassroomID     *int64    `json:"classroom_id,omitempty"`
	IsActive        bool      `json:"is_active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`

	// Course is populated by repository reads.
	Course *Course `json:"course,omitempty"`
}

// DateTime combines Date and StartTime in the given location. Only the
// calendar fields of Date are used, whatever zone the driver attached.
func (c *Class) DateTime(loc *time.Location) time.Time {
	y, m, d := c.Date.Date()
	h, mi, s := c.StartTime.Clock()
	return time.Date(y, m, d, h, mi, s, 0, loc)
}

// CourseName returns the joined course name, or "" when not loaded.
func (c *Class) CourseName() string {
	if c.Course == nil {
		return ""
	}
	return c.Course.Name
}

// EffectiveTeacherID prefers the per-class override over the course default.
func (c *Class) EffectiveTeacherID() *int64 {
	if c.TeacherID != nil {
		return c.TeacherID
	}
	if c.Course != nil {
		return c.Course.TeacherID
	}
	return nil
}

// CreateClassRequest is the payload for persisting a new class.
type CreateClassRequest struct {
	CourseID        int64  `json:"course_id" binding:"required,min=1"`
	Date            string `json:"date" binding:"required,datetime=2006-01-02"`
	StartTime       string `json:"start_time" binding:"required,timeofday"`
	DurationMinutes int    `json:"duration_minutes" binding:"required,min=1,max=1440"`
	TeacherID       *int64 `json:"teacher_id"`
	FacilityID      *int64 `json:"facility_id"`
	ClassroomID     *int64 `json:"classroom_id"`
	IsActive        *bool  `json:"is_active"`
}

// UpdateClassRequest toggles a class's active flag.
type UpdateClassRequest struct {
	IsActive *bool `json:"is_active" binding:"required"`
}
