package service

import (
	"errors"
	"testing"
	"time"

	"github.com/edupulse/schoolops-backend/internal/model"
)

func TestIsWithinWindow(t *testing.T) {
	f := newFixture(t)
	course := f.addCourse("Piano", nil)
	c := f.addClass(t, course.ID, 1, 9, 30, true)
	at := c.DateTime(perth)

	tests := []struct {
		name  string
		from  *time.Time
		until *time.Time
		want  bool
	}{
		{"unbounded", nil, nil, true},
		{"from equals class time", timePtr(at), nil, true},
		{"from after class", timePtr(at.Add(time.Minute)), nil, false},
		{"until equals class time", nil, timePtr(at), false},
		{"until after class", nil, timePtr(at.Add(time.Minute)), true},
		{"inside both bounds", timePtr(at.Add(-time.Hour)), timePtr(at.Add(time.Hour)), true},
		{"same instant in another zone", timePtr(at.UTC()), nil, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := &model.Enrollment{Status: model.EnrollmentStatusConfirmed, ActiveFrom: tt.from, ActiveUntil: tt.until}
			if got := f.enrollments.IsWithinWindow(e, c); got != tt.want {
				t.Fatalf("IsWithinWindow = %v, want %v", got, tt.want)
			}
		})
	}
}

// Confirmed unbounded enrollment in a weekly course with two active
// classes and one inactive class.
func TestCreateForEnrollmentCoversActiveClasses(t *testing.T) {
	f := newFixture(t)
	course := f.addCourse("Guitar", nil)
	s := f.addStudent("Sam", "Lee")
	c1 := f.addClass(t, course.ID, 1, 16, 0, true)
	c2 := f.addClass(t, course.ID, 8, 16, 0, true)
	c3 := f.addClass(t, course.ID, 15, 16, 0, false)
	e := f.addEnrollment(t, s.ID, course.ID, model.EnrollmentStatusConfirmed, nil, nil)

	res := f.enrollments.CreateForEnrollment(f.ctx, e)
	if res.Status != SyncSuccess || res.CreatedCount != 2 || len(res.Errors) != 0 {
		t.Fatalf("unexpected result: %+v", res)
	}

	for _, c := range []*model.Class{c1, c2} {
		a := f.attendanceOf(t, s.ID, c.ID)
		if a == nil {
			t.Fatalf("missing attendance for class %d", c.ID)
		}
		if a.Status != model.AttendanceUnmarked {
			t.Fatalf("expected default status unmarked, got %s", a.Status)
		}
		if !a.AttendanceTime.Equal(c.DateTime(perth)) {
			t.Fatalf("attendance_time %v, want %v", a.AttendanceTime, c.DateTime(perth))
		}
	}
	if f.attendanceOf(t, s.ID, c3.ID) != nil {
		t.Fatal("inactive class must not get attendance")
	}

	again := f.enrollments.CreateForEnrollment(f.ctx, e)
	if again.CreatedCount != 0 {
		t.Fatalf("second create should be a no-op, created %d", again.CreatedCount)
	}
}

func TestCreateForEnrollmentSkipsUnconfirmed(t *testing.T) {
	f := newFixture(t)
	course := f.addCourse("Guitar", nil)
	s := f.addStudent("Sam", "Lee")
	c := f.addClass(t, course.ID, 1, 16, 0, true)

	for _, status := range []model.EnrollmentStatus{model.EnrollmentStatusPending, model.EnrollmentStatusCancelled} {
		e := &model.Enrollment{ID: 99, StudentID: s.ID, CourseID: course.ID, Status: status}
		if res := f.enrollments.CreateForEnrollment(f.ctx, e); res.Status != SyncSkipped {
			t.Fatalf("%s: expected skipped, got %+v", status, res)
		}
		if res := f.enrollments.SyncForEnrollment(f.ctx, e); res.Status != SyncSkipped {
			t.Fatalf("%s: expected skipped sync, got %+v", status, res)
		}
	}
	if f.attendanceOf(t, s.ID, c.ID) != nil {
		t.Fatal("unconfirmed enrollment must not create attendance")
	}
}

func TestSyncForEnrollmentIsIdempotent(t *testing.T) {
	f := newFixture(t)
	course := f.addCourse("Violin", nil)
	s := f.addStudent("Ava", "Ng")
	f.addClass(t, course.ID, 1, 9, 0, true)
	f.addClass(t, course.ID, 8, 9, 0, true)
	f.addClass(t, course.ID, -6, 9, 0, true)
	e := f.addEnrollment(t, s.ID, course.ID, model.EnrollmentStatusConfirmed, nil, nil)

	first := f.enrollments.SyncForEnrollment(f.ctx, e)
	if first.CreatedCount != 3 || first.RemovedCount != 0 {
		t.Fatalf("first sync: %+v", first)
	}
	second := f.enrollments.SyncForEnrollment(f.ctx, e)
	if second.Status != SyncSuccess || second.CreatedCount != 0 || second.RemovedCount != 0 {
		t.Fatalf("second sync should change nothing: %+v", second)
	}
}

func TestSyncForEnrollmentHonoursNarrowedWindow(t *testing.T) {
	f := newFixture(t)
	course := f.addCourse("Violin", nil)
	s := f.addStudent("Ava", "Ng")
	c1 := f.addClass(t, course.ID, 1, 9, 0, true)
	c2 := f.addClass(t, course.ID, 8, 9, 0, true)
	e := f.addEnrollment(t, s.ID, course.ID, model.EnrollmentStatusConfirmed, nil, nil)
	f.enrollments.SyncForEnrollment(f.ctx, e)

	// Transfer out effective after the first class.
	e.ActiveUntil = timePtr(c1.DateTime(perth).Add(24 * time.Hour))
	res := f.enrollments.SyncForEnrollment(f.ctx, e)
	if res.CreatedCount != 0 || res.RemovedCount != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	if f.attendanceOf(t, s.ID, c1.ID) == nil {
		t.Fatal("class inside the window lost its attendance")
	}
	if f.attendanceOf(t, s.ID, c2.ID) != nil {
		t.Fatal("class outside the window kept its attendance")
	}
}

func TestSyncForEnrollmentRemovesDeactivatedClassRows(t *testing.T) {
	f := newFixture(t)
	course := f.addCourse("Violin", nil)
	s := f.addStudent("Ava", "Ng")
	c := f.addClass(t, course.ID, 1, 9, 0, true)
	e := f.addEnrollment(t, s.ID, course.ID, model.EnrollmentStatusConfirmed, nil, nil)
	f.enrollments.SyncForEnrollment(f.ctx, e)

	if err := f.store.SetClassActive(f.ctx, c.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	res := f.enrollments.SyncForEnrollment(f.ctx, e)
	if res.RemovedCount != 1 {
		t.Fatalf("expected 1 removal, got %+v", res)
	}
}

func TestCreateForEnrollmentToleratesPerClassFailure(t *testing.T) {
	f := newFixture(t)
	course := f.addCourse("Drums", nil)
	s := f.addStudent("Max", "Cole")
	bad := f.addClass(t, course.ID, 1, 9, 0, true)
	good := f.addClass(t, course.ID, 2, 9, 0, true)
	e := f.addEnrollment(t, s.ID, course.ID, model.EnrollmentStatusConfirmed, nil, nil)

	f.store.FailAttendanceInsert = func(a model.Attendance) error {
		if a.ClassID == bad.ID {
			return errors.New("disk full")
		}
		return nil
	}

	res := f.enrollments.CreateForEnrollment(f.ctx, e)
	if res.Status != SyncSuccess {
		t.Fatalf("per-class failure must not fail the call: %+v", res)
	}
	if res.CreatedCount != 1 || len(res.Errors) != 1 {
		t.Fatalf("expected 1 created and 1 error, got %+v", res)
	}
	if f.attendanceOf(t, s.ID, good.ID) == nil {
		t.Fatal("healthy class lost its attendance")
	}
	if f.attendanceOf(t, s.ID, bad.ID) != nil {
		t.Fatal("failed class should have no attendance")
	}
}
