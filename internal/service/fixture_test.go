package service

import (
	"context"
	"testing"
	"time"

	"github.com/edupulse/schoolops-backend/internal/clock"
	"github.com/edupulse/schoolops-backend/internal/model"
	"github.com/edupulse/schoolops-backend/internal/repository/memstore"
	"github.com/rs/zerolog"
)

// perth is a fixed +08:00 zone so tests do not depend on the zone database.
var perth = time.FixedZone("AWST", 8*60*60)

type fixture struct {
	ctx   context.Context
	store *memstore.Store
	clock *clock.Clock
	now   time.Time

	enrollments *EnrollmentAttendanceService
	classes     *ClassAttendanceService
	sync        *AttendanceSyncService
	roster      *RosterService
	makeup      *MakeupService
	lifecycle   *Lifecycle
	attendance  *AttendanceService
	classSvc    *ClassService
	enrollSvc   *EnrollmentService
}

// newFixture builds every service over an empty store with the clock at
// Monday 10 March 2025, 10:00 school time.
func newFixture(t *testing.T) *fixture {
	t.Helper()
	return newFixtureWithCache(t, nil)
}

func newFixtureWithCache(t *testing.T, cache RosterCache) *fixture {
	t.Helper()
	now := time.Date(2025, 3, 10, 10, 0, 0, 0, perth)
	f := &fixture{
		ctx:   context.Background(),
		store: memstore.New(),
		clock: clock.Fixed(now, perth),
		now:   now,
	}
	log := zerolog.Nop()
	f.enrollments = NewEnrollmentAttendanceService(f.store, f.clock, log)
	f.classes = NewClassAttendanceService(f.store, f.clock, log)
	f.sync = NewAttendanceSyncService(f.store, f.enrollments, f.classes, log)
	f.roster = NewRosterService(f.store, f.clock, cache, log)
	f.makeup = NewMakeupService(f.store, f.clock, f.roster, log)
	f.lifecycle = NewLifecycle(f.store, f.enrollments, f.classes, f.roster, log)
	f.attendance = NewAttendanceService(f.store, f.makeup, log)
	f.classSvc = NewClassService(f.store, f.lifecycle)
	f.enrollSvc = NewEnrollmentService(f.store, f.lifecycle)
	return f
}

func (f *fixture) addCourse(name string, teacherID *int64) model.Course {
	return f.store.AddCourse(model.Course{
		Name:      name,
		Status:    model.CourseStatusPublished,
		TeacherID: teacherID,
		IsActive:  true,
	})
}

func (f *fixture) addStudent(first, last string) model.Student {
	return f.store.AddStudent(model.Student{FirstName: first, LastName: last})
}

// addClass stores a class dayOffset days from the fixture's today.
func (f *fixture) addClass(t *testing.T, courseID int64, dayOffset, hour, minute int, active bool) *model.Class {
	t.Helper()
	c := &model.Class{
		CourseID:        courseID,
		Date:            time.Date(2025, 3, 10+dayOffset, 0, 0, 0, 0, time.UTC),
		StartTime:       model.NewTimeOfDay(hour, minute),
		DurationMinutes: 60,
		IsActive:        active,
	}
	if err := f.store.CreateClass(f.ctx, c); err != nil {
		t.Fatalf("create class: %v", err)
	}
	got, err := f.store.GetClass(f.ctx, c.ID)
	if err != nil {
		t.Fatalf("reload class: %v", err)
	}
	return got
}

func (f *fixture) addEnrollment(t *testing.T, studentID, courseID int64, status model.EnrollmentStatus, from, until *time.Time) *model.Enrollment {
	t.Helper()
	e := &model.Enrollment{
		StudentID:   studentID,
		CourseID:    courseID,
		Status:      status,
		ActiveFrom:  from,
		ActiveUntil: until,
	}
	if err := f.store.CreateEnrollment(f.ctx, e); err != nil {
		t.Fatalf("create enrollment: %v", err)
	}
	return e
}

// attendanceOf returns the row for the pair, or nil.
func (f *fixture) attendanceOf(t *testing.T, studentID, classID int64) *model.Attendance {
	t.Helper()
	a, err := f.store.GetAttendance(f.ctx, studentID, classID)
	if err != nil {
		return nil
	}
	return a
}

func (f *fixture) schedule(t *testing.T, studentID, sourceID, targetID int64) *ScheduleResult {
	t.Helper()
	res, err := f.makeup.ScheduleSession(f.ctx, ScheduleRequest{
		StudentID:     studentID,
		SourceClassID: sourceID,
		TargetClassID: targetID,
		InitiatedFrom: model.InitiatedFromSource,
		ReasonType:    model.ReasonStudentRequest,
		Actor:         &model.Actor{ID: 1, Name: "Admin One", Role: model.StaffRoleAdmin},
	})
	if err != nil {
		t.Fatalf("schedule makeup: %v", err)
	}
	return res
}

func timePtr(t time.Time) *time.Time { return &t }

