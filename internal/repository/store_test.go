package repository_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/edupulse/schoolops-backend/internal/model"
	"github.com/edupulse/schoolops-backend/internal/repository"
	"github.com/edupulse/schoolops-backend/internal/repository/memstore"
)

// racingStore hides the first n rows from GetAttendance, as if another
// writer inserted them between the read and the insert.
type racingStore struct {
	*memstore.Store
	misses int
}

func (r *racingStore) GetAttendance(ctx context.Context, studentID, classID int64) (*model.Attendance, error) {
	if r.misses > 0 {
		r.misses--
		return nil, repository.ErrNotFound
	}
	return r.Store.GetAttendance(ctx, studentID, classID)
}

func TestGetOrCreateAttendance(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	course := s.AddCourse(model.Course{Name: "Piano"})
	student := s.AddStudent(model.Student{FirstName: "Mia"})
	c := &model.Class{CourseID: course.ID, Date: time.Date(2025, 3, 11, 0, 0, 0, 0, time.UTC), DurationMinutes: 30, IsActive: true}
	if err := s.CreateClass(ctx, c); err != nil {
		t.Fatalf("create class: %v", err)
	}

	a, created, err := repository.GetOrCreateAttendance(ctx, s, &model.Attendance{StudentID: student.ID, ClassID: c.ID, Status: model.AttendanceUnmarked})
	if err != nil || !created || a.ID == 0 {
		t.Fatalf("first call: %+v %v %v", a, created, err)
	}

	again, created, err := repository.GetOrCreateAttendance(ctx, s, &model.Attendance{StudentID: student.ID, ClassID: c.ID, Status: model.AttendancePresent})
	if err != nil || created {
		t.Fatalf("second call: %v %v", created, err)
	}
	if again.ID != a.ID || again.Status != model.AttendanceUnmarked {
		t.Fatalf("existing row not returned: %+v", again)
	}

	// A concurrent insert surfaces as a lost insert followed by a re-read.
	racer := &racingStore{Store: s, misses: 1}
	raced, created, err := repository.GetOrCreateAttendance(ctx, racer, &model.Attendance{StudentID: student.ID, ClassID: c.ID})
	if err != nil || created || raced.ID != a.ID {
		t.Fatalf("raced call: %+v %v %v", raced, created, err)
	}
}

func TestGetOrCreateAttendancePropagatesErrors(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()
	boom := errors.New("connection reset")
	s.FailAttendanceInsert = func(model.Attendance) error { return boom }

	_, _, err := repository.GetOrCreateAttendance(ctx, s, &model.Attendance{StudentID: 1, ClassID: 2})
	if !errors.Is(err, boom) {
		t.Fatalf("expected insert error, got %v", err)
	}
}
