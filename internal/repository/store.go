package repository

import (
	"context"
	"errors"
	"time"

	"github.com/edupulse/schoolops-backend/internal/model"
)

var (
	// ErrNotFound is returned when a lookup matches no row.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a write would violate a uniqueness rule.
	ErrConflict = errors.New("record conflicts with an existing one")
)

// MakeupFilter narrows ListMakeupSessions. Zero fields are ignored.
type MakeupFilter struct {
	StudentID     int64
	SourceClassID int64
	TargetClassID int64
	Statuses      []model.MakeupStatus
}

// UpcomingClassFilter selects active classes starting at or after From.
// TeacherID restricts to courses taught by that staff member.
type UpcomingClassFilter struct {
	From      time.Time
	TeacherID *int64
}

// Store is the persistence surface used by the services. Implementations
// must honour the (student, class) attendance uniqueness and the
// one-scheduled-makeup-per-pair rule.
type Store interface {
	// WithTx runs fn in a unit of work. Calling WithTx on the Store passed
	// to fn opens a nested unit (a savepoint in PostgreSQL) whose failure
	// does not abort the outer one.
	WithTx(ctx context.Context, fn func(Store) error) error

	GetCourse(ctx context.Context, id int64) (*model.Course, error)
	ListActiveCourses(ctx context.Context) ([]model.Course, error)

	GetClass(ctx context.Context, id int64) (*model.Class, error)
	ListClassesByCourse(ctx context.Context, courseID int64, activeOnly bool) ([]model.Class, error)
	ListUpcomingClasses(ctx context.Context, f UpcomingClassFilter) ([]model.Class, error)
	ListClassesForStudent(ctx context.Context, studentID int64) ([]model.Class, error)
	CreateClass(ctx context.Context, c *model.Class) error
	SetClassActive(ctx context.Context, id int64, active bool) error

	GetStudent(ctx context.Context, id int64) (*model.Student, error)

	GetStaffByEmail(ctx context.Context, email string) (*model.Staff, error)
	GetStaffByID(ctx context.Context, id int64) (*model.Staff, error)
	CreateStaff(ctx context.Context, s *model.Staff) error

	GetEnrollment(ctx context.Context, id int64) (*model.Enrollment, error)
	ListEnrollmentsByCourse(ctx context.Context, courseID int64, statuses ...model.EnrollmentStatus) ([]model.Enrollment, error)
	HasEnrollment(ctx context.Context, studentID, courseID int64, statuses ...model.EnrollmentStatus) (bool, error)
	CreateEnrollment(ctx context.Context, e *model.Enrollment) error
	UpdateEnrollment(ctx context.Context, e *model.Enrollment) error

	GetAttendance(ctx context.Context, studentID, classID int64) (*model.Attendance, error)
	// InsertAttendance stores a unless the pair already exists, reporting
	// whether a row was written.
	InsertAttendance(ctx context.Context, a *model.Attendance) (bool, error)
	ListAttendanceByClass(ctx context.Context, classID int64) ([]model.Attendance, error)
	ListAttendanceByStudentCourse(ctx context.Context, studentID, courseID int64) ([]model.Attendance, error)
	UpdateAttendanceStatus(ctx context.Context, id int64, status model.AttendanceStatus) error
	DeleteAttendance(ctx context.Context, ids []int64) (int, error)

	CreateMakeupSession(ctx context.Context, ms *model.MakeupSession) error
	GetMakeupSession(ctx context.Context, id int64) (*model.MakeupSession, error)
	// LockMakeupSession is GetMakeupSession holding a row lock until the
	// surrounding unit of work ends.
	LockMakeupSession(ctx context.Context, id int64) (*model.MakeupSession, error)
	ListMakeupSessions(ctx context.Context, f MakeupFilter) ([]model.MakeupSession, error)
	UpdateMakeupSession(ctx context.Context, ms *model.MakeupSession) error
}

// GetOrCreateAttendance returns the (student, class) row, inserting a when it
// is missing. A concurrent insert of the same pair is absorbed by rereading
// once.
func GetOrCreateAttendance(ctx context.Context, st Store, a *model.Attendance) (*model.Attendance, bool, error) {
	for attempt := 0; attempt < 2; attempt++ {
		existing, err := st.GetAttendance(ctx, a.StudentID, a.ClassID)
		if err == nil {
			return existing, false, nil
		}
		if !errors.Is(err, ErrNotFound) {
			return nil, false, err
		}

		created, err := st.InsertAttendance(ctx, a)
		if err != nil && !errors.Is(err, ErrConflict) {
			return nil, false, err
		}
		if created {
			return a, true, nil
		}
	}
	existing, err := st.GetAttendance(ctx, a.StudentID, a.ClassID)
	if err != nil {
		return nil, false, err
	}
	return existing, false, nil
}
