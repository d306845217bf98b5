// Package memstore is an in-memory repository.Store used by service and
// handler tests. It enforces the same uniqueness rules as the PostgreSQL
// schema. WithTx snapshots the tables and restores them when fn fails.
package memstore

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/edupulse/schoolops-backend/internal/model"
	"github.com/edupulse/schoolops-backend/internal/repository"
)

type tables struct {
	seq         int64
	courses     map[int64]model.Course
	classes     map[int64]model.Class
	students    map[int64]model.Student
	staff       map[int64]model.Staff
	enrollments map[int64]model.Enrollment
	attendances map[int64]model.Attendance
	makeups     map[int64]model.MakeupSession
}

func newTables() *tables {
	return &tables{
		courses:     map[int64]model.Course{},
		classes:     map[int64]model.Class{},
		students:    map[int64]model.Student{},
		staff:       map[int64]model.Staff{},
		enrollments: map[int64]model.Enrollment{},
		attendances: map[int64]model.Attendance{},
		makeups:     map[int64]model.MakeupSession{},
	}
}

func cloneMap[V any](m map[int64]V) map[int64]V {
	out := make(map[int64]V, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (t *tables) clone() *tables {
	return &tables{
		seq:         t.seq,
		courses:     cloneMap(t.courses),
		classes:     cloneMap(t.classes),
		students:    cloneMap(t.students),
		staff:       cloneMap(t.staff),
		enrollments: cloneMap(t.enrollments),
		attendances: cloneMap(t.attendances),
		makeups:     cloneMap(t.makeups),
	}
}

// Store keeps every table in maps behind one mutex.
type Store struct {
	mu sync.RWMutex
	t  *tables

	// FailAttendanceInsert, when set, is called before each attendance
	// insert; a non-nil result aborts that insert.
	FailAttendanceInsert func(a model.Attendance) error
}

var _ repository.Store = (*Store)(nil)

// New returns an empty store.
func New() *Store {
	return &Store{t: newTables()}
}

func (s *Store) nextID() int64 {
	s.t.seq++
	return s.t.seq
}

// WithTx runs fn against the live tables and rolls them back to the state
// at entry when fn returns an error. Nested calls nest the snapshots.
func (s *Store) WithTx(ctx context.Context, fn func(repository.Store) error) error {
	s.mu.Lock()
	snapshot := s.t.clone()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.t = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

// ─── Seeding ────────────────────────────────────────────────────────

// AddCourse stores c, assigning an ID when it has none.
func (s *Store) AddCourse(c model.Course) model.Course {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.ID == 0 {
		c.ID = s.nextID()
	}
	c.CreatedAt, c.UpdatedAt = time.Now(), time.Now()
	s.t.courses[c.ID] = c
	return c
}

// AddStudent stores st, assigning an ID when it has none.
func (s *Store) AddStudent(st model.Student) model.Student {
	s.mu.Lock()
	defer s.mu.Unlock()
	if st.ID == 0 {
		st.ID = s.nextID()
	}
	st.CreatedAt = time.Now()
	s.t.students[st.ID] = st
	return st
}

// ─── Courses ────────────────────────────────────────────────────────

func (s *Store) GetCourse(ctx context.Context, id int64) (*model.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	co, ok := s.t.courses[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &co, nil
}

func (s *Store) ListActiveCourses(ctx context.Context) ([]model.Course, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	used := map[int64]bool{}
	for _, e := range s.t.enrollments {
		used[e.CourseID] = true
	}
	for _, c := range s.t.classes {
		used[c.CourseID] = true
	}
	var out []model.Course
	for id := range used {
		if co, ok := s.t.courses[id]; ok {
			out = append(out, co)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ─── Classes ────────────────────────────────────────────────────────

func (s *Store) withCourse(c model.Class) model.Class {
	if co, ok := s.t.courses[c.CourseID]; ok {
		c.Course = &co
	}
	return c
}

func (s *Store) sortedClasses(keep func(model.Class) bool) []model.Class {
	var out []model.Class
	for _, c := range s.t.classes {
		if keep(c) {
			out = append(out, s.withCourse(c))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.Before(b.Date)
		}
		if a.StartTime != b.StartTime {
			return a.StartTime < b.StartTime
		}
		if a.CourseName() != b.CourseName() {
			return a.CourseName() < b.CourseName()
		}
		return a.ID < b.ID
	})
	return out
}

func (s *Store) GetClass(ctx context.Context, id int64) (*model.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.t.classes[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	c = s.withCourse(c)
	return &c, nil
}

func (s *Store) ListClassesByCourse(ctx context.Context, courseID int64, activeOnly bool) ([]model.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedClasses(func(c model.Class) bool {
		return c.CourseID == courseID && (c.IsActive || !activeOnly)
	}), nil
}

func (s *Store) ListUpcomingClasses(ctx context.Context, f repository.UpcomingClassFilter) ([]model.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	from := f.From.Truncate(time.Second)
	return s.sortedClasses(func(c model.Class) bool {
		if !c.IsActive || c.DateTime(f.From.Location()).Before(from) {
			return false
		}
		if f.TeacherID != nil {
			co, ok := s.t.courses[c.CourseID]
			return ok && co.TeacherID != nil && *co.TeacherID == *f.TeacherID
		}
		return true
	}), nil
}

func (s *Store) ListClassesForStudent(ctx context.Context, studentID int64) ([]model.Class, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	courses := map[int64]bool{}
	for _, e := range s.t.enrollments {
		if e.StudentID == studentID && e.Status != model.EnrollmentStatusCancelled {
			courses[e.CourseID] = true
		}
	}
	classes := map[int64]bool{}
	for _, a := range s.t.attendances {
		if a.StudentID == studentID {
			classes[a.ClassID] = true
		}
	}
	for _, m := range s.t.makeups {
		if m.StudentID == studentID {
			classes[m.SourceClassID] = true
			classes[m.TargetClassID] = true
		}
	}
	return s.sortedClasses(func(c model.Class) bool {
		return courses[c.CourseID] || classes[c.ID]
	}), nil
}

func (s *Store) CreateClass(ctx context.Context, c *model.Class) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.t.courses[c.CourseID]; !ok {
		return fmt.Errorf("course %d: %w", c.CourseID, repository.ErrNotFound)
	}
	c.ID = s.nextID()
	c.CreatedAt, c.UpdatedAt = time.Now(), time.Now()
	stored := *c
	stored.Course = nil
	s.t.classes[c.ID] = stored
	return nil
}

func (s *Store) SetClassActive(ctx context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.t.classes[id]
	if !ok {
		return repository.ErrNotFound
	}
	c.IsActive = active
	c.UpdatedAt = time.Now()
	s.t.classes[id] = c
	return nil
}

// ─── Students & staff ───────────────────────────────────────────────

func (s *Store) GetStudent(ctx context.Context, id int64) (*model.Student, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.t.students[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &st, nil
}

func (s *Store) GetStaffByEmail(ctx context.Context, email string) (*model.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, st := range s.t.staff {
		if strings.EqualFold(st.Email, email) {
			return &st, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) GetStaffByID(ctx context.Context, id int64) (*model.Staff, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	st, ok := s.t.staff[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &st, nil
}

func (s *Store) CreateStaff(ctx context.Context, st *model.Staff) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.t.staff {
		if strings.EqualFold(existing.Email, st.Email) {
			return fmt.Errorf("%w: staff_email_uniq", repository.ErrConflict)
		}
	}
	st.ID = s.nextID()
	st.CreatedAt, st.UpdatedAt = time.Now(), time.Now()
	s.t.staff[st.ID] = *st
	return nil
}

// ─── Enrollments ────────────────────────────────────────────────────

func hasStatus[S comparable](statuses []S, v S) bool {
	if len(statuses) == 0 {
		return true
	}
	for _, s := range statuses {
		if s == v {
			return true
		}
	}
	return false
}

func (s *Store) GetEnrollment(ctx context.Context, id int64) (*model.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.t.enrollments[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &e, nil
}

func (s *Store) ListEnrollmentsByCourse(ctx context.Context, courseID int64, statuses ...model.EnrollmentStatus) ([]model.Enrollment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.Enrollment
	for _, e := range s.t.enrollments {
		if e.CourseID != courseID || !hasStatus(statuses, e.Status) {
			continue
		}
		if st, ok := s.t.students[e.StudentID]; ok {
			e.Student = &st
		}
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) HasEnrollment(ctx context.Context, studentID, courseID int64, statuses ...model.EnrollmentStatus) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, e := range s.t.enrollments {
		if e.StudentID == studentID && e.CourseID == courseID && hasStatus(statuses, e.Status) {
			return true, nil
		}
	}
	return false, nil
}

func (s *Store) CreateEnrollment(ctx context.Context, e *model.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.t.enrollments {
		if existing.StudentID == e.StudentID && existing.CourseID == e.CourseID {
			return fmt.Errorf("%w: enrollments_student_course_uniq", repository.ErrConflict)
		}
	}
	if _, ok := s.t.students[e.StudentID]; !ok {
		return fmt.Errorf("student %d: %w", e.StudentID, repository.ErrNotFound)
	}
	e.ID = s.nextID()
	e.CreatedAt, e.UpdatedAt = time.Now(), time.Now()
	stored := *e
	stored.Student, stored.Course = nil, nil
	s.t.enrollments[e.ID] = stored
	return nil
}

func (s *Store) UpdateEnrollment(ctx context.Context, e *model.Enrollment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.t.enrollments[e.ID]
	if !ok {
		return repository.ErrNotFound
	}
	stored.Status = e.Status
	stored.ActiveFrom = e.ActiveFrom
	stored.ActiveUntil = e.ActiveUntil
	stored.UpdatedAt = time.Now()
	e.UpdatedAt = stored.UpdatedAt
	s.t.enrollments[e.ID] = stored
	return nil
}

// ─── Attendance ─────────────────────────────────────────────────────

func (s *Store) GetAttendance(ctx context.Context, studentID, classID int64) (*model.Attendance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, a := range s.t.attendances {
		if a.StudentID == studentID && a.ClassID == classID {
			return &a, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (s *Store) InsertAttendance(ctx context.Context, a *model.Attendance) (bool, error) {
	if s.FailAttendanceInsert != nil {
		if err := s.FailAttendanceInsert(*a); err != nil {
			return false, err
		}
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.t.attendances {
		if existing.StudentID == a.StudentID && existing.ClassID == a.ClassID {
			return false, nil
		}
	}
	a.ID = s.nextID()
	a.CreatedAt, a.UpdatedAt = time.Now(), time.Now()
	s.t.attendances[a.ID] = *a
	return true, nil
}

func (s *Store) sortedAttendance(keep func(model.Attendance) bool) []model.Attendance {
	var out []model.Attendance
	for _, a := range s.t.attendances {
		if keep(a) {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

func (s *Store) ListAttendanceByClass(ctx context.Context, classID int64) ([]model.Attendance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedAttendance(func(a model.Attendance) bool { return a.ClassID == classID }), nil
}

func (s *Store) ListAttendanceByStudentCourse(ctx context.Context, studentID, courseID int64) ([]model.Attendance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.sortedAttendance(func(a model.Attendance) bool {
		c, ok := s.t.classes[a.ClassID]
		return a.StudentID == studentID && ok && c.CourseID == courseID
	}), nil
}

func (s *Store) UpdateAttendanceStatus(ctx context.Context, id int64, status model.AttendanceStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	a, ok := s.t.attendances[id]
	if !ok {
		return repository.ErrNotFound
	}
	a.Status = status
	a.UpdatedAt = time.Now()
	s.t.attendances[id] = a
	return nil
}

func (s *Store) DeleteAttendance(ctx context.Context, ids []int64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, id := range ids {
		if _, ok := s.t.attendances[id]; ok {
			delete(s.t.attendances, id)
			n++
		}
	}
	return n, nil
}

// ─── Makeup sessions ────────────────────────────────────────────────

func (s *Store) withStudent(ms model.MakeupSession) model.MakeupSession {
	if st, ok := s.t.students[ms.StudentID]; ok {
		ms.Student = &st
	}
	return ms
}

func (s *Store) CreateMakeupSession(ctx context.Context, ms *model.MakeupSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if ms.SourceClassID == ms.TargetClassID {
		return fmt.Errorf("makeup_sessions_distinct_classes: source and target are both %d", ms.SourceClassID)
	}
	if ms.Status == model.MakeupStatusScheduled {
		for _, existing := range s.t.makeups {
			if existing.Status == model.MakeupStatusScheduled &&
				existing.StudentID == ms.StudentID &&
				existing.SourceClassID == ms.SourceClassID &&
				existing.TargetClassID == ms.TargetClassID {
				return fmt.Errorf("%w: makeup_sessions_scheduled_pair_uniq", repository.ErrConflict)
			}
		}
	}
	ms.ID = s.nextID()
	ms.CreatedAt, ms.UpdatedAt = time.Now(), time.Now()
	ms.UpdatedBy = ms.CreatedBy
	stored := *ms
	stored.Student = nil
	s.t.makeups[ms.ID] = stored
	return nil
}

func (s *Store) GetMakeupSession(ctx context.Context, id int64) (*model.MakeupSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ms, ok := s.t.makeups[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	ms = s.withStudent(ms)
	return &ms, nil
}

// LockMakeupSession has nothing to lock in memory.
func (s *Store) LockMakeupSession(ctx context.Context, id int64) (*model.MakeupSession, error) {
	return s.GetMakeupSession(ctx, id)
}

func (s *Store) ListMakeupSessions(ctx context.Context, f repository.MakeupFilter) ([]model.MakeupSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []model.MakeupSession
	for _, ms := range s.t.makeups {
		if f.StudentID != 0 && ms.StudentID != f.StudentID {
			continue
		}
		if f.SourceClassID != 0 && ms.SourceClassID != f.SourceClassID {
			continue
		}
		if f.TargetClassID != 0 && ms.TargetClassID != f.TargetClassID {
			continue
		}
		if !hasStatus(f.Statuses, ms.Status) {
			continue
		}
		out = append(out, s.withStudent(ms))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) UpdateMakeupSession(ctx context.Context, ms *model.MakeupSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored, ok := s.t.makeups[ms.ID]
	if !ok {
		return repository.ErrNotFound
	}
	if ms.Status == model.MakeupStatusScheduled && stored.Status != model.MakeupStatusScheduled {
		for id, existing := range s.t.makeups {
			if id != ms.ID && existing.Status == model.MakeupStatusScheduled &&
				existing.StudentID == stored.StudentID &&
				existing.SourceClassID == stored.SourceClassID &&
				existing.TargetClassID == stored.TargetClassID {
				return fmt.Errorf("%w: makeup_sessions_scheduled_pair_uniq", repository.ErrConflict)
			}
		}
	}
	stored.Status = ms.Status
	stored.Notes = ms.Notes
	stored.UpdatedBy = ms.UpdatedBy
	stored.UpdatedAt = time.Now()
	ms.UpdatedAt = stored.UpdatedAt
	s.t.makeups[ms.ID] = stored
	return nil
}
