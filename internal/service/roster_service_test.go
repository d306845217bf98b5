package service

import (
	"context"
	"testing"
	"time"

	"github.com/edupulse/schoolops-backend/internal/model"
)

func TestGetRosterEntriesMergesAndSorts(t *testing.T) {
	f := newFixture(t)
	course := f.addCourse("Drama", nil)
	other := f.addCourse("Film", nil)
	zed := f.addStudent("bob", "Zed")
	young := f.addStudent("Alice", "Young")
	adams := f.addStudent("alice", "Adams")
	late := f.addStudent("Carl", "North")
	visitor := f.addStudent("Bea", "Kim")
	both := f.addStudent("Dan", "Ortiz")

	c := f.addClass(t, course.ID, 2, 14, 0, true)
	elsewhere := f.addClass(t, other.ID, 1, 14, 0, true)
	earlier := f.addClass(t, course.ID, 1, 14, 0, true)

	f.addEnrollment(t, zed.ID, course.ID, model.EnrollmentStatusConfirmed, nil, nil)
	f.addEnrollment(t, young.ID, course.ID, model.EnrollmentStatusConfirmed, nil, nil)
	f.addEnrollment(t, adams.ID, course.ID, model.EnrollmentStatusConfirmed, nil, nil)
	f.addEnrollment(t, late.ID, course.ID, model.EnrollmentStatusConfirmed, timePtr(c.DateTime(perth).Add(time.Minute)), nil)
	f.addEnrollment(t, visitor.ID, other.ID, model.EnrollmentStatusConfirmed, nil, nil)
	bothEnrollment := f.addEnrollment(t, both.ID, course.ID, model.EnrollmentStatusConfirmed, nil, nil)

	f.schedule(t, visitor.ID, elsewhere.ID, c.ID)
	bothSession := f.schedule(t, both.ID, earlier.ID, c.ID).MakeupSession

	entries, err := f.roster.GetRosterEntries(f.ctx, c)
	if err != nil {
		t.Fatalf("roster: %v", err)
	}

	wantOrder := []int64{adams.ID, young.ID, visitor.ID, zed.ID, both.ID}
	if len(entries) != len(wantOrder) {
		t.Fatalf("got %d entries, want %d: %+v", len(entries), len(wantOrder), entries)
	}
	for i, id := range wantOrder {
		if entries[i].Student.ID != id {
			t.Fatalf("entry %d is student %d, want %d", i, entries[i].Student.ID, id)
		}
	}

	v := entries[2]
	if v.FromEnrollment || !v.FromMakeup || v.MakeupStatus == nil || *v.MakeupStatus != model.MakeupStatusScheduled {
		t.Fatalf("visitor entry wrong: %+v", v)
	}
	d := entries[4]
	if !d.FromEnrollment || !d.FromMakeup {
		t.Fatalf("student on both paths should carry both flags: %+v", d)
	}
	if *d.EnrollmentID != bothEnrollment.ID || *d.MakeupSessionID != bothSession.ID {
		t.Fatalf("references wrong: %+v", d)
	}
}

func TestGetRosterEntriesKeepsCompletedMakeups(t *testing.T) {
	f := newFixture(t)
	home := f.addCourse("Drama", nil)
	away := f.addCourse("Film", nil)
	s := f.addStudent("Bea", "Kim")
	src := f.addClass(t, home.ID, 1, 14, 0, true)
	tgt := f.addClass(t, away.ID, 2, 14, 0, true)
	f.addEnrollment(t, s.ID, home.ID, model.EnrollmentStatusConfirmed, nil, nil)
	f.schedule(t, s.ID, src.ID, tgt.ID)

	if _, err := f.attendance.Mark(f.ctx, s.ID, tgt.ID, model.AttendancePresent, nil); err != nil {
		t.Fatalf("mark: %v", err)
	}
	entries, err := f.roster.GetRosterEntries(f.ctx, tgt)
	if err != nil {
		t.Fatalf("roster: %v", err)
	}
	if len(entries) != 1 || *entries[0].MakeupStatus != model.MakeupStatusCompleted {
		t.Fatalf("completed makeup should stay on the roster: %+v", entries)
	}
}

type cachedRoster struct {
	gen  int64
	data []byte
}

type mapRosterCache struct {
	data        map[int64]cachedRoster
	gens        map[int64]int64
	hits        int
	invalidated []int64
	beforeSet   func()
}

func newMapRosterCache() *mapRosterCache {
	return &mapRosterCache{data: map[int64]cachedRoster{}, gens: map[int64]int64{}}
}

func (m *mapRosterCache) Get(_ context.Context, id int64) ([]byte, int64, bool) {
	gen := m.gens[id]
	r, ok := m.data[id]
	if !ok || r.gen != gen {
		return nil, gen, false
	}
	m.hits++
	return r.data, gen, true
}

func (m *mapRosterCache) Set(_ context.Context, id, gen int64, b []byte) {
	if m.beforeSet != nil {
		hook := m.beforeSet
		m.beforeSet = nil
		hook()
	}
	m.data[id] = cachedRoster{gen: gen, data: b}
}

func (m *mapRosterCache) Invalidate(_ context.Context, ids ...int64) {
	for _, id := range ids {
		m.gens[id]++
	}
	m.invalidated = append(m.invalidated, ids...)
}

func TestGetRosterEntriesUsesCache(t *testing.T) {
	cache := newMapRosterCache()
	f := newFixtureWithCache(t, cache)
	course := f.addCourse("Drama", nil)
	a := f.addStudent("Ann", "Bell")
	b := f.addStudent("Bo", "Cruz")
	c := f.addClass(t, course.ID, 2, 14, 0, true)
	f.addEnrollment(t, a.ID, course.ID, model.EnrollmentStatusConfirmed, nil, nil)

	first, err := f.roster.GetRosterEntries(f.ctx, c)
	if err != nil || len(first) != 1 {
		t.Fatalf("first read: %v %+v", err, first)
	}
	if _, ok := cache.data[c.ID]; !ok {
		t.Fatal("roster was not cached")
	}

	// Saving through the service invalidates the course's rosters.
	if _, _, err := f.enrollSvc.Create(f.ctx, model.CreateEnrollmentRequest{
		StudentID: b.ID,
		CourseID:  course.ID,
		Status:    string(model.EnrollmentStatusConfirmed),
	}); err != nil {
		t.Fatalf("create enrollment: %v", err)
	}
	second, err := f.roster.GetRosterEntries(f.ctx, c)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if len(second) != 2 {
		t.Fatalf("stale roster served: %+v", second)
	}

	third, _ := f.roster.GetRosterEntries(f.ctx, c)
	if cache.hits == 0 || len(third) != 2 {
		t.Fatalf("cache not used: hits=%d entries=%+v", cache.hits, third)
	}
}

// A makeup committed while a reader is resolving must not be hidden by the
// reader's late cache write.
func TestGetRosterEntriesIgnoresWriteFromBeforeInvalidation(t *testing.T) {
	cache := newMapRosterCache()
	f := newFixtureWithCache(t, cache)
	piano := f.addCourse("Piano", nil)
	violin := f.addCourse("Violin", nil)
	regular := f.addStudent("Ann", "Bell")
	visitor := f.addStudent("Bo", "Cruz")
	src := f.addClass(t, piano.ID, 1, 16, 0, true)
	tgt := f.addClass(t, violin.ID, 2, 16, 0, true)
	f.addEnrollment(t, regular.ID, violin.ID, model.EnrollmentStatusConfirmed, nil, nil)
	f.addEnrollment(t, visitor.ID, piano.ID, model.EnrollmentStatusConfirmed, nil, nil)

	cache.beforeSet = func() { f.schedule(t, visitor.ID, src.ID, tgt.ID) }
	stale, err := f.roster.GetRosterEntries(f.ctx, tgt)
	if err != nil || len(stale) != 1 {
		t.Fatalf("first read: %v %+v", err, stale)
	}

	fresh, err := f.roster.GetRosterEntries(f.ctx, tgt)
	if err != nil {
		t.Fatalf("second read: %v", err)
	}
	if len(fresh) != 2 {
		t.Fatalf("roster resolved before the makeup was served after it: %+v", fresh)
	}
}
