package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/bytedance/sonic"
	"github.com/edupulse/schoolops-backend/internal/clock"
	"github.com/edupulse/schoolops-backend/internal/model"
	"github.com/edupulse/schoolops-backend/internal/repository"
	"github.com/rs/zerolog"
)

// RosterEntry is one expected attendee of a class. A student can be on the
// roster through an enrollment, a makeup session, or both.
type RosterEntry struct {
	Student         model.Student       `json:"student"`
	FromEnrollment  bool                `json:"from_enrollment"`
	FromMakeup      bool                `json:"from_makeup"`
	EnrollmentID    *int64              `json:"enrollment_id,omitempty"`
	MakeupStatus    *model.MakeupStatus `json:"makeup_status,omitempty"`
	MakeupSessionID *int64              `json:"makeup_session_id,omitempty"`
}

// RosterCache stores encoded rosters keyed by class and generation.
// Invalidate moves a class to a new generation; Get reports the current
// one even on a miss, and Set files data under the generation the caller
// read. A roster resolved before a concurrent invalidation therefore lands
// under a dead generation and is never served. Implementations must
// tolerate being unavailable; a negative generation means "do not store".
type RosterCache interface {
	Get(ctx context.Context, classID int64) (data []byte, gen int64, ok bool)
	Set(ctx context.Context, classID, gen int64, data []byte)
	Invalidate(ctx context.Context, classIDs ...int64)
}

type noopRosterCache struct{}

func (noopRosterCache) Get(context.Context, int64) ([]byte, int64, bool) { return nil, -1, false }
func (noopRosterCache) Set(context.Context, int64, int64, []byte)        {}
func (noopRosterCache) Invalidate(context.Context, ...int64)             {}

// RosterService resolves who is expected at a class.
type RosterService struct {
	store repository.Store
	clock *clock.Clock
	cache RosterCache
	log   zerolog.Logger
}

// NewRosterService creates a new RosterService. cache may be nil.
func NewRosterService(store repository.Store, clk *clock.Clock, cache RosterCache, log zerolog.Logger) *RosterService {
	if cache == nil {
		cache = noopRosterCache{}
	}
	return &RosterService{
		store: store,
		clock: clk,
		cache: cache,
		log:   log.With().Str("component", "roster").Logger(),
	}
}

// GetRosterEntries merges confirmed enrollments whose window covers the
// class with makeup sessions targeting it in scheduled or completed state,
// sorted by first then last name, case-insensitively.
func (s *RosterService) GetRosterEntries(ctx context.Context, class *model.Class) ([]RosterEntry, error) {
	data, gen, ok := s.cache.Get(ctx, class.ID)
	if ok {
		var entries []RosterEntry
		if err := sonic.Unmarshal(data, &entries); err == nil {
			return entries, nil
		}
		s.log.Warn().Int64("class_id", class.ID).Msg("Discarding undecodable cached roster")
	}

	entries, err := s.resolve(ctx, class)
	if err != nil {
		return nil, err
	}

	if gen >= 0 {
		if data, err := sonic.Marshal(entries); err == nil {
			s.cache.Set(ctx, class.ID, gen, data)
		}
	}
	return entries, nil
}

func (s *RosterService) resolve(ctx context.Context, class *model.Class) ([]RosterEntry, error) {
	enrollments, err := s.store.ListEnrollmentsByCourse(ctx, class.CourseID, model.EnrollmentStatusConfirmed)
	if err != nil {
		return nil, fmt.Errorf("list enrollments: %w", err)
	}
	makeups, err := s.store.ListMakeupSessions(ctx, repository.MakeupFilter{
		TargetClassID: class.ID,
		Statuses:      model.RosterMakeupStatuses,
	})
	if err != nil {
		return nil, fmt.Errorf("list makeup sessions: %w", err)
	}

	loc := s.clock.Location()
	byStudent := map[int64]*RosterEntry{}
	var order []int64
	entryFor := func(st *model.Student, id int64) *RosterEntry {
		if e, ok := byStudent[id]; ok {
			return e
		}
		e := &RosterEntry{Student: model.Student{ID: id}}
		if st != nil {
			e.Student = *st
		}
		byStudent[id] = e
		order = append(order, id)
		return e
	}

	for i := range enrollments {
		en := &enrollments[i]
		if !IsWithinWindow(en, class, loc) {
			continue
		}
		entry := entryFor(en.Student, en.StudentID)
		entry.FromEnrollment = true
		id := en.ID
		entry.EnrollmentID = &id
	}
	for i := range makeups {
		ms := &makeups[i]
		entry := entryFor(ms.Student, ms.StudentID)
		if entry.FromMakeup {
			continue
		}
		entry.FromMakeup = true
		status, id := ms.Status, ms.ID
		entry.MakeupStatus = &status
		entry.MakeupSessionID = &id
	}

	entries := make([]RosterEntry, 0, len(order))
	for _, id := range order {
		entries = append(entries, *byStudent[id])
	}
	sort.SliceStable(entries, func(i, j int) bool {
		a, b := entries[i].Student, entries[j].Student
		if fa, fb := strings.ToLower(a.FirstName), strings.ToLower(b.FirstName); fa != fb {
			return fa < fb
		}
		if la, lb := strings.ToLower(a.LastName), strings.ToLower(b.LastName); la != lb {
			return la < lb
		}
		return a.ID < b.ID
	})
	return entries, nil
}

// InvalidateClasses drops cached rosters for the given classes.
func (s *RosterService) InvalidateClasses(ctx context.Context, classIDs ...int64) {
	s.cache.Invalidate(ctx, classIDs...)
}

// InvalidateCourse drops cached rosters for every class of a course.
func (s *RosterService) InvalidateCourse(ctx context.Context, courseID int64) {
	classes, err := s.store.ListClassesByCourse(ctx, courseID, false)
	if err != nil {
		s.log.Warn().Err(err).Int64("course_id", courseID).Msg("Roster invalidation skipped")
		return
	}
	ids := make([]int64, len(classes))
	for i := range classes {
		ids[i] = classes[i].ID
	}
	s.cache.Invalidate(ctx, ids...)
}
