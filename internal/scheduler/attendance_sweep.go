// Package scheduler runs the periodic system-wide attendance sweep.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/edupulse/schoolops-backend/internal/service"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// SweepTimeout bounds a single scheduled run.
const SweepTimeout = 30 * time.Minute

// courseSyncer is the part of AttendanceSyncService the sweep drives.
type courseSyncer interface {
	SyncAll(ctx context.Context) service.BulkSyncResult
}

// cronLogger forwards robfig/cron's logging to zerolog.
type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

// SweepStatus describes the schedule and the most recent run.
type SweepStatus struct {
	Enabled  bool       `json:"enabled"`
	Schedule string     `json:"schedule,omitempty"`
	NextRun  *time.Time `json:"next_run,omitempty"`
	LastRun  *time.Time `json:"last_run,omitempty"`
	LastTook string     `json:"last_took,omitempty"`

	LastCourses int `json:"last_courses"`
	LastCreated int `json:"last_created"`
	LastRemoved int `json:"last_removed"`
	LastErrors  int `json:"last_errors"`
}

// Sweep is a scheduled SyncAll.
type Sweep struct {
	cron  *cron.Cron
	entry cron.EntryID
	spec  string
	sync  courseSyncer
	log   zerolog.Logger

	mu   sync.Mutex
	last SweepStatus
}

// StartAttendanceSweep schedules SyncAll on spec (standard 5-field cron
// syntax, evaluated in loc). An empty spec disables the sweep and returns
// a nil Sweep. Overlapping runs are skipped.
func StartAttendanceSweep(spec string, loc *time.Location, syncer courseSyncer, log zerolog.Logger) (*Sweep, error) {
	if spec == "" {
		log.Info().Msg("Attendance sweep disabled")
		return nil, nil
	}

	s := &Sweep{
		spec: spec,
		sync: syncer,
		log:  log.With().Str("component", "attendance_sweep").Logger(),
	}
	cl := cronLogger{log: s.log}
	s.cron = cron.New(
		cron.WithLocation(loc),
		cron.WithLogger(cl),
		cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
	)

	entry, err := s.cron.AddFunc(spec, func() {
		ctx, cancel := context.WithTimeout(context.Background(), SweepTimeout)
		defer cancel()
		s.run(ctx)
	})
	if err != nil {
		return nil, fmt.Errorf("schedule attendance sweep %q: %w", spec, err)
	}
	s.entry = entry

	s.cron.Start()
	s.log.Info().Str("schedule", spec).Str("timezone", loc.String()).Msg("Attendance sweep scheduled")
	return s, nil
}

func (s *Sweep) run(ctx context.Context) {
	started := time.Now()
	res := s.sync.SyncAll(ctx)
	took := time.Since(started)

	s.mu.Lock()
	s.last = SweepStatus{
		LastRun:     &started,
		LastTook:    took.Round(time.Millisecond).String(),
		LastCourses: res.ProcessedCourses,
		LastCreated: res.TotalCreated,
		LastRemoved: res.TotalRemoved,
		LastErrors:  len(res.Errors),
	}
	s.mu.Unlock()

	s.log.Info().
		Int("courses", res.ProcessedCourses).
		Int("created", res.TotalCreated).
		Int("removed", res.TotalRemoved).
		Int("errors", len(res.Errors)).
		Dur("took", took).
		Msg("Scheduled attendance sweep finished")
}

// Status reports the schedule and last run. A nil Sweep is disabled.
func (s *Sweep) Status() SweepStatus {
	if s == nil {
		return SweepStatus{}
	}
	s.mu.Lock()
	st := s.last
	s.mu.Unlock()

	st.Enabled = true
	st.Schedule = s.spec
	if next := s.cron.Entry(s.entry).Next; !next.IsZero() {
		st.NextRun = &next
	}
	return st
}

// Stop halts the schedule. The returned context is done once a run in
// progress has finished.
func (s *Sweep) Stop() context.Context {
	return s.cron.Stop()
}
