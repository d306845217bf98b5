package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/edupulse/schoolops-backend/internal/service"
	"github.com/rs/zerolog"
)

type fakeSyncer struct {
	res   service.BulkSyncResult
	calls int
}

func (f *fakeSyncer) SyncAll(context.Context) service.BulkSyncResult {
	f.calls++
	return f.res
}

func TestStartAttendanceSweepDisabled(t *testing.T) {
	s, err := StartAttendanceSweep("", time.UTC, nil, zerolog.Nop())
	if err != nil || s != nil {
		t.Fatalf("expected disabled sweep, got %v %v", s, err)
	}
	if st := s.Status(); st.Enabled || st.NextRun != nil {
		t.Fatalf("disabled status = %+v", st)
	}
}

func TestStartAttendanceSweepRejectsBadSpec(t *testing.T) {
	if _, err := StartAttendanceSweep("every tuesday", time.UTC, nil, zerolog.Nop()); err == nil {
		t.Fatal("expected an error for an invalid schedule")
	}
}

func TestStartAttendanceSweepSchedules(t *testing.T) {
	perth := time.FixedZone("AWST", 8*3600)
	s, err := StartAttendanceSweep("30 2 * * *", perth, &fakeSyncer{}, zerolog.Nop())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	st := s.Status()
	if !st.Enabled || st.Schedule != "30 2 * * *" || st.LastRun != nil {
		t.Fatalf("status = %+v", st)
	}
	if st.NextRun == nil {
		t.Fatal("next run missing")
	}
	next := st.NextRun.In(perth)
	if next.Hour() != 2 || next.Minute() != 30 {
		t.Fatalf("next run at %v", next)
	}
}

func TestSweepRunRecordsStatus(t *testing.T) {
	syncer := &fakeSyncer{res: service.BulkSyncResult{
		ProcessedCourses: 3,
		TotalCreated:     7,
		TotalRemoved:     2,
		Errors:           []string{"course 9: boom"},
	}}
	s, err := StartAttendanceSweep("0 3 * * *", time.UTC, syncer, zerolog.Nop())
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	defer s.Stop()

	s.run(context.Background())

	st := s.Status()
	if syncer.calls != 1 || st.LastRun == nil {
		t.Fatalf("calls = %d, status = %+v", syncer.calls, st)
	}
	if st.LastCourses != 3 || st.LastCreated != 7 || st.LastRemoved != 2 || st.LastErrors != 1 {
		t.Fatalf("status = %+v", st)
	}
}
