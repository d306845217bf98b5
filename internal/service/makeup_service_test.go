package service

import (
	"errors"
	"strings"
	"testing"

	"github.com/edupulse/schoolops-backend/internal/model"
	"github.com/edupulse/schoolops-backend/internal/repository"
)

func TestFormatLabel(t *testing.T) {
	f := newFixture(t)
	course := f.addCourse("Piano Grade 2", nil)
	morning := f.addClass(t, course.ID, 1, 9, 30, true)
	evening := f.addClass(t, course.ID, 2, 18, 5, true)

	if got, want := FormatLabel(morning, perth), "Piano Grade 2 | Tue 11/03/2025 9:30 AM"; got != want {
		t.Fatalf("label = %q, want %q", got, want)
	}
	if got, want := FormatLabel(evening, perth), "Piano Grade 2 | Wed 12/03/2025 6:05 PM"; got != want {
		t.Fatalf("label = %q, want %q", got, want)
	}
}

func TestScheduleSessionWithFutureSource(t *testing.T) {
	f := newFixture(t)
	course := f.addCourse("Piano", nil)
	s := f.addStudent("Mia", "Wong")
	src := f.addClass(t, course.ID, 1, 16, 0, true)
	tgt := f.addClass(t, course.ID, 3, 16, 0, true)
	f.addEnrollment(t, s.ID, course.ID, model.EnrollmentStatusPending, nil, nil)

	res := f.schedule(t, s.ID, src.ID, tgt.ID)

	ms := res.MakeupSession
	if ms.Status != model.MakeupStatusScheduled || ms.CourseID != course.ID {
		t.Fatalf("unexpected session: %+v", ms)
	}
	if ms.CreatedBy == nil || *ms.CreatedBy != 1 {
		t.Fatalf("created_by not recorded: %v", ms.CreatedBy)
	}
	if ms.Snapshot.SourceClass.Label != FormatLabel(src, perth) || ms.Snapshot.TargetClass.ID != tgt.ID {
		t.Fatalf("snapshot not captured: %+v", ms.Snapshot)
	}
	if res.SourceWarning == "" {
		t.Fatal("expected a warning for a future source class")
	}
	if res.SourceAttendance.Status != model.AttendanceUnmarked {
		t.Fatalf("future source must stay unmarked, got %s", res.SourceAttendance.Status)
	}
	if !res.TargetCreated || res.TargetAttendance.Status != model.AttendanceUnmarked {
		t.Fatalf("target attendance not created: %+v", res.TargetAttendance)
	}

	// The snapshot survives later edits to the class.
	if err := f.store.SetClassActive(f.ctx, tgt.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}
	stored, err := f.makeup.GetSession(f.ctx, ms.ID)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if stored.Snapshot.TargetClass.Label != FormatLabel(tgt, perth) {
		t.Fatalf("snapshot changed: %+v", stored.Snapshot.TargetClass)
	}
}

func TestScheduleSessionMarksPastSourceAbsent(t *testing.T) {
	tests := []struct {
		name        string
		existing    model.AttendanceStatus
		want        model.AttendanceStatus
		wantWarning bool
	}{
		{"no attendance yet", "", model.AttendanceAbsent, false},
		{"unmarked", model.AttendanceUnmarked, model.AttendanceAbsent, false},
		{"already absent", model.AttendanceAbsent, model.AttendanceAbsent, false},
		{"present", model.AttendancePresent, model.AttendancePresent, true},
		{"late", model.AttendanceLate, model.AttendanceLate, true},
		{"early leave", model.AttendanceEarlyLeave, model.AttendanceEarlyLeave, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			course := f.addCourse("Piano", nil)
			s := f.addStudent("Mia", "Wong")
			src := f.addClass(t, course.ID, -2, 16, 0, true)
			tgt := f.addClass(t, course.ID, 5, 16, 0, true)
			f.addEnrollment(t, s.ID, course.ID, model.EnrollmentStatusConfirmed, nil, nil)

			if tt.existing != "" {
				a := newAttendance(s.ID, src, perth)
				a.Status = tt.existing
				if _, err := f.store.InsertAttendance(f.ctx, a); err != nil {
					t.Fatalf("seed attendance: %v", err)
				}
			}

			res := f.schedule(t, s.ID, src.ID, tgt.ID)
			if res.SourceAttendance.Status != tt.want {
				t.Fatalf("returned source status %s, want %s", res.SourceAttendance.Status, tt.want)
			}
			if got := f.attendanceOf(t, s.ID, src.ID); got.Status != tt.want {
				t.Fatalf("stored source status %s, want %s", got.Status, tt.want)
			}
			if (res.SourceWarning != "") != tt.wantWarning {
				t.Fatalf("warning = %q, want warning %v", res.SourceWarning, tt.wantWarning)
			}
		})
	}
}

func TestScheduleSessionRejectsDuplicate(t *testing.T) {
	f := newFixture(t)
	course := f.addCourse("Piano", nil)
	s := f.addStudent("Mia", "Wong")
	src := f.addClass(t, course.ID, 1, 16, 0, true)
	tgt := f.addClass(t, course.ID, 3, 16, 0, true)
	f.addEnrollment(t, s.ID, course.ID, model.EnrollmentStatusConfirmed, nil, nil)

	f.schedule(t, s.ID, src.ID, tgt.ID)
	_, err := f.makeup.ScheduleSession(f.ctx, ScheduleRequest{
		StudentID:     s.ID,
		SourceClassID: src.ID,
		TargetClassID: tgt.ID,
		InitiatedFrom: model.InitiatedFromTarget,
		ReasonType:    model.ReasonIllness,
	})
	if !errors.Is(err, repository.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}

	sessions, err := f.store.ListMakeupSessions(f.ctx, repository.MakeupFilter{StudentID: s.ID})
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 1 {
		t.Fatalf("expected exactly one session, got %d", len(sessions))
	}
}

func TestScheduleSessionAfterCancellationIsAllowed(t *testing.T) {
	f := newFixture(t)
	course := f.addCourse("Piano", nil)
	s := f.addStudent("Mia", "Wong")
	src := f.addClass(t, course.ID, 1, 16, 0, true)
	tgt := f.addClass(t, course.ID, 3, 16, 0, true)
	f.addEnrollment(t, s.ID, course.ID, model.EnrollmentStatusConfirmed, nil, nil)

	first := f.schedule(t, s.ID, src.ID, tgt.ID)
	if _, err := f.makeup.UpdateSessionStatus(f.ctx, first.MakeupSession.ID, model.MakeupStatusCancelled, nil, "rebooking"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	second := f.schedule(t, s.ID, src.ID, tgt.ID)
	if second.MakeupSession.ID == first.MakeupSession.ID {
		t.Fatal("expected a new session")
	}
}

func TestScheduleSessionRules(t *testing.T) {
	f := newFixture(t)
	course := f.addCourse("Piano", nil)
	other := f.addCourse("Chess", nil)
	s := f.addStudent("Mia", "Wong")
	stranger := f.addStudent("Zoe", "Hart")
	src := f.addClass(t, course.ID, 1, 16, 0, true)
	future := f.addClass(t, other.ID, 2, 16, 0, true)
	inactive := f.addClass(t, other.ID, 3, 16, 0, false)
	past := f.addClass(t, other.ID, -1, 16, 0, true)
	startingNow := f.addClass(t, other.ID, 0, 10, 0, true)
	f.addEnrollment(t, s.ID, course.ID, model.EnrollmentStatusConfirmed, nil, nil)

	tests := []struct {
		name    string
		req     ScheduleRequest
		wantErr string
	}{
		{"same class", ScheduleRequest{StudentID: s.ID, SourceClassID: src.ID, TargetClassID: src.ID}, CodeSameClass},
		{"inactive target", ScheduleRequest{StudentID: s.ID, SourceClassID: src.ID, TargetClassID: inactive.ID}, CodeTargetInactive},
		{"past target", ScheduleRequest{StudentID: s.ID, SourceClassID: src.ID, TargetClassID: past.ID}, CodeTargetNotUpcoming},
		{"target starting now", ScheduleRequest{StudentID: s.ID, SourceClassID: src.ID, TargetClassID: startingNow.ID}, CodeTargetNotUpcoming},
		{"unrelated student", ScheduleRequest{StudentID: stranger.ID, SourceClassID: src.ID, TargetClassID: future.ID}, CodeStudentNotRelated},
		{"bad initiated_from", ScheduleRequest{StudentID: s.ID, SourceClassID: src.ID, TargetClassID: future.ID, InitiatedFrom: "middle"}, CodeInvalidInitiatedBy},
		{"bad reason", ScheduleRequest{StudentID: s.ID, SourceClassID: src.ID, TargetClassID: future.ID, ReasonType: "boredom"}, CodeInvalidReason},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := tt.req
			if req.InitiatedFrom == "" {
				req.InitiatedFrom = model.InitiatedFromSource
			}
			if req.ReasonType == "" {
				req.ReasonType = model.ReasonOther
			}
			_, err := f.makeup.ScheduleSession(f.ctx, req)
			re, ok := AsRuleError(err)
			if !ok {
				t.Fatalf("expected rule error %s, got %v", tt.wantErr, err)
			}
			if re.Code != tt.wantErr {
				t.Fatalf("code = %s, want %s", re.Code, tt.wantErr)
			}
		})
	}

	sessions, _ := f.store.ListMakeupSessions(f.ctx, repository.MakeupFilter{})
	if len(sessions) != 0 {
		t.Fatalf("rejected requests left %d sessions behind", len(sessions))
	}
	if a := f.attendanceOf(t, s.ID, src.ID); a != nil {
		t.Fatalf("rejected requests left source attendance behind: %+v", a)
	}
}

// A student with no enrollment but an attendance row on the source class
// (a previous visitor) may still be moved.
func TestScheduleSessionAcceptsAttendanceRelationship(t *testing.T) {
	f := newFixture(t)
	course := f.addCourse("Piano", nil)
	visitor := f.addStudent("Ian", "Ross")
	src := f.addClass(t, course.ID, 1, 16, 0, true)
	tgt := f.addClass(t, course.ID, 4, 16, 0, true)
	if _, err := f.store.InsertAttendance(f.ctx, newAttendance(visitor.ID, src, perth)); err != nil {
		t.Fatalf("seed attendance: %v", err)
	}

	if err := f.makeup.ValidateStudentRelationship(f.ctx, visitor.ID, src); err != nil {
		t.Fatalf("relationship rejected: %v", err)
	}
	res := f.schedule(t, visitor.ID, src.ID, tgt.ID)
	if res.TargetAttendance == nil {
		t.Fatal("expected target attendance")
	}
}

func TestUpdateSessionStatusStateMachine(t *testing.T) {
	f := newFixture(t)
	course := f.addCourse("Piano", nil)
	s := f.addStudent("Mia", "Wong")
	src := f.addClass(t, course.ID, 1, 16, 0, true)
	tgt := f.addClass(t, course.ID, 3, 16, 0, true)
	tgt2 := f.addClass(t, course.ID, 5, 16, 0, true)
	f.addEnrollment(t, s.ID, course.ID, model.EnrollmentStatusConfirmed, nil, nil)
	admin := &model.Actor{ID: 1, Name: "Admin One", Role: model.StaffRoleAdmin}

	ms := f.schedule(t, s.ID, src.ID, tgt.ID).MakeupSession

	for _, bogus := range []model.MakeupStatus{"bogus", model.MakeupStatusScheduled} {
		_, err := f.makeup.UpdateSessionStatus(f.ctx, ms.ID, bogus, admin, "")
		if re, ok := AsRuleError(err); !ok || re.Code != CodeInvalidStatus {
			t.Fatalf("%s: expected INVALID_STATUS, got %v", bogus, err)
		}
	}

	done, err := f.makeup.UpdateSessionStatus(f.ctx, ms.ID, model.MakeupStatusCompleted, admin, "")
	if err != nil {
		t.Fatalf("complete: %v", err)
	}
	wantLine := "[2025-03-10 10:00] Status changed to completed by Admin One: "
	if done.Status != model.MakeupStatusCompleted || !strings.HasSuffix(done.Notes, wantLine) {
		t.Fatalf("unexpected session after completion: status=%s notes=%q", done.Status, done.Notes)
	}
	if done.UpdatedBy == nil || *done.UpdatedBy != admin.ID {
		t.Fatalf("updated_by = %v", done.UpdatedBy)
	}

	again, err := f.makeup.UpdateSessionStatus(f.ctx, ms.ID, model.MakeupStatusCompleted, admin, "")
	if err != nil {
		t.Fatalf("same-status update should be a no-op: %v", err)
	}
	if again.Notes != done.Notes {
		t.Fatalf("no-op appended notes: %q", again.Notes)
	}

	_, err = f.makeup.UpdateSessionStatus(f.ctx, ms.ID, model.MakeupStatusCancelled, admin, "changed mind")
	if re, ok := AsRuleError(err); !ok || re.Code != CodeInvalidTransition {
		t.Fatalf("expected INVALID_TRANSITION, got %v", err)
	}

	second := f.schedule(t, s.ID, src.ID, tgt2.ID).MakeupSession
	_, err = f.makeup.UpdateSessionStatus(f.ctx, second.ID, model.MakeupStatusCancelled, admin, "   ")
	if re, ok := AsRuleError(err); !ok || re.Code != CodeNoteRequired {
		t.Fatalf("expected NOTE_REQUIRED, got %v", err)
	}
	cancelled, err := f.makeup.UpdateSessionStatus(f.ctx, second.ID, model.MakeupStatusCancelled, nil, "family trip")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if !strings.HasSuffix(cancelled.Notes, "Status changed to cancelled by System: family trip") {
		t.Fatalf("audit line missing: %q", cancelled.Notes)
	}
}

func TestUpdateSessionStatusUnknownSession(t *testing.T) {
	f := newFixture(t)
	_, err := f.makeup.UpdateSessionStatus(f.ctx, 404, model.MakeupStatusCompleted, nil, "")
	if !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}

// Cancelling a cross-course makeup frees the seat: the visitor's row on
// the target class is released in the same unit of work.
func TestCancelReleasesTargetAttendance(t *testing.T) {
	f := newFixture(t)
	home := f.addCourse("Piano", nil)
	away := f.addCourse("Keyboard", nil)
	s := f.addStudent("Mia", "Wong")
	src := f.addClass(t, home.ID, 1, 16, 0, true)
	tgt := f.addClass(t, away.ID, 2, 16, 0, true)
	f.addEnrollment(t, s.ID, home.ID, model.EnrollmentStatusConfirmed, nil, nil)

	ms := f.schedule(t, s.ID, src.ID, tgt.ID).MakeupSession
	if f.attendanceOf(t, s.ID, tgt.ID) == nil {
		t.Fatal("expected target attendance after scheduling")
	}

	if _, err := f.makeup.UpdateSessionStatus(f.ctx, ms.ID, model.MakeupStatusCancelled, nil, "sick"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if f.attendanceOf(t, s.ID, tgt.ID) != nil {
		t.Fatal("target attendance should be released")
	}
	if f.attendanceOf(t, s.ID, src.ID) == nil {
		t.Fatal("source attendance of an enrolled student must stay")
	}
}

// A target class deactivated after scheduling is skipped by every sync,
// so the cancellation itself must release the visitor's row.
func TestCancelReleasesTargetOnDeactivatedClass(t *testing.T) {
	f := newFixture(t)
	piano := f.addCourse("Piano", nil)
	violin := f.addCourse("Violin", nil)
	s := f.addStudent("Mia", "Wong")
	src := f.addClass(t, piano.ID, 1, 16, 0, true)
	tgt := f.addClass(t, violin.ID, 2, 16, 0, true)
	f.addEnrollment(t, s.ID, piano.ID, model.EnrollmentStatusConfirmed, nil, nil)

	ms := f.schedule(t, s.ID, src.ID, tgt.ID).MakeupSession
	if _, _, err := f.classSvc.SetActive(f.ctx, tgt.ID, false); err != nil {
		t.Fatalf("deactivate target: %v", err)
	}

	if _, err := f.makeup.UpdateSessionStatus(f.ctx, ms.ID, model.MakeupStatusCancelled, nil, "class dropped"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if a := f.attendanceOf(t, s.ID, tgt.ID); a != nil {
		t.Fatalf("row on inactive target survived cancellation: %+v", a)
	}

	res := f.sync.SyncAll(f.ctx)
	if res.TotalCreated != 0 || f.attendanceOf(t, s.ID, tgt.ID) != nil {
		t.Fatalf("sweep brought the row back: %+v", res)
	}
	if f.attendanceOf(t, s.ID, src.ID) == nil {
		t.Fatal("source attendance must stay")
	}
}

func TestCancelKeepsTargetRowStillJustified(t *testing.T) {
	f := newFixture(t)
	piano := f.addCourse("Piano", nil)
	violin := f.addCourse("Violin", nil)
	s := f.addStudent("Mia", "Wong")
	src := f.addClass(t, piano.ID, 1, 16, 0, true)
	src2 := f.addClass(t, piano.ID, 4, 16, 0, true)
	tgt := f.addClass(t, violin.ID, 2, 16, 0, true)
	f.addEnrollment(t, s.ID, piano.ID, model.EnrollmentStatusConfirmed, nil, nil)

	first := f.schedule(t, s.ID, src.ID, tgt.ID).MakeupSession
	f.schedule(t, s.ID, src2.ID, tgt.ID)

	if _, err := f.makeup.UpdateSessionStatus(f.ctx, first.ID, model.MakeupStatusCancelled, nil, "moved"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if f.attendanceOf(t, s.ID, tgt.ID) == nil {
		t.Fatal("row still backed by another scheduled makeup was removed")
	}

	// Enrolled in the target course: the enrollment keeps the row.
	enrolled := f.addStudent("Leo", "Park")
	f.addEnrollment(t, enrolled.ID, piano.ID, model.EnrollmentStatusConfirmed, nil, nil)
	f.addEnrollment(t, enrolled.ID, violin.ID, model.EnrollmentStatusConfirmed, nil, nil)
	if r := f.classes.SyncForClass(f.ctx, tgt); r.Status == SyncError {
		t.Fatalf("sync target: %+v", r)
	}
	ms := f.schedule(t, enrolled.ID, src.ID, tgt.ID).MakeupSession
	if _, err := f.makeup.UpdateSessionStatus(f.ctx, ms.ID, model.MakeupStatusCancelled, nil, "never mind"); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if f.attendanceOf(t, enrolled.ID, tgt.ID) == nil {
		t.Fatal("enrolled student's row was removed")
	}
}

func TestSyncStatusFromTargetAttendance(t *testing.T) {
	tests := []struct {
		status    model.AttendanceStatus
		want      model.MakeupStatus
		wantCount int
	}{
		{model.AttendancePresent, model.MakeupStatusCompleted, 1},
		{model.AttendanceLate, model.MakeupStatusCompleted, 1},
		{model.AttendanceEarlyLeave, model.MakeupStatusCompleted, 1},
		{model.AttendanceAbsent, model.MakeupStatusNoShow, 1},
		{model.AttendanceUnmarked, model.MakeupStatusScheduled, 0},
	}
	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			f := newFixture(t)
			course := f.addCourse("Piano", nil)
			s := f.addStudent("Mia", "Wong")
			src := f.addClass(t, course.ID, 1, 16, 0, true)
			tgt := f.addClass(t, course.ID, 3, 16, 0, true)
			f.addEnrollment(t, s.ID, course.ID, model.EnrollmentStatusConfirmed, nil, nil)
			ms := f.schedule(t, s.ID, src.ID, tgt.ID).MakeupSession

			n, err := f.makeup.SyncStatusFromTargetAttendance(f.ctx, s.ID, tgt.ID, tt.status, nil)
			if err != nil {
				t.Fatalf("sync: %v", err)
			}
			if n != tt.wantCount {
				t.Fatalf("updated %d sessions, want %d", n, tt.wantCount)
			}
			got, _ := f.makeup.GetSession(f.ctx, ms.ID)
			if got.Status != tt.want {
				t.Fatalf("status = %s, want %s", got.Status, tt.want)
			}
			if tt.wantCount > 0 && !strings.Contains(got.Notes, "Auto-updated from target class attendance") {
				t.Fatalf("missing audit note: %q", got.Notes)
			}
		})
	}
}

func TestMarkAttendanceClosesMakeup(t *testing.T) {
	f := newFixture(t)
	course := f.addCourse("Piano", nil)
	s := f.addStudent("Mia", "Wong")
	src := f.addClass(t, course.ID, 1, 16, 0, true)
	tgt := f.addClass(t, course.ID, 3, 16, 0, true)
	f.addEnrollment(t, s.ID, course.ID, model.EnrollmentStatusConfirmed, nil, nil)
	ms := f.schedule(t, s.ID, src.ID, tgt.ID).MakeupSession
	teacher := &model.Actor{ID: 7, Name: "Tina Teach", Role: model.StaffRoleTeacher}

	res, err := f.attendance.Mark(f.ctx, s.ID, tgt.ID, model.AttendancePresent, teacher)
	if err != nil {
		t.Fatalf("mark: %v", err)
	}
	if res.Attendance.Status != model.AttendancePresent || res.MakeupSessionsUpdated != 1 {
		t.Fatalf("unexpected result: %+v", res)
	}
	got, _ := f.makeup.GetSession(f.ctx, ms.ID)
	if got.Status != model.MakeupStatusCompleted || !strings.Contains(got.Notes, "by Tina Teach") {
		t.Fatalf("makeup not completed: %+v", got)
	}

	// Marking the source class leaves the session alone.
	res, err = f.attendance.Mark(f.ctx, s.ID, src.ID, model.AttendanceAbsent, teacher)
	if err != nil {
		t.Fatalf("mark source: %v", err)
	}
	if res.MakeupSessionsUpdated != 0 {
		t.Fatalf("source marking touched %d sessions", res.MakeupSessionsUpdated)
	}

	if _, err := f.attendance.Mark(f.ctx, s.ID, tgt.ID, "asleep", teacher); err == nil {
		t.Fatal("expected an error for an unknown status")
	}
}

func candidateIDs(set *CandidateSet) map[int64]bool {
	ids := map[int64]bool{}
	for _, c := range set.Candidates {
		ids[c.ID] = true
	}
	return ids
}

func TestGetCandidateClasses(t *testing.T) {
	f := newFixture(t)
	teacherID := int64(7)
	piano := f.addCourse("Piano", nil)
	chess := f.addCourse("Chess", &teacherID)
	s := f.addStudent("Mia", "Wong")

	past := f.addClass(t, piano.ID, -7, 16, 0, true)
	started := f.addClass(t, piano.ID, 0, 9, 0, true)
	current := f.addClass(t, piano.ID, 1, 16, 0, true)
	nextWeek := f.addClass(t, piano.ID, 8, 16, 0, true)
	inactive := f.addClass(t, piano.ID, 9, 16, 0, false)
	chessSoon := f.addClass(t, chess.ID, 2, 15, 0, true)
	f.addEnrollment(t, s.ID, piano.ID, model.EnrollmentStatusConfirmed, nil, nil)

	admin := &model.Actor{ID: 1, Name: "Admin", Role: model.StaffRoleAdmin}
	set, err := f.makeup.GetCandidateClasses(f.ctx, s.ID, current.ID, model.InitiatedFromSource, admin)
	if err != nil {
		t.Fatalf("candidates: %v", err)
	}
	ids := candidateIDs(set)
	for _, excluded := range []int64{past.ID, started.ID, current.ID, inactive.ID} {
		if ids[excluded] {
			t.Fatalf("class %d must not be a source-mode candidate", excluded)
		}
	}
	if !ids[nextWeek.ID] || !ids[chessSoon.ID] {
		t.Fatalf("missing upcoming candidates: %v", ids)
	}
	if set.Candidates[0].ID != chessSoon.ID {
		t.Fatalf("candidates not ordered by date: %+v", set.Candidates)
	}
	if set.Student.FullName != "Mia Wong" || set.CurrentClass.ID != current.ID {
		t.Fatalf("unexpected echo: %+v %+v", set.Student, set.CurrentClass)
	}

	teacher := &model.Actor{ID: teacherID, Name: "Tina", Role: model.StaffRoleTeacher}
	set, err = f.makeup.GetCandidateClasses(f.ctx, s.ID, current.ID, model.InitiatedFromSource, teacher)
	if err != nil {
		t.Fatalf("teacher candidates: %v", err)
	}
	if len(set.Candidates) != 1 || set.Candidates[0].ID != chessSoon.ID {
		t.Fatalf("teacher should only see own classes: %+v", set.Candidates)
	}

	set, err = f.makeup.GetCandidateClasses(f.ctx, s.ID, nextWeek.ID, model.InitiatedFromTarget, admin)
	if err != nil {
		t.Fatalf("target candidates: %v", err)
	}
	ids = candidateIDs(set)
	if !ids[past.ID] || !ids[current.ID] {
		t.Fatalf("target mode must include historical classes: %v", ids)
	}
	if ids[nextWeek.ID] || ids[chessSoon.ID] {
		t.Fatalf("target mode leaked unrelated or current classes: %v", ids)
	}

	_, err = f.makeup.GetCandidateClasses(f.ctx, s.ID, current.ID, "sideways", admin)
	if re, ok := AsRuleError(err); !ok || re.Code != CodeInvalidInitiatedBy {
		t.Fatalf("expected INVALID_INITIATED_FROM, got %v", err)
	}
}

func TestListForClass(t *testing.T) {
	f := newFixture(t)
	course := f.addCourse("Piano", nil)
	s := f.addStudent("Mia", "Wong")
	a := f.addClass(t, course.ID, 1, 16, 0, true)
	b := f.addClass(t, course.ID, 3, 16, 0, true)
	c := f.addClass(t, course.ID, 5, 16, 0, true)
	f.addEnrollment(t, s.ID, course.ID, model.EnrollmentStatusConfirmed, nil, nil)
	f.schedule(t, s.ID, a.ID, b.ID)
	f.schedule(t, s.ID, b.ID, c.ID)

	sessions, err := f.makeup.ListForClass(f.ctx, b.ID)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(sessions) != 2 {
		t.Fatalf("expected arriving and leaving sessions, got %d", len(sessions))
	}
	if _, err := f.makeup.ListForClass(f.ctx, 999); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
