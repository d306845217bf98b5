package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/edupulse/schoolops-backend/internal/clock"
	"github.com/edupulse/schoolops-backend/internal/model"
	"github.com/edupulse/schoolops-backend/internal/repository"
	"github.com/rs/zerolog"
)

const (
	labelLayout = "Mon 02/01/2006 3:04 PM"
	noteLayout  = "2006-01-02 15:04"
)

// FormatLabel renders "{course} | {weekday dd/mm/yyyy} {12h time}".
func FormatLabel(c *model.Class, loc *time.Location) string {
	return fmt.Sprintf("%s | %s", c.CourseName(), c.DateTime(loc).Format(labelLayout))
}

// Candidate is one class offered as the other side of a makeup.
type Candidate struct {
	ID         int64  `json:"id"`
	CourseID   int64  `json:"course_id"`
	CourseName string `json:"course_name"`
	Date       string `json:"date"`
	StartTime  string `json:"start_time"`
	Label      string `json:"label"`
}

// CandidateSet answers "which classes could pair with this one".
type CandidateSet struct {
	InitiatedFrom model.InitiatedFrom `json:"initiated_from"`
	Student       CandidateStudent    `json:"student"`
	CurrentClass  Candidate           `json:"current_class"`
	Candidates    []Candidate         `json:"candidates"`
}

// CandidateStudent is the student metadata echoed with candidates.
type CandidateStudent struct {
	ID        int64  `json:"id"`
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	FullName  string `json:"full_name"`
}

// ScheduleRequest carries everything ScheduleSession needs.
type ScheduleRequest struct {
	StudentID     int64
	SourceClassID int64
	TargetClassID int64
	InitiatedFrom model.InitiatedFrom
	ReasonType    model.ReasonType
	Notes         string
	Actor         *model.Actor
}

// ScheduleResult is what a successful ScheduleSession returns.
type ScheduleResult struct {
	MakeupSession    *model.MakeupSession `json:"makeup_session"`
	SourceAttendance *model.Attendance    `json:"source_attendance"`
	TargetAttendance *model.Attendance    `json:"target_attendance"`
	TargetCreated    bool                 `json:"target_created"`
	SourceWarning    string               `json:"source_warning,omitempty"`
}

// MakeupService runs the makeup session workflow: scheduled is the only
// live state; completed, cancelled and no_show are terminal.
type MakeupService struct {
	store   repository.Store
	clock   *clock.Clock
	roster *RosterService
	log    zerolog.Logger
}

// NewMakeupService creates a new MakeupService.
func NewMakeupService(store repository.Store, clk *clock.Clock, roster *RosterService, log zerolog.Logger) *MakeupService {
	return &MakeupService{
		store:  store,
		clock:  clk,
		roster: roster,
		log:    log.With().Str("component", "makeup").Logger(),
	}
}

func (s *MakeupService) candidate(c *model.Class) Candidate {
	return Candidate{
		ID:         c.ID,
		CourseID:   c.CourseID,
		CourseName: c.CourseName(),
		Date:       c.Date.Format("2006-01-02"),
		StartTime:  c.StartTime.String(),
		Label:      FormatLabel(c, s.clock.Location()),
	}
}

// GetCandidateClasses lists classes that could pair with currentClassID.
// From a target, the pool is every class the student is linked to, past
// ones included. From a source, it is every upcoming active class, limited
// to a teacher's own courses when the actor is a teacher.
func (s *MakeupService) GetCandidateClasses(ctx context.Context, studentID, currentClassID int64, initiatedFrom model.InitiatedFrom, actor *model.Actor) (*CandidateSet, error) {
	if !initiatedFrom.IsValid() {
		return nil, ruleErr(CodeInvalidInitiatedBy, "initiated_from must be \"source\" or \"target\", got %q", initiatedFrom)
	}

	student, err := s.store.GetStudent(ctx, studentID)
	if err != nil {
		return nil, fmt.Errorf("get student: %w", err)
	}
	current, err := s.store.GetClass(ctx, currentClassID)
	if err != nil {
		return nil, fmt.Errorf("get class: %w", err)
	}

	var pool []model.Class
	if initiatedFrom == model.InitiatedFromTarget {
		pool, err = s.store.ListClassesForStudent(ctx, studentID)
	} else {
		f := repository.UpcomingClassFilter{From: s.clock.Now()}
		if actor.IsTeacher() {
			f.TeacherID = &actor.ID
		}
		pool, err = s.store.ListUpcomingClasses(ctx, f)
	}
	if err != nil {
		return nil, fmt.Errorf("list candidate classes: %w", err)
	}

	set := &CandidateSet{
		InitiatedFrom: initiatedFrom,
		Student: CandidateStudent{
			ID:        student.ID,
			FirstName: student.FirstName,
			LastName:  student.LastName,
			FullName:  student.FullName(),
		},
		CurrentClass: s.candidate(current),
		Candidates:   make([]Candidate, 0, len(pool)),
	}
	for i := range pool {
		if pool[i].ID == current.ID {
			continue
		}
		set.Candidates = append(set.Candidates, s.candidate(&pool[i]))
	}
	return set, nil
}

// ValidateStudentRelationship fails unless the student holds a pending or
// confirmed enrollment in the source class's course, or already has an
// attendance row for the source class.
func (s *MakeupService) ValidateStudentRelationship(ctx context.Context, studentID int64, source *model.Class) error {
	return validateStudentRelationship(ctx, s.store, studentID, source)
}

func validateStudentRelationship(ctx context.Context, st repository.Store, studentID int64, source *model.Class) error {
	enrolled, err := st.HasEnrollment(ctx, studentID, source.CourseID,
		model.EnrollmentStatusPending, model.EnrollmentStatusConfirmed)
	if err != nil {
		return fmt.Errorf("check enrollment: %w", err)
	}
	if enrolled {
		return nil
	}
	_, err = st.GetAttendance(ctx, studentID, source.ID)
	if err == nil {
		return nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("check attendance: %w", err)
	}
	return ruleErr(CodeStudentNotRelated,
		"Student %d is not enrolled in %s and has no attendance for the source class. Choose a class the student belongs to.",
		studentID, source.CourseName())
}

// ValidateClassPair fails unless target is a different, active class that
// starts after now.
func (s *MakeupService) ValidateClassPair(source, target *model.Class, now time.Time) error {
	if source.ID == target.ID {
		return ruleErr(CodeSameClass, "Source and target class must be different.")
	}
	if !target.IsActive {
		return ruleErr(CodeTargetInactive, "Target class %s is inactive. Pick an active class.",
			FormatLabel(target, s.clock.Location()))
	}
	if !target.DateTime(s.clock.Location()).After(now) {
		return ruleErr(CodeTargetNotUpcoming, "Target class %s has already started. Pick a future class.",
			FormatLabel(target, s.clock.Location()))
	}
	return nil
}

func (s *MakeupService) describe(c *model.Class) model.ClassDescriptor {
	return model.ClassDescriptor{
		ID:              c.ID,
		CourseID:        c.CourseID,
		CourseName:      c.CourseName(),
		Date:            c.Date.Format("2006-01-02"),
		StartTime:       c.StartTime.String(),
		DurationMinutes: c.DurationMinutes,
		TeacherID:       c.EffectiveTeacherID(),
		FacilityID:      c.FacilityID,
		ClassroomID:     c.ClassroomID,
		Label:           FormatLabel(c, s.clock.Location()),
	}
}

// ScheduleSession books a makeup in one transaction: the session row, the
// source attendance (marked absent when the source has passed and nobody
// recorded attendance) and the target attendance.
func (s *MakeupService) ScheduleSession(ctx context.Context, req ScheduleRequest) (*ScheduleResult, error) {
	if req.SourceClassID == req.TargetClassID {
		return nil, ruleErr(CodeSameClass, "Source and target class must be different.")
	}
	if !req.InitiatedFrom.IsValid() {
		return nil, ruleErr(CodeInvalidInitiatedBy, "initiated_from must be \"source\" or \"target\", got %q", req.InitiatedFrom)
	}
	if !req.ReasonType.IsValid() {
		return nil, ruleErr(CodeInvalidReason, "Unknown reason type %q.", req.ReasonType)
	}

	now := s.clock.Now()
	loc := s.clock.Location()
	var result ScheduleResult

	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		student, err := tx.GetStudent(ctx, req.StudentID)
		if err != nil {
			return fmt.Errorf("get student: %w", err)
		}
		source, err := tx.GetClass(ctx, req.SourceClassID)
		if err != nil {
			return fmt.Errorf("get source class: %w", err)
		}
		target, err := tx.GetClass(ctx, req.TargetClassID)
		if err != nil {
			return fmt.Errorf("get target class: %w", err)
		}

		if err := validateStudentRelationship(ctx, tx, student.ID, source); err != nil {
			return err
		}
		if err := s.ValidateClassPair(source, target, now); err != nil {
			return err
		}

		ms := &model.MakeupSession{
			StudentID:     student.ID,
			SourceClassID: source.ID,
			TargetClassID: target.ID,
			CourseID:      source.CourseID,
			Status:        model.MakeupStatusScheduled,
			InitiatedFrom: req.InitiatedFrom,
			ReasonType:    req.ReasonType,
			Snapshot: model.MakeupSnapshot{
				SourceClass: s.describe(source),
				TargetClass: s.describe(target),
				CapturedAt:  now,
			},
			Notes:     strings.TrimSpace(req.Notes),
			CreatedBy: req.Actor.IDPtr(),
		}
		if err := tx.CreateMakeupSession(ctx, ms); err != nil {
			return fmt.Errorf("create makeup session: %w", err)
		}
		ms.Student = student

		srcAtt, _, err := repository.GetOrCreateAttendance(ctx, tx, newAttendance(student.ID, source, loc))
		if err != nil {
			return fmt.Errorf("source attendance: %w", err)
		}
		switch {
		case source.DateTime(loc).After(now):
			result.SourceWarning = "Source class is in the future; its attendance was not marked absent."
		case srcAtt.Status.Attended():
			result.SourceWarning = fmt.Sprintf("Source attendance is already %s and was left unchanged.", srcAtt.Status)
		case srcAtt.Status != model.AttendanceAbsent:
			if err := tx.UpdateAttendanceStatus(ctx, srcAtt.ID, model.AttendanceAbsent); err != nil {
				return fmt.Errorf("mark source absent: %w", err)
			}
			srcAtt.Status = model.AttendanceAbsent
		}

		tgtAtt, created, err := repository.GetOrCreateAttendance(ctx, tx, newAttendance(student.ID, target, loc))
		if err != nil {
			return fmt.Errorf("target attendance: %w", err)
		}

		result.MakeupSession = ms
		result.SourceAttendance = srcAtt
		result.TargetAttendance = tgtAtt
		result.TargetCreated = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.roster.InvalidateClasses(ctx, req.TargetClassID)
	s.log.Info().
		Int64("makeup_session_id", result.MakeupSession.ID).
		Int64("student_id", req.StudentID).
		Int64("source_class_id", req.SourceClassID).
		Int64("target_class_id", req.TargetClassID).
		Str("actor", req.Actor.DisplayName()).
		Msg("Makeup session scheduled")
	return &result, nil
}

// transition applies one state change to ms and persists it through st.
// Same-state requests on a finished session return it unchanged.
func (s *MakeupService) transition(ctx context.Context, st repository.Store, ms *model.MakeupSession, newStatus model.MakeupStatus, actor *model.Actor, note string, now time.Time) (bool, error) {
	if !newStatus.IsTerminal() {
		return false, ruleErr(CodeInvalidStatus,
			"Status must be one of completed, cancelled, no_show; got %q.", newStatus)
	}
	if ms.Status != model.MakeupStatusScheduled {
		if ms.Status == newStatus {
			return false, nil
		}
		return false, ruleErr(CodeInvalidTransition,
			"A %s makeup session cannot be changed to %s.", ms.Status, newStatus)
	}

	note = strings.TrimSpace(note)
	if newStatus == model.MakeupStatusCancelled && note == "" {
		return false, ruleErr(CodeNoteRequired, "A note is required to cancel a makeup session.")
	}

	line := fmt.Sprintf("[%s] Status changed to %s by %s: %s", now.Format(noteLayout), newStatus, actor.DisplayName(), note)
	if ms.Notes != "" {
		ms.Notes += "\n"
	}
	ms.Notes += line
	ms.Status = newStatus
	ms.UpdatedBy = actor.IDPtr()

	if err := st.UpdateMakeupSession(ctx, ms); err != nil {
		return false, fmt.Errorf("update makeup session: %w", err)
	}
	return true, nil
}

// UpdateSessionStatus moves a scheduled session to a terminal status and
// appends an audit line to its notes. Cancelling requires a note.
func (s *MakeupService) UpdateSessionStatus(ctx context.Context, sessionID int64, newStatus model.MakeupStatus, actor *model.Actor, note string) (*model.MakeupSession, error) {
	now := s.clock.Now()
	var (
		ms       *model.MakeupSession
		changed  bool
		released bool
	)
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		ms, err = tx.LockMakeupSession(ctx, sessionID)
		if err != nil {
			return fmt.Errorf("get makeup session: %w", err)
		}
		changed, err = s.transition(ctx, tx, ms, newStatus, actor, note, now)
		if err != nil || !changed || ms.Status != model.MakeupStatusCancelled {
			return err
		}
		released, err = s.releaseTarget(ctx, tx, ms)
		return err
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return ms, nil
	}

	s.roster.InvalidateClasses(ctx, ms.TargetClassID)
	s.log.Info().
		Int64("makeup_session_id", ms.ID).
		Str("status", string(ms.Status)).
		Str("actor", actor.DisplayName()).
		Bool("target_row_released", released).
		Msg("Makeup session status changed")
	return ms, nil
}

// releaseTarget deletes the student's row on the target class of a
// cancelled session unless something else still justifies it: a confirmed
// enrollment whose window covers the class, or another live makeup into or
// out of the class. Class activity is not consulted, so rows on classes
// deactivated after scheduling are released too.
func (s *MakeupService) releaseTarget(ctx context.Context, tx repository.Store, ms *model.MakeupSession) (bool, error) {
	row, err := tx.GetAttendance(ctx, ms.StudentID, ms.TargetClassID)
	if errors.Is(err, repository.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("get target attendance: %w", err)
	}

	target, err := tx.GetClass(ctx, ms.TargetClassID)
	if err != nil {
		return false, fmt.Errorf("get target class: %w", err)
	}
	enrollments, err := tx.ListEnrollmentsByCourse(ctx, target.CourseID, model.EnrollmentStatusConfirmed)
	if err != nil {
		return false, fmt.Errorf("list enrollments: %w", err)
	}
	for i := range enrollments {
		if enrollments[i].StudentID == ms.StudentID && IsWithinWindow(&enrollments[i], target, s.clock.Location()) {
			return false, nil
		}
	}

	for _, f := range []repository.MakeupFilter{
		{StudentID: ms.StudentID, TargetClassID: target.ID, Statuses: model.AttendanceMakeupStatuses},
		{StudentID: ms.StudentID, SourceClassID: target.ID, Statuses: model.AttendanceMakeupStatuses},
	} {
		others, err := tx.ListMakeupSessions(ctx, f)
		if err != nil {
			return false, fmt.Errorf("list makeup sessions: %w", err)
		}
		for _, o := range others {
			if o.ID != ms.ID {
				return false, nil
			}
		}
	}

	if _, err := tx.DeleteAttendance(ctx, []int64{row.ID}); err != nil {
		return false, fmt.Errorf("release target attendance: %w", err)
	}
	return true, nil
}

// attendanceOutcome maps a recorded attendance status onto the makeup
// status it implies. ok is false for statuses that say nothing yet.
func attendanceOutcome(status model.AttendanceStatus) (model.MakeupStatus, bool) {
	switch {
	case status.Attended():
		return model.MakeupStatusCompleted, true
	case status == model.AttendanceAbsent:
		return model.MakeupStatusNoShow, true
	}
	return "", false
}

// SyncStatusFromTargetAttendance closes every scheduled makeup of the
// student into targetClassID according to the attendance just recorded
// there, returning how many sessions changed.
func (s *MakeupService) SyncStatusFromTargetAttendance(ctx context.Context, studentID, targetClassID int64, status model.AttendanceStatus, actor *model.Actor) (int, error) {
	var n int
	err := s.store.WithTx(ctx, func(tx repository.Store) error {
		var err error
		n, err = s.syncFromTarget(ctx, tx, studentID, targetClassID, status, actor)
		return err
	})
	if err != nil {
		return 0, err
	}
	if n > 0 {
		s.roster.InvalidateClasses(ctx, targetClassID)
	}
	return n, nil
}

func (s *MakeupService) syncFromTarget(ctx context.Context, st repository.Store, studentID, targetClassID int64, status model.AttendanceStatus, actor *model.Actor) (int, error) {
	next, ok := attendanceOutcome(status)
	if !ok {
		return 0, nil
	}

	sessions, err := st.ListMakeupSessions(ctx, repository.MakeupFilter{
		StudentID:     studentID,
		TargetClassID: targetClassID,
		Statuses:      []model.MakeupStatus{model.MakeupStatusScheduled},
	})
	if err != nil {
		return 0, fmt.Errorf("list makeup sessions: %w", err)
	}

	now := s.clock.Now()
	note := fmt.Sprintf("Auto-updated from target class attendance (%s).", status)
	count := 0
	for i := range sessions {
		ms, err := st.LockMakeupSession(ctx, sessions[i].ID)
		if err != nil {
			return count, fmt.Errorf("lock makeup session %d: %w", sessions[i].ID, err)
		}
		changed, err := s.transition(ctx, st, ms, next, actor, note, now)
		if err != nil {
			return count, err
		}
		if changed {
			count++
			s.log.Info().
				Int64("makeup_session_id", ms.ID).
				Str("status", string(next)).
				Msg("Makeup session closed from attendance")
		}
	}
	return count, nil
}

// GetSession retrieves a makeup session.
func (s *MakeupService) GetSession(ctx context.Context, id int64) (*model.MakeupSession, error) {
	ms, err := s.store.GetMakeupSession(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get makeup session: %w", err)
	}
	return ms, nil
}

// ListForClass lists the makeup sessions leaving or arriving at a class.
func (s *MakeupService) ListForClass(ctx context.Context, classID int64) ([]model.MakeupSession, error) {
	if _, err := s.store.GetClass(ctx, classID); err != nil {
		return nil, fmt.Errorf("get class: %w", err)
	}
	arriving, err := s.store.ListMakeupSessions(ctx, repository.MakeupFilter{TargetClassID: classID})
	if err != nil {
		return nil, fmt.Errorf("list makeup sessions: %w", err)
	}
	leaving, err := s.store.ListMakeupSessions(ctx, repository.MakeupFilter{SourceClassID: classID})
	if err != nil {
		return nil, fmt.Errorf("list makeup sessions: %w", err)
	}
	return append(arriving, leaving...), nil
}
