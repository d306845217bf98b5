package service

import (
	"context"
	"fmt"
	"time"

	"github.com/edupulse/schoolops-backend/internal/model"
	"github.com/edupulse/schoolops-backend/internal/repository"
)

// EnrollmentService persists enrollments and fires the enrollment
// lifecycle hook after every write.
type EnrollmentService struct {
	store     repository.Store
	lifecycle *Lifecycle
}

// NewEnrollmentService creates a new EnrollmentService.
func NewEnrollmentService(store repository.Store, lifecycle *Lifecycle) *EnrollmentService {
	return &EnrollmentService{store: store, lifecycle: lifecycle}
}

func checkWindow(from, until *time.Time) error {
	if from != nil && until != nil && !from.Before(*until) {
		return ruleErr(CodeInvalidWindow, "active_from must be before active_until.")
	}
	return nil
}

// GetByID retrieves an enrollment.
func (s *EnrollmentService) GetByID(ctx context.Context, id int64) (*model.Enrollment, error) {
	e, err := s.store.GetEnrollment(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get enrollment: %w", err)
	}
	return e, nil
}

// Create persists an enrollment (pending unless a status is given).
func (s *EnrollmentService) Create(ctx context.Context, req model.CreateEnrollmentRequest) (*model.Enrollment, SyncResult, error) {
	status := model.EnrollmentStatus(req.Status)
	if status == "" {
		status = model.EnrollmentStatusPending
	}
	if !status.IsValid() {
		return nil, SyncResult{}, ruleErr(CodeInvalidStatus, "Unknown enrollment status %q.", req.Status)
	}
	if err := checkWindow(req.ActiveFrom, req.ActiveUntil); err != nil {
		return nil, SyncResult{}, err
	}
	if _, err := s.store.GetStudent(ctx, req.StudentID); err != nil {
		return nil, SyncResult{}, fmt.Errorf("get student: %w", err)
	}
	if _, err := s.store.GetCourse(ctx, req.CourseID); err != nil {
		return nil, SyncResult{}, fmt.Errorf("get course: %w", err)
	}

	e := &model.Enrollment{
		StudentID:   req.StudentID,
		CourseID:    req.CourseID,
		Status:      status,
		ActiveFrom:  req.ActiveFrom,
		ActiveUntil: req.ActiveUntil,
	}
	if err := s.store.CreateEnrollment(ctx, e); err != nil {
		return nil, SyncResult{}, fmt.Errorf("create enrollment: %w", err)
	}
	return e, s.lifecycle.EnrollmentSaved(ctx, e, nil), nil
}

// Update changes status and/or window, then reconciles attendance against
// the previous state.
func (s *EnrollmentService) Update(ctx context.Context, id int64, req model.UpdateEnrollmentRequest) (*model.Enrollment, SyncResult, error) {
	previous, err := s.store.GetEnrollment(ctx, id)
	if err != nil {
		return nil, SyncResult{}, fmt.Errorf("get enrollment: %w", err)
	}

	e := *previous
	if req.Status != "" {
		e.Status = model.EnrollmentStatus(req.Status)
		if !e.Status.IsValid() {
			return nil, SyncResult{}, ruleErr(CodeInvalidStatus, "Unknown enrollment status %q.", req.Status)
		}
	}
	if req.ClearWindow {
		e.ActiveFrom, e.ActiveUntil = nil, nil
	}
	if req.ActiveFrom != nil {
		e.ActiveFrom = req.ActiveFrom
	}
	if req.ActiveUntil != nil {
		e.ActiveUntil = req.ActiveUntil
	}
	if err := checkWindow(e.ActiveFrom, e.ActiveUntil); err != nil {
		return nil, SyncResult{}, err
	}

	if err := s.store.UpdateEnrollment(ctx, &e); err != nil {
		return nil, SyncResult{}, fmt.Errorf("update enrollment: %w", err)
	}
	return &e, s.lifecycle.EnrollmentSaved(ctx, &e, previous), nil
}
