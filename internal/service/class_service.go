package service

import (
	"context"
	"fmt"
	"time"

	"github.com/edupulse/schoolops-backend/internal/model"
	"github.com/edupulse/schoolops-backend/internal/repository"
)

// ClassService persists classes and fires the class lifecycle hooks.
type ClassService struct {
	store     repository.Store
	lifecycle *Lifecycle
}

// NewClassService creates a new ClassService.
func NewClassService(store repository.Store, lifecycle *Lifecycle) *ClassService {
	return &ClassService{store: store, lifecycle: lifecycle}
}

// GetByID retrieves a class with its course.
func (s *ClassService) GetByID(ctx context.Context, id int64) (*model.Class, error) {
	c, err := s.store.GetClass(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get class: %w", err)
	}
	return c, nil
}

// Create persists a class and, when it is active, creates attendance for
// the course's confirmed enrollments.
func (s *ClassService) Create(ctx context.Context, req model.CreateClassRequest) (*model.Class, SyncResult, error) {
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		return nil, SyncResult{}, ruleErr(CodeInvalidSchedule, "Invalid class date %q.", req.Date)
	}
	start, err := model.ParseTimeOfDay(req.StartTime)
	if err != nil {
		return nil, SyncResult{}, ruleErr(CodeInvalidSchedule, "Invalid start time %q.", req.StartTime)
	}
	if _, err := s.store.GetCourse(ctx, req.CourseID); err != nil {
		return nil, SyncResult{}, fmt.Errorf("get course: %w", err)
	}

	c := &model.Class{
		CourseID:        req.CourseID,
		Date:            date,
		StartTime:       start,
		DurationMinutes: req.DurationMinutes,
		TeacherID:       req.TeacherID,
		FacilityID:      req.FacilityID,
		ClassroomID:     req.ClassroomID,
		IsActive:        req.IsActive == nil || *req.IsActive,
	}
	if err := s.store.CreateClass(ctx, c); err != nil {
		return nil, SyncResult{}, fmt.Errorf("create class: %w", err)
	}

	saved, err := s.store.GetClass(ctx, c.ID)
	if err != nil {
		return nil, SyncResult{}, fmt.Errorf("reload class: %w", err)
	}
	return saved, s.lifecycle.ClassCreated(ctx, saved), nil
}

// SetActive flips is_active and reconciles attendance for the change.
func (s *ClassService) SetActive(ctx context.Context, id int64, active bool) (*model.Class, SyncResult, error) {
	c, err := s.store.GetClass(ctx, id)
	if err != nil {
		return nil, SyncResult{}, fmt.Errorf("get class: %w", err)
	}
	wasActive := c.IsActive
	if wasActive != active {
		if err := s.store.SetClassActive(ctx, id, active); err != nil {
			return nil, SyncResult{}, fmt.Errorf("update class: %w", err)
		}
		c.IsActive = active
	}
	return c, s.lifecycle.ClassUpdated(ctx, c, wasActive), nil
}
