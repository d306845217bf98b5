package handler

import (
	"net/http"

	"github.com/edupulse/schoolops-backend/internal/middleware"
	"github.com/edupulse/schoolops-backend/internal/model"
	"github.com/edupulse/schoolops-backend/internal/response"
	"github.com/edupulse/schoolops-backend/internal/service"
	"github.com/edupulse/schoolops-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// ClassHandler handles class, roster and attendance endpoints.
type ClassHandler struct {
	classService      *service.ClassService
	rosterService     *service.RosterService
	attendanceService *service.AttendanceService
	makeupService     *service.MakeupService
	log               zerolog.Logger
}

// NewClassHandler creates a new ClassHandler.
func NewClassHandler(
	classService *service.ClassService,
	rosterService *service.RosterService,
	attendanceService *service.AttendanceService,
	makeupService *service.MakeupService,
	log zerolog.Logger,
) *ClassHandler {
	return &ClassHandler{
		classService:      classService,
		rosterService:     rosterService,
		attendanceService: attendanceService,
		makeupService:     makeupService,
		log:               log.With().Str("component", "class_handler").Logger(),
	}
}

// CreateClass godoc
// POST /api/v1/classes
// Persists a class; an active class gets attendance for every eligible
// confirmed enrollment of its course.
func (h *ClassHandler) CreateClass(c *gin.Context) {
	var req model.CreateClassRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	class, sync, err := h.classService.Create(c.Request.Context(), req)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"class": class, "sync": sync})
}

// UpdateClass godoc
// PATCH /api/v1/classes/:id
// Activates or deactivates a class and reconciles its attendance.
func (h *ClassHandler) UpdateClass(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateClassRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	class, sync, err := h.classService.SetActive(c.Request.Context(), id, *req.IsActive)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"class": class, "sync": sync})
}

// GetRoster godoc
// GET /api/v1/classes/:id/roster
func (h *ClassHandler) GetRoster(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	class, err := h.classService.GetByID(ctx, id)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	entries, err := h.rosterService.GetRosterEntries(ctx, class)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{
		"class":   class,
		"entries": entries,
		"total":   len(entries),
	})
}

// ListAttendance godoc
// GET /api/v1/classes/:id/attendance
func (h *ClassHandler) ListAttendance(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	rows, err := h.attendanceService.ListForClass(c.Request.Context(), id)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"attendance": rows})
}

// MarkAttendance godoc
// PUT /api/v1/classes/:id/attendance/:student_id
// Records an outcome; scheduled makeups into the class are closed to match.
func (h *ClassHandler) MarkAttendance(c *gin.Context) {
	classID, ok := parseID(c, "id")
	if !ok {
		return
	}
	studentID, ok := parseID(c, "student_id")
	if !ok {
		return
	}

	var req model.MarkAttendanceRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.attendanceService.Mark(
		c.Request.Context(), studentID, classID,
		model.AttendanceStatus(req.Status), middleware.GetActor(c),
	)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, result)
}

// ListMakeupSessions godoc
// GET /api/v1/classes/:id/makeup-sessions
// Lists makeups where the class is the source or the target.
func (h *ClassHandler) ListMakeupSessions(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	sessions, err := h.makeupService.ListForClass(c.Request.Context(), id)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"makeup_sessions": sessions})
}
