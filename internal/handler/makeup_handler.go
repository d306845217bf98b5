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

// MakeupHandler handles makeup session endpoints.
type MakeupHandler struct {
	makeupService *service.MakeupService
	log           zerolog.Logger
}

// NewMakeupHandler creates a new MakeupHandler.
func NewMakeupHandler(makeupService *service.MakeupService, log zerolog.Logger) *MakeupHandler {
	return &MakeupHandler{
		makeupService: makeupService,
		log:           log.With().Str("component", "makeup_handler").Logger(),
	}
}

// GetCandidates godoc
// GET /api/v1/makeup-sessions/candidates?student_id=&class_id=&initiated_from=source|target
// Lists the classes that could be paired with class_id for the student.
func (h *MakeupHandler) GetCandidates(c *gin.Context) {
	var q model.CandidateQuery
	if fields := validator.BindQuery(c, &q); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}
	initiatedFrom := model.InitiatedFrom(q.InitiatedFrom)
	if initiatedFrom == "" {
		initiatedFrom = model.InitiatedFromSource
	}

	set, err := h.makeupService.GetCandidateClasses(
		c.Request.Context(), q.StudentID, q.ClassID, initiatedFrom, middleware.GetActor(c),
	)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, set)
}

// CreateMakeupSession godoc
// POST /api/v1/makeup-sessions
// Books a makeup: the snapshot is frozen, the source row goes absent when
// the class has started, and the target gets an attendance row.
func (h *MakeupHandler) CreateMakeupSession(c *gin.Context) {
	var req model.ScheduleMakeupRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	result, err := h.makeupService.ScheduleSession(c.Request.Context(), service.ScheduleRequest{
		StudentID:     req.StudentID,
		SourceClassID: req.SourceClassID,
		TargetClassID: req.TargetClassID,
		InitiatedFrom: model.InitiatedFrom(req.InitiatedFrom),
		ReasonType:    model.ReasonType(req.ReasonType),
		Notes:         req.Notes,
		Actor:         middleware.GetActor(c),
	})
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, result)
}

// GetMakeupSession godoc
// GET /api/v1/makeup-sessions/:id
func (h *MakeupHandler) GetMakeupSession(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	session, err := h.makeupService.GetSession(c.Request.Context(), id)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"makeup_session": session})
}

// UpdateMakeupStatus godoc
// PATCH /api/v1/makeup-sessions/:id/status
// Cancelling requires a note.
func (h *MakeupHandler) UpdateMakeupStatus(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateMakeupStatusRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	session, err := h.makeupService.UpdateSessionStatus(
		c.Request.Context(), id, model.MakeupStatus(req.Status), middleware.GetActor(c), req.Note,
	)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"makeup_session": session})
}
