package handler

import (
	"net/http"

	"github.com/edupulse/schoolops-backend/internal/model"
	"github.com/edupulse/schoolops-backend/internal/response"
	"github.com/edupulse/schoolops-backend/internal/service"
	"github.com/edupulse/schoolops-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// EnrollmentHandler handles enrollment endpoints. Every write reports the
// attendance sync it triggered.
type EnrollmentHandler struct {
	enrollmentService *service.EnrollmentService
	log               zerolog.Logger
}

// NewEnrollmentHandler creates a new EnrollmentHandler.
func NewEnrollmentHandler(enrollmentService *service.EnrollmentService, log zerolog.Logger) *EnrollmentHandler {
	return &EnrollmentHandler{
		enrollmentService: enrollmentService,
		log:               log.With().Str("component", "enrollment_handler").Logger(),
	}
}

// CreateEnrollment godoc
// POST /api/v1/enrollments
func (h *EnrollmentHandler) CreateEnrollment(c *gin.Context) {
	var req model.CreateEnrollmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	enrollment, sync, err := h.enrollmentService.Create(c.Request.Context(), req)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusCreated, gin.H{"enrollment": enrollment, "sync": sync})
}

// GetEnrollment godoc
// GET /api/v1/enrollments/:id
func (h *EnrollmentHandler) GetEnrollment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	enrollment, err := h.enrollmentService.GetByID(c.Request.Context(), id)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"enrollment": enrollment})
}

// UpdateEnrollment godoc
// PATCH /api/v1/enrollments/:id
// Changes status and/or the active window.
func (h *EnrollmentHandler) UpdateEnrollment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	var req model.UpdateEnrollmentRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	enrollment, sync, err := h.enrollmentService.Update(c.Request.Context(), id, req)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"enrollment": enrollment, "sync": sync})
}
