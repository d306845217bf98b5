package handler

import (
	"errors"
	"net/http"

	"github.com/edupulse/schoolops-backend/internal/middleware"
	"github.com/edupulse/schoolops-backend/internal/model"
	"github.com/edupulse/schoolops-backend/internal/response"
	"github.com/edupulse/schoolops-backend/internal/service"
	"github.com/edupulse/schoolops-backend/internal/validator"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// AuthHandler handles staff authentication endpoints.
type AuthHandler struct {
	authService *service.AuthService
	log         zerolog.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *service.AuthService, log zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		log:         log.With().Str("component", "auth_handler").Logger(),
	}
}

// Login godoc
// POST /api/v1/auth/login
// Validates email + password and returns a JWT carrying the staff role.
func (h *AuthHandler) Login(c *gin.Context) {
	var req model.StaffLoginRequest
	if fields := validator.Bind(c, &req); fields != nil {
		response.FailWithFields(c, http.StatusBadRequest, response.ErrValidation, fields)
		return
	}

	token, staff, err := h.authService.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			response.Fail(c, http.StatusUnauthorized, response.ErrInvalidCredentials)
			return
		}
		failFromError(c, h.log, err)
		return
	}

	h.log.Info().Int64("staff_id", staff.ID).Str("role", string(staff.Role)).Msg("Staff logged in")

	response.Success(c, http.StatusOK, gin.H{
		"token": token,
		"staff": gin.H{
			"id":    staff.ID,
			"email": staff.Email,
			"name":  staff.Name,
			"role":  staff.Role,
		},
	})
}

// Me godoc
// GET /api/v1/auth/me
// Returns the profile of the currently authenticated staff member.
func (h *AuthHandler) Me(c *gin.Context) {
	claims := middleware.GetClaims(c)
	if claims == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	staff, err := h.authService.GetStaff(c.Request.Context(), claims.StaffID)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"staff": staff})
}
