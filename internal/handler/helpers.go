package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/edupulse/schoolops-backend/internal/repository"
	"github.com/edupulse/schoolops-backend/internal/response"
	"github.com/edupulse/schoolops-backend/internal/service"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// parseID reads a positive int64 path parameter. On failure it writes a
// 400 and returns false.
func parseID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		response.Fail(c, http.StatusBadRequest, response.ErrInvalidID)
		return 0, false
	}
	return id, true
}

// failFromError maps service and repository errors onto the envelope.
// Rule violations keep their own code and message.
func failFromError(c *gin.Context, log zerolog.Logger, err error) {
	if re, ok := service.AsRuleError(err); ok {
		response.FailWithMessage(c, http.StatusUnprocessableEntity, response.ErrCode(re.Code), re.Message)
		return
	}

	switch {
	case errors.Is(err, repository.ErrNotFound):
		response.Fail(c, http.StatusNotFound, response.ErrNotFound)
	case errors.Is(err, repository.ErrConflict):
		response.Fail(c, http.StatusConflict, response.ErrConflict)
	default:
		log.Error().Err(err).
			Str("path", c.FullPath()).
			Str("request_id", response.RequestID(c)).
			Msg("Request failed")
		response.Fail(c, http.StatusInternalServerError, response.ErrInternal)
	}
}
