package handler

import (
	"net/http"
	"strconv"

	"github.com/edupulse/schoolops-backend/internal/response"
	"github.com/edupulse/schoolops-backend/internal/service"
	"github.com/edupulse/schoolops-backend/internal/worker"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// SyncHandler exposes manual attendance reconciliation.
type SyncHandler struct {
	enrollmentService *service.EnrollmentService
	classService      *service.ClassService
	enrollments       *service.EnrollmentAttendanceService
	classes           *service.ClassAttendanceService
	sync              *service.AttendanceSyncService
	queue             *worker.SyncQueue // nil when Redis is not configured
	log               zerolog.Logger
}

// NewSyncHandler creates a new SyncHandler.
func NewSyncHandler(
	enrollmentService *service.EnrollmentService,
	classService *service.ClassService,
	enrollments *service.EnrollmentAttendanceService,
	classes *service.ClassAttendanceService,
	sync *service.AttendanceSyncService,
	queue *worker.SyncQueue,
	log zerolog.Logger,
) *SyncHandler {
	return &SyncHandler{
		enrollmentService: enrollmentService,
		classService:      classService,
		enrollments:       enrollments,
		classes:           classes,
		sync:              sync,
		queue:             queue,
		log:               log.With().Str("component", "sync_handler").Logger(),
	}
}

func queryBool(c *gin.Context, key string) bool {
	v, _ := strconv.ParseBool(c.Query(key))
	return v
}

// SyncEnrollment godoc
// POST /api/v1/sync/enrollments/:id
func (h *SyncHandler) SyncEnrollment(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	enrollment, err := h.enrollmentService.GetByID(ctx, id)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	response.Success(c, http.StatusOK, gin.H{"sync": h.enrollments.SyncForEnrollment(ctx, enrollment)})
}

// SyncClass godoc
// POST /api/v1/sync/classes/:id
func (h *SyncHandler) SyncClass(c *gin.Context) {
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

	response.Success(c, http.StatusOK, gin.H{"sync": h.classes.SyncForClass(ctx, class)})
}

// SyncCourse godoc
// POST /api/v1/sync/courses/:id?dry_run=true|async=true
// async hands the sweep to the background worker and returns 202.
func (h *SyncHandler) SyncCourse(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	ctx := c.Request.Context()
	course, err := h.sync.GetCourse(ctx, id)
	if err != nil {
		failFromError(c, h.log, err)
		return
	}

	if queryBool(c, "dry_run") {
		response.Success(c, http.StatusOK, gin.H{"sync": h.sync.DryRunCourse(ctx, course)})
		return
	}

	if queryBool(c, "async") {
		if h.queue == nil {
			response.Fail(c, http.StatusServiceUnavailable, response.ErrQueueUnavailable)
			return
		}
		queued, err := h.queue.Enqueue(ctx, course.ID)
		if err != nil {
			h.log.Error().Err(err).Int64("course_id", course.ID).Msg("Failed to enqueue course sync")
			response.Fail(c, http.StatusServiceUnavailable, response.ErrQueueUnavailable)
			return
		}
		// queued=false means a sweep for this course is already waiting.
		response.Success(c, http.StatusAccepted, gin.H{"course_id": course.ID, "queued": queued})
		return
	}

	result := h.sync.SyncCourse(ctx, course)
	response.Success(c, http.StatusOK, gin.H{"sync": result})
}

// SyncAll godoc
// POST /api/v1/sync/all?dry_run=true
// Sweeps every active course inline. Admin only.
func (h *SyncHandler) SyncAll(c *gin.Context) {
	ctx := c.Request.Context()

	if queryBool(c, "dry_run") {
		response.Success(c, http.StatusOK, gin.H{"sync": h.sync.DryRunAll(ctx)})
		return
	}

	result := h.sync.SyncAll(ctx)
	if result.Status == service.SyncError && result.ProcessedCourses == 0 {
		response.FailWithMessage(c, http.StatusInternalServerError, response.ErrSyncFailed, firstError(result.Errors))
		return
	}
	response.Success(c, http.StatusOK, gin.H{"sync": result})
}

func firstError(errs []string) string {
	if len(errs) == 0 {
		return response.GetMessage(response.ErrSyncFailed)
	}
	return errs[0]
}
