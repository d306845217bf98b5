package router

import (
	"context"
	"net/http"
	"time"

	"github.com/edupulse/schoolops-backend/internal/config"
	"github.com/edupulse/schoolops-backend/internal/handler"
	"github.com/edupulse/schoolops-backend/internal/middleware"
	"github.com/edupulse/schoolops-backend/internal/response"
	"github.com/edupulse/schoolops-backend/internal/service"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Class      *handler.ClassHandler
	Enrollment *handler.EnrollmentHandler
	Sync       *handler.SyncHandler
	Makeup     *handler.MakeupHandler
	System     *handler.SystemHandler
	WS         *handler.WSHandler
}

// SetupRouter configures all Gin route groups with appropriate middlewares.
// ctx bounds the background goroutines the middlewares start.
func SetupRouter(
	ctx context.Context,
	authService *service.AuthService,
	handlers *Handlers,
	cfg *config.Config,
) *gin.Engine {
	gin.SetMode(cfg.GinMode)
	router := gin.Default()

	// ─── CORS ──────────────────────────────────────────────────────────
	// If AllowedOrigins is set in config, restrict to that list;
	// otherwise allow all (*) so dev works without extra config.
	corsConfig := cors.DefaultConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsConfig.AllowOrigins = cfg.AllowedOrigins
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AllowMethods = []string{"GET", "POST", "PUT", "PATCH", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"}
	corsConfig.ExposeHeaders = []string{"X-Request-ID", "Retry-After"}
	corsConfig.MaxAge = 12 * time.Hour
	router.Use(cors.New(corsConfig))

	// Apply request ID middleware globally so every response includes metadata.
	router.Use(response.RequestIDMiddleware())

	router.Use(middleware.Brotli())

	// Health check.
	router.GET("/health", func(c *gin.Context) {
		response.Success(c, http.StatusOK, gin.H{"status": "ok"})
	})

	api := router.Group("/api/v1")
	api.Use(middleware.NoStore())

	// 30 login attempts per minute per IP.
	loginLimiter := middleware.NewRateLimiter(ctx, 30, time.Minute)

	// ─── 1. Auth Group ─────────────────────────────────────────────────
	auth := api.Group("/auth")
	{
		auth.POST("/login", loginLimiter.Middleware(), handlers.Auth.Login)
		auth.GET("/me", middleware.RequireStaffJWT(authService), handlers.Auth.Me)
	}

	// ─── 2. Staff Group (JWT; admins and teachers) ─────────────────────
	staff := api.Group("")
	staff.Use(middleware.RequireStaffJWT(authService))
	{
		// Classes
		staff.POST("/classes", middleware.RequireAdmin(), handlers.Class.CreateClass)
		staff.PATCH("/classes/:id", middleware.RequireAdmin(), handlers.Class.UpdateClass)
		staff.GET("/classes/:id/roster", handlers.Class.GetRoster)
		staff.GET("/classes/:id/attendance", handlers.Class.ListAttendance)
		staff.PUT("/classes/:id/attendance/:student_id", handlers.Class.MarkAttendance)
		staff.GET("/classes/:id/makeup-sessions", handlers.Class.ListMakeupSessions)

		// Enrollments
		staff.POST("/enrollments", middleware.RequireAdmin(), handlers.Enrollment.CreateEnrollment)
		staff.GET("/enrollments/:id", handlers.Enrollment.GetEnrollment)
		staff.PATCH("/enrollments/:id", middleware.RequireAdmin(), handlers.Enrollment.UpdateEnrollment)

		// Manual sync
		syncGroup := staff.Group("/sync")
		{
			syncGroup.POST("/enrollments/:id", handlers.Sync.SyncEnrollment)
			syncGroup.POST("/classes/:id", handlers.Sync.SyncClass)
			syncGroup.POST("/courses/:id", handlers.Sync.SyncCourse)
			syncGroup.POST("/all", middleware.RequireAdmin(), handlers.Sync.SyncAll)
		}

		// Makeup sessions
		makeups := staff.Group("/makeup-sessions")
		{
			makeups.GET("/candidates", handlers.Makeup.GetCandidates)
			makeups.POST("", handlers.Makeup.CreateMakeupSession)
			makeups.GET("/:id", handlers.Makeup.GetMakeupSession)
			makeups.PATCH("/:id/status", handlers.Makeup.UpdateMakeupStatus)
		}
	}

	// ─── 3. Admin Group ────────────────────────────────────────────────
	adminAPI := api.Group("/admin")
	adminAPI.Use(middleware.RequireStaffJWT(authService), middleware.RequireAdmin())
	{
		// System Monitoring
		adminAPI.GET("/system/status", handlers.System.SystemStatus)
		adminAPI.GET("/system/metrics", handlers.System.SystemMetricsSSE)
	}

	// ─── 4. WebSocket Group (token query accepted) ─────────────────────
	wsGroup := router.Group("/ws/v1")
	wsGroup.Use(middleware.RequireStaffJWT(authService))
	{
		wsGroup.GET("/classes/:id/attendance", handlers.WS.ClassAttendanceStream)
	}

	return router
}
