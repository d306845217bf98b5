package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/edupulse/schoolops-backend/internal/cache"
	"github.com/edupulse/schoolops-backend/internal/clock"
	"github.com/edupulse/schoolops-backend/internal/config"
	"github.com/edupulse/schoolops-backend/internal/database"
	"github.com/edupulse/schoolops-backend/internal/handler"
	"github.com/edupulse/schoolops-backend/internal/logger"
	"github.com/edupulse/schoolops-backend/internal/repository"
	"github.com/edupulse/schoolops-backend/internal/router"
	"github.com/edupulse/schoolops-backend/internal/scheduler"
	"github.com/edupulse/schoolops-backend/internal/service"
	"github.com/edupulse/schoolops-backend/internal/validator"
	ws "github.com/edupulse/schoolops-backend/internal/websocket"
	"github.com/edupulse/schoolops-backend/internal/worker"
	"github.com/rs/zerolog"
)

func main() {
	// ─── Load Configuration ────────────────────────────────────────────
	cfg := config.Load()

	// ─── Initialize Logger ─────────────────────────────────────────────
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat, cfg.Location())
	log.Info().
		Str("port", cfg.ServerPort).
		Str("mode", cfg.GinMode).
		Str("log_level", cfg.LogLevel).
		Str("timezone", cfg.Location().String()).
		Msg("Starting SchoolOps Backend")

	// ─── Initialize Validator ──────────────────────────────────────────
	validator.Setup()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ─── Connect to PostgreSQL ─────────────────────────────────────────
	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	// ─── Connect to Redis (optional) ───────────────────────────────────
	rdb, err := database.NewRedisClient(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	if rdb != nil {
		defer rdb.Close()
	}

	// ─── Initialize Store ──────────────────────────────────────────────
	loc := cfg.Location()
	clk := clock.New(loc)
	store := repository.NewPgStore(pool, loc)

	// ─── Initialize Services ──────────────────────────────────────────
	var rosterCache service.RosterCache
	if rc := cache.NewRosterCache(rdb, cfg.RosterCacheTTL, log); rc != nil {
		rosterCache = rc
	}

	enrollmentAttendance := service.NewEnrollmentAttendanceService(store, clk, log)
	classAttendance := service.NewClassAttendanceService(store, clk, log)
	rosterService := service.NewRosterService(store, clk, rosterCache, log)
	lifecycle := service.NewLifecycle(store, enrollmentAttendance, classAttendance, rosterService, log)
	syncService := service.NewAttendanceSyncService(store, enrollmentAttendance, classAttendance, log)
	makeupService := service.NewMakeupService(store, clk, rosterService, log)
	attendanceService := service.NewAttendanceService(store, makeupService, log)
	hub := ws.NewHub(log)
	attendanceService.SetNotifier(hub)
	classService := service.NewClassService(store, lifecycle)
	enrollmentService := service.NewEnrollmentService(store, lifecycle)
	authService := service.NewAuthService(cfg, store)

	syncQueue := worker.NewSyncQueue(rdb)

	// ─── Schedule Attendance Sweep ────────────────────────────────────
	sweep, err := scheduler.StartAttendanceSweep(cfg.SyncCron, loc, syncService, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to schedule attendance sweep")
	}

	// ─── Initialize Handlers ──────────────────────────────────────────
	handlers := &router.Handlers{
		Auth:       handler.NewAuthHandler(authService, log),
		Class:      handler.NewClassHandler(classService, rosterService, attendanceService, makeupService, log),
		Enrollment: handler.NewEnrollmentHandler(enrollmentService, log),
		Sync: handler.NewSyncHandler(
			enrollmentService, classService, enrollmentAttendance, classAttendance, syncService, syncQueue, log,
		),
		Makeup: handler.NewMakeupHandler(makeupService, log),
		System: handler.NewSystemHandler(pool, syncQueue, sweep, hub, log),
		WS:     handler.NewWSHandler(attendanceService, hub, log, cfg.AllowedOrigins),
	}

	// ─── Start Background Workers ─────────────────────────────────────
	workerCtx, workerCancel := context.WithCancel(context.Background())
	var workers sync.WaitGroup

	if rdb != nil {
		syncWorker := worker.NewSyncWorker(store, syncService, rdb, log)
		workers.Add(1)
		go func() {
			defer workers.Done()
			syncWorker.Start(workerCtx)
		}()
	}

	// ─── Setup Router ──────────────────────────────────────────────────
	r := router.SetupRouter(ctx, authService, handlers, cfg)

	// ─── Create HTTP Server ────────────────────────────────────────────
	srv := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: r,
	}

	// ─── Start Server in Goroutine ─────────────────────────────────────
	go func() {
		log.Info().Str("addr", ":"+cfg.ServerPort).Msg("Server listening")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server error")
		}
	}()

	// ─── Graceful Shutdown ─────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	sig := <-quit

	log.Info().Str("signal", sig.String()).Msg("Shutting down gracefully...")

	// 1. Stop accepting new HTTP requests (5s timeout).
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown error")
	}

	// 2. Stop the sweep scheduler, giving a run in progress 10s to finish.
	if sweep != nil {
		select {
		case <-sweep.Stop().Done():
		case <-time.After(10 * time.Second):
			log.Warn().Msg("Attendance sweep still running at shutdown")
		}
	}

	// 3. Stop background workers; pending sweeps are pushed back to Redis.
	workerCancel()
	workers.Wait()

	log.Info().Msg("Shutdown complete")
}

// init sets zerolog global defaults before main runs.
func init() {
	zerolog.TimeFieldFormat = time.RFC3339
}
