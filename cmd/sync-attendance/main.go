package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/edupulse/schoolops-backend/internal/clock"
	"github.com/edupulse/schoolops-backend/internal/config"
	"github.com/edupulse/schoolops-backend/internal/database"
	"github.com/edupulse/schoolops-backend/internal/logger"
	"github.com/edupulse/schoolops-backend/internal/repository"
	"github.com/edupulse/schoolops-backend/internal/service"
	"github.com/rs/zerolog"
)

const maxPrintedErrors = 5

func main() {
	var (
		courseID int64
		dryRun   bool
		verbose  bool
	)
	flag.Int64Var(&courseID, "course-id", 0, "Sync a single course (default: every active course)")
	flag.BoolVar(&dryRun, "dry-run", false, "Report what would change without writing")
	flag.BoolVar(&verbose, "verbose", false, "Log every created and removed row")
	flag.Parse()

	cfg := config.Load()
	if verbose {
		cfg.LogLevel = zerolog.LevelDebugValue
	}
	log := logger.Component(logger.Setup(cfg.LogLevel, cfg.LogFormat, cfg.Location()), "sync-attendance")

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	loc := cfg.Location()
	clk := clock.New(loc)
	store := repository.NewPgStore(pool, loc)
	enrollments := service.NewEnrollmentAttendanceService(store, clk, log)
	classes := service.NewClassAttendanceService(store, clk, log)
	syncService := service.NewAttendanceSyncService(store, enrollments, classes, log)

	var result service.BulkSyncResult
	if courseID > 0 {
		course, err := syncService.GetCourse(ctx, courseID)
		if err != nil {
			log.Fatal().Err(err).Int64("course_id", courseID).Msg("Course lookup failed")
		}
		if dryRun {
			result = syncService.DryRunCourse(ctx, course)
		} else {
			result = syncService.SyncCourse(ctx, course)
		}
	} else if dryRun {
		result = syncService.DryRunAll(ctx)
	} else {
		result = syncService.SyncAll(ctx)
	}

	printSummary(result)
	if result.Status == service.SyncError || len(result.Errors) > 0 {
		os.Exit(1)
	}
}

func printSummary(r service.BulkSyncResult) {
	verb := "Created"
	removed := "Removed"
	if r.DryRun {
		fmt.Println("DRY RUN: no changes written")
		verb = "Would create"
		removed = "Would remove"
	}
	fmt.Printf("Courses processed: %d\n", r.ProcessedCourses)
	fmt.Printf("%s: %d attendance records\n", verb, r.TotalCreated)
	fmt.Printf("%s: %d attendance records\n", removed, r.TotalRemoved)

	if len(r.Errors) == 0 {
		return
	}
	fmt.Printf("Errors: %d\n", len(r.Errors))
	for i, e := range r.Errors {
		if i == maxPrintedErrors {
			fmt.Printf("  ... and %d more\n", len(r.Errors)-maxPrintedErrors)
			break
		}
		fmt.Printf("  - %s\n", e)
	}
}
