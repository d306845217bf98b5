package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/edupulse/schoolops-backend/internal/config"
	"github.com/edupulse/schoolops-backend/internal/repository"
	"github.com/edupulse/schoolops-backend/internal/service"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const (
	SyncBatchSize    = 20
	SyncBatchTimeout = 2 * time.Second
	SyncPollTimeout  = 1 * time.Second

	// syncLockTTL bounds how long a queued course blocks re-enqueueing if
	// the worker dies before picking it up.
	syncLockTTL = 10 * time.Minute
)

type syncPayload struct {
	CourseID int64 `json:"course_id"`
}

// SyncQueue hands course sweeps to the SyncWorker through Redis.
type SyncQueue struct {
	rdb *redis.Client
}

// NewSyncQueue returns nil when Redis is disabled.
func NewSyncQueue(rdb *redis.Client) *SyncQueue {
	if rdb == nil {
		return nil
	}
	return &SyncQueue{rdb: rdb}
}

// Enqueue pushes a course sweep. It reports false when the course is
// already waiting in the queue.
func (q *SyncQueue) Enqueue(ctx context.Context, courseID int64) (bool, error) {
	ok, err := q.rdb.SetNX(ctx, config.CacheKey.SyncLockKey(courseID), 1, syncLockTTL).Result()
	if err != nil {
		return false, fmt.Errorf("acquire sync lock: %w", err)
	}
	if !ok {
		return false, nil
	}

	raw, err := sonic.Marshal(syncPayload{CourseID: courseID})
	if err != nil {
		return false, fmt.Errorf("encode payload: %w", err)
	}
	if err := q.rdb.RPush(ctx, config.WorkerKey.CourseSyncQueue, raw).Err(); err != nil {
		q.rdb.Del(ctx, config.CacheKey.SyncLockKey(courseID))
		return false, fmt.Errorf("push sync job: %w", err)
	}
	return true, nil
}

// Depth is the number of sweeps waiting in the queue.
func (q *SyncQueue) Depth(ctx context.Context) (int64, error) {
	return q.rdb.LLen(ctx, config.WorkerKey.CourseSyncQueue).Result()
}

// SyncWorker drains the course sync queue and runs each sweep once per
// batch, however many times it was queued.
type SyncWorker struct {
	store repository.Store
	sync  *service.AttendanceSyncService
	rdb   *redis.Client
	log   zerolog.Logger
}

func NewSyncWorker(store repository.Store, sync *service.AttendanceSyncService, rdb *redis.Client, log zerolog.Logger) *SyncWorker {
	return &SyncWorker{
		store: store,
		sync:  sync,
		rdb:   rdb,
		log:   log.With().Str("component", "sync_worker").Logger(),
	}
}

// decodeSyncJob parses one queue item.
func decodeSyncJob(raw string) (int64, error) {
	var p syncPayload
	if err := sonic.UnmarshalString(raw, &p); err != nil {
		return 0, err
	}
	if p.CourseID <= 0 {
		return 0, errors.New("missing course_id")
	}
	return p.CourseID, nil
}

// ----------------------------------------------------------------
// Worker loop with batching
// ----------------------------------------------------------------

func (w *SyncWorker) Start(ctx context.Context) {
	w.log.Info().Msg("SyncWorker started")

	batch := make([]int64, 0, SyncBatchSize)
	seen := make(map[int64]bool, SyncBatchSize)
	lastFlush := time.Now()

	for {
		if len(batch) > 0 &&
			(len(batch) >= SyncBatchSize || time.Since(lastFlush) >= SyncBatchTimeout) {

			w.flush(ctx, batch)
			batch = batch[:0]
			clear(seen)
			lastFlush = time.Now()
		}

		select {
		case <-ctx.Done():
			if len(batch) > 0 {
				w.log.Info().Int("pending", len(batch)).Msg("Shutdown requested. Requeueing pending sweeps...")
				w.requeue(context.Background(), batch)
			}
			return

		default:
			item, err := w.rdb.BLPop(ctx, SyncPollTimeout, config.WorkerKey.CourseSyncQueue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					w.log.Error().Err(err).Msg("BLPop error")
				}
				continue
			}
			if len(item) < 2 {
				continue
			}

			courseID, err := decodeSyncJob(item[1])
			if err != nil {
				w.log.Error().Err(err).Str("payload", item[1]).Msg("Invalid sync payload")
				continue
			}
			if !seen[courseID] {
				seen[courseID] = true
				batch = append(batch, courseID)
			}
		}
	}
}

// ----------------------------------------------------------------
// Batch execution
// ----------------------------------------------------------------

func (w *SyncWorker) flush(ctx context.Context, batch []int64) {
	for _, courseID := range batch {
		// Released first so a change made during the sweep can queue
		// another one.
		w.rdb.Del(ctx, config.CacheKey.SyncLockKey(courseID))

		course, err := w.store.GetCourse(ctx, courseID)
		if err != nil {
			w.log.Error().Err(err).Int64("course_id", courseID).Msg("Sync job for unknown course dropped")
			continue
		}
		res := w.sync.SyncCourse(ctx, course)
		if len(res.Errors) > 0 {
			w.log.Warn().
				Int64("course_id", courseID).
				Int("errors", len(res.Errors)).
				Strs("first_errors", firstN(res.Errors, 5)).
				Msg("Course sync finished with errors")
		}
	}
}

func (w *SyncWorker) requeue(ctx context.Context, batch []int64) {
	pipe := w.rdb.Pipeline()
	for _, courseID := range batch {
		raw, _ := sonic.Marshal(syncPayload{CourseID: courseID})
		pipe.RPush(ctx, config.WorkerKey.CourseSyncQueue, raw)
	}
	if _, err := pipe.Exec(ctx); err != nil {
		w.log.Error().Err(err).Msg("Requeue failed")
	}
}

func firstN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
