package handler

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/edupulse/schoolops-backend/internal/middleware"
	"github.com/edupulse/schoolops-backend/internal/response"
	"github.com/edupulse/schoolops-backend/internal/scheduler"
	"github.com/edupulse/schoolops-backend/internal/worker"
	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

const metricsInterval = 7 * time.Second

// feedStats is satisfied by the live attendance hub.
type feedStats interface {
	Stats() (classes, subscribers int)
}

// SystemHandler reports on the sync machinery: the database pool, the
// course sync queue, the scheduled sweep and the live attendance feed.
type SystemHandler struct {
	pool      *pgxpool.Pool     // nil in tests
	queue     *worker.SyncQueue // nil when Redis is not configured
	sweep     *scheduler.Sweep  // nil when SYNC_CRON is empty
	feed      feedStats
	startTime time.Time
	log       zerolog.Logger
}

func NewSystemHandler(pool *pgxpool.Pool, queue *worker.SyncQueue, sweep *scheduler.Sweep, feed feedStats, log zerolog.Logger) *SystemHandler {
	return &SystemHandler{
		pool:      pool,
		queue:     queue,
		sweep:     sweep,
		feed:      feed,
		startTime: time.Now(),
		log:       log.With().Str("component", "system_handler").Logger(),
	}
}

type systemSnapshot struct {
	Timestamp int64  `json:"timestamp"`
	Uptime    string `json:"uptime"`

	Process struct {
		Goroutines int    `json:"goroutines"`
		HeapAlloc  uint64 `json:"heap_alloc"`
		NumGC      uint32 `json:"num_gc"`
		RSSBytes   uint64 `json:"rss_bytes"`
		GoVersion  string `json:"go_version"`
	} `json:"process"`

	Database struct {
		TotalConns    int32 `json:"total_conns"`
		IdleConns     int32 `json:"idle_conns"`
		AcquiredConns int32 `json:"acquired_conns"`
		MaxConns      int32 `json:"max_conns"`
	} `json:"database"`

	// SyncQueueDepth is -1 when the queue is disabled or unreachable.
	SyncQueueDepth int64                 `json:"sync_queue_depth"`
	Sweep          scheduler.SweepStatus `json:"sweep"`

	LiveFeed struct {
		Classes     int `json:"classes"`
		Subscribers int `json:"subscribers"`
	} `json:"live_feed"`
}

// SystemStatus godoc
// GET /api/v1/admin/system/status
func (h *SystemHandler) SystemStatus(c *gin.Context) {
	response.Success(c, http.StatusOK, h.collect(c.Request.Context()))
}

// SystemMetricsSSE godoc
// GET /api/v1/admin/system/metrics
func (h *SystemHandler) SystemMetricsSSE(c *gin.Context) {
	actor := middleware.GetActor(c)
	if actor == nil {
		response.Fail(c, http.StatusUnauthorized, response.ErrTokenRequired)
		return
	}

	reqCtx := c.Request.Context()

	c.Writer.Header().Set("Content-Type", "text/event-stream")
	c.Writer.Header().Set("Cache-Control", "no-cache")
	c.Writer.Header().Set("Connection", "keep-alive")

	h.log.Info().Int64("staff_id", actor.ID).Msg("Admin connected to system metrics stream")

	ticker := time.NewTicker(metricsInterval)
	defer ticker.Stop()

	h.writeEvent(c)

	for {
		select {
		case <-reqCtx.Done():
			h.log.Info().Int64("staff_id", actor.ID).Msg("Admin disconnected from system metrics stream")
			return
		case <-ticker.C:
			h.writeEvent(c)
		}
	}
}

func (h *SystemHandler) writeEvent(c *gin.Context) {
	data, err := sonic.Marshal(h.collect(c.Request.Context()))
	if err != nil {
		h.log.Error().Err(err).Msg("Encode system snapshot")
		return
	}
	fmt.Fprintf(c.Writer, "event: system\ndata: %s\n\n", data)
	c.Writer.Flush()
}

func (h *SystemHandler) collect(ctx context.Context) systemSnapshot {
	s := systemSnapshot{
		Timestamp:      time.Now().Unix(),
		Uptime:         formatUptime(time.Since(h.startTime)),
		SyncQueueDepth: -1,
		Sweep:          h.sweep.Status(),
	}

	var ms runtime.MemStats
	runtime.ReadMemStats(&ms)
	s.Process.Goroutines = runtime.NumGoroutine()
	s.Process.HeapAlloc = ms.HeapAlloc
	s.Process.NumGC = ms.NumGC
	s.Process.RSSBytes, _ = readProcessRSS()
	s.Process.GoVersion = runtime.Version()

	if h.pool != nil {
		st := h.pool.Stat()
		s.Database.TotalConns = st.TotalConns()
		s.Database.IdleConns = st.IdleConns()
		s.Database.AcquiredConns = st.AcquiredConns()
		s.Database.MaxConns = st.MaxConns()
	}

	if h.queue != nil {
		qctx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		if n, err := h.queue.Depth(qctx); err == nil {
			s.SyncQueueDepth = n
		}
	}

	if h.feed != nil {
		s.LiveFeed.Classes, s.LiveFeed.Subscribers = h.feed.Stats()
	}
	return s
}

// readProcessRSS reads VmRSS from /proc/self/status. Off Linux it
// reports an error and the field stays zero.
func readProcessRSS() (uint64, error) {
	data, err := os.ReadFile("/proc/self/status")
	if err != nil {
		return 0, err
	}
	for _, line := range strings.Split(string(data), "\n") {
		rest, ok := strings.CutPrefix(line, "VmRSS:")
		if !ok {
			continue
		}
		// "VmRSS:     123456 kB"
		kb, err := strconv.ParseUint(strings.TrimSuffix(strings.TrimSpace(rest), " kB"), 10, 64)
		if err != nil {
			return 0, err
		}
		return kb * 1024, nil
	}
	return 0, fmt.Errorf("VmRSS not found")
}

func formatUptime(d time.Duration) string {
	d = d.Truncate(time.Second)
	if days := d / (24 * time.Hour); days > 0 {
		return fmt.Sprintf("%dd %s", days, d%(24*time.Hour))
	}
	return d.String()
}
