// Package cache keeps resolved class rosters in Redis.
package cache

import (
	"context"
	"errors"
	"time"

	"github.com/edupulse/schoolops-backend/internal/config"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// RosterCache stores encoded rosters under config.CacheKey.ClassRosterKey,
// one key per class generation. Redis errors are logged and treated as
// misses.
type RosterCache struct {
	rdb *redis.Client
	ttl time.Duration
	log zerolog.Logger
}

// NewRosterCache returns nil when rdb is nil so callers can fall back to
// an uncached roster service.
func NewRosterCache(rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *RosterCache {
	if rdb == nil {
		return nil
	}
	return &RosterCache{
		rdb: rdb,
		ttl: ttl,
		log: log.With().Str("component", "roster_cache").Logger(),
	}
}

// Get reads the class's generation and the roster filed under it. gen is
// -1 when Redis cannot be read, which tells the caller not to store.
func (c *RosterCache) Get(ctx context.Context, classID int64) ([]byte, int64, bool) {
	gen, err := c.rdb.Get(ctx, config.CacheKey.ClassRosterGenKey(classID)).Int64()
	if err != nil && !errors.Is(err, redis.Nil) {
		c.log.Warn().Err(err).Int64("class_id", classID).Msg("Roster generation read failed")
		return nil, -1, false
	}

	data, err := c.rdb.Get(ctx, config.CacheKey.ClassRosterKey(classID, gen)).Bytes()
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.log.Warn().Err(err).Int64("class_id", classID).Msg("Roster cache read failed")
		}
		return nil, gen, false
	}
	return data, gen, true
}

func (c *RosterCache) Set(ctx context.Context, classID, gen int64, data []byte) {
	if err := c.rdb.Set(ctx, config.CacheKey.ClassRosterKey(classID, gen), data, c.ttl).Err(); err != nil {
		c.log.Warn().Err(err).Int64("class_id", classID).Msg("Roster cache write failed")
	}
}

// Invalidate bumps each class's generation in one pipeline. Rosters under
// older generations are unreachable and age out with the TTL.
func (c *RosterCache) Invalidate(ctx context.Context, classIDs ...int64) {
	if len(classIDs) == 0 {
		return
	}
	pipe := c.rdb.Pipeline()
	for _, id := range classIDs {
		pipe.Incr(ctx, config.CacheKey.ClassRosterGenKey(id))
	}
	if _, err := pipe.Exec(ctx); err != nil {
		c.log.Warn().Err(err).Int("classes", len(classIDs)).Msg("Roster cache invalidation failed")
	}
}
