package config

import (
	"fmt"
)

type CacheKeyStruct struct{}

func NewCacheKeyStruct() *CacheKeyStruct {
	return &CacheKeyStruct{}
}

// ClassRosterKey returns the cache key for a class's roster as resolved
// under generation gen
func (r *CacheKeyStruct) ClassRosterKey(classID, gen int64) string {
	return fmt.Sprintf("class:%d:roster:%d", classID, gen)
}

// ClassRosterGenKey returns the counter bumped on every roster invalidation
func (r *CacheKeyStruct) ClassRosterGenKey(classID int64) string {
	return fmt.Sprintf("class:%d:roster_gen", classID)
}

// SyncLockKey returns the key marking a course sweep as already queued
func (r *CacheKeyStruct) SyncLockKey(courseID int64) string {
	return fmt.Sprintf("course:%d:sync_lock", courseID)
}

var CacheKey = NewCacheKeyStruct()
