// Package logcache is a short-TTL cache in front of the set log reads.
// Analytics recomputes from the full log on every request, so shaving the
// repeated reads matters more than freshness measured in seconds.
//
// Every snapshot is stored twice: under a TTL key answering normal reads,
// and under a non-expiring key holding the last-known-good copy. The stale
// copy is only served when the store itself is unreachable.
package logcache

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/claude/liftstate/internal/models"
	"github.com/coocood/freecache"
)

const (
	cacheSizeBytes = 8 * 1024 * 1024
	defaultTTL     = 5 * time.Minute
)

var (
	keyRows           = []byte("set_log_rows")
	keyRowsStale      = []byte("set_log_rows_stale")
	keyExercises      = []byte("exercises")
	keyExercisesStale = []byte("exercises_stale")
)

// Cache holds the most recent snapshot of the set log and exercise table.
type Cache struct {
	c   *freecache.Cache
	ttl time.Duration
}

// New creates a cache with the given TTL. A zero ttl uses the 5 minute
// default.
func New(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = defaultTTL
	}
	return &Cache{c: freecache.NewCache(cacheSizeBytes), ttl: ttl}
}

func (c *Cache) get(key []byte, out any) bool {
	data, err := c.c.Get(key)
	if err != nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

func (c *Cache) set(key, staleKey []byte, v any, what string) error {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", what, err)
	}
	if err := c.c.Set(key, data, int(c.ttl.Seconds())); err != nil {
		return fmt.Errorf("caching %s: %w", what, err)
	}
	// expire 0: the last-known-good copy never ages out.
	if err := c.c.Set(staleKey, data, 0); err != nil {
		return fmt.Errorf("caching stale %s: %w", what, err)
	}
	return nil
}

// Rows returns the cached set log, or false when absent or expired.
func (c *Cache) Rows() ([]models.RawSetRow, bool) {
	var rows []models.RawSetRow
	if !c.get(keyRows, &rows) {
		return nil, false
	}
	return rows, true
}

// StaleRows returns the last-known set log regardless of TTL or
// invalidation. For use only when the store read has already failed.
func (c *Cache) StaleRows() ([]models.RawSetRow, bool) {
	var rows []models.RawSetRow
	if !c.get(keyRowsStale, &rows) {
		return nil, false
	}
	return rows, true
}

// SetRows stores a set log snapshot.
func (c *Cache) SetRows(rows []models.RawSetRow) error {
	return c.set(keyRows, keyRowsStale, rows, "set rows")
}

// Exercises returns the cached exercise table, or false when absent.
func (c *Cache) Exercises() ([]models.Exercise, bool) {
	var exercises []models.Exercise
	if !c.get(keyExercises, &exercises) {
		return nil, false
	}
	return exercises, true
}

// StaleExercises returns the last-known exercise table regardless of TTL or
// invalidation.
func (c *Cache) StaleExercises() ([]models.Exercise, bool) {
	var exercises []models.Exercise
	if !c.get(keyExercisesStale, &exercises) {
		return nil, false
	}
	return exercises, true
}

// SetExercises stores an exercise table snapshot.
func (c *Cache) SetExercises(exercises []models.Exercise) error {
	return c.set(keyExercises, keyExercisesStale, exercises, "exercises")
}

// Invalidate drops the fresh snapshots. Called synchronously after any write
// so the next read reflects it. The stale copies stay: after a write they no
// longer reflect the log exactly, but during an outage a slightly outdated
// snapshot still beats an empty answer.
func (c *Cache) Invalidate() {
	c.c.Del(keyRows)
	c.c.Del(keyExercises)
}
