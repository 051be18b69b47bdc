package engine

import (
	"fmt"
	"hash/fnv"
	"strings"
	"sync"
	"time"

	"github.com/axelvallin-balder/schedule-builder-sub000/internal/models"
)

// Entry TTLs by answer kind.
const (
	TTLConflict      = 30 * time.Second
	TTLStatic        = time.Minute
	TTLRankedCourses = 10 * time.Minute
)

const defaultSweepInterval = time.Minute

type cacheEntry struct {
	value     interface{}
	expiresAt time.Time
}

// FeasibilityCache memoizes feasibility answers and ranked course lists
// with per-entry TTLs. Expired entries are dropped lazily on read and by
// a periodic sweep. The cache is a speed optimization only: callers key
// entries so that a hit is never more authoritative than recomputing
// (negative conflict answers are keyed per run, positive ones also per
// occupancy revision, static answers per constraint values).
//
// Instances are constructed explicitly and shared deliberately; Stop
// releases the sweeper goroutine. A nil *FeasibilityCache is valid and
// disables caching: every Get misses and every Set is a no-op, so results
// are identical with and without a cache.
type FeasibilityCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	done    chan struct{}
	once    sync.Once
	now     func() time.Time
}

// NewFeasibilityCache returns a running cache. sweepEvery <= 0 selects
// the default one-minute sweep interval.
func NewFeasibilityCache(sweepEvery time.Duration) *FeasibilityCache {
	if sweepEvery <= 0 {
		sweepEvery = defaultSweepInterval
	}
	c := &FeasibilityCache{
		entries: make(map[string]cacheEntry),
		done:    make(chan struct{}),
		now:     time.Now,
	}
	go c.sweepLoop(sweepEvery)
	return c
}

// Get returns the stored value. An expired entry is deleted and reported
// as a miss.
func (c *FeasibilityCache) Get(key string) (interface{}, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().After(entry.expiresAt) {
		delete(c.entries, key)
		return nil, false
	}
	return entry.value, true
}

// Set stores a value under the key with the given TTL.
func (c *FeasibilityCache) Set(key string, value interface{}, ttl time.Duration) {
	if c == nil || ttl <= 0 {
		return
	}
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: value, expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
}

// Len reports the number of live entries, counting unexpired only.
func (c *FeasibilityCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	count := 0
	now := c.now()
	for _, entry := range c.entries {
		if !now.After(entry.expiresAt) {
			count++
		}
	}
	return count
}

// Stop terminates the sweep goroutine. The cache remains readable.
func (c *FeasibilityCache) Stop() {
	if c == nil {
		return
	}
	c.once.Do(func() {
		close(c.done)
	})
}

func (c *FeasibilityCache) sweepLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			c.sweep()
		}
	}
}

func (c *FeasibilityCache) sweep() {
	c.mu.Lock()
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
	c.mu.Unlock()
}

// --- Key builders ---

// conflictKey holds occupancy-derived infeasibility. Occupancy only grows
// within a run, so a negative answer stays valid for the rest of that run.
func conflictKey(runID, courseID string, key slotKey) string {
	return fmt.Sprintf("conflict:%s:%s:%d:%d", runID, courseID, key.Day, key.Cell)
}

// feasibleKey holds a positive answer tied to the occupancy revision it
// was computed at; any later commit changes the revision and invalidates it.
func feasibleKey(runID string, revision uint64, courseID string, key slotKey) string {
	return fmt.Sprintf("feasible:%s:%d:%s:%d:%d", runID, revision, courseID, key.Day, key.Cell)
}

// lunchKey holds the static lunch-window answer for a cell; it depends on
// nothing but the clock values, so it is shared across runs.
func lunchKey(cell, duration int, b bounds) string {
	return fmt.Sprintf("lunch:%d:%d:%d:%d", cell, duration, b.lunchStart, b.lunchEnd)
}

// rankedCoursesKey digests the ordering inputs of a course list. Entries
// stored under it hold the ranked id order only; course fields outside
// the digest must never be cached.
func rankedCoursesKey(courses []models.Course) string {
	h := fnv.New64a()
	var sb strings.Builder
	for _, course := range courses {
		sb.Reset()
		fmt.Fprintf(&sb, "%s|%d|%d;", course.ID, course.WeeklyHours, len(course.GroupIDs))
		_, _ = h.Write([]byte(sb.String()))
	}
	return fmt.Sprintf("ranked:%x:%d", h.Sum64(), len(courses))
}
