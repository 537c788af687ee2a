package alert

import (
	"sync"
	"time"
)

type seenEntry struct {
	key string
	ts  time.Time
}

// SeenCache remembers recently alerted findings so a scheduled rerun over the
// same edition does not alert twice.
type SeenCache struct {
	mu       sync.Mutex
	items    map[string]time.Time
	order    []seenEntry
	capacity int
	ttl      time.Duration
	now      func() time.Time
}

// NewSeenCache creates a cache with the provided capacity and ttl.
func NewSeenCache(capacity int, ttl time.Duration) *SeenCache {
	if capacity <= 0 {
		capacity = 1
	}
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &SeenCache{
		items:    make(map[string]time.Time, capacity),
		order:    make([]seenEntry, 0, capacity),
		capacity: capacity,
		ttl:      ttl,
		now:      time.Now,
	}
}

// Seen reports whether key was marked inside the ttl window.
func (c *SeenCache) Seen(key string) bool {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	ts, ok := c.items[key]
	return ok && now.Sub(ts) <= c.ttl
}

// Mark records key as alerted.
func (c *SeenCache) Mark(key string) {
	now := c.now()

	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = now
	c.order = append(c.order, seenEntry{key: key, ts: now})
	c.compact(now)
}

func (c *SeenCache) compact(now time.Time) {
	cutoff := now.Add(-c.ttl)

	for len(c.order) > 0 && (len(c.items) > c.capacity || c.order[0].ts.Before(cutoff)) {
		oldest := c.order[0]
		c.order = c.order[1:]

		if ts, ok := c.items[oldest.key]; ok && ts.Equal(oldest.ts) {
			delete(c.items, oldest.key)
		}
	}
}
