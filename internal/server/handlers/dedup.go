package handlers

import (
	"sync"
	"time"
)

// DeliveryCache remembers the IDs of webhook deliveries that queued a build, so a replay within
// the window is not built twice. Deliveries that did not queue a build are never recorded and
// stay eligible for redelivery.
type DeliveryCache struct {
	mu     sync.Mutex
	seen   map[string]time.Time
	window time.Duration
	now    func() time.Time
}

// NewDeliveryCache returns a cache remembering IDs for window. A non-positive window disables
// deduplication.
func NewDeliveryCache(window time.Duration) *DeliveryCache {
	return &DeliveryCache{seen: make(map[string]time.Time), window: window, now: time.Now}
}

// Seen reports whether id was recorded within the window. Empty IDs are never duplicates.
func (c *DeliveryCache) Seen(id string) bool {
	if c == nil || id == "" || c.window <= 0 {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expireLocked()
	_, ok := c.seen[id]
	return ok
}

// Record claims id and reports whether this call recorded it. A false return means a concurrent
// or earlier delivery with the same ID already claimed it.
func (c *DeliveryCache) Record(id string) bool {
	if c == nil || id == "" || c.window <= 0 {
		return true
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	c.expireLocked()
	if _, ok := c.seen[id]; ok {
		return false
	}
	c.seen[id] = c.now()
	return true
}

func (c *DeliveryCache) expireLocked() {
	now := c.now()
	for k, t := range c.seen {
		if now.Sub(t) > c.window {
			delete(c.seen, k)
		}
	}
}
