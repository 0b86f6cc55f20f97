// Package memcache keeps uploaded artifact references for the lifetime of
// the process, keyed by video identifier.
package memcache

import (
	"sync"
	"time"

	"transcriptqa/internal/clock"
	"transcriptqa/internal/core/domain"
)

type entry struct {
	ref       domain.ArtifactReference
	expiresAt time.Time
}

// Cache implements ports.ArtifactCache in memory. Entries expire after ttl;
// a non-positive ttl keeps them until invalidated.
type Cache struct {
	mu      sync.Mutex
	entries map[string]entry
	ttl     time.Duration
	clock   clock.Clock
}

// New creates an empty Cache.
func New(ttl time.Duration, clk clock.Clock) *Cache {
	if clk == nil {
		clk = clock.Real{}
	}
	return &Cache{entries: make(map[string]entry), ttl: ttl, clock: clk}
}

// Get returns the reference stored for videoID, if present and fresh.
func (c *Cache) Get(videoID string) (domain.ArtifactReference, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[videoID]
	if !ok {
		return domain.ArtifactReference{}, false
	}
	if !e.expiresAt.IsZero() && !c.clock.Now().Before(e.expiresAt) {
		delete(c.entries, videoID)
		return domain.ArtifactReference{}, false
	}
	return e.ref, true
}

// Put stores ref for videoID, replacing any previous entry.
func (c *Cache) Put(videoID string, ref domain.ArtifactReference) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e := entry{ref: ref}
	if c.ttl > 0 {
		e.expiresAt = c.clock.Now().Add(c.ttl)
	}
	c.entries[videoID] = e
}

// Invalidate drops the entry for videoID.
func (c *Cache) Invalidate(videoID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, videoID)
}

// Len reports the number of stored entries, expired ones included.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
