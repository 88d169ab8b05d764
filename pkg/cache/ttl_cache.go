// Package cache provides a generic, in-memory cache with a time-to-live.
//
// What is a TTL cache?
// Every entry is stamped with an expiry time when it is written. Until then
// Get returns it straight from memory; afterwards the entry is treated as
// missing and the caller goes back to the source of truth. Nothing has to
// tell the cache that the data changed: staleness is bounded by the ttl.
//
// Where is it used?
// The user directory is read far more often than it changes. Every "@ja"
// keystroke in the composer and every display-name lookup on send would
// otherwise hit SQLite or the HTTP API. Both the server's user search and the
// client's directory put a TTLCache in front of those calls.
//
// Two clocks:
//   - ttl decides correctness. Get compares against expiresAt on every call,
//     so an expired entry is never returned, even if it is still in the map.
//   - cleanupInterval decides memory. A background ticker sweeps expired
//     entries so keys that are never read again do not live forever.
//     It should be shorter than ttl; a longer interval only delays freeing.
//
// Concurrency: reads take an RLock and may run in parallel, writes take the
// full Lock. Values are returned as stored, so callers sharing slices should
// copy before mutating.
package cache

import (
	"sync"
	"time"
)

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// TTLCache is safe for concurrent use.
//
//	c := cache.New[string, []models.User](30*time.Second, time.Minute)
//	c.Set("ja", users)
//	users, ok := c.Get("ja")
type TTLCache[K comparable, V any] struct {
	mu      sync.RWMutex
	entries map[K]entry[V]
	ttl     time.Duration
	now     func() time.Time

	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// New creates a cache and starts the sweep goroutine. cleanupInterval should
// be shorter than ttl. Call Close when done.
func New[K comparable, V any](ttl, cleanupInterval time.Duration) *TTLCache[K, V] {
	c := newTTLCache[K, V](ttl, time.Now)

	go func() {
		ticker := time.NewTicker(cleanupInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				c.evictExpired()
			case <-c.stopCleanup:
				return
			}
		}
	}()

	return c
}

func newTTLCache[K comparable, V any](ttl time.Duration, now func() time.Time) *TTLCache[K, V] {
	return &TTLCache[K, V]{
		entries:     make(map[K]entry[V]),
		ttl:         ttl,
		now:         now,
		stopCleanup: make(chan struct{}),
	}
}

// Get returns the value for key when present and not expired.
func (c *TTLCache[K, V]) Get(key K) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

// Set stores value under key for one ttl.
func (c *TTLCache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[key] = entry[V]{
		value:     value,
		expiresAt: c.now().Add(c.ttl),
	}
}

// Delete removes key.
func (c *TTLCache[K, V]) Delete(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, key)
}

// Clear empties the cache.
func (c *TTLCache[K, V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[K]entry[V])
}

// Len counts entries, expired ones included.
func (c *TTLCache[K, V]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Close stops the sweep goroutine. Safe to call more than once.
func (c *TTLCache[K, V]) Close() {
	c.stopOnce.Do(func() { close(c.stopCleanup) })
}

func (c *TTLCache[K, V]) evictExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, key)
		}
	}
}
