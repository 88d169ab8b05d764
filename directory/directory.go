// Package directory caches user-directory lookups on the caller's side.
//
// The cache is owned by whoever constructs it; nothing else invalidates it.
// Hosts call Invalidate when they know the directory changed (for example
// after a user was added to the conversation).
package directory

import (
	"context"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/akinalp/shopchat/models"
	"github.com/akinalp/shopchat/pkg/cache"
)

// Searcher is the searchUsers collaborator being cached.
type Searcher interface {
	SearchUsers(ctx context.Context, query string) ([]models.User, error)
}

// Cache is a Searcher that remembers answers for ttl and records every user
// it has seen. Safe for concurrent use.
type Cache struct {
	next    Searcher
	results *cache.TTLCache[string, []models.User]
	log     *zap.Logger

	mu    sync.RWMutex
	known []models.User
	seen  map[string]bool
}

// New wraps next. Close the cache when done to stop its sweep goroutine.
func New(next Searcher, ttl time.Duration, log *zap.Logger) *Cache {
	return newCache(next, cache.New[string, []models.User](ttl, ttl), log)
}

func newCache(next Searcher, results *cache.TTLCache[string, []models.User], log *zap.Logger) *Cache {
	if log == nil {
		log = zap.NewNop()
	}
	return &Cache{
		next:    next,
		results: results,
		log:     log.Named("directory"),
		seen:    make(map[string]bool),
	}
}

// SearchUsers answers from the cache when possible. Errors are not cached.
func (c *Cache) SearchUsers(ctx context.Context, query string) ([]models.User, error) {
	key := normalize(query)
	if users, ok := c.results.Get(key); ok {
		return append([]models.User(nil), users...), nil
	}

	users, err := c.next.SearchUsers(ctx, query)
	if err != nil {
		return nil, err
	}

	c.results.Set(key, users)
	c.remember(users)
	c.log.Debug("cached lookup", zap.String("query", key), zap.Int("users", len(users)))
	return append([]models.User(nil), users...), nil
}

// Invalidate drops every cached answer so the next lookup of each query goes
// to the server. Known users are kept: they are still valid mention targets.
func (c *Cache) Invalidate() {
	c.results.Clear()
	c.log.Debug("invalidated")
}

// Known returns every user seen so far, in first-seen order.
func (c *Cache) Known() []models.User {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]models.User(nil), c.known...)
}

// Close stops the background sweep.
func (c *Cache) Close() {
	c.results.Close()
}

func (c *Cache) remember(users []models.User) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, u := range users {
		if c.seen[u.ID] {
			continue
		}
		c.seen[u.ID] = true
		c.known = append(c.known, u)
	}
}

func normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}
