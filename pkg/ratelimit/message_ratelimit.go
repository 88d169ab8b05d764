// Package ratelimit throttles message sends per sender.
//
// A sender may send maxMessages within window. The message that exceeds the
// limit starts a cooldown during which every send is rejected; once the
// cooldown ends a fresh window begins.
package ratelimit

import (
	"sync"
	"time"
)

// sendBucket tracks one sender. A zero cooldownUntil means no cooldown.
type sendBucket struct {
	count         int
	windowStart   time.Time
	cooldownUntil time.Time
}

// SendLimiter is a per-sender send throttle, safe for concurrent use.
//
//	limiter := ratelimit.NewSendLimiter(5, 5*time.Second, 15*time.Second)
//	if !limiter.Allow(userID) { return 429 }
type SendLimiter struct {
	mu          sync.Mutex
	buckets     map[string]*sendBucket
	maxMessages int
	window      time.Duration
	cooldown    time.Duration
	now         func() time.Time
	stopCleanup chan struct{}
	stopOnce    sync.Once
}

// NewSendLimiter creates a limiter and starts its background cleanup.
// Call Close when the limiter is no longer used.
func NewSendLimiter(maxMessages int, window, cooldown time.Duration) *SendLimiter {
	rl := newSendLimiter(maxMessages, window, cooldown, time.Now)
	go rl.cleanupLoop(30 * time.Second)
	return rl
}

func newSendLimiter(maxMessages int, window, cooldown time.Duration, now func() time.Time) *SendLimiter {
	return &SendLimiter{
		buckets:     make(map[string]*sendBucket),
		maxMessages: maxMessages,
		window:      window,
		cooldown:    cooldown,
		now:         now,
		stopCleanup: make(chan struct{}),
	}
}

// Allow reports whether senderID may send now, and counts the attempt.
func (rl *SendLimiter) Allow(senderID string) bool {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[senderID]
	if !exists {
		rl.buckets[senderID] = &sendBucket{count: 1, windowStart: now}
		return true
	}

	if !b.cooldownUntil.IsZero() {
		if now.Before(b.cooldownUntil) {
			return false
		}
		b.count = 1
		b.windowStart = now
		b.cooldownUntil = time.Time{}
		return true
	}

	if now.Sub(b.windowStart) > rl.window {
		b.count = 1
		b.windowStart = now
		return true
	}

	b.count++
	if b.count > rl.maxMessages {
		b.cooldownUntil = now.Add(rl.cooldown)
		return false
	}
	return true
}

// RetryAfter returns the remaining cooldown for senderID in whole seconds,
// rounded up, for the Retry-After header. Zero when not cooling down.
func (rl *SendLimiter) RetryAfter(senderID string) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	b, exists := rl.buckets[senderID]
	if !exists || b.cooldownUntil.IsZero() {
		return 0
	}

	remaining := b.cooldownUntil.Sub(rl.now())
	if remaining <= 0 {
		return 0
	}
	return int(remaining.Seconds()) + 1
}

// Close stops the cleanup goroutine. Safe to call more than once.
func (rl *SendLimiter) Close() {
	rl.stopOnce.Do(func() { close(rl.stopCleanup) })
}

func (rl *SendLimiter) cleanupLoop(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanup()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanup drops buckets whose window and cooldown have both expired.
func (rl *SendLimiter) cleanup() {
	now := rl.now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	for id, b := range rl.buckets {
		windowExpired := now.Sub(b.windowStart) > rl.window
		cooldownExpired := b.cooldownUntil.IsZero() || now.After(b.cooldownUntil)
		if windowExpired && cooldownExpired {
			delete(rl.buckets, id)
		}
	}
}
