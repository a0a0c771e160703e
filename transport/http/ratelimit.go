package http

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// fixedWindowLimiter counts requests per key over a fixed window. State
// lives in one lock-protected map; stale windows are swept periodically so
// the map does not grow with the set of client IPs ever seen.
type fixedWindowLimiter struct {
	mu      sync.Mutex
	limit   int
	window  time.Duration
	entries map[string]*windowEntry
}

type windowEntry struct {
	count   int
	resetAt time.Time
}

func newFixedWindowLimiter(limit int, window time.Duration) *fixedWindowLimiter {
	l := &fixedWindowLimiter{
		limit:   limit,
		window:  window,
		entries: make(map[string]*windowEntry),
	}

	go l.sweep()

	return l
}

// allow records one hit for key and reports whether it is within budget.
func (l *fixedWindowLimiter) allow(key string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	entry, ok := l.entries[key]
	if !ok || !now.Before(entry.resetAt) {
		l.entries[key] = &windowEntry{count: 1, resetAt: now.Add(l.window)}
		return true
	}

	entry.count++
	return entry.count <= l.limit
}

func (l *fixedWindowLimiter) sweep() {
	ticker := time.NewTicker(l.window)
	defer ticker.Stop()

	for now := range ticker.C {
		l.mu.Lock()
		for key, entry := range l.entries {
			if !now.Before(entry.resetAt) {
				delete(l.entries, key)
			}
		}
		l.mu.Unlock()
	}
}

// RateLimit returns middleware enforcing a per-client-IP fixed-window
// budget for the route it is mounted on. On exhaustion it short-circuits
// before the handler with a uniform too-many-requests response.
func RateLimit(limit int, window time.Duration) gin.HandlerFunc {
	if limit <= 0 {
		return func(c *gin.Context) { c.Next() }
	}

	limiter := newFixedWindowLimiter(limit, window)

	return func(c *gin.Context) {
		key := c.ClientIP() + ":" + c.FullPath()

		if !limiter.allow(key, time.Now()) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limited",
				"message": "too many requests",
			})
			return
		}

		c.Next()
	}
}
