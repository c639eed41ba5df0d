// Package middleware provides HTTP middleware for the API.
package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

// TimeProvider is an interface for getting the current time.
type TimeProvider interface {
	Now() time.Time
}

// realTimeProvider is the default implementation of TimeProvider.
type realTimeProvider struct{}

func (r *realTimeProvider) Now() time.Time {
	return time.Now()
}

// rateLimitWindow is the fixed window length.
const rateLimitWindow = time.Minute

// windowInfo holds the request count for one client's current window.
type windowInfo struct {
	start time.Time
	count int
}

// RateLimiter enforces a fixed per-minute request budget per client IP.
// A limit of zero or less disables enforcement entirely.
type RateLimiter struct {
	mu           sync.Mutex
	perMinute    int
	windows      map[string]windowInfo
	timeProvider TimeProvider
}

// NewRateLimiter creates a rate limiter allowing perMinute requests per
// client per minute.
func NewRateLimiter(perMinute int) *RateLimiter {
	return &RateLimiter{
		perMinute:    perMinute,
		windows:      make(map[string]windowInfo),
		timeProvider: &realTimeProvider{},
	}
}

// Middleware returns the rate limiting middleware function.
func (rl *RateLimiter) Middleware() gin.HandlerFunc {
	if rl.perMinute <= 0 {
		return func(c *gin.Context) {
			c.Next()
		}
	}

	return func(c *gin.Context) {
		allowed, remaining, reset := rl.take(c.ClientIP())

		c.Header("X-RateLimit-Limit", strconv.Itoa(rl.perMinute))
		c.Header("X-RateLimit-Remaining", strconv.Itoa(remaining))
		c.Header("X-RateLimit-Reset", strconv.FormatInt(reset.Unix(), 10))

		if !allowed {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":   "rate_limit_exceeded",
				"message": "Too many requests",
			})
			return
		}

		c.Next()
	}
}

// take consumes one request slot for a client, rolling the window over when
// it has elapsed. Expired windows of other clients are pruned in passing.
func (rl *RateLimiter) take(client string) (allowed bool, remaining int, reset time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.timeProvider.Now()
	rl.prune(now)

	w, ok := rl.windows[client]
	if !ok || now.Sub(w.start) >= rateLimitWindow {
		w = windowInfo{start: now}
	}

	reset = w.start.Add(rateLimitWindow)
	if w.count >= rl.perMinute {
		rl.windows[client] = w
		return false, 0, reset
	}

	w.count++
	rl.windows[client] = w
	return true, rl.perMinute - w.count, reset
}

// prune drops windows that have fully elapsed so the map stays bounded by the
// number of active clients.
func (rl *RateLimiter) prune(now time.Time) {
	for client, w := range rl.windows {
		if now.Sub(w.start) >= rateLimitWindow {
			delete(rl.windows, client)
		}
	}
}
