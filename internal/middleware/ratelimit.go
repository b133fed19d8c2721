package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// RateLimiter implements per-API-key sliding window rate limiting. Keys do
// not carry individual limits; a single max/window pair from configuration
// applies to every key.
type RateLimiter struct {
	mu          sync.Mutex
	max         int
	window      time.Duration
	counters    map[string]*rateWindow
	lastCleanup time.Time
}

type rateWindow struct {
	count    int
	resetAt  time.Time
	lastSeen time.Time
}

const (
	cleanupInterval    = 5 * time.Minute
	expiredWindowGrace = 10 * time.Minute
	staleEntryTTL      = 24 * time.Hour
)

// NewRateLimiter creates an in-memory rate limiter allowing max requests
// per window per key.
func NewRateLimiter(max int, window time.Duration) *RateLimiter {
	return &RateLimiter{
		max:         max,
		window:      window,
		counters:    make(map[string]*rateWindow),
		lastCleanup: time.Now(),
	}
}

// Allow checks if the key is within its rate limit.
// Returns (allowed, remaining, resetAt).
func (rl *RateLimiter) Allow(keyID uuid.UUID) (bool, int, time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	key := keyID.String()
	now := time.Now()

	w, exists := rl.counters[key]
	if !exists || now.After(w.resetAt) {
		rl.counters[key] = &rateWindow{
			count:    1,
			resetAt:  now.Add(rl.window),
			lastSeen: now,
		}
		rl.cleanupLocked(now)
		return true, rl.max - 1, now.Add(rl.window)
	}

	w.lastSeen = now
	resetAt := w.resetAt

	if w.count >= rl.max {
		rl.cleanupLocked(now)
		return false, 0, resetAt
	}

	w.count++
	rl.cleanupLocked(now)
	return true, rl.max - w.count, resetAt
}

// Remaining returns the remaining request count without incrementing.
func (rl *RateLimiter) Remaining(keyID uuid.UUID) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	w, exists := rl.counters[keyID.String()]
	if !exists || now.After(w.resetAt) {
		rl.cleanupLocked(now)
		return rl.max
	}

	w.lastSeen = now
	remaining := rl.max - w.count
	rl.cleanupLocked(now)
	if remaining < 0 {
		return 0
	}
	return remaining
}

// Limit returns the configured per-window maximum.
func (rl *RateLimiter) Limit() int {
	return rl.max
}

// RateLimitMiddleware returns middleware that enforces per-key rate limits
// on API-key-authenticated routes.
func RateLimitMiddleware(rl *RateLimiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			apiKey := GetAPIKey(r.Context())
			if apiKey == nil {
				next.ServeHTTP(w, r)
				return
			}

			allowed, remaining, resetAt := rl.Allow(apiKey.ID)

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.max))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(resetAt.Unix(), 10))

			if !allowed {
				respondError(w, http.StatusTooManyRequests, "rate_limited", "Rate limit exceeded")
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) cleanupLocked(now time.Time) {
	if now.Sub(rl.lastCleanup) < cleanupInterval {
		return
	}

	for key, w := range rl.counters {
		if now.Sub(w.lastSeen) > staleEntryTTL || now.After(w.resetAt.Add(expiredWindowGrace)) {
			delete(rl.counters, key)
		}
	}

	rl.lastCleanup = now
}
