package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/lucci-xyz/pilot/internal/model"
)

func TestRateLimiterAllowAndReset(t *testing.T) {
	rl := NewRateLimiter(2, time.Second)
	keyID := uuid.New()

	allowed, remaining, _ := rl.Allow(keyID)
	if !allowed || remaining != 1 {
		t.Fatalf("unexpected first allow result: allowed=%v remaining=%d", allowed, remaining)
	}

	allowed, remaining, _ = rl.Allow(keyID)
	if !allowed || remaining != 0 {
		t.Fatalf("unexpected second allow result: allowed=%v remaining=%d", allowed, remaining)
	}

	allowed, remaining, _ = rl.Allow(keyID)
	if allowed || remaining != 0 {
		t.Fatalf("expected request to be rate-limited: allowed=%v remaining=%d", allowed, remaining)
	}

	time.Sleep(1100 * time.Millisecond)

	allowed, remaining, _ = rl.Allow(keyID)
	if !allowed || remaining != 1 {
		t.Fatalf("expected reset window allow: allowed=%v remaining=%d", allowed, remaining)
	}
}

func TestRateLimiterKeysAreIndependent(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	first := uuid.New()
	second := uuid.New()

	if allowed, _, _ := rl.Allow(first); !allowed {
		t.Fatal("expected first key to be allowed")
	}
	if allowed, _, _ := rl.Allow(first); allowed {
		t.Fatal("expected first key to be exhausted")
	}
	if allowed, _, _ := rl.Allow(second); !allowed {
		t.Fatal("expected second key to have its own window")
	}
}

func TestRateLimitMiddlewareSetsHeaders(t *testing.T) {
	rl := NewRateLimiter(5, time.Minute)
	mw := RateLimitMiddleware(rl)

	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	key := &model.APIKey{ID: uuid.New()}
	req := httptest.NewRequest(http.MethodGet, "/v1/usage", nil)
	req = req.WithContext(context.WithValue(req.Context(), apiKeyContextKey, key))
	rr := httptest.NewRecorder()

	h.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Fatalf("unexpected status code: %d", rr.Code)
	}
	if rr.Header().Get("X-RateLimit-Limit") != "5" {
		t.Fatalf("unexpected limit header %q", rr.Header().Get("X-RateLimit-Limit"))
	}
	if rr.Header().Get("X-RateLimit-Remaining") != "4" {
		t.Fatalf("unexpected remaining header %q", rr.Header().Get("X-RateLimit-Remaining"))
	}
}

func TestRateLimitMiddlewareRejectsWhenExhausted(t *testing.T) {
	rl := NewRateLimiter(1, time.Minute)
	mw := RateLimitMiddleware(rl)

	calls := 0
	h := mw(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusOK)
	}))

	key := &model.APIKey{ID: uuid.New()}
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodGet, "/v1/usage", nil)
		req = req.WithContext(context.WithValue(req.Context(), apiKeyContextKey, key))
		rr := httptest.NewRecorder()
		h.ServeHTTP(rr, req)

		if i == 1 && rr.Code != http.StatusTooManyRequests {
			t.Fatalf("expected 429 on second request, got %d", rr.Code)
		}
	}
	if calls != 1 {
		t.Fatalf("expected handler called once, got %d", calls)
	}
}

func TestRateLimiterCleanupRemovesStaleEntries(t *testing.T) {
	rl := NewRateLimiter(10, time.Minute)
	now := time.Now()

	rl.counters["stale"] = &rateWindow{
		count:    1,
		resetAt:  now.Add(-24 * time.Hour),
		lastSeen: now.Add(-48 * time.Hour),
	}
	rl.lastCleanup = now.Add(-cleanupInterval - time.Second)

	_, _, _ = rl.Allow(uuid.New())

	if _, exists := rl.counters["stale"]; exists {
		t.Fatal("expected stale rate-limit entry to be cleaned up")
	}
}
