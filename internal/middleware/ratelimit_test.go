package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestIPRateLimiter_Allow(t *testing.T) {
	limiter := NewIPRateLimiter("test", 0.001, 3)

	for i := 0; i < 3; i++ {
		if !limiter.Allow("203.0.113.1") {
			t.Fatalf("request %d should be allowed within burst", i+1)
		}
	}
	if limiter.Allow("203.0.113.1") {
		t.Error("request beyond burst should be denied")
	}
	if !limiter.Allow("203.0.113.2") {
		t.Error("a different IP has its own bucket")
	}
}

func TestIPRateLimiter_Middleware(t *testing.T) {
	limiter := NewIPRateLimiter("test", 0.001, 1)
	handler := limiter.Middleware(okHandler)

	send := func(ip string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/track", nil)
		req.RemoteAddr = ip + ":40000"
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		return rec
	}

	if rec := send("198.51.100.4"); rec.Code != http.StatusOK {
		t.Fatalf("first request status = %d, want 200", rec.Code)
	}

	rec := send("198.51.100.4")
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status = %d, want 429", rec.Code)
	}
	if msg := decodeError(t, rec); msg != MsgTooManyRequests {
		t.Errorf("error = %q, want %q", msg, MsgTooManyRequests)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
}

func TestLimiterCache_ClearsWhenFull(t *testing.T) {
	c := newLimiterCache[int](1, 1)

	c.mu.Lock()
	for i := 0; i < 5; i++ {
		c.limiters[i] = nil
	}
	c.clearIfExceeds(5)
	c.mu.Unlock()

	if got := c.size(); got != 0 {
		t.Errorf("size after clear = %d, want 0", got)
	}

	c.get(42)
	c.get(42)
	if got := c.size(); got != 1 {
		t.Errorf("size = %d, want 1", got)
	}
}
