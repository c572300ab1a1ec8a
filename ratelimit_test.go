package main

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestRateLimiterAllow(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(time.Minute, 3)
	defer rl.Stop()

	for i := 0; i < 3; i++ {
		ok, remaining, _ := rl.Allow("k")
		if !ok {
			t.Fatalf("request %d unexpectedly limited", i+1)
		}
		if remaining != 3-(i+1) {
			t.Errorf("remaining = %d, want %d", remaining, 3-(i+1))
		}
	}
	if ok, remaining, _ := rl.Allow("k"); ok || remaining != 0 {
		t.Fatalf("fourth request allowed (remaining=%d)", remaining)
	}

	// Separate keys have separate budgets.
	if ok, _, _ := rl.Allow("other"); !ok {
		t.Fatal("fresh key unexpectedly limited")
	}
}

func TestRateLimiterWindowExpiry(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(20*time.Millisecond, 1)
	defer rl.Stop()

	if ok, _, _ := rl.Allow("k"); !ok {
		t.Fatal("first request limited")
	}
	if ok, _, _ := rl.Allow("k"); ok {
		t.Fatal("second request inside window allowed")
	}
	time.Sleep(30 * time.Millisecond)
	if ok, _, _ := rl.Allow("k"); !ok {
		t.Fatal("request after window expiry still limited")
	}
}

func TestRateLimiterSweepDiscardsExpired(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(10*time.Millisecond, 5)
	defer rl.Stop()

	rl.Allow("a")
	rl.Allow("b")
	time.Sleep(20 * time.Millisecond)
	rl.Allow("c")

	rl.sweep(time.Now())

	rl.mu.Lock()
	defer rl.mu.Unlock()
	if _, ok := rl.entries["a"]; ok {
		t.Error("expired entry survived sweep")
	}
	if len(rl.entries) != 1 {
		t.Errorf("entries after sweep = %d, want 1 (the live one)", len(rl.entries))
	}
}

func TestRateLimiterMiddleware(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(time.Minute, 2)
	defer rl.Stop()

	h := rl.Middleware("auth")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/api/auth/login", nil)
		req.RemoteAddr = "198.51.100.7:4242"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec
	}

	for i := 0; i < 2; i++ {
		if rec := do(); rec.Code != http.StatusOK {
			t.Fatalf("request %d: status = %d", i+1, rec.Code)
		}
	}
	rec := do()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("missing Retry-After header")
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Errorf("X-RateLimit-Remaining = %q, want 0", rec.Header().Get("X-RateLimit-Remaining"))
	}

	// A different client IP is a different counter.
	req := httptest.NewRequest(http.MethodGet, "/api/auth/login", nil)
	req.RemoteAddr = "203.0.113.9:4242"
	other := httptest.NewRecorder()
	h.ServeHTTP(other, req)
	if other.Code != http.StatusOK {
		t.Fatalf("other client status = %d, want 200", other.Code)
	}
}

func TestCredentialBudget(t *testing.T) {
	t.Parallel()

	cases := []struct{ max, want int }{
		{100, 25},
		{8, 2},
		{4, 1},
		{3, 1},
		{1, 1},
	}
	for _, tc := range cases {
		if got := credentialBudget(tc.max); got != tc.want {
			t.Errorf("credentialBudget(%d) = %d, want %d", tc.max, got, tc.want)
		}
	}
}

func TestRouterCredentialEndpointsStricterBudget(t *testing.T) {
	t.Parallel()

	cfg := Config{
		CORSOrigin:      "http://localhost:5173",
		RateLimitWindow: time.Minute,
		RateLimitMax:    8,
	}
	limits := NewRateLimiter(cfg.RateLimitWindow, cfg.RateLimitMax)
	defer limits.Stop()
	authLimits := NewRateLimiter(cfg.RateLimitWindow, credentialBudget(cfg.RateLimitMax))
	defer authLimits.Stop()
	r := newRouter(cfg, limits, authLimits)

	login := func() int {
		req := httptest.NewRequest(http.MethodPost, "/api/auth/login", nil)
		req.RemoteAddr = "198.51.100.7:4242"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		return rec.Code
	}

	// Credential budget is 8/4 = 2; the empty-body requests fail
	// validation but still spend it.
	for i := 0; i < 2; i++ {
		if code := login(); code == http.StatusTooManyRequests {
			t.Fatalf("request %d: limited inside credential budget", i+1)
		}
	}
	if code := login(); code != http.StatusTooManyRequests {
		t.Fatalf("status = %d, want 429 once the credential budget is spent", code)
	}

	// The general API budget still has room for the same client.
	req := httptest.NewRequest(http.MethodGet, "/api/health", nil)
	req.RemoteAddr = "198.51.100.7:4242"
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("health status = %d, want 200", rec.Code)
	}
}

func TestRateLimiterScopesDoNotShareCounters(t *testing.T) {
	t.Parallel()

	rl := NewRateLimiter(time.Minute, 1)
	defer rl.Stop()

	api := rl.Middleware("api")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	auth := rl.Middleware("auth")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "198.51.100.7:1"

	rec := httptest.NewRecorder()
	api.ServeHTTP(rec, req)
	if rec.Code == http.StatusTooManyRequests {
		t.Fatal("first api request limited")
	}

	rec = httptest.NewRecorder()
	auth.ServeHTTP(rec, req)
	if rec.Code == http.StatusTooManyRequests {
		t.Fatal("auth scope shared the api counter")
	}
}
