package main

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// RateLimiter is a keyed fixed-window counter store. It is injected
// where needed rather than held as package state, so multiple instances
// with different budgets can coexist and tests get their own store.
type RateLimiter struct {
	mu      sync.Mutex
	entries map[string]*rlEntry
	window  time.Duration
	max     int
	done    chan struct{}
}

type rlEntry struct {
	count int
	reset time.Time
}

const rlSweepInterval = 5 * time.Minute

func NewRateLimiter(window time.Duration, max int) *RateLimiter {
	rl := &RateLimiter{
		entries: make(map[string]*rlEntry),
		window:  window,
		max:     max,
		done:    make(chan struct{}),
	}
	go rl.sweepLoop()
	return rl
}

// Allow records one request against key and reports whether it fits the
// window, along with the remaining budget and the window reset time.
func (rl *RateLimiter) Allow(key string) (ok bool, remaining int, reset time.Time) {
	now := time.Now()

	rl.mu.Lock()
	defer rl.mu.Unlock()

	e := rl.entries[key]
	if e == nil || now.After(e.reset) {
		e = &rlEntry{reset: now.Add(rl.window)}
		rl.entries[key] = e
	}
	e.count++

	remaining = rl.max - e.count
	if remaining < 0 {
		remaining = 0
	}
	return e.count <= rl.max, remaining, e.reset
}

// Middleware enforces the limit per client IP under the given scope
// prefix, so auth endpoints can carry a stricter budget than the rest
// of the API without sharing counters.
func (rl *RateLimiter) Middleware(scope string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ok, remaining, reset := rl.Allow(scope + ":" + clientIP(r))

			w.Header().Set("X-RateLimit-Limit", strconv.Itoa(rl.max))
			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(remaining))
			w.Header().Set("X-RateLimit-Reset", reset.UTC().Format(time.RFC3339))

			if !ok {
				retryAfter := int(time.Until(reset).Seconds() + 0.5)
				if retryAfter < 1 {
					retryAfter = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
				writeJSON(w, http.StatusTooManyRequests, map[string]any{
					"error":      "Rate limit exceeded",
					"message":    "Too many requests. Please try again in " + strconv.Itoa(retryAfter) + " seconds.",
					"retryAfter": retryAfter,
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (rl *RateLimiter) sweepLoop() {
	t := time.NewTicker(rlSweepInterval)
	defer t.Stop()
	for {
		select {
		case <-t.C:
			rl.sweep(time.Now())
		case <-rl.done:
			return
		}
	}
}

func (rl *RateLimiter) sweep(now time.Time) {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	for k, e := range rl.entries {
		if now.After(e.reset) {
			delete(rl.entries, k)
		}
	}
}

// Stop terminates the background sweep.
func (rl *RateLimiter) Stop() {
	close(rl.done)
}

// credentialBudget is the window budget for credential endpoints
// (login, registration): a quarter of the general API budget, never
// below one request.
func credentialBudget(max int) int {
	if max < 4 {
		return 1
	}
	return max / 4
}

func clientIP(r *http.Request) string {
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
