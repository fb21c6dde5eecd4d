// Package middleware provides HTTP middleware for the OCR API.
package middleware

import (
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// SecurityConfig holds rate limiting settings.
type SecurityConfig struct {
	RateLimitEnabled     bool
	RateLimitWindow      time.Duration
	RateLimitMaxRequests int
}

// rateLimiter tracks request timestamps per client in a sliding window.
type rateLimiter struct {
	mu      sync.Mutex
	window  time.Duration
	max     int
	clients map[string][]time.Time
}

func newRateLimiter(window time.Duration, max int) *rateLimiter {
	return &rateLimiter{
		window:  window,
		max:     max,
		clients: make(map[string][]time.Time),
	}
}

// allow prunes timestamps outside the window and reports whether the client
// may make another request. The limit is checked before recording.
func (l *rateLimiter) allow(client string, now time.Time) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	cutoff := now.Add(-l.window)
	kept := l.clients[client][:0]
	for _, ts := range l.clients[client] {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}

	if len(kept) >= l.max {
		l.clients[client] = kept
		return false
	}

	l.clients[client] = append(kept, now)
	return true
}

// clientKey extracts the client address without the port.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Security returns middleware that rate limits clients and attaches
// standard security headers to every response. Preflight requests are
// never rate limited.
func Security(cfg SecurityConfig) func(http.Handler) http.Handler {
	limiter := newRateLimiter(cfg.RateLimitWindow, cfg.RateLimitMaxRequests)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if cfg.RateLimitEnabled && r.Method != http.MethodOptions {
				if !limiter.allow(clientKey(r), time.Now()) {
					w.Header().Set("Content-Type", "application/json")
					w.Header().Set("Retry-After", strconv.Itoa(int(cfg.RateLimitWindow.Seconds())))
					w.WriteHeader(http.StatusTooManyRequests)
					w.Write([]byte(`{"detail": "Too many requests. Please try again later."}`))
					return
				}
			}

			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Content-Security-Policy", "default-src 'self'")
			w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")

			next.ServeHTTP(w, r)
		})
	}
}
