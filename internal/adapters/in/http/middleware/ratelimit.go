// internal/adapters/in/http/middleware/ratelimit.go
package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

const (
	// DefaultRateLimit is requests per window per client.
	DefaultRateLimit  = 10
	DefaultRateWindow = time.Minute
)

// RateLimiter enforces a sliding-window request cap per client IP. Entries
// for idle clients are dropped lazily on their next request and by an
// occasional sweep, so memory stays bounded without a background goroutine
// per client.
type RateLimiter struct {
	limit  int
	window time.Duration
	now    func() time.Time
	log    zerolog.Logger

	mu      sync.Mutex
	clients map[string][]time.Time
	swept   time.Time
}

func NewRateLimiter(limit int, window time.Duration, log zerolog.Logger) *RateLimiter {
	if limit <= 0 {
		limit = DefaultRateLimit
	}
	if window <= 0 {
		window = DefaultRateWindow
	}
	return &RateLimiter{
		limit:   limit,
		window:  window,
		now:     time.Now,
		log:     log.With().Str("component", "rate_limiter").Logger(),
		clients: make(map[string][]time.Time),
	}
}

// Allow records one request for key and reports whether it is within the
// window cap.
func (rl *RateLimiter) Allow(key string) bool {
	now := rl.now()
	cutoff := now.Add(-rl.window)

	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.swept) > rl.window {
		rl.sweepLocked(cutoff)
		rl.swept = now
	}

	stamps := rl.clients[key]
	kept := stamps[:0]
	for _, t := range stamps {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}

	if len(kept) >= rl.limit {
		rl.clients[key] = kept
		return false
	}

	rl.clients[key] = append(kept, now)
	return true
}

func (rl *RateLimiter) sweepLocked(cutoff time.Time) {
	for key, stamps := range rl.clients {
		live := false
		for _, t := range stamps {
			if t.After(cutoff) {
				live = true
				break
			}
		}
		if !live {
			delete(rl.clients, key)
		}
	}
}

// Middleware rejects over-limit requests with 429.
func (rl *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		key := clientIP(r)
		if !rl.Allow(key) {
			rl.log.Warn().Str("client", key).Msg("rate limit exceeded")
			w.Header().Set("Retry-After", "60")
			http.Error(w, "too many requests", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// clientIP prefers the first X-Forwarded-For hop (Cloud Run sits behind a
// proxy) and falls back to the socket peer.
func clientIP(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		if i := strings.IndexByte(xff, ','); i >= 0 {
			xff = xff[:i]
		}
		return strings.TrimSpace(xff)
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
