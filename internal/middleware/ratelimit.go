package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"
)

// RateLimitMiddleware provides basic rate limiting
type RateLimitMiddleware struct {
	// TrustProxy makes the limiter key clients by the address the
	// fronting proxy appended to X-Forwarded-For instead of RemoteAddr.
	// Only enable it when every request arrives through that proxy.
	TrustProxy bool

	requests  map[string][]int64 // IP -> timestamps
	lastSweep int64
	mu        sync.Mutex
	now       func() time.Time
}

// NewRateLimitMiddleware creates a new rate limiting middleware
func NewRateLimitMiddleware() *RateLimitMiddleware {
	return &RateLimitMiddleware{
		requests: make(map[string][]int64),
		now:      time.Now,
	}
}

// RateLimit allows at most maxRequests mutating requests per client within
// window. Safe methods are never limited.
func (m *RateLimitMiddleware) RateLimit(maxRequests int, window time.Duration) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodGet || r.Method == http.MethodHead || r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}
			clientIP := getClientIP(r, m.TrustProxy)
			if !m.allow(clientIP, maxRequests, window) {
				log.WithFields(log.Fields{"client": clientIP, "path": r.URL.Path}).Warn("Rate limit exceeded")
				http.Error(w, "Rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func (m *RateLimitMiddleware) allow(client string, maxRequests int, window time.Duration) bool {
	now := m.now().UnixNano()
	windowStart := now - int64(window)

	m.mu.Lock()
	defer m.mu.Unlock()

	if now-m.lastSweep > int64(window) {
		m.sweep(windowStart)
		m.lastSweep = now
	}

	valid := m.requests[client][:0]
	for _, ts := range m.requests[client] {
		if ts >= windowStart {
			valid = append(valid, ts)
		}
	}
	if len(valid) >= maxRequests {
		m.requests[client] = valid
		return false
	}
	m.requests[client] = append(valid, now)
	return true
}

// sweep drops clients with no request since windowStart.
func (m *RateLimitMiddleware) sweep(windowStart int64) {
	for client, ts := range m.requests {
		if len(ts) == 0 || ts[len(ts)-1] < windowStart {
			delete(m.requests, client)
		}
	}
}

// clients returns the number of tracked clients.
func (m *RateLimitMiddleware) clients() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// getClientIP extracts the client IP from the request. Forwarding headers
// are client controlled, so they are only read behind a trusted proxy,
// which appends the address it saw as the last X-Forwarded-For entry.
func getClientIP(r *http.Request, trustProxy bool) string {
	if trustProxy {
		if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
			parts := strings.Split(fwd, ",")
			if ip := strings.TrimSpace(parts[len(parts)-1]); ip != "" {
				return ip
			}
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}
