package middleware

import (
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"
)

type window struct {
	count int
	until time.Time
}

// limiter holds fixed windows keyed by client IP. Every window lives at most
// per, so expired ones are swept at most once per period.
type limiter struct {
	limit int
	per   time.Duration
	now   func() time.Time

	mu        sync.Mutex
	windows   map[string]*window
	lastSweep time.Time
}

func newLimiter(limit int, per time.Duration, now func() time.Time) *limiter {
	return &limiter{
		limit:     limit,
		per:       per,
		now:       now,
		windows:   make(map[string]*window),
		lastSweep: now(),
	}
}

// allow counts one request for key. When the window is full it returns false
// and the time left until it resets.
func (l *limiter) allow(key string) (bool, time.Duration) {
	t := l.now()

	l.mu.Lock()
	defer l.mu.Unlock()
	if t.Sub(l.lastSweep) >= l.per {
		for k, v := range l.windows {
			if t.After(v.until) {
				delete(l.windows, k)
			}
		}
		l.lastSweep = t
	}
	win, ok := l.windows[key]
	if !ok || t.After(win.until) {
		win = &window{until: t.Add(l.per)}
		l.windows[key] = win
	}
	if win.count >= l.limit {
		return false, win.until.Sub(t)
	}
	win.count++
	return true, 0
}

func (l *limiter) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.windows)
}

// RateLimit is a fixed-window limiter keyed by client IP.
func RateLimit(limit int, per time.Duration) func(http.Handler) http.Handler {
	l := newLimiter(limit, per, time.Now)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if limit <= 0 {
				next.ServeHTTP(w, r)
				return
			}
			ok, wait := l.allow(clientIPForRateLimit(r))
			if !ok {
				w.Header().Set("Retry-After", strconv.Itoa(int(wait.Seconds())+1))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				_ = json.NewEncoder(w).Encode(map[string]string{
					"error":      "too many requests",
					"error_code": "rate_limited",
				})
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// clientIPForRateLimit prefers the first parseable X-Forwarded-For hop.
func clientIPForRateLimit(r *http.Request) string {
	if xf := r.Header.Get("X-Forwarded-For"); xf != "" {
		for _, part := range strings.Split(xf, ",") {
			if ip := strings.TrimSpace(part); net.ParseIP(ip) != nil {
				return ip
			}
		}
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && net.ParseIP(host) != nil {
		return host
	}
	return r.RemoteAddr
}
