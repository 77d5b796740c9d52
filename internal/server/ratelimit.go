package server

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/liamhamilton123/dashboard-builder/internal/logger"
)

const visitorTTL = 10 * time.Minute

// RateLimiter applies per-IP request rate limiting. Stale entries are pruned
// opportunistically so the map doesn't grow with every client ever seen.
type RateLimiter struct {
	mu        sync.Mutex
	visitors  map[string]*visitor
	rateVal   rate.Limit
	burst     int
	lastPrune time.Time
}

type visitor struct {
	lim      *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing perSecond sustained requests per
// IP with the given burst.
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		visitors:  make(map[string]*visitor),
		rateVal:   rate.Limit(perSecond),
		burst:     burst,
		lastPrune: time.Now(),
	}
}

// Allow reports whether a request from ip may proceed now.
func (l *RateLimiter) Allow(ip string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	if now.Sub(l.lastPrune) > visitorTTL {
		for k, v := range l.visitors {
			if now.Sub(v.lastSeen) > visitorTTL {
				delete(l.visitors, k)
			}
		}
		l.lastPrune = now
	}

	v := l.visitors[ip]
	if v == nil {
		v = &visitor{lim: rate.NewLimiter(l.rateVal, l.burst)}
		l.visitors[ip] = v
	}
	v.lastSeen = now
	return v.lim.Allow()
}

// Middleware rejects over-limit requests with 429 before they reach next.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip, _, err := net.SplitHostPort(r.RemoteAddr)
		if err != nil {
			ip = r.RemoteAddr
		}
		if !l.Allow(ip) {
			logger.Warn("rate limit exceeded", "ip", ip, "path", r.URL.Path)
			http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
			return
		}
		next.ServeHTTP(w, r)
	})
}
