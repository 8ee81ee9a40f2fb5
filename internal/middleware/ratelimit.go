package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hongminglow/fund-ledger/internal/apperr"
	"github.com/hongminglow/fund-ledger/internal/http/respond"
)

// RateLimiter hands out one token bucket per client IP.
type RateLimiter struct {
	mu       sync.Mutex
	limit    rate.Limit
	burst    int
	idle     time.Duration
	visitors map[string]*visitor
	now      func() time.Time

	sweepEvery time.Duration
	lastSweep  time.Time
}

type visitor struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter allows perMinute requests per client, bursting up to the same amount.
func NewRateLimiter(perMinute int) *RateLimiter {
	if perMinute <= 0 {
		perMinute = 10
	}
	return &RateLimiter{
		limit:    rate.Every(time.Minute / time.Duration(perMinute)),
		burst:    perMinute,
		idle:     10 * time.Minute,
		visitors: make(map[string]*visitor),
		now:      time.Now,

		sweepEvery: time.Minute,
	}
}

// Allow reports whether key may make a request now.
func (l *RateLimiter) Allow(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if now.Sub(l.lastSweep) >= l.sweepEvery {
		l.sweep(now)
	}
	v, ok := l.visitors[key]
	if !ok {
		v = &visitor{limiter: rate.NewLimiter(l.limit, l.burst)}
		l.visitors[key] = v
	}
	v.lastSeen = now
	return v.limiter.AllowN(now, 1)
}

// sweep drops visitors idle for longer than l.idle. Callers hold l.mu.
func (l *RateLimiter) sweep(now time.Time) {
	for k, v := range l.visitors {
		if now.Sub(v.lastSeen) > l.idle {
			delete(l.visitors, k)
		}
	}
	l.lastSweep = now
}

// Middleware rejects requests over the limit with 429.
func (l *RateLimiter) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !l.Allow(clientIP(r)) {
			w.Header().Set("Retry-After", "60")
			respond.Error(w, http.StatusTooManyRequests, apperr.CodeRateLimited, "too many requests")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
