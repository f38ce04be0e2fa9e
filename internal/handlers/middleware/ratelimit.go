package middleware

import (
	"math"
	"net"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/nkiryanov/tasktracker/internal/handlers/render"
)

// Limiters not used for that long are forgotten
const limiterIdleTimeout = time.Hour

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// RateLimit is per client IP token bucket limiter
type RateLimit struct {
	limit rate.Limit
	burst int
	now   func() time.Time

	mu        sync.Mutex
	limiters  map[string]*limiterEntry
	lastSweep time.Time
}

func NewRateLimit(rps float64, burst int) *RateLimit {
	return &RateLimit{
		limit:    rate.Limit(rps),
		burst:    burst,
		now:      time.Now,
		limiters: make(map[string]*limiterEntry),
	}
}

func (rl *RateLimit) Limit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		now := rl.now()
		limiter := rl.limiter(clientIP(r), now)

		reservation := limiter.ReserveN(now, 1)
		if delay := reservation.DelayFrom(now); delay > 0 {
			reservation.CancelAt(now)

			w.Header().Set("Retry-After", strconv.Itoa(retryAfter(delay)))
			render.ServiceError(w, "Too many requests, retry later", http.StatusTooManyRequests)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (rl *RateLimit) limiter(ip string, now time.Time) *rate.Limiter {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if now.Sub(rl.lastSweep) > limiterIdleTimeout {
		for key, entry := range rl.limiters {
			if now.Sub(entry.lastSeen) > limiterIdleTimeout {
				delete(rl.limiters, key)
			}
		}
		rl.lastSweep = now
	}

	entry, ok := rl.limiters[ip]
	if !ok {
		entry = &limiterEntry{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.limiters[ip] = entry
	}
	entry.lastSeen = now

	return entry.limiter
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

// Whole seconds, at least one
func retryAfter(delay time.Duration) int {
	return max(1, int(math.Ceil(delay.Seconds())))
}
