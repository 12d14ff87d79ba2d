package middleware

import (
	"net"
	"net/http"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/hawksec/hawk/internal/pkg/errors"
	"github.com/hawksec/hawk/internal/pkg/utils"
)

const limiterIdle = 5 * time.Minute

// RateLimiter keeps one token bucket per caller key. Buckets idle for
// longer than limiterIdle are forgotten.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	limit   rate.Limit
	burst   int
	now     func() time.Time
}

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// NewRateLimiter creates a limiter allowing perSecond requests per key with
// the given burst
func NewRateLimiter(perSecond float64, burst int) *RateLimiter {
	return &RateLimiter{
		buckets: make(map[string]*bucket),
		limit:   rate.Limit(perSecond),
		burst:   burst,
		now:     time.Now,
	}
}

// Allow takes a token from key's bucket
func (rl *RateLimiter) Allow(key string) bool {
	now := rl.now()

	rl.mu.Lock()
	b, ok := rl.buckets[key]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(rl.limit, rl.burst)}
		rl.buckets[key] = b
	}
	b.lastSeen = now
	rl.mu.Unlock()

	return b.limiter.AllowN(now, 1)
}

// Prune forgets buckets not used since before cutoff
func (rl *RateLimiter) Prune(cutoff time.Time) int {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	n := 0
	for key, b := range rl.buckets {
		if b.lastSeen.Before(cutoff) {
			delete(rl.buckets, key)
			n++
		}
	}
	return n
}

// Middleware limits requests by the key keyOf derives from each request
func (rl *RateLimiter) Middleware(keyOf func(*http.Request) string) func(http.Handler) http.Handler {
	go func() {
		for range time.Tick(limiterIdle) {
			rl.Prune(rl.now().Add(-limiterIdle))
		}
	}()

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !rl.Allow(keyOf(r)) {
				utils.WriteError(w, errors.RateLimited("Too many requests. Please try again later."))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RateLimit limits requests per client IP
func RateLimit(perSecond float64, burst int) func(http.Handler) http.Handler {
	return NewRateLimiter(perSecond, burst).Middleware(ipKey)
}

// UserRateLimit limits requests per signed-in user, or per client IP for
// anonymous requests
func UserRateLimit(perSecond float64, burst int) func(http.Handler) http.Handler {
	return NewRateLimiter(perSecond, burst).Middleware(func(r *http.Request) string {
		if userID, ok := GetUserID(r); ok {
			return "user:" + userID
		}
		return ipKey(r)
	})
}

func ipKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		host = r.RemoteAddr
	}
	return "ip:" + host
}
