package handler

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

const (
	limiterSweepEvery = 5 * time.Minute
	limiterIdleAfter  = 10 * time.Minute
)

type clientLimiter struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterSet holds one token bucket per client key.
type limiterSet struct {
	mu      sync.Mutex
	clients map[string]*clientLimiter
	rps     rate.Limit
	burst   int
}

func newLimiterSet(rps, burst int) *limiterSet {
	return &limiterSet{
		clients: make(map[string]*clientLimiter),
		rps:     rate.Limit(rps),
		burst:   burst,
	}
}

func (s *limiterSet) allow(key string, now time.Time) bool {
	s.mu.Lock()
	l, ok := s.clients[key]
	if !ok {
		l = &clientLimiter{limiter: rate.NewLimiter(s.rps, s.burst)}
		s.clients[key] = l
	}
	l.lastSeen = now
	s.mu.Unlock()
	return l.limiter.AllowN(now, 1)
}

// sweep drops clients idle since before cutoff and returns how many.
func (s *limiterSet) sweep(cutoff time.Time) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for k, l := range s.clients {
		if l.lastSeen.Before(cutoff) {
			delete(s.clients, k)
			n++
		}
	}
	return n
}

// RateLimiter returns a Gin middleware that enforces per-IP token-bucket
// rate limiting. rps is the steady-state requests per second; burst is the
// maximum burst size. Idle clients are swept until ctx is done.
func RateLimiter(ctx context.Context, rps, burst int) gin.HandlerFunc {
	set := newLimiterSet(rps, burst)

	go func() {
		ticker := time.NewTicker(limiterSweepEvery)
		defer ticker.Stop()
		for {
			select {
			case now := <-ticker.C:
				set.sweep(now.Add(-limiterIdleAfter))
			case <-ctx.Done():
				return
			}
		}
	}()

	return func(c *gin.Context) {
		if !set.allow(c.ClientIP(), time.Now()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error": "rate limit exceeded",
				"code":  "rate_limited",
			})
			return
		}
		c.Next()
	}
}
