package middleware

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

type bucket struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// buckets holds one token bucket per client address.
type buckets struct {
	mu    sync.Mutex
	rate  rate.Limit
	burst int
	byIP  map[string]*bucket
	now   func() time.Time
}

func newBuckets(r rate.Limit, b int) *buckets {
	return &buckets{rate: r, burst: b, byIP: make(map[string]*bucket), now: time.Now}
}

func (bs *buckets) allow(ip string) bool {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	now := bs.now()
	b, ok := bs.byIP[ip]
	if !ok {
		b = &bucket{limiter: rate.NewLimiter(bs.rate, bs.burst)}
		bs.byIP[ip] = b
	}
	b.lastSeen = now
	return b.limiter.AllowN(now, 1)
}

// sweep forgets clients idle since before cutoff and returns how many.
func (bs *buckets) sweep(cutoff time.Time) int {
	bs.mu.Lock()
	defer bs.mu.Unlock()
	n := 0
	for ip, b := range bs.byIP {
		if b.lastSeen.Before(cutoff) {
			delete(bs.byIP, ip)
			n++
		}
	}
	return n
}

// RateLimit throttles each client address to r requests per second with
// bursts of b. Idle clients are forgotten until ctx ends.
func RateLimit(ctx context.Context, r rate.Limit, b int) gin.HandlerFunc {
	bs := newBuckets(r, b)
	go func() {
		ticker := time.NewTicker(limiterSweepEvery)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				bs.sweep(bs.now().Add(-limiterIdleAfter))
			}
		}
	}()

	return func(c *gin.Context) {
		if !bs.allow(c.ClientIP()) {
			c.Header("Retry-After", "1")
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		c.Next()
	}
}
