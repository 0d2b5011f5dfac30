package mw

import (
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"
)

// callerRateLimiter stores a token bucket per caller key (client IP, or the
// configured trusted header when the service sits behind a proxy).
type callerRateLimiter struct {
	buckets map[string]*rate.Limiter
	mu      sync.Mutex
	r       rate.Limit
	b       int
}

func newCallerRateLimiter(r rate.Limit, b int) *callerRateLimiter {
	return &callerRateLimiter{
		buckets: make(map[string]*rate.Limiter),
		r:       r,
		b:       b,
	}
}

func (l *callerRateLimiter) limiter(key string) *rate.Limiter {
	l.mu.Lock()
	defer l.mu.Unlock()

	if lim, ok := l.buckets[key]; ok {
		return lim
	}
	lim := rate.NewLimiter(l.r, l.b)
	l.buckets[key] = lim
	return lim
}

// RateLimiter limits requests per caller. ipHeader names a trusted header
// carrying the real client address; empty falls back to the connection IP.
func RateLimiter(r rate.Limit, b int, ipHeader string) gin.HandlerFunc {
	limiter := newCallerRateLimiter(r, b)
	return func(c *gin.Context) {
		key := c.ClientIP()
		if ipHeader != "" {
			if v := c.GetHeader(ipHeader); v != "" {
				key = v
			}
		}
		if !limiter.limiter(key).Allow() {
			c.AbortWithStatus(http.StatusTooManyRequests)
			return
		}
		c.Next()
	}
}
