package middleware

import (
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
)

type clientInfo struct {
	start time.Time
	count int
}

// windowLimiter is the in-process fixed window used when Redis is absent.
type windowLimiter struct {
	mu      sync.Mutex
	clients map[string]*clientInfo
	max     int
	window  time.Duration
	now     func() time.Time
}

func newWindowLimiter(maxRequests int, window time.Duration) *windowLimiter {
	return &windowLimiter{
		clients: make(map[string]*clientInfo),
		max:     maxRequests,
		window:  window,
		now:     time.Now,
	}
}

// allow counts one hit for key and reports whether it is within the limit
// together with the remaining budget.
func (l *windowLimiter) allow(key string) (bool, int) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	ci, ok := l.clients[key]
	if !ok || now.Sub(ci.start) > l.window {
		if len(l.clients) > 10000 {
			l.sweep(now)
		}
		l.clients[key] = &clientInfo{start: now, count: 1}
		return true, l.max - 1
	}
	ci.count++
	remaining := l.max - ci.count
	if remaining < 0 {
		remaining = 0
	}
	return ci.count <= l.max, remaining
}

func (l *windowLimiter) sweep(now time.Time) {
	for k, ci := range l.clients {
		if now.Sub(ci.start) > l.window {
			delete(l.clients, k)
		}
	}
}

// SimpleRateLimit blocks clients that send more than maxRequests per window
func SimpleRateLimit(maxRequests int, window time.Duration) gin.HandlerFunc {
	l := newWindowLimiter(maxRequests, window)
	return func(c *gin.Context) {
		if ok, _ := l.allow(c.ClientIP()); !ok {
			RLBlocked.WithLabelValues(c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}
		RLRequests.WithLabelValues(c.FullPath()).Inc()
		c.Next()
	}
}
