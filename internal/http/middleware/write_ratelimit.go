package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
)

// WriteRateLimit limits task writes per identity (not per IP). Requires the
// session middleware to run first.
func WriteRateLimit(maxWrites int, window time.Duration) gin.HandlerFunc {
	fallback := newWindowLimiter(maxWrites, window)
	windowSec := strconv.FormatInt(int64(window.Seconds()), 10)

	return func(c *gin.Context) {
		identity, ok := GetIdentity(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized"})
			return
		}

		var (
			allowed   bool
			remaining int64
		)
		if redisClient == nil {
			var rem int
			allowed, rem = fallback.allow(string(identity))
			remaining = int64(rem)
		} else {
			val, err := hit(c.Request.Context(), "write_rl:"+string(identity)+":"+windowSec, window)
			if err != nil {
				c.Header("X-WriteRateLimit-Error", "redis-error")
				c.Next()
				return
			}
			allowed = val <= int64(maxWrites)
			remaining = max(0, int64(maxWrites)-val)
		}

		c.Header("X-WriteRateLimit-Limit", strconv.Itoa(maxWrites))
		c.Header("X-WriteRateLimit-Remaining", strconv.FormatInt(remaining, 10))

		if !allowed {
			RLBlocked.WithLabelValues("write:" + c.FullPath()).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "write rate limit exceeded",
				"retry_after": int(window.Seconds()),
			})
			return
		}

		RLRequests.WithLabelValues("write:" + c.FullPath()).Inc()
		c.Next()
	}
}
