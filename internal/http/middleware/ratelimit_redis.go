package middleware

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"taskboard/internal/logger"

	"github.com/gin-gonic/gin"
	redis "github.com/redis/go-redis/v9"
)

var redisClient *redis.Client

// InitRedisRateLimiter initializes a shared Redis client used by the middleware
// and returns it so session revocations can reuse the connection. If addr is
// empty or the ping fails it returns nil and the limiters fall back to
// in-process windows.
func InitRedisRateLimiter(addr, password string, db int) *redis.Client {
	redisClient = nil
	if addr == "" {
		return nil
	}
	client := redis.NewClient(&redis.Options{Addr: addr, Password: password, DB: db})
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		logger.Warn("redis unavailable, using in-process rate limits", "addr", addr, "error", err)
		_ = client.Close()
		return nil
	}
	redisClient = client
	logger.Info("redis connected", "addr", addr)
	return client
}

// hit increments the fixed-window counter for key.
func hit(ctx context.Context, key string, window time.Duration) (int64, error) {
	val, err := redisClient.Incr(ctx, key).Result()
	if err != nil {
		return 0, err
	}
	if val == 1 {
		redisClient.Expire(ctx, key, window)
	}
	return val, nil
}

// RedisRateLimit implements a fixed-window limiter per client IP using Redis
// INCR/EXPIRE. key format: rl:<scope>:<window_seconds>:<ip>
func RedisRateLimit(scope string, maxRequests int, window time.Duration) gin.HandlerFunc {
	fallback := newWindowLimiter(maxRequests, window)
	windowSec := strconv.FormatInt(int64(window.Seconds()), 10)

	return func(c *gin.Context) {
		ident := c.ClientIP()
		var allowed bool
		c.Header("X-RateLimit-Limit", strconv.Itoa(maxRequests))

		if redisClient == nil {
			allowed, _ = fallback.allow(scope + ":" + ident)
		} else {
			val, err := hit(c.Request.Context(), "rl:"+scope+":"+windowSec+":"+ident, window)
			if err != nil {
				// fail open
				c.Header("X-RateLimit-Error", "redis-error")
				c.Next()
				return
			}
			allowed = val <= int64(maxRequests)
		}

		if !allowed {
			RLBlocked.WithLabelValues(scope).Inc()
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			return
		}

		RLRequests.WithLabelValues(scope).Inc()
		c.Next()
	}
}
