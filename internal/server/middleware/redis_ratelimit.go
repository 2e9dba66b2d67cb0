package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/gateway-analytics-api/pkg/api"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const rateLimitKeyPrefix = "analytics:rate_limit"

// RedisRateLimit enforces a fixed-window limit of limit requests per window,
// shared by every replica. Requests are let through when Redis cannot be reached.
func RedisRateLimit(rdb redis.Cmdable, limit int64, window time.Duration, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			c.Next()
			return
		}

		ctx := c.Request.Context()
		slot := time.Now().UnixNano() / int64(window)
		key := fmt.Sprintf("%s:%s:%d", rateLimitKeyPrefix, ip, slot)

		count, err := rdb.Incr(ctx, key).Result()
		if err != nil {
			logger.Warn("Rate limit store unavailable", zap.Error(err))
			c.Next()
			return
		}

		if count == 1 {
			if err := rdb.PExpire(ctx, key, window+time.Second).Err(); err != nil {
				logger.Warn("Failed to set rate limit window expiry", zap.String("key", key), zap.Error(err))
			}
		}

		if count > limit {
			logger.Warn("Rate limit exceeded",
				zap.String("ip", ip),
				zap.String("path", c.Request.URL.Path),
				zap.Int64("count", count),
			)
			WriteProblem(c, api.RateLimitError(window))
			return
		}

		c.Next()
	}
}
