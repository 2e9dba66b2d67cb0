package server

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nulzo/gateway-analytics-api/internal/config"
	"github.com/nulzo/gateway-analytics-api/internal/server/middleware"
	v1 "github.com/nulzo/gateway-analytics-api/internal/server/v1"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func (s *Server) SetupRoutes() {
	if s.config.Tracing.Enabled {
		s.router.Use(middleware.Tracing(s.config.Tracing.ServiceName))
	}
	s.router.Use(middleware.Metrics())
	s.router.Use(middleware.ErrorHandler(s.logger))

	healthHandler := v1.NewHealthHandler(s.repo, s.version)
	s.router.GET("/health", healthHandler.Health)
	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := s.router.Group("/v1")
	api.Use(s.rateLimit())
	{
		analyticsHandler := v1.NewAnalyticsHandler(s.service, v1.Limits{
			DefaultLimit: s.config.Analytics.DefaultLimit,
			MaxLimit:     s.config.Analytics.MaxLimit,
			RetryAfter:   s.config.Breaker.Timeout,
		})
		api.GET("/analytics", analyticsHandler.GetAnalytics)
		api.GET("/top-users", analyticsHandler.GetTopUsers)
	}
}

func (s *Server) rateLimit() gin.HandlerFunc {
	rl := s.config.RateLimit
	if s.redis != nil {
		limit, window := redisWindow(rl)
		return middleware.RedisRateLimit(s.redis, limit, window, s.logger)
	}
	s.limiter = middleware.NewRateLimiter(rl.RequestsPerSecond, rl.Burst, s.logger)
	return s.limiter.Middleware()
}

// redisWindow sizes the shared fixed window so it admits Burst requests per
// Burst/RequestsPerSecond seconds, the same sustained rate as the in-memory limiter.
func redisWindow(rl config.RateLimitConfig) (int64, time.Duration) {
	limit := int64(max(rl.Burst, 1))
	if rl.RequestsPerSecond <= 0 {
		return limit, time.Second
	}
	window := time.Duration(float64(limit) / rl.RequestsPerSecond * float64(time.Second))
	return limit, max(window, time.Millisecond)
}
