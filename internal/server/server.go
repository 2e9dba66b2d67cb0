package server

import (
	"net/http"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/nulzo/gateway-analytics-api/internal/analytics"
	"github.com/nulzo/gateway-analytics-api/internal/config"
	"github.com/nulzo/gateway-analytics-api/internal/server/middleware"
	"github.com/nulzo/gateway-analytics-api/internal/server/validator"
	"github.com/nulzo/gateway-analytics-api/internal/store"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	router  *gin.Engine
	config  *config.Config
	logger  *zap.Logger
	service analytics.Service
	repo    store.Repository
	redis   redis.Cmdable
	limiter *middleware.RateLimiter
	version string
}

// Option customises a Server.
type Option func(*Server)

// WithRedis shares rate limiting state across replicas through rdb.
func WithRedis(rdb redis.Cmdable) Option {
	return func(s *Server) {
		s.redis = rdb
	}
}

func WithVersion(v string) Option {
	return func(s *Server) {
		s.version = v
	}
}

func New(cfg *config.Config, logger *zap.Logger, service analytics.Service, repo store.Repository, opts ...Option) *Server {
	if cfg.Server.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	validator.InitValidator()

	engine := gin.New()

	engine.Use(ginzap.RecoveryWithZap(logger, true))
	engine.Use(middleware.Logger(logger))

	s := &Server{
		router:  engine,
		config:  cfg,
		logger:  logger,
		service: service,
		repo:    repo,
	}
	for _, opt := range opts {
		opt(s)
	}

	s.SetupRoutes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.router
}

// StartJanitor evicts idle in-memory rate limiters until stop is closed.
func (s *Server) StartJanitor(stop <-chan struct{}) {
	if s.limiter != nil {
		go s.limiter.Run(time.Minute, stop)
	}
}
