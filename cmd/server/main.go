package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/nulzo/gateway-analytics-api/cmd"
	"github.com/nulzo/gateway-analytics-api/internal/analytics"
	"github.com/nulzo/gateway-analytics-api/internal/config"
	"github.com/nulzo/gateway-analytics-api/internal/platform/logger"
	"github.com/nulzo/gateway-analytics-api/internal/platform/otel"
	"github.com/nulzo/gateway-analytics-api/internal/server"
	"github.com/nulzo/gateway-analytics-api/internal/store"
	"github.com/nulzo/gateway-analytics-api/internal/store/sqlstore"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

func main() {
	logCfg := logger.DefaultConfig()
	logCfg.Service = "gateway-analytics-api"
	logger.Initialize(logCfg)
	defer logger.Sync()
	log := logger.Get()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal("Failed to load config", zap.Error(err))
	}

	go func() {
		rel, err := cmd.CheckForUpdates(context.Background())
		if err != nil {
			log.Debug("Update check skipped", zap.Error(err))
			return
		}
		if rel.Outdated {
			log.Warn("A newer release is available",
				zap.String("current", rel.Current),
				zap.String("latest", rel.Latest))
		}
	}()

	if cfg.Tracing.Enabled {
		shutdown, err := otel.InitTracer(cfg.Tracing.ServiceName, cmd.AppVersion, log, os.Stdout)
		if err != nil {
			log.Fatal("Failed to initialize tracing", zap.Error(err))
		}
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = shutdown(ctx)
		}()
	}

	db, err := sqlstore.Open(cfg.DB, log)
	if err != nil {
		log.Fatal("Failed to open analytics database", zap.Error(err))
	}
	defer db.Close()

	var repo store.Repository = db
	if cfg.Breaker.Enabled {
		repo = sqlstore.WithBreaker(db, sqlstore.BreakerSettings{
			FailureThreshold: cfg.Breaker.FailureThreshold,
			Timeout:          cfg.Breaker.Timeout,
		}, log)
	}

	service := analytics.NewService(log, repo, analytics.Options{
		QueryTimeout:   cfg.Analytics.QueryTimeout,
		GroupByColumns: cfg.Analytics.GroupByColumns,
	})

	opts := []server.Option{server.WithVersion(cmd.AppVersion)}
	if rdb := connectRedis(cfg.Redis, log); rdb != nil {
		defer rdb.Close()
		opts = append(opts, server.WithRedis(rdb))
	}

	srv := server.New(cfg, log, service, repo, opts...)

	stop := make(chan struct{})
	srv.StartJanitor(stop)

	httpServer := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		// queries are bounded by analytics.query_timeout
		WriteTimeout: cfg.Analytics.QueryTimeout + 5*time.Second,
	}

	go func() {
		log.Info("Starting gateway analytics API", zap.String("port", cfg.Server.Port), zap.String("version", cmd.AppVersion))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down")
	close(stop)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		log.Error("Forced shutdown", zap.Error(err))
	}
}

// connectRedis returns nil when Redis is disabled or unreachable; the server
// then limits requests in memory.
func connectRedis(cfg config.RedisConfig, log *zap.Logger) *redis.Client {
	if !cfg.Enabled {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Warn("Redis unreachable, using in-memory rate limiting", zap.String("addr", cfg.Addr), zap.Error(err))
		_ = rdb.Close()
		return nil
	}
	log.Info("Connected to Redis", zap.String("addr", cfg.Addr))
	return rdb
}
