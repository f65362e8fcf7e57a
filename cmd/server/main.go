// Package main runs the AR video selection HTTP server with graceful shutdown.
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vertex-ar/backend/config"
	"github.com/vertex-ar/backend/internal/arcontent"
	"github.com/vertex-ar/backend/internal/auth"
	"github.com/vertex-ar/backend/internal/metrics"
	"github.com/vertex-ar/backend/internal/middleware"
	"github.com/vertex-ar/backend/internal/selection"
	"github.com/vertex-ar/backend/pkg/database"
	"github.com/vertex-ar/backend/pkg/events"
	"github.com/vertex-ar/backend/pkg/redis"
	"github.com/vertex-ar/backend/pkg/response"
	"github.com/vertex-ar/backend/pkg/storage"
)

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolConfig{MaxConns: cfg.Database.MaxConns}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	if err := database.Migrate(ctx, pool, logger); err != nil {
		logger.Fatal("migrate", zap.Error(err))
	}

	rdb, err := redis.NewClient(ctx, redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	var videoStorage arcontent.VideoStorage
	if cfg.AWS.Region != "" {
		s3Client, err := storage.NewS3(ctx, storage.S3Config{
			Region:               cfg.AWS.Region,
			AccessKeyID:          cfg.AWS.AccessKeyID,
			SecretAccessKey:      cfg.AWS.SecretAccessKey,
			VideosBucket:         cfg.AWS.VideosBucket,
			PresignExpireMinutes: cfg.AWS.PresignExpireMinutes,
			PublicVideos:         cfg.AWS.PublicVideos,
		}, logger)
		if err != nil {
			logger.Warn("s3 disabled, serving stored file urls", zap.Error(err))
		} else {
			videoStorage = s3Client
		}
	}

	// Selection engine
	contentRepo := arcontent.NewRepository(pool)
	ruleStore := arcontent.NewCachedRuleStore(arcontent.NewRuleRepository(pool, logger), cfg.Selection.RuleCacheTTL)
	clock := selection.NewSystemClock(cfg.Selection.Location)
	opts := []selection.Option{selection.WithMetrics(metrics.Selection{})}
	if cfg.Selection.LockEnabled {
		opts = append(opts, selection.WithLocker(rdb.Locker(redis.LockConfig{
			TTL:  cfg.Selection.LockTTL,
			Wait: cfg.Selection.LockWait,
		})))
	}
	selector := selection.NewSelector(contentRepo, ruleStore, clock, logger, opts...)

	publisher := events.NewPublisher(rdb.Client, logger)
	handler := arcontent.NewHandler(selector, contentRepo, ruleStore, videoStorage, publisher, clock, logger)
	jwtService := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.ExpireHours)
	viewerLimiter := middleware.NewIPRateLimiter(middleware.RateLimitConfig{
		RPS:   cfg.Viewer.RateLimitRPS,
		Burst: cfg.Viewer.RateLimitBurst,
	})

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CORS(cfg.Server.CORSAllowedOrigins))
	router.Use(middleware.Logger(logger))

	router.GET("/health", func(c *gin.Context) {
		hctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := pool.Ping(hctx); err != nil {
			response.ServiceUnavailable(c, "database unavailable")
			return
		}
		if err := rdb.Ping(hctx).Err(); err != nil {
			response.ServiceUnavailable(c, "redis unavailable")
			return
		}
		response.OK(c, gin.H{"status": "ok"})
	})
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	operator := router.Group("")
	operator.Use(middleware.JWT(jwtService), middleware.RequireRole(logger, auth.RoleAdmin, auth.RoleOperator))
	handler.RegisterRoutes(router, operator, middleware.RateLimit(viewerLimiter))

	srv := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      router,
		ReadTimeout:  time.Duration(cfg.Server.ReadTimeout) * time.Second,
		WriteTimeout: time.Duration(cfg.Server.WriteTimeout) * time.Second,
	}

	go func() {
		logger.Info("server listening", zap.String("port", cfg.Server.Port),
			zap.String("selection_timezone", cfg.Selection.Location.String()),
			zap.Bool("rotation_lock", cfg.Selection.LockEnabled))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown", zap.Error(err))
	}
	logger.Info("server stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
