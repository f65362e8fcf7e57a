// Package main runs the background worker: subscription expiry sweeps and notice delivery.
package main

import (
	"context"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/vertex-ar/backend/config"
	"github.com/vertex-ar/backend/internal/arcontent"
	"github.com/vertex-ar/backend/internal/selection"
	"github.com/vertex-ar/backend/internal/worker"
	"github.com/vertex-ar/backend/pkg/database"
	"github.com/vertex-ar/backend/pkg/events"
	"github.com/vertex-ar/backend/pkg/queue"
	"github.com/vertex-ar/backend/pkg/redis"
)

const retryBackoff = 10 * time.Second

func main() {
	logger := newLogger()
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("load config", zap.Error(err))
	}

	ctx := context.Background()
	pool, err := database.NewPostgresPool(ctx, cfg.Database.DSN(), database.PoolConfig{MaxConns: 4}, logger)
	if err != nil {
		logger.Fatal("database", zap.Error(err))
	}
	defer pool.Close()

	rdb, err := redis.NewClient(ctx, redis.Options{Addr: cfg.Redis.Addr, Password: cfg.Redis.Password, DB: cfg.Redis.DB}, logger)
	if err != nil {
		logger.Fatal("redis", zap.Error(err))
	}
	defer rdb.Close()

	contentRepo := arcontent.NewRepository(pool)
	jobQueue := queue.NewQueue(rdb.Client, logger)
	publisher := events.NewPublisher(rdb.Client, logger)
	clock := selection.NewSystemClock(cfg.Selection.Location)

	sweeper := worker.NewExpirySweeper(contentRepo, jobQueue, clock, cfg.Worker.SweepInterval, cfg.Worker.NoticeTTL, logger)
	processor := worker.NewNoticeProcessor(jobQueue, publisher, cfg.Worker.DequeueTimeout, retryBackoff, logger)

	workerCtx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); sweeper.Run(workerCtx) }()
	go func() { defer wg.Done(); processor.Run(workerCtx) }()
	logger.Info("worker started", zap.Duration("sweep_interval", cfg.Worker.SweepInterval))

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	cancel()
	wg.Wait()
	logger.Info("worker stopped")
}

func newLogger() *zap.Logger {
	config := zap.NewProductionConfig()
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	logger, _ := config.Build()
	return logger
}
