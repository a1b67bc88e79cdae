package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/str3am/backend-go/internal/config"
	"github.com/str3am/backend-go/internal/db"
	"github.com/str3am/backend-go/internal/db/repository"
	"github.com/str3am/backend-go/internal/ledger"
	"github.com/str3am/backend-go/internal/queue"
	"github.com/str3am/backend-go/internal/service"
	"github.com/str3am/backend-go/internal/validation"
	"github.com/str3am/backend-go/pkg/logger"
)

const workerConcurrency = 10

func main() {
	slogger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(slogger)

	cfg, err := config.Load()
	if err != nil {
		slogger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	if cfg.Redis.URL == "" {
		slogger.Error("redis.url is required for the worker")
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logging.Level, cfg.Logging.File); err != nil {
		slogger.Error("failed to initialize logger", "error", err)
		os.Exit(1)
	}
	defer logger.Sync()

	ctx := context.Background()
	pool, err := db.NewPool(ctx, &cfg.Database)
	if err != nil {
		slogger.Error("failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	videoRepo := repository.NewVideoRepository(pool)
	accessRepo := repository.NewVideoAccessRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	tokenRepo := repository.NewCreatorTokenRepository(pool)

	var eventPublisher service.EventPublisher
	if cfg.RabbitMQ.Host != "" {
		publisher, err := service.NewMessagePublisher(&cfg.RabbitMQ)
		if err != nil {
			slogger.Warn("failed to initialize message publisher, refund events will not be published",
				"error", err,
			)
		} else {
			defer publisher.Close()
			eventPublisher = publisher
		}
	}

	validator := validation.New()
	metrics := service.PlatformMetrics()
	ledgerClient := ledger.NewClient(&cfg.Ledger)

	rewardService := service.NewRewardService(tokenRepo, accessRepo, userRepo, ledgerClient, validator, metrics, cfg.Reward.ThresholdSeconds)
	refundService := service.NewRefundService(videoRepo, accessRepo, userRepo, eventPublisher, metrics)

	taskHandler := queue.NewTaskHandler(rewardService, refundService)
	server, err := queue.NewServer(cfg.Redis.URL, workerConcurrency, taskHandler)
	if err != nil {
		slogger.Error("failed to initialize task server", "error", err)
		os.Exit(1)
	}

	serverErrors := make(chan error, 1)
	go func() {
		slogger.Info("worker starting", "concurrency", workerConcurrency)
		serverErrors <- server.Start()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		slogger.Error("worker error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		slogger.Info("shutdown signal received", "signal", sig)
		server.Stop()
		slogger.Info("worker stopped gracefully")
	}
}
