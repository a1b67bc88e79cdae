package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/str3am/backend-go/internal/auth"
	"github.com/str3am/backend-go/internal/config"
	"github.com/str3am/backend-go/internal/content"
	"github.com/str3am/backend-go/internal/db"
	"github.com/str3am/backend-go/internal/db/repository"
	"github.com/str3am/backend-go/internal/handler"
	"github.com/str3am/backend-go/internal/ledger"
	"github.com/str3am/backend-go/internal/middleware"
	"github.com/str3am/backend-go/internal/queue"
	"github.com/str3am/backend-go/internal/service"
	"github.com/str3am/backend-go/internal/validation"
	"github.com/str3am/backend-go/pkg/logger"
)

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

	slogger.Info("database connection established",
		"max_conns", pool.Config().MaxConns,
	)

	videoRepo := repository.NewVideoRepository(pool)
	accessRepo := repository.NewVideoAccessRepository(pool)
	interactionRepo := repository.NewInteractionRepository(pool)
	userRepo := repository.NewUserRepository(pool)
	commentRepo := repository.NewCommentRepository(pool)
	tokenRepo := repository.NewCreatorTokenRepository(pool)

	store, err := content.NewStore(&cfg.Content)
	if err != nil {
		slogger.Error("failed to initialize content store", "error", err)
		os.Exit(1)
	}

	// Task queue is optional: without Redis, reward minting and refund
	// sweeps simply do not run in the background.
	var enqueuer queue.Enqueuer
	if cfg.Redis.URL != "" {
		queueClient, err := queue.NewClient(cfg.Redis.URL)
		if err != nil {
			slogger.Warn("failed to initialize queue client, background tasks will not be enqueued",
				"error", err,
			)
		} else {
			defer queueClient.Close()
			enqueuer = queueClient
			slogger.Info("queue client initialized")
		}
	}

	// Event stream is optional: without RabbitMQ, takedown and refund
	// events are only recorded in the database.
	var publisher *service.MessagePublisher
	if cfg.RabbitMQ.Host != "" {
		publisher, err = service.NewMessagePublisher(&cfg.RabbitMQ)
		if err != nil {
			slogger.Warn("failed to initialize message publisher, moderation events will not be published",
				"error", err,
			)
			publisher = nil
		} else {
			defer publisher.Close()
			slogger.Info("message publisher initialized", "exchange", cfg.RabbitMQ.Exchange)
		}
	}

	validator := validation.New()
	metrics := service.PlatformMetrics()
	ledgerClient := ledger.NewClient(&cfg.Ledger)

	var eventPublisher service.EventPublisher
	if publisher != nil {
		eventPublisher = publisher
	}

	catalogService := service.NewCatalogService(videoRepo, userRepo, store, validator)
	accessService := service.NewAccessService(videoRepo, accessRepo, userRepo, enqueuer, validator, metrics)
	refundService := service.NewRefundService(videoRepo, accessRepo, userRepo, eventPublisher, metrics)
	engagementService := service.NewEngagementService(pool, videoRepo, interactionRepo, accessRepo, enqueuer, eventPublisher, refundService, validator, metrics)
	commentService := service.NewCommentService(pool, videoRepo, commentRepo, userRepo, accessRepo, validator)
	rewardService := service.NewRewardService(tokenRepo, accessRepo, userRepo, ledgerClient, validator, metrics, cfg.Reward.ThresholdSeconds)
	profileService := service.NewProfileService(userRepo, store, validator)

	authorizer := auth.NewWalletAuthorizer(cfg.Auth.AdminAPIKeys)
	walletAuth := middleware.NewWalletAuth(authorizer, slogger)

	videoHandler := handler.NewVideoHandler(catalogService, engagementService, commentService, cfg.Content.MaxUploadBytes, slogger)
	accessHandler := handler.NewAccessHandler(accessService, authorizer, slogger)
	commentHandler := handler.NewCommentHandler(commentService, slogger)
	userHandler := handler.NewUserHandler(profileService, authorizer, slogger)
	rewardHandler := handler.NewRewardHandler(rewardService, slogger)
	healthHandler := handler.NewHealthHandler(pool, publisher)

	mux := http.NewServeMux()

	mux.Handle("/api/v1/videos", walletAuth.Middleware(videoHandler))
	mux.Handle("/api/v1/videos/", walletAuth.Middleware(videoHandler))
	mux.Handle("/api/v1/payments", walletAuth.Middleware(accessHandler))
	mux.Handle("/api/v1/payments/", walletAuth.Middleware(accessHandler))
	mux.Handle("/api/v1/access/", walletAuth.Middleware(accessHandler))
	mux.Handle("/api/v1/comments/", walletAuth.Middleware(commentHandler))
	mux.Handle("/api/v1/users/", walletAuth.Middleware(userHandler))
	mux.Handle("/api/v1/creator-tokens", walletAuth.Middleware(rewardHandler))
	mux.Handle("/api/v1/creator-tokens/", walletAuth.Middleware(rewardHandler))
	mux.Handle("/api/v1/rewards/", walletAuth.Middleware(rewardHandler))

	mux.HandleFunc("/health", healthHandler.LivenessProbe)
	mux.HandleFunc("/ready", healthHandler.ReadinessProbe)
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      loggingMiddleware(slogger)(mux),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		slogger.Info("server starting", "port", cfg.Server.Port)
		serverErrors <- server.ListenAndServe()
	}()

	shutdown := make(chan os.Signal, 1)
	signal.Notify(shutdown, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		slogger.Error("server error", "error", err)
		os.Exit(1)
	case sig := <-shutdown:
		slogger.Info("shutdown signal received", "signal", sig)

		ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()

		if err := server.Shutdown(ctx); err != nil {
			slogger.Error("graceful shutdown failed", "error", err)
			if err := server.Close(); err != nil {
				slogger.Error("failed to close server", "error", err)
			}
			os.Exit(1)
		}

		slogger.Info("server stopped gracefully")
	}
}

// loggingMiddleware logs HTTP requests.
func loggingMiddleware(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(rw, r)

			logger.Info("request completed",
				"method", r.Method,
				"path", r.URL.Path,
				"status", rw.statusCode,
				"duration_ms", time.Since(start).Milliseconds(),
				"remote_addr", r.RemoteAddr,
			)
		})
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	return rw.ResponseWriter.Write(b)
}

var _ http.ResponseWriter = (*responseWriter)(nil)
