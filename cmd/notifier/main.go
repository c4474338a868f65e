package main

import (
	"context"
	"database/sql"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/V4T54L/leadhub/internal/adapter/metrics"
	"github.com/V4T54L/leadhub/internal/adapter/notifier"
	"github.com/V4T54L/leadhub/internal/adapter/repository/postgres"
	redisrepo "github.com/V4T54L/leadhub/internal/adapter/repository/redis"
	"github.com/V4T54L/leadhub/internal/pkg/config"
	"github.com/V4T54L/leadhub/internal/pkg/logger"
	"github.com/V4T54L/leadhub/internal/usecase"
)

const idleInterval = 1 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, MaxSizeMB: cfg.LogMaxSizeMB})
	log.Info("starting notification worker")

	reg := prometheus.NewRegistry()
	m := metrics.New(reg)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to Redis
	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		log.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}
	log.Info("connected to redis")

	// Connect to PostgreSQL
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		log.Error("failed to open postgres connection", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		log.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	log.Info("connected to postgres")

	// Create a unique consumer name for this instance
	consumerName, err := os.Hostname()
	if err != nil {
		log.Warn("could not get hostname for consumer name, using default", "error", err)
		consumerName = "notifier-default"
	}

	// Metrics only; the worker has no other HTTP surface.
	metricsServer := &http.Server{Addr: cfg.AdminAddr, Handler: promhttp.HandlerFor(reg, promhttp.HandlerOpts{})}
	go func() {
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("metrics server failed", "error", err)
		}
	}()
	defer metricsServer.Close()

	// Instantiate repositories
	queue := redisrepo.NewNotificationQueue(redisClient, log, redisrepo.QueueOptions{
		Stream:    cfg.NotifyStream,
		DLQStream: cfg.NotifyDLQStream,
		Group:     cfg.NotifyGroup,
	}, nil, m)
	configRepo := postgres.NewWebhookConfigRepository(db, log, 0, m)
	dispatch := usecase.NewDispatchUseCase(
		configRepo,
		postgres.NewLeadRepository(db, log),
		postgres.NewTenantRepository(db),
		postgres.NewProfileRepository(db),
		notifier.NewHTTPNotifier(cfg.DispatchTimeout, log, m),
		log,
		m,
	)

	worker := usecase.NewProcessNotificationsUseCase(queue, dispatch, log, usecase.WorkerOptions{
		Group:        cfg.NotifyGroup,
		Consumer:     consumerName,
		MaxAttempts:  cfg.NotifyMaxAttempts,
		RetryBackoff: cfg.NotifyRetryBackoff,
		Concurrency:  cfg.NotifyConcurrency,
		ClaimIdle:    cfg.NotifyClaimIdle,
	})

	log.Info("notification worker started", "group", cfg.NotifyGroup, "consumer", consumerName)

	// ReadBatch blocks briefly on an empty stream, so the loop only sleeps after errors.
	for ctx.Err() == nil {
		processed, err := worker.ProcessBatch(ctx)
		if err != nil && ctx.Err() == nil {
			log.Error("error processing batch", "error", err)
		}
		log.Debug("batch settled", "count", processed)
		if err != nil {
			select {
			case <-ctx.Done():
			case <-time.After(idleInterval):
			}
		}
	}

	log.Info("notification worker shut down gracefully")
}
