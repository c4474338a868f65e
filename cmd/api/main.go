package main

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/V4T54L/leadhub/internal/adapter/api"
	"github.com/V4T54L/leadhub/internal/adapter/api/handler"
	"github.com/V4T54L/leadhub/internal/adapter/identity"
	"github.com/V4T54L/leadhub/internal/adapter/metrics"
	"github.com/V4T54L/leadhub/internal/adapter/notifier"
	"github.com/V4T54L/leadhub/internal/adapter/repository/postgres"
	redisrepo "github.com/V4T54L/leadhub/internal/adapter/repository/redis"
	"github.com/V4T54L/leadhub/internal/adapter/repository/wal"
	"github.com/V4T54L/leadhub/internal/pkg/config"
	"github.com/V4T54L/leadhub/internal/pkg/logger"
	"github.com/V4T54L/leadhub/internal/session"
	"github.com/V4T54L/leadhub/internal/usecase"

	_ "github.com/lib/pq" // Keep for postgres driver
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logger := logger.New(logger.Options{Level: cfg.LogLevel, File: cfg.LogFile, MaxSizeMB: cfg.LogMaxSizeMB})
	slog.SetDefault(logger)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// --- Graceful Shutdown Context ---
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// --- Database and Redis Connections ---
	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to ping postgres", "error", err)
		os.Exit(1)
	}

	redisOpts, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		logger.Error("failed to parse redis url", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer redisClient.Close()
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Warn("could not connect to redis, notifications will go to the WAL", "error", err)
	}

	// --- Initialize Repositories ---
	outboxWAL, err := wal.Open(cfg.WALPath, cfg.WALSegmentSize, cfg.WALMaxDiskSize, logger)
	if err != nil {
		logger.Error("failed to initialize WAL", "error", err)
		os.Exit(1)
	}
	defer outboxWAL.Close()

	configRepo := postgres.NewWebhookConfigRepository(db, logger, cfg.TokenNegativeCacheTTL, m)
	leadRepo := postgres.NewLeadRepository(db, logger)
	tenantRepo := postgres.NewTenantRepository(db)
	profileRepo := postgres.NewProfileRepository(db)

	queue := redisrepo.NewNotificationQueue(redisClient, logger, redisrepo.QueueOptions{
		Stream:    cfg.NotifyStream,
		DLQStream: cfg.NotifyDLQStream,
		Group:     cfg.NotifyGroup,
	}, outboxWAL, m)
	adminRepo := redisrepo.NewAdminRepository(redisClient, logger, cfg.NotifyStream, cfg.NotifyDLQStream)
	authEvents := redisrepo.NewAuthEventChannel(redisClient, cfg.AuthEventsChannel, logger)

	// --- Sessions ---
	verifier := identity.NewVerifier(cfg.JWTSecret, cfg.JWTIssuer)
	var adminClient *identity.AdminClient
	if cfg.IdentityAdminURL != "" {
		adminClient = identity.NewAdminClient(cfg.IdentityAdminURL, cfg.IdentityServiceKey, cfg.DispatchTimeout, logger)
	} else {
		logger.Warn("IDENTITY_ADMIN_URL not set, rejected sessions will not be signed out and agencies cannot be created")
	}
	var signOut session.SignOuter
	var accounts usecase.AccountProvisioner
	if adminClient != nil {
		signOut, accounts = adminClient, adminClient
	}
	resolver := session.NewResolver(profileRepo, tenantRepo, session.RetryPolicy{
		MaxAttempts: cfg.ProfileRetryAttempts,
		Backoff:     cfg.ProfileRetryBackoff,
	}, logger, m)
	sessions := session.NewManager(ctx, resolver, signOut, cfg.SessionIdleTTL, logger)
	defer sessions.Close()

	// --- Initialize Use Cases and Services ---
	sseBroker := handler.NewSSEBroker(ctx, sessions, logger)
	tokenStore := usecase.NewTokenStore(configRepo, logger)
	httpNotifier := notifier.NewHTTPNotifier(cfg.DispatchTimeout, logger, m)
	dispatch := usecase.NewDispatchUseCase(configRepo, leadRepo, tenantRepo, profileRepo, httpNotifier, logger, m)
	leadUseCase := usecase.NewLeadUseCase(leadRepo, queue, sseBroker, logger)
	settingsUseCase := usecase.NewWebhookSettingsUseCase(tokenStore, dispatch, tenantRepo)
	agencyUseCase := usecase.NewAgencyUseCase(tenantRepo, profileRepo, accounts, sessions, logger)
	userAdmin := usecase.NewUserAdminUseCase(profileRepo, tenantRepo, sessions, logger)
	outboxAdmin := usecase.NewOutboxAdminUseCase(adminRepo, cfg.NotifyGroup)

	// --- Initialize Servers ---
	publicServer := &http.Server{
		Addr: cfg.HTTPAddr,
		Handler: api.NewRouter(cfg, logger, m, api.Services{
			Tokens:   tokenStore,
			Ingester: leadUseCase,
			Leads:    leadUseCase,
			Settings: settingsUseCase,
			Agencies: agencyUseCase,
			Users:    userAdmin,
			Verifier: verifier,
			Sessions: sessions,
			Feed:     sseBroker,
		}),
		ReadTimeout: 5 * time.Second,
		IdleTimeout: 60 * time.Second,
	}
	adminServer := &http.Server{
		Addr:         cfg.AdminAddr,
		Handler:      api.NewAdminRouter(outboxAdmin, reg, logger),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("starting public server", "addr", publicServer.Addr)
		if err := publicServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		logger.Info("starting admin & metrics server", "addr", adminServer.Addr)
		if err := adminServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		// Redis health check and WAL replay loop
		queue.StartHealthCheck(gctx, 5*time.Second)
		return nil
	})
	g.Go(func() error {
		for {
			err := sessions.Run(gctx, authEvents)
			if gctx.Err() != nil {
				return nil
			}
			logger.Warn("auth event subscription ended, resubscribing", "error", err)
			select {
			case <-gctx.Done():
				return nil
			case <-time.After(2 * time.Second):
			}
		}
	})
	g.Go(func() error {
		// --- Wait for shutdown signal ---
		<-gctx.Done()
		logger.Info("shutting down servers...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := adminServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("admin server shutdown failed", "error", err)
		}
		if err := publicServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("public server shutdown failed", "error", err)
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server failed", "error", err)
		os.Exit(1)
	}
	logger.Info("servers shut down gracefully")
}
