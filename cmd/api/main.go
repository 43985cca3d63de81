package main

import (
	"context"
	"crypto/tls"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/orchestrall/patientflow/internal/api/router"
	"github.com/orchestrall/patientflow/internal/booking"
	appconfig "github.com/orchestrall/patientflow/internal/config"
	"github.com/orchestrall/patientflow/internal/dialog"
	"github.com/orchestrall/patientflow/internal/http/handlers"
	"github.com/orchestrall/patientflow/internal/idempotency"
	"github.com/orchestrall/patientflow/internal/messaging/channelclient"
	observemetrics "github.com/orchestrall/patientflow/internal/observability/metrics"
	"github.com/orchestrall/patientflow/internal/patients"
	"github.com/orchestrall/patientflow/internal/session"
	"github.com/orchestrall/patientflow/internal/tenants"
	"github.com/orchestrall/patientflow/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting patientflow API server", "env", cfg.Env, "port", cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.DatabaseURL == "" {
		logger.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Error("failed to create pgx pool", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Error("database unreachable", "error", err)
		os.Exit(1)
	}

	// database/sql handle over the same pool config, for the session store.
	sqlDB := stdlib.OpenDBFromPool(pool)
	defer func() { _ = sqlDB.Close() }()

	redisOpts := &redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
	}
	if cfg.RedisTLS {
		redisOpts.TLSConfig = &tls.Config{MinVersion: tls.VersionTLS12}
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("redis unreachable", "error", err)
		os.Exit(1)
	}

	channel, err := channelclient.New(channelclient.Config{
		BaseURL:       cfg.ChannelBaseURL,
		APIKey:        cfg.ChannelAPIKey,
		WebhookSecret: cfg.ChannelWebhookSecret,
		MaxRetries:    cfg.ChannelRetryAttempts,
		Backoff:       cfg.ChannelRetryBackoff,
		MaxSkew:       cfg.ChannelMaxSkew,
		Logger:        logger.Logger,
	})
	if err != nil {
		logger.Error("failed to create channel client", "error", err)
		os.Exit(1)
	}

	registry := prometheus.NewRegistry()
	orchestratorMetrics := observemetrics.NewOrchestratorMetrics(registry)

	deliveryStore := idempotency.NewStore(redisClient, cfg.DeliveryClaimTTL, cfg.DeliveryRetentionTTL)
	sessionCache := session.NewCache(redisClient, cfg.SessionTTL)
	sessionDurable := session.NewPostgresStore(sqlDB)
	sessionStore := session.NewStore(sessionCache, sessionDurable, logger.Logger)
	sessionLocker := session.NewRedisSessionLocker(redisClient, cfg.SessionLockTTL)

	tenantStore := tenants.NewStore(pool)
	patientStore := patients.NewStore(pool)

	bookingSvc := booking.NewService(pool, logger.Logger, cfg.BookingRetryAttempts, cfg.BookingRetryBackoff)
	booker := handlers.NewMeteredBooker(bookingSvc, orchestratorMetrics)
	machine := dialog.NewMachine(booker, logger.Logger)

	webhookHandler := handlers.NewChannelWebhookHandler(handlers.ChannelWebhookConfig{
		Verifier:     channel,
		Sender:       channel,
		Delivery:     deliveryStore,
		Tenants:      tenantStore,
		Patients:     patientStore,
		Sessions:     sessionStore,
		Machine:      machine,
		Locker:       sessionLocker,
		Logger:       logger.Component("channel_webhooks"),
		Metrics:      orchestratorMetrics,
		SenderNumber: cfg.ChannelSenderNumber,
	})

	reaper := session.NewReaper(sessionDurable, cfg.SessionReapInterval, cfg.SessionReapIdleWindow, logger.Logger)
	go reaper.Run(ctx)

	r := router.New(&router.Config{
		Logger:          logger,
		ChannelWebhooks: webhookHandler,
		MetricsHandler:  promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
	}
}
