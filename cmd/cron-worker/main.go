package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/oddsvault-backend/internal/cron"
	"github.com/angelmondragon/oddsvault-backend/internal/notifications"
	"github.com/angelmondragon/oddsvault-backend/internal/plans"
	"github.com/angelmondragon/oddsvault-backend/internal/subscriptions"
	"github.com/angelmondragon/oddsvault-backend/internal/users"
	"github.com/angelmondragon/oddsvault-backend/pkg/config"
	"github.com/angelmondragon/oddsvault-backend/pkg/db"
	"github.com/angelmondragon/oddsvault-backend/pkg/instance"
	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
	"github.com/angelmondragon/oddsvault-backend/pkg/metrics"
	"github.com/angelmondragon/oddsvault-backend/pkg/migrate"
	"github.com/angelmondragon/oddsvault-backend/pkg/outbox"
	"github.com/angelmondragon/oddsvault-backend/pkg/redis"
)

const metricsAddr = ":9102"

func main() {
	logg := logger.New(logger.Options{ServiceName: "cron-worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "cron-worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	owner := instance.GetID()
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "instance": owner})

	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		logg.Error(ctx, "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		logg.Error(ctx, "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	conn := dbClient.DB()
	outboxRepo := outbox.NewRepository(conn)
	emitter := outbox.NewService(outboxRepo, logg)
	userRepo := users.NewRepository(conn)

	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		TxRunner:               dbClient,
		Repo:                   subscriptions.NewRepository(conn),
		Plans:                  plans.NewRepository(conn),
		Users:                  userRepo,
		Outbox:                 emitter,
		Logger:                 logg,
		ActivationDurationDays: cfg.Subscription.DefaultActivationDurationDays,
	})
	if err != nil {
		logg.Error(ctx, "failed to create subscription service", err)
		os.Exit(1)
	}
	notificationService, err := notifications.NewService(notifications.ServiceParams{
		Repo:     notifications.NewRepository(conn),
		Users:    userRepo,
		TxRunner: dbClient,
		Outbox:   emitter,
	})
	if err != nil {
		logg.Error(ctx, "failed to create notification service", err)
		os.Exit(1)
	}

	expiryJob, err := cron.NewSubscriptionExpiryJob(logg, subscriptionService)
	if err != nil {
		logg.Error(ctx, "failed to create expiry job", err)
		os.Exit(1)
	}
	cleanupJob, err := cron.NewNotificationCleanupJob(logg, notificationService, cfg.Cron.NotificationRetentionDays)
	if err != nil {
		logg.Error(ctx, "failed to create cleanup job", err)
		os.Exit(1)
	}
	retentionJob, err := cron.NewOutboxRetentionJob(logg, dbClient, outboxRepo, cfg.Cron.OutboxRetentionDays)
	if err != nil {
		logg.Error(ctx, "failed to create outbox retention job", err)
		os.Exit(1)
	}

	registry := cron.NewRegistry()
	registry.Register(expiryJob, cfg.Cron.ExpiryEvery)
	registry.Register(cleanupJob, cfg.Cron.CleanupEvery)
	registry.Register(retentionJob, cfg.Cron.CleanupEvery)

	lock, err := cron.NewRedisLock(redisClient, owner, cfg.Cron.LockTTL)
	if err != nil {
		logg.Error(ctx, "failed to create cron lock", err)
		os.Exit(1)
	}

	service, err := cron.NewService(cron.ServiceParams{
		Logger:   logg,
		Registry: registry,
		Lock:     lock,
		Metrics:  metrics.NewCronJobMetrics(prometheus.DefaultRegisterer),
		Tick:     cfg.Cron.Tick,
	})
	if err != nil {
		logg.Error(ctx, "failed to create cron service", err)
		os.Exit(1)
	}

	go serveMetrics(ctx, logg)

	logg.Info(ctx, "starting cron worker")
	if err := service.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "cron worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "cron worker shutting down gracefully")
}

func serveMetrics(ctx context.Context, logg *logger.Logger) {
	srv := &http.Server{Addr: metricsAddr, Handler: promhttp.Handler()}
	go func() {
		<-ctx.Done()
		_ = srv.Close()
	}()
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logg.Error(ctx, "metrics server stopped", err)
	}
}
