package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/angelmondragon/oddsvault-backend/internal/notifications"
	"github.com/angelmondragon/oddsvault-backend/internal/users"
	"github.com/angelmondragon/oddsvault-backend/pkg/config"
	"github.com/angelmondragon/oddsvault-backend/pkg/db"
	"github.com/angelmondragon/oddsvault-backend/pkg/instance"
	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
	"github.com/angelmondragon/oddsvault-backend/pkg/mailer"
	"github.com/angelmondragon/oddsvault-backend/pkg/outbox"
	"github.com/angelmondragon/oddsvault-backend/pkg/outbox/idempotency"
	"github.com/angelmondragon/oddsvault-backend/pkg/pubsub"
	"github.com/angelmondragon/oddsvault-backend/pkg/redis"
	"github.com/angelmondragon/oddsvault-backend/pkg/telegram"
)

func main() {
	logg := logger.New(logger.Options{ServiceName: "worker"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "worker",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logg.WithFields(ctx, map[string]any{"env": cfg.App.Env, "instance": instance.GetID()})

	if err := run(ctx, cfg, logg); err != nil && !errors.Is(err, context.Canceled) {
		logg.Error(ctx, "worker stopped unexpectedly", err)
		os.Exit(1)
	}
	logg.Info(ctx, "worker shutting down gracefully")
}

func run(ctx context.Context, cfg *config.Config, logg *logger.Logger) error {
	dbClient, err := db.New(ctx, cfg.DB, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	pubsubClient, err := pubsub.NewClient(ctx, cfg.GCP, cfg.PubSub, pubsub.RoleConsumer, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := pubsubClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing pubsub client", err)
		}
	}()

	tracker, err := idempotency.NewTracker(redisClient, cfg.Eventing.OutboxIdempotencyTTL)
	if err != nil {
		return err
	}

	conn := dbClient.DB()
	inbox, err := notifications.NewService(notifications.ServiceParams{
		Repo:     notifications.NewRepository(conn),
		Users:    users.NewRepository(conn),
		TxRunner: dbClient,
		Outbox:   outbox.NewService(outbox.NewRepository(conn), logg),
	})
	if err != nil {
		return err
	}

	var alerter notifications.Alerter
	if cfg.Telegram.Enabled() {
		notifier, err := telegram.NewNotifier(cfg.Telegram)
		if err != nil {
			return err
		}
		alerter = notifier
	} else {
		logg.Warn(ctx, "telegram not configured, admin alerts disabled")
	}

	sender, err := mailer.NewSender(cfg.SMTP, logg)
	if err != nil {
		return err
	}
	renderer, err := mailer.NewRenderer(cfg.App.SiteName)
	if err != nil {
		return err
	}

	emailConsumer, err := notifications.NewEmailConsumer(renderer, sender, cfg.App.BaseURL, pubsubClient.NotificationSubscription(), tracker, logg)
	if err != nil {
		return err
	}
	eventConsumer, err := notifications.NewEventConsumer(inbox, alerter, pubsubClient.DomainSubscription(), tracker, logg)
	if err != nil {
		return err
	}

	service, err := NewService(ServiceParams{
		Logger: logg,
		Dependencies: []dependency{
			{name: "database", ping: dbClient.Ping},
			{name: "redis", ping: redisClient.Ping},
			{name: "pubsub", ping: pubsubClient.Ping},
		},
		Consumers: map[string]runner{
			"notification-email": emailConsumer,
			"domain-events":      eventConsumer,
		},
	})
	if err != nil {
		return err
	}

	logg.Info(ctx, "starting worker")
	return service.Run(ctx)
}
