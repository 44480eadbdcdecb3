package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/angelmondragon/oddsvault-backend/api/controllers"
	"github.com/angelmondragon/oddsvault-backend/api/middleware"
	"github.com/angelmondragon/oddsvault-backend/api/routes"
	"github.com/angelmondragon/oddsvault-backend/internal/auth"
	"github.com/angelmondragon/oddsvault-backend/internal/blog"
	"github.com/angelmondragon/oddsvault-backend/internal/chat"
	"github.com/angelmondragon/oddsvault-backend/internal/importer"
	"github.com/angelmondragon/oddsvault-backend/internal/notifications"
	"github.com/angelmondragon/oddsvault-backend/internal/plans"
	"github.com/angelmondragon/oddsvault-backend/internal/predictions"
	"github.com/angelmondragon/oddsvault-backend/internal/settings"
	"github.com/angelmondragon/oddsvault-backend/internal/stats"
	"github.com/angelmondragon/oddsvault-backend/internal/subscriptions"
	"github.com/angelmondragon/oddsvault-backend/internal/transactions"
	"github.com/angelmondragon/oddsvault-backend/internal/users"
	"github.com/angelmondragon/oddsvault-backend/internal/winnings"
	"github.com/angelmondragon/oddsvault-backend/pkg/auth/session"
	"github.com/angelmondragon/oddsvault-backend/pkg/config"
	"github.com/angelmondragon/oddsvault-backend/pkg/db"
	"github.com/angelmondragon/oddsvault-backend/pkg/instance"
	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
	"github.com/angelmondragon/oddsvault-backend/pkg/metrics"
	"github.com/angelmondragon/oddsvault-backend/pkg/migrate"
	"github.com/angelmondragon/oddsvault-backend/pkg/outbox"
	"github.com/angelmondragon/oddsvault-backend/pkg/redis"
	"github.com/angelmondragon/oddsvault-backend/pkg/sportsdata"
)

const shutdownTimeout = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		Format:      cfg.App.LogFormat,
		WarnStack:   cfg.App.LogWarnStack,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logg); err != nil {
		logg.Error(ctx, "api stopped", err)
		os.Exit(1)
	}
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

	if err := migrate.MaybeRunDev(ctx, cfg, logg, dbClient); err != nil {
		return err
	}

	redisClient, err := redis.New(ctx, cfg.Redis, logg)
	if err != nil {
		return err
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		return err
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	deps, err := buildDeps(cfg, logg, dbClient, redisClient, sessionManager, reg)
	if err != nil {
		return err
	}

	rateLimiter := middleware.NewRateLimiter(cfg.RateLimit)
	if cfg.RateLimit.Enabled {
		deps.RateLimiter = rateLimiter
		go rateLimiter.Sweep(ctx)
	}

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx = logg.WithFields(ctx, map[string]any{
		"env":      cfg.App.Env,
		"addr":     addr,
		"instance": instance.GetID(),
	})

	server := &http.Server{
		Addr:              addr,
		Handler:           routes.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logg.Info(ctx, "starting api server")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logg.Info(ctx, "shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}

func buildDeps(
	cfg *config.Config,
	logg *logger.Logger,
	dbClient *db.Client,
	redisClient *redis.Client,
	sessionManager *session.Manager,
	reg *prometheus.Registry,
) (routes.Deps, error) {
	conn := dbClient.DB()
	emitter := outbox.NewService(outbox.NewRepository(conn), logg)
	userRepo := users.NewRepository(conn)
	planRepo := plans.NewRepository(conn)

	authService, err := auth.NewService(auth.ServiceParams{
		TxRunner:       dbClient,
		UserRepo:       userRepo,
		SessionManager: sessionManager,
		Outbox:         emitter,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		return routes.Deps{}, err
	}
	userService, err := users.NewService(userRepo)
	if err != nil {
		return routes.Deps{}, err
	}
	planService, err := plans.NewService(plans.ServiceParams{
		Repo:        planRepo,
		HomeCountry: cfg.Subscription.HomeCountry,
	})
	if err != nil {
		return routes.Deps{}, err
	}
	subscriptionService, err := subscriptions.NewService(subscriptions.ServiceParams{
		TxRunner:               dbClient,
		Repo:                   subscriptions.NewRepository(conn),
		Plans:                  planRepo,
		Users:                  userRepo,
		Outbox:                 emitter,
		Logger:                 logg,
		ActivationDurationDays: cfg.Subscription.DefaultActivationDurationDays,
	})
	if err != nil {
		return routes.Deps{}, err
	}
	transactionService, err := transactions.NewService(transactions.ServiceParams{
		TxRunner:               dbClient,
		Repo:                   transactions.NewRepository(conn),
		Plans:                  planService,
		Subscriptions:          subscriptionService,
		Users:                  userRepo,
		Outbox:                 emitter,
		Logger:                 logg,
		ActivationDurationDays: cfg.Subscription.DefaultActivationDurationDays,
	})
	if err != nil {
		return routes.Deps{}, err
	}
	predictionRepo := predictions.NewRepository(conn)
	predictionService, err := predictions.NewService(predictionRepo, subscriptionService)
	if err != nil {
		return routes.Deps{}, err
	}
	notificationService, err := notifications.NewService(notifications.ServiceParams{
		Repo:     notifications.NewRepository(conn),
		Users:    userRepo,
		TxRunner: dbClient,
		Outbox:   emitter,
	})
	if err != nil {
		return routes.Deps{}, err
	}
	broker, err := chat.NewRedisBroker(redisClient, logg)
	if err != nil {
		return routes.Deps{}, err
	}
	chatService, err := chat.NewService(chat.NewRepository(conn), broker, logg)
	if err != nil {
		return routes.Deps{}, err
	}
	winningService, err := winnings.NewService(winnings.NewRepository(conn))
	if err != nil {
		return routes.Deps{}, err
	}
	blogService, err := blog.NewService(blog.NewRepository(conn))
	if err != nil {
		return routes.Deps{}, err
	}
	settingService, err := settings.NewService(settings.NewRepository(conn))
	if err != nil {
		return routes.Deps{}, err
	}
	statsService, err := stats.NewService(stats.Sources{
		Users:               userRepo.Count,
		ActiveSubscriptions: subscriptionService.CountActive,
		PendingTransactions: transactionService.CountPending,
		UnreadMessages:      chatService.TotalUnread,
		PredictionsForDay:   predictionService.CountForDay,
	})
	if err != nil {
		return routes.Deps{}, err
	}

	deps := routes.Deps{
		Config:      cfg,
		Logger:      logg,
		Sessions:    sessionManager,
		Limiter:     redisClient,
		Idempotency: redisClient,
		Pingers: map[string]controllers.Pinger{
			"db":    dbClient,
			"redis": redisClient,
		},
		Gatherer:    reg,
		HTTPMetrics: metrics.NewHTTPMetrics(reg),

		Auth:          authService,
		Users:         userService,
		Plans:         planService,
		Subscriptions: subscriptionService,
		Transactions:  transactionService,
		Predictions:   predictionService,
		Notifications: notificationService,
		Chat:          chatService,
		Winnings:      winningService,
		Blog:          blogService,
		Settings:      settingService,
		Stats:         statsService,
		DeadLetters:   outbox.NewDLQRepository(conn),
	}

	if cfg.SportsData.APIKey == "" {
		logg.Warn(context.Background(), "sports data api key not set; importer and football routes disabled")
		return deps, nil
	}
	sportsClient, err := sportsdata.NewClient(cfg.SportsData.APIKey,
		sportsdata.WithBaseURL(cfg.SportsData.BaseURL),
		sportsdata.WithHTTPClient(&http.Client{Timeout: cfg.SportsData.Timeout}),
		sportsdata.WithCache(redisClient, cfg.SportsData.CacheTTL),
	)
	if err != nil {
		return routes.Deps{}, err
	}
	params := importer.ServiceParams{
		Source:               sportsClient,
		TxRunner:             dbClient,
		Repo:                 predictionRepo,
		Plans:                planRepo,
		Outbox:               emitter,
		Logger:               logg,
		Metrics:              metrics.NewImporterMetrics(reg),
		MaxFixtures:          cfg.Importer.MaxFixtures,
		DefaultMinConfidence: cfg.Importer.DefaultMinConfidence,
	}
	if cfg.FeatureFlags.ImporterNotifySubs {
		params.Subscribers = subscriptionService
		params.Notifier = notificationService
	}
	importService, err := importer.NewService(params)
	if err != nil {
		return routes.Deps{}, err
	}
	deps.Importer = importService
	deps.Football = sportsClient
	return deps, nil
}
