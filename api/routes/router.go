package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/angelmondragon/oddsvault-backend/api/controllers"
	"github.com/angelmondragon/oddsvault-backend/api/middleware"
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
	"github.com/angelmondragon/oddsvault-backend/pkg/logger"
	"github.com/angelmondragon/oddsvault-backend/pkg/metrics"
	pkgredis "github.com/angelmondragon/oddsvault-backend/pkg/redis"
)

// WindowLimiter counts requests in fixed windows; the Redis client
// satisfies it.
type WindowLimiter interface {
	FixedWindowAllow(ctx context.Context, scope string, limit int64, window time.Duration) (bool, int64, error)
}

// Deps carries everything the router mounts. Importer and Football are nil
// when no sports-data key is configured; Limiter, Idempotency, Gatherer and
// RateLimiter are skipped when nil.
type Deps struct {
	Config      *config.Config
	Logger      *logger.Logger
	Sessions    session.AccessSessionChecker
	Limiter     WindowLimiter
	Idempotency pkgredis.IdempotencyStore
	Pingers     map[string]controllers.Pinger
	Gatherer    prometheus.Gatherer
	HTTPMetrics *metrics.HTTPMetrics
	RateLimiter *middleware.RateLimiter

	Auth          auth.Service
	Users         users.Service
	Plans         plans.Service
	Subscriptions subscriptions.Service
	Transactions  transactions.Service
	Predictions   predictions.Service
	Importer      importer.Service
	Football      controllers.FootballData
	Notifications notifications.Service
	Chat          chat.Service
	Winnings      winnings.Service
	Blog          blog.Service
	Settings      settings.Service
	Stats         stats.Service
	DeadLetters   controllers.DeadLetters
}

func NewRouter(d Deps) http.Handler {
	cfg, logg := d.Config, d.Logger

	r := chi.NewRouter()
	r.Use(
		middleware.Recoverer(logg),
		middleware.RequestID(logg),
		middleware.CORS(cfg.CORS),
		middleware.Logging(logg, d.HTTPMetrics),
	)
	if d.RateLimiter != nil {
		r.Use(d.RateLimiter.Middleware())
	}

	requireAuth := middleware.Auth(cfg.JWT, d.Sessions, logg)
	optionalAuth := middleware.OptionalAuth(cfg.JWT, d.Sessions, logg)
	idempotent := middleware.Idempotent(d.Idempotency, middleware.DefaultIdempotencyTTL, logg)
	paymentIdempotent := middleware.Idempotent(d.Idempotency, middleware.PaymentIdempotencyTTL, logg)

	r.Route("/health", func(r chi.Router) {
		r.Get("/live", controllers.HealthLive(cfg.App.Env))
		r.Get("/ready", controllers.HealthReady(cfg.App.Env, d.Pingers, logg))
	})
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/api", func(r chi.Router) {
		r.Route("/auth", func(r chi.Router) {
			r.With(middleware.AuthRateLimit(middleware.RegisterPolicy(cfg.AuthRateLimit), d.Limiter, logg)).
				Post("/register", controllers.AuthRegister(d.Auth, logg))
			r.With(middleware.AuthRateLimit(middleware.LoginPolicy(cfg.AuthRateLimit), d.Limiter, logg)).
				Post("/login", controllers.AuthLogin(d.Auth, logg))
			r.Post("/refresh", controllers.AuthRefresh(d.Auth, logg))
			r.With(requireAuth).Post("/logout", controllers.AuthLogout(d.Auth, logg))
		})

		// Public reads. OptionalAuth lets paid content and per-country
		// pricing follow the signed-in viewer.
		r.Group(func(r chi.Router) {
			r.Use(optionalAuth)

			r.Get("/plans", controllers.ListPlans(d.Plans, d.Users, logg))
			r.Get("/plans/{planRef}", controllers.GetPlan(d.Plans, d.Users, logg))
			r.Get("/plans/{planRef}/quote", controllers.QuotePlan(d.Plans, d.Users, logg))

			r.Get("/predictions", controllers.ListPredictions(d.Predictions, logg))
			r.Get("/predictions/{predictionID}", controllers.GetPrediction(d.Predictions, logg))
			r.Get("/correct-scores", controllers.ListCorrectScores(d.Predictions, logg))
			r.Get("/correct-scores/{predictionID}", controllers.GetCorrectScore(d.Predictions, logg))

			r.Get("/football/head-to-head", controllers.HeadToHead(d.Football, logg))
			r.Get("/football/standings", controllers.Standings(d.Football, logg))

			r.Get("/winnings", controllers.ListWinnings(d.Winnings, logg))
			r.Get("/winnings/{winningID}", controllers.GetWinning(d.Winnings, logg))

			r.Get("/blog", controllers.ListPublishedPosts(d.Blog, logg))
			r.Get("/blog/{slug}", controllers.GetPublishedPost(d.Blog, logg))

			r.Get("/settings/{key}", controllers.GetSetting(d.Settings, logg))
		})

		r.Group(func(r chi.Router) {
			r.Use(requireAuth)

			r.Get("/me", controllers.GetMe(d.Users, logg))
			r.Patch("/me", controllers.UpdateMe(d.Users, logg))

			r.Route("/subscriptions", func(r chi.Router) {
				r.With(idempotent).Post("/", controllers.Subscribe(d.Subscriptions, logg))
				r.Get("/", controllers.ListMySubscriptions(d.Subscriptions, logg))
				r.Get("/access", controllers.CheckAccess(d.Subscriptions, logg))
			})

			r.Route("/transactions", func(r chi.Router) {
				r.With(paymentIdempotent).Post("/", controllers.InitiateTransaction(d.Transactions, logg))
				r.Get("/", controllers.ListMyTransactions(d.Transactions, logg))
				r.Get("/{transactionID}", controllers.GetTransaction(d.Transactions, logg))
				if cfg.FeatureFlags.SimulatedCheckout {
					r.With(paymentIdempotent).Post("/{transactionID}/complete", controllers.CompleteTransaction(d.Transactions, logg))
				}
			})

			r.Route("/notifications", func(r chi.Router) {
				r.Get("/", controllers.ListNotifications(d.Notifications, logg))
				r.Get("/unread-count", controllers.NotificationUnreadCount(d.Notifications, logg))
				r.Post("/{notificationID}/read", controllers.MarkNotificationRead(d.Notifications, logg))
				r.Post("/read-all", controllers.MarkAllNotificationsRead(d.Notifications, logg))

				r.Group(func(r chi.Router) {
					r.Use(middleware.RequireAdmin(logg), idempotent)
					r.Post("/create", controllers.CreateNotification(d.Notifications, logg))
					r.Post("/send-email", controllers.SendNotificationEmail(d.Notifications, logg))
				})
			})

			r.Route("/chat", func(r chi.Router) {
				r.Get("/messages", controllers.ChatHistory(d.Chat, logg))
				r.Post("/messages", controllers.ChatSend(d.Chat, logg))
				r.Post("/read", controllers.ChatMarkRead(d.Chat, logg))
				r.Get("/unread", controllers.ChatUnreadCount(d.Chat, logg))
				r.Get("/ws", controllers.ChatSocket(d.Chat, *cfg, logg))
			})

			r.With(middleware.RequireAdmin(logg)).
				Post("/football/sync-predictions", controllers.SyncPredictions(d.Importer, logg))
		})

		r.Route("/admin", func(r chi.Router) {
			r.Use(requireAuth, middleware.RequireAdmin(logg))
			mountAdmin(r, d)
		})
	})

	return r
}

func mountAdmin(r chi.Router, d Deps) {
	cfg, logg := d.Config, d.Logger
	paymentIdempotent := middleware.Idempotent(d.Idempotency, middleware.PaymentIdempotencyTTL, logg)

	r.Get("/stats", controllers.AdminDashboard(d.Stats, logg))

	r.Route("/users", func(r chi.Router) {
		r.Get("/", controllers.AdminListUsers(d.Users, logg))
		r.Get("/{userID}", controllers.AdminGetUser(d.Users, logg))
		r.Put("/{userID}/admin", controllers.AdminSetUserAdmin(d.Users, logg))
	})

	r.Route("/plans", func(r chi.Router) {
		r.Post("/", controllers.AdminCreatePlan(d.Plans, logg))
		r.Patch("/{planID}", controllers.AdminUpdatePlan(d.Plans, logg))
		r.Delete("/{planID}", controllers.AdminDeletePlan(d.Plans, logg))
		r.Get("/{planID}/prices", controllers.AdminListPlanPrices(d.Plans, logg))
		r.Put("/{planID}/prices", controllers.AdminUpsertPlanPrice(d.Plans, logg))
		r.Delete("/{planID}/prices/{priceID}", controllers.AdminDeletePlanPrice(d.Plans, logg))
	})

	r.Route("/subscriptions", func(r chi.Router) {
		r.Get("/", controllers.AdminListSubscriptions(d.Subscriptions, logg))
		r.Post("/{subscriptionID}/deactivate", controllers.AdminDeactivateSubscription(d.Subscriptions, logg))
		r.Post("/{subscriptionID}/reactivate", controllers.AdminReactivateSubscription(d.Subscriptions, logg))
	})

	r.Route("/transactions", func(r chi.Router) {
		r.Get("/", controllers.AdminListTransactions(d.Transactions, logg))
		r.Get("/{transactionID}", controllers.GetTransaction(d.Transactions, logg))
		r.With(paymentIdempotent).Post("/{transactionID}/approve", controllers.AdminApproveTransaction(d.Transactions, logg))
		r.With(paymentIdempotent).Post("/{transactionID}/fail", controllers.AdminFailTransaction(d.Transactions, logg))
		r.With(paymentIdempotent).Post("/{transactionID}/refund", controllers.AdminRefundTransaction(d.Transactions, logg))
	})

	r.Route("/predictions", func(r chi.Router) {
		r.Post("/", controllers.AdminCreatePrediction(d.Predictions, logg))
		r.Put("/{predictionID}", controllers.AdminUpdatePrediction(d.Predictions, logg))
		r.Delete("/{predictionID}", controllers.AdminDeletePrediction(d.Predictions, logg))
		r.Post("/{predictionID}/result", controllers.AdminRecordPredictionResult(d.Predictions, logg))
	})

	r.Route("/correct-scores", func(r chi.Router) {
		r.Post("/", controllers.AdminCreateCorrectScore(d.Predictions, logg))
		r.Put("/{predictionID}", controllers.AdminUpdateCorrectScore(d.Predictions, logg))
		r.Delete("/{predictionID}", controllers.AdminDeleteCorrectScore(d.Predictions, logg))
		r.Post("/{predictionID}/result", controllers.AdminRecordCorrectScoreResult(d.Predictions, logg))
	})

	r.Route("/chat", func(r chi.Router) {
		r.Get("/conversations", controllers.AdminChatConversations(d.Chat, logg))
		r.Get("/unread", controllers.AdminChatUnreadTotal(d.Chat, logg))
		r.Get("/{userID}/messages", controllers.ChatHistory(d.Chat, logg))
		r.Post("/{userID}/messages", controllers.ChatSend(d.Chat, logg))
		r.Post("/{userID}/read", controllers.ChatMarkRead(d.Chat, logg))
		r.Get("/{userID}/ws", controllers.ChatSocket(d.Chat, *cfg, logg))
	})

	r.Route("/winnings", func(r chi.Router) {
		r.Post("/", controllers.AdminCreateWinning(d.Winnings, logg))
		r.Put("/{winningID}", controllers.AdminUpdateWinning(d.Winnings, logg))
		r.Delete("/{winningID}", controllers.AdminDeleteWinning(d.Winnings, logg))
	})

	r.Route("/blog", func(r chi.Router) {
		r.Get("/", controllers.AdminListPosts(d.Blog, logg))
		r.Post("/", controllers.AdminCreatePost(d.Blog, logg))
		r.Get("/{postID}", controllers.AdminGetPost(d.Blog, logg))
		r.Put("/{postID}", controllers.AdminUpdatePost(d.Blog, logg))
		r.Post("/{postID}/publish", controllers.AdminPublishPost(d.Blog, logg))
		r.Delete("/{postID}", controllers.AdminDeletePost(d.Blog, logg))
	})

	r.Route("/settings", func(r chi.Router) {
		r.Get("/", controllers.AdminListSettings(d.Settings, logg))
		r.Put("/{key}", controllers.AdminPutSetting(d.Settings, logg))
		r.Delete("/{key}", controllers.AdminDeleteSetting(d.Settings, logg))
	})

	r.Route("/outbox/dlq", func(r chi.Router) {
		r.Get("/", controllers.AdminListDeadLetters(d.DeadLetters, logg))
		r.Post("/{dlqID}/replay", controllers.AdminReplayDeadLetter(d.DeadLetters, logg))
	})
}
