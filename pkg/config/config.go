package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App           AppConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	AuthRateLimit AuthRateLimitConfig
	RateLimit     RateLimitConfig
	CORS          CORSConfig
	FeatureFlags  FeatureFlagsConfig
	Eventing      EventingConfig
	GCP           GCPConfig
	PubSub        PubSubConfig
	Outbox        OutboxConfig
	SportsData    SportsDataConfig
	Importer      ImporterConfig
	Subscription  SubscriptionConfig
	SMTP          SMTPConfig
	Telegram      TelegramConfig
	Cron          CronConfig
	Chat          ChatConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ODDSVAULT_APP_ENV" required:"true"`
	Port         string `envconfig:"ODDSVAULT_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"ODDSVAULT_APP_BASE_URL" default:"http://localhost:3000"`
	SiteName     string `envconfig:"ODDSVAULT_SITE_NAME" default:"OddsVault"`
	LogLevel     string `envconfig:"ODDSVAULT_LOG_LEVEL" default:"info"`
	LogFormat    string `envconfig:"ODDSVAULT_LOG_FORMAT" default:"json"`
	LogWarnStack bool   `envconfig:"ODDSVAULT_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd) || strings.EqualFold(a.Env, "production")
}

type DBConfig struct {
	DSN    string `envconfig:"ODDSVAULT_DB_DSN"`
	Driver string `envconfig:"ODDSVAULT_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ODDSVAULT_DB_HOST"`
	LegacyPort     int    `envconfig:"ODDSVAULT_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ODDSVAULT_DB_USER"`
	LegacyPassword string `envconfig:"ODDSVAULT_DB_PASSWORD"`
	LegacyName     string `envconfig:"ODDSVAULT_DB_NAME"`
	LegacySSLMode  string `envconfig:"ODDSVAULT_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ODDSVAULT_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ODDSVAULT_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ODDSVAULT_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ODDSVAULT_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ODDSVAULT_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ODDSVAULT_REDIS_ADDR"`
	Password     string        `envconfig:"ODDSVAULT_REDIS_PASSWORD"`
	DB           int           `envconfig:"ODDSVAULT_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ODDSVAULT_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ODDSVAULT_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ODDSVAULT_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ODDSVAULT_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ODDSVAULT_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"ODDSVAULT_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"ODDSVAULT_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"ODDSVAULT_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"ODDSVAULT_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"ODDSVAULT_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"ODDSVAULT_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"ODDSVAULT_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"ODDSVAULT_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"ODDSVAULT_ARGON_KEY_LEN" default:"32"`
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"ODDSVAULT_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"ODDSVAULT_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"ODDSVAULT_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"ODDSVAULT_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"ODDSVAULT_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"ODDSVAULT_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
}

// RateLimitConfig drives the per-IP token bucket applied to the whole API.
type RateLimitConfig struct {
	Enabled bool          `envconfig:"ODDSVAULT_RATE_LIMIT_ENABLED" default:"true"`
	RPS     float64       `envconfig:"ODDSVAULT_RATE_LIMIT_RPS" default:"10"`
	Burst   int           `envconfig:"ODDSVAULT_RATE_LIMIT_BURST" default:"30"`
	TTL     time.Duration `envconfig:"ODDSVAULT_RATE_LIMIT_VISITOR_TTL" default:"3m"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"ODDSVAULT_CORS_ALLOWED_ORIGINS" default:"http://localhost:3000"`
}

type FeatureFlagsConfig struct {
	UseSQLite          bool `envconfig:"ODDSVAULT_USE_SQLITE" default:"false"`
	AutoMigrate        bool `envconfig:"ODDSVAULT_AUTO_MIGRATE" default:"false"`
	SimulatedCheckout  bool `envconfig:"ODDSVAULT_FEATURE_SIMULATED_CHECKOUT" default:"false"`
	ImporterNotifySubs bool `envconfig:"ODDSVAULT_FEATURE_IMPORTER_NOTIFY" default:"true"`
}

type EventingConfig struct {
	OutboxIdempotencyTTL time.Duration `envconfig:"ODDSVAULT_EVENTING_IDEMPOTENCY_TTL" default:"720h"`
}

type GCPConfig struct {
	ProjectID              string `envconfig:"ODDSVAULT_GCP_PROJECT_ID"`
	ApplicationCredentials string `envconfig:"ODDSVAULT_GOOGLE_APPLICATION_CREDENTIALS"`
}

type PubSubConfig struct {
	NotificationTopic        string `envconfig:"ODDSVAULT_PUBSUB_NOTIFICATION_TOPIC" default:"ov-notification-events"`
	NotificationSubscription string `envconfig:"ODDSVAULT_PUBSUB_NOTIFICATION_SUBSCRIPTION" default:"ov-notification-worker"`
	DomainTopic              string `envconfig:"ODDSVAULT_PUBSUB_DOMAIN_TOPIC" default:"ov-domain-events"`
	DomainSubscription       string `envconfig:"ODDSVAULT_PUBSUB_DOMAIN_SUBSCRIPTION" default:"ov-domain-worker"`
}

type OutboxConfig struct {
	BatchSize      int           `envconfig:"ODDSVAULT_OUTBOX_PUBLISH_BATCH_SIZE" default:"50"`
	PollIntervalMS int           `envconfig:"ODDSVAULT_OUTBOX_PUBLISH_POLL_MS" default:"500"`
	MaxAttempts    int           `envconfig:"ODDSVAULT_OUTBOX_MAX_ATTEMPTS" default:"10"`
	BackoffBase    time.Duration `envconfig:"ODDSVAULT_OUTBOX_BACKOFF_BASE" default:"2s"`
	BackoffMax     time.Duration `envconfig:"ODDSVAULT_OUTBOX_BACKOFF_MAX" default:"5m"`
}

// SportsDataConfig points at an API-Football compatible provider.
type SportsDataConfig struct {
	BaseURL  string        `envconfig:"ODDSVAULT_SPORTS_API_BASE_URL" default:"https://v3.football.api-sports.io"`
	APIKey   string        `envconfig:"ODDSVAULT_SPORTS_API_KEY"`
	Timeout  time.Duration `envconfig:"ODDSVAULT_SPORTS_API_TIMEOUT" default:"10s"`
	CacheTTL time.Duration `envconfig:"ODDSVAULT_SPORTS_API_CACHE_TTL" default:"10m"`
}

type ImporterConfig struct {
	MaxFixtures          int `envconfig:"ODDSVAULT_IMPORTER_MAX_FIXTURES" default:"50"`
	DefaultMinConfidence int `envconfig:"ODDSVAULT_IMPORTER_DEFAULT_MIN_CONFIDENCE" default:"70"`
}

type SubscriptionConfig struct {
	HomeCountry                   string `envconfig:"ODDSVAULT_HOME_COUNTRY" default:"Nigeria"`
	DefaultActivationDurationDays int    `envconfig:"ODDSVAULT_ACTIVATION_DURATION_DAYS" default:"30"`
}

type SMTPConfig struct {
	Host     string `envconfig:"ODDSVAULT_SMTP_HOST"`
	Port     int    `envconfig:"ODDSVAULT_SMTP_PORT" default:"587"`
	Username string `envconfig:"ODDSVAULT_SMTP_USERNAME"`
	Password string `envconfig:"ODDSVAULT_SMTP_PASSWORD"`
	From     string `envconfig:"ODDSVAULT_SMTP_FROM" default:"no-reply@oddsvault.app"`
	FromName string `envconfig:"ODDSVAULT_SMTP_FROM_NAME" default:"OddsVault"`
}

// Enabled reports whether SMTP delivery is configured.
func (s SMTPConfig) Enabled() bool {
	return strings.TrimSpace(s.Host) != ""
}

type TelegramConfig struct {
	BotToken    string `envconfig:"ODDSVAULT_TELEGRAM_BOT_TOKEN"`
	AdminChatID int64  `envconfig:"ODDSVAULT_TELEGRAM_ADMIN_CHAT_ID"`
}

func (t TelegramConfig) Enabled() bool {
	return strings.TrimSpace(t.BotToken) != "" && t.AdminChatID != 0
}

// CronConfig drives cmd/cron-worker. Tick is how often due jobs are checked;
// each job then runs on its own cadence.
type CronConfig struct {
	Tick                      time.Duration `envconfig:"ODDSVAULT_CRON_TICK" default:"1m"`
	ExpiryEvery               time.Duration `envconfig:"ODDSVAULT_CRON_EXPIRY_EVERY" default:"15m"`
	CleanupEvery              time.Duration `envconfig:"ODDSVAULT_CRON_CLEANUP_EVERY" default:"24h"`
	LockTTL                   time.Duration `envconfig:"ODDSVAULT_CRON_LOCK_TTL" default:"10m"`
	NotificationRetentionDays int           `envconfig:"ODDSVAULT_NOTIFICATION_RETENTION_DAYS" default:"30"`
	OutboxRetentionDays       int           `envconfig:"ODDSVAULT_OUTBOX_RETENTION_DAYS" default:"14"`
}

type ChatConfig struct {
	WriteWait       time.Duration `envconfig:"ODDSVAULT_CHAT_WRITE_WAIT" default:"10s"`
	PongWait        time.Duration `envconfig:"ODDSVAULT_CHAT_PONG_WAIT" default:"60s"`
	MaxMessageBytes int64         `envconfig:"ODDSVAULT_CHAT_MAX_MESSAGE_BYTES" default:"4096"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
