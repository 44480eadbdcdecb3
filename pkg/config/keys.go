package config

const (
	EnvPrefix = "ODDSVAULT"

	AppEnvDev  = "dev"
	AppEnvProd = "prod"

	EnvAppEnv                  = "ODDSVAULT_APP_ENV"
	EnvPort                    = "ODDSVAULT_APP_PORT"
	EnvDBDSN                   = "ODDSVAULT_DB_DSN"
	EnvDBHost                  = "ODDSVAULT_DB_HOST"
	EnvDBUser                  = "ODDSVAULT_DB_USER"
	EnvDBName                  = "ODDSVAULT_DB_NAME"
	EnvRedisURL                = "ODDSVAULT_REDIS_URL"
	EnvJWTSecret               = "ODDSVAULT_JWT_SECRET"
	EnvJWTIssuer               = "ODDSVAULT_JWT_ISSUER"
	EnvJWTExpMins              = "ODDSVAULT_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes  = "ODDSVAULT_REFRESH_TOKEN_TTL_MINUTES"
	EnvSportsAPIKey            = "ODDSVAULT_SPORTS_API_KEY"
	EnvHomeCountry             = "ODDSVAULT_HOME_COUNTRY"
	EnvImporterMaxFixtures     = "ODDSVAULT_IMPORTER_MAX_FIXTURES"
	EnvPubSubNotificationTopic = "ODDSVAULT_PUBSUB_NOTIFICATION_TOPIC"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
