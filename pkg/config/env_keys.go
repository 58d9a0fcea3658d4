package config

// EnvPrefix scopes every environment variable read by Load.
const EnvPrefix = "RECHARGEHUB"

const (
	AppEnvDev  = "dev"
	AppEnvProd = "prod"
)

const (
	EnvAppEnv = "RECHARGEHUB_APP_ENV"
	EnvPort   = "RECHARGEHUB_APP_PORT"

	EnvDBDSN  = "RECHARGEHUB_DB_DSN"
	EnvDBHost = "RECHARGEHUB_DB_HOST"
	EnvDBUser = "RECHARGEHUB_DB_USER"
	EnvDBName = "RECHARGEHUB_DB_NAME"

	EnvRedisURL = "RECHARGEHUB_REDIS_URL"

	EnvJWTSecret              = "RECHARGEHUB_JWT_SECRET"
	EnvJWTIssuer              = "RECHARGEHUB_JWT_ISSUER"
	EnvJWTExpMins             = "RECHARGEHUB_JWT_EXPIRATION_MINUTES"
	EnvRefreshTokenTTLMinutes = "RECHARGEHUB_REFRESH_TOKEN_TTL_MINUTES"
)

var legacyDBEnvVars = []string{EnvDBHost, EnvDBUser, EnvDBName}
