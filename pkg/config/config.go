package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
	"github.com/shopspring/decimal"
)

type Config struct {
	App           AppConfig
	Service       ServiceConfig
	DB            DBConfig
	Redis         RedisConfig
	JWT           JWTConfig
	Password      PasswordConfig
	OTP           OTPConfig
	AuthRateLimit AuthRateLimitConfig
	Payments      PaymentsConfig
	Notifications NotificationsConfig
	Cron          CronConfig
	FeatureFlags  FeatureFlagsConfig
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
	Env          string `envconfig:"RECHARGEHUB_APP_ENV" required:"true"`
	Port         string `envconfig:"RECHARGEHUB_APP_PORT" required:"true"`
	LogLevel     string `envconfig:"RECHARGEHUB_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"RECHARGEHUB_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

type ServiceConfig struct {
	Kind string `envconfig:"RECHARGEHUB_SERVICE_KIND" default:"api"`
}

type DBConfig struct {
	DSN    string `envconfig:"RECHARGEHUB_DB_DSN"`
	Driver string `envconfig:"RECHARGEHUB_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"RECHARGEHUB_DB_HOST"`
	LegacyPort     int    `envconfig:"RECHARGEHUB_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"RECHARGEHUB_DB_USER"`
	LegacyPassword string `envconfig:"RECHARGEHUB_DB_PASSWORD"`
	LegacyName     string `envconfig:"RECHARGEHUB_DB_NAME"`
	LegacySSLMode  string `envconfig:"RECHARGEHUB_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"RECHARGEHUB_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"RECHARGEHUB_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"RECHARGEHUB_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"RECHARGEHUB_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"RECHARGEHUB_REDIS_URL" required:"true"`
	Address      string        `envconfig:"RECHARGEHUB_REDIS_ADDR"`
	Password     string        `envconfig:"RECHARGEHUB_REDIS_PASSWORD"`
	DB           int           `envconfig:"RECHARGEHUB_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"RECHARGEHUB_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"RECHARGEHUB_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"RECHARGEHUB_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"RECHARGEHUB_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"RECHARGEHUB_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type JWTConfig struct {
	Secret                 string `envconfig:"RECHARGEHUB_JWT_SECRET" required:"true"`
	Issuer                 string `envconfig:"RECHARGEHUB_JWT_ISSUER" required:"true"`
	ExpirationMinutes      int    `envconfig:"RECHARGEHUB_JWT_EXPIRATION_MINUTES" required:"true"`
	RefreshTokenTTLMinutes int    `envconfig:"RECHARGEHUB_REFRESH_TOKEN_TTL_MINUTES" default:"43200"`
}

// RefreshTokenTTL returns the refresh token TTL configured in minutes.
func (j JWTConfig) RefreshTokenTTL() time.Duration {
	if j.RefreshTokenTTLMinutes <= 0 {
		return 0
	}
	return time.Duration(j.RefreshTokenTTLMinutes) * time.Minute
}

type PasswordConfig struct {
	ArgonMemoryKB    int `envconfig:"RECHARGEHUB_ARGON_MEMORY_KB" default:"65536"`
	ArgonTime        int `envconfig:"RECHARGEHUB_ARGON_TIME" default:"3"`
	ArgonParallelism int `envconfig:"RECHARGEHUB_ARGON_PARALLELISM" default:"2"`
	ArgonSaltLen     int `envconfig:"RECHARGEHUB_ARGON_SALT_LEN" default:"16"`
	ArgonKeyLen      int `envconfig:"RECHARGEHUB_ARGON_KEY_LEN" default:"32"`
}

type OTPConfig struct {
	TTL             time.Duration `envconfig:"RECHARGEHUB_OTP_TTL" default:"1m"`
	CooldownSeconds int           `envconfig:"RECHARGEHUB_OTP_COOLDOWN_SECONDS" default:"120"`
	Digits          int           `envconfig:"RECHARGEHUB_OTP_DIGITS" default:"6"`
	// ExposeCode echoes generated codes in API responses. Dev only.
	ExposeCode bool `envconfig:"RECHARGEHUB_OTP_EXPOSE_CODE" default:"false"`
}

// Cooldown returns the minimum gap between OTP requests for one phone number.
func (o OTPConfig) Cooldown() time.Duration {
	if o.CooldownSeconds <= 0 {
		return 0
	}
	return time.Duration(o.CooldownSeconds) * time.Second
}

type AuthRateLimitConfig struct {
	LoginWindow        time.Duration `envconfig:"RECHARGEHUB_AUTH_RATE_LIMIT_LOGIN_WINDOW" default:"1m"`
	LoginEmailLimit    int           `envconfig:"RECHARGEHUB_AUTH_RATE_LIMIT_LOGIN_EMAIL_LIMIT" default:"5"`
	LoginIPLimit       int           `envconfig:"RECHARGEHUB_AUTH_RATE_LIMIT_LOGIN_IP_LIMIT" default:"20"`
	RegisterWindow     time.Duration `envconfig:"RECHARGEHUB_AUTH_RATE_LIMIT_REGISTER_WINDOW" default:"5m"`
	RegisterEmailLimit int           `envconfig:"RECHARGEHUB_AUTH_RATE_LIMIT_REGISTER_EMAIL_LIMIT" default:"3"`
	RegisterIPLimit    int           `envconfig:"RECHARGEHUB_AUTH_RATE_LIMIT_REGISTER_IP_LIMIT" default:"20"`
	OTPWindow          time.Duration `envconfig:"RECHARGEHUB_AUTH_RATE_LIMIT_OTP_WINDOW" default:"5m"`
	OTPPhoneLimit      int           `envconfig:"RECHARGEHUB_AUTH_RATE_LIMIT_OTP_PHONE_LIMIT" default:"5"`
	OTPIPLimit         int           `envconfig:"RECHARGEHUB_AUTH_RATE_LIMIT_OTP_IP_LIMIT" default:"20"`
}

type PaymentsConfig struct {
	GatewayKeyID     string `envconfig:"RECHARGEHUB_PAYMENT_GATEWAY_KEY_ID"`
	GatewayKeySecret string `envconfig:"RECHARGEHUB_PAYMENT_GATEWAY_KEY_SECRET"`
	Currency         string `envconfig:"RECHARGEHUB_PAYMENT_CURRENCY" default:"INR"`
	// PlatformUserID identifies the admin account whose wallet receives
	// settled gateway payments.
	PlatformUserID string `envconfig:"RECHARGEHUB_PAYMENT_PLATFORM_USER_ID"`
	// SuccessRate and RetrySuccessRate drive the simulated recharge
	// processor (percent chance of success).
	SuccessRate      int `envconfig:"RECHARGEHUB_PAYMENT_SIM_SUCCESS_RATE" default:"80"`
	RetrySuccessRate int `envconfig:"RECHARGEHUB_PAYMENT_SIM_RETRY_SUCCESS_RATE" default:"70"`
}

type NotificationsConfig struct {
	// Defaults seeded into the settings row on first boot; runtime values
	// live in the database and are passed to the dispatcher explicitly.
	DefaultInApp bool `envconfig:"RECHARGEHUB_NOTIFY_DEFAULT_IN_APP" default:"true"`
	DefaultEmail bool `envconfig:"RECHARGEHUB_NOTIFY_DEFAULT_EMAIL" default:"false"`
	DefaultSMS   bool `envconfig:"RECHARGEHUB_NOTIFY_DEFAULT_SMS" default:"false"`

	LowBalanceThreshold string `envconfig:"RECHARGEHUB_LOW_BALANCE_THRESHOLD" default:"10000"`

	RetentionDays int `envconfig:"RECHARGEHUB_NOTIFY_RETENTION_DAYS" default:"30"`
}

// LowBalanceThresholdAmount parses the configured default threshold.
func (n NotificationsConfig) LowBalanceThresholdAmount() (decimal.Decimal, error) {
	return decimal.NewFromString(n.LowBalanceThreshold)
}

type CronConfig struct {
	Interval time.Duration `envconfig:"RECHARGEHUB_CRON_INTERVAL" default:"1h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"RECHARGEHUB_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"RECHARGEHUB_AUTO_MIGRATE" default:"false"`
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
