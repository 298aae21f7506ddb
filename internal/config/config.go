package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config aggregates runtime configuration for the service.
type Config struct {
	App          AppConfig
	Postgres     PostgresConfig
	Redis        RedisConfig
	Logger       LoggerConfig
	Identity     IdentityConfig
	Stripe       StripeConfig
	Reconcile    ReconcileConfig
	Onboarding   OnboardingConfig
	Notification NotificationConfig
}

// AppConfig controls server level behavior.
type AppConfig struct {
	Name                  string
	Env                   string
	Host                  string
	Port                  string
	Version               string
	RequestTimeoutSeconds int
}

// PostgresConfig holds DB connection values.
type PostgresConfig struct {
	DSN            string
	MaxConns       int32
	MinConns       int32
	RunMigrations  bool
	ConnMaxIdleSec int32
	ConnMaxLifeSec int32
}

// RedisConfig holds Redis connection values.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// LoggerConfig configures logging behavior.
type LoggerConfig struct {
	Level string
}

// IdentityConfig defines bearer-token verification parameters. Token
// issuance lives in the platform's auth service; this service only
// verifies tokens and reads identity claims.
type IdentityConfig struct {
	JWTSecret string
}

// StripeConfig holds payment-processor credentials and the URLs the
// hosted onboarding flow bounces back to.
type StripeConfig struct {
	SecretKey            string
	OnboardingReturnURL  string
	OnboardingRefreshURL string
}

// ReconcileConfig tunes activation status polling.
type ReconcileConfig struct {
	PollIntervalSeconds  int
	WatchDeadlineSeconds int
	SweepSpec            string
}

// OnboardingConfig tunes draft-session storage.
type OnboardingConfig struct {
	DraftTTLMinutes int
}

// NotificationConfig holds stub notification endpoints.
type NotificationConfig struct {
	EmailFrom  string
	WebhookURL string
}

// Load reads configuration from environment variables, applying defaults where possible.
func Load() (*Config, error) {
	_ = godotenv.Load()

	redisDB, err := strconv.Atoi(getEnv("REDIS_DB", "0"))
	if err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	maxConns := int32(getEnvAsInt("POSTGRES_MAX_CONNS", 10))
	minConns := int32(getEnvAsInt("POSTGRES_MIN_CONNS", 2))
	runMigrations := getEnvAsBool("POSTGRES_RUN_MIGRATIONS", true)
	connMaxIdle := int32(getEnvAsInt("POSTGRES_CONN_MAX_IDLE_SECONDS", 30))
	connMaxLife := int32(getEnvAsInt("POSTGRES_CONN_MAX_LIFE_SECONDS", 300))

	cfg := &Config{
		App: AppConfig{
			Name:                  getEnv("APP_NAME", "creator-service"),
			Env:                   getEnv("APP_ENV", "development"),
			Host:                  getEnv("APP_HOST", "0.0.0.0"),
			Port:                  getEnv("APP_PORT", "8080"),
			Version:               getEnv("APP_VERSION", "dev"),
			RequestTimeoutSeconds: getEnvAsInt("HTTP_REQUEST_TIMEOUT_SECONDS", 30),
		},
		Postgres: PostgresConfig{
			DSN:            os.Getenv("POSTGRES_DSN"),
			MaxConns:       maxConns,
			MinConns:       minConns,
			RunMigrations:  runMigrations,
			ConnMaxIdleSec: connMaxIdle,
			ConnMaxLifeSec: connMaxLife,
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       redisDB,
		},
		Logger: LoggerConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
		Identity: IdentityConfig{
			JWTSecret: getEnv("IDENTITY_JWT_SECRET", "dev-secret"),
		},
		Stripe: StripeConfig{
			SecretKey:            os.Getenv("STRIPE_SECRET_KEY"),
			OnboardingReturnURL:  getEnv("STRIPE_ONBOARDING_RETURN_URL", "http://localhost:3000/activation/return"),
			OnboardingRefreshURL: getEnv("STRIPE_ONBOARDING_REFRESH_URL", "http://localhost:3000/activation/refresh"),
		},
		Reconcile: ReconcileConfig{
			PollIntervalSeconds:  getEnvAsInt("RECONCILE_POLL_INTERVAL_SECONDS", 10),
			WatchDeadlineSeconds: getEnvAsInt("RECONCILE_WATCH_DEADLINE_SECONDS", 900),
			SweepSpec:            getEnv("RECONCILE_SWEEP_SPEC", "@every 5m"),
		},
		Onboarding: OnboardingConfig{
			DraftTTLMinutes: getEnvAsInt("ONBOARDING_DRAFT_TTL_MINUTES", 720),
		},
		Notification: NotificationConfig{
			EmailFrom:  getEnv("NOTIFY_EMAIL_FROM", "noreply@example.com"),
			WebhookURL: getEnv("NOTIFY_WEBHOOK_URL", ""),
		},
	}

	return cfg, nil
}

// Addr returns the HTTP bind address.
func (a AppConfig) Addr() string {
	return fmt.Sprintf("%s:%s", a.Host, a.Port)
}

// RequestTimeout returns the configured request timeout duration.
func (a AppConfig) RequestTimeout() time.Duration {
	if a.RequestTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(a.RequestTimeoutSeconds) * time.Second
}

// PollInterval returns the delay between reconcile polls.
func (r ReconcileConfig) PollInterval() time.Duration {
	if r.PollIntervalSeconds <= 0 {
		return 10 * time.Second
	}
	return time.Duration(r.PollIntervalSeconds) * time.Second
}

// WatchDeadline returns the ceiling for one watch loop.
func (r ReconcileConfig) WatchDeadline() time.Duration {
	if r.WatchDeadlineSeconds <= 0 {
		return 15 * time.Minute
	}
	return time.Duration(r.WatchDeadlineSeconds) * time.Second
}

// DraftTTL returns how long an abandoned onboarding session survives.
func (o OnboardingConfig) DraftTTL() time.Duration {
	if o.DraftTTLMinutes <= 0 {
		return 12 * time.Hour
	}
	return time.Duration(o.DraftTTLMinutes) * time.Minute
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return fallback
	}
	return parsed
}

func getEnvAsBool(key string, fallback bool) bool {
	val := os.Getenv(key)
	if val == "" {
		return fallback
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return fallback
	}
	return parsed
}
