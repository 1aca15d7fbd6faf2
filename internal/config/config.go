package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration.
type Config struct {
	AppName     string
	AppVersion  string
	Environment string
	HTTPAddr    string
	StaticDir   string

	Observability ObservabilityConfig

	Stripe    StripeConfig
	Charge    ChargeConfig
	Invoice   InvoiceConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig

	DatabaseURL       string
	DBType            string
	DBHost            string
	DBPort            string
	DBName            string
	DBUser            string
	DBPassword        string
	DBSSLMode         string
	DBMaxIdleConn     int
	DBMaxOpenConn     int
	DBConnMaxLifetime int
	DBConnMaxIdleTime int
}

// ObservabilityConfig carries the logging and OTLP exporter settings.
type ObservabilityConfig struct {
	LogLevel      string
	LogFormat     string
	OtelEnabled   bool
	OtelEndpoint  string
	OtelProtocol  string
	SamplingRatio float64
}

type StripeConfig struct {
	SecretKey         string
	PublishableKey    string
	WebhookSecret     string
	APIBaseURL        string
	Timeout           time.Duration
	MaxNetworkRetries int64
}

// HasWebhookSecret reports whether webhook deliveries are verified.
func (c StripeConfig) HasWebhookSecret() bool {
	return strings.TrimSpace(c.WebhookSecret) != ""
}

type ChargeConfig struct {
	IdempotencyWindow time.Duration
	PolicyFile        string
}

type InvoiceConfig struct {
	DaysUntilDue int64
	Description  string
}

type RateLimitConfig struct {
	Enabled     bool
	ChargeRate  float64
	ChargeBurst int
	LockTTL     time.Duration
}

type RedisConfig struct {
	Addr         string
	Password     string
	DB           int
	HistoryTTL   time.Duration
	CacheEnabled bool
}

// Enabled reports whether a redis address is configured.
func (c RedisConfig) Enabled() bool {
	return strings.TrimSpace(c.Addr) != ""
}

// Load loads configuration from environment variables and .env file.
func Load() Config {
	_ = godotenv.Load()

	cfg := Config{
		AppName:     getenv("APP_SERVICE", "offsession"),
		AppVersion:  getenv("SERVICE_VERSION", getenv("APP_VERSION", "0.1.0")),
		Environment: getenv("DEPLOYMENT_ENV", getenv("ENVIRONMENT", "development")),
		HTTPAddr:    getenv("HTTP_ADDR", ":4242"),
		StaticDir:   strings.TrimSpace(getenv("STATIC_DIR", "")),
		Observability: ObservabilityConfig{
			LogLevel:      strings.ToLower(strings.TrimSpace(getenv("LOG_LEVEL", "info"))),
			LogFormat:     strings.ToLower(strings.TrimSpace(getenv("LOG_FORMAT", "json"))),
			OtelEnabled:   getenvBool("OTEL_ENABLED", false),
			OtelEndpoint:  strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_ENDPOINT", getenv("OTLP_ENDPOINT", "localhost:4317"))),
			OtelProtocol:  strings.ToLower(strings.TrimSpace(getenv("OTEL_EXPORTER_OTLP_TRACES_PROTOCOL", getenv("OTEL_EXPORTER_OTLP_PROTOCOL", "grpc")))),
			SamplingRatio: getenvFloat("OTEL_SAMPLING_RATIO", 0.1),
		},
		Stripe: StripeConfig{
			SecretKey:         strings.TrimSpace(getenv("STRIPE_SECRET_KEY", "")),
			PublishableKey:    strings.TrimSpace(getenv("STRIPE_PUBLISHABLE_KEY", "")),
			WebhookSecret:     strings.TrimSpace(getenv("STRIPE_WEBHOOK_SECRET", "")),
			APIBaseURL:        strings.TrimSpace(getenv("STRIPE_API_BASE_URL", "")),
			Timeout:           getenvDuration("STRIPE_TIMEOUT", 15*time.Second),
			MaxNetworkRetries: getenvInt64("STRIPE_MAX_NETWORK_RETRIES", 2),
		},
		Charge: ChargeConfig{
			IdempotencyWindow: getenvDuration("CHARGE_IDEMPOTENCY_WINDOW", time.Minute),
			PolicyFile:        strings.TrimSpace(getenv("CHARGE_POLICY_FILE", "")),
		},
		Invoice: InvoiceConfig{
			DaysUntilDue: getenvInt64("INVOICE_DAYS_UNTIL_DUE", 30),
			Description:  getenv("INVOICE_ITEM_DESCRIPTION", "One-time payment charge"),
		},
		RateLimit: RateLimitConfig{
			Enabled:     getenvBool("RATE_LIMIT_ENABLED", false),
			ChargeRate:  getenvFloat("RATE_LIMIT_CHARGE_RATE", 0.2),
			ChargeBurst: getenvInt("RATE_LIMIT_CHARGE_BURST", 3),
			LockTTL:     getenvDuration("WEBHOOK_LOCK_TTL", 30*time.Second),
		},
		Redis: RedisConfig{
			Addr:         strings.TrimSpace(getenv("REDIS_ADDR", "")),
			Password:     strings.TrimSpace(getenv("REDIS_PASSWORD", "")),
			DB:           getenvInt("REDIS_DB", 0),
			HistoryTTL:   getenvDuration("HISTORY_CACHE_TTL", 15*time.Second),
			CacheEnabled: getenvBool("HISTORY_CACHE_ENABLED", true),
		},
		DatabaseURL:       strings.TrimSpace(getenv("DATABASE_URL", "")),
		DBType:            getenv("DATABASE_TYPE", "postgres"),
		DBHost:            getenv("DATABASE_HOST", "localhost"),
		DBPort:            getenv("DATABASE_PORT", "5432"),
		DBName:            getenv("DATABASE_NAME", "offsession"),
		DBUser:            getenv("DATABASE_USER", "postgres"),
		DBPassword:        getenv("DATABASE_PASSWORD", ""),
		DBSSLMode:         getenv("DATABASE_SSLMODE", "disable"),
		DBMaxIdleConn:     getenvInt("DATABASE_MAX_IDLE_CONN", 5),
		DBMaxOpenConn:     getenvInt("DATABASE_MAX_OPEN_CONN", 20),
		DBConnMaxLifetime: getenvInt("DATABASE_CONN_MAX_LIFETIME", 300),
		DBConnMaxIdleTime: getenvInt("DATABASE_CONN_MAX_IDLE_TIME", 60),
	}

	return cfg
}

func (c Config) IsProduction() bool {
	return strings.EqualFold(strings.TrimSpace(c.Environment), "production")
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getenvBool(key string, def bool) bool {
	value := strings.ToLower(strings.TrimSpace(os.Getenv(key)))
	if value == "" {
		return def
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return def
	}
}

func getenvInt(key string, def int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return def
	}
	return parsed
}

func getenvInt64(key string, def int64) int64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvFloat(key string, def float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return def
	}
	return parsed
}

func getenvDuration(key string, def time.Duration) time.Duration {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return def
	}
	parsed, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return parsed
}
