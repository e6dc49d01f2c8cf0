package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
// Values are loaded from environment variables with sensible defaults.
type Config struct {
	// Server
	Port     int    `validate:"min=1,max=65535"`
	LogLevel string `validate:"oneof=debug info warn error"`

	// DataPay backend
	DataPayAPIURL string `validate:"required,url"`
	BackendToken  string

	// HTTP client
	HTTPTimeout time.Duration `validate:"gt=0"`

	// Resilience
	MaxRetries     int           `validate:"min=0"`
	InitialBackoff time.Duration `validate:"gt=0"`
	MaxConcurrency int           `validate:"min=1"`
	SyncTimeout    time.Duration `validate:"gt=0"`

	// Cache
	CacheTTL time.Duration `validate:"gt=0"`

	// Observability
	OTLPEndpoint string // empty disables tracing export

	// Session store
	SessionStore string        `validate:"oneof=memory file redis"`
	SessionDir   string        `validate:"required_if=SessionStore file"`
	RedisURL     string        `validate:"required_if=SessionStore redis"`
	SessionTTL   time.Duration `validate:"min=0"`

	// Wizards
	WizardSecret  string        `validate:"required,min=16"`
	WizardTTL     time.Duration `validate:"gt=0"`
	WizardMax     int           `validate:"min=1"`
	LocalFallback bool

	// Rate limiting
	RateLimitRPS   float64 `validate:"gt=0"`
	RateLimitBurst int     `validate:"min=1"`
}

// Load reads configuration from environment variables with defaults.
func Load() *Config {
	return &Config{
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "info"),

		DataPayAPIURL: getEnv("DATAPAY_API_URL", "https://api-dev.orcamentaria.com/api/v1"),
		BackendToken:  getEnv("BACKEND_TOKEN", ""),

		HTTPTimeout: getEnvDuration("HTTP_TIMEOUT", 10*time.Second),

		MaxRetries:     getEnvInt("MAX_RETRIES", 3),
		InitialBackoff: getEnvDuration("INITIAL_BACKOFF", 100*time.Millisecond),
		MaxConcurrency: getEnvInt("MAX_CONCURRENCY", 50),
		SyncTimeout:    getEnvDuration("SYNC_TIMEOUT", 5*time.Second),

		CacheTTL: getEnvDuration("CACHE_TTL", 5*time.Minute),

		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),

		SessionStore: getEnv("SESSION_STORE", "memory"),
		SessionDir:   getEnv("SESSION_DIR", "./.datapay"),
		RedisURL:     getEnv("REDIS_URL", ""),
		SessionTTL:   getEnvDuration("SESSION_TTL", 24*time.Hour),

		WizardSecret:  getEnv("WIZARD_SECRET", ""),
		WizardTTL:     getEnvDuration("WIZARD_TTL", 30*time.Minute),
		WizardMax:     getEnvInt("WIZARD_MAX", 10000),
		LocalFallback: getEnvBool("LOCAL_FALLBACK", true),

		RateLimitRPS:   getEnvFloat("RATE_LIMIT_RPS", 1),
		RateLimitBurst: getEnvInt("RATE_LIMIT_BURST", 10),
	}
}

// Validate checks the loaded values before the server wires anything.
func (c *Config) Validate() error {
	if err := validator.New().Struct(c); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}
	return nil
}

// LoadDotEnv reads a .env file into the environment.
// Existing env vars take precedence over the file.
func LoadDotEnv(path string) error {
	return godotenv.Load(path)
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
