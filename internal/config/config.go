package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

const (
	defaultAppName        = "WebWallet"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultRateTimeout    = 5 * time.Second
	defaultRateCacheTTL   = 10 * time.Minute
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	RateURL        string
	RateTimeout    time.Duration
	RateCacheTTL   time.Duration
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration
}

// Load reads configuration values from the environment and populates a Config
// instance. Postgres and Redis URLs may be omitted in the development
// environment, where the service falls back to in-memory storage.
func Load() (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		RateURL:        os.Getenv("ECB_RATE_URL"),
		RateTimeout:    defaultRateTimeout,
		RateCacheTTL:   defaultRateCacheTTL,
		ShutdownPeriod: defaultShutdownDelay,
		IdempotencyTTL: defaultIdempotencyTTL,
	}

	durations := []struct {
		envVar string
		target *time.Duration
	}{
		{"RATE_TIMEOUT", &cfg.RateTimeout},
		{"RATE_CACHE_TTL", &cfg.RateCacheTTL},
		{"SHUTDOWN_TIMEOUT", &cfg.ShutdownPeriod},
		{"IDEMPOTENCY_TTL", &cfg.IdempotencyTTL},
	}
	for _, d := range durations {
		if v := os.Getenv(d.envVar); v != "" {
			parsed, err := time.ParseDuration(v)
			if err != nil {
				return Config{}, fmt.Errorf("invalid %s: %w", d.envVar, err)
			}
			*d.target = parsed
		}
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// IsDev reports whether the service runs in a development environment.
func (c Config) IsDev() bool {
	switch c.AppEnv {
	case "dev", "development", "local":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
