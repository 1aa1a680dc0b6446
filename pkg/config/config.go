package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/wardenhq/warden/pkg/cache"
	"github.com/wardenhq/warden/pkg/observability"
)

// Config holds all application configuration
type Config struct {
	// Server configuration
	Server ServerConfig

	// Token configuration
	Token TokenConfig

	// Captcha configuration
	Captcha CaptchaConfig

	// Shared cache (Redis)
	Redis cache.Config

	// PostgreSQL user directory
	PostgresURL string

	// RootRole is the role code that bypasses permission and data scope
	// checks
	RootRole string

	// Observability configuration
	Observability ObservabilityConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration

	// Health/metrics server (separate port for k8s probes)
	HealthPort string
}

// TokenConfig holds JWT settings
type TokenConfig struct {
	Secret string
	Issuer string
	// AccessTTL is the access token lifetime. -1 disables access token
	// expiry.
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

// CaptchaConfig holds login captcha settings
type CaptchaConfig struct {
	TTL    time.Duration
	Length int
	Driver string // "math" or "string"
}

// ObservabilityConfig holds observability settings
type ObservabilityConfig struct {
	LogLevel       observability.LogLevel
	MetricsEnabled bool
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:            getEnv("WARDEN_HOST", "0.0.0.0"),
			Port:            getEnv("WARDEN_PORT", "8080"),
			ReadTimeout:     getEnvDuration("WARDEN_READ_TIMEOUT", 15*time.Second),
			WriteTimeout:    getEnvDuration("WARDEN_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getEnvDuration("WARDEN_IDLE_TIMEOUT", 60*time.Second),
			ShutdownTimeout: getEnvDuration("WARDEN_SHUTDOWN_TIMEOUT", 30*time.Second),
			HealthPort:      getEnv("WARDEN_HEALTH_PORT", "9090"),
		},
		Token: TokenConfig{
			Secret:     getEnv("WARDEN_JWT_SECRET", ""),
			Issuer:     getEnv("WARDEN_JWT_ISSUER", "warden"),
			AccessTTL:  getEnvSeconds("WARDEN_ACCESS_TOKEN_TTL", 30*time.Minute),
			RefreshTTL: getEnvSeconds("WARDEN_REFRESH_TOKEN_TTL", 24*time.Hour),
		},
		Captcha: CaptchaConfig{
			TTL:    getEnvSeconds("WARDEN_CAPTCHA_TTL", 2*time.Minute),
			Length: getEnvInt("WARDEN_CAPTCHA_LENGTH", 4),
			Driver: getEnv("WARDEN_CAPTCHA_DRIVER", "math"),
		},
		Redis: cache.Config{
			URL:        getEnv("WARDEN_REDIS_URL", "redis://localhost:6379"),
			Password:   getEnv("WARDEN_REDIS_PASSWORD", ""),
			DB:         getEnvInt("WARDEN_REDIS_DB", 0),
			MaxRetries: getEnvInt("WARDEN_REDIS_MAX_RETRIES", 3),
			PoolSize:   getEnvInt("WARDEN_REDIS_POOL_SIZE", 10),
		},
		PostgresURL: getEnv("WARDEN_POSTGRES_URL", ""),
		RootRole:    getEnv("WARDEN_ROOT_ROLE", "ROOT"),
		Observability: ObservabilityConfig{
			LogLevel:       parseLogLevel(getEnv("WARDEN_LOG_LEVEL", "info")),
			MetricsEnabled: getEnvBool("WARDEN_METRICS_ENABLED", true),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("server port is required")
	}
	if c.Server.HealthPort == "" {
		return fmt.Errorf("health port is required")
	}
	if c.Server.Port == c.Server.HealthPort {
		return fmt.Errorf("server port and health port must be different")
	}

	if c.Token.Secret == "" {
		return fmt.Errorf("WARDEN_JWT_SECRET is required")
	}
	if len(c.Token.Secret) < 32 {
		return fmt.Errorf("WARDEN_JWT_SECRET must be at least 32 bytes")
	}
	if c.Token.RefreshTTL <= 0 {
		return fmt.Errorf("refresh token TTL must be positive")
	}

	switch c.Captcha.Driver {
	case "math", "string":
	default:
		return fmt.Errorf("invalid captcha driver: %s (must be math or string)", c.Captcha.Driver)
	}

	if c.PostgresURL == "" {
		return fmt.Errorf("WARDEN_POSTGRES_URL is required")
	}
	if c.Redis.URL == "" {
		return fmt.Errorf("WARDEN_REDIS_URL is required")
	}

	return nil
}

// parseLogLevel parses a log level string
func parseLogLevel(level string) observability.LogLevel {
	switch strings.ToLower(level) {
	case "debug":
		return observability.DebugLevel
	case "info":
		return observability.InfoLevel
	case "warn", "warning":
		return observability.WarnLevel
	case "error":
		return observability.ErrorLevel
	default:
		return observability.InfoLevel
	}
}

// getEnv returns an environment variable value or a default
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvBool returns a boolean environment variable or a default
func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return strings.ToLower(value) == "true" || value == "1"
	}
	return defaultValue
}

// getEnvInt returns an integer environment variable or a default
func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// getEnvSeconds returns a duration environment variable expressed in whole
// seconds, or a default. -1 maps to a negative duration, meaning "never
// expires" for token TTLs.
func getEnvSeconds(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			if parsed < 0 {
				return -1
			}
			return time.Duration(parsed) * time.Second
		}
	}
	return defaultValue
}

// getEnvDuration returns a duration environment variable or a default
func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
