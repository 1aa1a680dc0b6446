// Package config provides application configuration management from environment variables.
//
// # Overview
//
// This package loads and validates configuration from environment variables with
// sensible defaults for everything except the JWT secret and the Postgres URL.
//
// # Configuration Structure
//
// Server settings:
//
//	WARDEN_HOST="0.0.0.0"
//	WARDEN_PORT="8080"
//	WARDEN_HEALTH_PORT="9090"
//	WARDEN_READ_TIMEOUT="15s"
//	WARDEN_WRITE_TIMEOUT="15s"
//
// Token settings (TTLs are whole seconds; -1 disables access token expiry):
//
//	WARDEN_JWT_SECRET="..."           # required, at least 32 bytes
//	WARDEN_JWT_ISSUER="warden"
//	WARDEN_ACCESS_TOKEN_TTL="1800"
//	WARDEN_REFRESH_TOKEN_TTL="86400"
//
// Captcha settings:
//
//	WARDEN_CAPTCHA_TTL="120"
//	WARDEN_CAPTCHA_LENGTH="4"
//	WARDEN_CAPTCHA_DRIVER="math"  # math, string
//
// Backend settings:
//
//	WARDEN_REDIS_URL="redis://localhost:6379"
//	WARDEN_REDIS_POOL_SIZE="10"
//	WARDEN_POSTGRES_URL="postgres://localhost/warden"  # required
//	WARDEN_ROOT_ROLE="ROOT"
//
// Observability settings:
//
//	WARDEN_LOG_LEVEL="info"  # debug, info, warn, error
//	WARDEN_METRICS_ENABLED="true"
package config
