// Package observability provides structured logging, Prometheus metrics,
// health checks and graceful shutdown for the warden service.
//
// The Logger wraps stdlib slog with a JSON handler and supports contextual
// fields via WithField/WithFields/WithError. Request-scoped loggers are
// carried in the request context and retrieved with FromContext, which
// automatically attaches the request ID.
//
// Metrics are registered against an explicit *prometheus.Registry passed in
// by the caller so tests can use isolated registries.
package observability
