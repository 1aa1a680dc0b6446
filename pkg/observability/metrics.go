package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Authentication metrics
	LoginsTotal           *prometheus.CounterVec
	TokenValidationsTotal *prometheus.CounterVec
	TokenRefreshesTotal   *prometheus.CounterVec
	TokensRevokedTotal    prometheus.Counter

	// Captcha metrics
	CaptchaIssuedTotal        prometheus.Counter
	CaptchaVerificationsTotal *prometheus.CounterVec

	// Authorization metrics
	PermissionChecksTotal *prometheus.CounterVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "warden_http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		LoginsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_logins_total",
				Help: "Login attempts by outcome (success, bad_captcha, bad_credentials, error)",
			},
			[]string{"outcome"},
		),
		TokenValidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_token_validations_total",
				Help: "Token validations by outcome (valid, malformed, expired, signature, revoked, wrong_type)",
			},
			[]string{"outcome"},
		),
		TokenRefreshesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_token_refreshes_total",
				Help: "Refresh-token exchanges by outcome",
			},
			[]string{"outcome"},
		),
		TokensRevokedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "warden_tokens_revoked_total",
				Help: "Tokens written to the revocation store",
			},
		),
		CaptchaIssuedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "warden_captcha_issued_total",
				Help: "Captcha challenges issued",
			},
		),
		CaptchaVerificationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_captcha_verifications_total",
				Help: "Captcha verifications by outcome (ok, expired, mismatch)",
			},
			[]string{"outcome"},
		),
		PermissionChecksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "warden_permission_checks_total",
				Help: "Permission checks by outcome (granted, denied, root_bypass)",
			},
			[]string{"outcome"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.LoginsTotal,
		m.TokenValidationsTotal,
		m.TokenRefreshesTotal,
		m.TokensRevokedTotal,
		m.CaptchaIssuedTotal,
		m.CaptchaVerificationsTotal,
		m.PermissionChecksTotal,
	)

	return m
}

// Handler returns an HTTP handler for the /metrics endpoint
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveHTTPRequest records a completed HTTP request
func (m *Metrics) ObserveHTTPRequest(method, path string, status int, duration time.Duration) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, strconv.Itoa(status)).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
}
