package main

import (
	"context"
	"database/sql"
	"net/http"
	"os"

	_ "github.com/lib/pq"
	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/crypto/bcrypt"

	"github.com/wardenhq/warden/pkg/api"
	"github.com/wardenhq/warden/pkg/auth"
	"github.com/wardenhq/warden/pkg/cache"
	"github.com/wardenhq/warden/pkg/captcha"
	"github.com/wardenhq/warden/pkg/config"
	"github.com/wardenhq/warden/pkg/directory"
	"github.com/wardenhq/warden/pkg/observability"
	"github.com/wardenhq/warden/pkg/permission"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		observability.NewLogger(observability.ErrorLevel, os.Stderr).
			WithError(err).Error("failed to load configuration")
		os.Exit(1)
	}

	logger := observability.NewLogger(cfg.Observability.LogLevel, os.Stdout)

	store, err := cache.NewRedis(cfg.Redis)
	if err != nil {
		logger.WithError(err).Error("failed to connect to redis")
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.PostgresURL)
	if err != nil {
		logger.WithError(err).Error("failed to open postgres connection")
		os.Exit(1)
	}
	if err := db.Ping(); err != nil {
		logger.WithError(err).Error("failed to ping postgres")
		os.Exit(1)
	}

	tokens, err := auth.NewManager(auth.Config{
		Secret:     []byte(cfg.Token.Secret),
		Issuer:     cfg.Token.Issuer,
		AccessTTL:  cfg.Token.AccessTTL,
		RefreshTTL: cfg.Token.RefreshTTL,
	}, store)
	if err != nil {
		logger.WithError(err).Error("failed to create token manager")
		os.Exit(1)
	}

	captchaSvc := captcha.NewService(
		captcha.NewDriver(cfg.Captcha.Driver, cfg.Captcha.Length),
		store, cfg.Captcha.TTL)

	users := directory.New(db, func(hashed, plain string) bool {
		return bcrypt.CompareHashAndPassword([]byte(hashed), []byte(plain)) == nil
	})

	service := auth.NewService(captchaSvc, tokens, users, logger)
	resolver := permission.NewResolver(store, cfg.RootRole)

	var metrics *observability.Metrics
	if cfg.Observability.MetricsEnabled {
		metrics = observability.NewMetrics(prometheus.NewRegistry())
	}

	server := api.NewServer(service, tokens, resolver, metrics, logger)

	httpServer := &http.Server{
		Addr:         cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:      server,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Health and metrics on a separate port for probes
	healthChecker := observability.NewHealthChecker(db, store.Client())
	healthMux := http.NewServeMux()
	healthMux.HandleFunc("/healthz", healthChecker.Liveness)
	healthMux.HandleFunc("/readyz", healthChecker.Readiness)
	if metrics != nil {
		healthMux.Handle("/metrics", metrics.Handler())
	}
	healthServer := &http.Server{
		Addr:    cfg.Server.Host + ":" + cfg.Server.HealthPort,
		Handler: healthMux,
	}

	go func() {
		logger.WithField("addr", healthServer.Addr).Info("health server listening")
		if err := healthServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("health server failed")
		}
	}()

	go func() {
		logger.WithField("addr", httpServer.Addr).Info("warden listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.WithError(err).Error("http server failed")
			os.Exit(1)
		}
	}()

	shutdown := observability.NewShutdownManager(logger, httpServer, cfg.Server.ShutdownTimeout)
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return healthServer.Shutdown(ctx)
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return store.Close()
	})
	shutdown.RegisterShutdownFunc(func(ctx context.Context) error {
		return db.Close()
	})

	if err := shutdown.WaitForShutdown(); err != nil {
		os.Exit(1)
	}
}
