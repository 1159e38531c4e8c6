// Package main provides the entry point for the Edflex connector service.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/openlms/edflex-connector/internal/api"
	"github.com/openlms/edflex-connector/internal/cache"
	"github.com/openlms/edflex-connector/internal/config"
	"github.com/openlms/edflex-connector/internal/course"
	"github.com/openlms/edflex-connector/internal/edflex"
	"github.com/openlms/edflex-connector/internal/engine"
	"github.com/openlms/edflex-connector/internal/logging"
	"github.com/openlms/edflex-connector/internal/metrics"
	"github.com/openlms/edflex-connector/internal/schedule"
	"github.com/openlms/edflex-connector/internal/storage"
)

const version = "0.1.0"

const shutdownTimeout = 10 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logger, _ := logging.Setup(cfg.LogLevel)
	slog.SetDefault(logger)

	logger.Info("edflex connector starting", "version", version, "addr", cfg.ListenAddr)

	records, err := storage.New(cfg.DatabasePath, cfg.EncryptionKey)
	if err != nil {
		return fmt.Errorf("failed to open storage: %w", err)
	}
	defer records.Close()

	if err := course.InitSchema(records.DB()); err != nil {
		return fmt.Errorf("failed to initialize course schema: %w", err)
	}
	courses := course.NewSQLiteStore(records.DB(), logger)

	store := cache.New()
	provider := newProvider(cfg, records, store, logger)

	eng := engine.New(records, courses, provider, logger)

	// Deleting a module by hand leaves its activity row behind; sweep
	// orphans after each module delete so the two stay consistent.
	courses.SetDeleteHook(func(moduleID int64) {
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if _, err := eng.DeleteOrphans(ctx); err != nil {
			logger.Warn("orphan sweep after module delete failed",
				"module_id", moduleID, "error", err)
		}
	})

	trigger, err := schedule.New(provider, eng, store, cfg.SyncInterval, cfg.SyncMaxAge, logger)
	if err != nil {
		return fmt.Errorf("failed to create scheduler: %w", err)
	}
	trigger.Start()
	defer func() {
		if err := trigger.Stop(); err != nil {
			logger.Warn("scheduler shutdown failed", "error", err)
		}
	}()

	// Schedule the periodic sync if credentials are already available.
	startupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	trigger.SettingsChanged(startupCtx)
	cancel()

	if err := metrics.Init(prometheus.DefaultRegisterer); err != nil {
		return fmt.Errorf("failed to initialize metrics: %w", err)
	}
	metricsServer := startMetricsServer(cfg.MetricsListenAddr, logger)
	defer shutdownServer(metricsServer, logger)

	handler := api.NewHandler(records, eng, provider, trigger, cfg.AdminTokenHash, logger)
	apiServer := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           handler.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := apiServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		return fmt.Errorf("server failed: %w", err)
	}

	shutdownServer(apiServer, logger)
	return nil
}

// newProvider builds the per-request client factory. Saved settings win over
// the environment so credential changes via the ops API apply immediately;
// the environment keeps container deployments working before first save.
func newProvider(cfg *config.Config, records *storage.SQLiteStorage, store *cache.Store, logger *slog.Logger) edflex.Provider {
	httpClient := &http.Client{
		Timeout: 60 * time.Second,
		Transport: &edflex.LoggingTransport{
			Logger: logger,
		},
	}

	return func(ctx context.Context) (*edflex.Client, error) {
		baseURL := cfg.EdflexBaseURL
		clientID := cfg.EdflexClientID
		clientSecret := cfg.EdflexClientSecret

		settings, err := records.LoadSettings(ctx)
		switch {
		case err == nil:
			baseURL = settings.BaseURL
			clientID = settings.ClientID
			clientSecret = settings.ClientSecret
		case errors.Is(err, storage.ErrNotFound):
			// fall back to environment credentials
		default:
			return nil, fmt.Errorf("failed to load settings: %w", err)
		}

		return edflex.NewClient(baseURL, clientID, clientSecret, store,
			edflex.WithHTTPClient(httpClient),
			edflex.WithLogger(logger),
		)
	}
}

// startMetricsServer serves Prometheus metrics on a separate listener so the
// ops API surface stays free of internal endpoints.
func startMetricsServer(addr string, logger *slog.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("metrics listening", "addr", addr)
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server failed", "error", err)
		}
	}()

	return server
}

func shutdownServer(server *http.Server, logger *slog.Logger) {
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("server shutdown failed", "error", err)
	}
}
