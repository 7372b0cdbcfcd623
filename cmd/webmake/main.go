package main

import (
	"context"
	"errors"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"

	"webmake/internal/api"
	"webmake/internal/auth"
	"webmake/internal/config"
	"webmake/internal/copywriter"
	"webmake/internal/copywriter/llm"
	"webmake/internal/domain"
	"webmake/internal/observability"
	"webmake/internal/publish"
)

// upstreamTimeout bounds a single provider or LLM round trip.
const upstreamTimeout = 60 * time.Second

// responseGrace is the write time left after a slow upstream call so its
// failure still reaches the client as a JSON body.
const responseGrace = 15 * time.Second

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (default $WEBMAKE_CONFIG)")
	addrFlag := flag.String("addr", "", "listen address (host:port); overrides config")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		observability.NewLogger(observability.DefaultConfig()).Error("invalid configuration", "error", err)
		os.Exit(1)
	}
	if *addrFlag != "" {
		cfg.Addr = *addrFlag
	}

	logger := observability.NewLogger(cfg.Log)

	// Initialize Sentry if DSN is provided
	sentryEnabled := false
	if cfg.Sentry.DSN != "" {
		err := sentry.Init(sentry.ClientOptions{
			Dsn:              cfg.Sentry.DSN,
			Environment:      cfg.Sentry.Environment,
			Release:          cfg.Metrics.Version,
			TracesSampleRate: 1.0,
			AttachStacktrace: true,
		})
		if err != nil {
			logger.Warn("sentry initialization failed", "error", err)
		} else {
			logger.Info("sentry initialized",
				"environment", cfg.Sentry.Environment,
				"release", cfg.Metrics.Version,
			)
			sentryEnabled = true
		}
	}

	var metrics *observability.Metrics
	if cfg.Metrics.Enabled {
		metrics = observability.NewMetrics(cfg.Metrics)
		logger.Info("metrics enabled",
			"namespace", cfg.Metrics.Namespace,
			"version", cfg.Metrics.Version,
		)
	} else {
		logger.Info("metrics disabled")
	}

	if !cfg.RateLimit.Enabled() {
		logger.Info("rate limiting disabled")
	} else {
		logger.Info("rate limiting configured",
			"requests_per_second", cfg.RateLimit.RequestsPerSecond,
			"burst", cfg.RateLimit.Burst,
		)
	}

	httpClient := &http.Client{Timeout: upstreamTimeout}

	orch := publish.New(cfg.Publish,
		publish.WithHTTPClient(httpClient),
		publish.WithLogger(logger),
		publish.WithRecorder(metrics),
	)
	for _, p := range domain.Providers {
		mode := "fallback"
		if cfg.Publish.Configured(p) {
			mode = "live"
		}
		logger.Info("publish provider", "provider", p, "mode", mode)
	}

	// Copy generation is optional; without a key /api/generate answers 503.
	var generator api.Generator
	if cfg.LLM.APIKey != "" {
		generator = copywriter.NewService(llm.NewOpenAIProvider(cfg.LLM, httpClient), logger)
		logger.Info("copy generation enabled", "model", cfg.LLM.Model, "endpoint", cfg.LLM.Endpoint)
	} else {
		logger.Info("copy generation disabled (set WEBMAKE_LLM_API_KEY to enable)")
	}

	keys, err := auth.NewKeyRing(cfg.APIKeys)
	if err != nil {
		logger.Error("failed to load api keys", "error", err)
		os.Exit(1)
	}
	if keys.Enabled() {
		logger.Info("access keys enforced", "keys", keys.Len())
	} else {
		logger.Warn("access keys disabled; publish and export are open (set WEBMAKE_API_KEYS)")
	}

	auditLogger, closeAudit := selectAuditLogger(context.Background(), logger, cfg.Audit)

	mux := http.NewServeMux()
	srv := api.NewServer(mux, orch, generator, logger, metrics, auditLogger)
	srv.SetKeyRing(keys)
	srv.SetMaxBodyBytes(cfg.MaxBodyBytes)
	srv.RegisterRoutes()

	// Order: metrics (outermost) -> requestID -> logging -> rateLimiting (innermost before handler)
	handler := api.ApplyMiddlewares(
		mux,
		observability.MetricsMiddleware(metrics),
		api.RequestIDMiddleware(),
		api.LoggingMiddleware(logger.Slog()),
		api.RateLimitMiddleware(cfg.RateLimit, logger.Slog()),
	)
	server := newHTTPServer(cfg.Addr, handler)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	serverErrors := make(chan error, 1)
	go func() {
		logger.Info("webmake listening", "addr", cfg.Addr)
		serverErrors <- server.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("server error", "error", err)
		}
	case sig := <-sigChan:
		logger.Info("received shutdown signal", "signal", sig)
	}

	logger.Info("shutting down server", "timeout", "15s")
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", "error", err)
	} else {
		logger.Info("server stopped gracefully")
	}

	if err := closeAudit(); err != nil {
		logger.Error("error closing audit store", "error", err)
	}

	if sentryEnabled {
		logger.Info("flushing sentry events", "deadline", "2s")
		sentry.Flush(2 * time.Second)
	}

	logger.Info("shutdown complete")
}

func newHTTPServer(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      upstreamTimeout + responseGrace,
		IdleTimeout:       60 * time.Second,
	}
}

func noopClose() error { return nil }
