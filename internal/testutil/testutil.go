// Package testutil provides testing utilities for webmake integration tests.
package testutil

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"webmake/internal/api"
	"webmake/internal/audit"
	"webmake/internal/auth"
	"webmake/internal/observability"
	"webmake/internal/publish"
	"webmake/internal/site"
)

// FixedTime is the clock used by test servers for renders and deploy names.
var FixedTime = time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC)

// TestServerConfig holds configuration for creating a test server.
type TestServerConfig struct {
	// Publish holds provider credentials and base URLs (point these at
	// httptest servers).
	Publish publish.Config
	// Generator serves /api/generate; nil leaves it unavailable.
	Generator api.Generator
	// APIKeys enables the access-key gate when non-empty.
	APIKeys []string
	// EnableRateLimit enables rate limiting middleware.
	EnableRateLimit bool
	// RateLimitConfig configures rate limiting if enabled.
	RateLimitConfig api.RateLimitConfig
	// EnableMetrics enables metrics collection.
	EnableMetrics bool
	// MaxBodyBytes overrides the request body cap when positive.
	MaxBodyBytes int64
}

// DefaultTestServerConfig returns a basic test server configuration.
func DefaultTestServerConfig() TestServerConfig {
	return TestServerConfig{}
}

// TestServerComponents holds all the components created for a test server.
type TestServerComponents struct {
	// Server is the test HTTP server.
	Server *httptest.Server
	// Orchestrator runs publishes.
	Orchestrator *publish.Orchestrator
	// AuditLogger is the audit logger.
	AuditLogger *audit.MemoryAuditLogger
	// Metrics is the metrics collector.
	Metrics *observability.Metrics
	// Logger is the structured logger.
	Logger observability.Logger
	// Cleanup tears down the test server.
	Cleanup func()
}

// NewTestServer creates a fully configured test server with the same
// middleware chain as cmd/webmake.
func NewTestServer(t *testing.T, cfg TestServerConfig) *TestServerComponents {
	t.Helper()

	logger := observability.NewLogger(observability.Config{
		Level:  "debug",
		Format: "json",
		Output: io.Discard,
	})

	var metrics *observability.Metrics
	if cfg.EnableMetrics {
		metrics = observability.NewMetrics(observability.MetricsConfig{
			Enabled:   true,
			Namespace: "webmake_test",
			Version:   "test",
		})
	}

	orch := publish.New(cfg.Publish,
		publish.WithLogger(logger),
		publish.WithClock(func() time.Time { return FixedTime }),
		publish.WithRecorder(metrics),
	)

	auditLogger := audit.NewMemoryAuditLogger(audit.WithMaxEvents(1000))

	mux := http.NewServeMux()
	srv := api.NewServer(mux, orch, cfg.Generator, logger, metrics, auditLogger)
	srv.SetRenderer(site.Renderer{Now: func() time.Time { return FixedTime }})
	srv.SetMaxBodyBytes(cfg.MaxBodyBytes)
	if len(cfg.APIKeys) > 0 {
		keys, err := auth.NewKeyRing(cfg.APIKeys)
		if err != nil {
			t.Fatalf("failed to build key ring: %v", err)
		}
		srv.SetKeyRing(keys)
	}
	srv.RegisterRoutes()

	rateCfg := api.RateLimitConfig{}
	if cfg.EnableRateLimit {
		rateCfg = cfg.RateLimitConfig
	}
	handler := api.ApplyMiddlewares(mux,
		observability.MetricsMiddleware(metrics),
		api.RequestIDMiddleware(),
		api.LoggingMiddleware(logger.Slog()),
		api.RateLimitMiddleware(rateCfg, logger.Slog()),
	)

	testServer := httptest.NewServer(handler)

	return &TestServerComponents{
		Server:       testServer,
		Orchestrator: orch,
		AuditLogger:  auditLogger,
		Metrics:      metrics,
		Logger:       logger,
		Cleanup:      testServer.Close,
	}
}

// AuthenticatedRequest creates an HTTP request with Bearer token authentication.
func AuthenticatedRequest(method, url, apiKey string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequest(method, url, body)
	if err != nil {
		return nil, err
	}

	if apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+apiKey)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}

// MustAuthenticatedRequest creates an HTTP request with Bearer token authentication.
// It fails the test if request creation fails.
func MustAuthenticatedRequest(t *testing.T, method, url, apiKey string, body io.Reader) *http.Request {
	t.Helper()
	req, err := AuthenticatedRequest(method, url, apiKey, body)
	if err != nil {
		t.Fatalf("failed to create request: %v", err)
	}
	return req
}

// DoRequest performs an HTTP request and returns the response.
func DoRequest(t *testing.T, client *http.Client, req *http.Request) *http.Response {
	t.Helper()

	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	return resp
}

// AssertStatus checks that the response has the expected status code.
func AssertStatus(t *testing.T, got, expected int) {
	t.Helper()

	if got != expected {
		t.Errorf("expected status %d, got %d", expected, got)
	}
}

// AssertHeader checks that the response has the expected header value.
func AssertHeader(t *testing.T, resp *http.Response, key, expected string) {
	t.Helper()

	got := resp.Header.Get(key)
	if got != expected {
		t.Errorf("expected header %s=%q, got %q", key, expected, got)
	}
}

// AssertHeaderExists checks that the response has the specified header.
func AssertHeaderExists(t *testing.T, resp *http.Response, key string) {
	t.Helper()

	if resp.Header.Get(key) == "" {
		t.Errorf("expected header %s to exist", key)
	}
}

// JSONBody creates an io.Reader from a JSON-serializable value.
func JSONBody(t *testing.T, v any) io.Reader {
	t.Helper()

	data, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("failed to marshal JSON: %v", err)
	}

	return bytes.NewReader(data)
}

// ReadJSONResponse reads and unmarshals a JSON response body.
func ReadJSONResponse(t *testing.T, resp *http.Response, v any) {
	t.Helper()

	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}

	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("failed to unmarshal response: %v\nBody: %s", err, string(data))
	}
}

// ReadBody reads and closes the response body.
func ReadBody(t *testing.T, resp *http.Response) []byte {
	t.Helper()

	defer func() { _ = resp.Body.Close() }()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	return data
}

// HTTPClient returns the test server's client configured for the server.
func (c *TestServerComponents) HTTPClient() *http.Client {
	return c.Server.Client()
}

// URL returns the full URL for a given path.
func (c *TestServerComponents) URL(path string) string {
	return c.Server.URL + path
}
