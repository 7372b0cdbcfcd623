package observability

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

func TestDefaultMetricsConfig(t *testing.T) {
	cfg := DefaultMetricsConfig()
	if !cfg.Enabled {
		t.Error("expected Enabled=true by default")
	}
	if cfg.Namespace != "webmake" {
		t.Errorf("expected namespace 'webmake', got %q", cfg.Namespace)
	}
	if cfg.Version != "dev" {
		t.Errorf("expected version 'dev', got %q", cfg.Version)
	}
}

func TestMetricsConfigFromEnv(t *testing.T) {
	t.Setenv("WEBMAKE_METRICS_ENABLED", "false")
	t.Setenv("APP_VERSION", "v2.0.0")

	cfg := MetricsConfigFromEnv()
	if cfg.Enabled {
		t.Error("expected Enabled=false")
	}
	if cfg.Version != "v2.0.0" {
		t.Errorf("expected version v2.0.0, got %q", cfg.Version)
	}

	for _, v := range []string{"true", "TRUE", "1"} {
		t.Setenv("WEBMAKE_METRICS_ENABLED", v)
		if !MetricsConfigFromEnv().Enabled {
			t.Errorf("expected %q to enable metrics", v)
		}
	}
}

func render(m *Metrics) string {
	var buf bytes.Buffer
	m.WritePrometheus(&buf)
	return buf.String()
}

func TestRecordHTTPRequest(t *testing.T) {
	m := NewMetrics(MetricsConfig{Namespace: "test", Version: "1.0.0"})
	m.RecordHTTPRequest("POST", "/api/publish", 200, 100*time.Millisecond)
	m.RecordHTTPRequest("POST", "/api/publish", 200, 50*time.Millisecond)
	m.RecordHTTPRequest("GET", "/wp-admin/setup.php", 404, time.Millisecond)

	out := render(m)
	for _, want := range []string{
		`test_info{version="1.0.0"} 1`,
		`test_http_requests_total{method="POST",path="/api/publish",status="200"} 2`,
		`test_http_requests_total{method="GET",path="other",status="404"} 1`,
		`test_http_request_duration_seconds_count{method="POST",path="/api/publish"} 2`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q\n%s", want, out)
		}
	}
}

func TestRecordPublish(t *testing.T) {
	m := NewMetrics(DefaultMetricsConfig())
	m.RecordPublish("netlify", "fallback", time.Millisecond)
	m.RecordPublish("netlify", "fallback", time.Millisecond)
	m.RecordPublish("vercel", "success", time.Second)
	m.RecordPublish("", "failure", 0)
	m.RecordGeneration("success")

	out := render(m)
	for _, want := range []string{
		`webmake_publish_total{provider="netlify",outcome="fallback"} 2`,
		`webmake_publish_total{provider="vercel",outcome="success"} 1`,
		`webmake_publish_total{provider="none",outcome="failure"} 1`,
		`webmake_publish_duration_seconds_count{provider="vercel"} 1`,
		`webmake_generate_total{outcome="success"} 1`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("expected output to contain %q", want)
		}
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordHTTPRequest("GET", "/", 200, time.Millisecond)
	m.RecordPublish("vercel", "success", time.Millisecond)
	m.RecordGeneration("failure")
	m.RecordRateLimit(true)

	h := MetricsMiddleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/", nil))
	if rr.Code != http.StatusTeapot {
		t.Errorf("expected pass-through status, got %d", rr.Code)
	}
}

func TestRouteLabel(t *testing.T) {
	tests := map[string]string{
		"/api/publish":  "/api/publish",
		"/healthz":      "/healthz",
		"/api/publish/": "other",
		"/etc/passwd":   "other",
	}
	for in, want := range tests {
		if got := routeLabel(in); got != want {
			t.Errorf("routeLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestMetricsHandler(t *testing.T) {
	m := NewMetrics(DefaultMetricsConfig())
	m.RecordRateLimit(true)
	m.RecordRateLimit(false)

	rr := httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Errorf("unexpected content type %q", ct)
	}
	body := rr.Body.String()
	if !strings.Contains(body, `webmake_rate_limit_requests_total{status="allowed"} 1`) ||
		!strings.Contains(body, `webmake_rate_limit_requests_total{status="rejected"} 1`) {
		t.Errorf("expected rate limit counters, got:\n%s", body)
	}

	rr = httptest.NewRecorder()
	m.Handler().ServeHTTP(rr, httptest.NewRequest(http.MethodPost, "/metrics", nil))
	if rr.Code != http.StatusMethodNotAllowed {
		t.Errorf("expected 405, got %d", rr.Code)
	}
}

func TestMetricsMiddleware(t *testing.T) {
	m := NewMetrics(DefaultMetricsConfig())
	h := MetricsMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := m.inFlight.Load(); got != 1 {
			t.Errorf("expected 1 in-flight request, got %d", got)
		}
		if r.URL.Path == "/api/generate" {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusCreated)
	}))

	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/publish", nil))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/generate", nil))

	out := render(m)
	if !strings.Contains(out, `webmake_http_requests_total{method="POST",path="/api/publish",status="201"} 1`) {
		t.Errorf("expected publish request counted:\n%s", out)
	}
	if m.rateLimitRejected.Load() != 1 || m.rateLimitAllowed.Load() != 1 {
		t.Errorf("expected 1 allowed and 1 rejected, got %d/%d", m.rateLimitAllowed.Load(), m.rateLimitRejected.Load())
	}
	if m.inFlight.Load() != 0 {
		t.Errorf("expected in-flight gauge back at 0, got %d", m.inFlight.Load())
	}
}

func TestMetricsMiddlewareSkipsMetricsEndpoint(t *testing.T) {
	m := NewMetrics(DefaultMetricsConfig())
	h := MetricsMiddleware(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if strings.Contains(render(m), "path=") {
		t.Error("expected /metrics requests not to be recorded")
	}
}

func TestDurationWindow(t *testing.T) {
	w := newDurationWindow(4)
	for i := 1; i <= 6; i++ {
		w.add(time.Duration(i) * time.Second)
	}
	samples, count, sum := w.snapshot()
	if len(samples) != 4 {
		t.Fatalf("expected 4 retained samples, got %d", len(samples))
	}
	if count != 6 {
		t.Errorf("expected lifetime count 6, got %d", count)
	}
	if sum != 21 {
		t.Errorf("expected lifetime sum 21, got %f", sum)
	}
}

func TestQuantile(t *testing.T) {
	if got := quantile(nil, 0.5); got != 0 {
		t.Errorf("expected 0 for empty, got %f", got)
	}
	s := []float64{1, 2, 3, 4, 5}
	if got := quantile(s, 0.5); got != 3 {
		t.Errorf("expected median 3, got %f", got)
	}
	if got := quantile(s, 0.99); got < 4.9 || got > 5 {
		t.Errorf("expected p99 near 5, got %f", got)
	}
}

func TestMetricsResponseWriterUnwrap(t *testing.T) {
	rr := httptest.NewRecorder()
	w := &metricsResponseWriter{ResponseWriter: rr}
	if w.Unwrap() != rr {
		t.Error("expected Unwrap to return the wrapped writer")
	}
}

func TestMetricsConcurrentAccess(t *testing.T) {
	m := NewMetrics(DefaultMetricsConfig())
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				m.RecordHTTPRequest("GET", "/healthz", 200, time.Millisecond)
				m.RecordPublish("vercel", "success", time.Millisecond)
			}
		}()
	}
	wg.Wait()

	if !strings.Contains(render(m), `webmake_publish_total{provider="vercel",outcome="success"} 1000`) {
		t.Error("expected 1000 publishes recorded")
	}
}
