package observability

import (
	"fmt"
	"io"
	"net/http"
	"os"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"time"
)

// MetricsConfig holds configuration for the metrics subsystem.
type MetricsConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Namespace string `yaml:"namespace"`
	Version   string `yaml:"-"`
}

// DefaultMetricsConfig returns the default metrics configuration.
func DefaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Enabled:   true,
		Namespace: "webmake",
		Version:   "dev",
	}
}

// MetricsConfigFromEnv creates a MetricsConfig from environment variables.
// WEBMAKE_METRICS_ENABLED: true/false (default: true)
// APP_VERSION: version string (default: dev)
func MetricsConfigFromEnv() MetricsConfig {
	return ApplyMetricsEnv(DefaultMetricsConfig())
}

// ApplyMetricsEnv overlays WEBMAKE_METRICS_ENABLED and APP_VERSION onto cfg.
func ApplyMetricsEnv(cfg MetricsConfig) MetricsConfig {
	if v := os.Getenv("WEBMAKE_METRICS_ENABLED"); v != "" {
		cfg.Enabled = strings.EqualFold(v, "true") || v == "1"
	}
	if v := os.Getenv("APP_VERSION"); v != "" {
		cfg.Version = v
	}
	return cfg
}

// Metrics collects counters for the HTTP surface and the publish workflow.
// Safe for concurrent use. A nil *Metrics discards everything.
type Metrics struct {
	namespace string
	version   string

	mu            sync.RWMutex
	httpRequests  map[string]*atomic.Int64 // method:path:status
	httpDurations map[string]*durationWindow
	publishes     map[string]*atomic.Int64 // provider:outcome
	publishTiming map[string]*durationWindow
	generations   map[string]*atomic.Int64 // outcome

	rateLimitAllowed  atomic.Int64
	rateLimitRejected atomic.Int64
	inFlight          atomic.Int64
}

// NewMetrics creates a new Metrics collector.
func NewMetrics(cfg MetricsConfig) *Metrics {
	ns := cfg.Namespace
	if ns == "" {
		ns = "webmake"
	}
	return &Metrics{
		namespace:     ns,
		version:       cfg.Version,
		httpRequests:  make(map[string]*atomic.Int64),
		httpDurations: make(map[string]*durationWindow),
		publishes:     make(map[string]*atomic.Int64),
		publishTiming: make(map[string]*durationWindow),
		generations:   make(map[string]*atomic.Int64),
	}
}

const windowSize = 1000

// durationWindow keeps the most recent samples in a ring.
type durationWindow struct {
	mu      sync.Mutex
	samples []float64
	next    int
	full    bool
	total   int64
	sum     float64
}

func newDurationWindow(size int) *durationWindow {
	return &durationWindow{samples: make([]float64, size)}
}

func (d *durationWindow) add(v time.Duration) {
	d.mu.Lock()
	defer d.mu.Unlock()
	s := v.Seconds()
	d.samples[d.next] = s
	d.next++
	if d.next == len(d.samples) {
		d.next = 0
		d.full = true
	}
	d.total++
	d.sum += s
}

// snapshot returns the retained samples, the lifetime count and the lifetime sum.
func (d *durationWindow) snapshot() ([]float64, int64, float64) {
	d.mu.Lock()
	defer d.mu.Unlock()
	n := d.next
	if d.full {
		n = len(d.samples)
	}
	out := make([]float64, n)
	copy(out, d.samples[:n])
	return out, d.total, d.sum
}

func quantile(sorted []float64, q float64) float64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := q * float64(len(sorted)-1)
	lower := int(idx)
	if lower+1 >= len(sorted) {
		return sorted[len(sorted)-1]
	}
	frac := idx - float64(lower)
	return sorted[lower]*(1-frac) + sorted[lower+1]*frac
}

func (m *Metrics) counter(set map[string]*atomic.Int64, key string) *atomic.Int64 {
	m.mu.RLock()
	c, ok := set[key]
	m.mu.RUnlock()
	if ok {
		return c
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok = set[key]; !ok {
		c = &atomic.Int64{}
		set[key] = c
	}
	return c
}

func (m *Metrics) window(set map[string]*durationWindow, key string) *durationWindow {
	m.mu.RLock()
	w, ok := set[key]
	m.mu.RUnlock()
	if ok {
		return w
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if w, ok = set[key]; !ok {
		w = newDurationWindow(windowSize)
		set[key] = w
	}
	return w
}

// RecordHTTPRequest records a finished HTTP request.
func (m *Metrics) RecordHTTPRequest(method, path string, status int, d time.Duration) {
	if m == nil {
		return
	}
	path = routeLabel(path)
	m.counter(m.httpRequests, fmt.Sprintf("%s:%s:%d", method, path, status)).Add(1)
	m.window(m.httpDurations, method+":"+path).add(d)
}

// RecordPublish records the outcome of a publish attempt.
func (m *Metrics) RecordPublish(provider, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	if provider == "" {
		provider = "none"
	}
	m.counter(m.publishes, provider+":"+outcome).Add(1)
	m.window(m.publishTiming, provider).add(d)
}

// RecordGeneration records the outcome of a copy generation call.
func (m *Metrics) RecordGeneration(outcome string) {
	if m == nil {
		return
	}
	m.counter(m.generations, outcome).Add(1)
}

// RecordRateLimit records a rate limiter decision.
func (m *Metrics) RecordRateLimit(allowed bool) {
	if m == nil {
		return
	}
	if allowed {
		m.rateLimitAllowed.Add(1)
	} else {
		m.rateLimitRejected.Add(1)
	}
}

var knownRoutes = map[string]bool{
	"/":              true,
	"/healthz":       true,
	"/readyz":        true,
	"/openapi.yaml":  true,
	"/api/publish":   true,
	"/api/generate":  true,
	"/api/render":    true,
	"/api/export":    true,
	"/api/providers": true,
	"/api/audit":     true,
}

// routeLabel bounds label cardinality: unknown paths collapse to "other".
func routeLabel(path string) string {
	if knownRoutes[path] {
		return path
	}
	return "other"
}

// Handler serves the metrics in Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
			return
		}
		w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")
		m.WritePrometheus(w)
	})
}

func sortedKeys[V any](set map[string]V) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func header(w io.Writer, name, help, typ string) {
	_, _ = fmt.Fprintf(w, "# HELP %s %s\n# TYPE %s %s\n", name, help, name, typ)
}

func writeSummary(w io.Writer, name, labels string, win *durationWindow) {
	samples, count, sum := win.snapshot()
	sort.Float64s(samples)
	for _, q := range []float64{0.5, 0.9, 0.99} {
		_, _ = fmt.Fprintf(w, "%s{%s,quantile=\"%.2f\"} %.6f\n", name, labels, q, quantile(samples, q))
	}
	_, _ = fmt.Fprintf(w, "%s_sum{%s} %.6f\n", name, labels, sum)
	_, _ = fmt.Fprintf(w, "%s_count{%s} %d\n", name, labels, count)
}

// WritePrometheus writes every metric in Prometheus text format.
func (m *Metrics) WritePrometheus(w io.Writer) {
	ns := m.namespace

	header(w, ns+"_info", "Application information", "gauge")
	_, _ = fmt.Fprintf(w, "%s_info{version=%q} 1\n\n", ns, m.version)

	m.mu.RLock()
	defer m.mu.RUnlock()

	header(w, ns+"_http_requests_total", "Total number of HTTP requests", "counter")
	for _, key := range sortedKeys(m.httpRequests) {
		parts := strings.SplitN(key, ":", 3)
		_, _ = fmt.Fprintf(w, "%s_http_requests_total{method=%q,path=%q,status=%q} %d\n",
			ns, parts[0], parts[1], parts[2], m.httpRequests[key].Load())
	}
	_, _ = fmt.Fprintln(w)

	header(w, ns+"_http_request_duration_seconds", "HTTP request duration in seconds", "summary")
	for _, key := range sortedKeys(m.httpDurations) {
		parts := strings.SplitN(key, ":", 2)
		writeSummary(w, ns+"_http_request_duration_seconds",
			fmt.Sprintf("method=%q,path=%q", parts[0], parts[1]), m.httpDurations[key])
	}
	_, _ = fmt.Fprintln(w)

	header(w, ns+"_publish_total", "Publish attempts by provider and outcome", "counter")
	for _, key := range sortedKeys(m.publishes) {
		parts := strings.SplitN(key, ":", 2)
		_, _ = fmt.Fprintf(w, "%s_publish_total{provider=%q,outcome=%q} %d\n",
			ns, parts[0], parts[1], m.publishes[key].Load())
	}
	_, _ = fmt.Fprintln(w)

	header(w, ns+"_publish_duration_seconds", "Publish duration in seconds", "summary")
	for _, key := range sortedKeys(m.publishTiming) {
		writeSummary(w, ns+"_publish_duration_seconds", fmt.Sprintf("provider=%q", key), m.publishTiming[key])
	}
	_, _ = fmt.Fprintln(w)

	header(w, ns+"_generate_total", "Copy generation calls by outcome", "counter")
	for _, key := range sortedKeys(m.generations) {
		_, _ = fmt.Fprintf(w, "%s_generate_total{outcome=%q} %d\n", ns, key, m.generations[key].Load())
	}
	_, _ = fmt.Fprintln(w)

	header(w, ns+"_rate_limit_requests_total", "Total rate limit decisions", "counter")
	_, _ = fmt.Fprintf(w, "%s_rate_limit_requests_total{status=\"allowed\"} %d\n", ns, m.rateLimitAllowed.Load())
	_, _ = fmt.Fprintf(w, "%s_rate_limit_requests_total{status=\"rejected\"} %d\n\n", ns, m.rateLimitRejected.Load())

	header(w, ns+"_in_flight_requests", "Requests currently being served", "gauge")
	_, _ = fmt.Fprintf(w, "%s_in_flight_requests %d\n", ns, m.inFlight.Load())
}

// MetricsMiddleware records request counts, durations and rate limit
// decisions. A nil m yields a pass-through middleware.
func MetricsMiddleware(m *Metrics) func(http.Handler) http.Handler {
	if m == nil {
		return func(next http.Handler) http.Handler { return next }
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/metrics" {
				next.ServeHTTP(w, r)
				return
			}

			m.inFlight.Add(1)
			defer m.inFlight.Add(-1)

			start := time.Now()
			rw := &metricsResponseWriter{ResponseWriter: w, statusCode: http.StatusOK}
			next.ServeHTTP(rw, r)

			m.RecordHTTPRequest(r.Method, r.URL.Path, rw.statusCode, time.Since(start))
			m.RecordRateLimit(rw.statusCode != http.StatusTooManyRequests)
		})
	}
}

type metricsResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (w *metricsResponseWriter) WriteHeader(code int) {
	w.statusCode = code
	w.ResponseWriter.WriteHeader(code)
}

// Unwrap exposes the underlying writer to http.ResponseController.
func (w *metricsResponseWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
