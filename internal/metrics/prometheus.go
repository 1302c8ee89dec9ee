// Package metrics provides Prometheus metrics for the scoring engine.
//
// A nil *Manager is valid and records nothing, so components take one as an
// optional dependency and tests can pass nil.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Enrichment outcomes reported by the explanation enricher.
const (
	EnrichDisabled    = "disabled"
	EnrichApplied     = "applied"
	EnrichTimeout     = "timeout"
	EnrichError       = "error"
	EnrichInvalid     = "invalid"
	EnrichRateLimited = "rate_limited"
)

// Manager owns every metric the service exports.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	registry         *prometheus.Registry

	// Scoring
	scoresTotal      *prometheus.CounterVec
	scoringDuration  *prometheus.HistogramVec
	extractionIssues *prometheus.CounterVec
	enrichments      *prometheus.CounterVec
	alertsTotal      *prometheus.CounterVec

	// Batch runs
	batchItems   *prometheus.CounterVec
	batchJobs    *prometheus.CounterVec
	batchRunning prometheus.Gauge
	reapedJobs   prometheus.Counter

	// HTTP
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec
}

// NewManager creates a Manager. Without WithRegistry a fresh registry with
// the Go and process collectors is used.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "scoring",
		subsystem:        "engine",
		histogramBuckets: prometheus.DefBuckets,
	}
	for _, opt := range opts {
		opt(m)
	}
	if m.registry == nil {
		m.registry = prometheus.NewRegistry()
		m.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}

	m.initializeMetrics()
	return m
}

func (m *Manager) initializeMetrics() {
	auto := promauto.With(m.registry)

	m.scoresTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scores_total",
		Help:      "Score records persisted, by entity kind and band",
	}, []string{"kind", "band"})

	m.scoringDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scoring_duration_seconds",
		Help:      "Wall time to score one entity end to end, including enrichment and persistence",
		Buckets:   m.histogramBuckets,
	}, []string{"kind"})

	m.extractionIssues = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "extraction_issues_total",
		Help:      "Source fields coerced to neutral values during feature extraction",
	}, []string{"kind", "field"})

	m.enrichments = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "enrichments_total",
		Help:      "Explanation enrichment attempts by outcome",
	}, []string{"kind", "outcome"})

	m.alertsTotal = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "alerts_total",
		Help:      "Escalation alerts raised, by entity kind and alert type",
	}, []string{"kind", "type"})

	m.batchItems = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_items_total",
		Help:      "Batch items processed, by result",
	}, []string{"kind", "result"})

	m.batchJobs = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_jobs_total",
		Help:      "Batch jobs finished, by final status",
	}, []string{"kind", "status"})

	m.batchRunning = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_jobs_running",
		Help:      "Batch jobs currently executing in this process",
	})

	m.reapedJobs = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "batch_jobs_reaped_total",
		Help:      "Running batch jobs failed by the stale-job reaper",
	})

	m.httpRequests = auto.NewCounterVec(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_requests_total",
		Help:      "HTTP requests by route, method and status code",
	}, []string{"route", "method", "status_code"})

	m.httpRequestDuration = auto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "http_request_duration_seconds",
		Help:      "HTTP request duration in seconds",
		Buckets:   m.histogramBuckets,
	}, []string{"route", "method", "status_code"})
}

// Registry returns the registry backing this manager.
func (m *Manager) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Manager) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ─── Scoring ──────────────────────────────────────────────────────────────────

func (m *Manager) ObserveScore(kind, band string, took time.Duration) {
	if m == nil {
		return
	}
	m.scoresTotal.WithLabelValues(kind, band).Inc()
	m.scoringDuration.WithLabelValues(kind).Observe(took.Seconds())
}

func (m *Manager) ObserveExtractionIssue(kind, field string) {
	if m == nil {
		return
	}
	m.extractionIssues.WithLabelValues(kind, field).Inc()
}

func (m *Manager) ObserveEnrichment(kind, outcome string) {
	if m == nil {
		return
	}
	m.enrichments.WithLabelValues(kind, outcome).Inc()
}

func (m *Manager) ObserveAlert(kind, alertType string) {
	if m == nil {
		return
	}
	m.alertsTotal.WithLabelValues(kind, alertType).Inc()
}

// ─── Batch runs ───────────────────────────────────────────────────────────────

func (m *Manager) ObserveBatchItem(kind string, ok bool) {
	if m == nil {
		return
	}
	result := "success"
	if !ok {
		result = "error"
	}
	m.batchItems.WithLabelValues(kind, result).Inc()
}

// BatchStarted and BatchFinished bracket one job execution.
func (m *Manager) BatchStarted() {
	if m == nil {
		return
	}
	m.batchRunning.Inc()
}

func (m *Manager) BatchFinished(kind, status string) {
	if m == nil {
		return
	}
	m.batchRunning.Dec()
	m.batchJobs.WithLabelValues(kind, status).Inc()
}

func (m *Manager) ObserveReaped(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.reapedJobs.Add(float64(n))
}

// ─── HTTP ─────────────────────────────────────────────────────────────────────

func (m *Manager) ObserveHTTP(route, method string, status int, took time.Duration) {
	if m == nil {
		return
	}
	code := strconv.Itoa(status)
	m.httpRequests.WithLabelValues(route, method, code).Inc()
	m.httpRequestDuration.WithLabelValues(route, method, code).Observe(took.Seconds())
}
