package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/property-insights/internal/models"
	"github.com/property-insights/internal/pipeline"
)

const namespace = "insights"

// Metrics holds the collectors of one process. Each instance owns its
// registry so tests can build as many as they like.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal          prometheus.Counter
	RowsTotal          prometheus.Counter
	ResolutionsTotal   *prometheus.CounterVec
	UnresolvedTotal    prometheus.Counter
	CoercionFailures   *prometheus.CounterVec
	StageDuration      *prometheus.HistogramVec
	LastRunCoverage    prometheus.Gauge
	CacheHitsTotal     prometheus.Counter
	CacheMissesTotal   prometheus.Counter
	HTTPRequestsTotal  *prometheus.CounterVec
	HTTPRequestLatency *prometheus.HistogramVec
}

// New creates and registers all collectors
func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		RunsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_runs_total",
			Help:      "Total number of completed pipeline runs",
		}),
		RowsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "pipeline_rows_total",
			Help:      "Total number of listing rows processed",
		}),
		ResolutionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "zip_resolutions_total",
			Help:      "ZIP resolutions by confidence",
		}, []string{"confidence"}),
		UnresolvedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "zip_unresolved_total",
			Help:      "Rows that carried no usable ZIP at all",
		}),
		CoercionFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "numeric_coercion_failures_total",
			Help:      "Numeric fields that could not be parsed, by field",
		}, []string{"field"}),
		StageDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_stage_duration_seconds",
			Help:      "Pipeline stage duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"stage"}),
		LastRunCoverage: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "last_run_coverage_ratio",
			Help:      "Share of rows carrying a resolved ZIP in the last run",
		}),
		CacheHitsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Total number of memoized run hits",
		}),
		CacheMissesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Total number of memoized run misses",
		}),
		HTTPRequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "endpoint", "status"}),
		HTTPRequestLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "endpoint", "status"}),
	}

	m.registry.MustRegister(
		m.RunsTotal,
		m.RowsTotal,
		m.ResolutionsTotal,
		m.UnresolvedTotal,
		m.CoercionFailures,
		m.StageDuration,
		m.LastRunCoverage,
		m.CacheHitsTotal,
		m.CacheMissesTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestLatency,
	)
	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// ObserveReport records one finished run. Cached results are skipped so
// a run is only counted once.
func (m *Metrics) ObserveReport(report pipeline.Report, cached bool) {
	if cached {
		m.CacheHitsTotal.Inc()
		return
	}
	m.CacheMissesTotal.Inc()
	m.RunsTotal.Inc()
	m.RowsTotal.Add(float64(report.Cleaning.Rows))

	for field, n := range report.Cleaning.CoercionFailures {
		m.CoercionFailures.WithLabelValues(field).Add(float64(n))
	}

	if s := report.Resolution; s != nil {
		m.ResolutionsTotal.WithLabelValues(string(models.ConfidenceExact)).Add(float64(s.Exact))
		m.ResolutionsTotal.WithLabelValues(string(models.ConfidenceFuzzy)).Add(float64(s.Fuzzy))
		m.ResolutionsTotal.WithLabelValues(string(models.ConfidenceFallback)).Add(float64(s.Fallback))
		m.UnresolvedTotal.Add(float64(s.Unresolved))
		m.LastRunCoverage.Set(s.Coverage)
	}

	m.StageDuration.WithLabelValues("load").Observe(report.Timings.Load.Seconds())
	m.StageDuration.WithLabelValues("clean").Observe(report.Timings.Clean.Seconds())
	m.StageDuration.WithLabelValues("merge").Observe(report.Timings.Merge.Seconds())
	m.StageDuration.WithLabelValues("total").Observe(report.Timings.Total.Seconds())
}

// ObserveHTTP records one served request
func (m *Metrics) ObserveHTTP(method, endpoint string, status int, elapsed time.Duration) {
	code := strconv.Itoa(status)
	m.HTTPRequestsTotal.WithLabelValues(method, endpoint, code).Inc()
	m.HTTPRequestLatency.WithLabelValues(method, endpoint, code).Observe(elapsed.Seconds())
}
