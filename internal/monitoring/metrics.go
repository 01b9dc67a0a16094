// Package monitoring exposes Prometheus metrics and webhook alerts for
// award aggregation runs.
package monitoring

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/sells-group/awards-cli/internal/fetcher"
	"github.com/sells-group/awards-cli/internal/model"
)

const namespace = "awards"

// Drop reasons.
const (
	DropMissingField = "missing_field"
	DropDuplicate    = "duplicate"
)

// Metrics holds the Prometheus collectors for the award service. Each
// instance owns its registry so tests and multiple servers do not collide.
type Metrics struct {
	reg *prometheus.Registry

	fetches       *prometheus.CounterVec
	fetchDuration *prometheus.HistogramVec
	dropped       *prometheus.CounterVec
	runs          *prometheus.CounterVec
	runDuration   *prometheus.HistogramVec
	brandFailures *prometheus.CounterVec
	lastAwards    *prometheus.GaugeVec
	imageMatches  *prometheus.CounterVec
	cacheLookups  *prometheus.CounterVec
}

// NewMetrics creates and registers all collectors on a fresh registry.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Metrics{
		reg: reg,
		fetches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "requests_total",
			Help:      "Brand site fetches by body kind and outcome",
		}, []string{"kind", "outcome"}),
		fetchDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "fetch",
			Name:      "duration_seconds",
			Help:      "Brand site fetch latency in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		dropped: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "records_dropped_total",
			Help:      "Raw award records removed during deduplication",
		}, []string{"reason"}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Aggregation runs by scope and status",
		}, []string{"scope", "status"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "run_duration_seconds",
			Help:      "Aggregation run duration in seconds",
			Buckets:   []float64{0.5, 1, 2.5, 5, 10, 20, 30, 60, 120},
		}, []string{"scope"}),
		brandFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "brand_failures_total",
			Help:      "Brands whose award listing could not be read",
		}, []string{"scope"}),
		lastAwards: factory.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "last_run_awards",
			Help:      "Awards produced by the most recent run",
		}, []string{"scope"}),
		imageMatches: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "image_matches_total",
			Help:      "Awards by image match result",
		}, []string{"result"}),
		cacheLookups: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "cache",
			Name:      "lookups_total",
			Help:      "Response cache lookups by cache and result",
		}, []string{"cache", "result"}),
	}
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// ObserveFetch implements fetcher.Observer.
func (m *Metrics) ObserveFetch(kind fetcher.Kind, outcome string, elapsed time.Duration) {
	m.fetches.WithLabelValues(string(kind), outcome).Inc()
	m.fetchDuration.WithLabelValues(string(kind)).Observe(elapsed.Seconds())
}

// ObserveCache implements cache.Observer.
func (m *Metrics) ObserveCache(name, result string) {
	m.cacheLookups.WithLabelValues(name, result).Inc()
}

// ObserveRun records the counters of a finished run.
func (m *Metrics) ObserveRun(_ context.Context, s model.RunSummary) {
	status := "ok"
	if s.Failed() {
		status = "error"
	}
	m.runs.WithLabelValues(s.Scope, status).Inc()
	m.runDuration.WithLabelValues(s.Scope).Observe(s.Duration.Seconds())
	if s.Failed() {
		return
	}

	m.brandFailures.WithLabelValues(s.Scope).Add(float64(s.BrandsFailed))
	m.lastAwards.WithLabelValues(s.Scope).Set(float64(s.Awards))
	m.dropped.WithLabelValues(DropMissingField).Add(float64(s.MissingField))
	m.dropped.WithLabelValues(DropDuplicate).Add(float64(s.Duplicates))
	m.imageMatches.WithLabelValues("matched").Add(float64(s.ImagesMatched))
	m.imageMatches.WithLabelValues("unmatched").Add(float64(s.Awards - s.ImagesMatched))
}
