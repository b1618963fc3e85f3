package telemetry

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics provides Prometheus metrics for the heuristic engine.
type Metrics struct {
	config MetricsConfig

	// Heuristic metrics
	computeCalls    *prometheus.CounterVec
	computeDuration *prometheus.HistogramVec
	deadEnds        prometheus.Counter

	// Cache metrics
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter

	// Oracle metrics
	oracleCalls    *prometheus.CounterVec
	oracleDuration prometheus.Histogram

	// Exploration metrics
	explorationRuns   prometheus.Counter
	explorationProbes prometheus.Counter

	// Search metrics
	searchExpansions prometheus.Counter
	openListSize     prometheus.Gauge

	registry *prometheus.Registry
}

// NewMetrics creates a new metrics collector with the given configuration.
func NewMetrics(cfg MetricsConfig) (*Metrics, error) {
	if !cfg.Enabled {
		// Return a no-op metrics instance
		return &Metrics{config: cfg}, nil
	}

	namespace := cfg.Namespace
	buckets := cfg.DefaultHistogramBuckets
	if len(buckets) == 0 {
		buckets = prometheus.DefBuckets
	}

	registry := prometheus.NewRegistry()

	m := &Metrics{
		config:   cfg,
		registry: registry,

		computeCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "compute_calls_total",
				Help:      "Total number of heuristic compute calls",
			},
			[]string{"mode"},
		),
		computeDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "compute_duration_seconds",
				Help:      "Duration of heuristic compute calls in seconds",
				Buckets:   buckets,
			},
			[]string{"mode"},
		),
		deadEnds: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "dead_ends_total",
				Help:      "Total number of states with an unreachable goal",
			},
		),

		cacheHits: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_hits_total",
				Help:      "Total number of heuristic cache hits",
			},
		),
		cacheMisses: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "cache_misses_total",
				Help:      "Total number of heuristic cache misses",
			},
		),

		oracleCalls: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "oracle_calls_total",
				Help:      "Total number of oracle invocations",
			},
			[]string{"status"},
		),
		oracleDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "oracle_call_duration_seconds",
				Help:      "Duration of oracle invocations in seconds",
				Buckets:   buckets,
			},
		),

		explorationRuns: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exploration_runs_total",
				Help:      "Total number of lookahead exploration rounds",
			},
		),
		explorationProbes: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "exploration_probes_total",
				Help:      "Total number of successor states probed by exploration",
			},
		),

		searchExpansions: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "search_expansions_total",
				Help:      "Total number of states expanded by the search driver",
			},
		),
		openListSize: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "search_open_list_size",
				Help:      "Current size of the search driver's open list",
			},
		),
	}

	// Register all metrics
	registry.MustRegister(
		m.computeCalls,
		m.computeDuration,
		m.deadEnds,
		m.cacheHits,
		m.cacheMisses,
		m.oracleCalls,
		m.oracleDuration,
		m.explorationRuns,
		m.explorationProbes,
		m.searchExpansions,
		m.openListSize,
	)

	return m, nil
}

// Heuristic Metrics

// RecordComputeCall records one heuristic evaluation.
func (m *Metrics) RecordComputeCall(mode string, duration time.Duration) {
	if m == nil || m.computeCalls == nil {
		return
	}
	m.computeCalls.WithLabelValues(mode).Inc()
	m.computeDuration.WithLabelValues(mode).Observe(duration.Seconds())
}

// RecordDeadEnd records a state whose goal is structurally unreachable.
func (m *Metrics) RecordDeadEnd() {
	if m == nil || m.deadEnds == nil {
		return
	}
	m.deadEnds.Inc()
}

// Cache Metrics

// RecordCacheHit records a result-cache hit.
func (m *Metrics) RecordCacheHit() {
	if m == nil || m.cacheHits == nil {
		return
	}
	m.cacheHits.Inc()
}

// RecordCacheMiss records a result-cache miss.
func (m *Metrics) RecordCacheMiss() {
	if m == nil || m.cacheMisses == nil {
		return
	}
	m.cacheMisses.Inc()
}

// Oracle Metrics

// RecordOracleCall records one oracle invocation and whether it degraded
// to the fallback value.
func (m *Metrics) RecordOracleCall(duration time.Duration, fault bool) {
	if m == nil || m.oracleCalls == nil {
		return
	}
	status := "ok"
	if fault {
		status = "fault"
	}
	m.oracleCalls.WithLabelValues(status).Inc()
	m.oracleDuration.Observe(duration.Seconds())
}

// Exploration Metrics

// RecordExplorationRun records one lookahead exploration round.
func (m *Metrics) RecordExplorationRun() {
	if m == nil || m.explorationRuns == nil {
		return
	}
	m.explorationRuns.Inc()
}

// RecordExplorationProbes records successor states probed in a round.
func (m *Metrics) RecordExplorationProbes(n int) {
	if m == nil || m.explorationProbes == nil {
		return
	}
	m.explorationProbes.Add(float64(n))
}

// Search Metrics

// RecordExpansion records one state expansion by the search driver.
func (m *Metrics) RecordExpansion() {
	if m == nil || m.searchExpansions == nil {
		return
	}
	m.searchExpansions.Inc()
}

// SetOpenListSize sets the current open-list size gauge.
func (m *Metrics) SetOpenListSize(n int) {
	if m == nil || m.openListSize == nil {
		return
	}
	m.openListSize.Set(float64(n))
}

// Handler returns an HTTP handler serving the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry returns the underlying Prometheus registry, or nil when
// metrics are disabled.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Timer provides a convenient way to time operations.
type Timer struct {
	start time.Time
}

// NewTimer creates a new timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// Duration returns the elapsed time since the timer was created.
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}

// ObserveDuration is a helper to time an operation and record it.
func (t *Timer) ObserveDuration(observer prometheus.Observer) {
	observer.Observe(t.Duration().Seconds())
}

// StartMetricsServer starts an HTTP server to expose metrics.
func (m *Metrics) StartMetricsServer() error {
	if !m.config.Enabled {
		return nil
	}

	mux := http.NewServeMux()
	mux.Handle(m.config.Path, m.Handler())

	server := &http.Server{
		Addr:              m.config.ListenAddress,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			// Log error but don't fail the application
			fmt.Printf("metrics server error: %v\n", err)
		}
	}()

	return nil
}
