package pipeline

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics bundles Prometheus collectors for the scrape pipeline.
type Metrics struct {
	Registry            *prometheus.Registry
	RunsTotal           *prometheus.CounterVec
	FetchAttemptsTotal  prometheus.Counter
	HeadlessRendersUsed prometheus.Counter
	PersistFailures     prometheus.Counter
	RunDuration         prometheus.Histogram
}

// NewMetrics constructs and registers all collectors on a dedicated registry.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()

	runs := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scraper_runs_total",
			Help: "Total pipeline invocations by terminal status.",
		},
		[]string{"status"},
	)
	attempts := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_fetch_attempts_total",
			Help: "Total HTTP fetch attempts, including retries.",
		},
	)
	renders := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_headless_renders_total",
			Help: "Total runs that fell back to a headless render.",
		},
	)
	persistFailures := prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "scraper_persist_failures_total",
			Help: "Total failed object storage writes.",
		},
	)
	duration := prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "scraper_run_duration_seconds",
			Help:    "End-to-end pipeline invocation latency.",
			Buckets: []float64{0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
	)

	registry.MustRegister(runs, attempts, renders, persistFailures, duration)

	return &Metrics{
		Registry:            registry,
		RunsTotal:           runs,
		FetchAttemptsTotal:  attempts,
		HeadlessRendersUsed: renders,
		PersistFailures:     persistFailures,
		RunDuration:         duration,
	}
}

func (m *Metrics) observeRun(success bool, attempts int, usedHeadless, persistFailed bool, d time.Duration) {
	if m == nil {
		return
	}
	status := "failure"
	if success {
		status = "success"
	}
	m.RunsTotal.WithLabelValues(status).Inc()
	m.FetchAttemptsTotal.Add(float64(attempts))
	if usedHeadless {
		m.HeadlessRendersUsed.Inc()
	}
	if persistFailed {
		m.PersistFailures.Inc()
	}
	m.RunDuration.Observe(d.Seconds())
}
