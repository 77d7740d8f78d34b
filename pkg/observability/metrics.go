package observability

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all Prometheus metrics for the resolution engine.
type Metrics struct {
	// Resolution metrics
	ResolutionsTotal   *prometheus.CounterVec
	ResolutionDuration prometheus.Histogram
	ResolutionPlugins  prometheus.Histogram

	// Conflict metrics
	ConflictsTotal *prometheus.CounterVec

	// Cycle metrics
	CyclesDetectedTotal prometheus.Counter

	// Lockfile metrics
	LockfileValidationsTotal *prometheus.CounterVec

	// Semver parse cache metrics
	SemverCacheHits   prometheus.Gauge
	SemverCacheMisses prometheus.Gauge
}

// NewMetrics creates and registers all Prometheus metrics. A nil registry
// registers nothing, which keeps tests and embedded use free of global
// registry collisions.
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainring_resolutions_total",
				Help: "Total number of resolution runs by outcome",
			},
			[]string{"outcome"},
		),
		ResolutionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chainring_resolution_duration_seconds",
				Help:    "Resolution run duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		ResolutionPlugins: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "chainring_resolution_plugins",
				Help:    "Number of plugins in a resolution run",
				Buckets: prometheus.ExponentialBuckets(1, 2, 12),
			},
		),
		ConflictsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainring_conflicts_total",
				Help: "Total number of version conflicts by strategy and outcome",
			},
			[]string{"strategy", "outcome"},
		),
		CyclesDetectedTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "chainring_cycles_detected_total",
				Help: "Total number of resolution runs aborted by a dependency cycle",
			},
		),
		LockfileValidationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "chainring_lockfile_validations_total",
				Help: "Total number of lockfile validations by result",
			},
			[]string{"result"},
		),
		SemverCacheHits: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "chainring_semver_cache_hits",
				Help: "Cumulative semver parse cache hits",
			},
		),
		SemverCacheMisses: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "chainring_semver_cache_misses",
				Help: "Cumulative semver parse cache misses",
			},
		),
	}

	if registry != nil {
		registry.MustRegister(
			m.ResolutionsTotal,
			m.ResolutionDuration,
			m.ResolutionPlugins,
			m.ConflictsTotal,
			m.CyclesDetectedTotal,
			m.LockfileValidationsTotal,
			m.SemverCacheHits,
			m.SemverCacheMisses,
		)
	}

	return m
}
