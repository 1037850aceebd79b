package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Registry holds all Prometheus metrics.
type Registry struct {
	*prometheus.Registry

	// Ensemble metrics
	opinionsTotal   *prometheus.CounterVec
	sourceErrors    *prometheus.CounterVec
	fusedSignals    *prometheus.CounterVec
	fusionDuration  prometheus.Histogram
	snapshotCache   *prometheus.CounterVec

	// Backtest metrics
	backtestsTotal   *prometheus.CounterVec
	backtestDays     prometheus.Counter
	backtestDuration prometheus.Histogram
}

// NewRegistry creates a new metrics registry with all metrics registered.
func NewRegistry() *Registry {
	reg := prometheus.NewRegistry()

	// Register Go runtime metrics
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	r := &Registry{
		Registry: reg,

		opinionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalforge_opinions_total",
				Help: "Total number of model opinions produced",
			},
			[]string{"source", "signal"},
		),
		sourceErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalforge_source_errors_total",
				Help: "Total number of failed source generations",
			},
			[]string{"source"},
		),
		fusedSignals: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalforge_fused_signals_total",
				Help: "Total number of fused ensemble signals",
			},
			[]string{"signal", "band"},
		),
		fusionDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "signalforge_fusion_duration_seconds",
				Help:    "Coordination round duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
		),
		snapshotCache: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalforge_snapshot_cache_total",
				Help: "Snapshot cache lookups by outcome",
			},
			[]string{"outcome"},
		),
		backtestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "signalforge_backtests_total",
				Help: "Total number of backtests",
			},
			[]string{"status"},
		),
		backtestDays: prometheus.NewCounter(
			prometheus.CounterOpts{
				Name: "signalforge_backtest_days_total",
				Help: "Total number of simulated trading days",
			},
		),
		backtestDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "signalforge_backtest_duration_seconds",
				Help:    "Backtest duration in seconds",
				Buckets: []float64{1, 5, 10, 30, 60, 120, 300},
			},
		),
	}

	reg.MustRegister(r.opinionsTotal)
	reg.MustRegister(r.sourceErrors)
	reg.MustRegister(r.fusedSignals)
	reg.MustRegister(r.fusionDuration)
	reg.MustRegister(r.snapshotCache)
	reg.MustRegister(r.backtestsTotal)
	reg.MustRegister(r.backtestDays)
	reg.MustRegister(r.backtestDuration)

	return r
}

// RecordOpinion records one model opinion.
func (r *Registry) RecordOpinion(source, signal string) {
	r.opinionsTotal.WithLabelValues(source, signal).Inc()
}

// RecordSourceError records a failed source generation.
func (r *Registry) RecordSourceError(source string) {
	r.sourceErrors.WithLabelValues(source).Inc()
}

// RecordFusedSignal records one fused ensemble signal.
func (r *Registry) RecordFusedSignal(signal, band string, duration float64) {
	r.fusedSignals.WithLabelValues(signal, band).Inc()
	r.fusionDuration.Observe(duration)
}

// RecordCacheLookup records a snapshot cache hit or miss.
func (r *Registry) RecordCacheLookup(hit bool) {
	outcome := "miss"
	if hit {
		outcome = "hit"
	}
	r.snapshotCache.WithLabelValues(outcome).Inc()
}

// RecordBacktest records a backtest completion.
func (r *Registry) RecordBacktest(status string, days int, duration float64) {
	r.backtestsTotal.WithLabelValues(status).Inc()
	r.backtestDays.Add(float64(days))
	r.backtestDuration.Observe(duration)
}
