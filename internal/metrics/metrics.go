// Package metrics declares the Prometheus collectors the sample source
// and its demo wiring report against: one "hlssource" namespace of
// plain package vars, registered once by the owning binary.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	LoadStartsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hlssource",
		Name:      "load_starts_total",
		Help:      "Total number of chunk loads started, by chunk type.",
	}, []string{"chunk_type"})

	LoadCompletionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hlssource",
		Name:      "load_completions_total",
		Help:      "Total number of chunk loads completed, by chunk type.",
	}, []string{"chunk_type"})

	LoadErrorsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hlssource",
		Name:      "load_errors_total",
		Help:      "Total number of chunk load errors, by chunk type and whether the chunk source handled it.",
	}, []string{"chunk_type", "handled"})

	LoadRetriesTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "hlssource",
		Name:      "load_retries_total",
		Help:      "Total number of backoff-and-retry cycles entered after a load error.",
	})

	LoadFatalErrorsTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "hlssource",
		Name:      "load_fatal_errors_total",
		Help:      "Total number of loads that exceeded the retry threshold and were rethrown.",
	})

	BytesLoadedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "hlssource",
		Name:      "bytes_loaded_total",
		Help:      "Total bytes loaded across all chunks.",
	})

	LoadDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "hlssource",
		Name:      "load_duration_seconds",
		Help:      "Duration of completed chunk loads in seconds.",
		Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	TrackGroupsActive = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "hlssource",
		Name:      "track_groups_enabled",
		Help:      "Number of currently enabled track groups across all sources.",
	})

	StateTransitionsTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "hlssource",
		Name:      "state_transitions_total",
		Help:      "Total number of sample source state transitions, by source state.",
	}, []string{"state"})
)

// Register adds every collector declared in this package to reg. The
// caller owns the registerer (a prometheus.Registry in tests, the
// default registerer in cmd/demo) and decides when this is called.
func Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		LoadStartsTotal,
		LoadCompletionsTotal,
		LoadErrorsTotal,
		LoadRetriesTotal,
		LoadFatalErrorsTotal,
		BytesLoadedTotal,
		LoadDuration,
		TrackGroupsActive,
		StateTransitionsTotal,
	}
	for _, c := range collectors {
		if err := reg.Register(c); err != nil {
			return err
		}
	}
	return nil
}
