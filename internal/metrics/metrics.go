// Package metrics exposes Prometheus instrumentation for the approval
// workflow and the document pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	// Transitions counts completed state transitions by kind and action.
	Transitions *prometheus.CounterVec

	// TokenFailures counts approval tokens that failed verification or
	// arrived at the wrong endpoint.
	TokenFailures prometheus.Counter

	// PipelineFailures counts render/hash/upload failures.
	PipelineFailures prometheus.Counter

	// PipelineDuration observes how long artifact generation takes.
	PipelineDuration prometheus.Histogram
}

// New registers the workflow metrics. A nil registerer wires them to a
// throwaway registry so tests can pass nil.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}

	return &Metrics{
		Transitions: promauto.With(reg).NewCounterVec(prometheus.CounterOpts{
			Name: "procure_transitions_total",
			Help: "Completed document state transitions.",
		}, []string{"kind", "action"}),

		TokenFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "procure_token_failures_total",
			Help: "Approval tokens rejected at verification.",
		}),

		PipelineFailures: promauto.With(reg).NewCounter(prometheus.CounterOpts{
			Name: "procure_pipeline_failures_total",
			Help: "Artifact generation failures.",
		}),

		PipelineDuration: promauto.With(reg).NewHistogram(prometheus.HistogramOpts{
			Name:    "procure_pipeline_duration_seconds",
			Help:    "Histogram of artifact generation latencies.",
			Buckets: []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}),
	}
}
