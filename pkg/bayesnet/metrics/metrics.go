package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for inference calls.
type Metrics struct {
	// Query outcomes by method and outcome ("ok" or an error class)
	Queries *prometheus.CounterVec

	// Query latency by method
	QueryLatency *prometheus.HistogramVec

	// Share of rejection samples consistent with the evidence
	AcceptanceRatio prometheus.Histogram
}

// New creates Metrics registered on reg. Pass prometheus.DefaultRegisterer
// in a long-running process, or a fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Queries: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bayesnet_queries_total",
			Help: "Total inference queries by method and outcome",
		}, []string{"method", "outcome"}),

		QueryLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bayesnet_query_duration_seconds",
			Help:    "Duration of inference queries by method",
			Buckets: []float64{0.0001, 0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"method"}),

		AcceptanceRatio: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "bayesnet_rejection_acceptance_ratio",
			Help:    "Fraction of rejection samples that matched the evidence",
			Buckets: []float64{0.001, 0.01, 0.05, 0.1, 0.25, 0.5, 0.75, 1},
		}),
	}
}

// ObserveQuery records the outcome and latency of one query.
func (m *Metrics) ObserveQuery(method, outcome string, d time.Duration) {
	if m != nil {
		m.Queries.WithLabelValues(method, outcome).Inc()
		m.QueryLatency.WithLabelValues(method).Observe(d.Seconds())
	}
}

// ObserveAcceptance records the acceptance ratio of a rejection run.
func (m *Metrics) ObserveAcceptance(ratio float64) {
	if m != nil {
		m.AcceptanceRatio.Observe(ratio)
	}
}
