package monitoring

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome labels for the completed counter.
const (
	OutcomeDelivered = "delivered"
	OutcomeFailed    = "failed"
)

// Metrics are the pipeline's Prometheus instruments.
type Metrics struct {
	Submitted prometheus.Counter
	Completed *prometheus.CounterVec // label: outcome
	Failures  *prometheus.CounterVec // label: kind
	Duration  *prometheus.HistogramVec
	InFlight  prometheus.Gauge
	Stale     prometheus.Counter
}

// NewMetrics registers the pipeline instruments on reg. A nil reg gives
// working but unregistered instruments.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Submitted: f.NewCounter(prometheus.CounterOpts{
			Namespace: "polarview",
			Name:      "requests_submitted_total",
			Help:      "Number of processing requests submitted.",
		}),
		Completed: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "polarview",
			Name:      "requests_completed_total",
			Help:      "Number of processing requests that reached a terminal state.",
		}, []string{"outcome"}),
		Failures: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "polarview",
			Name:      "request_failures_total",
			Help:      "Failed requests by error kind.",
		}, []string{"kind"}),
		Duration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "polarview",
			Name:      "stage_duration_seconds",
			Help:      "Time spent per processing stage.",
			Buckets:   prometheus.ExponentialBuckets(0.0005, 2, 14),
		}, []string{"stage"}),
		InFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: "polarview",
			Name:      "requests_in_flight",
			Help:      "Requests submitted but not yet terminal.",
		}),
		Stale: f.NewCounter(prometheus.CounterOpts{
			Namespace: "polarview",
			Name:      "results_stale_total",
			Help:      "Results discarded because a newer request was already displayed.",
		}),
	}
}

// Handler exposes the metrics gathered by g.
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
