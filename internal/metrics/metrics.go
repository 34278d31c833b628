package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// Registry holds the application-specific Prometheus collectors.
	Registry = prometheus.NewRegistry()

	pipelineRuns = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "banking",
			Subsystem: "pipeline",
			Name:      "runs_total",
			Help:      "Total number of pipeline runs by outcome.",
		},
		[]string{"outcome"},
	)

	stageDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "banking",
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of pipeline stages.",
			Buckets:   prometheus.ExponentialBuckets(0.001, 2, 14), // 1ms to ~16s
		},
		[]string{"stage"},
	)

	settledTransactions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "banking",
			Subsystem: "settlement",
			Name:      "transactions_total",
			Help:      "Total number of settled transactions, split by internal and external target.",
		},
		[]string{"kind"},
	)

	publishFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "banking",
			Subsystem: "settlement",
			Name:      "publish_failures_total",
			Help:      "Settlement events that could not be published.",
		},
	)
)

func init() {
	Registry.MustRegister(
		pipelineRuns,
		stageDuration,
		settledTransactions,
		publishFailures,
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewGoCollector(),
	)
}

// Handler returns an HTTP handler exposing the registered Prometheus metrics.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{})
}

// RecordRun counts a finished pipeline run. outcome is "success",
// "invalid" or "failed".
func RecordRun(outcome string) {
	pipelineRuns.WithLabelValues(outcome).Inc()
}

// ObserveStage records how long a stage took.
func ObserveStage(stage string, duration time.Duration) {
	if duration <= 0 {
		duration = time.Microsecond
	}
	stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

// RecordSettlement counts one settled transaction.
func RecordSettlement(external bool) {
	kind := "internal"
	if external {
		kind = "external"
	}
	settledTransactions.WithLabelValues(kind).Inc()
}

// RecordPublishFailure counts one settlement event the publisher dropped.
func RecordPublishFailure() {
	publishFailures.Inc()
}
