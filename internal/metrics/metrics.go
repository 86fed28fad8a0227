package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "policygate"

// Collector holds the Prometheus instruments for the moderation pipeline.
type Collector struct {
	registry *prometheus.Registry

	decisions        *prometheus.CounterVec
	stageFailures    *prometheus.CounterVec
	decideLatency    prometheus.Histogram
	policiesIngested prometheus.Counter
}

// NewCollector creates a collector backed by the given registry.
// If registry is nil, a fresh one is used.
func NewCollector(registry *prometheus.Registry) *Collector {
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	c := &Collector{
		registry: registry,
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "decisions_total",
			Help:      "Moderation decisions by verdict and provider role.",
		}, []string{"verdict", "provider"}),
		stageFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stage_failures_total",
			Help:      "Pipeline stage failures by stage name.",
		}, []string{"stage"}),
		decideLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "decide_duration_seconds",
			Help:      "End-to-end latency of one decide call, retries and fallback included.",
			// Optimized for LLM request latencies (100ms - 30s)
			Buckets: []float64{0.1, 0.25, 0.5, 1.0, 2.0, 5.0, 10.0, 30.0},
		}),
		policiesIngested: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "policies_ingested_total",
			Help:      "Policy records upserted into the index.",
		}),
	}

	registry.MustRegister(c.decisions, c.stageFailures, c.decideLatency, c.policiesIngested)
	return c
}

func (c *Collector) RecordDecision(verdict, provider string, latency time.Duration) {
	c.decisions.WithLabelValues(verdict, provider).Inc()
	c.decideLatency.Observe(latency.Seconds())
}

func (c *Collector) RecordStageFailure(stage string) {
	c.stageFailures.WithLabelValues(stage).Inc()
}

func (c *Collector) RecordIngested(n int) {
	c.policiesIngested.Add(float64(n))
}

// Handler serves the registry in the Prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{})
}
