// Package metrics holds the Prometheus collectors of the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "marketing"

// Result label values
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Failure class label values
const (
	ClassInvalidInput = "invalid_input"
	ClassInvariant    = "invariant"
)

// Metrics groups every collector. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	PlansGenerated         *prometheus.CounterVec
	PlanFailures           *prometheus.CounterVec
	VisibilityComputations *prometheus.CounterVec
	VisibilityDuration     prometheus.Histogram
	BatchBusinessFailures  prometheus.Counter
	JobsEnqueued           *prometheus.CounterVec
}

// New creates the collectors and registers them on a fresh registry
// together with the Go runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		PlansGenerated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plans_generated_total",
			Help:      "Campaign plans generated, by budget tier.",
		}, []string{"tier"}),
		PlanFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "plan_failures_total",
			Help:      "Campaign plan requests that failed, by failure class.",
		}, []string{"class"}),
		VisibilityComputations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "visibility_computations_total",
			Help:      "Visibility metric computations, by result.",
		}, []string{"result"}),
		VisibilityDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "visibility_compute_seconds",
			Help:      "Duration of a full visibility metric computation.",
			Buckets:   prometheus.DefBuckets,
		}),
		BatchBusinessFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "batch_business_failures_total",
			Help:      "Per-business failures during batch visibility runs.",
		}),
		JobsEnqueued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "metric_jobs_enqueued_total",
			Help:      "Visibility metric jobs handed to a transport, by transport.",
		}, []string{"transport"}),
	}

	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.PlansGenerated,
		m.PlanFailures,
		m.VisibilityComputations,
		m.VisibilityDuration,
		m.BatchBusinessFailures,
		m.JobsEnqueued,
	)

	return m
}

// Handler serves the registry in the Prometheus exposition format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Registry returns the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

func (m *Metrics) PlanGenerated(tier string) {
	if m == nil {
		return
	}
	m.PlansGenerated.WithLabelValues(tier).Inc()
}

func (m *Metrics) PlanFailed(class string) {
	if m == nil {
		return
	}
	m.PlanFailures.WithLabelValues(class).Inc()
}

// VisibilityComputed records one ComputeAllMetrics run
func (m *Metrics) VisibilityComputed(seconds float64, err error) {
	if m == nil {
		return
	}
	result := ResultSuccess
	if err != nil {
		result = ResultFailure
	}
	m.VisibilityComputations.WithLabelValues(result).Inc()
	m.VisibilityDuration.Observe(seconds)
}

func (m *Metrics) BatchBusinessFailed() {
	if m == nil {
		return
	}
	m.BatchBusinessFailures.Inc()
}

func (m *Metrics) JobEnqueued(transport string) {
	if m == nil {
		return
	}
	m.JobsEnqueued.WithLabelValues(transport).Inc()
}
