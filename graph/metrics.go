package graph

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics records Prometheus instrumentation for the engine and scheduler,
// grounded on the teacher's graph/metrics.go (PrometheusMetrics): a small
// struct of promauto-registered collectors built once per registry and
// threaded through via WithMetrics.
type Metrics struct {
	runsInFlight           prometheus.Gauge
	scheduledRepeaters     prometheus.Gauge
	nodeStepDuration       *prometheus.HistogramVec
	resolverInvalidations  prometheus.Counter
	schedulerCancellations prometheus.Counter
	executorErrors         *prometheus.CounterVec
}

// NewMetrics registers the engine's collectors against reg and returns the
// handle the Engine and Scheduler use to record observations. Passing a
// fresh prometheus.NewRegistry() per Engine avoids duplicate-registration
// panics in tests that build more than one Engine.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		runsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Name: "flowrunner_runs_in_flight",
			Help: "Number of flow runs currently executing.",
		}),
		scheduledRepeaters: factory.NewGauge(prometheus.GaugeOpts{
			Name: "flowrunner_scheduled_repeaters",
			Help: "Number of background repeater runs currently scheduled.",
		}),
		nodeStepDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "flowrunner_node_step_duration_seconds",
			Help:    "Duration of a single node's receive+send invocation.",
			Buckets: prometheus.DefBuckets,
		}, []string{"module_id", "node_type_id"}),
		resolverInvalidations: factory.NewCounter(prometheus.CounterOpts{
			Name: "flowrunner_resolver_cache_invalidations_total",
			Help: "Number of times the executor resolver cache was invalidated.",
		}),
		schedulerCancellations: factory.NewCounter(prometheus.CounterOpts{
			Name: "flowrunner_scheduler_cancellations_total",
			Help: "Number of background repeater runs cancelled.",
		}),
		executorErrors: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "flowrunner_executor_errors_total",
			Help: "Number of node executions that returned an error.",
		}, []string{"module_id", "node_type_id"}),
	}
}

func (m *Metrics) runStarted() {
	if m == nil {
		return
	}
	m.runsInFlight.Inc()
}

func (m *Metrics) runFinished() {
	if m == nil {
		return
	}
	m.runsInFlight.Dec()
}

func (m *Metrics) repeaterScheduled() {
	if m == nil {
		return
	}
	m.scheduledRepeaters.Inc()
}

func (m *Metrics) repeaterCancelled() {
	if m == nil {
		return
	}
	m.scheduledRepeaters.Dec()
	m.schedulerCancellations.Inc()
}

func (m *Metrics) observeNodeStep(moduleID, nodeTypeID string, seconds float64) {
	if m == nil {
		return
	}
	m.nodeStepDuration.WithLabelValues(moduleID, nodeTypeID).Observe(seconds)
}

func (m *Metrics) resolverInvalidated() {
	if m == nil {
		return
	}
	m.resolverInvalidations.Inc()
}

func (m *Metrics) executorErrored(moduleID, nodeTypeID string) {
	if m == nil {
		return
	}
	m.executorErrors.WithLabelValues(moduleID, nodeTypeID).Inc()
}
