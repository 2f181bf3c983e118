// Package metrics exposes the Prometheus instrumentation for the TAIGA
// optimization engine and its HTTP surface.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "taiga"

// Metrics bundles the engine-level collectors. A nil *Metrics is valid and
// records nothing, so instrumentation stays optional in tests.
type Metrics struct {
	evaluations   *prometheus.CounterVec
	generations   *prometheus.CounterVec
	tasksFinished prometheus.Counter
	activeRuns    prometheus.Gauge
}

// New registers the engine collectors with the given registerer.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		evaluations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "evaluations_total",
			Help:      "Cumulative objective function evaluations per task.",
		}, []string{"task"}),
		generations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generations_total",
			Help:      "Generations advanced per task.",
		}, []string{"task"}),
		tasksFinished: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "tasks_finished_total",
			Help:      "Tasks that reached a termination condition.",
		}),
		activeRuns: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_runs",
			Help:      "Multi-task runs currently executing.",
		}),
	}
}

// ObserveEvaluations adds n objective evaluations for a task.
func (m *Metrics) ObserveEvaluations(task, n int) {
	if m == nil {
		return
	}
	m.evaluations.WithLabelValues(strconv.Itoa(task)).Add(float64(n))
}

// ObserveGeneration counts one advanced generation for a task.
func (m *Metrics) ObserveGeneration(task int) {
	if m == nil {
		return
	}
	m.generations.WithLabelValues(strconv.Itoa(task)).Inc()
}

// ObserveTaskFinished counts one finished task.
func (m *Metrics) ObserveTaskFinished() {
	if m == nil {
		return
	}
	m.tasksFinished.Inc()
}

// RunStarted marks one run as active.
func (m *Metrics) RunStarted() {
	if m == nil {
		return
	}
	m.activeRuns.Inc()
}

// RunStopped marks one run as no longer active.
func (m *Metrics) RunStopped() {
	if m == nil {
		return
	}
	m.activeRuns.Dec()
}
