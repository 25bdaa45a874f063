// Package metrics exposes the body controller as Prometheus metrics. A
// Metrics value plugs into the dispatcher as a body.Observer and into the
// motion controller and actuator bank through their trace hooks.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/teslashibe/go-sapien/pkg/body"
	"github.com/teslashibe/go-sapien/pkg/motion"
)

const namespace = "sapien"

// Metrics owns its registry so tests and multiple bodies never collide.
type Metrics struct {
	reg *prometheus.Registry

	submitted   *prometheus.CounterVec
	outcomes    *prometheus.CounterVec
	duration    *prometheus.HistogramVec
	discarded   *prometheus.CounterVec
	stops       prometheus.Counter
	queueDepth  prometheus.Gauge
	turnSteps   prometheus.Histogram
	turnResults *prometheus.CounterVec
	gaitCycles  *prometheus.CounterVec
	writeErrors *prometheus.CounterVec
}

var _ body.Observer = (*Metrics)(nil)

// New registers every collector on a fresh registry. When withRuntime is
// set the Go and process collectors are registered too.
func New(withRuntime bool) *Metrics {
	m := &Metrics{
		reg: prometheus.NewRegistry(),
		submitted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_submitted_total",
			Help:      "Commands accepted into the queue.",
		}, []string{"action"}),
		outcomes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "command_outcomes_total",
			Help:      "Commands run to a terminal outcome.",
		}, []string{"action", "outcome"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "command_duration_seconds",
			Help:      "Wall time spent in each routine.",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}, []string{"action"}),
		discarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "commands_discarded_total",
			Help:      "Queued commands dropped by a stop.",
		}, []string{"action"}),
		stops: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stops_total",
			Help:      "Stop requests.",
		}),
		queueDepth: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "queue_depth",
			Help:      "Commands waiting for the worker.",
		}),
		turnSteps: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "turn_iterations",
			Help:      "Stepping iterations per finished turn.",
			Buckets:   []float64{0, 1, 2, 5, 10, 20, 40, 80, 160},
		}),
		turnResults: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Finished turns by terminal phase.",
		}, []string{"phase"}),
		gaitCycles: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gait_cycles_total",
			Help:      "Completed gait cycles.",
		}, []string{"routine"}),
		writeErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "actuator_write_errors_total",
			Help:      "Failed expander writes.",
		}, []string{"chip"}),
	}

	m.reg.MustRegister(
		m.submitted, m.outcomes, m.duration, m.discarded, m.stops,
		m.queueDepth, m.turnSteps, m.turnResults, m.gaitCycles, m.writeErrors,
	)
	if withRuntime {
		m.reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return m
}

// Registry returns the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Handler serves the exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Submitted implements body.Observer.
func (m *Metrics) Submitted(a body.ActionKind) {
	m.submitted.WithLabelValues(a.String()).Inc()
}

// Finished implements body.Observer.
func (m *Metrics) Finished(a body.ActionKind, o motion.Outcome, took time.Duration) {
	m.outcomes.WithLabelValues(a.String(), o.String()).Inc()
	m.duration.WithLabelValues(a.String()).Observe(took.Seconds())
}

// Discarded implements body.Observer.
func (m *Metrics) Discarded(a body.ActionKind) {
	m.discarded.WithLabelValues(a.String()).Inc()
}

// Stopped implements body.Observer.
func (m *Metrics) Stopped() { m.stops.Inc() }

// QueueDepth implements body.Observer.
func (m *Metrics) QueueDepth(n int) { m.queueDepth.Set(float64(n)) }

// TurnTrace is a motion.WithTurnTrace hook. Only terminal states are counted.
func (m *Metrics) TurnTrace(st motion.TurnState) {
	if !st.Phase.Terminal() {
		return
	}
	m.turnSteps.Observe(float64(st.IterationCount))
	m.turnResults.WithLabelValues(st.Phase.String()).Inc()
}

// GaitCycle is a motion.WithCycleTrace hook.
func (m *Metrics) GaitCycle(routine string, _ int) {
	m.gaitCycles.WithLabelValues(routine).Inc()
}

// WriteError is an actuator.WithWriteErrorHook hook.
func (m *Metrics) WriteError(chip int, _ error) {
	label := "primary"
	if chip == 1 {
		label = "secondary"
	}
	m.writeErrors.WithLabelValues(label).Inc()
}
