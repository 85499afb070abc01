package onboarding

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records phase and rollback outcomes. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	phaseTotal      *prometheus.CounterVec
	phaseDuration   *prometheus.HistogramVec
	rollbackTotal   *prometheus.CounterVec
	runsTotal       *prometheus.CounterVec
	lastRunStatus   *prometheus.GaugeVec
	completedPhases *prometheus.GaugeVec
}

// NewMetrics creates metrics registered on a private registry.
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		phaseTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "onboard",
				Subsystem: "phase",
				Name:      "results_total",
				Help:      "Total number of phase executions by result",
			},
			[]string{"node", "phase", "result"},
		),
		phaseDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "onboard",
				Subsystem: "phase",
				Name:      "duration_seconds",
				Help:      "Duration of phase actions in seconds",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 12), // 1s to ~34min
			},
			[]string{"node", "phase"},
		),
		rollbackTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "onboard",
				Subsystem: "rollback",
				Name:      "results_total",
				Help:      "Total number of compensating actions by result",
			},
			[]string{"node", "phase", "result"},
		),
		runsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "onboard",
				Name:      "runs_total",
				Help:      "Total number of runs by mode and result",
			},
			[]string{"node", "mode", "result"},
		),
		lastRunStatus: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "onboard",
				Name:      "last_run_success",
				Help:      "1 if the last run finished successfully, 0 otherwise",
			},
			[]string{"node", "mode"},
		),
		completedPhases: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "onboard",
				Name:      "completed_phases",
				Help:      "Number of completed phases after the last run",
			},
			[]string{"node"},
		),
	}
	m.registry.MustRegister(m.phaseTotal, m.phaseDuration, m.rollbackTotal, m.runsTotal, m.lastRunStatus, m.completedPhases)
	return m
}

// Gatherer exposes the metrics for tests and exporters.
func (m *Metrics) Gatherer() prometheus.Gatherer { return m.registry }

// WriteTextfile writes the metrics in Prometheus text format for the
// node-exporter textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if m == nil || path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, m.registry)
}

func (m *Metrics) observePhase(node, phase string, status StepStatus, d time.Duration) {
	if m == nil {
		return
	}
	m.phaseTotal.WithLabelValues(node, phase, string(status)).Inc()
	if status != StepSkipped {
		m.phaseDuration.WithLabelValues(node, phase).Observe(d.Seconds())
	}
}

func (m *Metrics) observeRollback(node, phase string, status StepStatus) {
	if m == nil {
		return
	}
	m.rollbackTotal.WithLabelValues(node, phase, string(status)).Inc()
}

func (m *Metrics) observeRun(node, mode string, ok bool, completed int) {
	if m == nil {
		return
	}
	result, v := "failure", 0.0
	if ok {
		result, v = "success", 1.0
	}
	m.runsTotal.WithLabelValues(node, mode, result).Inc()
	m.lastRunStatus.WithLabelValues(node, mode).Set(v)
	if mode == "run" {
		m.completedPhases.WithLabelValues(node).Set(float64(completed))
	}
}
