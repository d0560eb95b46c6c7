package snapkeeper

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "snapkeeper"

// Run outcomes used as the "outcome" label of the runs counter.
const (
	OutcomeOK     = "ok"
	OutcomeErrors = "errors"
	OutcomeFatal  = "fatal"
)

// Metrics exposes rotation results as Prometheus metrics. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	runs            *prometheus.CounterVec
	created         *prometheus.CounterVec
	createFailed    *prometheus.CounterVec
	deleted         *prometheus.CounterVec
	deleteFailed    *prometheus.CounterVec
	lastRun         *prometheus.GaugeVec
	lastRunDuration *prometheus.GaugeVec
}

// NewMetrics creates the rotation metrics and registers them with reg.
// Passing a nil Registerer creates unregistered metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "runs_total",
			Help:      "Total number of rotation runs by period and outcome.",
		}, []string{"period", "outcome"}),
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "snapshots_created_total",
			Help:      "Total number of snapshots created.",
		}, []string{"period"}),
		createFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "snapshot_create_failures_total",
			Help:      "Total number of volumes whose snapshot could not be created.",
		}, []string{"period"}),
		deleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "snapshots_deleted_total",
			Help:      "Total number of snapshots deleted by retention.",
		}, []string{"period"}),
		deleteFailed: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "snapshot_delete_failures_total",
			Help:      "Total number of snapshots retention failed to delete.",
		}, []string{"period"}),
		lastRun: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last run of a period finished.",
		}, []string{"period"}),
		lastRunDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_duration_seconds",
			Help:      "Duration of the last run of a period.",
		}, []string{"period"}),
	}
	if reg != nil {
		reg.MustRegister(
			m.runs, m.created, m.createFailed, m.deleted,
			m.deleteFailed, m.lastRun, m.lastRunDuration,
		)
	}
	return m
}

// Observe records a finished run. runErr is the error returned by the
// run, if any.
func (m *Metrics) Observe(report *RunReport, runErr error) {
	if m == nil || report == nil {
		return
	}
	period := string(report.Period)
	outcome := OutcomeOK
	switch {
	case runErr != nil:
		outcome = OutcomeFatal
	case report.HasErrors():
		outcome = OutcomeErrors
	}
	m.runs.WithLabelValues(period, outcome).Inc()
	m.created.WithLabelValues(period).Add(float64(report.Created))
	m.createFailed.WithLabelValues(period).Add(float64(report.CreateFailed))
	m.deleted.WithLabelValues(period).Add(float64(report.Deleted))
	m.deleteFailed.WithLabelValues(period).Add(float64(report.DeleteFailed))
	if !report.FinishedAt.IsZero() {
		m.lastRun.WithLabelValues(period).Set(float64(report.FinishedAt.Unix()))
		m.lastRunDuration.WithLabelValues(period).Set(report.FinishedAt.Sub(report.StartedAt).Seconds())
	}
}
