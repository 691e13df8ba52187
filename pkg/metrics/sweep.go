package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Sweep job outcomes.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

var sweepBuckets = []float64{.01, .05, .1, .25, .5, 1, 2.5, 5, 10, 30, 60}

// CronJobMetrics instruments the background sweeps. A nil value records nothing.
type CronJobMetrics struct {
	runs    *prometheus.CounterVec
	latency *prometheus.HistogramVec
	skipped *prometheus.CounterVec
}

func NewCronJobMetrics(reg prometheus.Registerer) *CronJobMetrics {
	if reg == nil {
		return nil
	}
	m := &CronJobMetrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sweep_job_runs_total",
			Help: "Sweep job runs by job and outcome.",
		}, []string{"job", "outcome"}),
		latency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "sweep_job_duration_seconds",
			Help:    "Wall time of one sweep job run.",
			Buckets: sweepBuckets,
		}, []string{"job"}),
		skipped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "sweep_cycles_skipped_total",
			Help: "Sweep cycles skipped because another worker held the lock.",
		}, []string{"scheduler"}),
	}
	reg.MustRegister(m.runs, m.latency, m.skipped)
	return m
}

func (m *CronJobMetrics) ObserveRun(job string, took time.Duration, err error) {
	if m == nil {
		return
	}
	outcome := OutcomeSuccess
	if err != nil {
		outcome = OutcomeFailure
	}
	job = normalizeLabel(job)
	m.runs.WithLabelValues(job, outcome).Inc()
	m.latency.WithLabelValues(job).Observe(took.Seconds())
}

func (m *CronJobMetrics) IncSkipped(scheduler string) {
	if m == nil {
		return
	}
	m.skipped.WithLabelValues(normalizeLabel(scheduler)).Inc()
}

// Runs exposes the run counter for assertions.
func (m *CronJobMetrics) Runs() *prometheus.CounterVec { return m.runs }

// Skipped exposes the skipped-cycle counter for assertions.
func (m *CronJobMetrics) Skipped() *prometheus.CounterVec { return m.skipped }

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
