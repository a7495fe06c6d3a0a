package gateway

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics collects the cron-specific Prometheus series the gateway
// exposes at /metrics.
type Metrics struct {
	runsTotal            *prometheus.CounterVec
	webhookFailuresTotal prometheus.Counter
	jobsScheduled        prometheus.Gauge
}

// NewMetrics registers the gateway's collectors on reg and returns the
// handle used to record observations. Passing a fresh *prometheus.Registry
// per Gateway keeps tests free of global-registry collisions.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		runsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "openclaw_cron_runs_total",
			Help: "Total number of cron.run dispatches, labeled by outcome status.",
		}, []string{"status"}),
		webhookFailuresTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "openclaw_cron_webhook_failures_total",
			Help: "Total number of webhook deliveries that did not succeed.",
		}),
		jobsScheduled: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "openclaw_cron_jobs_scheduled",
			Help: "Number of jobs currently present in the crontab.",
		}),
	}
	reg.MustRegister(m.runsTotal, m.webhookFailuresTotal, m.jobsScheduled)
	return m
}

// RecordRun increments the run counter for the given outcome status.
func (m *Metrics) RecordRun(status string) {
	m.runsTotal.WithLabelValues(status).Inc()
}

// RecordWebhookFailure increments the webhook failure counter.
func (m *Metrics) RecordWebhookFailure() {
	m.webhookFailuresTotal.Inc()
}

// SetJobsScheduled sets the current job count gauge.
func (m *Metrics) SetJobsScheduled(n int) {
	m.jobsScheduled.Set(float64(n))
}
