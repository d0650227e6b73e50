// Package metrics exposes download counters and durations to Prometheus.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vertextoedge/mirror-bot/internal/port"
)

// PrometheusMetrics implements port.Metrics
type PrometheusMetrics struct {
	downloadsTotal  *prometheus.CounterVec
	durationSeconds  *prometheus.HistogramVec
	inProgress      prometheus.Gauge
}

// Ensure PrometheusMetrics implements port.Metrics
var _ port.Metrics = (*PrometheusMetrics)(nil)

// New creates the collectors with the namespace prefix and registers them with reg.
// A nil reg uses prometheus.DefaultRegisterer. It panics on duplicate registration.
func New(namespace string, reg prometheus.Registerer) *PrometheusMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &PrometheusMetrics{
		downloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "downloads_total",
				Help:      "Finished mirror downloads by source and status",
			},
			[]string{"source", "status"},
		),
		// 1s to about 5.5h
		durationSeconds: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "download_duration_seconds",
				Help:      "Duration of mirror downloads",
				Buckets:   prometheus.ExponentialBuckets(1, 3, 10),
			},
			[]string{"source"},
		),
		inProgress: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "downloads_in_progress",
				Help:      "Mirror downloads currently running",
			},
		),
	}

	reg.MustRegister(m.downloadsTotal, m.durationSeconds, m.inProgress)
	return m
}

// DownloadStarted increments the in-progress gauge
func (m *PrometheusMetrics) DownloadStarted(source string) {
	m.inProgress.Inc()
}

// DownloadFinished counts the outcome and observes the duration
func (m *PrometheusMetrics) DownloadFinished(source, status string, elapsed time.Duration) {
	m.inProgress.Dec()
	m.downloadsTotal.WithLabelValues(source, status).Inc()
	m.durationSeconds.WithLabelValues(source).Observe(elapsed.Seconds())
}
