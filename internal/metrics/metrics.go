// Package metrics exposes Prometheus instruments for ingestion and reporting.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the application's Prometheus collectors.
type Metrics struct {
	// TrackEvents counts ingestion outcomes.
	// Labels: outcome (accepted|bot|duplicate|excluded|invalid|failed)
	TrackEvents *prometheus.CounterVec

	// ReportDuration measures report computation time in seconds.
	// Labels: report
	ReportDuration *prometheus.HistogramVec

	// DedupeSwept counts memory dedupe entries removed by the sweep job.
	DedupeSwept prometheus.Counter
}

var (
	metricsOnce     sync.Once
	metricsInstance *Metrics
)

// NewMetrics returns the process-wide metrics, registering them on first use.
func NewMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = &Metrics{
			TrackEvents: promauto.NewCounterVec(prometheus.CounterOpts{
				Name: "musicpage_track_events_total",
				Help: "Tracking beacons by ingestion outcome",
			}, []string{"outcome"}),
			ReportDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
				Name:    "musicpage_report_duration_seconds",
				Help:    "Time spent computing analytics reports",
				Buckets: []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5},
			}, []string{"report"}),
			DedupeSwept: promauto.NewCounter(prometheus.CounterOpts{
				Name: "musicpage_dedupe_swept_total",
				Help: "Expired dedupe entries removed from memory",
			}),
		}
	})
	return metricsInstance
}

// RecordTrack increments the counter for one ingestion outcome.
func (m *Metrics) RecordTrack(outcome string) {
	if m == nil || m.TrackEvents == nil {
		return
	}
	m.TrackEvents.WithLabelValues(outcome).Inc()
}

// ObserveReport records how long a report took since start.
func (m *Metrics) ObserveReport(report string, start time.Time) {
	if m == nil || m.ReportDuration == nil {
		return
	}
	m.ReportDuration.WithLabelValues(report).Observe(time.Since(start).Seconds())
}

// RecordSwept adds n swept dedupe entries.
func (m *Metrics) RecordSwept(n int) {
	if m == nil || m.DedupeSwept == nil || n <= 0 {
		return
	}
	m.DedupeSwept.Add(float64(n))
}
