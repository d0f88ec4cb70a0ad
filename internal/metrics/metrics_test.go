package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNewMetricsIsSingleton(t *testing.T) {
	assert.Same(t, NewMetrics(), NewMetrics())
}

func TestRecordTrack(t *testing.T) {
	m := NewMetrics()
	before := testutil.ToFloat64(m.TrackEvents.WithLabelValues("duplicate"))

	m.RecordTrack("duplicate")
	m.RecordTrack("duplicate")

	assert.Equal(t, before+2, testutil.ToFloat64(m.TrackEvents.WithLabelValues("duplicate")))
}

func TestRecordSwept(t *testing.T) {
	m := NewMetrics()
	before := testutil.ToFloat64(m.DedupeSwept)

	m.RecordSwept(0)
	m.RecordSwept(3)

	assert.Equal(t, before+3, testutil.ToFloat64(m.DedupeSwept))
}

func TestObserveReport(t *testing.T) {
	m := NewMetrics()
	m.ObserveReport("overview", time.Now().Add(-10*time.Millisecond))

	assert.Equal(t, 1, testutil.CollectAndCount(m.ReportDuration))
}

func TestNilMetrics(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.RecordTrack("accepted")
		m.ObserveReport("overview", time.Now())
		m.RecordSwept(1)
	})
}
