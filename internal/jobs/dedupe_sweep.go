package jobs

import (
	"log/slog"
	"time"

	"musicpage/internal/metrics"
	"musicpage/internal/pkg/dedupe"
)

// DedupeSweepJob drops expired entries from the in-memory dedupe store.
type DedupeSweepJob struct {
	sweeper dedupe.Sweeper
	maxAge  time.Duration
	metrics *metrics.Metrics
	logger  *slog.Logger
}

func NewDedupeSweepJob(sweeper dedupe.Sweeper, maxAge time.Duration, m *metrics.Metrics, logger *slog.Logger) *DedupeSweepJob {
	return &DedupeSweepJob{
		sweeper: sweeper,
		maxAge:  maxAge,
		metrics: m,
		logger:  logger,
	}
}

func (j *DedupeSweepJob) Name() string { return "dedupe_sweep" }

// Run removes entries older than the dedupe window.
func (j *DedupeSweepJob) Run() error {
	removed := j.sweeper.Sweep(j.maxAge)
	j.metrics.RecordSwept(removed)
	if removed > 0 {
		j.logger.Debug("Swept dedupe entries", slog.Int("removed", removed))
	}
	return nil
}
