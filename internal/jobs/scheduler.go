package jobs

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"musicpage/internal/config"
	"musicpage/internal/metrics"
	"musicpage/internal/pkg/dedupe"
)

// Job is a unit of periodic background work.
type Job interface {
	Name() string
	Run() error
}

// WALCheckpointer is implemented by the database manager.
type WALCheckpointer interface {
	CheckpointWAL(mode string) error
}

type scheduledJob struct {
	job      Job
	interval time.Duration
	ticker   *time.Ticker
}

// Scheduler is responsible for running background jobs
type Scheduler struct {
	logger    *slog.Logger
	ctx       context.Context
	cancel    context.CancelFunc
	enabled   bool
	isRunning bool
	wg        sync.WaitGroup

	// Mutex to prevent concurrent job executions
	processingMutex sync.Mutex
	isProcessing    bool

	jobs []*scheduledJob
}

// NewScheduler wires the application's jobs. sweeper may be nil when the
// dedupe store expires its own entries.
func NewScheduler(dbManager WALCheckpointer, sweeper dedupe.Sweeper, logger *slog.Logger) (*Scheduler, error) {
	ctx, cancel := context.WithCancel(context.Background())
	cfg := config.GetConfig()

	s := &Scheduler{
		logger:  logger,
		ctx:     ctx,
		cancel:  cancel,
		enabled: true,
	}

	interval := time.Duration(cfg.JobIntervalSeconds) * time.Second
	if sweeper != nil {
		s.Add(NewDedupeSweepJob(sweeper, cfg.DedupeWindow(), metrics.NewMetrics(), logger), interval)
	}
	if dbManager != nil {
		s.Add(NewCheckpointJob(dbManager, logger), time.Hour)
	}

	return s, nil
}

// Add registers a job. Jobs added after Start are not run.
func (s *Scheduler) Add(job Job, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	s.jobs = append(s.jobs, &scheduledJob{job: job, interval: interval})
}

// executeJobSafely runs a job only if no other job is currently executing
func (s *Scheduler) executeJobSafely(job Job) {
	s.processingMutex.Lock()
	if s.isProcessing {
		s.logger.Debug("Skipping job execution - previous job still running", slog.String("job", job.Name()))
		s.processingMutex.Unlock()
		return
	}
	s.isProcessing = true
	s.processingMutex.Unlock()

	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("Panic recovered in background job",
				slog.String("job", job.Name()),
				slog.Any("panic", r))
		}

		s.processingMutex.Lock()
		s.isProcessing = false
		s.processingMutex.Unlock()
	}()

	if err := job.Run(); err != nil {
		s.logger.Error("Error executing job", slog.String("job", job.Name()), slog.Any("error", err))
	}
}

// Start begins all background jobs.
// Implements cartridge.BackgroundWorker interface.
func (s *Scheduler) Start() error {
	if !s.enabled {
		s.logger.Info("Background jobs are disabled.")
		return nil
	}

	if s.isRunning {
		s.logger.Info("Background jobs already running.")
		return nil
	}

	s.logger.Info("Starting background jobs...", slog.Int("jobs", len(s.jobs)))
	s.isRunning = true

	for _, sj := range s.jobs {
		s.startJob(sj)
	}

	return nil
}

func (s *Scheduler) startJob(sj *scheduledJob) {
	s.logger.Info("Starting job", slog.String("job", sj.job.Name()), slog.Duration("interval", sj.interval))
	sj.ticker = time.NewTicker(sj.interval)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-sj.ticker.C:
				s.executeJobSafely(sj.job)
			case <-s.ctx.Done():
				s.logger.Info("Job stopped", slog.String("job", sj.job.Name()))
				return
			}
		}
	}()
}

// Stop halts all background jobs.
// Implements cartridge.BackgroundWorker interface.
func (s *Scheduler) Stop() {
	s.logger.Info("Stopping background jobs...")
	s.enabled = false

	for _, sj := range s.jobs {
		if sj.ticker != nil {
			sj.ticker.Stop()
		}
	}

	s.cancel()
	s.wg.Wait()
	s.isRunning = false
	s.logger.Info("Background jobs stopped")
}

// IsRunning returns whether jobs are currently running
func (s *Scheduler) IsRunning() bool {
	return s.isRunning
}

// RunAll executes every registered job once, in order.
func (s *Scheduler) RunAll() {
	for _, sj := range s.jobs {
		s.executeJobSafely(sj.job)
	}
}
