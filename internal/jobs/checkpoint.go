package jobs

import (
	"fmt"
	"log/slog"
)

// CheckpointJob folds the SQLite WAL back into the main database file so it
// does not grow without bound under a steady insert load.
type CheckpointJob struct {
	db     WALCheckpointer
	logger *slog.Logger
}

func NewCheckpointJob(db WALCheckpointer, logger *slog.Logger) *CheckpointJob {
	return &CheckpointJob{db: db, logger: logger}
}

func (j *CheckpointJob) Name() string { return "wal_checkpoint" }

func (j *CheckpointJob) Run() error {
	if err := j.db.CheckpointWAL("PASSIVE"); err != nil {
		return fmt.Errorf("wal checkpoint failed: %w", err)
	}
	j.logger.Debug("WAL checkpoint completed")
	return nil
}
