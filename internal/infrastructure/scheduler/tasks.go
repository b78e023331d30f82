package scheduler

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// SnapshotPruneTaskName names the snapshot pruning task
const SnapshotPruneTaskName = "snapshot_prune"

// SnapshotPruner deletes dashboard snapshots saved before cutoff
type SnapshotPruner interface {
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// SnapshotPruneTask drops snapshots of users who have not opened the
// dashboard within retention
func SnapshotPruneTask(repo SnapshotPruner, retention, every time.Duration, now func() time.Time, logger *zap.Logger) Task {
	if now == nil {
		now = time.Now
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return Task{
		Name:     SnapshotPruneTaskName,
		Interval: every,
		Run: func(ctx context.Context) error {
			n, err := repo.DeleteOlderThan(ctx, now().Add(-retention))
			if err != nil {
				return err
			}
			if n > 0 {
				logger.Info("Pruned dashboard snapshots", zap.Int64("deleted", n))
			}
			return nil
		},
	}
}

// Check reports the named task as failing once its last run failed with no
// retry left. A task that has not run yet is healthy.
func (s *Scheduler) Check(name string) func(ctx context.Context) error {
	return func(context.Context) error {
		job, ok := s.LastRun(name)
		if !ok || job.Status != JobStatusFailed || job.RetryCount < job.MaxRetries {
			return nil
		}
		return fmt.Errorf("%s failed after %d retries: %s", name, job.RetryCount, job.Error)
	}
}
