package jobs

import (
	"context"
	"time"

	"github.com/wonny/rebalancer/pkg/logger"
)

// RunPruner deletes old optimization runs
type RunPruner interface {
	Prune(ctx context.Context, cutoff time.Time) (int64, error)
}

// RunPruneJob trims the optimization audit log to a retention window
type RunPruneJob struct {
	runs      RunPruner
	retention time.Duration
	schedule  string
	now       func() time.Time
	logger    *logger.Logger
}

// NewRunPruneJob creates a new run prune job
func NewRunPruneJob(runs RunPruner, retention time.Duration, schedule string, log *logger.Logger) *RunPruneJob {
	return &RunPruneJob{
		runs:      runs,
		retention: retention,
		schedule:  schedule,
		now:       time.Now,
		logger:    log.Component("run_prune_job"),
	}
}

// Name returns the job name
func (j *RunPruneJob) Name() string {
	return "run_prune"
}

// Schedule returns the cron schedule
func (j *RunPruneJob) Schedule() string {
	return j.schedule
}

// Run deletes runs older than the retention window
func (j *RunPruneJob) Run(ctx context.Context) error {
	cutoff := j.now().Add(-j.retention)

	removed, err := j.runs.Prune(ctx, cutoff)
	if err != nil {
		return err
	}

	if removed > 0 {
		j.logger.WithFields(map[string]interface{}{
			"removed": removed,
			"cutoff":  cutoff.Format(time.RFC3339),
		}).Info("Optimization runs pruned")
	}
	return nil
}
