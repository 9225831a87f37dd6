package jobs

import (
	"context"
	"fmt"

	"github.com/wonny/rebalancer/internal/contracts"
	"github.com/wonny/rebalancer/pkg/logger"
)

// MomentumRefresher recomputes tickers and overwrites their cache entries
type MomentumRefresher interface {
	Refresh(ctx context.Context, tickers []string) []contracts.MomentumRecord
}

// MomentumWarmJob refreshes the momentum cache for a watchlist before the
// market opens
type MomentumWarmJob struct {
	service  MomentumRefresher
	tickers  []string
	schedule string
	logger   *logger.Logger
}

// NewMomentumWarmJob creates a new momentum warm-up job
func NewMomentumWarmJob(svc MomentumRefresher, tickers []string, schedule string, log *logger.Logger) *MomentumWarmJob {
	return &MomentumWarmJob{
		service:  svc,
		tickers:  tickers,
		schedule: schedule,
		logger:   log.Component("momentum_warm_job"),
	}
}

// Name returns the job name
func (j *MomentumWarmJob) Name() string {
	return "momentum_warm"
}

// Schedule returns the cron schedule
func (j *MomentumWarmJob) Schedule() string {
	return j.schedule
}

// Run recomputes every watchlist ticker, replacing live entries so the
// cache never serves a record older than one schedule period. Partial
// failures are logged; the job fails only when no ticker could be scored.
func (j *MomentumWarmJob) Run(ctx context.Context) error {
	if len(j.tickers) == 0 {
		j.logger.Debug("No warm tickers configured")
		return nil
	}

	records := j.service.Refresh(ctx, j.tickers)

	var failed []string
	for _, rec := range records {
		if rec.HasError() {
			failed = append(failed, rec.Ticker)
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"tickers": len(records),
		"failed":  len(failed),
	}).Info("Momentum cache refreshed")

	if len(failed) == len(records) {
		return fmt.Errorf("momentum warm: all %d tickers failed", len(records))
	}
	if len(failed) > 0 {
		j.logger.WithField("failed_tickers", failed).Warn("Some tickers could not be scored")
	}
	return nil
}
