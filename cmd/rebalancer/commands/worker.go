package commands

import (
	"fmt"
	"io"
	"sort"

	"github.com/spf13/cobra"

	"github.com/wonny/rebalancer/internal/scheduler"
	"github.com/wonny/rebalancer/internal/scheduler/jobs"
)

// workerCmd represents the worker command
var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "스케줄 워커",
	Long: `크론 스케줄에 따라 백그라운드 작업을 실행합니다.

이 워커는:
- WARM_TICKERS 모멘텀 캐시 예열 (WARM_CRON)
- RUN_RETENTION 보다 오래된 최적화 이력 삭제 (PRUNE_CRON, DB 필요)

Example:
  go run ./cmd/rebalancer worker
  go run ./cmd/rebalancer worker --once`,
	RunE: runWorker,
}

var workerOnce bool

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().BoolVar(&workerOnce, "once", false, "run every job once and exit")
}

// buildScheduler registers the configured jobs
func buildScheduler(a *app) (*scheduler.Scheduler, error) {
	s := scheduler.New(a.log)

	warm := jobs.NewMomentumWarmJob(a.momentum, a.cfg.Scheduler.Tickers, a.cfg.Scheduler.WarmCron, a.log)
	if err := s.AddJob(warm); err != nil {
		return nil, err
	}

	if a.runs != nil && a.cfg.Scheduler.RunRetention > 0 {
		prune := jobs.NewRunPruneJob(a.runs, a.cfg.Scheduler.RunRetention, a.cfg.Scheduler.PruneCron, a.log)
		if err := s.AddJob(prune); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func runWorker(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	s, err := buildScheduler(a)
	if err != nil {
		return fmt.Errorf("build scheduler: %w", err)
	}

	w := cmd.OutOrStdout()

	if workerOnce {
		failed := 0
		for _, res := range s.WithRetry(0, 0).RunAllNow() {
			if !res.Success {
				failed++
				PrintWarning(w, fmt.Sprintf("%s failed: %s", res.JobName, res.Error))
				continue
			}
			PrintSuccess(w, fmt.Sprintf("%s completed in %s", res.JobName, res.Duration))
		}
		if failed > 0 {
			return fmt.Errorf("%d job(s) failed", failed)
		}
		return nil
	}

	s.Start()
	PrintHeader(w, "Worker")
	for _, name := range s.GetAllJobs() {
		PrintKeyValue(w, name, "scheduled", 14)
	}
	fmt.Fprintln(w, "\nPress Ctrl+C to stop")

	<-ctx.Done()
	s.Stop()

	printJobStats(w, s.GetJobStats())
	return nil
}

// printJobStats prints a per-job summary, sorted by job name
func printJobStats(w io.Writer, stats map[string]scheduler.JobStats) {
	names := make([]string, 0, len(stats))
	for name := range stats {
		names = append(names, name)
	}
	sort.Strings(names)

	PrintHeader(w, "Job Stats")
	widths := []int{16, 6, 8, 8, 30}
	PrintTableHeader(w, []string{"JOB", "RUNS", "FAILED", "RATE", "LAST ERROR"}, widths)
	for _, name := range names {
		st := stats[name]
		PrintTableRow(w, []string{
			name,
			fmt.Sprintf("%d", st.TotalRuns),
			fmt.Sprintf("%d", st.FailureCount),
			fmt.Sprintf("%.0f%%", st.SuccessRate*100),
			st.LastError,
		}, widths)
	}
}
