package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
)

// runsCmd represents the runs command
var runsCmd = &cobra.Command{
	Use:   "runs [RUN_ID]",
	Short: "최적화 실행 이력 조회",
	Long: `DB에 기록된 최적화 실행 이력을 조회합니다 (DATABASE_URL 필요).

Example:
  go run ./cmd/rebalancer runs --limit 20
  go run ./cmd/rebalancer runs 6f1c2a4e-... -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runRuns,
}

var runsLimit int

func init() {
	rootCmd.AddCommand(runsCmd)

	runsCmd.Flags().IntVar(&runsLimit, "limit", 20, "number of runs to list")
}

func runRuns(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	if a.runs == nil {
		return fmt.Errorf("run history requires DATABASE_URL")
	}

	if len(args) == 1 {
		res, err := a.runs.Get(ctx, args[0])
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), res, func(w io.Writer) { printOptimization(w, res) })
	}

	runs, err := a.runs.Recent(ctx, runsLimit)
	if err != nil {
		return err
	}

	return render(cmd.OutOrStdout(), runs, func(w io.Writer) {
		PrintHeader(w, "Optimization runs")
		widths := []int{36, 20, 11, 10, 8, 19}
		PrintTableHeader(w, []string{"Run", "Strategy", "Solver", "Util%", "Comp%", "Created"}, widths)
		for _, r := range runs {
			PrintTableRow(w, []string{
				r.RunID,
				r.Strategy,
				r.SolverStatus,
				fmt.Sprintf("%.2f", r.Utilization),
				fmt.Sprintf("%.2f", r.ComplianceRate),
				r.CreatedAt.Format("2006-01-02 15:04:05"),
			}, widths)
		}
	})
}
