package commands

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/wonny/rebalancer/internal/contracts"
)

// optimizeCmd represents the optimize command
var optimizeCmd = &cobra.Command{
	Use:   "optimize",
	Short: "정수 주문 최적화",
	Long: `목표 비중, 보유 종목, 현금으로 정수 주문을 계산합니다.

입력 JSON은 POST /api/optimize 본문과 같습니다:
  {"availableCash": 1000,
   "targetAllocations": [{"ticker": "VTI", "targetPercentage": 50, "allowedDeviation": 5, "price": 250}, ...],
   "currentHoldings": [{"ticker": "GLD", "shares": 2, "price": 180}]}

Example:
  go run ./cmd/rebalancer optimize -f request.json
  cat request.json | go run ./cmd/rebalancer optimize -f - --strategy heuristic -o json`,
	RunE: runOptimize,
}

var (
	optimizeFile     string
	optimizeStrategy string
)

func init() {
	rootCmd.AddCommand(optimizeCmd)

	optimizeCmd.Flags().StringVarP(&optimizeFile, "file", "f", "-", "request JSON file (- for stdin)")
	optimizeCmd.Flags().StringVar(&optimizeStrategy, "strategy", "", "optimizationStrategy override (auto|heuristic|<promoter>)")
}

func runOptimize(cmd *cobra.Command, args []string) error {
	var req contracts.OptimizationRequest
	if err := readJSONFile(optimizeFile, &req); err != nil {
		return err
	}
	if optimizeStrategy != "" {
		req.OptimizationStrategy = optimizeStrategy
	}

	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, false)
	if err != nil {
		return err
	}
	defer a.Close()

	res, err := a.optimizer.Optimize(ctx, &req)
	if err != nil {
		return fmt.Errorf("optimize: %w", err)
	}

	return render(cmd.OutOrStdout(), res, func(w io.Writer) { printOptimization(w, res) })
}
