package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/rebalancer/internal/contracts"
	"github.com/wonny/rebalancer/internal/strategy"
)

// targetsCmd represents the targets command
var targetsCmd = &cobra.Command{
	Use:   "targets",
	Short: "전략별 목표 비중 계산",
	Long: `전략(momentum/fixed/custom) 또는 템플릿으로 목표 비중을 계산합니다.
--cash 를 주면 계산된 목표로 바로 주문 최적화까지 실행합니다.

Example:
  go run ./cmd/rebalancer targets --strategy momentum --tickers SPY,EFA,EEM,TLT --top-n 2
  go run ./cmd/rebalancer targets --strategy fixed --weights VTI=60,TLT=40
  go run ./cmd/rebalancer targets --template all-weather --cash 10000 --holdings holdings.json`,
	RunE: runTargets,
}

var (
	targetsTemplate  string
	targetsStrategy  string
	targetsTickers   []string
	targetsTopN      int
	targetsWeighting string
	targetsCashTick  string
	targetsWeights   string
	targetsDeviation float64
	targetsTrend     int
	targetsCash      float64
	targetsHoldings  string
)

func init() {
	rootCmd.AddCommand(targetsCmd)

	targetsCmd.Flags().StringVar(&targetsTemplate, "template", "", "template name from STRATEGY_TEMPLATES")
	targetsCmd.Flags().StringVar(&targetsStrategy, "strategy", "", "momentum|fixed|custom")
	targetsCmd.Flags().StringSliceVar(&targetsTickers, "tickers", nil, "momentum candidates")
	targetsCmd.Flags().IntVar(&targetsTopN, "top-n", 0, "momentum: number of tickers to hold")
	targetsCmd.Flags().StringVar(&targetsWeighting, "weighting", "", "momentum: equal|momentum")
	targetsCmd.Flags().StringVar(&targetsCashTick, "cash-ticker", "", "momentum: fills slots when too few tickers qualify")
	targetsCmd.Flags().StringVar(&targetsWeights, "weights", "", "fixed/custom: TICKER=PCT,...")
	targetsCmd.Flags().Float64Var(&targetsDeviation, "deviation", 0, "allowed deviation (percentage points)")
	targetsCmd.Flags().IntVar(&targetsTrend, "trend", 0, "fixed/custom: drop weights below N-month SMA")
	targetsCmd.Flags().Float64Var(&targetsCash, "cash", 0, "optimize orders with this much cash")
	targetsCmd.Flags().StringVar(&targetsHoldings, "holdings", "", "current holdings JSON file (with --cash)")
}

func runTargets(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	req, err := targetsRequest(a.templates)
	if err != nil {
		return err
	}

	res, err := a.engine.Targets(ctx, req)
	if err != nil {
		return fmt.Errorf("targets: %w", err)
	}

	if !cmd.Flags().Changed("cash") {
		return render(cmd.OutOrStdout(), res, func(w io.Writer) { printTargets(w, res) })
	}

	var holdings []contracts.Holding
	if targetsHoldings != "" {
		if err := readJSONFile(targetsHoldings, &holdings); err != nil {
			return err
		}
	}

	opt, err := a.optimizer.Optimize(ctx, &contracts.OptimizationRequest{
		CurrentHoldings:   holdings,
		TargetAllocations: res.Targets,
		AvailableCash:     targetsCash,
		MomentumScores:    res.MomentumScores(),
	})
	if err != nil {
		return fmt.Errorf("optimize: %w", err)
	}

	out := map[string]interface{}{"targets": res, "optimization": opt}
	return render(cmd.OutOrStdout(), out, func(w io.Writer) {
		printTargets(w, res)
		printOptimization(w, opt)
	})
}

// targetsRequest builds the strategy request from flags or a template
func targetsRequest(templates *strategy.TemplateSet) (strategy.Request, error) {
	if targetsTemplate != "" {
		if templates == nil {
			return strategy.Request{}, fmt.Errorf("--template needs STRATEGY_TEMPLATES to be set")
		}
		t, err := templates.Get(targetsTemplate)
		if err != nil {
			return strategy.Request{}, err
		}
		return strategy.FromTemplate(t), nil
	}

	if targetsStrategy == "" {
		return strategy.Request{}, fmt.Errorf("either --template or --strategy is required")
	}

	weights, err := parseWeights(targetsWeights)
	if err != nil {
		return strategy.Request{}, err
	}

	return strategy.Request{
		Strategy: targetsStrategy,
		Tickers:  targetsTickers,
		Params: strategy.Params{
			TopN:             targetsTopN,
			Weighting:        targetsWeighting,
			CashTicker:       targetsCashTick,
			AllowedDeviation: targetsDeviation,
			Weights:          weights,
			TrendFilter:      targetsTrend > 0,
			TrendMonths:      targetsTrend,
		},
	}, nil
}

// parseWeights parses "VTI=60,TLT=40"
func parseWeights(s string) (map[string]float64, error) {
	if strings.TrimSpace(s) == "" {
		return nil, nil
	}
	out := map[string]float64{}
	for _, part := range strings.Split(s, ",") {
		k, v, ok := strings.Cut(strings.TrimSpace(part), "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("weight %q: want TICKER=PCT", part)
		}
		pct, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil, fmt.Errorf("weight %q: %w", part, err)
		}
		out[strings.ToUpper(strings.TrimSpace(k))] = pct
	}
	return out, nil
}
