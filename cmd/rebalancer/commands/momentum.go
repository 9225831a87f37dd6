package commands

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"
)

// momentumCmd represents the momentum command
var momentumCmd = &cobra.Command{
	Use:   "momentum TICKER [TICKER...]",
	Short: "모멘텀 점수 조회",
	Long: `3/6/9/12개월 수익률과 평균 모멘텀을 계산합니다.

Example:
  go run ./cmd/rebalancer momentum VTI TLT GLD
  go run ./cmd/rebalancer momentum SPY EFA --trend 10`,
	Args: cobra.MinimumNArgs(1),
	RunE: runMomentum,
}

var momentumTrendMonths int

func init() {
	rootCmd.AddCommand(momentumCmd)

	momentumCmd.Flags().IntVar(&momentumTrendMonths, "trend", 0, "also print price vs N-month SMA")
}

func runMomentum(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	tickers := make([]string, len(args))
	for i, t := range args {
		tickers[i] = strings.ToUpper(t)
	}

	records := a.momentum.Batch(ctx, tickers)

	return render(cmd.OutOrStdout(), records, func(w io.Writer) {
		printMomentum(w, records)
		if momentumTrendMonths <= 0 {
			return
		}
		fmt.Fprintln(w)
		for _, t := range tickers {
			trend, err := a.momentum.Trend(ctx, t, momentumTrendMonths)
			if err != nil {
				PrintWarning(w, err.Error())
				continue
			}
			PrintKeyValue(w, t, fmt.Sprintf("price %.2f vs SMA%d %.2f above=%t",
				trend.Price, momentumTrendMonths, trend.SMA, trend.Above), 8)
		}
	})
}
