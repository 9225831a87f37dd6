package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	logLevel     string
	outputFormat string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rebalancer",
	Short: "Momentum 기반 포트폴리오 리밸런서",
	Long: `Portfolio Rebalancer CLI

모멘텀 점수 → 목표 비중 → 정수 주문 최적화.

Usage:
  go run ./cmd/rebalancer [command]

Examples:
  go run ./cmd/rebalancer api
  go run ./cmd/rebalancer momentum VTI TLT GLD
  go run ./cmd/rebalancer targets --template dual-momentum
  go run ./cmd/rebalancer optimize -f request.json
  go run ./cmd/rebalancer worker --once`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (debug|info|warn|error)")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (table|json)")
}
