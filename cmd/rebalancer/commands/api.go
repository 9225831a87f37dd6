package commands

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/wonny/rebalancer/internal/api"
	"github.com/wonny/rebalancer/internal/api/handlers"
)

// apiCmd represents the api command
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "API 서버 시작",
	Long: `REST API 서버를 시작합니다.

Endpoints:
  GET  /health                 - Health check
  POST /api/optimize           - 정수 주문 최적화
  GET  /api/strategies         - optimizationStrategy 목록
  GET  /api/runs               - 최근 최적화 이력 (DB)
  GET  /api/runs/{id}          - 최적화 이력 조회 (DB)
  POST /api/targets            - 목표 비중 계산
  POST /api/rebalance          - 목표 비중 + 최적화
  GET  /api/templates          - 전략 템플릿 목록
  GET  /api/momentum/{ticker}  - 모멘텀 점수
  POST /api/momentum/batch     - 모멘텀 일괄 계산
  GET  /ws/momentum            - 모멘텀 스트리밍 (WebSocket)
  GET  /metrics                - Prometheus

Example:
  go run ./cmd/rebalancer api
  go run ./cmd/rebalancer api --port 8080`,
	RunE: runAPIServer,
}

var (
	apiPort string
)

func init() {
	rootCmd.AddCommand(apiCmd)

	// Flags
	apiCmd.Flags().StringVar(&apiPort, "port", "", "API 서버 포트 (default PORT)")
}

func runAPIServer(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	a, err := newApp(ctx, true)
	if err != nil {
		return err
	}
	defer a.Close()

	// Override port if flag is set
	if apiPort != "" {
		a.cfg.Port = apiPort
	}

	// 1. Handlers (run history only with a database)
	var runs handlers.RunStore
	if a.runs != nil {
		runs = a.runs
	}

	var metricsHandler http.Handler
	if a.cfg.MetricsEnabled {
		metricsHandler = a.metrics.Handler()
	}

	router := api.NewRouter(api.Handlers{
		Optimize: handlers.NewOptimizeHandler(a.optimizer, runs, a.log),
		Strategy: handlers.NewStrategyHandler(a.engine, a.templates, a.optimizer, a.log),
		Momentum: handlers.NewMomentumHandler(a.momentum, a.log),
		Metrics:  metricsHandler,
		DB:       a.db,
	}, a.log)

	// 2. Scheduler runs alongside the API when enabled
	if a.cfg.Scheduler.Enabled {
		s, err := buildScheduler(a)
		if err != nil {
			return fmt.Errorf("build scheduler: %w", err)
		}
		s.Start()
		defer s.Stop()
	}

	// 3. Serve until Ctrl+C, then drain
	server := api.New(a.cfg, a.log, router)
	ln, err := server.Listen()
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "\n✅ Server running on http://%s\n", ln.Addr())
	fmt.Fprintln(cmd.OutOrStdout(), "\nPress Ctrl+C to stop")

	if err := server.Run(ctx, ln); err != nil {
		return err
	}

	a.log.Info("Server stopped")
	return nil
}
