package commands

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/rebalancer/internal/contracts"
	"github.com/wonny/rebalancer/internal/scheduler"
	"github.com/wonny/rebalancer/internal/strategy"
)

func TestParseWeights(t *testing.T) {
	w, err := parseWeights(" vti=60, TLT = 40 ")
	require.NoError(t, err)
	assert.Equal(t, map[string]float64{"VTI": 60, "TLT": 40}, w)

	w, err = parseWeights("")
	require.NoError(t, err)
	assert.Nil(t, w)

	_, err = parseWeights("VTI")
	assert.Error(t, err)
	_, err = parseWeights("VTI=abc")
	assert.Error(t, err)
	_, err = parseWeights("=10")
	assert.Error(t, err)
}

func TestTargetsRequest(t *testing.T) {
	reset := func() {
		targetsTemplate, targetsStrategy, targetsWeights = "", "", ""
		targetsTickers, targetsTopN, targetsTrend = nil, 0, 0
	}
	defer reset()

	t.Run("flags", func(t *testing.T) {
		reset()
		targetsStrategy = "fixed"
		targetsWeights = "VTI=60,TLT=40"
		targetsTrend = 10

		req, err := targetsRequest(nil)
		require.NoError(t, err)
		assert.Equal(t, "fixed", req.Strategy)
		assert.Equal(t, 60.0, req.Params.Weights["VTI"])
		assert.True(t, req.Params.TrendFilter)
		assert.Equal(t, 10, req.Params.TrendMonths)
	})

	t.Run("template", func(t *testing.T) {
		reset()
		set, err := strategy.ParseTemplates([]byte(`
templates:
  - name: gem
    strategy: momentum
    tickers: [SPY, EFA, AGG]
    params: {top_n: 1, cash_ticker: AGG}
`))
		require.NoError(t, err)
		targetsTemplate = "gem"

		req, err := targetsRequest(set)
		require.NoError(t, err)
		assert.Equal(t, "momentum", req.Strategy)
		assert.Equal(t, []string{"SPY", "EFA", "AGG"}, req.Tickers)
		assert.Equal(t, "AGG", req.Params.CashTicker)
	})

	t.Run("template without file", func(t *testing.T) {
		reset()
		targetsTemplate = "gem"
		_, err := targetsRequest(nil)
		assert.Error(t, err)
	})

	t.Run("nothing given", func(t *testing.T) {
		reset()
		_, err := targetsRequest(nil)
		assert.Error(t, err)
	})
}

func TestReadJSONFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "req.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"availableCash": 500, "targetAllocations": [{"ticker": "VTI", "targetPercentage": 100, "price": 250}]}`), 0o600))

	var req contracts.OptimizationRequest
	require.NoError(t, readJSONFile(path, &req))
	assert.Equal(t, 500.0, req.AvailableCash)
	require.Len(t, req.TargetAllocations, 1)

	assert.Error(t, readJSONFile(filepath.Join(t.TempDir(), "missing.json"), &req))
}

func TestRender(t *testing.T) {
	defer func() { outputFormat = "table" }()

	res := &contracts.OptimizationResult{
		RunID:        "run-1",
		Strategy:     "auto",
		SolverStatus: contracts.StatusOptimal,
		Allocations: []contracts.AllocationResult{
			{Ticker: "VTI", SharesToBuy: 2, Price: 250, TargetPercentage: 50, ActualPercentage: 50, Compliant: true},
		},
		HoldingsToSell: []contracts.HoldingToSell{{Ticker: "GLD", Shares: 1, Price: 50, TotalValue: 50}},
	}

	var buf bytes.Buffer
	outputFormat = "table"
	require.NoError(t, render(&buf, res, func(w io.Writer) { printOptimization(w, res) }))
	assert.Contains(t, buf.String(), "run-1")
	assert.Contains(t, buf.String(), "VTI")
	assert.Contains(t, buf.String(), "Sell 1 GLD")

	buf.Reset()
	outputFormat = "json"
	require.NoError(t, render(&buf, res, func(w io.Writer) { printOptimization(w, res) }))
	assert.Contains(t, buf.String(), `"runId": "run-1"`)

	outputFormat = "xml"
	assert.Error(t, render(&buf, res, func(w io.Writer) {}))
}

func TestPrintMomentum(t *testing.T) {
	var buf bytes.Buffer
	printMomentum(&buf, []contracts.MomentumRecord{
		{Ticker: "VTI", Return3M: 5, Return6M: 8, Return9M: 10, Return12M: 12, Average: 8.75, AbsoluteMomentum: true},
		{Ticker: "BAD", Error: "no data"},
	})
	out := buf.String()
	assert.Contains(t, out, "+8.75%")
	assert.Contains(t, out, "error: no data")
}

func TestPrintJobStats(t *testing.T) {
	var buf bytes.Buffer
	printJobStats(&buf, map[string]scheduler.JobStats{
		"run_prune":     {JobName: "run_prune", TotalRuns: 1, SuccessCount: 1, SuccessRate: 1},
		"momentum_warm": {JobName: "momentum_warm", TotalRuns: 4, SuccessCount: 3, FailureCount: 1, SuccessRate: 0.75, LastError: "all 2 tickers failed"},
	})
	out := buf.String()

	assert.Contains(t, out, "75%")
	assert.Contains(t, out, "all 2 tickers failed")
	assert.Less(t, bytes.Index(buf.Bytes(), []byte("momentum_warm")), bytes.Index(buf.Bytes(), []byte("run_prune")))
}
