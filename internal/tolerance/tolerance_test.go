package tolerance

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/rebalancer/internal/contracts"
	"github.com/wonny/rebalancer/internal/heuristic"
)

func TestEvaluate(t *testing.T) {
	allocs := []contracts.AllocationResult{
		{Ticker: "VTI", Deviation: 1.2, AllowedDeviation: 5, Compliant: true},
		{Ticker: "TLT", Deviation: 5, AllowedDeviation: 5, Compliant: true},
		{Ticker: "PDBC", Deviation: 6.1, AllowedDeviation: 5},
		{Ticker: "IBIT", Deviation: 0.4, AllowedDeviation: 3, Compliant: true},
	}

	ev := Evaluate(allocs)

	assert.Equal(t, 3, ev.CompliantCount)
	assert.Equal(t, 4, ev.TotalCount)
	assert.InDelta(t, 75, ev.ComplianceRate, 1e-9)
	assert.InDelta(t, 4.5, ev.ToleranceBand, 1e-9)
}

func TestEvaluate_Empty(t *testing.T) {
	ev := Evaluate(nil)
	assert.Equal(t, 0, ev.TotalCount)
	assert.InDelta(t, 100, ev.ComplianceRate, 1e-9)
}

func TestDeviation(t *testing.T) {
	assert.InDelta(t, 2.5, Deviation(47.5, 50), 1e-9)
	assert.InDelta(t, 2.5, Deviation(52.5, 50), 1e-9)
	assert.True(t, IsCompliant(5.0000000001, 5))
	assert.False(t, IsCompliant(5.01, 5))
}

func TestQualityScore(t *testing.T) {
	assert.InDelta(t, 99.79, QualityScore(99.65, 100), 1e-9)
	assert.InDelta(t, 60, QualityScore(100, 0), 1e-9)
}

func TestApplyCaps(t *testing.T) {
	lines := []heuristic.Line{
		{Ticker: "A", Price: 10, Shares: 3},
		{Ticker: "B", Price: 10, CurrentShares: 12, Shares: 0},
		{Ticker: "C", Price: 10, Shares: 30},
	}
	bands := []Band{
		{TargetPercentage: 10, AllowedDeviation: 5},
		{TargetPercentage: 10, AllowedDeviation: 5},
		{TargetPercentage: 10, AllowedDeviation: 5},
	}

	ApplyCaps(lines, bands, 1000, 1)
	assert.Equal(t, 15, lines[0].MaxShares)
	assert.Equal(t, 3, lines[1].MaxShares, "current holdings count against the band")
	assert.Equal(t, 30, lines[2].MaxShares, "caps never drop below allocated shares")

	ApplyCaps(lines, bands, 1000, 2)
	assert.Equal(t, 20, lines[0].MaxShares)
	assert.Equal(t, 8, lines[1].MaxShares)
}

func TestDetectRatios(t *testing.T) {
	lines := []heuristic.Line{
		{Ticker: "A", Price: 60},
		{Ticker: "B", Price: 10.1},
		{Ticker: "C", Price: 25},
	}

	pairs := DetectRatios(lines, 0.02)

	require.Len(t, pairs, 1)
	assert.Equal(t, "A", pairs[0].Large)
	assert.Equal(t, "B", pairs[0].Small)
	assert.Equal(t, 6, pairs[0].Multiple)
	assert.Less(t, pairs[0].Error, 0.02)
}

func TestDetectRatios_IgnoresNearEqualPrices(t *testing.T) {
	lines := []heuristic.Line{
		{Ticker: "A", Price: 100},
		{Ticker: "B", Price: 99},
	}
	assert.Empty(t, DetectRatios(lines, 0.02))
}

func TestRatioPromoter_SmallSideFirst(t *testing.T) {
	lines := []heuristic.Line{
		{Ticker: "A", Price: 60, MaxShares: -1},
		{Ticker: "B", Price: 10, MaxShares: -1},
		{Ticker: "C", Price: 5, MaxShares: 1},
	}
	pairs := []RatioPair{{Large: "A", Small: "B", Multiple: 6}}

	out, leftover := NewRatioPromoter(pairs).CalculatePromotions(lines, 35)

	assert.Equal(t, 3, out[1].Shares)
	assert.Equal(t, 1, out[2].Shares)
	assert.InDelta(t, 0, leftover, 1e-9)
}

func TestRefine_RelaxesBands(t *testing.T) {
	lines := []heuristic.Line{
		{Ticker: "X", Price: 300, FloorShares: 1, Shares: 1},
		{Ticker: "Y", Price: 300, FloorShares: 1, Shares: 1},
	}
	bands := []Band{
		{TargetPercentage: 50, AllowedDeviation: 5},
		{TargetPercentage: 50, AllowedDeviation: 5},
	}
	ApplyCaps(lines, bands, 1000, 1)
	require.Equal(t, 1, lines[0].MaxShares)

	r := NewRefiner(DefaultConfig(), nil)
	require.True(t, r.NeedsRefinement(400, 1000))

	out := r.Refine(lines, bands, 400, 1000, 1000)

	assert.Equal(t, 2, out.Lines[0].Shares)
	assert.Equal(t, 1, out.Lines[1].Shares)
	assert.InDelta(t, 100, out.Leftover, 1e-9)
	assert.InDelta(t, 2, out.Relaxation, 1e-9)
	assert.Len(t, out.Rounds, 2, "second round makes no progress and stops")
	assert.Equal(t, 1, lines[0].Shares, "input lines untouched")

	for i, l := range out.Lines {
		assert.GreaterOrEqual(t, l.Shares, l.FloorShares, l.Ticker)
		value := float64(l.Shares) * l.Price
		assert.LessOrEqual(t, value/1000*100, bands[i].TargetPercentage+2*bands[i].AllowedDeviation)
	}
}

func TestRefine_BelowThreshold(t *testing.T) {
	lines := []heuristic.Line{{Ticker: "X", Price: 10, Shares: 99, MaxShares: -1}}
	bands := []Band{{TargetPercentage: 100, AllowedDeviation: 5}}

	out := NewRefiner(DefaultConfig(), nil).Refine(lines, bands, 10, 1000, 1000)

	assert.Empty(t, out.Rounds)
	assert.InDelta(t, 1, out.Relaxation, 1e-9)
	assert.InDelta(t, 10, out.Leftover, 1e-9)
}

func TestRefine_IterationCap(t *testing.T) {
	lines := []heuristic.Line{{Ticker: "X", Price: 1, Shares: 0}}
	bands := []Band{{TargetPercentage: 10, AllowedDeviation: 1}}
	cfg := DefaultConfig()
	cfg.Iterations = 3
	cfg.Gain = 0.5

	out := NewRefiner(cfg, nil).Refine(lines, bands, 1000, 1000, 1000)

	assert.LessOrEqual(t, len(out.Rounds), 3)
	assert.LessOrEqual(t, out.Relaxation, cfg.MaxRelaxation)
	assert.GreaterOrEqual(t, out.Leftover, 0.0)
}
