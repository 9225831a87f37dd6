package solver

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/wonny/rebalancer/internal/contracts"
)

func testConfig() Config {
	return Config{Timeout: 5 * time.Second, MaxNodes: 100000}
}

func scenarioProblem() Problem {
	return Problem{
		Budget:         1000,
		PortfolioValue: 1000,
		Items: []Item{
			{Ticker: "VTI", Price: 250, TargetPercentage: 50, AllowedDeviation: 5},
			{Ticker: "TLT", Price: 95, TargetPercentage: 30, AllowedDeviation: 5},
			{Ticker: "PDBC", Price: 13.5, TargetPercentage: 10, AllowedDeviation: 5},
			{Ticker: "IBIT", Price: 40, TargetPercentage: 10, AllowedDeviation: 5},
		},
	}
}

func assertWithinBands(t *testing.T, p Problem, shares []int) {
	t.Helper()
	for i, it := range p.Items {
		value := it.CurrentValue + float64(shares[i])*it.Price
		actual := value / p.PortfolioValue * 100
		assert.LessOrEqual(t, math.Abs(actual-it.TargetPercentage), it.AllowedDeviation+1e-6, it.Ticker)
	}
}

func TestSolve_Scenario(t *testing.T) {
	p := scenarioProblem()
	res := New(testConfig(), nil).Solve(context.Background(), p)

	require.Equal(t, contracts.StatusOptimal, res.Status, "err: %v", res.Err)
	assert.Equal(t, []int{2, 3, 10, 2}, res.Shares)
	assert.InDelta(t, 1000, res.Spent, 1e-9)
	assertWithinBands(t, p, res.Shares)
}

func TestSolve_BeatsGreedy(t *testing.T) {
	// cheapest-first stops at 3×30 = 90, the optimum is 2×30 + 1×40
	p := Problem{
		Budget:         100,
		PortfolioValue: 100,
		Items: []Item{
			{Ticker: "A", Price: 30, TargetPercentage: 50, AllowedDeviation: 50},
			{Ticker: "B", Price: 40, TargetPercentage: 50, AllowedDeviation: 50},
		},
	}
	res := New(testConfig(), nil).Solve(context.Background(), p)

	require.Equal(t, contracts.StatusOptimal, res.Status, "err: %v", res.Err)
	assert.Equal(t, []int{2, 1}, res.Shares)
	assert.InDelta(t, 100, res.Spent, 1e-9)
	assert.Greater(t, res.Nodes, 0)
}

func TestSolve_NoWholeShareInBand(t *testing.T) {
	p := Problem{
		Budget:         1000,
		PortfolioValue: 1000,
		Items:          []Item{{Ticker: "X", Price: 300, TargetPercentage: 100, AllowedDeviation: 0.1}},
	}
	res := New(testConfig(), nil).Solve(context.Background(), p)

	assert.Equal(t, contracts.StatusInfeasible, res.Status)
	assert.Nil(t, res.Shares)
}

func TestSolve_LowerBandsExceedBudget(t *testing.T) {
	p := Problem{
		Budget:         500,
		PortfolioValue: 1000,
		Items: []Item{
			{Ticker: "A", Price: 10, TargetPercentage: 50, AllowedDeviation: 5},
			{Ticker: "B", Price: 10, TargetPercentage: 50, AllowedDeviation: 5},
		},
	}
	res := New(testConfig(), nil).Solve(context.Background(), p)

	assert.Equal(t, contracts.StatusInfeasible, res.Status)
}

func TestSolve_HoldingAboveBand(t *testing.T) {
	p := Problem{
		Budget:         100,
		PortfolioValue: 1000,
		Items: []Item{
			{Ticker: "A", Price: 10, CurrentValue: 900, TargetPercentage: 50, AllowedDeviation: 5},
			{Ticker: "B", Price: 10, TargetPercentage: 50, AllowedDeviation: 5},
		},
	}
	res := New(testConfig(), nil).Solve(context.Background(), p)

	assert.Equal(t, contracts.StatusInfeasible, res.Status)
}

func TestSolve_Timeout(t *testing.T) {
	s := New(Config{Timeout: time.Nanosecond}, nil)
	res := s.Solve(context.Background(), scenarioProblem())

	assert.Equal(t, contracts.StatusTimeout, res.Status)
	assert.True(t, res.Status.NeedsFallback())
}

func TestSolve_NodeBudget(t *testing.T) {
	p := Problem{
		Budget:         100,
		PortfolioValue: 100,
		Items: []Item{
			{Ticker: "A", Price: 30, TargetPercentage: 50, AllowedDeviation: 50},
			{Ticker: "B", Price: 40, TargetPercentage: 50, AllowedDeviation: 50},
		},
	}
	res := New(Config{Timeout: 5 * time.Second, MaxNodes: 1}, nil).Solve(context.Background(), p)

	assert.Equal(t, contracts.StatusTimeout, res.Status)
	assert.ErrorIs(t, res.Err, errMaxNodes)
}

func TestSolve_RelaxationError(t *testing.T) {
	s := New(testConfig(), nil)
	s.simplex = func([]float64, mat.Matrix, []float64, float64, []int) (float64, []float64, error) {
		return 0, nil, errors.New("singular basis")
	}
	res := s.Solve(context.Background(), scenarioProblem())

	assert.Equal(t, contracts.StatusError, res.Status)
	assert.ErrorContains(t, res.Err, "singular basis")
}

func TestSolve_PanicBecomesError(t *testing.T) {
	s := New(testConfig(), nil)
	s.simplex = func([]float64, mat.Matrix, []float64, float64, []int) (float64, []float64, error) {
		panic("dimension mismatch")
	}
	res := s.Solve(context.Background(), scenarioProblem())

	assert.Equal(t, contracts.StatusError, res.Status)
	assert.ErrorContains(t, res.Err, "dimension mismatch")
}

func TestSolve_FairnessStaysInBands(t *testing.T) {
	p := scenarioProblem()
	p.FairnessWeight = 1
	res := New(testConfig(), nil).Solve(context.Background(), p)

	require.Equal(t, contracts.StatusOptimal, res.Status, "err: %v", res.Err)
	assert.True(t, p.Feasible(res.Shares))
	assert.LessOrEqual(t, res.Spent, p.Budget)
	assertWithinBands(t, p, res.Shares)
}

func TestSolve_EmptyProblem(t *testing.T) {
	res := New(testConfig(), nil).Solve(context.Background(), Problem{Budget: 100, PortfolioValue: 100})

	assert.Equal(t, contracts.StatusOptimal, res.Status)
	assert.Empty(t, res.Shares)
}

// bruteForce enumerates every integer assignment of a small problem
func bruteForce(p Problem) (best float64, found bool) {
	x := make([]int, len(p.Items))
	var walk func(i int)
	walk = func(i int) {
		if i == len(p.Items) {
			if p.Feasible(x) {
				if s := p.Spent(x); !found || s > best {
					best, found = s, true
				}
			}
			return
		}
		for k := 0; k <= p.maxShares(i); k++ {
			x[i] = k
			walk(i + 1)
		}
		x[i] = 0
	}
	walk(0)
	return best, found
}

func TestSolve_MatchesBruteForce(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	s := New(testConfig(), nil)

	for round := 0; round < 40; round++ {
		n := 2 + rng.Intn(2)
		budget := float64(200 + rng.Intn(600))
		p := Problem{Budget: budget, PortfolioValue: budget}

		remaining := 100.0
		for i := 0; i < n; i++ {
			pct := remaining
			if i < n-1 {
				pct = math.Round(remaining * (0.3 + 0.4*rng.Float64()))
			}
			remaining -= pct
			p.Items = append(p.Items, Item{
				Ticker:           string(rune('A' + i)),
				Price:            float64(500+rng.Intn(9500)) / 100,
				TargetPercentage: pct,
				AllowedDeviation: float64(5 + rng.Intn(16)),
			})
		}

		want, feasible := bruteForce(p)
		res := s.Solve(context.Background(), p)

		if !feasible {
			assert.Equal(t, contracts.StatusInfeasible, res.Status, "round %d", round)
			continue
		}
		require.Equal(t, contracts.StatusOptimal, res.Status, "round %d err: %v", round, res.Err)
		assert.True(t, p.Feasible(res.Shares), "round %d", round)
		assert.LessOrEqual(t, res.Spent, p.Budget+1e-9, "round %d", round)
		assert.InDelta(t, want, res.Spent, 1e-6, "round %d", round)
	}
}
