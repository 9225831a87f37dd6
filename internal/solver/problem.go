package solver

import (
	"math"

	"github.com/wonny/rebalancer/internal/contracts"
)

// Item is one integer decision variable: shares of Ticker to buy
type Item struct {
	Ticker           string
	Price            float64
	CurrentValue     float64
	TargetPercentage float64
	AllowedDeviation float64
}

// Problem is the budget allocation integer program.
//
//	max  Σ p_i x_i                     (optionally blended with fairness)
//	s.t. Σ p_i x_i ≤ Budget
//	     (t_i-d_i)·V ≤ c_i + p_i x_i ≤ (t_i+d_i)·V
//	     x_i ∈ ℤ≥0
type Problem struct {
	Items          []Item
	Budget         float64 // spendable cash
	PortfolioValue float64 // V, the base of the deviation bands

	UtilizationWeight float64
	FairnessWeight    float64
}

// bandTol is the dollar slack (relative to V) allowed when checking bands
const bandTol = 1e-9

func (p Problem) scale() float64 {
	if p.PortfolioValue > 0 {
		return p.PortfolioValue
	}
	if p.Budget > 0 {
		return p.Budget
	}
	return 1
}

func (p Problem) weights() (util, fair float64) {
	util, fair = p.UtilizationWeight, p.FairnessWeight
	if util < 0 {
		util = 0
	}
	if fair < 0 {
		fair = 0
	}
	if util == 0 && fair == 0 {
		util = 1
	}
	return util, fair
}

// lowerBuy is the minimum purchase value keeping item i inside its band
func (p Problem) lowerBuy(i int) float64 {
	it := p.Items[i]
	return (it.TargetPercentage-it.AllowedDeviation)/100*p.PortfolioValue - it.CurrentValue
}

// upperBuy is the maximum purchase value keeping item i inside its band
func (p Problem) upperBuy(i int) float64 {
	it := p.Items[i]
	return (it.TargetPercentage+it.AllowedDeviation)/100*p.PortfolioValue - it.CurrentValue
}

func (p Problem) targetBuy(i int) float64 {
	it := p.Items[i]
	return it.TargetPercentage/100*p.PortfolioValue - it.CurrentValue
}

// maxShares caps x_i by budget and upper band
func (p Problem) maxShares(i int) int {
	limit := math.Min(p.Budget, p.upperBuy(i))
	if limit < 0 {
		return 0
	}
	return int(math.Floor(limit/p.Items[i].Price + 1e-9))
}

// Feasible checks an integer assignment against every constraint
func (p Problem) Feasible(x []int) bool {
	tol := bandTol * p.scale()
	spent := 0.0
	for i, it := range p.Items {
		if x[i] < 0 {
			return false
		}
		buy := float64(x[i]) * it.Price
		spent += buy
		if buy > p.upperBuy(i)+tol {
			return false
		}
		if lo := p.lowerBuy(i); lo > 0 && buy < lo-tol {
			return false
		}
	}
	return spent <= p.Budget+tol
}

// objective is the minimization form of the blended objective (scaled by V)
func (p Problem) objective(x []int) float64 {
	util, fair := p.weights()
	v := p.scale()
	obj := 0.0
	for i, it := range p.Items {
		buy := float64(x[i]) * it.Price
		obj -= util * buy / v
		if fair > 0 {
			obj += fair * math.Abs(buy-p.targetBuy(i)) / v
		}
	}
	return obj
}

// Spent returns Σ p_i x_i
func (p Problem) Spent(x []int) float64 {
	total := 0.0
	for i, it := range p.Items {
		total += float64(x[i]) * it.Price
	}
	return total
}

// Result is the normalized solver outcome
type Result struct {
	Status contracts.SolverStatus
	Shares []int // valid when Status is optimal
	Spent  float64
	Nodes  int
	Err    error
}
