package optimizer

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/wonny/rebalancer/internal/contracts"
	"github.com/wonny/rebalancer/internal/tolerance"
)

// round rounds half away from zero at places decimals
func round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}

func money(v float64) float64 { return round(v, 2) }

func percent(v float64) float64 { return round(v, 2) }

// buildResult assembles the response. Compliance is judged on exact
// values; only the reported numbers are rounded.
func (o *Optimizer) buildResult(p *plan, alloc allocation, elapsed time.Duration) *contracts.OptimizationResult {
	res := &contracts.OptimizationResult{
		RunID:          newRunID(),
		SolverStatus:   alloc.status,
		Allocations:    make([]contracts.AllocationResult, 0, len(p.targets)),
		HoldingsToSell: make([]contracts.HoldingToSell, 0, len(p.sells)),
		Orders:         make([]contracts.Order, 0, len(p.sells)+len(p.targets)),
		FallbackUsed:   alloc.status != contracts.StatusOptimal,
		Strategy:       p.strategy,
		CreatedAt:      o.now().UTC(),
	}
	if res.FallbackUsed {
		res.FallbackStrategy = alloc.fallback
	}

	for _, s := range p.sells {
		res.HoldingsToSell = append(res.HoldingsToSell, contracts.HoldingToSell{
			Ticker:     s.Ticker,
			Shares:     s.Shares,
			Price:      s.Price,
			TotalValue: money(s.TotalValue),
		})
		res.Orders = append(res.Orders, contracts.Order{
			Ticker:        s.Ticker,
			SharesToTrade: -s.Shares,
			Price:         s.Price,
			TradeValue:    money(-s.TotalValue),
		})
	}

	spent := 0.0
	for i, t := range p.targets {
		buy := alloc.shares[i]
		final := p.current[i] + buy
		cost := float64(buy) * t.Price
		value := float64(final) * t.Price
		actual := value / p.portfolioValue * 100
		dev := tolerance.Deviation(actual, t.TargetPercentage)
		spent += cost

		res.Allocations = append(res.Allocations, contracts.AllocationResult{
			Ticker:           t.Ticker,
			Price:            t.Price,
			CurrentShares:    p.current[i],
			SharesToBuy:      buy,
			FinalShares:      final,
			CostOfPurchase:   money(cost),
			FinalValue:       money(value),
			TargetPercentage: t.TargetPercentage,
			ActualPercentage: percent(actual),
			Deviation:        percent(dev),
			AllowedDeviation: t.AllowedDeviation,
			Compliant:        tolerance.IsCompliant(dev, t.AllowedDeviation),
		})
		if buy > 0 {
			res.Orders = append(res.Orders, contracts.Order{
				Ticker:        t.Ticker,
				SharesToTrade: buy,
				Price:         t.Price,
				TradeValue:    money(cost),
			})
		}
	}

	unused := p.budget - spent
	utilization := spent / p.budget * 100
	res.OptimizationMetrics = contracts.OptimizationMetrics{
		AvailableBudget:       money(p.budget),
		PortfolioValue:        money(p.portfolioValue),
		TotalBudgetUsed:       money(spent),
		UnusedBudget:          money(unused),
		UnusedPercentage:      percent(unused / p.budget * 100),
		UtilizationPercentage: percent(utilization),
		OptimizationTime:      elapsed.Round(time.Microsecond).String(),
		OptimizationTimeMs:    round(float64(elapsed)/float64(time.Millisecond), 3),
	}

	ev := tolerance.Evaluate(res.Allocations)
	res.ToleranceMetrics = contracts.ToleranceMetrics{
		ToleranceBand:    ev.ToleranceBand,
		ComplianceRate:   percent(ev.ComplianceRate),
		CompliantCount:   ev.CompliantCount,
		TotalCount:       ev.TotalCount,
		QualityScore:     percent(tolerance.QualityScore(utilization, ev.ComplianceRate)),
		RelaxationFactor: 1,
	}
	if alloc.refinement != nil {
		res.ToleranceMetrics.RefinementRounds = len(alloc.refinement.Rounds)
		res.ToleranceMetrics.RelaxationFactor = alloc.refinement.Relaxation
	}

	return res
}
