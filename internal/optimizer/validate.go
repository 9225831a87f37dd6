package optimizer

import (
	"fmt"
	"math"
	"strings"

	"github.com/wonny/rebalancer/internal/contracts"
	"github.com/wonny/rebalancer/internal/heuristic"
)

// plan is a validated request ready for the solver
type plan struct {
	strategy       string
	targets        []contracts.TargetAllocation
	current        []int // current shares per target, aligned with targets
	momentum       map[string]float64
	sells          []contracts.HoldingToSell
	budget         float64 // cash + liquidation proceeds
	portfolioValue float64 // budget + kept holdings at target prices
}

func (p *plan) hasMomentum() bool {
	return len(p.momentum) > 0
}

func finite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// prepare validates req and liquidates holdings outside the target set.
// Every rejection wraps contracts.ErrInvalidInput.
func (o *Optimizer) prepare(req *contracts.OptimizationRequest) (*plan, error) {
	if req == nil {
		return nil, contracts.Invalid("request", "is required")
	}
	if !finite(req.AvailableCash) || req.AvailableCash < 0 {
		return nil, contracts.Invalid("availableCash", "must be a non-negative number, got %v", req.AvailableCash)
	}

	strategy, err := o.resolveStrategy(req.OptimizationStrategy)
	if err != nil {
		return nil, err
	}

	p := &plan{strategy: strategy, momentum: map[string]float64{}}

	if len(req.TargetAllocations) == 0 {
		return nil, contracts.Invalid("targetAllocations", "at least one target is required")
	}

	seen := make(map[string]bool, len(req.TargetAllocations))
	for i, t := range req.TargetAllocations {
		field := fmt.Sprintf("targetAllocations[%d]", i)
		t.Ticker = strings.ToUpper(strings.TrimSpace(t.Ticker))

		switch {
		case t.Ticker == "":
			return nil, contracts.Invalid(field+".ticker", "is required")
		case seen[t.Ticker]:
			return nil, contracts.Invalid(field+".ticker", "duplicate ticker %s", t.Ticker)
		case !finite(t.TargetPercentage) || t.TargetPercentage < 0 || t.TargetPercentage > 100:
			return nil, contracts.Invalid(field+".targetPercentage", "must be within [0, 100], got %v", t.TargetPercentage)
		case !finite(t.AllowedDeviation) || t.AllowedDeviation < 0:
			return nil, contracts.Invalid(field+".allowedDeviation", "must be non-negative, got %v", t.AllowedDeviation)
		case !finite(t.Price) || t.Price <= 0:
			return nil, contracts.Invalid(field+".price", "must be positive, got %v", t.Price)
		}
		if t.AllowedDeviation == 0 {
			t.AllowedDeviation = o.cfg.DefaultDeviation
		}

		seen[t.Ticker] = true
		p.targets = append(p.targets, t)
	}

	if total := contracts.TotalPercentage(p.targets); math.Abs(total-100) > o.cfg.SumEpsilon {
		return nil, contracts.Invalid("targetAllocations", "percentages must sum to 100 (±%v), got %.4f", o.cfg.SumEpsilon, total)
	}

	held := make(map[string]int, len(req.CurrentHoldings))
	proceeds := 0.0
	for i, h := range req.CurrentHoldings {
		field := fmt.Sprintf("currentHoldings[%d]", i)
		ticker := strings.ToUpper(strings.TrimSpace(h.Ticker))

		switch {
		case ticker == "":
			return nil, contracts.Invalid(field+".ticker", "is required")
		case h.Shares < 0:
			return nil, contracts.Invalid(field+".shares", "must be non-negative, got %d", h.Shares)
		case !finite(h.Price) || h.Price < 0:
			return nil, contracts.Invalid(field+".price", "must be non-negative, got %v", h.Price)
		}
		if _, dup := held[ticker]; dup {
			return nil, contracts.Invalid(field+".ticker", "duplicate holding %s", ticker)
		}
		held[ticker] = h.Shares

		if seen[ticker] || h.Shares == 0 {
			continue
		}
		if h.Price <= 0 {
			return nil, contracts.Invalid(field+".price", "a price is required to liquidate %s", ticker)
		}
		value := float64(h.Shares) * h.Price
		proceeds += value
		p.sells = append(p.sells, contracts.HoldingToSell{
			Ticker:     ticker,
			Shares:     h.Shares,
			Price:      h.Price,
			TotalValue: value,
		})
	}

	kept := 0.0
	p.current = make([]int, len(p.targets))
	for i, t := range p.targets {
		p.current[i] = held[t.Ticker]
		kept += float64(p.current[i]) * t.Price
	}

	p.budget = req.AvailableCash + proceeds
	if p.budget <= 0 {
		return nil, contracts.Invalid("availableCash", "available budget must be positive (cash %.2f + liquidation %.2f)", req.AvailableCash, proceeds)
	}
	p.portfolioValue = p.budget + kept

	for ticker, score := range req.MomentumScores {
		if finite(score) {
			p.momentum[strings.ToUpper(strings.TrimSpace(ticker))] = score
		}
	}

	return p, nil
}

// resolveStrategy accepts auto, heuristic or a registered promoter name
func (o *Optimizer) resolveStrategy(name string) (string, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		name = o.cfg.DefaultStrategy
	}
	switch name {
	case contracts.StrategyAuto, contracts.StrategyHeuristic:
		return name, nil
	}
	if _, ok := o.promoters.Get(name); ok {
		return name, nil
	}
	known := append([]string{contracts.StrategyAuto, contracts.StrategyHeuristic}, o.promoters.Names()...)
	return "", fmt.Errorf("%w: %w", contracts.ErrUnknownStrategy,
		contracts.Invalid("optimizationStrategy", "unknown strategy %q (known: %s)", name, strings.Join(known, ", ")))
}

// inputs converts the plan into floor allocation inputs
func (p *plan) inputs() []heuristic.Input {
	out := make([]heuristic.Input, len(p.targets))
	for i, t := range p.targets {
		score, ok := p.momentum[t.Ticker]
		out[i] = heuristic.Input{
			Target:        t,
			CurrentShares: p.current[i],
			Momentum:      score,
			HasMomentum:   ok,
		}
	}
	return out
}
