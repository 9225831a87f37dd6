package heuristic

import (
	"math"

	"github.com/wonny/rebalancer/internal/contracts"
)

// affordEps absorbs float noise when comparing a price to leftover cash
const affordEps = 1e-9

// Line is one target instrument in a share allocation.
// Shares counts shares to buy on top of CurrentShares.
type Line struct {
	Ticker        string
	Price         float64
	CurrentShares int
	TargetValue   float64 // dollars still to buy to reach target
	ExactShares   float64 // TargetValue / Price
	FloorShares   int
	Shares        int
	MaxShares     int // cap on Shares; < 0 means uncapped
	Momentum      float64
	HasMomentum   bool
}

// Remainder is the fractional part promotions try to close
func (l Line) Remainder() float64 {
	return l.ExactShares - float64(l.FloorShares)
}

// Shortfall is how many shares remain below the exact target
func (l Line) Shortfall() float64 {
	return l.ExactShares - float64(l.Shares)
}

// Cost is the purchase cost of the line
func (l Line) Cost() float64 {
	return float64(l.Shares) * l.Price
}

func (l Line) canPromote(leftover float64) bool {
	if l.Price <= 0 || l.Price > leftover+affordEps {
		return false
	}
	return l.MaxShares < 0 || l.Shares < l.MaxShares
}

// Input describes one target for floor allocation
type Input struct {
	Target        contracts.TargetAllocation
	CurrentShares int
	Momentum      float64
	HasMomentum   bool
}

// FloorAllocation builds lines with floor(targetBuyValue / price) shares.
// portfolioValue is the base the target percentages apply to.
func FloorAllocation(inputs []Input, portfolioValue float64) []Line {
	lines := make([]Line, 0, len(inputs))
	for _, in := range inputs {
		price := in.Target.Price
		current := float64(in.CurrentShares) * price
		targetValue := math.Max(0, in.Target.TargetPercentage/100*portfolioValue-current)

		line := Line{
			Ticker:        in.Target.Ticker,
			Price:         price,
			CurrentShares: in.CurrentShares,
			TargetValue:   targetValue,
			MaxShares:     -1,
			Momentum:      in.Momentum,
			HasMomentum:   in.HasMomentum,
		}
		if price > 0 {
			line.ExactShares = targetValue / price
			// 1e-9 keeps 2.9999999996 from flooring to 2
			line.FloorShares = int(math.Floor(line.ExactShares + 1e-9))
		}
		line.Shares = line.FloorShares
		lines = append(lines, line)
	}
	return lines
}

// TotalCost sums purchase cost of all lines
func TotalCost(lines []Line) float64 {
	total := 0.0
	for _, l := range lines {
		total += l.Cost()
	}
	return total
}

// GuardResult reports what the floor-scaling guard did
type GuardResult struct {
	Applied   bool
	Factor    float64
	CostAfter float64
	Leftover  float64
}

// ApplyFloorGuard scales every floor by budget/floorCost and re-floors
// when the floors alone exceed budget. Afterwards leftover >= 0.
func ApplyFloorGuard(lines []Line, budget float64) GuardResult {
	cost := TotalCost(lines)
	if cost <= budget+affordEps {
		return GuardResult{Factor: 1, CostAfter: cost, Leftover: budget - cost}
	}

	factor := 0.0
	if cost > 0 && budget > 0 {
		factor = budget / cost
	}
	for i := range lines {
		scaled := int(math.Floor(float64(lines[i].Shares) * factor))
		lines[i].Shares = scaled
		lines[i].FloorShares = scaled
	}

	// floor(s·f) sums to at most f·cost = budget; the loop covers float noise
	for TotalCost(lines) > budget+affordEps {
		i := mostExpensiveHeld(lines)
		if i < 0 {
			break
		}
		lines[i].Shares--
		lines[i].FloorShares--
	}

	after := TotalCost(lines)
	return GuardResult{
		Applied:   true,
		Factor:    factor,
		CostAfter: after,
		Leftover:  budget - after,
	}
}

func mostExpensiveHeld(lines []Line) int {
	best := -1
	for i, l := range lines {
		if l.Shares <= 0 {
			continue
		}
		if best < 0 || l.Price > lines[best].Price {
			best = i
		}
	}
	return best
}

// Clone copies lines so promoters never mutate caller state
func Clone(lines []Line) []Line {
	out := make([]Line, len(lines))
	copy(out, lines)
	return out
}
