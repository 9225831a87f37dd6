package heuristic

import (
	"math"
	"sort"
)

// Promoter names
const (
	RemainderFirst   = "remainder-first"
	MultiShare       = "multi-share"
	MomentumWeighted = "momentum-weighted"
	PriceEfficient   = "price-efficient"
	Hybrid           = "hybrid"
)

// Promoter spends leftover cash one share at a time on top of a floor
// allocation. Implementations must return Shares >= the input Shares for
// every line and a leftover no larger than the input leftover.
// ⭐ SSOT: 잔여 예산 승격(promotion) 전략 인터페이스
type Promoter interface {
	Name() string
	CalculatePromotions(lines []Line, leftover float64) ([]Line, float64)
}

// IterationBound is the most promotions leftover can pay for, plus one
func IterationBound(lines []Line, leftover float64) int {
	minPrice := math.Inf(1)
	for _, l := range lines {
		if l.Price > 0 && l.Price < minPrice {
			minPrice = l.Price
		}
	}
	if math.IsInf(minPrice, 1) || leftover <= 0 {
		return 0
	}
	return int(math.Floor(leftover/minPrice+affordEps)) + 1
}

// remainderFirst grants at most one extra share per line, largest
// fractional remainder first
type remainderFirst struct{}

func (remainderFirst) Name() string { return RemainderFirst }

func (remainderFirst) CalculatePromotions(in []Line, leftover float64) ([]Line, float64) {
	lines := Clone(in)
	order := indexes(lines)
	sort.SliceStable(order, func(a, b int) bool {
		la, lb := lines[order[a]], lines[order[b]]
		if la.Remainder() != lb.Remainder() {
			return la.Remainder() > lb.Remainder()
		}
		return la.Ticker < lb.Ticker
	})

	for _, i := range order {
		if lines[i].Remainder() <= 0 {
			continue
		}
		if lines[i].canPromote(leftover) {
			lines[i].Shares++
			leftover -= lines[i].Price
		}
	}
	return lines, leftover
}

// loopPromoter repeatedly promotes the first affordable line in an order.
// When dynamic is set the order is recomputed after every promotion.
type loopPromoter struct {
	name    string
	less    func(a, b Line) bool
	dynamic bool
}

func (p loopPromoter) Name() string { return p.name }

func (p loopPromoter) CalculatePromotions(in []Line, leftover float64) ([]Line, float64) {
	lines := Clone(in)
	order := p.sorted(lines)

	for iter, bound := 0, IterationBound(lines, leftover); iter < bound; iter++ {
		promoted := false
		for _, i := range order {
			if lines[i].canPromote(leftover) {
				lines[i].Shares++
				leftover -= lines[i].Price
				promoted = true
				break
			}
		}
		if !promoted || leftover <= affordEps {
			break
		}
		if p.dynamic {
			order = p.sorted(lines)
		}
	}
	return lines, leftover
}

func (p loopPromoter) sorted(lines []Line) []int {
	order := indexes(lines)
	sort.SliceStable(order, func(a, b int) bool {
		la, lb := lines[order[a]], lines[order[b]]
		if p.less(la, lb) {
			return true
		}
		if p.less(lb, la) {
			return false
		}
		return la.Ticker < lb.Ticker
	})
	return order
}

func byPriceAsc(a, b Line) bool {
	return a.Price < b.Price
}

func momentumPerDollar(l Line) float64 {
	if !l.HasMomentum || l.Price <= 0 {
		return math.Inf(-1)
	}
	return l.Momentum / l.Price
}

func byMomentumPerDollar(a, b Line) bool {
	return momentumPerDollar(a) > momentumPerDollar(b)
}

func byShortfall(a, b Line) bool {
	if a.Shortfall() != b.Shortfall() {
		return a.Shortfall() > b.Shortfall()
	}
	return a.Price < b.Price
}

// NewMultiShare promotes the cheapest affordable line each round
func NewMultiShare() Promoter {
	return loopPromoter{name: MultiShare, less: byPriceAsc}
}

// NewMomentumWeighted promotes by momentum per dollar
func NewMomentumWeighted() Promoter {
	return loopPromoter{name: MomentumWeighted, less: byMomentumPerDollar}
}

// NewPriceEfficient promotes the line furthest below its exact target,
// cheaper first on ties
func NewPriceEfficient() Promoter {
	return loopPromoter{name: PriceEfficient, less: byShortfall, dynamic: true}
}

// NewRemainderFirst returns the single-pass remainder promoter
func NewRemainderFirst() Promoter {
	return remainderFirst{}
}

// NewOrdered builds a loop promoter from an arbitrary ordering
func NewOrdered(name string, less func(a, b Line) bool, dynamic bool) Promoter {
	return loopPromoter{name: name, less: less, dynamic: dynamic}
}

// hybrid blends momentum-per-dollar rank with shortfall rank
type hybrid struct {
	momentumWeight float64
}

// NewHybrid weights momentum rank by w and shortfall rank by 1-w
func NewHybrid(w float64) Promoter {
	if w < 0 || w > 1 {
		w = 0.5
	}
	return hybrid{momentumWeight: w}
}

func (hybrid) Name() string { return Hybrid }

func (h hybrid) CalculatePromotions(in []Line, leftover float64) ([]Line, float64) {
	momentumRank := rankBy(in, byMomentumPerDollar)
	shortfallRank := rankBy(in, byShortfall)

	score := make(map[string]float64, len(in))
	for i, l := range in {
		score[l.Ticker] = h.momentumWeight*float64(momentumRank[i]) + (1-h.momentumWeight)*float64(shortfallRank[i])
	}

	composite := loopPromoter{
		name: Hybrid,
		less: func(a, b Line) bool { return score[a.Ticker] < score[b.Ticker] },
	}
	return composite.CalculatePromotions(in, leftover)
}

// rankBy returns each line's 0-based position under less (ticker breaks ties)
func rankBy(lines []Line, less func(a, b Line) bool) []int {
	order := loopPromoter{less: less}.sorted(lines)
	rank := make([]int, len(lines))
	for pos, i := range order {
		rank[i] = pos
	}
	return rank
}

func indexes(lines []Line) []int {
	out := make([]int, len(lines))
	for i := range out {
		out[i] = i
	}
	return out
}
