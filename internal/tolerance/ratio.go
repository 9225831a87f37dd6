package tolerance

import (
	"math"
	"sort"

	"github.com/wonny/rebalancer/internal/heuristic"
)

// RatioPacking is the promoter name used for ratio-aware promotions
const RatioPacking = "ratio-packing"

// RatioPair records priceLarge ≈ Multiple × priceSmall
type RatioPair struct {
	Large    string
	Small    string
	Multiple int
	Error    float64 // relative distance from the integer multiple
}

// DetectRatios finds pairs whose price ratio is within tol of an integer ≥ 2
func DetectRatios(lines []heuristic.Line, tol float64) []RatioPair {
	var pairs []RatioPair
	for i := range lines {
		for j := range lines {
			a, b := lines[i], lines[j]
			if i == j || a.Price <= 0 || b.Price <= 0 || a.Price <= b.Price {
				continue
			}
			ratio := a.Price / b.Price
			k := math.Round(ratio)
			if k < 2 {
				continue
			}
			if e := math.Abs(ratio-k) / k; e <= tol {
				pairs = append(pairs, RatioPair{Large: a.Ticker, Small: b.Ticker, Multiple: int(k), Error: e})
			}
		}
	}

	sort.Slice(pairs, func(x, y int) bool {
		if pairs[x].Large != pairs[y].Large {
			return pairs[x].Large < pairs[y].Large
		}
		return pairs[x].Small < pairs[y].Small
	})
	return pairs
}

// NewRatioPromoter promotes the small side of detected pairs first, then
// everything else, cheapest first within each group
func NewRatioPromoter(pairs []RatioPair) heuristic.Promoter {
	small := make(map[string]bool, len(pairs))
	for _, p := range pairs {
		small[p.Small] = true
	}
	return heuristic.NewOrdered(RatioPacking, func(a, b heuristic.Line) bool {
		if small[a.Ticker] != small[b.Ticker] {
			return small[a.Ticker]
		}
		return a.Price < b.Price
	}, false)
}
