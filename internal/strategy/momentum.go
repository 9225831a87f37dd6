package strategy

import (
	"sort"
	"strings"

	"github.com/wonny/rebalancer/internal/contracts"
)

// MomentumRanked selects the top N tickers with absolute momentum.
// Equal averages are ordered by ticker ascending.
type MomentumRanked struct{}

// Name implements Strategy
func (MomentumRanked) Name() string { return NameMomentum }

// TargetAllocation implements Strategy
func (MomentumRanked) TargetAllocation(tickers []string, records []contracts.MomentumRecord, params Params) ([]contracts.TargetAllocation, error) {
	if params.TopN <= 0 {
		return nil, contracts.Invalid("topN", "must be > 0, got %d", params.TopN)
	}
	weighting := params.Weighting
	if weighting == "" {
		weighting = WeightEqual
	}
	if weighting != WeightEqual && weighting != WeightMomentum {
		return nil, contracts.Invalid("weighting", "must be %q or %q", WeightEqual, WeightMomentum)
	}
	cash := strings.ToUpper(strings.TrimSpace(params.CashTicker))

	allowed := make(map[string]bool, len(tickers))
	for _, t := range tickers {
		allowed[strings.ToUpper(t)] = true
	}

	candidates := make([]contracts.MomentumRecord, 0, len(records))
	for _, r := range records {
		if len(allowed) > 0 && !allowed[strings.ToUpper(r.Ticker)] {
			continue
		}
		if r.Qualifies() {
			candidates = append(candidates, r)
		}
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].Average != candidates[j].Average {
			return candidates[i].Average > candidates[j].Average
		}
		return candidates[i].Ticker < candidates[j].Ticker
	})

	if len(candidates) > params.TopN {
		candidates = candidates[:params.TopN]
	}

	if len(candidates) < params.TopN && cash == "" {
		return nil, contracts.Invalid("cashTicker", "required when fewer than %d tickers qualify (%d did)", params.TopN, len(candidates))
	}

	slot := 100 / float64(params.TopN)
	invested := slot * float64(len(candidates))

	targets := make([]contracts.TargetAllocation, 0, len(candidates)+1)
	switch weighting {
	case WeightEqual:
		for _, c := range candidates {
			targets = append(targets, contracts.TargetAllocation{
				Ticker:           c.Ticker,
				TargetPercentage: slot,
				Price:            c.CurrentPrice,
			})
		}
	case WeightMomentum:
		total := 0.0
		for _, c := range candidates {
			total += c.Average
		}
		for _, c := range candidates {
			targets = append(targets, contracts.TargetAllocation{
				Ticker:           c.Ticker,
				TargetPercentage: invested * c.Average / total,
				Price:            c.CurrentPrice,
			})
		}
	}

	if remainder := 100 - invested; remainder > 1e-9 {
		targets = append(targets, contracts.TargetAllocation{
			Ticker:           cash,
			TargetPercentage: remainder,
		})
	}

	return Normalize(targets, params.deviation()), nil
}
