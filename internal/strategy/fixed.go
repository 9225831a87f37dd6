package strategy

import (
	"strings"

	"github.com/wonny/rebalancer/internal/contracts"
)

// FixedWeight applies static weights. With the trend filter on, a ticker
// trading below its SMA hands its weight to the cash ticker.
type FixedWeight struct{}

// Name implements Strategy
func (FixedWeight) Name() string { return NameFixed }

// TargetAllocation implements Strategy
func (FixedWeight) TargetAllocation(_ []string, records []contracts.MomentumRecord, params Params) ([]contracts.TargetAllocation, error) {
	if err := validateWeights(params.Weights, params.epsilon()); err != nil {
		return nil, err
	}
	cash := strings.ToUpper(strings.TrimSpace(params.CashTicker))

	prices := make(map[string]float64, len(records))
	for _, r := range records {
		prices[strings.ToUpper(r.Ticker)] = r.CurrentPrice
	}

	targets := make([]contracts.TargetAllocation, 0, len(params.Weights)+1)
	for _, ticker := range sortedKeys(params.Weights) {
		pct := params.Weights[ticker]
		key := strings.ToUpper(ticker)

		if params.TrendFilter {
			above, known := params.Trends[key]
			if known && !above {
				if cash == "" {
					return nil, contracts.Invalid("cashTicker", "required when the trend filter reroutes %s", key)
				}
				targets = append(targets, contracts.TargetAllocation{Ticker: cash, TargetPercentage: pct})
				continue
			}
		}

		targets = append(targets, contracts.TargetAllocation{
			Ticker:           key,
			TargetPercentage: pct,
			Price:            prices[key],
		})
	}

	return Normalize(targets, params.deviation()), nil
}

// Custom takes caller percentages verbatim after validation
type Custom struct{}

// Name implements Strategy
func (Custom) Name() string { return NameCustom }

// TargetAllocation implements Strategy
func (Custom) TargetAllocation(_ []string, _ []contracts.MomentumRecord, params Params) ([]contracts.TargetAllocation, error) {
	if err := validateWeights(params.Weights, params.epsilon()); err != nil {
		return nil, err
	}

	targets := make([]contracts.TargetAllocation, 0, len(params.Weights))
	for _, ticker := range sortedKeys(params.Weights) {
		targets = append(targets, contracts.TargetAllocation{
			Ticker:           ticker,
			TargetPercentage: params.Weights[ticker],
		})
	}
	return Normalize(targets, params.deviation()), nil
}
