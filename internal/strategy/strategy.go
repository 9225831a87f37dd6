package strategy

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/wonny/rebalancer/internal/contracts"
)

// Strategy names
const (
	NameMomentum = "momentum"
	NameFixed    = "fixed"
	NameCustom   = "custom"
)

// Weighting modes of the momentum strategy
const (
	WeightEqual    = "equal"
	WeightMomentum = "momentum"
)

// DefaultEpsilon is the tolerance on Σ target% = 100
const DefaultEpsilon = 0.01

// Params parameterizes every strategy variant. Unused fields are ignored.
type Params struct {
	TopN             int                `json:"topN,omitempty" yaml:"top_n"`
	Weighting        string             `json:"weighting,omitempty" yaml:"weighting"`
	CashTicker       string             `json:"cashTicker,omitempty" yaml:"cash_ticker"`
	AllowedDeviation float64            `json:"allowedDeviation,omitempty" yaml:"allowed_deviation"`
	Epsilon          float64            `json:"epsilon,omitempty" yaml:"epsilon"`
	Weights          map[string]float64 `json:"weights,omitempty" yaml:"weights"`
	TrendFilter      bool               `json:"trendFilter,omitempty" yaml:"trend_filter"`
	TrendMonths      int                `json:"trendMonths,omitempty" yaml:"trend_months"`

	// Trends maps ticker → price at/above its SMA. Filled by the engine.
	Trends map[string]bool `json:"-" yaml:"-"`
}

func (p Params) epsilon() float64 {
	if p.Epsilon > 0 {
		return p.Epsilon
	}
	return DefaultEpsilon
}

func (p Params) deviation() float64 {
	if p.AllowedDeviation > 0 {
		return p.AllowedDeviation
	}
	return contracts.DefaultAllowedDeviation
}

// Strategy maps tickers and momentum into target allocations
// ⭐ SSOT: 전략 → 목표 비중 변환 인터페이스
type Strategy interface {
	Name() string
	TargetAllocation(tickers []string, records []contracts.MomentumRecord, params Params) ([]contracts.TargetAllocation, error)
}

// NeedsMomentum reports whether the strategy consumes momentum records
func NeedsMomentum(name string) bool {
	return name == NameMomentum
}

// Normalize merges duplicate tickers, drops zero weights, applies the
// default deviation and orders by percentage desc then ticker asc
func Normalize(targets []contracts.TargetAllocation, defaultDeviation float64) []contracts.TargetAllocation {
	merged := make(map[string]*contracts.TargetAllocation, len(targets))
	for _, t := range targets {
		t := t
		ticker := strings.ToUpper(strings.TrimSpace(t.Ticker))
		if ticker == "" {
			continue
		}
		if cur, ok := merged[ticker]; ok {
			cur.TargetPercentage += t.TargetPercentage
			if t.Price > 0 {
				cur.Price = t.Price
			}
			continue
		}
		t.Ticker = ticker
		merged[ticker] = &t
	}

	out := make([]contracts.TargetAllocation, 0, len(merged))
	for _, t := range merged {
		if t.TargetPercentage <= 0 {
			continue
		}
		t.TargetPercentage = roundPct(t.TargetPercentage)
		if t.AllowedDeviation <= 0 {
			t.AllowedDeviation = defaultDeviation
		}
		out = append(out, *t)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].TargetPercentage != out[j].TargetPercentage {
			return out[i].TargetPercentage > out[j].TargetPercentage
		}
		return out[i].Ticker < out[j].Ticker
	})
	return out
}

// validateWeights checks a ticker → percentage map sums to 100±eps
func validateWeights(weights map[string]float64, eps float64) error {
	if len(weights) == 0 {
		return contracts.Invalid("weights", "at least one ticker is required")
	}

	total := 0.0
	for ticker, pct := range weights {
		if strings.TrimSpace(ticker) == "" {
			return contracts.Invalid("weights", "empty ticker")
		}
		if math.IsNaN(pct) || pct < 0 || pct > 100 {
			return contracts.Invalid("weights."+ticker, "must be in [0, 100], got %v", pct)
		}
		total += pct
	}

	if math.Abs(total-100) > eps {
		return contracts.Invalid("weights", "must sum to 100 (±%v), got %.4f", eps, total)
	}
	return nil
}

// sortedKeys returns map keys in ascending order
func sortedKeys(m map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func roundPct(v float64) float64 {
	return math.Round(v*1e6) / 1e6
}

// Registry resolves strategies by name
type Registry struct {
	strategies map[string]Strategy
}

// NewRegistry returns a registry with the built-in strategies
func NewRegistry() *Registry {
	r := &Registry{strategies: map[string]Strategy{}}
	r.Register(MomentumRanked{})
	r.Register(FixedWeight{})
	r.Register(Custom{})
	return r
}

// Register adds or replaces a strategy
func (r *Registry) Register(s Strategy) {
	r.strategies[s.Name()] = s
}

// Get returns the strategy registered under name
func (r *Registry) Get(name string) (Strategy, error) {
	s, ok := r.strategies[strings.ToLower(name)]
	if !ok {
		return nil, fmt.Errorf("%w: %q", contracts.ErrUnknownStrategy, name)
	}
	return s, nil
}

// Names lists registered strategy names in order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.strategies))
	for n := range r.strategies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
