package heuristic

import (
	"fmt"
	"sort"
	"strings"

	"github.com/wonny/rebalancer/internal/contracts"
	"github.com/wonny/rebalancer/pkg/logger"
)

// Registry holds promoters by name
type Registry struct {
	promoters map[string]Promoter
}

// NewRegistry returns a registry with the built-in promoters
func NewRegistry() *Registry {
	r := &Registry{promoters: map[string]Promoter{}}
	r.Register(NewRemainderFirst())
	r.Register(NewMultiShare())
	r.Register(NewMomentumWeighted())
	r.Register(NewPriceEfficient())
	r.Register(NewHybrid(0.5))
	return r
}

// Register adds or replaces a promoter
func (r *Registry) Register(p Promoter) {
	r.promoters[p.Name()] = p
}

// Get returns the promoter called name
func (r *Registry) Get(name string) (Promoter, bool) {
	p, ok := r.promoters[name]
	return p, ok
}

// Names lists registered promoter names in order
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.promoters))
	for n := range r.promoters {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Outcome is the result of a cascade run
type Outcome struct {
	Lines    []Line
	Leftover float64
	Steps    []string // promoters that ran, in order
	Final    string   // last promoter that spent money
	Guard    GuardResult
}

// Cascade dispatches promoters over a floor allocation
// ⭐ SSOT: 휴리스틱 폴백 실행 순서는 여기서만 결정
type Cascade struct {
	registry *Registry
	logger   *logger.Logger
}

// NewCascade creates a dispatcher over registry
func NewCascade(registry *Registry, log *logger.Logger) *Cascade {
	if log == nil {
		log = logger.Nop()
	}
	return &Cascade{registry: registry, logger: log.Component("cascade")}
}

// Plan resolves the promoter sequence for a strategy name.
// auto/heuristic: remainder-first, then momentum-weighted when momentum is
// known else price-efficient, then a multi-share sweep. A promoter name
// runs that promoter followed by the multi-share sweep.
func (c *Cascade) Plan(strategy string, hasMomentum bool) ([]string, error) {
	switch strings.ToLower(strategy) {
	case "", contracts.StrategyAuto, contracts.StrategyHeuristic:
		second := PriceEfficient
		if hasMomentum {
			second = MomentumWeighted
		}
		return []string{RemainderFirst, second, MultiShare}, nil
	}

	name := strings.ToLower(strategy)
	if _, ok := c.registry.Get(name); !ok {
		return nil, fmt.Errorf("%w: promoter %q (known: %s)", contracts.ErrUnknownStrategy, strategy, strings.Join(c.registry.Names(), ", "))
	}
	if name == MultiShare {
		return []string{MultiShare}, nil
	}
	return []string{name, MultiShare}, nil
}

// Run applies the floor guard then every promoter of the plan in order
func (c *Cascade) Run(lines []Line, budget float64, plan []string) (Outcome, error) {
	out := Outcome{Lines: Clone(lines)}
	out.Guard = ApplyFloorGuard(out.Lines, budget)
	out.Leftover = out.Guard.Leftover

	if out.Guard.Applied {
		c.logger.WithFields(map[string]interface{}{
			"factor":     out.Guard.Factor,
			"cost_after": out.Guard.CostAfter,
			"budget":     budget,
		}).Warn("Floor cost exceeded budget, floors scaled down")
	}

	for _, name := range plan {
		p, ok := c.registry.Get(name)
		if !ok {
			return out, fmt.Errorf("%w: promoter %q", contracts.ErrUnknownStrategy, name)
		}
		before := out.Leftover
		out.Lines, out.Leftover = p.CalculatePromotions(out.Lines, out.Leftover)
		out.Steps = append(out.Steps, name)
		if out.Leftover < before-affordEps {
			out.Final = name
		}

		c.logger.WithFields(map[string]interface{}{
			"promoter":        name,
			"leftover_before": before,
			"leftover_after":  out.Leftover,
		}).Debug("Promoter applied")
	}

	if out.Final == "" && len(out.Steps) > 0 {
		out.Final = out.Steps[0]
	}
	return out, nil
}
