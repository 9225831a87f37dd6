package tolerance

import (
	"math"

	"github.com/wonny/rebalancer/internal/heuristic"
	"github.com/wonny/rebalancer/pkg/logger"
)

// Config tunes refinement
type Config struct {
	LeftoverThreshold float64 // fraction of budget
	MaxRelaxation     float64 // band multiplier ceiling
	Iterations        int
	Epsilon           float64 // minimum leftover improvement per round
	RatioTolerance    float64
	Gain              float64 // relaxation added per unit of leftover/budget
}

// DefaultConfig returns default refinement settings
func DefaultConfig() Config {
	return Config{
		LeftoverThreshold: 0.02,
		MaxRelaxation:     2,
		Iterations:        5,
		Epsilon:           0.01,
		RatioTolerance:    0.02,
		Gain:              10,
	}
}

// Round describes one refinement round
type Round struct {
	Relaxation     float64
	Pairs          int
	LeftoverBefore float64
	LeftoverAfter  float64
}

// Refinement is the outcome of Refine
type Refinement struct {
	Lines      []heuristic.Line
	Leftover   float64
	Relaxation float64
	Rounds     []Round
}

// Refiner spends leftover cash by widening bands and exploiting price ratios
// ⭐ SSOT: 허용 오차 완화 + 반복 개선은 여기서만
type Refiner struct {
	cfg    Config
	logger *logger.Logger
}

// NewRefiner creates a refiner
func NewRefiner(cfg Config, log *logger.Logger) *Refiner {
	if log == nil {
		log = logger.Nop()
	}
	def := DefaultConfig()
	if cfg.MaxRelaxation < 1 {
		cfg.MaxRelaxation = def.MaxRelaxation
	}
	if cfg.Iterations <= 0 {
		cfg.Iterations = def.Iterations
	}
	if cfg.Epsilon <= 0 {
		cfg.Epsilon = def.Epsilon
	}
	if cfg.RatioTolerance <= 0 {
		cfg.RatioTolerance = def.RatioTolerance
	}
	if cfg.Gain <= 0 {
		cfg.Gain = def.Gain
	}
	return &Refiner{cfg: cfg, logger: log.Component("refiner")}
}

// NeedsRefinement reports whether leftover exceeds the threshold
func (r *Refiner) NeedsRefinement(leftover, budget float64) bool {
	if budget <= 0 {
		return false
	}
	return leftover > r.cfg.LeftoverThreshold*budget
}

// Refine runs rounds until leftover drops under the threshold, a round
// improves less than epsilon, or the iteration cap is hit. Each round
// widens the bands in proportion to leftover/budget, bounded by
// MaxRelaxation, then promotes ratio-pair small sides before a
// cheapest-first sweep. Shares never decrease and leftover never grows.
func (r *Refiner) Refine(lines []heuristic.Line, bands []Band, leftover, budget, portfolioValue float64) Refinement {
	out := Refinement{Lines: heuristic.Clone(lines), Leftover: leftover, Relaxation: 1}
	sweep := heuristic.NewMultiShare()

	for i := 0; i < r.cfg.Iterations && r.NeedsRefinement(out.Leftover, budget); i++ {
		relax := math.Min(r.cfg.MaxRelaxation, out.Relaxation+out.Leftover/budget*r.cfg.Gain)
		ApplyCaps(out.Lines, bands, portfolioValue, relax)

		pairs := DetectRatios(out.Lines, r.cfg.RatioTolerance)
		before := out.Leftover
		if len(pairs) > 0 {
			out.Lines, out.Leftover = NewRatioPromoter(pairs).CalculatePromotions(out.Lines, out.Leftover)
		}
		out.Lines, out.Leftover = sweep.CalculatePromotions(out.Lines, out.Leftover)

		out.Relaxation = relax
		out.Rounds = append(out.Rounds, Round{
			Relaxation:     relax,
			Pairs:          len(pairs),
			LeftoverBefore: before,
			LeftoverAfter:  out.Leftover,
		})

		r.logger.WithFields(map[string]interface{}{
			"round":      i + 1,
			"relaxation": relax,
			"pairs":      len(pairs),
			"leftover":   out.Leftover,
		}).Debug("Refinement round")

		if before-out.Leftover < r.cfg.Epsilon {
			break
		}
	}

	return out
}
