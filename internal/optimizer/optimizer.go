package optimizer

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/wonny/rebalancer/internal/contracts"
	"github.com/wonny/rebalancer/internal/heuristic"
	"github.com/wonny/rebalancer/internal/solver"
	"github.com/wonny/rebalancer/internal/tolerance"
	"github.com/wonny/rebalancer/pkg/config"
	"github.com/wonny/rebalancer/pkg/logger"
)

// Metrics is the subset of the metrics registry used here
type Metrics interface {
	ObserveOptimization(solverStatus string, fallback string, utilization float64, d time.Duration)
}

// Config tunes the optimization pipeline
type Config struct {
	DefaultDeviation  float64
	SumEpsilon        float64
	DefaultStrategy   string
	UtilizationWeight float64
	FairnessWeight    float64
	Solver            solver.Config
	Refine            tolerance.Config
}

// DefaultConfig returns default optimizer configuration
func DefaultConfig() Config {
	return Config{
		DefaultDeviation:  contracts.DefaultAllowedDeviation,
		SumEpsilon:        0.01,
		DefaultStrategy:   contracts.StrategyAuto,
		UtilizationWeight: 1,
		Solver:            solver.DefaultConfig(),
		Refine:            tolerance.DefaultConfig(),
	}
}

// ConfigFrom maps application configuration onto the pipeline
func ConfigFrom(c config.OptimizerConfig) Config {
	cfg := DefaultConfig()
	cfg.DefaultDeviation = c.DefaultDeviation
	cfg.SumEpsilon = c.SumEpsilon
	cfg.DefaultStrategy = c.DefaultStrategy
	cfg.UtilizationWeight = c.UtilizationWeight
	cfg.FairnessWeight = c.FairnessWeight
	cfg.Solver.Timeout = c.SolverTimeout
	cfg.Solver.MaxNodes = c.MaxNodes
	cfg.Refine.LeftoverThreshold = c.LeftoverThreshold
	cfg.Refine.MaxRelaxation = c.MaxRelaxation
	cfg.Refine.Iterations = c.RefineIterations
	cfg.Refine.Epsilon = c.RefineEpsilon
	return cfg
}

// Optimizer turns target allocations and cash into whole-share orders:
// integer solver first, heuristic cascade plus refinement when it fails
// ⭐ SSOT: 최적화 파이프라인 진입점
type Optimizer struct {
	cfg       Config
	solver    *solver.Solver
	promoters *heuristic.Registry
	cascade   *heuristic.Cascade
	refiner   *tolerance.Refiner
	recorder  contracts.RunRecorder
	metrics   Metrics
	now       func() time.Time
	logger    *logger.Logger
}

// New creates an optimizer
func New(cfg Config, log *logger.Logger) *Optimizer {
	if log == nil {
		log = logger.Nop()
	}
	if cfg.DefaultDeviation <= 0 {
		cfg.DefaultDeviation = contracts.DefaultAllowedDeviation
	}
	if cfg.SumEpsilon <= 0 {
		cfg.SumEpsilon = DefaultConfig().SumEpsilon
	}
	if cfg.DefaultStrategy == "" {
		cfg.DefaultStrategy = contracts.StrategyAuto
	}

	registry := heuristic.NewRegistry()
	return &Optimizer{
		cfg:       cfg,
		solver:    solver.New(cfg.Solver, log),
		promoters: registry,
		cascade:   heuristic.NewCascade(registry, log),
		refiner:   tolerance.NewRefiner(cfg.Refine, log),
		now:       time.Now,
		logger:    log.Component("optimizer"),
	}
}

// WithRecorder attaches an audit sink for completed runs
func (o *Optimizer) WithRecorder(r contracts.RunRecorder) *Optimizer {
	o.recorder = r
	return o
}

// WithMetrics attaches a metrics sink
func (o *Optimizer) WithMetrics(m Metrics) *Optimizer {
	o.metrics = m
	return o
}

// Strategies lists accepted optimizationStrategy values
func (o *Optimizer) Strategies() []string {
	return append([]string{contracts.StrategyAuto, contracts.StrategyHeuristic}, o.promoters.Names()...)
}

// allocation is the raw share outcome before response building
type allocation struct {
	shares     []int
	status     contracts.SolverStatus
	fallback   string
	refinement *tolerance.Refinement
}

// Optimize validates req, solves it and builds the response. Only invalid
// input is returned as an error; solver failures fall back to heuristics.
func (o *Optimizer) Optimize(ctx context.Context, req *contracts.OptimizationRequest) (*contracts.OptimizationResult, error) {
	start := o.now()

	p, err := o.prepare(req)
	if err != nil {
		o.logger.WithError(err).Warn("Optimization request rejected")
		return nil, err
	}

	alloc := allocation{status: contracts.StatusHeuristic}
	if p.strategy != contracts.StrategyHeuristic {
		res := o.solver.Solve(ctx, o.problem(p))
		alloc.status = res.Status
		if res.Status == contracts.StatusOptimal {
			alloc.shares = res.Shares
		} else {
			o.logger.WithFields(map[string]interface{}{
				"status": string(res.Status),
				"nodes":  res.Nodes,
				"error":  fmt.Sprint(res.Err),
			}).Info("Solver did not reach optimum, running heuristic cascade")
		}
	}

	if alloc.status.NeedsFallback() {
		if err := o.fallback(p, &alloc); err != nil {
			return nil, err
		}
	}

	result := o.buildResult(p, alloc, o.now().Sub(start))

	// budget conservation is checked on every path before anything leaves
	if spent := spentOf(p, alloc.shares); spent > p.budget+1e-6 {
		return nil, fmt.Errorf("allocation spends %.2f of %.2f budget", spent, p.budget)
	}

	if o.metrics != nil {
		o.metrics.ObserveOptimization(string(result.SolverStatus), result.FallbackStrategy,
			result.OptimizationMetrics.UtilizationPercentage, o.now().Sub(start))
	}
	if o.recorder != nil {
		if err := o.recorder.Record(ctx, req, result); err != nil {
			o.logger.WithError(err).Run(result.RunID).Warn("Failed to record optimization run")
		}
	}

	o.logger.WithFields(map[string]interface{}{
		"run_id":      result.RunID,
		"strategy":    p.strategy,
		"status":      string(result.SolverStatus),
		"fallback":    result.FallbackStrategy,
		"utilization": result.OptimizationMetrics.UtilizationPercentage,
		"compliance":  result.ToleranceMetrics.ComplianceRate,
	}).Info("Optimization completed")

	return result, nil
}

func (o *Optimizer) problem(p *plan) solver.Problem {
	prob := solver.Problem{
		Budget:            p.budget,
		PortfolioValue:    p.portfolioValue,
		UtilizationWeight: o.cfg.UtilizationWeight,
		FairnessWeight:    o.cfg.FairnessWeight,
		Items:             make([]solver.Item, len(p.targets)),
	}
	for i, t := range p.targets {
		prob.Items[i] = solver.Item{
			Ticker:           t.Ticker,
			Price:            t.Price,
			CurrentValue:     float64(p.current[i]) * t.Price,
			TargetPercentage: t.TargetPercentage,
			AllowedDeviation: t.AllowedDeviation,
		}
	}
	return prob
}

// fallback runs floor allocation, the promoter cascade and, when leftover
// stays above threshold, band refinement
func (o *Optimizer) fallback(p *plan, alloc *allocation) error {
	strategy := p.strategy
	if strategy == contracts.StrategyHeuristic {
		strategy = contracts.StrategyAuto
	}
	steps, err := o.cascade.Plan(strategy, p.hasMomentum())
	if err != nil {
		return err
	}

	bands := make([]tolerance.Band, len(p.targets))
	for i, t := range p.targets {
		bands[i] = tolerance.Band{TargetPercentage: t.TargetPercentage, AllowedDeviation: t.AllowedDeviation}
	}

	lines := heuristic.FloorAllocation(p.inputs(), p.portfolioValue)
	tolerance.ApplyCaps(lines, bands, p.portfolioValue, 1)

	outcome, err := o.cascade.Run(lines, p.budget, steps)
	if err != nil {
		return err
	}
	lines, leftover := outcome.Lines, outcome.Leftover
	alloc.fallback = outcome.Final

	if o.refiner.NeedsRefinement(leftover, p.budget) {
		ref := o.refiner.Refine(lines, bands, leftover, p.budget, p.portfolioValue)
		lines = ref.Lines
		alloc.refinement = &ref
	}

	alloc.shares = make([]int, len(lines))
	for i, l := range lines {
		alloc.shares[i] = l.Shares
	}
	return nil
}

func spentOf(p *plan, shares []int) float64 {
	total := 0.0
	for i, t := range p.targets {
		total += float64(shares[i]) * t.Price
	}
	return total
}

func newRunID() string {
	return uuid.NewString()
}
