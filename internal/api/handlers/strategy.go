package handlers

import (
	"context"
	"net/http"
	"sort"

	"github.com/wonny/rebalancer/internal/contracts"
	"github.com/wonny/rebalancer/internal/strategy"
	"github.com/wonny/rebalancer/pkg/logger"
)

// TargetEngine computes target allocations from a strategy request
type TargetEngine interface {
	Targets(ctx context.Context, req strategy.Request) (*strategy.Result, error)
}

// TargetsRequest is a strategy request, optionally named by template.
// Template fields win over inline ones.
type TargetsRequest struct {
	Template string `json:"template,omitempty"`
	strategy.Request
}

// RebalanceRequest runs targets and optimization in one call
type RebalanceRequest struct {
	TargetsRequest
	CurrentHoldings      []contracts.Holding `json:"currentHoldings"`
	AvailableCash        float64             `json:"availableCash"`
	OptimizationStrategy string              `json:"optimizationStrategy,omitempty"`
}

// RebalanceResponse carries both pipeline stages
type RebalanceResponse struct {
	Targets      *strategy.Result              `json:"targets"`
	Optimization *contracts.OptimizationResult `json:"optimization"`
}

// StrategyHandler handles target allocation endpoints
type StrategyHandler struct {
	engine    TargetEngine
	templates *strategy.TemplateSet
	optimizer Optimizer
	logger    *logger.Logger
}

// NewStrategyHandler creates a new strategy handler. templates may be nil.
func NewStrategyHandler(engine TargetEngine, templates *strategy.TemplateSet, opt Optimizer, log *logger.Logger) *StrategyHandler {
	return &StrategyHandler{
		engine:    engine,
		templates: templates,
		optimizer: opt,
		logger:    log.Component("strategy_handler"),
	}
}

// Targets computes target allocations
// POST /api/targets
func (h *StrategyHandler) Targets(w http.ResponseWriter, r *http.Request) {
	var req TargetsRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.targets(r.Context(), req)
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Rebalance computes targets then optimizes orders against them
// POST /api/rebalance
func (h *StrategyHandler) Rebalance(w http.ResponseWriter, r *http.Request) {
	var req RebalanceRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	targets, err := h.targets(r.Context(), req.TargetsRequest)
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	result, err := h.optimizer.Optimize(r.Context(), &contracts.OptimizationRequest{
		CurrentHoldings:      req.CurrentHoldings,
		TargetAllocations:    targets.Targets,
		AvailableCash:        req.AvailableCash,
		OptimizationStrategy: req.OptimizationStrategy,
		MomentumScores:       targets.MomentumScores(),
	})
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, RebalanceResponse{Targets: targets, Optimization: result})
}

// Templates lists the loaded strategy templates
// GET /api/templates
func (h *StrategyHandler) Templates(w http.ResponseWriter, r *http.Request) {
	if h.templates == nil {
		respondJSON(w, http.StatusOK, map[string]interface{}{"templates": []strategy.Template{}})
		return
	}

	names := make([]string, 0, len(h.templates.Templates))
	for name := range h.templates.Templates {
		names = append(names, name)
	}
	sort.Strings(names)

	list := make([]strategy.Template, len(names))
	for i, name := range names {
		list[i] = h.templates.Templates[name]
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"templates": list,
		"hash":      h.templates.Hash,
	})
}

func (h *StrategyHandler) targets(ctx context.Context, req TargetsRequest) (*strategy.Result, error) {
	sreq := req.Request
	if req.Template != "" {
		if h.templates == nil {
			return nil, contracts.Invalid("template", "no templates loaded")
		}
		t, err := h.templates.Get(req.Template)
		if err != nil {
			return nil, err
		}
		sreq = strategy.FromTemplate(t)
	}
	if sreq.Strategy == "" {
		return nil, contracts.Invalid("strategy", "required")
	}
	return h.engine.Targets(ctx, sreq)
}
