package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/wonny/rebalancer/internal/contracts"
	"github.com/wonny/rebalancer/internal/optimizer"
	"github.com/wonny/rebalancer/pkg/logger"
)

// Optimizer turns targets and holdings into whole-share orders
type Optimizer interface {
	Optimize(ctx context.Context, req *contracts.OptimizationRequest) (*contracts.OptimizationResult, error)
	Strategies() []string
}

// RunStore reads the optimization audit log
type RunStore interface {
	Get(ctx context.Context, runID string) (*contracts.OptimizationResult, error)
	Recent(ctx context.Context, limit int) ([]optimizer.RunSummary, error)
}

// OptimizeHandler handles optimization endpoints
// ⭐ SSOT: 최적화 API 핸들러는 이 구조체에서만
type OptimizeHandler struct {
	optimizer Optimizer
	runs      RunStore
	logger    *logger.Logger
}

// NewOptimizeHandler creates a new optimize handler. runs may be nil when
// no database is configured.
func NewOptimizeHandler(opt Optimizer, runs RunStore, log *logger.Logger) *OptimizeHandler {
	return &OptimizeHandler{
		optimizer: opt,
		runs:      runs,
		logger:    log.Component("optimize_handler"),
	}
}

// Optimize runs one optimization
// POST /api/optimize
func (h *OptimizeHandler) Optimize(w http.ResponseWriter, r *http.Request) {
	var req contracts.OptimizationRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	result, err := h.optimizer.Optimize(r.Context(), &req)
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// Strategies lists the accepted optimizationStrategy values
// GET /api/strategies
func (h *OptimizeHandler) Strategies(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"strategies": h.optimizer.Strategies(),
	})
}

// GetRun returns one recorded optimization
// GET /api/runs/{id}
func (h *OptimizeHandler) GetRun(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "Run history requires a database")
		return
	}

	result, err := h.runs.Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, result)
}

// ListRuns returns the latest recorded optimizations
// GET /api/runs?limit=N
func (h *OptimizeHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.runs == nil {
		respondError(w, http.StatusServiceUnavailable, "Run history requires a database")
		return
	}

	limit := 50
	if s := r.URL.Query().Get("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n <= 0 {
			respondJSON(w, http.StatusBadRequest, ErrorResponse{Error: "limit must be a positive integer", Code: "invalid_input", Field: "limit"})
			return
		}
		limit = n
	}

	runs, err := h.runs.Recent(r.Context(), limit)
	if err != nil {
		respondFailure(w, h.logger, err)
		return
	}
	if runs == nil {
		runs = []optimizer.RunSummary{}
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"runs":  runs,
		"count": len(runs),
	})
}
