package optimizer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/rebalancer/internal/contracts"
)

// ErrRunNotFound is returned when a run id is unknown
var ErrRunNotFound = errors.New("optimization run not found")

// RunRepository stores optimization runs in rebalance.optimization_runs
// ⭐ SSOT: 최적화 실행 이력 저장소는 여기서만
type RunRepository struct {
	pool *pgxpool.Pool
}

// NewRunRepository creates a run repository
func NewRunRepository(pool *pgxpool.Pool) *RunRepository {
	return &RunRepository{pool: pool}
}

// Record implements contracts.RunRecorder
func (r *RunRepository) Record(ctx context.Context, req *contracts.OptimizationRequest, res *contracts.OptimizationResult) error {
	reqJSON, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	resJSON, err := json.Marshal(res)
	if err != nil {
		return fmt.Errorf("marshal response: %w", err)
	}

	query := `
		INSERT INTO rebalance.optimization_runs (
			run_id, strategy, solver_status, fallback_used, fallback_name,
			available_budget, budget_used, utilization, compliance_rate,
			request, response, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (run_id) DO NOTHING
	`

	_, err = r.pool.Exec(ctx, query,
		res.RunID,
		res.Strategy,
		string(res.SolverStatus),
		res.FallbackUsed,
		res.FallbackStrategy,
		res.OptimizationMetrics.AvailableBudget,
		res.OptimizationMetrics.TotalBudgetUsed,
		res.OptimizationMetrics.UtilizationPercentage,
		res.ToleranceMetrics.ComplianceRate,
		reqJSON,
		resJSON,
		res.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert optimization run: %w", err)
	}
	return nil
}

// Get loads the stored response of a run
func (r *RunRepository) Get(ctx context.Context, runID string) (*contracts.OptimizationResult, error) {
	query := `SELECT response FROM rebalance.optimization_runs WHERE run_id = $1`

	var raw []byte
	if err := r.pool.QueryRow(ctx, query, runID).Scan(&raw); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("query optimization run: %w", err)
	}

	var res contracts.OptimizationResult
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, fmt.Errorf("decode optimization run: %w", err)
	}
	return &res, nil
}

// RunSummary is one row of the run log
type RunSummary struct {
	RunID           string    `json:"runId"`
	Strategy        string    `json:"strategy"`
	SolverStatus    string    `json:"solverStatus"`
	FallbackUsed    bool      `json:"fallbackUsed"`
	FallbackName    string    `json:"fallbackStrategy,omitempty"`
	AvailableBudget float64   `json:"availableBudget"`
	BudgetUsed      float64   `json:"totalBudgetUsed"`
	Utilization     float64   `json:"utilizationPercentage"`
	ComplianceRate  float64   `json:"complianceRate"`
	CreatedAt       time.Time `json:"createdAt"`
}

// Recent lists the latest runs, newest first
func (r *RunRepository) Recent(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	query := `
		SELECT run_id::text, strategy, solver_status, fallback_used, fallback_name,
		       available_budget, budget_used, utilization, compliance_rate, created_at
		FROM rebalance.optimization_runs
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query optimization runs: %w", err)
	}
	defer rows.Close()

	var out []RunSummary
	for rows.Next() {
		var s RunSummary
		if err := rows.Scan(
			&s.RunID, &s.Strategy, &s.SolverStatus, &s.FallbackUsed, &s.FallbackName,
			&s.AvailableBudget, &s.BudgetUsed, &s.Utilization, &s.ComplianceRate, &s.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan optimization run: %w", err)
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// Prune deletes runs recorded before cutoff and returns how many were removed
func (r *RunRepository) Prune(ctx context.Context, cutoff time.Time) (int64, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM rebalance.optimization_runs WHERE created_at < $1`, cutoff)
	if err != nil {
		return 0, fmt.Errorf("prune optimization runs: %w", err)
	}
	return tag.RowsAffected(), nil
}
