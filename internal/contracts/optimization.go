package contracts

import "time"

// Optimization strategies accepted in OptimizationRequest.OptimizationStrategy.
// Any registered promoter name is also accepted.
const (
	StrategyAuto      = "auto"
	StrategyHeuristic = "heuristic"
)

// OptimizationRequest is the optimizer input
type OptimizationRequest struct {
	CurrentHoldings      []Holding          `json:"currentHoldings"`
	TargetAllocations    []TargetAllocation `json:"targetAllocations"`
	AvailableCash        float64            `json:"availableCash"`
	OptimizationStrategy string             `json:"optimizationStrategy,omitempty"`

	// MomentumScores optionally feeds momentum-aware promoters (ticker → average)
	MomentumScores map[string]float64 `json:"momentumScores,omitempty"`
}

// AllocationResult is the per-ticker outcome
type AllocationResult struct {
	Ticker           string  `json:"ticker"`
	Price            float64 `json:"price"`
	CurrentShares    int     `json:"currentShares"`
	SharesToBuy      int     `json:"sharesToBuy"`
	FinalShares      int     `json:"finalShares"`
	CostOfPurchase   float64 `json:"costOfPurchase"`
	FinalValue       float64 `json:"finalValue"`
	TargetPercentage float64 `json:"targetPercentage"`
	ActualPercentage float64 `json:"actualPercentage"`
	Deviation        float64 `json:"deviation"`
	AllowedDeviation float64 `json:"allowedDeviation"`
	Compliant        bool    `json:"compliant"`
}

// HoldingToSell is a full liquidation of a ticker outside the target set
type HoldingToSell struct {
	Ticker     string  `json:"ticker"`
	Shares     int     `json:"shares"`
	Price      float64 `json:"price"`
	TotalValue float64 `json:"totalValue"`
}

// OptimizationMetrics aggregates budget usage
type OptimizationMetrics struct {
	AvailableBudget       float64 `json:"availableBudget"`
	PortfolioValue        float64 `json:"portfolioValue"`
	TotalBudgetUsed       float64 `json:"totalBudgetUsed"`
	UnusedBudget          float64 `json:"unusedBudget"`
	UnusedPercentage      float64 `json:"unusedPercentage"`
	UtilizationPercentage float64 `json:"utilizationPercentage"`
	OptimizationTime      string  `json:"optimizationTime"`
	OptimizationTimeMs    float64 `json:"optimizationTimeMs"`
}

// ToleranceMetrics summarizes deviation-band compliance
type ToleranceMetrics struct {
	ToleranceBand    float64 `json:"toleranceBand"`
	ComplianceRate   float64 `json:"complianceRate"`
	CompliantCount   int     `json:"compliantCount"`
	TotalCount       int     `json:"totalCount"`
	QualityScore     float64 `json:"qualityScore"`
	RefinementRounds int     `json:"refinementRounds"`
	RelaxationFactor float64 `json:"relaxationFactor"`
}

// OptimizationResult is the optimizer output
// ⭐ 모든 목표 종목은 결과에 반드시 포함 (never drop a target ticker)
type OptimizationResult struct {
	RunID               string              `json:"runId"`
	SolverStatus        SolverStatus        `json:"solverStatus"`
	Allocations         []AllocationResult  `json:"allocations"`
	HoldingsToSell      []HoldingToSell     `json:"holdingsToSell"`
	Orders              []Order             `json:"orders"`
	OptimizationMetrics OptimizationMetrics `json:"optimizationMetrics"`
	ToleranceMetrics    ToleranceMetrics    `json:"toleranceMetrics"`
	FallbackUsed        bool                `json:"fallbackUsed"`
	FallbackStrategy    string              `json:"fallbackStrategy,omitempty"`
	Strategy            string              `json:"strategy"`
	CreatedAt           time.Time           `json:"createdAt"`
}

// Allocation finds an allocation by ticker
func (r *OptimizationResult) Allocation(ticker string) (*AllocationResult, bool) {
	for i := range r.Allocations {
		if r.Allocations[i].Ticker == ticker {
			return &r.Allocations[i], true
		}
	}
	return nil, false
}
