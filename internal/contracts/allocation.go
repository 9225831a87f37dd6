package contracts

// DefaultAllowedDeviation is the band (percentage points) used when a target omits one
const DefaultAllowedDeviation = 5.0

// TargetAllocation is the desired share of portfolio value for a ticker
type TargetAllocation struct {
	Ticker           string  `json:"ticker"`
	TargetPercentage float64 `json:"targetPercentage"`
	AllowedDeviation float64 `json:"allowedDeviation"`
	Price            float64 `json:"price,omitempty"`
}

// TotalPercentage sums target percentages
func TotalPercentage(targets []TargetAllocation) float64 {
	total := 0.0
	for _, t := range targets {
		total += t.TargetPercentage
	}
	return total
}

// Order is a signed share trade: positive buys, negative sells
type Order struct {
	Ticker        string  `json:"ticker"`
	SharesToTrade int     `json:"sharesToTrade"`
	Price         float64 `json:"price"`
	TradeValue    float64 `json:"tradeValue"`
}

// IsBuy reports whether the order buys shares
func (o Order) IsBuy() bool {
	return o.SharesToTrade > 0
}

// SolverStatus is the normalized outcome of an optimization attempt
type SolverStatus string

const (
	StatusOptimal    SolverStatus = "optimal"
	StatusInfeasible SolverStatus = "infeasible"
	StatusTimeout    SolverStatus = "timeout"
	StatusError      SolverStatus = "error"
	StatusHeuristic  SolverStatus = "heuristic"
)

// NeedsFallback reports whether the heuristic cascade must run
func (s SolverStatus) NeedsFallback() bool {
	return s != StatusOptimal
}
