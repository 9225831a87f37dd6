package tolerance

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/wonny/rebalancer/internal/contracts"
	"github.com/wonny/rebalancer/internal/heuristic"
)

// Band is the deviation band of one target, aligned by index with lines
type Band struct {
	TargetPercentage float64
	AllowedDeviation float64
}

// Deviation is |actual% − target%|
func Deviation(actualPercentage, targetPercentage float64) float64 {
	return math.Abs(actualPercentage - targetPercentage)
}

// IsCompliant reports whether a deviation stays inside its band.
// A tiny epsilon keeps boundary values compliant after float rounding.
func IsCompliant(deviation, allowed float64) bool {
	return deviation <= allowed+1e-6
}

// Evaluation summarizes compliance over a set of allocations
type Evaluation struct {
	CompliantCount int
	TotalCount     int
	ComplianceRate float64 // percent
	ToleranceBand  float64 // mean allowed deviation
}

// Evaluate counts allocations flagged compliant
func Evaluate(allocs []contracts.AllocationResult) Evaluation {
	ev := Evaluation{TotalCount: len(allocs)}
	if len(allocs) == 0 {
		ev.ComplianceRate = 100
		ev.ToleranceBand = contracts.DefaultAllowedDeviation
		return ev
	}

	bands := make([]float64, len(allocs))
	for i, a := range allocs {
		bands[i] = a.AllowedDeviation
		if a.Compliant {
			ev.CompliantCount++
		}
	}
	ev.ComplianceRate = float64(ev.CompliantCount) / float64(ev.TotalCount) * 100
	ev.ToleranceBand = floats.Sum(bands) / float64(len(bands))
	return ev
}

// QualityScore blends utilization and compliance (both percent)
// ⭐ 품질 점수 = 0.6 × 활용률 + 0.4 × 준수율
func QualityScore(utilization, complianceRate float64) float64 {
	return 0.6*utilization + 0.4*complianceRate
}

// ApplyCaps caps every line at the upper edge of its band widened by
// relaxation. Caps never drop below the shares already allocated.
func ApplyCaps(lines []heuristic.Line, bands []Band, portfolioValue, relaxation float64) {
	for i := range lines {
		l := &lines[i]
		if l.Price <= 0 {
			l.MaxShares = l.Shares
			continue
		}
		b := bands[i]
		upper := (b.TargetPercentage + relaxation*b.AllowedDeviation) / 100 * portfolioValue
		maxBuy := upper - float64(l.CurrentShares)*l.Price

		capShares := 0
		if maxBuy > 0 {
			capShares = int(math.Floor(maxBuy/l.Price + 1e-9))
		}
		if capShares < l.Shares {
			capShares = l.Shares
		}
		l.MaxShares = capShares
	}
}
