package momentum

import (
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"github.com/wonny/rebalancer/internal/contracts"
	"github.com/wonny/rebalancer/pkg/logger"
)

// Error markers carried by zeroed records
const (
	ErrNoHistory       = "no historical prices"
	ErrInvalidPrice    = "invalid current price"
	ErrInvalidBaseline = "invalid horizon price"
)

// Scorer computes 3/6/9/12-month composite momentum
// ⭐ SSOT: 모멘텀 점수 계산은 여기서만
type Scorer struct {
	logger *logger.Logger
}

// NewScorer creates a new momentum scorer
func NewScorer(log *logger.Logger) *Scorer {
	if log == nil {
		log = logger.Nop()
	}
	return &Scorer{logger: log.Component("momentum")}
}

// Score builds the momentum record of ticker. history may be in any order;
// current is the latest price and asOf anchors the horizon dates.
// Unusable data yields a zeroed record with Error set, never a Go error.
func (s *Scorer) Score(ticker string, history []contracts.PricePoint, current float64, asOf time.Time) contracts.MomentumRecord {
	if len(history) == 0 {
		return ErrorRecord(ticker, asOf, ErrNoHistory)
	}
	if current <= 0 || math.IsNaN(current) || math.IsInf(current, 0) {
		return ErrorRecord(ticker, asOf, ErrInvalidPrice)
	}

	returns := make([]float64, len(contracts.Horizons))
	for i, months := range contracts.Horizons {
		base := horizonPrice(history, asOf.AddDate(0, -months, 0))
		if base <= 0 {
			return ErrorRecord(ticker, asOf, ErrInvalidBaseline)
		}
		returns[i] = round2((current - base) / base * 100)
	}

	rec := NewRecord(ticker, returns)
	rec.CurrentPrice = current
	rec.AsOf = asOf

	s.logger.WithFields(map[string]interface{}{
		"ticker":   ticker,
		"returns":  returns,
		"average":  rec.Average,
		"absolute": rec.AbsoluteMomentum,
	}).Debug("Calculated momentum")

	return rec
}

// NewRecord builds a record from the four period returns (3/6/9/12 order)
func NewRecord(ticker string, returns []float64) contracts.MomentumRecord {
	rec := contracts.MomentumRecord{Ticker: ticker}
	if len(returns) != len(contracts.Horizons) {
		rec.Error = ErrNoHistory
		return rec
	}

	rec.Return3M = returns[0]
	rec.Return6M = returns[1]
	rec.Return9M = returns[2]
	rec.Return12M = returns[3]
	rec.Average = round2(stat.Mean(returns, nil))

	rec.AbsoluteMomentum = true
	for _, r := range returns {
		if r <= 0 {
			rec.AbsoluteMomentum = false
			break
		}
	}
	return rec
}

// ErrorRecord returns a zeroed record flagged with reason
func ErrorRecord(ticker string, asOf time.Time, reason string) contracts.MomentumRecord {
	return contracts.MomentumRecord{
		Ticker: ticker,
		AsOf:   asOf,
		Error:  reason,
	}
}

// horizonPrice returns the close of the latest sample dated on or before
// target, or of the earliest sample when none is that old
func horizonPrice(history []contracts.PricePoint, target time.Time) float64 {
	var (
		best     contracts.PricePoint
		found    bool
		earliest = history[0]
	)

	for _, p := range history {
		if p.Date.Before(earliest.Date) {
			earliest = p
		}
		if p.Date.After(target) {
			continue
		}
		if !found || p.Date.After(best.Date) {
			best = p
			found = true
		}
	}

	if !found {
		return earliest.Close
	}
	return best.Close
}

// SortHistory orders points oldest → newest in place
func SortHistory(points []contracts.PricePoint) {
	sort.SliceStable(points, func(i, j int) bool {
		return points[i].Date.Before(points[j].Date)
	})
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
