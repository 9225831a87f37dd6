package momentum

import (
	"time"

	"gonum.org/v1/gonum/floats"

	"github.com/wonny/rebalancer/internal/contracts"
)

// Trend compares the current price with its simple moving average
type Trend struct {
	Ticker  string  `json:"ticker"`
	Price   float64 `json:"price"`
	SMA     float64 `json:"sma"`
	Months  int     `json:"months"`
	Samples int     `json:"samples"`
	Above   bool    `json:"above"`
}

// SMA averages the closes dated within (asOf - months, asOf].
// Returns 0 when no sample falls inside the window.
func SMA(history []contracts.PricePoint, months int, asOf time.Time) (float64, int) {
	start := asOf.AddDate(0, -months, 0)

	closes := make([]float64, 0, len(history))
	for _, p := range history {
		if p.Date.After(start) && !p.Date.After(asOf) {
			closes = append(closes, p.Close)
		}
	}
	if len(closes) == 0 {
		return 0, 0
	}
	return floats.Sum(closes) / float64(len(closes)), len(closes)
}

// TrendSignal reports whether price is at or above its months-SMA.
// With no usable window the trend counts as intact so the filter never
// reroutes on missing data alone.
func TrendSignal(ticker string, history []contracts.PricePoint, price float64, months int, asOf time.Time) Trend {
	sma, n := SMA(history, months, asOf)
	return Trend{
		Ticker:  ticker,
		Price:   price,
		SMA:     sma,
		Months:  months,
		Samples: n,
		Above:   n == 0 || price >= sma,
	}
}
