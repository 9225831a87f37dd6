package contracts

import "time"

// Instrument is a tradable ticker with its current price
type Instrument struct {
	Ticker   string  `json:"ticker"`
	Price    float64 `json:"price"`
	Category string  `json:"category,omitempty"`
}

// Holding represents a current position
// ⭐ AverageCost is reporting-only; never used in allocation math
type Holding struct {
	Ticker      string  `json:"ticker"`
	Shares      int     `json:"shares"`
	Price       float64 `json:"price"`
	AverageCost float64 `json:"averageCost,omitempty"`
}

// Value returns shares × price
func (h Holding) Value() float64 {
	return float64(h.Shares) * h.Price
}

// PricePoint is one sample of a historical close series
type PricePoint struct {
	Date  time.Time `json:"date"`
	Close float64   `json:"close"`
}

// Quote is the latest price plus history for a ticker
type Quote struct {
	Ticker  string       `json:"ticker"`
	Price   float64      `json:"price"`
	AsOf    time.Time    `json:"asOf"`
	History []PricePoint `json:"history"` // oldest → newest
	Source  string       `json:"source,omitempty"`
}
