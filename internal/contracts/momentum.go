package contracts

import "time"

// Horizons are the lookback windows (months) of the composite momentum score
var Horizons = []int{3, 6, 9, 12}

// MomentumRecord is the composite momentum signal of one ticker.
// A record with Error set is zeroed and must not qualify for selection.
// ⭐ SSOT: 생성 후 변경 금지 (immutable once built)
type MomentumRecord struct {
	Ticker           string    `json:"ticker"`
	Return3M         float64   `json:"return3m"`
	Return6M         float64   `json:"return6m"`
	Return9M         float64   `json:"return9m"`
	Return12M        float64   `json:"return12m"`
	Average          float64   `json:"average"`
	AbsoluteMomentum bool      `json:"absoluteMomentum"`
	CurrentPrice     float64   `json:"currentPrice"`
	AsOf             time.Time `json:"asOf"`
	Error            string    `json:"error,omitempty"`
}

// Returns lists the period returns in Horizons order
func (m MomentumRecord) Returns() []float64 {
	return []float64{m.Return3M, m.Return6M, m.Return9M, m.Return12M}
}

// HasError reports whether the record was built from unusable data
func (m MomentumRecord) HasError() bool {
	return m.Error != ""
}

// Qualifies reports whether the ticker can be selected by a momentum strategy
func (m MomentumRecord) Qualifies() bool {
	return !m.HasError() && m.AbsoluteMomentum
}
