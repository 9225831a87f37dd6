package momentum

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/wonny/rebalancer/internal/contracts"
)

var asOf = time.Date(2025, 6, 30, 0, 0, 0, 0, time.UTC)

// weekly series from 13 months back, linearly rising from start by step
func weeklySeries(start, step float64) []contracts.PricePoint {
	var points []contracts.PricePoint
	first := asOf.AddDate(0, -13, 0)
	price := start
	for d := first; !d.After(asOf); d = d.AddDate(0, 0, 7) {
		points = append(points, contracts.PricePoint{Date: d, Close: price})
		price += step
	}
	return points
}

func TestNewRecord(t *testing.T) {
	tests := []struct {
		name         string
		returns      []float64
		wantAverage  float64
		wantAbsolute bool
	}{
		{"all positive", []float64{5, 10, 15, 20}, 12.5, true},
		{"one negative", []float64{-1, 10, 15, 20}, 11, false},
		{"zero is not positive", []float64{0, 10, 15, 20}, 11.25, false},
		{"all negative", []float64{-4, -8, -2, -6}, -5, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewRecord("VTI", tt.returns)
			if rec.Average != tt.wantAverage {
				t.Errorf("Average = %v, want %v", rec.Average, tt.wantAverage)
			}
			if rec.AbsoluteMomentum != tt.wantAbsolute {
				t.Errorf("AbsoluteMomentum = %v, want %v", rec.AbsoluteMomentum, tt.wantAbsolute)
			}
		})
	}
}

func TestScore_HorizonLookup(t *testing.T) {
	history := []contracts.PricePoint{
		{Date: asOf.AddDate(0, -12, -3), Close: 80},  // before 12m horizon
		{Date: asOf.AddDate(0, -9, -1), Close: 90},   // before 9m
		{Date: asOf.AddDate(0, -6, -2), Close: 100},  // before 6m
		{Date: asOf.AddDate(0, -3, 0), Close: 110},   // exactly 3m
		{Date: asOf.AddDate(0, -3, 5), Close: 999},   // after 3m horizon, ignored
	}

	rec := NewScorer(nil).Score("VTI", history, 121, asOf)

	assert.Empty(t, rec.Error)
	assert.Equal(t, 10.0, rec.Return3M)   // 121 vs 110
	assert.Equal(t, 21.0, rec.Return6M)   // 121 vs 100
	assert.Equal(t, 34.44, rec.Return9M)  // 121 vs 90
	assert.Equal(t, 51.25, rec.Return12M) // 121 vs 80
	assert.True(t, rec.AbsoluteMomentum)
	assert.Equal(t, 121.0, rec.CurrentPrice)
	assert.Equal(t, asOf, rec.AsOf)
}

func TestScore_FallsBackToEarliestSample(t *testing.T) {
	// only two months of data: every horizon uses the earliest sample
	history := []contracts.PricePoint{
		{Date: asOf.AddDate(0, -1, 0), Close: 105},
		{Date: asOf.AddDate(0, -2, 0), Close: 100},
	}

	rec := NewScorer(nil).Score("IBIT", history, 110, asOf)

	assert.Equal(t, []float64{10, 10, 10, 10}, rec.Returns())
	assert.Equal(t, 10.0, rec.Average)
}

func TestScore_ErrorRecords(t *testing.T) {
	history := weeklySeries(100, 1)

	tests := []struct {
		name    string
		history []contracts.PricePoint
		current float64
		want    string
	}{
		{"no history", nil, 100, ErrNoHistory},
		{"zero price", history, 0, ErrInvalidPrice},
		{"negative price", history, -3, ErrInvalidPrice},
		{"zero baseline", []contracts.PricePoint{{Date: asOf.AddDate(-1, 0, 0), Close: 0}}, 10, ErrInvalidBaseline},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := NewScorer(nil).Score("BAD", tt.history, tt.current, asOf)
			assert.Equal(t, tt.want, rec.Error)
			assert.Equal(t, "BAD", rec.Ticker)
			assert.Zero(t, rec.Average)
			assert.False(t, rec.AbsoluteMomentum)
			assert.False(t, rec.Qualifies())
		})
	}
}

func TestScore_Deterministic(t *testing.T) {
	history := weeklySeries(50, 0.37)
	s := NewScorer(nil)

	first := s.Score("TLT", history, 80, asOf)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, s.Score("TLT", history, 80, asOf))
	}
}

func TestSortHistory(t *testing.T) {
	points := []contracts.PricePoint{
		{Date: asOf, Close: 3},
		{Date: asOf.AddDate(0, -2, 0), Close: 1},
		{Date: asOf.AddDate(0, -1, 0), Close: 2},
	}
	SortHistory(points)
	assert.Equal(t, []float64{1, 2, 3}, []float64{points[0].Close, points[1].Close, points[2].Close})
}

func TestTrendSignal(t *testing.T) {
	history := []contracts.PricePoint{
		{Date: asOf.AddDate(0, -11, 0), Close: 200}, // outside 10-month window
		{Date: asOf.AddDate(0, -9, 0), Close: 90},
		{Date: asOf.AddDate(0, -5, 0), Close: 100},
		{Date: asOf.AddDate(0, -1, 0), Close: 110},
	}

	below := TrendSignal("VTI", history, 95, 10, asOf)
	assert.Equal(t, 100.0, below.SMA)
	assert.Equal(t, 3, below.Samples)
	assert.False(t, below.Above)

	above := TrendSignal("VTI", history, 101, 10, asOf)
	assert.True(t, above.Above)

	empty := TrendSignal("VTI", nil, 1, 10, asOf)
	assert.True(t, empty.Above, "missing data keeps the trend intact")
}
