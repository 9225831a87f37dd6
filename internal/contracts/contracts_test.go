package contracts

import (
	"errors"
	"fmt"
	"testing"
)

func TestTotalPercentage(t *testing.T) {
	targets := []TargetAllocation{
		{Ticker: "VTI", TargetPercentage: 50},
		{Ticker: "TLT", TargetPercentage: 30},
		{Ticker: "IBIT", TargetPercentage: 20},
	}

	if total := TotalPercentage(targets); total != 100 {
		t.Errorf("TotalPercentage() = %v, want 100", total)
	}
}

func TestMomentumRecord_Qualifies(t *testing.T) {
	tests := []struct {
		name   string
		record MomentumRecord
		want   bool
	}{
		{"positive", MomentumRecord{AbsoluteMomentum: true}, true},
		{"negative", MomentumRecord{AbsoluteMomentum: false}, false},
		{"errored", MomentumRecord{AbsoluteMomentum: true, Error: "no history"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.record.Qualifies(); got != tt.want {
				t.Errorf("Qualifies() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidationError_IsInvalidInput(t *testing.T) {
	err := fmt.Errorf("optimize: %w", Invalid("availableCash", "must be >= 0, got %v", -1))

	if !errors.Is(err, ErrInvalidInput) {
		t.Error("expected errors.Is(err, ErrInvalidInput)")
	}

	var ve *ValidationError
	if !errors.As(err, &ve) {
		t.Fatal("expected errors.As to find ValidationError")
	}
	if ve.Field != "availableCash" {
		t.Errorf("Field = %q, want availableCash", ve.Field)
	}
}

func TestSolverStatus_NeedsFallback(t *testing.T) {
	for _, s := range []SolverStatus{StatusInfeasible, StatusTimeout, StatusError, StatusHeuristic} {
		if !s.NeedsFallback() {
			t.Errorf("%s should need fallback", s)
		}
	}
	if StatusOptimal.NeedsFallback() {
		t.Error("optimal should not need fallback")
	}
}

func TestHoldingValue(t *testing.T) {
	h := Holding{Ticker: "PDBC", Shares: 8, Price: 13.5}
	if h.Value() != 108 {
		t.Errorf("Value() = %v, want 108", h.Value())
	}
}
