package engine

import (
	"math"
	"testing"
)

func TestEquityForAmount(t *testing.T) {
	tests := []struct {
		name      string
		amount    float64
		valuation float64
		want      float64
	}{
		{"fair slice", 10_000, 1_000_000, 0.01},
		{"full valuation", 1_000_000, 1_000_000, 1},
		{"amount above valuation capped", 2_000_000, 1_000_000, 1},
		{"zero valuation", 10_000, 0, 0},
		{"negative valuation", 10_000, -5, 0},
		{"negative amount treated as zero", -500, 1_000_000, 0},
		{"zero amount", 0, 1_000_000, 0},
	}
	for _, tc := range tests {
		if got := EquityForAmount(tc.amount, tc.valuation); got != tc.want {
			t.Fatalf("%s: got %f want %f", tc.name, got, tc.want)
		}
	}
}

func TestEquityForAmountRange(t *testing.T) {
	rng := NewSource(11)
	for i := 0; i < 10_000; i++ {
		amount := rng.Float64() * 5_000_000
		valuation := 1 + rng.Float64()*2_000_000
		got := EquityForAmount(amount, valuation)
		if got < 0 || got > 1 {
			t.Fatalf("equity %f out of [0,1] for amount=%f valuation=%f", got, amount, valuation)
		}
	}
}

func TestEquityForAmountNaN(t *testing.T) {
	if got := EquityForAmount(math.NaN(), 1_000_000); got != 0 {
		t.Fatalf("NaN amount: got %f want 0", got)
	}
}

func TestEquityFromFundingGoal(t *testing.T) {
	tests := []struct {
		name          string
		amount        float64
		goal          float64
		equityOffered float64
		want          float64
	}{
		{"half the goal", 50_000, 100_000, 0.10, 0.05},
		{"full goal", 100_000, 100_000, 0.10, 0.10},
		{"over goal clamped to ceiling", 250_000, 100_000, 0.10, 0.10},
		{"zero goal", 50_000, 0, 0.10, 0},
		{"zero equity offered", 50_000, 100_000, 0, 0},
		{"negative amount treated as zero", -1, 100_000, 0.10, 0},
	}
	for _, tc := range tests {
		if got := EquityFromFundingGoal(tc.amount, tc.goal, tc.equityOffered); got != tc.want {
			t.Fatalf("%s: got %f want %f", tc.name, got, tc.want)
		}
	}
}

func TestClampRequestedEquity(t *testing.T) {
	fair := 0.010
	tests := []struct {
		name      string
		requested float64
		want      float64
	}{
		{"omitted ask falls back to fair", 0, fair},
		{"negative ask falls back to fair", -0.5, fair},
		{"nan ask falls back to fair", math.NaN(), fair},
		{"below floor clamped", 0.001, fair * 0.80},
		{"at floor kept", fair * 0.80, fair * 0.80},
		{"within band kept", 0.012, 0.012},
		{"above ceiling clamped", 0.5, fair * 1.50},
	}
	for _, tc := range tests {
		if got := ClampRequestedEquity(tc.requested, fair); got != tc.want {
			t.Fatalf("%s: got %f want %f", tc.name, got, tc.want)
		}
	}

	if got := ClampRequestedEquity(0.012, 0); got != 0 {
		t.Fatalf("zero fair value: got %f want 0", got)
	}
}

func TestTwoFormulasDiverge(t *testing.T) {
	// The valuation-bounded and equity-offered-bounded formulas are not
	// interchangeable; keep them that way.
	amount, valuation := 50_000.0, 1_000_000.0
	goal, offered := 100_000.0, 0.10
	a := EquityForAmount(amount, valuation)
	b := EquityFromFundingGoal(amount, goal, offered)
	if a == b {
		t.Fatalf("expected distinct results, both %f", a)
	}
}
