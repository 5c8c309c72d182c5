package engine

import (
	"math"
	"testing"
)

func TestStepChangePercentExact(t *testing.T) {
	m := NewMarket(NewSource(3))
	h := Holding{CurrentValue: 10_000, Status: StatusActive}

	for i := 0; i < 1000; i++ {
		old := h.CurrentValue
		h = m.Step(h)
		want := (h.CurrentValue - old) / old * 100
		if h.ChangePercent != want {
			t.Fatalf("step %d: change percent %f, want %f", i, h.ChangePercent, want)
		}
	}
}

func TestStepZeroValueIdempotent(t *testing.T) {
	m := NewMarket(NewSource(4))
	h := Holding{CurrentValue: 0, ChangePercent: 12.5, Status: StatusActive}
	h = m.Step(h)
	if h.CurrentValue != 0 {
		t.Fatalf("zero holding moved to %f", h.CurrentValue)
	}
	if h.ChangePercent != 0 {
		t.Fatalf("zero holding change percent %f, want 0", h.ChangePercent)
	}
}

func TestStepSkipsSoldHoldings(t *testing.T) {
	m := NewMarket(NewSource(5))
	h := Holding{CurrentValue: 500, Status: StatusSold}
	if got := m.Step(h); got.CurrentValue != 500 {
		t.Fatalf("sold holding moved to %f", got.CurrentValue)
	}
}

func TestStepSwingsStatisticallyBounded(t *testing.T) {
	m := NewMarket(NewSource(6))
	h := Holding{CurrentValue: 10_000, Status: StatusActive}
	// With sigma = 1% a 6-sigma single step is ~6%; over 10k draws even a
	// 7% swing would be astronomically unlikely.
	for i := 0; i < 10_000; i++ {
		h = m.Step(h)
		if math.Abs(h.ChangePercent) > 7 {
			t.Fatalf("step %d: single-step swing %.2f%% exceeds sanity bound", i, h.ChangePercent)
		}
	}
}

func TestHundredTickDrift(t *testing.T) {
	// E[value] after n ticks is ~ start * exp(n*mu). Average over many
	// independent paths and assert order-of-magnitude stability, not an
	// exact figure.
	rng := NewSource(8)
	m := NewMarket(rng)
	const paths = 2000
	var sum float64
	for p := 0; p < paths; p++ {
		h := Holding{CurrentValue: 10_000, Status: StatusActive}
		for i := 0; i < 100; i++ {
			h = m.Step(h)
		}
		sum += h.CurrentValue
	}
	mean := sum / paths
	want := 10_000 * math.Exp(100*DefaultDrift) // ~10512
	if mean < want*0.98 || mean > want*1.02 {
		t.Fatalf("mean terminal value %f, want near %f", mean, want)
	}
}

func TestTickUpdatesAllActive(t *testing.T) {
	m := NewMarket(NewSource(9))
	in := []Holding{
		{ID: "a", CurrentValue: 1000, Status: StatusActive},
		{ID: "b", CurrentValue: 0, Status: StatusActive},
		{ID: "c", CurrentValue: 2500, Status: StatusActive},
	}
	out := m.Tick(in)
	if len(out) != len(in) {
		t.Fatalf("tick returned %d holdings, want %d", len(out), len(in))
	}
	if out[0].CurrentValue == 1000 && out[2].CurrentValue == 2500 {
		t.Fatalf("tick left every value untouched")
	}
	if out[1].CurrentValue != 0 || out[1].ChangePercent != 0 {
		t.Fatalf("zero holding changed: %+v", out[1])
	}
	// Input slice must not be mutated.
	if in[0].CurrentValue != 1000 {
		t.Fatalf("tick mutated its input")
	}
}
