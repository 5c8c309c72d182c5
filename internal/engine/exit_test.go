package engine

import (
	"errors"
	"math"
	"testing"
)

func activeHolding() Holding {
	return Holding{
		ID:             "h1",
		InvestedAmount: 10_000,
		EquityFraction: 0.01,
		CurrentValue:   12_000,
		Status:         StatusActive,
	}
}

func TestResolveExitFullSale(t *testing.T) {
	rng := NewSource(31)
	h, out, err := ResolveExit(activeHolding(), ExitIPO, 1, rng)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if h.Status != StatusSold {
		t.Fatalf("full sale status %q, want sold", h.Status)
	}
	want := 12_000 * out.Multiplier
	if math.Abs(out.Payout-want) > 1e-9 {
		t.Fatalf("payout %f, want currentValue*multiplier = %f", out.Payout, want)
	}
}

func TestResolveExitPartialSaleScales(t *testing.T) {
	rng := NewSource(32)
	h, out, err := ResolveExit(activeHolding(), ExitAcquisition, 0.5, rng)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if h.Status != StatusActive {
		t.Fatalf("partial sale status %q, want active", h.Status)
	}
	if h.InvestedAmount != 5_000 || h.EquityFraction != 0.005 || h.CurrentValue != 6_000 {
		t.Fatalf("partial sale did not halve the stake: %+v", h)
	}
	want := 12_000 * out.Multiplier * 0.5
	if math.Abs(out.Payout-want) > 1e-9 {
		t.Fatalf("payout %f, want %f", out.Payout, want)
	}
}

func TestResolveExitMultiplierBands(t *testing.T) {
	tests := []struct {
		exitType ExitType
		lo, hi   float64 // full multiplier envelope for the type
	}{
		{ExitIPO, 0.2, 3.0},
		{ExitAcquisition, 0.3, 2.5},
		{ExitLiquidation, 0, 1.2},
	}
	rng := NewSource(33)
	for _, tc := range tests {
		sawLoss := false
		for i := 0; i < 5000; i++ {
			_, out, err := ResolveExit(activeHolding(), tc.exitType, 1, rng)
			if err != nil {
				t.Fatalf("%s: %v", tc.exitType, err)
			}
			if out.Multiplier < tc.lo || out.Multiplier >= tc.hi {
				t.Fatalf("%s: multiplier %f out of envelope [%f, %f)", tc.exitType, out.Multiplier, tc.lo, tc.hi)
			}
			if out.Multiplier < 1 {
				sawLoss = true
			}
			if out.Message == "" {
				t.Fatalf("%s: empty outcome message", tc.exitType)
			}
		}
		if !sawLoss {
			t.Fatalf("%s: 5000 draws without a losing band", tc.exitType)
		}
	}
}

func TestResolveExitLiquidationTotalLossShare(t *testing.T) {
	rng := NewSource(34)
	losses := 0
	const n = 10_000
	for i := 0; i < n; i++ {
		_, out, err := ResolveExit(activeHolding(), ExitLiquidation, 1, rng)
		if err != nil {
			t.Fatalf("resolve: %v", err)
		}
		if out.Multiplier == 0 {
			losses++
			if out.Payout != 0 {
				t.Fatalf("total loss paid out %f", out.Payout)
			}
		}
	}
	share := float64(losses) / n
	if share < 0.65 || share > 0.75 {
		t.Fatalf("total-loss share %f, want ~0.70", share)
	}
}

func TestResolveExitRejectsBadInput(t *testing.T) {
	rng := NewSource(35)
	if _, _, err := ResolveExit(activeHolding(), ExitIPO, 0, rng); !errors.Is(err, ErrInvalidSellFraction) {
		t.Fatalf("sellFraction 0: got %v", err)
	}
	if _, _, err := ResolveExit(activeHolding(), ExitIPO, 1.5, rng); !errors.Is(err, ErrInvalidSellFraction) {
		t.Fatalf("sellFraction 1.5: got %v", err)
	}
	if _, _, err := ResolveExit(activeHolding(), ExitType("merger"), 1, rng); !errors.Is(err, ErrUnknownExitType) {
		t.Fatalf("unknown exit type: got %v", err)
	}
}

func TestResolveExitDoesNotMutateInputOnError(t *testing.T) {
	rng := NewSource(36)
	in := activeHolding()
	got, _, err := ResolveExit(in, ExitType("merger"), 1, rng)
	if err == nil {
		t.Fatalf("expected error")
	}
	if got != in {
		t.Fatalf("holding changed on failed resolve: %+v", got)
	}
}
