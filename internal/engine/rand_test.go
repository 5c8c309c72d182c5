package engine

import (
	"math"
	"testing"
)

func TestNormFloat64Moments(t *testing.T) {
	rng := NewSource(1)
	const n = 100_000
	var sum, sumSq float64
	for i := 0; i < n; i++ {
		x := rng.NormFloat64()
		sum += x
		sumSq += x * x
	}
	mean := sum / n
	variance := sumSq/n - mean*mean

	if math.Abs(mean) > 0.02 {
		t.Fatalf("mean drifted: got %f", mean)
	}
	if math.Abs(variance-1) > 0.05 {
		t.Fatalf("variance drifted: got %f", variance)
	}
}

func TestNormFloat64Deterministic(t *testing.T) {
	a := NewSource(42)
	b := NewSource(42)
	for i := 0; i < 16; i++ {
		if a.NormFloat64() != b.NormFloat64() {
			t.Fatalf("same seed diverged at draw %d", i)
		}
	}
}

func TestBetweenBounds(t *testing.T) {
	rng := NewSource(7)
	for i := 0; i < 10_000; i++ {
		v := rng.Between(0.80, 0.95)
		if v < 0.80 || v >= 0.95 {
			t.Fatalf("draw %f out of [0.80, 0.95)", v)
		}
	}
}
