package engine

import (
	"errors"
	"testing"
)

func TestOpenNegotiationValidation(t *testing.T) {
	tests := []struct {
		name   string
		amount float64
		cash   float64
		min    float64
		want   error
	}{
		{"zero amount", 0, 100_000, 1000, ErrAmountNotPositive},
		{"negative amount", -50, 100_000, 1000, ErrAmountNotPositive},
		{"over available cash", 150_000, 100_000, 1000, ErrInsufficientFunds},
		{"below minimum", 500, 100_000, 1000, ErrBelowMinInvestment},
	}
	for _, tc := range tests {
		_, err := OpenNegotiation(tc.amount, 0.02, tc.min, tc.cash)
		if !errors.Is(err, tc.want) {
			t.Fatalf("%s: got %v want %v", tc.name, err, tc.want)
		}
	}

	n, err := OpenNegotiation(10_000, 0.012, 1000, 100_000)
	if err != nil {
		t.Fatalf("valid open failed: %v", err)
	}
	if n.Stage != StageOffered {
		t.Fatalf("fresh session stage %v, want offered", n.Stage)
	}
}

func TestNoDirectAcceptFromOffered(t *testing.T) {
	n, err := OpenNegotiation(10_000, 0.012, 1000, 100_000)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if _, err := n.AcceptTerms(); !errors.Is(err, ErrInvalidStage) {
		t.Fatalf("accept from offered: got %v want ErrInvalidStage", err)
	}
	if _, err := n.ReviseTerms(); !errors.Is(err, ErrInvalidStage) {
		t.Fatalf("revise from offered: got %v want ErrInvalidStage", err)
	}
	if err := n.Finalize(Resolution{Amount: 10_000, Equity: 0.012}); !errors.Is(err, ErrInvalidStage) {
		t.Fatalf("finalize from offered: got %v want ErrInvalidStage", err)
	}
}

func TestCounterBounds(t *testing.T) {
	rng := NewSource(21)
	for i := 0; i < 5000; i++ {
		n, err := OpenNegotiation(10_000, 0.012, 1000, 100_000)
		if err != nil {
			t.Fatalf("open: %v", err)
		}
		if err := n.Counter(rng); err != nil {
			t.Fatalf("counter: %v", err)
		}
		ratio := n.CounterEquity / n.RequestedEquity
		if ratio < 0.80 || ratio >= 0.95 {
			t.Fatalf("counter ratio %f out of [0.80, 0.95)", ratio)
		}
	}
}

func TestAcceptYieldsCounterEquity(t *testing.T) {
	rng := NewSource(22)
	n, _ := OpenNegotiation(10_000, 0.012, 1000, 100_000)
	if err := n.Counter(rng); err != nil {
		t.Fatalf("counter: %v", err)
	}
	res, err := n.AcceptTerms()
	if err != nil {
		t.Fatalf("accept terms: %v", err)
	}
	if res.Equity != n.CounterEquity || res.Amount != 10_000 {
		t.Fatalf("accept resolution %+v, want counter equity %f", res, n.CounterEquity)
	}
	if n.Stage != StageCountered {
		t.Fatalf("stage after terms %v, want countered until finalized", n.Stage)
	}
	if err := n.Finalize(res); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if n.Stage != StageResolved {
		t.Fatalf("stage after finalize %v, want resolved", n.Stage)
	}
}

func TestReviseYieldsRequestedEquity(t *testing.T) {
	rng := NewSource(23)
	n, _ := OpenNegotiation(10_000, 0.012, 1000, 100_000)
	if err := n.Counter(rng); err != nil {
		t.Fatalf("counter: %v", err)
	}
	res, err := n.ReviseTerms()
	if err != nil {
		t.Fatalf("revise terms: %v", err)
	}
	if res.Equity != 0.012 {
		t.Fatalf("revise equity %f, want the original ask 0.012", res.Equity)
	}
}

// A settlement that fails downstream must not consume the counter: the
// same terms stay available until a resolution is actually finalized.
func TestTermsRetryableUntilFinalized(t *testing.T) {
	rng := NewSource(25)
	n, _ := OpenNegotiation(10_000, 0.012, 1000, 100_000)
	if err := n.Counter(rng); err != nil {
		t.Fatalf("counter: %v", err)
	}

	first, err := n.AcceptTerms()
	if err != nil {
		t.Fatalf("first terms: %v", err)
	}
	// The ledger write failed; no Finalize happened. A retry must see
	// the identical deal, and switching to revise must still work too.
	second, err := n.AcceptTerms()
	if err != nil {
		t.Fatalf("retry terms after failed settlement: %v", err)
	}
	if first != second {
		t.Fatalf("retry changed the deal: %+v vs %+v", first, second)
	}
	if _, err := n.ReviseTerms(); err != nil {
		t.Fatalf("revise after failed accept settlement: %v", err)
	}

	if err := n.Finalize(second); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if _, err := n.AcceptTerms(); !errors.Is(err, ErrInvalidStage) {
		t.Fatalf("terms after finalize: got %v want ErrInvalidStage", err)
	}
	if err := n.Finalize(second); !errors.Is(err, ErrInvalidStage) {
		t.Fatalf("double finalize: got %v want ErrInvalidStage", err)
	}
}

func TestResolvedIsTerminal(t *testing.T) {
	rng := NewSource(24)
	n, _ := OpenNegotiation(10_000, 0.012, 1000, 100_000)
	_ = n.Counter(rng)
	res, err := n.AcceptTerms()
	if err != nil {
		t.Fatalf("accept terms: %v", err)
	}
	if err := n.Finalize(res); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	if err := n.Counter(rng); !errors.Is(err, ErrInvalidStage) {
		t.Fatalf("counter after resolve: got %v", err)
	}
	if _, err := n.AcceptTerms(); !errors.Is(err, ErrInvalidStage) {
		t.Fatalf("terms after resolve: got %v", err)
	}
	if res, ok := n.Resolved(); !ok || res.Amount != 10_000 {
		t.Fatalf("resolved pair missing: %+v ok=%t", res, ok)
	}
}
