package portfolio

import (
	"errors"
	"testing"
	"time"

	"vencha/internal/engine"
)

func TestXPForInvestment(t *testing.T) {
	cases := []struct {
		amount float64
		want   int64
	}{
		{0, 0},
		{-500, 0},
		{99.99, 0},
		{100, 1},
		{250, 2},
		{10_000, 100},
	}
	for _, tc := range cases {
		if got := xpForInvestment(tc.amount); got != tc.want {
			t.Fatalf("xpForInvestment(%v) = %d, want %d", tc.amount, got, tc.want)
		}
	}
}

func TestLevelProgression(t *testing.T) {
	if got := levelForXP(0); got != 0 {
		t.Fatalf("level at 0 xp = %d", got)
	}
	if got := levelForXP(99); got != 0 {
		t.Fatalf("level at 99 xp = %d", got)
	}
	if got := levelForXP(100); got != 1 {
		t.Fatalf("level at 100 xp = %d", got)
	}
	if got := xpToNextLevel(0); got != 100 {
		t.Fatalf("xpToNextLevel(0) = %d", got)
	}
	if got := xpToNextLevel(250); got != 300 {
		t.Fatalf("xpToNextLevel(250) = %d", got)
	}
}

func TestValidateAmount(t *testing.T) {
	cases := []struct {
		name    string
		amount  float64
		min     float64
		balance float64
		wantErr error
	}{
		{"ok", 5_000, 1_000, 100_000, nil},
		{"zero", 0, 1_000, 100_000, engine.ErrAmountNotPositive},
		{"negative", -10, 1_000, 100_000, engine.ErrAmountNotPositive},
		{"over balance", 150_000, 1_000, 100_000, engine.ErrInsufficientFunds},
		{"below minimum", 500, 1_000, 100_000, engine.ErrBelowMinInvestment},
		{"insufficiency checked before minimum", 150_000, 200_000, 100_000, engine.ErrInsufficientFunds},
	}
	for _, tc := range cases {
		err := validateAmount(tc.amount, tc.min, tc.balance)
		if !errors.Is(err, tc.wantErr) {
			t.Fatalf("%s: err = %v, want %v", tc.name, err, tc.wantErr)
		}
	}
}

func TestSessionStoreOwnership(t *testing.T) {
	st := newSessionStore()
	neg, err := engine.OpenNegotiation(5_000, 0.05, 1_000, 100_000)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	sess := st.put("u1", "startup-1", "Fernly", neg)

	got, err := st.get("u1", sess.id)
	if err != nil || got.startupID != "startup-1" {
		t.Fatalf("get = %v, %v", got, err)
	}
	if _, err := st.get("u2", sess.id); !errors.Is(err, ErrUnauthorized) {
		t.Fatalf("cross-user get err = %v", err)
	}
	if _, err := st.get("u1", "nope"); !errors.Is(err, ErrNegotiationNotFound) {
		t.Fatalf("missing session err = %v", err)
	}

	st.delete(sess.id)
	if _, err := st.get("u1", sess.id); !errors.Is(err, ErrNegotiationNotFound) {
		t.Fatalf("deleted session err = %v", err)
	}
}

// A ledger failure while closing a deal must leave the session usable:
// the next accept on the same session sees the same counter instead of a
// stage error.
func TestSessionSurvivesFailedSettlement(t *testing.T) {
	st := newSessionStore()
	rng := engine.NewSource(7)

	neg, err := engine.OpenNegotiation(5_000, 0.05, 1_000, 100_000)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := neg.Counter(rng); err != nil {
		t.Fatalf("counter: %v", err)
	}
	sess := st.put("u1", "startup-1", "Fernly", neg)

	first, err := sess.neg.AcceptTerms()
	if err != nil {
		t.Fatalf("first accept terms: %v", err)
	}
	// The balance write failed, so nothing was finalized and the
	// session stayed in the store.
	again, err := st.get("u1", sess.id)
	if err != nil {
		t.Fatalf("re-fetch after failed settlement: %v", err)
	}
	second, err := again.neg.AcceptTerms()
	if err != nil {
		t.Fatalf("retry accept terms: %v", err)
	}
	if first != second {
		t.Fatalf("retry changed the deal: %+v vs %+v", first, second)
	}

	// This time the money cleared.
	if err := again.neg.Finalize(second); err != nil {
		t.Fatalf("finalize: %v", err)
	}
	st.delete(sess.id)
	if _, err := st.get("u1", sess.id); !errors.Is(err, ErrNegotiationNotFound) {
		t.Fatalf("session after close: got %v want ErrNegotiationNotFound", err)
	}
}

func TestSessionStoreExpiry(t *testing.T) {
	st := newSessionStore()
	now := time.Now()
	st.now = func() time.Time { return now }

	neg, err := engine.OpenNegotiation(5_000, 0.05, 1_000, 100_000)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	sess := st.put("u1", "startup-1", "Fernly", neg)

	now = now.Add(sessionTTL - time.Second)
	if _, err := st.get("u1", sess.id); err != nil {
		t.Fatalf("pre-expiry get: %v", err)
	}

	now = now.Add(2 * time.Second)
	if _, err := st.get("u1", sess.id); !errors.Is(err, ErrNegotiationNotFound) {
		t.Fatalf("post-expiry err = %v", err)
	}
}
