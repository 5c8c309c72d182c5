package ledger

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

type fakeWriter struct {
	err   error
	calls int
	last  float64
}

func (f *fakeWriter) SetBalance(ctx context.Context, userID string, balance float64) error {
	f.calls++
	f.last = balance
	return f.err
}

type slowWriter struct{}

func (slowWriter) SetBalance(ctx context.Context, userID string, balance float64) error {
	<-ctx.Done()
	return ctx.Err()
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestSetBalancePrimarySuccess(t *testing.T) {
	primary := &fakeWriter{}
	fallback := &fakeWriter{}
	l := New(primary, testLogger(), WithFallback(fallback))

	if err := l.SetBalance(context.Background(), "u1", 95_000); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}
	if primary.calls != 1 || fallback.calls != 0 {
		t.Fatalf("calls = primary %d fallback %d, want 1/0", primary.calls, fallback.calls)
	}
	if got, ok := l.CachedBalance("u1"); !ok || got != 95_000 {
		t.Fatalf("CachedBalance = %v %v", got, ok)
	}
}

func TestSetBalanceFallsBack(t *testing.T) {
	primary := &fakeWriter{err: errors.New("gateway down")}
	fallback := &fakeWriter{}
	l := New(primary, testLogger(), WithFallback(fallback))

	if err := l.SetBalance(context.Background(), "u1", 87_500); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}
	if fallback.calls != 1 || fallback.last != 87_500 {
		t.Fatalf("fallback calls=%d last=%v", fallback.calls, fallback.last)
	}
	if got, _ := l.CachedBalance("u1"); got != 87_500 {
		t.Fatalf("cache = %v", got)
	}
}

func TestSetBalanceBothFail(t *testing.T) {
	primary := &fakeWriter{err: errors.New("gateway down")}
	fallback := &fakeWriter{err: errors.New("db down")}
	l := New(primary, testLogger(), WithFallback(fallback))
	l.Prime("u1", 100_000)

	err := l.SetBalance(context.Background(), "u1", 50_000)
	if !errors.Is(err, ErrWriteFailed) {
		t.Fatalf("err = %v, want ErrWriteFailed", err)
	}
	// cache must still hold the last confirmed value
	if got, _ := l.CachedBalance("u1"); got != 100_000 {
		t.Fatalf("cache moved on failed write: %v", got)
	}
}

func TestSetBalanceDegradedMode(t *testing.T) {
	primary := &fakeWriter{err: errors.New("gateway down")}
	l := New(primary, testLogger(), WithDegradedWrites(true))

	if err := l.SetBalance(context.Background(), "u1", 42_000); err != nil {
		t.Fatalf("degraded SetBalance: %v", err)
	}
	if got, _ := l.CachedBalance("u1"); got != 42_000 {
		t.Fatalf("cache = %v", got)
	}
}

func TestSetBalanceTimeoutThenFallback(t *testing.T) {
	fallback := &fakeWriter{}
	l := New(slowWriter{}, testLogger(), WithFallback(fallback), WithTimeout(10*time.Millisecond))

	start := time.Now()
	if err := l.SetBalance(context.Background(), "u1", 1_000); err != nil {
		t.Fatalf("SetBalance: %v", err)
	}
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("primary timeout not enforced, took %v", elapsed)
	}
	if fallback.calls != 1 {
		t.Fatalf("fallback calls = %d", fallback.calls)
	}
}

func TestCachedBalanceUnknownUser(t *testing.T) {
	l := New(&fakeWriter{}, testLogger())
	if _, ok := l.CachedBalance("nobody"); ok {
		t.Fatal("expected miss for unknown user")
	}
}
