package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"vencha/internal/auth"
)

// ErrWriteFailed is returned when every configured write path failed and
// degraded writes are disabled. The caller must not treat the balance as
// updated.
var ErrWriteFailed = errors.New("ledger: all write paths failed")

// Writer persists a user's absolute cash balance. Implementations must be
// safe for concurrent use.
type Writer interface {
	SetBalance(ctx context.Context, userID string, balance float64) error
}

// EdgeWriter updates the balance through the updateUserBalance edge
// function, keeping server-side validation and audit hooks in the loop.
type EdgeWriter struct {
	client *auth.SupabaseClient
}

func NewEdgeWriter(client *auth.SupabaseClient) *EdgeWriter {
	return &EdgeWriter{client: client}
}

func (w *EdgeWriter) SetBalance(ctx context.Context, userID string, balance float64) error {
	payload := map[string]any{
		"userId":     userID,
		"newBalance": balance,
	}
	if err := w.client.InvokeFunction(ctx, "updateUserBalance", payload, nil); err != nil {
		return fmt.Errorf("edge write: %w", err)
	}
	return nil
}

// DirectWriter updates the profile row itself, bypassing the functions
// gateway. Used as the fallback path when the edge function is down.
type DirectWriter struct {
	db *pgxpool.Pool
}

func NewDirectWriter(db *pgxpool.Pool) *DirectWriter {
	return &DirectWriter{db: db}
}

func (w *DirectWriter) SetBalance(ctx context.Context, userID string, balance float64) error {
	tag, err := w.db.Exec(ctx, `
		UPDATE game.profiles
		SET balance = $2, updated_at = now()
		WHERE user_id = $1
	`, userID, balance)
	if err != nil {
		return fmt.Errorf("direct write: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("direct write: no profile for user %s", userID)
	}
	return nil
}

// Ledger is the single authority for cash balances. Writes go to the
// primary path first, then the fallback; the local cache is only updated
// after a remote path has confirmed, so a read never reflects money the
// backend does not know about. With AllowDegraded set, a total remote
// outage updates the cache anyway and reports success, trading consistency
// for availability.
type Ledger struct {
	primary       Writer
	fallback      Writer
	timeout       time.Duration
	allowDegraded bool
	log           *slog.Logger

	mu    sync.RWMutex
	cache map[string]float64
}

type Option func(*Ledger)

func WithFallback(w Writer) Option {
	return func(l *Ledger) { l.fallback = w }
}

func WithTimeout(d time.Duration) Option {
	return func(l *Ledger) {
		if d > 0 {
			l.timeout = d
		}
	}
}

// WithDegradedWrites opts in to cache-only success when all remote paths
// fail. Off by default.
func WithDegradedWrites(allow bool) Option {
	return func(l *Ledger) { l.allowDegraded = allow }
}

func New(primary Writer, log *slog.Logger, opts ...Option) *Ledger {
	l := &Ledger{
		primary: primary,
		timeout: 5 * time.Second,
		log:     log,
		cache:   make(map[string]float64),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// SetBalance writes the new balance remotely and, on success, to the local
// cache. Each remote attempt gets its own timeout so a hung primary cannot
// eat the whole request deadline.
func (l *Ledger) SetBalance(ctx context.Context, userID string, balance float64) error {
	primaryErr := l.attempt(ctx, l.primary, userID, balance)
	if primaryErr == nil {
		l.store(userID, balance)
		return nil
	}

	if l.fallback != nil {
		l.log.Warn("ledger primary write failed, trying fallback", "user_id", userID, "error", primaryErr)
		if fallbackErr := l.attempt(ctx, l.fallback, userID, balance); fallbackErr == nil {
			l.store(userID, balance)
			return nil
		} else {
			primaryErr = errors.Join(primaryErr, fallbackErr)
		}
	}

	if l.allowDegraded {
		l.log.Error("ledger degraded write: remote paths down, caching locally", "user_id", userID, "error", primaryErr)
		l.store(userID, balance)
		return nil
	}
	return fmt.Errorf("%w: %w", ErrWriteFailed, primaryErr)
}

func (l *Ledger) attempt(ctx context.Context, w Writer, userID string, balance float64) error {
	if w == nil {
		return errors.New("no writer configured")
	}
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()
	return w.SetBalance(ctx, userID, balance)
}

// Prime seeds the cache from an authoritative read, typically at login or
// profile load.
func (l *Ledger) Prime(userID string, balance float64) {
	l.store(userID, balance)
}

// CachedBalance returns the last confirmed balance for the user.
func (l *Ledger) CachedBalance(userID string) (float64, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	b, ok := l.cache[userID]
	return b, ok
}

func (l *Ledger) store(userID string, balance float64) {
	l.mu.Lock()
	l.cache[userID] = balance
	l.mu.Unlock()
}
