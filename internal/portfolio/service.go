package portfolio

import (
	"context"
	"fmt"
	"log/slog"
	"sync"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"vencha/internal/catalog"
	"vencha/internal/engine"
	"vencha/internal/ledger"
)

type Service struct {
	db       *pgxpool.Pool
	log      *slog.Logger
	ledger   *ledger.Ledger
	catalog  *catalog.Repo
	market   *engine.Market
	rng      *engine.Source
	sessions *sessionStore

	lockMu    sync.Mutex
	userLocks map[string]*sync.Mutex
}

func NewService(db *pgxpool.Pool, led *ledger.Ledger, cat *catalog.Repo, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	rng := engine.NewTimeSource()
	return &Service{
		db:        db,
		log:       logger,
		ledger:    led,
		catalog:   cat,
		market:    engine.NewMarket(rng),
		rng:       rng,
		sessions:  newSessionStore(),
		userLocks: make(map[string]*sync.Mutex),
	}
}

// userLock serializes all balance-moving operations for one user. The
// ledger write and the holding rows must move together, and a per-user
// mutex is how that stays single-writer without holding DB row locks
// across remote calls.
func (s *Service) userLock(userID string) *sync.Mutex {
	s.lockMu.Lock()
	defer s.lockMu.Unlock()
	mu, ok := s.userLocks[userID]
	if !ok {
		mu = &sync.Mutex{}
		s.userLocks[userID] = mu
	}
	return mu
}

func (s *Service) EnsurePlayer(ctx context.Context, userID, email string) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO game.profiles (user_id, email, balance, xp)
		VALUES ($1, $2, $3, 0)
		ON CONFLICT (user_id) DO NOTHING
	`, userID, email, StarterBalance)
	if err != nil {
		return err
	}
	balance, _, err := s.loadProfileBalance(ctx, userID)
	if err != nil {
		return err
	}
	s.ledger.Prime(userID, balance)
	return nil
}

func (s *Service) Summary(ctx context.Context, userID string) (Summary, error) {
	var out Summary

	p, err := s.loadProfile(ctx, userID)
	if err != nil {
		return out, err
	}
	out.Profile = p

	holdings, err := s.loadHoldings(ctx, userID, false)
	if err != nil {
		return out, err
	}
	out.Holdings = holdings
	for _, h := range holdings {
		if h.Status != engine.StatusActive {
			continue
		}
		out.TotalInvested += h.InvestedAmount
		out.TotalValue += h.CurrentValue
	}
	out.NetWorth = p.Balance + out.TotalValue
	if out.TotalInvested > 0 {
		out.OverallChange = (out.TotalValue - out.TotalInvested) / out.TotalInvested * 100
	}
	return out, nil
}

// Invest buys equity priced off the startup's valuation. The cash leaves
// the ledger before the holding row exists; if persisting the holding
// fails the debit is refunded.
func (s *Service) Invest(ctx context.Context, in InvestInput) (InvestResult, error) {
	return s.invest(ctx, in.UserID, in.StartupID, in.Amount, in.IdempotencyKey, "invest", func(amount float64, st catalog.Startup) float64 {
		return engine.EquityForAmount(amount, st.Valuation)
	})
}

// Pledge funds against the round's goal, so equity comes from the
// funding-goal formula instead of the straight valuation one.
func (s *Service) Pledge(ctx context.Context, in PledgeInput) (InvestResult, error) {
	return s.invest(ctx, in.UserID, in.StartupID, in.Amount, in.IdempotencyKey, "pledge", func(amount float64, st catalog.Startup) float64 {
		return engine.EquityFromFundingGoal(amount, st.FundingGoal, st.EquityOffered)
	})
}

func (s *Service) invest(ctx context.Context, userID, startupID string, amount float64, idemKey, action string, equityOf func(float64, catalog.Startup) float64) (InvestResult, error) {
	var out InvestResult

	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	st, err := s.catalog.Get(ctx, startupID)
	if err != nil {
		return out, err
	}
	balance, xp, err := s.loadProfileBalance(ctx, userID)
	if err != nil {
		return out, err
	}

	if err := validateAmount(amount, st.MinInvestment, balance); err != nil {
		return out, err
	}
	equity := equityOf(amount, st)

	if err := s.claimIdempotency(ctx, userID, idemKey, action); err != nil {
		return out, err
	}

	newBalance := balance - amount
	if err := s.ledger.SetBalance(ctx, userID, newBalance); err != nil {
		s.releaseIdempotency(ctx, userID, idemKey)
		return out, err
	}

	gained := xpForInvestment(amount)
	h, err := s.insertHolding(ctx, userID, st.ID, amount, equity, gained)
	if err != nil {
		// Cash is already gone remotely; put it back before failing.
		if refundErr := s.ledger.SetBalance(ctx, userID, balance); refundErr != nil {
			s.log.Error("refund after failed holding insert", "user_id", userID, "error", refundErr)
		}
		s.releaseIdempotency(ctx, userID, idemKey)
		return out, err
	}

	out.Holding = h
	out.Balance = newBalance
	out.XPGained = gained
	out.Level = levelForXP(xp + gained)
	s.log.Info("investment recorded", "user_id", userID, "startup_id", st.ID, "amount", amount, "equity", equity, "action", action)
	return out, nil
}

// OpenNegotiation starts a haggle over the terms: the player's ask is
// validated, the startup immediately counters with a reduced equity slice,
// and the whole exchange lives in an ephemeral session until resolved.
func (s *Service) OpenNegotiation(ctx context.Context, in OpenNegotiationInput) (NegotiationView, error) {
	var out NegotiationView

	st, err := s.catalog.Get(ctx, in.StartupID)
	if err != nil {
		return out, err
	}
	balance, _, err := s.loadProfileBalance(ctx, in.UserID)
	if err != nil {
		return out, err
	}

	fair := engine.EquityForAmount(in.Amount, st.Valuation)
	requested := engine.ClampRequestedEquity(in.RequestedEquity, fair)
	neg, err := engine.OpenNegotiation(in.Amount, requested, st.MinInvestment, balance)
	if err != nil {
		return out, err
	}
	if err := neg.Counter(s.rng); err != nil {
		return out, err
	}

	sess := s.sessions.put(in.UserID, st.ID, st.Name, neg)
	return s.viewOf(sess), nil
}

// AcceptCounter takes the startup's counter-offer and commits the
// investment at the countered equity.
func (s *Service) AcceptCounter(ctx context.Context, userID, sessionID, idemKey string) (InvestResult, error) {
	return s.closeNegotiation(ctx, userID, sessionID, idemKey, "negotiation_accept", (*engine.Negotiation).AcceptTerms)
}

// ReviseOffer pushes back on the counter; the startup concedes and the
// deal closes at the originally requested equity.
func (s *Service) ReviseOffer(ctx context.Context, userID, sessionID, idemKey string) (InvestResult, error) {
	return s.closeNegotiation(ctx, userID, sessionID, idemKey, "negotiation_revise", (*engine.Negotiation).ReviseTerms)
}

// closeNegotiation settles the money for the chosen terms and only then
// advances the session past Countered. A failed settlement leaves the
// session untouched, so the same accept or revise can be retried. All
// session reads and mutations happen under the user lock.
func (s *Service) closeNegotiation(ctx context.Context, userID, sessionID, idemKey, action string, terms func(*engine.Negotiation) (engine.Resolution, error)) (InvestResult, error) {
	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	sess, err := s.sessions.get(userID, sessionID)
	if err != nil {
		return InvestResult{}, err
	}
	res, err := terms(sess.neg)
	if err != nil {
		return InvestResult{}, err
	}
	out, err := s.commitResolution(ctx, userID, sess, res, idemKey, action)
	if err != nil {
		return out, err
	}
	if err := sess.neg.Finalize(res); err != nil {
		// Unreachable while the user lock is held: the stage was
		// Countered when terms() ran.
		s.log.Error("finalize after settled negotiation", "user_id", userID, "session_id", sessionID, "error", err)
	}
	s.sessions.delete(sessionID)
	return out, nil
}

func (s *Service) CancelNegotiation(userID, sessionID string) error {
	if _, err := s.sessions.get(userID, sessionID); err != nil {
		return err
	}
	s.sessions.delete(sessionID)
	return nil
}

// commitResolution runs under the user lock held by closeNegotiation.
func (s *Service) commitResolution(ctx context.Context, userID string, sess *negotiationSession, res engine.Resolution, idemKey, action string) (InvestResult, error) {
	var out InvestResult

	balance, xp, err := s.loadProfileBalance(ctx, userID)
	if err != nil {
		return out, err
	}
	// The ask was validated at open; the balance may have moved since.
	if res.Amount > balance {
		return out, engine.ErrInsufficientFunds
	}

	if err := s.claimIdempotency(ctx, userID, idemKey, action); err != nil {
		return out, err
	}

	newBalance := balance - res.Amount
	if err := s.ledger.SetBalance(ctx, userID, newBalance); err != nil {
		s.releaseIdempotency(ctx, userID, idemKey)
		return out, err
	}

	gained := xpForInvestment(res.Amount)
	h, err := s.insertHolding(ctx, userID, sess.startupID, res.Amount, res.Equity, gained)
	if err != nil {
		if refundErr := s.ledger.SetBalance(ctx, userID, balance); refundErr != nil {
			s.log.Error("refund after failed holding insert", "user_id", userID, "error", refundErr)
		}
		s.releaseIdempotency(ctx, userID, idemKey)
		return out, err
	}

	out.Holding = h
	out.Balance = newBalance
	out.XPGained = gained
	out.Level = levelForXP(xp + gained)
	s.log.Info("negotiation closed", "user_id", userID, "startup_id", sess.startupID, "amount", res.Amount, "equity", res.Equity, "action", action)
	return out, nil
}

// ExitHolding resolves an exit event for a holding and credits the payout.
// The payout lands in the ledger before the holding row is touched; a
// failed row update claws the credit back.
func (s *Service) ExitHolding(ctx context.Context, in ExitInput) (ExitResult, error) {
	var out ExitResult

	mu := s.userLock(in.UserID)
	mu.Lock()
	defer mu.Unlock()

	h, err := s.loadHolding(ctx, in.UserID, in.HoldingID)
	if err != nil {
		return out, err
	}
	if h.Status != engine.StatusActive {
		return out, ErrHoldingNotActive
	}
	balance, _, err := s.loadProfileBalance(ctx, in.UserID)
	if err != nil {
		return out, err
	}

	updated, outcome, err := engine.ResolveExit(h, in.ExitType, in.SellFraction, s.rng)
	if err != nil {
		return out, err
	}

	if err := s.claimIdempotency(ctx, in.UserID, in.IdempotencyKey, "exit"); err != nil {
		return out, err
	}

	newBalance := balance + outcome.Payout
	if err := s.ledger.SetBalance(ctx, in.UserID, newBalance); err != nil {
		s.releaseIdempotency(ctx, in.UserID, in.IdempotencyKey)
		return out, err
	}

	if err := s.updateHolding(ctx, updated); err != nil {
		if refundErr := s.ledger.SetBalance(ctx, in.UserID, balance); refundErr != nil {
			s.log.Error("clawback after failed holding update", "user_id", in.UserID, "error", refundErr)
		}
		s.releaseIdempotency(ctx, in.UserID, in.IdempotencyKey)
		return out, err
	}

	out.Holding = updated
	out.Outcome = outcome
	out.Balance = newBalance
	s.log.Info("exit resolved", "user_id", in.UserID, "holding_id", h.ID, "exit_type", in.ExitType, "multiplier", outcome.Multiplier, "payout", outcome.Payout)
	return out, nil
}

// TickUser advances every active holding for one user by a single market
// step and persists the new valuations.
func (s *Service) TickUser(ctx context.Context, userID string) error {
	mu := s.userLock(userID)
	mu.Lock()
	defer mu.Unlock()

	holdings, err := s.loadHoldings(ctx, userID, true)
	if err != nil {
		return err
	}
	if len(holdings) == 0 {
		return nil
	}
	ticked := s.market.Tick(holdings)

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)
	for _, h := range ticked {
		if _, err := tx.Exec(ctx, `
			UPDATE game.holdings
			SET current_value = $2, change_percent = $3, updated_at = now()
			WHERE id = $1
		`, h.ID, h.CurrentValue, h.ChangePercent); err != nil {
			return err
		}
	}
	return tx.Commit(ctx)
}

// TickAll runs one market step for every user holding anything active.
// A failed user does not stop the sweep.
func (s *Service) TickAll(ctx context.Context) error {
	rows, err := s.db.Query(ctx, `
		SELECT DISTINCT user_id
		FROM game.holdings
		WHERE status = 'active'
	`)
	if err != nil {
		return err
	}
	var users []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return err
		}
		users = append(users, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return err
	}

	var failed int
	for _, id := range users {
		if err := s.TickUser(ctx, id); err != nil {
			failed++
			s.log.Error("tick failed for user", "user_id", id, "error", err)
		}
	}
	if failed > 0 {
		return fmt.Errorf("market tick: %d of %d users failed", failed, len(users))
	}
	return nil
}

// PassSwipe is the "next pitch" gesture. Declining costs nothing, but the
// market moves while the player browses.
func (s *Service) PassSwipe(ctx context.Context, userID string) error {
	return s.TickUser(ctx, userID)
}

func (s *Service) viewOf(sess *negotiationSession) NegotiationView {
	return NegotiationView{
		ID:              sess.id,
		StartupID:       sess.startupID,
		StartupName:     sess.startupName,
		Amount:          sess.neg.Amount,
		RequestedEquity: sess.neg.RequestedEquity,
		CounterEquity:   sess.neg.CounterEquity,
		ExpiresAt:       sess.expiresAt,
	}
}

func validateAmount(amount, minInvestment, balance float64) error {
	if amount <= 0 {
		return engine.ErrAmountNotPositive
	}
	if amount > balance {
		return engine.ErrInsufficientFunds
	}
	if amount < minInvestment {
		return engine.ErrBelowMinInvestment
	}
	return nil
}

func (s *Service) loadProfile(ctx context.Context, userID string) (Profile, error) {
	var p Profile
	err := s.db.QueryRow(ctx, `
		SELECT user_id, email, balance, xp, created_at
		FROM game.profiles
		WHERE user_id = $1
	`, userID).Scan(&p.UserID, &p.Email, &p.Balance, &p.XP, &p.CreatedAt)
	if err != nil {
		return p, err
	}
	p.Level = levelForXP(p.XP)
	p.XPToNext = xpToNextLevel(p.XP)
	return p, nil
}

func (s *Service) loadProfileBalance(ctx context.Context, userID string) (balance float64, xp int64, err error) {
	err = s.db.QueryRow(ctx, `
		SELECT balance, xp
		FROM game.profiles
		WHERE user_id = $1
	`, userID).Scan(&balance, &xp)
	return balance, xp, err
}

func (s *Service) loadHoldings(ctx context.Context, userID string, activeOnly bool) ([]engine.Holding, error) {
	query := `
		SELECT id, user_id, startup_id, invested_amount, equity_fraction, current_value, change_percent, status, created_at, updated_at
		FROM game.holdings
		WHERE user_id = $1
	`
	if activeOnly {
		query += " AND status = 'active'"
	}
	query += " ORDER BY created_at"
	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []engine.Holding
	for rows.Next() {
		var h engine.Holding
		if err := rows.Scan(&h.ID, &h.UserID, &h.StartupID, &h.InvestedAmount, &h.EquityFraction, &h.CurrentValue, &h.ChangePercent, &h.Status, &h.CreatedAt, &h.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

func (s *Service) loadHolding(ctx context.Context, userID, holdingID string) (engine.Holding, error) {
	var h engine.Holding
	err := s.db.QueryRow(ctx, `
		SELECT id, user_id, startup_id, invested_amount, equity_fraction, current_value, change_percent, status, created_at, updated_at
		FROM game.holdings
		WHERE id = $1
	`, holdingID).Scan(&h.ID, &h.UserID, &h.StartupID, &h.InvestedAmount, &h.EquityFraction, &h.CurrentValue, &h.ChangePercent, &h.Status, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		if err == pgx.ErrNoRows {
			return h, ErrHoldingNotFound
		}
		return h, err
	}
	if h.UserID != userID {
		return h, ErrUnauthorized
	}
	return h, nil
}

func (s *Service) insertHolding(ctx context.Context, userID, startupID string, amount, equity float64, xpGained int64) (engine.Holding, error) {
	var h engine.Holding
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return h, err
	}
	defer tx.Rollback(ctx)

	err = tx.QueryRow(ctx, `
		INSERT INTO game.holdings (id, user_id, startup_id, invested_amount, equity_fraction, current_value, change_percent, status)
		VALUES (gen_random_uuid(), $1, $2, $3, $4, $3, 0, 'active')
		RETURNING id, user_id, startup_id, invested_amount, equity_fraction, current_value, change_percent, status, created_at, updated_at
	`, userID, startupID, amount, equity).Scan(&h.ID, &h.UserID, &h.StartupID, &h.InvestedAmount, &h.EquityFraction, &h.CurrentValue, &h.ChangePercent, &h.Status, &h.CreatedAt, &h.UpdatedAt)
	if err != nil {
		return h, err
	}
	if _, err := tx.Exec(ctx, `
		UPDATE game.profiles
		SET xp = xp + $2, updated_at = now()
		WHERE user_id = $1
	`, userID, xpGained); err != nil {
		return h, err
	}
	return h, tx.Commit(ctx)
}

func (s *Service) updateHolding(ctx context.Context, h engine.Holding) error {
	tag, err := s.db.Exec(ctx, `
		UPDATE game.holdings
		SET invested_amount = $2, equity_fraction = $3, current_value = $4, change_percent = $5, status = $6, updated_at = now()
		WHERE id = $1
	`, h.ID, h.InvestedAmount, h.EquityFraction, h.CurrentValue, h.ChangePercent, h.Status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrHoldingNotFound
	}
	return nil
}

func (s *Service) claimIdempotency(ctx context.Context, userID, key, action string) error {
	if key == "" {
		return fmt.Errorf("idempotency key is required")
	}
	cmd, err := s.db.Exec(ctx, `
		INSERT INTO game.idempotency_keys (user_id, key, action, created_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (user_id, key) DO NOTHING
	`, userID, key, action)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrDuplicateRequest
	}
	return nil
}

// releaseIdempotency frees a claimed key after the operation it guarded
// failed, so an honest retry is not rejected as a duplicate.
func (s *Service) releaseIdempotency(ctx context.Context, userID, key string) {
	if _, err := s.db.Exec(ctx, `
		DELETE FROM game.idempotency_keys
		WHERE user_id = $1 AND key = $2
	`, userID, key); err != nil {
		s.log.Error("release idempotency key", "user_id", userID, "error", err)
	}
}
