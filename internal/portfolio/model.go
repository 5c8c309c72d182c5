package portfolio

import (
	"errors"
	"math"
	"time"

	"vencha/internal/engine"
)

const (
	// StarterBalance is the cash a fresh player starts with.
	StarterBalance = float64(100_000)

	// XPPerHundredInvested: one experience point per $100 put to work.
	xpPerDollar = 1.0 / 100.0

	xpPerLevel = 100
)

var (
	ErrDuplicateRequest    = errors.New("duplicate idempotency key")
	ErrHoldingNotFound     = errors.New("holding not found")
	ErrHoldingNotActive    = errors.New("holding is not active")
	ErrNegotiationNotFound = errors.New("negotiation not found or expired")
	ErrUnauthorized        = errors.New("unauthorized")
)

// Profile is the player record backing the portfolio screen.
type Profile struct {
	UserID    string    `json:"user_id"`
	Email     string    `json:"email"`
	Balance   float64   `json:"balance"`
	XP        int64     `json:"xp"`
	Level     int64     `json:"level"`
	XPToNext  int64     `json:"xp_to_next_level"`
	CreatedAt time.Time `json:"created_at"`
}

// Summary is the full portfolio view: cash, progression, and every holding
// with live valuations.
type Summary struct {
	Profile       Profile          `json:"profile"`
	Holdings      []engine.Holding `json:"holdings"`
	TotalInvested float64          `json:"total_invested"`
	TotalValue    float64          `json:"total_value"`
	NetWorth      float64          `json:"net_worth"`
	OverallChange float64          `json:"overall_change_percent"`
}

type InvestInput struct {
	UserID         string
	StartupID      string
	Amount         float64
	IdempotencyKey string
}

// PledgeInput funds against a round's goal rather than the valuation, so
// equity comes from the funding-goal formula.
type PledgeInput struct {
	UserID         string
	StartupID      string
	Amount         float64
	IdempotencyKey string
}

type InvestResult struct {
	Holding  engine.Holding `json:"holding"`
	Balance  float64        `json:"balance"`
	XPGained int64          `json:"xp_gained"`
	Level    int64          `json:"level"`
}

type OpenNegotiationInput struct {
	UserID    string
	StartupID string
	Amount    float64
	// RequestedEquity is the investor's opening ask; zero means "ask for
	// fair value". The service clamps it to the allowed band around fair.
	RequestedEquity float64
}

// NegotiationView is what the client sees while a session is live.
type NegotiationView struct {
	ID              string    `json:"id"`
	StartupID       string    `json:"startup_id"`
	StartupName     string    `json:"startup_name"`
	Amount          float64   `json:"amount"`
	RequestedEquity float64   `json:"requested_equity"`
	CounterEquity   float64   `json:"counter_equity"`
	ExpiresAt       time.Time `json:"expires_at"`
}

type ExitInput struct {
	UserID         string
	HoldingID      string
	ExitType       engine.ExitType
	SellFraction   float64
	IdempotencyKey string
}

type ExitResult struct {
	Holding engine.Holding     `json:"holding"`
	Outcome engine.ExitOutcome `json:"outcome"`
	Balance float64            `json:"balance"`
}

func xpForInvestment(amount float64) int64 {
	if amount <= 0 {
		return 0
	}
	return int64(math.Floor(amount * xpPerDollar))
}

func levelForXP(xp int64) int64 {
	if xp < 0 {
		return 0
	}
	return xp / xpPerLevel
}

func xpToNextLevel(xp int64) int64 {
	return (levelForXP(xp) + 1) * xpPerLevel
}
