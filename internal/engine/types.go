package engine

import (
	"errors"
	"time"
)

type HoldingStatus string

const (
	StatusActive HoldingStatus = "active"
	StatusSold   HoldingStatus = "sold"
)

// Holding is one live investment position. CurrentValue is the only field
// the market simulation touches on its own; everything else moves through
// the portfolio service.
type Holding struct {
	ID             string        `json:"id"`
	UserID         string        `json:"user_id"`
	StartupID      string        `json:"startup_id"`
	InvestedAmount float64       `json:"invested_amount"`
	EquityFraction float64       `json:"equity_fraction"`
	CurrentValue   float64       `json:"current_value"`
	ChangePercent  float64       `json:"change_percent"`
	Status         HoldingStatus `json:"status"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}

var (
	ErrAmountNotPositive   = errors.New("amount must be greater than 0")
	ErrInsufficientFunds   = errors.New("insufficient funds")
	ErrBelowMinInvestment  = errors.New("amount below minimum investment")
	ErrInvalidStage        = errors.New("negotiation is not in a valid stage for this action")
	ErrInvalidSellFraction = errors.New("sell fraction must be in (0, 1]")
	ErrUnknownExitType     = errors.New("unknown exit type")
)
