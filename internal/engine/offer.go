package engine

import "math"

// EquityForAmount converts a cash amount into an equity fraction against a
// company valuation. The amount is capped at the valuation before dividing,
// so the result is always in [0, 1]. Degenerate inputs (non-positive
// valuation, negative or NaN amount) yield 0 rather than an error.
func EquityForAmount(amount, valuation float64) float64 {
	if valuation <= 0 {
		return 0
	}
	if amount < 0 || math.IsNaN(amount) {
		amount = 0
	}
	return math.Min(amount, valuation) / valuation
}

// EquityFromFundingGoal is the percentage-of-ask variant used by the pledge
// flow: the fraction of the funding goal covered, scaled by the equity the
// startup put on the table, never exceeding that ceiling.
//
// This is intentionally a separate operation from EquityForAmount. The two
// formulas are not algebraically equivalent (one is bounded by valuation,
// the other by equity offered) and the product behavior differs per screen.
func EquityFromFundingGoal(amount, fundingGoal, equityOffered float64) float64 {
	if fundingGoal <= 0 || equityOffered <= 0 {
		return 0
	}
	if amount < 0 || math.IsNaN(amount) {
		amount = 0
	}
	raw := math.Min(amount, fundingGoal) / fundingGoal * equityOffered
	return math.Min(raw, equityOffered)
}

// Bounds of an investor's opening ask relative to the fair equity for the
// amount, matching the range the offer screen lets the player pick from.
const (
	askFloorRatio   = 0.80
	askCeilingRatio = 1.50
)

// ClampRequestedEquity bounds the investor's opening ask to 0.8x-1.5x the
// fair equity for the amount. An omitted ask (zero, negative, or NaN)
// falls back to fair value.
func ClampRequestedEquity(requested, fair float64) float64 {
	if fair <= 0 {
		return 0
	}
	if requested <= 0 || math.IsNaN(requested) {
		return fair
	}
	if floor := fair * askFloorRatio; requested < floor {
		return floor
	}
	if ceiling := fair * askCeilingRatio; requested > ceiling {
		return ceiling
	}
	return requested
}
