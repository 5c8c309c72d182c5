package engine

type ExitType string

const (
	ExitIPO         ExitType = "ipo"
	ExitAcquisition ExitType = "acquisition"
	ExitLiquidation ExitType = "liquidation"
)

// ExitOutcome is the settled result of a liquidity event.
type ExitOutcome struct {
	Multiplier float64 `json:"multiplier"`
	Payout     float64 `json:"payout"`
	Message    string  `json:"message"`
}

// ResolveExit simulates a liquidity event for a holding. A single uniform
// draw picks the outcome band for the exit type, and the band's own uniform
// sub-range produces the payout multiplier:
//
//	ipo:          60% [2.0,3.0)  30% [1.0,2.0)  10% [0.2,0.4)
//	acquisition:  50% [1.5,2.5)  35% [1.0,1.5)  15% [0.3,0.6)
//	liquidation:  30% [1.0,1.2)  70% total loss
//
// payout = currentValue * multiplier * sellFraction. Selling the full stake
// marks the holding Sold; a partial sale scales amount, equity and value by
// the retained fraction and leaves it Active. The returned holding is a
// copy, so callers commit the mutation only after the ledger credit lands.
func ResolveExit(h Holding, exitType ExitType, sellFraction float64, rng *Source) (Holding, ExitOutcome, error) {
	if sellFraction <= 0 || sellFraction > 1 {
		return h, ExitOutcome{}, ErrInvalidSellFraction
	}

	var out ExitOutcome
	band := rng.Float64()
	switch exitType {
	case ExitIPO:
		switch {
		case band < 0.6:
			out.Multiplier = rng.Between(2.0, 3.0)
			out.Message = "IPO success! Your investment doubled."
		case band < 0.9:
			out.Multiplier = rng.Between(1.0, 2.0)
			out.Message = "IPO was modest. You get your money back plus a little."
		default:
			out.Multiplier = rng.Between(0.2, 0.4)
			out.Message = "IPO failed. You lost most of your investment."
		}
	case ExitAcquisition:
		switch {
		case band < 0.5:
			out.Multiplier = rng.Between(1.5, 2.5)
			out.Message = "Acquisition was lucrative!"
		case band < 0.85:
			out.Multiplier = rng.Between(1.0, 1.5)
			out.Message = "Acquisition was average."
		default:
			out.Multiplier = rng.Between(0.3, 0.6)
			out.Message = "Acquisition was a fire sale."
		}
	case ExitLiquidation:
		if band < 0.3 {
			out.Multiplier = rng.Between(1.0, 1.2)
			out.Message = "Liquidation returned some value."
		} else {
			out.Multiplier = 0
			out.Message = "Liquidation failed. Investment lost."
		}
	default:
		return h, ExitOutcome{}, ErrUnknownExitType
	}

	out.Payout = h.CurrentValue * out.Multiplier * sellFraction

	if sellFraction == 1 {
		h.Status = StatusSold
		return h, out, nil
	}
	remaining := 1 - sellFraction
	h.InvestedAmount *= remaining
	h.EquityFraction *= remaining
	h.CurrentValue *= remaining
	return h, out, nil
}
