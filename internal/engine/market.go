package engine

const (
	// Per-step parameters of the value walk: ~0.05% drift and ~1%
	// volatility per update.
	DefaultDrift      = 0.0005
	DefaultVolatility = 0.01
)

// Market advances holding values by one discrete step using a geometric
// random walk: delta = N(0,1)*sigma + mu, value *= 1 + delta.
type Market struct {
	Drift      float64
	Volatility float64
	rng        *Source
}

func NewMarket(rng *Source) *Market {
	return &Market{
		Drift:      DefaultDrift,
		Volatility: DefaultVolatility,
		rng:        rng,
	}
}

// Step applies one market update to a single holding. A holding whose value
// is exactly 0 stays at 0 with a 0 change percent; values are never clamped
// above that and can drift arbitrarily small.
func (m *Market) Step(h Holding) Holding {
	if h.Status != StatusActive {
		return h
	}
	old := h.CurrentValue
	if old == 0 {
		h.ChangePercent = 0
		return h
	}
	delta := m.rng.NormFloat64()*m.Volatility + m.Drift
	h.CurrentValue = old * (1 + delta)
	h.ChangePercent = (h.CurrentValue - old) / old * 100
	return h
}

// Tick advances every active holding by one step. Both the worker cadence
// and the opportunistic pass-swipe trigger land here so behavior is
// identical regardless of who asked.
func (m *Market) Tick(holdings []Holding) []Holding {
	out := make([]Holding, len(holdings))
	for i, h := range holdings {
		out[i] = m.Step(h)
	}
	return out
}
