package engine

// Negotiation stages. The only reachable path is
// Offered -> Countered -> Resolved; there is no direct accept from Offered
// and no outright rejection once an offer validates.
type Stage int

const (
	StageOffered Stage = iota
	StageCountered
	StageResolved
)

func (s Stage) String() string {
	switch s {
	case StageOffered:
		return "offered"
	case StageCountered:
		return "countered"
	case StageResolved:
		return "resolved"
	default:
		return "unknown"
	}
}

// Founders counter with 80-95% of the equity the investor asked for.
const (
	counterFloor   = 0.80
	counterCeiling = 0.95
)

// Negotiation is one offer/counter-offer session. It is ephemeral: callers
// discard it on cancel and nothing here touches the ledger.
type Negotiation struct {
	Stage           Stage   `json:"stage"`
	Amount          float64 `json:"amount"`
	RequestedEquity float64 `json:"requested_equity"`
	CounterEquity   float64 `json:"counter_equity"`

	resolved Resolution
}

// Resolution is the finalized (amount, equity) pair the caller forwards to
// the ledger to create a holding.
type Resolution struct {
	Amount float64 `json:"amount"`
	Equity float64 `json:"equity"`
}

// OpenNegotiation validates the offer and starts a session. Validation
// failures happen before any state exists, so a rejected open has no side
// effects at all.
func OpenNegotiation(amount, requestedEquity, minInvestment, cashAvailable float64) (*Negotiation, error) {
	if amount <= 0 {
		return nil, ErrAmountNotPositive
	}
	if amount > cashAvailable {
		return nil, ErrInsufficientFunds
	}
	if amount < minInvestment {
		return nil, ErrBelowMinInvestment
	}
	return &Negotiation{
		Stage:           StageOffered,
		Amount:          amount,
		RequestedEquity: requestedEquity,
	}, nil
}

// Counter moves the session to Countered with the founder's reply. It
// always succeeds from Offered; the modeled founders never walk away.
func (n *Negotiation) Counter(rng *Source) error {
	if n.Stage != StageOffered {
		return ErrInvalidStage
	}
	n.CounterEquity = n.RequestedEquity * rng.Between(counterFloor, counterCeiling)
	n.Stage = StageCountered
	return nil
}

// AcceptTerms returns the deal that accepting the founder's counter would
// close. The stage does not advance: callers settle the money first and
// Finalize only once it clears, so a failed settlement leaves the counter
// open for another attempt.
func (n *Negotiation) AcceptTerms() (Resolution, error) {
	if n.Stage != StageCountered {
		return Resolution{}, ErrInvalidStage
	}
	return Resolution{Amount: n.Amount, Equity: n.CounterEquity}, nil
}

// ReviseTerms pushes back once and the original ask is granted outright.
// The asymmetry (revising strictly beats accepting, with no further
// counter round) is the shipped game behavior and is kept on purpose.
// Like AcceptTerms, it does not advance the stage.
func (n *Negotiation) ReviseTerms() (Resolution, error) {
	if n.Stage != StageCountered {
		return Resolution{}, ErrInvalidStage
	}
	return Resolution{Amount: n.Amount, Equity: n.RequestedEquity}, nil
}

// Finalize records the settled resolution and closes the session. Only a
// Countered session can be finalized; a resolved one rejects further
// terms and finalize calls alike.
func (n *Negotiation) Finalize(res Resolution) error {
	if n.Stage != StageCountered {
		return ErrInvalidStage
	}
	n.resolved = res
	n.Stage = StageResolved
	return nil
}

func (n *Negotiation) Resolved() (Resolution, bool) {
	if n.Stage != StageResolved {
		return Resolution{}, false
	}
	return n.resolved, true
}
