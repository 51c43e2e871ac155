package paper

import (
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Engine is the position ledger for a single agent. It owns the simulated
// balance and both position collections and is the only component allowed to
// mutate them. Opening a position reserves its full notional: the amount is
// debited from balance immediately and credited back (plus realized P&L) at
// close, so balance always equals initial balance plus realized P&L minus
// committed notional.
type Engine struct {
	mu sync.Mutex

	agentID        string
	initialBalance float64
	balance        float64
	slippagePct    float64 // fraction, e.g. 0.003 for 0.3%

	open   []*Position
	closed []*Position

	nowFn func() time.Time
	newID func() string
}

// Option customises Engine construction.
type Option func(*Engine)

// WithClock overrides the time source (tests).
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.nowFn = now
		}
	}
}

// WithIDGenerator overrides position ID generation (tests).
func WithIDGenerator(gen func() string) Option {
	return func(e *Engine) {
		if gen != nil {
			e.newID = gen
		}
	}
}

// NewEngine constructs a ledger with the given starting balance and slippage
// fraction.
func NewEngine(agentID string, initialBalance, slippagePct float64, opts ...Option) (*Engine, error) {
	if initialBalance <= 0 {
		return nil, newValidationError("initial_balance", "must be positive")
	}
	if slippagePct < 0 {
		return nil, newValidationError("slippage_pct", "cannot be negative")
	}
	e := &Engine{
		agentID:        agentID,
		initialBalance: initialBalance,
		balance:        initialBalance,
		slippagePct:    slippagePct,
		nowFn:          time.Now,
		newID:          uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// OpenParams describes a requested entry.
type OpenParams struct {
	Pair  string
	Venue string
	Side  Side

	Price     float64
	AmountUSD float64

	// Balance is the balance the caller believes is current; sizing is checked
	// against it rather than the ledger's own field. Zero means "use the
	// ledger's balance".
	Balance float64
	// MaxSizeFraction caps AmountUSD/Balance; zero disables the check.
	MaxSizeFraction float64

	Confidence float64
	Reasoning  string
	Strategy   string
}

// OpenPosition validates params, applies entry slippage against the side,
// debits the notional and appends a new open position.
func (e *Engine) OpenPosition(params OpenParams) (*Position, error) {
	if params.AmountUSD <= 0 {
		return nil, newValidationError("amount_usd", "must be positive")
	}
	if params.Price <= 0 {
		return nil, newValidationError("price", "must be positive")
	}
	if params.Side != SideLong && params.Side != SideShort {
		return nil, newValidationError("side", fmt.Sprintf("unknown side %q", params.Side))
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	sizingBalance := params.Balance
	if sizingBalance <= 0 {
		sizingBalance = e.balance
	}
	if params.MaxSizeFraction > 0 && sizingBalance > 0 {
		if params.AmountUSD/sizingBalance > params.MaxSizeFraction+1e-9 {
			return nil, fmt.Errorf("%w: %.2f USD is %.2f%% of balance, max %.2f%%",
				ErrPositionSizeExceeded, params.AmountUSD,
				params.AmountUSD/sizingBalance*100, params.MaxSizeFraction*100)
		}
	}
	if params.AmountUSD > e.balance {
		return nil, fmt.Errorf("%w: need %.2f USD, have %.2f", ErrInsufficientBalance, params.AmountUSD, e.balance)
	}

	effEntry := params.Price * (1 + e.slippagePct)
	if params.Side == SideShort {
		effEntry = params.Price * (1 - e.slippagePct)
	}

	pos := &Position{
		ID:              e.newID(),
		AgentID:         e.agentID,
		Pair:            params.Pair,
		Venue:           params.Venue,
		Side:            params.Side,
		EntryPrice:      params.Price,
		EffEntryPrice:   effEntry,
		SlippagePct:     e.slippagePct,
		AmountUSD:       params.AmountUSD,
		BalanceFraction: params.AmountUSD / sizingBalance,
		Confidence:      params.Confidence,
		Reasoning:       params.Reasoning,
		Strategy:        params.Strategy,
		State:           StateOpen,
		OpenedAt:        e.nowFn().UTC(),
	}

	e.balance -= params.AmountUSD
	e.open = append(e.open, pos)
	return pos.clone(), nil
}

// CloseParams describes a discretionary exit.
type CloseParams struct {
	Price      float64
	Confidence float64
	Reasoning  string
}

// ClosePosition exits an open position at the quoted price, applying exit
// slippage symmetric to entry, and credits notional plus realized P&L back to
// balance.
func (e *Engine) ClosePosition(id string, params CloseParams) (*Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settleLocked(id, params, StateClosed)
}

// StopOutPosition is economically identical to ClosePosition but tags the
// terminal state as stopped_out so risk-triggered exits stay distinguishable
// in history and analytics.
func (e *Engine) StopOutPosition(id string, price float64) (*Position, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.settleLocked(id, CloseParams{Price: price}, StateStoppedOut)
}

func (e *Engine) settleLocked(id string, params CloseParams, terminal State) (*Position, error) {
	if params.Price <= 0 {
		return nil, newValidationError("price", "must be positive")
	}

	idx := -1
	for i, p := range e.open {
		if p.ID == id {
			idx = i
			break
		}
	}
	if idx < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	pos := e.open[idx]

	// Exit slippage works against the trader: longs sell below the quote,
	// shorts buy back above it. Uses the slippage frozen at open time.
	effExit := params.Price * (1 - pos.SlippagePct)
	if pos.Side == SideShort {
		effExit = params.Price * (1 + pos.SlippagePct)
	}

	pnlPct := (effExit - pos.EffEntryPrice) / pos.EffEntryPrice * 100
	if pos.Side == SideShort {
		pnlPct = -pnlPct
	}
	pnlUSD := pos.AmountUSD * pnlPct / 100

	pos.ExitPrice = params.Price
	pos.EffExitPrice = effExit
	pos.PnlPct = pnlPct
	pos.PnlUSD = pnlUSD
	pos.CloseConfidence = params.Confidence
	pos.CloseReasoning = params.Reasoning
	pos.State = terminal
	pos.ClosedAt = e.nowFn().UTC()

	e.balance += pos.AmountUSD + pnlUSD
	e.open = append(e.open[:idx], e.open[idx+1:]...)
	e.closed = append(e.closed, pos)
	return pos.clone(), nil
}

// Balance returns the current free balance in USD.
func (e *Engine) Balance() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.balance
}

// InitialBalance returns the balance the ledger started with.
func (e *Engine) InitialBalance() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.initialBalance
}

// SlippagePct returns the configured slippage fraction.
func (e *Engine) SlippagePct() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.slippagePct
}

// AgentID returns the owning agent's identifier.
func (e *Engine) AgentID() string { return e.agentID }

// OpenPositions returns the open positions in insertion order.
func (e *Engine) OpenPositions() []*Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Position, 0, len(e.open))
	for _, p := range e.open {
		out = append(out, p.clone())
	}
	return out
}

// ClosedPositions returns the terminal positions in close order.
func (e *Engine) ClosedPositions() []*Position {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]*Position, 0, len(e.closed))
	for _, p := range e.closed {
		out = append(out, p.clone())
	}
	return out
}

// WinRate returns the fraction of terminal positions with positive P&L.
// Zero, not NaN, when no position has closed yet.
func (e *Engine) WinRate() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if len(e.closed) == 0 {
		return 0
	}
	wins := 0
	for _, p := range e.closed {
		if p.PnlPct > 0 {
			wins++
		}
	}
	return float64(wins) / float64(len(e.closed))
}

// TotalPnlPct returns realized P&L across all terminal positions as a
// percentage of the initial balance.
func (e *Engine) TotalPnlPct() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	var pnl float64
	for _, p := range e.closed {
		pnl += p.PnlUSD
	}
	return pnl / e.initialBalance * 100
}

// DailyPnlPct returns realized P&L of positions closed within the current UTC
// day as a percentage of the equity at the start of that day.
func (e *Engine) DailyPnlPct() float64 {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.nowFn().UTC()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	var today, before float64
	for _, p := range e.closed {
		if p.ClosedAt.Before(midnight) {
			before += p.PnlUSD
		} else {
			today += p.PnlUSD
		}
	}
	dayStart := e.initialBalance + before
	if dayStart <= 0 {
		return 0
	}
	return today / dayStart * 100
}
