package paper

import "time"

// Side distinguishes long from short exposure.
type Side string

const (
	SideLong  Side = "long"
	SideShort Side = "short"
)

// State captures a position's lifecycle. A position is open exactly once and
// terminal states are never left.
type State string

const (
	StateOpen       State = "open"
	StateClosed     State = "closed"
	StateStoppedOut State = "stopped_out"
)

// Position is a single simulated trade. Effective prices are quoted prices
// adjusted by the slippage fraction frozen at open time; they are never
// recomputed, so historical records stay reproducible when the configured
// slippage changes.
type Position struct {
	ID      string `json:"id" msgpack:"id"`
	AgentID string `json:"agent_id" msgpack:"agent_id"`

	Pair  string `json:"pair" msgpack:"pair"`
	Venue string `json:"venue,omitempty" msgpack:"venue,omitempty"`
	Side  Side   `json:"side" msgpack:"side"`

	EntryPrice    float64 `json:"entry_price" msgpack:"entry_price"`
	EffEntryPrice float64 `json:"eff_entry_price" msgpack:"eff_entry_price"`
	ExitPrice     float64 `json:"exit_price,omitempty" msgpack:"exit_price,omitempty"`
	EffExitPrice  float64 `json:"eff_exit_price,omitempty" msgpack:"eff_exit_price,omitempty"`
	SlippagePct   float64 `json:"slippage_pct" msgpack:"slippage_pct"`

	AmountUSD       float64 `json:"amount_usd" msgpack:"amount_usd"`
	BalanceFraction float64 `json:"balance_fraction" msgpack:"balance_fraction"`

	Confidence      float64 `json:"confidence" msgpack:"confidence"`
	CloseConfidence float64 `json:"close_confidence,omitempty" msgpack:"close_confidence,omitempty"`
	Reasoning       string  `json:"reasoning,omitempty" msgpack:"reasoning,omitempty"`
	CloseReasoning  string  `json:"close_reasoning,omitempty" msgpack:"close_reasoning,omitempty"`
	Strategy        string  `json:"strategy,omitempty" msgpack:"strategy,omitempty"`

	State    State     `json:"state" msgpack:"state"`
	OpenedAt time.Time `json:"opened_at" msgpack:"opened_at"`
	ClosedAt time.Time `json:"closed_at,omitempty" msgpack:"closed_at,omitempty"`

	// PnlPct/PnlUSD are undefined while open; computed once at close and frozen.
	PnlPct float64 `json:"pnl_pct,omitempty" msgpack:"pnl_pct,omitempty"`
	PnlUSD float64 `json:"pnl_usd,omitempty" msgpack:"pnl_usd,omitempty"`
}

// IsOpen reports whether the position is still live.
func (p *Position) IsOpen() bool { return p.State == StateOpen }

// IsTerminal reports whether the position reached a closed or stopped-out state.
func (p *Position) IsTerminal() bool {
	return p.State == StateClosed || p.State == StateStoppedOut
}

// UnrealizedPnlPct computes the signed move of currentPrice against the
// effective entry, mirrored for shorts. Valid for open positions only.
func (p *Position) UnrealizedPnlPct(currentPrice float64) float64 {
	if p.EffEntryPrice <= 0 {
		return 0
	}
	move := (currentPrice - p.EffEntryPrice) / p.EffEntryPrice * 100
	if p.Side == SideShort {
		move = -move
	}
	return move
}

// CheckStopLoss reports whether the unrealized move against the effective
// entry has reached -pct%. Side-aware: a short breaches when price rises.
func CheckStopLoss(p *Position, currentPrice, pct float64) bool {
	if p == nil || pct <= 0 {
		return false
	}
	return p.UnrealizedPnlPct(currentPrice) <= -pct
}

// CheckTakeProfit reports whether the unrealized move in favour of the
// position has reached +pct%.
func CheckTakeProfit(p *Position, currentPrice, pct float64) bool {
	if p == nil || pct <= 0 {
		return false
	}
	return p.UnrealizedPnlPct(currentPrice) >= pct
}

func (p *Position) clone() *Position {
	cp := *p
	return &cp
}
