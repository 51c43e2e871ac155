package executor

import (
	"time"

	"papertrade-api/pkg/market"
)

// Action is the trade intent returned by the decision oracle.
type Action string

const (
	ActionBuy   Action = "buy"
	ActionSell  Action = "sell"
	ActionHold  Action = "hold"
	ActionClose Action = "close"
)

// Valid reports whether the action belongs to the supported set.
func (a Action) Valid() bool {
	switch a {
	case ActionBuy, ActionSell, ActionHold, ActionClose:
		return true
	}
	return false
}

// Intent is the validated structured output of a decision request.
type Intent struct {
	Action     Action  `json:"action"`
	Confidence float64 `json:"confidence"`
	Reasoning  string  `json:"reasoning"`
	TargetPair string  `json:"target_pair,omitempty"`
	SizePct    float64 `json:"size_pct,omitempty"` // suggested position size, % of balance
}

// Decision wraps an intent with provenance. Fallback intents carry the cause
// that forced the downgrade to hold.
type Decision struct {
	Intent    Intent    `json:"intent"`
	Fallback  bool      `json:"fallback"`
	Cause     string    `json:"cause,omitempty"`
	Prompt    string    `json:"-"`
	RawOutput string    `json:"raw_output,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// PositionView is the read-only projection of an open position given to the oracle.
type PositionView struct {
	Pair             string
	Side             string
	EntryPrice       float64
	AmountUSD        float64
	UnrealizedPnlPct float64
	OpenedAt         time.Time
}

// LedgerView summarizes ledger state for prompt construction.
type LedgerView struct {
	Balance        float64
	InitialBalance float64
	TotalPnlPct    float64
	DailyPnlPct    float64
	WinRate        float64
	TotalTrades    int
	OpenPositions  []PositionView
}

// Context aggregates all inputs required to form a decision.
type Context struct {
	AgentID     string
	Pair        string
	Persona     string
	Ledger      LedgerView
	Market      *market.Snapshot
	Suppression string // risk-gate suppression in effect, empty when entries are allowed
	CycleCount  int64
}
