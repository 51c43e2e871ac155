package paper

import (
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// ledgerSnapshot is the wire shape of a serialized engine. The blob is
// versionless by contract: every field needed to reproduce subsequent
// open/close arithmetic is carried explicitly.
type ledgerSnapshot struct {
	AgentID        string      `msgpack:"agent_id"`
	InitialBalance float64     `msgpack:"initial_balance"`
	Balance        float64     `msgpack:"balance"`
	SlippagePct    float64     `msgpack:"slippage_pct"`
	Open           []*Position `msgpack:"open"`
	Closed         []*Position `msgpack:"closed"`
}

// Serialize encodes balance, slippage and both position collections into an
// opaque blob. Callers own storage and retrieval keyed by agent id.
func (e *Engine) Serialize() ([]byte, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	snap := ledgerSnapshot{
		AgentID:        e.agentID,
		InitialBalance: e.initialBalance,
		Balance:        e.balance,
		SlippagePct:    e.slippagePct,
		Open:           e.open,
		Closed:         e.closed,
	}
	data, err := msgpack.Marshal(&snap)
	if err != nil {
		return nil, fmt.Errorf("paper: serialize ledger: %w", err)
	}
	return data, nil
}

// Deserialize reconstructs a ledger behaviourally identical to the one that
// produced the blob.
func Deserialize(blob []byte, opts ...Option) (*Engine, error) {
	var snap ledgerSnapshot
	if err := msgpack.Unmarshal(blob, &snap); err != nil {
		return nil, fmt.Errorf("paper: deserialize ledger: %w", err)
	}
	if snap.InitialBalance <= 0 {
		return nil, newValidationError("initial_balance", "snapshot carries non-positive initial balance")
	}

	e, err := NewEngine(snap.AgentID, snap.InitialBalance, snap.SlippagePct, opts...)
	if err != nil {
		return nil, err
	}
	e.balance = snap.Balance
	e.open = snap.Open
	e.closed = snap.Closed
	return e, nil
}
