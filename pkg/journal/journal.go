package journal

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"
)

// Outcome classifies what a decision cycle produced.
type Outcome string

const (
	OutcomeOpened        Outcome = "opened"
	OutcomeClosed        Outcome = "closed"
	OutcomeForcedExit    Outcome = "forced_exit"
	OutcomeHold          Outcome = "hold"
	OutcomeRejected      Outcome = "rejected"
	OutcomeSuppressed    Outcome = "suppressed"
	OutcomeOracleFailure Outcome = "oracle_failure"
	OutcomeCycleError    Outcome = "cycle_error"
)

// ForcedExit records a single risk-triggered close within a cycle.
type ForcedExit struct {
	PositionID string  `json:"position_id"`
	Pair       string  `json:"pair"`
	Kind       string  `json:"kind"` // stop_loss or take_profit
	Price      float64 `json:"price"`
	PnlPct     float64 `json:"pnl_pct"`
}

// CycleRecord captures one decision cycle for audit.
type CycleRecord struct {
	Timestamp    time.Time    `json:"timestamp"`
	AgentID      string       `json:"agent_id"`
	CycleNumber  int64        `json:"cycle_number"`
	Pair         string       `json:"pair"`
	Outcome      Outcome      `json:"outcome"`
	Action       string       `json:"action,omitempty"`
	Confidence   float64      `json:"confidence,omitempty"`
	Reasoning    string       `json:"reasoning,omitempty"`
	Cause        string       `json:"cause,omitempty"`
	PromptDigest string       `json:"prompt_digest,omitempty"`
	ForcedExits  []ForcedExit `json:"forced_exits,omitempty"`
	Balance      float64      `json:"balance"`
	Price        float64      `json:"price,omitempty"`
	Error        string       `json:"error,omitempty"`
}

// Writer persists cycle records to a directory as JSON files.
type Writer struct {
	dir   string
	mu    sync.Mutex
	seq   int
	nowFn func() time.Time
}

// NewWriter constructs a journal writer rooted at dir.
func NewWriter(dir string) *Writer {
	if dir == "" {
		dir = "journal"
	}
	_ = os.MkdirAll(dir, 0o755)
	return &Writer{dir: dir, nowFn: time.Now}
}

// WriteCycle writes a cycle record to a timestamped JSON file and returns its path.
func (w *Writer) WriteCycle(rec *CycleRecord) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("journal: nil record")
	}
	if rec.AgentID == "" {
		return "", fmt.Errorf("journal: record requires agent id")
	}
	if rec.Timestamp.IsZero() {
		rec.Timestamp = w.nowFn()
	}

	w.mu.Lock()
	w.seq++
	seq := w.seq
	w.mu.Unlock()

	name := fmt.Sprintf("cycle_%s_%s_%05d.json", rec.AgentID, rec.Timestamp.UTC().Format("20060102_150405"), seq)
	path := filepath.Join(w.dir, name)
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", err
	}
	return path, nil
}
