package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"papertrade-api/pkg/analytics"
	"papertrade-api/pkg/journal"
)

// ErrAgentStateNotFound signals that no snapshot exists for an agent. The
// manager treats it as a fresh start rather than a failure.
var ErrAgentStateNotFound = errors.New("scheduler: agent state not found")

// AgentSnapshot is the durable snapshot of an agent: the serialized ledger
// plus the schedule bookkeeping needed to resume suppression windows and cycle
// numbering across restarts.
type AgentSnapshot struct {
	AgentID    string
	Ledger     []byte
	State      string
	Interval   string
	CycleCount int64
	NextWakeAt time.Time
	LastLossAt time.Time
	UpdatedAt  time.Time
}

// Store describes the persistence hooks the scheduler emits. Implementations
// must be safe for concurrent use; the manager runs agent cycles in parallel.
type Store interface {
	SaveAgentState(ctx context.Context, state *AgentSnapshot) error
	LoadAgentState(ctx context.Context, agentID string) (*AgentSnapshot, error)
	RecordCycle(ctx context.Context, record *journal.CycleRecord) error
	AppendMetrics(ctx context.Context, agentID string, metrics analytics.Metrics) error
}

type noopStore struct{}

func (noopStore) SaveAgentState(ctx context.Context, state *AgentSnapshot) error { return nil }

func (noopStore) LoadAgentState(ctx context.Context, agentID string) (*AgentSnapshot, error) {
	return nil, ErrAgentStateNotFound
}

func (noopStore) RecordCycle(ctx context.Context, record *journal.CycleRecord) error { return nil }

func (noopStore) AppendMetrics(ctx context.Context, agentID string, metrics analytics.Metrics) error {
	return nil
}

// newNoopStore guarantees the manager always has persistence hooks to call.
func newNoopStore() Store { return noopStore{} }

func logStoreError(ctx context.Context, agentID, op string, err error) {
	if err == nil {
		return
	}
	logx.WithContext(ctx).Errorf("scheduler: agent %s: %s: %v", agentID, op, err)
}
