package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/zeromicro/go-zero/core/logx"
	gocache "github.com/zeromicro/go-zero/core/stores/cache"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	cachekeys "papertrade-api/internal/cache"
	"papertrade-api/pkg/analytics"
	"papertrade-api/pkg/journal"
	"papertrade-api/pkg/scheduler"
)

var _ scheduler.Store = (*Store)(nil)

// ErrNoMetrics signals that no rollup has been recorded for an agent yet.
var ErrNoMetrics = errors.New("store: no metrics recorded")

// Store persists agent state, cycle audit records and performance history to
// Postgres, mirroring the hot reads into Redis.
type Store struct {
	conn  sqlx.SqlConn
	cache gocache.Cache
	ttl   cachekeys.TTLSet
}

// New constructs a Store. The cache is optional; a nil cache disables the
// Redis mirror without affecting durability.
func New(conn sqlx.SqlConn, cache gocache.Cache, ttl cachekeys.TTLSet) (*Store, error) {
	if conn == nil {
		return nil, errors.New("store: sql connection is required")
	}
	return &Store{conn: conn, cache: cache, ttl: ttl}, nil
}

// SaveAgentState upserts an agent's durable snapshot and refreshes the cached
// ledger blob.
func (s *Store) SaveAgentState(ctx context.Context, state *scheduler.AgentSnapshot) error {
	if state == nil || state.AgentID == "" {
		return errors.New("store: agent state requires an agent id")
	}
	const stmt = `
		INSERT INTO agent_states (agent_id, ledger, state, wake_interval, cycle_count, next_wake_at, last_loss_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (agent_id) DO UPDATE SET
			ledger = EXCLUDED.ledger,
			state = EXCLUDED.state,
			wake_interval = EXCLUDED.wake_interval,
			cycle_count = EXCLUDED.cycle_count,
			next_wake_at = EXCLUDED.next_wake_at,
			last_loss_at = EXCLUDED.last_loss_at,
			updated_at = EXCLUDED.updated_at`
	_, err := s.conn.ExecCtx(ctx, stmt,
		state.AgentID, state.Ledger, state.State, state.Interval, state.CycleCount,
		nullTime(state.NextWakeAt), nullTime(state.LastLossAt), state.UpdatedAt.UTC())
	if err != nil {
		return fmt.Errorf("store: save agent state %s: %w", state.AgentID, err)
	}
	s.setCache(ctx, cachekeys.LedgerKey(state.AgentID), state.Ledger, cachekeys.LedgerTTL(s.ttl))
	return nil
}

type agentStateRow struct {
	AgentID      string       `db:"agent_id"`
	Ledger       []byte       `db:"ledger"`
	State        string       `db:"state"`
	WakeInterval string       `db:"wake_interval"`
	CycleCount   int64        `db:"cycle_count"`
	NextWakeAt   sql.NullTime `db:"next_wake_at"`
	LastLossAt   sql.NullTime `db:"last_loss_at"`
	UpdatedAt    time.Time    `db:"updated_at"`
}

// LoadAgentState fetches an agent's snapshot, returning
// scheduler.ErrAgentStateNotFound when none has been saved.
func (s *Store) LoadAgentState(ctx context.Context, agentID string) (*scheduler.AgentSnapshot, error) {
	const query = `
		SELECT agent_id, ledger, state, wake_interval, cycle_count, next_wake_at, last_loss_at, updated_at
		FROM agent_states WHERE agent_id = $1`
	var row agentStateRow
	if err := s.conn.QueryRowCtx(ctx, &row, query, agentID); err != nil {
		if errors.Is(err, sqlx.ErrNotFound) {
			return nil, scheduler.ErrAgentStateNotFound
		}
		return nil, fmt.Errorf("store: load agent state %s: %w", agentID, err)
	}
	return &scheduler.AgentSnapshot{
		AgentID:    row.AgentID,
		Ledger:     row.Ledger,
		State:      row.State,
		Interval:   row.WakeInterval,
		CycleCount: row.CycleCount,
		NextWakeAt: row.NextWakeAt.Time,
		LastLossAt: row.LastLossAt.Time,
		UpdatedAt:  row.UpdatedAt,
	}, nil
}

// RecordCycle appends a cycle audit row and caches it as the agent's latest.
func (s *Store) RecordCycle(ctx context.Context, record *journal.CycleRecord) error {
	if record == nil || record.AgentID == "" {
		return errors.New("store: cycle record requires an agent id")
	}
	exits, err := json.Marshal(record.ForcedExits)
	if err != nil {
		return fmt.Errorf("store: marshal forced exits: %w", err)
	}
	const stmt = `
		INSERT INTO cycle_records (agent_id, cycle_number, pair, outcome, action, confidence,
			reasoning, cause, prompt_digest, forced_exits, balance, price, error, executed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	executedAt := record.Timestamp
	if executedAt.IsZero() {
		executedAt = time.Now()
	}
	_, err = s.conn.ExecCtx(ctx, stmt,
		record.AgentID, record.CycleNumber, record.Pair, string(record.Outcome), record.Action,
		record.Confidence, record.Reasoning, record.Cause, record.PromptDigest, exits,
		record.Balance, record.Price, record.Error, executedAt.UTC())
	if err != nil {
		return fmt.Errorf("store: record cycle for %s: %w", record.AgentID, err)
	}
	s.setCache(ctx, cachekeys.CycleLastKey(record.AgentID), record, cachekeys.CycleLastTTL(s.ttl))
	return nil
}

// AppendMetrics adds a performance rollup to the history and caches it as
// the agent's latest.
func (s *Store) AppendMetrics(ctx context.Context, agentID string, metrics analytics.Metrics) error {
	if agentID == "" {
		return errors.New("store: metrics require an agent id")
	}
	const stmt = `
		INSERT INTO metrics_history (agent_id, balance, total_pnl_pct, win_rate, total_trades,
			sharpe_ratio, max_drawdown, computed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	computedAt := metrics.ComputedAt
	if computedAt.IsZero() {
		computedAt = time.Now().UTC()
	}
	_, err := s.conn.ExecCtx(ctx, stmt,
		agentID, metrics.Balance, metrics.TotalPnlPct, metrics.WinRate, metrics.TotalTrades,
		nullFloat(metrics.SharpeRatio), nullFloat(metrics.MaxDrawdown), computedAt)
	if err != nil {
		return fmt.Errorf("store: append metrics for %s: %w", agentID, err)
	}
	s.setCache(ctx, cachekeys.MetricsKey(agentID), metrics, cachekeys.MetricsTTL(s.ttl))
	return nil
}

type metricsRow struct {
	Balance     float64         `db:"balance"`
	TotalPnlPct float64         `db:"total_pnl_pct"`
	WinRate     float64         `db:"win_rate"`
	TotalTrades int             `db:"total_trades"`
	SharpeRatio sql.NullFloat64 `db:"sharpe_ratio"`
	MaxDrawdown sql.NullFloat64 `db:"max_drawdown"`
	ComputedAt  time.Time       `db:"computed_at"`
}

// LatestMetrics returns the newest rollup for an agent, cache first.
func (s *Store) LatestMetrics(ctx context.Context, agentID string) (*analytics.Metrics, error) {
	var cached analytics.Metrics
	if s.getCache(ctx, cachekeys.MetricsKey(agentID), &cached) {
		return &cached, nil
	}

	const query = `
		SELECT balance, total_pnl_pct, win_rate, total_trades, sharpe_ratio, max_drawdown, computed_at
		FROM metrics_history WHERE agent_id = $1
		ORDER BY computed_at DESC LIMIT 1`
	var row metricsRow
	if err := s.conn.QueryRowCtx(ctx, &row, query, agentID); err != nil {
		if errors.Is(err, sqlx.ErrNotFound) {
			return nil, ErrNoMetrics
		}
		return nil, fmt.Errorf("store: latest metrics for %s: %w", agentID, err)
	}
	m := &analytics.Metrics{
		Balance:     row.Balance,
		TotalPnlPct: row.TotalPnlPct,
		WinRate:     row.WinRate,
		TotalTrades: row.TotalTrades,
		ComputedAt:  row.ComputedAt,
	}
	if row.SharpeRatio.Valid {
		v := row.SharpeRatio.Float64
		m.SharpeRatio = &v
	}
	if row.MaxDrawdown.Valid {
		v := row.MaxDrawdown.Float64
		m.MaxDrawdown = &v
	}
	return m, nil
}

// LastCycle returns the cached summary of an agent's most recent cycle.
// It never falls through to Postgres; a cold cache just reports not found.
func (s *Store) LastCycle(ctx context.Context, agentID string) (*journal.CycleRecord, bool) {
	var rec journal.CycleRecord
	if s.getCache(ctx, cachekeys.CycleLastKey(agentID), &rec) {
		return &rec, true
	}
	return nil, false
}

func (s *Store) getCache(ctx context.Context, key string, v interface{}) bool {
	if s.cache == nil {
		return false
	}
	if err := s.cache.GetCtx(ctx, key, v); err != nil {
		if !s.cache.IsNotFound(err) {
			logx.WithContext(ctx).Errorf("store: get cache %s: %v", key, err)
		}
		return false
	}
	return true
}

func (s *Store) setCache(ctx context.Context, key string, v interface{}, ttl time.Duration) {
	if s.cache == nil || ttl <= 0 {
		return
	}
	if err := s.cache.SetWithExpireCtx(ctx, key, v, ttl); err != nil {
		logx.WithContext(ctx).Errorf("store: set cache %s: %v", key, err)
	}
}

func nullTime(t time.Time) interface{} {
	if t.IsZero() {
		return nil
	}
	return t.UTC()
}

func nullFloat(f *float64) interface{} {
	if f == nil {
		return nil
	}
	return *f
}
