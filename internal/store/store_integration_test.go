//go:build integration
// +build integration

package store_test

import (
	"context"
	"os"
	"testing"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zeromicro/go-zero/core/stores/sqlx"

	cachekeys "papertrade-api/internal/cache"
	"papertrade-api/internal/config"
	"papertrade-api/internal/store"
	"papertrade-api/pkg/analytics"
	"papertrade-api/pkg/journal"
	"papertrade-api/pkg/paper"
	"papertrade-api/pkg/scheduler"
)

func newIntegrationStore(t *testing.T) *store.Store {
	t.Helper()
	dsn := os.Getenv("PAPERTRADE_PG_DSN")
	if dsn == "" {
		t.Skip("Postgres not configured (PAPERTRADE_PG_DSN empty)")
	}
	conn := sqlx.NewSqlConn("pgx", dsn)
	st, err := store.New(conn, nil, cachekeys.NewTTLSet(config.CacheTTL{}))
	require.NoError(t, err, "store construction must succeed")

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	require.NoError(t, st.EnsureSchema(ctx), "schema migration must succeed")
	return st
}

func TestAgentStateRoundTrip(t *testing.T) {
	st := newIntegrationStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	engine, err := paper.NewEngine("it-agent", 10000, 0.1)
	require.NoError(t, err, "ledger construction must succeed")
	blob, err := engine.Serialize()
	require.NoError(t, err, "ledger serialization must succeed")

	now := time.Now().UTC().Truncate(time.Microsecond)
	state := &scheduler.AgentSnapshot{
		AgentID:    "it-agent",
		Ledger:     blob,
		State:      "running",
		Interval:   "1h",
		CycleCount: 7,
		NextWakeAt: now.Add(time.Hour),
		UpdatedAt:  now,
	}
	require.NoError(t, st.SaveAgentState(ctx, state), "save must succeed")

	got, err := st.LoadAgentState(ctx, "it-agent")
	require.NoError(t, err, "load must succeed")
	assert.Equal(t, state.Ledger, got.Ledger, "ledger blob should round-trip")
	assert.Equal(t, int64(7), got.CycleCount, "cycle count should round-trip")
	assert.True(t, got.LastLossAt.IsZero(), "null last loss should scan as zero time")

	restored, err := paper.Deserialize(got.Ledger)
	require.NoError(t, err, "ledger blob should deserialize")
	assert.Equal(t, 10000.0, restored.Balance(), "balance should survive the round-trip")

	_, err = st.LoadAgentState(ctx, "no-such-agent")
	assert.ErrorIs(t, err, scheduler.ErrAgentStateNotFound, "missing agent should map to the sentinel")
}

func TestCycleAndMetricsPersistence(t *testing.T) {
	st := newIntegrationStore(t)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	rec := &journal.CycleRecord{
		Timestamp:   time.Now().UTC(),
		AgentID:     "it-agent",
		CycleNumber: 1,
		Pair:        "BTC-USD",
		Outcome:     journal.OutcomeHold,
		Action:      "hold",
		Balance:     10000,
		Price:       65000,
	}
	assert.NoError(t, st.RecordCycle(ctx, rec), "cycle insert must succeed")

	sharpe := 0.42
	m := analytics.Metrics{
		Balance:     10100,
		TotalPnlPct: 1,
		WinRate:     60,
		TotalTrades: 5,
		SharpeRatio: &sharpe,
		ComputedAt:  time.Now().UTC(),
	}
	require.NoError(t, st.AppendMetrics(ctx, "it-agent", m), "metrics insert must succeed")

	latest, err := st.LatestMetrics(ctx, "it-agent")
	require.NoError(t, err, "latest metrics must resolve")
	assert.Equal(t, 10100.0, latest.Balance, "latest metrics should match the append")
	require.NotNil(t, latest.SharpeRatio, "sharpe should persist")
	assert.InDelta(t, 0.42, *latest.SharpeRatio, 1e-9, "sharpe value should round-trip")
}
