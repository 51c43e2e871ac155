package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"papertrade-api/pkg/executor"
	"papertrade-api/pkg/market"
)

func TestNewManagerValidation(t *testing.T) {
	_, err := NewManager(nil, &scriptedOracle{}, nil)
	assert.Error(t, err, "nil config must be rejected")

	_, err = NewManager(&Config{}, nil, nil)
	assert.Error(t, err, "nil oracle must be rejected")
}

func TestRegisterAgent(t *testing.T) {
	cfg := testAgentConfig()
	m, agent, _ := newTestManager(t, &scriptedOracle{}, newMemStore(), cfg)

	assert.Equal(t, AgentStateRunning, agent.State(), "auto_start should start the agent")
	assert.Equal(t, 10000.0, agent.Ledger().Balance(), "fresh agent should start at initial balance")

	_, err := m.RegisterAgent(context.Background(), cfg)
	require.Error(t, err, "duplicate registration must fail")
	assert.Contains(t, err.Error(), "already registered", "error should name the conflict")

	cfg.ID = "beta"
	cfg.MarketProvider = "ghost"
	_, err = m.RegisterAgent(context.Background(), cfg)
	require.Error(t, err, "unknown provider must fail registration")
	assert.Contains(t, err.Error(), "unknown market provider", "error should name the provider")
}

func TestRegisterAgentRestoresState(t *testing.T) {
	store := newMemStore()
	oracle := &scriptedOracle{queue: []*executor.Decision{buyDecision(0.8, 10)}}
	m, agent, _ := newTestManager(t, oracle, store, testAgentConfig())
	m.RunCycle(context.Background(), agent)
	balance := agent.Ledger().Balance()

	// Fresh manager over the same store simulates a process restart.
	provider := market.NewStaticProvider()
	provider.SetQuote("BTC-USD", 100, 0)
	m2, err := NewManager(
		&Config{TickInterval: time.Second, AnalyticsEveryN: 6, Agents: []AgentConfig{testAgentConfig()}},
		&scriptedOracle{},
		map[string]market.Provider{"static": provider},
		WithStore(store),
	)
	require.NoError(t, err, "restart manager must construct")

	restored, err := m2.RegisterAgent(context.Background(), testAgentConfig())
	require.NoError(t, err, "registration with a snapshot must restore")

	assert.Equal(t, balance, restored.Ledger().Balance(), "balance should survive restart")
	assert.Len(t, restored.Ledger().OpenPositions(), 1, "open positions should survive restart")
	assert.Equal(t, int64(1), restored.CycleCount(), "cycle numbering should continue")
	assert.Equal(t, AgentStateRunning, restored.State(), "running state should be restored")
}

func TestRegisterConfiguredAgents(t *testing.T) {
	provider := market.NewStaticProvider()
	provider.SetQuote("BTC-USD", 100, 0)
	provider.SetQuote("ETH-USD", 2000, 0)

	a := testAgentConfig()
	b := testAgentConfig()
	b.ID = "beta"
	b.Pair = "ETH-USD"
	b.AutoStart = false

	m, err := NewManager(
		&Config{TickInterval: time.Second, AnalyticsEveryN: 6, Agents: []AgentConfig{b, a}},
		&scriptedOracle{},
		map[string]market.Provider{"static": provider},
	)
	require.NoError(t, err, "manager must construct")
	require.NoError(t, m.RegisterConfiguredAgents(context.Background()), "all declared agents should register")

	active := m.ActiveAgents()
	require.Len(t, active, 1, "only auto-started agents are active")
	assert.Equal(t, "alpha", active[0].ID, "active list should be stable-ordered")

	beta, ok := m.Agent("beta")
	require.True(t, ok, "registered agent should resolve")
	beta.Start()
	active = m.ActiveAgents()
	require.Len(t, active, 2, "started agent should join the active set")
	assert.Equal(t, []string{"alpha", "beta"}, []string{active[0].ID, active[1].ID}, "order should be by id")
}

func TestUnregisterAgent(t *testing.T) {
	m, agent, _ := newTestManager(t, &scriptedOracle{}, newMemStore(), testAgentConfig())

	require.NoError(t, m.UnregisterAgent("alpha"), "unregister should succeed")
	assert.Equal(t, AgentStateStopped, agent.State(), "unregister should stop the agent")
	_, ok := m.Agent("alpha")
	assert.False(t, ok, "unregistered agent should be gone")
	assert.Error(t, m.UnregisterAgent("alpha"), "double unregister should fail")
}

func TestAgentLifecycle(t *testing.T) {
	_, agent, _ := newTestManager(t, &scriptedOracle{}, newMemStore(), testAgentConfig())
	now := time.Now().UTC()

	assert.True(t, agent.Due(now), "running agent with no wake time is due immediately")

	agent.Pause()
	assert.Equal(t, AgentStatePaused, agent.State(), "pause should take effect")
	assert.False(t, agent.Due(now), "paused agent is never due")

	agent.Resume()
	assert.True(t, agent.IsActive(), "resume should reactivate")

	agent.Stop()
	assert.Equal(t, AgentStateStopped, agent.State(), "stop should take effect")
	agent.Pause()
	assert.Equal(t, AgentStateStopped, agent.State(), "pausing a stopped agent is a no-op")
}

func TestAgentRescheduleAfterCycle(t *testing.T) {
	m, agent, _ := newTestManager(t, &scriptedOracle{}, newMemStore(), testAgentConfig())

	m.RunCycle(context.Background(), agent)
	next := agent.NextWakeAt()
	require.False(t, next.IsZero(), "cycle should schedule the next wake")
	assert.False(t, agent.Due(time.Now().UTC()), "agent should not be due before the next wake")
	assert.True(t, agent.Due(next.Add(time.Second)), "agent should be due after the interval elapses")
}

func TestManagerRunLoop(t *testing.T) {
	store := newMemStore()
	oracle := &scriptedOracle{}
	m, _, _ := newTestManager(t, oracle, store, testAgentConfig())
	m.config.TickInterval = 5 * time.Millisecond

	done := make(chan error, 1)
	go func() { done <- m.Run(context.Background()) }()

	deadline := time.After(2 * time.Second)
	for store.cycleCount() == 0 {
		select {
		case <-deadline:
			t.Fatal("loop never produced a cycle")
		case <-time.After(5 * time.Millisecond):
		}
	}

	m.Stop()
	require.NoError(t, <-done, "Stop should end the loop cleanly")
	assert.GreaterOrEqual(t, store.cycleCount(), 1, "at least one cycle should have run")
}

func TestManagerRunContextCancel(t *testing.T) {
	m, _, _ := newTestManager(t, &scriptedOracle{}, newMemStore(), testAgentConfig())
	m.config.TickInterval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- m.Run(ctx) }()
	cancel()

	err := <-done
	assert.ErrorIs(t, err, context.Canceled, "cancellation should propagate out of Run")
}
