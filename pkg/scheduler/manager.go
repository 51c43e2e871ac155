package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/zeromicro/go-zero/core/logx"

	"papertrade-api/pkg/executor"
	"papertrade-api/pkg/journal"
	"papertrade-api/pkg/market"
	"papertrade-api/pkg/paper"
)

// Manager owns the agent registry and the scheduling loop. One oracle is
// shared across agents; persona and ledger context are passed per decision.
type Manager struct {
	mu sync.RWMutex

	config *Config

	agents    map[string]*Agent
	providers map[string]market.Provider

	oracle  executor.Oracle
	store   Store
	journal *journal.Writer

	nowFn func() time.Time

	stopChan chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// ManagerOption configures optional manager dependencies.
type ManagerOption func(*Manager)

// WithStore attaches a persistence backend. Without it the manager runs
// purely in memory.
func WithStore(s Store) ManagerOption {
	return func(m *Manager) {
		if s != nil {
			m.store = s
		}
	}
}

// WithJournal attaches a cycle journal writer.
func WithJournal(w *journal.Writer) ManagerOption {
	return func(m *Manager) { m.journal = w }
}

// WithManagerClock overrides the time source (tests).
func WithManagerClock(now func() time.Time) ManagerOption {
	return func(m *Manager) {
		if now != nil {
			m.nowFn = now
		}
	}
}

// NewManager constructs a Manager with injected dependencies. Agents declared
// in the config are not registered automatically; call RegisterAgent so the
// caller controls restore ordering and error handling.
func NewManager(cfg *Config, oracle executor.Oracle, providers map[string]market.Provider, opts ...ManagerOption) (*Manager, error) {
	if cfg == nil {
		return nil, errors.New("scheduler: config is required")
	}
	if oracle == nil {
		return nil, errors.New("scheduler: oracle is required")
	}
	m := &Manager{
		config:    cfg,
		agents:    make(map[string]*Agent),
		providers: make(map[string]market.Provider, len(providers)),
		oracle:    oracle,
		store:     newNoopStore(),
		nowFn:     time.Now,
		stopChan:  make(chan struct{}),
	}
	for name, p := range providers {
		m.providers[name] = p
	}
	for _, opt := range opts {
		opt(m)
	}
	return m, nil
}

// RegisterAgent creates an Agent from its declaration, restoring ledger and
// schedule state from the store when a snapshot exists.
func (m *Manager) RegisterAgent(ctx context.Context, cfg AgentConfig) (*Agent, error) {
	if err := (&Config{Agents: []AgentConfig{cfg}}).Validate(); err != nil {
		return nil, err
	}

	provider, err := m.resolveProvider(cfg.MarketProvider)
	if err != nil {
		return nil, fmt.Errorf("scheduler: agent %s: %w", cfg.ID, err)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.agents[cfg.ID]; exists {
		return nil, fmt.Errorf("scheduler: agent %s already registered", cfg.ID)
	}

	now := m.nowFn().UTC()
	agent := &Agent{
		ID:           cfg.ID,
		Name:         cfg.Name,
		Pair:         cfg.Pair,
		Venue:        cfg.Venue,
		Persona:      cfg.Persona,
		Provider:     provider,
		ProviderName: cfg.MarketProvider,
		Risk:         cfg.Risk,
		Interval:     cfg.Interval,
		state:        AgentStateStopped,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	snapshot, err := m.store.LoadAgentState(ctx, cfg.ID)
	switch {
	case err == nil && snapshot != nil:
		ledger, derr := paper.Deserialize(snapshot.Ledger)
		if derr != nil {
			return nil, fmt.Errorf("scheduler: agent %s: restore ledger: %w", cfg.ID, derr)
		}
		agent.ledger = ledger
		agent.restore(AgentState(snapshot.State), snapshot.CycleCount, snapshot.NextWakeAt, snapshot.LastLossAt)
		logx.WithContext(ctx).Infof("scheduler: agent %s restored, cycles=%d balance=%.2f",
			cfg.ID, snapshot.CycleCount, ledger.Balance())
	case errors.Is(err, ErrAgentStateNotFound):
		ledger, nerr := paper.NewEngine(cfg.ID, cfg.InitialBalance, cfg.SlippageFraction())
		if nerr != nil {
			return nil, fmt.Errorf("scheduler: agent %s: %w", cfg.ID, nerr)
		}
		agent.ledger = ledger
	default:
		return nil, fmt.Errorf("scheduler: agent %s: load state: %w", cfg.ID, err)
	}

	m.agents[cfg.ID] = agent
	if cfg.AutoStart {
		agent.Start()
	}
	return agent, nil
}

// RegisterConfiguredAgents registers every agent declared in the config,
// in stable ID order.
func (m *Manager) RegisterConfiguredAgents(ctx context.Context) error {
	for _, id := range m.config.AgentIDs() {
		cfg, _ := m.config.AgentByID(id)
		if _, err := m.RegisterAgent(ctx, cfg); err != nil {
			return err
		}
	}
	return nil
}

// UnregisterAgent stops and removes an agent from the registry. Its persisted
// state is left intact.
func (m *Manager) UnregisterAgent(agentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	agent, ok := m.agents[agentID]
	if !ok {
		return fmt.Errorf("scheduler: agent %s not found", agentID)
	}
	agent.Stop()
	delete(m.agents, agentID)
	return nil
}

// Agent looks up a registered agent by ID.
func (m *Manager) Agent(agentID string) (*Agent, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	agent, ok := m.agents[agentID]
	return agent, ok
}

// ActiveAgents returns a stable-ordered slice of running agents.
func (m *Manager) ActiveAgents() []*Agent {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]*Agent, 0, len(m.agents))
	for _, a := range m.agents {
		if a.IsActive() {
			out = append(out, a)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Run executes the scheduling loop until the context is cancelled or Stop is
// called. Due agents run concurrently with each other but never with
// themselves.
func (m *Manager) Run(ctx context.Context) error {
	tick := m.config.TickInterval
	if tick <= 0 {
		tick = time.Second
	}
	ticker := time.NewTicker(tick)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.wg.Wait()
			return ctx.Err()
		case <-m.stopChan:
			m.wg.Wait()
			return nil
		case <-ticker.C:
			now := m.nowFn().UTC()
			for _, agent := range m.ActiveAgents() {
				if !agent.Due(now) {
					continue
				}
				m.wg.Add(1)
				go func(a *Agent) {
					defer m.wg.Done()
					m.RunCycle(ctx, a)
				}(agent)
			}
		}
	}
}

// Stop signals the loop to exit and waits for in-flight cycles to finish and
// persist.
func (m *Manager) Stop() {
	m.stopOnce.Do(func() { close(m.stopChan) })
	m.wg.Wait()
}

func (m *Manager) resolveProvider(name string) (market.Provider, error) {
	if name == "" {
		if len(m.providers) == 1 {
			for _, only := range m.providers {
				return only, nil
			}
		}
		return nil, errors.New("market_provider is required when several providers are configured")
	}
	p, ok := m.providers[name]
	if !ok {
		return nil, fmt.Errorf("unknown market provider %q", name)
	}
	return p, nil
}
