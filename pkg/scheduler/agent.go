package scheduler

import (
	"sync"
	"time"

	"papertrade-api/pkg/market"
	"papertrade-api/pkg/paper"
	"papertrade-api/pkg/risk"
)

// AgentState captures an agent's lifecycle state.
type AgentState string

const (
	AgentStateRunning AgentState = "running"
	AgentStatePaused  AgentState = "paused"
	AgentStateStopped AgentState = "stopped"
)

// Agent is a single paper-trading strategy instance bound to a market
// provider and a ledger. All cycle work for one agent happens on a single
// goroutine at a time; the inFlight guard enforces that even when the manager
// loop ticks faster than a cycle completes.
type Agent struct {
	mu sync.RWMutex

	ID      string
	Name    string
	Pair    string
	Venue   string
	Persona string

	Provider     market.Provider
	ProviderName string
	Risk         risk.Config
	Interval     Interval

	ledger *paper.Engine

	state      AgentState
	cycleCount int64
	nextWakeAt time.Time
	lastLossAt time.Time
	inFlight   bool

	CreatedAt time.Time
	UpdatedAt time.Time
}

// Start transitions the agent into running state. The first cycle is due
// immediately; subsequent wakes follow the interval.
func (a *Agent) Start() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == AgentStateRunning {
		return
	}
	a.state = AgentStateRunning
	a.UpdatedAt = time.Now().UTC()
}

// Pause suspends scheduling without discarding state. Open positions stay
// open and are not monitored until Resume.
func (a *Agent) Pause() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.state == AgentStateStopped {
		return
	}
	a.state = AgentStatePaused
	a.UpdatedAt = time.Now().UTC()
}

// Resume sets the state back to running.
func (a *Agent) Resume() { a.Start() }

// Stop transitions the agent into stopped state.
func (a *Agent) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.state = AgentStateStopped
	a.UpdatedAt = time.Now().UTC()
}

// State returns the current lifecycle state.
func (a *Agent) State() AgentState {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state
}

// IsActive reports whether the agent participates in scheduling.
func (a *Agent) IsActive() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.state == AgentStateRunning
}

// Due reports whether the agent's next wake time has arrived.
func (a *Agent) Due(now time.Time) bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	if a.state != AgentStateRunning || a.inFlight {
		return false
	}
	return a.nextWakeAt.IsZero() || !now.Before(a.nextWakeAt)
}

// Ledger exposes the agent's position ledger.
func (a *Agent) Ledger() *paper.Engine {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.ledger
}

// CycleCount returns the number of cycles started so far.
func (a *Agent) CycleCount() int64 {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.cycleCount
}

// NextWakeAt returns the scheduled time of the next cycle.
func (a *Agent) NextWakeAt() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.nextWakeAt
}

// LastLossAt returns the close time of the most recent losing trade, zero
// when no loss has been realized. It feeds the cooldown suppression window.
func (a *Agent) LastLossAt() time.Time {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.lastLossAt
}

// beginCycle claims the in-flight slot and advances the cycle counter.
// It returns the new cycle number, or false when a cycle is already running.
func (a *Agent) beginCycle() (int64, bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.inFlight || a.state != AgentStateRunning {
		return 0, false
	}
	a.inFlight = true
	a.cycleCount++
	return a.cycleCount, true
}

// endCycle releases the in-flight slot and schedules the next wake.
func (a *Agent) endCycle(now time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.inFlight = false
	a.nextWakeAt = now.Add(a.Interval.Duration())
	a.UpdatedAt = now
}

// noteLoss records a realized loss timestamp for cooldown bookkeeping.
func (a *Agent) noteLoss(at time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if at.After(a.lastLossAt) {
		a.lastLossAt = at
	}
}

// restore seeds schedule bookkeeping from a persisted snapshot.
func (a *Agent) restore(state AgentState, cycles int64, nextWakeAt, lastLossAt time.Time) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if state != "" {
		a.state = state
	}
	a.cycleCount = cycles
	a.nextWakeAt = nextWakeAt
	a.lastLossAt = lastLossAt
}
