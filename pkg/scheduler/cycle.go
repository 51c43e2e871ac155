package scheduler

import (
	"context"
	"fmt"

	"github.com/zeromicro/go-zero/core/logx"

	"papertrade-api/pkg/analytics"
	"papertrade-api/pkg/executor"
	"papertrade-api/pkg/journal"
	"papertrade-api/pkg/llm"
	"papertrade-api/pkg/market"
	"papertrade-api/pkg/paper"
	"papertrade-api/pkg/risk"
)

// RunCycle executes one decision cycle for an agent: snapshot the market,
// apply forced exits, evaluate entry suppression, consult the oracle, apply
// the intent through the risk gate, then persist and journal the outcome.
// It returns the recorded cycle, or nil when a cycle is already in flight.
func (m *Manager) RunCycle(ctx context.Context, agent *Agent) *journal.CycleRecord {
	cycleNum, ok := agent.beginCycle()
	if !ok {
		return nil
	}
	defer func() { agent.endCycle(m.nowFn().UTC()) }()

	now := m.nowFn().UTC()
	ledger := agent.Ledger()
	rec := &journal.CycleRecord{
		Timestamp:   now,
		AgentID:     agent.ID,
		CycleNumber: cycleNum,
		Pair:        agent.Pair,
	}

	snap, err := agent.Provider.Snapshot(ctx, agent.Pair)
	if err != nil {
		rec.Outcome = journal.OutcomeCycleError
		rec.Error = fmt.Sprintf("market snapshot: %v", err)
		m.finishCycle(ctx, agent, rec)
		return rec
	}
	rec.Price = snap.Price

	rec.ForcedExits = m.applyForcedExits(agent, snap.Price)

	suppression := risk.EntrySuppression(agent.Risk, ledger.DailyPnlPct(), agent.LastLossAt(), now)
	openPositions := ledger.OpenPositions()

	if suppression != risk.SuppressNone && len(openPositions) == 0 {
		// Nothing to manage and no entries allowed; skip the oracle call.
		rec.Outcome = journal.OutcomeSuppressed
		rec.Cause = string(suppression)
		m.settleOutcome(rec)
		m.finishCycle(ctx, agent, rec)
		return rec
	}

	decision, err := m.oracle.Decide(ctx, m.buildDecisionInput(agent, snap, string(suppression), cycleNum))
	if err != nil || decision == nil {
		rec.Outcome = journal.OutcomeOracleFailure
		if err != nil {
			rec.Cause = err.Error()
		} else {
			rec.Cause = "oracle returned no decision"
		}
		m.settleOutcome(rec)
		m.finishCycle(ctx, agent, rec)
		return rec
	}

	rec.Action = string(decision.Intent.Action)
	rec.Confidence = decision.Intent.Confidence
	rec.Reasoning = decision.Intent.Reasoning
	if decision.Prompt != "" {
		rec.PromptDigest = llm.DigestString(decision.Prompt)
	}

	outcome, cause := m.applyDecision(agent, snap, decision, suppression)
	rec.Outcome = outcome
	rec.Cause = cause

	m.settleOutcome(rec)
	m.finishCycle(ctx, agent, rec)
	return rec
}

// applyForcedExits closes every open position whose stop-loss or take-profit
// threshold is breached at the current price.
func (m *Manager) applyForcedExits(agent *Agent, price float64) []journal.ForcedExit {
	ledger := agent.Ledger()
	var exits []journal.ForcedExit
	for _, pos := range ledger.OpenPositions() {
		action := risk.EvaluateForcedExit(agent.Risk, pos, price)
		if action == risk.ExitNone {
			continue
		}

		var (
			closed *paper.Position
			err    error
		)
		switch action {
		case risk.ExitStopLoss:
			closed, err = ledger.StopOutPosition(pos.ID, price)
		case risk.ExitTakeProfit:
			closed, err = ledger.ClosePosition(pos.ID, paper.CloseParams{
				Price:     price,
				Reasoning: "take profit threshold reached",
			})
		}
		if err != nil {
			logx.Errorf("scheduler: agent %s: forced exit %s for %s: %v", agent.ID, action, pos.ID, err)
			continue
		}

		exits = append(exits, journal.ForcedExit{
			PositionID: closed.ID,
			Pair:       closed.Pair,
			Kind:       string(action),
			Price:      price,
			PnlPct:     closed.PnlPct,
		})
		if closed.PnlUSD < 0 {
			agent.noteLoss(closed.ClosedAt)
		}
	}
	return exits
}

// applyDecision routes a validated intent through the risk gate and into the
// ledger. Suppression coerces entry intents: an agent under a circuit breaker
// or cooldown may still hold or close, never open.
func (m *Manager) applyDecision(agent *Agent, snap *market.Snapshot, decision *executor.Decision, suppression risk.SuppressReason) (journal.Outcome, string) {
	if decision.Fallback {
		return journal.OutcomeOracleFailure, decision.Cause
	}

	ledger := agent.Ledger()
	intent := decision.Intent

	switch intent.Action {
	case executor.ActionHold:
		return journal.OutcomeHold, ""

	case executor.ActionClose:
		target := m.pickCloseTarget(ledger, intent.TargetPair)
		if target == nil {
			return journal.OutcomeHold, "no open position to close"
		}
		closed, err := ledger.ClosePosition(target.ID, paper.CloseParams{
			Price:      snap.Price,
			Confidence: intent.Confidence,
			Reasoning:  intent.Reasoning,
		})
		if err != nil {
			return journal.OutcomeRejected, err.Error()
		}
		if closed.PnlUSD < 0 {
			agent.noteLoss(closed.ClosedAt)
		}
		return journal.OutcomeClosed, ""

	case executor.ActionBuy, executor.ActionSell:
		if suppression != risk.SuppressNone {
			return journal.OutcomeSuppressed, string(suppression)
		}
		balance := ledger.Balance()
		amountUSD := risk.ClampEntrySize(agent.Risk, balance, intent.SizePct)
		if err := risk.CheckEntry(agent.Risk, balance, amountUSD, len(ledger.OpenPositions())); err != nil {
			return journal.OutcomeRejected, err.Error()
		}
		side := paper.SideLong
		if intent.Action == executor.ActionSell {
			side = paper.SideShort
		}
		pair := intent.TargetPair
		if pair == "" {
			pair = agent.Pair
		}
		_, err := ledger.OpenPosition(paper.OpenParams{
			Pair:       pair,
			Venue:      agent.Venue,
			Side:       side,
			Price:      snap.Price,
			AmountUSD:  amountUSD,
			Confidence: intent.Confidence,
			Reasoning:  intent.Reasoning,
			Strategy:   agent.Name,
		})
		if err != nil {
			return journal.OutcomeRejected, err.Error()
		}
		return journal.OutcomeOpened, ""
	}

	return journal.OutcomeOracleFailure, fmt.Sprintf("unsupported action %q", intent.Action)
}

// pickCloseTarget resolves which open position a close intent refers to:
// the named pair when one matches, otherwise the oldest open position.
func (m *Manager) pickCloseTarget(ledger *paper.Engine, pair string) *paper.Position {
	open := ledger.OpenPositions()
	if len(open) == 0 {
		return nil
	}
	if pair != "" {
		for _, pos := range open {
			if pos.Pair == pair {
				return pos
			}
		}
	}
	return open[0]
}

// settleOutcome promotes forced exits to the cycle outcome when the decision
// phase itself produced no trade.
func (m *Manager) settleOutcome(rec *journal.CycleRecord) {
	if len(rec.ForcedExits) == 0 {
		return
	}
	if rec.Outcome == journal.OutcomeHold || rec.Outcome == journal.OutcomeSuppressed {
		rec.Outcome = journal.OutcomeForcedExit
	}
}

// runAnalytics recomputes the metrics rollup on the configured cadence.
// A failed append is logged but never fails the cycle.
func (m *Manager) runAnalytics(ctx context.Context, agent *Agent, cycleNum int64) {
	everyN := int64(m.config.AnalyticsEveryN)
	if everyN <= 0 || cycleNum%everyN != 0 {
		return
	}
	ledger := agent.Ledger()
	metrics := analytics.ComputeMetrics(ledger.ClosedPositions(), ledger.InitialBalance(), ledger.Balance())
	logStoreError(ctx, agent.ID, "append metrics", m.store.AppendMetrics(ctx, agent.ID, metrics))
}

// finishCycle runs cadence analytics, persists the ledger snapshot and emits
// the audit record. A failed state save downgrades the outcome to cycle_error;
// the in-memory ledger stands and the next cycle retries the save.
func (m *Manager) finishCycle(ctx context.Context, agent *Agent, rec *journal.CycleRecord) {
	// Shutdown cancels the run context while final cycles are still in
	// flight; persistence must outlive it so committed trades reach the
	// durable snapshot.
	ctx = context.WithoutCancel(ctx)

	rec.Balance = agent.Ledger().Balance()
	m.runAnalytics(ctx, agent, rec.CycleNumber)

	if err := m.persistAgent(ctx, agent); err != nil {
		logStoreError(ctx, agent.ID, "save state", err)
		rec.Outcome = journal.OutcomeCycleError
		rec.Error = err.Error()
	}

	if m.journal != nil {
		if _, err := m.journal.WriteCycle(rec); err != nil {
			logx.WithContext(ctx).Errorf("scheduler: agent %s: write journal: %v", agent.ID, err)
		}
	}
	logStoreError(ctx, agent.ID, "record cycle", m.store.RecordCycle(ctx, rec))
}

func (m *Manager) persistAgent(ctx context.Context, agent *Agent) error {
	blob, err := agent.Ledger().Serialize()
	if err != nil {
		return fmt.Errorf("serialize ledger: %w", err)
	}
	return m.store.SaveAgentState(ctx, &AgentSnapshot{
		AgentID:    agent.ID,
		Ledger:     blob,
		State:      string(agent.State()),
		Interval:   string(agent.Interval),
		CycleCount: agent.CycleCount(),
		NextWakeAt: agent.NextWakeAt(),
		LastLossAt: agent.LastLossAt(),
		UpdatedAt:  m.nowFn().UTC(),
	})
}

func (m *Manager) buildDecisionInput(agent *Agent, snap *market.Snapshot, suppression string, cycleNum int64) *executor.Context {
	ledger := agent.Ledger()
	open := ledger.OpenPositions()
	views := make([]executor.PositionView, 0, len(open))
	for _, pos := range open {
		views = append(views, executor.PositionView{
			Pair:             pos.Pair,
			Side:             string(pos.Side),
			EntryPrice:       pos.EntryPrice,
			AmountUSD:        pos.AmountUSD,
			UnrealizedPnlPct: pos.UnrealizedPnlPct(snap.Price),
			OpenedAt:         pos.OpenedAt,
		})
	}
	return &executor.Context{
		AgentID: agent.ID,
		Pair:    agent.Pair,
		Persona: agent.Persona,
		Ledger: executor.LedgerView{
			Balance:        ledger.Balance(),
			InitialBalance: ledger.InitialBalance(),
			TotalPnlPct:    ledger.TotalPnlPct(),
			DailyPnlPct:    ledger.DailyPnlPct(),
			WinRate:        ledger.WinRate(),
			TotalTrades:    len(ledger.ClosedPositions()),
			OpenPositions:  views,
		},
		Market:      snap,
		Suppression: suppression,
		CycleCount:  cycleNum,
	}
}
