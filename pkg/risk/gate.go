// Package risk holds the pure predicates the cycle scheduler consults before
// committing a trade. Nothing here mutates ledger state or suspends; every
// function answers from the arguments alone.
package risk

import (
	"fmt"
	"time"

	"papertrade-api/pkg/paper"
)

// ExitAction is the forced exit a position requires, if any. Stop-loss and
// take-profit cannot both hold at once because they sit on opposite sides of
// the effective entry.
type ExitAction string

const (
	ExitNone       ExitAction = ""
	ExitStopLoss   ExitAction = "stop_loss"
	ExitTakeProfit ExitAction = "take_profit"
)

// EvaluateForcedExit checks an open position against the configured stop-loss
// and take-profit levels at the current quoted price.
func EvaluateForcedExit(cfg Config, pos *paper.Position, currentPrice float64) ExitAction {
	if pos == nil || !pos.IsOpen() || currentPrice <= 0 {
		return ExitNone
	}
	if paper.CheckStopLoss(pos, currentPrice, cfg.StopLossPct) {
		return ExitStopLoss
	}
	if paper.CheckTakeProfit(pos, currentPrice, cfg.TakeProfitPct) {
		return ExitTakeProfit
	}
	return ExitNone
}

// SuppressReason explains why new entries are blocked this cycle. It is a
// deliberate no-op outcome, not an error; existing positions are still managed.
type SuppressReason string

const (
	SuppressNone      SuppressReason = ""
	SuppressDailyLoss SuppressReason = "daily_loss_limit"
	SuppressCooldown  SuppressReason = "cooldown_after_loss"
)

// DailyLossBreached reports whether realized daily loss has crossed the
// configured threshold. dailyPnlPct is negative for a losing day.
func DailyLossBreached(cfg Config, dailyPnlPct float64) bool {
	return dailyPnlPct <= -cfg.MaxDailyLossPct
}

// InCooldown reports whether the last realized loss is still inside the
// configured cooldown window. A zero lastLossAt means no loss has occurred.
func InCooldown(cfg Config, lastLossAt, now time.Time) bool {
	if cfg.CooldownAfterLossMinutes <= 0 || lastLossAt.IsZero() {
		return false
	}
	window := time.Duration(cfg.CooldownAfterLossMinutes) * time.Minute
	return now.Sub(lastLossAt) < window
}

// EntrySuppression combines the daily circuit breaker and cooldown checks.
// The breaker takes precedence when both apply.
func EntrySuppression(cfg Config, dailyPnlPct float64, lastLossAt, now time.Time) SuppressReason {
	if DailyLossBreached(cfg, dailyPnlPct) {
		return SuppressDailyLoss
	}
	if InCooldown(cfg, lastLossAt, now) {
		return SuppressCooldown
	}
	return SuppressNone
}

// CheckEntry validates a proposed entry against sizing and concurrency limits.
// It returns the ledger's sentinel errors so callers can classify rejections
// uniformly.
func CheckEntry(cfg Config, balance, amountUSD float64, openCount int) error {
	if openCount >= cfg.MaxOpenPositions {
		return fmt.Errorf("%w: %d positions already open (max %d)",
			paper.ErrPositionSizeExceeded, openCount, cfg.MaxOpenPositions)
	}
	if balance > 0 && amountUSD/balance > cfg.MaxPositionFraction()+1e-9 {
		return fmt.Errorf("%w: %.2f USD is %.2f%% of balance (max %.2f%%)",
			paper.ErrPositionSizeExceeded, amountUSD, amountUSD/balance*100, cfg.MaxPositionSizePct)
	}
	if amountUSD > balance {
		return fmt.Errorf("%w: need %.2f USD, have %.2f", paper.ErrInsufficientBalance, amountUSD, balance)
	}
	return nil
}

// ClampEntrySize bounds a requested position size (as a percentage of balance)
// to the configured cap and converts it to USD. A non-positive request falls
// back to the cap itself.
func ClampEntrySize(cfg Config, balance, requestedPct float64) float64 {
	pct := requestedPct
	if pct <= 0 || pct > cfg.MaxPositionSizePct {
		pct = cfg.MaxPositionSizePct
	}
	return balance * pct / 100
}
