package risk

import (
	"errors"
	"fmt"
)

// Config carries the risk limits an agent's configuration owns. All predicates
// in this package consume it read-only.
type Config struct {
	// MaxPositionSizePct caps a single entry as a percentage of balance.
	MaxPositionSizePct float64 `yaml:"max_position_size_pct" json:"max_position_size_pct,optional"`
	// MaxOpenPositions caps concurrent open positions.
	MaxOpenPositions int `yaml:"max_open_positions" json:"max_open_positions,optional"`
	// StopLossPct forces a stop-out once the move against effective entry reaches this size.
	StopLossPct float64 `yaml:"stop_loss_pct" json:"stop_loss_pct,optional"`
	// TakeProfitPct forces a close once the favourable move reaches this size.
	TakeProfitPct float64 `yaml:"take_profit_pct" json:"take_profit_pct,optional"`
	// MaxDailyLossPct trips the daily circuit breaker for new entries.
	MaxDailyLossPct float64 `yaml:"max_daily_loss_pct" json:"max_daily_loss_pct,optional"`
	// CooldownAfterLossMinutes suppresses new entries after a realized loss.
	CooldownAfterLossMinutes int `yaml:"cooldown_after_loss_minutes" json:"cooldown_after_loss_minutes,optional"`
}

// ApplyDefaults fills unset limits with conservative values.
func (c *Config) ApplyDefaults() {
	if c.MaxPositionSizePct <= 0 {
		c.MaxPositionSizePct = 20
	}
	if c.MaxOpenPositions <= 0 {
		c.MaxOpenPositions = 3
	}
	if c.StopLossPct <= 0 {
		c.StopLossPct = 5
	}
	if c.TakeProfitPct <= 0 {
		c.TakeProfitPct = 10
	}
	if c.MaxDailyLossPct <= 0 {
		c.MaxDailyLossPct = 10
	}
	if c.CooldownAfterLossMinutes < 0 {
		c.CooldownAfterLossMinutes = 0
	}
}

// Validate rejects nonsensical limits.
func (c *Config) Validate() error {
	if c.MaxPositionSizePct <= 0 || c.MaxPositionSizePct > 100 {
		return fmt.Errorf("risk config: max_position_size_pct must be in (0,100], got %.2f", c.MaxPositionSizePct)
	}
	if c.MaxOpenPositions <= 0 {
		return errors.New("risk config: max_open_positions must be positive")
	}
	if c.StopLossPct <= 0 {
		return errors.New("risk config: stop_loss_pct must be positive")
	}
	if c.TakeProfitPct <= 0 {
		return errors.New("risk config: take_profit_pct must be positive")
	}
	if c.MaxDailyLossPct <= 0 {
		return errors.New("risk config: max_daily_loss_pct must be positive")
	}
	if c.CooldownAfterLossMinutes < 0 {
		return errors.New("risk config: cooldown_after_loss_minutes cannot be negative")
	}
	return nil
}

// MaxPositionFraction converts the percentage cap into the fraction consumed
// by the ledger's sizing check.
func (c Config) MaxPositionFraction() float64 {
	return c.MaxPositionSizePct / 100
}
