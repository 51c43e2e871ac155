// Package analytics computes aggregate performance metrics from a closed
// position history. Everything here is pure; the scheduler decides when to
// call it and where the resulting snapshot is appended.
package analytics

import (
	"math"
	"time"

	"papertrade-api/pkg/paper"
)

const (
	// minTradesForSharpe guards against a misleadingly precise ratio on noise.
	minTradesForSharpe = 5
	// minTradesForDrawdown is the smallest series with a peak-to-trough drop.
	minTradesForDrawdown = 2
)

// Metrics is a point-in-time performance rollup. Sharpe and drawdown are nil
// until the history is large enough to support them; the other fields are
// always populated. A snapshot is append-only once emitted.
type Metrics struct {
	Balance     float64  `json:"balance" msgpack:"balance"`
	TotalPnlPct float64  `json:"total_pnl_pct" msgpack:"total_pnl_pct"`
	WinRate     float64  `json:"win_rate" msgpack:"win_rate"`
	TotalTrades int      `json:"total_trades" msgpack:"total_trades"`
	SharpeRatio *float64 `json:"sharpe_ratio,omitempty" msgpack:"sharpe_ratio,omitempty"`
	MaxDrawdown *float64 `json:"max_drawdown,omitempty" msgpack:"max_drawdown,omitempty"`

	ComputedAt time.Time `json:"computed_at" msgpack:"computed_at"`
}

// ComputeMetrics derives the rollup from terminal positions in chronological
// order plus the balance pair. Each field is independent: a short history
// still yields real winRate/totalPnlPct with nil Sharpe and drawdown.
func ComputeMetrics(closed []*paper.Position, initialBalance, currentBalance float64) Metrics {
	m := Metrics{
		Balance:     currentBalance,
		TotalTrades: len(closed),
		ComputedAt:  time.Now().UTC(),
	}
	if initialBalance > 0 {
		m.TotalPnlPct = (currentBalance - initialBalance) / initialBalance * 100
	}
	if len(closed) == 0 {
		return m
	}

	wins := 0
	pnls := make([]float64, len(closed))
	for i, p := range closed {
		pnls[i] = p.PnlPct
		if p.PnlPct > 0 {
			wins++
		}
	}
	m.WinRate = float64(wins) / float64(len(closed))

	if len(closed) >= minTradesForSharpe {
		sharpe := sharpeRatio(pnls)
		m.SharpeRatio = &sharpe
	}
	if len(closed) >= minTradesForDrawdown {
		dd := maxDrawdown(pnls)
		m.MaxDrawdown = &dd
	}
	return m
}

// sharpeRatio is mean over population standard deviation of per-trade pnl
// percentages. A flat series (zero deviation) yields 0 rather than an
// undefined ratio.
func sharpeRatio(pnls []float64) float64 {
	var sum float64
	for _, v := range pnls {
		sum += v
	}
	mean := sum / float64(len(pnls))

	var variance float64
	for _, v := range pnls {
		d := v - mean
		variance += d * d
	}
	variance /= float64(len(pnls))

	std := math.Sqrt(variance)
	if std == 0 {
		return 0
	}
	return mean / std
}

// maxDrawdown walks the cumulative pnl series keeping a running peak; the
// drawdown at each step is peak minus cumulative, and the largest one wins.
func maxDrawdown(pnls []float64) float64 {
	cumulative := 0.0
	peak := math.Inf(-1)
	maxDD := 0.0
	for _, v := range pnls {
		cumulative += v
		if cumulative > peak {
			peak = cumulative
		}
		if dd := peak - cumulative; dd > maxDD {
			maxDD = dd
		}
	}
	return maxDD
}
