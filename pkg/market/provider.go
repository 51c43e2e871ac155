package market

import (
	"context"
	"time"
)

// Provider exposes exchange-agnostic market data.
type Provider interface {
	// Snapshot returns the current market view for the given trading pair.
	Snapshot(ctx context.Context, pair string) (*Snapshot, error)
}

// Snapshot captures the market view handed to the decision layer.
type Snapshot struct {
	Pair         string    `json:"pair"`
	Price        float64   `json:"price"`
	Change24hPct float64   `json:"change_24h_pct"`
	Series       []float64 `json:"series,omitempty"` // recent closes, oldest first
	Timestamp    time.Time `json:"timestamp"`
}
