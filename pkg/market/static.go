package market

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"
)

// StaticProvider serves fixed prices from memory. It backs offline runs and
// tests where no exchange connectivity is wanted.
type StaticProvider struct {
	mu     sync.RWMutex
	quotes map[string]*Snapshot
	nowFn  func() time.Time
}

// NewStaticProvider constructs an empty static provider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		quotes: make(map[string]*Snapshot),
		nowFn:  time.Now,
	}
}

func init() {
	RegisterProvider("static", func(name string, cfg *ProviderConfig) (Provider, error) {
		return NewStaticProvider(), nil
	})
}

// SetQuote installs or replaces the snapshot served for a pair.
func (s *StaticProvider) SetQuote(pair string, price, change24hPct float64, series ...float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[normalizePair(pair)] = &Snapshot{
		Pair:         pair,
		Price:        price,
		Change24hPct: change24hPct,
		Series:       append([]float64(nil), series...),
	}
}

// SetPrice updates only the price for a pair, creating the quote if needed.
func (s *StaticProvider) SetPrice(pair string, price float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	key := normalizePair(pair)
	if snap, ok := s.quotes[key]; ok {
		snap.Price = price
		return
	}
	s.quotes[key] = &Snapshot{Pair: pair, Price: price}
}

// Snapshot implements Provider.
func (s *StaticProvider) Snapshot(ctx context.Context, pair string) (*Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.quotes[normalizePair(pair)]
	if !ok {
		return nil, fmt.Errorf("market: no static quote for pair %q", pair)
	}
	out := *snap
	out.Series = append([]float64(nil), snap.Series...)
	out.Timestamp = s.nowFn()
	return &out, nil
}

func normalizePair(pair string) string {
	return strings.ToUpper(strings.TrimSpace(pair))
}
