package hyperliquid

import (
	"context"
	"net/http"
	"strings"
	"sync"
	"time"

	"papertrade-api/pkg/market"
)

const (
	defaultProviderTimeout = 8 * time.Second
	defaultSeriesInterval  = "1h"
	defaultSeriesLength    = 24

	snapshotCacheTTL = 15 * time.Second
)

// Provider adapts the Hyperliquid client to the market.Provider contract.
type Provider struct {
	client         *Client
	timeout        time.Duration
	seriesInterval string
	seriesLength   int

	cacheMu   sync.RWMutex
	snapshots map[string]cachedSnapshot
}

type cachedSnapshot struct {
	snapshot *market.Snapshot
	fetched  time.Time
}

type providerConfig struct {
	timeout        time.Duration
	seriesInterval string
	seriesLength   int
	clientOptions  []Option
}

// ProviderOption customises the Hyperliquid provider.
type ProviderOption func(*providerConfig)

// WithTimeout overrides the default per-call timeout.
func WithTimeout(timeout time.Duration) ProviderOption {
	return func(cfg *providerConfig) {
		if timeout > 0 {
			cfg.timeout = timeout
		}
	}
}

// WithSeries configures the candle interval and length included in snapshots.
func WithSeries(interval string, length int) ProviderOption {
	return func(cfg *providerConfig) {
		if interval != "" {
			cfg.seriesInterval = interval
		}
		if length > 0 {
			cfg.seriesLength = length
		}
	}
}

// WithClientOptions passes options to the underlying Hyperliquid client.
func WithClientOptions(options ...Option) ProviderOption {
	return func(cfg *providerConfig) {
		cfg.clientOptions = append(cfg.clientOptions, options...)
	}
}

// NewProvider constructs a Hyperliquid market provider.
func NewProvider(opts ...ProviderOption) *Provider {
	cfg := &providerConfig{
		timeout:        defaultProviderTimeout,
		seriesInterval: defaultSeriesInterval,
		seriesLength:   defaultSeriesLength,
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return &Provider{
		client:         NewClient(cfg.clientOptions...),
		timeout:        cfg.timeout,
		seriesInterval: cfg.seriesInterval,
		seriesLength:   cfg.seriesLength,
		snapshots:      make(map[string]cachedSnapshot),
	}
}

func init() {
	market.RegisterProvider("hyperliquid", func(name string, cfg *market.ProviderConfig) (market.Provider, error) {
		opts := []ProviderOption{}
		clientOptions := []Option{}
		if cfg.Timeout > 0 {
			opts = append(opts, WithTimeout(cfg.Timeout))
		}
		if cfg.Interval != "" || cfg.SeriesLength > 0 {
			opts = append(opts, WithSeries(cfg.Interval, cfg.SeriesLength))
		}
		if cfg.BaseURL != "" {
			clientOptions = append(clientOptions, WithBaseURL(cfg.BaseURL))
		}
		if cfg.HTTPTimeout > 0 {
			clientOptions = append(clientOptions, WithHTTPClient(&http.Client{Timeout: cfg.HTTPTimeout}))
		}
		if cfg.MaxRetries > 0 {
			clientOptions = append(clientOptions, WithMaxRetries(cfg.MaxRetries))
		}
		if len(clientOptions) > 0 {
			opts = append(opts, WithClientOptions(clientOptions...))
		}
		return NewProvider(opts...), nil
	})
}

// Snapshot implements market.Provider.
func (p *Provider) Snapshot(ctx context.Context, pair string) (*market.Snapshot, error) {
	if snap, ok := p.loadCached(pair); ok {
		return snap, nil
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	quote, err := p.client.GetQuote(ctx, pair)
	if err != nil {
		return nil, err
	}

	snap := &market.Snapshot{
		Pair:      quote.Symbol,
		Price:     quote.MidPrice,
		Timestamp: time.Now().UTC(),
	}
	if quote.PrevDayPrice > 0 {
		snap.Change24hPct = (quote.MidPrice - quote.PrevDayPrice) / quote.PrevDayPrice * 100
	}

	if p.seriesLength > 0 {
		candles, err := p.client.GetCandles(ctx, pair, p.seriesInterval, p.seriesLength)
		if err == nil {
			series := make([]float64, 0, len(candles))
			for _, c := range candles {
				series = append(series, c.Close)
			}
			snap.Series = series
		}
		// A missing series is tolerable; the price is the load-bearing field.
	}

	p.storeCached(pair, snap)
	return snap, nil
}

func (p *Provider) loadCached(pair string) (*market.Snapshot, bool) {
	p.cacheMu.RLock()
	defer p.cacheMu.RUnlock()
	entry, ok := p.snapshots[cacheKey(pair)]
	if !ok || entry.snapshot == nil || time.Since(entry.fetched) > snapshotCacheTTL {
		return nil, false
	}
	out := *entry.snapshot
	out.Series = append([]float64(nil), entry.snapshot.Series...)
	return &out, true
}

func (p *Provider) storeCached(pair string, snap *market.Snapshot) {
	if snap == nil {
		return
	}
	clone := *snap
	clone.Series = append([]float64(nil), snap.Series...)
	p.cacheMu.Lock()
	defer p.cacheMu.Unlock()
	p.snapshots[cacheKey(pair)] = cachedSnapshot{snapshot: &clone, fetched: time.Now()}
}

func cacheKey(pair string) string {
	return strings.ToUpper(strings.TrimSpace(pair))
}
