package hyperliquid

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

const (
	defaultBaseURL          = "https://api.hyperliquid.xyz/info"
	defaultHTTPTimeout      = 10 * time.Second
	defaultMaxRetries       = 3
	defaultRetryBackoffBase = 150 * time.Millisecond
)

// ErrSymbolNotFound indicates that the requested symbol is not listed.
var ErrSymbolNotFound = errors.New("hyperliquid: symbol not found")

// Client wraps access to the Hyperliquid public info endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
	maxRetries int

	symbolsMu   sync.RWMutex
	symbolIndex map[string]string
	ctxBySymbol map[string]assetCtx
}

// Option configures a new Client.
type Option func(*Client)

// WithHTTPClient injects a custom http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithBaseURL overrides the default info endpoint URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = url
		}
	}
}

// WithMaxRetries adjusts the retry budget.
func WithMaxRetries(max int) Option {
	return func(c *Client) {
		if max >= 0 {
			c.maxRetries = max
		}
	}
}

// NewClient constructs a Hyperliquid API client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
		maxRetries: defaultMaxRetries,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

// GetQuote returns the normalized market context for a symbol.
func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	canonical, ctxData, err := c.assetContextFor(ctx, symbol)
	if err != nil {
		return nil, err
	}

	mid := parsePrice(ctxData.MidPx)
	if mid <= 0 {
		mid = parsePrice(ctxData.MarkPx)
	}
	if mid <= 0 {
		return nil, fmt.Errorf("hyperliquid: no price for symbol %s", canonical)
	}

	return &Quote{
		Symbol:       canonical,
		MidPrice:     mid,
		PrevDayPrice: parsePrice(ctxData.PrevDayPx),
	}, nil
}

// GetCandles fetches recent close candles for the given interval, oldest first.
func (c *Client) GetCandles(ctx context.Context, symbol, interval string, limit int) ([]Candle, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("hyperliquid: limit must be positive")
	}
	step, err := intervalDuration(interval)
	if err != nil {
		return nil, err
	}

	canonical, err := c.canonicalSymbolFor(ctx, symbol)
	if err != nil {
		return nil, err
	}

	endTime := time.Now().UTC()
	startTime := endTime.Add(-step * time.Duration(limit+10))

	var response candleResponse
	request := infoRequest{
		Type: "candleSnapshot",
		Req: candleSnapshotRequest{
			Coin:      canonical,
			Interval:  interval,
			StartTime: startTime.UnixMilli(),
			EndTime:   endTime.UnixMilli(),
		},
	}
	if err := c.doRequest(ctx, request, &response); err != nil {
		return nil, err
	}
	if len(response) == 0 {
		return nil, fmt.Errorf("hyperliquid: empty candle response for %s %s", canonical, interval)
	}

	candles := make([]Candle, 0, len(response))
	for _, item := range response {
		candles = append(candles, Candle{
			OpenTime: item.T,
			Open:     item.O,
			High:     item.H,
			Low:      item.L,
			Close:    item.C,
			Volume:   item.V,
		})
	}
	sort.Slice(candles, func(i, j int) bool {
		return candles[i].OpenTime < candles[j].OpenTime
	})
	if len(candles) > limit {
		candles = candles[len(candles)-limit:]
	}
	return candles, nil
}

var intervalDurations = map[string]time.Duration{
	"1m":  time.Minute,
	"5m":  5 * time.Minute,
	"15m": 15 * time.Minute,
	"1h":  time.Hour,
	"4h":  4 * time.Hour,
	"1d":  24 * time.Hour,
}

func intervalDuration(interval string) (time.Duration, error) {
	d, ok := intervalDurations[interval]
	if !ok {
		return 0, fmt.Errorf("hyperliquid: unsupported interval %q", interval)
	}
	return d, nil
}

// doRequest posts an info request and decodes the response into result.
func (c *Client) doRequest(ctx context.Context, req infoRequest, result interface{}) error {
	payload, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("hyperliquid: encode request: %w", err)
	}
	var lastErr error
	backoff := defaultRetryBackoffBase
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(payload))
		if err != nil {
			return fmt.Errorf("hyperliquid: build request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")

		resp, err := c.httpClient.Do(httpReq)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			lastErr = err
		} else {
			body, readErr := io.ReadAll(resp.Body)
			resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("hyperliquid: read response: %w", readErr)
			} else if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				lastErr = fmt.Errorf("hyperliquid: http status %d: %s", resp.StatusCode, string(body))
			} else {
				if result != nil {
					if err := json.Unmarshal(body, result); err != nil {
						return fmt.Errorf("hyperliquid: decode response: %w", err)
					}
				}
				return nil
			}
		}

		if attempt < c.maxRetries {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				backoff *= 2
			}
		}
	}
	if lastErr != nil {
		return lastErr
	}
	return fmt.Errorf("hyperliquid: request failed without error detail")
}

func (c *Client) refreshSymbolDirectory(ctx context.Context) error {
	var payload metaAndAssetCtxsResponse
	if err := c.doRequest(ctx, infoRequest{Type: "metaAndAssetCtxs"}, &payload); err != nil {
		return err
	}

	index := make(map[string]string, len(payload.Universe))
	ctxBySymbol := make(map[string]assetCtx, len(payload.AssetCtxs))
	for i, entry := range payload.Universe {
		canonical := strings.TrimSpace(entry.Name)
		if canonical == "" || entry.IsDelisted {
			continue
		}
		key := normalizeKey(canonical)
		if key == "" {
			continue
		}
		index[key] = canonical
		if i < len(payload.AssetCtxs) {
			ctxBySymbol[canonical] = payload.AssetCtxs[i]
		}
	}

	c.symbolsMu.Lock()
	c.symbolIndex = index
	c.ctxBySymbol = ctxBySymbol
	c.symbolsMu.Unlock()
	return nil
}

func (c *Client) canonicalSymbolFor(ctx context.Context, symbol string) (string, error) {
	if canonical, ok := c.canonicalFromCache(symbol); ok {
		return canonical, nil
	}
	if err := c.refreshSymbolDirectory(ctx); err != nil {
		return "", err
	}
	if canonical, ok := c.canonicalFromCache(symbol); ok {
		return canonical, nil
	}
	return "", ErrSymbolNotFound
}

func (c *Client) assetContextFor(ctx context.Context, symbol string) (string, assetCtx, error) {
	// Always refresh so prices are current; the directory doubles as the
	// per-symbol context cache for the duration of a single call.
	if err := c.refreshSymbolDirectory(ctx); err != nil {
		return "", assetCtx{}, err
	}
	key := normalizeKey(symbol)
	c.symbolsMu.RLock()
	defer c.symbolsMu.RUnlock()
	canonical, ok := c.symbolIndex[key]
	if !ok {
		return "", assetCtx{}, ErrSymbolNotFound
	}
	return canonical, c.ctxBySymbol[canonical], nil
}

func (c *Client) canonicalFromCache(symbol string) (string, bool) {
	key := normalizeKey(symbol)
	if key == "" {
		return "", false
	}
	c.symbolsMu.RLock()
	canonical, ok := c.symbolIndex[key]
	c.symbolsMu.RUnlock()
	return canonical, ok
}

func normalizeKey(symbol string) string {
	trimmed := strings.TrimSpace(symbol)
	if trimmed == "" {
		return ""
	}
	// Accept common quote suffixes so pairs like "ETH-USD" resolve.
	upper := strings.ToUpper(trimmed)
	for _, suffix := range []string{"-USDT", "-USDC", "-USD", "/USDT", "/USDC", "/USD", "USDT"} {
		if len(upper) > len(suffix) && strings.HasSuffix(upper, suffix) {
			return strings.TrimSuffix(upper, suffix)
		}
	}
	return upper
}

func parsePrice(raw string) float64 {
	v, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0
	}
	return v
}
