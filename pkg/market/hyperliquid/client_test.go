package hyperliquid

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInfoServer(t *testing.T) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req infoRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req), "request body should decode")

		switch req.Type {
		case "metaAndAssetCtxs":
			fmt.Fprint(w, `[
				{"universe":[
					{"name":"ETH","szDecimals":4},
					{"name":"BTC","szDecimals":5},
					{"name":"OLD","szDecimals":2,"isDelisted":true}
				]},
				[
					{"prevDayPx":"2400.0","markPx":"2505.0","midPx":"2500.0"},
					{"prevDayPx":"60000.0","markPx":"61000.0","midPx":""},
					{"prevDayPx":"1.0","markPx":"1.0","midPx":"1.0"}
				]
			]`)
		case "candleSnapshot":
			fmt.Fprint(w, `[
				{"t":1000,"o":"2400","c":"2450","h":"2460","l":"2390","v":"10"},
				{"t":3000,"o":"2480","c":"2500","h":"2510","l":"2470","v":"8"},
				{"t":2000,"o":"2450","c":"2480","h":"2490","l":"2440","v":"12"}
			]`)
		default:
			http.Error(w, "unknown request type", http.StatusBadRequest)
		}
	}))
}

func TestClientGetQuote(t *testing.T) {
	server := newInfoServer(t)
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	quote, err := client.GetQuote(context.Background(), "eth-usd")
	require.NoError(t, err, "listed symbol should resolve")

	assert.Equal(t, "ETH", quote.Symbol, "pair should normalize to the canonical symbol")
	assert.Equal(t, 2500.0, quote.MidPrice, "mid price should parse")
	assert.Equal(t, 2400.0, quote.PrevDayPrice, "previous day price should parse")
}

func TestClientGetQuoteFallsBackToMark(t *testing.T) {
	server := newInfoServer(t)
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	quote, err := client.GetQuote(context.Background(), "BTC")
	require.NoError(t, err, "listed symbol should resolve")
	assert.Equal(t, 61000.0, quote.MidPrice, "empty mid should fall back to mark price")
}

func TestClientGetQuoteUnknownSymbol(t *testing.T) {
	server := newInfoServer(t)
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	_, err := client.GetQuote(context.Background(), "DOGE")
	assert.ErrorIs(t, err, ErrSymbolNotFound, "unlisted symbol should report not found")
}

func TestClientGetQuoteSkipsDelisted(t *testing.T) {
	server := newInfoServer(t)
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	_, err := client.GetQuote(context.Background(), "OLD")
	assert.ErrorIs(t, err, ErrSymbolNotFound, "delisted symbols should not resolve")
}

func TestClientGetCandles(t *testing.T) {
	server := newInfoServer(t)
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL))
	candles, err := client.GetCandles(context.Background(), "ETH", "1h", 2)
	require.NoError(t, err, "candles should fetch")

	require.Len(t, candles, 2, "limit should trim to the newest candles")
	assert.Equal(t, int64(2000), candles[0].OpenTime, "candles should be sorted oldest first")
	assert.Equal(t, int64(3000), candles[1].OpenTime, "candles should be sorted oldest first")
	assert.Equal(t, 2500.0, candles[1].Close, "close prices should parse from strings")
}

func TestClientGetCandlesRejectsBadInput(t *testing.T) {
	client := NewClient()
	_, err := client.GetCandles(context.Background(), "ETH", "2h", 10)
	assert.Error(t, err, "unsupported interval should be rejected")

	_, err = client.GetCandles(context.Background(), "ETH", "1h", 0)
	assert.Error(t, err, "non-positive limit should be rejected")
}

func TestClientRetriesServerErrors(t *testing.T) {
	var calls int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			http.Error(w, "transient", http.StatusBadGateway)
			return
		}
		fmt.Fprint(w, `[{"universe":[{"name":"ETH"}]},[{"prevDayPx":"1","markPx":"1","midPx":"1"}]]`)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithMaxRetries(3))
	quote, err := client.GetQuote(context.Background(), "ETH")
	require.NoError(t, err, "request should succeed after retries")
	assert.Equal(t, 1.0, quote.MidPrice, "payload should parse once the server recovers")
	assert.Equal(t, 3, calls, "client should have retried failed attempts")
}

func TestClientHonoursContextTimeout(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer server.Close()

	client := NewClient(WithBaseURL(server.URL), WithMaxRetries(0))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := client.GetQuote(ctx, "ETH")
	assert.Error(t, err, "expired context should abort the request")
}

func TestNormalizeKey(t *testing.T) {
	assert.Equal(t, "ETH", normalizeKey("eth"), "plain symbol should upper-case")
	assert.Equal(t, "ETH", normalizeKey("ETH-USD"), "quote suffix should strip")
	assert.Equal(t, "ETH", normalizeKey("eth/usdt"), "slash-separated suffix should strip")
	assert.Equal(t, "", normalizeKey("  "), "blank input should normalize to empty")
}
