package hyperliquid

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"

	"github.com/dnaeon/go-vcr/recorder"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Replays a real GetQuote call from a cassette. Skips when the cassette is
// absent unless RECORD_CASSETTES=1 is set to record a fresh one.
func TestClientGetQuoteRecorded(t *testing.T) {
	cassette := filepath.Join("testdata", "cassettes", "hyperliquid_quote.yaml")
	if _, err := os.Stat(cassette); os.IsNotExist(err) {
		if os.Getenv("RECORD_CASSETTES") != "1" {
			t.Skipf("cassette missing; set RECORD_CASSETTES=1 to record: %s", cassette)
		}
		require.NoError(t, os.MkdirAll(filepath.Dir(cassette), 0o755), "mkdir cassettes dir should succeed")
	}

	r, err := recorder.New(cassette)
	require.NoError(t, err, "recorder.New should not error")
	defer func() { _ = r.Stop() }()

	client := NewClient(WithHTTPClient(&http.Client{Transport: r}))
	quote, err := client.GetQuote(context.Background(), "eth")
	require.NoError(t, err, "GetQuote should not error")
	assert.Equal(t, "ETH", quote.Symbol, "symbol should canonicalize")
	assert.Greater(t, quote.MidPrice, 0.0, "mid price should be positive")
}
