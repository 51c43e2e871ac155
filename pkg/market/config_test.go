package market

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromReader(t *testing.T) {
	yaml := `
default: primary
providers:
  primary:
    type: static
  exchange:
    type: static
    timeout: 5s
    http_timeout: 12s
    max_retries: 2
    series_length: 48
`
	cfg, err := LoadConfigFromReader(strings.NewReader(yaml))
	require.NoError(t, err, "valid config should load")

	assert.Equal(t, "primary", cfg.Default, "default provider should parse")
	require.Len(t, cfg.Providers, 2, "both providers should parse")

	exchange := cfg.Providers["exchange"]
	require.NotNil(t, exchange, "exchange provider should exist")
	assert.Equal(t, 5*time.Second, exchange.Timeout, "timeout should parse")
	assert.Equal(t, 12*time.Second, exchange.HTTPTimeout, "http timeout should parse")
	assert.Equal(t, 48, exchange.SeriesLength, "series length should parse")
}

func TestLoadConfigRejectsUnknownType(t *testing.T) {
	yaml := `
providers:
  broken:
    type: no-such-exchange
`
	_, err := LoadConfigFromReader(strings.NewReader(yaml))
	require.Error(t, err, "unknown provider type should fail validation")
	assert.Contains(t, err.Error(), "unsupported type", "error should name the problem")
}

func TestLoadConfigRejectsMissingDefault(t *testing.T) {
	yaml := `
default: absent
providers:
  primary:
    type: static
`
	_, err := LoadConfigFromReader(strings.NewReader(yaml))
	require.Error(t, err, "default pointing at undefined provider should fail")
}

func TestLoadConfigRejectsEmptyProviders(t *testing.T) {
	_, err := LoadConfigFromReader(strings.NewReader("providers: {}"))
	require.Error(t, err, "empty provider set should fail validation")
}

func TestLoadConfigRejectsBadTimeout(t *testing.T) {
	yaml := `
providers:
  primary:
    type: static
    timeout: never
`
	_, err := LoadConfigFromReader(strings.NewReader(yaml))
	require.Error(t, err, "invalid duration should fail")
}

func TestBuildProvidersAndDefault(t *testing.T) {
	yaml := `
default: primary
providers:
  primary:
    type: static
`
	cfg, err := LoadConfigFromReader(strings.NewReader(yaml))
	require.NoError(t, err, "config should load")

	providers, err := cfg.BuildProviders()
	require.NoError(t, err, "providers should build")
	require.Contains(t, providers, "primary", "named provider should exist")

	def, err := cfg.DefaultProvider()
	require.NoError(t, err, "default provider should resolve")
	assert.NotNil(t, def, "default provider should not be nil")
}

func TestConfigEnvExpansion(t *testing.T) {
	t.Setenv("MARKET_TYPE", "static")

	yaml := `
providers:
  primary:
    type: ${MARKET_TYPE}
`
	cfg, err := LoadConfigFromReader(strings.NewReader(yaml))
	require.NoError(t, err, "env-expanded config should load")
	assert.Equal(t, "static", cfg.Providers["primary"].Type, "type should expand from env")
}
