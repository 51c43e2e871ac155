package cache

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"papertrade-api/internal/config"
)

func TestKeyFormatting(t *testing.T) {
	assert.Equal(t, "papertrade:ledger:alpha", LedgerKey("alpha"), "ledger key should be namespaced")
	assert.Equal(t, "papertrade:metrics:alpha", MetricsKey("alpha"), "metrics key should be namespaced")
	assert.Equal(t, "papertrade:cycle:last:alpha", CycleLastKey("alpha"), "cycle key should be namespaced")
	assert.Equal(t, "papertrade:a:b", FormatCacheKey("a", " ", "b"), "blank parts should be dropped")
}

func TestNewTTLSet(t *testing.T) {
	ttl := NewTTLSet(config.CacheTTL{Short: 5, Medium: 0, Long: -1})
	assert.Equal(t, 5*time.Second, ttl.Short, "configured ttl should convert to seconds")
	assert.Equal(t, time.Minute, ttl.Medium, "zero should fall back to the default")
	assert.Equal(t, time.Duration(0), ttl.Long, "negative disables the ttl")
	assert.Equal(t, 5, ttl.Seconds(TTLShort), "seconds accessor should round-trip")
	assert.Equal(t, time.Duration(0), ttl.Duration(TTLClass("bogus")), "unknown class yields zero")
}
