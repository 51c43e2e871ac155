package executor

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfigFromReader(strings.NewReader("{}"))
	require.NoError(t, err, "empty config should load with defaults")

	assert.Equal(t, 60*time.Second, cfg.DecisionTimeout, "decision timeout should default to 60s")
	assert.Equal(t, 24, cfg.MaxSeriesPoints, "series points should default to 24")
	assert.Zero(t, cfg.MinConfidence, "min confidence should default to zero")
}

func TestLoadConfigExplicitValues(t *testing.T) {
	yaml := `
model: oracle
min_confidence: 0.4
decision_timeout: 30s
max_series_points: 12
temperature: 0.7
`
	cfg, err := LoadConfigFromReader(strings.NewReader(yaml))
	require.NoError(t, err, "full config should load")

	assert.Equal(t, "oracle", cfg.Model, "model alias should parse")
	assert.Equal(t, 30*time.Second, cfg.DecisionTimeout, "timeout should parse")
	assert.Equal(t, 12, cfg.MaxSeriesPoints, "series points should parse")
	assert.InDelta(t, 0.4, cfg.MinConfidence, 1e-9, "min confidence should parse")
	require.NotNil(t, cfg.Temperature, "temperature should be set")
	assert.InDelta(t, 0.7, *cfg.Temperature, 1e-9, "temperature should parse")
}

func TestLoadConfigRejectsBadValues(t *testing.T) {
	_, err := LoadConfigFromReader(strings.NewReader("decision_timeout: forever"))
	assert.Error(t, err, "invalid duration should fail")

	_, err = LoadConfigFromReader(strings.NewReader("decision_timeout: -5s"))
	assert.Error(t, err, "negative duration should fail")

	_, err = LoadConfigFromReader(strings.NewReader("min_confidence: 1.5"))
	assert.Error(t, err, "min_confidence above 1 should fail")

	_, err = LoadConfigFromReader(strings.NewReader("temperature: 3.0"))
	assert.Error(t, err, "temperature above 2 should fail")
}

func TestLoadConfigExpandsEnv(t *testing.T) {
	t.Setenv("ORACLE_MODEL", "gpt-4o-mini")

	cfg, err := LoadConfigFromReader(strings.NewReader("model: ${ORACLE_MODEL}"))
	require.NoError(t, err, "env-expanded config should load")
	assert.Equal(t, "gpt-4o-mini", cfg.Model, "model should expand from env")
}
