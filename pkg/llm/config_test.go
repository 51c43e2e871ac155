package llm

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadConfigFromReaderDefaults(t *testing.T) {
	yaml := `
api_key: test-key
default_model: gpt-4o-mini
`
	cfg, err := LoadConfigFromReader(strings.NewReader(yaml))
	require.NoError(t, err, "minimal config should load")

	assert.Equal(t, "https://api.openai.com/v1", cfg.BaseURL, "base url should default")
	assert.Equal(t, 60*time.Second, cfg.Timeout, "timeout should default to 60s")
	assert.Equal(t, 3, cfg.MaxRetries, "max retries should default to 3")
	assert.Equal(t, "info", cfg.LogLevel, "log level should default to info")
}

func TestLoadConfigFromReaderExplicitValues(t *testing.T) {
	yaml := `
base_url: https://llm.internal/v1
api_key: test-key
default_model: oracle
timeout: 45s
max_retries: 5
log_level: debug
models:
  oracle:
    model_name: gpt-4o
    temperature: 0.2
    max_tokens: 2048
`
	cfg, err := LoadConfigFromReader(strings.NewReader(yaml))
	require.NoError(t, err, "full config should load")

	assert.Equal(t, "https://llm.internal/v1", cfg.BaseURL, "base url should come from file")
	assert.Equal(t, 45*time.Second, cfg.Timeout, "timeout should parse duration syntax")
	assert.Equal(t, 5, cfg.MaxRetries, "max retries should come from file")

	modelCfg, ok := cfg.Model("oracle")
	require.True(t, ok, "oracle alias should resolve")
	assert.Equal(t, "gpt-4o", modelCfg.ModelName, "alias should map to model id")
	require.NotNil(t, modelCfg.Temperature, "temperature should be set")
	assert.InDelta(t, 0.2, *modelCfg.Temperature, 1e-9, "temperature should match file")
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv("LLM_API_KEY", "env-key")
	t.Setenv("LLM_BASE_URL", "https://override.example/v1")
	t.Setenv("LLM_TIMEOUT", "30")

	yaml := `
api_key: file-key
default_model: gpt-4o-mini
`
	cfg, err := LoadConfigFromReader(strings.NewReader(yaml))
	require.NoError(t, err, "config with env overrides should load")

	assert.Equal(t, "env-key", cfg.APIKey, "env api key should win over file")
	assert.Equal(t, "https://override.example/v1", cfg.BaseURL, "env base url should win over file")
	assert.Equal(t, 30*time.Second, cfg.Timeout, "bare seconds timeout should parse")
}

func TestLoadConfigMissingAPIKey(t *testing.T) {
	yaml := `
default_model: gpt-4o-mini
`
	_, err := LoadConfigFromReader(strings.NewReader(yaml))
	require.Error(t, err, "missing api key should be rejected")
	assert.Contains(t, err.Error(), "api_key", "error should name the missing field")
}

func TestLoadConfigInvalidTimeout(t *testing.T) {
	yaml := `
api_key: test-key
default_model: gpt-4o-mini
timeout: soon
`
	_, err := LoadConfigFromReader(strings.NewReader(yaml))
	require.Error(t, err, "unparseable timeout should be rejected")
}

func TestConfigCloneIsIndependent(t *testing.T) {
	cfg := &Config{
		BaseURL:      "https://llm.internal/v1",
		APIKey:       "test-key",
		DefaultModel: "oracle",
		Timeout:      time.Minute,
		Models: map[string]ModelConfig{
			"oracle": {ModelName: "gpt-4o"},
		},
	}

	cp := cfg.Clone()
	cp.Models["oracle"] = ModelConfig{ModelName: "other"}

	original, _ := cfg.Model("oracle")
	assert.Equal(t, "gpt-4o", original.ModelName, "mutating the clone must not touch the original")
}
