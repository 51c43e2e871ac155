package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644), "fixture write must succeed")
	return path
}

func TestLoadHydratesSections(t *testing.T) {
	t.Setenv("LLM_API_KEY", "test-key")
	dir := t.TempDir()

	writeFile(t, dir, "llm.yaml", `
api_key: ${LLM_API_KEY}
default_model: gpt-4o-mini
`)
	writeFile(t, dir, "scheduler.yaml", `
agents:
  - id: alpha
    pair: BTC-USD
    interval: 5m
`)
	main := writeFile(t, dir, "papertrade.yaml", `
Name: papertrade
Env: dev
JournalDir: data/journal
LLM:
  File: llm.yaml
Scheduler:
  File: scheduler.yaml
`)

	cfg, err := Load(main)
	require.NoError(t, err, "config with sections must load")

	assert.Equal(t, "dev", cfg.Env, "env should parse")
	assert.False(t, cfg.IsTestEnv(), "dev is not the test env")
	assert.Equal(t, dir, cfg.BaseDir(), "base dir should be the config directory")

	require.NotNil(t, cfg.LLM.Value, "llm section should hydrate")
	assert.Equal(t, "test-key", cfg.LLM.Value.APIKey, "env reference should expand inside the section")
	require.NotNil(t, cfg.Scheduler.Value, "scheduler section should hydrate")
	require.Len(t, cfg.Scheduler.Value.Agents, 1, "agent declaration should load")
	assert.Nil(t, cfg.Market.Value, "unreferenced sections stay empty")
}

func TestLoadDefaults(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "papertrade.yaml", `
Name: papertrade
`)

	cfg, err := Load(main)
	require.NoError(t, err, "minimal config must load")

	assert.Equal(t, "test", cfg.Env, "env should default to test")
	assert.True(t, cfg.IsTestEnv(), "default env is the test env")
	assert.Equal(t, "data/journal", cfg.JournalDir, "journal dir should default")
	assert.Equal(t, 10, cfg.TTL.Short, "short ttl should default")
	assert.Equal(t, 60, cfg.TTL.Medium, "medium ttl should default")
	assert.Equal(t, 300, cfg.TTL.Long, "long ttl should default")
}

func TestLoadRejectsBadEnv(t *testing.T) {
	dir := t.TempDir()
	main := writeFile(t, dir, "papertrade.yaml", `
Name: papertrade
Env: staging
`)
	_, err := Load(main)
	require.Error(t, err, "unknown env must be rejected")
	assert.Contains(t, err.Error(), "env must be one of", "error should list valid envs")
}

func TestLoadRejectsBrokenSection(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "scheduler.yaml", `
agents: []
`)
	main := writeFile(t, dir, "papertrade.yaml", `
Name: papertrade
Scheduler:
  File: scheduler.yaml
`)
	_, err := Load(main)
	require.Error(t, err, "invalid section must fail the load")
	assert.Contains(t, err.Error(), "scheduler", "error should name the section")
}
