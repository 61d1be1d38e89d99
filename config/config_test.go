package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "ollama", cfg.Backend.Provider)
	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.BaseDelay)
	assert.Equal(t, 30*time.Second, cfg.Retry.Timeout)
	assert.Equal(t, 3, cfg.Repair.MaxAttempts)
	assert.False(t, cfg.Repair.Strict)
}

func TestLoadFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
backend:
  provider: openai
  model: gpt-4o-mini
sampling:
  temperature: 0.1
retry:
  max_attempts: 5
  base_delay: 500ms
repair:
  max_attempts: 4
  strict: true
log:
  level: debug
  format: json
`), 0o600))

	cfg, err := Load(path)

	require.NoError(t, err)
	assert.Equal(t, "openai", cfg.Backend.Provider)
	assert.Equal(t, "gpt-4o-mini", cfg.Backend.Model)
	assert.Equal(t, 0.1, cfg.Sampling.Temperature)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, 500*time.Millisecond, cfg.Retry.BaseDelay)
	assert.True(t, cfg.Repair.Strict)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("STRUCTGEN_PROVIDER", "anthropic")
	t.Setenv("STRUCTGEN_MODEL", "claude-3-5-sonnet-20241022")
	t.Setenv("STRUCTGEN_API_KEY", "sk-test")

	cfg, err := Load("")

	require.NoError(t, err)
	assert.Equal(t, "anthropic", cfg.Backend.Provider)
	assert.Equal(t, "claude-3-5-sonnet-20241022", cfg.Backend.Model)
	assert.Equal(t, "sk-test", cfg.Backend.APIKey)
}

func TestLoadRejectsUnknownProvider(t *testing.T) {
	t.Setenv("STRUCTGEN_PROVIDER", "carrier-pigeon")

	_, err := Load("")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown backend provider")
}

func TestLoadRejectsBadBudgets(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("retry:\n  max_attempts: 0\n"), 0o600))

	_, err := Load(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "max_attempts")
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
