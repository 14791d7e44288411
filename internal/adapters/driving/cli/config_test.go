package cli

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/kbnote/internal/core/domain"
)

func TestConfigInitCmd(t *testing.T) {
	t.Run("writes defaults", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()

		out, err := execute(t, "config", "init")

		require.NoError(t, err)
		assert.Contains(t, out, "Configuration written to /tmp/kbnote/config.toml")
		require.NotNil(t, current.config.saved)
		assert.Equal(t, domain.DefaultConfig().Limiter, current.config.saved.Limiter)
	})

	t.Run("refuses to overwrite", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()
		current.config.exists = true

		_, err := execute(t, "config", "init")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "already exists")
		assert.Nil(t, current.config.saved)
	})

	t.Run("force", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()
		defer func() { configForce = false }()
		current.config.exists = true

		_, err := execute(t, "config", "init", "--force")

		require.NoError(t, err)
		assert.NotNil(t, current.config.saved)
	})
}

func TestConfigShowCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	current.config.cfg.LLM = domain.LLMSettings{
		Provider: domain.AIProviderOpenAI,
		Model:    "gpt-4o-mini",
		APIKey:   "sk-abcdefghwxyz",
	}

	out, err := execute(t, "config", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "(not created, using defaults)")
	assert.Contains(t, out, "Provider: OpenAI (cloud)")
	assert.Contains(t, out, "API Key: sk-a...wxyz")
	assert.NotContains(t, out, "sk-abcdefghwxyz")
	assert.Contains(t, out, "[Limiter]")
	assert.Contains(t, out, "Fields finance:")
}

func TestConfigShowCmd_DefaultModel(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()
	current.config.cfg.LLM = domain.LLMSettings{Provider: domain.AIProviderOllama}

	out, err := execute(t, "config", "show")

	require.NoError(t, err)
	assert.Contains(t, out, "Model: llama3.2 (default)")
	assert.Contains(t, out, "API Key: (not set)")
}

func TestConfigCheckCmd(t *testing.T) {
	t.Run("no provider", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()

		out, err := execute(t, "config", "check")

		require.NoError(t, err)
		assert.Contains(t, out, "Configuration: OK")
		assert.Contains(t, out, "LLM: not configured")
	})

	t.Run("reachable provider", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()
		current.config.cfg.LLM.Provider = domain.AIProviderOllama

		out, err := execute(t, "config", "check")

		require.NoError(t, err)
		assert.Contains(t, out, "LLM: Ollama (local) reachable")
	})

	t.Run("missing api key", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()
		current.config.cfg.LLM.Provider = domain.AIProviderAnthropic

		_, err := execute(t, "config", "check")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "needs an API key")
	})

	t.Run("unreachable provider", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()
		current.config.cfg.LLM.Provider = domain.AIProviderOllama
		current.validator.err = errors.New("connection refused")

		_, err := execute(t, "config", "check")

		require.Error(t, err)
		assert.Contains(t, err.Error(), "connection refused")
	})

	t.Run("invalid values", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()
		current.config.cfg.Pipeline.Workers = -1

		_, err := execute(t, "config", "check")

		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})

	t.Run("load error", func(t *testing.T) {
		cleanup := setupTestServices()
		defer cleanup()
		current.config.loadErr = domain.ErrInvalidConfig

		_, err := execute(t, "config", "check")

		assert.ErrorIs(t, err, domain.ErrInvalidConfig)
	})
}

func TestConfigPathCmd(t *testing.T) {
	cleanup := setupTestServices()
	defer cleanup()

	out, err := execute(t, "config", "path")

	require.NoError(t, err)
	assert.Equal(t, "/tmp/kbnote/config.toml\n", out)
}

func TestConfigCmd_NoStore(t *testing.T) {
	_, err := execute(t, "config", "path")

	assert.EqualError(t, err, "config store not configured")
}
