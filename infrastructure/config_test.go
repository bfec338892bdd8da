package infrastructure

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearProviderEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{"GROQ_API_KEY", "OPENAI_API_KEY", "ANTHROPIC_API_KEY", "HUGGINGFACE_TOKEN"} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("GROQ_API_KEY", "gsk-test")

	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, "localhost:6334", cfg.Memory.QdrantAddr)
	assert.Equal(t, "knowledge", cfg.Memory.Collection)
	assert.Equal(t, 5, cfg.Evolution.AttemptBudget)
	assert.Equal(t, "gsk-test", cfg.Providers.Groq.APIKey)
	assert.Empty(t, cfg.Providers.OpenAI.APIKey)
}

func TestLoadConfigYAMLOverride(t *testing.T) {
	clearProviderEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
evolution:
  target_file: internal/brain.go
  attempt_budget: 9
  attempt_delay: 500ms
benchmark:
  runs: 3
`), 0644))

	cfg, err := LoadConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "internal/brain.go", cfg.Evolution.TargetFile)
	assert.Equal(t, 9, cfg.Evolution.AttemptBudget)
	assert.Equal(t, Duration(500*time.Millisecond), cfg.Evolution.AttemptDelay)
	assert.Equal(t, 3, cfg.Benchmark.Runs)
	// Untouched sections keep their defaults.
	assert.Equal(t, "knowledge", cfg.Memory.Collection)
}

func TestLoadConfigRequiresProviderKey(t *testing.T) {
	clearProviderEnv(t)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no provider API key")
}

func TestValidateRejectsBadBudget(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Providers.Groq.APIKey = "gsk-test"
	cfg.Evolution.AttemptBudget = 0

	assert.Error(t, cfg.Validate())
}
