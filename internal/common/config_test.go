package common

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig_Valid(t *testing.T) {
	cfg := NewDefaultConfig()
	require.NoError(t, cfg.Validate())

	w := cfg.Analysis.Weights
	assert.InDelta(t, 1.0, w.Fundamental+w.Technical+w.Options+w.Macro+w.Sentiment+w.Portfolio, 1e-9)
	assert.Equal(t, 320, cfg.Reference.TargetTokens)
	assert.Equal(t, 256, cfg.Reference.MinTokens)
	assert.Equal(t, 384, cfg.Reference.MaxTokens)
	assert.Equal(t, "local", cfg.Embedding.Provider)
}

func TestLoadFromFiles_LaterFileWins(t *testing.T) {
	dir := t.TempDir()
	first := filepath.Join(dir, "a.toml")
	second := filepath.Join(dir, "b.toml")
	require.NoError(t, os.WriteFile(first, []byte("[storage]\ntype = \"sqlite\"\n[reference]\nmax_tokens = 500\n"), 0644))
	require.NoError(t, os.WriteFile(second, []byte("[reference]\nmax_tokens = 600\n"), 0644))

	cfg, err := LoadFromFiles(nil, first, second)
	require.NoError(t, err)
	assert.Equal(t, "sqlite", cfg.Storage.Type)
	assert.Equal(t, 600, cfg.Reference.MaxTokens)
	assert.Equal(t, 256, cfg.Reference.MinTokens)
}

func TestLoadFromFiles_EnvOverrides(t *testing.T) {
	t.Setenv("INDEPTH_EMBEDDING_PROVIDER", "GEMINI")
	t.Setenv("INDEPTH_COST_LIMIT_USD", "1.5")
	t.Setenv("INDEPTH_LOG_OUTPUT", "stdout, file")

	cfg, err := LoadFromFiles(nil)
	require.NoError(t, err)
	assert.Equal(t, "gemini", cfg.Embedding.Provider)
	assert.Equal(t, 1.5, cfg.Processing.CostLimitUSD)
	assert.Equal(t, []string{"stdout", "file"}, cfg.Logging.Output)
}

func TestLoadFromFiles_Invalid(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"unknown storage type", "[storage]\ntype = \"postgres\"\n"},
		{"max below min", "[reference]\nmin_tokens = 400\nmax_tokens = 300\n"},
		{"bad schedule", "[processing]\nschedule = \"every tuesday\"\n"},
		{"unknown provider", "[embedding]\nprovider = \"openai\"\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := filepath.Join(t.TempDir(), "bad.toml")
			require.NoError(t, os.WriteFile(path, []byte(tt.body), 0644))
			_, err := LoadFromFiles(nil, path)
			assert.Error(t, err)
		})
	}
}

func TestApplyFlagOverrides(t *testing.T) {
	cfg := NewDefaultConfig()
	ApplyFlagOverrides(cfg, FlagOverrides{Verbose: true, Provider: "gemini", CostLimitUSD: 2})
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "gemini", cfg.Embedding.Provider)
	assert.Equal(t, 2.0, cfg.Processing.CostLimitUSD)
}

func TestResolveAPIKey(t *testing.T) {
	t.Setenv("EODHD_API_KEY", "")
	t.Setenv("INDEPTH_EODHD_API_KEY", "")

	_, err := ResolveAPIKey(t.Context(), nil, "eodhd_api_key", "")
	assert.Error(t, err)

	key, err := ResolveAPIKey(t.Context(), nil, "eodhd_api_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-config", key)

	t.Setenv("EODHD_API_KEY", "from-env")
	key, err = ResolveAPIKey(t.Context(), nil, "eodhd_api_key", "from-config")
	require.NoError(t, err)
	assert.Equal(t, "from-env", key)
}

func TestParseDuration(t *testing.T) {
	assert.Equal(t, 30*time.Second, ParseDuration("30s", 0))
	assert.Equal(t, 5*time.Second, ParseDuration("", 5*time.Second))
	assert.Equal(t, 5*time.Second, ParseDuration("nope", 5*time.Second))
}
