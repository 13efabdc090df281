package reasoner_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/abdidvp/apiweave/internal/adapters/outbound/reasoner"
	"github.com/abdidvp/apiweave/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_OfflineAlwaysHeuristic(t *testing.T) {
	r, err := reasoner.New(context.Background(), domain.DefaultConfig().Reasoner, true)
	require.NoError(t, err)
	assert.IsType(t, &reasoner.Heuristic{}, r)
}

func TestNew_HeuristicProvider(t *testing.T) {
	cfg := domain.DefaultConfig().Reasoner
	cfg.Provider = domain.ProviderHeuristic

	r, err := reasoner.New(context.Background(), cfg, false)
	require.NoError(t, err)
	assert.IsType(t, &reasoner.Heuristic{}, r)
}

func TestNew_GeminiNeedsKey(t *testing.T) {
	cfg := domain.DefaultConfig().Reasoner
	cfg.APIKeyEnv = "APIWEAVE_TEST_MISSING_KEY"
	t.Setenv(cfg.APIKeyEnv, "")

	_, err := reasoner.New(context.Background(), cfg, false)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "APIWEAVE_TEST_MISSING_KEY is not set")
}

func TestNew_GeminiWithKey(t *testing.T) {
	cfg := domain.DefaultConfig().Reasoner
	cfg.APIKeyEnv = "APIWEAVE_TEST_KEY"
	t.Setenv(cfg.APIKeyEnv, "test-key")

	r, err := reasoner.New(context.Background(), cfg, false)
	require.NoError(t, err)
	g, ok := r.(*reasoner.Gemini)
	require.True(t, ok)
	assert.Equal(t, cfg.Model, g.Model())
}

func TestNewGemini_Validation(t *testing.T) {
	_, err := reasoner.NewGemini(context.Background(), "", "gemini-2.0-flash", 0.2)
	assert.Error(t, err)

	_, err = reasoner.NewGemini(context.Background(), "key", "", 0.2)
	assert.Error(t, err)
}

func TestLoadDotEnv(t *testing.T) {
	require.NoError(t, reasoner.LoadDotEnv(t.TempDir()), "missing .env is fine")

	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("APIWEAVE_DOTENV_PROBE=loaded\n"), 0644))
	t.Setenv("APIWEAVE_DOTENV_PROBE", "")
	os.Unsetenv("APIWEAVE_DOTENV_PROBE")

	require.NoError(t, reasoner.LoadDotEnv(dir))
	assert.Equal(t, "loaded", os.Getenv("APIWEAVE_DOTENV_PROBE"))
}
