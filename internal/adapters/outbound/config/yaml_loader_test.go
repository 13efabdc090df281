package config_test

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	appconfig "github.com/abdidvp/apiweave/internal/adapters/outbound/config"
	"github.com/abdidvp/apiweave/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, dir, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, appconfig.FileName), []byte(content), 0644))
}

func TestYAMLLoader_MissingFileReturnsDefaults(t *testing.T) {
	cfg, err := appconfig.New().Load(t.TempDir())
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultConfig(), cfg)
}

func TestYAMLLoader_ValidYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
confidence_threshold: 0.8
similarity_cutoff: 0.45
max_concurrency: 8
pair_timeout: 15s
reasoner:
  provider: heuristic
output_dir: build/apiweave
`)

	cfg, err := appconfig.New().Load(dir)
	require.NoError(t, err)
	assert.InDelta(t, 0.8, cfg.ConfidenceThreshold, 0.001)
	assert.InDelta(t, 0.45, cfg.SimilarityCutoff, 0.001)
	assert.Equal(t, 8, cfg.MaxConcurrency)
	assert.Equal(t, 15*time.Second, cfg.PairTimeout)
	assert.Equal(t, domain.ProviderHeuristic, cfg.Reasoner.Provider)
	assert.Equal(t, "build/apiweave", cfg.OutputDir)
}

func TestYAMLLoader_PartialFileKeepsDefaults(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `
reasoner:
  temperature: 0.5
`)

	cfg, err := appconfig.New().Load(dir)
	require.NoError(t, err)

	want := domain.DefaultConfig()
	want.Reasoner.Temperature = 0.5
	assert.Equal(t, want, cfg)
}

func TestYAMLLoader_InvalidYAML(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, `{{{invalid yaml`)

	_, err := appconfig.New().Load(dir)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "parsing .apiweave.yaml")
}

func TestYAMLLoader_InvalidValues(t *testing.T) {
	tests := []struct {
		name    string
		content string
		wantErr string
	}{
		{"threshold", "confidence_threshold: 1.5", "confidence_threshold"},
		{"explicit zero concurrency", "max_concurrency: 0", "max_concurrency"},
		{"provider", "reasoner:\n  provider: openai", "reasoner.provider"},
		{"bad duration", "pair_timeout: soon", "parsing"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			writeConfig(t, dir, tt.content)

			_, err := appconfig.New().Load(dir)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
