package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/abdidvp/apiweave/internal/domain"
	"gopkg.in/yaml.v3"
)

// FileName is the per-workspace configuration file.
const FileName = ".apiweave.yaml"

// YAMLLoader implements domain.ConfigLoader by reading .apiweave.yaml.
type YAMLLoader struct{}

// New creates a YAMLLoader.
func New() *YAMLLoader { return &YAMLLoader{} }

// fileConfig mirrors domain.Config with pointers so that keys absent from the
// file keep their defaults while explicit zeros are still validated.
type fileConfig struct {
	ConfidenceThreshold *float64       `yaml:"confidence_threshold"`
	SimilarityCutoff    *float64       `yaml:"similarity_cutoff"`
	MaxConcurrency      *int           `yaml:"max_concurrency"`
	PairTimeout         *time.Duration `yaml:"pair_timeout"`
	Reasoner            *fileReasoner  `yaml:"reasoner"`
	OutputDir           *string        `yaml:"output_dir"`
}

type fileReasoner struct {
	Provider    *string  `yaml:"provider"`
	Model       *string  `yaml:"model"`
	Temperature *float32 `yaml:"temperature"`
	APIKeyEnv   *string  `yaml:"api_key_env"`
}

// Load reads .apiweave.yaml from workspace.
// Returns DefaultConfig if the file does not exist.
func (l *YAMLLoader) Load(workspace string) (domain.Config, error) {
	data, err := os.ReadFile(filepath.Join(workspace, FileName))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return domain.DefaultConfig(), nil
		}
		return domain.Config{}, err
	}

	var raw fileConfig
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return domain.Config{}, fmt.Errorf("parsing %s: %w", FileName, err)
	}

	cfg := mergeConfig(domain.DefaultConfig(), raw)
	if err := cfg.Validate(); err != nil {
		return domain.Config{}, fmt.Errorf("invalid %s: %w", FileName, err)
	}
	return cfg, nil
}

// mergeConfig overlays explicit values from the file on top of defaults.
func mergeConfig(base domain.Config, override fileConfig) domain.Config {
	result := base

	if override.ConfidenceThreshold != nil {
		result.ConfidenceThreshold = *override.ConfidenceThreshold
	}
	if override.SimilarityCutoff != nil {
		result.SimilarityCutoff = *override.SimilarityCutoff
	}
	if override.MaxConcurrency != nil {
		result.MaxConcurrency = *override.MaxConcurrency
	}
	if override.PairTimeout != nil {
		result.PairTimeout = *override.PairTimeout
	}
	if override.OutputDir != nil {
		result.OutputDir = *override.OutputDir
	}

	if r := override.Reasoner; r != nil {
		if r.Provider != nil {
			result.Reasoner.Provider = *r.Provider
		}
		if r.Model != nil {
			result.Reasoner.Model = *r.Model
		}
		if r.Temperature != nil {
			result.Reasoner.Temperature = *r.Temperature
		}
		if r.APIKeyEnv != nil {
			result.Reasoner.APIKeyEnv = *r.APIKeyEnv
		}
	}

	return result
}
