package domain

import (
	"fmt"
	"time"
)

// Reasoner providers.
const (
	ProviderGemini    = "gemini"
	ProviderHeuristic = "heuristic"
)

// ValidProviders enumerates reasoner providers.
var ValidProviders = []string{ProviderGemini, ProviderHeuristic}

// Config holds pipeline configuration loaded from .apiweave.yaml.
type Config struct {
	// ConfidenceThreshold is the minimum entity mapping confidence for a flow step.
	ConfidenceThreshold float64 `yaml:"confidence_threshold" json:"confidence_threshold"`
	// SimilarityCutoff is the minimum confidence for a pair to count as a candidate.
	SimilarityCutoff float64        `yaml:"similarity_cutoff"    json:"similarity_cutoff"`
	MaxConcurrency   int            `yaml:"max_concurrency"      json:"max_concurrency"`
	PairTimeout      time.Duration  `yaml:"pair_timeout"         json:"pair_timeout"`
	Reasoner         ReasonerConfig `yaml:"reasoner"             json:"reasoner"`
	OutputDir        string         `yaml:"output_dir"           json:"output_dir"`
}

// ReasonerConfig selects and tunes the external reasoning service.
type ReasonerConfig struct {
	Provider    string  `yaml:"provider"    json:"provider"`
	Model       string  `yaml:"model"       json:"model"`
	Temperature float32 `yaml:"temperature" json:"temperature"`
	APIKeyEnv   string  `yaml:"api_key_env" json:"api_key_env"`
}

// DefaultConfig returns the configuration used when no file is present.
func DefaultConfig() Config {
	return Config{
		ConfidenceThreshold: 0.7,
		SimilarityCutoff:    0.5,
		MaxConcurrency:      4,
		PairTimeout:         60 * time.Second,
		Reasoner: ReasonerConfig{
			Provider:    ProviderGemini,
			Model:       "gemini-2.0-flash",
			Temperature: 0.2,
			APIKeyEnv:   "GEMINI_API_KEY",
		},
		OutputDir: ".apiweave",
	}
}

// Validate checks the config for invalid values and returns a descriptive error.
func (c Config) Validate() error {
	// 1. thresholds are confidences
	if c.ConfidenceThreshold < 0 || c.ConfidenceThreshold > 1 {
		return fmt.Errorf("confidence_threshold must be between 0.0 and 1.0 (got %.2f)", c.ConfidenceThreshold)
	}
	if c.SimilarityCutoff < 0 || c.SimilarityCutoff > 1 {
		return fmt.Errorf("similarity_cutoff must be between 0.0 and 1.0 (got %.2f)", c.SimilarityCutoff)
	}

	// 2. fan-out and timeouts
	if c.MaxConcurrency <= 0 {
		return fmt.Errorf("max_concurrency must be > 0 (got %d)", c.MaxConcurrency)
	}
	if c.PairTimeout <= 0 {
		return fmt.Errorf("pair_timeout must be > 0 (got %s)", c.PairTimeout)
	}

	// 3. reasoner
	valid := false
	for _, p := range ValidProviders {
		if c.Reasoner.Provider == p {
			valid = true
			break
		}
	}
	if !valid {
		return fmt.Errorf("unknown reasoner.provider %q (valid: gemini, heuristic)", c.Reasoner.Provider)
	}
	if c.Reasoner.Provider == ProviderGemini && c.Reasoner.Model == "" {
		return fmt.Errorf("reasoner.model must not be empty for provider gemini")
	}
	if c.Reasoner.Temperature < 0 || c.Reasoner.Temperature > 2 {
		return fmt.Errorf("reasoner.temperature must be between 0.0 and 2.0 (got %.2f)", c.Reasoner.Temperature)
	}

	if c.OutputDir == "" {
		return fmt.Errorf("output_dir must not be empty")
	}
	return nil
}

// MappingOptions returns the engine parameters derived from the config.
func (c Config) MappingOptions() MappingOptions {
	return MappingOptions{
		SimilarityCutoff: c.SimilarityCutoff,
		MaxConcurrency:   c.MaxConcurrency,
		PairTimeout:      c.PairTimeout,
	}
}

// MappingOptions tunes the mapping engine.
type MappingOptions struct {
	SimilarityCutoff float64
	MaxConcurrency   int
	PairTimeout      time.Duration
}
