package reasoner

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/abdidvp/apiweave/internal/domain"
	"github.com/joho/godotenv"
)

// LoadDotEnv loads dir/.env into the process environment without
// overriding variables that are already set. A missing file is not an error.
func LoadDotEnv(dir string) error {
	err := godotenv.Load(filepath.Join(dir, ".env"))
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}
	return nil
}

// New returns the reasoner selected by cfg. offline forces the heuristic
// reasoner regardless of the configured provider.
func New(ctx context.Context, cfg domain.ReasonerConfig, offline bool) (domain.Reasoner, error) {
	if offline || cfg.Provider == domain.ProviderHeuristic {
		return NewHeuristic(), nil
	}

	switch cfg.Provider {
	case domain.ProviderGemini:
		key := os.Getenv(cfg.APIKeyEnv)
		if key == "" {
			return nil, fmt.Errorf("%s is not set (export it, add it to .env, or run with --offline)", cfg.APIKeyEnv)
		}
		return NewGemini(ctx, key, cfg.Model, cfg.Temperature)
	default:
		return nil, fmt.Errorf("unknown reasoner provider %q", cfg.Provider)
	}
}
