// Package history keeps the append-only log of generated plans.
package history

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/abdidvp/apiweave/internal/domain"
)

const historyFile = "history/plans.json"

// FileHistory implements domain.PlanHistory as a JSON array per output
// directory. The file is replaced through a rename, never rewritten in place.
type FileHistory struct{}

func New() *FileHistory {
	return &FileHistory{}
}

// Path is where the history of an output directory lives.
func Path(dir string) string {
	return filepath.Join(dir, historyFile)
}

// Save appends entry after every entry already recorded.
func (h *FileHistory) Save(dir string, entry domain.PlanEntry) error {
	entries, err := h.Load(dir)
	if err != nil {
		return err
	}
	return writeEntries(Path(dir), append(entries, entry))
}

// Load returns entries in recording order. A missing log is empty.
func (h *FileHistory) Load(dir string) ([]domain.PlanEntry, error) {
	fp := Path(dir)
	data, err := os.ReadFile(fp)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading plan history: %w", err)
	}

	var entries []domain.PlanEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decoding plan history %s: %w", fp, err)
	}
	return entries, nil
}

// Latest returns the last entry recorded for digest, or nil if the digest
// was never recorded.
func (h *FileHistory) Latest(dir, digest string) (*domain.PlanEntry, error) {
	entries, err := h.Load(dir)
	if err != nil {
		return nil, err
	}
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Digest == digest {
			e := entries[i]
			return &e, nil
		}
	}
	return nil, nil
}

func writeEntries(fp string, entries []domain.PlanEntry) error {
	if err := os.MkdirAll(filepath.Dir(fp), 0755); err != nil {
		return fmt.Errorf("creating history directory: %w", err)
	}
	data, err := json.MarshalIndent(entries, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding plan history: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(fp), ".plans-*.json")
	if err != nil {
		return fmt.Errorf("writing plan history: %w", err)
	}
	defer os.Remove(tmp.Name()) // no-op once renamed

	if _, err := tmp.Write(append(data, '\n')); err != nil {
		tmp.Close()
		return fmt.Errorf("writing plan history: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("writing plan history: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0644); err != nil {
		return fmt.Errorf("writing plan history: %w", err)
	}
	if err := os.Rename(tmp.Name(), fp); err != nil {
		return fmt.Errorf("replacing plan history: %w", err)
	}
	return nil
}
