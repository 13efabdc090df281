package cache

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/abdidvp/apiweave/internal/domain"
)

// Artifact file names inside a run directory.
const (
	RunFile           = "run.json"
	MappingResultFile = "mapping_result.json"
	AnswersFile       = "answers.json"
	PlanFile          = "plan.json"
	PlanMarkdownFile  = "plan.md"
)

// Store is a file-based implementation of domain.RunStore.
type Store struct{}

// New creates a new file-based run store.
func New() *Store {
	return &Store{}
}

type runMeta struct {
	Digest      string `json:"digest"`
	ExtractionA string `json:"extraction_a_hash,omitempty"`
	ExtractionB string `json:"extraction_b_hash,omitempty"`
	ConfigHash  string `json:"config_hash,omitempty"`
}

// Load reads a run from disk. Returns (nil, nil) if no run exists.
func (s *Store) Load(dir, digest string) (*domain.RunRecord, error) {
	var meta runMeta
	found, err := readJSON(filepath.Join(runDir(dir, digest), RunFile), &meta)
	if err != nil || !found {
		return nil, err
	}

	rec := &domain.RunRecord{
		Digest:      meta.Digest,
		ExtractionA: meta.ExtractionA,
		ExtractionB: meta.ExtractionB,
		ConfigHash:  meta.ConfigHash,
	}

	var result domain.MappingResult
	if ok, err := readJSON(filepath.Join(runDir(dir, digest), MappingResultFile), &result); err != nil {
		return nil, err
	} else if ok {
		rec.MappingResult = &result
	}

	var answers domain.IntegrationAnswers
	if ok, err := readJSON(filepath.Join(runDir(dir, digest), AnswersFile), &answers); err != nil {
		return nil, err
	} else if ok {
		rec.Answers = &answers
	}

	var plan domain.IntegrationPlan
	if ok, err := readJSON(filepath.Join(runDir(dir, digest), PlanFile), &plan); err != nil {
		return nil, err
	} else if ok {
		rec.Plan = &plan
	}

	md, err := os.ReadFile(filepath.Join(runDir(dir, digest), PlanMarkdownFile))
	switch {
	case err == nil:
		rec.PlanMarkdown = string(md)
	case !os.IsNotExist(err):
		return nil, err
	}
	return rec, nil
}

// Save writes a run to disk, creating directories as needed. Artifacts that
// are nil on the record are left untouched.
func (s *Store) Save(dir string, rec *domain.RunRecord) error {
	rd := runDir(dir, rec.Digest)
	if err := os.MkdirAll(rd, 0755); err != nil {
		return err
	}

	meta := runMeta{
		Digest:      rec.Digest,
		ExtractionA: rec.ExtractionA,
		ExtractionB: rec.ExtractionB,
		ConfigHash:  rec.ConfigHash,
	}
	if err := writeJSON(filepath.Join(rd, RunFile), meta); err != nil {
		return err
	}
	if rec.MappingResult != nil {
		if err := writeJSON(filepath.Join(rd, MappingResultFile), rec.MappingResult); err != nil {
			return err
		}
	}
	if rec.Answers != nil {
		if err := writeJSON(filepath.Join(rd, AnswersFile), rec.Answers); err != nil {
			return err
		}
	}
	if rec.Plan != nil {
		if err := writeJSON(filepath.Join(rd, PlanFile), rec.Plan); err != nil {
			return err
		}
	}
	if rec.PlanMarkdown != "" {
		return os.WriteFile(filepath.Join(rd, PlanMarkdownFile), []byte(rec.PlanMarkdown), 0644)
	}
	return nil
}

// Invalidate removes the run directory for the given digest.
func (s *Store) Invalidate(dir, digest string) error {
	if err := os.RemoveAll(runDir(dir, digest)); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

// RunDir returns the directory a run is stored in.
func RunDir(dir, digest string) string {
	return runDir(dir, digest)
}

func runDir(dir, digest string) string {
	return filepath.Join(dir, "runs", digest)
}

func readJSON(path string, v any) (bool, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil // absent artifact is not an error
		}
		return false, err
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, err
	}
	return true, nil
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}
