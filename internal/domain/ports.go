package domain

import "context"

// PairRequest is one stateless call to the external reasoning service.
type PairRequest struct {
	Source Entity
	Target Entity
	Prompt string
}

// Reasoner proposes a correspondence for one entity pair. The reply is raw
// text; parsing and validation happen in the mapping engine.
type Reasoner interface {
	Propose(ctx context.Context, req PairRequest) (string, error)
}

// ConfigLoader loads pipeline configuration for a workspace.
type ConfigLoader interface {
	Load(workspace string) (Config, error)
}

// RunStore persists pipeline runs under an output directory.
type RunStore interface {
	Load(dir, digest string) (*RunRecord, error)
	Save(dir string, rec *RunRecord) error
	Invalidate(dir, digest string) error
}

// PlanEntry is one line of plan generation history.
type PlanEntry struct {
	ID           string  `json:"id"`
	Timestamp    string  `json:"timestamp"`
	CommitHash   string  `json:"commit_hash,omitempty"`
	Digest       string  `json:"digest"`
	FlowSteps    int     `json:"flow_steps"`
	BacklogItems int     `json:"backlog_items"`
	Threshold    float64 `json:"threshold"`
}

// PlanHistory records generated plans under an output directory.
type PlanHistory interface {
	Save(dir string, entry PlanEntry) error
	Load(dir string) ([]PlanEntry, error)
	// Latest returns the last entry recorded for digest, nil if none.
	Latest(dir, digest string) (*PlanEntry, error)
}

// GitInfo reads repository metadata for history entries.
type GitInfo interface {
	IsGitRepo(path string) bool
	CommitHash(path string) (string, error)
}
