package application

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/abdidvp/apiweave/internal/domain"
	"github.com/abdidvp/apiweave/internal/domain/contract"
	"github.com/abdidvp/apiweave/internal/domain/normalize"
	"github.com/abdidvp/apiweave/internal/domain/plan"
	"github.com/abdidvp/apiweave/internal/domain/questionnaire"
)

// ReasonerFactory builds the reasoner for a mapping run. offline selects the
// deterministic local reasoner.
type ReasonerFactory func(ctx context.Context, cfg domain.ReasonerConfig, offline bool) (domain.Reasoner, error)

// PipelineService runs the stages and gates every boundary:
// extraction -> normalize -> map -> (human) -> answers -> plan.
type PipelineService struct {
	configLoader domain.ConfigLoader
	store        domain.RunStore
	history      domain.PlanHistory
	git          domain.GitInfo
	reasoners    ReasonerFactory
	log          *zap.Logger
	now          func() time.Time
}

func NewPipelineService(
	configLoader domain.ConfigLoader,
	store domain.RunStore,
	history domain.PlanHistory,
	git domain.GitInfo,
	reasoners ReasonerFactory,
	log *zap.Logger,
) *PipelineService {
	if log == nil {
		log = zap.NewNop()
	}
	return &PipelineService{
		configLoader: configLoader,
		store:        store,
		history:      history,
		git:          git,
		reasoners:    reasoners,
		log:          log,
		now:          time.Now,
	}
}

// Config loads the workspace configuration.
func (s *PipelineService) Config(workspace string) (domain.Config, error) {
	cfg, err := s.configLoader.Load(workspace)
	if err != nil {
		return domain.Config{}, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

// OutputDir resolves where runs and history are written. override wins over
// the configured directory; relative paths are taken from the workspace.
func OutputDir(workspace string, cfg domain.Config, override string) string {
	dir := cfg.OutputDir
	if override != "" {
		dir = override
	}
	if filepath.IsAbs(dir) {
		return dir
	}
	return filepath.Join(workspace, dir)
}

// DecodeExtraction validates a raw extraction document and decodes it.
func DecodeExtraction(doc any) (domain.Extraction, error) {
	var ext domain.Extraction
	vs := contract.Decode(contract.KindExtractedAPI, doc, contract.Refs{}, &ext)
	if err := vs.Err(string(contract.KindExtractedAPI)); err != nil {
		return domain.Extraction{}, err
	}
	return ext, nil
}

// DecodeMappingResult validates a raw mapping_result document and decodes it.
func DecodeMappingResult(doc any) (domain.MappingResult, error) {
	var result domain.MappingResult
	vs := contract.Decode(contract.KindMappingResult, doc, contract.Refs{}, &result)
	if err := vs.Err(string(contract.KindMappingResult)); err != nil {
		return domain.MappingResult{}, err
	}
	return result, nil
}

// Normalize gates an extraction and returns its canonical view.
func (s *PipelineService) Normalize(ext domain.Extraction, side domain.Side) (domain.NormalizedView, error) {
	view, vs := normalize.Normalize(ext, side)
	if err := vs.Err(string(contract.KindExtractedAPI)); err != nil {
		return domain.NormalizedView{}, err
	}
	s.log.Debug("normalized extraction",
		zap.String("side", string(side)),
		zap.Int("entities", len(view.Entities)),
		zap.Int("operations", len(view.Operations)),
	)
	return view, nil
}

// MapRequest asks for a mapping between two extractions.
type MapRequest struct {
	Workspace   string
	ExtractionA domain.Extraction
	ExtractionB domain.Extraction
	Offline     bool
	// Fresh ignores and replaces a cached run for the same inputs.
	Fresh bool
	// Save persists the run under the output directory.
	Save   bool
	OutDir string
}

// MapResponse is a mapping result with the run it belongs to.
type MapResponse struct {
	Digest string
	ViewA  domain.NormalizedView
	ViewB  domain.NormalizedView
	Result domain.MappingResult
	Cached bool
}

// Map normalizes both extractions and runs the mapping engine. Runs are keyed
// by the hash of both normalized views and the mapping configuration; a
// cached run for the same key is reused unless Fresh is set.
func (s *PipelineService) Map(ctx context.Context, req MapRequest) (*MapResponse, error) {
	cfg, err := s.Config(req.Workspace)
	if err != nil {
		return nil, err
	}

	viewA, err := s.Normalize(req.ExtractionA, domain.SideA)
	if err != nil {
		return nil, fmt.Errorf("normalizing API A: %w", err)
	}
	viewB, err := s.Normalize(req.ExtractionB, domain.SideB)
	if err != nil {
		return nil, fmt.Errorf("normalizing API B: %w", err)
	}

	rc := cfg.Reasoner
	if req.Offline {
		rc.Provider = domain.ProviderHeuristic
	}
	hashA, hashB := hashOf(viewA), hashOf(viewB)
	cfgHash := hashOf(struct {
		Options  domain.MappingOptions
		Reasoner domain.ReasonerConfig
	}{cfg.MappingOptions(), rc})
	digest := hashOf([]string{hashA, hashB, cfgHash})
	outDir := OutputDir(req.Workspace, cfg, req.OutDir)

	if req.Save {
		rec, err := s.store.Load(outDir, digest)
		if err != nil {
			s.log.Warn("ignoring unreadable cached run", zap.String("digest", digest), zap.Error(err))
			rec = nil
		}
		switch {
		case rec == nil:
		case req.Fresh || rec.MappingResult == nil || rec.IsInvalidated(hashA, hashB, cfgHash):
			if err := s.store.Invalidate(outDir, digest); err != nil {
				return nil, fmt.Errorf("invalidating run %s: %w", digest, err)
			}
		default:
			s.log.Info("reusing cached mapping", zap.String("digest", digest))
			return &MapResponse{Digest: digest, ViewA: viewA, ViewB: viewB, Result: *rec.MappingResult, Cached: true}, nil
		}
	}

	r, err := s.reasoners(ctx, rc, req.Offline)
	if err != nil {
		return nil, fmt.Errorf("creating reasoner: %w", err)
	}
	result, err := NewMappingService(r, cfg.MappingOptions(), s.log).Map(ctx, viewA, viewB)
	if err != nil {
		return nil, fmt.Errorf("mapping: %w", err)
	}

	if req.Save {
		rec := &domain.RunRecord{
			Digest:        digest,
			ExtractionA:   hashA,
			ExtractionB:   hashB,
			ConfigHash:    cfgHash,
			MappingResult: &result,
		}
		if err := s.store.Save(outDir, rec); err != nil {
			return nil, fmt.Errorf("saving run: %w", err)
		}
	}
	return &MapResponse{Digest: digest, ViewA: viewA, ViewB: viewB, Result: result}, nil
}

// ValidateAnswers checks an answers document (decoded or typed) against a
// mapping result using the workspace threshold. Any violation yields *domain.IncompleteAnswersError.
func (s *PipelineService) ValidateAnswers(workspace string, doc any, result domain.MappingResult) (domain.IntegrationAnswers, error) {
	cfg, err := s.Config(workspace)
	if err != nil {
		return domain.IntegrationAnswers{}, err
	}
	return validateAnswers(doc, result, cfg.ConfidenceThreshold)
}

func validateAnswers(doc any, result domain.MappingResult, threshold float64) (domain.IntegrationAnswers, error) {
	if typed, ok := doc.(domain.IntegrationAnswers); ok {
		var vs contract.Violations
		if doc, vs = contract.ToDocument(typed); !vs.Valid() {
			return domain.IntegrationAnswers{}, &domain.IncompleteAnswersError{Violations: vs}
		}
	}
	answers, vs := questionnaire.ValidateFor(doc, result, threshold)
	if !vs.Valid() {
		return domain.IntegrationAnswers{}, &domain.IncompleteAnswersError{Violations: vs}
	}
	return answers, nil
}

// Template returns pre-filled answers for a mapping result. The defaults are
// a starting point for the human; they are never merged during validation.
func (s *PipelineService) Template(workspace string, result domain.MappingResult) (domain.IntegrationAnswers, error) {
	cfg, err := s.Config(workspace)
	if err != nil {
		return domain.IntegrationAnswers{}, err
	}
	return questionnaire.Template(questionnaire.AcceptedPairs(result, cfg.ConfidenceThreshold, nil)), nil
}

// PlanRequest asks for a plan from a mapping result and raw answers.
type PlanRequest struct {
	Workspace string
	Result    domain.MappingResult
	Answers   any
	// Threshold overrides the configured confidence threshold when set.
	Threshold *float64
	Save      bool
	OutDir    string
}

// PlanResponse is the generated plan in both representations.
type PlanResponse struct {
	Plan     domain.IntegrationPlan
	Markdown string
	Entry    *domain.PlanEntry
	// Previous is the last history entry with the same digest, if any.
	Previous *domain.PlanEntry
}

// GeneratePlan validates answers, generates the plan and renders it. With
// Save set, the run is persisted under the plan digest and a history entry
// is appended.
func (s *PipelineService) GeneratePlan(req PlanRequest) (*PlanResponse, error) {
	cfg, err := s.Config(req.Workspace)
	if err != nil {
		return nil, err
	}
	threshold := cfg.ConfidenceThreshold
	if req.Threshold != nil {
		threshold = *req.Threshold
	}
	if err := plan.CheckThreshold(threshold); err != nil {
		return nil, err
	}

	answers, err := validateAnswers(req.Answers, req.Result, threshold)
	if err != nil {
		return nil, err
	}

	p, err := plan.Generate(req.Result, answers, plan.Options{Threshold: threshold})
	if err != nil {
		return nil, err
	}
	md, err := plan.RenderMarkdown(p)
	if err != nil {
		return nil, fmt.Errorf("rendering plan: %w", err)
	}
	resp := &PlanResponse{Plan: p, Markdown: md}

	s.log.Info("plan generated",
		zap.String("digest", p.Digest),
		zap.Int("flow_steps", len(p.FlowSteps)),
		zap.Int("backlog", len(p.Backlog)),
		zap.Int("risks", len(p.Risks)),
	)
	if !req.Save {
		return resp, nil
	}

	outDir := OutputDir(req.Workspace, cfg, req.OutDir)
	prev, err := s.history.Latest(outDir, p.Digest)
	if err != nil {
		return nil, fmt.Errorf("loading history: %w", err)
	}
	if prev != nil {
		s.log.Info("plan unchanged since previous generation", zap.String("id", prev.ID), zap.String("timestamp", prev.Timestamp))
		resp.Previous = prev
	}

	result := req.Result
	rec := &domain.RunRecord{
		Digest:        p.Digest,
		MappingResult: &result,
		Answers:       &answers,
		Plan:          &p,
		PlanMarkdown:  md,
	}
	if err := s.store.Save(outDir, rec); err != nil {
		return nil, fmt.Errorf("saving plan: %w", err)
	}

	entry := domain.PlanEntry{
		ID:           uuid.NewString(),
		Timestamp:    s.now().UTC().Format(time.RFC3339),
		Digest:       p.Digest,
		FlowSteps:    len(p.FlowSteps),
		BacklogItems: len(p.Backlog),
		Threshold:    threshold,
	}
	if s.git != nil && s.git.IsGitRepo(req.Workspace) {
		if hash, err := s.git.CommitHash(req.Workspace); err == nil {
			entry.CommitHash = hash
		} else {
			s.log.Debug("no commit hash for history entry", zap.Error(err))
		}
	}
	if err := s.history.Save(outDir, entry); err != nil {
		return nil, fmt.Errorf("saving history: %w", err)
	}
	resp.Entry = &entry
	return resp, nil
}

// History returns the plan history recorded for the workspace.
func (s *PipelineService) History(workspace, outDir string) ([]domain.PlanEntry, error) {
	cfg, err := s.Config(workspace)
	if err != nil {
		return nil, err
	}
	return s.history.Load(OutputDir(workspace, cfg, outDir))
}

// IsHalting reports whether err is one of the errors that stop the pipeline
// with a field-addressable violation list.
func IsHalting(err error) bool {
	return errors.Is(err, domain.ErrContractViolation) ||
		errors.Is(err, domain.ErrIncompleteAnswers) ||
		errors.Is(err, domain.ErrPlanGeneration)
}

func hashOf(v any) string {
	data, _ := json.Marshal(v)
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}
