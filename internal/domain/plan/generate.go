// Package plan builds the integration plan from a validated mapping result
// and validated answers. Everything here is a pure function of its inputs.
package plan

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/abdidvp/apiweave/internal/domain"
	"github.com/abdidvp/apiweave/internal/domain/contract"
	"github.com/abdidvp/apiweave/internal/domain/questionnaire"
)

// Options tunes plan generation.
type Options struct {
	// Threshold is the minimum entity mapping confidence for a flow step.
	Threshold float64
}

const noRisks = "No explicit risks detected from the mapping stage"

// flowMetrics are reported by every flow step.
var flowMetrics = []string{"sync_success_rate", "sync_error_rate", "retry_count", "latency_p95"}

// Generate combines result and answers into an integration plan. It fails
// only when an input breaks its contract; given valid inputs the same plan is
// produced on every call.
func Generate(result domain.MappingResult, answers domain.IntegrationAnswers, opts Options) (domain.IntegrationPlan, error) {
	if err := CheckThreshold(opts.Threshold); err != nil {
		return domain.IntegrationPlan{}, err
	}
	if vs := contract.Check(contract.KindMappingResult, result, contract.Refs{}); !vs.Valid() {
		return domain.IntegrationPlan{}, &domain.PlanGenerationError{Reason: "mapping result breaks its contract", Violations: vs}
	}

	result = cloneResult(result)
	domain.SortMappingResult(&result)

	known := make([]domain.EntityPair, 0, len(result.EntityMappings))
	for _, m := range result.EntityMappings {
		known = append(known, m.Pair())
	}
	refs := contract.Refs{
		Accepted: questionnaire.AcceptedPairs(result, opts.Threshold, answers.Overrides),
		Known:    known,
	}
	if vs := contract.Check(contract.KindAnswers, answers, refs); !vs.Valid() {
		return domain.IntegrationPlan{}, &domain.PlanGenerationError{Reason: "integration answers break their contract", Violations: vs}
	}
	answers = questionnaire.Canonical(answers)

	g := generator{result: result, answers: answers, threshold: opts.Threshold}
	p := g.build()

	digest, err := Digest(result, answers, opts.Threshold)
	if err != nil {
		return domain.IntegrationPlan{}, &domain.PlanGenerationError{Reason: err.Error()}
	}
	p.Digest = digest

	if vs := contract.Check(contract.KindPlan, p, contract.Refs{}); !vs.Valid() {
		return domain.IntegrationPlan{}, &domain.PlanGenerationError{Reason: "generated plan breaks its contract", Violations: vs}
	}
	return p, nil
}

// CheckThreshold rejects thresholds outside [0, 1], NaN and infinities
// included.
func CheckThreshold(threshold float64) error {
	if math.IsNaN(threshold) || math.IsInf(threshold, 0) {
		return &domain.PlanGenerationError{
			Reason: fmt.Sprintf("threshold must be a finite number (got %v)", threshold),
		}
	}
	if threshold < 0 || threshold > 1 {
		return &domain.PlanGenerationError{
			Reason: fmt.Sprintf("threshold must be between 0.0 and 1.0 (got %.2f)", threshold),
		}
	}
	return nil
}

// Digest identifies a plan by its inputs: the SHA-256 of the canonical JSON
// of the mapping result, the answers and the threshold.
func Digest(result domain.MappingResult, answers domain.IntegrationAnswers, threshold float64) (string, error) {
	data, err := json.Marshal(struct {
		MappingResult domain.MappingResult      `json:"mappingResult"`
		Answers       domain.IntegrationAnswers `json:"answers"`
		Threshold     float64                   `json:"threshold"`
	}{result, answers, threshold})
	if err != nil {
		return "", fmt.Errorf("encoding plan inputs: %w", err)
	}
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:]), nil
}

type generator struct {
	result    domain.MappingResult
	answers   domain.IntegrationAnswers
	threshold float64
}

func (g generator) build() domain.IntegrationPlan {
	p := domain.IntegrationPlan{
		Name:      g.name(),
		FlowSteps: make([]domain.FlowStep, 0, len(g.result.EntityMappings)),
		Backlog:   make([]domain.BacklogEntry, 0),
		Threshold: g.threshold,
	}
	risks := make(map[string]bool)

	for _, m := range g.result.EntityMappings {
		pair := m.Pair()
		overridden := g.answers.IsOverridden(pair)
		if m.Confidence < g.threshold && !overridden {
			p.Backlog = append(p.Backlog, domain.BacklogEntry{
				EntityPair:      pair.String(),
				Reason:          fmt.Sprintf("confidence %.2f is below threshold %.2f", m.Confidence, g.threshold),
				SuggestedAction: "Review the proposed field mappings, then add the pair to overrides or map it by hand",
				Confidence:      m.Confidence,
			})
			continue
		}

		step := g.step(m, overridden && m.Confidence < g.threshold)
		p.FlowSteps = append(p.FlowSteps, step)
		if step.Overridden {
			p.Summary.OverrideCount++
			risks[fmt.Sprintf("%s runs by override at confidence %.2f (threshold %.2f)", pair, m.Confidence, g.threshold)] = true
		}
		if m.Ambiguous {
			risks[fmt.Sprintf("%s has several candidate targets; confirm %s before enabling the flow", pair.Source, pair)] = true
		}
		for _, fm := range m.FieldMappings {
			if fm.Confidence < g.threshold {
				risks[fmt.Sprintf("Low confidence field mapping in %s: %s -> %s (%.2f)", pair, fm.SourceField, fm.TargetField, fm.Confidence)] = true
			}
		}
	}

	for _, u := range g.result.UnmappedEntities {
		p.Backlog = append(p.Backlog, unmappedEntry(u))
	}

	for _, w := range g.result.Warnings {
		switch w.Code {
		case domain.WarnExternalServiceFailure, domain.WarnContractViolation:
			risks["Mapping incomplete: "+w.Message] = true
		}
	}
	if g.answers.Direction == domain.DirectionBidirectional {
		risks[fmt.Sprintf("Bidirectional sync resolves write conflicts with %s; both sides need reliable update timestamps", g.answers.ConflictStrategy)] = true
	}
	if g.answers.PIIHandling == "none" {
		risks["PII handling is none: personal data crosses the integration unmasked"] = true
	}
	if g.answers.Idempotency != nil && !*g.answers.Idempotency && g.answers.RetryPolicy.MaxAttempts > 1 {
		risks["Retries are enabled without idempotent writes; duplicates are possible"] = true
	}

	sort.Slice(p.FlowSteps, func(i, j int) bool { return p.FlowSteps[i].EntityPair < p.FlowSteps[j].EntityPair })
	sort.Slice(p.Backlog, func(i, j int) bool {
		if p.Backlog[i].EntityPair != p.Backlog[j].EntityPair {
			return p.Backlog[i].EntityPair < p.Backlog[j].EntityPair
		}
		return p.Backlog[i].Reason < p.Backlog[j].Reason
	})

	p.Risks = make([]string, 0, len(risks))
	for r := range risks {
		p.Risks = append(p.Risks, r)
	}
	sort.Strings(p.Risks)
	if len(p.Risks) == 0 {
		p.Risks = append(p.Risks, noRisks)
	}

	p.ImplementationTasks = g.tasks(p.FlowSteps)

	p.Summary.Direction = g.answers.Direction
	p.Summary.Trigger = g.answers.TriggerMode
	p.Summary.Goal = g.answers.Goal
	p.Summary.FlowCount = len(p.FlowSteps)
	p.Summary.BacklogCount = len(p.Backlog)
	return p
}

func (g generator) step(m domain.EntityMapping, overridden bool) domain.FlowStep {
	pair := m.Pair()
	step := domain.FlowStep{
		EntityPair:      pair.String(),
		SourceEntity:    m.SourceEntity,
		TargetEntity:    m.TargetEntity,
		Direction:       g.answers.Direction,
		Trigger:         g.answers.TriggerMode,
		Confidence:      m.Confidence,
		Overridden:      overridden,
		Transformations: make([]domain.Transformation, 0, len(m.FieldMappings)),
		ErrorRetry: domain.ErrorRetryRule{
			MaxAttempts: g.answers.RetryPolicy.MaxAttempts,
			Backoff:     g.answers.RetryPolicy.Backoff,
			Strategy:    g.answers.ErrorStrategy,
		},
		AuthStrategy:        g.auth(),
		Steps:               g.runbook(m),
		IdempotencyRequired: g.idempotent(),
		Observability: domain.Observability{
			Metrics: append([]string(nil), flowMetrics...),
			Owner:   g.answers.OwnershipNotes,
		},
	}
	for _, fm := range m.FieldMappings {
		t := domain.Transformation{
			SourceField: fm.SourceField,
			TargetField: fm.TargetField,
			Confidence:  fm.Confidence,
			Kind:        domain.TransformDirect,
		}
		if fm.Transformation != "" {
			t.Kind = domain.TransformConvert
			t.Note = fm.Transformation
		}
		step.Transformations = append(step.Transformations, t)
	}

	owner, ok := g.answers.OwnerOf(pair)
	if !ok {
		owner = g.answers.Direction.Sources()[0]
	}
	step.Ownership = owner
	if g.answers.Direction == domain.DirectionBidirectional {
		step.ConflictStrategy = g.answers.ConflictStrategy
	}
	return step
}

// runbook is the ordered list of actions one execution of the flow takes.
func (g generator) runbook(m domain.EntityMapping) []string {
	capture := fmt.Sprintf("Capture %s change event", m.SourceEntity)
	upsert := fmt.Sprintf("Upsert %s in destination API", m.TargetEntity)
	switch g.answers.Direction {
	case domain.DirectionBToA:
		capture = fmt.Sprintf("Capture %s change event", m.TargetEntity)
		upsert = fmt.Sprintf("Upsert %s in destination API", m.SourceEntity)
	case domain.DirectionBidirectional:
		capture = fmt.Sprintf("Capture %s or %s change event", m.SourceEntity, m.TargetEntity)
		upsert = fmt.Sprintf("Upsert the counterpart record in the other API, resolving conflicts by %s", g.answers.ConflictStrategy)
	}
	return []string{
		capture,
		"Apply field transformations",
		upsert,
		"Record outcome and retry on transient failures",
	}
}

// idempotent defaults to true when the answers leave it open.
func (g generator) idempotent() bool {
	return g.answers.Idempotency == nil || *g.answers.Idempotency
}

// tasks lists the build work behind the plan's flow steps. The list is fixed
// in shape; only the details come from the inputs.
func (g generator) tasks(steps []domain.FlowStep) []string {
	auth := g.auth()
	fields := 0
	for _, s := range steps {
		fields += len(s.Transformations)
	}
	owner := g.answers.OwnershipNotes
	if owner == "" {
		owner = "TBD"
	}
	strategy := g.answers.ErrorStrategy
	if strategy == "" {
		strategy = "retry_then_dlq"
	}
	return []string{
		fmt.Sprintf("Implement source connector authentication (%s) and token refresh", auth.Source),
		fmt.Sprintf("Implement destination connector upsert operations (%s)", auth.Target),
		fmt.Sprintf("Build transformation layer for %d mapped field(s) across %d flow step(s)", fields, len(steps)),
		fmt.Sprintf("Implement retry (%d attempt(s), %s backoff) and dead-letter behavior (%s)",
			g.answers.RetryPolicy.MaxAttempts, g.answers.RetryPolicy.Backoff, strategy),
		"Configure monitoring ownership: " + owner,
	}
}

// auth carries both sides' auth metadata through unchanged, oriented by the
// direction data flows in.
func (g generator) auth() domain.AuthStrategy {
	a := g.result.Side(domain.SideA).Auth.Strategy()
	b := g.result.Side(domain.SideB).Auth.Strategy()
	if g.answers.Direction == domain.DirectionBToA {
		return domain.AuthStrategy{Source: b, Target: a}
	}
	return domain.AuthStrategy{Source: a, Target: b}
}

func (g generator) name() string {
	a := g.result.Side(domain.SideA).Title
	if a == "" {
		a = "API A"
	}
	b := g.result.Side(domain.SideB).Title
	if b == "" {
		b = "API B"
	}
	return a + " ↔ " + b + " Integration Plan"
}

func unmappedEntry(u domain.UnmappedEntity) domain.BacklogEntry {
	pair := u.Name + "→?"
	other := domain.SideB
	if u.Side == domain.SideB {
		pair = "?→" + u.Name
		other = domain.SideA
	}

	e := domain.BacklogEntry{
		EntityPair: pair,
		Reason:     fmt.Sprintf("%s (%s) has no counterpart on side %s: %s", u.Name, u.Side, other, strings.ReplaceAll(u.Reason, "_", " ")),
		Confidence: 0,
	}
	switch u.Reason {
	case domain.ReasonPairFailures:
		e.SuggestedAction = "Re-run mapping for this entity; every reasoning call for it failed"
	case domain.ReasonNotTargeted:
		e.SuggestedAction = fmt.Sprintf("Decide whether %s should be sourced, ignored or reverse-synced", u.Name)
	default:
		e.SuggestedAction = fmt.Sprintf("Decide how %s should be represented on side %s, or confirm it stays out of scope", u.Name, other)
	}
	return e
}

func cloneResult(r domain.MappingResult) domain.MappingResult {
	out := r
	out.EntityMappings = make([]domain.EntityMapping, len(r.EntityMappings))
	for i, m := range r.EntityMappings {
		m.FieldMappings = append(make([]domain.FieldMapping, 0, len(m.FieldMappings)), m.FieldMappings...)
		out.EntityMappings[i] = m
	}
	out.UnmappedEntities = append(make([]domain.UnmappedEntity, 0, len(r.UnmappedEntities)), r.UnmappedEntities...)
	out.Warnings = append(make([]domain.Warning, 0, len(r.Warnings)), r.Warnings...)
	return out
}
