package plan_test

import (
	"encoding/json"
	"errors"
	"math"
	"testing"

	"github.com/abdidvp/apiweave/internal/domain"
	"github.com/abdidvp/apiweave/internal/domain/contract"
	"github.com/abdidvp/apiweave/internal/domain/plan"
	"github.com/davecgh/go-spew/spew"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var dump = spew.ConfigState{Indent: "  ", SortKeys: true, DisablePointerAddresses: true}

func customerResult() domain.MappingResult {
	return domain.MappingResult{
		EntityMappings: []domain.EntityMapping{{
			SourceEntity: "Customer",
			TargetEntity: "Client",
			Confidence:   0.95,
			FieldMappings: []domain.FieldMapping{
				{SourceField: "name", TargetField: "fullName", Confidence: 0.9},
				{SourceField: "email", TargetField: "email", Confidence: 1.0},
			},
		}},
		UnmappedEntities: []domain.UnmappedEntity{},
		Warnings:         []domain.Warning{},
		Sides: map[domain.Side]domain.SideInfo{
			domain.SideA: {Title: "Shop", Auth: domain.AuthMetadata{Type: "http", Scheme: "bearer"}},
			domain.SideB: {Title: "CRM", Auth: domain.AuthMetadata{Type: "apiKey", In: "header", Name: "X-Key"}},
		},
	}
}

func customerAnswers() domain.IntegrationAnswers {
	return domain.IntegrationAnswers{
		Direction:   domain.DirectionAToB,
		TriggerMode: domain.TriggerWebhook,
		RetryPolicy: domain.RetryPolicy{MaxAttempts: 3, Backoff: domain.BackoffExponential},
		Ownership:   map[string]domain.Side{"Customer": domain.SideA},
	}
}

// mixedResult has one mapping above, one below and one ambiguous pair, plus
// unmapped entities on both sides and a failed pair.
func mixedResult() domain.MappingResult {
	r := customerResult()
	r.EntityMappings = append(r.EntityMappings,
		domain.EntityMapping{SourceEntity: "Order", TargetEntity: "Invoice", Confidence: 0.4, FieldMappings: []domain.FieldMapping{
			{SourceField: "total", TargetField: "amount", Confidence: 0.5, Transformation: "cents to decimal"},
		}},
		domain.EntityMapping{SourceEntity: "Address", TargetEntity: "Location", Confidence: 0.8, Ambiguous: true, FieldMappings: []domain.FieldMapping{}},
		domain.EntityMapping{SourceEntity: "Address", TargetEntity: "Site", Confidence: 0.75, Ambiguous: true, FieldMappings: []domain.FieldMapping{}},
	)
	r.UnmappedEntities = []domain.UnmappedEntity{
		{Side: domain.SideB, Name: "Lead", Reason: domain.ReasonNotTargeted},
		{Side: domain.SideA, Name: "Tag", Reason: domain.ReasonNoCandidates},
	}
	r.Warnings = []domain.Warning{
		{Code: domain.WarnExternalServiceFailure, Message: "pair Tag→Lead failed: timed out", EntityPair: "Tag→Lead"},
	}
	return r
}

func mixedAnswers() domain.IntegrationAnswers {
	a := customerAnswers()
	a.Ownership["Address"] = domain.SideA
	return a
}

func TestGenerate_CustomerScenario(t *testing.T) {
	p, err := plan.Generate(customerResult(), customerAnswers(), plan.Options{Threshold: 0.7})
	require.NoError(t, err)

	require.Len(t, p.FlowSteps, 1)
	step := p.FlowSteps[0]
	assert.Equal(t, "Customer→Client", step.EntityPair)
	assert.Len(t, step.Transformations, 2)
	assert.Equal(t, 3, step.ErrorRetry.MaxAttempts)
	assert.Equal(t, domain.BackoffExponential, step.ErrorRetry.Backoff)
	assert.Equal(t, domain.DirectionAToB, step.Direction)
	assert.Equal(t, domain.SideA, step.Ownership)
	assert.False(t, step.Overridden)
	assert.Equal(t, domain.AuthStrategy{Source: "http bearer", Target: "apiKey header:X-Key"}, step.AuthStrategy)
	assert.Empty(t, step.ConflictStrategy)
	assert.Empty(t, p.BacklogFor("Customer→Client"))
	assert.Empty(t, p.Backlog)

	assert.Equal(t, "Shop ↔ CRM Integration Plan", p.Name)
	assert.Len(t, p.Digest, 64)

	assert.Equal(t, []string{
		"Capture Customer change event",
		"Apply field transformations",
		"Upsert Client in destination API",
		"Record outcome and retry on transient failures",
	}, step.Steps)
	assert.True(t, step.IdempotencyRequired)
	assert.Equal(t, domain.Observability{
		Metrics: []string{"sync_success_rate", "sync_error_rate", "retry_count", "latency_p95"},
	}, step.Observability)
	assert.Equal(t, []string{
		"Implement source connector authentication (http bearer) and token refresh",
		"Implement destination connector upsert operations (apiKey header:X-Key)",
		"Build transformation layer for 2 mapped field(s) across 1 flow step(s)",
		"Implement retry (3 attempt(s), exponential backoff) and dead-letter behavior (retry_then_dlq)",
		"Configure monitoring ownership: TBD",
	}, p.ImplementationTasks)
}

func TestGenerate_RunbookFollowsDirection(t *testing.T) {
	a := customerAnswers()
	a.Direction = domain.DirectionBToA
	off := false
	a.Idempotency = &off
	a.OwnershipNotes = "crm-team"
	p, err := plan.Generate(customerResult(), a, plan.Options{Threshold: 0.7})
	require.NoError(t, err)
	step := p.FlowSteps[0]
	assert.Equal(t, "Capture Client change event", step.Steps[0])
	assert.Equal(t, "Upsert Customer in destination API", step.Steps[2])
	assert.False(t, step.IdempotencyRequired)
	assert.Equal(t, "crm-team", step.Observability.Owner)
	assert.Equal(t, "Configure monitoring ownership: crm-team", p.ImplementationTasks[4])

	a = customerAnswers()
	a.Direction = domain.DirectionBidirectional
	a.ConflictStrategy = domain.ConflictLastWriteWins
	p, err = plan.Generate(customerResult(), a, plan.Options{Threshold: 0.7})
	require.NoError(t, err)
	assert.Equal(t, "Capture Customer or Client change event", p.FlowSteps[0].Steps[0])
	assert.Contains(t, p.FlowSteps[0].Steps[2], "resolving conflicts by last_write_wins")
}

func TestGenerate_IsDeterministic(t *testing.T) {
	first, err := plan.Generate(mixedResult(), mixedAnswers(), plan.Options{Threshold: 0.7})
	require.NoError(t, err)

	shuffled := mixedResult()
	ms := shuffled.EntityMappings
	ms[0], ms[3] = ms[3], ms[0]
	shuffled.UnmappedEntities[0], shuffled.UnmappedEntities[1] = shuffled.UnmappedEntities[1], shuffled.UnmappedEntities[0]
	second, err := plan.Generate(shuffled, mixedAnswers(), plan.Options{Threshold: 0.7})
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("plans differ (-first +second):\n%s\nfirst: %s", diff, dump.Sdump(first))
	}

	a, err := json.Marshal(first)
	require.NoError(t, err)
	b, err := json.Marshal(second)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestGenerate_DoesNotMutateInput(t *testing.T) {
	r := mixedResult()
	before := dump.Sdump(r)
	_, err := plan.Generate(r, mixedAnswers(), plan.Options{Threshold: 0.7})
	require.NoError(t, err)
	assert.Equal(t, before, dump.Sdump(r))
}

func TestGenerate_ThresholdLaw(t *testing.T) {
	r := mixedResult()
	for _, threshold := range []float64{0, 0.4, 0.41, 0.7, 0.75, 0.8, 0.95, 0.96, 1} {
		a := mixedAnswers()
		for _, m := range r.EntityMappings {
			a.Ownership[m.SourceEntity] = domain.SideA
		}
		p, err := plan.Generate(r, a, plan.Options{Threshold: threshold})
		require.NoError(t, err, "threshold %v", threshold)

		for _, m := range r.EntityMappings {
			pair := m.Pair().String()
			_, hasStep := p.Step(pair)
			backlog := p.BacklogFor(pair)
			if m.Confidence >= threshold {
				assert.True(t, hasStep, "%s at %v should be a flow step", pair, threshold)
				assert.Empty(t, backlog, "%s at %v should not be in the backlog", pair, threshold)
			} else {
				assert.False(t, hasStep, "%s at %v should not be a flow step", pair, threshold)
				assert.Len(t, backlog, 1, "%s at %v should be in the backlog", pair, threshold)
			}
		}
	}
}

func TestGenerate_OverrideForcesFlowStep(t *testing.T) {
	a := mixedAnswers()
	a.Overrides = []string{"Order->Invoice"}
	a.Ownership["Order"] = domain.SideA

	p, err := plan.Generate(mixedResult(), a, plan.Options{Threshold: 0.7})
	require.NoError(t, err)

	step, ok := p.Step("Order→Invoice")
	require.True(t, ok)
	assert.True(t, step.Overridden)
	assert.Empty(t, p.BacklogFor("Order→Invoice"))
	assert.Equal(t, 1, p.Summary.OverrideCount)
	require.Len(t, step.Transformations, 1)
	assert.Equal(t, domain.TransformConvert, step.Transformations[0].Kind)
	assert.Equal(t, "cents to decimal", step.Transformations[0].Note)
	assert.Contains(t, p.Risks, "Order→Invoice runs by override at confidence 0.40 (threshold 0.70)")
}

func TestGenerate_BacklogAndRisks(t *testing.T) {
	p, err := plan.Generate(mixedResult(), mixedAnswers(), plan.Options{Threshold: 0.7})
	require.NoError(t, err)

	var pairs []string
	for _, b := range p.Backlog {
		pairs = append(pairs, b.EntityPair)
		assert.NotEmpty(t, b.SuggestedAction)
	}
	assert.Equal(t, []string{"?→Lead", "Order→Invoice", "Tag→?"}, pairs)

	var steps []string
	for _, s := range p.FlowSteps {
		steps = append(steps, s.EntityPair)
	}
	assert.Equal(t, []string{"Address→Location", "Address→Site", "Customer→Client"}, steps)

	assert.Contains(t, p.Risks, "Address has several candidate targets; confirm Address→Location before enabling the flow")
	assert.Contains(t, p.Risks, "Mapping incomplete: pair Tag→Lead failed: timed out")
	assert.IsIncreasing(t, p.Risks)
	assert.Equal(t, 3, p.Summary.FlowCount)
	assert.Equal(t, 3, p.Summary.BacklogCount)
}

func TestGenerate_BidirectionalAndDirectionAuth(t *testing.T) {
	a := customerAnswers()
	a.Direction = "b->a"
	p, err := plan.Generate(customerResult(), a, plan.Options{Threshold: 0.7})
	require.NoError(t, err)
	assert.Equal(t, domain.DirectionBToA, p.FlowSteps[0].Direction)
	assert.Equal(t, "apiKey header:X-Key", p.FlowSteps[0].AuthStrategy.Source)

	a = customerAnswers()
	a.Direction = domain.DirectionBidirectional
	a.ConflictStrategy = domain.ConflictManualReview
	a.PIIHandling = "none"
	p, err = plan.Generate(customerResult(), a, plan.Options{Threshold: 0.7})
	require.NoError(t, err)
	assert.Equal(t, domain.ConflictManualReview, p.FlowSteps[0].ConflictStrategy)
	assert.Len(t, p.Risks, 2)
}

func TestGenerate_NoRisksPlaceholder(t *testing.T) {
	p, err := plan.Generate(customerResult(), customerAnswers(), plan.Options{Threshold: 0.7})
	require.NoError(t, err)
	assert.Equal(t, []string{"No explicit risks detected from the mapping stage"}, p.Risks)
}

func TestGenerate_InvalidInputs(t *testing.T) {
	t.Run("incomplete answers", func(t *testing.T) {
		a := customerAnswers()
		a.Direction = domain.DirectionBidirectional
		a.Ownership = map[string]domain.Side{}
		_, err := plan.Generate(customerResult(), a, plan.Options{Threshold: 0.7})

		var pg *domain.PlanGenerationError
		require.True(t, errors.As(err, &pg))
		assert.True(t, pg.Violations.Has("conflictStrategy", contract.RuleRequiredIf))
		assert.True(t, pg.Violations.Has("ownership.Customer", contract.RuleRequired))
	})

	t.Run("broken mapping result", func(t *testing.T) {
		r := customerResult()
		r.EntityMappings[0].Confidence = 1.5
		_, err := plan.Generate(r, customerAnswers(), plan.Options{Threshold: 0.7})
		assert.ErrorIs(t, err, domain.ErrPlanGeneration)
		assert.True(t, domain.ViolationsOf(err).Has("entityMappings[0].confidence", contract.RuleMaximum))
	})

	t.Run("threshold out of range", func(t *testing.T) {
		_, err := plan.Generate(customerResult(), customerAnswers(), plan.Options{Threshold: 1.2})
		assert.ErrorIs(t, err, domain.ErrPlanGeneration)
	})

	t.Run("threshold not finite", func(t *testing.T) {
		for _, threshold := range []float64{math.NaN(), math.Inf(1), math.Inf(-1)} {
			_, err := plan.Generate(customerResult(), customerAnswers(), plan.Options{Threshold: threshold})
			require.ErrorIs(t, err, domain.ErrPlanGeneration)
			assert.Contains(t, err.Error(), "finite")
		}
	})
}

func TestDigest_TracksInputs(t *testing.T) {
	d1, err := plan.Digest(customerResult(), customerAnswers(), 0.7)
	require.NoError(t, err)
	d2, err := plan.Digest(customerResult(), customerAnswers(), 0.8)
	require.NoError(t, err)
	assert.NotEqual(t, d1, d2)

	again, err := plan.Digest(customerResult(), customerAnswers(), 0.7)
	require.NoError(t, err)
	assert.Equal(t, d1, again)
}
