package mapping

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/abdidvp/apiweave/internal/domain"
	"github.com/abdidvp/apiweave/internal/domain/contract"
)

// Outcome is what happened to one entity pair.
type Outcome struct {
	Pair    domain.EntityPair
	Mapping domain.EntityMapping
	Err     error
}

// Failed reports whether the pair produced no usable candidate.
func (o Outcome) Failed() bool { return o.Err != nil }

// Pairs returns every (A, B) entity combination in view order.
func Pairs(viewA, viewB domain.NormalizedView) []domain.EntityPair {
	pairs := make([]domain.EntityPair, 0, len(viewA.Entities)*len(viewB.Entities))
	for _, a := range viewA.Entities {
		for _, b := range viewB.Entities {
			pairs = append(pairs, domain.EntityPair{Source: a.Name, Target: b.Name})
		}
	}
	return pairs
}

// CheckViews rejects views that cannot be mapped against each other.
func CheckViews(viewA, viewB domain.NormalizedView) error {
	if viewA.Side != domain.SideA {
		return fmt.Errorf("first view must be side A (got %q)", viewA.Side)
	}
	if viewB.Side != domain.SideB {
		return fmt.Errorf("second view must be side B (got %q)", viewB.Side)
	}
	return nil
}

// FailureReason turns a pair error into the reason recorded in warnings.
func FailureReason(err error) string {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return "timed out"
	case errors.Is(err, context.Canceled):
		return "cancelled"
	default:
		return err.Error()
	}
}

// Aggregate folds per-pair outcomes into a MappingResult. A candidate
// qualifies when its confidence reaches cutoff; several qualifying targets
// for one source are all kept and flagged ambiguous. Failed pairs become
// warnings. The result is sorted and gated by the mapping_result contract.
func Aggregate(viewA, viewB domain.NormalizedView, outcomes []Outcome, cutoff float64) (domain.MappingResult, error) {
	result := domain.MappingResult{
		EntityMappings:   make([]domain.EntityMapping, 0),
		UnmappedEntities: make([]domain.UnmappedEntity, 0),
		Warnings:         make([]domain.Warning, 0),
		Sides: map[domain.Side]domain.SideInfo{
			domain.SideA: {Title: viewA.Title, Auth: viewA.Auth},
			domain.SideB: {Title: viewB.Title, Auth: viewB.Auth},
		},
	}

	bySource := make(map[string][]Outcome)
	attempted := make(map[string]int)
	failedSource := make(map[string]int)
	failedTarget := make(map[string]int)
	failed := 0
	for _, o := range outcomes {
		bySource[o.Pair.Source] = append(bySource[o.Pair.Source], o)
		attempted[o.Pair.Target]++
		if !o.Failed() {
			continue
		}
		failed++
		failedSource[o.Pair.Source]++
		failedTarget[o.Pair.Target]++
		code := domain.WarnExternalServiceFailure
		if errors.Is(o.Err, domain.ErrContractViolation) {
			code = domain.WarnContractViolation
		}
		result.Warnings = append(result.Warnings, domain.Warning{
			Code:       code,
			Message:    fmt.Sprintf("pair %s failed: %s", o.Pair, FailureReason(o.Err)),
			EntityPair: o.Pair.String(),
		})
	}

	targeted := make(map[string]bool)
	for _, a := range viewA.Entities {
		var qualifying []domain.EntityMapping
		for _, o := range bySource[a.Name] {
			if o.Failed() {
				continue
			}
			m := o.Mapping
			m.SourceEntity, m.TargetEntity = o.Pair.Source, o.Pair.Target
			m.Confidence = domain.ClampConfidence(m.Confidence)
			m.FieldMappings = append(make([]domain.FieldMapping, 0, len(m.FieldMappings)), m.FieldMappings...)
			for i := range m.FieldMappings {
				m.FieldMappings[i].Confidence = domain.ClampConfidence(m.FieldMappings[i].Confidence)
			}
			if m.Confidence >= cutoff {
				qualifying = append(qualifying, m)
			}
		}

		switch {
		case len(qualifying) == 0:
			reason := domain.ReasonNoCandidates
			if n := len(bySource[a.Name]); n > 0 && failedSource[a.Name] == n {
				reason = domain.ReasonPairFailures
			}
			result.UnmappedEntities = append(result.UnmappedEntities, domain.UnmappedEntity{
				Side: domain.SideA, Name: a.Name, Confidence: 0, Reason: reason,
			})
			result.Warnings = append(result.Warnings, domain.Warning{
				Code:    domain.WarnUnmappedEntity,
				Message: fmt.Sprintf("%s (A) has no counterpart: %s", a.Name, reason),
			})
			continue
		case len(qualifying) > 1:
			targets := make([]string, 0, len(qualifying))
			for i := range qualifying {
				qualifying[i].Ambiguous = true
				targets = append(targets, qualifying[i].TargetEntity)
			}
			result.Warnings = append(result.Warnings, domain.Warning{
				Code:       domain.WarnAmbiguousMapping,
				Message:    fmt.Sprintf("%s has %d candidate targets: %s", a.Name, len(targets), strings.Join(targets, ", ")),
				EntityPair: a.Name + "→*",
			})
		}
		for _, m := range qualifying {
			targeted[m.TargetEntity] = true
		}
		result.EntityMappings = append(result.EntityMappings, qualifying...)
	}

	for _, b := range viewB.Entities {
		if targeted[b.Name] {
			continue
		}
		reason := domain.ReasonNotTargeted
		if n := attempted[b.Name]; n > 0 && failedTarget[b.Name] == n {
			reason = domain.ReasonPairFailures
		}
		result.UnmappedEntities = append(result.UnmappedEntities, domain.UnmappedEntity{
			Side: domain.SideB, Name: b.Name, Confidence: 0, Reason: reason,
		})
		result.Warnings = append(result.Warnings, domain.Warning{
			Code:    domain.WarnUnmappedEntity,
			Message: fmt.Sprintf("%s (B) has no counterpart: %s", b.Name, reason),
		})
	}

	domain.SortMappingResult(&result)
	result.OverallConfidence = domain.Summarize(result.EntityMappings, len(result.UnmappedEntities), failed)

	vs := contract.Check(contract.KindMappingResult, result, contract.Refs{ViewA: &viewA, ViewB: &viewB})
	if err := vs.Err(string(contract.KindMappingResult)); err != nil {
		return domain.MappingResult{}, err
	}
	return result, nil
}
