// Package questionnaire validates the human integration decisions. Answers
// are all-or-nothing: any violation yields the zero value.
package questionnaire

import (
	"encoding/json"
	"sort"

	"github.com/abdidvp/apiweave/internal/domain"
	"github.com/abdidvp/apiweave/internal/domain/contract"
)

// Validate checks a decoded answers document. Ownership must cover the source
// (or target) entity of every accepted pair.
func Validate(doc any, accepted []domain.EntityPair) (domain.IntegrationAnswers, contract.Violations) {
	return validate(doc, contract.Refs{Accepted: accepted})
}

// ValidateFor checks answers against a mapping result: accepted pairs are
// derived from threshold and the document's own overrides, and overrides
// must name mappings that exist in result.
func ValidateFor(doc any, result domain.MappingResult, threshold float64) (domain.IntegrationAnswers, contract.Violations) {
	known := make([]domain.EntityPair, 0, len(result.EntityMappings))
	for _, m := range result.EntityMappings {
		known = append(known, m.Pair())
	}
	refs := contract.Refs{
		Accepted: AcceptedPairs(result, threshold, rawOverrides(doc)),
		Known:    known,
	}
	return validate(doc, refs)
}

// Check validates typed answers the same way as a decoded document.
func Check(a domain.IntegrationAnswers, accepted []domain.EntityPair) (domain.IntegrationAnswers, contract.Violations) {
	doc, vs := contract.ToDocument(a)
	if !vs.Valid() {
		return domain.IntegrationAnswers{}, vs
	}
	return Validate(doc, accepted)
}

func validate(doc any, refs contract.Refs) (domain.IntegrationAnswers, contract.Violations) {
	if vs := contract.ValidateKind(contract.KindAnswers, doc, refs); !vs.Valid() {
		return domain.IntegrationAnswers{}, vs
	}

	var vs contract.Violations
	data, err := json.Marshal(doc)
	if err != nil {
		vs.Addf("", contract.RuleEncoding, "cannot encode answers: %v", err)
		return domain.IntegrationAnswers{}, vs
	}
	var raw domain.IntegrationAnswers
	if err := json.Unmarshal(data, &raw); err != nil {
		vs.Addf("", contract.RuleEncoding, "cannot decode answers: %v", err)
		return domain.IntegrationAnswers{}, vs
	}
	return Canonical(raw), nil
}

// Canonical rewrites accepted spellings into canonical values. Call it only
// on answers that passed the contract.
func Canonical(a domain.IntegrationAnswers) domain.IntegrationAnswers {
	a.Direction, _ = domain.ParseDirection(string(a.Direction))

	ownership := make(map[string]domain.Side, len(a.Ownership))
	for entity, side := range a.Ownership {
		ownership[entity], _ = domain.ParseSide(string(side))
	}
	a.Ownership = ownership

	if len(a.Overrides) > 0 {
		seen := make(map[string]bool)
		overrides := make([]string, 0, len(a.Overrides))
		for _, o := range a.Overrides {
			p, _ := domain.ParseEntityPair(o)
			if !seen[p.String()] {
				seen[p.String()] = true
				overrides = append(overrides, p.String())
			}
		}
		sort.Strings(overrides)
		a.Overrides = overrides
	}
	return a
}

// AcceptedPairs lists the entity mappings that become flow steps: confidence
// at or above threshold, or named in overrides.
func AcceptedPairs(result domain.MappingResult, threshold float64, overrides []string) []domain.EntityPair {
	forced := make(map[domain.EntityPair]bool)
	for _, o := range overrides {
		if p, ok := domain.ParseEntityPair(o); ok {
			forced[p] = true
		}
	}
	var pairs []domain.EntityPair
	for _, m := range result.EntityMappings {
		if domain.ClampConfidence(m.Confidence) >= threshold || forced[m.Pair()] {
			pairs = append(pairs, m.Pair())
		}
	}
	return pairs
}

func rawOverrides(doc any) []string {
	m, ok := doc.(map[string]any)
	if !ok {
		return nil
	}
	list, _ := m["overrides"].([]any)
	out := make([]string, 0, len(list))
	for _, v := range list {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
