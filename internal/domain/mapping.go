package domain

import (
	"math"
	"sort"
)

// Warning reason codes attached to a MappingResult.
const (
	WarnAmbiguousMapping       = "ambiguous_mapping"
	WarnExternalServiceFailure = "external_service_failure"
	WarnContractViolation      = "contract_violation"
	WarnUnmappedEntity         = "unmapped_entity"
)

// Unmapped entity reasons.
const (
	ReasonNoCandidates = "no_candidates"
	ReasonPairFailures = "pair_failures"
	ReasonNotTargeted  = "not_targeted"
)

// ClampConfidence forces a confidence value into [0,1]. NaN becomes 0.
func ClampConfidence(c float64) float64 {
	switch {
	case math.IsNaN(c), c < 0:
		return 0
	case c > 1:
		return 1
	default:
		return c
	}
}

// FieldMapping proposes that a source field corresponds to a target field.
type FieldMapping struct {
	SourceField    string  `json:"sourceField"`
	TargetField    string  `json:"targetField"`
	Confidence     float64 `json:"confidence"`
	Transformation string  `json:"transformation,omitempty"`
}

// EntityMapping proposes that a source entity (API A) corresponds to a
// target entity (API B).
type EntityMapping struct {
	SourceEntity  string         `json:"sourceEntity"`
	TargetEntity  string         `json:"targetEntity"`
	Confidence    float64        `json:"confidence"`
	FieldMappings []FieldMapping `json:"fieldMappings"`
	Ambiguous     bool           `json:"ambiguous"`
	Reasoning     string         `json:"reasoning,omitempty"`
}

// Pair returns the entity pair this mapping covers.
func (m EntityMapping) Pair() EntityPair {
	return EntityPair{Source: m.SourceEntity, Target: m.TargetEntity}
}

// UnmappedEntity records an entity with no qualifying counterpart.
type UnmappedEntity struct {
	Side       Side    `json:"side"`
	Name       string  `json:"name"`
	Confidence float64 `json:"confidence"`
	Reason     string  `json:"reason"`
}

// Warning is a non-fatal finding attached to a mapping result.
type Warning struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	EntityPair string `json:"entityPair,omitempty"`
}

// String renders "[code] message".
func (w Warning) String() string {
	return "[" + w.Code + "] " + w.Message
}

// ConfidenceSummary aggregates confidence over all entity mappings.
type ConfidenceSummary struct {
	Mean              float64 `json:"mean"`
	Min               float64 `json:"min"`
	Max               float64 `json:"max"`
	MappedEntities    int     `json:"mappedEntities"`
	UnmappedEntities  int     `json:"unmappedEntities"`
	FailedPairs       int     `json:"failedPairs"`
	AmbiguousEntities int     `json:"ambiguousEntities"`
}

// SideInfo carries per-side metadata that downstream stages need verbatim.
type SideInfo struct {
	Title string       `json:"title,omitempty"`
	Auth  AuthMetadata `json:"auth"`
}

// MappingResult is the output of the mapping engine. It is never patched in
// place; a re-run produces a new value.
type MappingResult struct {
	EntityMappings    []EntityMapping   `json:"entityMappings"`
	UnmappedEntities  []UnmappedEntity  `json:"unmappedEntities"`
	Warnings          []Warning         `json:"warnings"`
	OverallConfidence ConfidenceSummary `json:"overallConfidence"`
	Sides             map[Side]SideInfo `json:"sides,omitempty"`
}

// Side returns the metadata recorded for a side.
func (r MappingResult) Side(s Side) SideInfo {
	return r.Sides[s]
}

// SortMappingResult puts every list of r into its canonical order.
func SortMappingResult(r *MappingResult) {
	for i := range r.EntityMappings {
		fms := r.EntityMappings[i].FieldMappings
		sort.SliceStable(fms, func(a, b int) bool {
			if fms[a].SourceField != fms[b].SourceField {
				return fms[a].SourceField < fms[b].SourceField
			}
			return fms[a].TargetField < fms[b].TargetField
		})
	}
	sort.SliceStable(r.EntityMappings, func(a, b int) bool {
		ea, eb := r.EntityMappings[a], r.EntityMappings[b]
		if ea.SourceEntity != eb.SourceEntity {
			return ea.SourceEntity < eb.SourceEntity
		}
		return ea.TargetEntity < eb.TargetEntity
	})
	sort.SliceStable(r.UnmappedEntities, func(a, b int) bool {
		ua, ub := r.UnmappedEntities[a], r.UnmappedEntities[b]
		if ua.Side != ub.Side {
			return ua.Side < ub.Side
		}
		return ua.Name < ub.Name
	})
	sort.SliceStable(r.Warnings, func(a, b int) bool {
		wa, wb := r.Warnings[a], r.Warnings[b]
		if wa.Code != wb.Code {
			return wa.Code < wb.Code
		}
		if wa.EntityPair != wb.EntityPair {
			return wa.EntityPair < wb.EntityPair
		}
		return wa.Message < wb.Message
	})
}

// Summarize computes the confidence summary for a set of mappings.
func Summarize(mappings []EntityMapping, unmapped, failedPairs int) ConfidenceSummary {
	s := ConfidenceSummary{
		MappedEntities:   len(mappings),
		UnmappedEntities: unmapped,
		FailedPairs:      failedPairs,
	}
	if len(mappings) == 0 {
		return s
	}

	ambiguous := make(map[string]bool)
	s.Min = 1
	var total float64
	for _, m := range mappings {
		c := ClampConfidence(m.Confidence)
		total += c
		s.Min = math.Min(s.Min, c)
		s.Max = math.Max(s.Max, c)
		if m.Ambiguous {
			ambiguous[m.SourceEntity] = true
		}
	}
	s.Mean = roundConfidence(total / float64(len(mappings)))
	s.AmbiguousEntities = len(ambiguous)
	return s
}

// roundConfidence trims floating point noise so serialized summaries stay
// stable across platforms.
func roundConfidence(c float64) float64 {
	return math.Round(c*1e6) / 1e6
}
