package contract

import (
	"encoding/json"
	"fmt"

	"github.com/abdidvp/apiweave/internal/domain"
)

// Kind tags an artifact crossing a stage boundary.
type Kind string

const (
	KindExtractedAPI  Kind = "extracted_api"
	KindMappingResult Kind = "mapping_result"
	KindAnswers       Kind = "answers"
	KindPlan          Kind = "plan"
	KindPairCandidate Kind = "pair_candidate"
)

// ValidKinds enumerates artifact kinds.
var ValidKinds = []Kind{KindExtractedAPI, KindMappingResult, KindAnswers, KindPlan, KindPairCandidate}

// ParseKind accepts a kind name, also tolerating the integration_ prefix used
// for artifact file names.
func ParseKind(s string) (Kind, error) {
	switch s {
	case "integration_answers":
		return KindAnswers, nil
	case "integration_plan":
		return KindPlan, nil
	}
	for _, k := range ValidKinds {
		if string(k) == s {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown artifact kind %q", s)
}

// Refs carries the context some cross rules check against. Zero fields
// disable the rules that need them.
type Refs struct {
	// Side is the side an extraction is expected to describe.
	Side domain.Side
	// ViewA and ViewB are the normalized views a mapping result must reference.
	ViewA *domain.NormalizedView
	ViewB *domain.NormalizedView
	// Source and Target are the entities a pair candidate was requested for.
	Source *domain.Entity
	Target *domain.Entity
	// Accepted are the entity pairs whose ownership answers must cover.
	Accepted []domain.EntityPair
	// Known are the entity pairs overrides may name.
	Known []domain.EntityPair
}

// SchemaFor builds the default schema for kind.
func SchemaFor(kind Kind, refs Refs) (*Schema, error) {
	switch kind {
	case KindExtractedAPI:
		return extractedAPISchema(refs), nil
	case KindMappingResult:
		return mappingResultSchema(refs), nil
	case KindAnswers:
		return answersSchema(refs), nil
	case KindPlan:
		return planSchema(), nil
	case KindPairCandidate:
		return pairCandidateSchema(refs), nil
	default:
		return nil, fmt.Errorf("unknown artifact kind %q", kind)
	}
}

// ValidateKind validates a decoded document against the default schema for
// kind.
func ValidateKind(kind Kind, doc any, refs Refs) Violations {
	schema, err := SchemaFor(kind, refs)
	if err != nil {
		var vs Violations
		vs.Add("", RuleKind, err.Error())
		return vs
	}
	return Validate(schema, doc)
}

// Check validates a typed artifact by encoding it to JSON and validating the
// decoded document, so typed values and files read from disk meet the same
// rules.
func Check(kind Kind, value any, refs Refs) Violations {
	doc, vs := ToDocument(value)
	if !vs.Valid() {
		return vs
	}
	return ValidateKind(kind, doc, refs)
}

// ToDocument converts a typed value into its generic JSON document form.
func ToDocument(value any) (any, Violations) {
	var vs Violations
	data, err := json.Marshal(value)
	if err != nil {
		vs.Addf("", RuleEncoding, "cannot encode artifact: %v", err)
		return nil, vs
	}
	var doc any
	if err := json.Unmarshal(data, &doc); err != nil {
		vs.Addf("", RuleEncoding, "cannot decode artifact: %v", err)
		return nil, vs
	}
	return doc, nil
}

// Decode validates doc as kind and, when valid, decodes it into out (a
// pointer to the typed artifact). out is left untouched on violations.
func Decode(kind Kind, doc any, refs Refs, out any) Violations {
	if vs := ValidateKind(kind, doc, refs); !vs.Valid() {
		return vs
	}
	var vs Violations
	data, err := json.Marshal(doc)
	if err != nil {
		vs.Addf("", RuleEncoding, "cannot encode %s: %v", kind, err)
		return vs
	}
	if err := json.Unmarshal(data, out); err != nil {
		vs.Addf("", RuleEncoding, "cannot decode %s: %v", kind, err)
		return vs
	}
	return nil
}

func sideEnum() *Schema { return EnumFold(string(domain.SideA), string(domain.SideB)) }

func confidence() *Schema { return Number().Between(0, 1) }

func extractedAPISchema(refs Refs) *Schema {
	field := Object(
		Req("name", Name()),
		Opt("type", String()),
		Opt("required", Bool()),
		Opt("example", Any()),
		Opt("format", String()),
		Opt("description", String()),
	)
	entity := Object(
		Req("name", EntityName()),
		Opt("side", String()),
		Req("fields", Array(field)),
	)
	operation := Object(
		Req("method", NonEmpty()),
		Req("path", NonEmpty()),
		Opt("entity", String()),
		Opt("summary", String()),
	)
	auth := Object(
		Opt("type", String()),
		Opt("scheme", String()),
		Opt("in", String()),
		Opt("name", String()),
		Opt("scopes", Array(String())),
	)
	return Object(
		Opt("api_id", String()),
		Opt("title", String()),
		Opt("source_url", String()),
		Req("entities", Array(entity)),
		Opt("operations", Array(operation)),
		Opt("auth", auth),
	).WithRules(
		uniqueEntityNames(),
		uniqueFieldNames(),
		entitySides(refs.Side),
		uniqueOperations(),
	)
}

func mappingResultSchema(refs Refs) *Schema {
	fieldMapping := Object(
		Req("sourceField", Name()),
		Req("targetField", Name()),
		Req("confidence", confidence()),
		Opt("transformation", String()),
	)
	entityMapping := Object(
		Req("sourceEntity", EntityName()),
		Req("targetEntity", EntityName()),
		Req("confidence", confidence()),
		Opt("fieldMappings", Array(fieldMapping)),
		Opt("ambiguous", Bool()),
		Opt("reasoning", String()),
	)
	unmapped := Object(
		Req("side", sideEnum()),
		Req("name", EntityName()),
		Opt("confidence", confidence()),
		Opt("reason", String()),
	)
	warning := Object(
		Req("code", Enum(domain.WarnAmbiguousMapping, domain.WarnExternalServiceFailure,
			domain.WarnContractViolation, domain.WarnUnmappedEntity)),
		Req("message", NonEmpty()),
		Opt("entityPair", String()),
	)
	summary := Object(
		Opt("mean", confidence()),
		Opt("min", confidence()),
		Opt("max", confidence()),
		Opt("mappedEntities", Integer().AtLeast(0)),
		Opt("unmappedEntities", Integer().AtLeast(0)),
		Opt("failedPairs", Integer().AtLeast(0)),
		Opt("ambiguousEntities", Integer().AtLeast(0)),
	)
	return Object(
		Req("entityMappings", Array(entityMapping)),
		Opt("unmappedEntities", Array(unmapped)),
		Opt("warnings", Array(warning)),
		Opt("overallConfidence", summary),
		Opt("sides", Any()),
	).WithRules(
		uniqueEntityMappings(),
		uniqueSourceFields("entityMappings", "fieldMappings"),
		mappingReferences(refs.ViewA, refs.ViewB),
	)
}

func answersSchema(refs Refs) *Schema {
	directions := EnumFold(domain.DirectionSpellings()...)
	triggers := make([]string, 0, len(domain.ValidTriggerModes))
	for _, t := range domain.ValidTriggerModes {
		triggers = append(triggers, string(t))
	}
	conflicts := make([]string, 0, len(domain.ValidConflictStrategies))
	for _, c := range domain.ValidConflictStrategies {
		conflicts = append(conflicts, string(c))
	}

	return Object(
		Req("direction", directions),
		Req("triggerMode", Enum(triggers...)),
		Opt("conflictStrategy", Enum(conflicts...)),
		Req("retryPolicy", Object(
			Req("maxAttempts", Integer().AtLeast(1)),
			Req("backoff", Enum(backoffs()...)),
		)),
		Req("ownership", MapOf(sideEnum())),
		Opt("overrides", Array(NonEmpty())),
		Opt("goal", Enum(domain.ValidGoals...)),
		Opt("errorStrategy", Enum(domain.ValidErrorStrategies...)),
		Opt("latencySLO", Enum(domain.ValidLatencySLOs...)),
		Opt("idempotency", Bool()),
		Opt("piiHandling", Enum(domain.ValidPIIHandling...)),
		Opt("ownershipNotes", String()),
	).WithRules(
		conflictStrategyForBidirectional(),
		ownershipCoversAccepted(refs.Accepted),
		overridesNameKnownPairs(refs.Known),
	)
}

func planSchema() *Schema {
	directions := make([]string, 0, len(domain.ValidDirections))
	for _, d := range domain.ValidDirections {
		directions = append(directions, string(d))
	}
	triggers := make([]string, 0, len(domain.ValidTriggerModes))
	for _, t := range domain.ValidTriggerModes {
		triggers = append(triggers, string(t))
	}

	transformation := Object(
		Req("sourceField", Name()),
		Req("targetField", Name()),
		Req("confidence", confidence()),
		Req("kind", Enum(domain.TransformDirect, domain.TransformConvert)),
		Opt("note", String()),
	)
	step := Object(
		Req("entityPair", NonEmpty()),
		Req("sourceEntity", EntityName()),
		Req("targetEntity", EntityName()),
		Req("direction", Enum(directions...)),
		Req("trigger", Enum(triggers...)),
		Req("confidence", confidence()),
		Opt("overridden", Bool()),
		Req("steps", Array(NonEmpty())),
		Req("transformations", Array(transformation)),
		Req("errorRetry", Object(
			Req("maxAttempts", Integer().AtLeast(1)),
			Req("backoff", Enum(backoffs()...)),
			Opt("strategy", String()),
		)),
		Req("authStrategy", Object(
			Req("source", NonEmpty()),
			Req("target", NonEmpty()),
		)),
		Opt("idempotencyRequired", Bool()),
		Req("observability", Object(
			Req("metrics", Array(NonEmpty())),
			Opt("owner", String()),
		)),
		Req("ownership", sideEnum()),
		Opt("conflictStrategy", String()),
	)
	backlog := Object(
		Req("entityPair", NonEmpty()),
		Req("reason", NonEmpty()),
		Req("suggestedAction", NonEmpty()),
		Opt("confidence", confidence()),
	)
	return Object(
		Opt("name", String()),
		Opt("summary", Any()),
		Req("flowSteps", Array(step)),
		Req("backlog", Array(backlog)),
		Req("risks", Array(String())),
		Opt("implementationTasks", Array(NonEmpty())),
		Opt("threshold", confidence()),
		Opt("digest", String()),
	).WithRules(
		flowStepsOrdered(),
		backlogOrdered(),
		flowBacklogDisjoint(),
		flowStepsMeetThreshold(),
	)
}

func pairCandidateSchema(refs Refs) *Schema {
	fieldMapping := Object(
		Req("sourceField", Name()),
		Req("targetField", Name()),
		Req("confidence", confidence()),
		Opt("transformation", String()),
	)
	return Object(
		Opt("sourceEntity", String()),
		Opt("targetEntity", String()),
		Opt("confidence", confidence()),
		Req("fieldMappings", Array(fieldMapping)),
		Opt("reasoning", String()),
	).WithRules(
		uniqueSourceFields("", "fieldMappings"),
		candidateReferences(refs.Source, refs.Target),
	)
}

func backoffs() []string {
	out := make([]string, 0, len(domain.ValidBackoffs))
	for _, b := range domain.ValidBackoffs {
		out = append(out, string(b))
	}
	return out
}
