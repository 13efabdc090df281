package mapping

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/abdidvp/apiweave/internal/domain"
	"github.com/abdidvp/apiweave/internal/domain/contract"
)

var (
	ErrEmptyReply = errors.New("empty reply")
	ErrNoJSON     = errors.New("reply contains no JSON object")
)

var (
	jsonFence = regexp.MustCompile("(?s)```json\\s*(.*?)```")
	anyFence  = regexp.MustCompile("(?s)```[a-zA-Z]*\\s*(.*?)```")
)

// Confidence labels some models answer with instead of numbers.
var confidenceLabels = map[string]float64{
	"high":   0.9,
	"medium": 0.6,
	"low":    0.3,
}

var keyAliases = map[string]string{
	"field_mappings": "fieldMappings",
	"api_a_entity":   "sourceEntity",
	"source_entity":  "sourceEntity",
	"api_b_entity":   "targetEntity",
	"target_entity":  "targetEntity",
	"api_a_field":    "sourceField",
	"source_field":   "sourceField",
	"api_b_field":    "targetField",
	"target_field":   "targetField",
}

// ParseReply extracts the JSON object from a reasoner reply. It tries, in
// order: the whole reply, a ```json fence, any fence, and the first {...}
// span.
func ParseReply(reply string) (map[string]any, error) {
	text := strings.TrimSpace(reply)
	if text == "" {
		return nil, ErrEmptyReply
	}

	candidates := []string{text}
	if m := jsonFence.FindStringSubmatch(text); m != nil {
		candidates = append(candidates, m[1])
	}
	if m := anyFence.FindStringSubmatch(text); m != nil {
		candidates = append(candidates, m[1])
	}
	if start, end := strings.Index(text, "{"), strings.LastIndex(text, "}"); start >= 0 && end > start {
		candidates = append(candidates, text[start:end+1])
	}

	for _, c := range candidates {
		var doc map[string]any
		if err := json.Unmarshal([]byte(strings.TrimSpace(c)), &doc); err == nil && doc != nil {
			return doc, nil
		}
	}
	return nil, ErrNoJSON
}

// Canonicalize rewrites a parsed reply into the pair_candidate shape: known
// key aliases are renamed, the first element of an entity_mappings list is
// unwrapped, confidence labels become numbers and every confidence is clamped
// into [0,1]. The input is not modified.
func Canonicalize(doc map[string]any) map[string]any {
	if list, ok := doc["entity_mappings"].([]any); ok && len(list) > 0 {
		if first, ok := list[0].(map[string]any); ok {
			doc = first
		}
	}
	out := canonicalObject(doc)
	if fms, ok := out["fieldMappings"].([]any); ok {
		canon := make([]any, 0, len(fms))
		for _, f := range fms {
			if m, ok := f.(map[string]any); ok {
				canon = append(canon, canonicalObject(m))
				continue
			}
			canon = append(canon, f)
		}
		out["fieldMappings"] = canon
	}
	return out
}

func canonicalObject(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if alias, ok := keyAliases[k]; ok {
			k = alias
		}
		if v == nil {
			continue
		}
		if k == "confidence" {
			v = canonicalConfidence(v)
		}
		out[k] = v
	}
	return out
}

func canonicalConfidence(v any) any {
	switch c := v.(type) {
	case float64:
		return domain.ClampConfidence(c)
	case string:
		if n, ok := confidenceLabels[strings.ToLower(strings.TrimSpace(c))]; ok {
			return n
		}
	}
	return v
}

// Candidate is a validated reasoner proposal for one entity pair.
type Candidate struct {
	Confidence    *float64              `json:"confidence,omitempty"`
	FieldMappings []domain.FieldMapping `json:"fieldMappings"`
	Reasoning     string                `json:"reasoning,omitempty"`
}

// Evaluate parses, canonicalizes and validates a reply for source→target and
// returns the resulting entity mapping. Entity confidence is the reasoner's
// value when present, otherwise the mean of the field confidences.
func Evaluate(reply string, source, target domain.Entity) (domain.EntityMapping, error) {
	doc, err := ParseReply(reply)
	if err != nil {
		return domain.EntityMapping{}, err
	}
	doc = Canonicalize(doc)

	vs := contract.ValidateKind(contract.KindPairCandidate, doc, contract.Refs{Source: &source, Target: &target})
	if err := vs.Err(string(contract.KindPairCandidate)); err != nil {
		return domain.EntityMapping{}, err
	}

	data, err := json.Marshal(doc)
	if err != nil {
		return domain.EntityMapping{}, fmt.Errorf("re-encoding candidate: %w", err)
	}
	var c Candidate
	if err := json.Unmarshal(data, &c); err != nil {
		return domain.EntityMapping{}, fmt.Errorf("decoding candidate: %w", err)
	}

	m := domain.EntityMapping{
		SourceEntity:  source.Name,
		TargetEntity:  target.Name,
		FieldMappings: make([]domain.FieldMapping, 0, len(c.FieldMappings)),
		Reasoning:     strings.TrimSpace(c.Reasoning),
	}
	var total float64
	for _, fm := range c.FieldMappings {
		fm.Confidence = domain.ClampConfidence(fm.Confidence)
		fm.Transformation = strings.TrimSpace(fm.Transformation)
		total += fm.Confidence
		m.FieldMappings = append(m.FieldMappings, fm)
	}
	sort.Slice(m.FieldMappings, func(i, j int) bool {
		return m.FieldMappings[i].SourceField < m.FieldMappings[j].SourceField
	})

	switch {
	case c.Confidence != nil:
		m.Confidence = domain.ClampConfidence(*c.Confidence)
	case len(m.FieldMappings) > 0:
		m.Confidence = domain.ClampConfidence(total / float64(len(m.FieldMappings)))
	}
	return m, nil
}
