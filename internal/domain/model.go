package domain

import (
	"fmt"
	"strings"
)

// Side identifies which of the two APIs an entity belongs to.
type Side string

const (
	SideA Side = "A"
	SideB Side = "B"
)

// ValidSides enumerates the two API sides.
var ValidSides = []Side{SideA, SideB}

// ParseSide accepts "A", "B" and the api_a/api_b spellings used by extractors.
func ParseSide(s string) (Side, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "a", "api_a":
		return SideA, nil
	case "b", "api_b":
		return SideB, nil
	default:
		return "", fmt.Errorf("unknown side %q (valid: A, B)", s)
	}
}

// Other returns the opposite side.
func (s Side) Other() Side {
	if s == SideA {
		return SideB
	}
	return SideA
}

// Field is a single attribute of an entity.
type Field struct {
	Name        string `json:"name" yaml:"name"`
	Type        string `json:"type" yaml:"type"`
	Required    bool   `json:"required" yaml:"required"`
	Example     any    `json:"example,omitempty" yaml:"example,omitempty"`
	Format      string `json:"format,omitempty" yaml:"format,omitempty"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
}

// Entity is a named record type exposed by one API side.
type Entity struct {
	Name   string  `json:"name" yaml:"name"`
	Side   Side    `json:"side,omitempty" yaml:"side,omitempty"`
	Fields []Field `json:"fields" yaml:"fields"`
}

// Field returns the named field, or false if the entity has no such field.
func (e Entity) Field(name string) (Field, bool) {
	for _, f := range e.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// FieldNames returns field names in declaration order.
func (e Entity) FieldNames() []string {
	names := make([]string, 0, len(e.Fields))
	for _, f := range e.Fields {
		names = append(names, f.Name)
	}
	return names
}

// Operation is an API endpoint as reported by the extractor.
type Operation struct {
	Method  string `json:"method" yaml:"method"`
	Path    string `json:"path" yaml:"path"`
	Entity  string `json:"entity,omitempty" yaml:"entity,omitempty"`
	Summary string `json:"summary,omitempty" yaml:"summary,omitempty"`
}

// Key returns the "METHOD path" identity of an operation.
func (o Operation) Key() string {
	return strings.ToUpper(o.Method) + " " + o.Path
}

// AuthMetadata describes how an API authenticates callers. It is carried
// through the pipeline unchanged.
type AuthMetadata struct {
	Type   string   `json:"type,omitempty" yaml:"type,omitempty"`
	Scheme string   `json:"scheme,omitempty" yaml:"scheme,omitempty"`
	In     string   `json:"in,omitempty" yaml:"in,omitempty"`
	Name   string   `json:"name,omitempty" yaml:"name,omitempty"`
	Scopes []string `json:"scopes,omitempty" yaml:"scopes,omitempty"`
}

// Strategy returns a one-line description used in flow steps.
func (a AuthMetadata) Strategy() string {
	if a.Type == "" {
		return "unspecified"
	}
	parts := []string{a.Type}
	if a.Scheme != "" {
		parts = append(parts, a.Scheme)
	}
	if a.Name != "" {
		loc := a.Name
		if a.In != "" {
			loc = a.In + ":" + a.Name
		}
		parts = append(parts, loc)
	}
	if len(a.Scopes) > 0 {
		parts = append(parts, "scopes="+strings.Join(a.Scopes, ","))
	}
	return strings.Join(parts, " ")
}

// Extraction is the artifact produced by the external documentation
// extractor for one API.
type Extraction struct {
	APIID      string       `json:"api_id,omitempty" yaml:"api_id,omitempty"`
	Title      string       `json:"title,omitempty" yaml:"title,omitempty"`
	SourceURL  string       `json:"source_url,omitempty" yaml:"source_url,omitempty"`
	Entities   []Entity     `json:"entities" yaml:"entities"`
	Operations []Operation  `json:"operations" yaml:"operations"`
	Auth       AuthMetadata `json:"auth" yaml:"auth"`
}

// NormalizedView is the canonical, deterministically ordered view of one API.
type NormalizedView struct {
	Side       Side         `json:"side"`
	Title      string       `json:"title,omitempty"`
	Entities   []Entity     `json:"entities"`
	Operations []Operation  `json:"operations"`
	Auth       AuthMetadata `json:"auth"`
}

// Entity looks up an entity by name.
func (v NormalizedView) Entity(name string) (Entity, bool) {
	for _, e := range v.Entities {
		if e.Name == name {
			return e, true
		}
	}
	return Entity{}, false
}

// EntityNames returns entity names in view order.
func (v NormalizedView) EntityNames() []string {
	names := make([]string, 0, len(v.Entities))
	for _, e := range v.Entities {
		names = append(names, e.Name)
	}
	return names
}

// EntityPair names a source/target entity combination.
type EntityPair struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// String renders the pair as "Source→Target".
func (p EntityPair) String() string {
	return p.Source + "→" + p.Target
}

// ParseEntityPair accepts "Source→Target" and "Source->Target".
func ParseEntityPair(s string) (EntityPair, bool) {
	for _, sep := range []string{"→", "->"} {
		if i := strings.Index(s, sep); i > 0 {
			src := strings.TrimSpace(s[:i])
			dst := strings.TrimSpace(s[i+len(sep):])
			if src != "" && dst != "" {
				return EntityPair{Source: src, Target: dst}, true
			}
		}
	}
	return EntityPair{}, false
}
