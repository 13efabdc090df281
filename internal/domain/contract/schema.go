// Package contract validates pipeline artifacts against explicit schema
// values. Nothing here keeps state: callers build or look up a Schema and
// pass it together with the document.
package contract

import (
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode"

	"github.com/abdidvp/apiweave/internal/domain"
)

// Violations is re-exported so callers of this package need not import domain
// just to inspect results.
type Violations = domain.Violations

// Rule names attached to violations.
const (
	RuleType       = "type"
	RuleRequired   = "required"
	RuleRequiredIf = "required_if"
	RuleEnum       = "enum"
	RuleMinimum    = "minimum"
	RuleMaximum    = "maximum"
	RuleMinLength  = "min_length"
	RuleUnique     = "unique"
	RuleReference  = "reference"
	RuleOrder      = "order"
	RuleThreshold  = "threshold"
	RuleDisjoint   = "disjoint"
	RuleSide       = "side"
	RuleFormat     = "format"
	RuleEncoding   = "encoding"
	RuleKind       = "kind"
)

// Type is the JSON shape a schema node accepts.
type Type string

const (
	TypeObject  Type = "object"
	TypeArray   Type = "array"
	TypeString  Type = "string"
	TypeNumber  Type = "number"
	TypeInteger Type = "integer"
	TypeBool    Type = "boolean"
	TypeEnum    Type = "enum"
	TypeAny     Type = "any"
)

// Property is a named key of an object node.
type Property struct {
	Name     string
	Schema   *Schema
	Required bool
}

// CrossRule checks a relationship the node tree cannot express. Rules receive
// the whole document and must tolerate any shape.
type CrossRule struct {
	Name  string
	Check func(doc any, vs *Violations)
}

// Schema is one node of a schema tree.
type Schema struct {
	Type       Type
	Properties []Property
	// Values validates every value of an object whose keys are data, such as
	// the ownership map.
	Values    *Schema
	Items     *Schema
	Enum      []string
	FoldCase  bool
	Min       *float64
	Max       *float64
	MinLength int
	// Plain rejects control characters in strings.
	Plain bool
	// Forbid lists substrings a string must not contain.
	Forbid []string
	Rules  []CrossRule
}

func Object(props ...Property) *Schema { return &Schema{Type: TypeObject, Properties: props} }
func MapOf(values *Schema) *Schema     { return &Schema{Type: TypeObject, Values: values} }
func Array(items *Schema) *Schema      { return &Schema{Type: TypeArray, Items: items} }
func String() *Schema                  { return &Schema{Type: TypeString} }
func NonEmpty() *Schema                { return &Schema{Type: TypeString, MinLength: 1} }
func Number() *Schema                  { return &Schema{Type: TypeNumber} }
func Integer() *Schema                 { return &Schema{Type: TypeInteger} }
func Bool() *Schema                    { return &Schema{Type: TypeBool} }
func Any() *Schema                     { return &Schema{Type: TypeAny} }

// Name accepts a non-blank single-line identifier.
func Name() *Schema { return &Schema{Type: TypeString, MinLength: 1, Plain: true} }

// EntityName is a Name that cannot be confused with an entity pair.
func EntityName() *Schema {
	s := Name()
	s.Forbid = []string{"→", "->"}
	return s
}

// Enum accepts exactly one of values.
func Enum(values ...string) *Schema { return &Schema{Type: TypeEnum, Enum: values} }

// EnumFold accepts one of values, ignoring case.
func EnumFold(values ...string) *Schema {
	return &Schema{Type: TypeEnum, Enum: values, FoldCase: true}
}

// Req declares a required property.
func Req(name string, s *Schema) Property { return Property{Name: name, Schema: s, Required: true} }

// Opt declares an optional property.
func Opt(name string, s *Schema) Property { return Property{Name: name, Schema: s} }

// Between bounds a numeric node inclusively.
func (s *Schema) Between(lo, hi float64) *Schema {
	s.Min, s.Max = &lo, &hi
	return s
}

// AtLeast sets an inclusive lower bound.
func (s *Schema) AtLeast(lo float64) *Schema {
	s.Min = &lo
	return s
}

// WithRules appends cross rules, run in declaration order.
func (s *Schema) WithRules(rules ...CrossRule) *Schema {
	s.Rules = append(s.Rules, rules...)
	return s
}

// Validate walks doc against schema and returns violations in walk order,
// followed by cross-rule violations in declaration order. It never panics on
// malformed documents.
func Validate(schema *Schema, doc any) (vs Violations) {
	if schema == nil {
		vs.Add("", RuleType, "no schema given")
		return vs
	}
	defer func() {
		if r := recover(); r != nil {
			vs.Addf("", RuleType, "document could not be validated: %v", r)
		}
	}()

	walk("", schema, doc, &vs)
	for _, r := range schema.Rules {
		r.Check(doc, &vs)
	}
	return vs
}

func walk(path string, s *Schema, v any, vs *Violations) {
	if s == nil || s.Type == TypeAny {
		return
	}

	switch s.Type {
	case TypeObject:
		obj, ok := asObject(v)
		if !ok {
			vs.Addf(path, RuleType, "expected object, got %s", kindOf(v))
			return
		}
		for _, p := range s.Properties {
			child := join(path, p.Name)
			val, present := obj[p.Name]
			if !present || val == nil || (p.Required && val == "") {
				if p.Required {
					vs.Addf(child, RuleRequired, "%s is required", p.Name)
				}
				continue
			}
			walk(child, p.Schema, val, vs)
		}
		if s.Values != nil {
			keys := make([]string, 0, len(obj))
			for k := range obj {
				keys = append(keys, k)
			}
			sort.Strings(keys)
			for _, k := range keys {
				walk(join(path, k), s.Values, obj[k], vs)
			}
		}

	case TypeArray:
		arr, ok := v.([]any)
		if !ok {
			vs.Addf(path, RuleType, "expected array, got %s", kindOf(v))
			return
		}
		for i, item := range arr {
			walk(fmt.Sprintf("%s[%d]", path, i), s.Items, item, vs)
		}

	case TypeString:
		str, ok := v.(string)
		if !ok {
			vs.Addf(path, RuleType, "expected string, got %s", kindOf(v))
			return
		}
		if len(strings.TrimSpace(str)) < s.MinLength {
			vs.Addf(path, RuleMinLength, "must be at least %d non-blank character(s)", s.MinLength)
		}
		if s.Plain && strings.ContainsFunc(str, unicode.IsControl) {
			vs.Addf(path, RuleFormat, "must not contain control characters")
		}
		for _, bad := range s.Forbid {
			if strings.Contains(str, bad) {
				vs.Addf(path, RuleFormat, "must not contain %q", bad)
			}
		}

	case TypeEnum:
		str, ok := v.(string)
		if !ok {
			vs.Addf(path, RuleType, "expected string, got %s", kindOf(v))
			return
		}
		if !inEnum(str, s.Enum, s.FoldCase) {
			vs.Addf(path, RuleEnum, "%q must be one of %s", str, strings.Join(s.Enum, ", "))
		}

	case TypeNumber, TypeInteger:
		n, ok := toFloat(v)
		if !ok || math.IsNaN(n) || math.IsInf(n, 0) {
			vs.Addf(path, RuleType, "expected %s, got %s", s.Type, kindOf(v))
			return
		}
		if s.Type == TypeInteger && n != math.Trunc(n) {
			vs.Addf(path, RuleType, "expected integer, got %v", n)
			return
		}
		if s.Min != nil && n < *s.Min {
			vs.Addf(path, RuleMinimum, "must be >= %v (got %v)", *s.Min, n)
		}
		if s.Max != nil && n > *s.Max {
			vs.Addf(path, RuleMaximum, "must be <= %v (got %v)", *s.Max, n)
		}

	case TypeBool:
		if _, ok := v.(bool); !ok {
			vs.Addf(path, RuleType, "expected boolean, got %s", kindOf(v))
		}
	}
}

func join(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}

func inEnum(v string, values []string, fold bool) bool {
	for _, e := range values {
		if v == e || (fold && strings.EqualFold(v, e)) {
			return true
		}
	}
	return false
}

// asObject accepts JSON objects and the map[any]any shape some YAML
// decoders produce.
func asObject(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			out[fmt.Sprint(k)] = val
		}
		return out, true
	default:
		return nil, false
	}
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case interface{ Float64() (float64, error) }:
		f, err := n.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}

func kindOf(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "boolean"
	case []any:
		return "array"
	case map[string]any, map[any]any:
		return "object"
	}
	if _, ok := toFloat(v); ok {
		return "number"
	}
	return fmt.Sprintf("%T", v)
}
