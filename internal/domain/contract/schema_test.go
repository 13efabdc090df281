package contract_test

import (
	"encoding/json"
	"testing"

	"github.com/abdidvp/apiweave/internal/domain/contract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

func decodeJSON(t *testing.T, s string) any {
	t.Helper()
	var doc any
	require.NoError(t, json.Unmarshal([]byte(s), &doc))
	return doc
}

func TestValidate_StructuralViolations(t *testing.T) {
	schema := contract.Object(
		contract.Req("name", contract.NonEmpty()),
		contract.Req("count", contract.Integer().AtLeast(1)),
		contract.Opt("ratio", contract.Number().Between(0, 1)),
		contract.Opt("tags", contract.Array(contract.String())),
		contract.Opt("mode", contract.Enum("fast", "slow")),
		contract.Opt("on", contract.Bool()),
	)

	tests := []struct {
		name  string
		doc   string
		field string
		rule  string
	}{
		{"missing key", `{"count": 2}`, "name", contract.RuleRequired},
		{"blank string", `{"name": "  ", "count": 2}`, "name", contract.RuleMinLength},
		{"wrong type", `{"name": 5, "count": 2}`, "name", contract.RuleType},
		{"not an integer", `{"name": "x", "count": 1.5}`, "count", contract.RuleType},
		{"below minimum", `{"name": "x", "count": 0}`, "count", contract.RuleMinimum},
		{"above maximum", `{"name": "x", "count": 1, "ratio": 1.2}`, "ratio", contract.RuleMaximum},
		{"array item type", `{"name": "x", "count": 1, "tags": ["a", 2]}`, "tags[1]", contract.RuleType},
		{"enum", `{"name": "x", "count": 1, "mode": "medium"}`, "mode", contract.RuleEnum},
		{"bool", `{"name": "x", "count": 1, "on": "yes"}`, "on", contract.RuleType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			vs := contract.Validate(schema, decodeJSON(t, tt.doc))
			require.Len(t, vs, 1, vs.String())
			assert.Equal(t, tt.field, vs[0].Field)
			assert.Equal(t, tt.rule, vs[0].Rule)
		})
	}
}

func TestValidate_NeverPanicsOnMalformedInput(t *testing.T) {
	schema, err := contract.SchemaFor(contract.KindMappingResult, contract.Refs{})
	require.NoError(t, err)

	for _, doc := range []any{nil, "text", 42.0, []any{1, "x"}, map[string]any{"entityMappings": "nope"}} {
		assert.NotPanics(t, func() {
			vs := contract.Validate(schema, doc)
			assert.False(t, vs.Valid())
		})
	}
}

func TestValidate_NilSchema(t *testing.T) {
	vs := contract.Validate(nil, map[string]any{})
	assert.False(t, vs.Valid())
}

func TestValidate_AcceptsYAMLNumbers(t *testing.T) {
	var doc any
	require.NoError(t, yaml.Unmarshal([]byte("count: 3\nratio: 0.5\n"), &doc))

	schema := contract.Object(
		contract.Req("count", contract.Integer().AtLeast(1)),
		contract.Req("ratio", contract.Number().Between(0, 1)),
	)
	assert.Empty(t, contract.Validate(schema, doc))
}

func TestValidate_CrossRulesRunInDeclarationOrder(t *testing.T) {
	var order []string
	rule := func(name string) contract.CrossRule {
		return contract.CrossRule{Name: name, Check: func(_ any, vs *contract.Violations) {
			order = append(order, name)
			vs.Add(name, "custom", name)
		}}
	}
	schema := contract.Object(contract.Req("x", contract.String())).WithRules(rule("first"), rule("second"))

	vs := contract.Validate(schema, map[string]any{})
	assert.Equal(t, []string{"first", "second"}, order)
	assert.Equal(t, []string{"x", "first", "second"}, vs.Fields(), "structural violations come first")
}

func TestValidate_MapValuesWalkInKeyOrder(t *testing.T) {
	schema := contract.Object(contract.Req("ownership", contract.MapOf(contract.Enum("A", "B"))))
	vs := contract.Validate(schema, decodeJSON(t, `{"ownership": {"zeta": "C", "alpha": "D", "mid": "A"}}`))
	assert.Equal(t, []string{"ownership.alpha", "ownership.zeta"}, vs.Fields())
}

func TestParseKind(t *testing.T) {
	k, err := contract.ParseKind("integration_answers")
	require.NoError(t, err)
	assert.Equal(t, contract.KindAnswers, k)

	k, err = contract.ParseKind("plan")
	require.NoError(t, err)
	assert.Equal(t, contract.KindPlan, k)

	_, err = contract.ParseKind("invoice")
	assert.Error(t, err)

	vs := contract.ValidateKind("invoice", map[string]any{}, contract.Refs{})
	require.Len(t, vs, 1)
	assert.Equal(t, contract.RuleKind, vs[0].Rule)
}
