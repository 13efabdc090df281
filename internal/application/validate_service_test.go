package application_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	appconfig "github.com/abdidvp/apiweave/internal/adapters/outbound/config"
	"github.com/abdidvp/apiweave/internal/application"
	"github.com/abdidvp/apiweave/internal/domain/contract"
)

func TestValidateService_UnknownKind(t *testing.T) {
	rep, err := application.NewValidateService(appconfig.New()).Validate(t.TempDir(), "swagger", map[string]any{}, nil)
	require.NoError(t, err)
	assert.False(t, rep.Valid)
	assert.True(t, rep.Violations.Has("", contract.RuleKind))
}

func TestValidateService_ExtractedAPI(t *testing.T) {
	svc := application.NewValidateService(appconfig.New())

	rep, err := svc.Validate(t.TempDir(), "extracted_api", map[string]any{"entities": []any{}}, nil)
	require.NoError(t, err)
	assert.True(t, rep.Valid)
	assert.NotNil(t, rep.Violations, "valid reports serialize an empty list")

	rep, err = svc.Validate(t.TempDir(), "extracted_api", map[string]any{}, nil)
	require.NoError(t, err)
	assert.False(t, rep.Valid)
	assert.Equal(t, []string{"entities"}, rep.Violations.Fields())
}

func TestValidateService_AnswersAgainstMapping(t *testing.T) {
	ws := t.TempDir()
	p := newPipeline(&factoryCalls{})
	a, b := customerExtractions()
	resp, err := p.Map(context.Background(), application.MapRequest{Workspace: ws, ExtractionA: a, ExtractionB: b, Offline: true})
	require.NoError(t, err)

	answers := customerAnswers()
	answers["ownership"] = map[string]any{}
	answers["overrides"] = []any{"Customer→Lead"}

	svc := application.NewValidateService(appconfig.New())
	rep, err := svc.Validate(ws, "integration_answers", answers, &resp.Result)
	require.NoError(t, err)
	assert.Equal(t, contract.KindAnswers, rep.Kind)
	assert.True(t, rep.Violations.Has("ownership.Customer", contract.RuleRequired))
	assert.True(t, rep.Violations.Has("overrides[0]", contract.RuleReference))

	rep, err = svc.Validate(ws, "answers", answers, nil)
	require.NoError(t, err)
	assert.True(t, rep.Valid, "without a mapping only structural rules apply")
}
