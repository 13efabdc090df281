package cli_test

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdidvp/apiweave/internal/adapters/inbound/cli"
	"github.com/abdidvp/apiweave/internal/domain"
)

const fixtureDir = "../../../../testdata/customer"

func fixture(name string) string { return filepath.Join(fixtureDir, name) }

// run executes the CLI with args and returns stdout and stderr.
func run(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	cmd := cli.NewRootCmdForTest()
	out, errOut := new(bytes.Buffer), new(bytes.Buffer)
	cmd.SetOut(out)
	cmd.SetErr(errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

// mapToFile runs an offline mapping for the customer fixtures and writes the
// JSON result into the workspace.
func mapToFile(t *testing.T, ws string) string {
	t.Helper()
	out, _, err := run(t, "-w", ws, "map", fixture("api_a.json"), fixture("api_b.json"), "--offline", "--json")
	require.NoError(t, err)
	path := filepath.Join(ws, "mapping.json")
	require.NoError(t, os.WriteFile(path, []byte(out), 0644))
	return path
}

func TestVersionCommand(t *testing.T) {
	out, _, err := run(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "apiweave dev")
}

func TestNormalizeCommand_JSON(t *testing.T) {
	out, _, err := run(t, "-w", t.TempDir(), "normalize", fixture("api_b.json"), "--side", "B", "--json")
	require.NoError(t, err)

	var view domain.NormalizedView
	require.NoError(t, json.Unmarshal([]byte(out), &view))
	assert.Equal(t, domain.SideB, view.Side)
	assert.Equal(t, []string{"Client"}, view.EntityNames())
	assert.Equal(t, "POST /clients", view.Operations[0].Key())
}

func TestNormalizeCommand_DefaultTUI(t *testing.T) {
	out, _, err := run(t, "-w", t.TempDir(), "normalize", fixture("api_a.json"))
	require.NoError(t, err)
	assert.Contains(t, out, "Customer")
	assert.Contains(t, out, "Order")
}

func TestNormalizeCommand_UnknownSide(t *testing.T) {
	_, _, err := run(t, "-w", t.TempDir(), "normalize", fixture("api_a.json"), "--side", "C")
	assert.Error(t, err)
}

func TestMapCommand_JSON(t *testing.T) {
	ws := t.TempDir()
	path := mapToFile(t, ws)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var result domain.MappingResult
	require.NoError(t, json.Unmarshal(data, &result))

	require.Len(t, result.EntityMappings, 1)
	assert.Equal(t, "Customer", result.EntityMappings[0].SourceEntity)
	assert.Equal(t, "Client", result.EntityMappings[0].TargetEntity)
	assert.Greater(t, result.EntityMappings[0].Confidence, 0.7)

	require.Len(t, result.UnmappedEntities, 1)
	assert.Equal(t, "Order", result.UnmappedEntities[0].Name)
	assert.Equal(t, domain.SideA, result.UnmappedEntities[0].Side)

	entries, err := os.ReadDir(filepath.Join(ws, ".apiweave", "runs"))
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestMapCommand_ReusesStoredRun(t *testing.T) {
	ws := t.TempDir()
	args := []string{"-w", ws, "map", fixture("api_a.json"), fixture("api_b.json"), "--offline"}

	out, _, err := run(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "saved in")

	out, _, err = run(t, args...)
	require.NoError(t, err)
	assert.Contains(t, out, "reused in")

	out, _, err = run(t, append(args, "--fresh")...)
	require.NoError(t, err)
	assert.Contains(t, out, "saved in")
}

func TestMapCommand_NoSave(t *testing.T) {
	ws := t.TempDir()
	out, _, err := run(t, "-w", ws, "map", fixture("api_a.json"), fixture("api_b.json"), "--offline", "--no-save")
	require.NoError(t, err)
	assert.Contains(t, out, "Customer")
	assert.NotContains(t, out, "saved in")

	_, err = os.Stat(filepath.Join(ws, ".apiweave"))
	assert.True(t, os.IsNotExist(err))
}

func TestMapCommand_InvalidExtraction(t *testing.T) {
	ws := t.TempDir()
	bad := filepath.Join(ws, "bad.json")
	require.NoError(t, os.WriteFile(bad, []byte(`{"entities":[{"fields":[]}]}`), 0644))

	_, errOut, err := run(t, "-w", ws, "map", bad, fixture("api_b.json"), "--offline")
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrContractViolation)
	assert.Contains(t, errOut, "entities[0].name")
}

func TestMapCommand_MissingAPIKey(t *testing.T) {
	t.Setenv("GEMINI_API_KEY", "")
	_, _, err := run(t, "-w", t.TempDir(), "map", fixture("api_a.json"), fixture("api_b.json"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "GEMINI_API_KEY is not set")
}

func TestQuestionnaireTemplate(t *testing.T) {
	ws := t.TempDir()
	mapping := mapToFile(t, ws)

	out, _, err := run(t, "-w", ws, "questionnaire", "template", "--mapping", mapping)
	require.NoError(t, err)
	assert.Contains(t, out, "# Allowed values:")
	assert.Contains(t, out, "direction:")
	assert.Contains(t, out, "Customer: A")
}

func TestQuestionnaireTemplate_WritesFile(t *testing.T) {
	ws := t.TempDir()
	target := filepath.Join(ws, "answers", "answers.yaml")

	out, _, err := run(t, "-w", ws, "questionnaire", "template", "-o", target)
	require.NoError(t, err)
	assert.Contains(t, out, "wrote")
	assert.FileExists(t, target)
}

func TestQuestionnaireValidate(t *testing.T) {
	ws := t.TempDir()
	mapping := mapToFile(t, ws)

	out, _, err := run(t, "-w", ws, "questionnaire", "validate", fixture("answers.yaml"), "--mapping", mapping)
	require.NoError(t, err)
	assert.Contains(t, out, "answers are complete")
}

func TestQuestionnaireValidate_Incomplete(t *testing.T) {
	ws := t.TempDir()
	mapping := mapToFile(t, ws)

	_, errOut, err := run(t, "-w", ws, "questionnaire", "validate", fixture("answers_incomplete.yaml"), "--mapping", mapping)
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIncompleteAnswers)
	assert.Contains(t, errOut, "retryPolicy")
	assert.Contains(t, errOut, "conflictStrategy")
	assert.Contains(t, errOut, "ownership.Customer")
}

func TestPlanCommand_MarkdownAndHistory(t *testing.T) {
	ws := t.TempDir()
	mapping := mapToFile(t, ws)

	out, _, err := run(t, "-w", ws, "plan", "--mapping", mapping, "--answers", fixture("answers.yaml"), "--format", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "# Shop API ↔ CRM API Integration Plan")
	assert.Contains(t, out, "### Step 1: Customer→Client")
	assert.Contains(t, out, "[Order→?]")
	assert.Contains(t, out, "  1. Capture Customer change event")
	assert.Contains(t, out, "## Implementation Tasks")

	out, _, err = run(t, "-w", ws, "history", "--json")
	require.NoError(t, err)
	var entries []domain.PlanEntry
	require.NoError(t, json.Unmarshal([]byte(out), &entries))
	require.Len(t, entries, 1)
	assert.Equal(t, 1, entries[0].FlowSteps)
	assert.Equal(t, 1, entries[0].BacklogItems)
}

func TestPlanCommand_TUI(t *testing.T) {
	ws := t.TempDir()
	mapping := mapToFile(t, ws)

	out, _, err := run(t, "-w", ws, "plan", "--mapping", mapping, "--answers", fixture("answers.yaml"))
	require.NoError(t, err)
	assert.Contains(t, out, "Flow Steps")
	assert.Contains(t, out, "Customer")
}

func TestPlanCommand_ThresholdOverride(t *testing.T) {
	ws := t.TempDir()
	mapping := mapToFile(t, ws)

	out, _, err := run(t, "-w", ws, "plan", "--mapping", mapping, "--answers", fixture("answers.yaml"),
		"--format", "json", "--threshold", "0.99", "--no-save")
	require.NoError(t, err)

	var p domain.IntegrationPlan
	require.NoError(t, json.Unmarshal([]byte(out), &p))
	assert.Empty(t, p.FlowSteps)
	assert.Equal(t, 0.99, p.Threshold)
	assert.NotEmpty(t, p.BacklogFor("Customer→Client"))

	out, _, err = run(t, "-w", ws, "history")
	require.NoError(t, err)
	assert.Contains(t, out, "No plan history found.")
}

func TestPlanCommand_RejectsNonFiniteThreshold(t *testing.T) {
	ws := t.TempDir()
	mapping := mapToFile(t, ws)

	for _, threshold := range []string{"NaN", "+Inf"} {
		_, _, err := run(t, "-w", ws, "plan", "--mapping", mapping, "--answers", fixture("answers.yaml"),
			"--format", "json", "--threshold", threshold, "--no-save")
		require.Error(t, err, threshold)
		assert.ErrorIs(t, err, domain.ErrPlanGeneration)
		assert.Contains(t, err.Error(), "finite")
	}
}

func TestPlanCommand_UnknownFormat(t *testing.T) {
	ws := t.TempDir()
	mapping := mapToFile(t, ws)

	_, _, err := run(t, "-w", ws, "plan", "--mapping", mapping, "--answers", fixture("answers.yaml"), "--format", "pdf")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown format")
}

func TestPlanCommand_RequiresFlags(t *testing.T) {
	_, _, err := run(t, "-w", t.TempDir(), "plan")
	assert.Error(t, err)
}

func TestValidateCommand(t *testing.T) {
	ws := t.TempDir()
	mapping := mapToFile(t, ws)

	tests := []struct {
		name    string
		args    []string
		wantErr bool
		want    string
	}{
		{name: "valid extraction", args: []string{"validate", "extracted_api", fixture("api_a.json")}, want: "extracted_api: valid"},
		{name: "valid mapping result", args: []string{"validate", "mapping_result", mapping}, want: "mapping_result: valid"},
		{name: "answers with mapping", args: []string{"validate", "answers", fixture("answers.yaml"), "--mapping", mapping}, want: "answers: valid"},
		{name: "incomplete answers", args: []string{"validate", "answers", fixture("answers_incomplete.yaml")}, wantErr: true, want: "retryPolicy"},
		{name: "wrong kind for document", args: []string{"validate", "plan", fixture("api_a.json")}, wantErr: true},
		{name: "unknown kind", args: []string{"validate", "invoice", fixture("api_a.json")}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, _, err := run(t, append([]string{"-w", ws}, tt.args...)...)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
			if tt.want != "" {
				assert.Contains(t, out, tt.want)
			}
		})
	}
}

func TestValidateCommand_JSON(t *testing.T) {
	out, _, err := run(t, "-w", t.TempDir(), "validate", "extracted_api", fixture("api_b.json"), "--json")
	require.NoError(t, err)
	assert.Contains(t, out, `"valid": true`)
	assert.Contains(t, out, `"violations": []`)
}
