package artifact_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abdidvp/apiweave/internal/adapters/outbound/artifact"
	"github.com/abdidvp/apiweave/internal/domain/contract"
)

func write(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestReadDocument_JSON(t *testing.T) {
	path := write(t, "api_a.json", `{"entities": [{"name": "Customer", "fields": [{"name": "email", "type": "string", "required": true}]}]}`)

	doc, err := artifact.ReadDocument(path)
	require.NoError(t, err)
	assert.Empty(t, contract.ValidateKind(contract.KindExtractedAPI, doc, contract.Refs{}))
}

func TestReadDocument_YAML(t *testing.T) {
	path := write(t, "answers.yaml", `
direction: A->B
triggerMode: poll
retryPolicy:
  maxAttempts: 5
  backoff: linear
ownership:
  Customer: A
`)

	doc, err := artifact.ReadDocument(path)
	require.NoError(t, err)
	assert.Empty(t, contract.ValidateKind(contract.KindAnswers, doc, contract.Refs{}))
}

func TestReadDocument_Errors(t *testing.T) {
	_, err := artifact.ReadDocument(filepath.Join(t.TempDir(), "missing.json"))
	assert.ErrorIs(t, err, os.ErrNotExist)

	_, err = artifact.ReadDocument(write(t, "bad.json", `{"entities": [`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "parsing bad.json")

	_, err = artifact.ReadDocument(write(t, "empty.yaml", "  \n"))
	assert.Error(t, err)
}

func TestWriteYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "answers.yaml")
	require.NoError(t, artifact.WriteYAML(path, map[string]any{"direction": "A→B"}))

	doc, err := artifact.ReadDocument(path)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"direction": "A→B"}, doc)
}
