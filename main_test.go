package main_test

import (
	"os"
	"os/exec"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var binaryPath string

func TestMain(m *testing.M) {
	dir, err := os.MkdirTemp("", "apiweave-e2e")
	if err != nil {
		panic(err)
	}

	binaryPath = filepath.Join(dir, "apiweave")
	cmd := exec.Command("go", "build", "-o", binaryPath, ".")
	if out, err := cmd.CombinedOutput(); err != nil {
		os.RemoveAll(dir)
		panic("build failed: " + string(out))
	}

	code := m.Run()
	os.RemoveAll(dir)
	os.Exit(code)
}

func fixturePath(name string) string {
	abs, _ := filepath.Abs(filepath.Join("testdata/customer", name))
	return abs
}

func run(t *testing.T, args ...string) (string, int) {
	t.Helper()
	cmd := exec.Command(binaryPath, args...)
	cmd.Env = append(os.Environ(), "GEMINI_API_KEY=")
	out, err := cmd.CombinedOutput()
	exitCode := 0
	if err != nil {
		if exitErr, ok := err.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		}
	}
	return string(out), exitCode
}

// stdout runs the binary and returns only its standard output.
func stdout(t *testing.T, args ...string) string {
	t.Helper()
	out, err := exec.Command(binaryPath, args...).Output()
	require.NoError(t, err)
	return string(out)
}

func TestE2E_Version(t *testing.T) {
	out, code := run(t, "version")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "apiweave")
}

func TestE2E_FullPipeline(t *testing.T) {
	ws := t.TempDir()

	out := stdout(t, "-w", ws, "map", fixturePath("api_a.json"), fixturePath("api_b.json"), "--offline", "--json")
	mapping := filepath.Join(ws, "mapping.json")
	require.NoError(t, os.WriteFile(mapping, []byte(out), 0644))

	out, code := run(t, "-w", ws, "questionnaire", "validate", fixturePath("answers.yaml"), "--mapping", mapping)
	assert.Equal(t, 0, code, out)

	out, code = run(t, "-w", ws, "plan", "--mapping", mapping, "--answers", fixturePath("answers.yaml"), "--format", "markdown")
	require.Equal(t, 0, code, out)
	assert.Contains(t, out, "Customer→Client")

	plans, err := filepath.Glob(filepath.Join(ws, ".apiweave", "runs", "*", "plan.md"))
	require.NoError(t, err)
	assert.Len(t, plans, 1)
}

func TestE2E_HaltingErrorsExitNonZero(t *testing.T) {
	ws := t.TempDir()

	out, code := run(t, "-w", ws, "validate", "answers", fixturePath("answers_incomplete.yaml"))
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "error:")
	assert.Contains(t, out, "retryPolicy")

	out, code = run(t, "-w", ws, "map", fixturePath("api_a.json"), fixturePath("api_b.json"))
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "GEMINI_API_KEY is not set")
}

func TestE2E_InvalidConfig(t *testing.T) {
	ws := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(ws, ".apiweave.yaml"), []byte("confidence_threshold: 3\n"), 0644))

	out, code := run(t, "-w", ws, "history")
	assert.Equal(t, 1, code)
	assert.Contains(t, out, "confidence_threshold")
}
