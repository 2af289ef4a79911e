package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spinql/internal/store"
)

const agesScenario = `name: ages
description: ages through the ageOf template
libraries:
  - people.cue
  - math.cue
prefixes:
  ex: "http://example.org/"
  fn: "http://example.org/fn#"
data:
  - [ex:alice, ex:age, "30"]
  - [ex:bob, ex:age, "25"]
queries:
  - name: ages
    where:
      - [_:c, rdf:type, fn:ageOf]
      - [_:c, sp:arg1, "?p"]
      - [_:c, sp:arg2, "?age"]
    select: [p, age]
    expect:
      count: 2
      rows:
        - {p: ex:alice, age: "30"}
        - {p: ex:bob, age: "25"}
`

// scenarioDir writes the named scenarios to a fresh directory.
func scenarioDir(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}
	return dir
}

func absLibraries(t *testing.T) string {
	t.Helper()
	abs, err := filepath.Abs(librariesDir)
	require.NoError(t, err)
	return abs
}

func runTestCommand(t *testing.T, rootOpts *RootOptions, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := NewTestCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(args)
	err := cmd.Execute()
	return buf.String(), err
}

func TestTestCommandMissingArgs(t *testing.T) {
	_, err := runTestCommand(t, &RootOptions{Format: "text"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "accepts 1 arg")
}

func TestTestCommandNonExistentScenariosDir(t *testing.T) {
	_, err := runTestCommand(t, &RootOptions{Format: "text"}, "/nonexistent/scenarios")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "scenarios directory not found")
}

func TestTestCommandNonExistentLibsDir(t *testing.T) {
	_, err := runTestCommand(t, &RootOptions{Format: "text"}, t.TempDir(), "--libs", "/nonexistent/libraries")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "libraries directory not found")
}

func TestTestCommandEmptyScenariosDir(t *testing.T) {
	output, err := runTestCommand(t, &RootOptions{Format: "text"}, t.TempDir())
	require.NoError(t, err)
	assert.Contains(t, output, "No scenarios found")
}

func TestTestCommandEmptyScenariosDirJSON(t *testing.T) {
	output, err := runTestCommand(t, &RootOptions{Format: "json"}, t.TempDir())
	require.NoError(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.Equal(t, 0, resp.Data.Total)
	assert.Empty(t, resp.Data.Scenarios)
}

func TestTestCommandPassingScenario(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"ages.yaml": agesScenario})

	output, err := runTestCommand(t, &RootOptions{Format: "text"}, dir, "--libs", absLibraries(t))
	require.NoError(t, err)
	assert.Contains(t, output, "\u2713 ages")
	assert.Contains(t, output, "Test Summary: 1 passed, 0 failed, 1 total")
	assert.Contains(t, output, "\u2713 All scenarios passed")
}

func TestTestCommandFailingScenario(t *testing.T) {
	failing := bytes.Replace([]byte(agesScenario), []byte("count: 2"), []byte("count: 5"), 1)
	dir := scenarioDir(t, map[string]string{"ages.yaml": string(failing)})

	output, err := runTestCommand(t, &RootOptions{Format: "text"}, dir, "--libs", absLibraries(t))
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, output, "\u2717 ages")
	assert.Contains(t, output, "Test Summary: 0 passed, 1 failed, 1 total")
}

func TestTestCommandFailingScenarioJSON(t *testing.T) {
	failing := bytes.Replace([]byte(agesScenario), []byte("count: 2"), []byte("count: 5"), 1)
	dir := scenarioDir(t, map[string]string{"ages.yaml": string(failing)})

	output, err := runTestCommand(t, &RootOptions{Format: "json"}, dir, "--libs", absLibraries(t))
	require.Error(t, err)

	var resp struct {
		Status string     `json:"status"`
		Data   TestResult `json:"data"`
		Error  *CLIError  `json:"error"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.Equal(t, "E_TEST_FAILED", resp.Error.Code)
	require.Len(t, resp.Data.Scenarios, 1)
	assert.False(t, resp.Data.Scenarios[0].Pass)
	assert.NotEmpty(t, resp.Data.Scenarios[0].Errors)
}

func TestTestCommandLoadError(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"broken.yaml": "name: broken\nunknown_field: 1\n"})

	output, err := runTestCommand(t, &RootOptions{Format: "text"}, dir)
	require.Error(t, err)
	assert.Contains(t, output, "\u2717 broken.yaml")
	assert.Contains(t, output, "failed to load scenario")
}

func TestTestCommandFilter(t *testing.T) {
	other := bytes.Replace([]byte(agesScenario), []byte("name: ages\n"), []byte("name: other\n"), 1)
	dir := scenarioDir(t, map[string]string{
		"ages.yaml":  agesScenario,
		"other.yaml": string(other),
	})

	output, err := runTestCommand(t, &RootOptions{Format: "text"}, dir, "--libs", absLibraries(t), "--filter", "ag*")
	require.NoError(t, err)
	assert.Contains(t, output, "\u2713 ages")
	assert.NotContains(t, output, "other")
	assert.Contains(t, output, "1 total")
}

func TestTestCommandGoldenFiles(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"ages.yaml": agesScenario})
	libs := absLibraries(t)
	goldenPath := filepath.Join(dir, "golden", "ages.golden")

	output, err := runTestCommand(t, &RootOptions{Format: "text"}, dir, "--libs", libs, "--update")
	require.NoError(t, err)
	assert.Contains(t, output, "\u2713 ages (golden updated)")

	golden, err := os.ReadFile(goldenPath)
	require.NoError(t, err)
	assert.Contains(t, string(golden), `"scenario_name":"ages"`)

	// The golden directory is not scanned for scenarios.
	output, err = runTestCommand(t, &RootOptions{Format: "text"}, dir, "--libs", libs)
	require.NoError(t, err)
	assert.Contains(t, output, "1 passed, 0 failed, 1 total")

	require.NoError(t, os.WriteFile(goldenPath, []byte(`{"scenario_name":"ages","steps":[]}`), 0o644))
	output, err = runTestCommand(t, &RootOptions{Format: "text"}, dir, "--libs", libs)
	require.Error(t, err)
	assert.Contains(t, output, "results do not match golden file")
}

func TestTestCommandWritesCatalog(t *testing.T) {
	dir := scenarioDir(t, map[string]string{"ages.yaml": agesScenario})
	dbPath := filepath.Join(t.TempDir(), "catalog.db")

	_, err := runTestCommand(t, &RootOptions{Format: "text", DB: dbPath}, dir, "--libs", absLibraries(t))
	require.NoError(t, err)

	st, err := store.Open(dbPath)
	require.NoError(t, err)
	defer st.Close()

	libs, err := st.ListLibraries(t.Context())
	require.NoError(t, err)
	assert.Len(t, libs, 2)
}

func TestFindScenarioFiles(t *testing.T) {
	dir := scenarioDir(t, map[string]string{
		"a.yaml":    "",
		"b.yml":     "",
		"notes.txt": "",
	})
	require.NoError(t, os.MkdirAll(filepath.Join(dir, "golden"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "golden", "c.yaml"), nil, 0o644))

	files, err := findScenarioFiles(dir, "")
	require.NoError(t, err)
	assert.Equal(t, []string{filepath.Join(dir, "a.yaml"), filepath.Join(dir, "b.yml")}, files)

	_, err = findScenarioFiles(dir, "[")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid filter pattern")
}

func TestGoldenFilePath(t *testing.T) {
	assert.Equal(t,
		filepath.Join("scenarios", "golden", "ages.golden"),
		goldenFilePath(filepath.Join("scenarios", "ages.yaml")))
}
