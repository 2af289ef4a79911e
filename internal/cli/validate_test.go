package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spinql/internal/compiler"
)

func TestValidateValidLibraries(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{librariesDir})

	err := cmd.Execute()
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "\u2713 All libraries valid")
}

func TestValidateValidLibrariesJSON(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{librariesDir})

	err := cmd.Execute()
	require.NoError(t, err)

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "ok", resp.Status)
	assert.True(t, resp.Data.Valid)
	assert.Empty(t, resp.Data.Errors)
}

func TestValidateNonExistentDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{"/nonexistent/libraries"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E005")
	assert.Contains(t, buf.String(), "Error [E005]")
}

func TestValidateEmptyDirectory(t *testing.T) {
	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{t.TempDir()})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.Contains(t, err.Error(), "E003")
}

func TestValidateMissingBase(t *testing.T) {
	tmpDir := t.TempDir()
	writeCUE(t, tmpDir, "bad.cue", missingBaseLibrary)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "text"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{tmpDir})

	err := cmd.Execute()
	require.Error(t, err)
	// Validation failures exit 1, unlike load errors.
	assert.Equal(t, ExitFailure, GetExitCode(err))

	output := buf.String()
	assert.Contains(t, output, "\u2717 Validation failed")
	assert.Contains(t, output, "E101: library.bad: base is required")
}

func TestValidateDuplicateFunctionJSON(t *testing.T) {
	tmpDir := t.TempDir()
	writeCUE(t, tmpDir, "dup.cue", `
package test

library: one: {
	base: "http://example.org/dup#"
	function: f: {arguments: ["x"], expr: {var: "x"}}
}

library: two: {
	base: "http://example.org/dup#"
	function: f: {arguments: ["y"], expr: {var: "y"}}
}
`)

	buf := &bytes.Buffer{}
	rootOpts := &RootOptions{Format: "json"}
	cmd := NewValidateCommand(rootOpts)
	cmd.SetOut(buf)
	cmd.SetArgs([]string{tmpDir})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	var resp struct {
		Status string           `json:"status"`
		Data   ValidationResult `json:"data"`
		Error  *CLIError        `json:"error"`
	}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &resp))
	assert.Equal(t, "error", resp.Status)
	assert.False(t, resp.Data.Valid)
	require.NotEmpty(t, resp.Data.Errors)
	assert.Equal(t, compiler.ErrDuplicateFunction, resp.Data.Errors[0].Code)
	assert.Equal(t, compiler.ErrDuplicateFunction, resp.Error.Code)
}

func TestValidateRecursiveExpressionFunctions(t *testing.T) {
	tmpDir := t.TempDir()
	writeCUE(t, tmpDir, "rec.cue", `
package test

library: rec: {
	base: "http://example.org/rec#"
	function: f: {arguments: ["x"], expr: {fn: "<http://example.org/rec#g>", args: [{var: "x"}]}}
	function: g: {arguments: ["x"], expr: {fn: "<http://example.org/rec#f>", args: [{var: "x"}]}}
}
`)

	errs, err := ValidateLibrariesDir(tmpDir)
	require.NoError(t, err)

	var codes []string
	for _, e := range errs {
		codes = append(codes, e.Code)
	}
	assert.Contains(t, codes, compiler.ErrRecursiveFunction)
}

func TestValidateLibrariesDir(t *testing.T) {
	errs, err := ValidateLibrariesDir(librariesDir)
	require.NoError(t, err)
	assert.Empty(t, errs)

	_, err = ValidateLibrariesDir("/nonexistent/libraries")
	require.Error(t, err)
	var loadErr *LoadError
	require.ErrorAs(t, err, &loadErr)
	assert.Equal(t, ErrCodeNotFound, loadErr.Code)
}

func TestToValidationError(t *testing.T) {
	got := toValidationError(&LoadError{Code: "E101", Message: "library.bad: base is required"})
	assert.Equal(t, "library.bad", got.Field)
	assert.Equal(t, "base is required", got.Message)
	assert.Equal(t, "E101", got.Code)
	assert.Zero(t, got.Line)

	got = toValidationError(&LoadError{Code: ErrCodeGeneric, Message: "no libraries found"})
	assert.Equal(t, "load", got.Field)
	assert.Equal(t, "no libraries found", got.Message)
}
