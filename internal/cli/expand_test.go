package cli

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spinql/internal/imports"
	"github.com/roach88/spinql/internal/ir"
	"github.com/roach88/spinql/internal/testutil"
)

func runExpandCommand(t *testing.T, opts *ExpandOptions, name string, args ...string) (string, error) {
	t.Helper()
	buf := &bytes.Buffer{}
	cmd := &cobra.Command{}
	cmd.SetOut(buf)
	cmd.SetErr(&bytes.Buffer{})
	err := runExpand(opts, librariesDir, name, args, cmd)
	return buf.String(), err
}

func decodeExpandResult(t *testing.T, output string) ExpandResult {
	t.Helper()
	var resp struct {
		Status string       `json:"status"`
		Data   ExpandResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp))
	require.Equal(t, "ok", resp.Status)
	return resp.Data
}

func TestExpandTemplateText(t *testing.T) {
	opts := &ExpandOptions{
		RootOptions: &RootOptions{Format: "text"},
		TempVars:    testutil.NewFixedTempVars("v", "years"),
	}

	output, err := runExpandCommand(t, opts, "http://example.org/fn#ageOf", "?who")
	require.NoError(t, err)

	assert.Contains(t, output, "template function <http://example.org/fn#ageOf>")
	assert.Contains(t, output, "<http://example.org/fn#ageOf>(?who)")
	assert.Contains(t, output, "_:call <"+ir.RDFType+"> <http://example.org/fn#ageOf> .")
	assert.Contains(t, output, "?who <http://example.org/age> ?years .")
	assert.Contains(t, output, "Result: ?years")
	assert.Contains(t, output, "?person -> ?who")
	assert.Contains(t, output, "?age -> ?years")
}

func TestExpandTemplateJSON(t *testing.T) {
	opts := &ExpandOptions{
		RootOptions: &RootOptions{Format: "json"},
		TempVars:    testutil.NewFixedTempVars("v", "years"),
	}

	output, err := runExpandCommand(t, opts, "ageOf", "ex:alice")
	require.NoError(t, err)

	result := decodeExpandResult(t, output)
	assert.Equal(t, "template", result.Kind)
	assert.Equal(t, "http://example.org/fn#ageOf", result.Function)
	assert.Equal(t, map[string]string{"person": "<http://example.org/alice>"}, result.Bindings)
	assert.Equal(t, map[string]string{"age": "years"}, result.Temporaries)
	assert.Equal(t, "years", result.Result)
	assert.Contains(t, result.Pattern, "<http://example.org/alice> <http://example.org/age> ?years .")
	assert.Empty(t, result.Body)
}

func TestExpandTemplateSequentialTemporaries(t *testing.T) {
	opts := &ExpandOptions{
		RootOptions: &RootOptions{Format: "json"},
		Sequential:  true,
	}

	output, err := runExpandCommand(t, opts, "ageOf")
	require.NoError(t, err)

	result := decodeExpandResult(t, output)
	assert.Equal(t, map[string]string{"person": "t1", "age": "t2"}, result.Temporaries)
	assert.Empty(t, result.Bindings)
	assert.Equal(t, "t2", result.Result)
	// A call without arguments encodes as its type triple alone.
	assert.Len(t, result.Encoded, 1)
}

func TestExpandTemplateDefaultTemporaries(t *testing.T) {
	opts := &ExpandOptions{RootOptions: &RootOptions{Format: "json"}}

	output, err := runExpandCommand(t, opts, "ageOf", "?who")
	require.NoError(t, err)

	result := decodeExpandResult(t, output)
	require.Contains(t, result.Temporaries, "age")
	assert.Regexp(t, `^tmp_[0-9a-f]{32}$`, result.Temporaries["age"])
}

func TestExpandExpressionEvaluatesConstants(t *testing.T) {
	opts := &ExpandOptions{RootOptions: &RootOptions{Format: "json"}}

	output, err := runExpandCommand(t, opts, "math:double", "21")
	require.NoError(t, err)

	result := decodeExpandResult(t, output)
	assert.Equal(t, "expression", result.Kind)
	assert.Equal(t, "http://example.org/math#double", result.Function)
	assert.Equal(t, `"42"^^xsd:integer`, result.Value)
	assert.Empty(t, result.ValueError)
	assert.NotEmpty(t, result.Body)
	assert.Len(t, result.Fingerprint, 64)
	assert.Empty(t, result.Temporaries)
}

func TestExpandExpressionCallsOtherFunctions(t *testing.T) {
	opts := &ExpandOptions{RootOptions: &RootOptions{Format: "text"}}

	output, err := runExpandCommand(t, opts, "quadruple", "3")
	require.NoError(t, err)
	assert.Contains(t, output, "expression function <http://example.org/math#quadruple>")
	assert.Contains(t, output, `Value: "12"^^xsd:integer`)
	assert.Contains(t, output, "Fingerprint: ")
}

func TestExpandExpressionWithVariableIsNotEvaluated(t *testing.T) {
	opts := &ExpandOptions{RootOptions: &RootOptions{Format: "json"}}

	output, err := runExpandCommand(t, opts, "<http://example.org/math#double>", "?x")
	require.NoError(t, err)

	result := decodeExpandResult(t, output)
	assert.Empty(t, result.Value)
	assert.Empty(t, result.ValueError)
	assert.Equal(t, "<http://example.org/math#double>(?x)", result.Call)
}

func TestExpandExpressionEvaluationError(t *testing.T) {
	opts := &ExpandOptions{RootOptions: &RootOptions{Format: "json"}}

	output, err := runExpandCommand(t, opts, "double", `"abc"`)
	require.NoError(t, err)

	result := decodeExpandResult(t, output)
	assert.Empty(t, result.Value)
	assert.Contains(t, result.ValueError, "TYPE_ERROR")
}

func TestExpandErrors(t *testing.T) {
	tests := []struct {
		name     string
		function string
		args     []string
		wantCode string
	}{
		{"unknown function", "nosuch", nil, ErrCodeNoFunction},
		{"too many template arguments", "ageOf", []string{"?a", "?b", "?c"}, string(ir.ErrCodeMalformedCall)},
		{"expression arity", "double", []string{"1", "2"}, string(ir.ErrCodeMalformedCall)},
		{"blank argument", "double", []string{"_:b"}, ErrCodeGeneric},
		{"bad term", "double", []string{`"open`}, ErrCodeGeneric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := &ExpandOptions{RootOptions: &RootOptions{Format: "json"}}
			output, err := runExpandCommand(t, opts, tt.function, tt.args...)
			require.Error(t, err)
			assert.Equal(t, ExitCommandError, GetExitCode(err))

			var resp CLIResponse
			require.NoError(t, json.Unmarshal([]byte(output), &resp))
			require.NotNil(t, resp.Error)
			assert.Equal(t, tt.wantCode, resp.Error.Code)
		})
	}
}

func TestResolveFunction(t *testing.T) {
	registry := imports.NewRegistry()
	require.NoError(t, registry.Register(ir.Library{
		BaseURI: "http://example.org/a#",
		Functions: []ir.FunctionDecl{
			{URI: "http://example.org/a#f"},
			{URI: "http://example.org/a#g"},
		},
	}))
	require.NoError(t, registry.Register(ir.Library{
		BaseURI:   "http://example.org/b/",
		Functions: []ir.FunctionDecl{{URI: "http://example.org/b/g"}},
	}))
	prefixes := map[string]string{"a": "http://example.org/a#"}

	tests := []struct {
		name string
		want string
	}{
		{"http://example.org/a#f", "http://example.org/a#f"},
		{"<http://example.org/b/g>", "http://example.org/b/g"},
		{"a:g", "http://example.org/a#g"},
		{"f", "http://example.org/a#f"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decl, err := resolveFunction(registry, tt.name, prefixes)
			require.NoError(t, err)
			assert.Equal(t, tt.want, decl.URI)
		})
	}

	_, err := resolveFunction(registry, "g", prefixes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "ambiguous")

	_, err = resolveFunction(registry, "h", prefixes)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no function named h")
}

func TestLocalName(t *testing.T) {
	assert.Equal(t, "f", localName("http://example.org/a#f"))
	assert.Equal(t, "g", localName("http://example.org/b/g"))
	assert.Equal(t, "plain", localName("plain"))
}
