package compiler

import (
	"testing"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spinql/internal/ir"
)

const peopleCUE = `
library: people: {
	base: "http://example.org/fn#"
	prefixes: ex: "http://example.org/"
	imports: ["http://example.org/base#"]

	function: ageOf: {
		arguments: ["person", "out"]
		result: "out"
		body: {
			patterns: [
				["?person", "ex:age", "?out"],
				["?person", "rdf:type", "ex:Person"],
			]
			select: ["out"]
			order_by: [{var: "out", descending: true}]
			limit: 1
		}
	}

	function: double: {
		arguments: ["x"]
		expr: {op: "multiply", args: [{var: "x"}, {const: "2"}]}
	}

	function: stamp: {
		uri: "ex:stamp"
		deterministic: false
		expr: {fn: "now"}
	}
}
`

func compilePeople(t *testing.T, src string) (*ir.Library, error) {
	t.Helper()
	ctx := cuecontext.New()
	v := ctx.CompileString(src)
	require.NoError(t, v.Err())
	return CompileLibrary(v.LookupPath(cue.ParsePath("library.people")))
}

func TestCompileLibraryBasic(t *testing.T) {
	lib, err := compilePeople(t, peopleCUE)
	require.NoError(t, err)

	assert.Equal(t, "http://example.org/fn#", lib.BaseURI)
	assert.Equal(t, map[string]string{"ex": "http://example.org/"}, lib.Prefixes)
	assert.Equal(t, []string{"http://example.org/base#"}, lib.Imports)
	require.Len(t, lib.Functions, 3)

	ageOf, ok := lib.Function("http://example.org/fn#ageOf")
	require.True(t, ok)
	assert.True(t, ageOf.IsTemplate())
	assert.True(t, ageOf.Deterministic, "functions are deterministic by default")
	assert.Equal(t, []string{"person", "out"}, ageOf.Arguments)
	assert.Equal(t, "out", ageOf.Result)
	assert.Equal(t, []ir.TripleSpec{
		{S: "?person", P: "<http://example.org/age>", O: "?out"},
		{S: "?person", P: "<" + ir.RDFType + ">", O: "<http://example.org/Person>"},
	}, ageOf.Body.Patterns, "prefixed names are expanded")
	assert.Equal(t, []ir.OrderSpec{{Var: "out", Descending: true}}, ageOf.Body.OrderBy)
	require.NotNil(t, ageOf.Body.Limit)
	assert.Equal(t, 1, *ageOf.Body.Limit)
	assert.Nil(t, ageOf.Body.Offset)
	assert.True(t, ageOf.Body.HasModifier())

	double, ok := lib.Function("http://example.org/fn#double")
	require.True(t, ok)
	require.NotNil(t, double.Expr)
	assert.Equal(t, "multiply", double.Expr.Op)
	assert.Equal(t, `"2"^^xsd:integer`, double.Expr.Args[1].Const, "constants are normalized")

	stamp, ok := lib.Function("http://example.org/stamp")
	require.True(t, ok, "uri overrides the base URI")
	assert.False(t, stamp.Deterministic)
}

func TestCompileLibraryRequiresBase(t *testing.T) {
	_, err := compilePeople(t, `
library: people: {
	function: f: {expr: {const: "1"}}
}
`)
	require.Error(t, err)
	var ce *CompileError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, "base", ce.Field)
}

func TestCompileLibraryRequiresFunctions(t *testing.T) {
	_, err := compilePeople(t, `
library: people: {
	base: "http://example.org/fn#"
}
`)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "at least one function")
}

func TestCompileLibraryFunctionShape(t *testing.T) {
	tests := []struct {
		name    string
		fn      string
		message string
	}{
		{
			name:    "neither body nor expr",
			fn:      `arguments: ["x"]`,
			message: "one of body or expr is required",
		},
		{
			name:    "both body and expr",
			fn:      `body: patterns: [["?x", "<http://p>", "?y"]], expr: {var: "x"}`,
			message: "mutually exclusive",
		},
		{
			name:    "short pattern",
			fn:      `body: patterns: [["?x", "<http://p>"]]`,
			message: "3 terms",
		},
		{
			name:    "unknown prefix",
			fn:      `body: patterns: [["?x", "nope:p", "?y"]]`,
			message: "body.patterns[0]",
		},
		{
			name:    "missing patterns",
			fn:      `body: select: ["x"]`,
			message: "patterns are required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := compilePeople(t, `
library: people: {
	base: "http://example.org/fn#"
	function: f: {`+tt.fn+`}
}
`)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestCompileLibraryHashIsStable(t *testing.T) {
	a, err := compilePeople(t, peopleCUE)
	require.NoError(t, err)
	b, err := compilePeople(t, peopleCUE)
	require.NoError(t, err)

	assert.Equal(t, ir.MustLibraryHash(*a), ir.MustLibraryHash(*b))
	assert.Empty(t, Validate(a))
}
