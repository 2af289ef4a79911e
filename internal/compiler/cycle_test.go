package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spinql/internal/ir"
)

func exprFn(uri string, calls ...string) ir.FunctionDecl {
	spec := ir.ExprSpec{Var: "x"}
	for _, callee := range calls {
		spec = ir.ExprSpec{Fn: callee, Args: []ir.ExprSpec{spec}}
	}
	return ir.FunctionDecl{URI: uri, Arguments: []string{"x"}, Expr: &spec, Deterministic: true}
}

func TestAnalyzeCyclesEmpty(t *testing.T) {
	assert.Empty(t, AnalyzeCycles(nil))
}

func TestAnalyzeCyclesDAG(t *testing.T) {
	assert.Empty(t, AnalyzeCycles([]ir.Library{mathLibrary()}), "quadruple calling double is not a cycle")
}

func TestAnalyzeCyclesSelfLoop(t *testing.T) {
	lib := ir.Library{BaseURI: "http://ex/", Functions: []ir.FunctionDecl{exprFn("http://ex/f", "http://ex/f")}}

	warnings := AnalyzeCycles([]ir.Library{lib})
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"http://ex/f", "http://ex/f"}, warnings[0].Path)
	assert.Contains(t, warnings[0].Message, "calls itself")
}

func TestAnalyzeCyclesAcrossLibraries(t *testing.T) {
	a := ir.Library{BaseURI: "http://ex/a#", Functions: []ir.FunctionDecl{exprFn("http://ex/a#f", "http://ex/b#g")}}
	b := ir.Library{BaseURI: "http://ex/b#", Functions: []ir.FunctionDecl{
		exprFn("http://ex/b#g", "http://ex/b#h"),
		exprFn("http://ex/b#h", "http://ex/a#f", "sha1"),
		exprFn("http://ex/b#leaf"),
	}}

	warnings := AnalyzeCycles([]ir.Library{a, b})
	require.Len(t, warnings, 1)
	assert.Equal(t, []string{"http://ex/a#f", "http://ex/b#g", "http://ex/b#h", "http://ex/a#f"}, warnings[0].Path)
	assert.Contains(t, warnings[0].Message, "mutually recursive")
}
