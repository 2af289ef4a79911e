package decoder

import (
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spinql/internal/expr"
	"github.com/roach88/spinql/internal/ir"
	"github.com/roach88/spinql/internal/queryir"
	"github.com/roach88/spinql/internal/stats"
)

func uriItem(s string) queryir.Item { return queryir.URIItem(s) }

func TestExpandGroup(t *testing.T) {
	call := NewTemplateCall(ageOfDecl(), expr.NewVariable("p"), expr.NewConstant(ir.Integer(18)))

	exp, err := call.Expand(WithTempVars(NewSequentialTempVars("t")))
	require.NoError(t, err)

	g, ok := exp.Pattern.(queryir.Group)
	require.True(t, ok, "a body without modifiers expands to a group")

	eighteen := num(ir.Integer(18))
	want := []queryir.TriplePattern{
		queryir.Triple(queryir.Var("p"), uriItem("http://ex/age"), queryir.Var("t1")),
		queryir.Triple(queryir.Var("p"), uriItem("http://ex/knows"), queryir.Var("t2")),
		queryir.Triple(queryir.Var("t1"), uriItem("http://ex/atLeast"), eighteen),
	}
	assert.Equal(t, want, g.Triples)
	assert.Equal(t, "t1", exp.Result)
	assert.Equal(t, map[string]queryir.Item{"person": queryir.Var("p"), "min": eighteen}, exp.Bindings)
	assert.Equal(t, map[string]string{"out": "t1", "friend": "t2"}, exp.Temporaries)
}

func TestExpandBindsResultArgument(t *testing.T) {
	call := NewTemplateCall(ageOfDecl(),
		expr.NewVariable("p"), expr.NewConstant(ir.Integer(18)), expr.NewVariable("age"))

	exp, err := call.Expand(WithTempVars(NewSequentialTempVars("t")))
	require.NoError(t, err)
	assert.Equal(t, "age", exp.Result)
	assert.Equal(t, map[string]string{"friend": "t1"}, exp.Temporaries)
}

func TestExpandSubQuery(t *testing.T) {
	decl := ageOfDecl()
	limit := 1
	decl.Body.Limit = &limit
	decl.Body.OrderBy = []ir.OrderSpec{{Var: "out", Descending: true}}
	decl.Body.Select = []string{"person", "out"}

	call := NewTemplateCall(decl, expr.NewConstant(ir.URI("http://ex/alice")))
	exp, err := call.Expand(WithTempVars(NewSequentialTempVars("t")))
	require.NoError(t, err)

	q, ok := exp.Pattern.(queryir.SubQuery)
	require.True(t, ok, "a body with a limit expands to a sub-query")
	assert.Equal(t, 1, q.Limit)
	assert.Equal(t, -1, q.Offset)
	assert.False(t, q.Distinct)
	assert.Equal(t, []string{"t1"}, q.Select, "constants bound into the projection are dropped")
	assert.Equal(t, []queryir.OrderKey{{Var: "t1", Descending: true}}, q.OrderBy)
	assert.Equal(t, "t1", exp.Result)
	assert.Len(t, q.Where.Triples, 3)
	assert.True(t, queryir.Validate(q).IsWellFormed)
}

func TestExpandEmptyProjection(t *testing.T) {
	decl := ageOfDecl()
	decl.Result = ""
	decl.Body.Select = nil

	exp, err := NewTemplateCall(decl, expr.NewVariable("p")).Expand(WithTempVars(NewSequentialTempVars("t")))
	require.NoError(t, err)

	g := exp.Pattern.(queryir.Group)
	assert.Equal(t, []string{"p", "t1", "t2", "t3"}, g.Variables())
	assert.Equal(t, "p", exp.Result, "the first group variable is the result")
}

func TestExpandErrors(t *testing.T) {
	tooMany := NewTemplateCall(ageOfDecl(),
		expr.NewVariable("a"), expr.NewVariable("b"), expr.NewVariable("c"), expr.NewVariable("d"))
	_, err := tooMany.Expand()
	assert.True(t, ir.IsArgumentError(err), "got %v", err)

	computed := NewTemplateCall(ageOfDecl(), expr.Add(expr.NewVariable("a"), expr.NewConstant(ir.Integer(1))))
	_, err = computed.Expand()
	assert.Equal(t, ir.ErrCodeUnsupportedArgument, ir.CodeOf(err))

	noBody := NewTemplateCall(testLookup()[doubleURI], expr.NewVariable("x"))
	_, err = noBody.Expand()
	assert.Equal(t, ir.ErrCodeUnsupportedOperator, ir.CodeOf(err))

	decl := ageOfDecl()
	decl.Body.Patterns = append(decl.Body.Patterns, ir.TripleSpec{S: "?x", P: "<unterminated", O: "?y"})
	_, err = NewTemplateCall(decl).Expand()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "body pattern 3")
}

func TestExpandDefaultTempVarsAreUnique(t *testing.T) {
	call := NewTemplateCall(ageOfDecl(), expr.NewVariable("p"))

	a, err := call.Expand()
	require.NoError(t, err)
	b, err := call.Expand()
	require.NoError(t, err)

	for name, tmp := range a.Temporaries {
		assert.True(t, strings.HasPrefix(tmp, "tmp_"))
		assert.NotEqual(t, tmp, b.Temporaries[name])
	}
}

func TestExpandRecordsStats(t *testing.T) {
	m := stats.NewManager(stats.WithRecording(true))
	_, err := NewTemplateCall(ageOfDecl()).Expand(WithStats(m))
	require.NoError(t, err)

	recorded := m.Statistics()
	require.Len(t, recorded, 1)
	assert.Equal(t, stats.LabelExpansion, recorded[0].Label)
	assert.Equal(t, ageOfURI, recorded[0].Context)
}

func TestTemplateCallIsNotEvaluable(t *testing.T) {
	call := NewTemplateCall(ageOfDecl(), expr.NewVariable("p"))

	_, err := call.Evaluate(expr.EmptySolution, expr.NewContext())
	assert.Equal(t, ir.ErrCodeUnsupportedOperator, ir.CodeOf(err))

	assert.False(t, call.IsConstant())
	assert.False(t, call.CanParallelise())
	assert.True(t, call.IsDeterministic())
	assert.Equal(t, ir.ExprSpec{Fn: ageOfURI, Args: []ir.ExprSpec{{Var: "p"}}}, call.Spec())

	cp := call.Copy().(*TemplateCall)
	assert.True(t, expr.Equal(call, cp))
	cp.Arguments[0] = expr.NewVariable("q")
	assert.Equal(t, "p", call.Arguments[0].(*expr.Variable).Name, "Copy is deep")

	nondet := ageOfDecl()
	nondet.Deterministic = false
	assert.False(t, NewTemplateCall(nondet).IsDeterministic())
}

func TestSequentialTempVarsConcurrent(t *testing.T) {
	gen := NewSequentialTempVars("")
	seen := make(chan string, 64)

	var wg sync.WaitGroup
	for range 64 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			seen <- gen.Next()
		}()
	}
	wg.Wait()
	close(seen)

	names := make(map[string]bool)
	for n := range seen {
		assert.True(t, strings.HasPrefix(n, "t"))
		names[n] = true
	}
	assert.Len(t, names, 64)
}
