package harness

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spinql/internal/expr"
	"github.com/roach88/spinql/internal/ir"
)

var testPrefixes = map[string]string{"ex": "http://example.org/"}

// observed builds a step result and its solutions from person/age pairs.
func observed(name string, pairs ...any) (StepResult, []expr.MapSolution) {
	step := StepResult{Name: name, Variables: []string{"p", "age"}, Rows: []map[string]string{}}
	var sols []expr.MapSolution
	for i := 0; i < len(pairs); i += 2 {
		sol := expr.MapSolution{
			"p":   ir.URI("http://example.org/" + pairs[i].(string)),
			"age": ir.Integer(pairs[i+1].(int)),
		}
		sols = append(sols, sol)
		step.Rows = append(step.Rows, map[string]string{
			"p":   ir.FormatTerm(sol["p"]),
			"age": ir.FormatTerm(sol["age"]),
		})
	}
	return step, sols
}

func intPtr(n int) *int { return &n }

func TestEvaluateExpectation_Passing(t *testing.T) {
	step, sols := observed("q", "bob", 25, "alice", 30)

	tests := []struct {
		name   string
		expect *ExpectClause
	}{
		{"nil clause", nil},
		{"count", &ExpectClause{Count: intPtr(2)}},
		{"dropped", &ExpectClause{Dropped: intPtr(0)}},
		{"unordered rows", &ExpectClause{Rows: []map[string]string{
			{"p": "ex:alice", "age": "30"},
			{"p": "ex:bob", "age": "25"},
		}}},
		{"ordered rows", &ExpectClause{Ordered: true, Rows: []map[string]string{
			{"p": "ex:bob", "age": `"25"^^xsd:integer`},
			{"?p": "<http://example.org/alice>", "age": "30"},
		}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Empty(t, EvaluateExpectation(step, sols, tt.expect, testPrefixes))
		})
	}
}

func TestEvaluateExpectation_Failing(t *testing.T) {
	step, sols := observed("q", "bob", 25, "alice", 30)

	tests := []struct {
		name   string
		expect *ExpectClause
		want   []string
	}{
		{
			name:   "count",
			expect: &ExpectClause{Count: intPtr(3)},
			want:   []string{"Assertion failed: count (query q)", "Expected: 3 solutions", "Actual: 2 solutions"},
		},
		{
			name:   "dropped",
			expect: &ExpectClause{Dropped: intPtr(1)},
			want:   []string{"Assertion failed: dropped", "Expected: 1 dropped rows"},
		},
		{
			name:   "wrong order",
			expect: &ExpectClause{Ordered: true, Rows: []map[string]string{{"p": "ex:alice", "age": "30"}, {"p": "ex:bob", "age": "25"}}},
			want:   []string{"Assertion failed: rows", "row 1 is {?age=\"25\"^^xsd:integer ?p=<http://example.org/bob>}"},
		},
		{
			name:   "missing row",
			expect: &ExpectClause{Rows: []map[string]string{{"p": "ex:alice", "age": "30"}, {"p": "ex:carol", "age": "41"}}},
			want:   []string{"no row matches {?age=41 ?p=ex:carol}", "Observed rows:"},
		},
		{
			name:   "row count",
			expect: &ExpectClause{Rows: []map[string]string{{"p": "ex:alice", "age": "30"}}},
			want:   []string{"Actual: 2 rows"},
		},
		{
			name:   "extra variable",
			expect: &ExpectClause{Rows: []map[string]string{{"p": "ex:bob", "age": "25", "name": `"Bob"`}, {"p": "ex:alice", "age": "30"}}},
			want:   []string{"no row matches"},
		},
		{
			name:   "value type differs",
			expect: &ExpectClause{Rows: []map[string]string{{"p": "ex:bob", "age": "25.0"}, {"p": "ex:alice", "age": "30"}}},
			want:   []string{"no row matches {?age=25.0 ?p=ex:bob}"},
		},
		{
			name:   "bad expected term",
			expect: &ExpectClause{Rows: []map[string]string{{"p": "nope:x"}, {"p": "ex:a"}}},
			want:   []string{"query q: expect.rows[0]: ?p:"},
		},
		{
			name:   "expected error",
			expect: &ExpectClause{Error: "TYPE_ERROR"},
			want:   []string{"Expected: error TYPE_ERROR", "Actual: query succeeded"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msgs := EvaluateExpectation(step, sols, tt.expect, testPrefixes)
			require.Len(t, msgs, 1)
			for _, want := range tt.want {
				assert.Contains(t, msgs[0], want)
			}
		})
	}
}

func TestEvaluateExpectation_Errors(t *testing.T) {
	failed := StepResult{Name: "q", ErrorCode: "RECURSIVE_EXPANSION", Rows: []map[string]string{}}

	assert.Empty(t, EvaluateExpectation(failed, nil, &ExpectClause{Error: "RECURSIVE_EXPANSION"}, nil))

	msgs := EvaluateExpectation(failed, nil, &ExpectClause{Error: "QUOTA_EXCEEDED"}, nil)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Actual: error RECURSIVE_EXPANSION")

	msgs = EvaluateExpectation(failed, nil, &ExpectClause{Count: intPtr(0)}, nil)
	require.Len(t, msgs, 1)
	assert.Contains(t, msgs[0], "Expected: query succeeds")

	msgs = EvaluateExpectation(failed, nil, nil, nil)
	assert.Equal(t, []string{"query q: unexpected error RECURSIVE_EXPANSION"}, msgs)
}

func TestEvaluateExpectation_CollectsEveryFailure(t *testing.T) {
	step, sols := observed("q", "bob", 25)
	msgs := EvaluateExpectation(step, sols, &ExpectClause{
		Count:   intPtr(2),
		Dropped: intPtr(1),
		Rows:    []map[string]string{{"p": "ex:alice", "age": "30"}},
	}, testPrefixes)
	assert.Len(t, msgs, 3)
}

func TestFormatRow(t *testing.T) {
	assert.Equal(t, "{?a=1 ?b=2}", formatRow(map[string]string{"b": "2", "?a": "1"}))
	assert.Equal(t, "{}", formatRow(map[string]string{}))
}
