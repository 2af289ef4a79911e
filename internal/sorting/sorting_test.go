package sorting

import (
	"bytes"
	"log/slog"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spinql/internal/expr"
	"github.com/roach88/spinql/internal/ir"
)

func row(name string, age ir.Value) expr.MapSolution {
	return expr.MapSolution{"name": ir.NewString(name), "age": age}
}

func names(sols []expr.Solution) []string {
	out := make([]string, len(sols))
	for i, s := range sols {
		v, _ := s.Get("name")
		out[i] = v.Lexical()
	}
	return out
}

func TestAgeAscendingNameDescending(t *testing.T) {
	sols := []expr.Solution{
		row("carol", ir.Integer(30)),
		row("alice", ir.Integer(25)),
		row("dave", ir.Double(25.0)),
		row("bob", ir.MustFromLiteral("30.0", ir.XSDDecimal)),
		row("erin", ir.Integer(20)),
	}
	cmp := Build([]Condition{
		Asc(expr.NewVariable("age")),
		Desc(expr.NewVariable("name")),
	}, expr.NewContext())

	Sort(sols, cmp)
	assert.Equal(t, []string{"erin", "dave", "alice", "carol", "bob"}, names(sols))
}

func TestEvaluationErrorsRankLowest(t *testing.T) {
	var logs bytes.Buffer
	ctx := expr.NewContext(expr.WithLogger(slog.New(slog.NewTextHandler(&logs, &slog.HandlerOptions{Level: slog.LevelDebug}))))

	sols := []expr.Solution{
		row("b", ir.NewPlainLiteral("12")),
		row("a", ir.NewPlainLiteral("not a number")),
		row("c", ir.NewPlainLiteral("3")),
		expr.MapSolution{"name": ir.NewString("d")},
	}
	key := expr.NewCast(ir.XSDInteger, expr.NewVariable("age"))

	Sort(sols, Build([]Condition{Asc(key)}, ctx))
	assert.Equal(t, []string{"a", "d", "c", "b"}, names(sols), "failing rows sink first and keep their order")
	assert.Contains(t, logs.String(), "sort key evaluation failed")

	Sort(sols, Build([]Condition{Desc(key)}, ctx))
	assert.Equal(t, []string{"b", "c", "a", "d"}, names(sols), "descending negates, so failing rows sink last")
}

func TestComparatorIsStrictTotalOrder(t *testing.T) {
	values := []ir.Value{
		ir.Integer(1),
		ir.Double(1.0),
		ir.MustFromLiteral("1.0", ir.XSDDecimal),
		ir.Double(math.NaN()),
		ir.Float(-2),
		ir.NewString("x"),
		ir.NewLangString("x", "en"),
		ir.NewPlainLiteral("x"),
		ir.Boolean(false),
		ir.URI("http://ex/a"),
		ir.Blank("b0"),
		ir.Literal{Lex: "x", DT: "http://ex/dt"},
		ir.GraphLiteral{ID: "g"},
		ir.MustFromLiteral("2024-01-15T10:00:00Z", ir.XSDDateTime),
		ir.MustFromLiteral("2024-01-15T11:00:00+01:00", ir.XSDDateTime),
		nil,
	}
	sols := make([]expr.Solution, 0, len(values)+1)
	for _, v := range values {
		sols = append(sols, expr.MapSolution{"k": v})
	}
	sols = append(sols, expr.MapSolution{})

	// The sort key fails for the two solutions without a binding.
	cmp := Build([]Condition{Asc(expr.NewVariable("k"))}, expr.NewContext())

	for i, a := range sols {
		assert.Zero(t, cmp(a, a), "irreflexive at %d", i)
		for j, b := range sols {
			assert.Equal(t, cmp(a, b), -cmp(b, a), "antisymmetric at %d,%d", i, j)
			for k, c := range sols {
				if cmp(a, b) < 0 && cmp(b, c) < 0 {
					assert.Negative(t, cmp(a, c), "transitive at %d,%d,%d", i, j, k)
				}
			}
		}
	}
}

func TestCompareValuesKindOrder(t *testing.T) {
	ordered := []ir.Value{
		ir.Blank("z"),
		ir.URI("http://a"),
		ir.Double(math.NaN()),
		ir.Integer(-5),
		ir.Double(100),
		ir.Boolean(false),
		ir.Boolean(true),
		ir.MustFromLiteral("2000-01-01T00:00:00Z", ir.XSDDateTime),
		ir.NewString("a"),
		ir.Literal{Lex: "a", DT: "http://ex/dt"},
		ir.GraphLiteral{ID: "a"},
	}
	for i := 1; i < len(ordered); i++ {
		assert.Negative(t, CompareValues(ordered[i-1], ordered[i]), "%s < %s", ordered[i-1], ordered[i])
	}
}

func TestCompareValuesWithinKind(t *testing.T) {
	assert.Negative(t, CompareValues(ir.Integer(2), ir.MustFromLiteral("2.5", ir.XSDDecimal)))
	assert.Negative(t, CompareValues(ir.NewString("apple"), ir.NewString("banana")))
	assert.Positive(t, CompareValues(
		ir.NewString("e\u0301x"),
		ir.NewString("\u00e9"),
	), "strings compare after NFC normalization")
	assert.Zero(t, CompareValues(
		ir.MustFromLiteral("2024-01-15T10:00:00Z", ir.XSDDateTime),
		ir.MustFromLiteral("2024-01-15T10:00:00Z", ir.XSDDateTime),
	))
	assert.Negative(t, CompareValues(
		ir.MustFromLiteral("2024-01-15T10:00:00Z", ir.XSDDateTime),
		ir.MustFromLiteral("2024-01-15T12:00:00+01:00", ir.XSDDateTime),
	))
	assert.Zero(t, CompareValues(ir.Integer(1), ir.Double(1)), "numerics tie by value")
	assert.Negative(t, CompareValues(ir.NewPlainLiteral("x"), ir.NewLangString("x", "en")))
}

func TestComparatorIsReentrant(t *testing.T) {
	cmp := Build([]Condition{Asc(expr.NewVariable("age"))}, expr.NewContext())
	a, b := row("a", ir.Integer(1)), row("b", ir.Integer(2))

	done := make(chan int, 16)
	for range 16 {
		go func() { done <- cmp(a, b) }()
	}
	for range 16 {
		require.Negative(t, <-done)
	}
}

func TestDescribe(t *testing.T) {
	conds := []Condition{Asc(expr.NewVariable("age")), Desc(expr.NewVariable("name"))}
	assert.Equal(t, "ORDER BY ASC(?age) DESC(?name)", Describe(conds))
}
