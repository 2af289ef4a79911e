package queryir

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spinql/internal/ir"
)

func labelGroup() Group {
	return Group{Triples: []TriplePattern{
		Triple(Var("s"), URIItem("http://www.w3.org/2000/01/rdf-schema#label"), Var("label")),
	}}
}

func TestValidate_WellFormedGroup(t *testing.T) {
	result := Validate(labelGroup())

	assert.True(t, result.IsWellFormed)
	assert.Empty(t, result.Warnings)
}

func TestValidate_PointerTypes(t *testing.T) {
	g := labelGroup()
	result := Validate(&g)
	assert.True(t, result.IsWellFormed, "pointer types are accepted")
}

func TestValidate_EmptyGroup(t *testing.T) {
	result := Validate(Group{})

	assert.False(t, result.IsWellFormed)
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "Empty group")
}

func TestValidate_TripleShape(t *testing.T) {
	tests := []struct {
		name    string
		triple  TriplePattern
		warning string
	}{
		{"unset object", Triple(Var("s"), URIItem("http://ex/p"), Item{}), "object is unset"},
		{"blank predicate", Triple(Var("s"), BlankItem("p"), Var("o")), "used as predicate"},
		{"literal predicate", Triple(Var("s"), NodeItem(ir.Integer(1)), Var("o")), "not a URI"},
		{"literal subject", Triple(NodeItem(ir.NewString("x")), URIItem("http://ex/p"), Var("o")), "used as subject"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Validate(Group{Triples: []TriplePattern{tt.triple}})
			assert.False(t, result.IsWellFormed)
			require.Len(t, result.Warnings, 1)
			assert.Contains(t, result.Warnings[0], tt.warning)
		})
	}
}

func TestValidate_SubQuery(t *testing.T) {
	q := SubQuery{
		Where:  labelGroup(),
		Select: []string{"label"},
		Limit:  1,
		Offset: -1,
	}
	assert.True(t, Validate(q).IsWellFormed)

	q.Select = []string{"missing"}
	q.OrderBy = []OrderKey{{Var: "alsoMissing"}}
	q.Limit = -5
	result := Validate(q)
	assert.False(t, result.IsWellFormed)
	assert.Len(t, result.Warnings, 3)

	result = Validate(SubQuery{Where: labelGroup(), Limit: -1, Offset: -1})
	require.Len(t, result.Warnings, 1)
	assert.Contains(t, result.Warnings[0], "Empty projection")
}

func TestValidate_Search(t *testing.T) {
	ok := SearchPattern{Match: Var("m"), Query: NodeItem(ir.NewPlainLiteral("x")), Threshold: math.NaN(), Limit: -1}
	assert.True(t, Validate(ok).IsWellFormed)

	bad := SearchPattern{Match: URIItem("http://ex/a"), Threshold: -0.5, Limit: -2}
	result := Validate(bad)
	assert.False(t, result.IsWellFormed)
	assert.Len(t, result.Warnings, 4)
}

func TestValidate_Nil(t *testing.T) {
	result := Validate(nil)
	assert.False(t, result.IsWellFormed)
	assert.Equal(t, []string{"nil pattern"}, result.Warnings)
}
