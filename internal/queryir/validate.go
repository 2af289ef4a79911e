package queryir

import (
	"fmt"
	"math"
	"slices"

	"github.com/roach88/spinql/internal/ir"
)

// ValidationResult contains the structural analysis of a pattern.
type ValidationResult struct {
	// IsWellFormed indicates the pattern has no structural problems.
	IsWellFormed bool

	// Warnings lists the problems found. Empty when IsWellFormed is true.
	Warnings []string
}

// Validate checks a pattern for structural problems.
//
// Rules:
//  1. Groups contain at least one triple, and every triple position is set
//  2. Predicates are concrete URIs or variables (never blanks or literals)
//  3. Subjects are never literals
//  4. Sub-queries project at least one variable, and every projected or
//     ordered variable is bound by the WHERE group
//  5. Limits and offsets are -1 (unset) or non-negative
//  6. Search patterns have a variable match term and a query term
//
// Validate is a pure function with no side effects.
func Validate(p Pattern) ValidationResult {
	v := &validator{
		warnings: []string{},
	}
	v.validatePattern(p)

	return ValidationResult{
		IsWellFormed: len(v.warnings) == 0,
		Warnings:     v.warnings,
	}
}

// validator accumulates warnings during traversal.
type validator struct {
	warnings []string
}

func (v *validator) addWarning(format string, args ...any) {
	v.warnings = append(v.warnings, fmt.Sprintf(format, args...))
}

func (v *validator) validatePattern(p Pattern) {
	if p == nil {
		v.addWarning("nil pattern")
		return
	}

	switch pattern := p.(type) {
	case Group:
		v.validateGroup(pattern)
	case *Group:
		v.validateGroup(*pattern)
	case SubQuery:
		v.validateSubQuery(pattern)
	case *SubQuery:
		v.validateSubQuery(*pattern)
	case SearchPattern:
		v.validateSearch(pattern)
	case *SearchPattern:
		v.validateSearch(*pattern)
	default:
		v.addWarning("Unknown pattern type: %T", p)
	}
}

func (v *validator) validateGroup(g Group) {
	if len(g.Triples) == 0 {
		v.addWarning("Empty group - at least one triple pattern is required")
	}
	for i, tp := range g.Triples {
		v.validateTriple(i, tp)
	}
}

func (v *validator) validateTriple(i int, tp TriplePattern) {
	for pos, item := range tp.Items() {
		if item.IsZero() {
			v.addWarning("Triple %d: %s is unset", i, [3]string{"subject", "predicate", "object"}[pos])
		}
	}
	if tp.P.IsBlank() {
		v.addWarning("Triple %d: blank node %s used as predicate", i, tp.P)
	}
	if tp.P.IsNode() && tp.P.Node.NodeKind() != ir.NodeURI {
		v.addWarning("Triple %d: predicate %s is not a URI", i, tp.P)
	}
	if tp.S.IsNode() && tp.S.Node.NodeKind() == ir.NodeLiteral {
		v.addWarning("Triple %d: literal %s used as subject", i, tp.S)
	}
}

func (v *validator) validateSubQuery(q SubQuery) {
	v.validateGroup(q.Where)

	bound := q.Where.Variables()
	if len(q.Select) == 0 {
		v.addWarning("Empty projection - sub-queries must select at least one variable")
	}
	for _, name := range q.Select {
		if !slices.Contains(bound, name) {
			v.addWarning("Projected variable ?%s is not bound by the WHERE group", name)
		}
	}
	for _, key := range q.OrderBy {
		if !slices.Contains(bound, key.Var) {
			v.addWarning("Ordering variable ?%s is not bound by the WHERE group", key.Var)
		}
	}
	if q.Limit < -1 {
		v.addWarning("Negative limit %d", q.Limit)
	}
	if q.Offset < -1 {
		v.addWarning("Negative offset %d", q.Offset)
	}
}

func (v *validator) validateSearch(s SearchPattern) {
	if !s.Match.IsVariable() {
		v.addWarning("Search match term %s is not a variable", s.Match)
	}
	if !s.Score.IsZero() && !s.Score.IsVariable() {
		v.addWarning("Search score term %s is not a variable", s.Score)
	}
	if s.Query.IsZero() {
		v.addWarning("Search query term is unset")
	}
	if s.Limit < -1 {
		v.addWarning("Negative search limit %d", s.Limit)
	}
	if !math.IsNaN(s.Threshold) && (s.Threshold < 0 || math.IsInf(s.Threshold, 0)) {
		v.addWarning("Search threshold %v is outside [0, +Inf)", s.Threshold)
	}
}
