package engine

import (
	"fmt"

	"github.com/roach88/spinql/internal/expr"
	"github.com/roach88/spinql/internal/ir"
	"github.com/roach88/spinql/internal/queryir"
)

// Triple is one ground statement of a Graph.
type Triple struct {
	S, P, O ir.Value
}

// String renders the triple in term syntax.
func (t Triple) String() string {
	return ir.FormatTerm(t.S) + " " + ir.FormatTerm(t.P) + " " + ir.FormatTerm(t.O)
}

// ParseTriple parses a triple written in term syntax. Variables are not
// allowed in data.
func ParseTriple(spec ir.TripleSpec, prefixes map[string]string) (Triple, error) {
	var t Triple
	for i, part := range []string{spec.S, spec.P, spec.O} {
		v, err := ir.ParseTerm(part, prefixes)
		if err != nil {
			return Triple{}, fmt.Errorf("triple %v: %w", spec, err)
		}
		switch i {
		case 0:
			t.S = v
		case 1:
			t.P = v
		default:
			t.O = v
		}
	}
	if _, ok := t.P.(ir.URI); !ok {
		return Triple{}, fmt.Errorf("triple %v: predicate must be a URI", spec)
	}
	return t, nil
}

// Graph is an in-memory set of triples indexed by predicate.
//
// Iteration follows insertion order, so matches are deterministic.
// A Graph is not safe for concurrent mutation; concurrent reads are fine.
type Graph struct {
	triples     []Triple
	byPredicate map[string][]int
	seen        map[string]bool
}

// NewGraph creates a graph holding triples.
func NewGraph(triples ...Triple) *Graph {
	g := &Graph{
		byPredicate: make(map[string][]int),
		seen:        make(map[string]bool),
	}
	g.Add(triples...)
	return g
}

// Add inserts triples, skipping ones already present.
func (g *Graph) Add(triples ...Triple) {
	for _, t := range triples {
		key := t.String()
		if g.seen[key] {
			continue
		}
		g.seen[key] = true
		p := t.P.Lexical()
		g.byPredicate[p] = append(g.byPredicate[p], len(g.triples))
		g.triples = append(g.triples, t)
	}
}

// Len returns the number of triples.
func (g *Graph) Len() int {
	return len(g.triples)
}

// Triples returns a copy of the triples in insertion order.
func (g *Graph) Triples() []Triple {
	out := make([]Triple, len(g.triples))
	copy(out, g.triples)
	return out
}

// bindingName is the solution key an item binds, or "" for a concrete node.
// Blank nodes in patterns act as non-projected variables.
func bindingName(item queryir.Item) string {
	switch {
	case item.IsVariable():
		return item.Name
	case item.IsBlank():
		return "_:" + item.Name
	}
	return ""
}

// match extends sol with every binding under which tp matches a triple.
func (g *Graph) match(tp queryir.TriplePattern, sol expr.MapSolution) []expr.MapSolution {
	candidates := g.candidates(tp, sol)
	var out []expr.MapSolution
	for _, idx := range candidates {
		t := g.triples[idx]
		if ext, ok := unify(tp, t, sol); ok {
			out = append(out, ext)
		}
	}
	return out
}

// candidates narrows the scan to the predicate index when the predicate is
// known.
func (g *Graph) candidates(tp queryir.TriplePattern, sol expr.MapSolution) []int {
	var pred ir.Value
	if tp.P.IsNode() {
		pred = tp.P.Node
	} else if name := bindingName(tp.P); name != "" {
		pred = sol[name]
	}
	if pred != nil {
		return g.byPredicate[pred.Lexical()]
	}
	all := make([]int, len(g.triples))
	for i := range all {
		all[i] = i
	}
	return all
}

// unify binds the pattern's variables to t's terms. It returns false when a
// concrete term or an existing binding disagrees.
func unify(tp queryir.TriplePattern, t Triple, sol expr.MapSolution) (expr.MapSolution, bool) {
	items := tp.Items()
	terms := [3]ir.Value{t.S, t.P, t.O}

	ext := make(expr.MapSolution, len(sol)+3)
	for k, v := range sol {
		ext[k] = v
	}
	for i, item := range items {
		if item.IsNode() {
			if !ir.SameTerm(item.Node, terms[i]) {
				return nil, false
			}
			continue
		}
		name := bindingName(item)
		if bound, ok := ext[name]; ok && bound != nil {
			if !ir.SameTerm(bound, terms[i]) {
				return nil, false
			}
			continue
		}
		ext[name] = terms[i]
	}
	return ext, true
}

// compatible reports whether a and b agree on every shared variable.
func compatible(a, b expr.MapSolution) bool {
	for k, av := range a {
		if bv, ok := b[k]; ok && av != nil && bv != nil && !ir.SameTerm(av, bv) {
			return false
		}
	}
	return true
}

// merge returns the union of two compatible solutions.
func merge(a, b expr.MapSolution) expr.MapSolution {
	out := make(expr.MapSolution, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		if v != nil {
			out[k] = v
		}
	}
	return out
}
