package queryir

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/spinql/internal/ir"
)

// Pattern represents a graph pattern.
//
// This is a sealed interface - only types in this package implement it.
type Pattern interface {
	// Variables returns the variables the pattern mentions, in first-occurrence order.
	Variables() []string

	patternNode() // Marker method - seals interface to this package
}

// ItemKind classifies a pattern item.
type ItemKind int

const (
	ItemNone ItemKind = iota // zero Item: an unset optional position
	ItemVariable
	ItemBlank
	ItemNode
)

// Item is one position of a triple pattern.
type Item struct {
	Kind ItemKind
	Name string   // variable name (without '?') or blank label
	Node ir.Value // concrete node when Kind == ItemNode
}

// Var creates a variable item.
func Var(name string) Item {
	return Item{Kind: ItemVariable, Name: name}
}

// BlankItem creates a blank-node item.
func BlankItem(label string) Item {
	return Item{Kind: ItemBlank, Name: label}
}

// NodeItem creates a concrete-node item.
func NodeItem(v ir.Value) Item {
	return Item{Kind: ItemNode, Node: v}
}

// URIItem creates a concrete URI item.
func URIItem(uri string) Item {
	return NodeItem(ir.URI(uri))
}

// IsZero reports whether the item is unset.
func (i Item) IsZero() bool { return i.Kind == ItemNone }

// IsVariable reports whether the item is a named variable.
func (i Item) IsVariable() bool { return i.Kind == ItemVariable }

// IsBlank reports whether the item is a blank node.
func (i Item) IsBlank() bool { return i.Kind == ItemBlank }

// IsNode reports whether the item is a concrete node.
func (i Item) IsNode() bool { return i.Kind == ItemNode }

// IsURI reports whether the item is the concrete URI uri.
func (i Item) IsURI(uri string) bool {
	if i.Kind != ItemNode {
		return false
	}
	u, ok := i.Node.(ir.URI)
	return ok && string(u) == uri
}

// Key returns the identity of the item: "?name", "_:label" or the node's term form.
func (i Item) Key() string {
	switch i.Kind {
	case ItemVariable:
		return "?" + i.Name
	case ItemBlank:
		return "_:" + i.Name
	case ItemNode:
		return ir.FormatTerm(i.Node)
	default:
		return ""
	}
}

// String returns the item in pattern syntax.
func (i Item) String() string {
	if i.Kind == ItemNone {
		return "<unset>"
	}
	return i.Key()
}

// Equal reports whether two items are the same term.
func (i Item) Equal(o Item) bool {
	if i.Kind != o.Kind {
		return false
	}
	if i.Kind == ItemNode {
		return ir.SameTerm(i.Node, o.Node)
	}
	return i.Name == o.Name
}

// ParseItem parses a pattern item: "?x" is a variable, "_:b" a blank node,
// anything else a term (see ir.ParseTerm).
func ParseItem(s string, prefixes map[string]string) (Item, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "?") || strings.HasPrefix(s, "$"):
		if len(s) == 1 {
			return Item{}, fmt.Errorf("empty variable name")
		}
		return Var(s[1:]), nil
	case strings.HasPrefix(s, "_:"):
		if len(s) == 2 {
			return Item{}, fmt.Errorf("empty blank node label")
		}
		return BlankItem(s[2:]), nil
	}
	v, err := ir.ParseTerm(s, prefixes)
	if err != nil {
		return Item{}, err
	}
	return NodeItem(v), nil
}

// TriplePattern is a subject-predicate-object pattern.
type TriplePattern struct {
	S, P, O Item
}

// Triple is shorthand for constructing a TriplePattern.
func Triple(s, p, o Item) TriplePattern {
	return TriplePattern{S: s, P: p, O: o}
}

// ParseTriple parses a triple written in term syntax.
func ParseTriple(spec ir.TripleSpec, prefixes map[string]string) (TriplePattern, error) {
	var tp TriplePattern
	var err error
	if tp.S, err = ParseItem(spec.S, prefixes); err != nil {
		return tp, fmt.Errorf("subject: %w", err)
	}
	if tp.P, err = ParseItem(spec.P, prefixes); err != nil {
		return tp, fmt.Errorf("predicate: %w", err)
	}
	if tp.O, err = ParseItem(spec.O, prefixes); err != nil {
		return tp, fmt.Errorf("object: %w", err)
	}
	return tp, nil
}

// Predicate returns the predicate URI, or "" if the predicate is not a concrete URI.
func (t TriplePattern) Predicate() string {
	if u, ok := t.P.Node.(ir.URI); ok && t.P.Kind == ItemNode {
		return string(u)
	}
	return ""
}

// Items returns the subject, predicate and object.
func (t TriplePattern) Items() [3]Item {
	return [3]Item{t.S, t.P, t.O}
}

// Spec renders the triple back to term syntax.
func (t TriplePattern) Spec() ir.TripleSpec {
	return ir.TripleSpec{S: t.S.Key(), P: t.P.Key(), O: t.O.Key()}
}

// String returns "s p o ."
func (t TriplePattern) String() string {
	return t.S.Key() + " " + t.P.Key() + " " + t.O.Key() + " ."
}

// Group is a basic graph pattern: a conjunction of triple patterns.
type Group struct {
	Triples []TriplePattern
}

func (Group) patternNode() {}

// Variables returns the named variables of the group in first-occurrence order.
// Blank nodes are not included.
func (g Group) Variables() []string {
	seen := make(map[string]bool)
	var vars []string
	for _, tp := range g.Triples {
		for _, item := range tp.Items() {
			if item.IsVariable() && !seen[item.Name] {
				seen[item.Name] = true
				vars = append(vars, item.Name)
			}
		}
	}
	return vars
}

// String renders one triple per line.
func (g Group) String() string {
	var sb strings.Builder
	sb.WriteString("{\n")
	for _, tp := range g.Triples {
		sb.WriteString("  ")
		sb.WriteString(tp.String())
		sb.WriteString("\n")
	}
	sb.WriteString("}")
	return sb.String()
}

// OrderKey is one ORDER BY key of a sub-query.
type OrderKey struct {
	Var        string
	Descending bool
}

// SubQuery is a nested SELECT carrying solution modifiers.
//
// Limit and Offset are -1 when unset.
type SubQuery struct {
	Where    Group
	Select   []string
	OrderBy  []OrderKey
	Limit    int
	Offset   int
	Distinct bool
}

func (SubQuery) patternNode() {}

// Variables returns the projected variables.
func (q SubQuery) Variables() []string {
	return append([]string(nil), q.Select...)
}

// HasModifier reports whether the sub-query orders, slices or deduplicates.
func (q SubQuery) HasModifier() bool {
	return len(q.OrderBy) > 0 || q.Limit >= 0 || q.Offset >= 0 || q.Distinct
}

// String renders the sub-query in SPARQL-like syntax.
func (q SubQuery) String() string {
	var sb strings.Builder
	sb.WriteString("SELECT ")
	if q.Distinct {
		sb.WriteString("DISTINCT ")
	}
	for i, v := range q.Select {
		if i > 0 {
			sb.WriteString(" ")
		}
		sb.WriteString("?" + v)
	}
	sb.WriteString(" WHERE ")
	sb.WriteString(q.Where.String())
	if len(q.OrderBy) > 0 {
		sb.WriteString(" ORDER BY")
		for _, k := range q.OrderBy {
			if k.Descending {
				sb.WriteString(" DESC(?" + k.Var + ")")
			} else {
				sb.WriteString(" ?" + k.Var)
			}
		}
	}
	if q.Limit >= 0 {
		fmt.Fprintf(&sb, " LIMIT %d", q.Limit)
	}
	if q.Offset >= 0 {
		fmt.Fprintf(&sb, " OFFSET %d", q.Offset)
	}
	return sb.String()
}

// SearchPattern is a decoded full-text search invocation.
//
// Score is the zero Item when no score variable was given; Threshold is NaN
// when unset and Limit is -1 when unbounded.
type SearchPattern struct {
	Match     Item
	Score     Item
	Query     Item
	Threshold float64
	Limit     int

	// Original holds the triples the pattern was decoded from or encoded into.
	Original []TriplePattern
}

func (SearchPattern) patternNode() {}

// Variables returns the match, score and query variables that are set.
func (s SearchPattern) Variables() []string {
	var vars []string
	for _, item := range []Item{s.Match, s.Score, s.Query} {
		if item.IsVariable() && !slices.Contains(vars, item.Name) {
			vars = append(vars, item.Name)
		}
	}
	return vars
}

// String renders the original triples, one per line.
func (s SearchPattern) String() string {
	var sb strings.Builder
	for _, tp := range s.Original {
		sb.WriteString(tp.String())
		sb.WriteString("\n")
	}
	return sb.String()
}
