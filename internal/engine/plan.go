package engine

import (
	"fmt"
	"strings"

	"github.com/roach88/spinql/internal/decoder"
	"github.com/roach88/spinql/internal/ir"
	"github.com/roach88/spinql/internal/queryir"
)

// Plan is a where clause with every call site resolved.
type Plan struct {
	// Triples are basic patterns, joined in order.
	Triples []queryir.TriplePattern

	// SubQueries come from template expansions with solution modifiers.
	SubQueries []SubPlan

	// Searches are decoded full-text search invocations.
	Searches []queryir.SearchPattern
}

// SubPlan is a nested sub-query whose where clause is itself compiled.
type SubPlan struct {
	Where    Plan
	Select   []string
	OrderBy  []queryir.OrderKey
	Limit    int
	Offset   int
	Distinct bool
}

// String renders the plan, one step per line, nested plans indented.
func (p Plan) String() string {
	var sb strings.Builder
	p.write(&sb, "")
	return sb.String()
}

func (p Plan) write(sb *strings.Builder, indent string) {
	for _, tp := range p.Triples {
		sb.WriteString(indent + tp.String() + "\n")
	}
	for _, sp := range p.Searches {
		fmt.Fprintf(sb, "%sSEARCH %s %s\n", indent, sp.Match, sp.Query)
	}
	for _, sq := range p.SubQueries {
		head := queryir.SubQuery{
			Select:   sq.Select,
			OrderBy:  sq.OrderBy,
			Limit:    sq.Limit,
			Offset:   sq.Offset,
			Distinct: sq.Distinct,
		}
		sb.WriteString(indent + "SUBQUERY " + modifiers(head) + "\n")
		sq.Where.write(sb, indent+"  ")
	}
}

// modifiers renders the projection and solution modifiers of q.
func modifiers(q queryir.SubQuery) string {
	s := q.String()
	head, tail, _ := strings.Cut(s, " WHERE ")
	if i := strings.Index(tail, "}"); i >= 0 {
		tail = tail[i+1:]
	}
	return head + tail
}

// Compile resolves the call sites of group into a Plan.
func (e *Engine) Compile(group queryir.Group) (Plan, error) {
	return e.compileGroup(group, newExpansionPath(e.maxDepth))
}

func (e *Engine) compileGroup(group queryir.Group, path *expansionPath) (Plan, error) {
	sites, rest := splitCallSites(group.Triples, e.functions)
	plan := Plan{Triples: rest}

	for _, site := range sites {
		res, err := decoder.Decode(queryir.Group{Triples: site}, decoder.Env{Functions: e.functions}, e.decodeOptions()...)
		if err != nil {
			return Plan{}, fmt.Errorf("decode call site: %w", err)
		}
		if res.IsSearch() {
			plan.Searches = append(plan.Searches, *res.Search)
			continue
		}

		call, ok := res.Expr.(*decoder.TemplateCall)
		if !ok {
			return Plan{}, NewUnsupportedPatternError("expression function used as a graph pattern", res.Expr.Functor())
		}
		if err := e.expandInto(&plan, call, path); err != nil {
			return Plan{}, err
		}
	}
	return plan, nil
}

// expandInto expands call and adds the compiled expansion to plan.
func (e *Engine) expandInto(plan *Plan, call *decoder.TemplateCall, path *expansionPath) error {
	uri := call.Decl.URI
	if err := path.push(uri); err != nil {
		return err
	}
	defer path.pop()

	exp, err := call.Expand(e.decodeOptions()...)
	if err != nil {
		return fmt.Errorf("expand <%s>: %w", uri, err)
	}
	e.logger.Debug("call site expanded",
		"function", uri,
		"depth", path.depth(),
		"result", exp.Result,
	)

	switch p := exp.Pattern.(type) {
	case queryir.Group:
		inner, err := e.compileGroup(p, path)
		if err != nil {
			return err
		}
		plan.Triples = append(plan.Triples, inner.Triples...)
		plan.Searches = append(plan.Searches, inner.Searches...)
		plan.SubQueries = append(plan.SubQueries, inner.SubQueries...)
	case queryir.SubQuery:
		inner, err := e.compileGroup(p.Where, path)
		if err != nil {
			return err
		}
		plan.SubQueries = append(plan.SubQueries, SubPlan{
			Where:    inner,
			Select:   p.Select,
			OrderBy:  p.OrderBy,
			Limit:    p.Limit,
			Offset:   p.Offset,
			Distinct: p.Distinct,
		})
	default:
		return NewUnsupportedPatternError(fmt.Sprintf("expansion produced %T", exp.Pattern), uri)
	}
	return nil
}

// splitCallSites partitions triples into call-shaped sites and the remaining
// basic patterns.
//
// A call site is rooted at a variable or blank subject that either has an
// rdf:type naming a declared function, or has a pf:textMatch triple. It owns
// every triple of that subject plus the RDF list cells reachable from its
// objects. Sites are returned in the order of their first triple.
func splitCallSites(triples []queryir.TriplePattern, lookup decoder.FunctionLookup) ([][]queryir.TriplePattern, []queryir.TriplePattern) {
	bySubject := make(map[string][]int)
	for i, tp := range triples {
		key := tp.S.Key()
		bySubject[key] = append(bySubject[key], i)
	}

	used := make([]bool, len(triples))
	var sites [][]int
	for i, tp := range triples {
		if used[i] || tp.S.IsNode() || !isCallRoot(tp, lookup) {
			continue
		}
		var site []int
		if tp.Predicate() == decoder.TextMatch {
			for _, j := range bySubject[tp.S.Key()] {
				if triples[j].Predicate() == decoder.TextMatch && !used[j] {
					site = append(site, j)
				}
			}
		} else {
			for _, j := range bySubject[tp.S.Key()] {
				if !used[j] && triples[j].Predicate() != decoder.TextMatch {
					site = append(site, j)
				}
			}
		}
		for _, j := range site {
			used[j] = true
		}
		// A search subject may itself be a list: (?match ?score).
		site = append(site, listCells(triples, bySubject, used, tp.S)...)
		for _, j := range site {
			site = append(site, listCells(triples, bySubject, used, triples[j].O)...)
		}
		sites = append(sites, site)
	}

	out := make([][]queryir.TriplePattern, len(sites))
	for i, site := range sites {
		out[i] = make([]queryir.TriplePattern, len(site))
		for j, idx := range site {
			out[i][j] = triples[idx]
		}
	}
	var rest []queryir.TriplePattern
	for i, tp := range triples {
		if !used[i] {
			rest = append(rest, tp)
		}
	}
	return out, rest
}

func isCallRoot(tp queryir.TriplePattern, lookup decoder.FunctionLookup) bool {
	switch tp.Predicate() {
	case decoder.TextMatch:
		return true
	case ir.RDFType:
		if lookup == nil || !tp.O.IsNode() {
			return false
		}
		uri, ok := tp.O.Node.(ir.URI)
		if !ok {
			return false
		}
		_, declared := lookup.LookupFunction(string(uri))
		return declared
	}
	return false
}

// listCells claims the rdf:first/rdf:rest triples of the list starting at
// head and returns their indexes. Concrete nodes end the walk.
func listCells(triples []queryir.TriplePattern, bySubject map[string][]int, used []bool, head queryir.Item) []int {
	var cells []int
	visited := map[string]bool{}
	for !head.IsNode() && !head.IsZero() && !visited[head.Key()] {
		visited[head.Key()] = true
		var next queryir.Item
		for _, j := range bySubject[head.Key()] {
			switch triples[j].Predicate() {
			case ir.RDFFirst:
			case ir.RDFRest:
				next = triples[j].O
			default:
				continue
			}
			if !used[j] {
				used[j] = true
				cells = append(cells, j)
			}
		}
		head = next
	}
	return cells
}
