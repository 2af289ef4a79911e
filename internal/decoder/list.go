package decoder

import (
	"slices"
	"strconv"

	"github.com/roach88/spinql/internal/ir"
	"github.com/roach88/spinql/internal/queryir"
)

// listIndex holds the rdf:first and rdf:rest triples of a group, keyed by
// list cell. It lives only for the duration of one decode.
type listIndex struct {
	firsts   map[string]queryir.Item
	rests    map[string]queryir.Item
	consumed map[string]bool
}

func newListIndex() *listIndex {
	return &listIndex{
		firsts:   make(map[string]queryir.Item),
		rests:    make(map[string]queryir.Item),
		consumed: make(map[string]bool),
	}
}

// add records an rdf:first or rdf:rest triple. A cell may have at most one
// of each.
func (x *listIndex) add(tp queryir.TriplePattern) error {
	key := tp.S.Key()
	if tp.S.IsNode() {
		return ir.NewMalformedCallError("list cell %s must be a blank node or variable", key)
	}
	table, name := x.firsts, "rdf:first"
	if tp.Predicate() == ir.RDFRest {
		table, name = x.rests, "rdf:rest"
	}
	if _, dup := table[key]; dup {
		return ir.NewMalformedCallError("list cell %s has more than one %s", key, name)
	}
	table[key] = tp.O
	return nil
}

// has reports whether item is the head of a list cell.
func (x *listIndex) has(item queryir.Item) bool {
	_, ok := x.firsts[item.Key()]
	return ok
}

// walk decodes the list rooted at head, returning at most k elements. The
// list must end in rdf:nil within k cells. Every visited cell is marked
// consumed.
func (x *listIndex) walk(head queryir.Item, k int) ([]queryir.Item, error) {
	var out []queryir.Item
	cur := head
	for !cur.IsURI(ir.RDFNil) {
		key := cur.Key()
		if len(out) == k {
			return nil, ir.NewMalformedCallError("list at %s is longer than %d elements", head.Key(), k)
		}
		if x.consumed[key] {
			return nil, ir.NewMalformedCallError("list cell %s is visited twice", key)
		}
		first, ok := x.firsts[key]
		if !ok {
			return nil, ir.NewMalformedCallError("list cell %s has no rdf:first", key)
		}
		rest, ok := x.rests[key]
		if !ok {
			return nil, ir.NewMalformedCallError("list cell %s has no rdf:rest", key)
		}
		x.consumed[key] = true
		out = append(out, first)
		cur = rest
	}
	return out, nil
}

// unconsumed returns the cells never reached by walk, sorted.
func (x *listIndex) unconsumed() []string {
	var keys []string
	for key := range x.firsts {
		if !x.consumed[key] {
			keys = append(keys, key)
		}
	}
	for key := range x.rests {
		if !x.consumed[key] && !slices.Contains(keys, key) {
			keys = append(keys, key)
		}
	}
	slices.Sort(keys)
	return keys
}

// checkConsumed fails if any list cell was not part of a decoded list.
func (x *listIndex) checkConsumed() error {
	if left := x.unconsumed(); len(left) > 0 {
		return ir.NewMalformedCallError("unexpected list cells %v", left)
	}
	return nil
}

// encodeList renders items as an RDF list with cells label0, label1...
// An empty list is rdf:nil itself.
func encodeList(label string, items []queryir.Item) (queryir.Item, []queryir.TriplePattern) {
	if len(items) == 0 {
		return queryir.URIItem(ir.RDFNil), nil
	}
	cells := make([]queryir.Item, len(items))
	for i := range items {
		cells[i] = queryir.BlankItem(label + strconv.Itoa(i))
	}
	var triples []queryir.TriplePattern
	for i, item := range items {
		next := queryir.URIItem(ir.RDFNil)
		if i+1 < len(cells) {
			next = cells[i+1]
		}
		triples = append(triples,
			queryir.Triple(cells[i], queryir.URIItem(ir.RDFFirst), item),
			queryir.Triple(cells[i], queryir.URIItem(ir.RDFRest), next),
		)
	}
	return cells[0], triples
}
