package decoder

import (
	"math"

	"github.com/roach88/spinql/internal/ir"
	"github.com/roach88/spinql/internal/queryir"
	"github.com/roach88/spinql/internal/stats"
)

// TextMatch is the search-match property function.
const TextMatch = ir.PFNamespace + "textMatch"

// DecodeSearch decodes a pf:textMatch group into a SearchPattern.
//
// The group may contain exactly one pf:textMatch triple plus the rdf:first
// and rdf:rest triples of its argument lists. Unset fields use the
// SearchPattern sentinels: a zero Score, NaN Threshold and -1 Limit.
func DecodeSearch(triples []queryir.TriplePattern, opts ...Option) (queryir.SearchPattern, error) {
	cfg := newConfig(opts)
	defer cfg.timer(stats.LabelDecode, "search")()

	sp, err := decodeSearch(triples, cfg)
	if err != nil {
		cfg.logger.Debug("search decode failed", "triples", len(triples), "error", err)
		return queryir.SearchPattern{}, err
	}
	return sp, nil
}

func decodeSearch(triples []queryir.TriplePattern, cfg *config) (queryir.SearchPattern, error) {
	sp := queryir.SearchPattern{
		Threshold: math.NaN(),
		Limit:     -1,
		Original:  append([]queryir.TriplePattern(nil), triples...),
	}

	lists := newListIndex()
	var match *queryir.TriplePattern
	for i, tp := range triples {
		switch tp.Predicate() {
		case TextMatch:
			if match != nil {
				return sp, ir.NewMalformedCallError("more than one pf:textMatch triple")
			}
			match = &triples[i]
		case ir.RDFFirst, ir.RDFRest:
			if err := lists.add(tp); err != nil {
				return sp, err
			}
		default:
			return sp, ir.NewMalformedCallError("unexpected predicate %s in search group", tp.P)
		}
	}
	if match == nil {
		return sp, ir.NewMalformedCallError("no pf:textMatch triple")
	}

	if err := decodeMatch(match.S, lists, &sp); err != nil {
		return sp, err
	}
	if err := decodeQuery(match.O, lists, cfg.tail, &sp); err != nil {
		return sp, err
	}
	if err := lists.checkConsumed(); err != nil {
		return sp, err
	}
	return sp, nil
}

// decodeMatch resolves the subject: a variable, or the list (match score).
func decodeMatch(subject queryir.Item, lists *listIndex, sp *queryir.SearchPattern) error {
	if subject.IsVariable() && !lists.has(subject) {
		sp.Match = subject
		return nil
	}
	if subject.IsNode() {
		return ir.NewMalformedCallError("match term %s is not a variable", subject)
	}
	if !lists.has(subject) {
		return ir.NewMalformedCallError("cannot resolve match variable from %s", subject)
	}

	items, err := lists.walk(subject, 2)
	if err != nil {
		return err
	}
	if !items[0].IsVariable() {
		return ir.NewMalformedCallError("match term %s is not a variable", items[0])
	}
	sp.Match = items[0]
	if len(items) == 2 {
		if !items[1].IsVariable() {
			return ir.NewMalformedCallError("score term %s is not a variable", items[1])
		}
		sp.Score = items[1]
	}
	return nil
}

// decodeQuery resolves the object: a term, or the list (term threshold limit).
func decodeQuery(object queryir.Item, lists *listIndex, tail TailPolicy, sp *queryir.SearchPattern) error {
	if !lists.has(object) {
		if object.IsBlank() {
			return ir.NewMalformedCallError("cannot resolve search term from %s", object)
		}
		sp.Query = object
		return nil
	}

	items, err := lists.walk(object, 3)
	if err != nil {
		return err
	}
	if items[0].IsBlank() {
		return ir.NewMalformedCallError("search term %s is a blank node", items[0])
	}
	sp.Query = items[0]

	switch len(items) {
	case 3:
		if sp.Threshold, err = thresholdOf(items[1]); err != nil {
			return err
		}
		sp.Limit, err = limitOf(items[2])
		return err
	case 2:
		if readsAsLimit(items[1], tail) {
			sp.Limit, err = limitOf(items[1])
			return err
		}
		sp.Threshold, err = thresholdOf(items[1])
		return err
	}
	return nil
}

func readsAsLimit(item queryir.Item, tail TailPolicy) bool {
	switch tail {
	case TailLimit:
		return true
	case TailInfer:
		_, ok := item.Node.(ir.Integer)
		return item.IsNode() && ok
	}
	return false
}

func thresholdOf(item queryir.Item) (float64, error) {
	if !item.IsNode() || item.Node.NumericType() == ir.NotNumeric {
		return 0, ir.NewMalformedCallError("threshold %s is not a numeric literal", item)
	}
	f, err := ir.AsDouble(item.Node)
	if err != nil {
		return 0, ir.NewMalformedCallError("threshold %s: %v", item, err)
	}
	return f, nil
}

func limitOf(item queryir.Item) (int, error) {
	i, ok := item.Node.(ir.Integer)
	if !item.IsNode() || !ok {
		return 0, ir.NewMalformedCallError("limit %s is not an integer literal", item)
	}
	if i < 0 || int64(i) > math.MaxInt32 {
		return 0, ir.NewMalformedCallError("limit %d is out of range", int64(i))
	}
	return int(i), nil
}

// EncodeSearch renders sp as triples. A score variable puts the subject in
// list form; a threshold or limit puts the object in list form. A limit
// without a threshold is encoded with a NaN threshold so the list always
// has three elements. Blank list cells are labeled from the match variable.
func EncodeSearch(sp queryir.SearchPattern) ([]queryir.TriplePattern, error) {
	if !sp.Match.IsVariable() {
		return nil, ir.NewMalformedCallError("match term %s is not a variable", sp.Match)
	}
	if sp.Query.IsZero() || sp.Query.IsBlank() {
		return nil, ir.NewMalformedCallError("search term %s cannot be encoded", sp.Query)
	}

	var triples []queryir.TriplePattern

	subject := sp.Match
	if !sp.Score.IsZero() {
		var cells []queryir.TriplePattern
		subject, cells = encodeList(sp.Match.Name+"_m", []queryir.Item{sp.Match, sp.Score})
		triples = append(triples, cells...)
	}

	object := sp.Query
	hasThreshold := !math.IsNaN(sp.Threshold)
	if hasThreshold || sp.Limit >= 0 {
		args := []queryir.Item{sp.Query, queryir.NodeItem(ir.Double(sp.Threshold))}
		if sp.Limit >= 0 {
			args = append(args, queryir.NodeItem(ir.Integer(sp.Limit)))
		}
		var cells []queryir.TriplePattern
		object, cells = encodeList(sp.Match.Name+"_q", args)
		triples = append(triples, cells...)
	}

	match := queryir.Triple(subject, queryir.URIItem(TextMatch), object)
	return append([]queryir.TriplePattern{match}, triples...), nil
}
