package decoder

import (
	"strconv"
	"strings"

	"github.com/roach88/spinql/internal/expr"
	"github.com/roach88/spinql/internal/ir"
	"github.com/roach88/spinql/internal/queryir"
	"github.com/roach88/spinql/internal/stats"
)

// Argument predicates of a declarative call.
const (
	SPArguments = ir.SPNamespace + "arguments"
	spArgPrefix = ir.SPNamespace + "arg"
)

// SPArg returns the positional argument predicate sp:argN (1-based).
func SPArg(n int) string {
	return spArgPrefix + strconv.Itoa(n)
}

// argIndex returns N for an sp:argN predicate.
func argIndex(pred string) (int, bool) {
	rest, ok := strings.CutPrefix(pred, spArgPrefix)
	if !ok {
		return 0, false
	}
	n, err := strconv.Atoi(rest)
	if err != nil || n < 1 {
		return 0, false
	}
	return n, true
}

// DecodeCall decodes a call group into an expression.
//
// The group holds one "?c rdf:type <fn>" triple and passes its actual
// arguments either as an sp:arguments list or as sp:arg1..sp:argN triples,
// never both. Template functions decode to a *TemplateCall, expression
// functions to an *expr.FunctionCall.
func DecodeCall(triples []queryir.TriplePattern, lookup FunctionLookup, opts ...Option) (expr.Expr, error) {
	cfg := newConfig(opts)
	defer cfg.timer(stats.LabelDecode, "call")()

	e, err := decodeCall(triples, lookup)
	if err != nil {
		cfg.logger.Debug("call decode failed", "triples", len(triples), "error", err)
		return nil, err
	}
	return e, nil
}

func decodeCall(triples []queryir.TriplePattern, lookup FunctionLookup) (expr.Expr, error) {
	lists := newListIndex()
	var typed, listed *queryir.TriplePattern
	positional := make(map[int]queryir.TriplePattern)

	for i, tp := range triples {
		pred := tp.Predicate()
		switch pred {
		case ir.RDFType:
			if typed != nil {
				return nil, ir.NewMalformedCallError("more than one rdf:type triple")
			}
			typed = &triples[i]
		case ir.RDFFirst, ir.RDFRest:
			if err := lists.add(tp); err != nil {
				return nil, err
			}
		case SPArguments:
			if listed != nil {
				return nil, ir.NewMalformedCallError("more than one sp:arguments triple")
			}
			listed = &triples[i]
		default:
			n, ok := argIndex(pred)
			if !ok {
				return nil, ir.NewMalformedCallError("unexpected predicate %s in call group", tp.P)
			}
			if _, dup := positional[n]; dup {
				return nil, ir.NewMalformedCallError("duplicate sp:arg%d", n)
			}
			positional[n] = tp
		}
	}
	if typed == nil {
		return nil, ir.NewMalformedCallError("no rdf:type triple")
	}
	subject := typed.S
	if subject.IsNode() {
		return nil, ir.NewMalformedCallError("call subject %s must be a blank node or variable", subject)
	}
	fn, ok := typed.O.Node.(ir.URI)
	if !typed.O.IsNode() || !ok {
		return nil, ir.NewMalformedCallError("call type %s is not a URI", typed.O)
	}
	if listed != nil && len(positional) > 0 {
		return nil, ir.NewMalformedCallError("call mixes sp:arguments with sp:argN")
	}
	if lookup == nil {
		return nil, ir.NewUnsupportedOperatorError(string(fn), -1)
	}
	decl, ok := lookup.LookupFunction(string(fn))
	if !ok {
		return nil, ir.NewUnsupportedOperatorError(string(fn), -1)
	}

	var actuals []queryir.Item
	switch {
	case listed != nil:
		if !listed.S.Equal(subject) {
			return nil, ir.NewMalformedCallError("sp:arguments subject %s is not the call %s", listed.S, subject)
		}
		items, err := lists.walk(listed.O, len(decl.Arguments))
		if err != nil {
			return nil, err
		}
		actuals = items
	case len(positional) > 0:
		if len(positional) > len(decl.Arguments) {
			return nil, ir.NewMalformedCallError("<%s> takes %d arguments, %d given", fn, len(decl.Arguments), len(positional))
		}
		for n := 1; n <= len(positional); n++ {
			tp, ok := positional[n]
			if !ok {
				return nil, ir.NewMalformedCallError("sp:arg%d missing", n)
			}
			if !tp.S.Equal(subject) {
				return nil, ir.NewMalformedCallError("sp:arg%d subject %s is not the call %s", n, tp.S, subject)
			}
			actuals = append(actuals, tp.O)
		}
	}
	if err := lists.checkConsumed(); err != nil {
		return nil, err
	}

	args := make([]expr.Expr, len(actuals))
	for i, item := range actuals {
		switch {
		case item.IsVariable():
			args[i] = expr.NewVariable(item.Name)
		case item.IsNode():
			args[i] = expr.NewConstant(item.Node)
		default:
			return nil, ir.NewUnsupportedArgumentError("argument %d of <%s> is %s; only variables and constants bind", i+1, fn, item)
		}
	}

	if decl.IsTemplate() {
		return NewTemplateCall(decl, args...), nil
	}
	return expr.NewFunctionCall(decl.URI, decl.Deterministic, args...), nil
}

// EncodeCall renders a call as a group rooted at subject, passing the
// arguments as an sp:arguments list. Only variable and constant arguments
// can be encoded.
func EncodeCall(call expr.Expr, subject queryir.Item) ([]queryir.TriplePattern, error) {
	if !subject.IsVariable() && !subject.IsBlank() {
		return nil, ir.NewMalformedCallError("call subject %s must be a blank node or variable", subject)
	}
	items := make([]queryir.Item, 0, len(call.Args()))
	for i, arg := range call.Args() {
		item, err := bindable(arg)
		if err != nil {
			return nil, ir.NewUnsupportedArgumentError("argument %d of <%s>: %s", i+1, call.Functor(), err)
		}
		items = append(items, item)
	}

	triples := []queryir.TriplePattern{
		queryir.Triple(subject, queryir.URIItem(ir.RDFType), queryir.URIItem(call.Functor())),
	}
	if len(items) == 0 {
		return triples, nil
	}
	head, cells := encodeList(subject.Name+"_a", items)
	triples = append(triples, queryir.Triple(subject, queryir.URIItem(SPArguments), head))
	return append(triples, cells...), nil
}
