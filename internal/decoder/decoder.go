package decoder

import (
	"github.com/roach88/spinql/internal/expr"
	"github.com/roach88/spinql/internal/ir"
	"github.com/roach88/spinql/internal/queryir"
)

// Env carries what decoding needs beyond the group itself.
type Env struct {
	// Functions resolves rdf:type objects of call groups.
	Functions FunctionLookup
}

// Result is a decoded group: exactly one of Expr and Search is set.
type Result struct {
	Expr   expr.Expr
	Search *queryir.SearchPattern
}

// IsSearch reports whether the group decoded to a search pattern.
func (r Result) IsSearch() bool { return r.Search != nil }

// Decode recognizes the call shape of group and decodes it. A group with a
// pf:textMatch triple is a search. A group with an rdf:type triple naming a
// known function is a call. Anything else is MALFORMED_CALL.
func Decode(group queryir.Group, env Env, opts ...Option) (Result, error) {
	if len(group.Triples) == 0 {
		return Result{}, ir.NewMalformedCallError("empty call group")
	}

	typed := false
	for _, tp := range group.Triples {
		switch tp.Predicate() {
		case TextMatch:
			sp, err := DecodeSearch(group.Triples, opts...)
			if err != nil {
				return Result{}, err
			}
			return Result{Search: &sp}, nil
		case ir.RDFType:
			typed = true
		}
	}
	if !typed {
		return Result{}, ir.NewMalformedCallError("group encodes neither a search nor a call")
	}

	e, err := DecodeCall(group.Triples, env.Functions, opts...)
	if err != nil {
		return Result{}, err
	}
	return Result{Expr: e}, nil
}
