package expr

import (
	"fmt"
	"reflect"

	"github.com/roach88/spinql/internal/ir"
)

// Equal reports whether a and b are structurally equal: the same variant,
// the same functor and pairwise equal children.
func Equal(a, b Expr) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if reflect.TypeOf(a) != reflect.TypeOf(b) || a.Functor() != b.Functor() {
		return false
	}
	switch x := a.(type) {
	case *Constant:
		y := b.(*Constant)
		if x.Value == nil || y.Value == nil {
			return x.Value == nil && y.Value == nil
		}
		return ir.SameTerm(x.Value, y.Value)
	case *Variable:
		return x.Name == b.(*Variable).Name
	case *Arithmetic:
		if x.Kind != b.(*Arithmetic).Kind {
			return false
		}
	case *Comparison:
		if x.Kind != b.(*Comparison).Kind {
			return false
		}
	}

	as, bs := a.Args(), b.Args()
	if len(as) != len(bs) {
		return false
	}
	for i := range as {
		if !Equal(as[i], bs[i]) {
			return false
		}
	}
	return true
}

// Fingerprint returns a content hash of e's declarative form. Structurally
// equal expressions have equal fingerprints.
func Fingerprint(e Expr) (string, error) {
	if e == nil {
		return "", fmt.Errorf("Fingerprint: nil expression")
	}
	return ir.Fingerprint(ir.DomainExpr, e.Spec().Canonical())
}

// Fold replaces every constant, deterministic subtree by its value.
// Subtrees whose evaluation fails are kept, so the error surfaces per
// solution at evaluation time.
func Fold(e Expr, ctx *Context) Expr {
	return Rewrite(e, func(n Expr) Expr {
		if _, ok := n.(*Constant); ok || !n.IsConstant() || !n.IsDeterministic() {
			return n
		}
		v, err := n.Evaluate(EmptySolution, ctx)
		if err != nil {
			if ctx != nil && ctx.Logger != nil {
				ctx.Logger.Debug("constant folding skipped", "expr", n.String(), "error", err)
			}
			return n
		}
		return NewConstant(v)
	})
}
