package operators

import (
	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/spinql/internal/ir"
)

// comparison is a built-in binary comparison yielding a Boolean.
type comparison struct {
	kind Kind
	test func(c int) bool
}

func (o *comparison) Kind() Kind { return o.kind }
func (o *comparison) Arity() int { return 2 }

func (o *comparison) CanApply(args []ir.Value) bool {
	if len(args) != 2 || args[0] == nil || args[1] == nil {
		return false
	}
	if o.kind == Equal || o.kind == NotEqual {
		return true
	}
	_, err := ir.Compare(args[0], args[1])
	return err == nil
}

// Apply compares the two operands. Ordering comparisons of incomparable
// operands are a TYPE_ERROR. Equality falls back to term identity for
// non-literals, and only fails for two distinct literals of types that
// cannot be compared.
func (o *comparison) Apply(_ *apd.Context, args ...ir.Value) (ir.Value, error) {
	if err := checkOperands(o.kind, args); err != nil {
		return nil, err
	}
	if len(args) != 2 {
		return nil, ir.NewArgumentError("%s: expected 2 operands, got %d", o.kind, len(args))
	}
	a, b := args[0], args[1]

	c, err := ir.Compare(a, b)
	if err == nil {
		return ir.Boolean(o.test(c)), nil
	}
	if o.kind != Equal && o.kind != NotEqual {
		return nil, err
	}

	eq, err := termEqual(a, b)
	if err != nil {
		return nil, err
	}
	if o.kind == NotEqual {
		eq = !eq
	}
	return ir.Boolean(eq), nil
}

// termEqual decides equality for operands ir.Compare rejected.
func termEqual(a, b ir.Value) (bool, error) {
	if ir.EffectiveType(a, b) != ir.NotNumeric {
		return false, nil // NaN
	}
	if ir.SameTerm(a, b) {
		return true, nil
	}
	if a.NodeKind() == ir.NodeLiteral && b.NodeKind() == ir.NodeLiteral {
		_, aOpaque := a.(ir.Literal)
		_, bOpaque := b.(ir.Literal)
		if aOpaque || bOpaque {
			return false, ir.NewTypeError("cannot decide equality of %s and %s", ir.FormatTerm(a), ir.FormatTerm(b))
		}
	}
	return false, nil
}

func newComparison(kind Kind, test func(c int) bool) Operator {
	return &comparison{kind: kind, test: test}
}

func comparisons() []Operator {
	return []Operator{
		newComparison(Equal, func(c int) bool { return c == 0 }),
		newComparison(NotEqual, func(c int) bool { return c != 0 }),
		newComparison(Less, func(c int) bool { return c < 0 }),
		newComparison(LessOrEqual, func(c int) bool { return c <= 0 }),
		newComparison(Greater, func(c int) bool { return c > 0 }),
		newComparison(GreaterOrEqual, func(c int) bool { return c >= 0 }),
	}
}
