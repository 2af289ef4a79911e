package operators

import (
	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/spinql/internal/ir"
)

// Kind identifies an operator.
type Kind string

const (
	Multiply       Kind = "multiply"
	Add            Kind = "add"
	Subtract       Kind = "subtract"
	Divide         Kind = "divide"
	Negate         Kind = "negate"
	Equal          Kind = "eq"
	NotEqual       Kind = "ne"
	Less           Kind = "lt"
	LessOrEqual    Kind = "le"
	Greater        Kind = "gt"
	GreaterOrEqual Kind = "ge"
)

// Variadic is the arity of operators accepting any number of operands.
const Variadic = -1

// DecimalPrecision is the number of significant digits used for decimal
// arithmetic when the caller does not supply a context.
const DecimalPrecision = 34

// DefaultDecimalContext returns a decimal context with DecimalPrecision digits.
// An *apd.Context is never mutated by arithmetic and may be shared.
func DefaultDecimalContext() *apd.Context {
	return apd.BaseContext.WithPrecision(DecimalPrecision)
}

// Symbol returns the operator's infix symbol, used for rendering.
func (k Kind) Symbol() string {
	switch k {
	case Multiply:
		return "*"
	case Add:
		return "+"
	case Subtract, Negate:
		return "-"
	case Divide:
		return "/"
	case Equal:
		return "="
	case NotEqual:
		return "!="
	case Less:
		return "<"
	case LessOrEqual:
		return "<="
	case Greater:
		return ">"
	case GreaterOrEqual:
		return ">="
	}
	return string(k)
}

// IsComparison reports whether k yields a boolean from two operands.
func (k Kind) IsComparison() bool {
	switch k {
	case Equal, NotEqual, Less, LessOrEqual, Greater, GreaterOrEqual:
		return true
	}
	return false
}

// Operator is an implementation registered for a kind and arity.
type Operator interface {
	// Kind returns the operator kind.
	Kind() Kind

	// Arity returns the number of operands accepted, or Variadic.
	Arity() int

	// CanApply reports whether the operator handles these operands.
	CanApply(args []ir.Value) bool

	// Apply computes the result. dc is used for decimal arithmetic.
	Apply(dc *apd.Context, args ...ir.Value) (ir.Value, error)
}

// Resolver selects the operator implementation for a kind and operand list.
type Resolver interface {
	Resolve(kind Kind, args []ir.Value) (Operator, error)
}

// Func adapts a plain function into an Operator, for extensions.
type Func struct {
	K       Kind
	N       int
	Accepts func(args []ir.Value) bool // nil accepts everything
	Fn      func(dc *apd.Context, args ...ir.Value) (ir.Value, error)
}

func (f Func) Kind() Kind { return f.K }
func (f Func) Arity() int { return f.N }

func (f Func) CanApply(args []ir.Value) bool {
	if f.N != Variadic && len(args) != f.N {
		return false
	}
	return f.Accepts == nil || f.Accepts(args)
}

func (f Func) Apply(dc *apd.Context, args ...ir.Value) (ir.Value, error) {
	return f.Fn(dc, args...)
}

// checkOperands enforces step 1 of every operator: a non-empty list without nils.
func checkOperands(kind Kind, args []ir.Value) error {
	if len(args) == 0 {
		return ir.NewArgumentError("%s: empty operand list", kind)
	}
	for i, a := range args {
		if a == nil {
			return ir.NewArgumentError("%s: operand %d is null", kind, i)
		}
	}
	return nil
}
