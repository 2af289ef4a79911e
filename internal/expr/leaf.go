package expr

import (
	"math"

	"github.com/roach88/spinql/internal/ir"
)

// Constant is a literal or URI term.
type Constant struct {
	Value ir.Value
}

// NewConstant wraps v. A nil v evaluates to an ARGUMENT_ERROR.
func NewConstant(v ir.Value) *Constant { return &Constant{Value: v} }

func (c *Constant) Functor() string { return "" }
func (c *Constant) Args() []Expr { return nil }
func (c *Constant) Variables() []string { return nil }
func (c *Constant) IsConstant() bool { return true }
func (c *Constant) IsDeterministic() bool { return true }
func (c *Constant) CanParallelise() bool { return true }
func (c *Constant) Copy() Expr { return &Constant{Value: c.Value} }
func (c *Constant) Transform(Transformer) Expr { return c }
func (c *Constant) String() string { return ir.FormatTerm(c.Value) }
func (c *Constant) Spec() ir.ExprSpec { return ir.ExprSpec{Const: ir.FormatTerm(c.Value)} }

// Evaluate returns the constant value.
func (c *Constant) Evaluate(Solution, *Context) (ir.Value, error) {
	if c.Value == nil {
		return nil, ir.NewArgumentError("constant has no value")
	}
	return c.Value, nil
}

// Variable references a binding by name (without the leading '?').
type Variable struct {
	Name string
}

// NewVariable creates a reference to name.
func NewVariable(name string) *Variable { return &Variable{Name: name} }

func (v *Variable) Functor() string { return "" }
func (v *Variable) Args() []Expr { return nil }
func (v *Variable) Variables() []string { return []string{v.Name} }
func (v *Variable) IsConstant() bool { return false }
func (v *Variable) IsDeterministic() bool { return true }
func (v *Variable) CanParallelise() bool { return true }
func (v *Variable) Copy() Expr { return &Variable{Name: v.Name} }
func (v *Variable) Transform(Transformer) Expr { return v }
func (v *Variable) String() string { return "?" + v.Name }
func (v *Variable) Spec() ir.ExprSpec { return ir.ExprSpec{Var: v.Name} }

// Evaluate returns the bound value, or a TYPE_ERROR if the variable is unbound.
func (v *Variable) Evaluate(sol Solution, _ *Context) (ir.Value, error) {
	if sol != nil {
		if val, ok := sol.Get(v.Name); ok {
			return val, nil
		}
	}
	return nil, ir.NewTypeError("variable ?%s is unbound", v.Name)
}

// ARQFunctions is the namespace of the e() and pi() extension functions.
const ARQFunctions = "http://jena.hpl.hp.com/ARQ/function#"

// nullary is a built-in with no arguments.
type nullary struct {
	name          string
	functor       string
	deterministic bool
	eval          func(ctx *Context) ir.Value
}

func (n *nullary) Functor() string { return n.functor }
func (n *nullary) Args() []Expr { return nil }
func (n *nullary) Variables() []string { return nil }
func (n *nullary) IsConstant() bool { return n.deterministic }
func (n *nullary) IsDeterministic() bool { return n.deterministic }
func (n *nullary) CanParallelise() bool { return n.deterministic }
func (n *nullary) Transform(Transformer) Expr { return n }
func (n *nullary) Spec() ir.ExprSpec { return ir.ExprSpec{Fn: n.name} }

func (n *nullary) Copy() Expr {
	c := *n
	return &c
}

func (n *nullary) String() string {
	if n.functor != n.name {
		return "<" + n.functor + ">()"
	}
	return n.name + "()"
}

func (n *nullary) Evaluate(_ Solution, ctx *Context) (ir.Value, error) {
	if ctx == nil {
		return nil, ir.NewArgumentError("%s: no evaluation context", n.name)
	}
	return n.eval(ctx), nil
}

// E returns Euler's number as a double.
func E() Expr {
	return &nullary{
		name:          "e",
		functor:       ARQFunctions + "e",
		deterministic: true,
		eval:          func(*Context) ir.Value { return ir.Double(math.E) },
	}
}

// Pi returns pi as a double.
func Pi() Expr {
	return &nullary{
		name:          "pi",
		functor:       ARQFunctions + "pi",
		deterministic: true,
		eval:          func(*Context) ir.Value { return ir.Double(math.Pi) },
	}
}

// Now returns the query time from the context.
func Now() Expr {
	return &nullary{
		name:    "now",
		functor: "now",
		eval: func(ctx *Context) ir.Value {
			return ir.DateTime{T: ctx.Now, HasTZ: true}
		},
	}
}

// Rand returns a fresh double in [0, 1) on every evaluation.
func Rand() Expr {
	return &nullary{
		name:    "rand",
		functor: "rand",
		eval: func(ctx *Context) ir.Value {
			return ir.Double(ctx.Rand())
		},
	}
}
