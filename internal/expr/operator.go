package expr

import (
	"github.com/roach88/spinql/internal/ir"
	"github.com/roach88/spinql/internal/operators"
)

// applyOperator resolves kind against the context's operators and applies it.
func applyOperator(ctx *Context, kind operators.Kind, values []ir.Value) (ir.Value, error) {
	if ctx == nil || ctx.Operators == nil {
		return nil, ir.NewUnsupportedOperatorError(string(kind), len(values))
	}
	op, err := ctx.Operators.Resolve(kind, values)
	if err != nil {
		return nil, err
	}
	return op.Apply(ctx.Decimal, values...)
}

// Arithmetic is an n-ary multiply, add, subtract or divide, folded left.
type Arithmetic struct {
	Kind     operators.Kind
	Operands []Expr
}

// NewArithmetic creates an n-ary arithmetic node.
func NewArithmetic(kind operators.Kind, operands ...Expr) *Arithmetic {
	return &Arithmetic{Kind: kind, Operands: operands}
}

// Multiply is shorthand for NewArithmetic(operators.Multiply, ...).
func Multiply(operands ...Expr) *Arithmetic { return NewArithmetic(operators.Multiply, operands...) }

// Add is shorthand for NewArithmetic(operators.Add, ...).
func Add(operands ...Expr) *Arithmetic { return NewArithmetic(operators.Add, operands...) }

// Subtract is shorthand for NewArithmetic(operators.Subtract, ...).
func Subtract(operands ...Expr) *Arithmetic { return NewArithmetic(operators.Subtract, operands...) }

// Divide is shorthand for NewArithmetic(operators.Divide, ...).
func Divide(operands ...Expr) *Arithmetic { return NewArithmetic(operators.Divide, operands...) }

func (a *Arithmetic) Functor() string { return a.Kind.Symbol() }
func (a *Arithmetic) Args() []Expr { return a.Operands }
func (a *Arithmetic) Variables() []string { return variablesOf(a.Operands) }
func (a *Arithmetic) IsDeterministic() bool { return allDeterministic(a.Operands) }
func (a *Arithmetic) CanParallelise() bool { return allParallelisable(a.Operands) }
func (a *Arithmetic) String() string { return "(" + joinArgs(a.Operands, " "+a.Kind.Symbol()+" ") + ")" }

func (a *Arithmetic) IsConstant() bool {
	return allConstant(a.Operands) && allDeterministic(a.Operands)
}

func (a *Arithmetic) Copy() Expr {
	return &Arithmetic{Kind: a.Kind, Operands: copyAll(a.Operands)}
}

func (a *Arithmetic) Transform(t Transformer) Expr {
	return &Arithmetic{Kind: a.Kind, Operands: transformAll(a.Operands, t)}
}

func (a *Arithmetic) Spec() ir.ExprSpec {
	return ir.ExprSpec{Op: string(a.Kind), Args: specsOf(a.Operands)}
}

// Evaluate evaluates the operands and applies the resolved operator.
func (a *Arithmetic) Evaluate(sol Solution, ctx *Context) (ir.Value, error) {
	if len(a.Operands) == 0 {
		return nil, ir.NewArgumentError("%s: empty operand list", a.Kind)
	}
	values, err := EvaluateAll(a.Operands, sol, ctx)
	if err != nil {
		return nil, err
	}
	return applyOperator(ctx, a.Kind, values)
}

// Negate is unary minus.
type Negate struct {
	Operand Expr
}

// NewNegate creates a unary minus node.
func NewNegate(operand Expr) *Negate { return &Negate{Operand: operand} }

func (n *Negate) Functor() string { return operators.Negate.Symbol() }
func (n *Negate) Args() []Expr { return []Expr{n.Operand} }
func (n *Negate) Variables() []string { return n.Operand.Variables() }
func (n *Negate) IsConstant() bool { return n.Operand.IsConstant() && n.Operand.IsDeterministic() }
func (n *Negate) IsDeterministic() bool { return n.Operand.IsDeterministic() }
func (n *Negate) CanParallelise() bool { return allParallelisable(n.Args()) }
func (n *Negate) Copy() Expr { return &Negate{Operand: n.Operand.Copy()} }
func (n *Negate) Transform(t Transformer) Expr { return &Negate{Operand: t(n.Operand)} }
func (n *Negate) String() string { return "-" + n.Operand.String() }

func (n *Negate) Spec() ir.ExprSpec {
	return ir.ExprSpec{Op: string(operators.Negate), Args: []ir.ExprSpec{n.Operand.Spec()}}
}

func (n *Negate) Evaluate(sol Solution, ctx *Context) (ir.Value, error) {
	v, err := n.Operand.Evaluate(sol, ctx)
	if err != nil {
		return nil, err
	}
	return applyOperator(ctx, operators.Negate, []ir.Value{v})
}

// Comparison is a binary relational operator yielding a Boolean.
type Comparison struct {
	Kind        operators.Kind
	Left, Right Expr
}

// NewComparison creates a comparison node. kind must satisfy Kind.IsComparison.
func NewComparison(kind operators.Kind, left, right Expr) *Comparison {
	return &Comparison{Kind: kind, Left: left, Right: right}
}

func (c *Comparison) Functor() string { return c.Kind.Symbol() }
func (c *Comparison) Args() []Expr { return []Expr{c.Left, c.Right} }
func (c *Comparison) Variables() []string { return variablesOf(c.Args()) }
func (c *Comparison) IsConstant() bool { return allConstant(c.Args()) && c.IsDeterministic() }
func (c *Comparison) IsDeterministic() bool { return allDeterministic(c.Args()) }
func (c *Comparison) CanParallelise() bool { return allParallelisable(c.Args()) }

func (c *Comparison) String() string {
	return "(" + c.Left.String() + " " + c.Kind.Symbol() + " " + c.Right.String() + ")"
}

func (c *Comparison) Copy() Expr {
	return &Comparison{Kind: c.Kind, Left: c.Left.Copy(), Right: c.Right.Copy()}
}

func (c *Comparison) Transform(t Transformer) Expr {
	return &Comparison{Kind: c.Kind, Left: t(c.Left), Right: t(c.Right)}
}

func (c *Comparison) Spec() ir.ExprSpec {
	return ir.ExprSpec{Op: string(c.Kind), Args: specsOf(c.Args())}
}

func (c *Comparison) Evaluate(sol Solution, ctx *Context) (ir.Value, error) {
	values, err := EvaluateAll(c.Args(), sol, ctx)
	if err != nil {
		return nil, err
	}
	return applyOperator(ctx, c.Kind, values)
}
