package operators

import (
	"math"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/spinql/internal/ir"
)

// arithmetic is a built-in n-ary numeric operator defined by one binary step
// per numeric rank.
type arithmetic struct {
	kind    Kind
	integer func(a, b int64) (int64, error)
	decimal func(dc *apd.Context, res, a, b *apd.Decimal) (apd.Condition, error)
	float   func(a, b float32) float32
	double  func(a, b float64) float64

	// promoteInteger folds integer operands as decimals (division).
	promoteInteger bool
}

func (o *arithmetic) Kind() Kind { return o.kind }
func (o *arithmetic) Arity() int { return Variadic }

func (o *arithmetic) CanApply(args []ir.Value) bool {
	return len(args) > 0 && ir.EffectiveType(args...) != ir.NotNumeric
}

// Apply runs the widen-then-fold algorithm.
func (o *arithmetic) Apply(dc *apd.Context, args ...ir.Value) (ir.Value, error) {
	if err := checkOperands(o.kind, args); err != nil {
		return nil, err
	}
	t := ir.EffectiveType(args...)
	if t == ir.NotNumeric {
		for _, a := range args {
			if a.NumericType() == ir.NotNumeric {
				return nil, ir.NewTypeError("%s: operand has no numeric value: %s", o.kind, ir.FormatTerm(a))
			}
		}
	}
	if len(args) == 1 {
		return args[0], nil
	}
	if t == ir.NumericInteger && o.promoteInteger {
		t = ir.NumericDecimal
	}
	if dc == nil {
		dc = DefaultDecimalContext()
	}

	switch t {
	case ir.NumericInteger:
		return o.foldInteger(args)
	case ir.NumericDecimal:
		return o.foldDecimal(dc, args)
	case ir.NumericFloat:
		return o.foldFloat(args)
	default:
		return o.foldDouble(args)
	}
}

func (o *arithmetic) foldInteger(args []ir.Value) (ir.Value, error) {
	acc, err := ir.AsInteger(args[0])
	if err != nil {
		return nil, err
	}
	for _, a := range args[1:] {
		n, err := ir.AsInteger(a)
		if err != nil {
			return nil, err
		}
		if acc, err = o.integer(acc, n); err != nil {
			return nil, err
		}
	}
	return ir.Integer(acc), nil
}

func (o *arithmetic) foldDecimal(dc *apd.Context, args []ir.Value) (ir.Value, error) {
	first, err := ir.AsDecimal(args[0])
	if err != nil {
		return nil, err
	}
	acc := new(apd.Decimal).Set(first)
	for _, a := range args[1:] {
		n, err := ir.AsDecimal(a)
		if err != nil {
			return nil, err
		}
		res := new(apd.Decimal)
		if _, err := o.decimal(dc, res, acc, n); err != nil {
			return nil, err
		}
		acc = res
	}
	return ir.NewDecimal(acc), nil
}

func (o *arithmetic) foldFloat(args []ir.Value) (ir.Value, error) {
	acc, err := ir.AsFloat(args[0])
	if err != nil {
		return nil, err
	}
	for _, a := range args[1:] {
		n, err := ir.AsFloat(a)
		if err != nil {
			return nil, err
		}
		acc = o.float(acc, n)
	}
	return ir.Float(acc), nil
}

func (o *arithmetic) foldDouble(args []ir.Value) (ir.Value, error) {
	acc, err := ir.AsDouble(args[0])
	if err != nil {
		return nil, err
	}
	for _, a := range args[1:] {
		n, err := ir.AsDouble(a)
		if err != nil {
			return nil, err
		}
		acc = o.double(acc, n)
	}
	return ir.Double(acc), nil
}

// decimalStep wraps an apd binary operation, mapping trapped conditions to
// evaluation errors.
func decimalStep(kind Kind, op func(dc *apd.Context, res, a, b *apd.Decimal) (apd.Condition, error)) func(dc *apd.Context, res, a, b *apd.Decimal) (apd.Condition, error) {
	return func(dc *apd.Context, res, a, b *apd.Decimal) (apd.Condition, error) {
		cond, err := op(dc, res, a, b)
		if err != nil {
			return cond, &ir.Error{
				Code:    ir.ErrCodeOverflow,
				Message: "decimal " + string(kind) + ": " + err.Error(),
				Target:  string(kind),
			}
		}
		return cond, nil
	}
}

func newMultiply() Operator {
	return &arithmetic{
		kind: Multiply,
		integer: func(a, b int64) (int64, error) {
			if a == 0 || b == 0 {
				return 0, nil
			}
			r := a * b
			if r/b != a || (a == -1 && b == math.MinInt64) || (b == -1 && a == math.MinInt64) {
				return 0, ir.NewOverflowError(string(Multiply), a, b)
			}
			return r, nil
		},
		decimal: decimalStep(Multiply, func(dc *apd.Context, res, a, b *apd.Decimal) (apd.Condition, error) {
			return dc.Mul(res, a, b)
		}),
		float:  func(a, b float32) float32 { return a * b },
		double: func(a, b float64) float64 { return a * b },
	}
}

func newAdd() Operator {
	return &arithmetic{
		kind: Add,
		integer: func(a, b int64) (int64, error) {
			if (b > 0 && a > math.MaxInt64-b) || (b < 0 && a < math.MinInt64-b) {
				return 0, ir.NewOverflowError(string(Add), a, b)
			}
			return a + b, nil
		},
		decimal: decimalStep(Add, func(dc *apd.Context, res, a, b *apd.Decimal) (apd.Condition, error) {
			return dc.Add(res, a, b)
		}),
		float:  func(a, b float32) float32 { return a + b },
		double: func(a, b float64) float64 { return a + b },
	}
}

func newSubtract() Operator {
	return &arithmetic{
		kind: Subtract,
		integer: func(a, b int64) (int64, error) {
			if (b < 0 && a > math.MaxInt64+b) || (b > 0 && a < math.MinInt64+b) {
				return 0, ir.NewOverflowError(string(Subtract), a, b)
			}
			return a - b, nil
		},
		decimal: decimalStep(Subtract, func(dc *apd.Context, res, a, b *apd.Decimal) (apd.Condition, error) {
			return dc.Sub(res, a, b)
		}),
		float:  func(a, b float32) float32 { return a - b },
		double: func(a, b float64) float64 { return a - b },
	}
}

func newDivide() Operator {
	return &arithmetic{
		kind:           Divide,
		promoteInteger: true,
		decimal: func(dc *apd.Context, res, a, b *apd.Decimal) (apd.Condition, error) {
			if b.IsZero() {
				return 0, ir.NewArgumentError("divide: division by zero")
			}
			return decimalStep(Divide, func(dc *apd.Context, res, a, b *apd.Decimal) (apd.Condition, error) {
				return dc.Quo(res, a, b)
			})(dc, res, a, b)
		},
		float:  func(a, b float32) float32 { return a / b },
		double: func(a, b float64) float64 { return a / b },
	}
}

// negate is the built-in unary minus.
type negate struct{}

func (negate) Kind() Kind { return Negate }
func (negate) Arity() int { return 1 }

func (negate) CanApply(args []ir.Value) bool {
	return len(args) == 1 && args[0] != nil && args[0].NumericType() != ir.NotNumeric
}

func (negate) Apply(dc *apd.Context, args ...ir.Value) (ir.Value, error) {
	if err := checkOperands(Negate, args); err != nil {
		return nil, err
	}
	if len(args) != 1 {
		return nil, ir.NewArgumentError("negate: expected 1 operand, got %d", len(args))
	}
	switch v := args[0].(type) {
	case ir.Integer:
		if v == math.MinInt64 {
			return nil, ir.NewOverflowError(string(Negate), int64(v), -1)
		}
		return -v, nil
	case ir.Decimal:
		d, _ := ir.AsDecimal(v)
		return ir.NewDecimal(new(apd.Decimal).Neg(d)), nil
	case ir.Float:
		return -v, nil
	case ir.Double:
		return -v, nil
	}
	return nil, ir.NewTypeError("negate: operand has no numeric value: %s", ir.FormatTerm(args[0]))
}
