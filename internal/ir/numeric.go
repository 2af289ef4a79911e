package ir

import (
	"math"

	"github.com/cockroachdb/apd/v3"
)

// NumericType is the promotion rank of a value.
// The order is total: NotNumeric < Integer < Decimal < Float < Double.
type NumericType int

const (
	NotNumeric NumericType = iota
	NumericInteger
	NumericDecimal
	NumericFloat
	NumericDouble
)

// String returns the rank name.
func (t NumericType) String() string {
	switch t {
	case NumericInteger:
		return "integer"
	case NumericDecimal:
		return "decimal"
	case NumericFloat:
		return "float"
	case NumericDouble:
		return "double"
	default:
		return "not-numeric"
	}
}

// Datatype returns the XSD datatype URI for the rank, or "" for NotNumeric.
func (t NumericType) Datatype() string {
	switch t {
	case NumericInteger:
		return XSDInteger
	case NumericDecimal:
		return XSDDecimal
	case NumericFloat:
		return XSDFloat
	case NumericDouble:
		return XSDDouble
	default:
		return ""
	}
}

// EffectiveType returns the maximum rank over values.
// Returns NotNumeric if any value is nil or not numeric, or if values is empty.
func EffectiveType(values ...Value) NumericType {
	if len(values) == 0 {
		return NotNumeric
	}
	max := NotNumeric
	for _, v := range values {
		if v == nil {
			return NotNumeric
		}
		t := v.NumericType()
		if t == NotNumeric {
			return NotNumeric
		}
		if t > max {
			max = t
		}
	}
	return max
}

// AsInteger returns the integer value of v.
func AsInteger(v Value) (int64, error) {
	if i, ok := v.(Integer); ok {
		return int64(i), nil
	}
	return 0, widenError(v, NumericInteger)
}

// AsDecimal widens v to a decimal. Integer promotion is exact.
func AsDecimal(v Value) (*apd.Decimal, error) {
	switch n := v.(type) {
	case Integer:
		return apd.New(int64(n), 0), nil
	case Decimal:
		if n.V == nil {
			return apd.New(0, 0), nil
		}
		return n.V, nil
	}
	return nil, widenError(v, NumericDecimal)
}

// AsFloat widens v to a float32.
func AsFloat(v Value) (float32, error) {
	switch n := v.(type) {
	case Integer:
		return float32(n), nil
	case Decimal:
		return float32(decimalToFloat64(n.V)), nil
	case Float:
		return float32(n), nil
	}
	return 0, widenError(v, NumericFloat)
}

// AsDouble widens any numeric value to a float64.
func AsDouble(v Value) (float64, error) {
	switch n := v.(type) {
	case Integer:
		return float64(n), nil
	case Decimal:
		return decimalToFloat64(n.V), nil
	case Float:
		return float64(n), nil
	case Double:
		return float64(n), nil
	}
	return 0, widenError(v, NumericDouble)
}

// decimalToFloat64 converts d, saturating to +/-Inf when out of range.
func decimalToFloat64(d *apd.Decimal) float64 {
	if d == nil {
		return 0
	}
	f, err := d.Float64()
	if err != nil {
		if d.Negative {
			return math.Inf(-1)
		}
		return math.Inf(1)
	}
	return f
}

func widenError(v Value, to NumericType) error {
	if v == nil {
		return NewArgumentError("nil operand")
	}
	if v.NumericType() == NotNumeric {
		return NewTypeError("operand has no numeric value: %s", FormatTerm(v))
	}
	return NewTypeError("cannot widen %s to %s", v.NumericType(), to)
}
