package cast

import (
	"math"
	"slices"
	"strconv"
	"strings"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/spinql/internal/ir"
)

type conversion func(v ir.Value) (ir.Value, error)

// strategy describes one cast target.
type strategy struct {
	target string

	// is reports whether v already has the target type.
	is func(v ir.Value) bool

	// parse applies the target's strict lexical grammar.
	parse func(lexical string) (ir.Value, bool)

	// fromURI is set only for targets that accept URI operands.
	fromURI conversion

	// conversions maps a source datatype to its conversion.
	conversions map[string]conversion

	// fallback converts literals of any other datatype, if set.
	fallback conversion
}

var strategies = buildStrategies()

// To casts v to the target datatype URI.
func To(target string, v ir.Value) (ir.Value, error) {
	s, ok := strategies[target]
	if !ok {
		return nil, ir.NewUnsupportedOperatorError(target, 1)
	}
	return s.apply(v)
}

// Supports reports whether target is a known cast target.
func Supports(target string) bool {
	_, ok := strategies[target]
	return ok
}

// Targets returns every cast target, sorted.
func Targets() []string {
	targets := make([]string, 0, len(strategies))
	for t := range strategies {
		targets = append(targets, t)
	}
	slices.Sort(targets)
	return targets
}

func (s *strategy) apply(v ir.Value) (ir.Value, error) {
	if v == nil {
		return nil, ir.NewCastError("null operand", "", s.target)
	}

	switch v.NodeKind() {
	case ir.NodeBlank, ir.NodeGraphLiteral:
		return nil, ir.NewCastError("unrepresentable source node "+v.NodeKind().String(), "", s.target)
	case ir.NodeURI:
		if s.fromURI == nil {
			return nil, ir.NewCastError("unrepresentable source node uri", "", s.target)
		}
		return s.fromURI(v)
	}

	if s.is(v) {
		return v, nil
	}

	dt := v.Datatype()
	if dt == "" || ir.IsStringDatatype(dt) {
		out, ok := s.parse(v.Lexical())
		if !ok {
			return nil, ir.NewCastError("invalid lexical form for "+ir.ShortName(s.target), v.Lexical(), s.target)
		}
		return out, nil
	}

	if conv, ok := s.conversions[dt]; ok {
		return conv(v)
	}
	if s.fallback != nil {
		return s.fallback(v)
	}
	return nil, ir.NewCastError("cannot cast "+ir.ShortName(dt)+" to "+ir.ShortName(s.target), v.Lexical(), s.target)
}

func buildStrategies() map[string]*strategy {
	list := []*strategy{
		{
			target: ir.XSDInteger,
			is:     isA[ir.Integer],
			parse:  ir.ParseInteger,
			conversions: map[string]conversion{
				ir.XSDDecimal: decimalToInteger,
				ir.XSDFloat:   floatingToInteger,
				ir.XSDDouble:  floatingToInteger,
				ir.XSDBoolean: func(v ir.Value) (ir.Value, error) {
					if v.(ir.Boolean) {
						return ir.Integer(1), nil
					}
					return ir.Integer(0), nil
				},
			},
		},
		{
			target: ir.XSDDecimal,
			is:     isA[ir.Decimal],
			parse:  ir.ParseDecimal,
			conversions: map[string]conversion{
				ir.XSDInteger: func(v ir.Value) (ir.Value, error) {
					return ir.DecimalFromInt64(int64(v.(ir.Integer))), nil
				},
				ir.XSDFloat:  floatingToDecimal,
				ir.XSDDouble: floatingToDecimal,
				ir.XSDBoolean: func(v ir.Value) (ir.Value, error) {
					if v.(ir.Boolean) {
						return ir.DecimalFromInt64(1), nil
					}
					return ir.DecimalFromInt64(0), nil
				},
			},
		},
		{
			target: ir.XSDFloat,
			is:     isA[ir.Float],
			parse:  ir.ParseFloat,
			conversions: map[string]conversion{
				ir.XSDInteger: numericToFloat,
				ir.XSDDecimal: numericToFloat,
				ir.XSDDouble: func(v ir.Value) (ir.Value, error) {
					return ir.Float(float32(v.(ir.Double))), nil
				},
				ir.XSDBoolean: func(v ir.Value) (ir.Value, error) {
					if v.(ir.Boolean) {
						return ir.Float(1), nil
					}
					return ir.Float(0), nil
				},
			},
		},
		{
			target: ir.XSDDouble,
			is:     isA[ir.Double],
			parse:  ir.ParseDouble,
			conversions: map[string]conversion{
				ir.XSDInteger: numericToDouble,
				ir.XSDDecimal: numericToDouble,
				ir.XSDFloat:   numericToDouble,
				ir.XSDBoolean: func(v ir.Value) (ir.Value, error) {
					if v.(ir.Boolean) {
						return ir.Double(1), nil
					}
					return ir.Double(0), nil
				},
			},
		},
		{
			target: ir.XSDBoolean,
			is:     isA[ir.Boolean],
			parse:  ir.ParseBoolean,
			conversions: map[string]conversion{
				ir.XSDInteger: numericToBoolean,
				ir.XSDDecimal: numericToBoolean,
				ir.XSDFloat:   numericToBoolean,
				ir.XSDDouble:  numericToBoolean,
			},
		},
		{
			target: ir.XSDDateTime,
			is:     isA[ir.DateTime],
			parse:  ir.ParseDateTime,
			conversions: map[string]conversion{
				ir.XSDDate: func(v ir.Value) (ir.Value, error) {
					out, ok := ir.ParseDate(v.Lexical())
					if !ok {
						return nil, ir.NewCastError("invalid lexical form for xsd:date", v.Lexical(), ir.XSDDateTime)
					}
					return out, nil
				},
			},
		},
		{
			target: ir.XSDString,
			is: func(v ir.Value) bool {
				s, ok := v.(ir.String)
				return ok && s.Typed
			},
			parse: func(lexical string) (ir.Value, bool) {
				return ir.NewString(lexical), true
			},
			fromURI: func(v ir.Value) (ir.Value, error) {
				return ir.NewString(v.Lexical()), nil
			},
			fallback: func(v ir.Value) (ir.Value, error) {
				return ir.NewString(v.Lexical()), nil
			},
		},
	}

	table := make(map[string]*strategy, len(list))
	for _, s := range list {
		table[s.target] = s
	}
	return table
}

func isA[T ir.Value](v ir.Value) bool {
	_, ok := v.(T)
	return ok
}

func decimalToInteger(v ir.Value) (ir.Value, error) {
	d, err := ir.AsDecimal(v)
	if err != nil {
		return nil, err
	}
	text := d.Text('f')
	whole, _, _ := strings.Cut(text, ".")
	i, err := strconv.ParseInt(whole, 10, 64)
	if err != nil {
		return nil, ir.NewCastError("value out of range for xsd:integer", v.Lexical(), ir.XSDInteger)
	}
	return ir.Integer(i), nil
}

func floatingToInteger(v ir.Value) (ir.Value, error) {
	f, err := ir.AsDouble(v)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, ir.NewCastError("no integer value for "+v.Lexical(), v.Lexical(), ir.XSDInteger)
	}
	f = math.Trunc(f)
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, ir.NewCastError("value out of range for xsd:integer", v.Lexical(), ir.XSDInteger)
	}
	return ir.Integer(int64(f)), nil
}

func floatingToDecimal(v ir.Value) (ir.Value, error) {
	f, err := ir.AsDouble(v)
	if err != nil {
		return nil, err
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, ir.NewCastError("no decimal value for "+v.Lexical(), v.Lexical(), ir.XSDDecimal)
	}
	if _, ok := v.(ir.Float); ok {
		// Go through the shortest float32 rendering so 0.1f casts to 0.1.
		d, _, err := apd.NewFromString(strconv.FormatFloat(f, 'g', -1, 32))
		if err != nil {
			return nil, ir.NewCastError(err.Error(), v.Lexical(), ir.XSDDecimal)
		}
		return ir.NewDecimal(d), nil
	}
	d, err := new(apd.Decimal).SetFloat64(f)
	if err != nil {
		return nil, ir.NewCastError(err.Error(), v.Lexical(), ir.XSDDecimal)
	}
	return ir.NewDecimal(d), nil
}

func numericToFloat(v ir.Value) (ir.Value, error) {
	f, err := ir.AsFloat(v)
	if err != nil {
		return nil, err
	}
	return ir.Float(f), nil
}

func numericToDouble(v ir.Value) (ir.Value, error) {
	f, err := ir.AsDouble(v)
	if err != nil {
		return nil, err
	}
	return ir.Double(f), nil
}

func numericToBoolean(v ir.Value) (ir.Value, error) {
	if d, ok := v.(ir.Decimal); ok {
		dv, _ := ir.AsDecimal(d)
		return ir.Boolean(!dv.IsZero()), nil
	}
	f, err := ir.AsDouble(v)
	if err != nil {
		return nil, err
	}
	return ir.Boolean(f != 0 && !math.IsNaN(f)), nil
}
