package ir

import (
	"strconv"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// NodeKind is the structural kind of a node carrying a value.
type NodeKind int

const (
	NodeUnknown NodeKind = iota
	NodeBlank
	NodeURI
	NodeLiteral
	NodeGraphLiteral
)

// String returns the kind name.
func (k NodeKind) String() string {
	switch k {
	case NodeBlank:
		return "blank"
	case NodeURI:
		return "uri"
	case NodeLiteral:
		return "literal"
	case NodeGraphLiteral:
		return "graph-literal"
	default:
		return "unknown"
	}
}

// Value is a sealed interface representing an immutable typed scalar.
// Only the variants declared in this file implement it.
type Value interface {
	// NodeKind reports the structural node kind.
	NodeKind() NodeKind

	// Lexical returns the canonical lexical form.
	Lexical() string

	// Datatype returns the datatype URI, or "" for untyped literals and non-literals.
	Datatype() string

	// NumericType returns the promotion rank (NotNumeric for non-numerics).
	NumericType() NumericType

	// String returns the term syntax rendering (see FormatTerm).
	String() string

	value() // Sealed - only these types implement it
}

// Integer is an xsd:integer value (64-bit, checked arithmetic).
type Integer int64

func (Integer) value() {}
func (Integer) NodeKind() NodeKind { return NodeLiteral }
func (i Integer) Lexical() string { return strconv.FormatInt(int64(i), 10) }
func (Integer) Datatype() string { return XSDInteger }
func (Integer) NumericType() NumericType { return NumericInteger }
func (i Integer) String() string { return FormatTerm(i) }

// Decimal is an arbitrary-precision xsd:decimal value.
// The wrapped *apd.Decimal is never mutated after construction.
type Decimal struct {
	V *apd.Decimal
}

// NewDecimal wraps d. The caller must not mutate d afterwards.
func NewDecimal(d *apd.Decimal) Decimal {
	return Decimal{V: d}
}

// DecimalFromInt64 creates an exact Decimal from an integer.
func DecimalFromInt64(i int64) Decimal {
	return Decimal{V: apd.New(i, 0)}
}

func (Decimal) value() {}
func (Decimal) NodeKind() NodeKind { return NodeLiteral }
func (Decimal) Datatype() string { return XSDDecimal }
func (Decimal) NumericType() NumericType { return NumericDecimal }
func (d Decimal) String() string { return FormatTerm(d) }

// Lexical returns the XSD canonical decimal form: trailing zeros removed,
// always containing a '.'.
func (d Decimal) Lexical() string {
	if d.V == nil {
		return "0.0"
	}
	var reduced apd.Decimal
	reduced.Reduce(d.V)
	s := reduced.Text('f')
	for i := 0; i < len(s); i++ {
		if s[i] == '.' {
			return s
		}
	}
	return s + ".0"
}

// Float is an xsd:float value.
type Float float32

func (Float) value() {}
func (Float) NodeKind() NodeKind { return NodeLiteral }
func (f Float) Lexical() string { return formatXSDFloating(float64(f), 32) }
func (Float) Datatype() string { return XSDFloat }
func (Float) NumericType() NumericType { return NumericFloat }
func (f Float) String() string { return FormatTerm(f) }

// Double is an xsd:double value.
type Double float64

func (Double) value() {}
func (Double) NodeKind() NodeKind { return NodeLiteral }
func (d Double) Lexical() string { return formatXSDFloating(float64(d), 64) }
func (Double) Datatype() string { return XSDDouble }
func (Double) NumericType() NumericType { return NumericDouble }
func (d Double) String() string { return FormatTerm(d) }

// String is a string literal: plain (untyped), xsd:string, or language-tagged.
type String struct {
	Value string
	Lang  string
	Typed bool // true for explicit xsd:string
}

// NewString creates an xsd:string value.
func NewString(s string) String {
	return String{Value: s, Typed: true}
}

// NewPlainLiteral creates an untyped literal.
func NewPlainLiteral(s string) String {
	return String{Value: s}
}

// NewLangString creates a language-tagged string.
func NewLangString(s, lang string) String {
	return String{Value: s, Lang: lang}
}

func (String) value() {}
func (String) NodeKind() NodeKind { return NodeLiteral }
func (s String) Lexical() string { return s.Value }
func (String) NumericType() NumericType { return NotNumeric }
func (s String) String() string { return FormatTerm(s) }

// Datatype returns xsd:string, rdf:langString, or "" for plain literals.
func (s String) Datatype() string {
	switch {
	case s.Lang != "":
		return RDFLangString
	case s.Typed:
		return XSDString
	default:
		return ""
	}
}

// Boolean is an xsd:boolean value.
type Boolean bool

func (Boolean) value() {}
func (Boolean) NodeKind() NodeKind { return NodeLiteral }
func (b Boolean) Lexical() string { return strconv.FormatBool(bool(b)) }
func (Boolean) Datatype() string { return XSDBoolean }
func (Boolean) NumericType() NumericType { return NotNumeric }
func (b Boolean) String() string { return FormatTerm(b) }

// DateTime is an xsd:dateTime value.
// HasTZ is false when the lexical form carried no timezone; such values are
// interpreted as UTC for ordering.
type DateTime struct {
	T     time.Time
	HasTZ bool
}

func (DateTime) value() {}
func (DateTime) NodeKind() NodeKind { return NodeLiteral }
func (DateTime) Datatype() string { return XSDDateTime }
func (DateTime) NumericType() NumericType { return NotNumeric }
func (d DateTime) String() string { return FormatTerm(d) }

// Lexical returns the XSD lexical form, with fractional seconds only when non-zero.
func (d DateTime) Lexical() string {
	if !d.HasTZ {
		return d.T.Format("2006-01-02T15:04:05.999999999")
	}
	if _, off := d.T.Zone(); off == 0 {
		return d.T.UTC().Format("2006-01-02T15:04:05.999999999") + "Z"
	}
	return d.T.Format("2006-01-02T15:04:05.999999999-07:00")
}

// URI is an IRI node.
type URI string

func (URI) value() {}
func (URI) NodeKind() NodeKind { return NodeURI }
func (u URI) Lexical() string { return string(u) }
func (URI) Datatype() string { return "" }
func (URI) NumericType() NumericType { return NotNumeric }
func (u URI) String() string { return FormatTerm(u) }

// Blank is a blank node, identified by its label.
type Blank string

func (Blank) value() {}
func (Blank) NodeKind() NodeKind { return NodeBlank }
func (b Blank) Lexical() string { return string(b) }
func (Blank) Datatype() string { return "" }
func (Blank) NumericType() NumericType { return NotNumeric }
func (b Blank) String() string { return FormatTerm(b) }

// Literal is a literal of a datatype the value model does not interpret.
type Literal struct {
	Lex  string
	DT   string
	Lang string
}

func (Literal) value() {}
func (Literal) NodeKind() NodeKind { return NodeLiteral }
func (l Literal) Lexical() string { return l.Lex }
func (l Literal) Datatype() string { return l.DT }
func (Literal) NumericType() NumericType { return NotNumeric }
func (l Literal) String() string { return FormatTerm(l) }

// GraphLiteral is a reference to a quoted graph. It never carries a castable value.
type GraphLiteral struct {
	ID string
}

func (GraphLiteral) value() {}
func (GraphLiteral) NodeKind() NodeKind { return NodeGraphLiteral }
func (g GraphLiteral) Lexical() string { return g.ID }
func (GraphLiteral) Datatype() string { return "" }
func (GraphLiteral) NumericType() NumericType { return NotNumeric }
func (g GraphLiteral) String() string { return FormatTerm(g) }

// FromLiteral coerces a lexical form with an optional datatype or language tag
// into a typed Value. This is the only coercion in the value model that can
// fail: a known datatype with an invalid lexical form is a CAST_ERROR.
// Unknown datatypes produce a Literal.
func FromLiteral(lexical, datatype, lang string) (Value, error) {
	if lang != "" {
		return NewLangString(lexical, lang), nil
	}
	var (
		v  Value
		ok bool
	)
	switch {
	case datatype == "":
		return NewPlainLiteral(lexical), nil
	case datatype == XSDString:
		return NewString(lexical), nil
	case IsIntegerDatatype(datatype):
		v, ok = ParseInteger(lexical)
	case datatype == XSDDecimal:
		v, ok = ParseDecimal(lexical)
	case datatype == XSDFloat:
		v, ok = ParseFloat(lexical)
	case datatype == XSDDouble:
		v, ok = ParseDouble(lexical)
	case datatype == XSDBoolean:
		v, ok = ParseBoolean(lexical)
	case datatype == XSDDateTime:
		v, ok = ParseDateTime(lexical)
	default:
		return Literal{Lex: lexical, DT: datatype}, nil
	}
	if !ok {
		return nil, NewCastError("invalid lexical form for "+ShortName(datatype), lexical, datatype)
	}
	return v, nil
}

// MustFromLiteral is like FromLiteral but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustFromLiteral(lexical, datatype string) Value {
	v, err := FromLiteral(lexical, datatype, "")
	if err != nil {
		panic(err)
	}
	return v
}
