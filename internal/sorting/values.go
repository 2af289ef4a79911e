package sorting

import (
	"cmp"
	"math"

	"github.com/roach88/spinql/internal/ir"
)

// tag is the position of a value kind in the fallback order.
type tag int

const (
	tagNone tag = iota
	tagBlank
	tagURI
	tagNumeric
	tagBoolean
	tagDateTime
	tagString
	tagLiteral
	tagGraphLiteral
)

func tagOf(v ir.Value) tag {
	if v == nil {
		return tagNone
	}
	if v.NumericType() != ir.NotNumeric {
		return tagNumeric
	}
	switch v.(type) {
	case ir.Blank:
		return tagBlank
	case ir.URI:
		return tagURI
	case ir.Boolean:
		return tagBoolean
	case ir.DateTime:
		return tagDateTime
	case ir.String:
		return tagString
	case ir.GraphLiteral:
		return tagGraphLiteral
	}
	return tagLiteral
}

// CompareValues is a total order over values.
//
// Values of different kinds are ordered by kind:
//
//	nil < blank < URI < numeric < boolean < dateTime < string < other literal < graph literal
//
// Within a kind, numerics compare by promoted value with NaN lowest,
// dateTimes by instant and booleans false before true. Strings compare by
// NFC code points, then language tag, then datatype. Other terms compare by
// datatype, language tag and lexical form.
func CompareValues(a, b ir.Value) int {
	ta, tb := tagOf(a), tagOf(b)
	if ta != tb {
		return cmp.Compare(ta, tb)
	}

	switch ta {
	case tagNone:
		return 0
	case tagNumeric:
		return compareNumeric(a, b)
	case tagBoolean, tagDateTime:
		c, _ := ir.Compare(a, b)
		return c
	case tagString:
		x, y := a.(ir.String), b.(ir.String)
		if c := ir.CompareStrings(x.Value, y.Value); c != 0 {
			return c
		}
		if c := cmp.Compare(x.Lang, y.Lang); c != 0 {
			return c
		}
		return cmp.Compare(x.Datatype(), y.Datatype())
	case tagGraphLiteral:
		return cmp.Compare(a.(ir.GraphLiteral).ID, b.(ir.GraphLiteral).ID)
	}

	return tieBreak(a, b)
}

func compareNumeric(a, b ir.Value) int {
	na, nb := isNaN(a), isNaN(b)
	switch {
	case na && nb:
		return 0
	case na:
		return -1
	case nb:
		return 1
	}
	c, err := ir.Compare(a, b)
	if err != nil {
		return 0
	}
	return c
}

func isNaN(v ir.Value) bool {
	switch f := v.(type) {
	case ir.Double:
		return math.IsNaN(float64(f))
	case ir.Float:
		return math.IsNaN(float64(f))
	}
	return false
}

func tieBreak(a, b ir.Value) int {
	if c := cmp.Compare(a.Datatype(), b.Datatype()); c != 0 {
		return c
	}
	if c := cmp.Compare(langOf(a), langOf(b)); c != 0 {
		return c
	}
	return cmp.Compare(a.Lexical(), b.Lexical())
}

func langOf(v ir.Value) string {
	switch t := v.(type) {
	case ir.String:
		return t.Lang
	case ir.Literal:
		return t.Lang
	}
	return ""
}
