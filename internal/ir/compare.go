package ir

import (
	"cmp"
	"math"

	"golang.org/x/text/unicode/norm"
)

// Compare orders two values of comparable types and returns -1, 0 or +1.
//
// Comparable pairs:
//   - numeric vs numeric, compared at their effective type
//   - string vs string with the same language tag, by NFC code points
//   - boolean vs boolean, false < true
//   - dateTime vs dateTime, by instant
//
// Any other pair, and any comparison involving NaN, is a TYPE_ERROR.
func Compare(a, b Value) (int, error) {
	if a == nil || b == nil {
		return 0, NewArgumentError("nil operand")
	}

	if t := EffectiveType(a, b); t != NotNumeric {
		return compareNumeric(t, a, b)
	}

	switch x := a.(type) {
	case String:
		if y, ok := b.(String); ok && x.Lang == y.Lang {
			return CompareStrings(x.Value, y.Value), nil
		}
	case Boolean:
		if y, ok := b.(Boolean); ok {
			return compareBool(bool(x), bool(y)), nil
		}
	case DateTime:
		if y, ok := b.(DateTime); ok {
			return x.T.Compare(y.T), nil
		}
	}
	return 0, NewTypeError("cannot compare %s with %s", FormatTerm(a), FormatTerm(b))
}

// CompareStrings compares two strings by code point after NFC normalization.
func CompareStrings(a, b string) int {
	return cmp.Compare(norm.NFC.String(a), norm.NFC.String(b))
}

// ValueEqual reports value equality for comparable pairs and term identity
// otherwise. It never fails: incomparable pairs are simply unequal unless
// they are the same term.
func ValueEqual(a, b Value) bool {
	if c, err := Compare(a, b); err == nil {
		return c == 0
	}
	return SameTerm(a, b)
}

// SameTerm reports whether a and b are the identical term: same node kind,
// datatype, language tag and lexical form.
func SameTerm(a, b Value) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if a.NodeKind() != b.NodeKind() || a.Datatype() != b.Datatype() {
		return false
	}
	if langOf(a) != langOf(b) {
		return false
	}
	return a.Lexical() == b.Lexical()
}

func langOf(v Value) string {
	switch t := v.(type) {
	case String:
		return t.Lang
	case Literal:
		return t.Lang
	}
	return ""
}

func compareNumeric(t NumericType, a, b Value) (int, error) {
	switch t {
	case NumericInteger:
		x, _ := AsInteger(a)
		y, _ := AsInteger(b)
		return cmp.Compare(x, y), nil
	case NumericDecimal:
		x, _ := AsDecimal(a)
		y, _ := AsDecimal(b)
		return x.Cmp(y), nil
	}
	x, _ := AsDouble(a)
	y, _ := AsDouble(b)
	if t == NumericFloat {
		x, y = float64(float32(x)), float64(float32(y))
	}
	if math.IsNaN(x) || math.IsNaN(y) {
		return 0, NewTypeError("NaN is not ordered")
	}
	return cmp.Compare(x, y), nil
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}
