package ir

import (
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/cockroachdb/apd/v3"
)

// XSD lexical grammars. Leading and trailing whitespace is never accepted.
var (
	integerLexical  = regexp.MustCompile(`^[+-]?[0-9]+$`)
	decimalLexical  = regexp.MustCompile(`^[+-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)$`)
	floatingLexical = regexp.MustCompile(`^[+-]?([0-9]+(\.[0-9]*)?|\.[0-9]+)([eE][+-]?[0-9]+)?$`)
	dateTimeLexical = regexp.MustCompile(
		`^(-?[0-9]{4})-([0-9]{2})-([0-9]{2})T([0-9]{2}):([0-9]{2}):([0-9]{2})(\.[0-9]+)?(Z|[+-][0-9]{2}:[0-9]{2})?$`)
	dateLexical = regexp.MustCompile(`^(-?[0-9]{4})-([0-9]{2})-([0-9]{2})(Z|[+-][0-9]{2}:[0-9]{2})?$`)
)

// ParseInteger parses an xsd:integer lexical form.
// Values outside the int64 range are rejected.
func ParseInteger(s string) (Value, bool) {
	if !integerLexical.MatchString(s) {
		return nil, false
	}
	i, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, false
	}
	return Integer(i), true
}

// ParseDecimal parses an xsd:decimal lexical form (no exponent).
func ParseDecimal(s string) (Value, bool) {
	if !decimalLexical.MatchString(s) {
		return nil, false
	}
	s = strings.TrimPrefix(s, "+")
	neg := strings.HasPrefix(s, "-")
	if neg {
		s = s[1:]
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	if strings.HasSuffix(s, ".") {
		s += "0"
	}
	if neg {
		s = "-" + s
	}
	d, _, err := apd.NewFromString(s)
	if err != nil {
		return nil, false
	}
	return Decimal{V: d}, true
}

// ParseFloat parses an xsd:float lexical form, including INF, -INF and NaN.
func ParseFloat(s string) (Value, bool) {
	f, ok := parseFloating(s, 32)
	if !ok {
		return nil, false
	}
	return Float(float32(f)), true
}

// ParseDouble parses an xsd:double lexical form, including INF, -INF and NaN.
func ParseDouble(s string) (Value, bool) {
	f, ok := parseFloating(s, 64)
	if !ok {
		return nil, false
	}
	return Double(f), true
}

func parseFloating(s string, bits int) (float64, bool) {
	switch s {
	case "INF", "+INF":
		return math.Inf(1), true
	case "-INF":
		return math.Inf(-1), true
	case "NaN":
		return math.NaN(), true
	}
	if !floatingLexical.MatchString(s) {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, bits)
	if err != nil {
		// Out-of-range magnitudes saturate to +/-Inf or 0.
		if ne, ok := err.(*strconv.NumError); ok && ne.Err == strconv.ErrRange {
			return f, true
		}
		return 0, false
	}
	return f, true
}

// ParseBoolean parses an xsd:boolean lexical form: true, false, 1 or 0.
func ParseBoolean(s string) (Value, bool) {
	switch s {
	case "true", "1":
		return Boolean(true), true
	case "false", "0":
		return Boolean(false), true
	}
	return nil, false
}

// ParseDateTime parses an xsd:dateTime lexical form.
// A time of 24:00:00 denotes the first instant of the following day.
func ParseDateTime(s string) (Value, bool) {
	m := dateTimeLexical.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	year, month, day, ok := dateParts(m[1], m[2], m[3])
	if !ok {
		return nil, false
	}
	hour, _ := strconv.Atoi(m[4])
	minute, _ := strconv.Atoi(m[5])
	second, _ := strconv.Atoi(m[6])
	nanos := 0
	if m[7] != "" {
		frac := m[7][1:]
		if len(frac) > 9 {
			frac = frac[:9]
		}
		frac += strings.Repeat("0", 9-len(frac))
		nanos, _ = strconv.Atoi(frac)
	}

	endOfDay := hour == 24
	if endOfDay {
		if minute != 0 || second != 0 || nanos != 0 {
			return nil, false
		}
		hour = 0
	}
	if hour > 23 || minute > 59 || second > 59 {
		return nil, false
	}

	loc, hasTZ, ok := zone(m[8])
	if !ok {
		return nil, false
	}
	t := time.Date(year, time.Month(month), day, hour, minute, second, nanos, loc)
	if endOfDay {
		t = t.AddDate(0, 0, 1)
	}
	return DateTime{T: t, HasTZ: hasTZ}, true
}

// ParseDate parses an xsd:date lexical form into a DateTime at midnight.
func ParseDate(s string) (Value, bool) {
	m := dateLexical.FindStringSubmatch(s)
	if m == nil {
		return nil, false
	}
	year, month, day, ok := dateParts(m[1], m[2], m[3])
	if !ok {
		return nil, false
	}
	loc, hasTZ, ok := zone(m[4])
	if !ok {
		return nil, false
	}
	return DateTime{T: time.Date(year, time.Month(month), day, 0, 0, 0, 0, loc), HasTZ: hasTZ}, true
}

func dateParts(ys, ms, ds string) (year, month, day int, ok bool) {
	year, err := strconv.Atoi(ys)
	if err != nil || year == 0 {
		return 0, 0, 0, false
	}
	month, _ = strconv.Atoi(ms)
	day, _ = strconv.Atoi(ds)
	if month < 1 || month > 12 || day < 1 {
		return 0, 0, 0, false
	}
	// Day 0 of the next month is the last day of this one.
	last := time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
	if day > last {
		return 0, 0, 0, false
	}
	return year, month, day, true
}

func zone(tz string) (*time.Location, bool, bool) {
	switch tz {
	case "":
		return time.UTC, false, true
	case "Z":
		return time.UTC, true, true
	}
	hh, _ := strconv.Atoi(tz[1:3])
	mm, _ := strconv.Atoi(tz[4:6])
	if hh > 14 || mm > 59 || (hh == 14 && mm != 0) {
		return nil, false, false
	}
	offset := hh*3600 + mm*60
	if tz[0] == '-' {
		offset = -offset
	}
	if offset == 0 {
		return time.UTC, true, true
	}
	return time.FixedZone("", offset), true, true
}

// formatXSDFloating renders f in the XSD canonical floating form, e.g. "6.0E0".
func formatXSDFloating(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "INF"
	case math.IsInf(f, -1):
		return "-INF"
	}
	s := strconv.FormatFloat(f, 'E', -1, bits)
	mantissa, exp, _ := strings.Cut(s, "E")
	if !strings.Contains(mantissa, ".") {
		mantissa += ".0"
	}
	e, _ := strconv.Atoi(exp)
	return mantissa + "E" + strconv.Itoa(e)
}
