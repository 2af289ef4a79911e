package ir

import (
	"fmt"
	"strconv"
	"strings"
)

// ParseTerm parses the compact term syntax used by CUE libraries, YAML
// scenarios and the CLI:
//
//	<http://ex/a>             URI
//	ex:a                      prefixed URI (prefixes, then xsd:/rdf:)
//	_:b0                      blank node
//	"text"                    plain literal
//	"text"@en                 language-tagged string
//	"5"^^xsd:integer          typed literal (prefixed or <full> datatype)
//	42  -1.5  2.0e3           integer, decimal, double shorthand
//	true  false               boolean shorthand
func ParseTerm(s string, prefixes map[string]string) (Value, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, fmt.Errorf("empty term")
	}

	switch {
	case strings.HasPrefix(s, "<"):
		if !strings.HasSuffix(s, ">") || len(s) < 2 {
			return nil, fmt.Errorf("unterminated IRI: %s", s)
		}
		return URI(s[1 : len(s)-1]), nil

	case strings.HasPrefix(s, "_:"):
		if len(s) == 2 {
			return nil, fmt.Errorf("empty blank node label")
		}
		return Blank(s[2:]), nil

	case strings.HasPrefix(s, `"`):
		return parseQuoted(s, prefixes)

	case s == "true" || s == "false":
		return Boolean(s == "true"), nil
	}

	if integerLexical.MatchString(s) {
		if v, ok := ParseInteger(s); ok {
			return v, nil
		}
		return nil, fmt.Errorf("integer out of range: %s", s)
	}
	if decimalLexical.MatchString(s) {
		v, _ := ParseDecimal(s)
		return v, nil
	}
	if floatingLexical.MatchString(s) {
		v, _ := ParseDouble(s)
		return v, nil
	}

	if uri, ok := ExpandPrefixed(s, prefixes); ok {
		return URI(uri), nil
	}
	return nil, fmt.Errorf("cannot parse term %q", s)
}

// MustParseTerm is like ParseTerm but panics on error.
// Use only in tests or when inputs are known to be valid.
func MustParseTerm(s string) Value {
	v, err := ParseTerm(s, nil)
	if err != nil {
		panic(err)
	}
	return v
}

func parseQuoted(s string, prefixes map[string]string) (Value, error) {
	end := closingQuote(s)
	if end < 0 {
		return nil, fmt.Errorf("unterminated string literal: %s", s)
	}
	lex, err := strconv.Unquote(s[:end+1])
	if err != nil {
		return nil, fmt.Errorf("invalid string literal %s: %w", s[:end+1], err)
	}
	rest := s[end+1:]

	switch {
	case rest == "":
		return NewPlainLiteral(lex), nil
	case strings.HasPrefix(rest, "@"):
		if len(rest) == 1 {
			return nil, fmt.Errorf("empty language tag")
		}
		return NewLangString(lex, rest[1:]), nil
	case strings.HasPrefix(rest, "^^"):
		dt := rest[2:]
		if strings.HasPrefix(dt, "<") && strings.HasSuffix(dt, ">") {
			dt = dt[1 : len(dt)-1]
		} else if expanded, ok := ExpandPrefixed(dt, prefixes); ok {
			dt = expanded
		} else {
			return nil, fmt.Errorf("unknown datatype %q", dt)
		}
		return FromLiteral(lex, dt, "")
	}
	return nil, fmt.Errorf("unexpected text after literal: %q", rest)
}

// closingQuote returns the index of the unescaped quote ending the literal at s[0].
func closingQuote(s string) int {
	for i := 1; i < len(s); i++ {
		switch s[i] {
		case '\\':
			i++
		case '"':
			return i
		}
	}
	return -1
}

// FormatTerm renders v in the term syntax accepted by ParseTerm.
// XSD and RDF datatypes are abbreviated; other URIs are written in full.
func FormatTerm(v Value) string {
	switch t := v.(type) {
	case nil:
		return "null"
	case URI:
		return "<" + string(t) + ">"
	case Blank:
		return "_:" + string(t)
	case GraphLiteral:
		return "graph(" + t.ID + ")"
	case String:
		q := strconv.Quote(t.Value)
		switch {
		case t.Lang != "":
			return q + "@" + t.Lang
		case t.Typed:
			return q + "^^xsd:string"
		default:
			return q
		}
	case Literal:
		q := strconv.Quote(t.Lex)
		if t.Lang != "" {
			return q + "@" + t.Lang
		}
		return q + "^^" + ShortName(t.DT)
	}
	return strconv.Quote(v.Lexical()) + "^^" + ShortName(v.Datatype())
}
