package ir

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTerm(t *testing.T) {
	prefixes := map[string]string{"ex": "http://example.org/"}

	tests := []struct {
		input    string
		expected Value
	}{
		{"<http://ex/a>", URI("http://ex/a")},
		{"ex:thing", URI("http://example.org/thing")},
		{"xsd:integer", URI(XSDInteger)},
		{"_:b0", Blank("b0")},
		{`"hello"`, NewPlainLiteral("hello")},
		{`"say \"hi\""`, NewPlainLiteral(`say "hi"`)},
		{`"chat"@fr`, NewLangString("chat", "fr")},
		{`"5"^^xsd:integer`, Integer(5)},
		{`"5"^^<http://www.w3.org/2001/XMLSchema#integer>`, Integer(5)},
		{`"x"^^ex:custom`, Literal{Lex: "x", DT: "http://example.org/custom"}},
		{"42", Integer(42)},
		{"-7", Integer(-7)},
		{"2.0e3", Double(2000)},
		{"true", Boolean(true)},
		{"false", Boolean(false)},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			v, err := ParseTerm(tt.input, prefixes)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, v)
		})
	}
}

func TestParseTermDecimalShorthand(t *testing.T) {
	v, err := ParseTerm("-1.50", nil)
	require.NoError(t, err)
	assert.Equal(t, NumericDecimal, v.NumericType())
	assert.Equal(t, "-1.5", v.Lexical())
}

func TestParseTermErrors(t *testing.T) {
	tests := []string{
		"",
		"<http://unterminated",
		`"open`,
		`"x"^^nope:dt`,
		`"x"garbage`,
		"unknown:prefix",
		"_:",
	}

	for _, input := range tests {
		t.Run(input, func(t *testing.T) {
			_, err := ParseTerm(input, nil)
			assert.Error(t, err)
		})
	}
}

func TestParseTermInvalidTypedLiteralIsCastError(t *testing.T) {
	_, err := ParseTerm(`"abc"^^xsd:integer`, nil)
	require.Error(t, err)
	assert.True(t, IsCastError(err))
}

func TestFormatTermRoundTrip(t *testing.T) {
	values := []Value{
		URI("http://ex/a"),
		Blank("b1"),
		NewPlainLiteral("plain"),
		NewString("typed"),
		NewLangString("hallo", "de"),
		Integer(-3),
		DecimalFromInt64(6),
		Double(6),
		Float(1.5),
		Boolean(false),
		Literal{Lex: "x", DT: "http://ex/dt"},
	}

	for _, v := range values {
		t.Run(FormatTerm(v), func(t *testing.T) {
			parsed, err := ParseTerm(FormatTerm(v), nil)
			require.NoError(t, err)
			assert.True(t, SameTerm(v, parsed), "round trip of %s gave %s", v, parsed)
		})
	}
}

func TestFormatTerm(t *testing.T) {
	assert.Equal(t, `"6.0E0"^^xsd:double`, FormatTerm(Double(6)))
	assert.Equal(t, `"5"^^xsd:integer`, FormatTerm(Integer(5)))
	assert.Equal(t, "<http://ex/a>", FormatTerm(URI("http://ex/a")))
	assert.Equal(t, `"x"^^<http://ex/dt>`, FormatTerm(Literal{Lex: "x", DT: "http://ex/dt"}))
	assert.Equal(t, "null", FormatTerm(nil))
}
