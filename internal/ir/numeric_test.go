package ir

import (
	"testing"

	"github.com/cockroachdb/apd/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffectiveType(t *testing.T) {
	tests := []struct {
		name     string
		values   []Value
		expected NumericType
	}{
		{"empty", nil, NotNumeric},
		{"single integer", []Value{Integer(1)}, NumericInteger},
		{"integer and decimal", []Value{Integer(1), DecimalFromInt64(2)}, NumericDecimal},
		{"integer and double", []Value{Integer(2), Double(3)}, NumericDouble},
		{"float and decimal", []Value{Float(1), DecimalFromInt64(2)}, NumericFloat},
		{"order independent", []Value{Double(1), Integer(2)}, NumericDouble},
		{"string poisons", []Value{Integer(1), NewString("2")}, NotNumeric},
		{"nil poisons", []Value{Integer(1), nil}, NotNumeric},
		{"uri", []Value{URI("http://ex/a")}, NotNumeric},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EffectiveType(tt.values...))
		})
	}
}

func TestNumericTypeOrder(t *testing.T) {
	assert.Less(t, NotNumeric, NumericInteger)
	assert.Less(t, NumericInteger, NumericDecimal)
	assert.Less(t, NumericDecimal, NumericFloat)
	assert.Less(t, NumericFloat, NumericDouble)
	assert.Equal(t, XSDDouble, NumericDouble.Datatype())
	assert.Equal(t, "decimal", NumericDecimal.String())
}

func TestWideningNeverFailsUpward(t *testing.T) {
	values := []Value{Integer(3), DecimalFromInt64(3), Float(3), Double(3)}

	for _, v := range values {
		d, err := AsDouble(v)
		require.NoError(t, err, "AsDouble(%s)", v)
		assert.Equal(t, 3.0, d)

		if v.NumericType() <= NumericFloat {
			f, err := AsFloat(v)
			require.NoError(t, err)
			assert.Equal(t, float32(3), f)
		}
		if v.NumericType() <= NumericDecimal {
			dec, err := AsDecimal(v)
			require.NoError(t, err)
			assert.Equal(t, 0, dec.Cmp(apd.New(3, 0)))
		}
	}
}

func TestWideningDownwardFails(t *testing.T) {
	_, err := AsInteger(DecimalFromInt64(1))
	assert.True(t, IsTypeError(err))

	_, err = AsDecimal(Double(1))
	assert.True(t, IsTypeError(err))

	_, err = AsDouble(NewString("1"))
	assert.True(t, IsTypeError(err))

	_, err = AsDouble(nil)
	assert.True(t, IsArgumentError(err))
}
