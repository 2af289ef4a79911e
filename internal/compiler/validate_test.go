package compiler

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/spinql/internal/ir"
)

func codes(errs []ValidationError) []string {
	out := make([]string, len(errs))
	for i, e := range errs {
		out[i] = e.Code
	}
	return out
}

func TestValidateLibraryValid(t *testing.T) {
	lib := mathLibrary()
	assert.Empty(t, Validate(&lib))
	assert.Empty(t, Validate(lib))
	assert.Empty(t, Validate([]ir.Library{lib}))
}

func TestValidateUnsupportedType(t *testing.T) {
	errs := Validate("library")
	require.Len(t, errs, 1)
	assert.Equal(t, ErrUnsupportedIRType, errs[0].Code)
}

func TestValidateLibraryErrors(t *testing.T) {
	limit := -1
	tests := []struct {
		name string
		lib  ir.Library
		want []string
	}{
		{
			name: "missing base and functions",
			lib:  ir.Library{},
			want: []string{ErrLibraryBaseEmpty, ErrLibraryNoFunction},
		},
		{
			name: "self import",
			lib: ir.Library{
				BaseURI:   "http://ex/",
				Imports:   []string{"http://ex/"},
				Functions: []ir.FunctionDecl{exprFn("http://ex/f")},
			},
			want: []string{ErrImportSelf},
		},
		{
			name: "duplicate function",
			lib: ir.Library{
				BaseURI:   "http://ex/",
				Functions: []ir.FunctionDecl{exprFn("http://ex/f"), exprFn("http://ex/f")},
			},
			want: []string{ErrDuplicateFunction},
		},
		{
			name: "no body or expr",
			lib: ir.Library{
				BaseURI:   "http://ex/",
				Functions: []ir.FunctionDecl{{URI: "http://ex/f"}},
			},
			want: []string{ErrFunctionShape},
		},
		{
			name: "bad argument names",
			lib: ir.Library{
				BaseURI: "http://ex/",
				Functions: []ir.FunctionDecl{{
					URI:       "http://ex/f",
					Arguments: []string{"x", "x", "1st"},
					Expr:      &ir.ExprSpec{Var: "x"},
				}},
			},
			want: []string{ErrInvalidArgument, ErrInvalidArgument},
		},
		{
			name: "undefined variable",
			lib: ir.Library{
				BaseURI: "http://ex/",
				Functions: []ir.FunctionDecl{{
					URI:       "http://ex/f",
					Arguments: []string{"x"},
					Expr:      &ir.ExprSpec{Op: "add", Args: []ir.ExprSpec{v("x"), v("y")}},
				}},
			},
			want: []string{ErrUndefinedVariable},
		},
		{
			name: "expression does not compile",
			lib: ir.Library{
				BaseURI:   "http://ex/",
				Functions: []ir.FunctionDecl{{URI: "http://ex/f", Expr: &ir.ExprSpec{Op: "pow"}}},
			},
			want: []string{ErrInvalidExpression},
		},
		{
			name: "template body",
			lib: ir.Library{
				BaseURI: "http://ex/",
				Functions: []ir.FunctionDecl{{
					URI:    "http://ex/t",
					Result: "missing",
					Body: &ir.TemplateBody{
						Patterns: []ir.TripleSpec{
							{S: "?s", P: "<http://ex/p>", O: "?o"},
							{S: "?s", P: "<unterminated", O: "?o"},
						},
						Select:  []string{"o", "nope"},
						OrderBy: []ir.OrderSpec{{Var: "gone"}},
						Limit:   &limit,
					},
				}},
			},
			want: []string{ErrInvalidPattern, ErrUndefinedResult, ErrUndefinedResult, ErrInvalidModifier, ErrInvalidModifier},
		},
		{
			name: "template call in expression",
			lib: ir.Library{
				BaseURI: "http://ex/",
				Functions: []ir.FunctionDecl{
					{
						URI:       "http://ex/t",
						Arguments: []string{"s"},
						Body:      &ir.TemplateBody{Patterns: []ir.TripleSpec{{S: "?s", P: "<http://ex/p>", O: "?o"}}},
					},
					exprFn("http://ex/f", "http://ex/t"),
				},
			},
			want: []string{ErrTemplateInExprFunc},
		},
		{
			name: "recursion",
			lib: ir.Library{
				BaseURI:   "http://ex/",
				Functions: []ir.FunctionDecl{exprFn("http://ex/f", "http://ex/f")},
			},
			want: []string{ErrRecursiveFunction},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, codes(Validate(tt.lib)))
		})
	}
}

func TestValidationErrorString(t *testing.T) {
	e := ValidationError{Field: "library.base", Message: "required", Code: ErrLibraryBaseEmpty}
	assert.Equal(t, "[E101] library.base: required", e.Error())

	e.Line = 3
	assert.Equal(t, "[E101] line 3: library.base: required", e.Error())
}
