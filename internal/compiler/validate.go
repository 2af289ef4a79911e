package compiler

import (
	"fmt"
	"regexp"
	"slices"
	"strings"

	"github.com/roach88/spinql/internal/ir"
	"github.com/roach88/spinql/internal/queryir"
)

// Validation error codes (E100-E199)
const (
	// General validation errors (E100)
	ErrUnsupportedIRType = "E100" // unsupported IR type for validation

	// Library errors (E101-E104)
	ErrLibraryBaseEmpty  = "E101" // base URI is required
	ErrLibraryNoFunction = "E102" // at least one function required
	ErrDuplicateFunction = "E103" // two declarations share a URI
	ErrImportSelf        = "E104" // library imports itself

	// Function errors (E110-E119)
	ErrFunctionShape      = "E110" // exactly one of body and expr required
	ErrInvalidArgument    = "E111" // invalid or duplicate formal argument
	ErrInvalidPattern     = "E112" // body pattern does not parse
	ErrUndefinedResult    = "E113" // result is not a template variable
	ErrUndefinedVariable  = "E114" // expression uses a variable that is not a formal
	ErrInvalidModifier    = "E115" // negative limit/offset or unknown order key
	ErrInvalidExpression  = "E116" // expression does not compile
	ErrRecursiveFunction  = "E117" // expression functions call each other in a cycle
	ErrTemplateInExprFunc = "E118" // expression function calls a template function
)

// ValidationError represents a schema validation error.
type ValidationError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
	Code    string `json:"code"`
	Line    int    `json:"line,omitempty"`
}

// Error implements the error interface.
func (e ValidationError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("[%s] line %d: %s: %s", e.Code, e.Line, e.Field, e.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", e.Code, e.Field, e.Message)
}

// variableName matches a SPARQL variable name without the leading '?'.
var variableName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate validates compiled IR against schema rules.
// Returns all errors found (does not fail-fast).
// Supports Library, a slice of libraries and FunctionDecl.
func Validate(v any) []ValidationError {
	switch x := v.(type) {
	case *ir.Library:
		return validateLibraries([]ir.Library{*x})
	case ir.Library:
		return validateLibraries([]ir.Library{x})
	case []ir.Library:
		return validateLibraries(x)
	case *ir.FunctionDecl:
		return validateFunction(*x, "function", nil)
	case ir.FunctionDecl:
		return validateFunction(x, "function", nil)
	default:
		return []ValidationError{{
			Field:   "type",
			Message: fmt.Sprintf("unsupported IR type: %T", v),
			Code:    ErrUnsupportedIRType,
		}}
	}
}

func validateLibraries(libs []ir.Library) []ValidationError {
	var errs []ValidationError

	decls := make(map[string]ir.FunctionDecl)
	for li, lib := range libs {
		field := fmt.Sprintf("libraries[%d]", li)
		if len(libs) == 1 {
			field = "library"
		}

		// E101: base URI is required
		if strings.TrimSpace(lib.BaseURI) == "" {
			errs = append(errs, ValidationError{
				Field:   field + ".base",
				Message: "base URI is required and must be non-empty",
				Code:    ErrLibraryBaseEmpty,
			})
		}

		// E102: at least one function
		if len(lib.Functions) == 0 {
			errs = append(errs, ValidationError{
				Field:   field + ".functions",
				Message: "at least one function is required",
				Code:    ErrLibraryNoFunction,
			})
		}

		// E104: a library cannot import itself
		if lib.BaseURI != "" && slices.Contains(lib.Imports, lib.BaseURI) {
			errs = append(errs, ValidationError{
				Field:   field + ".imports",
				Message: fmt.Sprintf("library %s imports itself", lib.BaseURI),
				Code:    ErrImportSelf,
			})
		}

		for i, fn := range lib.Functions {
			ff := fmt.Sprintf("%s.functions[%d]", field, i)

			// E103: duplicate URI
			if _, dup := decls[fn.URI]; dup {
				errs = append(errs, ValidationError{
					Field:   ff + ".uri",
					Message: fmt.Sprintf("duplicate function URI: %q", fn.URI),
					Code:    ErrDuplicateFunction,
				})
			}
			decls[fn.URI] = fn
		}
	}

	for li, lib := range libs {
		field := fmt.Sprintf("libraries[%d]", li)
		if len(libs) == 1 {
			field = "library"
		}
		for i, fn := range lib.Functions {
			errs = append(errs, validateFunction(fn, fmt.Sprintf("%s.functions[%d]", field, i), decls)...)
		}
	}

	// E117: recursion never terminates
	for _, w := range AnalyzeCycles(libs) {
		errs = append(errs, ValidationError{
			Field:   "functions",
			Message: w.Message,
			Code:    ErrRecursiveFunction,
		})
	}

	return errs
}

// validateFunction checks one declaration. decls, when non-nil, resolves
// the functions its expression calls.
func validateFunction(fn ir.FunctionDecl, field string, decls map[string]ir.FunctionDecl) []ValidationError {
	var errs []ValidationError

	// E110: exactly one of body and expr
	if (fn.Body == nil) == (fn.Expr == nil) {
		errs = append(errs, ValidationError{
			Field:   field,
			Message: fmt.Sprintf("function %q must declare exactly one of body and expr", fn.URI),
			Code:    ErrFunctionShape,
		})
	}

	// E111: formal arguments are distinct variable names
	seen := make(map[string]bool)
	for i, name := range fn.Arguments {
		if !variableName.MatchString(name) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.arguments[%d]", field, i),
				Message: fmt.Sprintf("invalid argument name %q", name),
				Code:    ErrInvalidArgument,
			})
		}
		if seen[name] {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.arguments[%d]", field, i),
				Message: fmt.Sprintf("duplicate argument name %q", name),
				Code:    ErrInvalidArgument,
			})
		}
		seen[name] = true
	}

	if fn.Body != nil {
		errs = append(errs, validateBody(fn, field)...)
	}
	if fn.Expr != nil {
		errs = append(errs, validateExpr(fn, field, decls)...)
	}

	return errs
}

func validateBody(fn ir.FunctionDecl, field string) []ValidationError {
	var errs []ValidationError

	var group queryir.Group
	for i, spec := range fn.Body.Patterns {
		tp, err := queryir.ParseTriple(spec, nil)
		if err != nil {
			// E112: unparseable pattern
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.body.patterns[%d]", field, i),
				Message: err.Error(),
				Code:    ErrInvalidPattern,
			})
			continue
		}
		group.Triples = append(group.Triples, tp)
	}
	bound := group.Variables()

	// E113: the result must be a template variable
	if fn.Result != "" && !slices.Contains(bound, fn.Result) {
		errs = append(errs, ValidationError{
			Field:   field + ".result",
			Message: fmt.Sprintf("result ?%s does not occur in the body", fn.Result),
			Code:    ErrUndefinedResult,
		})
	}
	for i, name := range fn.Body.Select {
		if !slices.Contains(bound, name) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.body.select[%d]", field, i),
				Message: fmt.Sprintf("projected ?%s does not occur in the body", name),
				Code:    ErrUndefinedResult,
			})
		}
	}

	// E115: solution modifiers
	for i, o := range fn.Body.OrderBy {
		if !slices.Contains(bound, o.Var) {
			errs = append(errs, ValidationError{
				Field:   fmt.Sprintf("%s.body.order_by[%d]", field, i),
				Message: fmt.Sprintf("order key ?%s does not occur in the body", o.Var),
				Code:    ErrInvalidModifier,
			})
		}
	}
	if fn.Body.Limit != nil && *fn.Body.Limit < 0 {
		errs = append(errs, ValidationError{
			Field:   field + ".body.limit",
			Message: fmt.Sprintf("negative limit %d", *fn.Body.Limit),
			Code:    ErrInvalidModifier,
		})
	}
	if fn.Body.Offset != nil && *fn.Body.Offset < 0 {
		errs = append(errs, ValidationError{
			Field:   field + ".body.offset",
			Message: fmt.Sprintf("negative offset %d", *fn.Body.Offset),
			Code:    ErrInvalidModifier,
		})
	}

	return errs
}

func validateExpr(fn ir.FunctionDecl, field string, decls map[string]ir.FunctionDecl) []ValidationError {
	var errs []ValidationError

	var lookup lookupTable
	if decls != nil {
		lookup = lookupTable(decls)
	}
	compiled, err := CompileExpr(*fn.Expr, Scope{Functions: lookup})
	if err != nil {
		// E116: the expression does not compile
		return append(errs, ValidationError{
			Field:   field + ".expr",
			Message: err.Error(),
			Code:    ErrInvalidExpression,
		})
	}

	// E114: expressions see only their formals
	for _, name := range compiled.Variables() {
		if !slices.Contains(fn.Arguments, name) {
			errs = append(errs, ValidationError{
				Field:   field + ".expr",
				Message: fmt.Sprintf("undefined variable ?%s", name),
				Code:    ErrUndefinedVariable,
			})
		}
	}

	// E118: template calls cannot be evaluated
	for _, uri := range calledFunctions(*fn.Expr, nil) {
		if decl, ok := decls[uri]; ok && decl.IsTemplate() {
			errs = append(errs, ValidationError{
				Field:   field + ".expr",
				Message: fmt.Sprintf("expression calls template function <%s>", uri),
				Code:    ErrTemplateInExprFunc,
			})
		}
	}

	return errs
}

// lookupTable adapts a URI map to decoder.FunctionLookup.
type lookupTable map[string]ir.FunctionDecl

func (t lookupTable) LookupFunction(uri string) (ir.FunctionDecl, bool) {
	decl, ok := t[uri]
	return decl, ok
}
