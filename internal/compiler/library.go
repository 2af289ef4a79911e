package compiler

import (
	"fmt"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"

	"github.com/roach88/spinql/internal/ir"
	"github.com/roach88/spinql/internal/queryir"
)

// CompileLibrary parses a CUE value into an ir.Library.
// Uses CUE SDK's Go API directly (not CLI subprocess).
//
// The CUE value should be the library struct itself:
//
//	library: people: {
//		base: "http://example.org/fn#"
//		prefixes: ex: "http://example.org/"
//		function: ageOf: {
//			arguments: ["person", "out"]
//			body: patterns: [["?person", "ex:age", "?out"]]
//		}
//		function: double: {
//			arguments: ["x"]
//			expr: {op: "multiply", args: [{var: "x"}, {const: "2"}]}
//		}
//	}
//
// Function URIs are the base URI plus the function label unless a "uri"
// field overrides it. Prefixed names in body patterns and expressions are
// expanded against the library prefixes, so the compiled IR only carries
// full URIs.
func CompileLibrary(v cue.Value) (*ir.Library, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	lib := &ir.Library{}

	baseVal := v.LookupPath(cue.ParsePath("base"))
	if !baseVal.Exists() {
		return nil, &CompileError{
			Field:   "base",
			Message: "base is required",
			Pos:     v.Pos(),
		}
	}
	base, err := baseVal.String()
	if err != nil {
		return nil, formatCUEError(err)
	}
	lib.BaseURI = base

	lib.Prefixes, err = parseStringMap(v, "prefixes")
	if err != nil {
		return nil, err
	}
	lib.Imports, err = parseStringList(v, "imports")
	if err != nil {
		return nil, err
	}

	prefixes := lib.Prefixes

	fnVal := v.LookupPath(cue.ParsePath("function"))
	if fnVal.Exists() {
		iter, err := fnVal.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for iter.Next() {
			decl, err := parseFunction(base, iter.Selector().Unquoted(), iter.Value(), prefixes)
			if err != nil {
				return nil, err
			}
			lib.Functions = append(lib.Functions, decl)
		}
	}
	if len(lib.Functions) == 0 {
		return nil, &CompileError{
			Field:   "function",
			Message: "at least one function is required",
			Pos:     v.Pos(),
		}
	}

	return lib, nil
}

func parseFunction(base, name string, v cue.Value, prefixes map[string]string) (ir.FunctionDecl, error) {
	decl := ir.FunctionDecl{URI: base + name, Deterministic: true}
	field := func(f string) string { return fmt.Sprintf("function.%s.%s", name, f) }

	if uriVal := v.LookupPath(cue.ParsePath("uri")); uriVal.Exists() {
		uri, err := uriVal.String()
		if err != nil {
			return decl, formatCUEError(err)
		}
		if expanded, ok := ir.ExpandPrefixed(uri, prefixes); ok {
			uri = expanded
		}
		decl.URI = uri
	}

	var err error
	if decl.Arguments, err = parseStringList(v, "arguments"); err != nil {
		return decl, err
	}
	if resVal := v.LookupPath(cue.ParsePath("result")); resVal.Exists() {
		if decl.Result, err = resVal.String(); err != nil {
			return decl, formatCUEError(err)
		}
	}
	if detVal := v.LookupPath(cue.ParsePath("deterministic")); detVal.Exists() {
		if decl.Deterministic, err = detVal.Bool(); err != nil {
			return decl, formatCUEError(err)
		}
	}

	bodyVal := v.LookupPath(cue.ParsePath("body"))
	exprVal := v.LookupPath(cue.ParsePath("expr"))
	switch {
	case bodyVal.Exists() && exprVal.Exists():
		return decl, &CompileError{Field: field("body"), Message: "body and expr are mutually exclusive", Pos: v.Pos()}
	case bodyVal.Exists():
		body, err := parseBody(bodyVal, prefixes, field)
		if err != nil {
			return decl, err
		}
		decl.Body = body
	case exprVal.Exists():
		var spec ir.ExprSpec
		if err := exprVal.Decode(&spec); err != nil {
			return decl, formatCUEError(err)
		}
		spec, err := ExpandExprSpec(spec, prefixes)
		if err != nil {
			return decl, &CompileError{Field: field("expr"), Message: err.Error(), Pos: exprVal.Pos()}
		}
		decl.Expr = &spec
	default:
		return decl, &CompileError{Field: field("body"), Message: "one of body or expr is required", Pos: v.Pos()}
	}

	return decl, nil
}

func parseBody(v cue.Value, prefixes map[string]string, field func(string) string) (*ir.TemplateBody, error) {
	body := &ir.TemplateBody{}

	patVal := v.LookupPath(cue.ParsePath("patterns"))
	if !patVal.Exists() {
		return nil, &CompileError{Field: field("body.patterns"), Message: "body patterns are required", Pos: v.Pos()}
	}
	iter, err := patVal.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for i := 0; iter.Next(); i++ {
		var terms []string
		if err := iter.Value().Decode(&terms); err != nil {
			return nil, formatCUEError(err)
		}
		if len(terms) != 3 {
			return nil, &CompileError{
				Field:   field(fmt.Sprintf("body.patterns[%d]", i)),
				Message: fmt.Sprintf("a pattern has 3 terms, got %d", len(terms)),
				Pos:     iter.Value().Pos(),
			}
		}
		tp, err := queryir.ParseTriple(ir.TripleSpec{S: terms[0], P: terms[1], O: terms[2]}, prefixes)
		if err != nil {
			return nil, &CompileError{
				Field:   field(fmt.Sprintf("body.patterns[%d]", i)),
				Message: err.Error(),
				Pos:     iter.Value().Pos(),
			}
		}
		body.Patterns = append(body.Patterns, tp.Spec())
	}

	if body.Select, err = parseStringList(v, "select"); err != nil {
		return nil, err
	}
	if orderVal := v.LookupPath(cue.ParsePath("order_by")); orderVal.Exists() {
		if err := orderVal.Decode(&body.OrderBy); err != nil {
			return nil, formatCUEError(err)
		}
	}
	for _, name := range []string{"limit", "offset"} {
		val := v.LookupPath(cue.ParsePath(name))
		if !val.Exists() {
			continue
		}
		n, err := val.Int64()
		if err != nil {
			return nil, formatCUEError(err)
		}
		m := int(n)
		if name == "limit" {
			body.Limit = &m
		} else {
			body.Offset = &m
		}
	}
	if distVal := v.LookupPath(cue.ParsePath("distinct")); distVal.Exists() {
		if body.Distinct, err = distVal.Bool(); err != nil {
			return nil, formatCUEError(err)
		}
	}

	return body, nil
}

func parseStringList(v cue.Value, path string) ([]string, error) {
	val := v.LookupPath(cue.ParsePath(path))
	if !val.Exists() {
		return nil, nil
	}
	iter, err := val.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

func parseStringMap(v cue.Value, path string) (map[string]string, error) {
	val := v.LookupPath(cue.ParsePath(path))
	if !val.Exists() {
		return nil, nil
	}
	iter, err := val.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	out := make(map[string]string)
	for iter.Next() {
		s, err := iter.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out[iter.Selector().Unquoted()] = s
	}
	return out, nil
}

// CompileError represents a compilation error with source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	// CUE errors may contain multiple errors
	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	firstErr := errs[0]
	positions := errors.Positions(firstErr)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: firstErr.Error(),
			Pos:     positions[0],
		}
	}

	return err
}
