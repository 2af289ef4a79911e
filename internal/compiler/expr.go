package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/spinql/internal/decoder"
	"github.com/roach88/spinql/internal/expr"
	"github.com/roach88/spinql/internal/ir"
	"github.com/roach88/spinql/internal/operators"
)

// Scope resolves the names an expression spec refers to.
type Scope struct {
	// Prefixes expand prefixed names in constants, casts and function names.
	Prefixes map[string]string

	// Functions resolves extension function URIs. Nil means every URI is
	// resolved at evaluation time.
	Functions decoder.FunctionLookup
}

var nullaries = map[string]func() expr.Expr{
	"e":    expr.E,
	"pi":   expr.Pi,
	"now":  expr.Now,
	"rand": expr.Rand,
}

// nullary resolves a built-in by short name or by its ARQ function URI.
func nullary(name string) (func() expr.Expr, bool) {
	if local, ok := strings.CutPrefix(name, expr.ARQFunctions); ok && (local == "e" || local == "pi") {
		name = local
	}
	mk, ok := nullaries[name]
	return mk, ok
}

var arithmetic = []operators.Kind{operators.Multiply, operators.Add, operators.Subtract, operators.Divide}

var comparisons = []operators.Kind{
	operators.Equal, operators.NotEqual,
	operators.Less, operators.LessOrEqual,
	operators.Greater, operators.GreaterOrEqual,
}

// CompileExpr builds an expression tree from its declarative form. It is
// the inverse of expr.Expr.Spec: CompileExpr(e.Spec(), scope) is
// structurally equal to e for every tree whose functions scope resolves.
func CompileExpr(spec ir.ExprSpec, scope Scope) (expr.Expr, error) {
	if err := checkShape(spec); err != nil {
		return nil, err
	}

	switch {
	case spec.Var != "":
		return expr.NewVariable(strings.TrimPrefix(spec.Var, "?")), nil
	case spec.Const != "":
		v, err := ir.ParseTerm(spec.Const, scope.Prefixes)
		if err != nil {
			return nil, &CompileError{Field: "expr.const", Message: err.Error()}
		}
		return expr.NewConstant(v), nil
	}

	args := make([]expr.Expr, len(spec.Args))
	for i, a := range spec.Args {
		e, err := CompileExpr(a, scope)
		if err != nil {
			return nil, err
		}
		args[i] = e
	}

	switch {
	case spec.Cast != "":
		if len(args) != 1 {
			return nil, arityError("cast", spec.Cast, 1, len(args))
		}
		return expr.NewCast(expandName(spec.Cast, scope.Prefixes), args[0]), nil
	case spec.Op != "":
		return compileOperator(operators.Kind(spec.Op), args)
	}
	return compileFunction(spec.Fn, args, scope)
}

func checkShape(spec ir.ExprSpec) error {
	set := 0
	for _, f := range []string{spec.Var, spec.Const, spec.Op, spec.Fn, spec.Cast} {
		if f != "" {
			set++
		}
	}
	if set != 1 {
		return &CompileError{Field: "expr", Message: "exactly one of var, const, op, fn and cast must be set"}
	}
	if (spec.Var != "" || spec.Const != "") && len(spec.Args) > 0 {
		return &CompileError{Field: "expr", Message: "var and const take no args"}
	}
	return nil
}

func compileOperator(kind operators.Kind, args []expr.Expr) (expr.Expr, error) {
	switch {
	case kind == operators.Negate:
		if len(args) != 1 {
			return nil, arityError("op", string(kind), 1, len(args))
		}
		return expr.NewNegate(args[0]), nil
	case slices.Contains(comparisons, kind):
		if len(args) != 2 {
			return nil, arityError("op", string(kind), 2, len(args))
		}
		return expr.NewComparison(kind, args[0], args[1]), nil
	case slices.Contains(arithmetic, kind):
		if len(args) == 0 {
			return nil, &CompileError{Field: "expr.op", Message: fmt.Sprintf("%s needs at least one operand", kind)}
		}
		return expr.NewArithmetic(kind, args...), nil
	}
	return nil, &CompileError{Field: "expr.op", Message: fmt.Sprintf("unknown operator %q", kind)}
}

func compileFunction(name string, args []expr.Expr, scope Scope) (expr.Expr, error) {
	if mk, ok := nullary(name); ok {
		if len(args) != 0 {
			return nil, arityError("fn", name, 0, len(args))
		}
		return mk(), nil
	}
	if slices.Contains(expr.HashAlgorithms(), name) {
		if len(args) != 1 {
			return nil, arityError("fn", name, 1, len(args))
		}
		h, err := expr.NewHash(name, args[0])
		if err != nil {
			return nil, err
		}
		return h, nil
	}

	uri := expandName(name, scope.Prefixes)
	if _, ok := nullary(uri); ok && uri != name {
		return compileFunction(uri, args, scope)
	}
	if scope.Functions == nil {
		return expr.NewFunctionCall(uri, false, args...), nil
	}
	decl, ok := scope.Functions.LookupFunction(uri)
	if !ok {
		// Unknown URIs resolve at evaluation time; without a declaration
		// the call cannot be assumed deterministic.
		return expr.NewFunctionCall(uri, false, args...), nil
	}
	if len(args) > len(decl.Arguments) || (!decl.IsTemplate() && len(args) != len(decl.Arguments)) {
		return nil, arityError("fn", uri, len(decl.Arguments), len(args))
	}
	if decl.IsTemplate() {
		return decoder.NewTemplateCall(decl, args...), nil
	}
	return expr.NewFunctionCall(decl.URI, decl.Deterministic, args...), nil
}

// expandName turns "<uri>" and "prefix:local" into a full URI.
func expandName(name string, prefixes map[string]string) string {
	if strings.HasPrefix(name, "<") && strings.HasSuffix(name, ">") {
		return name[1 : len(name)-1]
	}
	if strings.Contains(name, "://") {
		return name
	}
	if uri, ok := ir.ExpandPrefixed(name, prefixes); ok {
		return uri
	}
	return name
}

func arityError(field, name string, want, got int) *CompileError {
	return &CompileError{
		Field:   "expr." + field,
		Message: fmt.Sprintf("%s takes %d arguments, got %d", name, want, got),
	}
}

// ExpandExprSpec rewrites every prefixed name in spec to its full form so
// the result no longer depends on prefixes.
func ExpandExprSpec(spec ir.ExprSpec, prefixes map[string]string) (ir.ExprSpec, error) {
	out := spec
	if spec.Const != "" {
		v, err := ir.ParseTerm(spec.Const, prefixes)
		if err != nil {
			return out, err
		}
		out.Const = ir.FormatTerm(v)
	}
	if spec.Cast != "" {
		out.Cast = expandName(spec.Cast, prefixes)
	}
	if spec.Fn != "" {
		if _, ok := nullary(spec.Fn); !ok && !slices.Contains(expr.HashAlgorithms(), spec.Fn) {
			out.Fn = expandName(spec.Fn, prefixes)
		}
	}
	if len(spec.Args) > 0 {
		out.Args = make([]ir.ExprSpec, len(spec.Args))
		for i, a := range spec.Args {
			expanded, err := ExpandExprSpec(a, prefixes)
			if err != nil {
				return out, err
			}
			out.Args[i] = expanded
		}
	}
	return out, nil
}
