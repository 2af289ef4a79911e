package compiler

import (
	"fmt"
	"slices"

	"github.com/roach88/spinql/internal/decoder"
	"github.com/roach88/spinql/internal/expr"
	"github.com/roach88/spinql/internal/ir"
)

// BuildFunctions compiles the expression functions of libs into a frozen
// registry. Template functions are skipped: their call sites are expanded,
// never evaluated. Calls between functions resolve through lookup.
func BuildFunctions(libs []ir.Library, lookup decoder.FunctionLookup) (*expr.FunctionRegistry, error) {
	b := expr.NewFunctionBuilder()
	for _, lib := range libs {
		scope := Scope{Prefixes: lib.Prefixes, Functions: lookup}
		for _, decl := range lib.Functions {
			if decl.Expr == nil {
				continue
			}
			body, err := CompileExpr(*decl.Expr, scope)
			if err != nil {
				return nil, fmt.Errorf("function <%s>: %w", decl.URI, err)
			}
			b.Register(expressionFunction(decl, body))
		}
	}
	return b.Build(), nil
}

// expressionFunction evaluates body with the formal arguments bound as
// variables.
func expressionFunction(decl ir.FunctionDecl, body expr.Expr) expr.Function {
	formals := slices.Clone(decl.Arguments)
	return expr.Function{
		URI:           decl.URI,
		Arity:         len(formals),
		Deterministic: decl.Deterministic && body.IsDeterministic(),
		Fn: func(ctx *expr.Context, args ...ir.Value) (ir.Value, error) {
			sol := make(expr.MapSolution, len(formals))
			for i, name := range formals {
				sol[name] = args[i]
			}
			return body.Evaluate(sol, ctx)
		},
	}
}
