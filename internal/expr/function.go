package expr

import (
	"slices"

	"github.com/roach88/spinql/internal/ir"
	"github.com/roach88/spinql/internal/operators"
)

// Function is an extension function registered under a URI.
type Function struct {
	URI string

	// Arity is the number of arguments, or operators.Variadic.
	Arity int

	// Deterministic is false for functions whose result may change between
	// calls with equal arguments.
	Deterministic bool

	Fn func(ctx *Context, args ...ir.Value) (ir.Value, error)
}

// FunctionResolver looks up extension functions by URI.
type FunctionResolver interface {
	ResolveFunction(uri string) (Function, error)
}

// FunctionBuilder collects function registrations before compilation.
type FunctionBuilder struct {
	fns map[string]Function
}

// NewFunctionBuilder creates an empty builder.
func NewFunctionBuilder() *FunctionBuilder {
	return &FunctionBuilder{fns: make(map[string]Function)}
}

// Register adds fn, replacing any earlier registration of the same URI.
func (b *FunctionBuilder) Register(fn Function) *FunctionBuilder {
	b.fns[fn.URI] = fn
	return b
}

// Build freezes the registrations.
func (b *FunctionBuilder) Build() *FunctionRegistry {
	fns := make(map[string]Function, len(b.fns))
	for uri, fn := range b.fns {
		fns[uri] = fn
	}
	return &FunctionRegistry{fns: fns}
}

// FunctionRegistry is an immutable URI to Function table.
type FunctionRegistry struct {
	fns map[string]Function
}

// ResolveFunction implements FunctionResolver.
func (r *FunctionRegistry) ResolveFunction(uri string) (Function, error) {
	fn, ok := r.fns[uri]
	if !ok {
		return Function{}, ir.NewUnsupportedOperatorError(uri, -1)
	}
	return fn, nil
}

// Lookup returns the function registered under uri.
func (r *FunctionRegistry) Lookup(uri string) (Function, bool) {
	fn, ok := r.fns[uri]
	return fn, ok
}

// URIs returns every registered URI, sorted.
func (r *FunctionRegistry) URIs() []string {
	uris := make([]string, 0, len(r.fns))
	for uri := range r.fns {
		uris = append(uris, uri)
	}
	slices.Sort(uris)
	return uris
}

// FunctionCall invokes an extension function resolved at evaluation time.
type FunctionCall struct {
	URI       string
	Arguments []Expr

	// Deterministic mirrors Function.Deterministic, known at compile time.
	Deterministic bool
}

// NewFunctionCall creates a call to the function at uri.
func NewFunctionCall(uri string, deterministic bool, args ...Expr) *FunctionCall {
	return &FunctionCall{URI: uri, Arguments: args, Deterministic: deterministic}
}

func (f *FunctionCall) Functor() string { return f.URI }
func (f *FunctionCall) Args() []Expr { return f.Arguments }
func (f *FunctionCall) Variables() []string { return variablesOf(f.Arguments) }
func (f *FunctionCall) String() string { return "<" + f.URI + ">(" + joinArgs(f.Arguments, ", ") + ")" }

func (f *FunctionCall) IsConstant() bool {
	return f.IsDeterministic() && allConstant(f.Arguments)
}

func (f *FunctionCall) IsDeterministic() bool {
	return f.Deterministic && allDeterministic(f.Arguments)
}

func (f *FunctionCall) CanParallelise() bool {
	return f.Deterministic && allParallelisable(f.Arguments)
}

func (f *FunctionCall) Copy() Expr {
	return &FunctionCall{URI: f.URI, Arguments: copyAll(f.Arguments), Deterministic: f.Deterministic}
}

func (f *FunctionCall) Transform(t Transformer) Expr {
	return &FunctionCall{URI: f.URI, Arguments: transformAll(f.Arguments, t), Deterministic: f.Deterministic}
}

func (f *FunctionCall) Spec() ir.ExprSpec {
	return ir.ExprSpec{Fn: f.URI, Args: specsOf(f.Arguments)}
}

// Evaluate resolves the function, checks its arity and applies it.
func (f *FunctionCall) Evaluate(sol Solution, ctx *Context) (ir.Value, error) {
	if ctx == nil || ctx.Functions == nil {
		return nil, ir.NewUnsupportedOperatorError(f.URI, len(f.Arguments))
	}
	fn, err := ctx.Functions.ResolveFunction(f.URI)
	if err != nil {
		return nil, err
	}
	if fn.Arity != operators.Variadic && fn.Arity != len(f.Arguments) {
		return nil, ir.NewArgumentError("<%s>: expected %d arguments, got %d", f.URI, fn.Arity, len(f.Arguments))
	}
	values, err := EvaluateAll(f.Arguments, sol, ctx)
	if err != nil {
		return nil, err
	}
	v, err := fn.Fn(ctx, values...)
	if err != nil {
		return nil, err
	}
	if v == nil {
		return nil, ir.NewTypeError("<%s> returned no value", f.URI)
	}
	return v, nil
}
