package expr

import (
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/spinql/internal/operators"
)

// Context carries everything evaluation needs besides the solution.
//
// A Context is read-only during evaluation and may be shared by concurrent
// evaluations of the same tree.
type Context struct {
	// Operators resolves arithmetic and comparison implementations.
	Operators operators.Resolver

	// Functions resolves extension functions by URI. May be nil.
	Functions FunctionResolver

	// Decimal is the context for decimal arithmetic.
	Decimal *apd.Context

	// Now is the query time returned by now(). It is fixed for the whole query.
	Now time.Time

	// Rand returns a double in [0, 1). It must be safe for concurrent use.
	Rand func() float64

	// Parallel enables concurrent operand evaluation.
	Parallel bool

	Logger *slog.Logger
}

// ContextOption configures a Context.
type ContextOption func(*Context)

// WithOperators sets the operator resolver.
func WithOperators(r operators.Resolver) ContextOption {
	return func(c *Context) {
		c.Operators = r
	}
}

// WithFunctions sets the extension function resolver.
func WithFunctions(r FunctionResolver) ContextOption {
	return func(c *Context) {
		c.Functions = r
	}
}

// WithDecimalContext sets the decimal arithmetic context.
func WithDecimalContext(dc *apd.Context) ContextOption {
	return func(c *Context) {
		c.Decimal = dc
	}
}

// WithNow fixes the query time.
func WithNow(t time.Time) ContextOption {
	return func(c *Context) {
		c.Now = t
	}
}

// WithRand sets the random source used by rand().
func WithRand(fn func() float64) ContextOption {
	return func(c *Context) {
		c.Rand = fn
	}
}

// WithParallel enables or disables concurrent operand evaluation.
func WithParallel(enabled bool) ContextOption {
	return func(c *Context) {
		c.Parallel = enabled
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) ContextOption {
	return func(c *Context) {
		c.Logger = l
	}
}

// NewContext creates a Context with the built-in operators, a 34-digit
// decimal context, the current time and a global random source.
func NewContext(opts ...ContextOption) *Context {
	c := &Context{
		Operators: operators.DefaultRegistry(),
		Decimal:   operators.DefaultDecimalContext(),
		Now:       time.Now().UTC(),
		Rand:      rand.Float64,
		Logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}
