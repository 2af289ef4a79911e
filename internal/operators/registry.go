package operators

import (
	"slices"

	"github.com/cockroachdb/apd/v3"

	"github.com/roach88/spinql/internal/ir"
)

// Builder collects operator registrations before query compilation.
// A Builder is not safe for concurrent use; the Registry it builds is.
type Builder struct {
	registered map[Kind][]Operator
	defaults   map[Kind]Operator
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		registered: make(map[Kind][]Operator),
		defaults:   make(map[Kind]Operator),
	}
}

// WithDefaults installs the built-in operator for every kind.
func (b *Builder) WithDefaults() *Builder {
	for _, op := range Defaults() {
		b.defaults[op.Kind()] = op
	}
	return b
}

// Register adds an operator. Later registrations take precedence over
// earlier ones for the same kind.
func (b *Builder) Register(op Operator) *Builder {
	b.registered[op.Kind()] = append(b.registered[op.Kind()], op)
	return b
}

// Build freezes the registrations into an immutable Registry.
func (b *Builder) Build() *Registry {
	r := &Registry{
		registered: make(map[Kind][]Operator, len(b.registered)),
		defaults:   make(map[Kind]Operator, len(b.defaults)),
	}
	for k, ops := range b.registered {
		r.registered[k] = slices.Clone(ops)
	}
	for k, op := range b.defaults {
		r.defaults[k] = op
	}
	return r
}

// Defaults returns a fresh instance of every built-in operator.
func Defaults() []Operator {
	return append([]Operator{
		newMultiply(),
		newAdd(),
		newSubtract(),
		newDivide(),
		negate{},
	}, comparisons()...)
}

// Registry is an immutable operator table. It is read-only after Build and
// needs no synchronization.
type Registry struct {
	registered map[Kind][]Operator
	defaults   map[Kind]Operator
}

// DefaultRegistry returns a registry holding only the built-in operators.
func DefaultRegistry() *Registry {
	return NewBuilder().WithDefaults().Build()
}

// Resolve returns the operator for kind and args.
//
// Registered candidates whose arity matches len(args) (or is Variadic) are
// tried most recent first; the first whose CanApply accepts args wins.
// Otherwise the built-in default for kind is returned when its arity
// matches, so that its Apply reports the precise operand error.
func (r *Registry) Resolve(kind Kind, args []ir.Value) (Operator, error) {
	n := len(args)
	ops := r.registered[kind]
	for i := len(ops) - 1; i >= 0; i-- {
		op := ops[i]
		if arityMatches(op.Arity(), n) && op.CanApply(args) {
			return op, nil
		}
	}
	if op, ok := r.defaults[kind]; ok && arityMatches(op.Arity(), n) {
		return op, nil
	}
	return nil, ir.NewUnsupportedOperatorError(string(kind), n)
}

// Apply resolves and applies an operator in one step.
func (r *Registry) Apply(kind Kind, dc *apd.Context, args ...ir.Value) (ir.Value, error) {
	op, err := r.Resolve(kind, args)
	if err != nil {
		return nil, err
	}
	return op.Apply(dc, args...)
}

// Kinds returns every kind with a default or registered operator, sorted.
func (r *Registry) Kinds() []Kind {
	seen := make(map[Kind]bool)
	for k := range r.defaults {
		seen[k] = true
	}
	for k := range r.registered {
		seen[k] = true
	}
	kinds := make([]Kind, 0, len(seen))
	for k := range seen {
		kinds = append(kinds, k)
	}
	slices.Sort(kinds)
	return kinds
}

func arityMatches(arity, n int) bool {
	return arity == Variadic || arity == n
}
