package expr

import (
	"slices"
	"strings"
	"sync"

	"github.com/roach88/spinql/internal/ir"
)

// Expr is a node of an expression tree.
//
// Nodes are immutable. Rewrites go through Transform, which returns a new
// node; Copy returns a deep copy.
type Expr interface {
	// Functor identifies the node: an operator symbol, a function URI, a
	// cast target, or "" for leaves.
	Functor() string

	// Args returns the child expressions in order. Leaves return nil.
	Args() []Expr

	// Variables returns the free variable names, in first-occurrence order.
	Variables() []string

	// IsConstant reports whether the node can be folded without a solution.
	IsConstant() bool

	// IsDeterministic reports whether equal inputs always give equal outputs.
	IsDeterministic() bool

	// CanParallelise reports whether the node's operands may be evaluated
	// concurrently.
	CanParallelise() bool

	// Evaluate computes the node's value for one solution.
	Evaluate(sol Solution, ctx *Context) (ir.Value, error)

	// Copy returns a structurally equal deep copy.
	Copy() Expr

	// Transform applies t to every child and rebuilds the node.
	// Leaves return themselves.
	Transform(t Transformer) Expr

	// Spec returns the declarative form of the node.
	Spec() ir.ExprSpec

	String() string
}

// Transformer substitutes a subexpression. Returning the argument unchanged
// keeps it.
type Transformer func(Expr) Expr

// Rewrite applies t bottom-up to every node of e, including e itself.
func Rewrite(e Expr, t Transformer) Expr {
	var walk Transformer
	walk = func(n Expr) Expr {
		return t(n.Transform(walk))
	}
	return walk(e)
}

// Solution is one row of variable bindings.
type Solution interface {
	// Get returns the value bound to name. Unbound variables return false.
	Get(name string) (ir.Value, bool)
}

// MapSolution is a Solution backed by a map. Nil values count as unbound.
type MapSolution map[string]ir.Value

// Get implements Solution.
func (s MapSolution) Get(name string) (ir.Value, bool) {
	v, ok := s[name]
	return v, ok && v != nil
}

// EmptySolution binds nothing.
var EmptySolution Solution = MapSolution(nil)

// variablesOf merges child variables, keeping first occurrences.
func variablesOf(args []Expr) []string {
	var out []string
	seen := make(map[string]bool)
	for _, a := range args {
		for _, v := range a.Variables() {
			if !seen[v] {
				seen[v] = true
				out = append(out, v)
			}
		}
	}
	return out
}

func allConstant(args []Expr) bool {
	for _, a := range args {
		if !a.IsConstant() {
			return false
		}
	}
	return true
}

func allDeterministic(args []Expr) bool {
	for _, a := range args {
		if !a.IsDeterministic() {
			return false
		}
	}
	return true
}

// allParallelisable is the CanParallelise rule for inner nodes: every child
// must be both parallelisable and deterministic.
func allParallelisable(args []Expr) bool {
	for _, a := range args {
		if !a.CanParallelise() || !a.IsDeterministic() {
			return false
		}
	}
	return true
}

func copyAll(args []Expr) []Expr {
	out := make([]Expr, len(args))
	for i, a := range args {
		out[i] = a.Copy()
	}
	return out
}

func transformAll(args []Expr, t Transformer) []Expr {
	out := make([]Expr, len(args))
	for i, a := range args {
		out[i] = t(a)
	}
	return out
}

func specsOf(args []Expr) []ir.ExprSpec {
	if len(args) == 0 {
		return nil
	}
	out := make([]ir.ExprSpec, len(args))
	for i, a := range args {
		out[i] = a.Spec()
	}
	return out
}

func joinArgs(args []Expr, sep string) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = a.String()
	}
	return strings.Join(parts, sep)
}

// EvaluateAll evaluates args against sol.
//
// Operands are evaluated concurrently when ctx.Parallel is set, there is
// more than one operand, and every operand can be parallelised. Otherwise
// they are evaluated left to right, stopping at the first error. In both
// cases the reported error is the one of the leftmost failing operand.
func EvaluateAll(args []Expr, sol Solution, ctx *Context) ([]ir.Value, error) {
	values := make([]ir.Value, len(args))

	if ctx != nil && ctx.Parallel && len(args) > 1 && allParallelisable(args) {
		errs := make([]error, len(args))
		var wg sync.WaitGroup
		for i, a := range args {
			wg.Add(1)
			go func() {
				defer wg.Done()
				values[i], errs[i] = a.Evaluate(sol, ctx)
			}()
		}
		wg.Wait()
		if i := slices.IndexFunc(errs, func(err error) bool { return err != nil }); i >= 0 {
			return nil, errs[i]
		}
		return values, nil
	}

	for i, a := range args {
		v, err := a.Evaluate(sol, ctx)
		if err != nil {
			return nil, err
		}
		values[i] = v
	}
	return values, nil
}
