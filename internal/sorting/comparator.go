package sorting

import (
	"log/slog"
	"slices"
	"strings"

	"github.com/roach88/spinql/internal/expr"
)

// Condition is one ORDER BY key.
type Condition struct {
	Expr      expr.Expr
	Ascending bool
}

// Asc orders by e, lowest first.
func Asc(e expr.Expr) Condition { return Condition{Expr: e, Ascending: true} }

// Desc orders by e, highest first.
func Desc(e expr.Expr) Condition { return Condition{Expr: e} }

func (c Condition) String() string {
	if c.Ascending {
		return "ASC(" + c.Expr.String() + ")"
	}
	return "DESC(" + c.Expr.String() + ")"
}

// Comparator orders two solutions and returns a negative number, zero or a
// positive number.
type Comparator func(a, b expr.Solution) int

// Build returns a comparator applying conds left to right. The first
// condition that does not compare equal decides.
//
// conds is copied; later changes to the slice do not affect the comparator.
func Build(conds []Condition, ctx *expr.Context) Comparator {
	conds = slices.Clone(conds)
	logger := slog.Default()
	if ctx != nil && ctx.Logger != nil {
		logger = ctx.Logger
	}

	return func(a, b expr.Solution) int {
		for _, cond := range conds {
			c := compareCondition(cond, a, b, ctx, logger)
			if !cond.Ascending {
				c = -c
			}
			if c != 0 {
				return c
			}
		}
		return 0
	}
}

// compareCondition ranks a failed evaluation below every value.
func compareCondition(cond Condition, a, b expr.Solution, ctx *expr.Context, logger *slog.Logger) int {
	va, errA := cond.Expr.Evaluate(a, ctx)
	vb, errB := cond.Expr.Evaluate(b, ctx)

	if errA != nil {
		logger.Debug("sort key evaluation failed", "expr", cond.Expr.String(), "error", errA)
	}
	if errB != nil {
		logger.Debug("sort key evaluation failed", "expr", cond.Expr.String(), "error", errB)
	}

	switch {
	case errA != nil && errB != nil:
		return 0
	case errA != nil:
		return -1
	case errB != nil:
		return 1
	}
	return CompareValues(va, vb)
}

// Sort orders solutions in place with cmp. The sort is stable: solutions
// that compare equal keep their relative order.
func Sort(solutions []expr.Solution, cmp Comparator) {
	slices.SortStableFunc(solutions, cmp)
}

// Describe renders conds as an ORDER BY clause.
func Describe(conds []Condition) string {
	parts := make([]string, len(conds))
	for i, c := range conds {
		parts[i] = c.String()
	}
	return "ORDER BY " + strings.Join(parts, " ")
}
