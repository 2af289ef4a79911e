package harness

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/spinql/internal/expr"
	"github.com/roach88/spinql/internal/ir"
)

// Expectation kinds, used to categorize assertion failures.
const (
	AssertError   = "error"
	AssertCount   = "count"
	AssertDropped = "dropped"
	AssertRows    = "rows"
)

// AssertionError is returned when an expectation fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string              // expectation kind
	Step     string              // query step name
	Expected string              // human-readable expected outcome
	Actual   string              // human-readable actual outcome
	Rows     []map[string]string // observed rows for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s (query %s)\n", e.Type, e.Step)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Rows) > 0 {
		fmt.Fprintf(&buf, "\nObserved rows:\n")
		for i, row := range e.Rows {
			fmt.Fprintf(&buf, "  [%d] %s\n", i+1, formatRow(row))
		}
	}

	return buf.String()
}

// assertErrorCode checks that the step failed with the expected code.
func assertErrorCode(step StepResult, want string) error {
	if step.ErrorCode == want {
		return nil
	}
	expected, actual := "error "+want, "query succeeded"
	if want == "" {
		expected = "query succeeds"
	}
	if step.ErrorCode != "" {
		actual = "error " + step.ErrorCode
	}
	return &AssertionError{
		Type:     AssertError,
		Step:     step.Name,
		Expected: expected,
		Actual:   actual,
		Rows:     step.Rows,
	}
}

// assertCount checks the number of solutions.
func assertCount(step StepResult, want int) error {
	if len(step.Rows) == want {
		return nil
	}
	return &AssertionError{
		Type:     AssertCount,
		Step:     step.Name,
		Expected: fmt.Sprintf("%d solutions", want),
		Actual:   fmt.Sprintf("%d solutions", len(step.Rows)),
		Rows:     step.Rows,
	}
}

// assertDropped checks how many rows BIND and FILTER eliminated.
func assertDropped(step StepResult, want int) error {
	if step.Dropped == want {
		return nil
	}
	return &AssertionError{
		Type:     AssertDropped,
		Step:     step.Name,
		Expected: fmt.Sprintf("%d dropped rows", want),
		Actual:   fmt.Sprintf("%d dropped rows", step.Dropped),
	}
}

// assertRows checks the solutions against the expected rows.
//
// Expected terms are parsed with the scenario prefixes and compared to the
// observed values by term identity, so "30" and "30"^^xsd:integer match.
// Without ordered, rows match as a multiset.
func assertRows(step StepResult, sols []expr.MapSolution, expect *ExpectClause, prefixes map[string]string) error {
	want := make([]expr.MapSolution, len(expect.Rows))
	for i, row := range expect.Rows {
		sol, err := parseRow(row, prefixes)
		if err != nil {
			return fmt.Errorf("query %s: expect.rows[%d]: %w", step.Name, i, err)
		}
		want[i] = sol
	}

	fail := func(actual string) error {
		return &AssertionError{
			Type:     AssertRows,
			Step:     step.Name,
			Expected: fmt.Sprintf("%d rows %s", len(expect.Rows), formatRows(expect.Rows)),
			Actual:   actual,
			Rows:     step.Rows,
		}
	}

	if len(want) != len(sols) {
		return fail(fmt.Sprintf("%d rows", len(sols)))
	}

	if expect.Ordered {
		for i := range want {
			if !sameSolution(want[i], sols[i]) {
				return fail(fmt.Sprintf("row %d is %s", i+1, formatRow(step.Rows[i])))
			}
		}
		return nil
	}

	// Term identity is an equivalence, so greedy matching finds a perfect
	// matching whenever one exists.
	used := make([]bool, len(sols))
	for i, w := range want {
		found := false
		for j, sol := range sols {
			if !used[j] && sameSolution(w, sol) {
				used[j] = true
				found = true
				break
			}
		}
		if !found {
			return fail(fmt.Sprintf("no row matches %s", formatRow(expect.Rows[i])))
		}
	}
	return nil
}

func parseRow(row map[string]string, prefixes map[string]string) (expr.MapSolution, error) {
	sol := make(expr.MapSolution, len(row))
	for name, term := range row {
		v, err := ir.ParseTerm(term, prefixes)
		if err != nil {
			return nil, fmt.Errorf("?%s: %w", name, err)
		}
		sol[strings.TrimPrefix(name, "?")] = v
	}
	return sol, nil
}

func sameSolution(a, b expr.MapSolution) bool {
	if len(a) != len(b) {
		return false
	}
	for name, v := range a {
		w, ok := b[name]
		if !ok || !ir.SameTerm(v, w) {
			return false
		}
	}
	return true
}

// formatRow renders a row with variables in sorted order.
func formatRow(row map[string]string) string {
	names := make([]string, 0, len(row))
	for name := range row {
		names = append(names, name)
	}
	slices.Sort(names)

	parts := make([]string, len(names))
	for i, name := range names {
		parts[i] = "?" + strings.TrimPrefix(name, "?") + "=" + row[name]
	}
	return "{" + strings.Join(parts, " ") + "}"
}

func formatRows(rows []map[string]string) string {
	parts := make([]string, len(rows))
	for i, row := range rows {
		parts[i] = formatRow(row)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// EvaluateExpectation checks one step against its expect clause.
// Returns a slice of error messages for failed expectations.
func EvaluateExpectation(step StepResult, sols []expr.MapSolution, expect *ExpectClause, prefixes map[string]string) []string {
	if expect == nil {
		if step.ErrorCode != "" {
			return []string{fmt.Sprintf("query %s: unexpected error %s", step.Name, step.ErrorCode)}
		}
		return nil
	}

	var errs []error
	if expect.Error != "" || step.ErrorCode != "" {
		errs = append(errs, assertErrorCode(step, expect.Error))
	} else {
		if expect.Count != nil {
			errs = append(errs, assertCount(step, *expect.Count))
		}
		if expect.Dropped != nil {
			errs = append(errs, assertDropped(step, *expect.Dropped))
		}
		if len(expect.Rows) > 0 {
			errs = append(errs, assertRows(step, sols, expect, prefixes))
		}
	}

	var messages []string
	for _, err := range errs {
		if err != nil {
			messages = append(messages, err.Error())
		}
	}
	return messages
}
