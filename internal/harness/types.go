package harness

import "github.com/roach88/spinql/internal/stats"

// StepResult is the observed outcome of one query step.
type StepResult struct {
	Name string `json:"name"`

	// Variables are the projected variables, in projection order.
	Variables []string `json:"variables"`

	// Rows map each bound variable to its value in term syntax.
	Rows []map[string]string `json:"rows"`

	// Dropped counts rows eliminated by a failing BIND or FILTER.
	Dropped int `json:"dropped"`

	// ErrorCode is set when the query failed.
	ErrorCode string `json:"error,omitempty"`
}

// Result is the outcome of a test scenario execution.
type Result struct {
	// Pass indicates overall test success.
	// True if all expect clauses match.
	Pass bool `json:"pass"`

	// Steps holds one entry per query, in scenario order.
	Steps []StepResult `json:"steps"`

	// Errors contains validation error messages.
	// Empty if Pass is true.
	Errors []string `json:"errors,omitempty"`

	// Statistics are the timings recorded while running the scenario.
	Statistics []stats.Statistics `json:"-"`
}

// NewResult creates a new passing result.
// Used as the starting point for test execution.
func NewResult() *Result {
	return &Result{
		Pass:   true,
		Steps:  []StepResult{},
		Errors: []string{},
	}
}

// AddError adds a validation error and marks the result as failed.
func (r *Result) AddError(err string) {
	r.Errors = append(r.Errors, err)
	r.Pass = false
}

// Step returns the result of the named query step.
func (r *Result) Step(name string) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepResult{}, false
}
