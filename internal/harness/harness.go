package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/roach88/spinql/internal/compiler"
	"github.com/roach88/spinql/internal/decoder"
	"github.com/roach88/spinql/internal/engine"
	"github.com/roach88/spinql/internal/expr"
	"github.com/roach88/spinql/internal/imports"
	"github.com/roach88/spinql/internal/ir"
	"github.com/roach88/spinql/internal/queryir"
	"github.com/roach88/spinql/internal/sorting"
	"github.com/roach88/spinql/internal/stats"
	"github.com/roach88/spinql/internal/store"
	"github.com/roach88/spinql/internal/testutil"
)

// Harness is the test execution engine.
// It runs scenarios with deterministic clocks and temporary variable names.
type Harness struct {
	store    *store.Store
	registry *imports.Registry
	engine   *engine.Engine
	graph    *engine.Graph
	scope    compiler.Scope
	stats    *stats.Manager
	logger   *slog.Logger
}

// Run executes a test scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Deterministic helpers ensure reproducible results.
//
// Execution flow:
// 1. Create fresh in-memory database
// 2. Compile the libraries and write them to the catalog
// 3. Load them back through the import registry
// 4. Run every query and check its expect clause
// 5. Return result with pass/fail, steps, and errors
func Run(scenario *Scenario) (*Result, error) {
	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	return RunWithStore(context.Background(), st, scenario)
}

// RunWithStore executes a scenario against an existing catalog. The
// scenario's libraries are written to st and the recorded statistics are
// stored under the scenario name as run ID.
func RunWithStore(ctx context.Context, st *store.Store, scenario *Scenario) (*Result, error) {
	h, err := newHarness(ctx, st, scenario)
	if err != nil {
		return nil, err
	}

	result := NewResult()
	for _, q := range scenario.Queries {
		step, sols, err := h.runQuery(ctx, q)
		if err != nil {
			return nil, fmt.Errorf("query %s: %w", q.Name, err)
		}
		result.Steps = append(result.Steps, step)

		for _, msg := range EvaluateExpectation(step, sols, q.Expect, scenario.Prefixes) {
			result.AddError(msg)
		}
	}

	result.Statistics = h.stats.Statistics()
	if err := st.WriteStatistics(ctx, scenario.Name, result.Statistics); err != nil {
		return nil, fmt.Errorf("failed to write statistics: %w", err)
	}

	return result, nil
}

// newHarness compiles the scenario's libraries, registers them and builds
// the engine and graph every query runs against.
func newHarness(ctx context.Context, st *store.Store, scenario *Scenario) (*Harness, error) {
	var libs []ir.Library
	for _, path := range scenario.Libraries {
		loaded, err := compiler.LoadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to compile %s: %w", path, err)
		}
		libs = append(libs, loaded...)
	}
	if errs := compiler.Validate(libs); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, fmt.Errorf("invalid libraries: %s", strings.Join(msgs, "; "))
	}

	// Libraries go through the catalog so imports resolve the same way
	// they do for the CLI.
	for _, lib := range libs {
		if _, _, err := st.WriteLibrary(ctx, lib); err != nil {
			return nil, fmt.Errorf("failed to store library %s: %w", lib.BaseURI, err)
		}
	}
	registry := imports.NewRegistry()
	for _, lib := range libs {
		if err := registry.LoadAll(lib, st.Loader(ctx)); err != nil {
			return nil, fmt.Errorf("failed to load imports of %s: %w", lib.BaseURI, err)
		}
	}

	registered := make([]ir.Library, 0, len(libs))
	for _, base := range registry.BaseURIs() {
		if lib, ok := registry.Get(base); ok {
			registered = append(registered, lib)
		}
	}
	functions, err := compiler.BuildFunctions(registered, registry)
	if err != nil {
		return nil, err
	}

	graph := engine.NewGraph()
	for i, row := range scenario.Data {
		t, err := engine.ParseTriple(ir.TripleSpec{S: row[0], P: row[1], O: row[2]}, scenario.Prefixes)
		if err != nil {
			return nil, fmt.Errorf("data[%d]: %w", i, err)
		}
		graph.Add(t)
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	statsClock := testutil.NewStepClock(time.Millisecond)
	manager := stats.NewManager(stats.WithRecording(true), stats.WithClock(statsClock.Now))

	eng := engine.New(
		engine.WithFunctions(registry),
		engine.WithResolver(functions),
		engine.WithStats(manager),
		engine.WithTempVars(decoder.NewSequentialTempVars("t")),
		engine.WithClock(testutil.NewStepClock(0).Now),
		engine.WithLogger(logger),
	)

	return &Harness{
		store:    st,
		registry: registry,
		engine:   eng,
		graph:    graph,
		scope:    compiler.Scope{Prefixes: scenario.Prefixes, Functions: registry},
		stats:    manager,
		logger:   logger,
	}, nil
}

// runQuery builds and executes one query step.
//
// Errors building the query are returned. Errors executing it are recorded
// in the step result so the expect clause can check them.
func (h *Harness) runQuery(ctx context.Context, step QueryStep) (StepResult, []expr.MapSolution, error) {
	q, err := h.buildQuery(step)
	if err != nil {
		return StepResult{}, nil, err
	}

	out := StepResult{
		Name:      step.Name,
		Variables: []string{},
		Rows:      []map[string]string{},
	}

	res, err := h.engine.Execute(ctx, h.graph, q)
	if err != nil {
		h.logger.Debug("query failed", "query", step.Name, "error", err)
		out.ErrorCode = errorCode(err)
		return out, nil, nil
	}

	out.Variables = append(out.Variables, res.Variables...)
	out.Dropped = res.Dropped
	for _, sol := range res.Solutions {
		row := make(map[string]string, len(sol))
		for name, v := range sol {
			row[name] = ir.FormatTerm(v)
		}
		out.Rows = append(out.Rows, row)
	}
	return out, res.Solutions, nil
}

// buildQuery compiles the patterns and expressions of a step.
func (h *Harness) buildQuery(step QueryStep) (engine.Query, error) {
	var where queryir.Group
	for i, row := range step.Where {
		tp, err := queryir.ParseTriple(ir.TripleSpec{S: row[0], P: row[1], O: row[2]}, h.scope.Prefixes)
		if err != nil {
			return engine.Query{}, fmt.Errorf("where[%d]: %w", i, err)
		}
		where.Triples = append(where.Triples, tp)
	}

	q := engine.NewQuery(where)
	for i, b := range step.Bind {
		e, err := compiler.CompileExpr(b.Expr, h.scope)
		if err != nil {
			return engine.Query{}, fmt.Errorf("bind[%d]: %w", i, err)
		}
		q.Binds = append(q.Binds, engine.Binding{Var: strings.TrimPrefix(b.Var, "?"), Expr: e})
	}
	for i, spec := range step.Filter {
		e, err := compiler.CompileExpr(spec, h.scope)
		if err != nil {
			return engine.Query{}, fmt.Errorf("filter[%d]: %w", i, err)
		}
		q.Filters = append(q.Filters, e)
	}
	for i, spec := range step.OrderBy {
		e, err := compiler.CompileExpr(spec.Expr, h.scope)
		if err != nil {
			return engine.Query{}, fmt.Errorf("order_by[%d]: %w", i, err)
		}
		if spec.Descending {
			q.OrderBy = append(q.OrderBy, sorting.Desc(e))
		} else {
			q.OrderBy = append(q.OrderBy, sorting.Asc(e))
		}
	}
	for _, v := range step.Select {
		q.Select = append(q.Select, strings.TrimPrefix(v, "?"))
	}
	q.Distinct = step.Distinct
	if step.Limit != nil {
		q.Limit = *step.Limit
	}
	if step.Offset != nil {
		q.Offset = *step.Offset
	}
	return q, nil
}

// errorCode maps an execution error to the code scenarios expect.
func errorCode(err error) string {
	var rt *engine.RuntimeError
	switch {
	case errors.As(err, &rt):
		return string(rt.Code)
	case ir.CodeOf(err) != "":
		return string(ir.CodeOf(err))
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return "CANCELLED"
	}
	return "ERROR"
}
