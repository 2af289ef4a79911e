package engine

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/roach88/spinql/internal/decoder"
	"github.com/roach88/spinql/internal/expr"
	"github.com/roach88/spinql/internal/ir"
	"github.com/roach88/spinql/internal/queryir"
	"github.com/roach88/spinql/internal/sorting"
	"github.com/roach88/spinql/internal/stats"
)

// Default limits.
const (
	DefaultMaxDepth     = 32
	DefaultMaxSolutions = 1_000_000
)

// Query is a SELECT over a Graph.
type Query struct {
	Where    queryir.Group
	Binds    []Binding
	Filters  []expr.Expr
	OrderBy  []sorting.Condition
	Select   []string // empty projects every named variable
	Distinct bool
	Limit    int // -1 when unbounded
	Offset   int // -1 when unset
}

// NewQuery creates a query over where with no modifiers.
func NewQuery(where queryir.Group) Query {
	return Query{Where: where, Limit: -1, Offset: -1}
}

// Binding is a BIND(expr AS ?var) step.
type Binding struct {
	Var  string
	Expr expr.Expr
}

// Result holds the solutions of a query.
type Result struct {
	// Variables is the projection, in order.
	Variables []string

	Solutions []expr.MapSolution

	// Dropped counts rows eliminated because a BIND or FILTER failed.
	Dropped int
}

// Searcher answers full-text search invocations.
type Searcher interface {
	// Search returns matches for query, best first. A limit of -1 means
	// unbounded.
	Search(ctx context.Context, query string, limit int) ([]Hit, error)
}

// Hit is one search match.
type Hit struct {
	Node  ir.Value
	Score float64
}

// Engine runs queries against graphs.
//
// Thread-safety model:
//   - Compile and Execute may be called concurrently; the engine holds no
//     per-query state
//   - The configured Searcher and function resolvers must be safe for
//     concurrent use
type Engine struct {
	functions    decoder.FunctionLookup
	resolver     expr.FunctionResolver
	searcher     Searcher
	stats        *stats.Manager
	logger       *slog.Logger
	tempVars     decoder.TempVarGenerator
	tail         decoder.TailPolicy
	parallel     bool
	workers      int
	maxDepth     int
	maxSolutions int
	now          func() time.Time
}

// Option configures an Engine.
type Option func(*Engine)

// WithFunctions sets the declarations call sites are decoded against.
func WithFunctions(lookup decoder.FunctionLookup) Option {
	return func(e *Engine) {
		e.functions = lookup
	}
}

// WithResolver sets the extension function implementations used by BIND,
// FILTER and ORDER BY expressions.
func WithResolver(r expr.FunctionResolver) Option {
	return func(e *Engine) {
		e.resolver = r
	}
}

// WithSearcher sets the full-text search backend.
func WithSearcher(s Searcher) Option {
	return func(e *Engine) {
		e.searcher = s
	}
}

// WithStats records decode, expansion and evaluation timings in m.
func WithStats(m *stats.Manager) Option {
	return func(e *Engine) {
		e.stats = m
	}
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		e.logger = l
	}
}

// WithTempVars sets the generator for template temporaries.
// Default: decoder.UUIDTempVars.
func WithTempVars(g decoder.TempVarGenerator) Option {
	return func(e *Engine) {
		e.tempVars = g
	}
}

// WithTailPolicy sets how two-element search argument lists are read.
func WithTailPolicy(p decoder.TailPolicy) Option {
	return func(e *Engine) {
		e.tail = p
	}
}

// WithParallel evaluates BIND and FILTER expressions for several rows at
// once, and lets n-ary operators evaluate operands concurrently. Only
// expressions that report CanParallelise are run concurrently.
func WithParallel(enabled bool) Option {
	return func(e *Engine) {
		e.parallel = enabled
	}
}

// WithWorkers sets the number of concurrent row workers.
// Default: runtime.GOMAXPROCS(0).
func WithWorkers(n int) Option {
	return func(e *Engine) {
		e.workers = n
	}
}

// WithMaxDepth bounds template expansion nesting. Zero disables the bound.
func WithMaxDepth(n int) Option {
	return func(e *Engine) {
		e.maxDepth = n
	}
}

// WithMaxSolutions bounds the intermediate solutions of one query. Zero
// disables the bound.
func WithMaxSolutions(n int) Option {
	return func(e *Engine) {
		e.maxSolutions = n
	}
}

// WithClock replaces time.Now as the source of now(), for deterministic
// tests.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		e.now = now
	}
}

// New creates an Engine.
func New(opts ...Option) *Engine {
	e := &Engine{
		logger:       slog.Default(),
		tempVars:     decoder.UUIDTempVars{},
		tail:         decoder.TailThreshold,
		workers:      runtime.GOMAXPROCS(0),
		maxDepth:     DefaultMaxDepth,
		maxSolutions: DefaultMaxSolutions,
		now:          time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.workers < 1 {
		e.workers = 1
	}
	return e
}

func (e *Engine) decodeOptions() []decoder.Option {
	opts := []decoder.Option{
		decoder.WithLogger(e.logger),
		decoder.WithTempVars(e.tempVars),
		decoder.WithTailPolicy(e.tail),
	}
	if e.stats != nil {
		opts = append(opts, decoder.WithStats(e.stats))
	}
	return opts
}

// exprContext builds the evaluation context of one query. now() is fixed
// for the whole query.
func (e *Engine) exprContext() *expr.Context {
	return expr.NewContext(
		expr.WithFunctions(e.resolver),
		expr.WithNow(e.now().UTC()),
		expr.WithParallel(e.parallel),
		expr.WithLogger(e.logger),
	)
}

// Execute compiles q and evaluates it against g.
//
// ERROR HANDLING: rows whose BIND or FILTER fails are dropped, logged at
// debug level and counted in Result.Dropped. Errors that make the whole
// query meaningless (compile errors, quota, cancellation) are returned.
func (e *Engine) Execute(ctx context.Context, g *Graph, q Query) (*Result, error) {
	if e.stats != nil {
		defer e.stats.Start(stats.LabelEvaluation, "query")()
	}

	plan, err := e.Compile(q.Where)
	if err != nil {
		return nil, err
	}

	ectx := e.exprContext()
	quota := newSolutionQuota(e.maxSolutions)
	sols, err := e.evalPlan(ctx, g, plan, quota)
	if err != nil {
		return nil, err
	}

	res := &Result{}
	for _, b := range q.Binds {
		sols = e.applyRows(sols, []expr.Expr{b.Expr}, func(sol expr.MapSolution) (expr.MapSolution, bool, error) {
			return bindRow(b, sol, ectx)
		}, res)
	}
	if len(q.Filters) > 0 {
		sols = e.applyRows(sols, q.Filters, func(sol expr.MapSolution) (expr.MapSolution, bool, error) {
			return filterRow(q.Filters, sol, ectx)
		}, res)
	}

	if len(q.OrderBy) > 0 {
		sortSolutions(sols, sorting.Build(q.OrderBy, ectx))
	}

	res.Variables = q.Select
	if len(res.Variables) == 0 {
		res.Variables = namedVariables(sols)
	}
	sols = project(sols, res.Variables)
	if q.Distinct {
		if sols, err = distinct(sols); err != nil {
			return nil, err
		}
	}
	res.Solutions = slice(sols, q.Offset, q.Limit)

	e.logger.Debug("query executed",
		"solutions", len(res.Solutions),
		"dropped", res.Dropped,
	)
	return res, nil
}

// evalPlan evaluates p from an empty solution.
func (e *Engine) evalPlan(ctx context.Context, g *Graph, p Plan, quota *solutionQuota) ([]expr.MapSolution, error) {
	sols := []expr.MapSolution{{}}

	for _, tp := range p.Triples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var next []expr.MapSolution
		for _, sol := range sols {
			next = append(next, g.match(tp, sol)...)
		}
		if err := quota.add(len(next)); err != nil {
			return nil, err
		}
		sols = next
	}

	for _, sq := range p.SubQueries {
		inner, err := e.evalSubPlan(ctx, g, sq, quota)
		if err != nil {
			return nil, err
		}
		sols = join(sols, inner)
		if err := quota.add(len(sols)); err != nil {
			return nil, err
		}
	}

	for _, sp := range p.Searches {
		var err error
		if sols, err = e.evalSearch(ctx, sp, sols); err != nil {
			return nil, err
		}
		if err := quota.add(len(sols)); err != nil {
			return nil, err
		}
	}

	if sols == nil {
		sols = []expr.MapSolution{}
	}
	return sols, nil
}

// evalSubPlan evaluates a sub-query bottom-up: where, order, project,
// distinct, slice.
func (e *Engine) evalSubPlan(ctx context.Context, g *Graph, sq SubPlan, quota *solutionQuota) ([]expr.MapSolution, error) {
	sols, err := e.evalPlan(ctx, g, sq.Where, quota)
	if err != nil {
		return nil, err
	}
	if len(sq.OrderBy) > 0 {
		conds := make([]sorting.Condition, len(sq.OrderBy))
		for i, k := range sq.OrderBy {
			if k.Descending {
				conds[i] = sorting.Desc(expr.NewVariable(k.Var))
			} else {
				conds[i] = sorting.Asc(expr.NewVariable(k.Var))
			}
		}
		sortSolutions(sols, sorting.Build(conds, e.exprContext()))
	}
	vars := sq.Select
	if len(vars) == 0 {
		vars = namedVariables(sols)
	}
	sols = project(sols, vars)
	if sq.Distinct {
		if sols, err = distinct(sols); err != nil {
			return nil, err
		}
	}
	return slice(sols, sq.Offset, sq.Limit), nil
}

// evalSearch joins every solution with the hits of sp.
func (e *Engine) evalSearch(ctx context.Context, sp queryir.SearchPattern, sols []expr.MapSolution) ([]expr.MapSolution, error) {
	if e.searcher == nil {
		return nil, ir.NewUnsupportedOperatorError(decoder.TextMatch, -1)
	}
	var out []expr.MapSolution
	for _, sol := range sols {
		query, ok := resolveItem(sp.Query, sol)
		if !ok {
			e.logger.Debug("search query unbound, row dropped", "query", sp.Query.String())
			continue
		}
		hits, err := e.searcher.Search(ctx, query.Lexical(), sp.Limit)
		if err != nil {
			return nil, fmt.Errorf("search %q: %w", query.Lexical(), err)
		}
		for _, hit := range hits {
			if !math.IsNaN(sp.Threshold) && hit.Score < sp.Threshold {
				continue
			}
			row := expr.MapSolution{}
			if name := bindingName(sp.Match); name != "" {
				row[name] = hit.Node
			} else if !ir.SameTerm(sp.Match.Node, hit.Node) {
				continue
			}
			if name := bindingName(sp.Score); name != "" {
				row[name] = ir.Double(hit.Score)
			}
			if compatible(sol, row) {
				out = append(out, merge(sol, row))
			}
		}
	}
	return out, nil
}

func resolveItem(item queryir.Item, sol expr.MapSolution) (ir.Value, bool) {
	if item.IsNode() {
		return item.Node, true
	}
	v, ok := sol[bindingName(item)]
	return v, ok && v != nil
}

// rowFunc transforms one row. keep=false drops it; an error drops and
// counts it.
type rowFunc func(sol expr.MapSolution) (out expr.MapSolution, keep bool, err error)

// applyRows runs fn over sols, concurrently when the engine is parallel and
// every expression can be parallelised. Output order follows input order.
func (e *Engine) applyRows(sols []expr.MapSolution, exprs []expr.Expr, fn rowFunc, res *Result) []expr.MapSolution {
	type outcome struct {
		sol  expr.MapSolution
		keep bool
		err  error
	}
	outcomes := make([]outcome, len(sols))
	run := func(i int) {
		sol, keep, err := fn(sols[i])
		outcomes[i] = outcome{sol, keep, err}
	}

	if e.parallel && e.workers > 1 && allParallelisable(exprs) {
		var wg sync.WaitGroup
		next := make(chan int)
		for range min(e.workers, len(sols)) {
			wg.Add(1)
			go func() {
				defer wg.Done()
				for i := range next {
					run(i)
				}
			}()
		}
		for i := range sols {
			next <- i
		}
		close(next)
		wg.Wait()
	} else {
		for i := range sols {
			run(i)
		}
	}

	out := make([]expr.MapSolution, 0, len(sols))
	for i, o := range outcomes {
		if o.err != nil {
			// Log and continue: the row is eliminated, the query goes on.
			e.logger.Debug("row dropped",
				"row", i,
				"error", o.err,
			)
			res.Dropped++
			continue
		}
		if o.keep {
			out = append(out, o.sol)
		}
	}
	return out
}

func allParallelisable(exprs []expr.Expr) bool {
	for _, x := range exprs {
		if !x.CanParallelise() {
			return false
		}
	}
	return true
}

func bindRow(b Binding, sol expr.MapSolution, ctx *expr.Context) (expr.MapSolution, bool, error) {
	if v, ok := sol[b.Var]; ok && v != nil {
		return nil, false, fmt.Errorf("BIND: variable ?%s is already bound", b.Var)
	}
	v, err := b.Expr.Evaluate(sol, ctx)
	if err != nil {
		return nil, false, err
	}
	out := make(expr.MapSolution, len(sol)+1)
	for k, x := range sol {
		out[k] = x
	}
	out[b.Var] = v
	return out, true, nil
}

func filterRow(filters []expr.Expr, sol expr.MapSolution, ctx *expr.Context) (expr.MapSolution, bool, error) {
	for _, f := range filters {
		v, err := f.Evaluate(sol, ctx)
		if err != nil {
			return nil, false, err
		}
		ok, err := EffectiveBoolean(v)
		if err != nil {
			return nil, false, err
		}
		if !ok {
			return nil, false, nil
		}
	}
	return sol, true, nil
}

// EffectiveBoolean computes the effective boolean value of v: booleans as
// is, numerics true unless zero or NaN, strings true unless empty. Any other
// value is a TYPE_ERROR.
func EffectiveBoolean(v ir.Value) (bool, error) {
	if v == nil {
		return false, ir.NewTypeError("no effective boolean value for an unbound value")
	}
	switch x := v.(type) {
	case ir.Boolean:
		return bool(x), nil
	case ir.String:
		return x.Value != "", nil
	}
	if v.NumericType() != ir.NotNumeric {
		d, err := ir.AsDouble(v)
		if err != nil {
			return false, err
		}
		return d != 0 && !math.IsNaN(d), nil
	}
	return false, ir.NewTypeError("no effective boolean value for %s", ir.FormatTerm(v))
}

func sortSolutions(sols []expr.MapSolution, cmp sorting.Comparator) {
	rows := make([]expr.Solution, len(sols))
	for i, s := range sols {
		rows[i] = s
	}
	sorting.Sort(rows, cmp)
	for i, r := range rows {
		sols[i] = r.(expr.MapSolution)
	}
}

// namedVariables returns the bound variable names of sols, excluding blank
// node bindings, sorted.
func namedVariables(sols []expr.MapSolution) []string {
	seen := map[string]bool{}
	var names []string
	for _, s := range sols {
		for k := range s {
			if !seen[k] && !strings.HasPrefix(k, "_:") {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	slices.Sort(names)
	return names
}

func project(sols []expr.MapSolution, vars []string) []expr.MapSolution {
	out := make([]expr.MapSolution, len(sols))
	for i, s := range sols {
		row := make(expr.MapSolution, len(vars))
		for _, v := range vars {
			if x, ok := s[v]; ok && x != nil {
				row[v] = x
			}
		}
		out[i] = row
	}
	return out
}

// distinct keeps the first of every group of identical rows.
func distinct(sols []expr.MapSolution) ([]expr.MapSolution, error) {
	seen := make(map[string]bool, len(sols))
	out := make([]expr.MapSolution, 0, len(sols))
	for _, s := range sols {
		h, err := ir.SolutionHash(s)
		if err != nil {
			return nil, fmt.Errorf("distinct: %w", err)
		}
		if seen[h] {
			continue
		}
		seen[h] = true
		out = append(out, s)
	}
	return out, nil
}

// slice applies OFFSET then LIMIT; negative values are unset.
func slice(sols []expr.MapSolution, offset, limit int) []expr.MapSolution {
	if offset > 0 {
		if offset >= len(sols) {
			return []expr.MapSolution{}
		}
		sols = sols[offset:]
	}
	if limit >= 0 && limit < len(sols) {
		sols = sols[:limit]
	}
	return sols
}

// join returns every merge of a compatible pair from left and right.
func join(left, right []expr.MapSolution) []expr.MapSolution {
	out := []expr.MapSolution{}
	for _, l := range left {
		for _, r := range right {
			if compatible(l, r) {
				out = append(out, merge(l, r))
			}
		}
	}
	return out
}
