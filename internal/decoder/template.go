package decoder

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/spinql/internal/expr"
	"github.com/roach88/spinql/internal/ir"
	"github.com/roach88/spinql/internal/queryir"
	"github.com/roach88/spinql/internal/stats"
)

// maxFreshAttempts bounds the search for a temporary name that does not
// collide with a declared one.
const maxFreshAttempts = 1000

// FunctionLookup resolves function declarations by URI.
type FunctionLookup interface {
	LookupFunction(uri string) (ir.FunctionDecl, bool)
}

// TemplateCall is a call to a template function. It implements expr.Expr
// so it can sit in an expression tree, but it is expanded into a graph
// pattern rather than evaluated.
type TemplateCall struct {
	Decl      ir.FunctionDecl
	Arguments []expr.Expr
}

// NewTemplateCall creates a call of decl with the given actual arguments.
func NewTemplateCall(decl ir.FunctionDecl, args ...expr.Expr) *TemplateCall {
	return &TemplateCall{Decl: decl, Arguments: args}
}

func (c *TemplateCall) Functor() string { return c.Decl.URI }
func (c *TemplateCall) Args() []expr.Expr { return c.Arguments }
func (c *TemplateCall) IsConstant() bool { return false }
func (c *TemplateCall) CanParallelise() bool { return false }

// Transform returns the call itself; template arguments are not rewritten.
func (c *TemplateCall) Transform(expr.Transformer) expr.Expr { return c }

func (c *TemplateCall) Variables() []string {
	var out []string
	for _, a := range c.Arguments {
		for _, v := range a.Variables() {
			if !slices.Contains(out, v) {
				out = append(out, v)
			}
		}
	}
	return out
}

func (c *TemplateCall) IsDeterministic() bool {
	if !c.Decl.Deterministic {
		return false
	}
	for _, a := range c.Arguments {
		if !a.IsDeterministic() {
			return false
		}
	}
	return true
}

func (c *TemplateCall) Copy() expr.Expr {
	args := make([]expr.Expr, len(c.Arguments))
	for i, a := range c.Arguments {
		args[i] = a.Copy()
	}
	return &TemplateCall{Decl: c.Decl, Arguments: args}
}

func (c *TemplateCall) Spec() ir.ExprSpec {
	spec := ir.ExprSpec{Fn: c.Decl.URI}
	for _, a := range c.Arguments {
		spec.Args = append(spec.Args, a.Spec())
	}
	return spec
}

func (c *TemplateCall) String() string {
	parts := make([]string, len(c.Arguments))
	for i, a := range c.Arguments {
		parts[i] = a.String()
	}
	return "<" + c.Decl.URI + ">(" + strings.Join(parts, ", ") + ")"
}

// Evaluate always fails: a template call must be expanded first.
func (c *TemplateCall) Evaluate(expr.Solution, *expr.Context) (ir.Value, error) {
	return nil, &ir.Error{
		Code:    ir.ErrCodeUnsupportedOperator,
		Message: "template calls are expanded, not evaluated",
		Target:  c.Decl.URI,
	}
}

// Expansion is the instantiated body of a template call.
type Expansion struct {
	// Pattern is a queryir.SubQuery when the body has a solution modifier,
	// otherwise the bare queryir.Group.
	Pattern queryir.Pattern

	// Result is the output variable, taken from the instantiated projection.
	// Empty when the projection binds no variable.
	Result string

	// Bindings maps each bound formal argument to its actual item.
	Bindings map[string]queryir.Item

	// Temporaries maps each unbound template variable to its fresh name.
	Temporaries map[string]string
}

// Expand binds the formal arguments and instantiates the body.
//
// A variable actual binds the formal by name, a constant actual by value.
// Any other actual is UNSUPPORTED_ARGUMENT. Formals without an actual and
// all other template variables are renamed to fresh temporaries that never
// collide with a declared, template or actual variable name.
func (c *TemplateCall) Expand(opts ...Option) (Expansion, error) {
	cfg := newConfig(opts)
	defer cfg.timer(stats.LabelExpansion, c.Decl.URI)()

	body := c.Decl.Body
	if body == nil {
		return Expansion{}, ir.NewUnsupportedOperatorError(c.Decl.URI, len(c.Arguments))
	}
	if len(c.Arguments) > len(c.Decl.Arguments) {
		return Expansion{}, ir.NewArgumentError("<%s>: %d arguments given, %d declared",
			c.Decl.URI, len(c.Arguments), len(c.Decl.Arguments))
	}

	exp := Expansion{
		Bindings:    make(map[string]queryir.Item, len(c.Arguments)),
		Temporaries: make(map[string]string),
	}
	for i, arg := range c.Arguments {
		item, err := bindable(arg)
		if err != nil {
			return Expansion{}, fmt.Errorf("<%s> argument %d: %w", c.Decl.URI, i+1, err)
		}
		exp.Bindings[c.Decl.Arguments[i]] = item
	}

	where := make([]queryir.TriplePattern, 0, len(body.Patterns))
	for i, spec := range body.Patterns {
		tp, err := queryir.ParseTriple(spec, nil)
		if err != nil {
			return Expansion{}, fmt.Errorf("<%s> body pattern %d: %w", c.Decl.URI, i, err)
		}
		where = append(where, tp)
	}

	reserved := reservedNames(c, body, where)
	resolve := func(name string) (queryir.Item, error) {
		if item, ok := exp.Bindings[name]; ok {
			return item, nil
		}
		if tmp, ok := exp.Temporaries[name]; ok {
			return queryir.Var(tmp), nil
		}
		for range maxFreshAttempts {
			tmp := cfg.tempVars.Next()
			if !reserved[tmp] {
				reserved[tmp] = true
				exp.Temporaries[name] = tmp
				return queryir.Var(tmp), nil
			}
		}
		return queryir.Item{}, fmt.Errorf("<%s>: no fresh name for ?%s", c.Decl.URI, name)
	}

	group := queryir.Group{Triples: make([]queryir.TriplePattern, len(where))}
	for i, tp := range where {
		items := tp.Items()
		for j, item := range items {
			if !item.IsVariable() {
				continue
			}
			bound, err := resolve(item.Name)
			if err != nil {
				return Expansion{}, err
			}
			items[j] = bound
		}
		group.Triples[i] = queryir.Triple(items[0], items[1], items[2])
	}

	var selected []string
	for _, name := range body.Select {
		item, err := resolve(name)
		if err != nil {
			return Expansion{}, err
		}
		if item.IsVariable() && !slices.Contains(selected, item.Name) {
			selected = append(selected, item.Name)
		}
	}
	if len(body.Select) == 0 {
		selected = group.Variables()
	}

	exp.Result = resultVariable(c.Decl.Result, selected, exp)

	if !body.HasModifier() {
		exp.Pattern = group
		cfg.logger.Debug("template expanded", "uri", c.Decl.URI, "result", exp.Result, "pattern", "group")
		return exp, nil
	}

	q := queryir.SubQuery{
		Where:    group,
		Select:   selected,
		Limit:    -1,
		Offset:   -1,
		Distinct: body.Distinct,
	}
	if body.Limit != nil {
		q.Limit = *body.Limit
	}
	if body.Offset != nil {
		q.Offset = *body.Offset
	}
	for _, o := range body.OrderBy {
		item, err := resolve(o.Var)
		if err != nil {
			return Expansion{}, err
		}
		if item.IsVariable() {
			q.OrderBy = append(q.OrderBy, queryir.OrderKey{Var: item.Name, Descending: o.Descending})
		}
	}
	exp.Pattern = q
	cfg.logger.Debug("template expanded", "uri", c.Decl.URI, "result", exp.Result, "pattern", "subquery")
	return exp, nil
}

// bindable converts an actual argument to the item bound to its formal.
func bindable(arg expr.Expr) (queryir.Item, error) {
	switch a := arg.(type) {
	case *expr.Variable:
		return queryir.Var(a.Name), nil
	case *expr.Constant:
		if a.Value == nil {
			return queryir.Item{}, ir.NewUnsupportedArgumentError("constant argument has no value")
		}
		return queryir.NodeItem(a.Value), nil
	}
	return queryir.Item{}, ir.NewUnsupportedArgumentError("%s is not a variable or constant", arg)
}

// reservedNames collects every name a temporary must not take.
func reservedNames(c *TemplateCall, body *ir.TemplateBody, where []queryir.TriplePattern) map[string]bool {
	reserved := make(map[string]bool)
	for _, name := range c.Decl.Arguments {
		reserved[name] = true
	}
	for _, name := range queryir.Group{Triples: where}.Variables() {
		reserved[name] = true
	}
	for _, name := range body.Select {
		reserved[name] = true
	}
	for _, o := range body.OrderBy {
		reserved[o.Var] = true
	}
	if c.Decl.Result != "" {
		reserved[c.Decl.Result] = true
	}
	for _, a := range c.Arguments {
		for _, name := range a.Variables() {
			reserved[name] = true
		}
	}
	return reserved
}

// resultVariable picks the declared result when it survives instantiation
// as a projected variable, and the first projected variable otherwise.
func resultVariable(declared string, selected []string, exp Expansion) string {
	if declared != "" {
		name := declared
		if item, ok := exp.Bindings[declared]; ok {
			name = item.Name
		} else if tmp, ok := exp.Temporaries[declared]; ok {
			name = tmp
		}
		if slices.Contains(selected, name) {
			return name
		}
	}
	if len(selected) > 0 {
		return selected[0]
	}
	return ""
}
