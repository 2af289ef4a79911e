package ir

// Library represents a compiled library of extension functions.
type Library struct {
	BaseURI   string            `json:"base_uri"`
	Prefixes  map[string]string `json:"prefixes,omitempty"`
	Imports   []string          `json:"imports,omitempty"` // base URIs of libraries this one depends on
	Functions []FunctionDecl    `json:"functions"`
}

// Function returns the declaration for uri, if present.
func (l Library) Function(uri string) (FunctionDecl, bool) {
	for _, fn := range l.Functions {
		if fn.URI == uri {
			return fn, true
		}
	}
	return FunctionDecl{}, false
}

// FunctionDecl declares an extension function.
//
// Exactly one of Body and Expr is set:
//   - Body: a template function. Call sites expand into the body pattern.
//   - Expr: an expression function. Calls evaluate Expr with the formal
//     arguments bound as variables.
type FunctionDecl struct {
	URI           string        `json:"uri"`
	Arguments     []string      `json:"arguments"` // formal names, without '?'
	Result        string        `json:"result,omitempty"`
	Body          *TemplateBody `json:"body,omitempty"`
	Expr          *ExprSpec     `json:"expr,omitempty"`
	Deterministic bool          `json:"deterministic"`
}

// IsTemplate reports whether the function expands into a pattern.
func (f FunctionDecl) IsTemplate() bool {
	return f.Body != nil
}

func (f FunctionDecl) canonical() map[string]any {
	obj := map[string]any{
		"uri":           f.URI,
		"arguments":     f.Arguments,
		"result":        f.Result,
		"deterministic": f.Deterministic,
	}
	if f.Arguments == nil {
		obj["arguments"] = []string{}
	}
	if f.Body != nil {
		obj["body"] = f.Body.canonical()
	}
	if f.Expr != nil {
		obj["expr"] = f.Expr.Canonical()
	}
	return obj
}

// TemplateBody is the pattern a template function call expands into.
// Terms use the term syntax, with "?name" for variables.
type TemplateBody struct {
	Patterns []TripleSpec `json:"patterns"`
	Select   []string     `json:"select,omitempty"` // projected variables; first is the result unless Result is set
	OrderBy  []OrderSpec  `json:"order_by,omitempty"`
	Limit    *int         `json:"limit,omitempty"`
	Offset   *int         `json:"offset,omitempty"`
	Distinct bool         `json:"distinct,omitempty"`
}

// HasModifier reports whether the body carries a solution modifier.
func (b TemplateBody) HasModifier() bool {
	return len(b.OrderBy) > 0 || b.Limit != nil || b.Offset != nil || b.Distinct
}

func (b TemplateBody) canonical() map[string]any {
	patterns := make([]any, len(b.Patterns))
	for i, p := range b.Patterns {
		patterns[i] = []any{p.S, p.P, p.O}
	}
	order := make([]any, len(b.OrderBy))
	for i, o := range b.OrderBy {
		order[i] = map[string]any{"var": o.Var, "descending": o.Descending}
	}
	obj := map[string]any{
		"patterns": patterns,
		"select":   append([]string{}, b.Select...),
		"order_by": order,
		"distinct": b.Distinct,
	}
	if b.Limit != nil {
		obj["limit"] = *b.Limit
	}
	if b.Offset != nil {
		obj["offset"] = *b.Offset
	}
	return obj
}

// TripleSpec is a triple pattern written in term syntax.
type TripleSpec struct {
	S string `json:"s" yaml:"s"`
	P string `json:"p" yaml:"p"`
	O string `json:"o" yaml:"o"`
}

// OrderSpec is one ORDER BY key of a template body.
type OrderSpec struct {
	Var        string `json:"var" yaml:"var"`
	Descending bool   `json:"descending,omitempty" yaml:"descending,omitempty"`
}
