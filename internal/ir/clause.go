package ir

// ExprSpec is the declarative form of an expression, as written in CUE
// libraries and YAML scenarios. Exactly one of Var, Const, Op, Fn and Cast
// is set.
type ExprSpec struct {
	Var   string     `json:"var,omitempty" yaml:"var,omitempty"`     // variable name, without '?'
	Const string     `json:"const,omitempty" yaml:"const,omitempty"` // constant in term syntax
	Op    string     `json:"op,omitempty" yaml:"op,omitempty"`       // operator kind: add, multiply, lt, negate...
	Fn    string     `json:"fn,omitempty" yaml:"fn,omitempty"`       // built-in name or extension function URI
	Cast  string     `json:"cast,omitempty" yaml:"cast,omitempty"`   // target datatype, e.g. xsd:integer
	Args  []ExprSpec `json:"args,omitempty" yaml:"args,omitempty"`
}

// Canonical returns s as a canonical-JSON-ready object.
func (s ExprSpec) Canonical() map[string]any {
	obj := map[string]any{}
	switch {
	case s.Var != "":
		obj["var"] = s.Var
	case s.Const != "":
		obj["const"] = s.Const
	case s.Op != "":
		obj["op"] = s.Op
	case s.Fn != "":
		obj["fn"] = s.Fn
	case s.Cast != "":
		obj["cast"] = s.Cast
	}
	if len(s.Args) > 0 {
		args := make([]any, len(s.Args))
		for i, a := range s.Args {
			args[i] = a.Canonical()
		}
		obj["args"] = args
	}
	return obj
}

// SortSpec is one ORDER BY condition in declarative form.
type SortSpec struct {
	Expr       ExprSpec `json:"expr" yaml:"expr"`
	Descending bool     `json:"descending,omitempty" yaml:"descending,omitempty"`
}
