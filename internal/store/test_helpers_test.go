package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/spinql/internal/ir"
)

// createTestStore creates a new store in a temporary directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestLibrary creates a library with one template and one expression
// function under base.
func createTestLibrary(base string) ir.Library {
	limit := 1
	return ir.Library{
		BaseURI:  base,
		Prefixes: map[string]string{"ex": base},
		Functions: []ir.FunctionDecl{
			{
				URI:       base + "ageOf",
				Arguments: []string{"person"},
				Result:    "age",
				Body: &ir.TemplateBody{
					Patterns: []ir.TripleSpec{{S: "?person", P: base + "age", O: "?age"}},
					Select:   []string{"age"},
					Limit:    &limit,
				},
				Deterministic: true,
			},
			{
				URI:       base + "double",
				Arguments: []string{"x"},
				Expr: &ir.ExprSpec{Op: "add", Args: []ir.ExprSpec{
					{Var: "x"},
					{Var: "x"},
				}},
				Deterministic: true,
			},
		},
	}
}
