package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/roach88/spinql/internal/ir"
)

// Scenario defines a conformance test scenario.
// A scenario loads function libraries and a small graph, runs a list of
// queries against it and checks each outcome.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names the golden file.
	Name string `yaml:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description"`

	// Libraries lists paths to CUE library files to compile and load.
	// Paths are relative to the scenario file location.
	Libraries []string `yaml:"libraries,omitempty"`

	// Prefixes are available to data, patterns and expressions.
	Prefixes map[string]string `yaml:"prefixes,omitempty"`

	// Data is the graph, one [subject, predicate, object] triple per entry
	// in term syntax.
	Data [][]string `yaml:"data"`

	// Queries run in order against the same graph.
	Queries []QueryStep `yaml:"queries"`
}

// QueryStep is one query with its expected outcome.
type QueryStep struct {
	Name string `yaml:"name"`

	// Where is the basic graph pattern. Call sites of template functions
	// are expanded before evaluation.
	Where [][]string `yaml:"where"`

	Bind     []BindStep    `yaml:"bind,omitempty"`
	Filter   []ir.ExprSpec `yaml:"filter,omitempty"`
	OrderBy  []ir.SortSpec `yaml:"order_by,omitempty"`
	Select   []string      `yaml:"select,omitempty"`
	Distinct bool          `yaml:"distinct,omitempty"`
	Limit    *int          `yaml:"limit,omitempty"`
	Offset   *int          `yaml:"offset,omitempty"`
	Expect   *ExpectClause `yaml:"expect,omitempty"`
}

// BindStep assigns the value of Expr to Var.
type BindStep struct {
	Var  string      `yaml:"var"`
	Expr ir.ExprSpec `yaml:"expr"`
}

// ExpectClause specifies the expected query outcome.
// Only the fields that are set are checked.
type ExpectClause struct {
	// Rows are the expected solutions, variable to term. A variable missing
	// from a row must be unbound.
	Rows []map[string]string `yaml:"rows,omitempty"`

	// Ordered requires Rows to match in order. Otherwise any order matches.
	Ordered bool `yaml:"ordered,omitempty"`

	// Count is the expected number of solutions.
	Count *int `yaml:"count,omitempty"`

	// Dropped is the expected number of rows eliminated by BIND or FILTER.
	Dropped *int `yaml:"dropped,omitempty"`

	// Error is the expected error code. The query must fail with it.
	Error string `yaml:"error,omitempty"`
}

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
//
// Library paths are resolved relative to the scenario file.
func LoadScenario(path string) (*Scenario, error) {
	return LoadScenarioWithBasePath(path, filepath.Dir(path))
}

// LoadScenarioWithBasePath reads and parses a scenario YAML file,
// resolving library paths relative to the provided base path.
func LoadScenarioWithBasePath(path, basePath string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}

	scenario, err := ParseScenario(data)
	if err != nil {
		return nil, err
	}

	for i, lib := range scenario.Libraries {
		if !filepath.IsAbs(lib) && basePath != "" {
			scenario.Libraries[i] = filepath.Join(basePath, lib)
		}
	}
	for _, lib := range scenario.Libraries {
		if _, err := os.Stat(lib); os.IsNotExist(err) {
			return nil, fmt.Errorf("invalid scenario: library file not found: %s", lib)
		}
	}

	return scenario, nil
}

// ParseScenario parses scenario YAML. Library paths are left as written.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict field validation catches typos like "filters:" vs "filter:".
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// validateScenario checks that required fields are present and valid.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}
	if s.Description == "" {
		return fmt.Errorf("description is required")
	}
	if len(s.Queries) == 0 {
		return fmt.Errorf("queries list is required and must be non-empty")
	}

	for i, triple := range s.Data {
		if len(triple) != 3 {
			return fmt.Errorf("data[%d]: expected [subject, predicate, object], got %d terms", i, len(triple))
		}
	}

	names := make(map[string]bool, len(s.Queries))
	for i, q := range s.Queries {
		if q.Name == "" {
			return fmt.Errorf("queries[%d]: name is required", i)
		}
		if names[q.Name] {
			return fmt.Errorf("queries[%d]: duplicate name %q", i, q.Name)
		}
		names[q.Name] = true

		if err := validateQuery(i, &q); err != nil {
			return err
		}
	}
	return nil
}

// validateQuery validates a single query step.
func validateQuery(index int, q *QueryStep) error {
	for j, triple := range q.Where {
		if len(triple) != 3 {
			return fmt.Errorf("queries[%d].where[%d]: expected [subject, predicate, object], got %d terms", index, j, len(triple))
		}
	}
	for j, b := range q.Bind {
		if b.Var == "" {
			return fmt.Errorf("queries[%d].bind[%d]: var is required", index, j)
		}
	}
	if q.Limit != nil && *q.Limit < 0 {
		return fmt.Errorf("queries[%d]: limit must be non-negative", index)
	}
	if q.Offset != nil && *q.Offset < 0 {
		return fmt.Errorf("queries[%d]: offset must be non-negative", index)
	}

	if e := q.Expect; e != nil {
		if e.Count != nil && *e.Count < 0 {
			return fmt.Errorf("queries[%d].expect: count must be non-negative", index)
		}
		if e.Error != "" && (len(e.Rows) > 0 || e.Count != nil || e.Dropped != nil) {
			return fmt.Errorf("queries[%d].expect: error excludes rows, count and dropped", index)
		}
		if e.Ordered && len(e.Rows) == 0 {
			return fmt.Errorf("queries[%d].expect: ordered requires rows", index)
		}
	}
	return nil
}
