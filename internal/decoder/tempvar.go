package decoder

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// TempVarGenerator produces fresh variable names for unbound template
// variables.
type TempVarGenerator interface {
	Next() string
}

// UUIDTempVars generates names from time-sortable UUIDv7 values, so names
// are unique across calls and processes.
//
// Thread-safety: UUIDTempVars is stateless and safe for concurrent use.
type UUIDTempVars struct{}

// Next returns a name like "tmp_0190f5a4c1e87b3c9d2e4f6a8b0c1d2e".
func (UUIDTempVars) Next() string {
	return "tmp_" + strings.ReplaceAll(uuid.Must(uuid.NewV7()).String(), "-", "")
}

// SequentialTempVars returns prefix1, prefix2, ... for deterministic tests
// and golden traces.
//
// Thread-safety: safe for concurrent use via internal mutex.
type SequentialTempVars struct {
	mu     sync.Mutex
	prefix string
	n      int
}

// NewSequentialTempVars creates a sequential generator. An empty prefix
// defaults to "t".
func NewSequentialTempVars(prefix string) *SequentialTempVars {
	if prefix == "" {
		prefix = "t"
	}
	return &SequentialTempVars{prefix: prefix}
}

// Next returns the next name in sequence.
func (g *SequentialTempVars) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("%s%d", g.prefix, g.n)
}
