package testutil

import (
	"fmt"
	"sync"
)

// FixedTempVars replays a fixed list of variable names, then falls back to
// fallback1, fallback2, ...
//
// This lets a test pin the temporaries a template expansion will use and
// compare expansions byte for byte. It implements decoder.TempVarGenerator.
//
// Thread-safety: safe for concurrent use via internal mutex.
type FixedTempVars struct {
	mu       sync.Mutex
	names    []string
	fallback string
	n        int
}

// NewFixedTempVars creates a generator returning names in order. An empty
// fallback prefix defaults to "v".
func NewFixedTempVars(fallback string, names ...string) *FixedTempVars {
	if fallback == "" {
		fallback = "v"
	}
	return &FixedTempVars{names: append([]string(nil), names...), fallback: fallback}
}

// Next returns the next name.
func (g *FixedTempVars) Next() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	if len(g.names) > 0 {
		name := g.names[0]
		g.names = g.names[1:]
		return name
	}
	g.n++
	return fmt.Sprintf("%s%d", g.fallback, g.n)
}
