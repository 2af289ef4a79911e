package engine

import "slices"

// expansionPath tracks the template functions being expanded on the current
// path of the expansion tree.
//
// Recursion occurs when a template body contains a call site that, directly
// or through other templates, calls the template again. Templates have no
// conditional, so any such expansion would never terminate.
//
// Two checks are applied on every push:
//   - Recursion: the URI is already on the path (A -> B -> A)
//   - Depth: the path is longer than the configured maximum
//     (A -> B -> C -> ... with distinct templates)
//
// Sibling call sites of the same template are not recursion: the URI is
// popped once its expansion is compiled.
type expansionPath struct {
	uris     []string
	maxDepth int
}

func newExpansionPath(maxDepth int) *expansionPath {
	return &expansionPath{maxDepth: maxDepth}
}

// push enters the expansion of uri.
func (p *expansionPath) push(uri string) error {
	if slices.Contains(p.uris, uri) {
		return NewRecursionError(p.uris, uri)
	}
	if p.maxDepth > 0 && len(p.uris)+1 > p.maxDepth {
		err := NewQuotaError("expansion depth", len(p.uris)+1, p.maxDepth)
		err.FunctionURI = uri
		return err
	}
	p.uris = append(p.uris, uri)
	return nil
}

// pop leaves the innermost expansion.
func (p *expansionPath) pop() {
	p.uris = p.uris[:len(p.uris)-1]
}

// depth returns the current nesting depth.
func (p *expansionPath) depth() int {
	return len(p.uris)
}
