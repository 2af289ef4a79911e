// Package imports tracks function libraries imported by other libraries.
//
// A Registry is an explicit, process-scoped object shared by everything that
// compiles queries against the same set of libraries. Libraries are keyed by
// base URI and reference counted: registering a library twice requires two
// unregistrations before it is dropped. All methods are safe for concurrent
// use.
package imports

import (
	"errors"
	"fmt"
	"slices"
	"sync"

	"github.com/roach88/spinql/internal/ir"
)

// ErrNoBaseURI is returned when a library without a base URI is registered.
var ErrNoBaseURI = errors.New("library has no base URI")

// Loader produces the library published at baseURI.
type Loader func(baseURI string) (ir.Library, error)

// Registry holds imported libraries.
type Registry struct {
	mu   sync.RWMutex
	refs map[string]int
	libs map[string]ir.Library
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		refs: make(map[string]int),
		libs: make(map[string]ir.Library),
	}
}

// Register adds lib, or replaces it and increments its reference count if a
// library with the same base URI is already registered.
func (r *Registry) Register(lib ir.Library) error {
	if lib.BaseURI == "" {
		return ErrNoBaseURI
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.refs[lib.BaseURI]++
	r.libs[lib.BaseURI] = lib
	return nil
}

// Unregister decrements the reference count of baseURI and drops the
// library when it reaches zero. Unknown URIs are ignored.
func (r *Registry) Unregister(baseURI string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n, ok := r.refs[baseURI]
	if !ok {
		return
	}
	if n <= 1 {
		delete(r.refs, baseURI)
		delete(r.libs, baseURI)
		return
	}
	r.refs[baseURI] = n - 1
}

// Get returns the library registered under baseURI.
func (r *Registry) Get(baseURI string) (ir.Library, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lib, ok := r.libs[baseURI]
	return lib, ok
}

// RefCount returns the reference count of baseURI.
func (r *Registry) RefCount(baseURI string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.refs[baseURI]
}

// Load returns the registered library for baseURI, loading and registering
// it with load if it is not present. A loaded library must carry the base
// URI it was requested under.
func (r *Registry) Load(baseURI string, load Loader) (ir.Library, error) {
	if lib, ok := r.Get(baseURI); ok {
		return lib, nil
	}
	lib, err := load(baseURI)
	if err != nil {
		return ir.Library{}, fmt.Errorf("load %s: %w", baseURI, err)
	}
	if lib.BaseURI != baseURI {
		return ir.Library{}, fmt.Errorf("load %s: library declares base URI %q", baseURI, lib.BaseURI)
	}
	if err := r.Register(lib); err != nil {
		return ir.Library{}, err
	}
	return lib, nil
}

// LoadAll registers root and, transitively, every library it imports.
// Each library is loaded at most once; import cycles are allowed.
func (r *Registry) LoadAll(root ir.Library, load Loader) error {
	if err := r.Register(root); err != nil {
		return err
	}
	seen := map[string]bool{root.BaseURI: true}
	queue := slices.Clone(root.Imports)
	for len(queue) > 0 {
		uri := queue[0]
		queue = queue[1:]
		if seen[uri] {
			continue
		}
		seen[uri] = true
		lib, err := r.Load(uri, load)
		if err != nil {
			return err
		}
		queue = append(queue, lib.Imports...)
	}
	return nil
}

// LookupFunction finds a function declaration in any registered library.
// When several libraries declare the same URI, the one with the smallest
// base URI wins.
func (r *Registry) LookupFunction(uri string) (ir.FunctionDecl, bool) {
	for _, base := range r.BaseURIs() {
		lib, ok := r.Get(base)
		if !ok {
			continue
		}
		if fn, ok := lib.Function(uri); ok {
			return fn, true
		}
	}
	return ir.FunctionDecl{}, false
}

// BaseURIs returns the registered base URIs, sorted.
func (r *Registry) BaseURIs() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	uris := make([]string, 0, len(r.libs))
	for uri := range r.libs {
		uris = append(uris, uri)
	}
	slices.Sort(uris)
	return uris
}
