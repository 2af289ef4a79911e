package compiler

import (
	"fmt"
	"slices"
	"strings"

	"github.com/roach88/spinql/internal/ir"
)

// CycleWarning describes a set of expression functions that call each
// other recursively. The expression language has no conditional, so such
// a call never terminates; Validate reports every cycle as an error.
type CycleWarning struct {
	Path    []string `json:"path"`    // cycle path: ["fn-a", "fn-b", "fn-a"]
	Message string   `json:"message"` // human-readable description
}

// AnalyzeCycles builds the call graph of the expression functions in libs
// and reports every strongly connected component with more than one node
// or a self-loop. A DAG returns an empty list.
func AnalyzeCycles(libs []ir.Library) []CycleWarning {
	graph := buildCallGraph(libs)
	if len(graph) == 0 {
		return []CycleWarning{}
	}

	warnings := []CycleWarning{}
	for _, scc := range tarjanSCC(graph) {
		if len(scc) > 1 || hasSelfLoop(scc[0], graph) {
			warnings = append(warnings, cycleSCCToWarning(scc, graph))
		}
	}
	return warnings
}

// callGraph maps a function URI to the URIs its expression calls.
type callGraph map[string][]string

func buildCallGraph(libs []ir.Library) callGraph {
	graph := make(callGraph)
	for _, lib := range libs {
		for _, fn := range lib.Functions {
			if fn.Expr == nil {
				continue
			}
			graph[fn.URI] = calledFunctions(*fn.Expr, nil)
		}
	}
	// Only edges between expression functions can recurse.
	for uri, callees := range graph {
		graph[uri] = slices.DeleteFunc(callees, func(c string) bool {
			_, ok := graph[c]
			return !ok
		})
	}
	return graph
}

func calledFunctions(spec ir.ExprSpec, acc []string) []string {
	if spec.Fn != "" && !slices.Contains(acc, spec.Fn) {
		acc = append(acc, spec.Fn)
	}
	for _, a := range spec.Args {
		acc = calledFunctions(a, acc)
	}
	return acc
}

func hasSelfLoop(node string, graph callGraph) bool {
	return slices.Contains(graph[node], node)
}

// tarjanSCC finds strongly connected components using Tarjan's algorithm.
// Nodes are visited in sorted order so the result is deterministic.
func tarjanSCC(graph callGraph) [][]string {
	var (
		index   = 0
		stack   []string
		indices = make(map[string]int)
		lowlink = make(map[string]int)
		onStack = make(map[string]bool)
		sccs    [][]string
	)

	var strongConnect func(string)
	strongConnect = func(v string) {
		indices[v] = index
		lowlink[v] = index
		index++
		stack = append(stack, v)
		onStack[v] = true

		for _, w := range graph[v] {
			if _, visited := indices[w]; !visited {
				strongConnect(w)
				lowlink[v] = min(lowlink[v], lowlink[w])
			} else if onStack[w] {
				lowlink[v] = min(lowlink[v], indices[w])
			}
		}

		if lowlink[v] == indices[v] {
			var scc []string
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w] = false
				scc = append(scc, w)
				if w == v {
					break
				}
			}
			slices.Sort(scc)
			sccs = append(sccs, scc)
		}
	}

	nodes := make([]string, 0, len(graph))
	for node := range graph {
		nodes = append(nodes, node)
	}
	slices.Sort(nodes)
	for _, node := range nodes {
		if _, visited := indices[node]; !visited {
			strongConnect(node)
		}
	}

	return sccs
}

func cycleSCCToWarning(scc []string, graph callGraph) CycleWarning {
	if len(scc) == 1 {
		return CycleWarning{
			Path:    []string{scc[0], scc[0]},
			Message: fmt.Sprintf("recursive function <%s> calls itself", scc[0]),
		}
	}

	path := reconstructCyclePath(scc, graph)
	return CycleWarning{
		Path:    path,
		Message: fmt.Sprintf("mutually recursive functions: %s", strings.Join(path, " -> ")),
	}
}

// reconstructCyclePath follows edges inside the SCC from its first node
// until the walk returns to it.
func reconstructCyclePath(scc []string, graph callGraph) []string {
	members := make(map[string]bool, len(scc))
	for _, node := range scc {
		members[node] = true
	}

	start := scc[0]
	current := start
	path := []string{current}
	visited := make(map[string]bool)

	for {
		visited[current] = true

		var next string
		for _, neighbor := range graph[current] {
			if members[neighbor] && (!visited[neighbor] || neighbor == start) {
				next = neighbor
				break
			}
		}
		if next == "" {
			break
		}
		path = append(path, next)
		if next == start {
			break
		}
		current = next
	}

	return path
}
