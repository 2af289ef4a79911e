// Package engine is the reference solution driver.
//
// The engine takes a where clause, resolves its call sites, matches it
// against an in-memory Graph and then applies the solution modifiers:
//
//  1. Compile: call-shaped triples are decoded. Template calls are expanded
//     (recursively) and search invocations become search steps.
//  2. Match: basic triple patterns are joined in declaration order. Nested
//     sub-queries are evaluated on their own and joined by shared variables.
//  3. Extend and filter: BIND expressions, then FILTER expressions.
//  4. Order, project, deduplicate, slice.
//
// ERROR HANDLING:
//
// A row whose BIND or FILTER evaluation fails is dropped and logged, and
// processing continues with the next row. Compile errors (malformed call
// sites, recursive templates) and quota violations abort the query.
//
// TERMINATION:
//
// Expansion of a template that is already being expanded on the current
// path is a RECURSIVE_EXPANSION error. Expansion depth and the number of
// intermediate solutions are bounded (WithMaxDepth, WithMaxSolutions).
//
// Results are deterministic: the graph preserves insertion order, joins are
// nested loops in declaration order and sorting is stable.
package engine
