// Package expr implements the evaluable expression tree.
//
// Every node implements Expr. Evaluation is a function of a Solution (the
// variable bindings of one result row) and a Context (operator and function
// registries, decimal context, query time). Nodes never return a nil value
// without an error.
//
// Node variants:
//   - Constant and Variable leaves
//   - Nullary built-ins: E, Pi, Now, Rand
//   - Unary: Negate, Cast, Hash
//   - N-ary arithmetic (multiply, add, subtract, divide) and binary Comparison
//   - FunctionCall for extension functions resolved by URI
//
// Arithmetic and comparison nodes do not hardcode an implementation. They
// resolve one through Context.Operators at evaluation time, so extensions can
// add operator semantics without touching the tree.
//
// Determinism: Now and Rand report IsDeterministic() == false. Any inner node
// with a non-deterministic or non-parallelisable child reports
// CanParallelise() == false. Operands of an n-ary node are evaluated
// concurrently only when Context.Parallel is set and every operand reports
// CanParallelise().
package expr
