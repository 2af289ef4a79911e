// Package operators implements the numeric operator engine: arithmetic and
// comparison operators resolved against the numeric promotion lattice.
//
// Every arithmetic operator follows the same algorithm:
//
//  1. An empty operand list or a nil operand is an ARGUMENT_ERROR
//  2. The effective type is the maximum rank over the operands
//     (Integer < Decimal < Float < Double); a non-numeric operand is a
//     TYPE_ERROR
//  3. Every operand is widened to the effective type
//  4. The operands are folded left to right, the first element being the
//     initial accumulator, so a single operand is returned unchanged
//  5. The result is tagged with the effective type
//
// Policies:
//   - Integer arithmetic is checked; overflow is an OVERFLOW_ERROR
//   - Integer division promotes to decimal
//   - Decimal and integer division by zero is an ARGUMENT_ERROR
//   - Decimal arithmetic runs under the caller's *apd.Context
//   - Float and double arithmetic follows IEEE 754 (NaN and Inf propagate)
//
// Operators are registered through a Builder and resolved through an
// immutable Registry. Candidates registered for the same kind are tried most
// recent first; the first whose CanApply accepts the operands wins, and the
// built-in default for the kind is the fallback.
package operators
