// Package ir provides the value model and declaration IR for spinql.
//
// This package contains the typed scalar values produced by the node model,
// the XSD datatype vocabulary, the term syntax used by CUE libraries and YAML
// scenarios, the error kinds shared by every evaluation package, and the
// declaration types (FunctionDecl, Library, ExprSpec) that the compiler emits.
// All other internal packages import ir; ir imports nothing internal.
//
// Key design constraints:
//   - Value is a sealed interface; only the variants in value.go implement it
//   - Values are immutable once constructed (Decimal shares its *apd.Decimal)
//   - FromLiteral is the only lexical coercion that may fail; widening a
//     validated value to a higher numeric rank never fails
//   - Canonical JSON (canonical.go) is the only serialization used for
//     content-addressed fingerprints
package ir
