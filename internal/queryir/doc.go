// Package queryir provides the graph-pattern intermediate representation
// consumed and produced by the declarative call decoder.
//
// ARCHITECTURE:
//
// The pattern layer sits between the (external) query parser and executor
// and the decoder:
//
//	[parsed triples] -> [queryir.Group] -> [decoder] -> Expr | SearchPattern
//	                                                 -> Group | SubQuery (expansion)
//
// PATTERN ITEMS:
//
// Every position of a triple pattern is an Item:
//   - Variable: ?name, bound by solutions
//   - Blank: _:label, a non-distinguished variable; RDF-list cells are blanks
//   - Node: a concrete ir.Value (URI or literal)
//
// Item.Key() is the identity used to index list cells, so a blank and a
// variable of the same name never collide.
//
// SEALED INTERFACES:
//
// Pattern is a sealed interface using the marker method pattern. Only the
// types in this package (Group, SubQuery, SearchPattern) implement it, which
// keeps type switches in the engine exhaustive:
//
//	switch p := pattern.(type) {
//	case Group:
//	case SubQuery:
//	case SearchPattern:
//	}
//
// Validate reports structural problems (empty groups, projections naming
// variables the pattern never binds, negative limits) as warnings without
// rejecting the pattern.
package queryir
