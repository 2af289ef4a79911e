// Package cast implements the XSD cast function family.
//
// All casts share one strict skeleton (To). The target-specific behavior is a
// strategy record holding an identity test, a strict lexical parser and a
// table of conversions from other datatypes:
//
//  1. A nil operand is a CAST_ERROR
//  2. Blank nodes and graph literals are unrepresentable; URIs are too, except
//     for the string target
//  3. A value already of the target type is returned unchanged
//  4. A literal without a datatype is parsed with the target's lexical grammar
//  5. A string-typed literal is parsed the same way; failure reports the
//     lexical form and the target
//  6. A datatype listed in the target's conversion table is converted
//  7. Any other datatype is a CAST_ERROR and is never reparsed
package cast
