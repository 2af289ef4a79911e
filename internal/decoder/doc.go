// Package decoder reconstructs calls from declarative triple groups.
//
// Two shapes are decoded:
//
// Search invocations use the pf:textMatch property function. The subject is
// the match variable or an RDF list (match score). The object is the search
// term or an RDF list (term threshold limit):
//
//	?doc pf:textMatch "query" .
//	_:m pf:textMatch _:q .
//	_:m rdf:first ?doc . _:m rdf:rest _:m1 . _:m1 rdf:first ?score . _:m1 rdf:rest rdf:nil .
//	_:q rdf:first "query" . _:q rdf:rest _:q1 . _:q1 rdf:first 0.5 . _:q1 rdf:rest rdf:nil .
//
// Template calls reference a function declared in a library. Arguments are
// given either as an RDF list under sp:arguments or with sp:arg1, sp:arg2...:
//
//	_:c rdf:type <http://ex/fn#label> .
//	_:c sp:arg1 ?x .
//
// Both shapes share one list walker (listIndex.walk) that decodes a list
// prefix of bounded length and rejects duplicate, dangling or unconsumed
// cells with MALFORMED_CALL.
//
// Decoding runs once per call site at compile time. A TemplateCall is expanded
// into a graph pattern by Expand; it cannot be evaluated directly.
package decoder
