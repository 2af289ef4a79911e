// Package harness provides a conformance testing framework for expression
// evaluation and template expansion.
//
// A scenario is a YAML file naming CUE function libraries, a small graph
// and a list of queries with expected outcomes:
//
//	name: friend_ages
//	description: template calls expand into the caller's pattern
//	libraries: [libraries/people.cue]
//	prefixes: {ex: "http://example.org/", fn: "http://example.org/fn#"}
//	data:
//	  - [ex:alice, ex:age, "30"]
//	queries:
//	  - name: ages
//	    where:
//	      - [_:c, rdf:type, fn:ageOf]
//	      - [_:c, sp:arg1, ex:alice]
//	      - [_:c, sp:arg2, "?age"]
//	    select: [age]
//	    expect:
//	      rows: [{age: "30"}]
//
// Run executes a scenario end to end: libraries are compiled, written to an
// in-memory catalog, resolved through the import registry and handed to
// the engine. Clocks and temporary variable names are deterministic, so
// RunWithGolden can compare the observed steps byte for byte against
// testdata/golden.
//
// The harness checks observable query results. Plans and timings are not
// part of the golden output.
package harness
