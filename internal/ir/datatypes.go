package ir

import "strings"

// Namespaces used by the value model and the decoder.
const (
	XSDNamespace = "http://www.w3.org/2001/XMLSchema#"
	RDFNamespace = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	PFNamespace  = "http://jena.hpl.hp.com/ARQ/property#"
	SPNamespace  = "http://spinrdf.org/sp#"
)

// XSD datatype URIs.
const (
	XSDString   = XSDNamespace + "string"
	XSDBoolean  = XSDNamespace + "boolean"
	XSDInteger  = XSDNamespace + "integer"
	XSDLong     = XSDNamespace + "long"
	XSDInt      = XSDNamespace + "int"
	XSDShort    = XSDNamespace + "short"
	XSDByte     = XSDNamespace + "byte"
	XSDDecimal  = XSDNamespace + "decimal"
	XSDFloat    = XSDNamespace + "float"
	XSDDouble   = XSDNamespace + "double"
	XSDDateTime = XSDNamespace + "dateTime"
	XSDDate     = XSDNamespace + "date"

	XSDNonNegativeInteger = XSDNamespace + "nonNegativeInteger"
	XSDPositiveInteger    = XSDNamespace + "positiveInteger"
	XSDNegativeInteger    = XSDNamespace + "negativeInteger"
	XSDNonPositiveInteger = XSDNamespace + "nonPositiveInteger"
	XSDUnsignedLong       = XSDNamespace + "unsignedLong"
	XSDUnsignedInt        = XSDNamespace + "unsignedInt"
)

// RDF vocabulary URIs.
const (
	RDFType       = RDFNamespace + "type"
	RDFFirst      = RDFNamespace + "first"
	RDFRest       = RDFNamespace + "rest"
	RDFNil        = RDFNamespace + "nil"
	RDFLangString = RDFNamespace + "langString"
	RDFXMLLiteral = RDFNamespace + "XMLLiteral"
)

// integerDatatypes are the derived XSD types that map onto the Integer rank.
var integerDatatypes = map[string]bool{
	XSDInteger:            true,
	XSDLong:               true,
	XSDInt:                true,
	XSDShort:              true,
	XSDByte:               true,
	XSDNonNegativeInteger: true,
	XSDPositiveInteger:    true,
	XSDNegativeInteger:    true,
	XSDNonPositiveInteger: true,
	XSDUnsignedLong:       true,
	XSDUnsignedInt:        true,
}

// IsIntegerDatatype reports whether dt is xsd:integer or one of its derived types.
func IsIntegerDatatype(dt string) bool {
	return integerDatatypes[dt]
}

// IsStringDatatype reports whether dt names a plain string type.
// An empty datatype is NOT a string datatype; callers treat it separately.
func IsStringDatatype(dt string) bool {
	return dt == XSDString || dt == RDFLangString
}

// DefaultPrefixes are available to every term parse without declaration.
var DefaultPrefixes = map[string]string{
	"xsd": XSDNamespace,
	"rdf": RDFNamespace,
	"pf":  PFNamespace,
	"sp":  SPNamespace,
}

// ExpandPrefixed expands a "prefix:local" name using prefixes and DefaultPrefixes.
// Returns false if the prefix is unknown.
func ExpandPrefixed(name string, prefixes map[string]string) (string, bool) {
	idx := strings.Index(name, ":")
	if idx < 0 {
		return "", false
	}
	prefix, local := name[:idx], name[idx+1:]
	if ns, ok := prefixes[prefix]; ok {
		return ns + local, true
	}
	if ns, ok := DefaultPrefixes[prefix]; ok {
		return ns + local, true
	}
	return "", false
}

// ShortName renders a URI using the xsd: or rdf: prefix when possible.
// Used for error messages only.
func ShortName(uri string) string {
	if strings.HasPrefix(uri, XSDNamespace) {
		return "xsd:" + strings.TrimPrefix(uri, XSDNamespace)
	}
	if strings.HasPrefix(uri, RDFNamespace) {
		return "rdf:" + strings.TrimPrefix(uri, RDFNamespace)
	}
	return "<" + uri + ">"
}
