package rorio

import "strings"

// Prefix binds a CURIE prefix to its namespace.
type Prefix struct {
	Name      string
	Namespace string
}

// Prefixes are the non-OBO prefixes used when writing CURIEs, longest
// namespace first so compression picks the most specific match.
var Prefixes = []Prefix{
	{Name: "oboInOwl", Namespace: NamespaceOIO},
	{Name: "geonames", Namespace: NamespaceGeonames},
	{Name: "dcterms", Namespace: NamespaceDCTerms},
	{Name: "orcid", Namespace: NamespaceORCID},
	{Name: "rdfs", Namespace: NamespaceRDFS},
	{Name: "rdf", Namespace: NamespaceRDF},
	{Name: "owl", Namespace: NamespaceOWL},
	{Name: "xsd", Namespace: NamespaceXSD},
	{Name: "ror", Namespace: NamespaceROR},
}

// Compress turns an IRI into a CURIE. OBO library IRIs become PREFIX:LOCAL
// (BFO_0000050 -> BFO:0000050). IRIs outside every known namespace are
// returned unchanged.
func Compress(iri string) string {
	if strings.HasPrefix(iri, NamespaceOBO) {
		local := strings.TrimPrefix(iri, NamespaceOBO)
		if i := strings.Index(local, "_"); i > 0 {
			return local[:i] + ":" + local[i+1:]
		}
		return iri
	}
	for _, p := range Prefixes {
		if strings.HasPrefix(iri, p.Namespace) {
			return p.Name + ":" + strings.TrimPrefix(iri, p.Namespace)
		}
	}
	return iri
}

// Expand is the inverse of Compress. Absolute IRIs are returned unchanged.
func Expand(curie string) string {
	if strings.Contains(curie, "://") {
		return curie
	}
	i := strings.Index(curie, ":")
	if i <= 0 {
		return curie
	}
	prefix, local := curie[:i], curie[i+1:]
	for _, p := range Prefixes {
		if p.Name == prefix {
			return p.Namespace + local
		}
	}
	return NamespaceOBO + prefix + "_" + local
}
