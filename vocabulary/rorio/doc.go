// Package rorio provides the ontology vocabulary used to describe research
// organizations.
//
// Terms are reused from OBO library ontologies rather than minted:
//
//	Term         → IRI
//	organization → OBI:0000245
//	city         → ENVO:00000856
//	part of      → BFO:0000050 (inverse: has part, BFO:0000051)
//	preceded by  → BFO:0000062 (inverse: precedes, BFO:0000063)
//	located in   → RO:0001025
//	see also     → rdfs:seeAlso
//	synonym      → oboInOwl:hasExactSynonym
//	xref         → oboInOwl:hasDbXref
//
// # Semstreams Integration
//
// Dotted predicates (rorio.org.label, rorio.relation.part_of, ...) are
// registered in init() with vocabulary.Register and carry their standard IRI
// through vocabulary.WithIRI, so GetPredicateIRI resolves them the same way
// the rest of the semstreams tooling does.
//
// # CURIEs
//
// Compress and Expand convert between IRIs and the CURIEs used by the OBO
// flat file and functional syntax serializations:
//
//	rorio.Compress("http://purl.obolibrary.org/obo/BFO_0000050") // "BFO:0000050"
//	rorio.Expand("ror:02mhbdp94")                              // "https://ror.org/02mhbdp94"
package rorio
