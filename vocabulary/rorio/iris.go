package rorio

import "github.com/c360studio/semstreams/vocabulary"

// OntologyIRI is the IRI of the published ontology.
const OntologyIRI = "https://w3id.org/rorio/rorio.owl"

// Namespaces used by the ontology.
const (
	NamespaceROR      = "https://ror.org/"
	NamespaceGeonames = "https://www.geonames.org/"
	NamespaceOBO      = "http://purl.obolibrary.org/obo/"
	NamespaceOIO      = "http://www.geneontology.org/formats/oboInOwl#"
	NamespaceORCID    = "https://orcid.org/"
	NamespaceRDF      = "http://www.w3.org/1999/02/22-rdf-syntax-ns#"
	NamespaceRDFS     = "http://www.w3.org/2000/01/rdf-schema#"
	NamespaceOWL      = "http://www.w3.org/2002/07/owl#"
	NamespaceXSD      = "http://www.w3.org/2001/XMLSchema#"
	NamespaceDCTerms  = "http://purl.org/dc/terms/"
)

// Class IRIs.
const (
	// ClassOrganization is OBI:0000245 "organization".
	ClassOrganization = NamespaceOBO + "OBI_0000245"

	// ClassCity is ENVO:00000856 "city".
	ClassCity = NamespaceOBO + "ENVO_00000856"
)

// Object property IRIs.
const (
	// PropPartOf is BFO:0000050 "part of".
	PropPartOf = NamespaceOBO + "BFO_0000050"

	// PropHasPart is BFO:0000051 "has part", the inverse of PropPartOf.
	PropHasPart = NamespaceOBO + "BFO_0000051"

	// PropPrecededBy is BFO:0000062 "preceded by".
	PropPrecededBy = NamespaceOBO + "BFO_0000062"

	// PropPrecedes is BFO:0000063 "precedes", the inverse of PropPrecededBy.
	PropPrecedes = NamespaceOBO + "BFO_0000063"

	// PropLocatedIn is RO:0001025 "located in".
	PropLocatedIn = NamespaceOBO + "RO_0001025"

	// PropSeeAlso is rdfs:seeAlso, used for loosely related organizations.
	PropSeeAlso = vocabulary.RdfsSeeAlso
)

// Annotation property IRIs.
const (
	AnnLabel        = vocabulary.RdfsLabel
	AnnExactSynonym = NamespaceOIO + "hasExactSynonym"
	AnnDbXref       = NamespaceOIO + "hasDbXref"

	AnnTitle       = vocabulary.DcTitle
	AnnSource      = vocabulary.DcSource
	AnnCreator     = NamespaceDCTerms + "creator"
	AnnLicense     = NamespaceDCTerms + "license"
	AnnVersionInfo = NamespaceOWL + "versionInfo"
	AnnSeeAlso     = vocabulary.RdfsSeeAlso
)

// RDF/OWL terms used by the serializers.
const (
	RDFType             = NamespaceRDF + "type"
	OWLOntology         = NamespaceOWL + "Ontology"
	OWLClass            = NamespaceOWL + "Class"
	OWLObjectProperty   = NamespaceOWL + "ObjectProperty"
	OWLAnnotationProp   = NamespaceOWL + "AnnotationProperty"
	OWLNamedIndividual  = NamespaceOWL + "NamedIndividual"
	OWLInverseOf        = NamespaceOWL + "inverseOf"
	RDFSSubClassOf      = NamespaceRDFS + "subClassOf"
	LicenseCC0          = "https://creativecommons.org/publicdomain/zero/1.0/"
	DefaultProjectURL   = "https://github.com/cthoyt/rorio"
	DefaultCreatorORCID = NamespaceORCID + "0000-0003-4423-4370"
)
