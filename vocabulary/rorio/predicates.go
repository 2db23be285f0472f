package rorio

import (
	"github.com/c360studio/semstreams/vocabulary"

	"github.com/c360studio/rorio/ror"
)

// Organization predicates.
const (
	// OrgLabel is the primary name of an organization or city.
	OrgLabel = "rorio.org.label"

	// OrgSynonym is an alias, acronym or language label.
	OrgSynonym = "rorio.org.synonym"

	// OrgXref is a normalized external identifier CURIE.
	OrgXref = "rorio.org.xref"
)

// Relation predicates.
const (
	RelationPartOf     = "rorio.relation.part_of"
	RelationHasPart    = "rorio.relation.has_part"
	RelationLocatedIn  = "rorio.relation.located_in"
	RelationPrecededBy = "rorio.relation.preceded_by"
	RelationPrecedes   = "rorio.relation.precedes"
	RelationSeeAlso    = "rorio.relation.see_also"
)

// Ontology header predicates.
const (
	OntologyTitle   = "rorio.ontology.title"
	OntologyCreator = "rorio.ontology.creator"
	OntologyLicense = "rorio.ontology.license"
	OntologySource  = "rorio.ontology.source"
	OntologyVersion = "rorio.ontology.version"
	OntologySeeAlso = "rorio.ontology.see_also"
)

// Relation describes an object property the builder emits.
type Relation struct {
	// Predicate is the dotted predicate name.
	Predicate string

	// IRI is the property IRI, resolved through the predicate registry.
	IRI string

	// Label is the human readable property name.
	Label string

	// InversePredicate is the dotted predicate of the inverse, empty if none.
	InversePredicate string

	// Inverse is the IRI of the inverse property, resolved like IRI.
	Inverse string

	// Canonical is true for the direction kept when inverses are derived.
	Canonical bool
}

// relationIRIs are the standard IRIs registered for the relation predicates.
var relationIRIs = map[string]string{
	RelationPartOf:     PropPartOf,
	RelationHasPart:    PropHasPart,
	RelationLocatedIn:  PropLocatedIn,
	RelationPrecededBy: PropPrecededBy,
	RelationPrecedes:   PropPrecedes,
	RelationSeeAlso:    PropSeeAlso,
}

// Relations lists every object property in the ontology, in declaration
// order. IRI and Inverse are filled in from the registry at init.
var Relations = []Relation{
	{Predicate: RelationPartOf, Label: "part of", InversePredicate: RelationHasPart, Canonical: true},
	{Predicate: RelationHasPart, Label: "has part", InversePredicate: RelationPartOf},
	{Predicate: RelationLocatedIn, Label: "located in", Canonical: true},
	{Predicate: RelationPrecededBy, Label: "preceded by", InversePredicate: RelationPrecedes, Canonical: true},
	{Predicate: RelationPrecedes, Label: "precedes", InversePredicate: RelationPrecededBy},
	{Predicate: RelationSeeAlso, Label: "see also", Canonical: true},
}

// RelationByType maps registry relationship types to ontology relations.
var RelationByType = map[ror.RelationType]string{
	ror.RelationParent:      PropPartOf,
	ror.RelationChild:       PropHasPart,
	ror.RelationPredecessor: PropPrecededBy,
	ror.RelationSuccessor:   PropPrecedes,
	ror.RelationRelated:     PropSeeAlso,
}

// ClassLabels are the labels declared for the classes used.
var ClassLabels = map[string]string{
	ClassOrganization: "organization",
	ClassCity:         "city",
}

// LookupRelation returns the relation for a property IRI.
func LookupRelation(iri string) (Relation, bool) {
	for _, r := range Relations {
		if r.IRI == iri {
			return r, true
		}
	}
	return Relation{}, false
}

// IsRelation reports whether iri is one of the ontology's object properties.
func IsRelation(iri string) bool {
	_, ok := LookupRelation(iri)
	return ok
}

// GetPredicateIRI returns the standard IRI registered for a dotted predicate.
// Unregistered predicates fall back to the ontology IRI namespace.
func GetPredicateIRI(predicate string) string {
	if meta := vocabulary.GetPredicateMetadata(predicate); meta != nil && meta.StandardIRI != "" {
		return meta.StandardIRI
	}
	return OntologyIRI + "#" + predicate
}

func init() {
	vocabulary.Register(OrgLabel,
		vocabulary.WithDescription("Primary name of an organization or city"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(AnnLabel))

	vocabulary.Register(OrgSynonym,
		vocabulary.WithDescription("Alias, acronym or language label of an organization"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(AnnExactSynonym))

	vocabulary.Register(OrgXref,
		vocabulary.WithDescription("External identifier as a prefix:id CURIE"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(AnnDbXref))

	for _, r := range Relations {
		vocabulary.Register(r.Predicate,
			vocabulary.WithDescription("Organization relation: "+r.Label),
			vocabulary.WithDataType("entity_id"),
			vocabulary.WithIRI(relationIRIs[r.Predicate]))
	}
	for i, r := range Relations {
		Relations[i].IRI = GetPredicateIRI(r.Predicate)
		if r.InversePredicate != "" {
			Relations[i].Inverse = GetPredicateIRI(r.InversePredicate)
		}
	}

	vocabulary.Register(OntologyTitle,
		vocabulary.WithDescription("Ontology title"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(AnnTitle))

	vocabulary.Register(OntologyCreator,
		vocabulary.WithDescription("Ontology creator ORCID"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(AnnCreator))

	vocabulary.Register(OntologyLicense,
		vocabulary.WithDescription("License of the ontology content"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(AnnLicense))

	vocabulary.Register(OntologySource,
		vocabulary.WithDescription("Dataset the ontology was built from"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(AnnSource))

	vocabulary.Register(OntologyVersion,
		vocabulary.WithDescription("Ontology version, taken from the dump release"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(AnnVersionInfo))

	vocabulary.Register(OntologySeeAlso,
		vocabulary.WithDescription("Project page of the ontology"),
		vocabulary.WithDataType("string"),
		vocabulary.WithIRI(AnnSeeAlso))
}
