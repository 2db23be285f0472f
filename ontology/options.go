package ontology

import (
	"fmt"
	"strings"

	"github.com/c360studio/semstreams/vocabulary/bfo"

	"github.com/c360studio/rorio/vocabulary/rorio"
)

// InversePolicy decides how mutually inverse relations are stored. One
// policy applies to the whole output set.
type InversePolicy string

const (
	// InverseMaterialize stores both directions of every inverse pair.
	InverseMaterialize InversePolicy = "materialize"

	// InverseDerive stores only the canonical direction (part of, preceded by)
	// and declares owl:inverseOf so consumers derive the other one.
	InverseDerive InversePolicy = "derive"
)

// ParseInversePolicy parses a policy name; empty means InverseMaterialize.
func ParseInversePolicy(s string) (InversePolicy, error) {
	switch InversePolicy(strings.ToLower(strings.TrimSpace(s))) {
	case "", InverseMaterialize:
		return InverseMaterialize, nil
	case InverseDerive:
		return InverseDerive, nil
	default:
		return "", fmt.Errorf("unknown inverse policy %q (must be 'materialize' or 'derive')", s)
	}
}

// Profile determines which upper-ontology axioms are added.
type Profile string

const (
	// ProfileMinimal declares only the OBO classes the individuals use.
	ProfileMinimal Profile = "minimal"

	// ProfileBFO also places the organization class under BFO independent continuant.
	ProfileBFO Profile = "bfo"
)

// ParseProfile parses a profile name; empty means ProfileMinimal.
func ParseProfile(s string) (Profile, error) {
	switch Profile(strings.ToLower(strings.TrimSpace(s))) {
	case "", ProfileMinimal:
		return ProfileMinimal, nil
	case ProfileBFO:
		return ProfileBFO, nil
	default:
		return "", fmt.Errorf("unknown profile %q (must be 'minimal' or 'bfo')", s)
	}
}

// Options configures a Builder.
type Options struct {
	IRI     string
	Version string
	Title   string
	Creator string
	License string
	Source  string
	SeeAlso string

	InversePolicy InversePolicy
	Profile       Profile
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		IRI:           rorio.OntologyIRI,
		Title:         "ROR in OWL",
		Creator:       rorio.DefaultCreatorORCID,
		License:       rorio.LicenseCC0,
		SeeAlso:       rorio.DefaultProjectURL,
		InversePolicy: InverseMaterialize,
		Profile:       ProfileMinimal,
	}
}

// header builds the ontology annotations carrying license and provenance.
func (o Options) header() []Annotation {
	var h []Annotation
	add := func(predicate, value string, isIRI bool) {
		if value != "" {
			h = append(h, Annotation{Property: rorio.GetPredicateIRI(predicate), Value: value, IsIRI: isIRI})
		}
	}
	add(rorio.OntologyTitle, o.Title, false)
	add(rorio.OntologyCreator, o.Creator, true)
	add(rorio.OntologyLicense, o.License, true)
	add(rorio.OntologySeeAlso, o.SeeAlso, true)
	add(rorio.OntologyVersion, o.Version, false)
	add(rorio.OntologySource, o.Source, true)
	return h
}

// classes returns the class declarations for the profile.
func (o Options) classes() []Class {
	org := Class{IRI: rorio.ClassOrganization, Label: rorio.ClassLabels[rorio.ClassOrganization]}
	city := Class{IRI: rorio.ClassCity, Label: rorio.ClassLabels[rorio.ClassCity]}

	if o.Profile != ProfileBFO {
		return []Class{org, city}
	}

	org.SubClassOf = []string{bfo.IndependentContinuant}
	return []Class{
		{IRI: bfo.IndependentContinuant, Label: "independent continuant"},
		org,
		city,
	}
}
