// Package ontology maps registry records to ontology individuals and
// relation edges.
package ontology

import (
	"sort"

	"github.com/c360studio/rorio/ror"
	"github.com/c360studio/rorio/vocabulary/rorio"
)

// Annotation is an ontology-level annotation. Values with IsIRI set are
// written as resource references, all others as plain literals.
type Annotation struct {
	Property string
	Value    string
	IsIRI    bool
}

// Class is a declared class.
type Class struct {
	IRI        string
	Label      string
	SubClassOf []string
}

// Synonym is an alternate name attached to an individual.
type Synonym struct {
	Value string
	Kind  ror.NameKind
}

// Individual is one organization or city.
type Individual struct {
	IRI      string
	Label    string
	Types    []string
	Synonyms []Synonym
	Xrefs    []string
}

// HasType reports whether the individual is asserted to be of the class.
func (i *Individual) HasType(class string) bool {
	for _, t := range i.Types {
		if t == class {
			return true
		}
	}
	return false
}

// Edge is a directed relation between two individuals.
type Edge struct {
	Subject   string
	Predicate string
	Object    string
}

// Less orders edges by subject, predicate, then object.
func (e Edge) Less(o Edge) bool {
	if e.Subject != o.Subject {
		return e.Subject < o.Subject
	}
	if e.Predicate != o.Predicate {
		return e.Predicate < o.Predicate
	}
	return e.Object < o.Object
}

// Ontology is the complete output of a build.
type Ontology struct {
	IRI     string
	Version string
	Policy  InversePolicy
	Profile Profile

	Header  []Annotation
	Classes []Class

	// Individuals are sorted by IRI.
	Individuals []*Individual

	// Edges are sorted with Edge.Less and contain no duplicates.
	Edges []Edge

	byIRI map[string]*Individual
}

// Individual returns the individual with the given IRI.
func (o *Ontology) Individual(iri string) (*Individual, bool) {
	ind, ok := o.byIRI[iri]
	return ind, ok
}

// Organizations returns the individuals typed as organizations, sorted by IRI.
func (o *Ontology) Organizations() []*Individual {
	return o.ofType(rorio.ClassOrganization)
}

// Cities returns the individuals typed as cities, sorted by IRI.
func (o *Ontology) Cities() []*Individual {
	return o.ofType(rorio.ClassCity)
}

func (o *Ontology) ofType(class string) []*Individual {
	var out []*Individual
	for _, ind := range o.Individuals {
		if ind.HasType(class) {
			out = append(out, ind)
		}
	}
	return out
}

// HasEdge reports whether the edge is present.
func (o *Ontology) HasEdge(subject, predicate, object string) bool {
	want := Edge{Subject: subject, Predicate: predicate, Object: object}
	i := sort.Search(len(o.Edges), func(i int) bool { return !o.Edges[i].Less(want) })
	return i < len(o.Edges) && o.Edges[i] == want
}

// EdgesFrom returns the edges whose subject is iri.
func (o *Ontology) EdgesFrom(iri string) []Edge {
	var out []Edge
	for _, e := range o.Edges {
		if e.Subject == iri {
			out = append(out, e)
		}
	}
	return out
}

// HeaderValue returns the first header annotation value for a property.
func (o *Ontology) HeaderValue(property string) string {
	for _, a := range o.Header {
		if a.Property == property {
			return a.Value
		}
	}
	return ""
}
