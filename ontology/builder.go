package ontology

import (
	"log/slog"
	"sort"
	"strings"

	"github.com/c360studio/rorio/report"
	"github.com/c360studio/rorio/ror"
	"github.com/c360studio/rorio/vocabulary/rorio"
)

// Builder maps records to an Ontology.
type Builder struct {
	opts   Options
	logger *slog.Logger
}

// NewBuilder creates a builder. Zero-valued policy and profile fall back to
// InverseMaterialize and ProfileMinimal.
func NewBuilder(opts Options, logger *slog.Logger) *Builder {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.InversePolicy == "" {
		opts.InversePolicy = InverseMaterialize
	}
	if opts.Profile == "" {
		opts.Profile = ProfileMinimal
	}
	if opts.IRI == "" {
		opts.IRI = rorio.OntologyIRI
	}
	return &Builder{opts: opts, logger: logger}
}

// build holds the state of one Build call.
type build struct {
	opts      Options
	rep       *report.Report
	byIRI     map[string]*Individual
	edges     map[Edge]struct{}
	unhandled map[string]struct{}
}

// Build maps every record to exactly one organization individual, adds city
// individuals for geonames addresses, and emits relation edges whose targets
// exist in the same build. Problems are recorded in rep; Build never fails.
func (b *Builder) Build(records []ror.Record, rep *report.Report) *Ontology {
	if rep == nil {
		rep = report.New()
	}

	st := &build{
		opts:      b.opts,
		rep:       rep,
		byIRI:     make(map[string]*Individual, len(records)),
		edges:     make(map[Edge]struct{}),
		unhandled: make(map[string]struct{}),
	}

	// Declare every organization first so relations can point forward.
	unique := make([]ror.Record, 0, len(records))
	for _, rec := range records {
		iri := IndividualIRI(rec.ID)
		if _, dup := st.byIRI[iri]; dup {
			rep.Warn(report.KindDuplicateRecord, rec.ID, "identifier already mapped, record ignored")
			continue
		}
		st.byIRI[iri] = &Individual{
			IRI:   iri,
			Label: rec.Name,
			Types: []string{rorio.ClassOrganization},
		}
		unique = append(unique, rec)
	}

	for _, rec := range unique {
		ind := st.byIRI[IndividualIRI(rec.ID)]
		st.addSynonyms(ind, rec)
		st.addXrefs(ind, rec)
		st.addLocations(ind, rec)
		st.addRelationships(ind, rec)
	}

	ont := &Ontology{
		IRI:     b.opts.IRI,
		Version: b.opts.Version,
		Policy:  b.opts.InversePolicy,
		Profile: b.opts.Profile,
		Header:  b.opts.header(),
		Classes: b.opts.classes(),
		byIRI:   st.byIRI,
	}

	ont.Individuals = make([]*Individual, 0, len(st.byIRI))
	for _, ind := range st.byIRI {
		ont.Individuals = append(ont.Individuals, ind)
	}
	sort.Slice(ont.Individuals, func(i, j int) bool {
		return ont.Individuals[i].IRI < ont.Individuals[j].IRI
	})

	ont.Edges = make([]Edge, 0, len(st.edges))
	for e := range st.edges {
		ont.Edges = append(ont.Edges, e)
	}
	sort.Slice(ont.Edges, func(i, j int) bool { return ont.Edges[i].Less(ont.Edges[j]) })

	rep.Counters.Organizations = len(ont.Organizations())
	rep.Counters.Cities = len(ont.Cities())
	rep.Counters.Edges = len(ont.Edges)

	b.logger.Debug("Ontology built",
		"individuals", len(ont.Individuals),
		"edges", len(ont.Edges),
		"policy", string(ont.Policy))

	return ont
}

// IndividualIRI maps a registry identifier to its individual IRI.
func IndividualIRI(id string) string {
	return rorio.NamespaceROR + ror.LocalID(id)
}

// CityIRI maps a geonames identifier to its individual IRI.
func CityIRI(geonamesID string) string {
	return rorio.NamespaceGeonames + strings.TrimSpace(geonamesID)
}

func (st *build) addSynonyms(ind *Individual, rec ror.Record) {
	seen := map[string]struct{}{ind.Label: {}}
	for _, alt := range rec.AltNames {
		if _, dup := seen[alt.Value]; dup {
			continue
		}
		seen[alt.Value] = struct{}{}
		ind.Synonyms = append(ind.Synonyms, Synonym{Value: alt.Value, Kind: alt.Kind})
		st.rep.Counters.Synonyms++
	}
}

func (st *build) addXrefs(ind *Individual, rec ror.Record) {
	seen := make(map[string]struct{})
	for _, ext := range rec.ExternalIDs {
		prefix, ok := NormalizePrefix(ext.Prefix)
		if !ok {
			if _, reported := st.unhandled[ext.Prefix]; !reported {
				st.unhandled[ext.Prefix] = struct{}{}
				st.rep.Warn(report.KindUnhandledPrefix, rec.ID,
					"unhandled external id prefix %s (values: %s)", ext.Prefix, strings.Join(ext.All, ", "))
			}
			continue
		}
		for _, id := range ext.All {
			curie := XrefCURIE(prefix, id)
			if curie == "" {
				continue
			}
			if _, dup := seen[curie]; dup {
				continue
			}
			seen[curie] = struct{}{}
			ind.Xrefs = append(ind.Xrefs, curie)
			st.rep.Counters.Xrefs++
		}
	}
}

func (st *build) addLocations(ind *Individual, rec ror.Record) {
	for _, addr := range rec.Addresses {
		if addr.GeonamesID == "" {
			continue
		}
		if addr.City == "" {
			st.rep.Warn(report.KindBadName, rec.ID, "geonames city %s has no name, location skipped", addr.GeonamesID)
			continue
		}

		iri := CityIRI(addr.GeonamesID)
		city, ok := st.byIRI[iri]
		if !ok {
			city = &Individual{IRI: iri, Label: addr.City, Types: []string{rorio.ClassCity}}
			st.byIRI[iri] = city
		} else if !city.HasType(rorio.ClassCity) {
			st.rep.DropEdge(report.KindDanglingReference, rec.ID, "%s is not a city", iri)
			continue
		}
		st.addEdge(ind.IRI, rorio.PropLocatedIn, city.IRI)
	}
}

func (st *build) addRelationships(ind *Individual, rec ror.Record) {
	for _, rel := range rec.Relationships {
		predicate, ok := rorio.RelationByType[rel.Type]
		if !ok {
			st.rep.DropEdge(report.KindUnknownRelation, rec.ID, "unknown relationship type %q to %s", rel.Type, rel.ID)
			continue
		}

		target := IndividualIRI(rel.ID)
		if _, ok := st.byIRI[target]; !ok {
			st.rep.DropEdge(report.KindDanglingReference, rec.ID, "%s target %s is not in the dump", rel.Type, rel.ID)
			continue
		}
		st.addEdge(ind.IRI, predicate, target)
	}
}

// addEdge stores an edge under the run's inverse policy.
func (st *build) addEdge(subject, predicate, object string) {
	rel, _ := rorio.LookupRelation(predicate)

	if rel.Inverse == "" {
		st.edges[Edge{Subject: subject, Predicate: predicate, Object: object}] = struct{}{}
		return
	}

	switch st.opts.InversePolicy {
	case InverseDerive:
		if rel.Canonical {
			st.edges[Edge{Subject: subject, Predicate: predicate, Object: object}] = struct{}{}
		} else {
			st.edges[Edge{Subject: object, Predicate: rel.Inverse, Object: subject}] = struct{}{}
		}
	default:
		st.edges[Edge{Subject: subject, Predicate: predicate, Object: object}] = struct{}{}
		st.edges[Edge{Subject: object, Predicate: rel.Inverse, Object: subject}] = struct{}{}
	}
}
