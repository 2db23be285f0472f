package export

import (
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"

	"github.com/c360studio/rorio/ontology"
)

// ErrMismatch is returned by Verify when a written file does not carry the
// same content as the ontology it was written from.
var ErrMismatch = errors.New("serialized ontology does not match")

// Entry is the content of one individual as seen by a reader.
type Entry struct {
	Label    string
	Types    []string
	Synonyms []string
	Xrefs    []string
}

// Summary is the format-independent content of a serialized ontology.
type Summary struct {
	Version string
	Entries map[string]*Entry
	Edges   []ontology.Edge
}

func newSummary() *Summary {
	return &Summary{Entries: make(map[string]*Entry)}
}

// entry returns the entry for iri, creating it if needed.
func (s *Summary) entry(iri string) *Entry {
	e, ok := s.Entries[iri]
	if !ok {
		e = &Entry{}
		s.Entries[iri] = e
	}
	return e
}

// normalize sorts every list so summaries compare independently of the
// order a format lists things in.
func (s *Summary) normalize() {
	for _, e := range s.Entries {
		sort.Strings(e.Types)
		sort.Strings(e.Synonyms)
		sort.Strings(e.Xrefs)
	}
	sort.Slice(s.Edges, func(i, j int) bool { return s.Edges[i].Less(s.Edges[j]) })
}

// SummaryOf returns the summary every format is expected to read back.
func SummaryOf(ont *ontology.Ontology) *Summary {
	s := newSummary()
	s.Version = ont.Version
	for _, ind := range ont.Individuals {
		e := s.entry(ind.IRI)
		e.Label = ind.Label
		e.Types = append(e.Types, ind.Types...)
		for _, syn := range ind.Synonyms {
			e.Synonyms = append(e.Synonyms, syn.Value)
		}
		e.Xrefs = append(e.Xrefs, ind.Xrefs...)
	}
	s.Edges = append(s.Edges, ont.Edges...)
	s.normalize()
	return s
}

// Diff lists the differences between two summaries, at most limit of them
// (0 means no limit). An empty result means they are equal.
func Diff(want, got *Summary, limit int) []string {
	var diffs []string
	add := func(format string, args ...any) bool {
		diffs = append(diffs, fmt.Sprintf(format, args...))
		return limit > 0 && len(diffs) >= limit
	}

	if want.Version != got.Version {
		if add("version: want %q, got %q", want.Version, got.Version) {
			return diffs
		}
	}

	iris := make([]string, 0, len(want.Entries))
	for iri := range want.Entries {
		iris = append(iris, iri)
	}
	sort.Strings(iris)

	for _, iri := range iris {
		w := want.Entries[iri]
		g, ok := got.Entries[iri]
		if !ok {
			if add("%s: missing", iri) {
				return diffs
			}
			continue
		}
		if w.Label != g.Label {
			if add("%s: label want %q, got %q", iri, w.Label, g.Label) {
				return diffs
			}
		}
		for _, c := range []struct {
			name      string
			want, got []string
		}{
			{"types", w.Types, g.Types},
			{"synonyms", w.Synonyms, g.Synonyms},
			{"xrefs", w.Xrefs, g.Xrefs},
		} {
			if !slices.Equal(c.want, c.got) {
				if add("%s: %s want [%s], got [%s]", iri, c.name,
					strings.Join(c.want, "|"), strings.Join(c.got, "|")) {
					return diffs
				}
			}
		}
	}

	extra := make([]string, 0)
	for iri := range got.Entries {
		if _, ok := want.Entries[iri]; !ok {
			extra = append(extra, iri)
		}
	}
	sort.Strings(extra)
	for _, iri := range extra {
		if add("%s: unexpected individual", iri) {
			return diffs
		}
	}

	wantEdges := edgeSet(want.Edges)
	gotEdges := edgeSet(got.Edges)
	for _, e := range want.Edges {
		if _, ok := gotEdges[e]; !ok {
			if add("edge missing: %s %s %s", e.Subject, e.Predicate, e.Object) {
				return diffs
			}
		}
	}
	for _, e := range got.Edges {
		if _, ok := wantEdges[e]; !ok {
			if add("unexpected edge: %s %s %s", e.Subject, e.Predicate, e.Object) {
				return diffs
			}
		}
	}
	if len(want.Edges) != len(got.Edges) && len(diffs) == 0 {
		add("edge count: want %d, got %d", len(want.Edges), len(got.Edges))
	}
	return diffs
}

// Verify compares the summaries read back from each format against want.
func Verify(want *Summary, got map[Format]*Summary) error {
	var errs []error
	for _, f := range Formats() {
		s, ok := got[f]
		if !ok {
			continue
		}
		if diffs := Diff(want, s, 5); len(diffs) > 0 {
			errs = append(errs, fmt.Errorf("%w: %s: %s", ErrMismatch, f, strings.Join(diffs, "; ")))
		}
	}
	return errors.Join(errs...)
}

func edgeSet(edges []ontology.Edge) map[ontology.Edge]struct{} {
	m := make(map[ontology.Edge]struct{}, len(edges))
	for _, e := range edges {
		m[e] = struct{}{}
	}
	return m
}
