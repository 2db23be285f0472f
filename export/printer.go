package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/c360studio/rorio/ontology"
	"github.com/c360studio/rorio/vocabulary/rorio"
)

// Annotation properties read and written for individuals and the ontology
// version, resolved through the predicate registry.
var (
	labelIRI   = rorio.GetPredicateIRI(rorio.OrgLabel)
	synonymIRI = rorio.GetPredicateIRI(rorio.OrgSynonym)
	xrefIRI    = rorio.GetPredicateIRI(rorio.OrgXref)
	versionIRI = rorio.GetPredicateIRI(rorio.OntologyVersion)
)

// printer buffers output and keeps the first write error.
type printer struct {
	w   *bufio.Writer
	err error
}

func newPrinter(w io.Writer) *printer {
	return &printer{w: bufio.NewWriter(w)}
}

func (p *printer) printf(format string, args ...any) {
	if p.err != nil {
		return
	}
	_, p.err = fmt.Fprintf(p.w, format, args...)
}

func (p *printer) line(s string) {
	if p.err != nil {
		return
	}
	if _, p.err = p.w.WriteString(s); p.err == nil {
		p.err = p.w.WriteByte('\n')
	}
}

func (p *printer) flush() error {
	if p.err != nil {
		return p.err
	}
	return p.w.Flush()
}

// edgesBySubject groups the ontology edges by subject, keeping their order.
func edgesBySubject(ont *ontology.Ontology) map[string][]ontology.Edge {
	m := make(map[string][]ontology.Edge)
	for _, e := range ont.Edges {
		m[e.Subject] = append(m[e.Subject], e)
	}
	return m
}

// isAnnotationRelation reports whether a relation is written as an
// annotation between individuals rather than an object property assertion.
func isAnnotationRelation(iri string) bool {
	return iri == rorio.PropSeeAlso
}

// ontologyID returns the short ontology name used by OBO, e.g. "rorio".
func ontologyID(iri string) string {
	name := iri
	if i := strings.LastIndexAny(name, "/#"); i >= 0 {
		name = name[i+1:]
	}
	return strings.TrimSuffix(name, ".owl")
}

// annotationProperties lists the annotation properties an ontology uses, in
// declaration order.
func annotationProperties(ont *ontology.Ontology) []string {
	props := []string{labelIRI, synonymIRI, xrefIRI}
	seen := map[string]bool{labelIRI: true, synonymIRI: true, xrefIRI: true}
	for _, a := range ont.Header {
		if !seen[a.Property] {
			seen[a.Property] = true
			props = append(props, a.Property)
		}
	}
	return props
}
