package export

import (
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/c360studio/rorio/ontology"
	"github.com/c360studio/rorio/vocabulary/rorio"
)

// xmlNamespaces are the prefixes declared on the rdf:RDF element, longest
// namespace first.
var xmlNamespaces = []struct{ prefix, ns string }{
	{"oboInOwl", rorio.NamespaceOIO},
	{"obo", rorio.NamespaceOBO},
	{"dcterms", rorio.NamespaceDCTerms},
	{"rdfs", rorio.NamespaceRDFS},
	{"rdf", rorio.NamespaceRDF},
	{"owl", rorio.NamespaceOWL},
	{"xsd", rorio.NamespaceXSD},
}

// qname turns a property IRI into an element name. Properties outside the
// declared namespaces cannot be written as RDF/XML elements.
func qname(iri string) (string, error) {
	for _, n := range xmlNamespaces {
		local, ok := strings.CutPrefix(iri, n.ns)
		if ok && local != "" && !strings.ContainsAny(local, "/#:") {
			return n.prefix + ":" + local, nil
		}
	}
	return "", fmt.Errorf("no XML namespace for property %s", iri)
}

func xmlEscape(s string) string {
	var sb strings.Builder
	_ = xml.EscapeText(&sb, []byte(s))
	return sb.String()
}

func writeRDFXML(w io.Writer, ont *ontology.Ontology) error {
	p := newPrinter(w)

	p.line(`<?xml version="1.0" encoding="UTF-8"?>`)
	p.printf("<rdf:RDF xmlns=\"%s#\"\n", xmlEscape(ont.IRI))
	p.printf("     xml:base=\"%s\"", xmlEscape(ont.IRI))
	for _, n := range xmlNamespaces {
		p.printf("\n     xmlns:%s=\"%s\"", n.prefix, n.ns)
	}
	p.line(">")

	p.printf("    <owl:Ontology rdf:about=\"%s\">\n", xmlEscape(ont.IRI))
	for _, a := range ont.Header {
		name, err := qname(a.Property)
		if err != nil {
			return err
		}
		if a.IsIRI {
			p.printf("        <%s rdf:resource=\"%s\"/>\n", name, xmlEscape(a.Value))
		} else {
			p.printf("        <%s>%s</%s>\n", name, xmlEscape(a.Value), name)
		}
	}
	p.line("    </owl:Ontology>")
	p.line("")

	for _, prop := range annotationProperties(ont) {
		p.printf("    <owl:AnnotationProperty rdf:about=\"%s\"/>\n", xmlEscape(prop))
	}
	p.line("")

	for _, rel := range rorio.Relations {
		if isAnnotationRelation(rel.IRI) {
			continue
		}
		p.printf("    <owl:ObjectProperty rdf:about=\"%s\">\n", xmlEscape(rel.IRI))
		p.printf("        <rdfs:label>%s</rdfs:label>\n", xmlEscape(rel.Label))
		if rel.Inverse != "" && rel.Canonical {
			p.printf("        <owl:inverseOf rdf:resource=\"%s\"/>\n", xmlEscape(rel.Inverse))
		}
		p.line("    </owl:ObjectProperty>")
	}
	p.line("")

	for _, c := range ont.Classes {
		p.printf("    <owl:Class rdf:about=\"%s\">\n", xmlEscape(c.IRI))
		if c.Label != "" {
			p.printf("        <rdfs:label>%s</rdfs:label>\n", xmlEscape(c.Label))
		}
		for _, super := range c.SubClassOf {
			p.printf("        <rdfs:subClassOf rdf:resource=\"%s\"/>\n", xmlEscape(super))
		}
		p.line("    </owl:Class>")
	}
	p.line("")

	edges := edgesBySubject(ont)
	for _, ind := range ont.Individuals {
		p.printf("    <owl:NamedIndividual rdf:about=\"%s\">\n", xmlEscape(ind.IRI))
		for _, t := range ind.Types {
			p.printf("        <rdf:type rdf:resource=\"%s\"/>\n", xmlEscape(t))
		}
		p.printf("        <rdfs:label>%s</rdfs:label>\n", xmlEscape(ind.Label))
		for _, syn := range ind.Synonyms {
			p.printf("        <oboInOwl:hasExactSynonym>%s</oboInOwl:hasExactSynonym>\n", xmlEscape(syn.Value))
		}
		for _, x := range ind.Xrefs {
			p.printf("        <oboInOwl:hasDbXref>%s</oboInOwl:hasDbXref>\n", xmlEscape(x))
		}
		for _, e := range edges[ind.IRI] {
			name, err := qname(e.Predicate)
			if err != nil {
				return err
			}
			p.printf("        <%s rdf:resource=\"%s\"/>\n", name, xmlEscape(e.Object))
		}
		p.line("    </owl:NamedIndividual>")
	}

	p.line("</rdf:RDF>")
	return p.flush()
}

// xmlNode is a generic element captured while reading RDF/XML.
type xmlNode struct {
	XMLName xml.Name
	Attrs   []xml.Attr `xml:",any,attr"`
	Text    string     `xml:",chardata"`
	Nodes   []xmlNode  `xml:",any"`
}

func (n xmlNode) iri() string {
	return n.XMLName.Space + n.XMLName.Local
}

func (n xmlNode) rdfAttr(local string) string {
	for _, a := range n.Attrs {
		if a.Name.Space == rorio.NamespaceRDF && a.Name.Local == local {
			return a.Value
		}
	}
	return ""
}

func readRDFXML(r io.Reader) (*Summary, error) {
	dec := xml.NewDecoder(r)
	s := newSummary()
	depth := 0
	sawRoot := false

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if depth == 0 {
				if t.Name.Space != rorio.NamespaceRDF || t.Name.Local != "RDF" {
					return nil, fmt.Errorf("unexpected root element %s", t.Name.Local)
				}
				sawRoot = true
				depth++
				continue
			}
			var n xmlNode
			if err := dec.DecodeElement(&n, &t); err != nil {
				return nil, err
			}
			s.addXMLNode(n)
		case xml.EndElement:
			depth--
		}
	}

	if !sawRoot {
		return nil, errors.New("no rdf:RDF element")
	}
	return s, nil
}

func (s *Summary) addXMLNode(n xmlNode) {
	switch n.iri() {
	case rorio.OWLOntology:
		for _, c := range n.Nodes {
			if c.iri() == versionIRI {
				s.Version = c.Text
			}
		}
	case rorio.OWLNamedIndividual:
		subject := n.rdfAttr("about")
		if subject == "" {
			return
		}
		e := s.entry(subject)
		for _, c := range n.Nodes {
			prop := c.iri()
			switch prop {
			case rorio.RDFType:
				e.Types = append(e.Types, c.rdfAttr("resource"))
			case labelIRI:
				e.Label = c.Text
			case synonymIRI:
				e.Synonyms = append(e.Synonyms, c.Text)
			case xrefIRI:
				e.Xrefs = append(e.Xrefs, c.Text)
			default:
				if obj := c.rdfAttr("resource"); obj != "" && rorio.IsRelation(prop) {
					s.Edges = append(s.Edges, ontology.Edge{Subject: subject, Predicate: prop, Object: obj})
				}
			}
		}
	}
}
