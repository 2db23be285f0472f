package export

import (
	"encoding/json"
	"errors"
	"io"

	"github.com/c360studio/rorio/ontology"
	"github.com/c360studio/rorio/vocabulary/rorio"
)

// OBO Graph node types and the subclass edge predicate.
const (
	graphNodeClass      = "CLASS"
	graphNodeIndividual = "INDIVIDUAL"
	graphNodeProperty   = "PROPERTY"
	graphPredIsA        = "is_a"
)

type graphDocument struct {
	Graphs []graphBody `json:"graphs"`
}

type graphBody struct {
	ID    string      `json:"id"`
	Meta  *graphMeta  `json:"meta,omitempty"`
	Nodes []graphNode `json:"nodes"`
	Edges []graphEdge `json:"edges"`
}

type graphMeta struct {
	Synonyms            []graphSynonym       `json:"synonyms,omitempty"`
	Xrefs               []graphXref          `json:"xrefs,omitempty"`
	BasicPropertyValues []graphPropertyValue `json:"basicPropertyValues,omitempty"`
	Version             string               `json:"version,omitempty"`
}

type graphNode struct {
	ID           string     `json:"id"`
	Label        string     `json:"lbl,omitempty"`
	Type         string     `json:"type,omitempty"`
	PropertyType string     `json:"propertyType,omitempty"`
	Meta         *graphMeta `json:"meta,omitempty"`
}

type graphEdge struct {
	Sub  string `json:"sub"`
	Pred string `json:"pred"`
	Obj  string `json:"obj"`
}

type graphSynonym struct {
	Pred string `json:"pred"`
	Val  string `json:"val"`
}

type graphXref struct {
	Val string `json:"val"`
}

type graphPropertyValue struct {
	Pred string `json:"pred"`
	Val  string `json:"val"`
}

func writeGraphJSON(w io.Writer, ont *ontology.Ontology) error {
	g := graphBody{
		ID:    ont.IRI,
		Nodes: make([]graphNode, 0, len(ont.Classes)+len(rorio.Relations)+len(ont.Individuals)),
		Edges: make([]graphEdge, 0, len(ont.Edges)+len(ont.Individuals)),
	}

	meta := &graphMeta{Version: ont.Version}
	for _, a := range ont.Header {
		meta.BasicPropertyValues = append(meta.BasicPropertyValues, graphPropertyValue{Pred: a.Property, Val: a.Value})
	}
	g.Meta = meta

	for _, c := range ont.Classes {
		g.Nodes = append(g.Nodes, graphNode{ID: c.IRI, Label: c.Label, Type: graphNodeClass})
		for _, super := range c.SubClassOf {
			g.Edges = append(g.Edges, graphEdge{Sub: c.IRI, Pred: graphPredIsA, Obj: super})
		}
	}

	for _, rel := range rorio.Relations {
		node := graphNode{ID: rel.IRI, Label: rel.Label, Type: graphNodeProperty, PropertyType: "OBJECT"}
		if isAnnotationRelation(rel.IRI) {
			node.PropertyType = "ANNOTATION"
		}
		if rel.Inverse != "" && rel.Canonical {
			node.Meta = &graphMeta{BasicPropertyValues: []graphPropertyValue{
				{Pred: rorio.OWLInverseOf, Val: rel.Inverse},
			}}
		}
		g.Nodes = append(g.Nodes, node)
	}

	for _, ind := range ont.Individuals {
		node := graphNode{ID: ind.IRI, Label: ind.Label, Type: graphNodeIndividual}
		if len(ind.Synonyms) > 0 || len(ind.Xrefs) > 0 {
			node.Meta = &graphMeta{}
			for _, syn := range ind.Synonyms {
				node.Meta.Synonyms = append(node.Meta.Synonyms, graphSynonym{Pred: "hasExactSynonym", Val: syn.Value})
			}
			for _, x := range ind.Xrefs {
				node.Meta.Xrefs = append(node.Meta.Xrefs, graphXref{Val: x})
			}
		}
		g.Nodes = append(g.Nodes, node)

		for _, t := range ind.Types {
			g.Edges = append(g.Edges, graphEdge{Sub: ind.IRI, Pred: rorio.RDFType, Obj: t})
		}
	}

	for _, e := range ont.Edges {
		g.Edges = append(g.Edges, graphEdge{Sub: e.Subject, Pred: e.Predicate, Obj: e.Object})
	}

	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	return enc.Encode(graphDocument{Graphs: []graphBody{g}})
}

func readGraphJSON(r io.Reader) (*Summary, error) {
	var doc graphDocument
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return nil, err
	}
	if len(doc.Graphs) == 0 {
		return nil, errors.New("document has no graphs")
	}
	g := doc.Graphs[0]

	s := newSummary()
	if g.Meta != nil {
		s.Version = g.Meta.Version
	}

	for _, n := range g.Nodes {
		if n.Type != graphNodeIndividual {
			continue
		}
		e := s.entry(n.ID)
		e.Label = n.Label
		if n.Meta == nil {
			continue
		}
		for _, syn := range n.Meta.Synonyms {
			e.Synonyms = append(e.Synonyms, syn.Val)
		}
		for _, x := range n.Meta.Xrefs {
			e.Xrefs = append(e.Xrefs, x.Val)
		}
	}

	for _, edge := range g.Edges {
		switch {
		case edge.Pred == rorio.RDFType:
			if e, ok := s.Entries[edge.Sub]; ok {
				e.Types = append(e.Types, edge.Obj)
			}
		case rorio.IsRelation(edge.Pred):
			s.Edges = append(s.Edges, ontology.Edge{Subject: edge.Sub, Predicate: edge.Pred, Object: edge.Obj})
		}
	}
	return s, nil
}
