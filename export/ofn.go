package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"
	"unicode"

	"github.com/c360studio/rorio/ontology"
	"github.com/c360studio/rorio/vocabulary/rorio"
)

func ofnLiteral(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `"`, `\"`)
	return `"` + r.Replace(s) + `"`
}

func ofnIRI(iri string) string {
	return "<" + iri + ">"
}

func writeOFN(w io.Writer, ont *ontology.Ontology) error {
	p := newPrinter(w)

	p.printf("Prefix(:=<%s#>)\n", ont.IRI)
	p.printf("Prefix(owl:=<%s>)\n", rorio.NamespaceOWL)
	p.printf("Prefix(rdf:=<%s>)\n", rorio.NamespaceRDF)
	p.line("Prefix(xml:=<http://www.w3.org/XML/1998/namespace>)")
	p.printf("Prefix(xsd:=<%s>)\n", rorio.NamespaceXSD)
	p.printf("Prefix(rdfs:=<%s>)\n", rorio.NamespaceRDFS)
	p.line("")
	p.line("")
	p.printf("Ontology(%s\n", ofnIRI(ont.IRI))
	for _, a := range ont.Header {
		if a.IsIRI {
			p.printf("Annotation(%s %s)\n", ofnIRI(a.Property), ofnIRI(a.Value))
		} else {
			p.printf("Annotation(%s %s)\n", ofnIRI(a.Property), ofnLiteral(a.Value))
		}
	}
	p.line("")

	for _, c := range ont.Classes {
		p.printf("Declaration(Class(%s))\n", ofnIRI(c.IRI))
	}
	for _, rel := range rorio.Relations {
		if !isAnnotationRelation(rel.IRI) {
			p.printf("Declaration(ObjectProperty(%s))\n", ofnIRI(rel.IRI))
		}
	}
	for _, prop := range annotationProperties(ont) {
		p.printf("Declaration(AnnotationProperty(%s))\n", ofnIRI(prop))
	}
	for _, ind := range ont.Individuals {
		p.printf("Declaration(NamedIndividual(%s))\n", ofnIRI(ind.IRI))
	}

	for _, rel := range rorio.Relations {
		if isAnnotationRelation(rel.IRI) {
			continue
		}
		p.line("")
		p.printf("# Object Property: %s (%s)\n", ofnIRI(rel.IRI), rel.Label)
		p.line("")
		p.printf("AnnotationAssertion(rdfs:label %s %s)\n", ofnIRI(rel.IRI), ofnLiteral(rel.Label))
		if rel.Inverse != "" && rel.Canonical {
			p.printf("InverseObjectProperties(%s %s)\n", ofnIRI(rel.IRI), ofnIRI(rel.Inverse))
		}
	}

	for _, c := range ont.Classes {
		p.line("")
		p.printf("# Class: %s\n", ofnIRI(c.IRI))
		p.line("")
		if c.Label != "" {
			p.printf("AnnotationAssertion(rdfs:label %s %s)\n", ofnIRI(c.IRI), ofnLiteral(c.Label))
		}
		for _, super := range c.SubClassOf {
			p.printf("SubClassOf(%s %s)\n", ofnIRI(c.IRI), ofnIRI(super))
		}
	}

	edges := edgesBySubject(ont)
	for _, ind := range ont.Individuals {
		subject := ofnIRI(ind.IRI)
		p.line("")
		p.printf("# Individual: %s\n", subject)
		p.line("")
		for _, x := range ind.Xrefs {
			p.printf("AnnotationAssertion(%s %s %s)\n", ofnIRI(xrefIRI), subject, ofnLiteral(x))
		}
		for _, syn := range ind.Synonyms {
			p.printf("AnnotationAssertion(%s %s %s)\n", ofnIRI(synonymIRI), subject, ofnLiteral(syn.Value))
		}
		p.printf("AnnotationAssertion(rdfs:label %s %s)\n", subject, ofnLiteral(ind.Label))
		for _, t := range ind.Types {
			p.printf("ClassAssertion(%s %s)\n", ofnIRI(t), subject)
		}
		for _, e := range edges[ind.IRI] {
			if isAnnotationRelation(e.Predicate) {
				p.printf("AnnotationAssertion(%s %s %s)\n", ofnIRI(e.Predicate), subject, ofnIRI(e.Object))
			} else {
				p.printf("ObjectPropertyAssertion(%s %s %s)\n", ofnIRI(e.Predicate), subject, ofnIRI(e.Object))
			}
		}
	}

	p.line(")")
	return p.flush()
}

type ofnKind int

const (
	ofnEOF ofnKind = iota
	ofnOpen
	ofnClose
	ofnIRIRef
	ofnLit
	ofnWord
)

type ofnToken struct {
	kind ofnKind
	text string
}

// ofnLexer splits functional syntax into tokens, skipping comments and
// literal datatype or language suffixes.
type ofnLexer struct {
	r      *bufio.Reader
	peeked *ofnToken
}

func (l *ofnLexer) peek() (ofnToken, error) {
	if l.peeked == nil {
		tok, err := l.scan()
		if err != nil {
			return ofnToken{}, err
		}
		l.peeked = &tok
	}
	return *l.peeked, nil
}

func (l *ofnLexer) next() (ofnToken, error) {
	tok, err := l.peek()
	l.peeked = nil
	return tok, err
}

func (l *ofnLexer) scan() (ofnToken, error) {
	for {
		c, _, err := l.r.ReadRune()
		if err == io.EOF {
			return ofnToken{kind: ofnEOF}, nil
		}
		if err != nil {
			return ofnToken{}, err
		}

		switch {
		case unicode.IsSpace(c):
			continue
		case c == '#':
			if _, err := l.r.ReadString('\n'); err != nil && err != io.EOF {
				return ofnToken{}, err
			}
		case c == '(':
			return ofnToken{kind: ofnOpen}, nil
		case c == ')':
			return ofnToken{kind: ofnClose}, nil
		case c == '<':
			iri, err := l.r.ReadString('>')
			if err != nil {
				return ofnToken{}, fmt.Errorf("unterminated IRI: %w", err)
			}
			return ofnToken{kind: ofnIRIRef, text: strings.TrimSuffix(iri, ">")}, nil
		case c == '"':
			return l.literal()
		default:
			if err := l.r.UnreadRune(); err != nil {
				return ofnToken{}, err
			}
			return ofnToken{kind: ofnWord, text: l.word()}, nil
		}
	}
}

func (l *ofnLexer) literal() (ofnToken, error) {
	var sb strings.Builder
	for {
		c, _, err := l.r.ReadRune()
		if err != nil {
			return ofnToken{}, fmt.Errorf("unterminated literal: %w", err)
		}
		if c == '\\' {
			if c, _, err = l.r.ReadRune(); err != nil {
				return ofnToken{}, fmt.Errorf("unterminated literal: %w", err)
			}
		} else if c == '"' {
			break
		}
		sb.WriteRune(c)
	}

	// Drop ^^datatype and @lang suffixes.
	c, _, err := l.r.ReadRune()
	switch {
	case err == io.EOF:
	case err != nil:
		return ofnToken{}, err
	case c == '^':
		if _, _, err := l.r.ReadRune(); err != nil {
			return ofnToken{}, err
		}
		if _, err := l.scan(); err != nil {
			return ofnToken{}, err
		}
	case c == '@':
		l.word()
	default:
		if err := l.r.UnreadRune(); err != nil {
			return ofnToken{}, err
		}
	}
	return ofnToken{kind: ofnLit, text: sb.String()}, nil
}

func (l *ofnLexer) word() string {
	var sb strings.Builder
	for {
		c, _, err := l.r.ReadRune()
		if err != nil {
			return sb.String()
		}
		if unicode.IsSpace(c) || strings.ContainsRune(`()<>"`, c) {
			_ = l.r.UnreadRune()
			return sb.String()
		}
		sb.WriteRune(c)
	}
}

// ofnTerm is an argument of a functional syntax expression.
type ofnTerm struct {
	kind ofnKind
	text string
	expr *ofnExpr
}

type ofnExpr struct {
	name string
	args []ofnTerm
}

// expr parses the parenthesized arguments following a functor name.
func (l *ofnLexer) expr(name string) (*ofnExpr, error) {
	tok, err := l.next()
	if err != nil {
		return nil, err
	}
	if tok.kind != ofnOpen {
		return nil, fmt.Errorf("expected ( after %s", name)
	}

	e := &ofnExpr{name: name}
	for {
		tok, err := l.next()
		if err != nil {
			return nil, err
		}
		switch tok.kind {
		case ofnClose:
			return e, nil
		case ofnEOF:
			return nil, fmt.Errorf("unterminated %s", name)
		case ofnOpen:
			return nil, fmt.Errorf("unexpected ( in %s", name)
		case ofnWord:
			next, err := l.peek()
			if err != nil {
				return nil, err
			}
			if next.kind == ofnOpen {
				sub, err := l.expr(tok.text)
				if err != nil {
					return nil, err
				}
				e.args = append(e.args, ofnTerm{expr: sub})
				continue
			}
			e.args = append(e.args, ofnTerm{kind: ofnWord, text: tok.text})
		default:
			e.args = append(e.args, ofnTerm{kind: tok.kind, text: tok.text})
		}
	}
}

type ofnReader struct {
	lex         *ofnLexer
	prefixes    map[string]string
	individuals map[string]bool
	s           *Summary
}

func readOFN(r io.Reader) (*Summary, error) {
	rd := &ofnReader{
		lex:         &ofnLexer{r: bufio.NewReader(r)},
		prefixes:    make(map[string]string),
		individuals: make(map[string]bool),
		s:           newSummary(),
	}

	sawOntology := false
	for {
		tok, err := rd.lex.next()
		if err != nil {
			return nil, err
		}
		if tok.kind == ofnEOF {
			break
		}
		if tok.kind != ofnWord {
			return nil, fmt.Errorf("unexpected token %q at top level", tok.text)
		}

		switch tok.text {
		case "Prefix":
			e, err := rd.lex.expr(tok.text)
			if err != nil {
				return nil, err
			}
			if len(e.args) == 2 {
				rd.prefixes[strings.TrimSuffix(e.args[0].text, "=")] = e.args[1].text
			}
		case "Ontology":
			if err := rd.ontology(); err != nil {
				return nil, err
			}
			sawOntology = true
		default:
			return nil, fmt.Errorf("unexpected %s at top level", tok.text)
		}
	}
	if !sawOntology {
		return nil, errors.New("no Ontology expression")
	}

	for iri := range rd.s.Entries {
		if !rd.individuals[iri] {
			delete(rd.s.Entries, iri)
		}
	}
	edges := rd.s.Edges[:0]
	for _, e := range rd.s.Edges {
		if rd.individuals[e.Subject] {
			edges = append(edges, e)
		}
	}
	rd.s.Edges = edges
	return rd.s, nil
}

// ontology reads the axioms of an Ontology expression one at a time.
func (rd *ofnReader) ontology() error {
	tok, err := rd.lex.next()
	if err != nil {
		return err
	}
	if tok.kind != ofnOpen {
		return errors.New("expected ( after Ontology")
	}

	for {
		tok, err := rd.lex.next()
		if err != nil {
			return err
		}
		switch tok.kind {
		case ofnClose:
			return nil
		case ofnIRIRef:
			// ontology and version IRI
		case ofnWord:
			e, err := rd.lex.expr(tok.text)
			if err != nil {
				return err
			}
			rd.axiom(e)
		default:
			return fmt.Errorf("unexpected token in Ontology: %q", tok.text)
		}
	}
}

// resolve returns the IRI of an IRI or prefixed-name term.
func (rd *ofnReader) resolve(t ofnTerm) string {
	switch t.kind {
	case ofnIRIRef:
		return t.text
	case ofnWord:
		if i := strings.Index(t.text, ":"); i >= 0 {
			if ns, ok := rd.prefixes[t.text[:i+1]]; ok {
				return ns + t.text[i+1:]
			}
		}
	}
	return t.text
}

func (rd *ofnReader) axiom(e *ofnExpr) {
	args := e.args
	switch e.name {
	case "Annotation":
		if len(args) == 2 && rd.resolve(args[0]) == versionIRI {
			rd.s.Version = args[1].text
		}
	case "Declaration":
		if len(args) == 1 && args[0].expr != nil && args[0].expr.name == "NamedIndividual" && len(args[0].expr.args) == 1 {
			iri := rd.resolve(args[0].expr.args[0])
			rd.individuals[iri] = true
			rd.s.entry(iri)
		}
	case "ClassAssertion":
		if len(args) == 2 {
			entry := rd.s.entry(rd.resolve(args[1]))
			entry.Types = append(entry.Types, rd.resolve(args[0]))
		}
	case "ObjectPropertyAssertion":
		if len(args) == 3 {
			rd.s.Edges = append(rd.s.Edges, ontology.Edge{
				Subject:   rd.resolve(args[1]),
				Predicate: rd.resolve(args[0]),
				Object:    rd.resolve(args[2]),
			})
		}
	case "AnnotationAssertion":
		if len(args) != 3 {
			return
		}
		prop := rd.resolve(args[0])
		subject := rd.resolve(args[1])
		if args[2].kind != ofnLit {
			if rorio.IsRelation(prop) {
				rd.s.Edges = append(rd.s.Edges, ontology.Edge{Subject: subject, Predicate: prop, Object: rd.resolve(args[2])})
			}
			return
		}
		value := args[2].text
		entry := rd.s.entry(subject)
		switch prop {
		case labelIRI:
			entry.Label = value
		case synonymIRI:
			entry.Synonyms = append(entry.Synonyms, value)
		case xrefIRI:
			entry.Xrefs = append(entry.Xrefs, value)
		}
	}
}
