package export

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/c360studio/rorio/ontology"
	"github.com/c360studio/rorio/vocabulary/rorio"
)

// oboEscape escapes a tag value. Quoted values also escape the double quote.
func oboEscape(s string, quoted bool) string {
	var sb strings.Builder
	for _, r := range s {
		switch r {
		case '\\':
			sb.WriteString(`\\`)
		case '\n':
			sb.WriteString(`\n`)
		case '\t':
			sb.WriteString(`\t`)
		case '\r':
			sb.WriteString(`\r`)
		case '"':
			if quoted {
				sb.WriteString(`\"`)
			} else {
				sb.WriteRune(r)
			}
		case '!', '{':
			if !quoted {
				sb.WriteRune('\\')
			}
			sb.WriteRune(r)
		default:
			sb.WriteRune(r)
		}
	}
	return sb.String()
}

// oboUnescape reads an escaped value up to the end of s, an unescaped
// comment or modifier marker, or (when quoted) the closing quote. It returns
// the value and the unread remainder.
func oboUnescape(s string, quoted bool) (string, string) {
	var sb strings.Builder
	for i := 0; i < len(s); i++ {
		c := s[i]
		switch {
		case c == '\\' && i+1 < len(s):
			i++
			switch s[i] {
			case 'n':
				sb.WriteByte('\n')
			case 't':
				sb.WriteByte('\t')
			case 'r':
				sb.WriteByte('\r')
			case 'W':
				sb.WriteByte(' ')
			default:
				sb.WriteByte(s[i])
			}
		case quoted && c == '"':
			return sb.String(), s[i+1:]
		case !quoted && (c == '!' || c == '{'):
			return strings.TrimRight(sb.String(), " "), s[i:]
		default:
			sb.WriteByte(c)
		}
	}
	return sb.String(), ""
}

func writeOBO(w io.Writer, ont *ontology.Ontology) error {
	p := newPrinter(w)

	p.line("format-version: 1.4")
	if ont.Version != "" {
		p.printf("data-version: %s\n", oboEscape(ont.Version, false))
	}
	p.printf("ontology: %s\n", ontologyID(ont.IRI))
	for _, a := range ont.Header {
		if a.IsIRI {
			p.printf("property_value: %s %s\n", rorio.Compress(a.Property), a.Value)
		} else {
			p.printf("property_value: %s \"%s\" xsd:string\n", rorio.Compress(a.Property), oboEscape(a.Value, true))
		}
	}

	for _, c := range ont.Classes {
		p.line("")
		p.line("[Term]")
		p.printf("id: %s\n", rorio.Compress(c.IRI))
		if c.Label != "" {
			p.printf("name: %s\n", oboEscape(c.Label, false))
		}
		for _, super := range c.SubClassOf {
			p.printf("is_a: %s\n", rorio.Compress(super))
		}
	}

	edges := edgesBySubject(ont)
	for _, ind := range ont.Individuals {
		p.line("")
		p.line("[Instance]")
		p.printf("id: %s\n", rorio.Compress(ind.IRI))
		p.printf("name: %s\n", oboEscape(ind.Label, false))
		for _, t := range ind.Types {
			p.printf("instance_of: %s\n", rorio.Compress(t))
		}
		for _, syn := range ind.Synonyms {
			p.printf("synonym: \"%s\" EXACT []\n", oboEscape(syn.Value, true))
		}
		for _, x := range ind.Xrefs {
			p.printf("xref: %s\n", x)
		}
		for _, e := range edges[ind.IRI] {
			p.printf("relationship: %s %s\n", rorio.Compress(e.Predicate), rorio.Compress(e.Object))
		}
	}

	for _, rel := range rorio.Relations {
		p.line("")
		p.line("[Typedef]")
		p.printf("id: %s\n", rorio.Compress(rel.IRI))
		p.printf("name: %s\n", oboEscape(rel.Label, false))
		if isAnnotationRelation(rel.IRI) {
			p.line("is_metadata_tag: true")
		}
		if rel.Inverse != "" && rel.Canonical {
			p.printf("inverse_of: %s\n", rorio.Compress(rel.Inverse))
		}
	}

	return p.flush()
}

func readOBO(r io.Reader) (*Summary, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)

	s := newSummary()
	stanza := ""
	sawFormat := false
	var current string

	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), "\r")
		if line == "" || strings.HasPrefix(line, "!") {
			continue
		}
		if strings.HasPrefix(line, "[") && strings.HasSuffix(line, "]") {
			stanza = line
			current = ""
			continue
		}

		tag, value, ok := strings.Cut(line, ":")
		if !ok {
			return nil, fmt.Errorf("malformed line %q", line)
		}
		value = strings.TrimPrefix(value, " ")

		if stanza == "" {
			switch tag {
			case "format-version":
				sawFormat = true
			case "data-version":
				s.Version, _ = oboUnescape(value, false)
			}
			continue
		}
		if stanza != "[Instance]" {
			continue
		}

		if tag == "id" {
			current = rorio.Expand(strings.TrimSpace(value))
			s.entry(current)
			continue
		}
		if current == "" {
			return nil, fmt.Errorf("tag %s before id", tag)
		}
		e := s.entry(current)

		switch tag {
		case "name":
			e.Label, _ = oboUnescape(value, false)
		case "instance_of":
			e.Types = append(e.Types, rorio.Expand(firstField(value)))
		case "synonym":
			if !strings.HasPrefix(value, `"`) {
				return nil, fmt.Errorf("unquoted synonym %q", value)
			}
			syn, _ := oboUnescape(value[1:], true)
			e.Synonyms = append(e.Synonyms, syn)
		case "xref":
			e.Xrefs = append(e.Xrefs, firstField(value))
		case "relationship":
			fields := strings.Fields(value)
			if len(fields) < 2 {
				return nil, fmt.Errorf("malformed relationship %q", value)
			}
			s.Edges = append(s.Edges, ontology.Edge{
				Subject:   current,
				Predicate: rorio.Expand(fields[0]),
				Object:    rorio.Expand(fields[1]),
			})
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if !sawFormat {
		return nil, errors.New("missing format-version header")
	}
	return s, nil
}

func firstField(s string) string {
	if f := strings.Fields(s); len(f) > 0 {
		return f[0]
	}
	return ""
}
