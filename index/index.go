// Package index generates the gzip-compressed name index used for named
// entity normalization.
package index

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/klauspost/compress/gzip"

	"github.com/c360studio/rorio/ontology"
	"github.com/c360studio/rorio/report"
	"github.com/c360studio/rorio/ror"
)

// Column values shared by every row.
const (
	DB     = "ror"
	Source = "ror"
)

// Row statuses.
const (
	StatusName    = "name"
	StatusSynonym = "synonym"
)

// Header lists the TSV columns.
var Header = []string{"norm_text", "text", "db", "id", "entry_name", "status", "source"}

// ErrMalformed is returned by Read for rows that do not have every column.
var ErrMalformed = errors.New("malformed index row")

// Row is one name variant of one organization.
type Row struct {
	NormText  string
	Text      string
	DB        string
	ID        string
	EntryName string
	Status    string
	Source    string
}

func (r Row) fields() []string {
	return []string{r.NormText, r.Text, r.DB, r.ID, r.EntryName, r.Status, r.Source}
}

// Rows lists one row per distinct name variant of every organization, the
// canonical label first. Organizations appear in IRI order. City individuals
// are left out on purpose: the index grounds organization names only, so the
// row count is at least the number of organizations, not of individuals.
func Rows(ont *ontology.Ontology) []Row {
	var rows []Row
	for _, org := range ont.Organizations() {
		id := ror.LocalID(org.IRI)
		label := clean(org.Label)

		rows = append(rows, Row{
			NormText:  Normalize(label),
			Text:      label,
			DB:        DB,
			ID:        id,
			EntryName: label,
			Status:    StatusName,
			Source:    Source,
		})

		seen := map[string]struct{}{label: {}}
		for _, syn := range org.Synonyms {
			text := clean(syn.Value)
			if _, dup := seen[text]; dup || text == "" {
				continue
			}
			seen[text] = struct{}{}
			rows = append(rows, Row{
				NormText:  Normalize(text),
				Text:      text,
				DB:        DB,
				ID:        id,
				EntryName: label,
				Status:    StatusSynonym,
				Source:    Source,
			})
		}
	}
	return rows
}

// Ambiguous returns the normalized names that map to more than one
// organization, with the sorted identifiers they map to.
func Ambiguous(rows []Row) map[string][]string {
	ids := make(map[string]map[string]struct{})
	for _, r := range rows {
		if ids[r.NormText] == nil {
			ids[r.NormText] = make(map[string]struct{})
		}
		ids[r.NormText][r.ID] = struct{}{}
	}

	out := make(map[string][]string)
	for text, set := range ids {
		if len(set) < 2 {
			continue
		}
		list := make([]string, 0, len(set))
		for id := range set {
			list = append(list, id)
		}
		sort.Strings(list)
		out[text] = list
	}
	return out
}

// Generate writes the gzip TSV index for the ontology's organizations and
// reports names shared between organizations. It returns the row count.
func Generate(w io.Writer, ont *ontology.Ontology, rep *report.Report) (int, error) {
	rows := Rows(ont)

	if rep != nil {
		ambiguous := Ambiguous(rows)
		texts := make([]string, 0, len(ambiguous))
		for text := range ambiguous {
			texts = append(texts, text)
		}
		sort.Strings(texts)
		for _, text := range texts {
			ids := ambiguous[text]
			rep.Warn(report.KindAmbiguousName, ids[0], "name %q is shared by %d organizations: %s",
				text, len(ids), strings.Join(ids, ", "))
		}
		rep.Counters.IndexRows = len(rows)
	}

	if err := Write(w, rows); err != nil {
		return 0, err
	}
	return len(rows), nil
}

// Write writes rows as gzip-compressed TSV with a header line.
func Write(w io.Writer, rows []Row) error {
	gz, err := gzip.NewWriterLevel(w, gzip.BestCompression)
	if err != nil {
		return fmt.Errorf("create gzip writer: %w", err)
	}

	bw := bufio.NewWriter(gz)
	if _, err := bw.WriteString(strings.Join(Header, "\t") + "\n"); err != nil {
		return err
	}
	for _, r := range rows {
		if _, err := bw.WriteString(strings.Join(r.fields(), "\t") + "\n"); err != nil {
			return err
		}
	}
	if err := bw.Flush(); err != nil {
		return err
	}
	return gz.Close()
}

// Read parses a gzip TSV index written by Write.
func Read(r io.Reader) ([]Row, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, fmt.Errorf("open gzip stream: %w", err)
	}
	defer gz.Close()

	sc := bufio.NewScanner(gz)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)

	var rows []Row
	first := true
	for sc.Scan() {
		if first {
			first = false
			if sc.Text() != strings.Join(Header, "\t") {
				return nil, fmt.Errorf("%w: unexpected header %q", ErrMalformed, sc.Text())
			}
			continue
		}
		f := strings.Split(sc.Text(), "\t")
		if len(f) != len(Header) {
			return nil, fmt.Errorf("%w: %q", ErrMalformed, sc.Text())
		}
		rows = append(rows, Row{
			NormText:  f[0],
			Text:      f[1],
			DB:        f[2],
			ID:        f[3],
			EntryName: f[4],
			Status:    f[5],
			Source:    f[6],
		})
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	if first {
		return nil, fmt.Errorf("%w: missing header", ErrMalformed)
	}
	return rows, nil
}

// clean replaces the characters TSV cannot carry with spaces.
func clean(s string) string {
	return strings.Join(strings.FieldsFunc(s, func(r rune) bool {
		return r == '\t' || r == '\n' || r == '\r'
	}), " ")
}
