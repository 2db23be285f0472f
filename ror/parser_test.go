package ror

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/rorio/report"
)

const sampleDump = `[
  {
    "id": "https://ror.org/013cjyk83",
    "name": "PSL Research University",
    "types": ["Education"],
    "status": "active",
    "established": 2010,
    "aliases": ["Université PSL", "  "],
    "acronyms": ["PSL"],
    "labels": [{"label": "Université Paris sciences et lettres", "iso639": "fr"}],
    "country": {"country_name": "France", "country_code": "FR"},
    "addresses": [{
      "city": "Paris", "lat": 48.85, "lng": 2.35,
      "geonames_city": {"id": 2988507, "city": "Paris"}
    }],
    "relationships": [
      {"label": "Observatoire de Paris", "type": "Child", "id": "https://ror.org/029nkcm90"}
    ],
    "external_ids": {
      "ISNI": {"preferred": null, "all": ["0000 0004 1784 3645"]},
      "GRID": {"preferred": "grid.440907.e", "all": "grid.440907.e"}
    },
    "links": ["https://www.psl.eu"],
    "wikipedia_url": "https://en.wikipedia.org/wiki/PSL_Research_University"
  },
  {
    "id": "https://ror.org/029nkcm90",
    "name": "Observatoire de Paris",
    "relationships": [
      {"type": "Parent", "id": "https://ror.org/013cjyk83"}
    ]
  }
]`

func TestParseSample(t *testing.T) {
	rep := report.New()
	records, err := Parse(strings.NewReader(sampleDump), rep)
	require.NoError(t, err)
	require.Len(t, records, 2)

	psl := records[0]
	assert.Equal(t, "013cjyk83", psl.ID)
	assert.Equal(t, "https://ror.org/013cjyk83", psl.IRI())
	assert.Equal(t, "PSL Research University", psl.Name)
	assert.Equal(t, 2010, psl.Established)
	assert.Equal(t, Country{Name: "France", Code: "FR"}, psl.Country)

	require.Len(t, psl.AltNames, 3)
	assert.Equal(t, AltName{Value: "Université PSL", Kind: NameAlias}, psl.AltNames[0])
	assert.Equal(t, AltName{Value: "PSL", Kind: NameAcronym}, psl.AltNames[1])
	assert.Equal(t, NameLabel, psl.AltNames[2].Kind)
	assert.Equal(t, "fr", psl.AltNames[2].Language)

	require.Len(t, psl.Addresses, 1)
	assert.Equal(t, "2988507", psl.Addresses[0].GeonamesID)
	assert.Equal(t, "Paris", psl.Addresses[0].City)

	require.Len(t, psl.Relationships, 1)
	assert.Equal(t, Relationship{Type: RelationChild, ID: "029nkcm90", Label: "Observatoire de Paris"}, psl.Relationships[0])

	// Sorted by prefix, string-or-list normalized.
	require.Len(t, psl.ExternalIDs, 2)
	assert.Equal(t, ExternalID{Prefix: "GRID", Preferred: "grid.440907.e", All: []string{"grid.440907.e"}}, psl.ExternalIDs[0])
	assert.Equal(t, ExternalID{Prefix: "ISNI", All: []string{"0000 0004 1784 3645"}}, psl.ExternalIDs[1])

	assert.Equal(t, 2, rep.Counters.RecordsRead)
	assert.Equal(t, 0, rep.Counters.RecordsSkipped)
	assert.Equal(t, 1, rep.Count(report.KindBadName), "blank alias is reported")
}

func TestParseSkipsMalformedRecords(t *testing.T) {
	dump := `[
		{"id": "r1", "name": "Alpha Institute"},
		{"name": "No Identifier"},
		{"id": "r3"},
		"not an object",
		{"id": 42, "name": "Numeric id"},
		{"id": "r1", "name": "Alpha Again"},
		{"id": "r2", "name": "Beta Center"}
	]`

	rep := report.New()
	records, err := Parse(strings.NewReader(dump), rep)
	require.NoError(t, err)

	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	assert.Equal(t, []string{"r1", "r2"}, ids)

	assert.Equal(t, 7, rep.Counters.RecordsRead)
	assert.Equal(t, 5, rep.Counters.RecordsSkipped)
	assert.Equal(t, 4, rep.Count(report.KindMalformedRecord))
	assert.Equal(t, 1, rep.Count(report.KindDuplicateRecord))
}

func TestParseFatal(t *testing.T) {
	tests := []struct {
		name string
		dump string
	}{
		{"empty input", ""},
		{"not an array", `{"id": "r1"}`},
		{"truncated", `[{"id": "r1", "name": "Alpha"}, {"id": "r2"`},
		{"garbage", `[{"id": "r1"} oops]`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(strings.NewReader(tt.dump), report.New())
			require.Error(t, err)
			assert.True(t, errors.Is(err, ErrUnparseable))
		})
	}
}

func TestParseEmptyArray(t *testing.T) {
	records, err := Parse(strings.NewReader(`[]`), nil)
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestParseNameFixups(t *testing.T) {
	dump := `[
		{"id": "r1", "name": "'s Heeren Loo",
		 "addresses": [{"geonames_city": {"id": "2747351", "city": "'s-Hertogenbosch"}}]},
		{"id": "r2", "name": "Institut Virion\\Serion"}
	]`

	records, err := Parse(strings.NewReader(dump), report.New())
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "s Heeren Loo", records[0].Name)
	assert.Equal(t, "Den Bosch", records[0].Addresses[0].City)
	assert.Equal(t, "2747351", records[0].Addresses[0].GeonamesID)
	assert.Equal(t, "Institut Virion/Serion", records[1].Name)
}

func TestLocalID(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://ror.org/02mhbdp94", "02mhbdp94"},
		{"http://ror.org/02mhbdp94", "02mhbdp94"},
		{"ror:02mhbdp94", "02mhbdp94"},
		{" r1 ", "r1"},
		{"", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, LocalID(tt.in), tt.in)
	}
}

func TestVersionFromFilename(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"v1.17.1-2022-12-16-ror-data.json", "v1.17.1-2022-12-16"},
		{"data/v1.50-2024-07-29-ror-data_schema_v2.json", "v1.50-2024-07-29"},
		{"v1.17.1-2022-12-16-ror-data.zip", "v1.17.1-2022-12-16"},
		{"dump.json", ""},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, VersionFromFilename(tt.in), tt.in)
	}
}

func TestParseRejectsInvalidIdentifiers(t *testing.T) {
	dump := `[
		{"id": "r1", "name": "Alpha Institute", "relationships": [
			{"type": "Parent", "id": "r 1"},
			{"type": "Parent", "id": "https://ror.org/R2"},
			{"type": "Child", "id": "https://ror.org/r2"}
		]},
		{"id": "https://ROR.org/r9", "name": "Mixed Case Namespace"},
		{"id": "r 3", "name": "Space Inside"},
		{"id": "a/b", "name": "Slash Inside"},
		{"id": "x:y", "name": "Colon Inside"},
		{"id": "r2", "name": "Beta Center"}
	]`

	rep := report.New()
	records, err := Parse(strings.NewReader(dump), rep)
	require.NoError(t, err)

	require.Len(t, records, 2)
	assert.Equal(t, "r1", records[0].ID)
	assert.Equal(t, "r2", records[1].ID)
	assert.Equal(t, []Relationship{{Type: RelationChild, ID: "r2"}}, records[0].Relationships)

	assert.Equal(t, 4, rep.Counters.RecordsSkipped)
	assert.Equal(t, 2, rep.Counters.EdgesDropped)
	assert.Equal(t, 6, rep.Count(report.KindMalformedRecord))
}

func TestParseCleansControlCharacters(t *testing.T) {
	dump := `[
		{"id": "r1", "name": "Alpha\u0001 Institute", "aliases": ["A\tI", "Alpha"],
		 "addresses": [{"geonames_city": {"id": 2988507, "city": "Pa\u0007ris"}}]},
		{"id": "r2", "name": "\u0002"}
	]`

	rep := report.New()
	records, err := Parse(strings.NewReader(dump), rep)
	require.NoError(t, err)
	require.Len(t, records, 1)

	r1 := records[0]
	assert.Equal(t, "Alpha Institute", r1.Name)
	require.Len(t, r1.AltNames, 2)
	assert.Equal(t, "A I", r1.AltNames[0].Value)
	assert.Equal(t, "Alpha", r1.AltNames[1].Value)
	assert.Equal(t, "Pa ris", r1.Addresses[0].City)

	assert.Equal(t, 4, rep.Count(report.KindBadName))
	assert.Equal(t, 1, rep.Count(report.KindMalformedRecord), "name made only of control characters")
}

func TestCleanName(t *testing.T) {
	tests := []struct {
		in      string
		want    string
		changed bool
	}{
		{"Alpha Institute", "Alpha Institute", false},
		{"Université  PSL", "Université  PSL", false},
		{"Alpha\x01 Institute", "Alpha Institute", true},
		{"line\nbreak", "line break", true},
		{"tab\there", "tab here", true},
		{"odd\ufffe", "odd", true},
		{"\x7f", "", true},
	}
	for _, tt := range tests {
		got, changed := CleanName(tt.in)
		assert.Equal(t, tt.want, got, "%q", tt.in)
		assert.Equal(t, tt.changed, changed, "%q", tt.in)
	}
}

func TestValidID(t *testing.T) {
	for _, id := range []string{"02mhbdp94", "r1", "013cjyk83"} {
		assert.True(t, ValidID(id), id)
	}
	for _, id := range []string{"", "r 1", "R1", "a/b", "x:y", "https://ror.org/r1", "r-1"} {
		assert.False(t, ValidID(id), id)
	}
}
