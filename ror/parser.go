package ror

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/c360studio/rorio/report"
)

// ErrUnparseable is returned when the dump as a whole cannot be read.
var ErrUnparseable = errors.New("unparseable dump")

type rawRecord struct {
	ID            string                   `json:"id"`
	Name          string                   `json:"name"`
	Types         []string                 `json:"types"`
	Status        string                   `json:"status"`
	Established   *int                     `json:"established"`
	Aliases       []string                 `json:"aliases"`
	Acronyms      []string                 `json:"acronyms"`
	Labels        []rawLabel               `json:"labels"`
	Country       *rawCountry              `json:"country"`
	Addresses     []rawAddress             `json:"addresses"`
	Relationships []rawRelationship        `json:"relationships"`
	ExternalIDs   map[string]rawExternalID `json:"external_ids"`
	Links         []string                 `json:"links"`
	WikipediaURL  string                   `json:"wikipedia_url"`
}

type rawLabel struct {
	Label  string `json:"label"`
	ISO639 string `json:"iso639"`
}

type rawCountry struct {
	Name string `json:"country_name"`
	Code string `json:"country_code"`
}

type rawAddress struct {
	City         string       `json:"city"`
	Lat          *float64     `json:"lat"`
	Lng          *float64     `json:"lng"`
	GeonamesCity *rawGeonames `json:"geonames_city"`
}

type rawGeonames struct {
	ID   json.Number `json:"id"`
	City string      `json:"city"`
}

type rawRelationship struct {
	Type  string `json:"type"`
	ID    string `json:"id"`
	Label string `json:"label"`
}

type rawExternalID struct {
	Preferred *string         `json:"preferred"`
	All       json.RawMessage `json:"all"`
}

// Parse reads a dump (a JSON array of organization objects) in a single pass.
//
// Elements that are not objects, lack an identifier or primary name, or
// repeat an identifier are skipped and recorded in rep. A dump that is not a
// JSON array or is syntactically broken returns ErrUnparseable.
func Parse(r io.Reader, rep *report.Report) ([]Record, error) {
	if rep == nil {
		rep = report.New()
	}

	dec := json.NewDecoder(r)

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '[' {
		return nil, fmt.Errorf("%w: expected a JSON array, got %v", ErrUnparseable, tok)
	}

	var records []Record
	seen := make(map[string]struct{})

	for index := 0; dec.More(); index++ {
		var element json.RawMessage
		if err := dec.Decode(&element); err != nil {
			return nil, fmt.Errorf("%w: element %d: %v", ErrUnparseable, index, err)
		}
		rep.Counters.RecordsRead++

		var raw rawRecord
		if err := json.Unmarshal(element, &raw); err != nil {
			rep.SkipRecord(report.KindMalformedRecord, "", "element %d: %v", index, err)
			continue
		}

		rec, ok := convert(raw, index, rep)
		if !ok {
			continue
		}
		if _, dup := seen[rec.ID]; dup {
			rep.SkipRecord(report.KindDuplicateRecord, rec.ID, "element %d repeats an earlier identifier", index)
			continue
		}
		seen[rec.ID] = struct{}{}
		records = append(records, rec)
	}

	if _, err := dec.Token(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnparseable, err)
	}

	return records, nil
}

// convert validates a raw element and maps it into a Record.
func convert(raw rawRecord, index int, rep *report.Report) (Record, bool) {
	id := LocalID(raw.ID)
	if id == "" {
		rep.SkipRecord(report.KindMalformedRecord, "", "element %d has no identifier", index)
		return Record{}, false
	}
	if !ValidID(id) {
		rep.SkipRecord(report.KindMalformedRecord, "", "element %d has invalid identifier %q", index, raw.ID)
		return Record{}, false
	}

	name := cleanName(id, "primary name", FixName(raw.Name), rep)
	if name == "" {
		rep.SkipRecord(report.KindMalformedRecord, id, "element %d has no primary name", index)
		return Record{}, false
	}

	rec := Record{
		ID:           id,
		Name:         name,
		Types:        raw.Types,
		Status:       raw.Status,
		Links:        raw.Links,
		WikipediaURL: raw.WikipediaURL,
	}
	if raw.Established != nil {
		rec.Established = *raw.Established
	}
	if raw.Country != nil {
		rec.Country = Country{Name: raw.Country.Name, Code: raw.Country.Code}
	}

	rec.AltNames = altNames(id, raw, rep)

	for _, a := range raw.Addresses {
		addr := Address{City: cleanName(id, "city", FixName(a.City), rep)}
		if a.Lat != nil {
			addr.Lat = *a.Lat
		}
		if a.Lng != nil {
			addr.Lng = *a.Lng
		}
		if a.GeonamesCity != nil && a.GeonamesCity.ID.String() != "" {
			addr.GeonamesID = a.GeonamesCity.ID.String()
			if city := cleanName(id, "city", FixName(a.GeonamesCity.City), rep); city != "" {
				addr.City = city
			}
		}
		rec.Addresses = append(rec.Addresses, addr)
	}

	for _, rel := range raw.Relationships {
		target := LocalID(rel.ID)
		if target == "" {
			rep.DropEdge(report.KindDanglingReference, id, "%s relationship without a target identifier", rel.Type)
			continue
		}
		if !ValidID(target) {
			rep.DropEdge(report.KindMalformedRecord, id, "%s relationship with invalid target identifier %q", rel.Type, rel.ID)
			continue
		}
		rec.Relationships = append(rec.Relationships, Relationship{
			Type:  RelationType(strings.TrimSpace(rel.Type)),
			ID:    target,
			Label: rel.Label,
		})
	}

	rec.ExternalIDs = externalIDs(id, raw.ExternalIDs, rep)

	return rec, true
}

// cleanName strips characters no output format can carry and reports the
// change as a bad_name warning.
func cleanName(id, what, value string, rep *report.Report) string {
	cleaned, changed := CleanName(value)
	if changed {
		rep.Warn(report.KindBadName, id, "%s %q contains control characters, cleaned to %q", what, value, cleaned)
	}
	return cleaned
}

func altNames(id string, raw rawRecord, rep *report.Report) []AltName {
	var names []AltName
	add := func(value string, kind NameKind, lang string) {
		value = cleanName(id, string(kind), strings.TrimSpace(value), rep)
		if value == "" {
			rep.Warn(report.KindBadName, id, "empty %s dropped", kind)
			return
		}
		names = append(names, AltName{Value: value, Kind: kind, Language: lang})
	}

	for _, a := range raw.Aliases {
		add(a, NameAlias, "")
	}
	for _, a := range raw.Acronyms {
		add(a, NameAcronym, "")
	}
	for _, l := range raw.Labels {
		add(l.Label, NameLabel, l.ISO639)
	}
	return names
}

func externalIDs(id string, raw map[string]rawExternalID, rep *report.Report) []ExternalID {
	if len(raw) == 0 {
		return nil
	}

	prefixes := make([]string, 0, len(raw))
	for prefix := range raw {
		prefixes = append(prefixes, prefix)
	}
	sort.Strings(prefixes)

	out := make([]ExternalID, 0, len(prefixes))
	for _, prefix := range prefixes {
		x := raw[prefix]
		all, err := stringOrList(x.All)
		if err != nil {
			rep.Warn(report.KindMalformedRecord, id, "external id %s: %v", prefix, err)
			continue
		}
		ext := ExternalID{Prefix: prefix, All: all}
		if x.Preferred != nil {
			ext.Preferred = strings.TrimSpace(*x.Preferred)
		}
		if len(ext.All) == 0 && ext.Preferred != "" {
			ext.All = []string{ext.Preferred}
		}
		out = append(out, ext)
	}
	return out
}

// stringOrList accepts `"x"`, `["x", "y"]` or null.
func stringOrList(raw json.RawMessage) ([]string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}

	var single string
	if err := json.Unmarshal(raw, &single); err == nil {
		if single = strings.TrimSpace(single); single == "" {
			return nil, nil
		}
		return []string{single}, nil
	}

	var list []string
	if err := json.Unmarshal(raw, &list); err != nil {
		return nil, fmt.Errorf("expected string or list of strings: %w", err)
	}

	out := list[:0]
	for _, v := range list {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out, nil
}
