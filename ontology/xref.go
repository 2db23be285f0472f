package ontology

import (
	"strings"
	"unicode"
)

// xrefPrefixes maps registry external id keys (lowercased) to the prefixes
// used in hasDbXref CURIEs.
var xrefPrefixes = map[string]string{
	"grid":     "grid",
	"isni":     "isni",
	"wikidata": "wikidata",
	"fundref":  "crossref.funder",
}

// NormalizePrefix returns the CURIE prefix for a registry external id key.
// HESA, UCAS, UKPRN, CNRS and OrgRef have no normalized prefix.
func NormalizePrefix(prefix string) (string, bool) {
	norm, ok := xrefPrefixes[strings.ToLower(strings.TrimSpace(prefix))]
	return norm, ok
}

// XrefCURIE joins a normalized prefix and an identifier, dropping whitespace
// and control characters inside the identifier
// ("0000 0004 1784 3645" -> "0000000417843645").
func XrefCURIE(prefix, id string) string {
	clean := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) || unicode.IsControl(r) {
			return -1
		}
		return r
	}, id)
	if clean == "" {
		return ""
	}
	return prefix + ":" + clean
}
