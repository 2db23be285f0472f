// Package ror reads Research Organization Registry data dumps.
//
// The dump is a JSON array of organization objects whose shape varies
// between releases (string-or-list values, full IRIs or bare identifiers).
// Parse converts every element into the closed Record structure below so the
// rest of the build never sees the raw shape.
package ror

import "strings"

// Namespace is the IRI prefix of every registry identifier.
const Namespace = "https://ror.org/"

// RelationType is a relationship kind declared by the registry.
type RelationType string

const (
	RelationParent      RelationType = "Parent"
	RelationChild       RelationType = "Child"
	RelationRelated     RelationType = "Related"
	RelationPredecessor RelationType = "Predecessor"
	RelationSuccessor   RelationType = "Successor"
)

// NameKind tells where an alternate name came from.
type NameKind string

const (
	NameAlias   NameKind = "alias"
	NameAcronym NameKind = "acronym"
	NameLabel   NameKind = "label"
)

// Record is one organization from the dump.
type Record struct {
	// ID is the registry identifier without the namespace, e.g. "02mhbdp94".
	ID string

	// Name is the primary name.
	Name string

	// AltNames are aliases, acronyms and language labels in dump order.
	AltNames []AltName

	Types       []string
	Status      string
	Established int

	Country   Country
	Addresses []Address

	Relationships []Relationship

	// ExternalIDs are sorted by prefix.
	ExternalIDs []ExternalID

	Links        []string
	WikipediaURL string
}

// AltName is a non-canonical name of an organization.
type AltName struct {
	Value    string
	Kind     NameKind
	Language string
}

// Country is the country an organization is registered in.
type Country struct {
	Name string
	Code string
}

// Address carries the geographic location of an organization.
// GeonamesID is empty when the dump has no geonames city.
type Address struct {
	City       string
	GeonamesID string
	Lat        float64
	Lng        float64
}

// Relationship links a record to another registry identifier.
type Relationship struct {
	Type  RelationType
	ID    string
	Label string
}

// ExternalID lists the identifiers of one external registry.
type ExternalID struct {
	Prefix    string
	Preferred string
	All       []string
}

// IRI returns the full registry IRI of the record.
func (r Record) IRI() string {
	return Namespace + r.ID
}

// LocalID strips the registry namespace from an identifier, accepting both
// full IRIs and bare identifiers.
func LocalID(id string) string {
	id = strings.TrimSpace(id)
	for _, prefix := range []string{Namespace, "http://ror.org/", "ror:"} {
		if strings.HasPrefix(id, prefix) {
			return strings.TrimPrefix(id, prefix)
		}
	}
	return id
}

// ValidID reports whether a local identifier has the registry shape:
// lowercase ASCII letters and digits only.
func ValidID(id string) bool {
	if id == "" {
		return false
	}
	for i := 0; i < len(id); i++ {
		c := id[i]
		if (c < '0' || c > '9') && (c < 'a' || c > 'z') {
			return false
		}
	}
	return true
}

// VersionFromFilename derives the dump version from the data file name,
// e.g. "v1.17.1-2022-12-16-ror-data.json" -> "v1.17.1-2022-12-16".
// It returns "" when the name does not follow the release naming.
func VersionFromFilename(name string) string {
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	for _, suffix := range []string{"-ror-data_schema_v2.json", "-ror-data.json", "-ror-data.zip"} {
		if strings.HasSuffix(name, suffix) {
			return strings.TrimSuffix(name, suffix)
		}
	}
	return ""
}
