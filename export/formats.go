// Package export serializes an ontology into the published file formats and
// reads those files back into comparable summaries.
package export

import (
	"fmt"
	"io"
	"sort"

	"github.com/c360studio/rorio/ontology"
)

// Format specifies the output serialization format.
type Format string

const (
	// FormatOWL produces RDF/XML (.owl) output.
	FormatOWL Format = "owl"

	// FormatOBO produces the OBO flat file format (.obo).
	FormatOBO Format = "obo"

	// FormatJSON produces OBO Graph JSON (.json).
	FormatJSON Format = "json"

	// FormatOFN produces OWL functional syntax (.ofn).
	FormatOFN Format = "ofn"
)

// FormatInfo provides metadata about an export format.
type FormatInfo struct {
	// Name is the format identifier.
	Name Format

	// MIMEType is the standard MIME type.
	MIMEType string

	// Extension is the file extension (with dot).
	Extension string

	// Description describes the format.
	Description string
}

// FormatRegistry contains metadata for all supported formats.
var FormatRegistry = map[Format]FormatInfo{
	FormatOWL: {
		Name:        FormatOWL,
		MIMEType:    "application/rdf+xml",
		Extension:   ".owl",
		Description: "OWL in RDF/XML",
	},
	FormatOBO: {
		Name:        FormatOBO,
		MIMEType:    "text/obo",
		Extension:   ".obo",
		Description: "OBO flat file format 1.4",
	},
	FormatJSON: {
		Name:        FormatJSON,
		MIMEType:    "application/json",
		Extension:   ".json",
		Description: "OBO Graph JSON",
	},
	FormatOFN: {
		Name:        FormatOFN,
		MIMEType:    "text/owl-functional",
		Extension:   ".ofn",
		Description: "OWL functional syntax",
	},
}

// GetFormatInfo returns metadata for a format.
func GetFormatInfo(format Format) (FormatInfo, bool) {
	info, ok := FormatRegistry[format]
	return info, ok
}

// Formats returns every supported format in a stable order.
func Formats() []Format {
	out := make([]Format, 0, len(FormatRegistry))
	for f := range FormatRegistry {
		out = append(out, f)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// ParseFormat validates a format name.
func ParseFormat(s string) (Format, error) {
	if _, ok := FormatRegistry[Format(s)]; !ok {
		return "", fmt.Errorf("unsupported format: %s", s)
	}
	return Format(s), nil
}

// FileName returns the output file name for a format, e.g. "rorio.owl".
func FileName(base string, format Format) string {
	return base + FormatRegistry[format].Extension
}

type codec struct {
	write func(io.Writer, *ontology.Ontology) error
	read  func(io.Reader) (*Summary, error)
}

var codecs = map[Format]codec{
	FormatOWL:  {write: writeRDFXML, read: readRDFXML},
	FormatOBO:  {write: writeOBO, read: readOBO},
	FormatJSON: {write: writeGraphJSON, read: readGraphJSON},
	FormatOFN:  {write: writeOFN, read: readOFN},
}

// Write serializes the ontology in the given format.
func Write(w io.Writer, format Format, ont *ontology.Ontology) error {
	c, ok := codecs[format]
	if !ok {
		return fmt.Errorf("unsupported format: %s", format)
	}
	if err := c.write(w, ont); err != nil {
		return fmt.Errorf("write %s: %w", format, err)
	}
	return nil
}

// Read parses a serialized ontology back into a Summary.
func Read(r io.Reader, format Format) (*Summary, error) {
	c, ok := codecs[format]
	if !ok {
		return nil, fmt.Errorf("unsupported format: %s", format)
	}
	s, err := c.read(r)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", format, err)
	}
	s.normalize()
	return s, nil
}
