// Package report accumulates the recoverable problems and counters of a build run.
//
// A single *Report is created per run and passed by reference through the
// parser, builder and index generator. Nothing in a run aborts on a
// recoverable problem; it is recorded here and surfaced in the final summary.
package report

import (
	"fmt"
	"log/slog"
	"sort"
)

// Kind classifies a recoverable problem.
type Kind string

const (
	// KindMalformedRecord is a dump element without an identifier or primary name.
	KindMalformedRecord Kind = "malformed_record"

	// KindDuplicateRecord is a record whose identifier was already seen.
	KindDuplicateRecord Kind = "duplicate_record"

	// KindDanglingReference is a relation whose target is not part of the build.
	KindDanglingReference Kind = "dangling_reference"

	// KindUnknownRelation is a relationship type with no ontology mapping.
	KindUnknownRelation Kind = "unknown_relation"

	// KindUnhandledPrefix is an external identifier prefix with no normalization.
	KindUnhandledPrefix Kind = "unhandled_prefix"

	// KindBadName is an empty or unusable name, synonym or city label.
	KindBadName Kind = "bad_name"

	// KindAmbiguousName is a name string shared by more than one organization.
	KindAmbiguousName Kind = "ambiguous_name"
)

// Warning is one recoverable problem.
type Warning struct {
	Kind     Kind   `json:"kind"`
	RecordID string `json:"record_id,omitempty"`
	Message  string `json:"message"`
}

// String renders the warning for log output.
func (w Warning) String() string {
	if w.RecordID == "" {
		return fmt.Sprintf("[%s] %s", w.Kind, w.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", w.Kind, w.RecordID, w.Message)
}

// Counters are the run totals shown in the summary.
type Counters struct {
	RecordsRead    int `json:"records_read"`
	RecordsSkipped int `json:"records_skipped"`
	Organizations  int `json:"organizations"`
	Cities         int `json:"cities"`
	Edges          int `json:"edges"`
	EdgesDropped   int `json:"edges_dropped"`
	Synonyms       int `json:"synonyms"`
	Xrefs          int `json:"xrefs"`
	IndexRows      int `json:"index_rows"`
}

// Report is the accumulator threaded through a run.
type Report struct {
	Counters Counters
	Warnings []Warning
}

// New creates an empty report.
func New() *Report {
	return &Report{}
}

// Warn records a recoverable problem.
func (r *Report) Warn(kind Kind, recordID, format string, args ...any) {
	r.Warnings = append(r.Warnings, Warning{
		Kind:     kind,
		RecordID: recordID,
		Message:  fmt.Sprintf(format, args...),
	})
}

// SkipRecord records a dump element that did not become a record.
func (r *Report) SkipRecord(kind Kind, recordID, format string, args ...any) {
	r.Counters.RecordsSkipped++
	r.Warn(kind, recordID, format, args...)
}

// DropEdge records a relation that was not emitted.
func (r *Report) DropEdge(kind Kind, recordID, format string, args ...any) {
	r.Counters.EdgesDropped++
	r.Warn(kind, recordID, format, args...)
}

// Count returns the number of warnings of the given kind.
func (r *Report) Count(kind Kind) int {
	n := 0
	for _, w := range r.Warnings {
		if w.Kind == kind {
			n++
		}
	}
	return n
}

// Filter returns the warnings of the given kind in the order they were recorded.
func (r *Report) Filter(kind Kind) []Warning {
	var out []Warning
	for _, w := range r.Warnings {
		if w.Kind == kind {
			out = append(out, w)
		}
	}
	return out
}

// CountsByKind returns warning totals keyed by kind.
func (r *Report) CountsByKind() map[Kind]int {
	counts := make(map[Kind]int)
	for _, w := range r.Warnings {
		counts[w.Kind]++
	}
	return counts
}

// Log writes the summary and, at debug level, every warning.
func (r *Report) Log(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	for _, w := range r.Warnings {
		logger.Debug("Build warning",
			"kind", string(w.Kind),
			"record", w.RecordID,
			"message", w.Message)
	}

	counts := r.CountsByKind()
	kinds := make([]string, 0, len(counts))
	for k := range counts {
		kinds = append(kinds, string(k))
	}
	sort.Strings(kinds)
	for _, k := range kinds {
		logger.Warn("Build warnings", "kind", k, "count", counts[Kind(k)])
	}

	c := r.Counters
	logger.Info("Build summary",
		"records_read", c.RecordsRead,
		"records_skipped", c.RecordsSkipped,
		"organizations", c.Organizations,
		"cities", c.Cities,
		"edges", c.Edges,
		"edges_dropped", c.EdgesDropped,
		"synonyms", c.Synonyms,
		"xrefs", c.Xrefs,
		"index_rows", c.IndexRows,
		"warnings", len(r.Warnings))
}
