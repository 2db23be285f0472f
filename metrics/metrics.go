// Package metrics records build counters on a dedicated Prometheus registry
// and writes them in the text exposition format for the node_exporter
// textfile collector.
//
// A build is a batch job, so nothing is served over HTTP; the CLI writes the
// registry to metrics.textfile after every run, successful or not:
//
//	rorio_build_success 1
//	rorio_records_read_total 104402
//	rorio_warnings_total{kind="dangling_reference"} 3
package metrics

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/c360studio/rorio/report"
)

// Build holds the metrics of one build run.
type Build struct {
	registry *prometheus.Registry

	RecordsRead    prometheus.Counter
	RecordsSkipped prometheus.Counter
	Organizations  prometheus.Gauge
	Cities         prometheus.Gauge
	Edges          prometheus.Gauge
	EdgesDropped   prometheus.Counter
	IndexRows      prometheus.Gauge
	Warnings       *prometheus.CounterVec

	Duration    prometheus.Gauge
	Success     prometheus.Gauge
	LastSuccess prometheus.Gauge
	OutputBytes *prometheus.GaugeVec
}

// New registers the build metrics on a fresh registry.
func New() *Build {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)

	return &Build{
		registry: reg,
		RecordsRead: f.NewCounter(prometheus.CounterOpts{
			Name: "rorio_records_read_total",
			Help: "Registry records read from the dump.",
		}),
		RecordsSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "rorio_records_skipped_total",
			Help: "Registry records skipped as malformed or duplicate.",
		}),
		Organizations: f.NewGauge(prometheus.GaugeOpts{
			Name: "rorio_organizations",
			Help: "Organization individuals in the ontology.",
		}),
		Cities: f.NewGauge(prometheus.GaugeOpts{
			Name: "rorio_cities",
			Help: "City individuals in the ontology.",
		}),
		Edges: f.NewGauge(prometheus.GaugeOpts{
			Name: "rorio_edges",
			Help: "Relation edges in the ontology.",
		}),
		EdgesDropped: f.NewCounter(prometheus.CounterOpts{
			Name: "rorio_edges_dropped_total",
			Help: "Declared relations not emitted (dangling target or unknown type).",
		}),
		IndexRows: f.NewGauge(prometheus.GaugeOpts{
			Name: "rorio_index_rows",
			Help: "Rows in the name index.",
		}),
		Warnings: f.NewCounterVec(prometheus.CounterOpts{
			Name: "rorio_warnings_total",
			Help: "Recoverable problems found during the build, by kind.",
		}, []string{"kind"}),
		Duration: f.NewGauge(prometheus.GaugeOpts{
			Name: "rorio_build_duration_seconds",
			Help: "Wall time of the last build.",
		}),
		Success: f.NewGauge(prometheus.GaugeOpts{
			Name: "rorio_build_success",
			Help: "1 if the last build committed its outputs, 0 otherwise.",
		}),
		LastSuccess: f.NewGauge(prometheus.GaugeOpts{
			Name: "rorio_build_last_success_timestamp_seconds",
			Help: "Unix time of the last successful build.",
		}),
		OutputBytes: f.NewGaugeVec(prometheus.GaugeOpts{
			Name: "rorio_output_bytes",
			Help: "Size of each committed output file.",
		}, []string{"file"}),
	}
}

// Registry returns the registry the metrics are registered on.
func (b *Build) Registry() *prometheus.Registry {
	return b.registry
}

// Observe records a finished build. rep may be nil when the build failed
// before parsing.
func (b *Build) Observe(rep *report.Report, duration time.Duration, err error) {
	b.Duration.Set(duration.Seconds())
	if err != nil {
		b.Success.Set(0)
	} else {
		b.Success.Set(1)
		b.LastSuccess.SetToCurrentTime()
	}
	if rep == nil {
		return
	}

	c := rep.Counters
	b.RecordsRead.Add(float64(c.RecordsRead))
	b.RecordsSkipped.Add(float64(c.RecordsSkipped))
	b.EdgesDropped.Add(float64(c.EdgesDropped))
	b.Organizations.Set(float64(c.Organizations))
	b.Cities.Set(float64(c.Cities))
	b.Edges.Set(float64(c.Edges))
	b.IndexRows.Set(float64(c.IndexRows))
	for kind, n := range rep.CountsByKind() {
		b.Warnings.WithLabelValues(string(kind)).Add(float64(n))
	}
}

// ObserveOutput records the size of a committed output file.
func (b *Build) ObserveOutput(file string, size int64) {
	b.OutputBytes.WithLabelValues(file).Set(float64(size))
}

// WriteTextfile writes the registry to path atomically.
func (b *Build) WriteTextfile(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, b.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}
