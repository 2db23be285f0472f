package metrics

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/rorio/report"
)

func sampleReport() *report.Report {
	rep := report.New()
	rep.Counters.RecordsRead = 10
	rep.Counters.Organizations = 8
	rep.Counters.Cities = 3
	rep.Counters.Edges = 12
	rep.Counters.IndexRows = 20
	rep.SkipRecord(report.KindMalformedRecord, "", "missing id")
	rep.SkipRecord(report.KindDuplicateRecord, "r1", "duplicate")
	rep.DropEdge(report.KindDanglingReference, "r2", "target r999 missing")
	return rep
}

func TestObserveSuccess(t *testing.T) {
	b := New()
	b.Observe(sampleReport(), 1500*time.Millisecond, nil)

	assert.Equal(t, 10.0, testutil.ToFloat64(b.RecordsRead))
	assert.Equal(t, 2.0, testutil.ToFloat64(b.RecordsSkipped))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.EdgesDropped))
	assert.Equal(t, 8.0, testutil.ToFloat64(b.Organizations))
	assert.Equal(t, 12.0, testutil.ToFloat64(b.Edges))
	assert.Equal(t, 20.0, testutil.ToFloat64(b.IndexRows))
	assert.Equal(t, 1.0, testutil.ToFloat64(b.Success))
	assert.Equal(t, 1.5, testutil.ToFloat64(b.Duration))
	assert.Greater(t, testutil.ToFloat64(b.LastSuccess), 0.0)
	assert.Equal(t, 1.0, testutil.ToFloat64(b.Warnings.WithLabelValues("dangling_reference")))
	assert.Equal(t, 3, testutil.CollectAndCount(b.Warnings))
}

func TestObserveFailure(t *testing.T) {
	b := New()
	b.Observe(nil, time.Second, errors.New("dataset unavailable"))

	assert.Equal(t, 0.0, testutil.ToFloat64(b.Success))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.LastSuccess))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RecordsRead))
}

func TestWriteTextfile(t *testing.T) {
	b := New()
	b.Observe(sampleReport(), time.Second, nil)
	b.ObserveOutput("rorio.owl", 4096)

	path := filepath.Join(t.TempDir(), "textfile", "rorio.prom")
	require.NoError(t, b.WriteTextfile(path))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	out := string(data)

	assert.Contains(t, out, "rorio_records_read_total 10")
	assert.Contains(t, out, `rorio_warnings_total{kind="duplicate_record"} 1`)
	assert.Contains(t, out, `rorio_output_bytes{file="rorio.owl"} 4096`)
	assert.True(t, strings.Contains(out, "# HELP rorio_build_success"))
}

func TestRegistriesAreIndependent(t *testing.T) {
	a, b := New(), New()
	a.RecordsRead.Add(5)
	assert.Equal(t, 0.0, testutil.ToFloat64(b.RecordsRead))
	assert.NotSame(t, a.Registry(), b.Registry())
}
