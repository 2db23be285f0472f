package pipeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/klauspost/compress/zip"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/c360studio/rorio/config"
	"github.com/c360studio/rorio/export"
	"github.com/c360studio/rorio/fetch"
	"github.com/c360studio/rorio/index"
	"github.com/c360studio/rorio/metrics"
	"github.com/c360studio/rorio/ontology"
	"github.com/c360studio/rorio/report"
	"github.com/c360studio/rorio/ror"
	"github.com/c360studio/rorio/vocabulary/rorio"
)

const dumpName = "v1.17.1-2022-12-16-ror-data.json"

const twoRecords = `[
  {"id": "https://ror.org/r1", "name": "Alpha University",
   "relationships": [{"type": "Child", "id": "https://ror.org/r2", "label": "Alpha Lab"}]},
  {"id": "https://ror.org/r2", "name": "Alpha Lab"}
]`

const danglingRecord = `[
  {"id": "https://ror.org/r1", "name": "Alpha University",
   "relationships": [{"type": "Child", "id": "https://ror.org/r999"}]}
]`

// setup writes the dump into its own directory and returns a config that
// builds from it into <tmp>/out/output.
func setup(t *testing.T, dump string) *config.Config {
	t.Helper()
	src := filepath.Join(t.TempDir(), dumpName)
	require.NoError(t, os.WriteFile(src, []byte(dump), 0644))

	cfg := config.DefaultConfig()
	cfg.Source.URL = src
	cfg.Output.Dir = filepath.Join(t.TempDir(), "out", "output")
	return cfg
}

func readSummary(t *testing.T, cfg *config.Config, format export.Format) *export.Summary {
	t.Helper()
	f, err := os.Open(filepath.Join(cfg.Output.Dir, export.FileName(cfg.Output.Basename, format)))
	require.NoError(t, err)
	defer f.Close()
	s, err := export.Read(f, format)
	require.NoError(t, err)
	return s
}

func hiddenEntries(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var hidden []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), ".") {
			hidden = append(hidden, e.Name())
		}
	}
	return hidden
}

func TestRunTwoRecords(t *testing.T) {
	cfg := setup(t, twoRecords)

	res, err := Run(context.Background(), cfg, Options{})
	require.NoError(t, err)

	assert.Equal(t, "v1.17.1-2022-12-16", res.Version)
	assert.Equal(t, dumpName, res.DumpName)
	assert.Equal(t, 2, res.Report.Counters.Organizations)
	assert.Equal(t, 0, res.Report.Counters.EdgesDropped)
	assert.Equal(t, 2, res.Report.Counters.IndexRows)

	var names []string
	for _, a := range res.Artifacts {
		names = append(names, a.Name)
		data, err := os.ReadFile(a.Path)
		require.NoError(t, err)
		sum := sha256.Sum256(data)
		assert.Equal(t, hex.EncodeToString(sum[:]), a.Checksum, a.Name)
		assert.Equal(t, int64(len(data)), a.Size, a.Name)
	}
	assert.Equal(t, []string{"rorio.json", "rorio.obo", "rorio.ofn", "rorio.owl", "rorio.gilda.tsv.gz"}, names)

	r1, r2 := ontology.IndividualIRI("r1"), ontology.IndividualIRI("r2")
	for _, format := range export.Formats() {
		s := readSummary(t, cfg, format)
		assert.Equal(t, "v1.17.1-2022-12-16", s.Version, format)
		assert.Contains(t, s.Edges, ontology.Edge{Subject: r1, Predicate: rorio.PropHasPart, Object: r2}, format)
		assert.Contains(t, s.Edges, ontology.Edge{Subject: r2, Predicate: rorio.PropPartOf, Object: r1}, format)
		assert.Len(t, s.Edges, 2, format)
	}

	f, err := os.Open(filepath.Join(cfg.Output.Dir, cfg.Index.File))
	require.NoError(t, err)
	defer f.Close()
	rows, err := index.Read(f)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Alpha University", rows[0].Text)
	assert.Equal(t, "r1", rows[0].ID)
	assert.Equal(t, "r2", rows[1].ID)

	assert.Empty(t, hiddenEntries(t, filepath.Dir(cfg.Output.Dir)))
}

func TestRunDanglingReference(t *testing.T) {
	cfg := setup(t, danglingRecord)

	res, err := Run(context.Background(), cfg, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Report.Counters.EdgesDropped)
	assert.Equal(t, 1, res.Report.Count(report.KindDanglingReference))
	for _, format := range export.Formats() {
		s := readSummary(t, cfg, format)
		assert.Empty(t, s.Edges, format)
		assert.Contains(t, s.Entries, ontology.IndividualIRI("r1"), format)
	}
}

func TestRunUnusualRecordsAreRecoverable(t *testing.T) {
	cfg := setup(t, `[
  {"id": "https://ror.org/r1", "name": "Alpha\u0001 Institute",
   "relationships": [{"type": "Parent", "id": "r 1"}, {"type": "Child", "id": "https://ror.org/r2"}]},
  {"id": "https://ror.org/r2", "name": "Alpha Lab"},
  {"id": "https://ROR.org/r3", "name": "Mixed Case Namespace"}
]`)

	res, err := Run(context.Background(), cfg, Options{})
	require.NoError(t, err)

	assert.Equal(t, 1, res.Report.Counters.RecordsSkipped)
	assert.Equal(t, 1, res.Report.Counters.EdgesDropped)
	assert.Equal(t, 1, res.Report.Count(report.KindBadName))

	r1, r2 := ontology.IndividualIRI("r1"), ontology.IndividualIRI("r2")
	for _, format := range export.Formats() {
		s := readSummary(t, cfg, format)
		require.Contains(t, s.Entries, r1, format)
		assert.Equal(t, "Alpha Institute", s.Entries[r1].Label, format)
		assert.Len(t, s.Entries, 2, format)
		assert.Contains(t, s.Edges, ontology.Edge{Subject: r1, Predicate: rorio.PropHasPart, Object: r2}, format)
		assert.Len(t, s.Edges, 2, format)
	}
}

func TestRunFromZipArchive(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range map[string]string{
		"v1.17.1-2022-12-16-ror-data.json":           twoRecords,
		"v1.17.1-2022-12-16-ror-data_schema_v2.json": `[]`,
	} {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())

	cfg := setup(t, "")
	cfg.Source.URL = filepath.Join(t.TempDir(), "v1.17.1-2022-12-16-ror-data.zip")
	require.NoError(t, os.WriteFile(cfg.Source.URL, buf.Bytes(), 0644))

	res, err := Run(context.Background(), cfg, Options{})
	require.NoError(t, err)
	assert.Equal(t, dumpName, res.DumpName)
	assert.Equal(t, 2, res.Report.Counters.Organizations)
}

func TestRunUnparseableKeepsPreviousOutputs(t *testing.T) {
	cfg := setup(t, `{"not": "an array"}`)
	require.NoError(t, os.MkdirAll(cfg.Output.Dir, 0755))
	previous := filepath.Join(cfg.Output.Dir, "rorio.owl")
	require.NoError(t, os.WriteFile(previous, []byte("previous"), 0644))

	_, err := Run(context.Background(), cfg, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ror.ErrUnparseable))

	data, err := os.ReadFile(previous)
	require.NoError(t, err)
	assert.Equal(t, "previous", string(data))
	assert.Empty(t, hiddenEntries(t, filepath.Dir(cfg.Output.Dir)))
}

func TestRunMissingSource(t *testing.T) {
	cfg := setup(t, twoRecords)
	cfg.Source.URL = filepath.Join(t.TempDir(), "missing.json")

	_, err := Run(context.Background(), cfg, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, fetch.ErrUnavailable))
	_, statErr := os.Stat(cfg.Output.Dir)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestRunInvalidConfig(t *testing.T) {
	cfg := setup(t, twoRecords)
	cfg.Ontology.InversePolicy = "sometimes"

	_, err := Run(context.Background(), cfg, Options{})
	assert.Error(t, err)
}

func TestRunCancelled(t *testing.T) {
	cfg := setup(t, twoRecords)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, cfg, Options{})
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	_, statErr := os.Stat(cfg.Output.Dir)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
}

func TestRunReplacesPreviousOutputs(t *testing.T) {
	cfg := setup(t, twoRecords)
	require.NoError(t, os.MkdirAll(cfg.Output.Dir, 0755))
	stale := filepath.Join(cfg.Output.Dir, "stale.txt")
	require.NoError(t, os.WriteFile(stale, []byte("x"), 0644))

	_, err := Run(context.Background(), cfg, Options{})
	require.NoError(t, err)

	_, statErr := os.Stat(stale)
	assert.True(t, errors.Is(statErr, os.ErrNotExist))
	assert.Empty(t, hiddenEntries(t, filepath.Dir(cfg.Output.Dir)))

	info, err := os.Stat(cfg.Output.Dir)
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(0755), info.Mode().Perm())
}

func TestRunSucceedsWhenOldOutputsCannotBeRemoved(t *testing.T) {
	cfg := setup(t, twoRecords)
	_, err := Run(context.Background(), cfg, Options{})
	require.NoError(t, err)

	backup := filepath.Join(filepath.Dir(cfg.Output.Dir), "."+filepath.Base(cfg.Output.Dir)+".previous")
	removeAll = func(path string) error {
		if _, err := os.Stat(path); path == backup && err == nil {
			return errors.New("device busy")
		}
		return os.RemoveAll(path)
	}
	t.Cleanup(func() { removeAll = os.RemoveAll })

	m := metrics.New()
	res, err := Run(context.Background(), cfg, Options{Metrics: m})
	require.NoError(t, err)
	assert.Len(t, res.Artifacts, 5)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Success))

	_, err = os.Stat(backup)
	assert.NoError(t, err, "old output set is left behind")
	assert.FileExists(t, filepath.Join(cfg.Output.Dir, "rorio.owl"))
}

func TestRunDeterministic(t *testing.T) {
	cfg := setup(t, twoRecords)
	first, err := Run(context.Background(), cfg, Options{})
	require.NoError(t, err)

	cfg.Output.Dir = filepath.Join(t.TempDir(), "again")
	second, err := Run(context.Background(), cfg, Options{})
	require.NoError(t, err)

	require.Equal(t, len(first.Artifacts), len(second.Artifacts))
	for i := range first.Artifacts {
		assert.Equal(t, first.Artifacts[i].Checksum, second.Artifacts[i].Checksum, first.Artifacts[i].Name)
	}
}

func TestRunFormatSubset(t *testing.T) {
	cfg := setup(t, twoRecords)
	cfg.Output.Formats = []string{"obo"}
	cfg.Ontology.InversePolicy = "derive"

	res, err := Run(context.Background(), cfg, Options{})
	require.NoError(t, err)
	require.Len(t, res.Artifacts, 2)
	assert.Equal(t, export.FormatOBO, res.Artifacts[0].Format)

	s := readSummary(t, cfg, export.FormatOBO)
	assert.Equal(t, []ontology.Edge{{
		Subject:   ontology.IndividualIRI("r2"),
		Predicate: rorio.PropPartOf,
		Object:    ontology.IndividualIRI("r1"),
	}}, s.Edges)
}

func TestRunMetrics(t *testing.T) {
	cfg := setup(t, danglingRecord)
	cfg.Metrics.Textfile = filepath.Join(t.TempDir(), "metrics", "rorio.prom")
	m := metrics.New()

	_, err := Run(context.Background(), cfg, Options{Metrics: m})
	require.NoError(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Success))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.RecordsRead))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.EdgesDropped))

	data, err := os.ReadFile(cfg.Metrics.Textfile)
	require.NoError(t, err)
	assert.Contains(t, string(data), "rorio_build_success 1")
	assert.Contains(t, string(data), `rorio_warnings_total{kind="dangling_reference"} 1`)

	cfg.Source.URL = filepath.Join(t.TempDir(), "missing.json")
	_, err = Run(context.Background(), cfg, Options{Metrics: m})
	require.Error(t, err)
	assert.Equal(t, 0.0, testutil.ToFloat64(m.Success))
}

func TestOntologyOptions(t *testing.T) {
	cfg := config.DefaultConfig()
	dump := &fetch.Dump{Name: dumpName, Version: "v1.17.1-2022-12-16"}

	opts, err := OntologyOptions(cfg, dump)
	require.NoError(t, err)
	assert.Equal(t, "v1.17.1-2022-12-16", opts.Version)
	assert.Equal(t, config.DefaultSourceURL, opts.Source)
	assert.Equal(t, ontology.InverseMaterialize, opts.InversePolicy)

	cfg.Ontology.Version = "2023-01"
	cfg.Ontology.Profile = "bfo"
	cfg.Source.URL = "/data/dump.json"
	opts, err = OntologyOptions(cfg, dump)
	require.NoError(t, err)
	assert.Equal(t, "2023-01", opts.Version)
	assert.Empty(t, opts.Source)
	assert.Equal(t, ontology.ProfileBFO, opts.Profile)
}

func TestOutputVersion(t *testing.T) {
	cfg := setup(t, twoRecords)

	_, err := OutputVersion(cfg)
	assert.Error(t, err)

	_, err = Run(context.Background(), cfg, Options{})
	require.NoError(t, err)

	version, err := OutputVersion(cfg)
	require.NoError(t, err)
	assert.Equal(t, "v1.17.1-2022-12-16", version)
}
