// Package pipeline runs one complete build: fetch the registry dump, parse
// it, build the ontology, write every output into a staging directory,
// verify the outputs by reading them back, then swap the staging directory
// into place. A failed run leaves the previous output set untouched.
package pipeline

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/c360studio/rorio/config"
	"github.com/c360studio/rorio/export"
	"github.com/c360studio/rorio/fetch"
	"github.com/c360studio/rorio/index"
	"github.com/c360studio/rorio/metrics"
	"github.com/c360studio/rorio/ontology"
	"github.com/c360studio/rorio/report"
	"github.com/c360studio/rorio/ror"
)

// ErrVerification is returned when an output does not read back to the
// ontology that was written.
var ErrVerification = errors.New("output verification failed")

// Options carries per-invocation settings that are not part of the config.
type Options struct {
	// Refresh ignores a cached dump
	Refresh bool
	Logger  *slog.Logger
	// Metrics receives the run's counters; a fresh set is created when nil
	Metrics *metrics.Build
}

// Artifact is one committed output file.
type Artifact struct {
	Name     string
	Path     string
	Size     int64
	Checksum string
	// Format is empty for the name index
	Format export.Format
}

// Result describes a finished run.
type Result struct {
	Version   string
	DumpName  string
	FromCache bool
	Report    *report.Report
	Artifacts []Artifact
	Duration  time.Duration
}

// Run executes a build with cfg. The report is returned with the result;
// recoverable problems never fail a run.
func Run(ctx context.Context, cfg *config.Config, opts Options) (*Result, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	m := opts.Metrics
	if m == nil {
		m = metrics.New()
	}

	start := time.Now()
	rep := report.New()
	res, err := run(ctx, cfg, opts.Refresh, rep, logger)
	duration := time.Since(start)

	if res != nil {
		res.Duration = duration
		for _, a := range res.Artifacts {
			m.ObserveOutput(a.Name, a.Size)
		}
	}
	m.Observe(rep, duration, err)

	if cfg.Metrics.Textfile != "" {
		if werr := m.WriteTextfile(cfg.Metrics.Textfile); werr != nil {
			logger.Warn("Failed to write metrics textfile", "path", cfg.Metrics.Textfile, "error", werr)
		}
	}

	if err != nil {
		return nil, err
	}
	return res, nil
}

func run(ctx context.Context, cfg *config.Config, refresh bool, rep *report.Report, logger *slog.Logger) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	fetcher := fetch.New(fetch.Options{
		Timeout:       cfg.Source.Timeout,
		UserAgent:     cfg.Source.UserAgent,
		MaxSize:       cfg.Source.MaxSize,
		CacheDir:      cfg.Source.CacheDir,
		Refresh:       refresh,
		AllowInsecure: cfg.Source.AllowInsecure,
		Retry:         retryConfig(cfg.Source.Attempts),
		Logger:        logger,
	})
	dump, err := fetcher.FetchDump(ctx, cfg.Source.URL, cfg.Source.InnerPattern, cfg.Source.Exclude)
	if err != nil {
		return nil, fmt.Errorf("fetch dump: %w", err)
	}
	logger.Info("Dump ready",
		"name", dump.Name,
		"version", dump.Version,
		"bytes", len(dump.Data),
		"from_cache", dump.FromCache)

	records, err := ror.Parse(bytes.NewReader(dump.Data), rep)
	if err != nil {
		return nil, fmt.Errorf("parse dump: %w", err)
	}
	dump.Data = nil

	buildOpts, err := OntologyOptions(cfg, dump)
	if err != nil {
		return nil, err
	}
	if buildOpts.Version == "" {
		logger.Warn("No version for this build; set ontology.version or use a release dump name", "dump", dump.Name)
	}

	ont := ontology.NewBuilder(buildOpts, logger).Build(records, rep)

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	artifacts, err := writeOutputs(cfg, ont, rep, logger)
	if err != nil {
		return nil, err
	}

	rep.Log(logger)
	return &Result{
		Version:   buildOpts.Version,
		DumpName:  dump.Name,
		FromCache: dump.FromCache,
		Report:    rep,
		Artifacts: artifacts,
	}, nil
}

// retryConfig keeps the default backoff and sets the total attempt count.
func retryConfig(attempts int) fetch.RetryConfig {
	rc := fetch.DefaultRetryConfig()
	rc.MaxAttempts = max(attempts, 1)
	return rc
}

// OntologyOptions maps the ontology section of cfg to builder options. The
// configured version wins over the one derived from the dump name.
func OntologyOptions(cfg *config.Config, dump *fetch.Dump) (ontology.Options, error) {
	policy, err := ontology.ParseInversePolicy(cfg.Ontology.InversePolicy)
	if err != nil {
		return ontology.Options{}, err
	}
	profile, err := ontology.ParseProfile(cfg.Ontology.Profile)
	if err != nil {
		return ontology.Options{}, err
	}

	opts := ontology.Options{
		IRI:           cfg.Ontology.IRI,
		Version:       cfg.Ontology.Version,
		Title:         cfg.Ontology.Title,
		Creator:       cfg.Ontology.Creator,
		License:       cfg.Ontology.License,
		SeeAlso:       cfg.Ontology.SeeAlso,
		InversePolicy: policy,
		Profile:       profile,
	}
	if opts.Version == "" && dump != nil {
		opts.Version = dump.Version
	}
	if !fetch.IsLocal(cfg.Source.URL) {
		opts.Source = cfg.Source.URL
	}
	return opts, nil
}

// writeOutputs writes, verifies and commits the output set.
func writeOutputs(cfg *config.Config, ont *ontology.Ontology, rep *report.Report, logger *slog.Logger) ([]Artifact, error) {
	outDir := filepath.Clean(cfg.Output.Dir)
	parent := filepath.Dir(outDir)
	if err := os.MkdirAll(parent, 0755); err != nil {
		return nil, fmt.Errorf("create output parent: %w", err)
	}

	staging, err := os.MkdirTemp(parent, "."+filepath.Base(outDir)+".staging-*")
	if err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}
	defer os.RemoveAll(staging)
	if err := os.Chmod(staging, 0755); err != nil {
		return nil, fmt.Errorf("create staging directory: %w", err)
	}

	formats := cfg.OutputFormats()
	seen := make(map[string]bool, len(formats)+1)
	var artifacts []Artifact

	for _, format := range formats {
		name := export.FileName(cfg.Output.Basename, format)
		if seen[name] {
			continue
		}
		seen[name] = true

		a, err := writeFile(staging, name, func(w io.Writer) error {
			return export.Write(w, format, ont)
		})
		if err != nil {
			return nil, fmt.Errorf("write %s: %w", format, err)
		}
		a.Format = format
		artifacts = append(artifacts, a)
		logger.Debug("Wrote ontology", "format", string(format), "bytes", a.Size)
	}

	if seen[cfg.Index.File] {
		return nil, fmt.Errorf("index file %s collides with an ontology file", cfg.Index.File)
	}
	a, err := writeFile(staging, cfg.Index.File, func(w io.Writer) error {
		_, err := index.Generate(w, ont, rep)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("write index: %w", err)
	}
	artifacts = append(artifacts, a)

	if err := verify(staging, ont, artifacts, rep.Counters.IndexRows); err != nil {
		return nil, err
	}

	if err := commit(staging, outDir, logger); err != nil {
		return nil, fmt.Errorf("commit outputs: %w", err)
	}

	for i := range artifacts {
		artifacts[i].Path = filepath.Join(outDir, artifacts[i].Name)
		logger.Info("Output committed",
			"file", artifacts[i].Path,
			"bytes", artifacts[i].Size,
			"sha256", artifacts[i].Checksum)
	}
	return artifacts, nil
}

// writeFile writes one output and records its size and checksum.
func writeFile(dir, name string, write func(io.Writer) error) (Artifact, error) {
	path := filepath.Join(dir, name)
	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0644)
	if err != nil {
		return Artifact{}, err
	}

	hasher := sha256.New()
	counter := &countingWriter{w: io.MultiWriter(f, hasher)}
	err = write(counter)
	if err == nil {
		err = f.Sync()
	}
	if cerr := f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return Artifact{}, err
	}

	return Artifact{
		Name:     name,
		Path:     path,
		Size:     counter.n,
		Checksum: hex.EncodeToString(hasher.Sum(nil)),
	}, nil
}

type countingWriter struct {
	w io.Writer
	n int64
}

func (c *countingWriter) Write(p []byte) (int, error) {
	n, err := c.w.Write(p)
	c.n += int64(n)
	return n, err
}

// verify reads every staged ontology file back and compares it with the
// built ontology, and checks the index row count.
func verify(staging string, ont *ontology.Ontology, artifacts []Artifact, indexRows int) error {
	want := export.SummaryOf(ont)
	got := make(map[export.Format]*export.Summary)

	for _, a := range artifacts {
		f, err := os.Open(filepath.Join(staging, a.Name))
		if err != nil {
			return fmt.Errorf("%w: %w", ErrVerification, err)
		}

		if a.Format == "" {
			rows, err := index.Read(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("%w: %s: %w", ErrVerification, a.Name, err)
			}
			if len(rows) != indexRows {
				return fmt.Errorf("%w: %s has %d rows, wrote %d", ErrVerification, a.Name, len(rows), indexRows)
			}
			continue
		}

		summary, err := export.Read(f, a.Format)
		f.Close()
		if err != nil {
			return fmt.Errorf("%w: %s: %w", ErrVerification, a.Name, err)
		}
		got[a.Format] = summary
	}

	if err := export.Verify(want, got); err != nil {
		return fmt.Errorf("%w: %w", ErrVerification, err)
	}
	return nil
}

// removeAll is replaced in tests.
var removeAll = os.RemoveAll

// commit swaps staging into dir. The previous dir is kept aside until the
// swap succeeded and restored otherwise. Once the swap succeeded the build is
// committed; failing to remove the old set only logs a warning.
func commit(staging, dir string, logger *slog.Logger) error {
	backup := ""
	info, err := os.Stat(dir)
	switch {
	case err == nil:
		if !info.IsDir() {
			return fmt.Errorf("%s exists and is not a directory", dir)
		}
		backup = filepath.Join(filepath.Dir(dir), "."+filepath.Base(dir)+".previous")
		if err := removeAll(backup); err != nil {
			return err
		}
		if err := os.Rename(dir, backup); err != nil {
			return err
		}
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}

	if err := os.Rename(staging, dir); err != nil {
		if backup != "" {
			_ = os.Rename(backup, dir)
		}
		return err
	}
	if backup != "" {
		if err := removeAll(backup); err != nil {
			logger.Warn("Failed to remove previous output set", "path", backup, "error", err)
		}
	}
	return nil
}

// OutputVersion reads the version recorded in an existing output set,
// preferring the smaller text formats.
func OutputVersion(cfg *config.Config) (string, error) {
	order := []export.Format{export.FormatOBO, export.FormatOFN, export.FormatJSON, export.FormatOWL}
	for _, format := range order {
		path := filepath.Join(cfg.Output.Dir, export.FileName(cfg.Output.Basename, format))
		f, err := os.Open(path)
		if errors.Is(err, fs.ErrNotExist) {
			continue
		}
		if err != nil {
			return "", err
		}
		summary, err := export.Read(f, format)
		f.Close()
		if err != nil {
			return "", fmt.Errorf("read %s: %w", path, err)
		}
		if v := strings.TrimSpace(summary.Version); v != "" {
			return v, nil
		}
	}
	return "", fmt.Errorf("no versioned ontology in %s", cfg.Output.Dir)
}
