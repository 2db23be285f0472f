package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/c360studio/rorio/config"
	"github.com/c360studio/rorio/pipeline"
	"github.com/c360studio/rorio/storage"
)

// newLogger builds the run logger. JSON output is meant for log shippers,
// text for terminals; source locations are added at debug level.
func newLogger(w io.Writer, format, level string) *slog.Logger {
	var lvl slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lvl = slog.LevelDebug
	case "warn", "warning":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{
		Level:     lvl,
		AddSource: lvl == slog.LevelDebug,
	}

	var handler slog.Handler
	if strings.ToLower(format) == "json" {
		handler = slog.NewJSONHandler(w, opts)
	} else {
		handler = slog.NewTextHandler(w, opts)
	}
	return slog.New(handler)
}

// loadConfig loads the layered configuration, applies command line
// overrides and returns it with a logger tagged with a fresh run id.
func loadConfig(cmd *cobra.Command, f *flags) (*config.Config, *slog.Logger, error) {
	bootstrap := newLogger(cmd.ErrOrStderr(), f.logFormat, f.logLevel)

	cfg, err := config.NewLoader(bootstrap).Load(f.configPath)
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}

	if f.outputDir != "" {
		cfg.Output.Dir = f.outputDir
	}
	if f.logLevel != "" {
		cfg.Log.Level = strings.ToLower(f.logLevel)
	}
	if f.logFormat != "" {
		cfg.Log.Format = strings.ToLower(f.logFormat)
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger := newLogger(cmd.ErrOrStderr(), cfg.Log.Format, cfg.Log.Level).
		With("run_id", uuid.New().String())
	slog.SetDefault(logger)
	return cfg, logger, nil
}

func runBuild(cmd *cobra.Command, f *flags) error {
	cfg, logger, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}

	logger.Info("Starting build",
		"version", Version,
		"source", cfg.Source.URL,
		"output", cfg.Output.Dir,
		"inverse_policy", cfg.Ontology.InversePolicy,
		"profile", cfg.Ontology.Profile)

	res, err := pipeline.Run(cmd.Context(), cfg, pipeline.Options{
		Refresh: f.refresh,
		Logger:  logger,
	})
	if err != nil {
		return fmt.Errorf("build failed: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, a := range res.Artifacts {
		fmt.Fprintf(out, "%s  %s\n", a.Checksum, a.Path)
	}
	logger.Info("Build complete",
		"ontology_version", res.Version,
		"artifacts", len(res.Artifacts),
		"warnings", len(res.Report.Warnings),
		"duration", res.Duration.String())
	return nil
}

func runPublish(cmd *cobra.Command, f *flags, release, backend string, overwrite bool) error {
	cfg, logger, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}
	if backend != "" {
		cfg.Publish.Backend = backend
	}
	if err := cfg.ValidatePublish(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	if release == "" {
		release, err = pipeline.OutputVersion(cfg)
		if err != nil {
			return fmt.Errorf("determine release: %w", err)
		}
	}

	store, err := storage.New(&cfg.Publish)
	if err != nil {
		return fmt.Errorf("create storage backend: %w", err)
	}
	if closer, ok := store.(io.Closer); ok {
		defer closer.Close()
	}

	logger.Info("Publishing",
		"backend", cfg.Publish.Backend,
		"prefix", cfg.Publish.Prefix,
		"release", release,
		"dir", cfg.Output.Dir)

	published, err := storage.NewPublisher(store, storage.PublisherOptions{
		Prefix:    cfg.Publish.Prefix,
		Overwrite: overwrite,
		Logger:    logger,
	}).Publish(cmd.Context(), cfg.Output.Dir, release)
	if err != nil {
		return fmt.Errorf("publish failed: %w", err)
	}

	out := cmd.OutOrStdout()
	for _, p := range published {
		fmt.Fprintf(out, "%s  %s\n", p.Checksum, p.VersionKey)
	}
	return nil
}

func runConfigShow(cmd *cobra.Command, f *flags) error {
	cfg, _, err := loadConfig(cmd, f)
	if err != nil {
		return err
	}
	if cfg.Publish.S3.SecretAccessKey != "" {
		cfg.Publish.S3.SecretAccessKey = "REDACTED"
	}
	enc := yaml.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent(2)
	if err := enc.Encode(cfg); err != nil {
		return fmt.Errorf("encode config: %w", err)
	}
	return enc.Close()
}

func runConfigInit(cmd *cobra.Command) error {
	logger := newLogger(cmd.ErrOrStderr(), "text", "info")
	if err := config.NewLoader(logger).EnsureUserConfig(); err != nil {
		return fmt.Errorf("create user config: %w", err)
	}
	home, _ := os.UserHomeDir()
	fmt.Fprintf(cmd.OutOrStdout(), "user config: %s/%s/%s\n", home, config.UserConfigDir, config.UserConfigFile)
	return nil
}
