// Package config provides configuration loading and management for rorio.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/c360studio/rorio/export"
	"github.com/c360studio/rorio/ontology"
)

// DefaultSourceURL is the registry release the ontology was first built from.
const DefaultSourceURL = "https://zenodo.org/record/7448410/files/v1.17.1-2022-12-16-ror-data.zip?download=1"

// Config represents the complete rorio configuration
type Config struct {
	Source   SourceConfig   `yaml:"source"`
	Output   OutputConfig   `yaml:"output"`
	Ontology OntologyConfig `yaml:"ontology"`
	Index    IndexConfig    `yaml:"index"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Publish  PublishConfig  `yaml:"publish"`
	Log      LogConfig      `yaml:"log"`
}

// SourceConfig configures where the registry dump comes from
type SourceConfig struct {
	// URL is the dump location: an HTTPS URL, a local path or a file:// URL
	URL string `yaml:"url"`
	// CacheDir keeps downloaded archives between runs (empty = no cache)
	CacheDir string `yaml:"cache_dir"`
	// InnerPattern selects the record file inside a zip archive
	InnerPattern string `yaml:"inner_pattern"`
	// Exclude drops archive members matching this pattern
	Exclude string `yaml:"exclude"`
	// MaxSize bounds the download and the extracted file, in bytes
	MaxSize int64 `yaml:"max_size"`
	// Timeout is the maximum duration of the download
	Timeout time.Duration `yaml:"timeout"`
	// UserAgent is sent with the download request
	UserAgent string `yaml:"user_agent"`
	// AllowInsecure disables URL validation (plain HTTP, LAN mirrors)
	AllowInsecure bool `yaml:"allow_insecure"`
	// Attempts is the total number of download attempts, counting the first;
	// only transient failures are retried
	Attempts int `yaml:"attempts"`
}

// OutputConfig configures the generated artifacts
type OutputConfig struct {
	// Dir receives the output set
	Dir string `yaml:"dir"`
	// Basename is the file name stem of the ontology files
	Basename string `yaml:"basename"`
	// Formats lists the ontology formats to write (empty = all)
	Formats []string `yaml:"formats"`
}

// OntologyConfig configures the ontology header and edge policy
type OntologyConfig struct {
	IRI     string `yaml:"iri"`
	Title   string `yaml:"title"`
	Creator string `yaml:"creator"`
	License string `yaml:"license"`
	SeeAlso string `yaml:"see_also"`
	// Version overrides the version derived from the dump file name
	Version string `yaml:"version"`
	// InversePolicy is "materialize" or "derive"
	InversePolicy string `yaml:"inverse_policy"`
	// Profile is "minimal" or "bfo"
	Profile string `yaml:"profile"`
}

// IndexConfig configures the name index
type IndexConfig struct {
	// File is the index file name inside the output directory
	File string `yaml:"file"`
}

// MetricsConfig configures run metrics
type MetricsConfig struct {
	// Textfile receives Prometheus text format metrics after each run (empty = off)
	Textfile string `yaml:"textfile"`
}

// PublishConfig configures where `rorio publish` uploads artifacts
type PublishConfig struct {
	// Backend is "local", "s3" or "gcs"
	Backend string `yaml:"backend"`
	// Prefix is the key prefix under which versions are published
	Prefix string      `yaml:"prefix"`
	Local  LocalConfig `yaml:"local"`
	S3     S3Config    `yaml:"s3"`
	GCS    GCSConfig   `yaml:"gcs"`
}

// LocalConfig configures the filesystem publisher
type LocalConfig struct {
	Dir     string `yaml:"dir"`
	BaseURL string `yaml:"base_url"`
}

// S3Config configures the S3 publisher. Credentials fall back to the AWS
// default chain when the keys are empty.
type S3Config struct {
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
	ForcePathStyle  bool   `yaml:"force_path_style"`
}

// GCSConfig configures the Google Cloud Storage publisher
type GCSConfig struct {
	Bucket          string `yaml:"bucket"`
	CredentialsFile string `yaml:"credentials_file"`
	Endpoint        string `yaml:"endpoint"`
}

// LogConfig configures logging
type LogConfig struct {
	// Level is debug, info, warn or error
	Level string `yaml:"level"`
	// Format is text or json
	Format string `yaml:"format"`
}

// DefaultConfig returns a Config with sensible defaults
func DefaultConfig() *Config {
	opts := ontology.DefaultOptions()
	return &Config{
		Source: SourceConfig{
			URL:          DefaultSourceURL,
			CacheDir:     "",
			InnerPattern: "**/*ror-data.json",
			Exclude:      "**/*schema_v2*",
			MaxSize:      1 << 30,
			Timeout:      10 * time.Minute,
			UserAgent:    "rorio",
			Attempts:     3,
		},
		Output: OutputConfig{
			Dir:      "output",
			Basename: "rorio",
			Formats:  nil, // All
		},
		Ontology: OntologyConfig{
			IRI:           opts.IRI,
			Title:         opts.Title,
			Creator:       opts.Creator,
			License:       opts.License,
			SeeAlso:       opts.SeeAlso,
			InversePolicy: string(opts.InversePolicy),
			Profile:       string(opts.Profile),
		},
		Index: IndexConfig{
			File: "rorio.gilda.tsv.gz",
		},
		Publish: PublishConfig{
			Backend: "local",
			Prefix:  "rorio",
			Local:   LocalConfig{Dir: "dist"},
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// Validate checks that the configuration is valid
func (c *Config) Validate() error {
	if c.Source.URL == "" {
		return fmt.Errorf("source.url is required")
	}
	if c.Source.MaxSize <= 0 {
		return fmt.Errorf("source.max_size must be positive")
	}
	if c.Source.Attempts < 1 {
		return fmt.Errorf("source.attempts must be at least 1")
	}
	if c.Output.Dir == "" {
		return fmt.Errorf("output.dir is required")
	}
	if c.Output.Basename == "" || strings.ContainsAny(c.Output.Basename, `/\`) {
		return fmt.Errorf("output.basename must be a plain file name")
	}
	for _, f := range c.Output.Formats {
		if _, err := export.ParseFormat(f); err != nil {
			return fmt.Errorf("output.formats: %w", err)
		}
	}
	if c.Index.File == "" || strings.ContainsAny(c.Index.File, `/\`) {
		return fmt.Errorf("index.file must be a plain file name")
	}
	if _, err := ontology.ParseInversePolicy(c.Ontology.InversePolicy); err != nil {
		return fmt.Errorf("ontology.inverse_policy: %w", err)
	}
	if _, err := ontology.ParseProfile(c.Ontology.Profile); err != nil {
		return fmt.Errorf("ontology.profile: %w", err)
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("log.level must be debug, info, warn or error")
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json")
	}
	return nil
}

// ValidatePublish checks the publish section for the selected backend
func (c *Config) ValidatePublish() error {
	switch c.Publish.Backend {
	case "local":
		if c.Publish.Local.Dir == "" {
			return fmt.Errorf("publish.local.dir is required")
		}
	case "s3":
		if c.Publish.S3.Bucket == "" {
			return fmt.Errorf("publish.s3.bucket is required")
		}
	case "gcs":
		if c.Publish.GCS.Bucket == "" {
			return fmt.Errorf("publish.gcs.bucket is required")
		}
	default:
		return fmt.Errorf("publish.backend must be local, s3 or gcs, got %q", c.Publish.Backend)
	}
	return nil
}

// OutputFormats returns the configured formats, all formats when none are set
func (c *Config) OutputFormats() []export.Format {
	if len(c.Output.Formats) == 0 {
		return export.Formats()
	}
	out := make([]export.Format, 0, len(c.Output.Formats))
	for _, f := range c.Output.Formats {
		out = append(out, export.Format(f))
	}
	return out
}

// LoadFromFile loads configuration from a YAML file on top of the defaults.
// Only keys present in the file change the defaults.
func LoadFromFile(path string) (*Config, error) {
	config := DefaultConfig()
	if err := decodeFile(path, config); err != nil {
		return nil, err
	}
	return config, nil
}

// decodeFile unmarshals a YAML file into config.
func decodeFile(path string, config *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}
	return nil
}

// SaveToFile saves configuration to a YAML file
func (c *Config) SaveToFile(path string) error {
	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
