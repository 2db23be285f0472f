package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

const (
	// ProjectConfigFile is the name of the project-level config file
	ProjectConfigFile = "rorio.yaml"
	// UserConfigDir is the directory for user-level config
	UserConfigDir = ".config/rorio"
	// UserConfigFile is the name of the user-level config file
	UserConfigFile = "config.yaml"
	// EnvPrefix prefixes every environment override
	EnvPrefix = "RORIO_"
)

// envOverrides maps environment variables (without EnvPrefix) to config fields
var envOverrides = map[string]func(*Config, string) error{
	"SOURCE_URL":       func(c *Config, v string) error { c.Source.URL = v; return nil },
	"CACHE_DIR":        func(c *Config, v string) error { c.Source.CacheDir = v; return nil },
	"MAX_SIZE":         func(c *Config, v string) error { return parseInt(&c.Source.MaxSize, v) },
	"TIMEOUT":          func(c *Config, v string) error { return parseDuration(&c.Source.Timeout, v) },
	"ALLOW_INSECURE":   func(c *Config, v string) error { return parseBool(&c.Source.AllowInsecure, v) },
	"ATTEMPTS":         func(c *Config, v string) error { return parseCount(&c.Source.Attempts, v) },
	"OUTPUT_DIR":       func(c *Config, v string) error { c.Output.Dir = v; return nil },
	"FORMATS":          func(c *Config, v string) error { c.Output.Formats = splitList(v); return nil },
	"VERSION":          func(c *Config, v string) error { c.Ontology.Version = v; return nil },
	"INVERSE_POLICY":   func(c *Config, v string) error { c.Ontology.InversePolicy = v; return nil },
	"PROFILE":          func(c *Config, v string) error { c.Ontology.Profile = v; return nil },
	"METRICS_TEXTFILE": func(c *Config, v string) error { c.Metrics.Textfile = v; return nil },
	"PUBLISH_BACKEND":  func(c *Config, v string) error { c.Publish.Backend = v; return nil },
	"PUBLISH_PREFIX":   func(c *Config, v string) error { c.Publish.Prefix = v; return nil },
	"PUBLISH_DIR":      func(c *Config, v string) error { c.Publish.Local.Dir = v; return nil },
	"S3_BUCKET":        func(c *Config, v string) error { c.Publish.S3.Bucket = v; return nil },
	"S3_REGION":        func(c *Config, v string) error { c.Publish.S3.Region = v; return nil },
	"S3_ENDPOINT":      func(c *Config, v string) error { c.Publish.S3.Endpoint = v; return nil },
	"GCS_BUCKET":       func(c *Config, v string) error { c.Publish.GCS.Bucket = v; return nil },
	"GCS_CREDENTIALS":  func(c *Config, v string) error { c.Publish.GCS.CredentialsFile = v; return nil },
	"LOG_LEVEL":        func(c *Config, v string) error { c.Log.Level = v; return nil },
	"LOG_FORMAT":       func(c *Config, v string) error { c.Log.Format = v; return nil },
}

// Loader handles configuration loading with layered precedence
type Loader struct {
	logger *slog.Logger

	homeDir string
	workDir string
	getenv  func(string) string
}

// NewLoader creates a new configuration loader
func NewLoader(logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	home, _ := os.UserHomeDir()
	cwd, _ := os.Getwd()
	return &Loader{
		logger:  logger,
		homeDir: home,
		workDir: cwd,
		getenv:  os.Getenv,
	}
}

// Load loads configuration with layered precedence:
// 1. Default config
// 2. User config (~/.config/rorio/config.yaml)
// 3. Project config (rorio.yaml in current or parent directories)
// 4. Environment variables (RORIO_*)
// 5. Explicit config file (--config), if given
func (l *Loader) Load(explicitPath string) (*Config, error) {
	config := DefaultConfig()

	// Load user config
	if userConfigPath := l.userConfigPath(); userConfigPath != "" {
		if err := decodeLayer(userConfigPath, config); err == nil {
			l.logger.Debug("Loaded user config", slog.String("path", userConfigPath))
		} else if !errors.Is(err, fs.ErrNotExist) {
			l.logger.Warn("Failed to load user config", slog.String("path", userConfigPath), slog.String("error", err.Error()))
		}
	}

	// Load project config
	if projectConfigPath := l.findProjectConfig(); projectConfigPath != "" {
		if err := decodeLayer(projectConfigPath, config); err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded project config", slog.String("path", projectConfigPath))
	} else {
		l.logger.Debug("No project config found")
	}

	if err := l.applyEnv(config); err != nil {
		return nil, err
	}

	if explicitPath != "" {
		if err := decodeLayer(explicitPath, config); err != nil {
			return nil, err
		}
		l.logger.Debug("Loaded config file", slog.String("path", explicitPath))
	}

	// Validate final config
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// decodeLayer decodes a YAML file on top of config. Keys the file sets win,
// including false and zero; absent keys keep the lower layer. A file that
// fails to decode leaves config unchanged.
func decodeLayer(path string, config *Config) error {
	next := *config
	if err := decodeFile(path, &next); err != nil {
		return err
	}
	*config = next
	return nil
}

// EnsureUserConfig creates the user config file with defaults if it doesn't exist
func (l *Loader) EnsureUserConfig() error {
	userConfigPath := l.userConfigPath()
	if userConfigPath == "" {
		return fmt.Errorf("no home directory")
	}

	// Check if it already exists
	if _, err := os.Stat(userConfigPath); err == nil {
		return nil // Already exists
	}

	config := DefaultConfig()
	if err := config.SaveToFile(userConfigPath); err != nil {
		return err
	}

	l.logger.Info("Created default user config", slog.String("path", userConfigPath))
	return nil
}

// applyEnv applies RORIO_* overrides.
func (l *Loader) applyEnv(config *Config) error {
	for name, apply := range envOverrides {
		v := l.getenv(EnvPrefix + name)
		if v == "" {
			continue
		}
		if err := apply(config, v); err != nil {
			return fmt.Errorf("%s%s: %w", EnvPrefix, name, err)
		}
		l.logger.Debug("Applied environment override", slog.String("variable", EnvPrefix+name))
	}
	return nil
}

// userConfigPath returns the path to the user config file
func (l *Loader) userConfigPath() string {
	if l.homeDir == "" {
		return ""
	}
	return filepath.Join(l.homeDir, UserConfigDir, UserConfigFile)
}

// findProjectConfig searches for rorio.yaml in current and parent directories
func (l *Loader) findProjectConfig() string {
	if l.workDir == "" {
		return ""
	}

	dir := l.workDir
	for {
		configPath := filepath.Join(dir, ProjectConfigFile)
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}

		// Move to parent directory
		parent := filepath.Dir(dir)
		if parent == dir {
			// Reached root
			break
		}
		dir = parent
	}

	return ""
}

func parseInt(dst *int64, v string) error {
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func parseCount(dst *int, v string) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func parseDuration(dst *time.Duration, v string) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}

func parseBool(dst *bool, v string) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, f := range strings.Split(v, ",") {
		if f = strings.TrimSpace(f); f != "" {
			out = append(out, f)
		}
	}
	return out
}
