package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/harrison/lfnorm/internal/logger"
)

// FileName is the config file looked up by LoadConfigFromDir.
const FileName = ".lfnorm.yaml"

// DefaultSymbolIncludes are the globs (relative to the root, slash-separated)
// selecting C/C++ sources under src/ or include/ directories.
var DefaultSymbolIncludes = []string{
	"{src,include}/**.{c,cpp,h}",
	"**/{src,include}/**.{c,cpp,h}",
}

// NormalizeConfig holds settings for the normalize command.
type NormalizeConfig struct {
	// ExcludeDirs lists directory names that are not descended into
	ExcludeDirs []string `yaml:"exclude_dirs"`

	// DryRun reports files that would change without writing them
	DryRun bool `yaml:"dry_run"`

	// AtomicWrite replaces files via temp file + rename instead of in-place truncation
	AtomicWrite bool `yaml:"atomic_write"`

	// SkipUnchanged avoids rewriting files whose bytes the transform leaves as-is
	SkipUnchanged bool `yaml:"skip_unchanged"`

	// Jobs is the number of files processed concurrently (1 = sequential)
	Jobs int `yaml:"jobs"`

	// ReportPath, if set, receives the run report as YAML
	ReportPath string `yaml:"report_path"`
}

// SymbolsConfig holds settings for the symbols command.
type SymbolsConfig struct {
	// Include is the list of globs selecting files to scan
	Include []string `yaml:"include"`

	// ExcludeDirs lists directory names that are not descended into
	ExcludeDirs []string `yaml:"exclude_dirs"`

	// SkipHidden skips directories whose name starts with "."
	SkipHidden bool `yaml:"skip_hidden"`

	// MaxDepth limits recursion depth (0 = unlimited, 1 = root only)
	MaxDepth int `yaml:"max_depth"`
}

// Config represents lfnorm configuration options
type Config struct {
	// Root is the directory to process (empty = current working directory)
	Root string `yaml:"root"`

	// LogLevel sets the logging verbosity (trace, debug, info, warn, error)
	LogLevel string `yaml:"log_level"`

	Normalize NormalizeConfig `yaml:"normalize"`
	Symbols   SymbolsConfig   `yaml:"symbols"`
}

// DefaultConfig returns a Config with default values
func DefaultConfig() *Config {
	return &Config{
		Root:     "",
		LogLevel: "info",
		Normalize: NormalizeConfig{
			Jobs: 1,
		},
		Symbols: SymbolsConfig{
			Include: append([]string(nil), DefaultSymbolIncludes...),
		},
	}
}

// LoadConfig loads configuration from the specified file path.
// Values present in the file override the defaults; absent keys keep them.
// A missing file yields the defaults without error. Unknown keys are rejected.
func LoadConfig(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	return cfg, nil
}

// LoadConfigFromDir loads configuration from .lfnorm.yaml in the specified directory
func LoadConfigFromDir(dir string) (*Config, error) {
	return LoadConfig(filepath.Join(dir, FileName))
}

// Overrides carries command-line values. Nil fields leave the config untouched.
type Overrides struct {
	Root          *string
	LogLevel      *string
	ExcludeDirs   []string
	DryRun        *bool
	AtomicWrite   *bool
	SkipUnchanged *bool
	Jobs          *int
	ReportPath    *string
	Include       []string
	SkipHidden    *bool
	MaxDepth      *int
}

// MergeWithFlags merges CLI flags into the configuration.
// Flags take precedence over config file settings. Exclude dirs are added to
// the configured list; a non-empty Include replaces the configured globs.
func (c *Config) MergeWithFlags(o Overrides) {
	if o.Root != nil {
		c.Root = *o.Root
	}
	if o.LogLevel != nil {
		c.LogLevel = *o.LogLevel
	}
	if len(o.ExcludeDirs) > 0 {
		c.Normalize.ExcludeDirs = append(c.Normalize.ExcludeDirs, o.ExcludeDirs...)
		c.Symbols.ExcludeDirs = append(c.Symbols.ExcludeDirs, o.ExcludeDirs...)
	}
	if o.DryRun != nil {
		c.Normalize.DryRun = *o.DryRun
	}
	if o.AtomicWrite != nil {
		c.Normalize.AtomicWrite = *o.AtomicWrite
	}
	if o.SkipUnchanged != nil {
		c.Normalize.SkipUnchanged = *o.SkipUnchanged
	}
	if o.Jobs != nil {
		c.Normalize.Jobs = *o.Jobs
	}
	if o.ReportPath != nil {
		c.Normalize.ReportPath = *o.ReportPath
	}
	if len(o.Include) > 0 {
		c.Symbols.Include = o.Include
	}
	if o.SkipHidden != nil {
		c.Symbols.SkipHidden = *o.SkipHidden
	}
	if o.MaxDepth != nil {
		c.Symbols.MaxDepth = *o.MaxDepth
	}
}

// ResolveRoot returns the configured root, or the current working directory
// when none is set.
func (c *Config) ResolveRoot() (string, error) {
	if c.Root != "" {
		return c.Root, nil
	}
	cwd, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("get working directory: %w", err)
	}
	return cwd, nil
}

// Validate validates the configuration values
func (c *Config) Validate() error {
	if !logger.IsValidLevel(c.LogLevel) {
		return fmt.Errorf("invalid log_level %q, must be one of: trace, debug, info, warn, error", c.LogLevel)
	}

	if c.Normalize.Jobs < 1 {
		return fmt.Errorf("normalize.jobs must be >= 1, got %d", c.Normalize.Jobs)
	}

	for _, dir := range c.Normalize.ExcludeDirs {
		if dir == "" || strings.ContainsRune(dir, '/') || strings.ContainsRune(dir, filepath.Separator) {
			return fmt.Errorf("normalize.exclude_dirs entries must be plain directory names, got %q", dir)
		}
	}

	if c.Symbols.MaxDepth < 0 {
		return fmt.Errorf("symbols.max_depth must be >= 0, got %d", c.Symbols.MaxDepth)
	}

	if len(c.Symbols.Include) == 0 {
		return fmt.Errorf("symbols.include cannot be empty")
	}

	return nil
}
