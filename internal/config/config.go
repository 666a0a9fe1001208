// Package config loads jspdg settings from YAML files and JSPDG_*
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/l3aro/jspdg/internal/scanner"
	"github.com/l3aro/jspdg/pkg/emit"
	"github.com/l3aro/jspdg/pkg/partition"
	"github.com/l3aro/jspdg/pkg/pdg"
	"gopkg.in/yaml.v3"
)

// DirName is the directory holding config and cache, both in the home
// directory and in a project.
const DirName = ".jspdg"

// ReprConfig holds representation slice settings.
type ReprConfig struct {
	MaxChars      int  `yaml:"max_chars" env:"JSPDG_REPR_MAX_CHARS"`
	StripComments bool `yaml:"strip_comments" env:"JSPDG_REPR_STRIP_COMMENTS"`
}

// Config holds all configuration for jspdg
type Config struct {
	// Graph caps
	Limits pdg.Limits `yaml:"limits"`

	// Sequence program-level and switch-case statements, not only blocks
	SequenceTopLevel bool `yaml:"sequence_top_level" env:"JSPDG_SEQUENCE_TOP_LEVEL"`

	// Bound on each parse attempt; zero disables it
	ParseTimeout time.Duration `yaml:"parse_timeout" env:"JSPDG_PARSE_TIMEOUT"`

	// Graph encoding: json, msgpack or jsonl
	OutputFormat string `yaml:"output_format" env:"JSPDG_OUTPUT_FORMAT"`

	// Graph cache
	CacheDir        string `yaml:"cache_dir" env:"JSPDG_CACHE_DIR"`
	CacheMaxEntries int    `yaml:"cache_max_entries" env:"JSPDG_CACHE_MAX_ENTRIES"`

	// Batch runs
	Workers int      `yaml:"workers" env:"JSPDG_WORKERS"`
	Include []string `yaml:"include,omitempty"`
	Exclude []string `yaml:"exclude,omitempty"`

	Partition partition.Options `yaml:"partition"`
	Repr      ReprConfig        `yaml:"repr"`

	// Strict syntax check bound per file
	CleanTimeout time.Duration `yaml:"clean_timeout" env:"JSPDG_CLEAN_TIMEOUT"`

	// Quiet period before the watcher rebuilds
	WatchDebounce time.Duration `yaml:"watch_debounce" env:"JSPDG_WATCH_DEBOUNCE"`

	// Logging
	Verbose bool `yaml:"verbose" env:"JSPDG_VERBOSE"`
	LogJSON bool `yaml:"log_json" env:"JSPDG_LOG_JSON"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Limits:           pdg.DefaultLimits(),
		SequenceTopLevel: false,
		ParseTimeout:     0,
		OutputFormat:     string(emit.FormatJSON),
		CacheDir:         filepath.Join(DirName, "cache"),
		CacheMaxEntries:  1000,
		Workers:          runtime.NumCPU(),
		Partition:        partition.DefaultOptions(),
		Repr:             ReprConfig{MaxChars: 2000},
		CleanTimeout:     1500 * time.Millisecond,
		WatchDebounce:    300 * time.Millisecond,
	}
}

// GlobalConfigPath returns the global config file path (~/.jspdg/config.yaml)
func GlobalConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(DirName, "config.yaml")
	}
	return filepath.Join(home, DirName, "config.yaml")
}

// ProjectConfigPath returns the project-level config file path (./.jspdg/config.yaml)
func ProjectConfigPath() string {
	return filepath.Join(DirName, "config.yaml")
}

// Load reads configuration with the following priority (highest to lowest):
// 1. Environment variables
// 2. Project-level config (./.jspdg/config.yaml)
// 3. Global config (~/.jspdg/config.yaml)
// 4. Defaults
func Load() (*Config, error) {
	cfg := DefaultConfig()

	for _, path := range []string{GlobalConfigPath(), ProjectConfigPath()} {
		if err := mergeFile(cfg, path); err != nil && !os.IsNotExist(err) {
			return nil, err
		}
	}

	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadFromFile reads configuration from a specific YAML file path over the
// defaults, then applies environment overrides.
func LoadFromFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	if err := mergeFile(cfg, path); err != nil {
		return nil, err
	}
	if err := applyEnvOverrides(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile decodes the YAML file at path over cfg. A missing file is
// returned as an os.IsNotExist error.
func mergeFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return err
		}
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

// Save writes the configuration to the specified YAML file path.
// It creates parent directories if they don't exist.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", dir, err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config to YAML: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write config file %s: %w", path, err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
// A malformed number or duration is an error.
func applyEnvOverrides(cfg *Config) error {
	ints := []struct {
		key string
		dst *int
	}{
		{"JSPDG_MAX_NODES", &cfg.Limits.MaxNodes},
		{"JSPDG_MAX_EDGES", &cfg.Limits.MaxEdges},
		{"JSPDG_MAX_SNIPPET", &cfg.Limits.MaxSnippet},
		{"JSPDG_MAX_USES", &cfg.Limits.MaxUses},
		{"JSPDG_CACHE_MAX_ENTRIES", &cfg.CacheMaxEntries},
		{"JSPDG_WORKERS", &cfg.Workers},
		{"JSPDG_THETA_AST", &cfg.Partition.ThetaAST},
		{"JSPDG_REPR_MAX_CHARS", &cfg.Repr.MaxChars},
	}
	for _, e := range ints {
		if v := os.Getenv(e.key); v != "" {
			i, err := parseInt(v)
			if err != nil {
				return fmt.Errorf("%s: %w", e.key, err)
			}
			*e.dst = i
		}
	}

	durations := []struct {
		key string
		dst *time.Duration
	}{
		{"JSPDG_PARSE_TIMEOUT", &cfg.ParseTimeout},
		{"JSPDG_CLEAN_TIMEOUT", &cfg.CleanTimeout},
		{"JSPDG_WATCH_DEBOUNCE", &cfg.WatchDebounce},
	}
	for _, e := range durations {
		if v := os.Getenv(e.key); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("%s: %w", e.key, err)
			}
			*e.dst = d
		}
	}

	bools := []struct {
		key string
		dst *bool
	}{
		{"JSPDG_SEQUENCE_TOP_LEVEL", &cfg.SequenceTopLevel},
		{"JSPDG_REPR_STRIP_COMMENTS", &cfg.Repr.StripComments},
		{"JSPDG_VERBOSE", &cfg.Verbose},
		{"JSPDG_LOG_JSON", &cfg.LogJSON},
	}
	for _, e := range bools {
		if v := os.Getenv(e.key); v != "" {
			*e.dst = parseBool(v)
		}
	}

	if v := os.Getenv("JSPDG_OUTPUT_FORMAT"); v != "" {
		cfg.OutputFormat = v
	}
	if v := os.Getenv("JSPDG_CACHE_DIR"); v != "" {
		cfg.CacheDir = v
	}
	return nil
}

// Validate checks that the configuration values are usable
func (c *Config) Validate() error {
	if c.Limits.MaxNodes <= 0 {
		return fmt.Errorf("limits.max_nodes must be positive")
	}
	if c.Limits.MaxEdges <= 0 {
		return fmt.Errorf("limits.max_edges must be positive")
	}
	if c.Limits.MaxSnippet <= 0 {
		return fmt.Errorf("limits.max_snippet must be positive")
	}
	if c.Limits.MaxUses <= 0 {
		return fmt.Errorf("limits.max_uses must be positive")
	}
	if c.ParseTimeout < 0 {
		return fmt.Errorf("parse_timeout must be non-negative")
	}
	if _, err := emit.ParseFormat(c.OutputFormat); err != nil {
		return fmt.Errorf("output_format: %w", err)
	}
	if c.CacheMaxEntries < 0 {
		return fmt.Errorf("cache_max_entries must be non-negative")
	}
	if c.Workers <= 0 {
		return fmt.Errorf("workers must be positive")
	}
	for _, g := range append(append([]string{}, c.Include...), c.Exclude...) {
		if !doublestar.ValidatePattern(g) {
			return fmt.Errorf("invalid glob pattern %q", g)
		}
	}
	if c.Partition.ThetaAST < 0 {
		return fmt.Errorf("partition.theta_ast must be non-negative")
	}
	if c.Partition.MaxDepth < 0 {
		return fmt.Errorf("partition.max_depth must be non-negative")
	}
	if c.Repr.MaxChars <= 0 {
		return fmt.Errorf("repr.max_chars must be positive")
	}
	if c.CleanTimeout <= 0 {
		return fmt.Errorf("clean_timeout must be positive")
	}
	if c.WatchDebounce < 0 {
		return fmt.Errorf("watch_debounce must be non-negative")
	}
	return nil
}

// PDGOptions returns the extraction options this config describes.
func (c *Config) PDGOptions() pdg.Options {
	return pdg.Options{
		Limits:           c.Limits,
		SequenceTopLevel: c.SequenceTopLevel,
		ParseTimeout:     c.ParseTimeout,
	}
}

// ScannerOptions returns the file selection this config describes.
func (c *Config) ScannerOptions() scanner.Options {
	opts := scanner.DefaultOptions()
	opts.Include = c.Include
	opts.Exclude = c.Exclude
	return opts
}

// Format returns the configured output format. Validate has checked it.
func (c *Config) Format() emit.Format {
	f, err := emit.ParseFormat(c.OutputFormat)
	if err != nil {
		return emit.FormatJSON
	}
	return f
}

// parseInt parses a decimal integer, allowing surrounding spaces.
func parseInt(s string) (int, error) {
	var i int
	if _, err := fmt.Sscanf(strings.TrimSpace(s), "%d", &i); err != nil {
		return 0, fmt.Errorf("invalid integer %q", s)
	}
	return i, nil
}

func parseBool(s string) bool {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "true", "1", "yes", "on":
		return true
	}
	return false
}
