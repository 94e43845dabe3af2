// Package config loads remark settings from files, the environment and
// command-line overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env/v2"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	"github.com/panbanda/remark/pkg/analyzer/complexity"
)

// EnvPrefix prefixes environment overrides. A double underscore separates
// sections: REMARK_THRESHOLDS__MAX_BRANCHES=6.
const EnvPrefix = "REMARK_"

// Config holds all configuration options.
type Config struct {
	// Thresholds above which a function is flagged
	Thresholds complexity.Thresholds `koanf:"thresholds" toml:"thresholds"`

	// Exclude patterns
	Exclude ExcludeConfig `koanf:"exclude" toml:"exclude"`

	// Cache settings
	Cache CacheConfig `koanf:"cache" toml:"cache"`

	// Output settings
	Output OutputConfig `koanf:"output" toml:"output"`

	// Commenter settings
	Commenter CommenterConfig `koanf:"commenter" toml:"commenter"`

	// Workers caps parallel file analysis (0 = 2x CPUs).
	Workers int `koanf:"workers" toml:"workers"`

	// MaxFileSize skips larger files, in bytes (0 = no limit).
	MaxFileSize int64 `koanf:"max_file_size" toml:"max_file_size"`
}

// ExcludeConfig defines patterns for excluding files.
type ExcludeConfig struct {
	Patterns  []string `koanf:"patterns" toml:"patterns"`
	Dirs      []string `koanf:"dirs" toml:"dirs"`
	Gitignore bool     `koanf:"gitignore" toml:"gitignore"`
}

// CacheConfig defines caching behavior.
type CacheConfig struct {
	Enabled bool   `koanf:"enabled" toml:"enabled"`
	Dir     string `koanf:"dir" toml:"dir"`
	TTL     int    `koanf:"ttl" toml:"ttl"` // TTL in hours
}

// OutputConfig defines output formatting.
type OutputConfig struct {
	Format string `koanf:"format" toml:"format"` // text, json, markdown, toon, yaml
	Color  bool   `koanf:"color" toml:"color"`
}

// CommenterConfig configures the text-generation service that writes
// comments for flagged functions.
type CommenterConfig struct {
	Model          string  `koanf:"model" toml:"model"`
	Endpoint       string  `koanf:"endpoint" toml:"endpoint"`
	APIKeyEnv      string  `koanf:"api_key_env" toml:"api_key_env"`
	MaxRetries     int     `koanf:"max_retries" toml:"max_retries"`
	TimeoutSeconds int     `koanf:"timeout_seconds" toml:"timeout_seconds"`
	Temperature    float64 `koanf:"temperature" toml:"temperature"`
}

// APIKey returns the commenter credential from the configured variable.
func (c CommenterConfig) APIKey() string {
	if c.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(c.APIKeyEnv)
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Thresholds: complexity.DefaultThresholds(),
		Exclude: ExcludeConfig{
			Patterns: []string{
				"test_*.py",
				"*_test.py",
				"conftest.py",
			},
			Dirs: []string{
				".git",
				".remark",
				".venv",
				"venv",
				"__pycache__",
				"node_modules",
				"build",
				"dist",
				"site-packages",
			},
			Gitignore: true,
		},
		Cache: CacheConfig{
			Enabled: true,
			Dir:     ".remark/cache",
			TTL:     24,
		},
		Output: OutputConfig{
			Format: "text",
			Color:  true,
		},
		Commenter: CommenterConfig{
			Model:          "gemini-2.5-flash",
			Endpoint:       "https://generativelanguage.googleapis.com/",
			APIKeyEnv:      "GEMINI_API_KEY",
			MaxRetries:     3,
			TimeoutSeconds: 60,
			Temperature:    0.2,
		},
	}
}

// Formats lists the accepted output formats.
var Formats = []string{"text", "json", "markdown", "toon", "yaml"}

// Validate reports settings that cannot be used.
func (c *Config) Validate() error {
	var errs []error
	t := c.Thresholds
	if t.MaxBranches < 0 || t.MaxDepth < 0 || t.MaxLines < 0 {
		errs = append(errs, fmt.Errorf("thresholds must be non-negative (got %+v)", t))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be non-negative (got %d)", c.Workers))
	}
	if !validFormat(c.Output.Format) {
		errs = append(errs, fmt.Errorf("unknown output format %q (want one of %s)", c.Output.Format, strings.Join(Formats, ", ")))
	}
	if c.Commenter.MaxRetries < 0 {
		errs = append(errs, fmt.Errorf("commenter.max_retries must be non-negative (got %d)", c.Commenter.MaxRetries))
	}
	return errors.Join(errs...)
}

func validFormat(f string) bool {
	for _, known := range Formats {
		if f == known {
			return true
		}
	}
	return false
}

// Load reads configuration from path, then applies REMARK_ environment
// variables. An empty path skips the file.
func Load(path string) (*Config, error) {
	return LoadWithOverrides(path, nil)
}

// LoadWithOverrides is Load followed by overrides, a flat map of dotted
// keys such as "thresholds.max_branches". Overrides win over every other
// source.
func LoadWithOverrides(path string, overrides map[string]any) (*Config, error) {
	k := koanf.New(".")
	cfg := DefaultConfig()

	if path != "" {
		if err := k.Load(file.Provider(path), parserFor(path)); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
		if err := ValidateFile(k.Raw()); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(".", env.Opt{
		Prefix:        EnvPrefix,
		TransformFunc: envKey,
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	if len(overrides) > 0 {
		if err := k.Load(confmap.Provider(overrides, "."), nil); err != nil {
			return nil, fmt.Errorf("apply overrides: %w", err)
		}
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

func parserFor(path string) koanf.Parser {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return yaml.Parser()
	case ".json":
		return json.Parser()
	default:
		return toml.Parser()
	}
}

// envKey maps REMARK_CACHE__TTL to cache.ttl. Values holding commas become
// lists so exclude patterns can be set from the environment.
func envKey(k, v string) (string, any) {
	key := strings.ToLower(strings.TrimPrefix(k, EnvPrefix))
	key = strings.ReplaceAll(key, "__", ".")
	if strings.Contains(v, ",") {
		parts := strings.Split(v, ",")
		for i := range parts {
			parts[i] = strings.TrimSpace(parts[i])
		}
		return key, parts
	}
	return key, v
}

// configNames are searched in order inside each search directory.
var configNames = []string{
	"remark.toml",
	"remark.yaml",
	"remark.yml",
	"remark.json",
	".remark.toml",
	".remark.yaml",
	".remark.yml",
	".remark.json",
}

// Find returns the first config file found in the current directory or
// .remark/, or "" when there is none.
func Find() string {
	for _, dir := range []string{".", ".remark"} {
		for _, name := range configNames {
			path := filepath.Join(dir, name)
			if _, err := os.Stat(path); err == nil {
				return path
			}
		}
	}
	return ""
}

// ShouldExclude reports whether path matches an excluded directory or
// file pattern.
func (c *Config) ShouldExclude(path string) bool {
	sep := string(filepath.Separator)
	clean := filepath.Clean(path)
	for _, dir := range c.Exclude.Dirs {
		if clean == dir ||
			strings.Contains(clean, sep+dir+sep) ||
			strings.HasPrefix(clean, dir+sep) ||
			strings.HasSuffix(clean, sep+dir) {
			return true
		}
	}

	base := filepath.Base(clean)
	for _, pattern := range c.Exclude.Patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}

	return false
}
