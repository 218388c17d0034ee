package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"sigs.k8s.io/yaml"
)

// Config is the top-level configuration for lucid-width
type Config struct {
	// Sources is a list of glob patterns for parser output files
	Sources []string `json:"sources,omitempty"`

	// Exclude is a list of glob patterns removed from Sources
	Exclude []string `json:"exclude,omitempty"`

	// Lint contains rule configuration
	Lint LintConfig `json:"lint,omitempty"`

	// Analysis contains analysis options
	Analysis AnalysisConfig `json:"analysis,omitempty"`
}

// LintConfig contains linting configuration
type LintConfig struct {
	// Rules maps diagnostic codes to severity: "off", "info", "warning", "error"
	Rules map[string]string `json:"rules,omitempty"`

	// IgnorePatterns is a list of file patterns to skip entirely
	IgnorePatterns []string `json:"ignorePatterns,omitempty"`

	// ShowInternal also prints internal diagnostics
	ShowInternal bool `json:"showInternal,omitempty"`
}

// CacheConfig controls the per-file result cache
type CacheConfig struct {
	// Enabled turns on cache usage
	Enabled *bool `json:"enabled,omitempty"`

	// Dir is the cache directory (relative to project root if not absolute)
	Dir string `json:"dir,omitempty"`
}

// AnalysisConfig contains analysis options
type AnalysisConfig struct {
	// MaxParallelModules limits concurrent module checks (0 = auto)
	MaxParallelModules int `json:"maxParallelModules,omitempty"`

	// Cache controls the per-file result cache
	Cache CacheConfig `json:"cache,omitempty"`
}

// DefaultSources matches parser output anywhere below the root.
var DefaultSources = []string{"*.ast.json", "**/*.ast.json"}

// Severities accepted in Lint.Rules.
var Severities = []string{"off", "info", "warning", "error"}

// DefaultConfig returns a sensible default configuration
func DefaultConfig() *Config {
	return &Config{
		Sources: append([]string(nil), DefaultSources...),
		Exclude: []string{},
		Lint: LintConfig{
			Rules:          map[string]string{},
			IgnorePatterns: []string{},
		},
		Analysis: AnalysisConfig{
			MaxParallelModules: 0, // auto
			Cache: CacheConfig{
				Enabled: boolPtr(true),
				Dir:     ".lucid_width_cache",
			},
		},
	}
}

func boolPtr(v bool) *bool {
	return &v
}

var configNames = []string{"lucid_width.json", ".lucid_width.json", "lucid_width.yaml", ".lucid_width.yaml"}

// Load finds and loads the configuration file
// Search order:
//  1. ./lucid_width.{json,yaml} and the dot-prefixed variants (current working directory)
//  2. the same names under rootPath (if different from cwd)
//  3. ~/.config/lucid_width/config.{json,yaml}
//
// Returns DefaultConfig if no config file is found
func Load(rootPath string) (*Config, error) {
	cwd, _ := os.Getwd()

	var searchPaths []string
	for _, name := range configNames {
		searchPaths = append(searchPaths, filepath.Join(cwd, name))
	}

	if info, err := os.Stat(rootPath); err == nil && info.IsDir() {
		absRoot, _ := filepath.Abs(rootPath)
		if absRoot != cwd {
			for _, name := range configNames {
				searchPaths = append(searchPaths, filepath.Join(rootPath, name))
			}
		}
	}

	if home, err := os.UserHomeDir(); err == nil {
		searchPaths = append(searchPaths,
			filepath.Join(home, ".config", "lucid_width", "config.json"),
			filepath.Join(home, ".config", "lucid_width", "config.yaml"),
		)
	}

	for _, path := range searchPaths {
		if _, err := os.Stat(path); err == nil {
			return LoadFile(path)
		}
	}

	return DefaultConfig(), nil
}

// LoadFile loads configuration from a JSON or YAML file
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.UnmarshalStrict(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config file %s: %w", path, err)
	}

	cfg.applyDefaults()

	return &cfg, nil
}

func (c *Config) validate() error {
	for rule, sev := range c.Lint.Rules {
		known := false
		for _, s := range Severities {
			if sev == s {
				known = true
			}
		}
		if !known {
			return fmt.Errorf("rule %s: unknown severity %q (want one of %s)", rule, sev, strings.Join(Severities, ", "))
		}
	}
	if c.Analysis.MaxParallelModules < 0 {
		return fmt.Errorf("analysis.maxParallelModules must not be negative")
	}
	return nil
}

// applyDefaults fills in missing configuration with defaults
func (c *Config) applyDefaults() {
	if len(c.Sources) == 0 {
		c.Sources = append([]string(nil), DefaultSources...)
	}

	if c.Lint.Rules == nil {
		c.Lint.Rules = make(map[string]string)
	}

	if c.Analysis.Cache.Dir == "" {
		c.Analysis.Cache.Dir = ".lucid_width_cache"
	}
	if c.Analysis.Cache.Enabled == nil {
		c.Analysis.Cache.Enabled = boolPtr(true)
	}
}

// Save writes the configuration to a file. A .yaml or .yml extension
// selects YAML, anything else JSON.
func (c *Config) Save(path string) error {
	var data []byte
	var err error
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}

	return nil
}

// CacheEnabled reports whether the result cache is on.
func (c *Config) CacheEnabled() bool {
	return c.Analysis.Cache.Enabled == nil || *c.Analysis.Cache.Enabled
}

// GetRuleSeverity returns the severity for a rule, or the default if not configured
func (c *Config) GetRuleSeverity(rule string, defaultSeverity string) string {
	if severity, ok := c.Lint.Rules[rule]; ok {
		return severity
	}
	return defaultSeverity
}

// IsRuleEnabled returns true if the rule is not set to "off"
func (c *Config) IsRuleEnabled(rule string) bool {
	if severity, ok := c.Lint.Rules[rule]; ok {
		return severity != "off"
	}
	return true // enabled by default
}

// ShouldIgnoreFile checks if a file should be skipped entirely
func (c *Config) ShouldIgnoreFile(filePath string) bool {
	for _, pattern := range c.Lint.IgnorePatterns {
		if matched, _ := filepath.Match(pattern, filePath); matched {
			return true
		}
		if matched, _ := filepath.Match(pattern, filepath.Base(filePath)); matched {
			return true
		}
	}
	return false
}
