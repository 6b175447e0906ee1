// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package config provides configuration loading for Logwarden.
//
// Configuration is loaded from a single YAML file specified by:
//   - LOGWARDEN_CONFIG environment variable, or
//   - --config flag passed to the command
//
// There are no fallbacks or automatic discovery; environment variables
// do not override file values. This keeps configuration deterministic
// and auditable. The only expansion performed is ${VAR} substitution in
// paths for portability.
package config

import (
	"errors"
	"fmt"
	"os"
	"regexp"

	"gopkg.in/yaml.v3"
)

// Config is the master configuration for Logwarden.
type Config struct {
	// Commands configures the journal/container command collectors.
	Commands CommandsConfig `yaml:"commands"`

	// Files configures the file collector and its allowlist.
	Files FilesConfig `yaml:"files"`

	// Loki configures the aggregator client and rules engine.
	Loki LokiConfig `yaml:"loki"`

	// Limits clamps request parameters.
	Limits LimitsConfig `yaml:"limits"`

	// Batch bounds batched collection fan-out.
	Batch BatchConfig `yaml:"batch"`

	// Analyze configures the summarization pipeline.
	Analyze AnalyzeConfig `yaml:"analyze"`

	// Safety configures the output-safety filter.
	Safety SafetyConfig `yaml:"safety"`
}

// CommandsConfig configures the two allowlisted external commands.
type CommandsConfig struct {
	// JournalBinary is the journal query program. Default: journalctl.
	JournalBinary string `yaml:"journal_binary"`

	// ContainerBinary is the container runtime CLI. Default: docker.
	ContainerBinary string `yaml:"container_binary"`

	// TimeoutSeconds is the wall-clock kill deadline per command.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// MaxOutputBytes caps accumulated command stdout.
	MaxOutputBytes int64 `yaml:"max_output_bytes"`
}

// FilesConfig configures the file collector.
type FilesConfig struct {
	// Allowlist lists permitted files and directories. A request for
	// any path outside these (after symlink resolution) is forbidden.
	Allowlist []string `yaml:"allowlist"`

	// MaxBytes caps how much of a file one collection may read.
	MaxBytes int64 `yaml:"max_bytes"`
}

// LokiConfig configures the aggregator client.
type LokiConfig struct {
	// URL is the aggregator root, e.g. "http://loki:3100".
	URL string `yaml:"url"`

	// RulesFile is the YAML allowlist rules document, loaded once at
	// startup. Required when URL is set.
	RulesFile string `yaml:"rules_file"`

	// TimeoutSeconds bounds each query_range call client-side.
	TimeoutSeconds int `yaml:"timeout_seconds"`

	// DefaultWindowMinutes is the look-back used when a request omits
	// start/end.
	DefaultWindowMinutes int `yaml:"default_window_minutes"`

	// MaxWindowMinutes caps an explicit request window.
	MaxWindowMinutes int `yaml:"max_window_minutes"`

	// MaxEntries caps entries per query.
	MaxEntries int `yaml:"max_entries"`

	// MaxResponseBytes caps the formatted response.
	MaxResponseBytes int `yaml:"max_response_bytes"`

	// RequireScopeLabels enforces the host/unit scope guard.
	RequireScopeLabels bool `yaml:"require_scope_labels"`
}

// LimitsConfig clamps per-request parameters.
type LimitsConfig struct {
	// MaxHours is the widest look-back window a caller can request.
	MaxHours float64 `yaml:"max_hours"`

	// MaxLines caps lines returned per collection.
	MaxLines int `yaml:"max_lines"`

	// DefaultLines is used when a request leaves the count unset.
	DefaultLines int `yaml:"default_lines"`
}

// BatchConfig bounds batch fan-out.
type BatchConfig struct {
	// MinConcurrency and MaxConcurrency clamp caller-supplied
	// concurrency.
	MinConcurrency int `yaml:"min_concurrency"`
	MaxConcurrency int `yaml:"max_concurrency"`

	// DefaultConcurrency is used when a batch request does not name
	// one.
	DefaultConcurrency int `yaml:"default_concurrency"`
}

// AnalyzeConfig configures the summarization pipeline.
type AnalyzeConfig struct {
	// MaxPromptChars caps raw log characters handed to the
	// summarizer.
	MaxPromptChars int `yaml:"max_prompt_chars"`

	// Model selects the generation model.
	Model string `yaml:"model"`

	// MaxTokens bounds generated summary length.
	MaxTokens int `yaml:"max_tokens"`

	// BaseURL overrides the generation API root (e.g. for a proxy).
	BaseURL string `yaml:"base_url"`

	// APIKeyEnv names the environment variable holding the API key.
	// The key itself never appears in the config file.
	APIKeyEnv string `yaml:"api_key_env"`

	// TimeoutSeconds bounds each summarization call.
	TimeoutSeconds int `yaml:"timeout_seconds"`
}

// SafetyConfig configures the output-safety filter.
type SafetyConfig struct {
	// ExtraPatternsFile is an optional JSONC file of additional
	// forbidden patterns, appended after the built-in list.
	ExtraPatternsFile string `yaml:"extra_patterns_file"`
}

// Default returns the default configuration. These exist so every
// field has a sensible zero-value base before the file is loaded, not
// as a substitute for the file.
func Default() *Config {
	return &Config{
		Commands: CommandsConfig{
			JournalBinary:   "journalctl",
			ContainerBinary: "docker",
			TimeoutSeconds:  20,
			MaxOutputBytes:  5 * 1024 * 1024,
		},
		Files: FilesConfig{
			Allowlist: []string{"/var/log"},
			MaxBytes:  5 * 1024 * 1024,
		},
		Loki: LokiConfig{
			TimeoutSeconds:       15,
			DefaultWindowMinutes: 60,
			MaxWindowMinutes:     1440,
			MaxEntries:           5000,
			MaxResponseBytes:     5 * 1024 * 1024,
			RequireScopeLabels:   true,
		},
		Limits: LimitsConfig{
			MaxHours:     168,
			MaxLines:     5000,
			DefaultLines: 200,
		},
		Batch: BatchConfig{
			MinConcurrency:     1,
			MaxConcurrency:     8,
			DefaultConcurrency: 4,
		},
		Analyze: AnalyzeConfig{
			MaxPromptChars: 60000,
			Model:          "claude-sonnet-4-5",
			MaxTokens:      2048,
			APIKeyEnv:      "ANTHROPIC_API_KEY",
			TimeoutSeconds: 60,
		},
	}
}

// Load loads configuration from the LOGWARDEN_CONFIG environment
// variable. If the variable is not set, this fails — there is no
// fallback path.
func Load() (*Config, error) {
	configPath := os.Getenv("LOGWARDEN_CONFIG")
	if configPath == "" {
		return nil, fmt.Errorf("LOGWARDEN_CONFIG environment variable not set; " +
			"set it to the path of your logwarden.yaml config file, or use --config")
	}
	return LoadFile(configPath)
}

// LoadFile loads configuration from a specific file path, merging over
// the defaults.
func LoadFile(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}

	cfg.expandVariables()
	return cfg, nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in path
// fields.
func (c *Config) expandVariables() {
	for i, entry := range c.Files.Allowlist {
		c.Files.Allowlist[i] = expandVars(entry)
	}
	c.Loki.RulesFile = expandVars(c.Loki.RulesFile)
	c.Safety.ExtraPatternsFile = expandVars(c.Safety.ExtraPatternsFile)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		if value := os.Getenv(parts[1]); value != "" {
			return value
		}
		if len(parts) >= 3 {
			return parts[2]
		}
		return ""
	})
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Commands.TimeoutSeconds <= 0 {
		errs = append(errs, fmt.Errorf("commands.timeout_seconds must be positive"))
	}
	if c.Commands.MaxOutputBytes <= 0 {
		errs = append(errs, fmt.Errorf("commands.max_output_bytes must be positive"))
	}
	if c.Files.MaxBytes <= 0 {
		errs = append(errs, fmt.Errorf("files.max_bytes must be positive"))
	}
	if c.Loki.URL != "" && c.Loki.RulesFile == "" {
		errs = append(errs, fmt.Errorf("loki.rules_file is required when loki.url is set"))
	}
	if c.Limits.MaxHours <= 0 {
		errs = append(errs, fmt.Errorf("limits.max_hours must be positive"))
	}
	if c.Batch.MinConcurrency < 1 {
		errs = append(errs, fmt.Errorf("batch.min_concurrency must be at least 1"))
	}
	if c.Batch.MaxConcurrency < c.Batch.MinConcurrency {
		errs = append(errs, fmt.Errorf("batch.max_concurrency must be >= batch.min_concurrency"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
