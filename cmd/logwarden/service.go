// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/logwarden-foundation/logwarden/analyze"
	"github.com/logwarden-foundation/logwarden/collect"
	"github.com/logwarden-foundation/logwarden/lib/clock"
	"github.com/logwarden-foundation/logwarden/lib/config"
	"github.com/logwarden-foundation/logwarden/lib/llm"
	"github.com/logwarden-foundation/logwarden/loki"
	"github.com/logwarden-foundation/logwarden/safety"
)

// loadConfig resolves the configuration from --config or the
// LOGWARDEN_CONFIG environment variable.
func loadConfig(path string) (*config.Config, error) {
	var (
		cfg *config.Config
		err error
	)
	if path != "" {
		cfg, err = config.LoadFile(path)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// newLogger builds the binary's structured logger.
func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// buildService wires the collection facade from configuration. The
// rules document and allowlist are loaded once here; they are
// immutable for the rest of the process lifetime.
func buildService(cfg *config.Config, logger *slog.Logger) (*collect.Service, error) {
	service := &collect.Service{
		Allowlist: collect.NewPathAllowlist(cfg.Files.Allowlist),
		Commands: &collect.CommandCollector{
			JournalBinary:   cfg.Commands.JournalBinary,
			ContainerBinary: cfg.Commands.ContainerBinary,
			Timeout:         time.Duration(cfg.Commands.TimeoutSeconds) * time.Second,
			MaxOutputBytes:  cfg.Commands.MaxOutputBytes,
			Clock:           clock.Real(),
			Logger:          logger,
		},
		RequireScopeLabels: cfg.Loki.RequireScopeLabels,
		Limits: collect.Limits{
			MaxHours:     cfg.Limits.MaxHours,
			MaxLines:     cfg.Limits.MaxLines,
			DefaultLines: cfg.Limits.DefaultLines,
		},
		MaxFileBytes:   cfg.Files.MaxBytes,
		MinConcurrency: cfg.Batch.MinConcurrency,
		MaxConcurrency: cfg.Batch.MaxConcurrency,
		Logger:         logger,
	}

	if cfg.Loki.URL != "" {
		rules, err := loki.LoadRules(cfg.Loki.RulesFile)
		if err != nil {
			return nil, err
		}
		service.Rules = rules
		service.Loki = &loki.Client{
			BaseURL:          cfg.Loki.URL,
			HTTPClient:       http.DefaultClient,
			Timeout:          time.Duration(cfg.Loki.TimeoutSeconds) * time.Second,
			DefaultWindow:    time.Duration(cfg.Loki.DefaultWindowMinutes) * time.Minute,
			MaxWindow:        time.Duration(cfg.Loki.MaxWindowMinutes) * time.Minute,
			MaxEntries:       cfg.Loki.MaxEntries,
			MaxResponseBytes: cfg.Loki.MaxResponseBytes,
			Clock:            clock.Real(),
			Logger:           logger,
		}
	}

	return service, nil
}

// buildAnalyzer wires the summarization pipeline on top of the
// collection facade.
func buildAnalyzer(cfg *config.Config, service *collect.Service, logger *slog.Logger) (*analyze.Analyzer, error) {
	var extra []safety.Pattern
	if cfg.Safety.ExtraPatternsFile != "" {
		patterns, err := safety.LoadExtraPatterns(cfg.Safety.ExtraPatternsFile)
		if err != nil {
			return nil, err
		}
		extra = patterns
	}

	apiKey := os.Getenv(cfg.Analyze.APIKeyEnv)
	if apiKey == "" {
		return nil, fmt.Errorf("summarization API key not set (expected in $%s)", cfg.Analyze.APIKeyEnv)
	}

	return &analyze.Analyzer{
		Collector: service,
		Summarizer: &llm.Anthropic{
			BaseURL:   cfg.Analyze.BaseURL,
			APIKey:    apiKey,
			Model:     cfg.Analyze.Model,
			MaxTokens: cfg.Analyze.MaxTokens,
			Timeout:   time.Duration(cfg.Analyze.TimeoutSeconds) * time.Second,
		},
		Filter:         safety.New(extra...),
		MaxPromptChars: cfg.Analyze.MaxPromptChars,
		Logger:         logger,
	}, nil
}
