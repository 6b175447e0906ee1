// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"strings"
	"testing"

	"github.com/logwarden-foundation/logwarden/lib/testutil"
)

func TestDefaultValidates(t *testing.T) {
	t.Parallel()

	if err := Default().Validate(); err != nil {
		t.Errorf("default configuration invalid: %v", err)
	}
}

func TestLoadFileMergesOverDefaults(t *testing.T) {
	t.Parallel()

	path := testutil.WriteFile(t, "logwarden.yaml", `
limits:
  max_hours: 48
loki:
  url: http://loki:3100
  rules_file: /etc/logwarden/rules.yaml
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if cfg.Limits.MaxHours != 48 {
		t.Errorf("overridden max_hours: got %v", cfg.Limits.MaxHours)
	}
	// Untouched sections keep their defaults.
	if cfg.Limits.DefaultLines != 200 {
		t.Errorf("default_lines lost its default: got %d", cfg.Limits.DefaultLines)
	}
	if cfg.Commands.JournalBinary != "journalctl" {
		t.Errorf("journal_binary lost its default: got %q", cfg.Commands.JournalBinary)
	}
	if cfg.Loki.URL != "http://loki:3100" {
		t.Errorf("loki url: got %q", cfg.Loki.URL)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("merged configuration invalid: %v", err)
	}
}

func TestLoadFileMissing(t *testing.T) {
	t.Parallel()

	if _, err := LoadFile("/no/such/logwarden.yaml"); err == nil {
		t.Error("missing config file accepted")
	}
}

func TestLoadFileBadYAML(t *testing.T) {
	t.Parallel()

	path := testutil.WriteFile(t, "broken.yaml", "limits: [not a mapping")
	if _, err := LoadFile(path); err == nil {
		t.Error("malformed YAML accepted")
	}
}

func TestExpandVariables(t *testing.T) {
	t.Setenv("LOGWARDEN_TEST_DIR", "/srv/logs")

	path := testutil.WriteFile(t, "logwarden.yaml", `
files:
  allowlist:
    - ${LOGWARDEN_TEST_DIR}/app
    - ${LOGWARDEN_TEST_UNSET:-/var/log/fallback}
loki:
  url: http://loki:3100
  rules_file: ${LOGWARDEN_TEST_DIR}/rules.yaml
`)

	cfg, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile: %v", err)
	}
	if got := cfg.Files.Allowlist[0]; got != "/srv/logs/app" {
		t.Errorf("allowlist[0]: got %q", got)
	}
	if got := cfg.Files.Allowlist[1]; got != "/var/log/fallback" {
		t.Errorf("allowlist[1] default form: got %q", got)
	}
	if got := cfg.Loki.RulesFile; got != "/srv/logs/rules.yaml" {
		t.Errorf("rules_file: got %q", got)
	}
}

func TestValidateRejections(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Config)
		wantIn string
	}{
		{
			name:   "non-positive command timeout",
			mutate: func(c *Config) { c.Commands.TimeoutSeconds = 0 },
			wantIn: "timeout_seconds",
		},
		{
			name:   "loki url without rules file",
			mutate: func(c *Config) { c.Loki.URL = "http://loki:3100" },
			wantIn: "rules_file",
		},
		{
			name:   "inverted concurrency bounds",
			mutate: func(c *Config) { c.Batch.MinConcurrency = 8; c.Batch.MaxConcurrency = 2 },
			wantIn: "max_concurrency",
		},
		{
			name:   "non-positive max hours",
			mutate: func(c *Config) { c.Limits.MaxHours = -1 },
			wantIn: "max_hours",
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("invalid configuration accepted")
			}
			if !strings.Contains(err.Error(), tc.wantIn) {
				t.Errorf("error %q does not mention %q", err, tc.wantIn)
			}
		})
	}
}

func TestLoadRequiresEnvVariable(t *testing.T) {
	t.Setenv("LOGWARDEN_CONFIG", "")

	if _, err := Load(); err == nil {
		t.Error("Load succeeded without LOGWARDEN_CONFIG")
	}
}

func TestLoadUsesEnvVariable(t *testing.T) {
	path := testutil.WriteFile(t, "logwarden.yaml", "limits:\n  max_hours: 24\n")
	t.Setenv("LOGWARDEN_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Limits.MaxHours != 24 {
		t.Errorf("max_hours: got %v", cfg.Limits.MaxHours)
	}
}
