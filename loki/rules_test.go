// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

package loki

import (
	"strings"
	"testing"

	"github.com/logwarden-foundation/logwarden/lib/testutil"
	"github.com/logwarden-foundation/logwarden/lib/wardenerr"
)

const rulesYAML = `
job: systemd-journal
allowedLabels: [job, host, unit]
hosts: [web-1, web-2]
units: [nginx.service, postgres.service]
hostsRegex: "^edge-[0-9]+$"
`

func mustRules(t *testing.T, yaml string) *Rules {
	t.Helper()
	rules, err := ParseRules([]byte(yaml))
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	return rules
}

func TestLoadRulesFromFile(t *testing.T) {
	t.Parallel()

	path := testutil.WriteFile(t, "rules.yaml", rulesYAML)
	rules, err := LoadRules(path)
	if err != nil {
		t.Fatalf("LoadRules: %v", err)
	}
	if err := rules.ValidateLabels(map[string]string{
		"job": "systemd-journal", "host": "web-1",
	}); err != nil {
		t.Errorf("valid filters rejected: %v", err)
	}
}

func TestLoadRulesMissingFile(t *testing.T) {
	t.Parallel()

	_, err := LoadRules("/no/such/rules.yaml")
	if err == nil {
		t.Fatal("missing rules file accepted")
	}
	if got := wardenerr.StatusOf(err); got != wardenerr.StatusConfig {
		t.Errorf("status: got %d, want %d", got, wardenerr.StatusConfig)
	}
}

func TestParseRulesRejectsEmptyAllowedLabels(t *testing.T) {
	t.Parallel()

	_, err := ParseRules([]byte(`hosts: [web-1]`))
	if err == nil {
		t.Fatal("rules without allowedLabels accepted")
	}
	if got := wardenerr.StatusOf(err); got != wardenerr.StatusConfig {
		t.Errorf("status: got %d, want %d", got, wardenerr.StatusConfig)
	}
}

func TestParseRulesRejectsBadRegex(t *testing.T) {
	t.Parallel()

	_, err := ParseRules([]byte(`
allowedLabels: [host]
hostsRegex: "["
`))
	if err == nil {
		t.Fatal("invalid hostsRegex accepted")
	}
}

func TestValidateLabels(t *testing.T) {
	t.Parallel()

	rules := mustRules(t, rulesYAML)

	cases := []struct {
		name       string
		filters    map[string]string
		wantStatus int
		wantIn     string
	}{
		{
			name:    "exact host",
			filters: map[string]string{"job": "systemd-journal", "host": "web-2"},
		},
		{
			name:    "pattern host",
			filters: map[string]string{"job": "systemd-journal", "host": "edge-17"},
		},
		{
			name:    "unit from set",
			filters: map[string]string{"job": "systemd-journal", "unit": "nginx.service"},
		},
		{
			name:       "unknown key",
			filters:    map[string]string{"job": "systemd-journal", "namespace": "prod"},
			wantStatus: wardenerr.StatusForbidden,
			wantIn:     "namespace",
		},
		{
			name:       "missing job",
			filters:    map[string]string{"host": "web-1"},
			wantStatus: wardenerr.StatusForbidden,
			wantIn:     "job",
		},
		{
			name:       "wrong job",
			filters:    map[string]string{"job": "other", "host": "web-1"},
			wantStatus: wardenerr.StatusForbidden,
		},
		{
			name:       "host outside set and pattern",
			filters:    map[string]string{"job": "systemd-journal", "host": "db-1"},
			wantStatus: wardenerr.StatusForbidden,
			wantIn:     "db-1",
		},
		{
			name:       "unit outside set",
			filters:    map[string]string{"job": "systemd-journal", "unit": "sshd.service"},
			wantStatus: wardenerr.StatusForbidden,
		},
	}

	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			err := rules.ValidateLabels(tc.filters)
			if tc.wantStatus == 0 {
				if err != nil {
					t.Errorf("ValidateLabels: unexpected error %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected rejection")
			}
			if got := wardenerr.StatusOf(err); got != tc.wantStatus {
				t.Errorf("status: got %d, want %d", got, tc.wantStatus)
			}
			if tc.wantIn != "" && !strings.Contains(err.Error(), tc.wantIn) {
				t.Errorf("error %q does not mention %q", err, tc.wantIn)
			}
		})
	}
}

func TestValidateLabelsNoJobRequirement(t *testing.T) {
	t.Parallel()

	rules := mustRules(t, `
allowedLabels: [host]
hosts: [web-1]
`)
	if err := rules.ValidateLabels(map[string]string{"host": "web-1"}); err != nil {
		t.Errorf("jobless rules rejected valid filters: %v", err)
	}
}
