// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package loki turns untrusted structured label filters into safe,
// bounded queries against a centralized log aggregator, and executes
// them. Raw query or selector text from a caller is never accepted
// anywhere in this package — only validated label maps, compiled into
// LogQL by the query builder.
package loki

import (
	"fmt"
	"os"
	"regexp"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/logwarden-foundation/logwarden/lib/wardenerr"
)

// rulesDocument is the YAML shape of the allowlist rules file.
type rulesDocument struct {
	// Job, if set, requires every filter set to carry exactly this
	// job value.
	Job string `yaml:"job"`

	// AllowedLabels is the closed set of permitted filter keys.
	// Required, non-empty.
	AllowedLabels []string `yaml:"allowedLabels"`

	// Hosts and Units are exact-match sets for the corresponding
	// scope labels.
	Hosts []string `yaml:"hosts"`
	Units []string `yaml:"units"`

	// HostsRegex and UnitsRegex are alternative pattern forms. A value
	// is accepted if it is in the set OR matches the pattern.
	HostsRegex string `yaml:"hostsRegex"`
	UnitsRegex string `yaml:"unitsRegex"`
}

// Rules is the immutable, validated form of the rules document. Loaded
// once at process start and injected into the validator and query
// builder; reloading requires a process restart (documented
// limitation). Safe to share across concurrent requests without
// locking.
type Rules struct {
	job           string
	allowedLabels map[string]struct{}
	hosts         map[string]struct{}
	units         map[string]struct{}
	hostsPattern  *regexp.Regexp
	unitsPattern  *regexp.Regexp
}

// LoadRules reads and parses the rules file. Any failure — missing
// file, bad YAML, empty allowedLabels, invalid regex — is a config
// error: it means the service cannot safely serve aggregator queries
// at all, which is a startup failure mode, not a per-request one.
func LoadRules(path string) (*Rules, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wardenerr.Config(fmt.Sprintf("reading rules file %s", path), err)
	}
	return ParseRules(data)
}

// ParseRules builds Rules from an in-memory YAML document. Tests
// construct their own Rules through this instead of touching shared
// state.
func ParseRules(data []byte) (*Rules, error) {
	var document rulesDocument
	if err := yaml.Unmarshal(data, &document); err != nil {
		return nil, wardenerr.Config("parsing rules document", err)
	}

	if len(document.AllowedLabels) == 0 {
		return nil, wardenerr.Config("rules document has no allowedLabels", nil)
	}

	rules := &Rules{
		job:           document.Job,
		allowedLabels: toSet(document.AllowedLabels),
		hosts:         toSet(document.Hosts),
		units:         toSet(document.Units),
	}

	var err error
	if document.HostsRegex != "" {
		if rules.hostsPattern, err = regexp.Compile(document.HostsRegex); err != nil {
			return nil, wardenerr.Config("compiling hostsRegex", err)
		}
	}
	if document.UnitsRegex != "" {
		if rules.unitsPattern, err = regexp.Compile(document.UnitsRegex); err != nil {
			return nil, wardenerr.Config("compiling unitsRegex", err)
		}
	}

	return rules, nil
}

// ValidateLabels checks an untrusted filter map against the rules.
// Order matters for error specificity: unknown keys first, then the
// job requirement, then scope-value checks.
func (rules *Rules) ValidateLabels(filters map[string]string) error {
	for _, key := range sortedKeys(filters) {
		if _, ok := rules.allowedLabels[key]; !ok {
			return wardenerr.Forbidden("label %q is not in the allowed set", key)
		}
	}

	if rules.job != "" {
		job, ok := filters["job"]
		if !ok {
			return wardenerr.Forbidden("filters must include job=%q", rules.job)
		}
		if job != rules.job {
			return wardenerr.Forbidden("job %q does not match the configured job", job)
		}
	}

	if host, ok := filters["host"]; ok {
		if !rules.permitted(host, rules.hosts, rules.hostsPattern) {
			return wardenerr.Forbidden("host %q is not in the allowed set", host)
		}
	}
	if unit, ok := filters["unit"]; ok {
		if !rules.permitted(unit, rules.units, rules.unitsPattern) {
			return wardenerr.Forbidden("unit %q is not in the allowed set", unit)
		}
	}

	return nil
}

// permitted accepts a value that is in the exact-match set OR matches
// the pattern; either is sufficient. An empty set with no pattern
// permits nothing.
func (rules *Rules) permitted(value string, set map[string]struct{}, pattern *regexp.Regexp) bool {
	if _, ok := set[value]; ok {
		return true
	}
	if pattern != nil && pattern.MatchString(value) {
		return true
	}
	return false
}

func toSet(values []string) map[string]struct{} {
	set := make(map[string]struct{}, len(values))
	for _, value := range values {
		set[value] = struct{}{}
	}
	return set
}

// sortedKeys returns map keys in lexicographic order so validation
// errors are deterministic regardless of map iteration order.
func sortedKeys(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}
