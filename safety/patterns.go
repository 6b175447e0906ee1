// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package safety screens generated analysis text for disguised
// remediation commands before it leaves the system. The summarizer is
// prompted to be read-only, but prompts are advice, not enforcement;
// this package is the enforcement.
package safety

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"

	"github.com/tidwall/jsonc"

	"github.com/logwarden-foundation/logwarden/lib/wardenerr"
)

// Pattern is one forbidden command shape. Name is the stable
// identifier reported in redaction reasons; Expression is the compiled
// matcher.
type Pattern struct {
	Name       string
	Expression *regexp.Regexp
}

// builtinPatterns is the fixed, ordered list of mutating or
// remediation-shaped command patterns. Order matters only for which
// reason is reported when several could match a line; the list is
// scanned first to last.
var builtinPatterns = []Pattern{
	{
		Name:       "package-manager mutation",
		Expression: regexp.MustCompile(`(?i)\b(?:apt(?:-get)?|yum|dnf|apk|pacman|zypper|snap|pip3?|npm)\s+(?:install|remove|purge|uninstall|upgrade|update|add|del)\b`),
	},
	{
		Name:       "file removal",
		Expression: regexp.MustCompile(`\brm\s+-[A-Za-z-]*[rf][A-Za-z-]*\b[^\n]*`),
	},
	{
		Name:       "permission change",
		Expression: regexp.MustCompile(`(?i)\b(?:chmod|chown|chgrp)\s+\S+`),
	},
	{
		Name:       "service lifecycle",
		Expression: regexp.MustCompile(`(?i)\b(?:systemctl|service)\s+(?:start|stop|restart|reload|enable|disable|mask|unmask)\b`),
	},
	{
		Name:       "firewall mutation",
		Expression: regexp.MustCompile(`(?i)\b(?:iptables|ip6tables|nft|ufw|firewall-cmd)\b\s+\S+`),
	},
	{
		Name:       "system-directory write",
		Expression: regexp.MustCompile(`(?:>>?\s*|\btee\s+(?:-a\s+)?)/(?:etc|usr|boot|bin|sbin|lib|var/lib)/\S*`),
	},
	{
		Name:       "process kill",
		Expression: regexp.MustCompile(`(?i)\b(?:kill|pkill|killall)\s+\S+`),
	},
	{
		Name:       "filesystem or disk mutation",
		Expression: regexp.MustCompile(`(?i)\b(?:mkfs(?:\.\w+)?|dd\s+if=|fdisk|parted)\b`),
	},
	{
		Name:       "host power control",
		Expression: regexp.MustCompile(`(?i)\b(?:reboot|shutdown|halt|poweroff)\b`),
	},
}

// extraPatternRecord is the JSONC shape of one user-supplied pattern.
// The Note field exists for the file author; only Pattern is used.
type extraPatternRecord struct {
	Pattern string `json:"pattern"`
	Note    string `json:"note"`
}

// LoadExtraPatterns reads additional forbidden patterns from a JSONC
// file (JSON with comments — pattern files benefit from inline
// rationale). The returned patterns are appended after the built-in
// list. An invalid regex is a config error: a silently dropped pattern
// would weaken the filter without anyone noticing.
func LoadExtraPatterns(path string) ([]Pattern, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, wardenerr.Config(fmt.Sprintf("reading extra patterns file %s", path), err)
	}

	var records []extraPatternRecord
	if err := json.Unmarshal(jsonc.ToJSON(data), &records); err != nil {
		return nil, wardenerr.Config("parsing extra patterns file", err)
	}

	patterns := make([]Pattern, 0, len(records))
	for i, record := range records {
		expression, err := regexp.Compile(record.Pattern)
		if err != nil {
			return nil, wardenerr.Config(fmt.Sprintf("extra pattern %d (%q) does not compile", i, record.Pattern), err)
		}
		name := record.Note
		if name == "" {
			name = fmt.Sprintf("extra pattern %d", i)
		}
		patterns = append(patterns, Pattern{Name: name, Expression: expression})
	}

	return patterns, nil
}
