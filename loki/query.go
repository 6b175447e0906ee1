// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

package loki

import (
	"fmt"
	"strings"

	"github.com/logwarden-foundation/logwarden/lib/wardenerr"
)

// BuildSelector compiles a validated label map into a canonical LogQL
// selector: keys sorted lexicographically, every value escaped, in the
// form {k1="v1",k2="v2"}. When contains is non-empty, a literal line
// filter |= "contains" is appended.
//
// This is the only selector representation ever sent upstream or
// displayed. Callers supply label maps, never selector text.
func BuildSelector(filters map[string]string, contains string) string {
	var builder strings.Builder
	builder.WriteByte('{')
	for i, key := range sortedKeys(filters) {
		if i > 0 {
			builder.WriteByte(',')
		}
		fmt.Fprintf(&builder, `%s="%s"`, key, escapeValue(filters[key]))
	}
	builder.WriteByte('}')

	if contains != "" {
		fmt.Fprintf(&builder, ` |= "%s"`, escapeValue(contains))
	}

	return builder.String()
}

// escapeValue escapes backslash and double-quote so a label value can
// never terminate its quoted string early. Values are plain strings by
// contract (the rules engine rejects anything else), so these are the
// only two characters with meaning inside LogQL quotes.
func escapeValue(value string) string {
	value = strings.ReplaceAll(value, `\`, `\\`)
	return strings.ReplaceAll(value, `"`, `\"`)
}

// EnsureScoped enforces the scope-label guard: unless the caller
// explicitly opts out, at least one of host or unit must be present so
// a query stays bounded to a specific source rather than sweeping the
// shared aggregator.
func EnsureScoped(filters map[string]string, allowUnscoped bool) error {
	if allowUnscoped {
		return nil
	}
	if _, ok := filters["host"]; ok {
		return nil
	}
	if _, ok := filters["unit"]; ok {
		return nil
	}
	return wardenerr.Validation("query must include a host or unit label (or set allowUnscoped)")
}
