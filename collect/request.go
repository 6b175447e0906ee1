// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"regexp"

	"github.com/logwarden-foundation/logwarden/lib/wardenerr"
)

// Limit defaults. All of these are overridable through the service
// configuration; the constants are the values used when a knob is
// left unset.
const (
	// DefaultMaxHours is the widest look-back window a caller can
	// request: one week.
	DefaultMaxHours = 168.0

	// minHours is the floor a non-positive or sub-minimal hours value
	// is clamped up to.
	minHours = 0.01

	// DefaultMaxLines is the cap on lines returned per collection.
	DefaultMaxLines = 5000

	// DefaultLines is the line count used when a request leaves
	// MaxLines unset.
	DefaultLines = 200
)

// Limits bounds the request parameters every collection is clamped
// against. The zero value is replaced by the defaults above.
type Limits struct {
	// MaxHours is the widest permitted look-back window.
	MaxHours float64

	// MaxLines is the largest permitted per-collection line count.
	MaxLines int

	// DefaultLines is used when a request does not specify a count.
	DefaultLines int
}

// withDefaults fills zero fields with the package defaults.
func (l Limits) withDefaults() Limits {
	if l.MaxHours <= 0 {
		l.MaxHours = DefaultMaxHours
	}
	if l.MaxLines <= 0 {
		l.MaxLines = DefaultMaxLines
	}
	if l.DefaultLines <= 0 {
		l.DefaultLines = DefaultLines
	}
	return l
}

// Request describes one collection target. Exactly one source is
// named; the fields beyond Source/Target apply only to the sources
// that use them.
type Request struct {
	// Source selects the collector.
	Source Source

	// Target is the unit name (journal), container name (container),
	// or file path (file). The journal pseudo-target "all" means "no
	// unit filter". Unused for loki, where Filters select streams.
	Target string

	// Hours is the look-back window. Clamped, never rejected.
	Hours float64

	// MaxLines is the requested line count. Clamped, never rejected.
	MaxLines int

	// Cursor, when set, switches the file source to an incremental
	// read from the given byte offset.
	Cursor *int64

	// Filters is the label map for the loki source. Raw selector text
	// is never accepted.
	Filters map[string]string

	// Contains, for the loki source, appends a literal line filter.
	Contains string

	// Start and End, for the loki source, bound the query window as
	// RFC 3339 timestamps. Both optional.
	Start string
	End   string

	// AllowUnscoped opts a loki request out of the scope-label guard.
	AllowUnscoped bool
}

// targetCharset is the closed set of characters permitted in a target
// string. Anything else is rejected before the target reaches a
// collector, closing argument-injection vectors for command-based
// sources.
var targetCharset = regexp.MustCompile(`^[A-Za-z0-9._:@/-]+$`)

// ValidateTarget rejects empty targets and targets containing
// characters outside the permitted set.
func ValidateTarget(target string) error {
	if target == "" {
		return wardenerr.Validation("target must not be empty")
	}
	if !targetCharset.MatchString(target) {
		return wardenerr.Validation("target %q contains characters outside [A-Za-z0-9._:@/-]", target)
	}
	return nil
}

// Clamp normalizes the request's numeric parameters against the
// limits. Out-of-range values are silently clamped, not rejected:
// an automated caller asking for too much gets the most the service
// allows rather than an error it would have to special-case.
func (r *Request) Clamp(limits Limits) {
	limits = limits.withDefaults()

	if r.Hours <= 0 {
		r.Hours = minHours
	}
	if r.Hours < minHours {
		r.Hours = minHours
	}
	if r.Hours > limits.MaxHours {
		r.Hours = limits.MaxHours
	}

	if r.MaxLines <= 0 {
		r.MaxLines = limits.DefaultLines
	}
	if r.MaxLines > limits.MaxLines {
		r.MaxLines = limits.MaxLines
	}

	if r.Cursor != nil && *r.Cursor < 0 {
		zero := int64(0)
		r.Cursor = &zero
	}
}
