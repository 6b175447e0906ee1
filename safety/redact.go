// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

package safety

import (
	"regexp"
	"sort"
	"strings"
)

const (
	// Placeholder replaces a forbidden command or line.
	Placeholder = "[redacted: remediation command removed]"

	// Banner is prepended to any text that needed redaction.
	Banner = "Safety Note: potentially mutating commands were redacted from this analysis.\n\n"
)

// Verdict is the result of a fast boolean scan.
type Verdict struct {
	// Safe is true when no forbidden pattern matched.
	Safe bool

	// Reason names the pattern that fired, when Safe is false.
	Reason string
}

// Outcome is the result of a redaction pass.
type Outcome struct {
	// Text is the screened text, banner included when redaction
	// occurred.
	Text string

	// Redacted is true when at least one replacement was made.
	Redacted bool

	// Reasons names every pattern that fired, deduplicated and
	// sorted.
	Reasons []string
}

// lineState classifies where a line sits in the surrounding Markdown
// structure. The redactor treats fenced code differently from prose:
// inside a fence a matching line is replaced wholesale, in prose only
// the matched substring is.
type lineState int

const (
	stateProse lineState = iota
	stateFence
)

// fenceTracker is the explicit two-state classifier over lines. It is
// independent of the pattern list so the state machine and the
// patterns are testable in isolation.
type fenceTracker struct {
	state lineState
}

// observe consumes one line and returns the state the line itself is
// in, plus whether the line is a fence delimiter. A delimiter line
// belongs to neither side's content; it toggles the state for the
// lines after it.
func (tracker *fenceTracker) observe(line string) (state lineState, isDelimiter bool) {
	if fenceDelimiter.MatchString(line) {
		state = tracker.state
		if tracker.state == stateProse {
			tracker.state = stateFence
		} else {
			tracker.state = stateProse
		}
		return state, true
	}
	return tracker.state, false
}

var (
	fenceDelimiter = regexp.MustCompile("^\\s*(```|~~~)")
	bulletPrefix   = regexp.MustCompile(`^(\s*(?:[-*+]|\d+[.)])\s+)`)
	inlineCode     = regexp.MustCompile("`[^`]+`")
)

// Filter is the output-safety detector/redactor. The zero value is
// not usable; construct with New.
type Filter struct {
	patterns []Pattern
}

// New builds a Filter from the built-in pattern list plus any extra
// patterns (see LoadExtraPatterns), scanned in that order.
func New(extra ...Pattern) *Filter {
	patterns := make([]Pattern, 0, len(builtinPatterns)+len(extra))
	patterns = append(patterns, builtinPatterns...)
	patterns = append(patterns, extra...)
	return &Filter{patterns: patterns}
}

// Check is the fast boolean scan used to decide whether a full
// redaction pass is needed at all.
func (filter *Filter) Check(text string) Verdict {
	for _, pattern := range filter.patterns {
		if pattern.Expression.MatchString(text) {
			return Verdict{Safe: false, Reason: pattern.Name}
		}
	}
	return Verdict{Safe: true}
}

// Redact walks the text line by line and removes forbidden command
// content:
//
//   - a matching line inside a code fence, formatted as a bullet or
//     numbered item, or containing an inline code span is replaced
//     wholesale (keeping any bullet/number prefix);
//   - a matching line in plain prose has only the matched substring
//     replaced inline.
//
// If anything was redacted, the Safety Note banner is prepended.
func (filter *Filter) Redact(text string) Outcome {
	if filter.Check(text).Safe {
		return Outcome{Text: text}
	}

	var (
		tracker fenceTracker
		reasons = make(map[string]struct{})
		lines   = strings.Split(text, "\n")
	)

	for i, line := range lines {
		state, isDelimiter := tracker.observe(line)
		if isDelimiter {
			continue
		}

		pattern, matched := filter.match(line)
		if !matched {
			continue
		}
		reasons[pattern.Name] = struct{}{}

		switch {
		case state == stateFence:
			lines[i] = Placeholder
		case bulletPrefix.MatchString(line):
			prefix := bulletPrefix.FindString(line)
			lines[i] = prefix + Placeholder
		case inlineCode.MatchString(line):
			lines[i] = Placeholder
		default:
			lines[i] = pattern.Expression.ReplaceAllString(line, Placeholder)
		}
	}

	if len(reasons) == 0 {
		// Check matched across line boundaries but no single line
		// matched; nothing to replace.
		return Outcome{Text: text}
	}

	sorted := make([]string, 0, len(reasons))
	for reason := range reasons {
		sorted = append(sorted, reason)
	}
	sort.Strings(sorted)

	return Outcome{
		Text:     Banner + strings.Join(lines, "\n"),
		Redacted: true,
		Reasons:  sorted,
	}
}

// match returns the first pattern matching the line.
func (filter *Filter) match(line string) (Pattern, bool) {
	for _, pattern := range filter.patterns {
		if pattern.Expression.MatchString(line) {
			return pattern, true
		}
	}
	return Pattern{}, false
}
