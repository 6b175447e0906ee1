// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"fmt"

	"github.com/logwarden-foundation/logwarden/lib/wardenerr"
)

// Source identifies where log evidence is collected from. It is a
// closed enum: the collector facade switches exhaustively over it, so
// adding a source is a compile-time-checked change rather than a
// string to remember.
type Source int

const (
	// SourceJournal reads from the system journal via journalctl.
	SourceJournal Source = iota
	// SourceContainer reads container logs via the container runtime CLI.
	SourceContainer
	// SourceFile reads an allowlisted local file.
	SourceFile
	// SourceLoki queries the centralized log aggregator.
	SourceLoki
)

// String returns the wire form of the source.
func (s Source) String() string {
	switch s {
	case SourceJournal:
		return "journal"
	case SourceContainer:
		return "container"
	case SourceFile:
		return "file"
	case SourceLoki:
		return "loki"
	}
	return fmt.Sprintf("Source(%d)", int(s))
}

// ParseSource converts the wire form of a source into the enum.
// Unknown values are a validation error.
func ParseSource(s string) (Source, error) {
	switch s {
	case "journal":
		return SourceJournal, nil
	case "container":
		return SourceContainer, nil
	case "file":
		return SourceFile, nil
	case "loki":
		return SourceLoki, nil
	}
	return 0, wardenerr.Validation("unknown source %q (want journal, container, file, or loki)", s)
}
