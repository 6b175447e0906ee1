// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package testutil provides small helpers shared by Logwarden tests.
package testutil

import (
	"os"
	"path/filepath"
)

// TB is the subset of testing.TB these helpers need. Declared locally
// so the package does not import "testing" into production builds.
type TB interface {
	Helper()
	Fatalf(format string, args ...any)
	TempDir() string
}

// WriteFile creates a file named name under a fresh temp directory and
// returns its full path. Fails the test on any filesystem error.
func WriteFile(t TB, name, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing fixture %s: %v", name, err)
	}
	return path
}

// AppendFile appends contents to an existing fixture file.
func AppendFile(t TB, path, contents string) {
	t.Helper()
	file, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("opening fixture %s for append: %v", path, err)
	}
	defer file.Close()
	if _, err := file.WriteString(contents); err != nil {
		t.Fatalf("appending to fixture %s: %v", path, err)
	}
}

// Lines joins the given lines with newlines and appends a trailing
// newline, matching how log files are written on disk.
func Lines(lines ...string) string {
	out := ""
	for _, line := range lines {
		out += line + "\n"
	}
	return out
}
