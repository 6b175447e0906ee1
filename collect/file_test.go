// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"fmt"
	"strings"
	"testing"

	"github.com/logwarden-foundation/logwarden/lib/testutil"
)

func TestTailFileReturnsLastLines(t *testing.T) {
	t.Parallel()

	path := testutil.WriteFile(t, "app.log",
		testutil.Lines("one", "two", "three", "four", "five"))

	got, err := TailFile(path, 3, 0)
	if err != nil {
		t.Fatalf("TailFile: %v", err)
	}
	if want := "three\nfour\nfive"; got != want {
		t.Errorf("TailFile: got %q, want %q", got, want)
	}
}

func TestTailFileShortFileReturnsEverything(t *testing.T) {
	t.Parallel()

	path := testutil.WriteFile(t, "app.log", testutil.Lines("alpha", "beta"))

	got, err := TailFile(path, 100, 0)
	if err != nil {
		t.Fatalf("TailFile: %v", err)
	}
	if want := "alpha\nbeta"; got != want {
		t.Errorf("TailFile: got %q, want %q", got, want)
	}
}

func TestTailFileEmptyFile(t *testing.T) {
	t.Parallel()

	path := testutil.WriteFile(t, "empty.log", "")

	got, err := TailFile(path, 10, 0)
	if err != nil {
		t.Fatalf("TailFile: %v", err)
	}
	if got != "" {
		t.Errorf("TailFile on empty file: got %q, want empty", got)
	}
}

func TestTailFileSpansChunkBoundary(t *testing.T) {
	t.Parallel()

	// Enough numbered lines to exceed one 64 KiB chunk, forcing the
	// backward scan through at least two reads.
	var builder strings.Builder
	total := 5000
	for i := 0; i < total; i++ {
		fmt.Fprintf(&builder, "line %04d with some padding to widen the file\n", i)
	}
	path := testutil.WriteFile(t, "big.log", builder.String())

	got, err := TailFile(path, 10, 0)
	if err != nil {
		t.Fatalf("TailFile: %v", err)
	}
	lines := strings.Split(got, "\n")
	if len(lines) != 10 {
		t.Fatalf("TailFile: got %d lines, want 10", len(lines))
	}
	if want := fmt.Sprintf("line %04d with some padding to widen the file", total-1); lines[9] != want {
		t.Errorf("last line: got %q, want %q", lines[9], want)
	}
	if want := fmt.Sprintf("line %04d with some padding to widen the file", total-10); lines[0] != want {
		t.Errorf("first line: got %q, want %q", lines[0], want)
	}
}

func TestReadFromReturnsOnlyAppendedData(t *testing.T) {
	t.Parallel()

	path := testutil.WriteFile(t, "app.log", testutil.Lines("first", "second"))

	initial, err := ReadFrom(path, 0, 100, 0)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if initial.Logs != "first\nsecond" {
		t.Errorf("initial read: got %q", initial.Logs)
	}
	if initial.NextCursor != int64(len("first\nsecond\n")) {
		t.Errorf("initial NextCursor: got %d", initial.NextCursor)
	}

	testutil.AppendFile(t, path, testutil.Lines("third"))

	next, err := ReadFrom(path, initial.NextCursor, 100, 0)
	if err != nil {
		t.Fatalf("ReadFrom after append: %v", err)
	}
	if next.Logs != "third" {
		t.Errorf("incremental read: got %q, want %q", next.Logs, "third")
	}
	if next.Rotated {
		t.Error("incremental read flagged as rotated")
	}
	if next.FromCursor != initial.NextCursor {
		t.Errorf("FromCursor: got %d, want %d", next.FromCursor, initial.NextCursor)
	}
}

func TestReadFromSteadyStateIsEmpty(t *testing.T) {
	t.Parallel()

	contents := testutil.Lines("only line")
	path := testutil.WriteFile(t, "app.log", contents)
	cursor := int64(len(contents))

	read, err := ReadFrom(path, cursor, 100, 0)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if read.Logs != "" {
		t.Errorf("steady-state read returned data: %q", read.Logs)
	}
	if read.NextCursor != cursor {
		t.Errorf("steady-state NextCursor: got %d, want %d", read.NextCursor, cursor)
	}
	if read.Rotated {
		t.Error("steady-state read flagged as rotated")
	}
}

func TestReadFromDetectsRotation(t *testing.T) {
	t.Parallel()

	// The stored cursor (500) exceeds the current size (300): the
	// file was replaced since the last poll, so reading restarts from
	// the beginning.
	contents := strings.Repeat("x", 299) + "\n"
	path := testutil.WriteFile(t, "rotated.log", contents)

	read, err := ReadFrom(path, 500, 100, 0)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if !read.Rotated {
		t.Fatal("rotation not detected")
	}
	if read.FromCursor != 0 {
		t.Errorf("FromCursor after rotation: got %d, want 0", read.FromCursor)
	}
	if read.NextCursor != 300 {
		t.Errorf("NextCursor after rotation: got %d, want 300", read.NextCursor)
	}
	if read.Logs != strings.Repeat("x", 299) {
		t.Errorf("post-rotation read returned wrong data (%d bytes)", len(read.Logs))
	}
}

func TestReadFromByteCapStopsAtLastByteRead(t *testing.T) {
	t.Parallel()

	contents := testutil.Lines("aaaa", "bbbb", "cccc")
	path := testutil.WriteFile(t, "capped.log", contents)

	read, err := ReadFrom(path, 0, 100, 10)
	if err != nil {
		t.Fatalf("ReadFrom: %v", err)
	}
	if !read.TruncatedByBytes {
		t.Fatal("byte cap not reported")
	}
	if read.NextCursor != 10 {
		t.Errorf("NextCursor: got %d, want 10", read.NextCursor)
	}
	// Resuming from NextCursor returns the remainder with nothing
	// skipped.
	rest, err := ReadFrom(path, read.NextCursor, 100, 0)
	if err != nil {
		t.Fatalf("ReadFrom remainder: %v", err)
	}
	if got := read.Logs + rest.Logs; !strings.Contains(got, "cccc") {
		t.Errorf("capped read plus remainder lost data: %q + %q", read.Logs, rest.Logs)
	}
}

func TestLastLinesTrailingNewline(t *testing.T) {
	t.Parallel()

	if got := lastLines("a\nb\nc\n", 2); got != "b\nc" {
		t.Errorf("lastLines: got %q, want %q", got, "b\nc")
	}
	if got := lastLines("", 5); got != "" {
		t.Errorf("lastLines on empty: got %q", got)
	}
}
