// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"io"
	"os"
	"strings"

	"github.com/logwarden-foundation/logwarden/lib/wardenerr"
)

const (
	// tailChunkSize is the fixed read size for the backward tail scan.
	tailChunkSize = 64 * 1024

	// DefaultMaxFileBytes bounds how much of a file one collection may
	// read, in either direction.
	DefaultMaxFileBytes = 5 * 1024 * 1024
)

// CursorRead is the result of an incremental file read. NextCursor is
// a byte offset: the caller stores it and passes it back on the next
// poll to receive only data appended since.
type CursorRead struct {
	// Logs holds the collected lines, newline-joined.
	Logs string

	// FromCursor is the offset reading actually started from. Differs
	// from the requested cursor only after a rotation reset.
	FromCursor int64

	// NextCursor is the offset of the last byte actually read. Resume
	// from here; anything before it has been consumed.
	NextCursor int64

	// Rotated is true when the requested cursor exceeded the current
	// file size: the file was replaced or truncated since the last
	// poll, and reading restarted from the beginning.
	Rotated bool

	// TruncatedByBytes is true when more data was available than the
	// byte cap allowed in one read. NextCursor stops at the last byte
	// read, never past it, so nothing is skipped.
	TruncatedByBytes bool
}

// TailFile returns the last maxLines lines of the file without
// scanning it from the start: it reads backward from the end in fixed
// chunks, stopping as soon as enough newlines have been seen or
// maxBytes have been accumulated. This bounds both memory and latency
// on arbitrarily large files.
//
// The path must already be allowlist-approved; TailFile does not
// re-check it.
func TailFile(path string, maxLines int, maxBytes int64) (string, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}

	file, err := os.Open(path)
	if err != nil {
		return "", wardenerr.Internal("opening log file", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return "", wardenerr.Internal("stat log file", err)
	}

	var (
		buffer   []byte
		position = info.Size()
		newlines = 0
	)

	for position > 0 {
		chunkLength := int64(tailChunkSize)
		if position < chunkLength {
			chunkLength = position
		}
		position -= chunkLength

		chunk := make([]byte, chunkLength)
		if _, err := file.ReadAt(chunk, position); err != nil && err != io.EOF {
			return "", wardenerr.Internal("reading log file", err)
		}

		buffer = append(chunk, buffer...)
		newlines += strings.Count(string(chunk), "\n")

		if int64(len(buffer)) >= maxBytes {
			break
		}
		// One extra newline beyond maxLines guarantees the first kept
		// line is complete, not a mid-line fragment.
		if newlines > maxLines {
			break
		}
	}

	return lastLines(string(buffer), maxLines), nil
}

// ReadFrom reads forward from a stored byte cursor, detecting rotation
// and enforcing the byte cap. The steady state for a polling caller is
// an empty read with NextCursor == cursor.
//
// The path must already be allowlist-approved.
func ReadFrom(path string, cursor int64, maxLines int, maxBytes int64) (CursorRead, error) {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}
	if cursor < 0 {
		cursor = 0
	}

	file, err := os.Open(path)
	if err != nil {
		return CursorRead{}, wardenerr.Internal("opening log file", err)
	}
	defer file.Close()

	info, err := file.Stat()
	if err != nil {
		return CursorRead{}, wardenerr.Internal("stat log file", err)
	}
	size := info.Size()

	read := CursorRead{FromCursor: cursor}

	// A cursor beyond the current size means the file was replaced or
	// truncated since the caller's last poll. Resuming from the stale
	// offset inside a smaller file would silently skip or duplicate
	// data; the contract is to restart from the beginning and tell the
	// caller it happened.
	if cursor > size {
		read.Rotated = true
		read.FromCursor = 0
	}

	if read.FromCursor >= size {
		read.NextCursor = read.FromCursor
		return read, nil
	}

	available := size - read.FromCursor
	toRead := available
	if toRead > maxBytes {
		toRead = maxBytes
		read.TruncatedByBytes = true
	}

	buffer := make([]byte, toRead)
	n, err := file.ReadAt(buffer, read.FromCursor)
	if err != nil && err != io.EOF {
		return CursorRead{}, wardenerr.Internal("reading log file", err)
	}
	buffer = buffer[:n]

	// NextCursor advances only to the last byte actually read — never
	// past it. The caller must resume precisely where reading stopped
	// or the skipped bytes are lost forever.
	read.NextCursor = read.FromCursor + int64(n)
	read.Logs = lastLines(string(buffer), maxLines)
	return read, nil
}

// lastLines splits text on newlines and returns the final count lines,
// newline-joined. A trailing newline does not produce an empty last
// line.
func lastLines(text string, count int) string {
	if text == "" {
		return ""
	}
	lines := strings.Split(strings.TrimSuffix(text, "\n"), "\n")
	if count > 0 && len(lines) > count {
		lines = lines[len(lines)-count:]
	}
	return strings.Join(lines, "\n")
}
