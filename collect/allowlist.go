// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/logwarden-foundation/logwarden/lib/wardenerr"
)

// PathAllowlist answers "is this real path inside the allowlist". The
// configured entries (files or directories) are canonicalized once at
// construction; requested paths are canonicalized the same way on each
// Resolve call, so symlinks cannot smuggle a path out of the allowed
// tree.
//
// The allowlist is immutable after construction and safe to share
// across concurrent requests.
type PathAllowlist struct {
	// files holds canonicalized allowed file paths.
	files map[string]struct{}

	// directories holds canonicalized allowed directory prefixes,
	// separator-terminated so "/var/log" does not admit
	// "/var/logging".
	directories []string
}

// NewPathAllowlist canonicalizes the configured entries and builds the
// allowlist. Entries that cannot be resolved (missing path, broken
// symlink) are dropped: an unresolvable entry can never match a real
// request, and failing startup over it would make a stale config
// entry an outage.
func NewPathAllowlist(entries []string) *PathAllowlist {
	allowlist := &PathAllowlist{files: make(map[string]struct{})}

	for _, entry := range entries {
		canonical, isDirectory, ok := canonicalize(entry)
		if !ok {
			continue
		}
		if isDirectory {
			allowlist.directories = append(allowlist.directories,
				strings.TrimSuffix(canonical, string(filepath.Separator))+string(filepath.Separator))
		} else {
			allowlist.files[canonical] = struct{}{}
		}
	}

	return allowlist
}

// Resolve canonicalizes the requested path and returns it if it is an
// allowed file or nested under an allowed directory. Every failure
// mode — bad characters, canonicalization failure, no match — returns
// the same forbidden error, so a caller cannot probe for the existence
// of paths outside the allowlist.
func (allowlist *PathAllowlist) Resolve(requested string) (string, error) {
	if err := ValidateTarget(requested); err != nil {
		return "", err
	}

	canonical, _, ok := canonicalize(requested)
	if !ok {
		return "", forbiddenPath(requested)
	}

	if _, allowed := allowlist.files[canonical]; allowed {
		return canonical, nil
	}
	for _, directory := range allowlist.directories {
		if strings.HasPrefix(canonical, directory) {
			return canonical, nil
		}
	}

	return "", forbiddenPath(requested)
}

// forbiddenPath is the single error shape for every disallowed path.
func forbiddenPath(requested string) error {
	return wardenerr.Forbidden("path %q is not in the allowlist", requested)
}

// canonicalize resolves a path to its absolute, symlink-free form and
// reports whether it is a directory. ok is false when the path cannot
// be resolved.
func canonicalize(path string) (canonical string, isDirectory bool, ok bool) {
	absolute, err := filepath.Abs(path)
	if err != nil {
		return "", false, false
	}
	resolved, err := filepath.EvalSymlinks(absolute)
	if err != nil {
		return "", false, false
	}
	info, err := os.Stat(resolved)
	if err != nil {
		return "", false, false
	}
	return resolved, info.IsDir(), true
}
