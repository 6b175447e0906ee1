// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Command logwarden collects read-only log evidence from the system
// journal, container runtimes, allowlisted files, and a Loki-style
// aggregator, and optionally summarizes it through a text-generation
// call with output-safety screening.
//
// The binary exists to exercise the collection pipeline end to end;
// the HTTP service surface lives elsewhere.
package main

import (
	"os"

	"github.com/logwarden-foundation/logwarden/cmd/logwarden/cli"
	"github.com/logwarden-foundation/logwarden/lib/process"
)

func main() {
	if err := run(); err != nil {
		process.Fatal(err)
	}
}

func run() error {
	root := &cli.Command{
		Name:    "logwarden",
		Summary: "Bounded, allowlisted log evidence collection",
		Subcommands: []*cli.Command{
			collectCommand(),
			batchCommand(),
			analyzeCommand(),
			versionCommand(),
		},
	}
	return root.Execute(os.Args[1:])
}
