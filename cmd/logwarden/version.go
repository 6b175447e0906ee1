// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"fmt"
	"runtime/debug"

	"github.com/logwarden-foundation/logwarden/cmd/logwarden/cli"
)

func versionCommand() *cli.Command {
	return &cli.Command{
		Name:    "version",
		Summary: "Print the build version",
		Run: func(args []string) error {
			info, ok := debug.ReadBuildInfo()
			if !ok {
				fmt.Println("logwarden (build info unavailable)")
				return nil
			}
			version := info.Main.Version
			if version == "" || version == "(devel)" {
				version = "devel"
			}
			revision := ""
			for _, setting := range info.Settings {
				if setting.Key == "vcs.revision" {
					revision = setting.Value
				}
			}
			if revision != "" {
				fmt.Printf("logwarden %s (%s)\n", version, revision)
			} else {
				fmt.Printf("logwarden %s\n", version)
			}
			return nil
		},
	}
}
