// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/logwarden-foundation/logwarden/cmd/logwarden/cli"
	"github.com/logwarden-foundation/logwarden/collect"
)

// collectFlags holds the flag values shared by the collect
// subcommands. Each subcommand registers only the flags that apply to
// its source.
type collectFlags struct {
	configPath    string
	verbose       bool
	hours         float64
	lines         int
	cursor        int64
	labels        []string
	contains      string
	start         string
	end           string
	allowUnscoped bool
	asJSON        bool
}

func (flags *collectFlags) common(flagSet *pflag.FlagSet) {
	flagSet.StringVar(&flags.configPath, "config", "", "configuration file (defaults to $LOGWARDEN_CONFIG)")
	flagSet.BoolVar(&flags.verbose, "verbose", false, "enable debug logging")
	flagSet.BoolVar(&flags.asJSON, "json", false, "emit the full result as JSON instead of raw log text")
}

func (flags *collectFlags) window(flagSet *pflag.FlagSet) {
	flagSet.Float64Var(&flags.hours, "hours", 1, "look-back window in hours (clamped to the configured maximum)")
	flagSet.IntVar(&flags.lines, "lines", 0, "maximum lines to return (0 means the configured default)")
}

func collectCommand() *cli.Command {
	return &cli.Command{
		Name:    "collect",
		Summary: "Collect logs from a single source",
		Subcommands: []*cli.Command{
			collectJournalCommand(),
			collectContainerCommand(),
			collectFileCommand(),
			collectLokiCommand(),
		},
	}
}

func collectJournalCommand() *cli.Command {
	flags := &collectFlags{}
	return &cli.Command{
		Name:    "journal",
		Summary: "Read the system journal for a unit",
		Description: "Read recent system journal entries for one unit.\n" +
			"Pass the pseudo-target \"all\" to read across every unit.",
		Usage: "logwarden collect journal <unit> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("journal", pflag.ContinueOnError)
			flags.common(flagSet)
			flags.window(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one unit name, got %d arguments", len(args))
			}
			return runCollect(flags, collect.Request{
				Source:   collect.SourceJournal,
				Target:   args[0],
				Hours:    flags.hours,
				MaxLines: flags.lines,
			})
		},
	}
}

func collectContainerCommand() *cli.Command {
	flags := &collectFlags{}
	return &cli.Command{
		Name:    "container",
		Summary: "Read logs for a container",
		Usage:   "logwarden collect container <name> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("container", pflag.ContinueOnError)
			flags.common(flagSet)
			flags.window(flagSet)
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one container name, got %d arguments", len(args))
			}
			return runCollect(flags, collect.Request{
				Source:   collect.SourceContainer,
				Target:   args[0],
				Hours:    flags.hours,
				MaxLines: flags.lines,
			})
		},
	}
}

func collectFileCommand() *cli.Command {
	flags := &collectFlags{}
	return &cli.Command{
		Name:    "file",
		Summary: "Tail an allowlisted log file",
		Description: "Tail the last lines of an allowlisted log file, or — with\n" +
			"--cursor — read forward from a previously returned byte offset.",
		Usage: "logwarden collect file <path> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("file", pflag.ContinueOnError)
			flags.common(flagSet)
			flagSet.IntVar(&flags.lines, "lines", 0, "maximum lines to return (0 means the configured default)")
			flagSet.Int64Var(&flags.cursor, "cursor", -1, "byte offset for an incremental read (-1 for a plain tail)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one file path, got %d arguments", len(args))
			}
			request := collect.Request{
				Source:   collect.SourceFile,
				Target:   args[0],
				MaxLines: flags.lines,
			}
			if flags.cursor >= 0 {
				cursor := flags.cursor
				request.Cursor = &cursor
			}
			return runCollect(flags, request)
		},
	}
}

func collectLokiCommand() *cli.Command {
	flags := &collectFlags{}
	return &cli.Command{
		Name:    "loki",
		Summary: "Query the log aggregator by label filters",
		Description: "Query the configured log aggregator. Streams are selected by\n" +
			"--label key=value pairs validated against the rules file; raw\n" +
			"selector text is never accepted.",
		Usage: "logwarden collect loki --label key=value [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("loki", pflag.ContinueOnError)
			flags.common(flagSet)
			flagSet.IntVar(&flags.lines, "lines", 0, "maximum entries to return (0 means the configured default)")
			flagSet.StringArrayVar(&flags.labels, "label", nil, "label filter as key=value (repeatable)")
			flagSet.StringVar(&flags.contains, "contains", "", "literal substring the returned lines must contain")
			flagSet.StringVar(&flags.start, "start", "", "window start as RFC 3339 (defaults to end minus the configured window)")
			flagSet.StringVar(&flags.end, "end", "", "window end as RFC 3339 (defaults to now)")
			flagSet.BoolVar(&flags.allowUnscoped, "allow-unscoped", false, "permit a query without a host or unit scope label")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 0 {
				return fmt.Errorf("unexpected arguments %v; streams are selected with --label", args)
			}
			filters, err := parseLabelFlags(flags.labels)
			if err != nil {
				return err
			}
			return runCollect(flags, collect.Request{
				Source:        collect.SourceLoki,
				Filters:       filters,
				MaxLines:      flags.lines,
				Contains:      flags.contains,
				Start:         flags.start,
				End:           flags.end,
				AllowUnscoped: flags.allowUnscoped,
			})
		},
	}
}

// parseLabelFlags converts repeated key=value flags into a label map.
func parseLabelFlags(pairs []string) (map[string]string, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	filters := make(map[string]string, len(pairs))
	for _, pair := range pairs {
		key, value, found := strings.Cut(pair, "=")
		if !found || key == "" {
			return nil, fmt.Errorf("label %q is not in key=value form", pair)
		}
		filters[key] = value
	}
	return filters, nil
}

// runCollect loads configuration, builds the service, and executes a
// single collection request.
func runCollect(flags *collectFlags, request collect.Request) error {
	cfg, err := loadConfig(flags.configPath)
	if err != nil {
		return err
	}
	logger := newLogger(flags.verbose)
	service, err := buildService(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	result, err := service.Collect(ctx, request)
	if err != nil {
		return err
	}
	return printResult(flags.asJSON, result)
}

// printResult renders a collection result. The default rendering is
// the raw log text on stdout with the digest (and cursor, if any) on
// stderr, so the log body stays pipeline-friendly.
func printResult(asJSON bool, result collect.Result) error {
	if asJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(resultEnvelope(result))
	}

	fmt.Print(result.Logs)
	if result.Logs != "" && result.Logs[len(result.Logs)-1] != '\n' {
		fmt.Println()
	}
	fmt.Fprintf(os.Stderr, "digest: %s\n", result.Digest)
	if result.Cursor != nil {
		fmt.Fprintf(os.Stderr, "next cursor: %d (rotated: %t)\n", result.Cursor.NextCursor, result.Cursor.Rotated)
	}
	return nil
}

// wireResult is the JSON rendering of a collection result.
type wireResult struct {
	Source string              `json:"source"`
	Target string              `json:"target"`
	Logs   string              `json:"logs"`
	Digest string              `json:"digest"`
	Cursor *collect.CursorRead `json:"cursor,omitempty"`
}

func resultEnvelope(result collect.Result) wireResult {
	return wireResult{
		Source: result.Source.String(),
		Target: result.Target,
		Logs:   result.Logs,
		Digest: result.Digest,
		Cursor: result.Cursor,
	}
}
