// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/logwarden-foundation/logwarden/analyze"
	"github.com/logwarden-foundation/logwarden/cmd/logwarden/cli"
)

func analyzeCommand() *cli.Command {
	var (
		configPath  string
		verbose     bool
		asJSON      bool
		concurrency int
	)
	return &cli.Command{
		Name:    "analyze",
		Summary: "Collect logs and summarize them",
		Description: "Collect log evidence and run it through the summarization\n" +
			"pipeline, screening the generated text for remediation commands\n" +
			"before printing it. With a JSON request file the whole batch is\n" +
			"analyzed concurrently.",
		Usage: "logwarden analyze <requests.json | -> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("analyze", pflag.ContinueOnError)
			flagSet.StringVar(&configPath, "config", "", "configuration file (defaults to $LOGWARDEN_CONFIG)")
			flagSet.BoolVar(&verbose, "verbose", false, "enable debug logging")
			flagSet.BoolVar(&asJSON, "json", false, "emit reports as JSON instead of formatted text")
			flagSet.IntVar(&concurrency, "concurrency", 0, "worker count (0 means the configured default)")
			return flagSet
		},
		Run: func(args []string) error {
			if len(args) != 1 {
				return fmt.Errorf("expected exactly one request file (or - for stdin), got %d arguments", len(args))
			}

			requests, err := readBatchRequests(args[0])
			if err != nil {
				return err
			}

			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			logger := newLogger(verbose)
			service, err := buildService(cfg, logger)
			if err != nil {
				return err
			}
			analyzer, err := buildAnalyzer(cfg, service, logger)
			if err != nil {
				return err
			}
			if concurrency == 0 {
				concurrency = cfg.Batch.DefaultConcurrency
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			if len(requests) == 1 {
				report, err := analyzer.Analyze(ctx, requests[0])
				if err != nil {
					return err
				}
				return printReport(asJSON, report)
			}

			reports := analyzer.AnalyzeBatch(ctx, requests, concurrency)
			if asJSON {
				encoder := json.NewEncoder(os.Stdout)
				encoder.SetIndent("", "  ")
				return encoder.Encode(reports)
			}
			for i, item := range reports {
				fmt.Printf("=== %s ===\n", item.Target)
				if item.Status != 200 {
					fmt.Printf("failed (%d): %s\n\n", item.Status, item.Error)
					continue
				}
				if err := printReport(false, item.Report); err != nil {
					return err
				}
				if i < len(reports)-1 {
					fmt.Println()
				}
			}
			return nil
		},
	}
}

func printReport(asJSON bool, report analyze.Report) error {
	if asJSON {
		encoder := json.NewEncoder(os.Stdout)
		encoder.SetIndent("", "  ")
		return encoder.Encode(report)
	}
	fmt.Print(report.Analysis)
	if report.Analysis != "" && report.Analysis[len(report.Analysis)-1] != '\n' {
		fmt.Println()
	}
	fmt.Fprintf(os.Stderr, "evidence digest: %s (%d bytes)\n", report.Digest, report.LogBytes)
	if report.Redacted {
		fmt.Fprintf(os.Stderr, "redactions: %v\n", report.Reasons)
	}
	return nil
}
