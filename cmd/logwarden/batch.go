// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/logwarden-foundation/logwarden/cmd/logwarden/cli"
	"github.com/logwarden-foundation/logwarden/collect"
)

// wireRequest is the JSON shape of one batch item.
type wireRequest struct {
	Source        string            `json:"source"`
	Target        string            `json:"target"`
	Hours         float64           `json:"hours"`
	MaxLines      int               `json:"maxLines"`
	Cursor        *int64            `json:"cursor"`
	Filters       map[string]string `json:"filters"`
	Contains      string            `json:"contains"`
	Start         string            `json:"start"`
	End           string            `json:"end"`
	AllowUnscoped bool              `json:"allowUnscoped"`
}

func (wire wireRequest) toRequest() (collect.Request, error) {
	source, err := collect.ParseSource(wire.Source)
	if err != nil {
		return collect.Request{}, err
	}
	return collect.Request{
		Source:        source,
		Target:        wire.Target,
		Hours:         wire.Hours,
		MaxLines:      wire.MaxLines,
		Cursor:        wire.Cursor,
		Filters:       wire.Filters,
		Contains:      wire.Contains,
		Start:         wire.Start,
		End:           wire.End,
		AllowUnscoped: wire.AllowUnscoped,
	}, nil
}

func batchCommand() *cli.Command {
	var (
		configPath  string
		verbose     bool
		concurrency int
	)
	return &cli.Command{
		Name:    "batch",
		Summary: "Collect logs from many sources concurrently",
		Description: "Run a JSON array of collection requests concurrently and print\n" +
			"one result per request in input order. A failed item is reported\n" +
			"in place; the batch itself always completes.",
		Usage: "logwarden batch <requests.json | -> [flags]",
		Flags: func() *pflag.FlagSet {
			flagSet := pflag.NewFlagSet("batch", pflag.ContinueOnError)
			flagSet.StringVar(&configPath, "config", "", "configuration file (defaults to $LOGWARDEN_CONFIG)")
			flagSet.BoolVar(&verbose, "verbose", false, "enable debug logging")
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
			if concurrency == 0 {
				concurrency = cfg.Batch.DefaultConcurrency
			}

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			results := service.CollectBatch(ctx, requests, concurrency)

			encoder := json.NewEncoder(os.Stdout)
			encoder.SetIndent("", "  ")
			return encoder.Encode(results)
		},
	}
}

// readBatchRequests parses the request array from a file or stdin.
func readBatchRequests(path string) ([]collect.Request, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading batch requests: %w", err)
	}

	var wires []wireRequest
	if err := json.Unmarshal(data, &wires); err != nil {
		return nil, fmt.Errorf("parsing batch requests: %w", err)
	}
	if len(wires) == 0 {
		return nil, fmt.Errorf("batch request list is empty")
	}

	requests := make([]collect.Request, 0, len(wires))
	for i, wire := range wires {
		request, err := wire.toRequest()
		if err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
		requests = append(requests, request)
	}
	return requests, nil
}
