// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package collect gathers read-only log evidence from live sources —
// the system journal, container runtimes, local files, and the log
// aggregator — under strict security and resource constraints, so a
// downstream text-generation step can summarize it safely.
package collect

import (
	"context"
	"encoding/hex"
	"log/slog"

	"github.com/zeebo/blake3"

	"github.com/logwarden-foundation/logwarden/lib/wardenerr"
	"github.com/logwarden-foundation/logwarden/loki"
)

// LokiQuerier is the aggregator client surface the facade needs.
// Satisfied by *loki.Client; tests substitute a fake.
type LokiQuerier interface {
	QueryRange(ctx context.Context, selector, startISO, endISO string, limit int) (string, error)
}

// Service is the collection facade: the single dispatch point over the
// closed Source enum. It owns no per-request state; the rules document
// and path allowlist it carries are immutable after startup and safe
// to share across concurrent requests.
type Service struct {
	// Allowlist gates the file source. Required for SourceFile.
	Allowlist *PathAllowlist

	// Commands runs the journal and container queries. Required for
	// those sources.
	Commands *CommandCollector

	// Loki executes aggregator queries. Required for SourceLoki.
	Loki LokiQuerier

	// Rules validates aggregator label filters. Required for
	// SourceLoki; a nil Rules is a config error at request time.
	Rules *loki.Rules

	// RequireScopeLabels enforces the host/unit scope guard on
	// aggregator queries.
	RequireScopeLabels bool

	// Limits clamps request parameters.
	Limits Limits

	// MaxFileBytes caps file reads. Default DefaultMaxFileBytes.
	MaxFileBytes int64

	// MinConcurrency and MaxConcurrency bound batch fan-out.
	MinConcurrency int
	MaxConcurrency int

	// Logger receives per-collection records. Optional.
	Logger *slog.Logger
}

// Result is one successful collection.
type Result struct {
	// Source and Target echo the request. For the loki source, Target
	// is the compiled selector — the only representation ever
	// displayed.
	Source Source
	Target string

	// Logs is the collected text, newline-joined, in source order.
	Logs string

	// Digest is the BLAKE3 hex digest of Logs, tying a downstream
	// summary back to the exact evidence it was produced from.
	Digest string

	// Cursor is set only for incremental file reads.
	Cursor *CursorRead
}

// ItemResult is one entry of a batch response. Status is 200 for a
// successful item, else the typed error status; Error carries the
// message. A batch call itself always succeeds — per-item failure is
// data, not an aggregate error.
type ItemResult struct {
	Target string
	Status int
	Logs   string
	Digest string
	Cursor *CursorRead
	Error  string
}

// Collect runs one collection request through validation, the
// source-specific collector, and digest computation.
func (service *Service) Collect(ctx context.Context, request Request) (Result, error) {
	request.Clamp(service.Limits)

	var (
		result = Result{Source: request.Source, Target: request.Target}
		err    error
	)

	switch request.Source {
	case SourceJournal:
		result.Logs, err = service.Commands.Journal(ctx, request.Target, request.Hours, request.MaxLines)

	case SourceContainer:
		result.Logs, err = service.Commands.Container(ctx, request.Target, request.Hours, request.MaxLines)

	case SourceFile:
		result.Logs, result.Cursor, err = service.collectFile(request)

	case SourceLoki:
		result.Target, result.Logs, err = service.collectLoki(ctx, request)

	default:
		err = wardenerr.Validation("unknown source %v", request.Source)
	}

	if err != nil {
		if service.Logger != nil {
			service.Logger.Warn("collection failed",
				"source", request.Source.String(),
				"target", request.Target,
				"status", wardenerr.StatusOf(err),
				"error", err,
			)
		}
		return Result{}, err
	}

	result.Digest = digest(result.Logs)

	if service.Logger != nil {
		service.Logger.Info("collection complete",
			"source", request.Source.String(),
			"target", result.Target,
			"bytes", len(result.Logs),
		)
	}

	return result, nil
}

// collectFile resolves the path through the allowlist and dispatches
// to the full tail or the incremental cursor reader.
func (service *Service) collectFile(request Request) (string, *CursorRead, error) {
	path, err := service.Allowlist.Resolve(request.Target)
	if err != nil {
		return "", nil, err
	}

	maxBytes := service.MaxFileBytes
	if maxBytes <= 0 {
		maxBytes = DefaultMaxFileBytes
	}

	if request.Cursor != nil {
		read, err := ReadFrom(path, *request.Cursor, request.MaxLines, maxBytes)
		if err != nil {
			return "", nil, err
		}
		return read.Logs, &read, nil
	}

	logs, err := TailFile(path, request.MaxLines, maxBytes)
	return logs, nil, err
}

// collectLoki validates the label filters against the rules document,
// compiles the selector, and executes the query. Returns the compiled
// selector as the display target.
func (service *Service) collectLoki(ctx context.Context, request Request) (selector, logs string, err error) {
	if service.Rules == nil {
		return "", "", wardenerr.Config("aggregator rules are not loaded", nil)
	}
	if len(request.Filters) == 0 {
		return "", "", wardenerr.Validation("loki requests require at least one label filter")
	}

	if err := service.Rules.ValidateLabels(request.Filters); err != nil {
		return "", "", err
	}
	if service.RequireScopeLabels {
		if err := loki.EnsureScoped(request.Filters, request.AllowUnscoped); err != nil {
			return "", "", err
		}
	}

	selector = loki.BuildSelector(request.Filters, request.Contains)
	logs, err = service.Loki.QueryRange(ctx, selector, request.Start, request.End, request.MaxLines)
	if err != nil {
		return "", "", err
	}
	return selector, logs, nil
}

// CollectBatch fans Collect out over the requests with bounded
// concurrency. Results are positionally aligned with the requests.
func (service *Service) CollectBatch(ctx context.Context, requests []Request, concurrency int) []ItemResult {
	concurrency = ClampConcurrency(concurrency, service.MinConcurrency, service.MaxConcurrency)

	batch := RunAll(ctx, requests, concurrency, service.Collect)

	items := make([]ItemResult, len(batch))
	for i, result := range batch {
		if result.Err != nil {
			items[i] = ItemResult{
				Target: requests[i].Target,
				Status: wardenerr.StatusOf(result.Err),
				Error:  result.Err.Error(),
			}
			continue
		}
		items[i] = ItemResult{
			Target: result.Value.Target,
			Status: 200,
			Logs:   result.Value.Logs,
			Digest: result.Value.Digest,
			Cursor: result.Value.Cursor,
		}
	}
	return items
}

// digest computes the BLAKE3 hex digest of collected text.
func digest(logs string) string {
	sum := blake3.Sum256([]byte(logs))
	return hex.EncodeToString(sum[:])
}
