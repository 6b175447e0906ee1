// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package analyze runs the full evidence pipeline for one target:
// collect, truncate to the prompt budget, summarize via the external
// text-generation call, and screen the generated text through the
// output-safety filter before it leaves the system.
package analyze

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/logwarden-foundation/logwarden/collect"
	"github.com/logwarden-foundation/logwarden/lib/llm"
	"github.com/logwarden-foundation/logwarden/lib/wardenerr"
	"github.com/logwarden-foundation/logwarden/safety"
)

// DefaultMaxPromptChars is the character budget for raw log text
// handed to the summarizer.
const DefaultMaxPromptChars = 60000

// systemPrompt frames the summarizer as a strictly read-only analyst.
// The output-safety filter enforces what this prompt can only request.
const systemPrompt = `You are a read-only log analyst. Summarize the supplied log evidence:
notable errors, anomalies, and timelines. You must not propose, quote,
or format any command that would modify the system — no package
installs, service restarts, file removals, permission or firewall
changes. Describe problems; do not prescribe remediation commands.`

// Analyzer wires the collection facade, the summarizer, and the
// safety filter into one pipeline.
type Analyzer struct {
	// Collector performs the evidence collection.
	Collector *collect.Service

	// Summarizer is the external text-generation call. It carries its
	// own timeout and retry policy.
	Summarizer llm.Summarizer

	// Filter screens generated text. Required.
	Filter *safety.Filter

	// MaxPromptChars caps raw log characters per prompt. Default
	// DefaultMaxPromptChars.
	MaxPromptChars int

	// Logger receives per-analysis records. Optional.
	Logger *slog.Logger
}

// Report is one completed analysis.
type Report struct {
	// Target echoes the collection target (the compiled selector for
	// aggregator requests).
	Target string

	// Analysis is the screened summary text.
	Analysis string

	// Redacted is true when the safety filter removed content, and
	// Reasons names the patterns that fired.
	Redacted bool
	Reasons  []string

	// Digest is the BLAKE3 digest of the collected evidence the
	// analysis was produced from.
	Digest string

	// LogBytes is the size of the collected evidence before prompt
	// truncation.
	LogBytes int
}

// ItemReport is one entry of a batch analysis. Status is 200 on
// success, else the typed error status.
type ItemReport struct {
	Target string
	Status int
	Report Report
	Error  string
}

// Analyze runs the pipeline for a single request.
func (analyzer *Analyzer) Analyze(ctx context.Context, request collect.Request) (Report, error) {
	collected, err := analyzer.Collector.Collect(ctx, request)
	if err != nil {
		return Report{}, err
	}

	if collected.Logs == "" {
		return Report{
			Target:   collected.Target,
			Analysis: "No log entries were found for this target in the requested window.",
			Digest:   collected.Digest,
		}, nil
	}

	budget := analyzer.MaxPromptChars
	if budget <= 0 {
		budget = DefaultMaxPromptChars
	}

	userPrompt := fmt.Sprintf("Log evidence from %s %s:\n\n%s",
		collected.Source, collected.Target, truncateTail(collected.Logs, budget))

	summary, err := analyzer.Summarizer.Summarize(ctx, systemPrompt, userPrompt)
	if err != nil {
		return Report{}, wardenerr.Upstream("summarization failed", err)
	}

	outcome := analyzer.Filter.Redact(summary)
	if outcome.Redacted && analyzer.Logger != nil {
		analyzer.Logger.Warn("analysis text required redaction",
			"target", collected.Target,
			"reasons", outcome.Reasons,
		)
	}

	return Report{
		Target:   collected.Target,
		Analysis: outcome.Text,
		Redacted: outcome.Redacted,
		Reasons:  outcome.Reasons,
		Digest:   collected.Digest,
		LogBytes: len(collected.Logs),
	}, nil
}

// AnalyzeBatch fans Analyze out over the requests with bounded
// concurrency; results are positionally aligned. One failed target is
// recorded and never aborts its siblings.
func (analyzer *Analyzer) AnalyzeBatch(ctx context.Context, requests []collect.Request, concurrency int) []ItemReport {
	concurrency = collect.ClampConcurrency(concurrency,
		analyzer.Collector.MinConcurrency, analyzer.Collector.MaxConcurrency)

	batch := collect.RunAll(ctx, requests, concurrency, analyzer.Analyze)

	items := make([]ItemReport, len(batch))
	for i, result := range batch {
		if result.Err != nil {
			items[i] = ItemReport{
				Target: requests[i].Target,
				Status: wardenerr.StatusOf(result.Err),
				Error:  result.Err.Error(),
			}
			continue
		}
		items[i] = ItemReport{
			Target: result.Value.Target,
			Status: 200,
			Report: result.Value,
		}
	}
	return items
}

// truncateTail keeps the final budget runes of text — the most recent
// evidence — cutting at a rune boundary so a multi-byte character is
// never split.
func truncateTail(text string, budget int) string {
	runes := []rune(text)
	if len(runes) <= budget {
		return text
	}
	return "... [earlier evidence truncated]\n" + string(runes[len(runes)-budget:])
}
