// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

// Package llm provides the text-generation call consumed by the
// analysis pipeline. The pipeline only needs one operation — a
// blocking Summarize with its own timeout policy — so this package
// deliberately exposes nothing of the underlying messages API beyond
// that.
package llm

import (
	"context"
	"fmt"
)

// Summarizer produces an analysis of a user prompt under a system
// prompt. Implementations carry their own timeout and retry policy;
// callers only see text or a typed error.
type Summarizer interface {
	Summarize(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// ProviderError is returned when the generation API responds with an
// error status.
type ProviderError struct {
	// StatusCode is the HTTP status code.
	StatusCode int

	// Type is the provider-specific error type string
	// (e.g. "invalid_request_error", "rate_limit_error").
	Type string

	// Message is the human-readable error description.
	Message string
}

func (err *ProviderError) Error() string {
	if err.Type != "" {
		return fmt.Sprintf("llm: HTTP %d: %s: %s", err.StatusCode, err.Type, err.Message)
	}
	return fmt.Sprintf("llm: HTTP %d: %s", err.StatusCode, err.Message)
}

// IsRateLimited reports whether the error is a rate limit response.
func (err *ProviderError) IsRateLimited() bool { return err.StatusCode == 429 }
