// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestSummarizeRequestAndResponse(t *testing.T) {
	t.Parallel()

	var gotPath, gotKey, gotVersion string
	var gotBody anthropicRequest
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.Header.Get("x-api-key")
		gotVersion = r.Header.Get("anthropic-version")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Errorf("decoding request body: %v", err)
		}
		fmt.Fprint(w, `{"content":[{"type":"text","text":"part one"},{"type":"text","text":" part two"}],"stop_reason":"end_turn"}`)
	}))
	t.Cleanup(server.Close)

	provider := &Anthropic{
		BaseURL: server.URL,
		APIKey:  "test-key",
		Model:   "test-model",
	}

	summary, err := provider.Summarize(context.Background(), "system text", "user text")
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if summary != "part one part two" {
		t.Errorf("summary: got %q", summary)
	}
	if gotPath != "/v1/messages" {
		t.Errorf("path: got %q", gotPath)
	}
	if gotKey != "test-key" {
		t.Errorf("api key header: got %q", gotKey)
	}
	if gotVersion == "" {
		t.Error("anthropic-version header missing")
	}
	if gotBody.Model != "test-model" {
		t.Errorf("model: got %q", gotBody.Model)
	}
	if gotBody.System != "system text" {
		t.Errorf("system: got %q", gotBody.System)
	}
	if len(gotBody.Messages) != 1 || gotBody.Messages[0].Content != "user text" {
		t.Errorf("messages: got %+v", gotBody.Messages)
	}
	if gotBody.MaxTokens != DefaultMaxTokens {
		t.Errorf("max tokens default: got %d", gotBody.MaxTokens)
	}
}

func TestSummarizeProviderError(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		fmt.Fprint(w, `{"error":{"type":"rate_limit_error","message":"try again later"}}`)
	}))
	t.Cleanup(server.Close)

	provider := &Anthropic{BaseURL: server.URL, APIKey: "k"}
	_, err := provider.Summarize(context.Background(), "s", "u")
	if err == nil {
		t.Fatal("provider error swallowed")
	}

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("error type: got %T", err)
	}
	if providerErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("StatusCode: got %d", providerErr.StatusCode)
	}
	if providerErr.Type != "rate_limit_error" {
		t.Errorf("Type: got %q", providerErr.Type)
	}
	if providerErr.Message != "try again later" {
		t.Errorf("Message: got %q", providerErr.Message)
	}
}

func TestSummarizeNonJSONErrorBody(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, "upstream proxy error")
	}))
	t.Cleanup(server.Close)

	provider := &Anthropic{BaseURL: server.URL, APIKey: "k"}
	_, err := provider.Summarize(context.Background(), "s", "u")

	var providerErr *ProviderError
	if !errors.As(err, &providerErr) {
		t.Fatalf("error type: got %T (%v)", err, err)
	}
	if providerErr.StatusCode != http.StatusBadGateway {
		t.Errorf("StatusCode: got %d", providerErr.StatusCode)
	}
	if providerErr.Message != "upstream proxy error" {
		t.Errorf("Message: got %q", providerErr.Message)
	}
}
