// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Anthropic defaults.
const (
	DefaultBaseURL        = "https://api.anthropic.com"
	DefaultModel          = "claude-sonnet-4-5"
	DefaultMaxTokens      = 2048
	DefaultRequestTimeout = 60 * time.Second
	anthropicVersion      = "2023-06-01"
)

// Anthropic implements Summarizer against the Anthropic Messages API,
// non-streaming: the pipeline consumes whole summaries, never partial
// text.
type Anthropic struct {
	// BaseURL is the API root. Default DefaultBaseURL.
	BaseURL string

	// APIKey authenticates the request.
	APIKey string

	// Model selects the generation model. Default DefaultModel.
	Model string

	// MaxTokens bounds the generated summary length.
	MaxTokens int

	// Timeout bounds each call. Default DefaultRequestTimeout.
	Timeout time.Duration

	// HTTPClient is the transport. Defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// anthropic wire types, non-streaming subset of the Messages API.
type anthropicRequest struct {
	Model     string             `json:"model"`
	MaxTokens int                `json:"max_tokens"`
	System    string             `json:"system,omitempty"`
	Messages  []anthropicMessage `json:"messages"`
}

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	StopReason string `json:"stop_reason"`
}

// Summarize sends one messages call and returns the concatenated text
// blocks of the response.
func (provider *Anthropic) Summarize(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	timeout := provider.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	model := provider.Model
	if model == "" {
		model = DefaultModel
	}
	maxTokens := provider.MaxTokens
	if maxTokens <= 0 {
		maxTokens = DefaultMaxTokens
	}

	wireRequest := anthropicRequest{
		Model:     model,
		MaxTokens: maxTokens,
		System:    systemPrompt,
		Messages: []anthropicMessage{
			{Role: "user", Content: userPrompt},
		},
	}

	body, err := json.Marshal(wireRequest)
	if err != nil {
		return "", fmt.Errorf("llm: marshaling request: %w", err)
	}

	baseURL := provider.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	endpoint := strings.TrimSuffix(baseURL, "/") + "/v1/messages"

	httpRequest, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: creating request: %w", err)
	}
	httpRequest.Header.Set("Content-Type", "application/json")
	httpRequest.Header.Set("x-api-key", provider.APIKey)
	httpRequest.Header.Set("anthropic-version", anthropicVersion)

	httpClient := provider.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	httpResponse, err := httpClient.Do(httpRequest)
	if err != nil {
		return "", fmt.Errorf("llm: sending request: %w", err)
	}
	defer httpResponse.Body.Close()

	if httpResponse.StatusCode != http.StatusOK {
		return "", readProviderError(httpResponse)
	}

	var wireResponse anthropicResponse
	if err := json.NewDecoder(httpResponse.Body).Decode(&wireResponse); err != nil {
		return "", fmt.Errorf("llm: decoding response: %w", err)
	}

	var text strings.Builder
	for _, block := range wireResponse.Content {
		if block.Type == "text" {
			text.WriteString(block.Text)
		}
	}
	return text.String(), nil
}

// readProviderError parses an error body in the common provider format
// {"error":{"type":"...","message":"..."}}; anything else is carried
// verbatim.
func readProviderError(httpResponse *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(httpResponse.Body, 4096))

	var wireError struct {
		Error struct {
			Type    string `json:"type"`
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &wireError) == nil && wireError.Error.Message != "" {
		return &ProviderError{
			StatusCode: httpResponse.StatusCode,
			Type:       wireError.Error.Type,
			Message:    wireError.Error.Message,
		}
	}

	return &ProviderError{
		StatusCode: httpResponse.StatusCode,
		Message:    string(body),
	}
}
