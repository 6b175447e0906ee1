// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

package loki

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/valyala/fastjson"

	"github.com/logwarden-foundation/logwarden/lib/clock"
	"github.com/logwarden-foundation/logwarden/lib/wardenerr"
)

// Client defaults.
const (
	DefaultRequestTimeout   = 15 * time.Second
	DefaultWindowMinutes    = 60
	DefaultMaxWindowMinutes = 1440
	DefaultMaxEntries       = 5000
	DefaultMaxResponseBytes = 5 * 1024 * 1024

	// TruncationMarker is appended as its own line when the formatted
	// response hits the byte cap. Truncation is always at a line
	// boundary — mid-line truncation would corrupt a line's content.
	TruncationMarker = "... [truncated: response byte limit reached]"

	// upstreamBodyTail is how much of a non-2xx upstream body is
	// carried in the error message.
	upstreamBodyTail = 300
)

// Client executes time-ranged queries against the aggregator's HTTP
// API. Queries run forward (direction=forward) and the tail `limit`
// entries are kept after the explicit ascending sort; under a tight
// limit on a high-volume stream this can differ at the boundary from a
// backward query, and forward is the documented choice here.
type Client struct {
	// BaseURL is the aggregator root, e.g. "http://loki:3100".
	BaseURL string

	// HTTPClient is the transport. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Timeout bounds each query_range call client-side.
	Timeout time.Duration

	// DefaultWindow is the look-back used when start/end are omitted.
	DefaultWindow time.Duration

	// MaxWindow caps (end - start); wider requests are a validation
	// error, not a clamp — an explicit window is a caller statement,
	// unlike the hours knob on command sources.
	MaxWindow time.Duration

	// MaxEntries caps the entry count regardless of the request limit.
	MaxEntries int

	// MaxResponseBytes caps the total formatted response.
	MaxResponseBytes int

	// Clock supplies "now" for default window resolution.
	Clock clock.Clock

	// Logger receives per-query debug records. Optional.
	Logger *slog.Logger
}

// entry is one flattened (labels, timestamp, line) tuple from the
// streams response shape.
type entry struct {
	nanos  int64
	labels string
	line   string
}

// QueryRange runs one query_range call and returns the formatted,
// time-sorted, byte-capped text.
//
// Each line is formatted as "<RFC-3339 timestamp> [<label=value,...>]
// <line>" with labels sorted by key; the bracket segment is omitted
// for streams carrying no labels.
func (client *Client) QueryRange(ctx context.Context, selector, startISO, endISO string, limit int) (string, error) {
	start, end, err := client.resolveWindow(startISO, endISO)
	if err != nil {
		return "", err
	}

	maxEntries := client.MaxEntries
	if maxEntries <= 0 {
		maxEntries = DefaultMaxEntries
	}
	if limit <= 0 || limit > maxEntries {
		limit = maxEntries
	}

	timeout := client.Timeout
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	body, err := client.doQueryRange(ctx, selector, start, end, limit, timeout)
	if err != nil {
		return "", err
	}

	entries, err := parseStreams(body)
	if err != nil {
		return "", err
	}

	// Aggregator responses interleave multiple label streams and are
	// not globally time-ordered. Sort ascending, ties broken by
	// original order, then keep only the most recent `limit`.
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].nanos < entries[j].nanos })
	if len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}

	return client.format(entries), nil
}

// resolveWindow validates and defaults the query time range.
func (client *Client) resolveWindow(startISO, endISO string) (time.Time, time.Time, error) {
	defaultWindow := client.DefaultWindow
	if defaultWindow <= 0 {
		defaultWindow = DefaultWindowMinutes * time.Minute
	}
	maxWindow := client.MaxWindow
	if maxWindow <= 0 {
		maxWindow = DefaultMaxWindowMinutes * time.Minute
	}

	now := time.Now()
	if client.Clock != nil {
		now = client.Clock.Now()
	}

	start := now.Add(-defaultWindow)
	end := now

	if startISO != "" {
		parsed, err := time.Parse(time.RFC3339, startISO)
		if err != nil {
			return time.Time{}, time.Time{}, wardenerr.Validation("start %q is not a valid RFC 3339 timestamp", startISO)
		}
		start = parsed
	}
	if endISO != "" {
		parsed, err := time.Parse(time.RFC3339, endISO)
		if err != nil {
			return time.Time{}, time.Time{}, wardenerr.Validation("end %q is not a valid RFC 3339 timestamp", endISO)
		}
		end = parsed
	}

	if !start.Before(end) {
		return time.Time{}, time.Time{}, wardenerr.Validation("start must be strictly before end")
	}
	if end.Sub(start) > maxWindow {
		return time.Time{}, time.Time{}, wardenerr.Validation("window %s exceeds the maximum %s", end.Sub(start), maxWindow)
	}

	return start, end, nil
}

// doQueryRange issues the HTTP request and returns the raw response
// body. Responses may arrive gzip-encoded; they are decompressed here
// so parseStreams always sees plain JSON.
func (client *Client) doQueryRange(ctx context.Context, selector string, start, end time.Time, limit int, timeout time.Duration) ([]byte, error) {
	query := url.Values{}
	query.Set("query", selector)
	query.Set("start", strconv.FormatInt(start.UnixNano(), 10))
	query.Set("end", strconv.FormatInt(end.UnixNano(), 10))
	query.Set("limit", strconv.Itoa(limit))
	query.Set("direction", "forward")

	endpoint := strings.TrimSuffix(client.BaseURL, "/") + "/loki/api/v1/query_range?" + query.Encode()

	request, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, wardenerr.Internal("building query_range request", err)
	}
	request.Header.Set("Accept", "application/json")
	request.Header.Set("Accept-Encoding", "gzip")

	if client.Logger != nil {
		client.Logger.Debug("loki query_range",
			"selector", selector,
			"start", start,
			"end", end,
			"limit", limit,
		)
	}

	httpClient := client.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	response, err := httpClient.Do(request)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, wardenerr.Timeout("aggregator query did not complete within %s", timeout)
		}
		return nil, wardenerr.Upstream("aggregator request failed", err)
	}
	defer response.Body.Close()

	reader := io.Reader(response.Body)
	if response.Header.Get("Content-Encoding") == "gzip" {
		gzipReader, err := gzip.NewReader(response.Body)
		if err != nil {
			return nil, wardenerr.Upstream("decompressing aggregator response", err)
		}
		defer gzipReader.Close()
		reader = gzipReader
	}

	// The formatted-output cap is enforced later at line granularity;
	// this raw cap only bounds memory against a pathological upstream.
	rawCap := int64(client.maxResponseBytes()) * 4
	body, err := io.ReadAll(io.LimitReader(reader, rawCap))
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, wardenerr.Timeout("aggregator query did not complete within %s", timeout)
		}
		return nil, wardenerr.Upstream("reading aggregator response", err)
	}

	if response.StatusCode < 200 || response.StatusCode > 299 {
		tail := string(body)
		if len(tail) > upstreamBodyTail {
			tail = tail[:upstreamBodyTail]
		}
		return nil, wardenerr.Upstream(
			fmt.Sprintf("aggregator returned %d: %s", response.StatusCode, tail), nil)
	}

	return body, nil
}

// parseStreams flattens the query_range "streams" result shape into
// entries: every (label-set, [timestamp, line]) pair across all
// returned streams.
func parseStreams(body []byte) ([]entry, error) {
	var parser fastjson.Parser
	root, err := parser.ParseBytes(body)
	if err != nil {
		return nil, wardenerr.Upstream("aggregator response is not valid JSON", err)
	}

	resultType := string(root.GetStringBytes("data", "resultType"))
	if resultType != "" && resultType != "streams" {
		return nil, wardenerr.Upstream(fmt.Sprintf("unexpected result type %q", resultType), nil)
	}

	var entries []entry
	for _, stream := range root.GetArray("data", "result") {
		labels := formatLabels(stream.GetObject("stream"))
		for _, value := range stream.GetArray("values") {
			pair := value.GetArray()
			if len(pair) < 2 {
				continue
			}
			nanos, err := strconv.ParseInt(string(pair[0].GetStringBytes()), 10, 64)
			if err != nil {
				continue
			}
			entries = append(entries, entry{
				nanos:  nanos,
				labels: labels,
				line:   string(pair[1].GetStringBytes()),
			})
		}
	}

	return entries, nil
}

// formatLabels renders a stream's label set as "k1=v1,k2=v2" sorted by
// key. Returns "" for a stream with no labels.
func formatLabels(object *fastjson.Object) string {
	if object == nil {
		return ""
	}

	type label struct{ key, value string }
	var labels []label
	object.Visit(func(key []byte, value *fastjson.Value) {
		labels = append(labels, label{string(key), string(value.GetStringBytes())})
	})
	sort.Slice(labels, func(i, j int) bool { return labels[i].key < labels[j].key })

	parts := make([]string, len(labels))
	for i, l := range labels {
		parts[i] = l.key + "=" + l.value
	}
	return strings.Join(parts, ",")
}

// format renders sorted entries as display lines under the response
// byte cap. Accumulation stops before the line that would exceed the
// cap; a single truncation marker line is appended instead.
func (client *Client) format(entries []entry) string {
	byteCap := client.maxResponseBytes()

	var (
		builder strings.Builder
		total   int
	)
	for _, e := range entries {
		timestamp := time.Unix(0, e.nanos).UTC().Format(time.RFC3339Nano)
		var line string
		if e.labels == "" {
			line = timestamp + " " + e.line
		} else {
			line = timestamp + " [" + e.labels + "] " + e.line
		}

		if total+len(line)+1 > byteCap {
			builder.WriteString(TruncationMarker)
			builder.WriteByte('\n')
			break
		}
		builder.WriteString(line)
		builder.WriteByte('\n')
		total += len(line) + 1
	}

	return strings.TrimSuffix(builder.String(), "\n")
}

func (client *Client) maxResponseBytes() int {
	if client.MaxResponseBytes > 0 {
		return client.MaxResponseBytes
	}
	return DefaultMaxResponseBytes
}
