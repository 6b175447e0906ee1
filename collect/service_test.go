// Copyright 2026 The Logwarden Authors
// SPDX-License-Identifier: Apache-2.0

package collect

import (
	"context"
	"strings"
	"testing"

	"github.com/logwarden-foundation/logwarden/lib/testutil"
	"github.com/logwarden-foundation/logwarden/lib/wardenerr"
	"github.com/logwarden-foundation/logwarden/loki"
)

// fakeQuerier records the selector it was handed and returns canned
// logs.
type fakeQuerier struct {
	selector string
	logs     string
	err      error
}

func (querier *fakeQuerier) QueryRange(_ context.Context, selector, _, _ string, _ int) (string, error) {
	querier.selector = selector
	if querier.err != nil {
		return "", querier.err
	}
	return querier.logs, nil
}

func testRules(t *testing.T) *loki.Rules {
	t.Helper()
	rules, err := loki.ParseRules([]byte(`
job: systemd-journal
allowedLabels: [job, host, unit]
hosts: [web-1, web-2]
units: [nginx.service]
`))
	if err != nil {
		t.Fatalf("ParseRules: %v", err)
	}
	return rules
}

func TestCollectFileTail(t *testing.T) {
	t.Parallel()

	path := testutil.WriteFile(t, "app.log",
		testutil.Lines("first", "second", "third"))
	service := &Service{
		Allowlist: NewPathAllowlist([]string{path}),
	}

	result, err := service.Collect(context.Background(), Request{
		Source:   SourceFile,
		Target:   path,
		MaxLines: 2,
	})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if result.Logs != "second\nthird" {
		t.Errorf("Logs: got %q", result.Logs)
	}
	if result.Digest == "" {
		t.Error("Digest not computed")
	}
	if result.Cursor != nil {
		t.Error("plain tail produced a cursor")
	}
}

func TestCollectFileIncremental(t *testing.T) {
	t.Parallel()

	contents := testutil.Lines("existing")
	path := testutil.WriteFile(t, "app.log", contents)
	service := &Service{
		Allowlist: NewPathAllowlist([]string{path}),
	}

	cursor := int64(len(contents))
	testutil.AppendFile(t, path, testutil.Lines("appended"))

	result, err := service.Collect(context.Background(), Request{
		Source: SourceFile,
		Target: path,
		Cursor: &cursor,
	})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	if result.Logs != "appended" {
		t.Errorf("Logs: got %q, want %q", result.Logs, "appended")
	}
	if result.Cursor == nil {
		t.Fatal("incremental read lost its cursor")
	}
	if result.Cursor.NextCursor != int64(len(contents)+len("appended\n")) {
		t.Errorf("NextCursor: got %d", result.Cursor.NextCursor)
	}
}

func TestCollectFileOutsideAllowlist(t *testing.T) {
	t.Parallel()

	allowed := testutil.WriteFile(t, "allowed.log", "x\n")
	outside := testutil.WriteFile(t, "outside.log", "y\n")
	service := &Service{Allowlist: NewPathAllowlist([]string{allowed})}

	_, err := service.Collect(context.Background(), Request{
		Source: SourceFile,
		Target: outside,
	})
	if err == nil {
		t.Fatal("path outside the allowlist accepted")
	}
	if got := wardenerr.StatusOf(err); got != wardenerr.StatusForbidden {
		t.Errorf("status: got %d, want %d", got, wardenerr.StatusForbidden)
	}
}

func TestCollectLokiBuildsAndValidatesSelector(t *testing.T) {
	t.Parallel()

	querier := &fakeQuerier{logs: "line one\nline two"}
	service := &Service{
		Loki:               querier,
		Rules:              testRules(t),
		RequireScopeLabels: true,
	}

	result, err := service.Collect(context.Background(), Request{
		Source: SourceLoki,
		Filters: map[string]string{
			"job":  "systemd-journal",
			"host": "web-1",
		},
	})
	if err != nil {
		t.Fatalf("Collect: %v", err)
	}
	want := `{host="web-1",job="systemd-journal"}`
	if querier.selector != want {
		t.Errorf("selector sent upstream: got %q, want %q", querier.selector, want)
	}
	if result.Target != want {
		t.Errorf("display target: got %q, want %q", result.Target, want)
	}
	if result.Logs != "line one\nline two" {
		t.Errorf("Logs: got %q", result.Logs)
	}
}

func TestCollectLokiScopeGuard(t *testing.T) {
	t.Parallel()

	service := &Service{
		Loki:               &fakeQuerier{},
		Rules:              testRules(t),
		RequireScopeLabels: true,
	}

	_, err := service.Collect(context.Background(), Request{
		Source:  SourceLoki,
		Filters: map[string]string{"job": "systemd-journal"},
	})
	if err == nil {
		t.Fatal("unscoped query accepted")
	}
	if got := wardenerr.StatusOf(err); got != wardenerr.StatusValidation {
		t.Errorf("status: got %d, want %d", got, wardenerr.StatusValidation)
	}

	// The same query with the explicit opt-out goes through.
	_, err = service.Collect(context.Background(), Request{
		Source:        SourceLoki,
		Filters:       map[string]string{"job": "systemd-journal"},
		AllowUnscoped: true,
	})
	if err != nil {
		t.Errorf("opted-out unscoped query rejected: %v", err)
	}
}

func TestCollectLokiRequiresFilters(t *testing.T) {
	t.Parallel()

	service := &Service{Loki: &fakeQuerier{}, Rules: testRules(t)}

	_, err := service.Collect(context.Background(), Request{Source: SourceLoki})
	if err == nil {
		t.Fatal("filterless loki request accepted")
	}
	if got := wardenerr.StatusOf(err); got != wardenerr.StatusValidation {
		t.Errorf("status: got %d, want %d", got, wardenerr.StatusValidation)
	}
}

func TestCollectLokiWithoutRulesIsConfigError(t *testing.T) {
	t.Parallel()

	service := &Service{Loki: &fakeQuerier{}}

	_, err := service.Collect(context.Background(), Request{
		Source:  SourceLoki,
		Filters: map[string]string{"host": "web-1"},
	})
	if err == nil {
		t.Fatal("loki request without rules accepted")
	}
	if got := wardenerr.StatusOf(err); got != wardenerr.StatusConfig {
		t.Errorf("status: got %d, want %d", got, wardenerr.StatusConfig)
	}
}

func TestCollectBatchPartialFailure(t *testing.T) {
	t.Parallel()

	good := testutil.WriteFile(t, "good.log", testutil.Lines("entry"))
	service := &Service{Allowlist: NewPathAllowlist([]string{good})}

	requests := []Request{
		{Source: SourceFile, Target: good},
		{Source: SourceFile, Target: "/etc/shadow"},
		{Source: SourceFile, Target: good},
	}

	items := service.CollectBatch(context.Background(), requests, 2)
	if len(items) != 3 {
		t.Fatalf("got %d items, want 3", len(items))
	}
	if items[0].Status != 200 || items[2].Status != 200 {
		t.Errorf("good items: statuses %d, %d", items[0].Status, items[2].Status)
	}
	if items[1].Status != wardenerr.StatusForbidden {
		t.Errorf("bad item status: got %d, want %d", items[1].Status, wardenerr.StatusForbidden)
	}
	if items[1].Error == "" {
		t.Error("failed item carries no error message")
	}
	if !strings.Contains(items[1].Target, "shadow") {
		t.Errorf("failed item target: got %q", items[1].Target)
	}
}

func TestDigestIsStable(t *testing.T) {
	t.Parallel()

	first := digest("some log text")
	second := digest("some log text")
	if first != second {
		t.Errorf("digest not deterministic: %q vs %q", first, second)
	}
	if len(first) != 64 {
		t.Errorf("digest length: got %d, want 64 hex characters", len(first))
	}
	if digest("other text") == first {
		t.Error("distinct inputs produced identical digests")
	}
}
