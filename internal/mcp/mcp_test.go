package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/ctrack/internal/blob"
	"github.com/hpungsan/ctrack/internal/config"
	"github.com/hpungsan/ctrack/internal/db"
	"github.com/hpungsan/ctrack/internal/errors"
	"github.com/hpungsan/ctrack/internal/ops"
	"github.com/hpungsan/ctrack/internal/visits"
)

const testURL = "https://exler.example/post/42"

const testHTML = `<html><body>
<div class="comments-item">
  <div class="comment-author-name">Алексей</div>
  <div class="comment-date"><div class="blog-item-date">20.01.26 <span>09:15</span></div></div>
  <div class="comment-content">Первый.</div>
</div>
<div class="comments-item">
  <div class="comment-author-name">Мария</div>
  <div class="comment-date"><div class="blog-item-date">22.01.26 <span>14:05</span></div></div>
  <div class="comment-content">Второй.</div>
</div>
</body></html>`

type stubFetcher struct {
	body []byte
	err  error
}

func (f stubFetcher) Fetch(context.Context, string) ([]byte, error) {
	return f.body, f.err
}

// testSetup builds deps over a temporary sqlite database.
func testSetup(t *testing.T) (ops.Deps, *config.Config) {
	t.Helper()

	database, err := db.Init(t.TempDir())
	if err != nil {
		t.Fatalf("failed to init db: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	cfg := config.DefaultConfig()
	cfg.Timezone = "UTC"
	now := time.Date(2026, time.January, 21, 12, 0, 0, 0, time.UTC)

	deps := ops.Deps{
		Tracker: visits.NewTracker(blob.NewSQLite(database), visits.WithClock(func() time.Time { return now })),
		Fetcher: stubFetcher{body: []byte(testHTML)},
		Config:  cfg,
	}
	return deps, cfg
}

// makeRequest creates a CallToolRequest with the given arguments.
func makeRequest(args map[string]any) mcp.CallToolRequest {
	return mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Arguments: args,
		},
	}
}

func TestHandleCheck(t *testing.T) {
	deps, _ := testSetup(t)
	h := NewHandlers(deps)
	ctx := context.Background()

	tests := []struct {
		name      string
		args      map[string]any
		wantError string
		wantNew   float64
	}{
		{name: "first visit", args: map[string]any{"url": testURL, "dry_run": true}, wantNew: 2},
		{name: "supplied html", args: map[string]any{"url": testURL, "html": "<p>none</p>", "dry_run": true}, wantNew: 0},
		{name: "missing url", args: map[string]any{}, wantError: "INVALID_REQUEST"},
		{name: "bad format", args: map[string]any{"url": testURL, "format": "xml"}, wantError: "INVALID_REQUEST"},
		{name: "wrong type", args: map[string]any{"url": 12}, wantError: "INVALID_REQUEST"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := h.HandleCheck(ctx, makeRequest(tt.args))
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantError != "" {
				if !result.IsError {
					t.Fatal("expected error result")
				}
				assertErrorCode(t, result, tt.wantError)
				return
			}
			output := parseOutput(t, result)
			if output["new_count"] != tt.wantNew {
				t.Errorf("new_count = %v, want %v", output["new_count"], tt.wantNew)
			}
		})
	}
}

func TestHandleCheck_SecondVisitSeesOnlyLaterComments(t *testing.T) {
	deps, _ := testSetup(t)
	h := NewHandlers(deps)

	first := parseOutput(t, mustCall(t, h.HandleCheck, map[string]any{"url": testURL}))
	if first["recorded"] != true {
		t.Fatalf("recorded = %v, want true", first["recorded"])
	}
	if first["first_visit"] != true {
		t.Errorf("first_visit = %v, want true", first["first_visit"])
	}

	second := parseOutput(t, mustCall(t, h.HandleCheck, map[string]any{"url": testURL + "#comment-2"}))
	if second["page_key"] != testURL {
		t.Errorf("page_key = %v, want %v", second["page_key"], testURL)
	}
	// Second comment is dated after the fixed clock.
	if second["new_count"] != float64(1) {
		t.Errorf("new_count = %v, want 1", second["new_count"])
	}
}

func TestHandleCheck_Markdown(t *testing.T) {
	deps, _ := testSetup(t)
	h := NewHandlers(deps)

	result := mustCall(t, h.HandleCheck, map[string]any{"url": testURL, "dry_run": true, "format": "markdown"})
	text := extractErrorMessage(result)
	if !strings.Contains(text, "## New comments: 2") {
		t.Errorf("markdown missing summary: %s", text)
	}
}

func TestHandleCheck_FetchFailed(t *testing.T) {
	deps, _ := testSetup(t)
	deps.Fetcher = stubFetcher{err: errors.NewFetchFailed(testURL, stderrors.New("status 503"))}
	h := NewHandlers(deps)

	result, err := h.HandleCheck(context.Background(), makeRequest(map[string]any{"url": testURL}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertErrorCode(t, result, "FETCH_FAILED")
}

func TestHandleLastVisitAndMarkRead(t *testing.T) {
	deps, _ := testSetup(t)
	h := NewHandlers(deps)
	ctx := context.Background()

	result, err := h.HandleLastVisit(ctx, makeRequest(map[string]any{"url": testURL}))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertErrorCode(t, result, "NOT_FOUND")

	marked := parseOutput(t, mustCall(t, h.HandleMarkRead, map[string]any{"url": testURL + "#x"}))
	if marked["page_key"] != testURL {
		t.Errorf("page_key = %v, want %v", marked["page_key"], testURL)
	}

	last := parseOutput(t, mustCall(t, h.HandleLastVisit, map[string]any{"url": testURL}))
	if last["visited_at"] != "2026-01-21T12:00:00Z" {
		t.Errorf("visited_at = %v", last["visited_at"])
	}
}

func TestHandleListAndReset(t *testing.T) {
	deps, _ := testSetup(t)
	h := NewHandlers(deps)

	mustCall(t, h.HandleMarkRead, map[string]any{"url": testURL})
	mustCall(t, h.HandleMarkRead, map[string]any{"url": "https://exler.example/post/43"})

	list := parseOutput(t, mustCall(t, h.HandleListVisits, nil))
	if list["total"] != float64(2) {
		t.Fatalf("total = %v, want 2", list["total"])
	}

	reset := parseOutput(t, mustCall(t, h.HandleReset, nil))
	if reset["removed"] != float64(2) {
		t.Errorf("removed = %v, want 2", reset["removed"])
	}

	list = parseOutput(t, mustCall(t, h.HandleListVisits, nil))
	if list["total"] != float64(0) {
		t.Errorf("total after reset = %v, want 0", list["total"])
	}
}

func TestServerRegistration(t *testing.T) {
	deps, _ := testSetup(t)

	s := NewServer(deps, "test")
	tools := s.ListTools()

	expectedTools := []string{"page_check", "page_last_visit", "page_mark_read", "visit_list", "visit_reset"}
	if len(tools) != len(expectedTools) {
		t.Errorf("registered tool count = %d, want %d", len(tools), len(expectedTools))
	}
	for _, name := range expectedTools {
		if _, ok := tools[name]; !ok {
			t.Errorf("missing registered tool: %s", name)
		}
	}
}

func TestServerRegistration_WithDisabledTools(t *testing.T) {
	deps, cfg := testSetup(t)

	cfg.DisabledTools = []string{"visit_reset", "visit_reset", "page_mark_read"}
	s := NewServer(deps, "test")
	tools := s.ListTools()

	if len(tools) != 3 {
		t.Errorf("registered tool count = %d, want 3", len(tools))
	}
	for _, name := range []string{"visit_reset", "page_mark_read"} {
		if _, ok := tools[name]; ok {
			t.Errorf("disabled tool %q should not be registered", name)
		}
	}
}

func TestServerRegistration_AllToolsDisabled(t *testing.T) {
	deps, cfg := testSetup(t)

	cfg.DisabledTools = AllToolNames()
	s := NewServer(deps, "test")

	if n := len(s.ListTools()); n != 0 {
		t.Errorf("registered tool count = %d, want 0 (all disabled)", n)
	}
}

func TestValidateDisabledTools(t *testing.T) {
	tests := []struct {
		name    string
		input   []string
		wantLen int
	}{
		{name: "all valid", input: []string{"visit_reset", "page_check"}, wantLen: 0},
		{name: "one unknown", input: []string{"visit_reset", "page_delete"}, wantLen: 1},
		{name: "empty list", input: []string{}, wantLen: 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			unknown := ValidateDisabledTools(tt.input)
			if len(unknown) != tt.wantLen {
				t.Errorf("ValidateDisabledTools() returned %d unknown, want %d", len(unknown), tt.wantLen)
			}
		})
	}
}

func TestAllToolNames(t *testing.T) {
	names := AllToolNames()
	if len(names) != 5 {
		t.Errorf("AllToolNames() returned %d names, want 5", len(names))
	}
	if names[0] != "page_check" {
		t.Errorf("names not sorted: %v", names)
	}
}

func TestErrorResult_InternalDoesNotExposeDetails(t *testing.T) {
	r := errorResult(errors.NewInternal(fmt.Errorf("open /home/u/.ctrack/ctrack.db: permission denied")))
	if !r.IsError {
		t.Fatal("expected IsError=true")
	}
	errObj := errorObject(t, r)
	if errObj["code"] != string(errors.ErrInternal) {
		t.Fatalf("code=%v, want %v", errObj["code"], errors.ErrInternal)
	}
	if _, ok := errObj["details"]; ok {
		t.Fatal("expected INTERNAL errors to omit details")
	}
}

func TestErrorResult_WrappedErrorPreservesContext(t *testing.T) {
	wrapped := fmt.Errorf("url 2 of 3: %w", errors.NewNotFound(testURL))

	errObj := errorObject(t, errorResult(wrapped))
	if errObj["code"] != string(errors.ErrNotFound) {
		t.Errorf("code=%v, want %v", errObj["code"], errors.ErrNotFound)
	}
	if msg := errObj["message"].(string); !strings.Contains(msg, "url 2 of 3") {
		t.Errorf("message should keep wrapper context, got: %s", msg)
	}
}

func TestErrorResult_PlainError(t *testing.T) {
	errObj := errorObject(t, errorResult(stderrors.New("boom")))
	if errObj["code"] != string(errors.ErrInternal) {
		t.Errorf("code=%v, want INTERNAL", errObj["code"])
	}
	if errObj["message"] == "boom" {
		t.Error("plain errors must not leak their text")
	}
}

// Helper functions

func mustCall(t *testing.T, fn ToolHandlerFunc, args map[string]any) *mcp.CallToolResult {
	t.Helper()
	result, err := fn(context.Background(), makeRequest(args))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return result
}

// parseOutput extracts and unmarshals the JSON output from an MCP result.
func parseOutput(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	if result.IsError {
		t.Fatalf("expected success, got error: %v", extractErrorMessage(result))
	}
	var output map[string]any
	if err := json.Unmarshal([]byte(extractErrorMessage(result)), &output); err != nil {
		t.Fatalf("failed to unmarshal response: %v", err)
	}
	return output
}

func errorObject(t *testing.T, result *mcp.CallToolResult) map[string]any {
	t.Helper()
	var payload map[string]any
	if err := json.Unmarshal([]byte(extractErrorMessage(result)), &payload); err != nil {
		t.Fatalf("failed to unmarshal error payload: %v", err)
	}
	errObj, ok := payload["error"].(map[string]any)
	if !ok {
		t.Fatal("no error object in payload")
	}
	return errObj
}

func assertErrorCode(t *testing.T, result *mcp.CallToolResult, expectedCode string) {
	t.Helper()
	if !result.IsError {
		t.Errorf("expected IsError=true")
		return
	}
	if code := errorObject(t, result)["code"]; code != expectedCode {
		t.Errorf("got error code %q, want %q", code, expectedCode)
	}
}

// extractErrorMessage returns the first text content of a result.
func extractErrorMessage(result *mcp.CallToolResult) string {
	if len(result.Content) == 0 {
		return "<no content>"
	}
	text, ok := result.Content[0].(mcp.TextContent)
	if !ok {
		return "<not text content>"
	}
	return text.Text
}
