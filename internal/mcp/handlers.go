package mcp

import (
	"context"
	"encoding/json"
	stderrors "errors"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/hpungsan/ctrack/internal/errors"
	"github.com/hpungsan/ctrack/internal/ops"
)

// Handlers holds dependencies for MCP tool handlers.
type Handlers struct {
	deps ops.Deps
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(deps ops.Deps) *Handlers {
	return &Handlers{deps: deps.Normalize()}
}

// CheckRequest represents the arguments for page_check.
type CheckRequest struct {
	URL    string `json:"url"`
	HTML   string `json:"html,omitempty"`
	DryRun bool   `json:"dry_run,omitempty"`
	Format string `json:"format,omitempty"`
}

// PageRequest represents the arguments for tools addressing one page.
type PageRequest struct {
	URL string `json:"url"`
}

// HandleCheck handles the page_check tool call.
func (h *Handlers) HandleCheck(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[CheckRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	switch input.Format {
	case "", "json", "markdown":
	default:
		return errorResult(errors.NewInvalidRequest("format must be json or markdown")), nil
	}

	in := ops.CheckInput{URL: input.URL, DryRun: input.DryRun}
	if input.HTML != "" {
		in.HTML = []byte(input.HTML)
	}

	result, err := ops.Check(ctx, h.deps, in)
	if err != nil {
		return errorResult(err), nil
	}

	if input.Format == "markdown" {
		return mcp.NewToolResultText(ops.RenderMarkdown(result)), nil
	}
	return successResult(result)
}

// HandleLastVisit handles the page_last_visit tool call.
func (h *Handlers) HandleLastVisit(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PageRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.LastVisit(ctx, h.deps, input.URL)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleMarkRead handles the page_mark_read tool call.
func (h *Handlers) HandleMarkRead(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	input, err := decode[PageRequest](req)
	if err != nil {
		return errorResult(errors.NewInvalidRequest(err.Error())), nil
	}

	result, err := ops.MarkRead(ctx, h.deps, input.URL)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleListVisits handles the visit_list tool call.
func (h *Handlers) HandleListVisits(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.ListVisits(ctx, h.deps)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// HandleReset handles the visit_reset tool call.
func (h *Handlers) HandleReset(ctx context.Context, _ mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	result, err := ops.Reset(ctx, h.deps)
	if err != nil {
		return errorResult(err), nil
	}

	return successResult(result)
}

// Result helpers

// errorResult creates an MCP error result from any error.
// Uses IsError: true so MCP clients recognize failures properly.
// INTERNAL details are never included.
func errorResult(err error) *mcp.CallToolResult {
	var payload map[string]any

	var cErr *errors.CtrackError
	if stderrors.As(err, &cErr) {
		msg := cErr.Message
		if err != error(cErr) {
			msg = err.Error()
		}
		errorObj := map[string]any{
			"code":    cErr.Code,
			"message": msg,
			"status":  cErr.Status,
		}
		if cErr.Code != errors.ErrInternal && cErr.Details != nil {
			errorObj["details"] = cErr.Details
		}
		payload = map[string]any{"error": errorObj}
	} else {
		payload = map[string]any{
			"error": map[string]any{
				"code":    errors.ErrInternal,
				"message": "an internal error occurred",
				"status":  500,
			},
		}
	}

	content, _ := json.Marshal(payload)
	return &mcp.CallToolResult{
		Content: []mcp.Content{mcp.TextContent{Type: "text", Text: string(content)}},
		IsError: true,
	}
}

// successResult creates an MCP success result from any data.
func successResult(data any) (*mcp.CallToolResult, error) {
	return mcp.NewToolResultJSON(data)
}
