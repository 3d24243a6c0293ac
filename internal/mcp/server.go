package mcp

import (
	"context"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/hpungsan/ctrack/internal/ops"
)

// toolEntry pairs a tool definition with a handler factory.
type toolEntry struct {
	def     mcp.Tool
	handler func(*Handlers) server.ToolHandlerFunc
}

// toolRegistry maps tool names to their definitions and handler factories.
var toolRegistry = map[string]toolEntry{
	"page_check": {
		def:     pageCheckToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleCheck },
	},
	"page_last_visit": {
		def:     pageLastVisitToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleLastVisit },
	},
	"page_mark_read": {
		def:     pageMarkReadToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleMarkRead },
	},
	"visit_list": {
		def:     visitListToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleListVisits },
	},
	"visit_reset": {
		def:     visitResetToolDef,
		handler: func(h *Handlers) server.ToolHandlerFunc { return h.HandleReset },
	},
}

// AllToolNames returns every tool name, sorted.
func AllToolNames() []string {
	names := make([]string, 0, len(toolRegistry))
	for name := range toolRegistry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ValidateDisabledTools returns a list of unknown tool names from the given list.
func ValidateDisabledTools(names []string) []string {
	unknown := make([]string, 0)
	for _, name := range names {
		if _, ok := toolRegistry[name]; !ok {
			unknown = append(unknown, name)
		}
	}
	return unknown
}

// NewServer creates an MCP server with the ctrack tools registered.
// Tools listed in deps.Config.DisabledTools are skipped.
func NewServer(deps ops.Deps, version string) *server.MCPServer {
	deps = deps.Normalize()
	s := server.NewMCPServer(
		"ctrack",
		version,
		server.WithToolCapabilities(true),
	)

	h := NewHandlers(deps)

	disabled := make(map[string]bool)
	for _, name := range deps.Config.DisabledTools {
		disabled[name] = true
	}

	for name, entry := range toolRegistry {
		if disabled[name] {
			continue
		}
		s.AddTool(entry.def, entry.handler(h))
	}

	return s
}

// Run serves the tools over stdio until stdin closes.
func Run(deps ops.Deps, version string) error {
	s := NewServer(deps, version)
	return server.ServeStdio(s)
}

// ToolHandlerFunc is the signature for tool handlers.
type ToolHandlerFunc func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error)
