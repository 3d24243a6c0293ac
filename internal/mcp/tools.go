package mcp

import "github.com/mark3labs/mcp-go/mcp"

var pageCheckToolDef = mcp.NewTool("page_check",
	mcp.WithDescription("Fetch a forum comment page, classify every comment as new or seen against the page's last visit, then record this visit. "+
		"Comments without a parsable date are skipped. Use dry_run to look without recording."),
	mcp.WithString("url", mcp.Required(), mcp.Description("Page URL. Anything after '#' is ignored for visit tracking.")),
	mcp.WithString("html", mcp.Description("Page HTML to classify instead of fetching url.")),
	mcp.WithBoolean("dry_run", mcp.Description("Classify without recording the visit.")),
	mcp.WithString("format", mcp.Description("json (default) or markdown."), mcp.Enum("json", "markdown")),
)

var pageLastVisitToolDef = mcp.NewTool("page_last_visit",
	mcp.WithDescription("Return when a page was last visited. NOT_FOUND if the page was never visited or its record expired."),
	mcp.WithString("url", mcp.Required(), mcp.Description("Page URL.")),
	mcp.WithReadOnlyHintAnnotation(true),
)

var pageMarkReadToolDef = mcp.NewTool("page_mark_read",
	mcp.WithDescription("Record a visit to a page now, so every comment currently on it reads as seen."),
	mcp.WithString("url", mcp.Required(), mcp.Description("Page URL.")),
	mcp.WithIdempotentHintAnnotation(true),
)

var visitListToolDef = mcp.NewTool("visit_list",
	mcp.WithDescription("List every tracked page with its last visit, newest first. stale marks records the next visit will evict."),
	mcp.WithReadOnlyHintAnnotation(true),
)

var visitResetToolDef = mcp.NewTool("visit_reset",
	mcp.WithDescription("Forget every tracked page. The next check of any page shows all its comments as new."),
	mcp.WithDestructiveHintAnnotation(true),
)
