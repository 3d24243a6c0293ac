package ops

import (
	"fmt"
	"strings"
	"time"
)

// Summary is the panel headline for a check.
func Summary(out *CheckOutput) string {
	if out.NewCount == 0 {
		return "No new comments"
	}
	return fmt.Sprintf("New comments: %d", out.NewCount)
}

// RenderMarkdown renders a check as a summary panel followed by the
// comment list. New comments are marked in bold with a NEW tag.
func RenderMarkdown(out *CheckOutput) string {
	var b strings.Builder

	fmt.Fprintf(&b, "## %s\n\n", Summary(out))
	fmt.Fprintf(&b, "- Page: `%s`\n", out.PageKey)
	if out.LastVisit != nil {
		fmt.Fprintf(&b, "- Last visit: %s\n", out.LastVisit.Local().Format("2006-01-02 15:04"))
	} else {
		b.WriteString("- Last visit: never\n")
	}
	fmt.Fprintf(&b, "- Comments: %d", len(out.Comments))
	if out.Skipped > 0 {
		fmt.Fprintf(&b, " (%d without a date skipped)", out.Skipped)
	}
	b.WriteString("\n")
	if out.RecordError != "" {
		fmt.Fprintf(&b, "- Visit not recorded: %s\n", out.RecordError)
	}

	if len(out.Comments) == 0 {
		return b.String()
	}

	b.WriteString("\n")
	for _, c := range out.Comments {
		header := fmt.Sprintf("#%d %s, %s %s", c.Index, escapeMarkdown(c.Author), c.Date, c.Time)
		if c.IsNew {
			fmt.Fprintf(&b, "### **%s** `NEW`\n\n", header)
		} else {
			fmt.Fprintf(&b, "### %s\n\n", header)
		}
		if c.Preview != "" {
			fmt.Fprintf(&b, "> %s\n\n", escapeMarkdown(c.Preview))
		}
	}
	return b.String()
}

// RenderText renders a check for a terminal without markup.
func RenderText(out *CheckOutput) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s  (%s)\n", Summary(out), out.PageKey)
	for _, c := range out.NewComments() {
		fmt.Fprintf(&b, "  #%-3d %s  %s %s\n", c.Index, c.Author, c.Date, c.Time)
		if c.Preview != "" {
			fmt.Fprintf(&b, "       %s\n", c.Preview)
		}
	}
	if out.RecordedAt != nil {
		fmt.Fprintf(&b, "visit recorded at %s\n", out.RecordedAt.Format(time.RFC3339))
	}
	return b.String()
}

var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", "*", `\*`, "_", `\_`, "[", `\[`, "]", `\]`, "<", "&lt;", ">", "&gt;", "#", `\#`,
	"\n", " ",
)

func escapeMarkdown(s string) string {
	return markdownEscaper.Replace(s)
}
