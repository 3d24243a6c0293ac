package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/hpungsan/ctrack/internal/ops"
)

// renderComments lays out every comment and returns, for each position in
// out.Comments, the line it starts on.
func renderComments(out *ops.CheckOutput, focused, width int) (string, map[int]int) {
	lines := make(map[int]int, len(out.Comments))
	if len(out.Comments) == 0 {
		return hintStyle.Render("No dated comments on this page."), lines
	}

	bodyWidth := width - 4
	if bodyWidth < 20 {
		bodyWidth = 20
	}

	var b strings.Builder
	line := 0
	for i, c := range out.Comments {
		lines[i] = line

		header := fmt.Sprintf("#%d  %s  %s %s", c.Index, c.Author, c.Date, c.Time)
		var block string
		switch {
		case c.IsNew:
			text := titleStyle.Render(header) + " " + newTagStyle.Render("NEW")
			if c.Preview != "" {
				text += "\n" + lipgloss.NewStyle().Width(bodyWidth).Render(c.Preview)
			}
			style := newCommentStyle
			if i == focused {
				style = focusedCommentStyle
			}
			block = style.Render(text)
		default:
			text := header
			if c.Preview != "" {
				text += "\n" + lipgloss.NewStyle().Width(bodyWidth).Render(c.Preview)
			}
			block = seenCommentStyle.Render(text)
		}

		b.WriteString(block)
		b.WriteString("\n\n")
		line += lipgloss.Height(block) + 1
	}
	return strings.TrimRight(b.String(), "\n"), lines
}
