package tui

import "github.com/charmbracelet/lipgloss"

var (
	colorAccent = lipgloss.Color("69")  // blue, the panel border
	colorNew    = lipgloss.Color("203") // red, new-count and NEW tags
	colorOK     = lipgloss.Color("78")  // green
	colorMuted  = lipgloss.Color("241")
)

var panelStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(colorAccent).
	Padding(0, 1)

var titleStyle = lipgloss.NewStyle().Bold(true)

var newCountStyle = lipgloss.NewStyle().Bold(true).Foreground(colorNew)

var noNewStyle = lipgloss.NewStyle().Bold(true).Foreground(colorOK)

var hintStyle = lipgloss.NewStyle().Foreground(colorMuted)

var newTagStyle = lipgloss.NewStyle().
	Bold(true).
	Foreground(lipgloss.Color("255")).
	Background(colorNew).
	Padding(0, 1)

// newCommentStyle marks a new comment with a thick left bar.
var newCommentStyle = lipgloss.NewStyle().
	BorderStyle(lipgloss.ThickBorder()).
	BorderLeft(true).
	BorderForeground(colorNew).
	PaddingLeft(1)

// focusedCommentStyle marks the comment navigation is on.
var focusedCommentStyle = newCommentStyle.
	BorderForeground(colorAccent).
	Background(lipgloss.Color("236"))

var seenCommentStyle = lipgloss.NewStyle().
	Foreground(colorMuted).
	PaddingLeft(2)

var flashStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("255")).
	Background(colorOK).
	Padding(0, 1)

var promptStyle = flashStyle.Background(lipgloss.Color("130"))

var errorStyle = lipgloss.NewStyle().
	Foreground(lipgloss.Color("196")).
	Bold(true)
