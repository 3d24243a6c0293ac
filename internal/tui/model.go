// Package tui shows a checked page in the terminal with a summary panel
// and keyboard navigation between new comments.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/hpungsan/ctrack/internal/nav"
	"github.com/hpungsan/ctrack/internal/ops"
)

// FlashDuration is how long a notification stays on screen.
const FlashDuration = 3 * time.Second

// Actions are the side effects the view can trigger. Either may be nil.
type Actions struct {
	// MarkRead records a visit to the page now.
	MarkRead func(ctx context.Context) error
	// Recheck classifies the page again without recording a visit.
	Recheck func(ctx context.Context) (*ops.CheckOutput, error)
}

// Model is the bubbletea model for one page view.
type Model struct {
	ctx     context.Context
	actions Actions

	out *ops.CheckOutput
	nav *nav.Navigator[int] // positions into out.Comments
	// lines maps a comment position to its first line in the content.
	lines map[int]int

	vp          viewport.Model
	width       int
	height      int
	panelHidden bool
	confirming  bool
	busy        bool

	flash   string
	flashID int
	err     error
}

// New builds the model for out.
func New(ctx context.Context, out *ops.CheckOutput, actions Actions) Model {
	m := Model{
		ctx:     ctx,
		actions: actions,
		vp:      viewport.New(80, 20),
		width:   80,
		height:  24,
	}
	m.load(out)
	return m
}

func (m *Model) load(out *ops.CheckOutput) {
	m.out = out
	var positions []int
	for i, c := range out.Comments {
		if c.IsNew {
			positions = append(positions, i)
		}
	}
	m.nav = nav.New(positions)
	m.refresh()
	m.vp.GotoTop()
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.resize()
		m.refresh()
		return m, nil

	case flashExpired:
		if msg.id == m.flashID {
			m.flash = ""
		}
		return m, nil

	case markedRead:
		m.busy = false
		if msg.err != nil {
			m.err = msg.err
			return m, nil
		}
		m.err = nil
		if msg.out != nil {
			m.load(msg.out)
		}
		cmd := m.notify("All comments marked as read")
		return m, cmd

	case tea.KeyMsg:
		if msg.Type == tea.KeyCtrlC {
			return m, tea.Quit
		}
		if m.confirming {
			return m.updateConfirm(msg)
		}
		return m.updateKeys(msg)
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

// updateConfirm handles the mark-read prompt. Only y accepts; every
// other key cancels, so navigation keys do nothing while it is open.
func (m Model) updateConfirm(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.confirming = false
	switch msg.String() {
	case "y", "н", "enter":
		m.busy = true
		return m, m.markRead()
	}
	return m, nil
}

func (m Model) updateKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "й", "esc":
		return m, tea.Quit

	case "j", "о":
		if m.nav.Len() == 0 {
			cmd := m.notify("No new comments")
			return m, cmd
		}
		if _, ok := m.nav.Next(); ok {
			m.focus()
		}
		return m, nil

	case "k", "л":
		if m.nav.Len() == 0 {
			cmd := m.notify("No new comments")
			return m, cmd
		}
		if _, ok := m.nav.Previous(); ok {
			m.focus()
		}
		return m, nil

	case "g", "п":
		m.vp.GotoTop()
		return m, nil

	case "x", "ч":
		m.panelHidden = !m.panelHidden
		m.resize()
		return m, nil

	case "r", "к":
		if m.busy || m.actions.MarkRead == nil {
			return m, nil
		}
		m.confirming = true
		return m, nil
	}

	var cmd tea.Cmd
	m.vp, cmd = m.vp.Update(msg)
	return m, cmd
}

func (m Model) markRead() tea.Cmd {
	ctx, actions := m.ctx, m.actions
	return func() tea.Msg {
		if err := actions.MarkRead(ctx); err != nil {
			return markedRead{err: err}
		}
		if actions.Recheck == nil {
			return markedRead{}
		}
		out, err := actions.Recheck(ctx)
		return markedRead{out: out, err: err}
	}
}

// notify shows text and schedules its removal.
func (m *Model) notify(text string) tea.Cmd {
	m.flashID++
	m.flash = text
	id := m.flashID
	return tea.Tick(FlashDuration, func(time.Time) tea.Msg {
		return flashExpired{id: id}
	})
}

// focus re-renders with the current comment highlighted and centres it.
func (m *Model) focus() {
	m.refresh()
	pos, ok := m.nav.Current()
	if !ok {
		return
	}
	offset := m.lines[pos] - m.vp.Height/2
	if offset < 0 {
		offset = 0
	}
	m.vp.SetYOffset(offset)
}

func (m *Model) resize() {
	chrome := 1 // flash / prompt line
	if !m.panelHidden {
		chrome += 4
	}
	m.vp.Width = m.width
	m.vp.Height = m.height - chrome
	if m.vp.Height < 1 {
		m.vp.Height = 1
	}
}

func (m *Model) refresh() {
	content, lines := renderComments(m.out, m.focusedPosition(), m.width)
	m.lines = lines
	m.vp.SetContent(content)
}

func (m *Model) focusedPosition() int {
	if pos, ok := m.nav.Current(); ok {
		return pos
	}
	return -1
}

// View implements tea.Model.
func (m Model) View() string {
	var b strings.Builder
	if !m.panelHidden {
		b.WriteString(m.panelView())
		b.WriteString("\n")
	}
	b.WriteString(m.vp.View())
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	return b.String()
}

func (m Model) panelView() string {
	var title string
	if m.out.NewCount > 0 {
		title = titleStyle.Render("New comments: ") + newCountStyle.Render(fmt.Sprint(m.out.NewCount))
	} else {
		title = noNewStyle.Render("No new comments")
	}
	if m.nav.Len() > 0 && m.nav.Index() >= 0 {
		title += hintStyle.Render(fmt.Sprintf("  [%d/%d]", m.nav.Index()+1, m.nav.Len()))
	}
	hints := hintStyle.Render("j/k next/prev · r mark read · g top · x hide · q quit")
	return panelStyle.Render(title + "\n" + hints)
}

func (m Model) statusLine() string {
	switch {
	case m.confirming:
		return promptStyle.Render("Mark all comments on this page as read? (y/n)")
	case m.busy:
		return hintStyle.Render("marking as read…")
	case m.err != nil:
		return errorStyle.Render("error: " + m.err.Error())
	case m.flash != "":
		return flashStyle.Render(m.flash)
	}
	return ""
}

// Run shows out until the user quits.
func Run(ctx context.Context, out *ops.CheckOutput, actions Actions) error {
	p := tea.NewProgram(New(ctx, out, actions), tea.WithAltScreen(), tea.WithContext(ctx))
	_, err := p.Run()
	return err
}
