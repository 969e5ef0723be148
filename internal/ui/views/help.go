package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/johanforsgren/dbxutil/internal/logger"
)

// HelpViewModel renders markdown help text in a scrollable viewport.
type HelpViewModel struct {
	viewport viewport.Model
	markdown string
	rendered string
	width    int
	height   int
	active   bool
}

func NewHelpView() *HelpViewModel {
	return &HelpViewModel{
		viewport: viewport.New(80, 20),
	}
}

func (m *HelpViewModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.viewport.Width = max(20, width-8)
	m.viewport.Height = max(5, height-10)
	if m.active {
		m.render()
	}
}

// Activate renders text and opens the overlay.
func (m *HelpViewModel) Activate(text string) {
	m.active = true
	m.markdown = text
	m.render()
	m.viewport.GotoTop()
}

func (m *HelpViewModel) Deactivate() {
	m.active = false
}

func (m *HelpViewModel) IsActive() bool {
	return m.active
}

func (m *HelpViewModel) Rendered() string {
	return m.rendered
}

func (m *HelpViewModel) render() {
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(m.viewport.Width),
	)
	if err != nil {
		logger.LogError("HELP_RENDER", "renderer", err)
		m.rendered = m.markdown
	} else if out, err := renderer.Render(m.markdown); err != nil {
		logger.LogError("HELP_RENDER", "markdown", err)
		m.rendered = m.markdown
	} else {
		m.rendered = strings.TrimSpace(out)
	}
	m.viewport.SetContent(m.rendered)
}

func (m *HelpViewModel) Update(msg tea.Msg) tea.Cmd {
	if !m.active {
		return nil
	}
	var cmd tea.Cmd
	m.viewport, cmd = m.viewport.Update(msg)
	return cmd
}

func (m *HelpViewModel) View() string {
	if !m.active {
		return ""
	}

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280")).
		Italic(true)

	content := m.viewport.View() + "\n\n" + helpStyle.Render("↑↓/PgUp/PgDn: Scroll | Esc/q: Close")

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#7C3AED")).
		Padding(1, 2).
		Width(max(20, m.width-4))

	return boxStyle.Render(content)
}
