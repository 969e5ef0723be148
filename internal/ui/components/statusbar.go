package components

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type StatusBarModel struct {
	width   int
	message string
	isError bool
	busy    bool
	spinner spinner.Model
}

func NewStatusBar() *StatusBarModel {
	s := spinner.New()
	s.Spinner = spinner.MiniDot
	return &StatusBarModel{spinner: s}
}

func (m *StatusBarModel) SetWidth(width int) {
	m.width = width
}

func (m *StatusBarModel) SetMessage(message string, isError bool) {
	m.message = message
	m.isError = isError
}

func (m *StatusBarModel) Message() string {
	return m.message
}

func (m *StatusBarModel) IsError() bool {
	return m.isError
}

func (m *StatusBarModel) ClearMessage() {
	m.message = ""
	m.isError = false
}

// SetBusy shows a spinner in front of the message. The returned command
// starts the animation.
func (m *StatusBarModel) SetBusy(busy bool) tea.Cmd {
	m.busy = busy
	if busy {
		return m.spinner.Tick
	}
	return nil
}

func (m *StatusBarModel) IsBusy() bool {
	return m.busy
}

func (m *StatusBarModel) Update(msg tea.Msg) tea.Cmd {
	if !m.busy {
		return nil
	}
	var cmd tea.Cmd
	m.spinner, cmd = m.spinner.Update(msg)
	return cmd
}

func (m *StatusBarModel) View() string {
	content := " " + m.message
	if m.busy {
		content = " " + m.spinner.View() + content
	}

	if m.width > 3 && lipgloss.Width(content) > m.width {
		r := []rune(content)
		content = string(r[:max(0, m.width-3)]) + "..."
	}

	bgColor := lipgloss.Color("#374151")
	if m.isError {
		bgColor = lipgloss.Color("#991B1B")
	}

	style := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#F9FAFB")).
		Background(bgColor).
		Width(m.width)

	return style.Render(content)
}
