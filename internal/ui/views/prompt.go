package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// PromptPurpose tells the caller what the entered path is for.
type PromptPurpose int

const (
	PromptNone PromptPurpose = iota
	PromptUpload
	PromptDownload
)

// PromptViewModel asks for a single local path.
type PromptViewModel struct {
	input   textinput.Model
	width   int
	height  int
	active  bool
	title   string
	purpose PromptPurpose
	target  string
}

func NewPromptView() *PromptViewModel {
	ti := textinput.New()
	ti.CharLimit = 4096

	return &PromptViewModel{
		input: ti,
	}
}

func (m *PromptViewModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	if width > 12 {
		m.input.Width = width - 12
	}
}

// Activate opens the prompt. target is the remote path the answer applies to,
// if any.
func (m *PromptViewModel) Activate(purpose PromptPurpose, title, placeholder, value, target string) {
	m.active = true
	m.purpose = purpose
	m.title = title
	m.target = target
	m.input.Placeholder = placeholder
	m.input.SetValue(value)
	m.input.CursorEnd()
	m.input.Focus()
}

func (m *PromptViewModel) Deactivate() {
	m.active = false
	m.purpose = PromptNone
	m.target = ""
	m.input.Blur()
	m.input.SetValue("")
}

func (m *PromptViewModel) IsActive() bool {
	return m.active
}

func (m *PromptViewModel) Purpose() PromptPurpose {
	return m.purpose
}

func (m *PromptViewModel) Target() string {
	return m.target
}

func (m *PromptViewModel) GetValue() string {
	return strings.TrimSpace(m.input.Value())
}

func (m *PromptViewModel) SetValue(value string) {
	m.input.SetValue(value)
}

func (m *PromptViewModel) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return cmd
}

func (m *PromptViewModel) View() string {
	if !m.active {
		return ""
	}

	var b strings.Builder

	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7C3AED")).
		Bold(true).
		Padding(1, 0)

	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("\n\n")
	b.WriteString(m.input.View())
	b.WriteString("\n\n")

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280")).
		Italic(true)

	b.WriteString(helpStyle.Render("Enter: Confirm | Esc: Cancel"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#7C3AED")).
		Padding(1, 2).
		Width(max(20, m.width-4))

	return boxStyle.Render(b.String())
}
