package views

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// ConfirmViewModel is a yes/no dialog.
type ConfirmViewModel struct {
	active  bool
	width   int
	height  int
	title   string
	message string
	yes     bool
}

func NewConfirmView() *ConfirmViewModel {
	return &ConfirmViewModel{}
}

func (m *ConfirmViewModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Activate opens the dialog with "No" selected.
func (m *ConfirmViewModel) Activate(title, message string) {
	m.active = true
	m.title = title
	m.message = message
	m.yes = false
}

func (m *ConfirmViewModel) Deactivate() {
	m.active = false
	m.title = ""
	m.message = ""
	m.yes = false
}

func (m *ConfirmViewModel) IsActive() bool {
	return m.active
}

func (m *ConfirmViewModel) Toggle() {
	m.yes = !m.yes
}

func (m *ConfirmViewModel) SelectYes() {
	m.yes = true
}

func (m *ConfirmViewModel) Confirmed() bool {
	return m.yes
}

func (m *ConfirmViewModel) View() string {
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
	b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("15")).Render(m.message))
	b.WriteString("\n\n")

	selected := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7C3AED")).
		Bold(true)
	plain := lipgloss.NewStyle().
		Foreground(lipgloss.Color("15"))

	yes, no := plain.Render("○ Yes"), selected.Render("● No")
	if m.yes {
		yes, no = selected.Render("● Yes"), plain.Render("○ No")
	}
	b.WriteString(yes + "    " + no)
	b.WriteString("\n\n")

	helpStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280")).
		Italic(true)

	b.WriteString(helpStyle.Render("←→: Choose | y: Yes | Enter: Confirm | Esc/n: Cancel"))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#7C3AED")).
		Padding(1, 2).
		Width(min(60, max(20, m.width-4)))

	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, boxStyle.Render(b.String()))
}
