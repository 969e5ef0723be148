package views

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/johanforsgren/dbxutil/internal/logger"
)

type LogsViewModel struct {
	width      int
	height     int
	offset     int
	active     bool
	errorsOnly bool
	logs       []logger.LogEntry
}

func NewLogsView() *LogsViewModel {
	return &LogsViewModel{}
}

func (m *LogsViewModel) SetSize(width, height int) {
	m.width = width
	m.height = height
}

// Activate snapshots the log buffer and scrolls to the newest entry.
func (m *LogsViewModel) Activate() {
	m.active = true
	m.reload()
}

func (m *LogsViewModel) Deactivate() {
	m.active = false
	m.offset = 0
}

func (m *LogsViewModel) IsActive() bool {
	return m.active
}

func (m *LogsViewModel) ErrorsOnly() bool {
	return m.errorsOnly
}

func (m *LogsViewModel) Entries() []logger.LogEntry {
	return m.logs
}

func (m *LogsViewModel) reload() {
	all := logger.GetLogs()
	m.logs = make([]logger.LogEntry, 0, len(all))
	for _, entry := range all {
		if m.errorsOnly && !strings.Contains(entry.Message, "[ERROR]") {
			continue
		}
		m.logs = append(m.logs, entry)
	}
	m.offset = m.maxOffset()
}

func (m *LogsViewModel) visibleLines() int {
	return max(1, m.height-8)
}

func (m *LogsViewModel) maxOffset() int {
	return max(0, len(m.logs)-m.visibleLines())
}

func (m *LogsViewModel) Update(msg tea.Msg) tea.Cmd {
	if !m.active {
		return nil
	}

	key, ok := msg.(tea.KeyMsg)
	if !ok {
		return nil
	}

	switch key.String() {
	case "up", "k":
		m.offset = max(0, m.offset-1)
	case "down", "j":
		m.offset = min(m.maxOffset(), m.offset+1)
	case "pgup":
		m.offset = max(0, m.offset-m.visibleLines())
	case "pgdown":
		m.offset = min(m.maxOffset(), m.offset+m.visibleLines())
	case "g", "home":
		m.offset = 0
	case "G", "end":
		m.offset = m.maxOffset()
	case "e":
		m.errorsOnly = !m.errorsOnly
		m.reload()
	case "r":
		m.reload()
	}

	return nil
}

func logColor(message string) lipgloss.Color {
	switch {
	case strings.Contains(message, "[ERROR]"):
		return lipgloss.Color("#EF4444")
	case strings.Contains(message, "[TRANSFER]"):
		return lipgloss.Color("#3B82F6")
	case strings.Contains(message, "[FILE_WRITE]"):
		return lipgloss.Color("#F59E0B")
	case strings.Contains(message, "[FILE_OPEN]"):
		return lipgloss.Color("#10B981")
	default:
		return lipgloss.Color("#E5E7EB")
	}
}

func (m *LogsViewModel) View() string {
	if !m.active {
		return ""
	}

	var b strings.Builder

	titleStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7C3AED")).
		Bold(true).
		Padding(1, 0)

	title := fmt.Sprintf("Session Logs (%d entries)", len(m.logs))
	if m.errorsOnly {
		title += " - errors only"
	}
	b.WriteString(titleStyle.Render(title))
	b.WriteString("\n\n")

	mutedStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280")).
		Italic(true)

	if len(m.logs) == 0 {
		b.WriteString(mutedStyle.Render("No logs yet"))
	} else {
		end := min(len(m.logs), m.offset+m.visibleLines())
		lineWidth := max(20, m.width-10)

		for _, entry := range m.logs[m.offset:end] {
			// Multi-line entries (HTTP dumps) show only their first line here.
			message, _, _ := strings.Cut(entry.Message, "\n")
			line := fmt.Sprintf("[%s] %s", entry.Timestamp.Format("15:04:05.000"), message)
			line = truncateString(line, lineWidth)
			b.WriteString(lipgloss.NewStyle().Foreground(logColor(entry.Message)).Render(line))
			b.WriteString("\n")
		}
	}

	b.WriteString("\n")

	scrollInfo := ""
	if len(m.logs) > m.visibleLines() {
		scrollInfo = fmt.Sprintf(" | Showing %d-%d of %d", m.offset+1, min(len(m.logs), m.offset+m.visibleLines()), len(m.logs))
	}

	help := fmt.Sprintf("j/k: Scroll | PgUp/PgDn: Page | g/G: Top/Bottom | e: Errors only | r: Reload | Esc: Close%s", scrollInfo)
	b.WriteString(mutedStyle.Render(help))

	boxStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("#7C3AED")).
		Padding(1, 2).
		Width(max(20, m.width-4))

	return boxStyle.Render(b.String())
}
