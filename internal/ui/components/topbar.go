package components

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

type TopBarModel struct {
	width       int
	account     string
	folder      string
	storage     string
	entryCount  int
	currentView string
	shortcuts   []string
}

var (
	titleStyle        = lipgloss.NewStyle().Padding(1, 2)
	titleOrangeStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("214")).Bold(true)
	valueWhiteStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("15"))
	shortcutBlueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("33")).Bold(true)
	descGrayStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("246"))
)

const (
	contextRows     = 4
	contextColWidth = 45
	colMargin       = 4
	maxValueWidth   = 32
)

func NewTopBar() *TopBarModel {
	return &TopBarModel{}
}

func (m *TopBarModel) SetWidth(width int) {
	m.width = width
}

func (m *TopBarModel) SetAccount(account string) {
	m.account = account
}

func (m *TopBarModel) Account() string {
	return m.account
}

func (m *TopBarModel) SetFolder(folder string, entryCount int) {
	m.folder = folder
	m.entryCount = entryCount
}

// SetStorage shows where the settings record lives.
func (m *TopBarModel) SetStorage(storage string) {
	m.storage = storage
}

func (m *TopBarModel) SetView(view string) {
	m.currentView = view
}

// SetShortcuts takes entries formatted as "<key> description".
func (m *TopBarModel) SetShortcuts(shortcuts []string) {
	m.shortcuts = shortcuts
}

func (m *TopBarModel) Shortcuts() []string {
	return m.shortcuts
}

func (m *TopBarModel) View() string {
	contextLines := m.buildContextInfo()
	columns, widths := m.buildShortcutColumns()

	topSection := []string{titleOrangeStyle.Render("dbxutil"), ""}

	for i := 0; i < contextRows; i++ {
		line := contextLines[i]
		line += strings.Repeat(" ", max(1, contextColWidth-lipgloss.Width(line)))

		for c, column := range columns {
			if i >= len(column) {
				break
			}
			line += column[i]
			if c < len(columns)-1 {
				line += strings.Repeat(" ", widths[c]-lipgloss.Width(column[i])+colMargin)
			}
		}

		topSection = append(topSection, line)
	}

	return titleStyle.Width(m.width).Render(strings.Join(topSection, "\n"))
}

func contextLine(label, value string) string {
	return titleOrangeStyle.Render(label+": ") + valueWhiteStyle.Render(shorten(value, maxValueWidth))
}

func (m *TopBarModel) buildContextInfo() []string {
	account := m.account
	if account == "" {
		account = "not connected"
	}

	folder := m.folder
	if folder == "" {
		folder = "/"
	}
	if m.account != "" {
		folder = folder + " (" + strconv.Itoa(m.entryCount) + ")"
	} else {
		folder = "-"
	}

	view := m.currentView
	if view == "" {
		view = "Auth"
	}

	return []string{
		contextLine("Account", account),
		contextLine("Folder", folder),
		contextLine("Settings", m.storage),
		contextLine("View", view),
	}
}

// buildShortcutColumns lays shortcuts out top to bottom in columns of
// contextRows entries and returns each column's width.
func (m *TopBarModel) buildShortcutColumns() ([][]string, []int) {
	var columns [][]string
	var widths []int

	for _, shortcut := range m.shortcuts {
		key, desc, ok := strings.Cut(shortcut, ">")
		if !ok {
			continue
		}

		key = strings.TrimPrefix(key, "<")
		entry := shortcutBlueStyle.Render("<"+key+">") + " " + descGrayStyle.Render(strings.TrimSpace(desc))

		if len(columns) == 0 || len(columns[len(columns)-1]) == contextRows {
			columns = append(columns, nil)
			widths = append(widths, 0)
		}
		last := len(columns) - 1
		columns[last] = append(columns[last], entry)
		widths[last] = max(widths[last], lipgloss.Width(entry))
	}

	return columns, widths
}

// shorten keeps the tail of long values, which for paths is the useful part.
func shorten(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return "..." + string(r[len(r)-maxLen+3:])
}
