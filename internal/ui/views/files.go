package views

import (
	"fmt"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/table"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/johanforsgren/dbxutil/internal/domain"
)

type FilesViewModel struct {
	table table.Model

	// Source data (never mutated by sorting/filtering)
	folder        string
	sourceEntries []domain.Entry

	// Derived view data (filtered + sorted)
	visibleEntries []domain.Entry

	progress      progress.Model
	transferLabel string
	transferring  bool
	loading       bool

	width       int
	height      int
	filterInput textinput.Model
	filtering   bool
	filterText  string
}

func NewFilesView() *FilesViewModel {
	columns := []table.Column{
		{Title: "", Width: 2},
		{Title: "Name", Width: 40},
		{Title: "Size", Width: 10},
		{Title: "Modified", Width: 16},
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithRows([]table.Row{}),
		table.WithFocused(true),
		table.WithHeight(10),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.HiddenBorder()).
		Bold(false).
		Foreground(lipgloss.Color("#6B7280"))
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("#F59E0B")).
		Background(lipgloss.Color("#1F2937")).
		Bold(true)
	t.SetStyles(s)

	ti := textinput.New()
	ti.Placeholder = "Filter by name..."
	ti.CharLimit = 100

	return &FilesViewModel{
		table:       t,
		progress:    progress.New(progress.WithDefaultGradient()),
		filterInput: ti,
	}
}

func (m *FilesViewModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	m.table.SetHeight(max(1, height-9))
	m.progress.Width = max(10, width-4)
	m.updateColumnWidths()
}

func (m *FilesViewModel) updateColumnWidths() {
	const (
		typeWidth     = 2
		sizeWidth     = 10
		modifiedWidth = 16
		minNameWidth  = 20
	)

	nameWidth := max(minNameWidth, m.width-typeWidth-sizeWidth-modifiedWidth-8)

	m.table.SetColumns([]table.Column{
		{Title: "", Width: typeWidth},
		{Title: "Name", Width: nameWidth},
		{Title: "Size", Width: sizeWidth},
		{Title: "Modified", Width: modifiedWidth},
	})
	m.table.SetRows(m.entriesToRows(m.visibleEntries))
}

// SetEntries replaces the listing for folder and moves the cursor to the top
// when the folder changed.
func (m *FilesViewModel) SetEntries(folder string, entries []domain.Entry) {
	if folder != m.folder {
		m.table.SetCursor(0)
		m.filterText = ""
		m.filterInput.SetValue("")
	}
	m.folder = folder
	m.loading = false
	m.sourceEntries = append([]domain.Entry(nil), entries...)
	m.rebuild()
}

func (m *FilesViewModel) Folder() string {
	return m.folder
}

// Names returns the names of all entries in the current listing.
func (m *FilesViewModel) Names() []string {
	names := make([]string, len(m.sourceEntries))
	for i, e := range m.sourceEntries {
		names[i] = e.Name
	}
	return names
}

func (m *FilesViewModel) SetLoading(loading bool) {
	m.loading = loading
}

func (m *FilesViewModel) IsLoading() bool {
	return m.loading
}

// source → filter → sort → visible → rows
func (m *FilesViewModel) rebuild() {
	filtered := m.filterEntries(m.sourceEntries)
	m.visibleEntries = sortEntries(filtered)
	m.table.SetRows(m.entriesToRows(m.visibleEntries))
	if m.table.Cursor() >= len(m.visibleEntries) {
		m.table.SetCursor(max(0, len(m.visibleEntries)-1))
	}
}

// sortEntries puts folders first, then orders by name case-insensitively.
func sortEntries(entries []domain.Entry) []domain.Entry {
	out := append([]domain.Entry(nil), entries...)
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].IsDir != out[j].IsDir {
			return out[i].IsDir
		}
		return strings.ToLower(out[i].Name) < strings.ToLower(out[j].Name)
	})
	return out
}

func (m *FilesViewModel) filterEntries(entries []domain.Entry) []domain.Entry {
	if m.filterText == "" {
		return entries
	}

	filter := strings.ToLower(m.filterText)
	var out []domain.Entry
	for _, e := range entries {
		if strings.Contains(strings.ToLower(e.Name), filter) {
			out = append(out, e)
		}
	}
	return out
}

func (m *FilesViewModel) entriesToRows(entries []domain.Entry) []table.Row {
	rows := make([]table.Row, len(entries))
	nameWidth := m.table.Columns()[1].Width

	for i, e := range entries {
		icon, size, modified := "·", FormatSize(e.Size), formatModified(e.Modified)
		if e.IsDir {
			icon, size, modified = "▸", "", ""
		}
		rows[i] = table.Row{
			icon,
			truncateString(e.Name, nameWidth),
			size,
			modified,
		}
	}
	return rows
}

func (m *FilesViewModel) GetSelectedEntry() *domain.Entry {
	idx := m.table.Cursor()
	if idx < 0 || idx >= len(m.visibleEntries) {
		return nil
	}
	entry := m.visibleEntries[idx]
	return &entry
}

// FindEntry looks up an entry of the current listing by name.
func (m *FilesViewModel) FindEntry(name string) *domain.Entry {
	for _, e := range m.sourceEntries {
		if e.Name == name {
			entry := e
			return &entry
		}
	}
	return nil
}

// ParentFolder returns the folder above the current one and false at the root.
func (m *FilesViewModel) ParentFolder() (string, bool) {
	if m.folder == "" || m.folder == "/" {
		return "", false
	}
	parent := path.Dir(m.folder)
	if parent == "/" {
		parent = ""
	}
	return parent, true
}

// StartTransfer shows the progress bar with the given label.
func (m *FilesViewModel) StartTransfer(label string) {
	m.transferring = true
	m.transferLabel = label
}

func (m *FilesViewModel) StopTransfer() {
	m.transferring = false
	m.transferLabel = ""
}

func (m *FilesViewModel) IsTransferring() bool {
	return m.transferring
}

func (m *FilesViewModel) SetProgress(fraction float64) tea.Cmd {
	return m.progress.SetPercent(fraction)
}

func (m *FilesViewModel) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd

	if frame, ok := msg.(progress.FrameMsg); ok {
		model, cmd := m.progress.Update(frame)
		if p, ok := model.(progress.Model); ok {
			m.progress = p
		}
		return cmd
	}

	if m.filtering {
		m.filterInput, cmd = m.filterInput.Update(msg)
	} else {
		m.table, cmd = m.table.Update(msg)
	}
	return cmd
}

func (m *FilesViewModel) ActivateFilter() {
	m.filtering = true
	m.filterInput.SetValue(m.filterText)
	m.filterInput.Focus()
}

func (m *FilesViewModel) ApplyFilter() {
	m.filterText = m.filterInput.Value()
	m.filtering = false
	m.filterInput.Blur()
	m.rebuild()
}

func (m *FilesViewModel) ClearFilter() {
	m.filterText = ""
	m.filterInput.SetValue("")
	m.filtering = false
	m.filterInput.Blur()
	m.rebuild()
}

func (m *FilesViewModel) IsFiltering() bool {
	return m.filtering
}

func (m *FilesViewModel) GetFilterText() string {
	return m.filterText
}

func (m *FilesViewModel) View() string {
	folderStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7C3AED")).
		Bold(true)

	folder := m.folder
	if folder == "" {
		folder = "/"
	}

	var b strings.Builder
	b.WriteString(folderStyle.Render(folder))
	b.WriteString("\n\n")

	mutedStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#6B7280")).
		Italic(true)

	switch {
	case m.loading && len(m.sourceEntries) == 0:
		b.WriteString(mutedStyle.Render("Loading..."))
		b.WriteString("\n")
	case len(m.sourceEntries) == 0:
		b.WriteString(mutedStyle.Render("This folder is empty"))
		b.WriteString("\n")
	default:
		b.WriteString(m.colorizeTableRows(m.table.View()))
		b.WriteString("\n")
	}

	if m.filtering {
		filterStyle := lipgloss.NewStyle().
			Foreground(lipgloss.Color("#F59E0B")).
			Bold(true)
		b.WriteString(filterStyle.Render("Filter: ") + m.filterInput.View() + "\n")
	}

	if m.transferring {
		b.WriteString("\n" + m.transferLabel + "\n")
		b.WriteString(m.progress.View() + "\n")
	}

	b.WriteString(mutedStyle.Render("\n" + m.helpText()))
	return b.String()
}

func (m *FilesViewModel) colorizeTableRows(tableOutput string) string {
	lines := strings.Split(tableOutput, "\n")
	folderStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#93C5FD"))

	for i, line := range lines {
		if strings.Contains(line, "▸") {
			lines[i] = folderStyle.Render(line)
		}
	}
	return strings.Join(lines, "\n")
}

func (m *FilesViewModel) helpText() string {
	if m.filtering {
		return "Type to filter | Enter: Apply | Esc: Close"
	}
	if m.filterText != "" {
		return "Enter: Open/Download | u: Upload | d: Download | r: Refresh | Esc: Clear filter | L: Logout"
	}
	return "Enter: Open/Download | u: Upload | d: Download | Backspace: Up | r: Refresh | /: Filter | L: Logout"
}

// FormatSize renders a byte count with binary units.
func FormatSize(size uint64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := uint64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %ciB", float64(size)/float64(div), "KMGTPE"[exp])
}

func formatModified(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Local().Format("2006-01-02 15:04")
}

// truncateString shortens s to maxLen terminal cells without splitting runes.
func truncateString(s string, maxLen int) string {
	if maxLen <= 0 || ansi.StringWidth(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return ansi.Truncate(s, maxLen, "")
	}
	return ansi.Truncate(s, maxLen, "...")
}
