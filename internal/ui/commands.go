package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/johanforsgren/dbxutil/internal/logger"
)

type CommandType int

const (
	CommandUnknown CommandType = iota
	CommandQuit
	CommandRefresh
	CommandUpload
	CommandDownload
	CommandCd
	CommandLogout
	CommandLogs
	CommandHelp
)

// Command is a parsed ":" line. Raw is everything after the name with its
// inner spacing intact, for arguments that are paths.
type Command struct {
	Type CommandType
	Name string
	Args []string
	Raw  string
}

func ParseCommand(input string) Command {
	input = strings.TrimSpace(input)

	if !strings.HasPrefix(input, ":") {
		return Command{Type: CommandUnknown}
	}

	input = strings.TrimSpace(strings.TrimPrefix(input, ":"))
	parts := strings.Fields(input)

	if len(parts) == 0 {
		return Command{Type: CommandUnknown}
	}

	cmd := Command{
		Name: parts[0],
		Args: parts[1:],
		Raw:  strings.TrimSpace(strings.TrimPrefix(input, parts[0])),
	}

	switch cmd.Name {
	case "q", "quit":
		cmd.Type = CommandQuit
	case "r", "refresh":
		cmd.Type = CommandRefresh
	case "u", "upload":
		cmd.Type = CommandUpload
	case "d", "download":
		cmd.Type = CommandDownload
	case "cd":
		cmd.Type = CommandCd
	case "logout":
		cmd.Type = CommandLogout
	case "logs":
		cmd.Type = CommandLogs
	case "h", "help":
		cmd.Type = CommandHelp
	default:
		cmd.Type = CommandUnknown
	}
	return cmd
}

// KeyBinding maps keys to a handler in the views where it applies.
type KeyBinding struct {
	Keys        []string
	Description string
	AvailableIn []ViewState
	Handler     func(m Model) (Model, tea.Cmd)
}

func (b KeyBinding) availableIn(state ViewState) bool {
	for _, s := range b.AvailableIn {
		if s == state {
			return true
		}
	}
	return false
}

func (b KeyBinding) isGlobal() bool {
	return len(b.AvailableIn) == len(allViews)
}

// CommandDef describes a ":" command for dispatch and help.
type CommandDef struct {
	Type        CommandType
	Usage       string
	Description string
	Handler     func(m Model, cmd Command) (Model, tea.Cmd)
}

type CommandRegistry struct {
	keyBindings []KeyBinding
	commands    []CommandDef
}

var allViews = []ViewState{ViewAuth, ViewFiles}

func NewCommandRegistry() *CommandRegistry {
	r := &CommandRegistry{}

	r.keyBindings = []KeyBinding{
		{Keys: []string{"ctrl+c"}, Description: "Quit", AvailableIn: allViews, Handler: handleForceQuitKey},
		{Keys: []string{":"}, Description: "Command", AvailableIn: allViews, Handler: handleCommandBarKey},
		{Keys: []string{"?"}, Description: "Help", AvailableIn: allViews, Handler: handleHelpKey},
		{Keys: []string{"ctrl+l"}, Description: "Logs", AvailableIn: allViews, Handler: handleLogsKey},

		{Keys: []string{"tab"}, Description: "Next field", AvailableIn: []ViewState{ViewAuth}, Handler: handleNextFieldKey},
		{Keys: []string{"shift+tab"}, Description: "Previous field", AvailableIn: []ViewState{ViewAuth}, Handler: handlePrevFieldKey},
		{Keys: []string{" "}, Description: "Toggle save", AvailableIn: []ViewState{ViewAuth}, Handler: handleToggleSaveKey},
		{Keys: []string{"ctrl+o"}, Description: "Open consent page", AvailableIn: []ViewState{ViewAuth}, Handler: handleOpenConsentKey},

		{Keys: []string{"enter"}, Description: "Finish / Open", AvailableIn: allViews, Handler: handleEnterKey},

		{Keys: []string{"r"}, Description: "Refresh", AvailableIn: []ViewState{ViewFiles}, Handler: handleRefreshKey},
		{Keys: []string{"u"}, Description: "Upload", AvailableIn: []ViewState{ViewFiles}, Handler: handleUploadKey},
		{Keys: []string{"d"}, Description: "Download", AvailableIn: []ViewState{ViewFiles}, Handler: handleDownloadKey},
		{Keys: []string{"backspace"}, Description: "Parent folder", AvailableIn: []ViewState{ViewFiles}, Handler: handleParentKey},
		{Keys: []string{"/"}, Description: "Filter", AvailableIn: []ViewState{ViewFiles}, Handler: handleFilterKey},
		{Keys: []string{"esc"}, Description: "Clear filter", AvailableIn: []ViewState{ViewFiles}, Handler: handleEscapeKey},
		{Keys: []string{"x"}, Description: "Cancel transfer", AvailableIn: []ViewState{ViewFiles}, Handler: handleCancelTransferKey},
		{Keys: []string{"L"}, Description: "Logout", AvailableIn: []ViewState{ViewFiles}, Handler: handleLogoutKey},
		{Keys: []string{"q"}, Description: "Back / Quit", AvailableIn: []ViewState{ViewFiles}, Handler: handleQuitKey},
	}

	r.commands = []CommandDef{
		{Type: CommandQuit, Usage: ":q", Description: "Quit", Handler: commandQuit},
		{Type: CommandRefresh, Usage: ":refresh", Description: "Reload the current folder", Handler: commandRefresh},
		{Type: CommandUpload, Usage: ":upload <path>", Description: "Upload a local file into the current folder", Handler: commandUpload},
		{Type: CommandDownload, Usage: ":download <name> [path]", Description: "Download a file of the current folder", Handler: commandDownload},
		{Type: CommandCd, Usage: ":cd <folder>", Description: "Open a folder (absolute, relative or ..)", Handler: commandCd},
		{Type: CommandLogout, Usage: ":logout", Description: "Delete stored credentials and return to the auth page", Handler: commandLogout},
		{Type: CommandLogs, Usage: ":logs", Description: "Show session logs", Handler: commandLogs},
		{Type: CommandHelp, Usage: ":help", Description: "Show this help", Handler: commandHelp},
	}

	return r
}

// HandleKey runs the first binding for key that applies in the current view.
func (r *CommandRegistry) HandleKey(m Model, key string) (Model, tea.Cmd, bool) {
	for _, binding := range r.keyBindings {
		if !binding.availableIn(m.state) {
			continue
		}
		for _, k := range binding.Keys {
			if k == key {
				newModel, cmd := binding.Handler(m)
				return newModel, cmd, true
			}
		}
	}
	return m, nil, false
}

func (r *CommandRegistry) ExecuteCommand(m Model, input string) (Model, tea.Cmd) {
	cmd := ParseCommand(input)
	if cmd.Type == CommandUnknown {
		if cmd.Name == "" {
			return m, nil
		}
		return m, errorCmd(fmt.Errorf("unknown command: %s", cmd.Name))
	}

	logger.Log("UI: Executing command: %s %v", cmd.Name, cmd.Args)
	for _, def := range r.commands {
		if def.Type == cmd.Type {
			return def.Handler(m, cmd)
		}
	}
	return m, nil
}

// CommandNames lists ":name" completions for the command bar.
func (r *CommandRegistry) CommandNames() []string {
	names := make([]string, 0, len(r.commands))
	for _, def := range r.commands {
		name, _, _ := strings.Cut(def.Usage, " ")
		names = append(names, name)
	}
	return names
}

// GetContextualShortcuts returns "<key> description" entries for the top bar.
func (r *CommandRegistry) GetContextualShortcuts(state ViewState) []string {
	var shortcuts []string
	for _, binding := range r.keyBindings {
		if !binding.availableIn(state) {
			continue
		}
		// Global bindings are listed in the help overlay only.
		if binding.isGlobal() && binding.Keys[0] != "enter" {
			continue
		}
		shortcuts = append(shortcuts, fmt.Sprintf("<%s> %s", displayKey(binding.Keys[0]), binding.Description))
	}
	return append(shortcuts, "<?> Help")
}

// HelpMarkdown documents every key binding and command.
func (r *CommandRegistry) HelpMarkdown() string {
	var b strings.Builder

	b.WriteString("# dbxutil\n\n")
	b.WriteString("Browse, upload and download files in your Dropbox.\n\n")

	for _, section := range []struct {
		title string
		state ViewState
	}{
		{"Auth page", ViewAuth},
		{"Files page", ViewFiles},
	} {
		b.WriteString("## " + section.title + "\n\n")
		b.WriteString("| Key | Action |\n|---|---|\n")
		for _, binding := range r.keyBindings {
			if !binding.availableIn(section.state) {
				continue
			}
			keys := make([]string, len(binding.Keys))
			for i, k := range binding.Keys {
				keys[i] = "`" + displayKey(k) + "`"
			}
			b.WriteString(fmt.Sprintf("| %s | %s |\n", strings.Join(keys, ", "), binding.Description))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Commands\n\n")
	for _, def := range r.commands {
		b.WriteString(fmt.Sprintf("- `%s` %s\n", def.Usage, def.Description))
	}

	return b.String()
}

func displayKey(key string) string {
	if key == " " {
		return "space"
	}
	return key
}
