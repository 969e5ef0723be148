package ui

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/johanforsgren/dbxutil/internal/domain"
	"github.com/johanforsgren/dbxutil/internal/logger"
	"github.com/johanforsgren/dbxutil/internal/transfer"
	"github.com/johanforsgren/dbxutil/internal/ui/views"
)

var (
	errTransferRunning = errors.New("a transfer is already running")
	errFolderDownload  = errors.New("folders cannot be downloaded, press Enter to open")
)

func handleForceQuitKey(m Model) (Model, tea.Cmd) {
	if m.transfer != nil {
		m.transfer.cancel()
	}
	logger.Log("UI: Quit")
	return m, tea.Quit
}

func handleCommandBarKey(m Model) (Model, tea.Cmd) {
	m.commandBar.Activate()
	return m, nil
}

func handleHelpKey(m Model) (Model, tea.Cmd) {
	m.helpView.Activate(m.commandRegistry.HelpMarkdown())
	return m, nil
}

func handleLogsKey(m Model) (Model, tea.Cmd) {
	m.logsView.Activate()
	return m, nil
}

func handleNextFieldKey(m Model) (Model, tea.Cmd) {
	m.authView.NextInput()
	return m, nil
}

func handlePrevFieldKey(m Model) (Model, tea.Cmd) {
	m.authView.PrevInput()
	return m, nil
}

func handleToggleSaveKey(m Model) (Model, tea.Cmd) {
	m.authView.ToggleSave()
	return m, nil
}

// handleOpenConsentKey opens the consent page and copies its URL, so it can
// be pasted when no browser is available.
func handleOpenConsentKey(m Model) (Model, tea.Cmd) {
	form := m.authView.Form()
	flow, err := m.providers.NewFlow(form.AppKey, form.AppSecret)
	if err != nil {
		m.statusBar.SetMessage(err.Error(), true)
		return m, nil
	}

	url := flow.AuthURL()
	m.authView.SetAuthURL(url)
	logger.Log("UI: Opening consent page for app %s", flow.AppKey())

	openURL, copyText := m.openURL, m.copyText
	return m, func() tea.Msg {
		copied := true
		if err := copyText(url); err != nil {
			logger.LogError("CLIPBOARD", "consent URL", err)
			copied = false
		}
		if err := openURL(url); err != nil {
			logger.LogError("BROWSER", url, err)
			if copied {
				return SuccessMsg{message: "Could not open a browser, the consent URL was copied to the clipboard"}
			}
			return ErrorMsg{err: fmt.Errorf("could not open a browser, visit the URL shown above: %w", err)}
		}
		if copied {
			return SuccessMsg{message: "Consent page opened in your browser (URL copied to clipboard)"}
		}
		return SuccessMsg{message: "Consent page opened in your browser"}
	}
}

func handleEnterKey(m Model) (Model, tea.Cmd) {
	switch m.state {
	case ViewAuth:
		return m.finishAuth()
	case ViewFiles:
		entry := m.filesView.GetSelectedEntry()
		if entry == nil {
			return m, nil
		}
		if entry.IsDir {
			return m.openFolder(entry.Path)
		}
		return m.promptDownload(entry)
	}
	return m, nil
}

func (m Model) finishAuth() (Model, tea.Cmd) {
	if m.authView.IsBusy() {
		return m, nil
	}

	form := m.authView.Form()
	flow, err := m.providers.NewFlow(form.AppKey, form.AppSecret)
	if err != nil {
		m.statusBar.SetMessage(err.Error(), true)
		return m, nil
	}
	if form.Code == "" {
		m.statusBar.SetMessage(domain.ErrMissingCode.Error(), true)
		return m, nil
	}

	m.authView.SetBusy(true)
	m.statusBar.SetMessage("Exchanging authorization code...", false)
	return m, tea.Batch(m.statusBar.SetBusy(true), m.authenticate(form, flow))
}

func handleRefreshKey(m Model) (Model, tea.Cmd) {
	m, ok := m.requireSession()
	if !ok {
		return m, nil
	}
	return m, m.loadFolder(m.filesView.Folder())
}

func handleUploadKey(m Model) (Model, tea.Cmd) {
	m, ok := m.requireSession()
	if !ok {
		return m, nil
	}
	if m.transfer != nil {
		return m, errorCmd(errTransferRunning)
	}

	target := m.filesView.Folder()
	m.promptView.Activate(views.PromptUpload, "Upload to "+displayFolder(target), "~/path/to/file", "", target)
	return m, nil
}

func handleDownloadKey(m Model) (Model, tea.Cmd) {
	entry := m.filesView.GetSelectedEntry()
	if entry == nil {
		return m, errorCmd(domain.ErrNoSelection)
	}
	if entry.IsDir {
		return m, errorCmd(errFolderDownload)
	}
	return m.promptDownload(entry)
}

func (m Model) promptDownload(entry *domain.Entry) (Model, tea.Cmd) {
	m, ok := m.requireSession()
	if !ok {
		return m, nil
	}
	if m.transfer != nil {
		return m, errorCmd(errTransferRunning)
	}

	m.pendingEntry = entry
	defaultPath := filepath.Join(m.downloadDir, entry.Name)
	m.promptView.Activate(views.PromptDownload, "Save "+entry.Name+" as", "Local path", defaultPath, entry.Path)
	return m, nil
}

func handleParentKey(m Model) (Model, tea.Cmd) {
	parent, ok := m.filesView.ParentFolder()
	if !ok {
		return m, nil
	}
	return m.openFolder(parent)
}

func handleFilterKey(m Model) (Model, tea.Cmd) {
	m.filesView.ActivateFilter()
	return m, nil
}

func handleEscapeKey(m Model) (Model, tea.Cmd) {
	if m.filesView.GetFilterText() != "" {
		m.filesView.ClearFilter()
	}
	return m, nil
}

func handleCancelTransferKey(m Model) (Model, tea.Cmd) {
	if m.transfer == nil {
		return m, nil
	}
	logger.Log("UI: Cancelling %s", m.transfer.label)
	m.transfer.cancel()
	return m, nil
}

func handleLogoutKey(m Model) (Model, tea.Cmd) {
	m.confirmView.Activate("Log out", fmt.Sprintf("Delete the stored credentials at %s?", m.repository.Path()))
	return m, nil
}

// handleQuitKey goes up one folder, or quits at the root.
func handleQuitKey(m Model) (Model, tea.Cmd) {
	if parent, ok := m.filesView.ParentFolder(); ok {
		return m.openFolder(parent)
	}
	return handleForceQuitKey(m)
}

func (m Model) openFolder(folder string) (Model, tea.Cmd) {
	m, ok := m.requireSession()
	if !ok {
		return m, nil
	}
	logger.Log("UI: Opening folder %q", folder)
	return m, m.loadFolder(folder)
}

func (m Model) confirmLogout() (Model, tea.Cmd) {
	confirmed := m.confirmView.Confirmed()
	m.confirmView.Deactivate()
	if !confirmed {
		return m, nil
	}

	if m.transfer != nil {
		m.transfer.cancel()
	}

	repo := m.repository
	return m, tea.Batch(m.statusBar.SetBusy(true), func() tea.Msg {
		if err := repo.Delete(); err != nil {
			return ErrorMsg{err: fmt.Errorf("failed to delete stored credentials: %w", err)}
		}
		logger.Log("UI: Logged out")
		return loggedOutMsg{}
	})
}

func (m Model) submitPrompt() (Model, tea.Cmd) {
	value := m.promptView.GetValue()
	purpose := m.promptView.Purpose()
	target := m.promptView.Target()
	m.promptView.Deactivate()

	if value == "" {
		m.pendingEntry = nil
		return m, nil
	}

	switch purpose {
	case views.PromptUpload:
		return m.startUpload(value, target)
	case views.PromptDownload:
		entry := m.pendingEntry
		m.pendingEntry = nil
		if entry == nil || entry.Path != target {
			entry = &domain.Entry{Path: target, Name: path.Base(target)}
		}
		return m.startDownload(entry, value)
	}
	return m, nil
}

func (m Model) startUpload(localPath, remoteDir string) (Model, tea.Cmd) {
	m, ok := m.requireSession()
	if !ok {
		return m, nil
	}
	if m.transfer != nil {
		return m, errorCmd(errTransferRunning)
	}

	expanded, err := transfer.ExpandPath(localPath)
	if err != nil {
		return m, errorCmd(err)
	}
	info, err := os.Stat(expanded)
	if err != nil {
		return m, errorCmd(fmt.Errorf("failed to read %s: %w", expanded, err))
	}

	label := fmt.Sprintf("Uploading %s to %s", filepath.Base(expanded), displayFolder(remoteDir))
	progress := transfer.NewProgress(info.Size())
	m = m.beginTransfer(label, progress)

	id, ctx := m.transfer.id, m.transfer.ctx
	provider := m.provider
	run := func() tea.Msg {
		result, err := transfer.Upload(ctx, provider, expanded, remoteDir, progress)
		return transferFinishedMsg{id: id, result: result, err: err}
	}
	return m, tea.Batch(run, tickProgress(), m.statusBar.SetBusy(true), m.filesView.SetProgress(0))
}

func (m Model) startDownload(entry *domain.Entry, localPath string) (Model, tea.Cmd) {
	m, ok := m.requireSession()
	if !ok {
		return m, nil
	}
	if m.transfer != nil {
		return m, errorCmd(errTransferRunning)
	}

	label := fmt.Sprintf("Downloading %s to %s", entry.Name, localPath)
	progress := transfer.NewProgress(int64(entry.Size))
	m = m.beginTransfer(label, progress)

	id, ctx := m.transfer.id, m.transfer.ctx
	provider := m.provider
	remotePath := entry.Path
	run := func() tea.Msg {
		result, err := transfer.Download(ctx, provider, remotePath, localPath, progress)
		return transferFinishedMsg{id: id, result: result, err: err}
	}
	return m, tea.Batch(run, tickProgress(), m.statusBar.SetBusy(true), m.filesView.SetProgress(0))
}

func (m Model) beginTransfer(label string, progress *transfer.Progress) Model {
	m.transferSeq++
	ctx, cancel := context.WithCancel(m.ctx)
	m.transfer = &activeTransfer{id: m.transferSeq, label: label, progress: progress, ctx: ctx, cancel: cancel}
	m.filesView.StartTransfer(label)
	m.statusBar.SetMessage(label, false)
	return m
}

func commandQuit(m Model, cmd Command) (Model, tea.Cmd) {
	return handleForceQuitKey(m)
}

func commandRefresh(m Model, cmd Command) (Model, tea.Cmd) {
	return handleRefreshKey(m)
}

func commandUpload(m Model, cmd Command) (Model, tea.Cmd) {
	if cmd.Raw == "" {
		return handleUploadKey(m)
	}
	return m.startUpload(cmd.Raw, m.filesView.Folder())
}

func commandDownload(m Model, cmd Command) (Model, tea.Cmd) {
	if len(cmd.Args) == 0 {
		return handleDownloadKey(m)
	}

	name := cmd.Args[0]
	entry := m.filesView.FindEntry(name)
	if entry == nil {
		return m, errorCmd(fmt.Errorf("no file named %s in %s", name, displayFolder(m.filesView.Folder())))
	}
	if entry.IsDir {
		return m, errorCmd(errFolderDownload)
	}
	dest := strings.TrimSpace(strings.TrimPrefix(cmd.Raw, name))
	if dest == "" {
		return m.promptDownload(entry)
	}
	return m.startDownload(entry, dest)
}

func commandCd(m Model, cmd Command) (Model, tea.Cmd) {
	if cmd.Raw == "" {
		return m.openFolder("")
	}

	target := cmd.Raw
	if !strings.HasPrefix(target, "/") {
		target = path.Join("/", m.filesView.Folder(), target)
	}
	target = path.Clean(target)
	if target == "/" {
		target = ""
	}
	return m.openFolder(target)
}

func commandLogout(m Model, cmd Command) (Model, tea.Cmd) {
	return handleLogoutKey(m)
}

func commandLogs(m Model, cmd Command) (Model, tea.Cmd) {
	return handleLogsKey(m)
}

func commandHelp(m Model, cmd Command) (Model, tea.Cmd) {
	return handleHelpKey(m)
}

func displayFolder(folder string) string {
	if folder == "" {
		return "/"
	}
	return folder
}
