package ui

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atotto/clipboard"
	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/johanforsgren/dbxutil/internal/auth"
	"github.com/johanforsgren/dbxutil/internal/domain"
	"github.com/johanforsgren/dbxutil/internal/logger"
	"github.com/johanforsgren/dbxutil/internal/provider/common"
	"github.com/johanforsgren/dbxutil/internal/transfer"
	"github.com/johanforsgren/dbxutil/internal/ui/components"
	"github.com/johanforsgren/dbxutil/internal/ui/views"
	"github.com/pkg/browser"
)

type ViewState int

const (
	ViewAuth ViewState = iota
	ViewFiles
)

func (s ViewState) String() string {
	switch s {
	case ViewAuth:
		return "Auth"
	case ViewFiles:
		return "Files"
	default:
		return "Unknown"
	}
}

const (
	progressInterval = 100 * time.Millisecond
	topBarHeight     = 8
	statusBarHeight  = 2
)

// Options wires the model to its collaborators. OpenURL and CopyText default
// to the system browser and clipboard.
type Options struct {
	Repository  domain.SettingsRepository
	Providers   *ProviderManager
	DownloadDir string
	OpenURL     func(url string) error
	CopyText    func(text string) error
}

type activeTransfer struct {
	id       int
	label    string
	progress *transfer.Progress
	ctx      context.Context
	cancel   context.CancelFunc
}

type Model struct {
	state           ViewState
	width           int
	height          int
	topBar          *components.TopBarModel
	statusBar       *components.StatusBarModel
	commandBar      *components.CommandBarModel
	authView        *views.AuthViewModel
	filesView       *views.FilesViewModel
	promptView      *views.PromptViewModel
	confirmView     *views.ConfirmViewModel
	logsView        *views.LogsViewModel
	helpView        *views.HelpViewModel
	repository      domain.SettingsRepository
	providers       *ProviderManager
	provider        domain.Provider
	account         *domain.Account
	transfer        *activeTransfer
	transferSeq     int
	session         int
	pendingEntry    *domain.Entry
	downloadDir     string
	openURL         func(string) error
	copyText        func(string) error
	ctx             context.Context
	commandRegistry *CommandRegistry
}

func NewModel(opts Options) Model {
	if opts.OpenURL == nil {
		opts.OpenURL = browser.OpenURL
	}
	if opts.CopyText == nil {
		opts.CopyText = clipboard.WriteAll
	}

	m := Model{
		state:           ViewAuth,
		topBar:          components.NewTopBar(),
		statusBar:       components.NewStatusBar(),
		commandBar:      components.NewCommandBar(),
		authView:        views.NewAuthView(),
		filesView:       views.NewFilesView(),
		promptView:      views.NewPromptView(),
		confirmView:     views.NewConfirmView(),
		logsView:        views.NewLogsView(),
		helpView:        views.NewHelpView(),
		repository:      opts.Repository,
		providers:       opts.Providers,
		downloadDir:     opts.DownloadDir,
		openURL:         opts.OpenURL,
		copyText:        opts.CopyText,
		ctx:             context.Background(),
		commandRegistry: NewCommandRegistry(),
	}

	m.commandBar.SetCommands(m.commandRegistry.CommandNames())
	m.topBar.SetStorage(m.repository.Path())
	m.topBar.SetView(m.state.String())
	m.updateShortcuts()
	return m
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(m.restoreSession(), m.statusBar.SetBusy(true))
}

func (m Model) State() ViewState {
	return m.state
}

func (m Model) isInInputMode() bool {
	return m.commandBar.IsActive() ||
		m.confirmView.IsActive() ||
		m.promptView.IsActive() ||
		m.helpView.IsActive() ||
		m.logsView.IsActive() ||
		(m.state == ViewFiles && m.filesView.IsFiltering())
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		contentHeight := max(1, msg.Height-topBarHeight-statusBarHeight)
		m.topBar.SetWidth(msg.Width)
		m.statusBar.SetWidth(msg.Width)
		m.commandBar.SetWidth(msg.Width)
		m.authView.SetSize(msg.Width, contentHeight)
		m.filesView.SetSize(msg.Width, contentHeight)
		m.promptView.SetSize(msg.Width, contentHeight)
		m.confirmView.SetSize(msg.Width, contentHeight)
		m.logsView.SetSize(msg.Width, contentHeight)
		m.helpView.SetSize(msg.Width, contentHeight)
		return m, nil

	case tea.KeyMsg:
		key := msg.String()

		if key == "ctrl+c" {
			return handleForceQuitKey(m)
		}

		if m.isInInputMode() {
			return m.handleInputMode(msg)
		}

		newModel, cmd, handled := m.commandRegistry.HandleKey(m, key)
		if handled {
			return newModel, cmd
		}

	case startupMsg:
		return m.handleStartup(msg)

	case authCompletedMsg:
		m.authView.SetBusy(false)
		m.statusBar.SetBusy(false)
		m = m.startSession(msg.provider, msg.account)
		m.statusBar.SetMessage(fmt.Sprintf("Authenticated as %s", msg.account.DisplayName), false)
		return m, m.loadFolder("")

	case folderLoadedMsg:
		if msg.session != m.session {
			logger.Log("UI: Ignoring listing of %s from an ended session", msg.folder)
			return m, nil
		}
		m.statusBar.SetBusy(false)
		m.filesView.SetEntries(msg.folder, msg.entries)
		m.topBar.SetFolder(msg.folder, len(msg.entries))
		return m, nil

	case transferFinishedMsg:
		return m.handleTransferFinished(msg)

	case progressTickMsg:
		if m.transfer == nil {
			return m, nil
		}
		return m, tea.Batch(m.filesView.SetProgress(m.transfer.progress.Fraction()), tickProgress())

	case progress.FrameMsg:
		return m, m.filesView.Update(msg)

	case spinner.TickMsg:
		return m, m.statusBar.Update(msg)

	case loggedOutMsg:
		m = m.dropSession()
		m.authView.Reset()
		m.statusBar.SetBusy(false)
		m.statusBar.SetMessage("Logged out, stored credentials deleted", false)
		return m, nil

	case ErrorMsg:
		return m.handleError(msg.err)

	case SuccessMsg:
		m.statusBar.SetBusy(false)
		m.statusBar.SetMessage(msg.message, false)
		return m, nil
	}

	var cmd tea.Cmd
	switch m.state {
	case ViewAuth:
		cmd = m.authView.Update(msg)
	case ViewFiles:
		cmd = m.filesView.Update(msg)
	}
	return m, cmd
}

func (m Model) handleInputMode(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	key := msg.String()

	switch {
	case m.commandBar.IsActive():
		switch key {
		case "enter":
			return m.commandRegistry.ExecuteCommand(m, m.commandBar.Submit())
		case "esc":
			m.commandBar.Deactivate()
			return m, nil
		default:
			return m, m.commandBar.Update(msg)
		}

	case m.confirmView.IsActive():
		switch key {
		case "left", "right", "h", "l", "tab":
			m.confirmView.Toggle()
		case "y":
			m.confirmView.SelectYes()
			return m.confirmLogout()
		case "enter":
			return m.confirmLogout()
		case "n", "esc", "q":
			m.confirmView.Deactivate()
		}
		return m, nil

	case m.promptView.IsActive():
		switch key {
		case "enter":
			return m.submitPrompt()
		case "esc":
			m.promptView.Deactivate()
			m.pendingEntry = nil
			return m, nil
		default:
			return m, m.promptView.Update(msg)
		}

	case m.helpView.IsActive():
		switch key {
		case "esc", "q", "?":
			m.helpView.Deactivate()
			return m, nil
		default:
			return m, m.helpView.Update(msg)
		}

	case m.logsView.IsActive():
		switch key {
		case "esc", "q", "ctrl+l":
			m.logsView.Deactivate()
			return m, nil
		default:
			return m, m.logsView.Update(msg)
		}

	case m.filesView.IsFiltering():
		switch key {
		case "enter":
			m.filesView.ApplyFilter()
		case "esc":
			m.filesView.ClearFilter()
		default:
			return m, m.filesView.Update(msg)
		}
		return m, nil
	}

	return m, nil
}

func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var content string

	switch {
	case m.logsView.IsActive():
		content = m.logsView.View()
	case m.helpView.IsActive():
		content = m.helpView.View()
	case m.confirmView.IsActive():
		content = m.confirmView.View()
	case m.promptView.IsActive():
		content = m.promptView.View()
	case m.state == ViewFiles:
		content = m.filesView.View()
	default:
		content = m.authView.View()
	}

	topBar := m.topBar.View()
	statusBar := m.statusBar.View()
	commandBar := m.commandBar.View()

	if commandBar != "" {
		return topBar + "\n" + content + "\n" + commandBar
	}

	return topBar + "\n" + content + "\n" + statusBar
}

func (m Model) handleStartup(msg startupMsg) (tea.Model, tea.Cmd) {
	m.statusBar.SetBusy(false)
	m.authView.Prefill(msg.settings.Get(domain.KeyAppKey), msg.settings.Get(domain.KeyAppSecret))

	if msg.err != nil {
		m.statusBar.SetMessage(msg.err.Error(), true)
		return m, nil
	}
	if msg.provider == nil {
		m.statusBar.SetMessage("Enter your app key and secret, then press Ctrl+O", false)
		return m, nil
	}

	m = m.startSession(msg.provider, msg.account)
	m.statusBar.SetMessage(fmt.Sprintf("Welcome back, %s", msg.account.DisplayName), false)
	return m, m.loadFolder("")
}

func (m Model) handleTransferFinished(msg transferFinishedMsg) (tea.Model, tea.Cmd) {
	// A transfer orphaned by logout may report after a new one has started.
	if m.transfer == nil || m.transfer.id != msg.id {
		logger.Log("UI: Ignoring result of transfer %d", msg.id)
		return m, nil
	}
	m.transfer.cancel()
	m.transfer = nil
	m.filesView.StopTransfer()
	m.statusBar.SetBusy(false)

	if msg.err != nil {
		if errors.Is(msg.err, context.Canceled) {
			m.statusBar.SetMessage("Transfer cancelled", true)
			return m, nil
		}
		return m.handleError(msg.err)
	}

	result := msg.result
	size := views.FormatSize(uint64(result.Bytes))
	switch result.Direction {
	case domain.TransferUpload:
		m.statusBar.SetMessage(fmt.Sprintf("Uploaded %s to %s (%s in %s)", result.LocalPath, result.RemotePath, size, result.Duration.Round(time.Millisecond)), false)
		return m, m.loadFolder(m.filesView.Folder())
	default:
		m.statusBar.SetMessage(fmt.Sprintf("Saved %s to %s (%s)", result.RemotePath, result.LocalPath, size), false)
		return m, nil
	}
}

// handleError shows err in the status bar. Errors that invalidate the session
// send the user back to the auth page.
func (m Model) handleError(err error) (tea.Model, tea.Cmd) {
	m.authView.SetBusy(false)
	m.statusBar.SetBusy(false)
	m.filesView.SetLoading(false)

	message := common.ExtractErrorMessage(err)
	if m.provider != nil && common.IsAuthError(err) {
		logger.Log("UI: Session rejected, returning to auth page")
		m = m.dropSession()
		m.statusBar.SetMessage("Session expired, please authenticate again: "+message, true)
		return m, nil
	}

	m.statusBar.SetMessage(message, true)
	return m, nil
}

func (m Model) startSession(provider domain.Provider, account *domain.Account) Model {
	m.session++
	m.provider = provider
	m.account = account
	m.state = ViewFiles
	m.topBar.SetAccount(fmt.Sprintf("%s <%s>", account.DisplayName, account.Email))
	m.topBar.SetView(m.state.String())
	m.filesView.SetEntries("", nil)
	m.filesView.SetLoading(true)
	m.updateShortcuts()
	logger.Log("UI: Session started for %s", account.ID)
	return m
}

func (m Model) dropSession() Model {
	if m.transfer != nil {
		m.transfer.cancel()
		m.transfer = nil
	}
	m.session++
	m.provider = nil
	m.account = nil
	m.pendingEntry = nil
	m.state = ViewAuth
	m.filesView.StopTransfer()
	m.filesView.SetEntries("", nil)
	m.promptView.Deactivate()
	m.confirmView.Deactivate()
	m.topBar.SetAccount("")
	m.topBar.SetFolder("", 0)
	m.topBar.SetView(m.state.String())
	m.updateShortcuts()
	return m
}

// requireSession returns to the auth page when there is no provider.
func (m Model) requireSession() (Model, bool) {
	if m.provider != nil {
		return m, true
	}
	m = m.dropSession()
	m.statusBar.SetMessage(domain.ErrNotAuthenticated.Error()+", please authenticate", true)
	return m, false
}

func (m Model) updateShortcuts() {
	m.topBar.SetShortcuts(m.commandRegistry.GetContextualShortcuts(m.state))
}

func (m Model) restoreSession() tea.Cmd {
	repo := m.repository
	providers := m.providers
	ctx := m.ctx

	return func() tea.Msg {
		settings, err := repo.Load()
		if err != nil {
			return startupMsg{settings: domain.Settings{}, err: err}
		}
		if !settings.Has(domain.KeyAccessToken) {
			return startupMsg{settings: settings}
		}

		logger.Log("UI: Validating stored token")
		provider, err := providers.ConnectStored(ctx, settings, repo)
		if err != nil {
			return startupMsg{settings: settings, err: fmt.Errorf("stored token is invalid: %s", common.ExtractErrorMessage(err))}
		}

		account, err := provider.ValidateCredentials(ctx)
		if err != nil {
			return startupMsg{settings: settings, err: fmt.Errorf("stored token is invalid: %s", common.ExtractErrorMessage(err))}
		}

		return startupMsg{settings: settings, provider: provider, account: account}
	}
}

func (m Model) authenticate(form views.AuthForm, flow *auth.Flow) tea.Cmd {
	repo := m.repository
	providers := m.providers
	ctx := m.ctx

	return func() tea.Msg {
		token, err := flow.Exchange(providers.Context(ctx), form.Code)
		if err != nil {
			return ErrorMsg{err: err}
		}

		var writeBack domain.SettingsRepository
		if form.Save {
			writeBack = repo
		}

		provider, err := providers.Connect(ctx, flow, token, writeBack)
		if err != nil {
			return ErrorMsg{err: err}
		}

		account, err := provider.ValidateCredentials(ctx)
		if err != nil {
			return ErrorMsg{err: fmt.Errorf("token verification failed: %w", err)}
		}

		if form.Save {
			if err := saveCredentials(repo, form, token.AccessToken, token.RefreshToken); err != nil {
				return ErrorMsg{err: fmt.Errorf("failed to save credentials: %w", err)}
			}
		}

		return authCompletedMsg{provider: provider, account: account}
	}
}

func saveCredentials(repo domain.SettingsRepository, form views.AuthForm, accessToken, refreshToken string) error {
	settings, err := repo.Load()
	if err != nil {
		return err
	}
	settings.Set(domain.KeyAppKey, form.AppKey)
	settings.Set(domain.KeyAppSecret, form.AppSecret)
	settings.Set(domain.KeyAccessToken, accessToken)
	settings.Set(domain.KeyRefreshToken, refreshToken)
	return repo.Save(settings)
}

func (m Model) loadFolder(folder string) tea.Cmd {
	provider := m.provider
	ctx := m.ctx
	session := m.session
	if provider == nil {
		return errorCmd(domain.ErrNotAuthenticated)
	}

	m.filesView.SetLoading(true)
	return tea.Batch(m.statusBar.SetBusy(true), func() tea.Msg {
		entries, err := provider.ListFolder(ctx, folder)
		if err != nil {
			return ErrorMsg{err: err}
		}
		return folderLoadedMsg{session: session, folder: folder, entries: entries}
	})
}

func tickProgress() tea.Cmd {
	return tea.Tick(progressInterval, func(time.Time) tea.Msg {
		return progressTickMsg{}
	})
}

func errorCmd(err error) tea.Cmd {
	return func() tea.Msg {
		return ErrorMsg{err: err}
	}
}

type startupMsg struct {
	settings domain.Settings
	provider domain.Provider
	account  *domain.Account
	err      error
}

type authCompletedMsg struct {
	provider domain.Provider
	account  *domain.Account
}

type folderLoadedMsg struct {
	session int
	folder  string
	entries []domain.Entry
}

type transferFinishedMsg struct {
	id     int
	result *domain.TransferResult
	err    error
}

type progressTickMsg struct{}

type loggedOutMsg struct{}

type ErrorMsg struct {
	err error
}

type SuccessMsg struct {
	message string
}
