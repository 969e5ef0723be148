package views

import (
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

const (
	AuthFieldAppKey = iota
	AuthFieldAppSecret
	AuthFieldCode
	authFieldCount
)

// AuthForm is what the user entered on the auth page.
type AuthForm struct {
	AppKey    string
	AppSecret string
	Code      string
	Save      bool
}

type AuthViewModel struct {
	keyInput    textinput.Model
	secretInput textinput.Model
	codeInput   textinput.Model
	inputFocus  int
	save        bool
	authURL     string
	busy        bool
	width       int
	height      int
}

func NewAuthView() *AuthViewModel {
	keyInput := textinput.New()
	keyInput.Placeholder = "App key"
	keyInput.CharLimit = 64

	secretInput := textinput.New()
	secretInput.Placeholder = "App secret"
	secretInput.CharLimit = 64
	secretInput.EchoMode = textinput.EchoPassword

	codeInput := textinput.New()
	codeInput.Placeholder = "Paste the authorization code here"
	codeInput.CharLimit = 256

	m := &AuthViewModel{
		keyInput:    keyInput,
		secretInput: secretInput,
		codeInput:   codeInput,
		save:        true,
	}
	m.focusCurrent()
	return m
}

func (m *AuthViewModel) SetSize(width, height int) {
	m.width = width
	m.height = height
	if width > 20 {
		m.keyInput.Width = width - 20
		m.secretInput.Width = width - 20
		m.codeInput.Width = width - 20
	}
}

// Prefill loads stored credentials into the form. The code is never stored.
func (m *AuthViewModel) Prefill(appKey, appSecret string) {
	m.keyInput.SetValue(appKey)
	m.secretInput.SetValue(appSecret)
	m.codeInput.SetValue("")
	m.blurAll()
	m.inputFocus = AuthFieldAppKey
	if appKey != "" && appSecret != "" {
		m.inputFocus = AuthFieldCode
	}
	m.focusCurrent()
}

// Reset clears every field and restores the default save toggle.
func (m *AuthViewModel) Reset() {
	m.Prefill("", "")
	m.save = true
	m.authURL = ""
	m.busy = false
}

func (m *AuthViewModel) Form() AuthForm {
	return AuthForm{
		AppKey:    strings.TrimSpace(m.keyInput.Value()),
		AppSecret: strings.TrimSpace(m.secretInput.Value()),
		Code:      strings.TrimSpace(m.codeInput.Value()),
		Save:      m.save,
	}
}

func (m *AuthViewModel) SetAuthURL(url string) {
	m.authURL = url
}

func (m *AuthViewModel) AuthURL() string {
	return m.authURL
}

func (m *AuthViewModel) SetBusy(busy bool) {
	m.busy = busy
}

func (m *AuthViewModel) IsBusy() bool {
	return m.busy
}

func (m *AuthViewModel) ToggleSave() {
	m.save = !m.save
}

func (m *AuthViewModel) Focus() int {
	return m.inputFocus
}

func (m *AuthViewModel) NextInput() {
	m.blurAll()
	m.inputFocus = (m.inputFocus + 1) % authFieldCount
	m.focusCurrent()
}

func (m *AuthViewModel) PrevInput() {
	m.blurAll()
	m.inputFocus = (m.inputFocus - 1 + authFieldCount) % authFieldCount
	m.focusCurrent()
}

func (m *AuthViewModel) blurAll() {
	m.keyInput.Blur()
	m.secretInput.Blur()
	m.codeInput.Blur()
}

func (m *AuthViewModel) focusCurrent() {
	switch m.inputFocus {
	case AuthFieldAppKey:
		m.keyInput.Focus()
	case AuthFieldAppSecret:
		m.secretInput.Focus()
	case AuthFieldCode:
		m.codeInput.Focus()
	}
}

func (m *AuthViewModel) Update(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd

	switch m.inputFocus {
	case AuthFieldAppKey:
		m.keyInput, cmd = m.keyInput.Update(msg)
	case AuthFieldAppSecret:
		m.secretInput, cmd = m.secretInput.Update(msg)
	case AuthFieldCode:
		m.codeInput, cmd = m.codeInput.Update(msg)
	}

	return cmd
}

func (m *AuthViewModel) View() string {
	var b strings.Builder

	title := lipgloss.NewStyle().
		Foreground(lipgloss.Color("#7C3AED")).
		Bold(true).
		Render("Connect to Dropbox")

	labelStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#F9FAFB"))
	mutedStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Italic(true)

	b.WriteString(title + "\n\n")
	b.WriteString(labelStyle.Render("App key:") + "\n")
	b.WriteString(m.keyInput.View() + "\n\n")
	b.WriteString(labelStyle.Render("App secret:") + "\n")
	b.WriteString(m.secretInput.View() + "\n\n")

	if m.authURL != "" {
		b.WriteString(mutedStyle.Render("Approve access in your browser, then paste the code below:") + "\n")
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6")).Underline(true).Render(m.authURL) + "\n\n")
	} else {
		b.WriteString(mutedStyle.Render("Press Ctrl+O to open the Dropbox consent page.") + "\n\n")
	}

	b.WriteString(labelStyle.Render("Authorization code:") + "\n")
	b.WriteString(m.codeInput.View() + "\n\n")

	check := "[ ]"
	if m.save {
		check = "[x]"
	}
	b.WriteString(labelStyle.Render(check+" Save credentials") + "\n\n")

	if m.busy {
		b.WriteString(lipgloss.NewStyle().Foreground(lipgloss.Color("#F59E0B")).Render("Authenticating...") + "\n\n")
	}

	help := mutedStyle.Render("Tab: Next | Shift+Tab: Previous | Space: Toggle save | Ctrl+O: Open consent page | Enter: Finish")
	b.WriteString(help)

	return b.String()
}
