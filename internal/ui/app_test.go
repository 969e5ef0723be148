package ui

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/johanforsgren/dbxutil/internal/domain"
	"github.com/johanforsgren/dbxutil/internal/ui/views"
	"golang.org/x/oauth2"
)

type mockRepository struct {
	settings domain.Settings
	deleted  bool
	saves    int
}

func newMockRepository(settings domain.Settings) *mockRepository {
	if settings == nil {
		settings = domain.Settings{}
	}
	return &mockRepository{settings: settings}
}

func (m *mockRepository) Load() (domain.Settings, error) {
	return m.settings.Clone(), nil
}

func (m *mockRepository) Save(settings domain.Settings) error {
	m.settings = settings.Clone()
	m.deleted = false
	m.saves++
	return nil
}

func (m *mockRepository) Delete() error {
	m.settings = domain.Settings{}
	m.deleted = true
	return nil
}

func (m *mockRepository) Path() string {
	return "/tmp/dbxutil/config.json"
}

// mockProvider keeps an in-memory tree of files keyed by full path.
type mockProvider struct {
	files       map[string][]byte
	folders     map[string]bool
	validateErr error
	listErr     error
	listed      []string
	// stall makes transfers hang until their context ends.
	stall       bool
}

func newMockProvider() *mockProvider {
	return &mockProvider{
		files:   make(map[string][]byte),
		folders: make(map[string]bool),
	}
}

func (m *mockProvider) GetType() domain.ProviderType {
	return domain.ProviderDropbox
}

func (m *mockProvider) ValidateCredentials(ctx context.Context) (*domain.Account, error) {
	if m.validateErr != nil {
		return nil, m.validateErr
	}
	return &domain.Account{ID: "dbid:1", DisplayName: "Test User", Email: "test@example.com"}, nil
}

func (m *mockProvider) ListFolder(ctx context.Context, folder string) ([]domain.Entry, error) {
	m.listed = append(m.listed, folder)
	if m.listErr != nil {
		return nil, m.listErr
	}
	if folder == "" {
		folder = "/"
	}

	var entries []domain.Entry
	for p, data := range m.files {
		if path.Dir(p) == folder {
			entries = append(entries, domain.Entry{Name: path.Base(p), Path: p, Size: uint64(len(data))})
		}
	}
	for p := range m.folders {
		if path.Dir(p) == folder {
			entries = append(entries, domain.Entry{Name: path.Base(p), Path: p, IsDir: true})
		}
	}
	sort.Slice(entries, func(i, j int) bool { return entries[i].Name < entries[j].Name })
	return entries, nil
}

func (m *mockProvider) Upload(ctx context.Context, remotePath string, content io.Reader, size int64) (*domain.Entry, error) {
	if m.stall {
		<-ctx.Done()
		return nil, ctx.Err()
	}
	data, err := io.ReadAll(content)
	if err != nil {
		return nil, err
	}
	m.files[remotePath] = data
	return &domain.Entry{Name: path.Base(remotePath), Path: remotePath, Size: uint64(len(data))}, nil
}

func (m *mockProvider) Download(ctx context.Context, remotePath string) (*domain.Entry, io.ReadCloser, error) {
	data, ok := m.files[remotePath]
	if !ok {
		return nil, nil, errors.New("path/not_found/")
	}
	entry := &domain.Entry{Name: path.Base(remotePath), Path: remotePath, Size: uint64(len(data))}
	if m.stall {
		return entry, io.NopCloser(stalledBody{ctx: ctx}), nil
	}
	return entry, io.NopCloser(bytes.NewReader(data)), nil
}

type stalledBody struct {
	ctx context.Context
}

func (b stalledBody) Read([]byte) (int, error) {
	<-b.ctx.Done()
	return 0, b.ctx.Err()
}

func testProviders(provider domain.Provider, endpoint oauth2.Endpoint) *ProviderManager {
	return NewProviderManager(endpoint, nil).WithFactory(func(ctx context.Context, ts oauth2.TokenSource) (domain.Provider, error) {
		return provider, nil
	})
}

func newTestModel(repo domain.SettingsRepository, provider domain.Provider) Model {
	return NewModel(Options{
		Repository:  repo,
		Providers:   testProviders(provider, oauth2.Endpoint{AuthURL: "https://example.com/authorize", TokenURL: "https://example.com/token"}),
		DownloadDir: os.TempDir(),
		OpenURL:     func(string) error { return nil },
		CopyText:    func(string) error { return nil },
	})
}

// collect runs cmd and expands batches. Timer-driven commands are skipped so
// tests never wait on animation ticks.
func collect(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var msgs []tea.Msg
		for _, c := range batch {
			msgs = append(msgs, collect(c)...)
		}
		return msgs
	}
	switch msg.(type) {
	case nil, progressTickMsg, spinner.TickMsg, progress.FrameMsg:
		return nil
	}
	return []tea.Msg{msg}
}

// drive feeds the results of cmd back into the model until it settles and
// returns every message seen.
func drive(t *testing.T, m Model, cmd tea.Cmd) (Model, []tea.Msg) {
	t.Helper()
	var seen []tea.Msg
	queue := collect(cmd)
	for i := 0; len(queue) > 0; i++ {
		if i > 50 {
			t.Fatal("model did not settle")
		}
		msg := queue[0]
		queue = queue[1:]
		seen = append(seen, msg)
		if _, ok := msg.(tea.QuitMsg); ok {
			continue
		}
		next, c := m.Update(msg)
		m = next.(Model)
		queue = append(queue, collect(c)...)
	}
	return m, seen
}

func press(t *testing.T, m Model, key tea.KeyMsg) (Model, []tea.Msg) {
	t.Helper()
	next, cmd := m.Update(key)
	return drive(t, next.(Model), cmd)
}

func runes(s string) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(s)}
}

func enter() tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyEnter}
}

func startedModel(t *testing.T, repo *mockRepository, provider *mockProvider) Model {
	t.Helper()
	m := newTestModel(repo, provider)
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = drive(t, next.(Model), m.Init())
	return m
}

func hasQuit(msgs []tea.Msg) bool {
	for _, msg := range msgs {
		if _, ok := msg.(tea.QuitMsg); ok {
			return true
		}
	}
	return false
}

func TestStartup_WithoutStoredToken_ShowsAuthPage(t *testing.T) {
	repo := newMockRepository(domain.Settings{domain.KeyAppKey: "key", domain.KeyAppSecret: "secret"})

	m := startedModel(t, repo, newMockProvider())

	if m.state != ViewAuth {
		t.Fatalf("expected auth page, got %v", m.state)
	}
	form := m.authView.Form()
	if form.AppKey != "key" || form.AppSecret != "secret" {
		t.Errorf("expected stored credentials to prefill the form, got %+v", form)
	}
	if !form.Save {
		t.Error("expected save toggle to default on")
	}
}

func TestStartup_ValidStoredToken_ShowsFilesPage(t *testing.T) {
	repo := newMockRepository(domain.Settings{domain.KeyAccessToken: "sl.token"})
	provider := newMockProvider()
	provider.files["/hello.txt"] = []byte("hi")

	m := startedModel(t, repo, provider)

	if m.state != ViewFiles {
		t.Fatalf("expected files page, got %v", m.state)
	}
	if len(provider.listed) != 1 || provider.listed[0] != "" {
		t.Errorf("expected root to be listed once, got %v", provider.listed)
	}
	if names := m.filesView.Names(); len(names) != 1 || names[0] != "hello.txt" {
		t.Errorf("unexpected listing %v", names)
	}
}

func TestStartup_InvalidStoredToken_StaysOnAuthPage(t *testing.T) {
	repo := newMockRepository(domain.Settings{domain.KeyAccessToken: "sl.revoked"})
	provider := newMockProvider()
	provider.validateErr = errors.New("invalid_access_token/")

	m := startedModel(t, repo, provider)

	if m.state != ViewAuth {
		t.Fatalf("expected auth page, got %v", m.state)
	}
	if !m.statusBar.IsError() || !strings.Contains(m.statusBar.Message(), "stored token is invalid") {
		t.Errorf("unexpected status %q", m.statusBar.Message())
	}
}

func TestLogout_DeletesRecordAndShowsAuthPage(t *testing.T) {
	repo := newMockRepository(domain.Settings{
		domain.KeyAppKey:      "key",
		domain.KeyAppSecret:   "secret",
		domain.KeyAccessToken: "sl.token",
	})
	provider := newMockProvider()
	m := startedModel(t, repo, provider)

	m, _ = press(t, m, runes("L"))
	if !m.confirmView.IsActive() {
		t.Fatal("expected logout confirmation")
	}
	m, _ = press(t, m, runes("y"))

	if !repo.deleted {
		t.Error("expected settings record to be deleted")
	}
	if m.state != ViewAuth || m.provider != nil {
		t.Errorf("expected auth page without session, got state %v", m.state)
	}
	if form := m.authView.Form(); form.AppKey != "" || form.AppSecret != "" {
		t.Errorf("expected cleared fields, got %+v", form)
	}

	restarted := startedModel(t, repo, provider)
	if restarted.state != ViewAuth {
		t.Errorf("expected a fresh start after logout to show the auth page, got %v", restarted.state)
	}
}

func TestLogout_Declined(t *testing.T) {
	repo := newMockRepository(domain.Settings{domain.KeyAccessToken: "sl.token"})
	m := startedModel(t, repo, newMockProvider())

	m, _ = press(t, m, runes("L"))
	m, _ = press(t, m, enter())

	if repo.deleted {
		t.Error("expected record to be kept when logout is declined")
	}
	if m.state != ViewFiles {
		t.Errorf("expected to stay on files page, got %v", m.state)
	}
}

func TestFinishAuth_RequiresFields(t *testing.T) {
	tests := []struct {
		name     string
		settings domain.Settings
		expected error
	}{
		{"missing credentials", nil, domain.ErrMissingCredentials},
		{"missing code", domain.Settings{domain.KeyAppKey: "key", domain.KeyAppSecret: "secret"}, domain.ErrMissingCode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := startedModel(t, newMockRepository(tt.settings), newMockProvider())

			m, _ = press(t, m, enter())

			if m.state != ViewAuth {
				t.Errorf("expected to stay on auth page, got %v", m.state)
			}
			if !m.statusBar.IsError() || m.statusBar.Message() != tt.expected.Error() {
				t.Errorf("expected status %q, got %q", tt.expected.Error(), m.statusBar.Message())
			}
		})
	}
}

func newTokenServer(t *testing.T) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.PostForm.Get("code") != "the-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			w.Write([]byte(`{"error":"invalid_grant","error_description":"code doesn't exist or has expired"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]any{
			"access_token":  "sl.access",
			"refresh_token": "refresh",
			"token_type":    "bearer",
			"expires_in":    14400,
		})
	}))
	t.Cleanup(server.Close)
	return server
}

func authModel(t *testing.T, repo *mockRepository, provider *mockProvider, server *httptest.Server) Model {
	t.Helper()
	m := NewModel(Options{
		Repository: repo,
		Providers: testProviders(provider, oauth2.Endpoint{
			AuthURL:   server.URL + "/oauth2/authorize",
			TokenURL:  server.URL + "/oauth2/token",
			AuthStyle: oauth2.AuthStyleInParams,
		}),
		DownloadDir: t.TempDir(),
		OpenURL:     func(string) error { return nil },
		CopyText:    func(string) error { return nil },
	})
	next, _ := m.Update(tea.WindowSizeMsg{Width: 120, Height: 40})
	m, _ = drive(t, next.(Model), m.Init())
	m.authView.Prefill("key", "secret")
	return m
}

func TestFinishAuth_SavesCredentials(t *testing.T) {
	server := newTokenServer(t)
	repo := newMockRepository(nil)
	provider := newMockProvider()
	m := authModel(t, repo, provider, server)

	m, _ = press(t, m, runes("the-code"))
	m, _ = press(t, m, enter())

	if m.state != ViewFiles {
		t.Fatalf("expected files page, got %v (status %q)", m.state, m.statusBar.Message())
	}
	want := domain.Settings{
		domain.KeyAppKey:       "key",
		domain.KeyAppSecret:    "secret",
		domain.KeyAccessToken:  "sl.access",
		domain.KeyRefreshToken: "refresh",
	}
	for k, v := range want {
		if repo.settings.Get(k) != v {
			t.Errorf("expected %s=%q, got %q", k, v, repo.settings.Get(k))
		}
	}
	if len(provider.listed) == 0 {
		t.Error("expected root folder to be listed after auth")
	}
}

func TestFinishAuth_WithoutSave(t *testing.T) {
	server := newTokenServer(t)
	repo := newMockRepository(nil)
	m := authModel(t, repo, newMockProvider(), server)

	m, _ = press(t, m, runes(" "))
	m, _ = press(t, m, runes("the-code"))
	m, _ = press(t, m, enter())

	if m.state != ViewFiles {
		t.Fatalf("expected files page, got %v", m.state)
	}
	if repo.saves != 0 {
		t.Errorf("expected nothing to be saved, got %d saves", repo.saves)
	}
}

func TestFinishAuth_RejectedCode(t *testing.T) {
	server := newTokenServer(t)
	repo := newMockRepository(nil)
	m := authModel(t, repo, newMockProvider(), server)

	m, _ = press(t, m, runes("stale"))
	m, _ = press(t, m, enter())

	if m.state != ViewAuth {
		t.Fatalf("expected auth page, got %v", m.state)
	}
	if m.statusBar.Message() != "code doesn't exist or has expired" {
		t.Errorf("unexpected status %q", m.statusBar.Message())
	}
	if m.authView.IsBusy() {
		t.Error("expected form to be usable again")
	}
}

func TestOpenConsent_ShowsAndCopiesURL(t *testing.T) {
	var opened, copied string
	m := NewModel(Options{
		Repository:  newMockRepository(nil),
		Providers:   testProviders(newMockProvider(), oauth2.Endpoint{AuthURL: "https://example.com/authorize"}),
		DownloadDir: t.TempDir(),
		OpenURL:     func(url string) error { opened = url; return nil },
		CopyText:    func(text string) error { copied = text; return nil },
	})
	m.authView.Prefill("key", "secret")

	m, _ = press(t, m, tea.KeyMsg{Type: tea.KeyCtrlO})

	if m.authView.AuthURL() == "" {
		t.Fatal("expected consent URL to be shown")
	}
	if opened != m.authView.AuthURL() || copied != m.authView.AuthURL() {
		t.Errorf("expected URL to be opened and copied, got %q / %q", opened, copied)
	}
	if !strings.Contains(opened, "client_id=key") {
		t.Errorf("unexpected consent URL %q", opened)
	}
}

func TestUpload_ThenListContainsFile(t *testing.T) {
	repo := newMockRepository(domain.Settings{domain.KeyAccessToken: "sl.token"})
	provider := newMockProvider()
	m := startedModel(t, repo, provider)

	local := filepath.Join(t.TempDir(), "report.pdf")
	if err := os.WriteFile(local, []byte("%PDF-1.7"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	m, _ = press(t, m, runes("u"))
	if !m.promptView.IsActive() {
		t.Fatal("expected upload prompt")
	}
	m.promptView.SetValue(local)
	m, _ = press(t, m, enter())

	if m.transfer != nil {
		t.Error("expected transfer to be finished")
	}
	found := false
	for _, name := range m.filesView.Names() {
		if name == "report.pdf" {
			found = true
		}
	}
	if !found {
		t.Errorf("expected report.pdf in listing, got %v", m.filesView.Names())
	}
}

func TestDownload_ReproducesBytes(t *testing.T) {
	repo := newMockRepository(domain.Settings{domain.KeyAccessToken: "sl.token"})
	provider := newMockProvider()
	original := []byte("line one\nline two\x00")
	provider.files["/notes.txt"] = original
	m := startedModel(t, repo, provider)

	dest := filepath.Join(t.TempDir(), "notes-copy.txt")
	next, cmd := m.commandRegistry.ExecuteCommand(m, ":download notes.txt "+dest)
	m, _ = drive(t, next, cmd)

	got, err := os.ReadFile(dest)
	if err != nil {
		t.Fatalf("expected downloaded file: %v (status %q)", err, m.statusBar.Message())
	}
	if !bytes.Equal(got, original) {
		t.Errorf("expected %q, got %q", original, got)
	}
}

func TestDownload_DestinationWithRepeatedSpaces(t *testing.T) {
	repo := newMockRepository(domain.Settings{domain.KeyAccessToken: "sl.token"})
	provider := newMockProvider()
	provider.files["/notes.txt"] = []byte("spaced")
	m := startedModel(t, repo, provider)

	dest := filepath.Join(t.TempDir(), "Tax  2024", "notes.txt")
	next, cmd := m.commandRegistry.ExecuteCommand(m, ":d notes.txt   "+dest)
	drive(t, next, cmd)

	if got, err := os.ReadFile(dest); err != nil || string(got) != "spaced" {
		t.Errorf("expected file at %q, got %q (%v)", dest, got, err)
	}
}

// runInBackground starts the first command of a transfer batch, which is the
// transfer itself, and returns a channel carrying its result.
func runInBackground(t *testing.T, cmd tea.Cmd) <-chan tea.Msg {
	t.Helper()
	batch, ok := cmd().(tea.BatchMsg)
	if !ok || len(batch) == 0 {
		t.Fatal("expected a batch of commands")
	}
	done := make(chan tea.Msg, 1)
	go func() { done <- batch[0]() }()
	return done
}

func waitFor(t *testing.T, done <-chan tea.Msg) tea.Msg {
	t.Helper()
	select {
	case msg := <-done:
		return msg
	case <-time.After(5 * time.Second):
		t.Fatal("transfer did not stop")
		return nil
	}
}

func stalledDownload(t *testing.T) (Model, *mockProvider, string, <-chan tea.Msg) {
	t.Helper()
	repo := newMockRepository(domain.Settings{domain.KeyAccessToken: "sl.token"})
	provider := newMockProvider()
	provider.files["/big.bin"] = bytes.Repeat([]byte("b"), 1<<20)
	m := startedModel(t, repo, provider)
	provider.stall = true

	dest := filepath.Join(t.TempDir(), "big.bin")
	m, cmd := m.startDownload(m.filesView.GetSelectedEntry(), dest)
	if m.transfer == nil {
		t.Fatal("expected a running transfer")
	}
	return m, provider, dest, runInBackground(t, cmd)
}

func TestCancelKey_StopsRunningDownload(t *testing.T) {
	m, _, dest, done := stalledDownload(t)

	m, _ = press(t, m, runes("x"))
	m, _ = drive(t, m, func() tea.Msg { return waitFor(t, done) })

	if m.transfer != nil {
		t.Error("expected no transfer after cancelling")
	}
	if m.statusBar.Message() != "Transfer cancelled" || !m.statusBar.IsError() {
		t.Errorf("unexpected status %q", m.statusBar.Message())
	}
	if _, err := os.Stat(dest); !errors.Is(err, os.ErrNotExist) {
		t.Error("expected no file after a cancelled download")
	}
}

func TestCancelKey_StopsRunningUpload(t *testing.T) {
	repo := newMockRepository(domain.Settings{domain.KeyAccessToken: "sl.token"})
	provider := newMockProvider()
	m := startedModel(t, repo, provider)
	provider.stall = true

	local := filepath.Join(t.TempDir(), "slow.txt")
	if err := os.WriteFile(local, []byte("slow"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	m, cmd := m.startUpload(local, "")
	done := runInBackground(t, cmd)

	m, _ = press(t, m, runes("x"))
	m, _ = drive(t, m, func() tea.Msg { return waitFor(t, done) })

	if m.statusBar.Message() != "Transfer cancelled" {
		t.Errorf("unexpected status %q", m.statusBar.Message())
	}
	if _, ok := provider.files["/slow.txt"]; ok {
		t.Error("expected the cancelled upload not to be stored")
	}
}

func TestSecondTransfer_IsRefused(t *testing.T) {
	m, _, _, done := stalledDownload(t)
	running := m.transfer

	local := filepath.Join(t.TempDir(), "other.txt")
	if err := os.WriteFile(local, []byte("other"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}

	attempts := []struct {
		name string
		run  func(t *testing.T, m Model) (Model, []tea.Msg)
	}{
		{"u key", func(t *testing.T, m Model) (Model, []tea.Msg) { return press(t, m, runes("u")) }},
		{"d key", func(t *testing.T, m Model) (Model, []tea.Msg) { return press(t, m, runes("d")) }},
		{"upload command", func(t *testing.T, m Model) (Model, []tea.Msg) {
			next, cmd := m.commandRegistry.ExecuteCommand(m, ":upload "+local)
			return drive(t, next, cmd)
		}},
	}

	for _, tt := range attempts {
		t.Run(tt.name, func(t *testing.T) {
			m, msgs := tt.run(t, m)

			refused := false
			for _, msg := range msgs {
				if e, ok := msg.(ErrorMsg); ok && errors.Is(e.err, errTransferRunning) {
					refused = true
				}
			}
			if !refused {
				t.Errorf("expected %v, got %v", errTransferRunning, msgs)
			}
			if m.promptView.IsActive() {
				t.Error("expected no prompt while a transfer runs")
			}
			if m.transfer != running {
				t.Error("expected the running transfer to be kept")
			}
		})
	}

	running.cancel()
	waitFor(t, done)
}

func TestTransferFinished_FromEndedSessionIsIgnored(t *testing.T) {
	m, provider, _, first := stalledDownload(t)

	// Logging out cancels the first transfer; its result arrives late.
	next, _ := m.Update(loggedOutMsg{})
	m = next.(Model)
	stale := waitFor(t, first)

	m = m.startSession(provider, &domain.Account{ID: "dbid:1", DisplayName: "Test User"})
	local := filepath.Join(t.TempDir(), "second.txt")
	if err := os.WriteFile(local, []byte("second"), 0644); err != nil {
		t.Fatalf("failed to write file: %v", err)
	}
	m, cmd := m.startUpload(local, "")
	second := m.transfer
	done := runInBackground(t, cmd)

	next, _ = m.Update(stale)
	m = next.(Model)

	if m.transfer != second {
		t.Fatal("expected the new transfer to stay tracked")
	}
	if err := second.ctx.Err(); err != nil {
		t.Errorf("expected the new transfer to keep running, got %v", err)
	}
	if m.statusBar.Message() == "Transfer cancelled" {
		t.Error("expected the stale result not to be reported")
	}

	second.cancel()
	waitFor(t, done)
}

func TestFolderLoaded_AfterLogoutIsIgnored(t *testing.T) {
	repo := newMockRepository(domain.Settings{domain.KeyAccessToken: "sl.token"})
	provider := newMockProvider()
	provider.files["/secret.txt"] = []byte("x")
	m := startedModel(t, repo, provider)

	pending := collect(m.loadFolder(""))
	if len(pending) != 1 {
		t.Fatalf("expected one listing result, got %v", pending)
	}
	next, _ := m.Update(loggedOutMsg{})
	m, _ = drive(t, next.(Model), func() tea.Msg { return pending[0] })

	if m.state != ViewAuth {
		t.Errorf("expected auth page, got %v", m.state)
	}
	if names := m.filesView.Names(); len(names) != 0 {
		t.Errorf("expected no entries after logout, got %v", names)
	}
}

func TestEnterOnFile_PromptsWithDefaultPath(t *testing.T) {
	repo := newMockRepository(domain.Settings{domain.KeyAccessToken: "sl.token"})
	provider := newMockProvider()
	provider.files["/a.txt"] = []byte("a")
	m := startedModel(t, repo, provider)

	m, _ = press(t, m, enter())

	if !m.promptView.IsActive() || m.promptView.Purpose() != views.PromptDownload {
		t.Fatal("expected download prompt")
	}
	if m.promptView.GetValue() != filepath.Join(m.downloadDir, "a.txt") {
		t.Errorf("unexpected default path %q", m.promptView.GetValue())
	}
}

func TestEnterOnFolder_OpensIt_QGoesBack(t *testing.T) {
	repo := newMockRepository(domain.Settings{domain.KeyAccessToken: "sl.token"})
	provider := newMockProvider()
	provider.folders["/photos"] = true
	provider.files["/photos/cat.jpg"] = []byte("meow")
	m := startedModel(t, repo, provider)

	m, _ = press(t, m, enter())
	if m.filesView.Folder() != "/photos" {
		t.Fatalf("expected /photos to be open, got %q", m.filesView.Folder())
	}

	m, msgs := press(t, m, runes("q"))
	if hasQuit(msgs) {
		t.Fatal("expected q in a subfolder to go back, not quit")
	}
	if m.filesView.Folder() != "" {
		t.Errorf("expected root, got %q", m.filesView.Folder())
	}

	_, msgs = press(t, m, runes("q"))
	if !hasQuit(msgs) {
		t.Error("expected q at the root to quit")
	}
}

func TestRefreshWithoutSession_ReturnsToAuth(t *testing.T) {
	m := newTestModel(newMockRepository(nil), newMockProvider())
	m.state = ViewFiles

	m, _ = handleRefreshKey(m)

	if m.state != ViewAuth {
		t.Errorf("expected auth page, got %v", m.state)
	}
	if !m.statusBar.IsError() {
		t.Error("expected an error status")
	}
}

func TestAuthError_DropsSession(t *testing.T) {
	repo := newMockRepository(domain.Settings{domain.KeyAccessToken: "sl.token"})
	provider := newMockProvider()
	m := startedModel(t, repo, provider)

	provider.listErr = errors.New("expired_access_token/")
	m, _ = press(t, m, runes("r"))

	if m.state != ViewAuth || m.provider != nil {
		t.Errorf("expected session to be dropped, got state %v", m.state)
	}
	if repo.deleted {
		t.Error("expected stored record to be kept")
	}
}

func TestOtherErrors_KeepSession(t *testing.T) {
	repo := newMockRepository(domain.Settings{domain.KeyAccessToken: "sl.token"})
	provider := newMockProvider()
	m := startedModel(t, repo, provider)

	provider.listErr = errors.New("too_many_requests/")
	m, _ = press(t, m, runes("r"))

	if m.state != ViewFiles {
		t.Errorf("expected to stay on files page, got %v", m.state)
	}
	if m.statusBar.Message() != "too many requests" {
		t.Errorf("unexpected status %q", m.statusBar.Message())
	}
}

func TestView_RendersBothPages(t *testing.T) {
	repo := newMockRepository(domain.Settings{domain.KeyAccessToken: "sl.token"})
	provider := newMockProvider()
	provider.files["/visible.txt"] = []byte("x")

	m := startedModel(t, newMockRepository(nil), provider)
	if !strings.Contains(m.View(), "Connect to Dropbox") {
		t.Error("expected auth page to render")
	}

	m = startedModel(t, repo, provider)
	if !strings.Contains(m.View(), "visible.txt") {
		t.Error("expected listing to render")
	}
}
