package commands

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mitchellh/go-homedir"
	"github.com/urfave/cli/v3"

	"github.com/johanforsgren/dbxutil/internal/config"
)

func TestMain(m *testing.M) {
	homedir.DisableCache = true
	os.Exit(m.Run())
}

func environ(vars ...string) func() []string {
	return func() []string { return vars }
}

// runWithFlags parses args with the root command's flags and loads the config.
func runWithFlags(t *testing.T, args []string, env func() []string) *config.Config {
	t.Helper()
	var cfg *config.Config
	cmd := rootCommand()
	cmd.Action = func(ctx context.Context, cmd *cli.Command) error {
		var err error
		cfg, err = loadConfig(cmd.String("config"), cmd, env)
		return err
	}
	if err := cmd.Run(context.Background(), append([]string{"dbxutil"}, args...)); err != nil {
		t.Fatalf("command failed: %v", err)
	}
	return cfg
}

func TestLoadConfig_Defaults(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	cfg, err := loadConfig("", nil, environ())
	if err != nil {
		t.Fatalf("loadConfig failed: %v", err)
	}

	if cfg.Settings.Backend != config.SettingsBackendFile {
		t.Errorf("expected file backend, got %q", cfg.Settings.Backend)
	}
	if cfg.DownloadDir != filepath.Join(home, "Downloads") {
		t.Errorf("unexpected download dir %q", cfg.DownloadDir)
	}
	if cfg.Dropbox.Timeout != config.DefaultTimeout {
		t.Errorf("unexpected timeout %v", cfg.Dropbox.Timeout)
	}
}

func TestLoadConfig_Precedence(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)

	configPath := filepath.Join(t.TempDir(), "dbxutil.toml")
	content := `
download_dir = "/from/file"
log_file = "/from/file.log"

[dropbox]
chunk_size = 1024
upload_threshold = 4096
`
	if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg := runWithFlags(t,
		[]string{"--config", configPath, "--download-dir", "/from/flag", "--dropbox--timeout", "30s"},
		environ("DBXUTIL_DOWNLOAD_DIR=/from/env", "DBXUTIL_LOG_FILE=/from/env.log", "DBXUTIL_DROPBOX__CHUNK_SIZE=2048", "OTHER=ignored"),
	)

	if cfg.DownloadDir != "/from/flag" {
		t.Errorf("expected flag to win, got %q", cfg.DownloadDir)
	}
	if cfg.LogFile != "/from/env.log" {
		t.Errorf("expected env to override file, got %q", cfg.LogFile)
	}
	if cfg.Dropbox.ChunkSize != 2048 || cfg.Dropbox.UploadThreshold != 4096 {
		t.Errorf("unexpected upload tuning %+v", cfg.Dropbox)
	}
	if cfg.Dropbox.Timeout != 30*time.Second {
		t.Errorf("expected timeout from flag, got %v", cfg.Dropbox.Timeout)
	}
}

func TestLoadConfig_KeyringBackend(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	cfg := runWithFlags(t,
		[]string{"--settings--backend", "keyring", "--settings--keyring-user", "alice"},
		environ(),
	)

	if cfg.Settings.Backend != config.SettingsBackendKeyring || cfg.Settings.KeyringUser != "alice" {
		t.Errorf("unexpected settings %+v", cfg.Settings)
	}
}

func TestLoadConfig_Invalid(t *testing.T) {
	t.Setenv("HOME", t.TempDir())

	tests := []struct {
		name string
		env  []string
	}{
		{"unknown backend", []string{"DBXUTIL_SETTINGS__BACKEND=cloud"}},
		{"bad token url", []string{"DBXUTIL_DROPBOX__TOKEN_URL=not a url"}},
		{"chunk above threshold", []string{"DBXUTIL_DROPBOX__CHUNK_SIZE=8192", "DBXUTIL_DROPBOX__UPLOAD_THRESHOLD=4096"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := loadConfig("", nil, environ(tt.env...)); err == nil {
				t.Error("expected invalid config to be rejected")
			}
		})
	}
}

func TestLoadConfig_MissingFile(t *testing.T) {
	if _, err := loadConfig(filepath.Join(t.TempDir(), "missing.toml"), nil, environ()); err == nil {
		t.Error("expected error for missing config file")
	}
}

func TestExtractAndTransformFlags(t *testing.T) {
	var values map[string]any
	cmd := rootCommand()
	cmd.Action = func(ctx context.Context, cmd *cli.Command) error {
		values = extractAndTransformFlags(cmd)
		return nil
	}

	args := []string{"dbxutil", "-c", "x.toml", "--log-file", "/tmp/l.log", "--settings--keyring-user", "bob"}
	if err := cmd.Run(context.Background(), args); err != nil {
		t.Fatalf("command failed: %v", err)
	}

	if values["log_file"] != "/tmp/l.log" {
		t.Errorf("unexpected log_file %v", values["log_file"])
	}
	if values["settings.keyring_user"] != "bob" {
		t.Errorf("unexpected settings.keyring_user %v", values["settings.keyring_user"])
	}
	if _, ok := values["config"]; ok {
		t.Error("expected --config to be skipped")
	}
	if _, ok := values["dropbox.chunk_size"]; ok {
		t.Error("expected unset flags to be skipped")
	}
}
