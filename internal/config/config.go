package config

import (
	"fmt"
	"os/user"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/johanforsgren/dbxutil/internal/auth"
	"github.com/johanforsgren/dbxutil/internal/domain"
	"github.com/johanforsgren/dbxutil/internal/provider/dropbox"
	"github.com/johanforsgren/dbxutil/internal/storage"
	"github.com/mitchellh/go-homedir"
	"golang.org/x/oauth2"
)

// SettingsBackend selects where the settings record is kept.
type SettingsBackend string

const (
	SettingsBackendFile    SettingsBackend = "file"
	SettingsBackendKeyring SettingsBackend = "keyring"
)

// Default configuration values
const (
	DefaultSettingsBackend = SettingsBackendFile
	DefaultTimeout         = 5 * time.Minute
	DefaultLogFileName     = "dbxutil.log"
)

// SettingsConfig describes the settings record backend.
type SettingsConfig struct {
	Backend     SettingsBackend `json:"backend" validate:"required,oneof=file keyring"`
	Path        string          `json:"path,omitempty"`
	KeyringUser string          `json:"keyring_user,omitempty"`
}

// DropboxConfig holds API endpoints and upload tuning.
type DropboxConfig struct {
	AuthURL         string        `json:"auth_url" validate:"required,url"`
	TokenURL        string        `json:"token_url" validate:"required,url"`
	ChunkSize       int64         `json:"chunk_size" validate:"gt=0,ltefield=UploadThreshold"`
	UploadThreshold int64         `json:"upload_threshold" validate:"gt=0"`
	Timeout         time.Duration `json:"timeout" validate:"gte=0"`
}

// Endpoint returns the OAuth2 endpoint for the configured URLs.
func (d DropboxConfig) Endpoint() oauth2.Endpoint {
	endpoint := auth.DropboxEndpoint
	endpoint.AuthURL = d.AuthURL
	endpoint.TokenURL = d.TokenURL
	return endpoint
}

type Config struct {
	LogFile     string         `json:"log_file"`
	DownloadDir string         `json:"download_dir" validate:"required"`
	Settings    SettingsConfig `json:"settings"`
	Dropbox     DropboxConfig  `json:"dropbox"`
}

// Default creates a new Config with default values applied.
func Default() (*Config, error) {
	cfg := &Config{}
	if err := cfg.ApplyDefaults(); err != nil {
		return nil, fmt.Errorf("failed to apply defaults: %w", err)
	}
	return cfg, nil
}

// ApplyDefaults fills unset fields. Paths may start with ~.
func (c *Config) ApplyDefaults() error {
	home, err := homedir.Dir()
	if err != nil {
		return fmt.Errorf("home directory required (auto-detect failed: %w)", err)
	}

	if c.Settings.Backend == "" {
		c.Settings.Backend = DefaultSettingsBackend
	}
	if c.Dropbox.AuthURL == "" {
		c.Dropbox.AuthURL = auth.DefaultAuthURL
	}
	if c.Dropbox.TokenURL == "" {
		c.Dropbox.TokenURL = auth.DefaultTokenURL
	}
	if c.Dropbox.UploadThreshold == 0 {
		c.Dropbox.UploadThreshold = dropbox.DefaultUploadThreshold
	}
	if c.Dropbox.ChunkSize == 0 {
		c.Dropbox.ChunkSize = min(dropbox.DefaultChunkSize, c.Dropbox.UploadThreshold)
	}
	if c.Dropbox.Timeout == 0 {
		c.Dropbox.Timeout = DefaultTimeout
	}
	if c.DownloadDir == "" {
		c.DownloadDir = filepath.Join(home, "Downloads")
	}
	if c.LogFile == "" {
		c.LogFile = filepath.Join(home, ".dbxutil", DefaultLogFileName)
	}

	switch c.Settings.Backend {
	case SettingsBackendFile:
		if c.Settings.Path == "" {
			defaultPath, err := storage.DefaultPath()
			if err != nil {
				return fmt.Errorf("settings.path required (auto-detect failed: %w)", err)
			}
			c.Settings.Path = defaultPath
		}
	case SettingsBackendKeyring:
		if c.Settings.KeyringUser == "" {
			currentUser, err := user.Current()
			if err != nil {
				return fmt.Errorf("settings.keyring_user required (auto-detect failed: %w)", err)
			}
			c.Settings.KeyringUser = currentUser.Username
		}
	}

	for _, p := range []*string{&c.LogFile, &c.DownloadDir, &c.Settings.Path} {
		expanded, err := homedir.Expand(*p)
		if err != nil {
			return fmt.Errorf("failed to expand %s: %w", *p, err)
		}
		*p = expanded
	}

	return nil
}

// Validate validates the configuration using struct tags.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}

// NewSettingsRepository creates the configured settings backend.
func (c *Config) NewSettingsRepository() (domain.SettingsRepository, error) {
	switch c.Settings.Backend {
	case SettingsBackendFile:
		repo, err := storage.NewLocalRepository(c.Settings.Path)
		if err != nil {
			return nil, err
		}
		return repo, nil
	case SettingsBackendKeyring:
		repo, err := storage.NewKeyringRepository(storage.KeyringService, c.Settings.KeyringUser)
		if err != nil {
			return nil, err
		}
		return repo, nil
	default:
		return nil, fmt.Errorf("unsupported settings backend: %s", c.Settings.Backend)
	}
}

// ProviderOptions converts the upload tuning into provider options.
func (c *Config) ProviderOptions() []dropbox.Option {
	return []dropbox.Option{
		dropbox.WithChunkSize(c.Dropbox.ChunkSize),
		dropbox.WithUploadThreshold(c.Dropbox.UploadThreshold),
	}
}
