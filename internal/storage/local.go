package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/johanforsgren/dbxutil/internal/domain"
	"github.com/johanforsgren/dbxutil/internal/logger"
)

const (
	configDir  = ".dbxutil"
	configFile = "config.json"
)

// LocalRepository keeps the settings record in a JSON file.
type LocalRepository struct {
	configPath string
	mu         sync.RWMutex
}

var _ domain.SettingsRepository = (*LocalRepository)(nil)

// DefaultPath returns $HOME/.dbxutil/config.json.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, configDir, configFile), nil
}

// NewLocalRepository stores the record at path, or at DefaultPath when path is empty.
func NewLocalRepository(path string) (*LocalRepository, error) {
	if path == "" {
		defaultPath, err := DefaultPath()
		if err != nil {
			return nil, err
		}
		path = defaultPath
	}

	return &LocalRepository{configPath: path}, nil
}

func (r *LocalRepository) Path() string {
	return r.configPath
}

// Load returns an empty record when the file is missing or unreadable.
func (r *LocalRepository) Load() (domain.Settings, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	logger.LogFileOpen(r.configPath)
	data, err := os.ReadFile(r.configPath)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			logger.LogError("LOAD", r.configPath, err)
		}
		return domain.Settings{}, nil
	}

	return decode(data, r.configPath), nil
}

func (r *LocalRepository) Save(settings domain.Settings) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	data, err := encode(settings)
	if err != nil {
		logger.LogError("MARSHAL", r.configPath, err)
		return err
	}

	dir := filepath.Dir(r.configPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		logger.LogError("SAVE", dir, err)
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	logger.LogFileWrite(r.configPath)
	if err := writeFileAtomic(r.configPath, data); err != nil {
		logger.LogError("SAVE", r.configPath, err)
		return err
	}

	logger.Log("Settings saved to %s (%d keys)", r.configPath, len(settings.Clone()))
	return nil
}

func (r *LocalRepository) Delete() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := os.Remove(r.configPath); err != nil && !errors.Is(err, os.ErrNotExist) {
		logger.LogError("DELETE", r.configPath, err)
		return fmt.Errorf("failed to delete settings: %w", err)
	}

	logger.Log("Settings deleted at %s", r.configPath)
	return nil
}

func writeFileAtomic(path string, data []byte) error {
	tempFile, err := os.CreateTemp(filepath.Dir(path), "*.tmp")
	if err != nil {
		return err
	}
	tempName := tempFile.Name()
	defer func() { _ = os.Remove(tempName) }()
	defer func() { _ = tempFile.Close() }()

	if _, err := tempFile.Write(data); err != nil {
		return err
	}
	if err := tempFile.Chmod(0600); err != nil {
		return err
	}
	if err := tempFile.Close(); err != nil {
		return err
	}

	return os.Rename(tempName, path)
}

func encode(settings domain.Settings) ([]byte, error) {
	data, err := json.MarshalIndent(settings.Clone(), "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal settings: %w", err)
	}
	return data, nil
}

// decode mirrors Load: a corrupt record reads as empty.
func decode(data []byte, source string) domain.Settings {
	var raw map[string]string
	if err := json.Unmarshal(data, &raw); err != nil {
		logger.LogError("UNMARSHAL", source, err)
		return domain.Settings{}
	}
	return domain.Settings(raw).Clone()
}
