package storage

import (
	"errors"
	"fmt"

	"github.com/johanforsgren/dbxutil/internal/domain"
	"github.com/johanforsgren/dbxutil/internal/logger"
	"github.com/zalando/go-keyring"
)

const KeyringService = "dbxutil"

// KeyringRepository keeps the whole settings record as one secret in the OS
// keyring (macOS Keychain, Windows Credential Manager, Secret Service).
type KeyringRepository struct {
	service string
	user    string
}

var _ domain.SettingsRepository = (*KeyringRepository)(nil)

func NewKeyringRepository(service, user string) (*KeyringRepository, error) {
	if service == "" {
		return nil, fmt.Errorf("service cannot be empty")
	}
	if user == "" {
		return nil, fmt.Errorf("user cannot be empty")
	}

	return &KeyringRepository{
		service: service,
		user:    user,
	}, nil
}

func (r *KeyringRepository) Path() string {
	return fmt.Sprintf("keyring://%s/%s", r.service, r.user)
}

func (r *KeyringRepository) Load() (domain.Settings, error) {
	secret, err := keyring.Get(r.service, r.user)
	if err != nil {
		if !errors.Is(err, keyring.ErrNotFound) {
			logger.LogError("KEYRING_LOAD", r.Path(), err)
		}
		return domain.Settings{}, nil
	}

	return decode([]byte(secret), r.Path()), nil
}

func (r *KeyringRepository) Save(settings domain.Settings) error {
	data, err := encode(settings)
	if err != nil {
		logger.LogError("MARSHAL", r.Path(), err)
		return err
	}

	if err := keyring.Set(r.service, r.user, string(data)); err != nil {
		logger.LogError("KEYRING_SAVE", r.Path(), err)
		return fmt.Errorf("failed to write keyring: %w", err)
	}

	logger.Log("Settings saved to %s (%d keys)", r.Path(), len(settings.Clone()))
	return nil
}

func (r *KeyringRepository) Delete() error {
	if err := keyring.Delete(r.service, r.user); err != nil && !errors.Is(err, keyring.ErrNotFound) {
		logger.LogError("KEYRING_DELETE", r.Path(), err)
		return fmt.Errorf("failed to delete keyring entry: %w", err)
	}

	logger.Log("Settings deleted at %s", r.Path())
	return nil
}
