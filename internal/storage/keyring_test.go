package storage

import (
	"testing"

	"github.com/johanforsgren/dbxutil/internal/domain"
	"github.com/zalando/go-keyring"
)

func TestNewKeyringRepositoryValidation(t *testing.T) {
	if _, err := NewKeyringRepository("", "user"); err == nil {
		t.Error("Expected error for empty service")
	}
	if _, err := NewKeyringRepository(KeyringService, ""); err == nil {
		t.Error("Expected error for empty user")
	}
}

func TestKeyringRoundTrip(t *testing.T) {
	keyring.MockInit()

	repo, err := NewKeyringRepository(KeyringService, "tester")
	if err != nil {
		t.Fatalf("Failed to create repository: %v", err)
	}

	empty, err := repo.Load()
	if err != nil {
		t.Fatalf("Failed to load empty keyring: %v", err)
	}
	if len(empty) != 0 {
		t.Errorf("Expected empty settings, got %v", empty)
	}

	original := domain.Settings{
		domain.KeyAppKey:      "key",
		domain.KeyAccessToken: "token",
	}
	if err := repo.Save(original); err != nil {
		t.Fatalf("Failed to save: %v", err)
	}

	loaded, err := repo.Load()
	if err != nil {
		t.Fatalf("Failed to load: %v", err)
	}
	if loaded.Get(domain.KeyAppKey) != "key" || loaded.Get(domain.KeyAccessToken) != "token" {
		t.Errorf("Unexpected settings after round trip: %v", loaded)
	}

	if err := repo.Delete(); err != nil {
		t.Fatalf("Failed to delete: %v", err)
	}
	if err := repo.Delete(); err != nil {
		t.Errorf("Expected second delete to succeed, got %v", err)
	}

	after, _ := repo.Load()
	if len(after) != 0 {
		t.Errorf("Expected empty settings after delete, got %v", after)
	}
}

func TestKeyringPath(t *testing.T) {
	repo, _ := NewKeyringRepository(KeyringService, "tester")
	if repo.Path() != "keyring://dbxutil/tester" {
		t.Errorf("Unexpected path %q", repo.Path())
	}
}
