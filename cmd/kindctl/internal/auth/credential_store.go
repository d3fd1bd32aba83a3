package auth

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Dannaccb/be-kind/pkg/sdk"
)

const credentialsFile = "credentials.json"

// ErrNotLoggedIn is returned by LoadCredentials when nothing is stored.
var ErrNotLoggedIn = errors.New("not logged in; run `kindctl auth login`")

// FileStore implements sdk.CredentialStore using a JSON file.
type FileStore struct {
	path string
}

var _ sdk.CredentialStore = (*FileStore)(nil)

// NewFileStore stores credentials under ~/.kindctl.
func NewFileStore() (*FileStore, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get user home directory: %w", err)
	}
	return NewFileStoreAt(filepath.Join(home, ".kindctl"))
}

// NewFileStoreAt stores credentials in dir, creating it with 0700.
func NewFileStoreAt(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("failed to create %s: %w", dir, err)
	}
	return &FileStore{path: filepath.Join(dir, credentialsFile)}, nil
}

// Path is the location of the credentials file.
func (s *FileStore) Path() string {
	return s.path
}

// SaveCredentials writes the credentials readable by the owner only.
func (s *FileStore) SaveCredentials(credentials *sdk.Credentials) error {
	data, err := json.MarshalIndent(credentials, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal credentials: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0600); err != nil {
		return err
	}
	// WriteFile keeps the mode of an existing file.
	return os.Chmod(s.path, 0600)
}

// LoadCredentials loads the credentials from the file.
func (s *FileStore) LoadCredentials() (*sdk.Credentials, error) {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNotLoggedIn
		}
		return nil, fmt.Errorf("failed to read credentials file: %w", err)
	}
	var creds sdk.Credentials
	if err := json.Unmarshal(data, &creds); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credentials: %w", err)
	}
	return &creds, nil
}

// DeleteCredentials deletes the credentials file.
func (s *FileStore) DeleteCredentials() error {
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}
