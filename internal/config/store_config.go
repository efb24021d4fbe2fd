package config

import (
	"os"
	"path/filepath"
)

type StoreConfig interface {
	GetCredentialFile() string
	GetStorePassphrase() string
}

type Store struct{}

var _ StoreConfig = Store{}

func (Store) GetCredentialFile() string {
	if f := os.Getenv("STOCKSCOPE_CREDENTIALS"); f != "" {
		return f
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".stockscope", "credentials.json")
	}
	return filepath.Join(home, ".stockscope", "credentials.json")
}

// GetStorePassphrase returns the passphrase used to encrypt the credential file.
// Empty means the file is written in plaintext.
func (Store) GetStorePassphrase() string {
	return os.Getenv("STOCKSCOPE_STORE_PASSPHRASE")
}
