// Package filestore keeps credentials in a JSON file so they survive process restarts.
// When a passphrase is given the values are sealed with NaCl secretbox using a key
// derived by scrypt; the salt is stored next to the ciphertext.
package filestore

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/jrsteele09/stockscope-client/credstore"
	errs "github.com/jrsteele09/stockscope-client/internal/errors"
	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	fileVersion = 1
	saltLength  = 16
	nonceLength = 24
	keyLength   = 32

	// scrypt parameters (interactive login strength)
	scryptN = 1 << 15
	scryptR = 8
	scryptP = 1
)

var _ credstore.Store = (*FileStore)(nil)

// fileFormat is the on-disk layout. Exactly one of Values or Sealed is set.
type fileFormat struct {
	Version int               `json:"version"`
	Values  map[string]string `json:"values,omitempty"`
	Salt    []byte            `json:"salt,omitempty"`
	Sealed  []byte            `json:"sealed,omitempty"`
}

// FileStore is a write-through file backed credstore.Store.
type FileStore struct {
	path   string
	key    *[keyLength]byte
	salt   []byte
	values map[string]string
	lock   sync.RWMutex
}

// Open loads the store at path, creating nothing until the first write.
// An empty passphrase stores values in plaintext.
func Open(path, passphrase string) (*FileStore, error) {
	fsStore := &FileStore{
		path:   path,
		values: make(map[string]string),
	}

	raw, err := os.ReadFile(path)
	switch {
	case errors.Is(err, fs.ErrNotExist):
		if passphrase != "" {
			if err := fsStore.deriveKey(passphrase, nil); err != nil {
				return nil, err
			}
		}
		return fsStore, nil
	case err != nil:
		return nil, &credstore.StoreError{Operation: "load", Cause: err}
	}

	var ff fileFormat
	if err := json.Unmarshal(raw, &ff); err != nil {
		return nil, &credstore.StoreError{Operation: "load", Cause: errs.Wrapf(errs.ErrCorruptStore, "%s", err)}
	}

	if len(ff.Sealed) == 0 {
		if ff.Values != nil {
			fsStore.values = ff.Values
		}
		if passphrase != "" {
			// plaintext file, encrypt from the next write on
			if err := fsStore.deriveKey(passphrase, nil); err != nil {
				return nil, err
			}
		}
		return fsStore, nil
	}

	if passphrase == "" {
		return nil, &credstore.StoreError{Operation: "load", Cause: fmt.Errorf("%w: file is encrypted and no passphrase was given", errs.ErrCorruptStore)}
	}
	if err := fsStore.deriveKey(passphrase, ff.Salt); err != nil {
		return nil, err
	}
	if err := fsStore.open(ff.Sealed); err != nil {
		return nil, err
	}
	return fsStore, nil
}

func (s *FileStore) deriveKey(passphrase string, salt []byte) error {
	if len(salt) == 0 {
		salt = make([]byte, saltLength)
		if _, err := rand.Read(salt); err != nil {
			return &credstore.StoreError{Operation: "load", Cause: fmt.Errorf("failed to generate salt: %w", err)}
		}
	}
	k, err := scrypt.Key([]byte(passphrase), salt, scryptN, scryptR, scryptP, keyLength)
	if err != nil {
		return &credstore.StoreError{Operation: "load", Cause: fmt.Errorf("failed to derive key: %w", err)}
	}
	s.key = new([keyLength]byte)
	copy(s.key[:], k)
	s.salt = salt
	return nil
}

func (s *FileStore) open(sealed []byte) error {
	if len(sealed) < nonceLength {
		return &credstore.StoreError{Operation: "load", Cause: errs.ErrCorruptStore}
	}
	var nonce [nonceLength]byte
	copy(nonce[:], sealed[:nonceLength])
	plain, ok := secretbox.Open(nil, sealed[nonceLength:], &nonce, s.key)
	if !ok {
		return &credstore.StoreError{Operation: "load", Cause: fmt.Errorf("%w: wrong passphrase or tampered file", errs.ErrCorruptStore)}
	}
	if err := json.Unmarshal(plain, &s.values); err != nil {
		return &credstore.StoreError{Operation: "load", Cause: errs.Wrapf(errs.ErrCorruptStore, "%s", err)}
	}
	if s.values == nil {
		s.values = make(map[string]string)
	}
	return nil
}

func (s *FileStore) Get(key string) (string, error) {
	s.lock.RLock()
	defer s.lock.RUnlock()
	v, ok := s.values[key]
	if !ok {
		return "", credstore.ErrNotFound
	}
	return v, nil
}

func (s *FileStore) Set(key, value string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	prev, had := s.values[key]
	s.values[key] = value
	if err := s.save(); err != nil {
		if had {
			s.values[key] = prev
		} else {
			delete(s.values, key)
		}
		return &credstore.StoreError{Operation: "set", Key: key, Cause: err}
	}
	return nil
}

func (s *FileStore) Delete(keys ...string) error {
	s.lock.Lock()
	defer s.lock.Unlock()
	for _, k := range keys {
		delete(s.values, k)
	}
	if err := s.save(); err != nil {
		return &credstore.StoreError{Operation: "delete", Cause: err}
	}
	return nil
}

// Path returns the backing file location.
func (s *FileStore) Path() string {
	return s.path
}

// save writes the current values atomically. Caller holds the lock.
func (s *FileStore) save() error {
	ff := fileFormat{Version: fileVersion}
	if s.key == nil {
		ff.Values = s.values
	} else {
		plain, err := json.Marshal(s.values)
		if err != nil {
			return err
		}
		var nonce [nonceLength]byte
		if _, err := rand.Read(nonce[:]); err != nil {
			return fmt.Errorf("failed to generate nonce: %w", err)
		}
		ff.Salt = s.salt
		ff.Sealed = secretbox.Seal(nonce[:], plain, &nonce, s.key)
	}

	raw, err := json.MarshalIndent(ff, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(s.path), ".credentials-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())
	if _, err := tmp.Write(raw); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path)
}
