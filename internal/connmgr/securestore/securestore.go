// Package securestore stands in for the OS keychain on platforms where the
// workbench daemon runs headless (containers, CI): a single JSON map,
// encrypted at rest with a key derived from a master passphrase, persisted
// as one file the way a keychain holds one service entry.
package securestore

import (
	"crypto/rand"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/crypto/chacha20poly1305"
	"golang.org/x/crypto/scrypt"
)

// ErrNotFound is returned by Get when no secret is stored under key.
var ErrNotFound = errors.New("securestore: secret not found")

const (
	scryptN  = 1 << 15
	scryptR  = 8
	scryptP  = 1
	saltSize = 16
)

// onDiskEnvelope is the on-disk envelope: a random salt (key derivation) plus a
// random nonce and the ciphertext of the JSON-encoded secret map.
type onDiskEnvelope struct {
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Store is the single round-tripped credential map: keys are
// "password:{uuid}" or "ssh_passphrase:{uuid}", values are the plaintext
// secrets. Loaded lazily on first access; every write re-encrypts and
// rewrites the whole map, mirroring a real keychain's one-entry-per-service
// semantics and avoiding repeated OS permission prompts.
type Store struct {
	mu         sync.Mutex
	path       string
	passphrase []byte

	loaded bool
	secrets map[string]string
}

// New creates a Store backed by path, encrypted with a key derived from
// passphrase. The file is created on first Set if it doesn't exist.
func New(path string, passphrase []byte) *Store {
	return &Store{path: path, passphrase: passphrase}
}

// PasswordKey builds the map key for a saved connection's database
// password.
func PasswordKey(connectionID string) string { return "password:" + connectionID }

// SSHPassphraseKey builds the map key for a saved connection's SSH key
// passphrase.
func SSHPassphraseKey(connectionID string) string { return "ssh_passphrase:" + connectionID }

func (s *Store) ensureLoaded() error {
	if s.loaded {
		return nil
	}
	s.secrets = make(map[string]string)

	data, err := os.ReadFile(s.path)
	if errors.Is(err, os.ErrNotExist) {
		s.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("securestore: reading %s: %w", s.path, err)
	}

	var envelope onDiskEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return fmt.Errorf("securestore: decoding envelope: %w", err)
	}

	plaintext, err := s.decrypt(envelope)
	if err != nil {
		return fmt.Errorf("securestore: decrypting: %w", err)
	}
	if err := json.Unmarshal(plaintext, &s.secrets); err != nil {
		return fmt.Errorf("securestore: decoding secret map: %w", err)
	}

	s.loaded = true
	return nil
}

// Get returns the secret stored under key, or ErrNotFound.
func (s *Store) Get(key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return "", err
	}
	secret, ok := s.secrets[key]
	if !ok {
		return "", ErrNotFound
	}
	return secret, nil
}

// Set stores secret under key and round-trips the entire map to disk.
func (s *Store) Set(key, secret string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return err
	}
	s.secrets[key] = secret
	return s.flush()
}

// Delete removes key from the map and round-trips the rest to disk.
// Deleting an absent key is a no-op.
func (s *Store) Delete(key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.ensureLoaded(); err != nil {
		return err
	}
	delete(s.secrets, key)
	return s.flush()
}

func (s *Store) flush() error {
	plaintext, err := json.Marshal(s.secrets)
	if err != nil {
		return err
	}
	envelope, err := s.encrypt(plaintext)
	if err != nil {
		return err
	}
	encoded, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return err
	}
	return os.WriteFile(s.path, encoded, 0o600)
}

func (s *Store) deriveKey(salt []byte) ([]byte, error) {
	return scrypt.Key(s.passphrase, salt, scryptN, scryptR, scryptP, chacha20poly1305.KeySize)
}

func (s *Store) encrypt(plaintext []byte) (onDiskEnvelope, error) {
	salt := make([]byte, saltSize)
	if _, err := io.ReadFull(rand.Reader, salt); err != nil {
		return onDiskEnvelope{}, err
	}
	key, err := s.deriveKey(salt)
	if err != nil {
		return onDiskEnvelope{}, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return onDiskEnvelope{}, err
	}
	nonce := make([]byte, aead.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return onDiskEnvelope{}, err
	}
	ciphertext := aead.Seal(nil, nonce, plaintext, nil)
	return onDiskEnvelope{Salt: salt, Nonce: nonce, Ciphertext: ciphertext}, nil
}

func (s *Store) decrypt(envelope onDiskEnvelope) ([]byte, error) {
	key, err := s.deriveKey(envelope.Salt)
	if err != nil {
		return nil, err
	}
	aead, err := chacha20poly1305.New(key)
	if err != nil {
		return nil, err
	}
	return aead.Open(nil, envelope.Nonce, envelope.Ciphertext, nil)
}
