// Package keystore is an encrypted file-backed secret store for API
// credentials. Entries are sealed with NaCl secretbox under a key derived
// from a passphrase with scrypt.
package keystore

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/crypto/nacl/secretbox"
	"golang.org/x/crypto/scrypt"
)

const (
	scryptN      = 32768
	scryptR      = 8
	scryptP      = 1
	saltLength   = 16
	secretboxKey = 32
)

// ErrNotFound is returned when no secret exists under the requested name.
var ErrNotFound = errors.New("secret not found")

// ErrWrongPassphrase is returned when the store cannot be unsealed.
var ErrWrongPassphrase = errors.New("keystore passphrase is incorrect or file is corrupt")

// Keystore reads and writes one sealed secrets file.
type Keystore struct {
	path       string
	passphrase string
}

func New(path, passphrase string) (*Keystore, error) {
	trimmedPath := strings.TrimSpace(path)
	if trimmedPath == "" {
		return nil, fmt.Errorf("keystore path is required")
	}
	if passphrase == "" {
		return nil, fmt.Errorf("keystore passphrase is required")
	}
	return &Keystore{path: trimmedPath, passphrase: passphrase}, nil
}

// Get returns the secret stored under name.
func (k *Keystore) Get(name string) (string, error) {
	secrets, err := k.load()
	if err != nil {
		return "", err
	}
	value, ok := secrets[name]
	if !ok {
		return "", ErrNotFound
	}
	return value, nil
}

// Set stores value under name, creating the file when missing.
func (k *Keystore) Set(name, value string) error {
	if strings.TrimSpace(name) == "" {
		return fmt.Errorf("secret name is required")
	}

	secrets, err := k.load()
	if err != nil {
		return err
	}
	secrets[name] = value
	return k.save(secrets)
}

// Delete removes the secret stored under name. Deleting an absent name is
// a no-op.
func (k *Keystore) Delete(name string) error {
	secrets, err := k.load()
	if err != nil {
		return err
	}
	if _, ok := secrets[name]; !ok {
		return nil
	}
	delete(secrets, name)
	return k.save(secrets)
}

type envelope struct {
	Salt  string `json:"salt"`
	Nonce string `json:"nonce"`
	Data  string `json:"data"`
}

func (k *Keystore) load() (map[string]string, error) {
	raw, err := os.ReadFile(k.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return map[string]string{}, nil
		}
		return nil, fmt.Errorf("read keystore file: %w", err)
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode keystore file: %w", err)
	}

	salt, err := base64.StdEncoding.DecodeString(env.Salt)
	if err != nil {
		return nil, fmt.Errorf("decode keystore salt: %w", err)
	}
	nonceBytes, err := base64.StdEncoding.DecodeString(env.Nonce)
	if err != nil || len(nonceBytes) != 24 {
		return nil, fmt.Errorf("decode keystore nonce: invalid value")
	}
	sealed, err := base64.StdEncoding.DecodeString(env.Data)
	if err != nil {
		return nil, fmt.Errorf("decode keystore payload: %w", err)
	}

	key, err := k.deriveKey(salt)
	if err != nil {
		return nil, err
	}

	var nonce [24]byte
	copy(nonce[:], nonceBytes)
	plaintext, ok := secretbox.Open(nil, sealed, &nonce, key)
	if !ok {
		return nil, ErrWrongPassphrase
	}

	secrets := map[string]string{}
	if err := json.Unmarshal(plaintext, &secrets); err != nil {
		return nil, fmt.Errorf("decode keystore secrets: %w", err)
	}
	return secrets, nil
}

func (k *Keystore) save(secrets map[string]string) error {
	plaintext, err := json.Marshal(secrets)
	if err != nil {
		return fmt.Errorf("encode keystore secrets: %w", err)
	}

	salt := make([]byte, saltLength)
	if _, err := rand.Read(salt); err != nil {
		return fmt.Errorf("generate keystore salt: %w", err)
	}
	var nonce [24]byte
	if _, err := rand.Read(nonce[:]); err != nil {
		return fmt.Errorf("generate keystore nonce: %w", err)
	}

	key, err := k.deriveKey(salt)
	if err != nil {
		return err
	}
	sealed := secretbox.Seal(nil, plaintext, &nonce, key)

	raw, err := json.Marshal(envelope{
		Salt:  base64.StdEncoding.EncodeToString(salt),
		Nonce: base64.StdEncoding.EncodeToString(nonce[:]),
		Data:  base64.StdEncoding.EncodeToString(sealed),
	})
	if err != nil {
		return fmt.Errorf("encode keystore file: %w", err)
	}

	if dir := filepath.Dir(k.path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("create keystore directory: %w", err)
		}
	}
	if err := os.WriteFile(k.path, raw, 0o600); err != nil {
		return fmt.Errorf("write keystore file: %w", err)
	}
	return nil
}

func (k *Keystore) deriveKey(salt []byte) (*[secretboxKey]byte, error) {
	derived, err := scrypt.Key([]byte(k.passphrase), salt, scryptN, scryptR, scryptP, secretboxKey)
	if err != nil {
		return nil, fmt.Errorf("derive keystore key: %w", err)
	}
	var key [secretboxKey]byte
	copy(key[:], derived)
	return &key, nil
}
